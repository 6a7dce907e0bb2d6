package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/runoshun/promptbench/internal/domain"
	"github.com/runoshun/promptbench/internal/snapshot"
)

// ExportProgressInput contains the parameters for exporting a snapshot.
type ExportProgressInput struct {
	TaskID string
	Path   string // Destination file
}

// ExportProgressOutput contains the result of an export.
type ExportProgressOutput struct {
	Info domain.ProgressInfo
}

// ExportProgress writes a stored snapshot to a JSON file.
type ExportProgress struct {
	store domain.ProgressStore
}

// NewExportProgress creates a new ExportProgress use case.
func NewExportProgress(store domain.ProgressStore) *ExportProgress {
	return &ExportProgress{store: store}
}

// Execute exports the snapshot of in.TaskID.
func (uc *ExportProgress) Execute(ctx context.Context, in ExportProgressInput) (*ExportProgressOutput, error) {
	if uc.store == nil {
		return nil, domain.ErrBridgeUnavailable
	}
	snap, err := uc.store.GetProgress(ctx, in.TaskID)
	if err != nil {
		return nil, err
	}
	data, err := snapshot.Encode(snap)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(in.Path, data, 0o600); err != nil {
		return nil, fmt.Errorf("write snapshot: %w", err)
	}
	return &ExportProgressOutput{Info: snap.Info(in.TaskID)}, nil
}

// ImportProgressInput contains the parameters for importing a snapshot.
type ImportProgressInput struct {
	Path      string // Source file
	TaskID    string // Overrides the task ID recorded in the snapshot
	Overwrite bool   // Replace an existing snapshot
}

// ImportProgressOutput contains the result of an import.
type ImportProgressOutput struct {
	Info domain.ProgressInfo
}

// ErrProgressExists is returned when importing over an existing snapshot without Overwrite.
var ErrProgressExists = errors.New("progress already exists")

// ImportProgress validates a snapshot file and saves it into the progress store.
type ImportProgress struct {
	store domain.ProgressStore
}

// NewImportProgress creates a new ImportProgress use case.
func NewImportProgress(store domain.ProgressStore) *ImportProgress {
	return &ImportProgress{store: store}
}

// Execute imports the snapshot at in.Path.
func (uc *ImportProgress) Execute(ctx context.Context, in ImportProgressInput) (*ImportProgressOutput, error) {
	if uc.store == nil {
		return nil, domain.ErrBridgeUnavailable
	}
	data, err := os.ReadFile(in.Path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	snap, err := snapshot.Decode(data)
	if err != nil {
		return nil, err
	}

	taskID := in.TaskID
	if taskID == "" && snap.CurrentTask != nil {
		taskID = snap.CurrentTask.ID
	}
	if taskID == "" {
		return nil, fmt.Errorf("snapshot has no task: %w", domain.ErrNoCurrentTask)
	}
	// A snapshot is keyed by its current task; re-keying drops the old task's details.
	if snap.CurrentTask == nil || snap.CurrentTask.ID != taskID {
		snap.CurrentTask = &domain.TaskSummary{ID: taskID}
	}

	if !in.Overwrite {
		_, err := uc.store.GetProgress(ctx, taskID)
		if err == nil {
			return nil, fmt.Errorf("task %s: %w", taskID, ErrProgressExists)
		}
		if !errors.Is(err, domain.ErrProgressNotFound) {
			return nil, err
		}
	}

	if err := uc.store.SaveProgress(ctx, taskID, snap); err != nil {
		return nil, fmt.Errorf("save progress: %w", err)
	}
	return &ImportProgressOutput{Info: snap.Info(taskID)}, nil
}
