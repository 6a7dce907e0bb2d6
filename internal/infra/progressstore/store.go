// Package progressstore provides a file-based implementation of ProgressStore:
// one JSON snapshot file per task under the data directory.
package progressstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/runoshun/promptbench/internal/domain"
	"github.com/runoshun/promptbench/internal/infra/fileutil"
	"github.com/runoshun/promptbench/internal/snapshot"
)

const envelopeSchema = 1

// envelope is the on-disk form of one task's snapshot.
// The task ID is stored because file names are escaped.
type envelope struct {
	TaskID   string          `json:"taskId"`
	Snapshot json.RawMessage `json:"snapshot"`
	Schema   int             `json:"schema"`
}

// Store implements domain.ProgressStore using files under <dataDir>/progress.
type Store struct {
	lock *fileutil.Lock
	dir  string
}

// New creates a new Store writing into dir.
// The directory is created on first write.
func New(dir string) *Store {
	return &Store{dir: dir, lock: fileutil.NewLock(filepath.Join(dir, ".lock"))}
}

// Ensure Store implements domain.ProgressStore.
var _ domain.ProgressStore = (*Store)(nil)

// SaveProgress creates or replaces the snapshot for a task.
func (s *Store) SaveProgress(ctx context.Context, taskID string, snap *domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if taskID == "" {
		return domain.ErrNoCurrentTask
	}

	raw, err := snapshot.Encode(snap)
	if err != nil {
		return err
	}
	content, err := json.MarshalIndent(envelope{
		Schema:   envelopeSchema,
		TaskID:   taskID,
		Snapshot: raw,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal progress file: %w", err)
	}

	return s.lock.Exclusive(func() error {
		return fileutil.WriteAtomic(s.taskPath(taskID), content, 0o600)
	})
}

// GetProgress retrieves the snapshot for a task.
func (s *Store) GetProgress(ctx context.Context, taskID string) (*domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var snap *domain.Snapshot
	err := s.lock.Shared(func() error {
		env, err := s.readEnvelope(s.taskPath(taskID))
		if err != nil {
			return err
		}
		snap, err = snapshot.Decode(env.Snapshot)
		if err != nil {
			return fmt.Errorf("progress of %s: %w", taskID, err)
		}
		return nil
	})
	return snap, err
}

// ClearProgress removes the snapshot for a task.
func (s *Store) ClearProgress(ctx context.Context, taskID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.lock.Exclusive(func() error {
		if err := os.Remove(s.taskPath(taskID)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove progress file: %w", err)
		}
		return nil
	})
}

// List returns summaries of all stored snapshots ordered by task ID.
// Unreadable files are skipped.
func (s *Store) List(ctx context.Context) ([]domain.ProgressInfo, error) {
	var infos []domain.ProgressInfo
	err := s.lock.Shared(func() error {
		entries, err := os.ReadDir(s.dir)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("read progress dir: %w", err)
		}
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			name := entry.Name()
			if entry.IsDir() || !strings.HasSuffix(name, ".json") {
				continue
			}
			env, err := s.readEnvelope(filepath.Join(s.dir, name))
			if err != nil {
				continue
			}
			var snap domain.Snapshot
			if err := json.Unmarshal(env.Snapshot, &snap); err != nil {
				continue
			}
			infos = append(infos, snap.Info(env.TaskID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(infos, func(a, b domain.ProgressInfo) int {
		return strings.Compare(a.TaskID, b.TaskID)
	})
	return infos, nil
}

func (s *Store) taskPath(taskID string) string {
	return filepath.Join(s.dir, domain.SafeFileName(taskID)+".json")
}

func (s *Store) readEnvelope(path string) (*envelope, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrProgressNotFound
		}
		return nil, fmt.Errorf("read progress file: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(content, &env); err != nil {
		return nil, fmt.Errorf("parse progress file: %w", err)
	}
	if env.Schema != envelopeSchema {
		return nil, fmt.Errorf("progress file schema mismatch: %d", env.Schema)
	}
	return &env, nil
}
