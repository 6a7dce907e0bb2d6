package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/runoshun/promptbench/internal/catalog"
	"github.com/runoshun/promptbench/internal/domain"
	"github.com/runoshun/promptbench/internal/workflow"
)

// StartTaskInput contains the parameters for starting work on a task.
type StartTaskInput struct {
	TaskID         string // Catalog task to start
	Refresh        bool   // Re-read the task row from the spreadsheet first
	MarkInProgress bool   // Write in_progress to the spreadsheet for pending tasks
}

// StartTaskOutput contains the result of starting a task.
type StartTaskOutput struct {
	Task          *domain.Task
	StatusErr     error // Non-fatal failure to mark the task in progress
	Resumed       bool  // Saved progress was loaded
	StatusUpdated bool
}

// StartTask selects a task and makes it the workflow's current task,
// resuming saved progress when there is any.
type StartTask struct {
	catalog  *catalog.Catalog
	workflow *workflow.Container
	logger   domain.Logger
}

// NewStartTask creates a new StartTask use case.
func NewStartTask(c *catalog.Catalog, wf *workflow.Container, logger domain.Logger) *StartTask {
	return &StartTask{catalog: c, workflow: wf, logger: logger}
}

// Execute starts the task.
func (uc *StartTask) Execute(ctx context.Context, in StartTaskInput) (*StartTaskOutput, error) {
	task, err := uc.catalog.Task(in.TaskID)
	if err != nil {
		return nil, err
	}
	if in.Refresh {
		fresh, err := uc.catalog.TaskData(ctx, in.TaskID)
		if err != nil {
			return nil, fmt.Errorf("refresh task: %w", err)
		}
		task = fresh
	}
	if err := uc.catalog.SelectTask(task.ID); err != nil {
		return nil, err
	}

	out := &StartTaskOutput{Task: task}

	uc.workflow.Reset()
	uc.workflow.SetCurrentTask(task.Summary())
	if uc.workflow.LoadProgress(ctx, task.ID) {
		out.Resumed = true
	} else if err := uc.workflow.Err(); err != nil && !errors.Is(err, domain.ErrBridgeUnavailable) {
		return nil, fmt.Errorf("load progress: %w", err)
	} else {
		uc.workflow.SetBaseTranslations(task.BaseTranslations)
		if err := uc.workflow.SetCurrentStep(domain.StepAutoTranslate); err != nil {
			return nil, err
		}
	}

	if in.MarkInProgress && task.Status == domain.StatusPending {
		if err := uc.catalog.UpdateTaskStatus(ctx, task.ID, domain.StatusInProgress); err != nil {
			out.StatusErr = err
		} else {
			out.StatusUpdated = true
			out.Task.Status = domain.StatusInProgress
		}
	}

	uc.logger.Info(task.ID, "usecase", fmt.Sprintf("task started (resumed=%t)", out.Resumed))
	return out, nil
}
