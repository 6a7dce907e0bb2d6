package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/promptbench/internal/catalog"
	"github.com/runoshun/promptbench/internal/domain"
	"github.com/runoshun/promptbench/internal/workflow"
)

// CompleteTaskInput contains the parameters for completing the current task.
type CompleteTaskInput struct{}

// CompleteTaskOutput contains the result of completing a task.
type CompleteTaskOutput struct {
	TaskID string
}

// CompleteTask saves the final progress of the current task and marks it
// completed in the spreadsheet. A report must have been generated.
type CompleteTask struct {
	catalog  *catalog.Catalog
	workflow *workflow.Container
}

// NewCompleteTask creates a new CompleteTask use case.
func NewCompleteTask(c *catalog.Catalog, wf *workflow.Container) *CompleteTask {
	return &CompleteTask{catalog: c, workflow: wf}
}

// Execute completes the current task.
func (uc *CompleteTask) Execute(ctx context.Context, _ CompleteTaskInput) (*CompleteTaskOutput, error) {
	task := uc.workflow.CurrentTask()
	if task == nil {
		return nil, domain.ErrNoCurrentTask
	}
	if uc.workflow.FinalReport() == nil {
		return nil, domain.ErrNoReport
	}

	if !uc.workflow.SaveProgress(ctx) {
		return nil, fmt.Errorf("save progress: %w", uc.workflow.Err())
	}
	if err := uc.catalog.UpdateTaskStatus(ctx, task.ID, domain.StatusCompleted); err != nil {
		return nil, err
	}
	return &CompleteTaskOutput{TaskID: task.ID}, nil
}
