package cli

import (
	"errors"
	"fmt"

	"github.com/runoshun/promptbench/internal/app"
	"github.com/runoshun/promptbench/internal/domain"
	"github.com/runoshun/promptbench/internal/workflow"
	"github.com/spf13/cobra"
)

// loadSession brings the stored progress of the current task into the workflow.
// The durable subset restored by the container is kept when nothing is stored.
func loadSession(cmd *cobra.Command, c *app.Container) (*domain.TaskSummary, error) {
	task := c.Workflow.CurrentTask()
	if task == nil {
		return nil, fmt.Errorf("%w (run 'promptbench start <id>' first)", domain.ErrNoCurrentTask)
	}
	if !c.Workflow.LoadProgress(cmd.Context(), task.ID) {
		if err := c.Workflow.Err(); err != nil && !errors.Is(err, domain.ErrBridgeUnavailable) {
			return nil, err
		}
	}
	return task, nil
}

// editSession loads the current task's progress, applies fn and saves the result.
func editSession(cmd *cobra.Command, c *app.Container, fn func(wf *workflow.Container) error) error {
	if _, err := loadSession(cmd, c); err != nil {
		return err
	}
	if err := fn(c.Workflow); err != nil {
		return err
	}
	if !c.Workflow.SaveProgress(cmd.Context()) {
		return fmt.Errorf("save progress: %w", c.Workflow.Err())
	}
	return nil
}
