package cli

import (
	"fmt"

	"github.com/runoshun/promptbench/internal/app"
	"github.com/runoshun/promptbench/internal/usecase"
	"github.com/spf13/cobra"
)

// newLogsCommand creates the logs command.
func newLogsCommand(c *app.Container) *cobra.Command {
	var opts struct {
		TaskID string
		Lines  int
	}

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show logs",
		Long: `Show the global log, or the log of one task with --task.

Examples:
  # Show the global log
  promptbench logs

  # Show the last 20 lines of a task log
  promptbench logs --task T-12 -n 20`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uc := c.ShowLogsUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.ShowLogsInput{
				TaskID: opts.TaskID,
				Lines:  opts.Lines,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), out.Content)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.TaskID, "task", "", "Show the log of this task")
	cmd.Flags().IntVarP(&opts.Lines, "lines", "n", 0, "Number of lines to show from the end (0 = all)")

	return cmd
}
