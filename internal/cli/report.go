package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/runoshun/promptbench/internal/app"
	"github.com/runoshun/promptbench/internal/report"
	"github.com/runoshun/promptbench/internal/usecase"
	"github.com/runoshun/promptbench/internal/workflow"
	"github.com/spf13/cobra"
)

// newReportCommand creates the report command.
func newReportCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate and view the final report",
	}
	cmd.AddCommand(
		newReportGenerateCommand(c),
		newReportShowCommand(c),
		newReportSetCommand(c),
	)
	return cmd
}

func newReportGenerateCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Summary string
		Notes   string
	}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Build the final report from the selected prompt",
		Long: `Build the final report of the current task.

A prompt must be selected first (promptbench prompt select <id>). The
report counts liked and disliked prompts, averages the quality scores
and records the session duration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := loadSession(cmd, c); err != nil {
				return err
			}
			out, err := c.GenerateReportUseCase().Execute(cmd.Context(), usecase.GenerateReportInput{
				Summary: opts.Summary,
				Notes:   opts.Notes,
				Save:    true,
			})
			if err != nil {
				return err
			}
			if !out.Saved {
				return fmt.Errorf("save progress: %w", c.Workflow.Err())
			}
			r := out.Report
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Generated report for task %s (%d prompts, %d liked, %d disliked)\n",
				r.TaskID, r.TotalPrompts, r.LikedCount, r.DislikedCount)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Summary, "summary", "", "Summary of the session")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "Additional notes")
	return cmd
}

func newReportShowCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Format string
		Output string
	}

	formats := make([]string, 0, len(report.Formats()))
	for _, f := range report.Formats() {
		formats = append(formats, string(f))
	}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Render the final report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := report.ParseFormat(opts.Format)
			if err != nil {
				return err
			}
			if _, err := loadSession(cmd, c); err != nil {
				return err
			}
			doc, err := report.NewDocument(c.Workflow.State())
			if err != nil {
				return err
			}

			if opts.Output == "" {
				return report.Render(cmd.OutOrStdout(), format, doc)
			}
			f, err := os.Create(opts.Output)
			if err != nil {
				return fmt.Errorf("create report file: %w", err)
			}
			if err := report.Render(f, format, doc); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("write report file: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s report to %s\n", format, opts.Output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.Format, "format", "f", string(report.FormatMarkdown), "Output format ("+strings.Join(formats, ", ")+")")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Write to this file")
	return cmd
}

func newReportSetCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "set <field=value>...",
		Short: "Patch fields of the final report",
		Long: `Patch fields of the final report by their JSON name.

Unknown fields are kept as additional fields of the report.

Examples:
  promptbench report set summary="Formal register works best"
  promptbench report set reviewer=kim averageScore=4.5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			upd, err := parseAssignments(args)
			if err != nil {
				return err
			}
			err = editSession(cmd, c, func(wf *workflow.Container) error {
				return wf.UpdateFinalReport(upd)
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Updated %d report fields\n", len(upd))
			return nil
		},
	}
}

// parseAssignments parses key=value arguments.
func parseAssignments(args []string) (map[string]any, error) {
	upd := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q (want field=value)", arg)
		}
		upd[key] = value
	}
	return upd, nil
}

// newCompleteCommand creates the complete command.
func newCompleteCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "complete",
		Short: "Finish the current task",
		Long: `Save the final progress of the current task and mark it completed
in the spreadsheet. A report must have been generated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := loadSession(cmd, c); err != nil {
				return err
			}
			out, err := c.CompleteTaskUseCase().Execute(cmd.Context(), usecase.CompleteTaskInput{})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Completed task %s\n", out.TaskID)
			return nil
		},
	}
}
