package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/runoshun/promptbench/internal/app"
	"github.com/runoshun/promptbench/internal/domain"
	"github.com/runoshun/promptbench/internal/usecase"
	"github.com/runoshun/promptbench/internal/workflow"
	"github.com/spf13/cobra"
)

const progressBarWidth = 30

// newStartCommand creates the start command.
func newStartCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Refresh bool
		NoMark  bool
	}

	cmd := &cobra.Command{
		Use:   "start <task-id>",
		Short: "Start or resume work on a task",
		Long: `Make a task the current task of the workflow.

Saved progress of the task is resumed when present. Otherwise the workflow
starts at step 1 with the task's base translations, and a pending task is
marked in_progress in the spreadsheet (disable with --no-mark).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uc := c.StartTaskUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.StartTaskInput{
				TaskID:         args[0],
				Refresh:        opts.Refresh,
				MarkInProgress: !opts.NoMark,
			})
			if err != nil {
				return err
			}
			if !out.Resumed && !c.Workflow.SaveProgress(cmd.Context()) {
				return fmt.Errorf("save progress: %w", c.Workflow.Err())
			}

			w := cmd.OutOrStdout()
			if out.Resumed {
				_, _ = fmt.Fprintf(w, "Resumed task %s: %s\n", out.Task.ID, out.Task.Title)
			} else {
				_, _ = fmt.Fprintf(w, "Started task %s: %s\n", out.Task.ID, out.Task.Title)
			}
			if out.StatusErr != nil {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not mark task in progress: %v\n", out.StatusErr)
			}
			printProjection(w, c.Workflow.Projection())
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "Re-read the task row from the spreadsheet first")
	cmd.Flags().BoolVar(&opts.NoMark, "no-mark", false, "Do not mark the task in_progress in the spreadsheet")
	return cmd
}

// newStatusCommand creates the status command.
func newStatusCommand(c *app.Container) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current task and workflow progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			task, err := loadSession(cmd, c)
			if err != nil {
				return err
			}
			if format != formatText {
				return writeStructured(cmd.OutOrStdout(), format, c.Workflow.State())
			}

			w := cmd.OutOrStdout()
			state := c.Workflow.State()
			_, _ = fmt.Fprintf(w, "Task:     %s: %s\n", task.ID, task.Title)
			_, _ = fmt.Fprintf(w, "Session:  %s\n", formatDuration(c.Workflow.SessionDuration()))
			_, _ = fmt.Fprintf(w, "Prompts:  %d\n", len(state.Prompts))
			if state.SelectedPrompt != nil {
				_, _ = fmt.Fprintf(w, "Selected: %s\n", *state.SelectedPrompt)
			}
			if avg, ok := c.Workflow.AverageQualityScore(); ok {
				_, _ = fmt.Fprintf(w, "Avg score: %.1f\n", avg)
			}
			_, _ = fmt.Fprintln(w)
			printProjection(w, c.Workflow.Projection())
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format (text, json, yaml)")
	return cmd
}

// printProjection renders the step navigator as text.
func printProjection(w io.Writer, p domain.ProgressProjection) {
	_, _ = fmt.Fprintf(w, "Overall  %s %5.1f%%\n", bar(p.Overall, progressBarWidth), p.Overall)
	for _, s := range p.Steps {
		marker := " "
		switch s.Status {
		case domain.StepCompleted:
			marker = "x"
		case domain.StepCurrent:
			marker = ">"
		}
		_, _ = fmt.Fprintf(w, " [%s] %d. %-18s %3d%%\n", marker, s.Step, s.Label, s.Percent)
	}
}

// bar draws a text progress bar for pct in 0..100.
func bar(pct float64, width int) string {
	filled := int(pct / 100 * float64(width))
	filled = min(max(filled, 0), width)
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

// newStepCommand creates the step command.
func newStepCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "step [n|name|next|prev]",
		Short: "Show or change the current step",
		Long: `Show the current step, or move to another one.

Steps: 1 auto_translate, 2 prompt_authoring, 3 evaluation,
4 final_selection, 5 report. "next" and "prev" move relative to the
current step.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				if _, err := loadSession(cmd, c); err != nil {
					return err
				}
				s := c.Workflow.CurrentStep()
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Step %d/%d: %s\n", s, domain.TotalSteps, s.Label())
				return nil
			}

			var target domain.Step
			err := editSession(cmd, c, func(wf *workflow.Container) error {
				step, err := resolveStep(wf.CurrentStep(), args[0])
				if err != nil {
					return err
				}
				target = step
				return wf.SetCurrentStep(step)
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Moved to step %d/%d: %s\n", target, domain.TotalSteps, target.Label())
			return nil
		},
	}
}

// resolveStep parses a step argument relative to current.
func resolveStep(current domain.Step, arg string) (domain.Step, error) {
	switch arg {
	case "next":
		if current >= domain.TotalSteps {
			return 0, fmt.Errorf("already at the last step: %w", domain.ErrInvalidStep)
		}
		return current + 1, nil
	case "prev":
		if current <= 1 {
			return 0, fmt.Errorf("already at the first step: %w", domain.ErrInvalidStep)
		}
		return current - 1, nil
	default:
		return domain.ParseStep(arg)
	}
}

// newProgressCommand creates the progress command.
func newProgressCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Manage saved workflow progress",
	}
	cmd.AddCommand(
		newProgressShowCommand(c),
		newProgressSetCommand(c),
		newProgressSaveCommand(c),
		newProgressClearCommand(c),
		newProgressListCommand(c),
		newProgressExportCommand(c),
		newProgressImportCommand(c),
	)
	return cmd
}

func newProgressShowCommand(c *app.Container) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the step navigator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := loadSession(cmd, c); err != nil {
				return err
			}
			p := c.Workflow.Projection()
			if format != formatText {
				return writeStructured(cmd.OutOrStdout(), format, p)
			}
			printProjection(cmd.OutOrStdout(), p)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format (text, json, yaml)")
	return cmd
}

func newProgressSetCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "set <step> <percent>",
		Short: "Set the completion percentage of a step",
		Long:  `Set the completion percentage of a step. Values are clamped to 0..100.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			step, err := domain.ParseStep(args[0])
			if err != nil {
				return err
			}
			pct, err := strconv.Atoi(strings.TrimSuffix(args[1], "%"))
			if err != nil {
				return fmt.Errorf("invalid percent %q", args[1])
			}
			err = editSession(cmd, c, func(wf *workflow.Container) error {
				wf.UpdateProgress(map[domain.Step]int{step: pct})
				return nil
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d%%\n", step.Label(), c.Workflow.Progress()[step])
			return nil
		},
	}
}

func newProgressSaveCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Save the current workflow state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			task := c.Workflow.CurrentTask()
			if task == nil {
				return domain.ErrNoCurrentTask
			}
			if err := editSession(cmd, c, func(*workflow.Container) error { return nil }); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved progress of task %s\n", task.ID)
			return nil
		},
	}
}

func newProgressClearCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "clear [task-id]",
		Short: "Delete saved progress",
		Long: `Delete the saved progress of a task (default: the current task).

For the current task, the workflow returns to step 1 while the task
and session start are kept.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID := ""
			if t := c.Workflow.CurrentTask(); t != nil {
				taskID = t.ID
			}
			if len(args) == 1 {
				taskID = args[0]
			}
			if taskID == "" {
				return domain.ErrNoCurrentTask
			}

			if cur := c.Workflow.CurrentTask(); cur != nil && cur.ID == taskID {
				if !c.Workflow.ClearProgress(cmd.Context(), taskID) {
					return fmt.Errorf("clear progress: %w", c.Workflow.Err())
				}
			} else {
				if c.Progress == nil {
					return domain.ErrBridgeUnavailable
				}
				if err := c.Progress.ClearProgress(cmd.Context(), taskID); err != nil {
					return fmt.Errorf("clear progress: %w", err)
				}
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Cleared progress of task %s\n", taskID)
			return nil
		},
	}
}

func newProgressListCommand(c *app.Container) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved progress snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.Progress == nil {
				return domain.ErrBridgeUnavailable
			}
			infos, err := c.Progress.List(cmd.Context())
			if err != nil {
				return err
			}
			if format != formatText {
				return writeStructured(cmd.OutOrStdout(), format, infos)
			}
			printProgressList(cmd.OutOrStdout(), infos, c.Clock.Now())
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format (text, json, yaml)")
	return cmd
}

func printProgressList(w io.Writer, infos []domain.ProgressInfo, now time.Time) {
	if len(infos) == 0 {
		_, _ = fmt.Fprintln(w, "No saved progress.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	defer func() { _ = tw.Flush() }()

	_, _ = fmt.Fprintln(tw, "TASK\tSTEP\tPROMPTS\tSAVED\tTITLE")
	for _, info := range infos {
		_, _ = fmt.Fprintf(tw, "%s\t%d/%d\t%d\t%s ago\t%s\n",
			info.TaskID, info.CurrentStep, domain.TotalSteps, info.Prompts,
			formatDuration(now.Sub(info.SavedAt)), truncate(info.TaskTitle, titleColumnWidth))
	}
}

func newProgressExportCommand(c *app.Container) *cobra.Command {
	var taskID string

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export saved progress to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if taskID == "" {
				t := c.Workflow.CurrentTask()
				if t == nil {
					return errors.New("task id required (--task) when no task is current")
				}
				taskID = t.ID
			}
			out, err := c.ExportProgressUseCase().Execute(cmd.Context(), usecase.ExportProgressInput{
				TaskID: taskID,
				Path:   args[0],
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported progress of task %s (step %d, %d prompts) to %s\n",
				out.Info.TaskID, out.Info.CurrentStep, out.Info.Prompts, args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&taskID, "task", "", "Task to export (default: current task)")
	return cmd
}

func newProgressImportCommand(c *app.Container) *cobra.Command {
	var opts struct {
		TaskID string
		Force  bool
	}

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import progress from a JSON file",
		Long: `Validate a progress JSON file and save it into the progress store.

The snapshot is stored under its own task unless --task is given.
Existing progress is only replaced with --force.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.ImportProgressUseCase().Execute(cmd.Context(), usecase.ImportProgressInput{
				Path:      args[0],
				TaskID:    opts.TaskID,
				Overwrite: opts.Force,
			})
			if err != nil {
				if errors.Is(err, usecase.ErrProgressExists) {
					return fmt.Errorf("%w (use --force to replace it)", err)
				}
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported progress of task %s (step %d, %d prompts)\n",
				out.Info.TaskID, out.Info.CurrentStep, out.Info.Prompts)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.TaskID, "task", "", "Store under this task ID")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Replace existing progress")
	return cmd
}

// newTranslateCommand creates the translate command.
func newTranslateCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Manage the auto translation of step 1",
	}
	cmd.AddCommand(newTranslateSetCommand(c), newTranslateShowCommand(c))
	return cmd
}

func newTranslateSetCommand(c *app.Container) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "set [text]",
		Short: "Record the machine translation of the source text",
		Long: `Record the machine translation of the current task's source text.

The text is taken from the argument, from --file, or from stdin when the
argument is "-".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd, args, file)
			if err != nil {
				return err
			}
			err = editSession(cmd, c, func(wf *workflow.Container) error {
				wf.SetAutoTranslation(text)
				if wf.CurrentStep() == domain.StepAutoTranslate {
					wf.UpdateProgress(map[domain.Step]int{domain.StepAutoTranslate: 100})
				}
				return nil
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Auto translation saved")
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Read the translation from a file")
	return cmd
}

func newTranslateShowCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the source text with its translations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			task, err := loadSession(cmd, c)
			if err != nil {
				return err
			}
			state := c.Workflow.State()
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "Original:\n  %s\n\n", task.OriginalText)
			if state.AutoTranslation != nil {
				_, _ = fmt.Fprintf(w, "Auto translation:\n  %s\n\n", *state.AutoTranslation)
			} else {
				_, _ = fmt.Fprintln(w, "Auto translation: (none)")
				_, _ = fmt.Fprintln(w)
			}
			_, _ = fmt.Fprintln(w, "Base translations:")
			for _, bt := range state.BaseTranslations {
				_, _ = fmt.Fprintf(w, "  [%s] (%s) %s\n", bt.ID, bt.Source, bt.Text)
			}
			return nil
		},
	}
}

// readText returns the text argument, the content of file, or stdin for "-".
func readText(cmd *cobra.Command, args []string, file string) (string, error) {
	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		return strings.TrimRight(string(data), "\n"), nil
	case len(args) == 1 && args[0] == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return strings.TrimRight(string(data), "\n"), nil
	case len(args) == 1:
		return args[0], nil
	default:
		return "", errors.New("text required (argument, --file, or - for stdin)")
	}
}

// newResetCommand creates the reset command.
func newResetCommand(c *app.Container) *cobra.Command {
	var withCatalog bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset the in-progress workflow",
		Long: `Return the workflow to its initial state and forget the current task.

Saved progress snapshots are kept. With --catalog, the cached task catalog
is dropped as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.Workflow.Reset()
			if err := c.Workflow.Err(); err != nil {
				return err
			}
			if withCatalog {
				c.Catalog.Reset()
			} else if err := c.Catalog.SelectTask(""); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Workflow reset")
			return nil
		},
	}
	cmd.Flags().BoolVar(&withCatalog, "catalog", false, "Also drop the cached task catalog")
	return cmd
}
