package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/runoshun/promptbench/internal/app"
	"github.com/runoshun/promptbench/internal/catalog"
	"github.com/runoshun/promptbench/internal/domain"
	"github.com/spf13/cobra"
)

const titleColumnWidth = 40

// newTasksCommand creates the tasks command.
func newTasksCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage the task catalog",
		Long: `Load tasks from a spreadsheet and query them.

The catalog is cached in the workspace, so later commands work offline
until the next load or sync.`,
	}

	cmd.AddCommand(
		newTasksLoadCommand(c),
		newTasksSyncCommand(c),
		newTasksListCommand(c),
		newTasksStatsCommand(c),
		newTasksShowCommand(c),
		newTasksSelectCommand(c),
		newTasksStatusCommand(c),
		newTasksExportCommand(c),
	)
	return cmd
}

func newTasksLoadCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "load [url]",
		Short: "Load tasks from a spreadsheet",
		Long: `Load tasks from a spreadsheet, replacing the cached catalog.

The URL may be a Google Sheets URL or bare spreadsheet ID (sheets backend
"google"), or a CSV file path or URL (sheets backend "csv"). Without an
argument, sheets.default_url from the configuration is used.

Rows without an id, an original text or at least one base translation
are skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := c.AppConfig.Sheets.DefaultURL
			if len(args) > 0 {
				url = args[0]
			}
			if url == "" {
				return errors.New("spreadsheet url required (argument or sheets.default_url)")
			}
			res, err := c.Catalog.LoadFromSpreadsheet(cmd.Context(), url)
			if err != nil {
				return err
			}
			printLoadResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func newTasksSyncCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reload tasks from the last loaded spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := c.Catalog.Sync(cmd.Context())
			if err != nil {
				return err
			}
			printLoadResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func printLoadResult(w io.Writer, res *catalog.LoadResult) {
	title := res.Info.Title
	if title == "" {
		title = res.Info.URL
	}
	_, _ = fmt.Fprintf(w, "Loaded %d tasks from %q", res.Count, title)
	if res.Skipped > 0 {
		_, _ = fmt.Fprintf(w, " (%d rows skipped)", res.Skipped)
	}
	_, _ = fmt.Fprintln(w)
}

// filterFlags binds the catalog filter flags shared by list and export.
func filterFlags(cmd *cobra.Command, f *domain.TaskFilters) {
	cmd.Flags().StringVar((*string)(&f.Status), "status", "", "Filter by status (pending, in_progress, completed, cancelled)")
	cmd.Flags().StringVar((*string)(&f.Difficulty), "difficulty", "", "Filter by difficulty (easy, medium, hard)")
	cmd.Flags().StringVar((*string)(&f.Priority), "priority", "", "Filter by priority (low, normal, high)")
	cmd.Flags().StringVar(&f.Assignee, "assignee", "", "Filter by assignee (substring, case-insensitive)")
	cmd.Flags().StringVarP(&f.Search, "search", "q", "", "Search title, original text, description and tags")
	cmd.Flags().StringArrayVar(&f.Tags, "tag", nil, "Filter by tag (any of, can specify multiple)")
	cmd.Flags().StringVar(&f.SortBy, "sort", "", "Sort by "+strings.Join(catalog.SortFields(), ", "))
	cmd.Flags().StringVar(&f.SortOrder, "order", "asc", "Sort order (asc, desc)")
}

func validateFilters(f domain.TaskFilters) error {
	if f.Status != "" && !f.Status.IsValid() {
		return fmt.Errorf("status %q: %w", f.Status, domain.ErrInvalidStatus)
	}
	if f.SortBy != "" && !slices.Contains(catalog.SortFields(), f.SortBy) {
		return fmt.Errorf("unknown sort field %q (valid: %s)", f.SortBy, strings.Join(catalog.SortFields(), ", "))
	}
	if f.SortOrder != "asc" && f.SortOrder != "desc" {
		return fmt.Errorf("unknown sort order %q (valid: asc, desc)", f.SortOrder)
	}
	return nil
}

func newTasksListCommand(c *app.Container) *cobra.Command {
	var filters domain.TaskFilters

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Long: `Display the cached tasks.

Output format is tab-separated with columns:
  ID, STATUS, PRIORITY, DIFFICULTY, ASSIGNEE, EST, TITLE

The selected task is marked with '*'.

Examples:
  # Pending tasks, highest priority first
  promptbench tasks list --status pending --sort priority --order desc

  # Tasks mentioning "invoice" and tagged legal or finance
  promptbench tasks list -q invoice --tag legal --tag finance`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateFilters(filters); err != nil {
				return err
			}
			tasks := c.Catalog.Filter(filters)
			selected := ""
			if t := c.Catalog.SelectedTask(); t != nil {
				selected = t.ID
			}
			printTaskList(cmd.OutOrStdout(), tasks, selected)
			return nil
		},
	}
	filterFlags(cmd, &filters)
	return cmd
}

// printTaskList prints tasks in TSV format.
func printTaskList(w io.Writer, tasks []domain.Task, selected string) {
	if len(tasks) == 0 {
		_, _ = fmt.Fprintln(w, "No tasks.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	defer func() { _ = tw.Flush() }()

	_, _ = fmt.Fprintln(tw, "ID\tSTATUS\tPRIORITY\tDIFFICULTY\tASSIGNEE\tEST\tTITLE")
	for _, t := range tasks {
		id := t.ID
		if id == selected {
			id = "*" + id
		}
		est := "-"
		if t.EstimatedTime > 0 {
			est = fmt.Sprintf("%dm", t.EstimatedTime)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			id, t.Status, dash(string(t.Priority)), dash(string(t.Difficulty)),
			dash(t.Assignee), est, truncate(t.Title, titleColumnWidth))
	}
}

func newTasksStatsCommand(c *app.Container) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show catalog statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats := c.Catalog.Statistics()
			if format != formatText {
				return writeStructured(cmd.OutOrStdout(), format, stats)
			}
			printStatistics(cmd.OutOrStdout(), stats)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format (text, json, yaml)")
	return cmd
}

func printStatistics(w io.Writer, s domain.TaskStatistics) {
	_, _ = fmt.Fprintf(w, "Total:          %d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Estimated time: %dm (avg %.1fm)\n", s.TotalEstimatedTime, s.AverageEstimatedTime)

	_, _ = fmt.Fprintln(w, "\nBy status:")
	for _, st := range domain.AllStatuses() {
		_, _ = fmt.Fprintf(w, "  %-12s %d\n", st.Display(), s.ByStatus[st])
	}
	_, _ = fmt.Fprintln(w, "\nBy priority:")
	for _, p := range []domain.Priority{domain.PriorityHigh, domain.PriorityNormal, domain.PriorityLow} {
		_, _ = fmt.Fprintf(w, "  %-12s %d\n", p, s.ByPriority[p])
	}
	_, _ = fmt.Fprintln(w, "\nBy difficulty:")
	for _, d := range []domain.Difficulty{domain.DifficultyHard, domain.DifficultyMedium, domain.DifficultyEasy} {
		_, _ = fmt.Fprintf(w, "  %-12s %d\n", d, s.ByDifficulty[d])
	}
}

func newTasksShowCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Format  string
		Refresh bool
	}

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task",
		Long: `Show one task with its base translations.

With --refresh, the row is read again from the spreadsheet instead of the cache.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				task *domain.Task
				err  error
			)
			if opts.Refresh {
				task, err = c.Catalog.TaskData(cmd.Context(), args[0])
			} else {
				task, err = c.Catalog.Task(args[0])
			}
			if err != nil {
				return err
			}
			if opts.Format != formatText {
				return writeStructured(cmd.OutOrStdout(), opts.Format, task)
			}
			printTask(cmd.OutOrStdout(), task)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.Format, "format", "f", formatText, "Output format (text, json, yaml)")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "Read the row from the spreadsheet")
	return cmd
}

func printTask(w io.Writer, t *domain.Task) {
	_, _ = fmt.Fprintf(w, "%s: %s\n", t.ID, t.Title)
	_, _ = fmt.Fprintf(w, "Status:     %s\n", t.Status.Display())
	_, _ = fmt.Fprintf(w, "Priority:   %s\n", dash(string(t.Priority)))
	_, _ = fmt.Fprintf(w, "Difficulty: %s\n", dash(string(t.Difficulty)))
	_, _ = fmt.Fprintf(w, "Assignee:   %s\n", dash(t.Assignee))
	if t.EstimatedTime > 0 {
		_, _ = fmt.Fprintf(w, "Estimate:   %dm\n", t.EstimatedTime)
	}
	if len(t.Tags) > 0 {
		_, _ = fmt.Fprintf(w, "Tags:       %s\n", strings.Join(t.Tags, ", "))
	}
	if t.Description != "" {
		_, _ = fmt.Fprintf(w, "\n%s\n", t.Description)
	}
	_, _ = fmt.Fprintf(w, "\nOriginal:\n  %s\n", t.OriginalText)
	_, _ = fmt.Fprintln(w, "\nBase translations:")
	for _, bt := range t.BaseTranslations {
		_, _ = fmt.Fprintf(w, "  [%s] (%s) %s\n", bt.ID, bt.Source, bt.Text)
	}
}

func newTasksSelectCommand(c *app.Container) *cobra.Command {
	var clearSelection bool

	cmd := &cobra.Command{
		Use:   "select [id]",
		Short: "Select a task in the catalog",
		Long:  `Mark a task as selected. Use --clear to drop the selection.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			switch {
			case clearSelection:
			case len(args) == 1:
				id = args[0]
			default:
				return errors.New("task id required (or --clear)")
			}
			if err := c.Catalog.SelectTask(id); err != nil {
				return err
			}
			if id == "" {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Selection cleared")
			} else {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Selected task %s\n", id)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&clearSelection, "clear", false, "Clear the selection")
	return cmd
}

func newTasksStatusCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Update the status of a task in the spreadsheet",
		Long: `Write a new status into the task's spreadsheet row.

Valid statuses: pending, in_progress, completed, cancelled.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := domain.TaskStatus(args[1])
			if err := c.Catalog.UpdateTaskStatus(cmd.Context(), args[0], status); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Task %s is now %s\n", args[0], status.Display())
			return nil
		},
	}
}

func newTasksExportCommand(c *app.Container) *cobra.Command {
	var (
		filters domain.TaskFilters
		format  string
		output  string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export tasks as YAML or JSON",
		Long: `Export the (optionally filtered) catalog as YAML or JSON.

Writes to stdout unless --output is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateFilters(filters); err != nil {
				return err
			}
			tasks := c.Catalog.Filter(filters)

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create export file: %w", err)
				}
				defer func() { _ = f.Close() }()
				w = f
			}
			if err := writeStructured(w, format, tasks); err != nil {
				return err
			}
			if output != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d tasks to %s\n", len(tasks), output)
			}
			return nil
		},
	}
	filterFlags(cmd, &filters)
	cmd.Flags().StringVarP(&format, "format", "f", formatYAML, "Output format (yaml, json)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file")
	return cmd
}
