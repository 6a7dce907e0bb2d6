// Package cli provides the command-line interface for promptbench.
package cli

import (
	"fmt"

	"github.com/runoshun/promptbench/internal/app"
	"github.com/runoshun/promptbench/internal/domain"
	"github.com/spf13/cobra"
)

// Command group IDs.
const (
	groupSetup    = "setup"
	groupTask     = "task"
	groupWorkflow = "workflow"
)

// launchTUIFunc is a function variable for launching the TUI, allowing it to be mocked in tests.
var launchTUIFunc = launchTUI

// SetLaunchTUIFunc overrides the TUI launcher and returns a restore function.
func SetLaunchTUIFunc(fn func(*app.Container) error) func() {
	prev := launchTUIFunc
	launchTUIFunc = fn
	return func() { launchTUIFunc = prev }
}

// NewRootCommand creates the root command for promptbench.
// It receives the container for dependency injection and version for display.
func NewRootCommand(c *app.Container, version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "promptbench",
		Short: "Translation prompt workbench",
		Long: `promptbench walks a translator through a five-step pipeline per task:
auto translation, prompt authoring, prompt evaluation, final selection and
report. Tasks are loaded from a spreadsheet; progress is saved per task and
can be resumed at any time.

Run without arguments to open the step navigator.`,
		Version: version,
		// SilenceUsage prevents usage from being printed on errors
		SilenceUsage: true,
		// SilenceErrors prevents Cobra from printing errors (we handle it in main)
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip if container is nil (e.g. in tests)
			if c == nil {
				return nil
			}
			for _, w := range c.AppConfig.Warnings {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", w)
			}
			if needsWorkspace(cmd) && !c.Initialized {
				return domain.ErrNotInitialized
			}
			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return launchTUIFunc(c)
		},
	}

	root.AddGroup(
		&cobra.Group{ID: groupSetup, Title: "Setup Commands:"},
		&cobra.Group{ID: groupTask, Title: "Task Catalog:"},
		&cobra.Group{ID: groupWorkflow, Title: "Workflow:"},
	)

	// Setup commands
	initCmd := newInitCommand(c)
	initCmd.GroupID = groupSetup

	configCmd := newConfigCommand(c)
	configCmd.GroupID = groupSetup

	logsCmd := newLogsCommand(c)
	logsCmd.GroupID = groupSetup

	// Task catalog commands
	tasksCmd := newTasksCommand(c)
	tasksCmd.GroupID = groupTask

	// Workflow commands
	startCmd := newStartCommand(c)
	startCmd.GroupID = groupWorkflow

	statusCmd := newStatusCommand(c)
	statusCmd.GroupID = groupWorkflow

	stepCmd := newStepCommand(c)
	stepCmd.GroupID = groupWorkflow

	progressCmd := newProgressCommand(c)
	progressCmd.GroupID = groupWorkflow

	translateCmd := newTranslateCommand(c)
	translateCmd.GroupID = groupWorkflow

	promptCmd := newPromptCommand(c)
	promptCmd.GroupID = groupWorkflow

	reportCmd := newReportCommand(c)
	reportCmd.GroupID = groupWorkflow

	completeCmd := newCompleteCommand(c)
	completeCmd.GroupID = groupWorkflow

	resetCmd := newResetCommand(c)
	resetCmd.GroupID = groupWorkflow

	tuiCmd := newTUICommand(c)
	tuiCmd.GroupID = groupWorkflow

	root.AddCommand(
		initCmd,
		configCmd,
		logsCmd,
		tasksCmd,
		startCmd,
		statusCmd,
		stepCmd,
		progressCmd,
		translateCmd,
		promptCmd,
		reportCmd,
		completeCmd,
		resetCmd,
		tuiCmd,
	)

	return root
}

// needsWorkspace reports whether cmd only works inside an initialized workspace.
func needsWorkspace(cmd *cobra.Command) bool {
	for p := cmd; p != nil; p = p.Parent() {
		switch p.Name() {
		case "init", "config", "help", "completion":
			return false
		}
	}
	return true
}
