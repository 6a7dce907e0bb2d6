package cli

import (
	"github.com/spf13/cobra"

	"github.com/runoshun/promptbench/internal/app"
	"github.com/runoshun/promptbench/internal/tui"
)

// launchTUI starts the step navigator.
func launchTUI(c *app.Container) error {
	return tui.Run(c)
}

// newTUICommand creates the tui command for launching the interactive TUI.
// It behaves the same as running promptbench without arguments.
func newTUICommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Launch interactive step navigator",
		Long: `Launch the interactive terminal user interface.

The navigator lists cached tasks, shows the five-step progress of the
current task and lets you rate and select prompts. Changes are saved
to the progress store as you make them.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return launchTUIFunc(c)
		},
	}
}
