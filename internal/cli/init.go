package cli

import (
	"fmt"

	"github.com/runoshun/promptbench/internal/app"
	"github.com/runoshun/promptbench/internal/usecase"
	"github.com/spf13/cobra"
)

// newInitCommand creates the init command.
func newInitCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a promptbench workspace",
		Long: `Initialize the current directory as a promptbench workspace.

This command creates the .promptbench/ directory with:
- config.toml: workspace configuration
- progress/: saved task progress (json store backend)
- logs/: directory for log files

Error conditions:
- Already initialized: "promptbench already initialized"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uc := c.InitWorkspaceUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.InitWorkspaceInput{
				DataDir: c.Config.DataDir,
				Root:    c.Config.Root,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "Initialized promptbench in %s\n", out.DataDir)
			_, _ = fmt.Fprintf(w, "Config: %s\n", out.ConfigPath)
			if out.GitignoreNeedsAdd {
				_, _ = fmt.Fprintln(w, "Hint: add .promptbench/ to your .gitignore")
			}
			return nil
		},
	}
}
