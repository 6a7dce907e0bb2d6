package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/runoshun/promptbench/internal/domain"
)

// InitWorkspaceInput contains the input parameters for InitWorkspace.
type InitWorkspaceInput struct {
	DataDir string // Path to the .promptbench directory
	Root    string // Workspace root holding .gitignore
}

// InitWorkspaceOutput contains the output from InitWorkspace.
type InitWorkspaceOutput struct {
	DataDir           string // Path to created data directory
	ConfigPath        string // Path to the workspace config file
	GitignoreNeedsAdd bool   // True if .promptbench/ is not in .gitignore
}

// InitWorkspace initializes a workspace for promptbench.
type InitWorkspace struct {
	configManager domain.ConfigManager
}

// NewInitWorkspace creates a new InitWorkspace use case.
func NewInitWorkspace(configManager domain.ConfigManager) *InitWorkspace {
	return &InitWorkspace{configManager: configManager}
}

// Execute creates the data directory with its logs and progress folders
// and writes the workspace config template.
func (uc *InitWorkspace) Execute(_ context.Context, in InitWorkspaceInput) (*InitWorkspaceOutput, error) {
	if _, err := os.Stat(in.DataDir); err == nil {
		return nil, domain.ErrAlreadyInitialized
	}

	for _, dir := range []string{
		in.DataDir,
		filepath.Join(in.DataDir, "logs"),
		domain.ProgressDir(in.DataDir),
	} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	if err := uc.configManager.InitWorkspaceConfig(nil); err != nil && !errors.Is(err, domain.ErrConfigExists) {
		return nil, fmt.Errorf("create config: %w", err)
	}

	return &InitWorkspaceOutput{
		DataDir:           in.DataDir,
		ConfigPath:        uc.configManager.GetWorkspaceConfigInfo().Path,
		GitignoreNeedsAdd: in.Root != "" && !isDataDirInGitignore(in.Root),
	}, nil
}

// isDataDirInGitignore checks if .promptbench/ is in .gitignore.
func isDataDirInGitignore(root string) bool {
	content, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == domain.DataDirName || line == domain.DataDirName+"/" || line == "/"+domain.DataDirName+"/" {
			return true
		}
	}
	return false
}
