// Package usecase contains the application use cases.
package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/promptbench/internal/domain"
)

// InitConfigInput contains the input for the InitConfig use case.
type InitConfigInput struct {
	Config *domain.Config // Values rendered into the template; nil means defaults
	Global bool           // Write the global config instead of the workspace one
}

// InitConfigOutput contains the output of the InitConfig use case.
type InitConfigOutput struct {
	Path    string // Created config file
	DataDir string // Workspace data directory the config applies to; empty for global
	Backend string // Progress store backend written into the template
}

// InitConfig writes a commented config file for the workspace or user.
type InitConfig struct {
	configManager domain.ConfigManager
	dataDir       string
}

// NewInitConfig creates a new InitConfig use case for the workspace at dataDir.
func NewInitConfig(configManager domain.ConfigManager, dataDir string) *InitConfig {
	return &InitConfig{
		configManager: configManager,
		dataDir:       dataDir,
	}
}

// Execute renders in.Config into the template and writes it.
func (uc *InitConfig) Execute(_ context.Context, in InitConfigInput) (*InitConfigOutput, error) {
	cfg := in.Config
	if cfg == nil {
		cfg = domain.NewDefaultConfig()
	}

	if in.Global {
		path := uc.configManager.GetGlobalConfigInfo().Path
		if err := uc.configManager.InitGlobalConfig(cfg); err != nil {
			return nil, fmt.Errorf("init global config: %w", err)
		}
		return &InitConfigOutput{Path: path, Backend: cfg.Store.Backend}, nil
	}

	if uc.dataDir == "" {
		return nil, domain.ErrNotInitialized
	}
	path := uc.configManager.GetWorkspaceConfigInfo().Path
	if err := uc.configManager.InitWorkspaceConfig(cfg); err != nil {
		return nil, fmt.Errorf("init workspace config: %w", err)
	}
	return &InitConfigOutput{Path: path, DataDir: uc.dataDir, Backend: cfg.Store.Backend}, nil
}
