package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/promptbench/internal/domain"
)

// ShowConfigInput contains the input for the ShowConfig use case.
type ShowConfigInput struct{}

// ShowConfigOutput contains the output of the ShowConfig use case.
type ShowConfigOutput struct {
	EffectiveConfig *domain.Config    // Merged configuration in effect
	GlobalConfig    domain.ConfigInfo // Global config file info
	WorkspaceConfig domain.ConfigInfo // Workspace config file info
	StoredKeys      []string          // Keys held in the workspace key-value store
}

// ShowConfig displays configuration file information.
type ShowConfig struct {
	configManager domain.ConfigManager
	configLoader  domain.ConfigLoader
	kv            domain.KeyValueStore
}

// NewShowConfig creates a new ShowConfig use case.
// kv is nil before the workspace is initialized.
func NewShowConfig(configManager domain.ConfigManager, configLoader domain.ConfigLoader, kv domain.KeyValueStore) *ShowConfig {
	return &ShowConfig{
		configManager: configManager,
		configLoader:  configLoader,
		kv:            kv,
	}
}

// Execute retrieves configuration file information.
func (uc *ShowConfig) Execute(_ context.Context, _ ShowConfigInput) (*ShowConfigOutput, error) {
	cfg, err := uc.configLoader.Load()
	if err != nil {
		return nil, err
	}
	out := &ShowConfigOutput{
		EffectiveConfig: cfg,
		GlobalConfig:    uc.configManager.GetGlobalConfigInfo(),
		WorkspaceConfig: uc.configManager.GetWorkspaceConfigInfo(),
	}
	if uc.kv != nil {
		if out.StoredKeys, err = uc.kv.Keys(); err != nil {
			return nil, fmt.Errorf("list stored keys: %w", err)
		}
	}
	return out, nil
}
