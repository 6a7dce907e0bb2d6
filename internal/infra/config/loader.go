// Package config provides configuration loading functionality.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/runoshun/promptbench/internal/domain"
)

// Ensure Loader implements domain.ConfigLoader.
var _ domain.ConfigLoader = (*Loader)(nil)

// Loader loads configuration from TOML files.
type Loader struct {
	dataDir       string // Path to the workspace .promptbench directory
	globalConfDir string // Path to global config directory (e.g., ~/.config/promptbench)
}

// NewLoader creates a new Loader.
func NewLoader(dataDir string) *Loader {
	return &Loader{
		dataDir:       dataDir,
		globalConfDir: defaultGlobalConfigDir(),
	}
}

// NewLoaderWithGlobalDir creates a new Loader with a custom global config directory.
// This is useful for testing.
func NewLoaderWithGlobalDir(dataDir, globalConfDir string) *Loader {
	return &Loader{
		dataDir:       dataDir,
		globalConfDir: globalConfDir,
	}
}

// defaultGlobalConfigDir returns the default global config directory.
func defaultGlobalConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return domain.GlobalAppDir(configHome)
}

// Load returns the merged configuration (workspace + global).
// Workspace config takes precedence over global config.
func (l *Loader) Load() (*domain.Config, error) {
	global, err := l.LoadGlobal()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	workspace, err := l.LoadWorkspace()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	// Merge: default <- global <- workspace (later takes precedence)
	base := domain.NewDefaultConfig()
	if global != nil {
		base = mergeConfigs(base, global)
	}
	if workspace != nil {
		base = mergeConfigs(base, workspace)
	}
	return base, nil
}

// LoadGlobal returns only the global configuration.
func (l *Loader) LoadGlobal() (*domain.Config, error) {
	if l.globalConfDir == "" {
		return nil, os.ErrNotExist
	}
	return l.loadFile(filepath.Join(l.globalConfDir, domain.ConfigFileName))
}

// LoadWorkspace returns only the workspace configuration.
func (l *Loader) LoadWorkspace() (*domain.Config, error) {
	return l.loadFile(filepath.Join(l.dataDir, domain.ConfigFileName))
}

// loadFile decodes one TOML file. Unknown sections and keys become warnings.
func (l *Loader) loadFile(path string) (*domain.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &domain.Config{}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var missing *toml.StrictMissingError
		if !errors.As(err, &missing) {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		cfg.Warnings = unknownKeyWarnings(missing)
	}

	if b := cfg.Store.Backend; b != "" && b != domain.StoreBackendJSON && b != domain.StoreBackendSQLite {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("unknown store backend %q, using %q", b, domain.DefaultStoreBackend))
		cfg.Store.Backend = ""
	}
	if b := cfg.Sheets.Backend; b != "" && b != domain.SheetsBackendGoogle && b != domain.SheetsBackendCSV {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("unknown sheets backend %q, using %q", b, domain.DefaultSheetBackend))
		cfg.Sheets.Backend = ""
	}
	slices.Sort(cfg.Warnings)
	return cfg, nil
}

// sections lists the top-level tables of the config file.
var sections = map[string]bool{"store": true, "sheets": true, "catalog": true, "workflow": true, "log": true}

func unknownKeyWarnings(missing *toml.StrictMissingError) []string {
	var warnings []string
	for _, e := range missing.Errors {
		key := e.Key()
		if len(key) == 0 {
			continue
		}
		if len(key) == 1 || !sections[key[0]] {
			warnings = append(warnings, "unknown section: "+key[0])
			continue
		}
		warnings = append(warnings, fmt.Sprintf("unknown key in [%s]: %s", key[0], strings.Join(key[1:], ".")))
	}
	slices.Sort(warnings)
	return slices.Compact(warnings)
}

// mergeConfigs overlays the non-empty values of override on base.
func mergeConfigs(base, override *domain.Config) *domain.Config {
	result := *base
	result.Warnings = append(slices.Clone(base.Warnings), override.Warnings...)

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&result.Store.Backend, override.Store.Backend)
	set(&result.Sheets.Backend, override.Sheets.Backend)
	set(&result.Sheets.APIKey, override.Sheets.APIKey)
	set(&result.Sheets.CredentialsFile, override.Sheets.CredentialsFile)
	set(&result.Sheets.SheetRange, override.Sheets.SheetRange)
	set(&result.Sheets.DefaultURL, override.Sheets.DefaultURL)
	set(&result.Catalog.Locale, override.Catalog.Locale)
	set(&result.Workflow.StorageKey, override.Workflow.StorageKey)
	set(&result.Log.Level, override.Log.Level)
	return &result
}
