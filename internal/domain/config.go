package domain

import (
	"bytes"
	_ "embed"
	"path/filepath"
	"text/template"
)

//go:embed config_template.toml
var configTemplateContent string

// Config represents the application configuration.
// Fields are ordered to minimize memory padding.
type Config struct {
	Warnings []string       `toml:"-"`
	Sheets   SheetsConfig   `toml:"sheets"`
	Store    StoreConfig    `toml:"store"`
	Catalog  CatalogConfig  `toml:"catalog"`
	Workflow WorkflowConfig `toml:"workflow"`
	Log      LogConfig      `toml:"log"`
}

// StoreConfig holds settings for progress persistence from [store] section.
type StoreConfig struct {
	Backend string `toml:"backend,omitempty"` // "json" (default) or "sqlite"
}

// Store backends.
const (
	StoreBackendJSON   = "json"
	StoreBackendSQLite = "sqlite"
)

// SheetsConfig holds spreadsheet service settings from [sheets] section.
type SheetsConfig struct {
	Backend         string `toml:"backend,omitempty"`          // "google" (default) or "csv"
	APIKey          string `toml:"api_key,omitempty"`          // Google API key for public sheets
	CredentialsFile string `toml:"credentials_file,omitempty"` // Service account JSON for private sheets
	SheetRange      string `toml:"sheet_range,omitempty"`      // A1 range holding the task table
	DefaultURL      string `toml:"default_url,omitempty"`      // Used by `tasks load` without an argument
}

// Sheets backends.
const (
	SheetsBackendGoogle = "google"
	SheetsBackendCSV    = "csv"
)

// CatalogConfig holds task catalog settings from [catalog] section.
type CatalogConfig struct {
	Locale string `toml:"locale,omitempty"` // BCP 47 tag used for text sorting
}

// WorkflowConfig holds workflow settings from [workflow] section.
type WorkflowConfig struct {
	StorageKey string `toml:"storage_key,omitempty"` // Key of the durable state in the key-value store
}

// LogConfig holds logging settings from [log] section.
type LogConfig struct {
	Level string `toml:"level,omitempty"` // debug, info, warn, error
}

// Default configuration values.
const (
	DefaultLogLevel     = "info"
	DefaultSheetRange   = "Tasks"
	DefaultLocale       = "und"
	DefaultStorageKey   = "workflow-storage"
	CatalogStorageKey   = "task-catalog"
	DefaultStoreBackend = StoreBackendJSON
	DefaultSheetBackend = SheetsBackendGoogle
)

// Directory and file names for promptbench.
const (
	AppDirName     = "promptbench"
	DataDirName    = ".promptbench"
	ConfigFileName = "config.toml"
)

// WorkspaceDataDir returns the data directory for a workspace root.
func WorkspaceDataDir(root string) string {
	return filepath.Join(root, DataDirName)
}

// GlobalAppDir returns the global config directory.
// configHome is typically XDG_CONFIG_HOME or ~/.config (resolved by caller).
func GlobalAppDir(configHome string) string {
	return filepath.Join(configHome, AppDirName)
}

// GlobalConfigPath returns the global config path.
func GlobalConfigPath(configHome string) string {
	return filepath.Join(GlobalAppDir(configHome), ConfigFileName)
}

// NewDefaultConfig returns a Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Store:    StoreConfig{Backend: DefaultStoreBackend},
		Sheets:   SheetsConfig{Backend: DefaultSheetBackend, SheetRange: DefaultSheetRange},
		Catalog:  CatalogConfig{Locale: DefaultLocale},
		Workflow: WorkflowConfig{StorageKey: DefaultStorageKey},
		Log:      LogConfig{Level: DefaultLogLevel},
	}
}

// RenderConfigTemplate renders the commented config template filled with cfg values.
func RenderConfigTemplate(cfg *Config) string {
	tmpl, err := template.New("config").Parse(configTemplateContent)
	if err != nil {
		return configTemplateContent
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, cfg); err != nil {
		return configTemplateContent
	}
	return buf.String()
}
