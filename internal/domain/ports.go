package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProgressStore persists workflow snapshots keyed by task ID.
type ProgressStore interface {
	// SaveProgress creates or replaces the snapshot for a task.
	SaveProgress(ctx context.Context, taskID string, snap *Snapshot) error

	// GetProgress retrieves the snapshot for a task.
	// Returns ErrProgressNotFound if none is stored.
	GetProgress(ctx context.Context, taskID string) (*Snapshot, error)

	// ClearProgress removes the snapshot for a task. Missing snapshots are not an error.
	ClearProgress(ctx context.Context, taskID string) error

	// List returns summaries of all stored snapshots ordered by task ID.
	List(ctx context.Context) ([]ProgressInfo, error)
}

// SpreadsheetInfo describes a validated spreadsheet.
type SpreadsheetInfo struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	URL    string   `json:"url"`
	Sheets []string `json:"sheets,omitempty"`
}

// RawRow is one spreadsheet row keyed by its header cell.
type RawRow map[string]string

// SpreadsheetService reads and updates the task spreadsheet.
type SpreadsheetService interface {
	// Validate checks that url points at a readable spreadsheet.
	Validate(ctx context.Context, url string) (*SpreadsheetInfo, error)

	// LoadRows returns every data row of the task sheet.
	LoadRows(ctx context.Context, url string) ([]RawRow, error)

	// GetTaskData returns the row whose id column equals taskID.
	// Returns ErrTaskNotFound if no row matches.
	GetTaskData(ctx context.Context, taskID, url string) (RawRow, error)

	// UpdateTaskStatus writes status into the row whose id column equals taskID.
	UpdateTaskStatus(ctx context.Context, taskID string, status TaskStatus, url string) error
}

// KeyValueStore is a string-keyed durable store.
type KeyValueStore interface {
	// Get returns the value for key and whether it exists.
	Get(key string) (string, bool, error)

	// Set stores value under key.
	Set(key, value string) error

	// Remove deletes key. Missing keys are not an error.
	Remove(key string) error

	// Keys returns the stored keys in sorted order.
	Keys() ([]string, error)
}

// Logger writes categorised log entries, optionally scoped to a task.
// An empty taskID logs to the global log only.
type Logger interface {
	Info(taskID, category, msg string)
	Debug(taskID, category, msg string)
	Warn(taskID, category, msg string)
	Error(taskID, category, msg string)
}

// NopLogger discards all log entries.
type NopLogger struct{}

func (NopLogger) Info(_, _, _ string)  {}
func (NopLogger) Debug(_, _, _ string) {}
func (NopLogger) Warn(_, _, _ string)  {}
func (NopLogger) Error(_, _, _ string) {}

// ConfigLoader loads configuration from files.
type ConfigLoader interface {
	// Load returns the merged configuration (workspace + global).
	Load() (*Config, error)

	// LoadGlobal returns only the global configuration.
	LoadGlobal() (*Config, error)
}

// ConfigInfo describes a configuration file on disk.
type ConfigInfo struct {
	Path    string
	Content string
	Exists  bool
}

// ConfigManager manages configuration files.
type ConfigManager interface {
	GetWorkspaceConfigInfo() ConfigInfo
	GetGlobalConfigInfo() ConfigInfo
	// InitWorkspaceConfig and InitGlobalConfig write the template filled with
	// cfg, or with the defaults when cfg is nil.
	InitWorkspaceConfig(cfg *Config) error
	InitGlobalConfig(cfg *Config) error
}

// Clock provides time operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// IDGenerator produces prompt IDs.
type IDGenerator interface {
	// NewID returns an ID distinct from every ID it returned before.
	NewID() string
}

// UUIDGenerator issues time-ordered UUIDv7 IDs.
type UUIDGenerator struct{}

// NewID returns a new UUIDv7 string, falling back to a random UUID if the clock read fails.
func (UUIDGenerator) NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
