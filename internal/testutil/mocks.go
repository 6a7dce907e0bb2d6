// Package testutil provides shared test utilities and mock implementations.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/runoshun/promptbench/internal/domain"
)

// MockClock is a test double for domain.Clock.
type MockClock struct {
	NowTime time.Time
}

// Now returns the configured time.
func (m *MockClock) Now() time.Time {
	return m.NowTime
}

// SequenceIDs is a test double for domain.IDGenerator issuing p-1, p-2, ...
// Set Fixed to return the same ID every time.
type SequenceIDs struct {
	Fixed string
	n     int
	mu    sync.Mutex
}

// Ensure SequenceIDs implements domain.IDGenerator interface.
var _ domain.IDGenerator = (*SequenceIDs)(nil)

// NewID returns the next ID.
func (g *SequenceIDs) NewID() string {
	if g.Fixed != "" {
		return g.Fixed
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("p-%d", g.n)
}

// MockProgressStore is an in-memory test double for domain.ProgressStore.
// Snapshots are stored as JSON so callers cannot alias stored state.
// Fields are ordered to minimize memory padding.
type MockProgressStore struct {
	Snapshots  map[string][]byte
	SaveErr    error
	GetErr     error
	ClearErr   error
	ListErr    error
	SaveGate   chan struct{} // When set, SaveProgress blocks until it can receive
	SaveOrder  []string      // Task IDs in the order saves completed
	SaveCalls  int
	ClearCalls int
	mu         sync.Mutex
}

// NewMockProgressStore creates a new MockProgressStore with initialized maps.
func NewMockProgressStore() *MockProgressStore {
	return &MockProgressStore{Snapshots: make(map[string][]byte)}
}

// Ensure MockProgressStore implements domain.ProgressStore interface.
var _ domain.ProgressStore = (*MockProgressStore)(nil)

// SaveProgress stores a copy of snap.
func (m *MockProgressStore) SaveProgress(ctx context.Context, taskID string, snap *domain.Snapshot) error {
	if m.SaveGate != nil {
		select {
		case <-m.SaveGate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	m.Snapshots[taskID] = data
	m.SaveOrder = append(m.SaveOrder, taskID)
	return nil
}

// GetProgress returns a copy of the stored snapshot.
func (m *MockProgressStore) GetProgress(_ context.Context, taskID string) (*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	data, ok := m.Snapshots[taskID]
	if !ok {
		return nil, domain.ErrProgressNotFound
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// ClearProgress removes the stored snapshot.
func (m *MockProgressStore) ClearProgress(_ context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClearCalls++
	if m.ClearErr != nil {
		return m.ClearErr
	}
	delete(m.Snapshots, taskID)
	return nil
}

// List returns summaries ordered by task ID.
func (m *MockProgressStore) List(ctx context.Context) ([]domain.ProgressInfo, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.Lock()
	ids := make([]string, 0, len(m.Snapshots))
	for id := range m.Snapshots {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	slices.Sort(ids)

	infos := make([]domain.ProgressInfo, 0, len(ids))
	for _, id := range ids {
		snap, err := m.GetProgress(ctx, id)
		if err != nil {
			return nil, err
		}
		infos = append(infos, snap.Info(id))
	}
	return infos, nil
}

// Has reports whether a snapshot is stored for taskID.
func (m *MockProgressStore) Has(taskID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Snapshots[taskID]
	return ok
}

// MockKVStore is an in-memory test double for domain.KeyValueStore.
// SetFailures makes the next N Set calls fail with SetErr.
// Fields are ordered to minimize memory padding.
type MockKVStore struct {
	Data        map[string]string
	GetErr      error
	SetErr      error
	SetFailures int
	SetCalls    int
	mu          sync.Mutex
}

// NewMockKVStore creates a new MockKVStore with initialized maps.
func NewMockKVStore() *MockKVStore {
	return &MockKVStore{Data: make(map[string]string)}
}

// Ensure MockKVStore implements domain.KeyValueStore interface.
var _ domain.KeyValueStore = (*MockKVStore)(nil)

// Get returns the stored value.
func (m *MockKVStore) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return "", false, m.GetErr
	}
	v, ok := m.Data[key]
	return v, ok, nil
}

// Set stores value, failing while SetFailures is positive.
func (m *MockKVStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetCalls++
	if m.SetFailures > 0 {
		m.SetFailures--
		return m.SetErr
	}
	m.Data[key] = value
	return nil
}

// Remove deletes key.
func (m *MockKVStore) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Data, key)
	return nil
}

// Keys returns the stored keys in sorted order.
func (m *MockKVStore) Keys() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return slices.Sorted(maps.Keys(m.Data)), nil
}

// MockSpreadsheetService is a test double for domain.SpreadsheetService.
// Rows are keyed by spreadsheet URL.
// Fields are ordered to minimize memory padding.
type MockSpreadsheetService struct {
	Rows          map[string][]domain.RawRow
	ValidateErr   error
	LoadErr       error
	UpdateErr     error
	StatusUpdates map[string]domain.TaskStatus
	LoadCalls     int
}

// NewMockSpreadsheetService creates a new MockSpreadsheetService with initialized maps.
func NewMockSpreadsheetService() *MockSpreadsheetService {
	return &MockSpreadsheetService{
		Rows:          make(map[string][]domain.RawRow),
		StatusUpdates: make(map[string]domain.TaskStatus),
	}
}

// Ensure MockSpreadsheetService implements domain.SpreadsheetService interface.
var _ domain.SpreadsheetService = (*MockSpreadsheetService)(nil)

// Validate returns a synthetic info for known URLs.
func (m *MockSpreadsheetService) Validate(_ context.Context, url string) (*domain.SpreadsheetInfo, error) {
	if m.ValidateErr != nil {
		return nil, m.ValidateErr
	}
	if _, ok := m.Rows[url]; !ok {
		return nil, domain.ErrInvalidSpreadsheetURL
	}
	return &domain.SpreadsheetInfo{ID: url, Title: "Mock", URL: url, Sheets: []string{"Tasks"}}, nil
}

// LoadRows returns the configured rows.
func (m *MockSpreadsheetService) LoadRows(_ context.Context, url string) ([]domain.RawRow, error) {
	m.LoadCalls++
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	rows, ok := m.Rows[url]
	if !ok {
		return nil, domain.ErrInvalidSpreadsheetURL
	}
	return rows, nil
}

// GetTaskData returns the row whose id matches.
func (m *MockSpreadsheetService) GetTaskData(ctx context.Context, taskID, url string) (domain.RawRow, error) {
	rows, err := m.LoadRows(ctx, url)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if strings.TrimSpace(r["id"]) == taskID {
			return r, nil
		}
	}
	return nil, domain.ErrTaskNotFound
}

// UpdateTaskStatus records the update.
func (m *MockSpreadsheetService) UpdateTaskStatus(_ context.Context, taskID string, status domain.TaskStatus, _ string) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.StatusUpdates[taskID] = status
	return nil
}

// LogEntry is one call recorded by RecordingLogger.
type LogEntry struct {
	Level    string
	TaskID   string
	Category string
	Msg      string
}

// RecordingLogger is a domain.Logger that keeps every entry in memory.
type RecordingLogger struct {
	Entries []LogEntry
	mu      sync.Mutex
}

// Ensure RecordingLogger implements domain.Logger interface.
var _ domain.Logger = (*RecordingLogger)(nil)

func (l *RecordingLogger) record(level, taskID, category, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, LogEntry{Level: level, TaskID: taskID, Category: category, Msg: msg})
}

func (l *RecordingLogger) Info(taskID, category, msg string)  { l.record("INFO", taskID, category, msg) }
func (l *RecordingLogger) Debug(taskID, category, msg string) { l.record("DEBUG", taskID, category, msg) }
func (l *RecordingLogger) Warn(taskID, category, msg string)  { l.record("WARN", taskID, category, msg) }
func (l *RecordingLogger) Error(taskID, category, msg string) { l.record("ERROR", taskID, category, msg) }

// Count returns how many entries were logged at level.
func (l *RecordingLogger) Count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.Entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

// MockConfigLoader is a test double for domain.ConfigLoader.
type MockConfigLoader struct {
	Config       *domain.Config
	GlobalConfig *domain.Config
	LoadErr      error
	GlobalErr    error
}

// NewMockConfigLoader creates a new MockConfigLoader with default config.
func NewMockConfigLoader() *MockConfigLoader {
	return &MockConfigLoader{
		Config: domain.NewDefaultConfig(),
	}
}

// Ensure MockConfigLoader implements domain.ConfigLoader interface.
var _ domain.ConfigLoader = (*MockConfigLoader)(nil)

// Load returns the configured config or error.
func (m *MockConfigLoader) Load() (*domain.Config, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return m.Config, nil
}

// LoadGlobal returns the configured config or error.
func (m *MockConfigLoader) LoadGlobal() (*domain.Config, error) {
	if m.GlobalErr != nil {
		return nil, m.GlobalErr
	}
	if m.GlobalConfig != nil {
		return m.GlobalConfig, nil
	}
	return m.Config, nil
}

// MockConfigManager is a test double for domain.ConfigManager.
// Fields are ordered to minimize memory padding.
type MockConfigManager struct {
	InitWorkspaceErr    error
	InitConfig          *domain.Config
	InitGlobalErr       error
	WorkspaceConfigInfo domain.ConfigInfo
	GlobalConfigInfo    domain.ConfigInfo
	InitWorkspaceCalled bool
	InitGlobalCalled    bool
}

// NewMockConfigManager creates a new MockConfigManager.
func NewMockConfigManager() *MockConfigManager {
	return &MockConfigManager{
		WorkspaceConfigInfo: domain.ConfigInfo{
			Path:   "/test/.promptbench/config.toml",
			Exists: false,
		},
		GlobalConfigInfo: domain.ConfigInfo{
			Path:   "/home/test/.config/promptbench/config.toml",
			Exists: false,
		},
	}
}

// Ensure MockConfigManager implements domain.ConfigManager interface.
var _ domain.ConfigManager = (*MockConfigManager)(nil)

// GetWorkspaceConfigInfo returns the configured workspace config info.
func (m *MockConfigManager) GetWorkspaceConfigInfo() domain.ConfigInfo {
	return m.WorkspaceConfigInfo
}

// GetGlobalConfigInfo returns the configured global config info.
func (m *MockConfigManager) GetGlobalConfigInfo() domain.ConfigInfo {
	return m.GlobalConfigInfo
}

// InitWorkspaceConfig records the call and returns configured error.
func (m *MockConfigManager) InitWorkspaceConfig(cfg *domain.Config) error {
	m.InitWorkspaceCalled = true
	m.InitConfig = cfg
	return m.InitWorkspaceErr
}

// InitGlobalConfig records the call and returns configured error.
func (m *MockConfigManager) InitGlobalConfig(cfg *domain.Config) error {
	m.InitGlobalCalled = true
	m.InitConfig = cfg
	return m.InitGlobalErr
}
