// Package catalog loads the task list from a spreadsheet and answers
// filter, sort and statistics queries over it.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/runoshun/promptbench/internal/domain"
)

const logCategory = "catalog"

// LoadResult reports the outcome of a spreadsheet load.
// Fields are ordered to minimize memory padding.
type LoadResult struct {
	Info    *domain.SpreadsheetInfo
	Tasks   []domain.Task
	Count   int
	Skipped int
}

// cached is the catalog as stored in the key-value store.
type cached struct {
	LoadedAt   time.Time     `json:"loadedAt"`
	URL        string        `json:"url"`
	SelectedID string        `json:"selectedId,omitempty"`
	Tasks      []domain.Task `json:"tasks"`
}

// Catalog holds the tasks of the current spreadsheet.
// It is safe for concurrent use.
type Catalog struct {
	sheets     domain.SpreadsheetService
	kv         domain.KeyValueStore // nil = not cached
	logger     domain.Logger
	clock      domain.Clock
	err        error
	loadedAt   time.Time
	url        string
	selectedID string
	locale     string
	tasks      []domain.Task
	mu         sync.RWMutex
}

// New creates an empty Catalog.
func New(sheets domain.SpreadsheetService, kv domain.KeyValueStore, logger domain.Logger, clock domain.Clock) *Catalog {
	if logger == nil {
		logger = domain.NopLogger{}
	}
	if clock == nil {
		clock = domain.RealClock{}
	}
	return &Catalog{
		sheets: sheets,
		kv:     kv,
		logger: logger,
		clock:  clock,
		locale: domain.DefaultLocale,
		tasks:  []domain.Task{},
	}
}

// SetLocale sets the BCP 47 tag used to compare text columns.
func (c *Catalog) SetLocale(locale string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if locale == "" {
		locale = domain.DefaultLocale
	}
	c.locale = locale
}

// LoadFromSpreadsheet validates url, fetches its rows and replaces the task list
// with the accepted rows. On failure the previous tasks are kept.
func (c *Catalog) LoadFromSpreadsheet(ctx context.Context, url string) (*LoadResult, error) {
	if c.sheets == nil {
		return nil, c.fail("load tasks", domain.ErrBridgeUnavailable)
	}

	info, err := c.sheets.Validate(ctx, url)
	if err != nil {
		return nil, c.fail("validate spreadsheet", err)
	}
	rows, err := c.sheets.LoadRows(ctx, url)
	if err != nil {
		return nil, c.fail("load rows", err)
	}

	tasks := make([]domain.Task, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	skipped := 0
	for i, raw := range rows {
		task, reason := parseTask(raw)
		if reason == "" && seen[task.ID] {
			reason = "duplicate id"
		}
		if reason != "" {
			skipped++
			c.logger.Debug("", logCategory, fmt.Sprintf("skip row %d: %s", i+1, reason))
			continue
		}
		seen[task.ID] = true
		tasks = append(tasks, task)
	}

	c.mu.Lock()
	c.tasks = tasks
	c.url = url
	c.loadedAt = c.clock.Now()
	if c.selectedID != "" && !slices.ContainsFunc(tasks, func(t domain.Task) bool { return t.ID == c.selectedID }) {
		c.selectedID = ""
	}
	c.err = nil
	c.mu.Unlock()

	c.persist()
	c.logger.Info("", logCategory, fmt.Sprintf("loaded %d tasks (%d skipped) from %s", len(tasks), skipped, url))

	return &LoadResult{
		Tasks:   cloneTasks(tasks),
		Count:   len(tasks),
		Skipped: skipped,
		Info:    info,
	}, nil
}

// Sync reloads the tasks from the spreadsheet of the last successful load.
func (c *Catalog) Sync(ctx context.Context) (*LoadResult, error) {
	url := c.URL()
	if url == "" {
		return nil, c.fail("sync", domain.ErrNoSpreadsheet)
	}
	return c.LoadFromSpreadsheet(ctx, url)
}

// Tasks returns copies of all tasks in spreadsheet order.
func (c *Catalog) Tasks() []domain.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneTasks(c.tasks)
}

// Task returns the task with the given ID.
func (c *Catalog) Task(id string) (*domain.Task, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t := c.find(id)
	if t == nil {
		return nil, fmt.Errorf("task %s: %w", id, domain.ErrTaskNotFound)
	}
	return cloneTask(t), nil
}

// URL returns the spreadsheet of the last successful load, or "".
func (c *Catalog) URL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.url
}

// LoadedAt returns when the tasks were last loaded.
func (c *Catalog) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

// Err returns the error of the last failed operation, or nil.
func (c *Catalog) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// SelectTask marks the task the user is working on. An empty ID clears it.
func (c *Catalog) SelectTask(id string) error {
	c.mu.Lock()
	if id != "" && c.find(id) == nil {
		c.mu.Unlock()
		return fmt.Errorf("select task %s: %w", id, domain.ErrTaskNotFound)
	}
	c.selectedID = id
	c.mu.Unlock()

	c.persist()
	return nil
}

// SelectedTask returns the selected task, or nil.
func (c *Catalog) SelectedTask() *domain.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.selectedID == "" {
		return nil
	}
	if t := c.find(c.selectedID); t != nil {
		return cloneTask(t)
	}
	return nil
}

// TaskData fetches the current spreadsheet row of a task and parses it.
func (c *Catalog) TaskData(ctx context.Context, id string) (*domain.Task, error) {
	url := c.URL()
	if url == "" {
		return nil, c.fail("get task data", domain.ErrNoSpreadsheet)
	}
	if c.sheets == nil {
		return nil, c.fail("get task data", domain.ErrBridgeUnavailable)
	}

	raw, err := c.sheets.GetTaskData(ctx, id, url)
	if err != nil {
		return nil, c.fail("get task data", err)
	}
	task, reason := parseTask(raw)
	if reason != "" {
		return nil, c.fail("get task data", fmt.Errorf("task %s: %s", id, reason))
	}
	return &task, nil
}

// UpdateTaskStatus writes status to the spreadsheet, then to the local copy.
func (c *Catalog) UpdateTaskStatus(ctx context.Context, id string, status domain.TaskStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("status %q: %w", status, domain.ErrInvalidStatus)
	}
	url := c.URL()
	if url == "" {
		return c.fail("update status", domain.ErrNoSpreadsheet)
	}
	if _, err := c.Task(id); err != nil {
		return err
	}
	if c.sheets == nil {
		return c.fail("update status", domain.ErrBridgeUnavailable)
	}

	if err := c.sheets.UpdateTaskStatus(ctx, id, status, url); err != nil {
		return c.fail("update status", err)
	}

	c.mu.Lock()
	if t := c.find(id); t != nil {
		t.Status = status
		t.UpdatedAt = c.clock.Now()
	}
	c.err = nil
	c.mu.Unlock()

	c.persist()
	c.logger.Info(id, logCategory, fmt.Sprintf("status set to %s", status))
	return nil
}

// Reset drops all tasks, the source and the selection.
func (c *Catalog) Reset() {
	c.mu.Lock()
	c.tasks = []domain.Task{}
	c.url = ""
	c.selectedID = ""
	c.loadedAt = time.Time{}
	c.err = nil
	c.mu.Unlock()

	if c.kv != nil {
		if err := c.kv.Remove(domain.CatalogStorageKey); err != nil {
			c.logger.Warn("", logCategory, fmt.Sprintf("remove cached catalog: %v", err))
		}
	}
}

// Restore loads the catalog cached by a previous process.
// A missing entry leaves the catalog empty.
func (c *Catalog) Restore() error {
	if c.kv == nil {
		return nil
	}
	raw, found, err := c.kv.Get(domain.CatalogStorageKey)
	if err != nil {
		return c.fail("read cached catalog", err)
	}
	if !found {
		return nil
	}

	var data cached
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return c.fail("parse cached catalog", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = data.Tasks
	if c.tasks == nil {
		c.tasks = []domain.Task{}
	}
	c.url = data.URL
	c.selectedID = data.SelectedID
	c.loadedAt = data.LoadedAt
	return nil
}

// persist writes the catalog to the key-value store. Failures are logged only.
func (c *Catalog) persist() {
	if c.kv == nil {
		return
	}

	c.mu.RLock()
	data, err := json.Marshal(cached{
		LoadedAt:   c.loadedAt,
		URL:        c.url,
		SelectedID: c.selectedID,
		Tasks:      c.tasks,
	})
	c.mu.RUnlock()
	if err != nil {
		c.logger.Warn("", logCategory, fmt.Sprintf("marshal catalog: %v", err))
		return
	}
	if err := c.kv.Set(domain.CatalogStorageKey, string(data)); err != nil {
		c.logger.Warn("", logCategory, fmt.Sprintf("cache catalog: %v", err))
	}
}

// fail wraps err, stores it as the last error and logs it.
func (c *Catalog) fail(op string, err error) error {
	wrapped := fmt.Errorf("%s: %w", op, err)
	c.mu.Lock()
	c.err = wrapped
	c.mu.Unlock()
	c.logger.Error("", logCategory, wrapped.Error())
	return wrapped
}

// find returns a pointer into c.tasks. Caller holds mu.
func (c *Catalog) find(id string) *domain.Task {
	for i := range c.tasks {
		if c.tasks[i].ID == id {
			return &c.tasks[i]
		}
	}
	return nil
}

func cloneTask(t *domain.Task) *domain.Task {
	cp := *t
	cp.BaseTranslations = slices.Clone(t.BaseTranslations)
	cp.Tags = slices.Clone(t.Tags)
	return &cp
}

func cloneTasks(tasks []domain.Task) []domain.Task {
	out := make([]domain.Task, len(tasks))
	for i := range tasks {
		out[i] = *cloneTask(&tasks[i])
	}
	return out
}
