package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/runoshun/promptbench/internal/app"
	"github.com/runoshun/promptbench/internal/domain"
	"github.com/runoshun/promptbench/internal/testutil"
	"github.com/stretchr/testify/require"
)

const sheetURL = "https://docs.google.com/spreadsheets/d/cli-fixture/edit"

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// testEnv is a container on in-memory doubles with a loaded catalog.
type testEnv struct {
	container *app.Container
	store     *testutil.MockProgressStore
	sheets    *testutil.MockSpreadsheetService
	kv        *testutil.MockKVStore
	clock     *testutil.MockClock
}

func fixtureRows() []domain.RawRow {
	return []domain.RawRow{
		{"id": "T-1", "title": "Greeting", "original_text": "こんにちは", "status": "pending",
			"priority": "high", "difficulty": "easy", "assignee": "Kim", "tags": "greeting, casual",
			"estimated_time": "15", "rd_translation_1": "Hello", "rd_translation_2": "Hi"},
		{"id": "T-2", "title": "Farewell", "original_text": "さようなら", "status": "in_progress",
			"priority": "low", "difficulty": "hard", "rd_translation_1": "Goodbye"},
		{"id": "T-3", "title": "Invoice terms", "original_text": "請求書", "status": "completed",
			"priority": "normal", "difficulty": "medium", "tags": "legal", "rd_translation_1": "Invoice"},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	e := &testEnv{
		store:  testutil.NewMockProgressStore(),
		sheets: testutil.NewMockSpreadsheetService(),
		kv:     testutil.NewMockKVStore(),
		clock:  &testutil.MockClock{NowTime: testNow},
	}
	e.sheets.Rows[sheetURL] = fixtureRows()
	dir := t.TempDir()
	e.container = app.NewWithDeps(
		app.Config{Root: dir, DataDir: dir},
		e.store, e.sheets, e.kv, e.clock,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return e
}

// loaded returns an env whose catalog holds the fixture rows.
func newLoadedEnv(t *testing.T) *testEnv {
	t.Helper()
	e := newTestEnv(t)
	_, err := e.container.Catalog.LoadFromSpreadsheet(context.Background(), sheetURL)
	require.NoError(t, err)
	return e
}

// run executes the root command with args and returns stdout and stderr.
func (e *testEnv) run(args ...string) (string, string, error) {
	return runWith(e.container, "", args...)
}

func runWith(c *app.Container, stdin string, args ...string) (string, string, error) {
	root := NewRootCommand(c, "test")
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

// mustRun executes args and fails the test on error.
func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, _, err := e.run(args...)
	require.NoError(t, err, "promptbench %s", strings.Join(args, " "))
	return out
}

// addPrompt adds a prompt and returns its ID.
func (e *testEnv) addPrompt(t *testing.T, args ...string) string {
	t.Helper()
	out := e.mustRun(t, append([]string{"prompt", "add"}, args...)...)
	id, ok := strings.CutPrefix(strings.TrimSpace(out), "Added prompt ")
	require.True(t, ok, "unexpected output %q", out)
	return id
}
