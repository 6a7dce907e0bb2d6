package tui

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/runoshun/promptbench/internal/app"
	"github.com/runoshun/promptbench/internal/domain"
	"github.com/runoshun/promptbench/internal/testutil"
	"github.com/stretchr/testify/require"
)

const sheetURL = "https://docs.google.com/spreadsheets/d/tui-fixture/edit"

// testEnv holds a container on in-memory doubles.
type testEnv struct {
	container *app.Container
	store     *testutil.MockProgressStore
	sheets    *testutil.MockSpreadsheetService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	e := &testEnv{
		store:  testutil.NewMockProgressStore(),
		sheets: testutil.NewMockSpreadsheetService(),
	}
	e.sheets.Rows[sheetURL] = []domain.RawRow{
		{"id": "T-1", "title": "Greeting", "original_text": "こんにちは", "status": "pending",
			"rd_translation_1": "Hello"},
		{"id": "T-2", "title": "Farewell", "original_text": "さようなら", "status": "in_progress",
			"rd_translation_1": "Goodbye"},
	}
	dir := t.TempDir()
	e.container = app.NewWithDeps(
		app.Config{Root: dir, DataDir: dir},
		e.store, e.sheets, testutil.NewMockKVStore(),
		&testutil.MockClock{NowTime: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	_, err := e.container.Catalog.LoadFromSpreadsheet(context.Background(), sheetURL)
	require.NoError(t, err)
	return e
}

// model returns a sized model with the catalog loaded.
func (e *testEnv) model(t *testing.T) *Model {
	t.Helper()
	m := New(e.container)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m.Update(m.loadTasks()())
	return m
}

// press sends a key and runs the resulting command once, feeding its message back.
func press(m *Model, k string) {
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case " ":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	_, cmd := m.Update(msg)
	if cmd == nil {
		return
	}
	out := cmd()
	if _, ok := out.(Msg); ok {
		_, follow := m.Update(out)
		if follow != nil {
			m.Update(follow())
		}
	}
}
