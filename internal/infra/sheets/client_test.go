package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/runoshun/promptbench/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testID = "1AbCdEfGhIjKlMnOp"

var testURL = "https://docs.google.com/spreadsheets/d/" + testID + "/edit#gid=0"

// fakeSheets serves the subset of the Sheets v4 REST API the client uses.
type fakeSheets struct {
	values  [][]any
	updates []string
	bodies  []string
	mu      sync.Mutex
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prefix := "/v4/spreadsheets/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	id, tail, _ := strings.Cut(rest, "/")
	if id != testID {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"code":404,"message":"Requested entity was not found."}}`)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case tail == "" && r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(map[string]any{
			"spreadsheetId": testID,
			"properties":    map[string]any{"title": "Translation tasks"},
			"sheets":        []any{map[string]any{"properties": map[string]any{"title": "Tasks"}}},
		})
	case strings.HasPrefix(tail, "values/") && r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(map[string]any{
			"range":  strings.TrimPrefix(tail, "values/"),
			"values": f.values,
		})
	case strings.HasPrefix(tail, "values/") && r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.updates = append(f.updates, strings.TrimPrefix(tail, "values/")+"?"+r.URL.Query().Get("valueInputOption"))
		f.bodies = append(f.bodies, string(body))
		_, _ = io.WriteString(w, `{"updatedCells":1}`)
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{values: [][]any{
		{"ID", "Title", "Original Text", "Status", "RD Translation 1"},
		{"T-1", "Greeting", "こんにちは", "pending", "Hello"},
		{"T-2", "Farewell", "さようなら", "done", "Goodbye"},
	}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return New(Options{Endpoint: srv.URL + "/"}), fake
}

func TestSpreadsheetID(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{"edit url", testURL, testID, false},
		{"plain url", "https://docs.google.com/spreadsheets/d/" + testID, testID, false},
		{"bare id", testID, testID, false},
		{"padded", "  " + testID + " ", testID, false},
		{"other site", "https://example.com/sheet", "", true},
		{"too short", "abc", "", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SpreadsheetID(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidSpreadsheetURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestColumnLetter(t *testing.T) {
	tests := map[int]string{0: "A", 3: "D", 25: "Z", 26: "AA", 27: "AB", 51: "AZ", 52: "BA", 701: "ZZ", 702: "AAA"}
	for col, want := range tests {
		assert.Equal(t, want, ColumnLetter(col), "col %d", col)
	}
}

func TestCellRef(t *testing.T) {
	tests := []struct {
		name       string
		sheetRange string
		col, row   int
		want       string
	}{
		{"whole sheet", "Tasks", 3, 2, "Tasks!D3"},
		{"anchored at A1", "Sheet1!A1:Z100", 0, 0, "Sheet1!A1"},
		{"offset start", "Tasks!B2:Z", 2, 1, "Tasks!D3"},
		{"column range", "Tasks!C:F", 0, 0, "Tasks!C1"},
		{"row range", "Tasks!3:40", 1, 0, "Tasks!B3"},
		{"absolute refs", "Tasks!$B$4:$Z", 0, 1, "Tasks!B5"},
		{"wide start column", "Tasks!AA10:AZ", 1, 0, "Tasks!AB10"},
		{"name with space", "My Sheet", 2, 2, "'My Sheet'!C3"},
		{"quoted name with range", "'My Sheet'!B2:Z", 0, 0, "'My Sheet'!B2"},
		{"embedded quote", "Bob's tasks", 0, 0, "'Bob''s tasks'!A1"},
		{"quoted embedded quote", "'Bob''s tasks'!A1:C", 1, 1, "'Bob''s tasks'!B2"},
		{"bang inside quoted name", "'Q1!draft'!B2:Z", 0, 0, "'Q1!draft'!B2"},
		{"non-ascii name", "タスク", 0, 1, "タスク!A2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CellRef(tt.sheetRange, tt.col, tt.row))
		})
	}
}

func TestClient_Validate(t *testing.T) {
	client, _ := newTestClient(t)

	info, err := client.Validate(context.Background(), testURL)

	require.NoError(t, err)
	assert.Equal(t, testID, info.ID)
	assert.Equal(t, "Translation tasks", info.Title)
	assert.Equal(t, testURL, info.URL)
	assert.Equal(t, []string{"Tasks"}, info.Sheets)
}

func TestClient_Validate_UnknownSpreadsheet(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.Validate(context.Background(), "https://docs.google.com/spreadsheets/d/missing-sheet-id/edit")

	assert.ErrorIs(t, err, domain.ErrInvalidSpreadsheetURL)
}

func TestClient_Validate_BadURL(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.Validate(context.Background(), "not a url")

	assert.ErrorIs(t, err, domain.ErrInvalidSpreadsheetURL)
}

func TestClient_LoadRows(t *testing.T) {
	client, _ := newTestClient(t)

	rows, err := client.LoadRows(context.Background(), testURL)

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "T-1", rows[0]["ID"])
	assert.Equal(t, "こんにちは", rows[0]["Original Text"])
	assert.Equal(t, "Goodbye", rows[1]["RD Translation 1"])
}

func TestClient_GetTaskData(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	row, err := client.GetTaskData(ctx, "T-2", testURL)
	require.NoError(t, err)
	assert.Equal(t, "Farewell", row["Title"])

	_, err = client.GetTaskData(ctx, "T-9", testURL)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestClient_UpdateTaskStatus(t *testing.T) {
	client, fake := newTestClient(t)

	err := client.UpdateTaskStatus(context.Background(), "T-2", domain.StatusInProgress, testURL)

	require.NoError(t, err)
	require.Len(t, fake.updates, 1)
	assert.Equal(t, "Tasks!D3?RAW", fake.updates[0])
	assert.Contains(t, fake.bodies[0], string(domain.StatusInProgress))
}

func TestClient_UpdateTaskStatus_OffsetRange(t *testing.T) {
	client, fake := newTestClient(t)
	client.opts.SheetRange = "Team Tasks!B2:Z"

	err := client.UpdateTaskStatus(context.Background(), "T-1", domain.StatusCompleted, testURL)

	require.NoError(t, err)
	require.Len(t, fake.updates, 1)
	assert.Equal(t, "'Team Tasks'!E3?RAW", fake.updates[0])
}

func TestClient_UpdateTaskStatus_Errors(t *testing.T) {
	client, fake := newTestClient(t)
	ctx := context.Background()

	err := client.UpdateTaskStatus(ctx, "T-9", domain.StatusCompleted, testURL)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)

	fake.values = [][]any{{"ID", "Title"}, {"T-1", "Greeting"}}
	err = client.UpdateTaskStatus(ctx, "T-1", domain.StatusCompleted, testURL)
	assert.ErrorContains(t, err, "no status column")

	assert.Empty(t, fake.updates)
}
