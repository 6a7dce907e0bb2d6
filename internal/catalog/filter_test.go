package catalog

import (
	"context"
	"testing"

	"github.com/runoshun/promptbench/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(id, title, status, priority, difficulty, assignee, tags, minutes string) domain.RawRow {
	return domain.RawRow{
		"id":               id,
		"title":            title,
		"original_text":    "text of " + id,
		"rd_translation_1": "translation of " + id,
		"status":           status,
		"priority":         priority,
		"difficulty":       difficulty,
		"assignee":         assignee,
		"tags":             tags,
		"estimated_time":   minutes,
	}
}

func loadedCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, _, _ := newTestCatalog(t, []domain.RawRow{
		row("T-1", "Weather report", "completed", "low", "easy", "Mika", "news", "20"),
		row("T-2", "Apology letter", "pending", "high", "hard", "Ken", "formal, letter", "45"),
		row("T-3", "Menu", "in_progress", "normal", "medium", "mika sato", "food", "15"),
		row("T-4", "Éclair recipe", "completed", "high", "medium", "Ana", "food, formal", "30"),
		row("T-5", "Zoo sign", "cancelled", "normal", "easy", "", "", ""),
	})
	_, err := c.LoadFromSpreadsheet(context.Background(), sheetURL)
	require.NoError(t, err)
	return c
}

func ids(tasks []domain.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestFilter_CompletedByPriorityDesc(t *testing.T) {
	c := loadedCatalog(t)

	got := c.Filter(domain.TaskFilters{
		Status:    domain.StatusCompleted,
		SortBy:    SortByPriority,
		SortOrder: "desc",
	})

	assert.Equal(t, []string{"T-4", "T-1"}, ids(got))
	assert.Equal(t, domain.PriorityHigh, got[0].Priority)
	assert.Equal(t, domain.PriorityLow, got[1].Priority)
}

func TestFilter_PriorityOrderHighNormalLow(t *testing.T) {
	c := loadedCatalog(t)

	got := c.Filter(domain.TaskFilters{SortBy: SortByPriority, SortOrder: "desc"})

	// Stable: equal ranks keep spreadsheet order.
	assert.Equal(t, []string{"T-2", "T-4", "T-3", "T-5", "T-1"}, ids(got))
}

func TestFilter_Criteria(t *testing.T) {
	tests := []struct {
		name    string
		filters domain.TaskFilters
		want    []string
	}{
		{"no filters keeps order", domain.TaskFilters{}, []string{"T-1", "T-2", "T-3", "T-4", "T-5"}},
		{"difficulty", domain.TaskFilters{Difficulty: domain.DifficultyEasy}, []string{"T-1", "T-5"}},
		{"priority", domain.TaskFilters{Priority: domain.PriorityHigh}, []string{"T-2", "T-4"}},
		{"assignee substring case-insensitive", domain.TaskFilters{Assignee: "MIKA"}, []string{"T-1", "T-3"}},
		{"tags any-of", domain.TaskFilters{Tags: []string{"news", "letter"}}, []string{"T-1", "T-2"}},
		{"search title", domain.TaskFilters{Search: "menu"}, []string{"T-3"}},
		{"search body", domain.TaskFilters{Search: "text of t-5"}, []string{"T-5"}},
		{"search tags", domain.TaskFilters{Search: "FORMAL"}, []string{"T-2", "T-4"}},
		{"combined", domain.TaskFilters{Status: domain.StatusCompleted, Tags: []string{"food"}}, []string{"T-4"}},
		{"nothing matches", domain.TaskFilters{Search: "zzz"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := loadedCatalog(t)
			assert.Equal(t, tt.want, ids(c.Filter(tt.filters)))
		})
	}
}

func TestFilter_SortFields(t *testing.T) {
	tests := []struct {
		by    string
		order string
		want  []string
	}{
		{SortByTitle, "asc", []string{"T-2", "T-4", "T-3", "T-1", "T-5"}},
		{SortByTitle, "desc", []string{"T-5", "T-1", "T-3", "T-4", "T-2"}},
		{SortByID, "desc", []string{"T-5", "T-4", "T-3", "T-2", "T-1"}},
		{SortByEstimatedTime, "asc", []string{"T-5", "T-3", "T-1", "T-4", "T-2"}},
		{SortByDifficulty, "desc", []string{"T-2", "T-3", "T-4", "T-1", "T-5"}},
		{SortByStatus, "asc", []string{"T-5", "T-1", "T-4", "T-3", "T-2"}},
	}
	for _, tt := range tests {
		t.Run(tt.by+"_"+tt.order, func(t *testing.T) {
			c := loadedCatalog(t)
			got := c.Filter(domain.TaskFilters{SortBy: tt.by, SortOrder: tt.order})
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestFilter_UnknownSortKeepsOrder(t *testing.T) {
	c := loadedCatalog(t)

	got := c.Filter(domain.TaskFilters{SortBy: "color"})

	assert.Equal(t, []string{"T-1", "T-2", "T-3", "T-4", "T-5"}, ids(got))
}

func TestFilter_Locale(t *testing.T) {
	c, _, _ := newTestCatalog(t, []domain.RawRow{
		row("A", "öl", "", "", "", "", "", ""),
		row("B", "zebra", "", "", "", "", "", ""),
		row("C", "ol", "", "", "", "", "", ""),
	})
	_, err := c.LoadFromSpreadsheet(context.Background(), sheetURL)
	require.NoError(t, err)

	c.SetLocale("de")
	assert.Equal(t, []string{"C", "A", "B"}, ids(c.Filter(domain.TaskFilters{SortBy: SortByTitle})))

	c.SetLocale("sv")
	assert.Equal(t, []string{"C", "B", "A"}, ids(c.Filter(domain.TaskFilters{SortBy: SortByTitle})))
}

func TestStatistics(t *testing.T) {
	c := loadedCatalog(t)

	stats := c.Statistics()

	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 2, stats.ByStatus[domain.StatusCompleted])
	assert.Equal(t, 1, stats.ByStatus[domain.StatusCancelled])
	assert.Equal(t, 2, stats.ByPriority[domain.PriorityHigh])
	assert.Equal(t, 2, stats.ByDifficulty[domain.DifficultyEasy])
	assert.Equal(t, 110, stats.TotalEstimatedTime)
	assert.InDelta(t, 22.0, stats.AverageEstimatedTime, 0.0001)
}

func TestStatistics_Empty(t *testing.T) {
	c := New(nil, nil, nil, nil)

	stats := c.Statistics()

	assert.Equal(t, 0, stats.Total)
	assert.Zero(t, stats.AverageEstimatedTime)
}
