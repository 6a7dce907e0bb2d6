// Package domain contains core business entities and interfaces.
package domain

import (
	"slices"
	"time"
)

// Task represents one translation assignment loaded from a spreadsheet.
// Fields are ordered to minimize memory padding.
type Task struct {
	CreatedAt        time.Time         `json:"createdAt,omitzero" yaml:"created_at,omitempty"`
	UpdatedAt        time.Time         `json:"updatedAt,omitzero" yaml:"updated_at,omitempty"`
	ID               string            `json:"id" yaml:"id"`                                     // Unique task ID (required)
	Title            string            `json:"title" yaml:"title"`                               // Display title
	OriginalText     string            `json:"originalText" yaml:"original_text"`                // Source passage (required)
	Description      string            `json:"description,omitempty" yaml:"description,omitempty"`
	Assignee         string            `json:"assignee,omitempty" yaml:"assignee,omitempty"`
	Status           TaskStatus        `json:"status" yaml:"status"`
	Priority         Priority          `json:"priority" yaml:"priority"`
	Difficulty       Difficulty        `json:"difficulty" yaml:"difficulty"`
	BaseTranslations []BaseTranslation `json:"baseTranslations" yaml:"base_translations"` // Reference translations (at least one)
	Tags             []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	EstimatedTime    int               `json:"estimatedTime,omitempty" yaml:"estimated_time,omitempty"` // Minutes
}

// BaseTranslation is a reference translation attached to a task.
type BaseTranslation struct {
	ID      string `json:"id" yaml:"id"`
	Text    string `json:"text" yaml:"text"`
	Source  string `json:"source" yaml:"source"`
	Quality string `json:"quality,omitempty" yaml:"quality,omitempty"`
}

// TaskSummary is the subset of a task the workflow keeps while a session runs.
type TaskSummary struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	OriginalText     string            `json:"originalText"`
	BaseTranslations []BaseTranslation `json:"baseTranslations"`
}

// Summary returns the workflow view of the task.
func (t *Task) Summary() *TaskSummary {
	return &TaskSummary{
		ID:               t.ID,
		Title:            t.Title,
		OriginalText:     t.OriginalText,
		BaseTranslations: slices.Clone(t.BaseTranslations),
	}
}

// HasTag reports whether the task carries the given tag.
func (t *Task) HasTag(tag string) bool {
	return slices.Contains(t.Tags, tag)
}

// Clone returns a deep copy of the summary.
func (s *TaskSummary) Clone() *TaskSummary {
	if s == nil {
		return nil
	}
	c := *s
	c.BaseTranslations = slices.Clone(s.BaseTranslations)
	return &c
}

// TaskFilters specifies criteria for filtering and sorting the catalog.
// Empty fields do not filter.
type TaskFilters struct {
	Status     TaskStatus
	Difficulty Difficulty
	Priority   Priority
	Assignee   string   // Case-insensitive substring
	Search     string   // Matches title, original text, description, tags
	Tags       []string // Any-of
	SortBy     string   // title, id, status, assignee, createdAt, estimatedTime, priority, difficulty
	SortOrder  string   // asc (default) or desc
}

// TaskStatistics aggregates catalog counts.
type TaskStatistics struct {
	ByStatus             map[TaskStatus]int `json:"byStatus"`
	ByDifficulty         map[Difficulty]int `json:"byDifficulty"`
	ByPriority           map[Priority]int   `json:"byPriority"`
	Total                int                `json:"total"`
	TotalEstimatedTime   int                `json:"totalEstimatedTime"`
	AverageEstimatedTime float64            `json:"averageEstimatedTime"`
}
