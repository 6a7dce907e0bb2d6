package catalog

import (
	"cmp"
	"slices"
	"strings"

	"github.com/runoshun/promptbench/internal/domain"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Sort fields accepted by TaskFilters.SortBy.
const (
	SortByTitle         = "title"
	SortByID            = "id"
	SortByStatus        = "status"
	SortByAssignee      = "assignee"
	SortByCreatedAt     = "createdAt"
	SortByEstimatedTime = "estimatedTime"
	SortByPriority      = "priority"
	SortByDifficulty    = "difficulty"
)

// SortFields lists the accepted SortBy values.
func SortFields() []string {
	return []string{
		SortByTitle, SortByID, SortByStatus, SortByAssignee,
		SortByCreatedAt, SortByEstimatedTime, SortByPriority, SortByDifficulty,
	}
}

// Filter returns the tasks matching f, sorted as f requests.
// Without SortBy the spreadsheet order is kept.
func (c *Catalog) Filter(f domain.TaskFilters) []domain.Task {
	c.mu.RLock()
	locale := c.locale
	out := make([]domain.Task, 0, len(c.tasks))
	for i := range c.tasks {
		if matches(&c.tasks[i], f) {
			out = append(out, *cloneTask(&c.tasks[i]))
		}
	}
	c.mu.RUnlock()

	if f.SortBy != "" {
		sortTasks(out, f.SortBy, f.SortOrder == "desc", locale)
	}
	return out
}

func matches(t *domain.Task, f domain.TaskFilters) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Difficulty != "" && t.Difficulty != f.Difficulty {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.Assignee != "" && !containsFold(t.Assignee, f.Assignee) {
		return false
	}
	if len(f.Tags) > 0 && !slices.ContainsFunc(f.Tags, t.HasTag) {
		return false
	}
	if f.Search != "" {
		hit := containsFold(t.Title, f.Search) ||
			containsFold(t.OriginalText, f.Search) ||
			containsFold(t.Description, f.Search) ||
			slices.ContainsFunc(t.Tags, func(tag string) bool { return containsFold(tag, f.Search) })
		if !hit {
			return false
		}
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// sortTasks sorts in place. Text columns use the collation of locale;
// priority and difficulty use their ranks. Ties keep their relative order.
func sortTasks(tasks []domain.Task, by string, desc bool, locale string) {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	col := collate.New(tag)

	var compare func(a, b *domain.Task) int
	switch by {
	case SortByTitle:
		compare = func(a, b *domain.Task) int { return col.CompareString(a.Title, b.Title) }
	case SortByID:
		compare = func(a, b *domain.Task) int { return col.CompareString(a.ID, b.ID) }
	case SortByStatus:
		compare = func(a, b *domain.Task) int { return col.CompareString(string(a.Status), string(b.Status)) }
	case SortByAssignee:
		compare = func(a, b *domain.Task) int { return col.CompareString(a.Assignee, b.Assignee) }
	case SortByCreatedAt:
		compare = func(a, b *domain.Task) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case SortByEstimatedTime:
		compare = func(a, b *domain.Task) int { return cmp.Compare(a.EstimatedTime, b.EstimatedTime) }
	case SortByPriority:
		compare = func(a, b *domain.Task) int { return cmp.Compare(a.Priority.Rank(), b.Priority.Rank()) }
	case SortByDifficulty:
		compare = func(a, b *domain.Task) int { return cmp.Compare(a.Difficulty.Rank(), b.Difficulty.Rank()) }
	default:
		return
	}

	slices.SortStableFunc(tasks, func(a, b domain.Task) int {
		if desc {
			return compare(&b, &a)
		}
		return compare(&a, &b)
	})
}

// Statistics aggregates the current tasks.
func (c *Catalog) Statistics() domain.TaskStatistics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := domain.TaskStatistics{
		ByStatus:     make(map[domain.TaskStatus]int),
		ByDifficulty: make(map[domain.Difficulty]int),
		ByPriority:   make(map[domain.Priority]int),
		Total:        len(c.tasks),
	}
	for i := range c.tasks {
		t := &c.tasks[i]
		stats.ByStatus[t.Status]++
		stats.ByDifficulty[t.Difficulty]++
		stats.ByPriority[t.Priority]++
		stats.TotalEstimatedTime += t.EstimatedTime
	}
	if stats.Total > 0 {
		stats.AverageEstimatedTime = float64(stats.TotalEstimatedTime) / float64(stats.Total)
	}
	return stats
}
