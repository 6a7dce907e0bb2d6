package catalog

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/runoshun/promptbench/internal/domain"
)

// maxBaseTranslations is the number of rd_translation_N columns read per row.
const maxBaseTranslations = 3

// canonicalKeys maps a folded header (lowercase, no separators) to its canonical column.
var canonicalKeys = map[string]string{
	"id":            "id",
	"taskid":        "id",
	"title":         "title",
	"originaltext":  "originalText",
	"original":      "originalText",
	"sourcetext":    "originalText",
	"description":   "description",
	"assignee":      "assignee",
	"status":        "status",
	"priority":      "priority",
	"difficulty":    "difficulty",
	"tags":          "tags",
	"estimatedtime": "estimatedTime",
	"createdat":     "createdAt",
	"updatedat":     "updatedAt",
}

func init() {
	for n := 1; n <= maxBaseTranslations; n++ {
		canonicalKeys[fmt.Sprintf("rdtranslation%d", n)] = translationKey(n)
		canonicalKeys[fmt.Sprintf("rdquality%d", n)] = qualityKey(n)
	}
}

func translationKey(n int) string { return fmt.Sprintf("rd_translation_%d", n) }
func qualityKey(n int) string     { return fmt.Sprintf("rd_quality_%d", n) }

// normalizeRow re-keys a raw row by canonical column names.
// Unknown columns are dropped. When two headers fold to the same key a
// non-empty value is preferred, then the header spelled exactly as the key,
// then the first header in sorted order.
func normalizeRow(raw domain.RawRow) map[string]string {
	out := make(map[string]string, len(raw))
	for _, k := range slices.Sorted(maps.Keys(raw)) {
		key, ok := canonicalKeys[domain.FoldHeader(k)]
		if !ok {
			continue
		}
		v := strings.TrimSpace(raw[k])
		if out[key] == "" || (v != "" && k == key) {
			out[key] = v
		}
	}
	return out
}

// rowRejection explains why a row did not become a task.
type rowRejection string

const (
	rejectMissingID          rowRejection = "missing id"
	rejectMissingOriginal    rowRejection = "missing original text"
	rejectNoBaseTranslations rowRejection = "no base translations"
)

// parseTask builds a Task from a raw row. The second return is non-empty
// when the row is rejected.
func parseTask(raw domain.RawRow) (domain.Task, rowRejection) {
	row := normalizeRow(raw)

	id := row["id"]
	if id == "" {
		return domain.Task{}, rejectMissingID
	}
	original := row["originalText"]
	if original == "" {
		return domain.Task{}, rejectMissingOriginal
	}

	var bts []domain.BaseTranslation
	for n := 1; n <= maxBaseTranslations; n++ {
		text := row[translationKey(n)]
		if text == "" {
			continue
		}
		bts = append(bts, domain.BaseTranslation{
			ID:      fmt.Sprintf("%s-rd-%d", id, n),
			Text:    text,
			Source:  fmt.Sprintf("RD %d", n),
			Quality: row[qualityKey(n)],
		})
	}
	if len(bts) == 0 {
		return domain.Task{}, rejectNoBaseTranslations
	}

	task := domain.Task{
		ID:               id,
		Title:            row["title"],
		OriginalText:     original,
		Description:      row["description"],
		Assignee:         row["assignee"],
		Status:           parseStatus(row["status"]),
		Priority:         parsePriority(row["priority"]),
		Difficulty:       parseDifficulty(row["difficulty"]),
		Tags:             parseTags(row["tags"]),
		BaseTranslations: bts,
		CreatedAt:        parseTime(row["createdAt"]),
		UpdatedAt:        parseTime(row["updatedAt"]),
	}
	if task.Title == "" {
		task.Title = id
	}
	if n, err := strconv.Atoi(row["estimatedTime"]); err == nil && n > 0 {
		task.EstimatedTime = n
	}
	return task, ""
}

// parseStatus accepts the canonical values plus the common spellings
// "in progress", "in-progress", "done" and "canceled".
func parseStatus(s string) domain.TaskStatus {
	switch domain.FoldHeader(s) {
	case "inprogress":
		return domain.StatusInProgress
	case "completed", "done", "complete":
		return domain.StatusCompleted
	case "cancelled", "canceled":
		return domain.StatusCancelled
	default:
		return domain.StatusPending
	}
}

func parsePriority(s string) domain.Priority {
	p := domain.Priority(strings.ToLower(strings.TrimSpace(s)))
	if p.Rank() == 0 {
		return domain.PriorityNormal
	}
	return p
}

func parseDifficulty(s string) domain.Difficulty {
	d := domain.Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if d.Rank() == 0 {
		return domain.DifficultyMedium
	}
	return d
}

func parseTags(s string) []string {
	if s == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02", "2006/01/02"}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
