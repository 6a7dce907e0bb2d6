package workflow

import (
	"iter"

	"github.com/runoshun/promptbench/internal/domain"
)

// LikedPrompts yields the prompts whose evaluation is rated like.
// The sequence is recomputed against the current state on every range.
func (c *Container) LikedPrompts() iter.Seq[domain.Prompt] {
	return c.promptsRated(domain.RatingLike)
}

// DislikedPrompts yields the prompts whose evaluation is rated dislike.
func (c *Container) DislikedPrompts() iter.Seq[domain.Prompt] {
	return c.promptsRated(domain.RatingDislike)
}

func (c *Container) promptsRated(r domain.Rating) iter.Seq[domain.Prompt] {
	return func(yield func(domain.Prompt) bool) {
		// Collect under the lock, yield outside it so callers may mutate while ranging.
		c.mu.RLock()
		var matched []domain.Prompt
		for _, p := range c.state.Prompts {
			ev, ok := c.state.Evaluations[p.ID]
			if ok && ev.Rating != nil && *ev.Rating == r {
				matched = append(matched, p.Clone())
			}
		}
		c.mu.RUnlock()

		for _, p := range matched {
			if !yield(p) {
				return
			}
		}
	}
}

// AverageQualityScore returns the mean quality score over scored prompts.
func (c *Container) AverageQualityScore() (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var sum float64
	var n int
	for _, ev := range c.state.Evaluations {
		if ev.QualityScore != nil {
			sum += *ev.QualityScore
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
