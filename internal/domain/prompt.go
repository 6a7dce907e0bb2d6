package domain

import "time"

// Rating is the translator's verdict on a prompt.
type Rating string

const (
	RatingLike    Rating = "like"
	RatingDislike Rating = "dislike"
)

// IsValid returns true if the rating is a known value.
func (r Rating) IsValid() bool {
	return r == RatingLike || r == RatingDislike
}

// Prompt is a user-authored instruction paired with the translation it produced.
// Fields are ordered to minimize memory padding.
type Prompt struct {
	CreatedAt         time.Time `json:"createdAt"`
	Translation       *string   `json:"translation"`  // nil until generated
	Rating            *Rating   `json:"rating"`       // Mirrors the evaluation
	Comment           *string   `json:"comment"`      // Mirrors the evaluation
	QualityScore      *float64  `json:"qualityScore"` // Mirrors the evaluation
	ID                string    `json:"id"`
	Text              string    `json:"text"`
	BaseTranslationID string    `json:"baseTranslationId"` // Weak reference into Task.BaseTranslations
}

// Clone returns a deep copy of the prompt.
func (p Prompt) Clone() Prompt {
	c := p
	c.Translation = clonePtr(p.Translation)
	c.Rating = clonePtr(p.Rating)
	c.Comment = clonePtr(p.Comment)
	c.QualityScore = clonePtr(p.QualityScore)
	return c
}

// PromptInput contains the fields supplied when adding a prompt.
type PromptInput struct {
	Translation       *string
	Text              string
	BaseTranslationID string
}

// PromptUpdate carries optional prompt fields. Nil fields are left untouched.
type PromptUpdate struct {
	Text              *string
	Translation       *string
	BaseTranslationID *string
}

// IsEmpty reports whether the update changes nothing.
func (u PromptUpdate) IsEmpty() bool {
	return u.Text == nil && u.Translation == nil && u.BaseTranslationID == nil
}

// Evaluation is the judgment attached to a prompt.
type Evaluation struct {
	Rating       *Rating  `json:"rating"`
	Comment      *string  `json:"comment"`
	QualityScore *float64 `json:"qualityScore"`
}

// Clone returns a deep copy of the evaluation.
func (e Evaluation) Clone() Evaluation {
	return Evaluation{
		Rating:       clonePtr(e.Rating),
		Comment:      clonePtr(e.Comment),
		QualityScore: clonePtr(e.QualityScore),
	}
}

// Merge applies non-nil fields of upd on top of e.
func (e Evaluation) Merge(upd EvaluationUpdate) Evaluation {
	out := e.Clone()
	if upd.Rating != nil {
		out.Rating = clonePtr(upd.Rating)
	}
	if upd.Comment != nil {
		out.Comment = clonePtr(upd.Comment)
	}
	if upd.QualityScore != nil {
		out.QualityScore = clonePtr(upd.QualityScore)
	}
	return out
}

// EvaluationUpdate carries optional evaluation fields for merge updates.
type EvaluationUpdate struct {
	Rating       *Rating
	Comment      *string
	QualityScore *float64
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
