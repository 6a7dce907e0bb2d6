// Package workflow implements the per-task workflow state container:
// current step, progress, prompts, evaluations, selection and final report,
// together with its persistence through the progress store and the
// durable key-value store.
package workflow

import (
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/runoshun/promptbench/internal/domain"
)

// Deps holds the collaborators of a Container.
// Fields are ordered to minimize memory padding.
type Deps struct {
	Progress   domain.ProgressStore // nil = progress bridge unavailable
	KV         domain.KeyValueStore // nil = durable subset not persisted
	Clock      domain.Clock
	IDs        domain.IDGenerator
	Logger     domain.Logger
	StorageKey string // Key of the durable subset (default "workflow-storage")
}

// Container is the single source of truth for one task's workflow.
// It is safe for concurrent use.
type Container struct {
	progress   domain.ProgressStore
	kv         domain.KeyValueStore
	clock      domain.Clock
	ids        domain.IDGenerator
	logger     domain.Logger
	err        error
	queue      *keyedQueue
	storageKey string
	state      domain.WorkflowState
	mu         sync.RWMutex
	kvMu       sync.Mutex
}

// New creates a Container in the initial state.
// Call Restore to pick up the durable subset from a previous process.
func New(deps Deps) *Container {
	c := &Container{
		progress:   deps.Progress,
		kv:         deps.KV,
		clock:      deps.Clock,
		ids:        deps.IDs,
		logger:     deps.Logger,
		storageKey: deps.StorageKey,
		queue:      newKeyedQueue(),
		state:      domain.NewWorkflowState(),
	}
	if c.clock == nil {
		c.clock = domain.RealClock{}
	}
	if c.ids == nil {
		c.ids = domain.UUIDGenerator{}
	}
	if c.logger == nil {
		c.logger = domain.NopLogger{}
	}
	if c.storageKey == "" {
		c.storageKey = domain.DefaultStorageKey
	}
	return c
}

// === Accessors ===

// State returns a deep copy of the whole workflow state.
func (c *Container) State() domain.WorkflowState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Clone()
}

// CurrentTask returns the active task, or nil.
func (c *Container) CurrentTask() *domain.TaskSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.CurrentTask.Clone()
}

// CurrentStep returns the current step.
func (c *Container) CurrentStep() domain.Step {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.CurrentStep
}

// Progress returns a copy of the per-step progress map.
func (c *Container) Progress() map[domain.Step]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[domain.Step]int, len(c.state.Progress))
	for k, v := range c.state.Progress {
		out[k] = v
	}
	return out
}

// Prompts returns copies of all prompts in insertion order.
func (c *Container) Prompts() []domain.Prompt {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Prompt, len(c.state.Prompts))
	for i, p := range c.state.Prompts {
		out[i] = p.Clone()
	}
	return out
}

// Evaluations returns a copy of the evaluation map.
func (c *Container) Evaluations() map[string]domain.Evaluation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]domain.Evaluation, len(c.state.Evaluations))
	for id, ev := range c.state.Evaluations {
		out[id] = ev.Clone()
	}
	return out
}

// SelectedPrompt returns the selected prompt ID, or "" if none.
func (c *Container) SelectedPrompt() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state.SelectedPrompt == nil {
		return ""
	}
	return *c.state.SelectedPrompt
}

// FinalReport returns a copy of the final report, or nil.
func (c *Container) FinalReport() *domain.FinalReport {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.FinalReport.Clone()
}

// Err returns the error of the last failed collaborator call, or nil.
func (c *Container) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Projection returns the display-ready progress of the current state.
func (c *Container) Projection() domain.ProgressProjection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.ProjectProgress(c.state.CurrentStep, domain.TotalSteps, c.state.Progress)
}

// === Navigation ===

// SetCurrentTask replaces the active task and stamps the session start time.
// A nil task clears it.
func (c *Container) SetCurrentTask(task *domain.TaskSummary) {
	now := c.clock.Now()
	c.mu.Lock()
	c.state.CurrentTask = task.Clone()
	c.state.SessionStartTime = &now
	c.mu.Unlock()

	c.persistDurable()
}

// SetCurrentStep moves to step, initialising its progress to 0 if absent.
func (c *Container) SetCurrentStep(step domain.Step) error {
	if !step.IsValid() {
		return fmt.Errorf("step %d: %w", step, domain.ErrInvalidStep)
	}

	c.mu.Lock()
	c.state.CurrentStep = step
	if _, ok := c.state.Progress[step]; !ok {
		c.state.Progress[step] = 0
	}
	c.mu.Unlock()

	c.persistDurable()
	return nil
}

// UpdateProgress merges partial into the progress map, last write wins per step.
// Percentages are clamped to 0..100; entries for unknown steps are ignored.
func (c *Container) UpdateProgress(partial map[domain.Step]int) {
	c.mu.Lock()
	for step, pct := range partial {
		if !step.IsValid() {
			continue
		}
		c.state.Progress[step] = min(max(pct, 0), 100)
	}
	c.mu.Unlock()

	c.persistDurable()
}

// SetAutoTranslation stores the machine translation of step 1.
func (c *Container) SetAutoTranslation(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.AutoTranslation = &text
}

// SetBaseTranslations replaces the reference translations copied in from the task.
func (c *Container) SetBaseTranslations(bts []domain.BaseTranslation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.BaseTranslations = slices.Clone(bts)
	if c.state.BaseTranslations == nil {
		c.state.BaseTranslations = []domain.BaseTranslation{}
	}
}

// === Prompts ===

// AddPrompt appends a new prompt with a fresh ID and returns it.
func (c *Container) AddPrompt(in domain.PromptInput) domain.Prompt {
	id := c.ids.NewID()
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Generators are expected to be unique; a suffix keeps the invariant if one repeats.
	if c.indexOf(id) >= 0 {
		base := id
		for n := 2; c.indexOf(id) >= 0; n++ {
			id = base + "-" + strconv.Itoa(n)
		}
	}

	p := domain.Prompt{
		ID:                id,
		Text:              in.Text,
		BaseTranslationID: in.BaseTranslationID,
		CreatedAt:         now,
	}
	if in.Translation != nil {
		p.Translation = domain.Ptr(*in.Translation)
	}
	c.state.Prompts = append(c.state.Prompts, p)
	return p.Clone()
}

// UpdatePrompt merges upd into the prompt with the given ID.
func (c *Container) UpdatePrompt(id string, upd domain.PromptUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		return fmt.Errorf("update prompt %s: %w", id, domain.ErrPromptNotFound)
	}
	p := &c.state.Prompts[i]
	if upd.Text != nil {
		p.Text = *upd.Text
	}
	if upd.Translation != nil {
		p.Translation = domain.Ptr(*upd.Translation)
	}
	if upd.BaseTranslationID != nil {
		p.BaseTranslationID = *upd.BaseTranslationID
	}
	return nil
}

// RemovePrompt deletes the prompt together with its evaluation.
// The selection is cleared when it pointed at the removed prompt.
func (c *Container) RemovePrompt(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		return fmt.Errorf("remove prompt %s: %w", id, domain.ErrPromptNotFound)
	}
	c.state.Prompts = slices.Delete(c.state.Prompts, i, i+1)
	delete(c.state.Evaluations, id)
	if c.state.SelectedPrompt != nil && *c.state.SelectedPrompt == id {
		c.state.SelectedPrompt = nil
	}
	return nil
}

// PromptByID returns the prompt with the given ID.
func (c *Container) PromptByID(id string) (domain.Prompt, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i := c.indexOf(id)
	if i < 0 {
		return domain.Prompt{}, false
	}
	return c.state.Prompts[i].Clone(), true
}

// === Evaluations ===

// SetEvaluation replaces the evaluation of a prompt.
func (c *Container) SetEvaluation(id string, ev domain.Evaluation) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		return fmt.Errorf("set evaluation %s: %w", id, domain.ErrPromptNotFound)
	}
	if ev.Rating != nil && !ev.Rating.IsValid() {
		return fmt.Errorf("rating %q: %w", *ev.Rating, domain.ErrInvalidRating)
	}
	c.applyEvaluation(i, ev.Clone())
	return nil
}

// UpdateEvaluation merges upd into the evaluation of a prompt, creating it if absent.
func (c *Container) UpdateEvaluation(id string, upd domain.EvaluationUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		return fmt.Errorf("update evaluation %s: %w", id, domain.ErrPromptNotFound)
	}
	if upd.Rating != nil && !upd.Rating.IsValid() {
		return fmt.Errorf("rating %q: %w", *upd.Rating, domain.ErrInvalidRating)
	}
	c.applyEvaluation(i, c.state.Evaluations[id].Merge(upd))
	return nil
}

// applyEvaluation stores ev and mirrors it onto the prompt. Caller holds mu.
func (c *Container) applyEvaluation(i int, ev domain.Evaluation) {
	p := &c.state.Prompts[i]
	c.state.Evaluations[p.ID] = ev
	mirror := ev.Clone()
	p.Rating = mirror.Rating
	p.Comment = mirror.Comment
	p.QualityScore = mirror.QualityScore
}

// SetSelectedPrompt marks the best prompt. An empty ID clears the selection.
func (c *Container) SetSelectedPrompt(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id == "" {
		c.state.SelectedPrompt = nil
		return nil
	}
	if c.indexOf(id) < 0 {
		return fmt.Errorf("select prompt %s: %w", id, domain.ErrPromptNotFound)
	}
	c.state.SelectedPrompt = &id
	return nil
}

// === Final report ===

// SetFinalReport replaces the final report. nil clears it.
func (c *Container) SetFinalReport(r *domain.FinalReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.FinalReport = r.Clone()
}

// UpdateFinalReport merge-patches the report by JSON field name.
// Keys that match no field are kept in Extra.
func (c *Container) UpdateFinalReport(upd map[string]any) error {
	if len(upd) == 0 {
		return domain.ErrNoFieldsToUpdate
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	report := c.state.FinalReport.Clone()
	if report == nil {
		report = &domain.FinalReport{}
	}

	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           report,
		WeaklyTypedInput: true,
		Metadata:         &md,
	})
	if err != nil {
		return fmt.Errorf("create report decoder: %w", err)
	}
	if err := dec.Decode(upd); err != nil {
		return fmt.Errorf("decode report update: %w", err)
	}

	for _, key := range md.Unused {
		if report.Extra == nil {
			report.Extra = make(map[string]string)
		}
		report.Extra[key] = fmt.Sprint(upd[key])
	}

	c.state.FinalReport = report
	return nil
}

// === Session ===

// SessionDuration returns the time since the session started, or 0 if none.
func (c *Container) SessionDuration() time.Duration {
	c.mu.RLock()
	start := c.state.SessionStartTime
	c.mu.RUnlock()

	if start == nil {
		return 0
	}
	return c.clock.Now().Sub(*start)
}

// Reset restores the initial state, including the current task.
func (c *Container) Reset() {
	c.mu.Lock()
	c.state = domain.NewWorkflowState()
	c.err = nil
	c.mu.Unlock()

	c.persistDurable()
}

// indexOf returns the index of the prompt with the given ID, or -1. Caller holds mu.
func (c *Container) indexOf(id string) int {
	return slices.IndexFunc(c.state.Prompts, func(p domain.Prompt) bool {
		return p.ID == id
	})
}
