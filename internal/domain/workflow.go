package domain

import (
	"maps"
	"slices"
	"time"
)

// SnapshotVersion is the schema version written into new snapshots.
const SnapshotVersion = 1

// WorkflowState is the aggregate tracking one task's progress through the pipeline.
// Fields are ordered to minimize memory padding.
type WorkflowState struct {
	CurrentTask      *TaskSummary          `json:"currentTask"`
	AutoTranslation  *string               `json:"autoTranslation"`
	SelectedPrompt   *string               `json:"selectedPrompt"` // Must equal some Prompts[i].ID once set
	FinalReport      *FinalReport          `json:"finalReport"`
	SessionStartTime *time.Time            `json:"sessionStartTime"`
	Progress         map[Step]int          `json:"progress"` // Step -> 0..100
	Evaluations      map[string]Evaluation `json:"evaluations"`
	BaseTranslations []BaseTranslation     `json:"baseTranslations"`
	Prompts          []Prompt              `json:"prompts"`
	CurrentStep      Step                  `json:"currentStep"`
}

// NewWorkflowState returns the initial state: step 1 with no progress.
func NewWorkflowState() WorkflowState {
	return WorkflowState{
		CurrentStep:      StepAutoTranslate,
		Progress:         map[Step]int{StepAutoTranslate: 0},
		Evaluations:      make(map[string]Evaluation),
		BaseTranslations: []BaseTranslation{},
		Prompts:          []Prompt{},
	}
}

// Clone returns a deep copy of the state.
func (s WorkflowState) Clone() WorkflowState {
	c := s
	c.CurrentTask = s.CurrentTask.Clone()
	c.AutoTranslation = clonePtr(s.AutoTranslation)
	c.SelectedPrompt = clonePtr(s.SelectedPrompt)
	c.FinalReport = s.FinalReport.Clone()
	c.SessionStartTime = clonePtr(s.SessionStartTime)
	c.Progress = maps.Clone(s.Progress)
	if c.Progress == nil {
		c.Progress = make(map[Step]int)
	}
	c.Evaluations = make(map[string]Evaluation, len(s.Evaluations))
	for id, ev := range s.Evaluations {
		c.Evaluations[id] = ev.Clone()
	}
	c.BaseTranslations = slices.Clone(s.BaseTranslations)
	if c.BaseTranslations == nil {
		c.BaseTranslations = []BaseTranslation{}
	}
	c.Prompts = make([]Prompt, len(s.Prompts))
	for i, p := range s.Prompts {
		c.Prompts[i] = p.Clone()
	}
	return c
}

// Durable returns the subset of the state that survives process restarts.
func (s WorkflowState) Durable() DurableState {
	return DurableState{
		CurrentTask:      s.CurrentTask.Clone(),
		CurrentStep:      s.CurrentStep,
		Progress:         maps.Clone(s.Progress),
		SessionStartTime: clonePtr(s.SessionStartTime),
	}
}

// DurableState is the part of WorkflowState kept in the key-value store.
type DurableState struct {
	CurrentTask      *TaskSummary `json:"currentTask"`
	SessionStartTime *time.Time   `json:"sessionStartTime"`
	Progress         map[Step]int `json:"progress"`
	CurrentStep      Step         `json:"currentStep"`
}

// Snapshot is a serialisable copy of WorkflowState persisted to the progress store.
type Snapshot struct {
	SavedAt time.Time `json:"savedAt"`
	WorkflowState
	Version int `json:"version"`
}

// ProgressInfo summarises a stored snapshot.
type ProgressInfo struct {
	SavedAt     time.Time `json:"savedAt"`
	TaskID      string    `json:"taskId"`
	TaskTitle   string    `json:"taskTitle"`
	CurrentStep Step      `json:"currentStep"`
	Prompts     int       `json:"prompts"`
}

// Info builds the listing summary of a snapshot.
func (s *Snapshot) Info(taskID string) ProgressInfo {
	info := ProgressInfo{
		TaskID:      taskID,
		CurrentStep: s.CurrentStep,
		SavedAt:     s.SavedAt,
		Prompts:     len(s.Prompts),
	}
	if s.CurrentTask != nil {
		info.TaskTitle = s.CurrentTask.Title
	}
	return info
}

// FinalReport is the structured result of step 5.
// Fields are ordered to minimize memory padding.
type FinalReport struct {
	GeneratedAt         time.Time         `json:"generatedAt" mapstructure:"-" yaml:"generated_at"`
	AverageScore        *float64          `json:"averageScore" mapstructure:"averageScore" yaml:"average_score"`
	Extra               map[string]string `json:"extra,omitempty" mapstructure:"-" yaml:"extra,omitempty"`
	TaskID              string            `json:"taskId" mapstructure:"taskId" yaml:"task_id"`
	TaskTitle           string            `json:"taskTitle" mapstructure:"taskTitle" yaml:"task_title"`
	SelectedPromptID    string            `json:"selectedPromptId" mapstructure:"selectedPromptId" yaml:"selected_prompt_id"`
	SelectedPromptText  string            `json:"selectedPromptText" mapstructure:"selectedPromptText" yaml:"selected_prompt_text"`
	SelectedTranslation string            `json:"selectedTranslation" mapstructure:"selectedTranslation" yaml:"selected_translation"`
	Summary             string            `json:"summary" mapstructure:"summary" yaml:"summary"`
	Notes               string            `json:"notes" mapstructure:"notes" yaml:"notes"`
	SessionDuration     time.Duration     `json:"sessionDuration" mapstructure:"-" yaml:"session_duration"`
	TotalPrompts        int               `json:"totalPrompts" mapstructure:"totalPrompts" yaml:"total_prompts"`
	LikedCount          int               `json:"likedCount" mapstructure:"likedCount" yaml:"liked_count"`
	DislikedCount       int               `json:"dislikedCount" mapstructure:"dislikedCount" yaml:"disliked_count"`
}

// Clone returns a deep copy of the report.
func (r *FinalReport) Clone() *FinalReport {
	if r == nil {
		return nil
	}
	c := *r
	c.AverageScore = clonePtr(r.AverageScore)
	c.Extra = maps.Clone(r.Extra)
	return &c
}
