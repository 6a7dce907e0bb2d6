package domain

import "strconv"

// Step is one stage of the five-step task pipeline.
type Step int

const (
	StepAutoTranslate   Step = 1 // Machine translation of the source passage
	StepPromptAuthoring Step = 2 // Write prompts against base translations
	StepEvaluation      Step = 3 // Rate and score prompts
	StepFinalSelection  Step = 4 // Pick the best prompt
	StepReport          Step = 5 // Produce the final report
)

// TotalSteps is the number of steps in the pipeline.
const TotalSteps = 5

// AllSteps returns the steps in pipeline order.
func AllSteps() []Step {
	return []Step{StepAutoTranslate, StepPromptAuthoring, StepEvaluation, StepFinalSelection, StepReport}
}

// IsValid returns true if the step lies within 1..TotalSteps.
func (s Step) IsValid() bool {
	return s >= 1 && s <= TotalSteps
}

// Key returns the machine-readable name of the step.
func (s Step) Key() string {
	switch s {
	case StepAutoTranslate:
		return "auto_translate"
	case StepPromptAuthoring:
		return "prompt_authoring"
	case StepEvaluation:
		return "evaluation"
	case StepFinalSelection:
		return "final_selection"
	case StepReport:
		return "report"
	default:
		return "step_" + strconv.Itoa(int(s))
	}
}

// Label returns a human-readable representation of the step.
func (s Step) Label() string {
	switch s {
	case StepAutoTranslate:
		return "Auto Translation"
	case StepPromptAuthoring:
		return "Prompt Authoring"
	case StepEvaluation:
		return "Prompt Evaluation"
	case StepFinalSelection:
		return "Final Selection"
	case StepReport:
		return "Report"
	default:
		return "Step " + strconv.Itoa(int(s))
	}
}

// ParseStep parses a step number or key.
func ParseStep(s string) (Step, error) {
	if n, err := strconv.Atoi(s); err == nil {
		step := Step(n)
		if !step.IsValid() {
			return 0, ErrInvalidStep
		}
		return step, nil
	}
	for _, step := range AllSteps() {
		if step.Key() == s {
			return step, nil
		}
	}
	return 0, ErrInvalidStep
}
