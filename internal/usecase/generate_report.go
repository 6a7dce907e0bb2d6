package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/promptbench/internal/domain"
	"github.com/runoshun/promptbench/internal/workflow"
)

// GenerateReportInput contains the free-text parts of the report.
type GenerateReportInput struct {
	Summary string
	Notes   string
	Save    bool // Save progress after generating
}

// GenerateReportOutput contains the generated report.
type GenerateReportOutput struct {
	Report *domain.FinalReport
	Saved  bool
}

// GenerateReport builds the final report from the selected prompt and the
// evaluations, and moves the workflow to the report step.
type GenerateReport struct {
	workflow *workflow.Container
	clock    domain.Clock
}

// NewGenerateReport creates a new GenerateReport use case.
func NewGenerateReport(wf *workflow.Container, clock domain.Clock) *GenerateReport {
	return &GenerateReport{workflow: wf, clock: clock}
}

// Execute generates the report.
// Returns ErrNoCurrentTask or ErrNoSelectedPrompt when the workflow is not ready.
func (uc *GenerateReport) Execute(ctx context.Context, in GenerateReportInput) (*GenerateReportOutput, error) {
	task := uc.workflow.CurrentTask()
	if task == nil {
		return nil, domain.ErrNoCurrentTask
	}
	selectedID := uc.workflow.SelectedPrompt()
	if selectedID == "" {
		return nil, domain.ErrNoSelectedPrompt
	}
	selected, ok := uc.workflow.PromptByID(selectedID)
	if !ok {
		return nil, fmt.Errorf("selected prompt %s: %w", selectedID, domain.ErrPromptNotFound)
	}

	report := &domain.FinalReport{
		GeneratedAt:        uc.clock.Now(),
		TaskID:             task.ID,
		TaskTitle:          task.Title,
		SelectedPromptID:   selected.ID,
		SelectedPromptText: selected.Text,
		Summary:            in.Summary,
		Notes:              in.Notes,
		SessionDuration:    uc.workflow.SessionDuration(),
		TotalPrompts:       len(uc.workflow.Prompts()),
	}
	if selected.Translation != nil {
		report.SelectedTranslation = *selected.Translation
	}
	for range uc.workflow.LikedPrompts() {
		report.LikedCount++
	}
	for range uc.workflow.DislikedPrompts() {
		report.DislikedCount++
	}
	if avg, ok := uc.workflow.AverageQualityScore(); ok {
		report.AverageScore = &avg
	}

	uc.workflow.SetFinalReport(report)
	if err := uc.workflow.SetCurrentStep(domain.StepReport); err != nil {
		return nil, err
	}
	uc.workflow.UpdateProgress(map[domain.Step]int{domain.StepReport: 100})

	out := &GenerateReportOutput{Report: uc.workflow.FinalReport()}
	if in.Save {
		out.Saved = uc.workflow.SaveProgress(ctx)
		if !out.Saved {
			return out, fmt.Errorf("save progress: %w", uc.workflow.Err())
		}
	}
	return out, nil
}
