package domain

// StepState is the display status of a step.
type StepState string

const (
	StepCompleted StepState = "completed"
	StepCurrent   StepState = "current"
	StepPending   StepState = "pending"
)

// StepStatus is one row of the step navigator.
type StepStatus struct {
	Label   string    `json:"label"`
	Status  StepState `json:"status"`
	Step    Step      `json:"step"`
	Percent int       `json:"percent"`
}

// ProgressProjection is the display-ready view of workflow progress.
type ProgressProjection struct {
	Steps   []StepStatus `json:"steps"`
	Overall float64      `json:"overall"`
}

// ProjectProgress derives the overall completion percentage and per-step status.
//
// overall = ((current-1)/total)*100 + (progress[current]/100)*(1/total)*100, clamped to [0,100].
func ProjectProgress(current Step, total int, progress map[Step]int) ProgressProjection {
	if total <= 0 {
		return ProgressProjection{}
	}

	currentPct := clampPercent(progress[current])
	overall := float64(current-1)/float64(total)*100 +
		float64(currentPct)/100*(1/float64(total))*100
	overall = min(max(overall, 0), 100)

	steps := make([]StepStatus, 0, total)
	for i := 1; i <= total; i++ {
		s := Step(i)
		st := StepStatus{Step: s, Label: s.Label()}
		switch {
		case s < current:
			st.Status = StepCompleted
			st.Percent = 100
		case s == current:
			st.Status = StepCurrent
			st.Percent = currentPct
		default:
			st.Status = StepPending
			st.Percent = clampPercent(progress[s])
		}
		steps = append(steps, st)
	}

	return ProgressProjection{Overall: overall, Steps: steps}
}

func clampPercent(p int) int {
	return min(max(p, 0), 100)
}
