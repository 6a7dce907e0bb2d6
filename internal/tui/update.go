package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/runoshun/promptbench/internal/domain"
)

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.bar.Width = min(max(msg.Width-20, 10), 60)
		return m, nil

	case MsgTasksLoaded:
		m.tasks = msg.Tasks
		m.taskCursor = min(m.taskCursor, max(len(m.tasks)-1, 0))
		return m, nil

	case MsgSessionLoaded:
		m.syncCursors()
		return m, nil

	case MsgTaskStarted:
		m.err = msg.StatusErr
		m.mode = ModeSteps
		m.syncCursors()
		if msg.Resumed {
			m.notice = fmt.Sprintf("Resumed task %s", msg.TaskID)
		} else {
			m.notice = fmt.Sprintf("Started task %s", msg.TaskID)
		}
		return m, m.loadTasks()

	case MsgProgressSaved:
		m.notice = "Progress saved"
		return m, nil

	case MsgProgressCleared:
		m.mode = ModeSteps
		m.confirmAction = ConfirmNone
		m.syncCursors()
		m.notice = "Saved progress cleared"
		return m, nil

	case MsgError:
		m.err = msg.Err
		return m, nil
	}

	return m, nil
}

// syncCursors clamps the cursors to the current workflow state.
func (m *Model) syncCursors() {
	m.stepCursor = int(m.container.Workflow.CurrentStep()) - 1
	n := len(m.container.Workflow.Prompts())
	m.promptCursor = min(m.promptCursor, max(n-1, 0))
}

// handleKeyMsg handles keyboard input.
func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Errors and notices are cleared by the next key press.
	m.err = nil
	m.notice = ""

	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.mode {
	case ModeHelp:
		m.mode = m.prevMode
		return m, nil
	case ModeConfirm:
		return m.handleConfirmMode(msg)
	case ModeTasks:
		return m.handleTasksMode(msg)
	case ModeSteps:
		return m.handleStepsMode(msg)
	case ModePrompts:
		return m.handlePromptsMode(msg)
	}
	return m, nil
}

// handleCommonKeys handles keys shared by the navigation modes.
func (m *Model) handleCommonKeys(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit, true
	case key.Matches(msg, m.keys.Help):
		m.prevMode = m.mode
		m.mode = ModeHelp
		return nil, true
	case key.Matches(msg, m.keys.Refresh):
		return m.loadTasks(), true
	}
	return nil, false
}

func (m *Model) handleTasksMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if cmd, ok := m.handleCommonKeys(msg); ok {
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.taskCursor > 0 {
			m.taskCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.taskCursor < len(m.tasks)-1 {
			m.taskCursor++
		}
	case key.Matches(msg, m.keys.Enter):
		if task := m.SelectedTask(); task != nil {
			return m, m.startTask(task.ID)
		}
	case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Tab):
		if m.container.Workflow.CurrentTask() != nil {
			m.mode = ModeSteps
		}
	}
	return m, nil
}

func (m *Model) handleStepsMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if cmd, ok := m.handleCommonKeys(msg); ok {
		return m, cmd
	}
	wf := m.container.Workflow

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.stepCursor > 0 {
			m.stepCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.stepCursor < domain.TotalSteps-1 {
			m.stepCursor++
		}
	case key.Matches(msg, m.keys.Enter):
		return m, m.moveToStep(domain.Step(m.stepCursor + 1))
	case key.Matches(msg, m.keys.Next):
		if cur := wf.CurrentStep(); cur < domain.TotalSteps {
			return m, m.moveToStep(cur + 1)
		}
	case key.Matches(msg, m.keys.Prev):
		if cur := wf.CurrentStep(); cur > 1 {
			return m, m.moveToStep(cur - 1)
		}
	case key.Matches(msg, m.keys.Increase):
		return m, m.adjustProgress(progressStep)
	case key.Matches(msg, m.keys.Decrease):
		return m, m.adjustProgress(-progressStep)
	case key.Matches(msg, m.keys.Save):
		return m, m.saveProgress()
	case key.Matches(msg, m.keys.Clear):
		m.confirmAction = ConfirmClearProgress
		m.prevMode = m.mode
		m.mode = ModeConfirm
	case key.Matches(msg, m.keys.Tab):
		m.mode = ModePrompts
	case key.Matches(msg, m.keys.Tasks), key.Matches(msg, m.keys.Escape):
		m.mode = ModeTasks
	}
	return m, nil
}

// moveToStep makes step current and saves.
func (m *Model) moveToStep(step domain.Step) tea.Cmd {
	if err := m.container.Workflow.SetCurrentStep(step); err != nil {
		m.err = err
		return nil
	}
	m.stepCursor = int(step) - 1
	return m.saveProgress()
}

// adjustProgress changes the progress of the current step by delta and saves.
func (m *Model) adjustProgress(delta int) tea.Cmd {
	wf := m.container.Workflow
	step := wf.CurrentStep()
	wf.UpdateProgress(map[domain.Step]int{step: wf.Progress()[step] + delta})
	return m.saveProgress()
}

func (m *Model) handlePromptsMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if cmd, ok := m.handleCommonKeys(msg); ok {
		return m, cmd
	}
	wf := m.container.Workflow
	prompt, hasPrompt := m.SelectedPrompt()

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.promptCursor > 0 {
			m.promptCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.promptCursor < len(wf.Prompts())-1 {
			m.promptCursor++
		}
	case key.Matches(msg, m.keys.Like), key.Matches(msg, m.keys.Dislike):
		if !hasPrompt {
			return m, nil
		}
		rating := domain.RatingLike
		if key.Matches(msg, m.keys.Dislike) {
			rating = domain.RatingDislike
		}
		if err := wf.UpdateEvaluation(prompt.ID, domain.EvaluationUpdate{Rating: &rating}); err != nil {
			m.err = err
			return m, nil
		}
		return m, m.saveProgress()
	case key.Matches(msg, m.keys.Select):
		if !hasPrompt {
			return m, nil
		}
		id := prompt.ID
		if wf.SelectedPrompt() == id {
			id = ""
		}
		if err := wf.SetSelectedPrompt(id); err != nil {
			m.err = err
			return m, nil
		}
		return m, m.saveProgress()
	case key.Matches(msg, m.keys.Delete):
		if hasPrompt {
			m.confirmAction = ConfirmRemovePrompt
			m.prevMode = m.mode
			m.mode = ModeConfirm
		}
	case key.Matches(msg, m.keys.Save):
		return m, m.saveProgress()
	case key.Matches(msg, m.keys.Tab), key.Matches(msg, m.keys.Escape):
		m.mode = ModeSteps
	case key.Matches(msg, m.keys.Tasks):
		m.mode = ModeTasks
	}
	return m, nil
}

func (m *Model) handleConfirmMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	action := m.confirmAction
	m.confirmAction = ConfirmNone
	m.mode = m.prevMode

	if !key.Matches(msg, m.keys.Confirm) {
		return m, nil
	}

	switch action {
	case ConfirmNone:
		return m, nil
	case ConfirmClearProgress:
		return m, m.clearProgress()
	case ConfirmRemovePrompt:
		prompt, ok := m.SelectedPrompt()
		if !ok {
			return m, nil
		}
		if err := m.container.Workflow.RemovePrompt(prompt.ID); err != nil {
			m.err = err
			return m, nil
		}
		m.syncCursors()
		return m, m.saveProgress()
	}
	return m, nil
}
