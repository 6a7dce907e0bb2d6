package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/runoshun/promptbench/internal/app"
	"github.com/runoshun/promptbench/internal/domain"
	"github.com/runoshun/promptbench/internal/usecase"
)

// progressStep is how much +/- change the progress of the current step.
const progressStep = 10

// Model is the main bubbletea model for the TUI.
type Model struct {
	// Dependencies (pointers first for alignment)
	container *app.Container
	err       error

	// State
	tasks  []domain.Task
	notice string

	// Components
	keys   KeyMap
	styles Styles
	help   help.Model
	bar    progress.Model

	// Numeric state (smaller types last)
	mode          Mode
	prevMode      Mode
	confirmAction ConfirmAction
	width         int
	height        int
	taskCursor    int
	stepCursor    int
	promptCursor  int
}

// New creates a new TUI Model with the given container.
// It opens on the step navigator when a task is current.
func New(c *app.Container) *Model {
	m := &Model{
		container: c,
		mode:      ModeTasks,
		keys:      DefaultKeyMap(),
		styles:    DefaultStyles(),
		help:      help.New(),
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
	if c.Workflow.CurrentTask() != nil {
		m.mode = ModeSteps
		m.stepCursor = int(c.Workflow.CurrentStep()) - 1
	}
	return m
}

// Run starts the TUI program.
func Run(c *app.Container) error {
	p := tea.NewProgram(New(c), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init initializes the model and returns the initial command.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadTasks()}
	if t := m.container.Workflow.CurrentTask(); t != nil {
		cmds = append(cmds, m.loadSession(t.ID))
	}
	return tea.Batch(cmds...)
}

// loadTasks returns a command that reads the cached catalog.
func (m *Model) loadTasks() tea.Cmd {
	return func() tea.Msg {
		return MsgTasksLoaded{Tasks: m.container.Catalog.Tasks()}
	}
}

// loadSession returns a command that loads the stored progress of taskID.
func (m *Model) loadSession(taskID string) tea.Cmd {
	return func() tea.Msg {
		wf := m.container.Workflow
		if !wf.LoadProgress(context.Background(), taskID) {
			if err := wf.Err(); err != nil && !errors.Is(err, domain.ErrBridgeUnavailable) {
				return MsgError{Err: err}
			}
		}
		return MsgSessionLoaded{TaskID: taskID}
	}
}

// startTask returns a command that makes taskID the current task.
func (m *Model) startTask(taskID string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		out, err := m.container.StartTaskUseCase().Execute(ctx, usecase.StartTaskInput{
			TaskID:         taskID,
			MarkInProgress: true,
		})
		if err != nil {
			return MsgError{Err: err}
		}
		if !out.Resumed && !m.container.Workflow.SaveProgress(ctx) {
			return MsgError{Err: fmt.Errorf("save progress: %w", m.container.Workflow.Err())}
		}
		return MsgTaskStarted{TaskID: out.Task.ID, Resumed: out.Resumed, StatusErr: out.StatusErr}
	}
}

// saveProgress returns a command that saves the workflow state.
func (m *Model) saveProgress() tea.Cmd {
	return func() tea.Msg {
		wf := m.container.Workflow
		if !wf.SaveProgress(context.Background()) {
			return MsgError{Err: wf.Err()}
		}
		return MsgProgressSaved{TaskID: wf.CurrentTask().ID}
	}
}

// clearProgress returns a command that deletes the saved progress of the current task.
func (m *Model) clearProgress() tea.Cmd {
	return func() tea.Msg {
		wf := m.container.Workflow
		task := wf.CurrentTask()
		if task == nil {
			return MsgError{Err: domain.ErrNoCurrentTask}
		}
		if !wf.ClearProgress(context.Background(), task.ID) {
			return MsgError{Err: wf.Err()}
		}
		return MsgProgressCleared{TaskID: task.ID}
	}
}

// SelectedTask returns the task under the cursor, or nil if none.
func (m *Model) SelectedTask() *domain.Task {
	if m.taskCursor < 0 || m.taskCursor >= len(m.tasks) {
		return nil
	}
	return &m.tasks[m.taskCursor]
}

// SelectedPrompt returns the prompt under the cursor.
func (m *Model) SelectedPrompt() (domain.Prompt, bool) {
	prompts := m.container.Workflow.Prompts()
	if m.promptCursor < 0 || m.promptCursor >= len(prompts) {
		return domain.Prompt{}, false
	}
	return prompts[m.promptCursor], true
}
