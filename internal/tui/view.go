package tui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/runoshun/promptbench/internal/domain"
)

// Column widths for list rows.
const (
	taskTitleWidth  = 48
	promptTextWidth = 56
)

// View renders the TUI.
func (m *Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var content string
	switch m.mode {
	case ModeHelp:
		content = m.viewHelp()
	case ModeTasks, ModeSteps, ModePrompts, ModeConfirm:
		content = m.viewMain()
	}

	return m.styles.App.Render(content)
}

// viewMain renders the active pane with header and footer.
func (m *Model) viewMain() string {
	var b strings.Builder

	b.WriteString(m.viewHeader())
	b.WriteString("\n")

	pane := m.mode
	if pane == ModeConfirm {
		pane = m.prevMode
	}
	switch pane {
	case ModeTasks:
		b.WriteString(m.viewTaskList())
	case ModePrompts:
		b.WriteString(m.viewSteps())
		b.WriteString("\n")
		b.WriteString(m.viewPrompts())
	case ModeSteps, ModeConfirm, ModeHelp:
		b.WriteString(m.viewSteps())
	}

	if m.mode == ModeConfirm {
		b.WriteString("\n")
		b.WriteString(m.viewConfirmDialog())
	}

	b.WriteString("\n")
	b.WriteString(m.viewFooter())
	return b.String()
}

func (m *Model) viewHeader() string {
	title := m.styles.Header.Render("promptbench")
	task := m.container.Workflow.CurrentTask()
	if task == nil {
		return title + "\n" + m.styles.Subtle.Render("No task in progress")
	}
	line := m.styles.HeaderText.Render(task.ID) + "  " + runewidth.Truncate(task.Title, taskTitleWidth, "...")
	return title + "\n" + line
}

func (m *Model) viewTaskList() string {
	if len(m.tasks) == 0 {
		return m.styles.Subtle.Render("No tasks loaded. Run 'promptbench tasks load <url>'.") + "\n"
	}

	var b strings.Builder
	for i := range m.tasks {
		b.WriteString(m.renderTaskItem(&m.tasks[i], i == m.taskCursor))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderTaskItem(task *domain.Task, selected bool) string {
	cursor := "  "
	titleStyle := m.styles.ItemNormal
	if selected {
		cursor = m.styles.Cursor.Render("> ")
		titleStyle = m.styles.ItemSelected
	}
	status := m.styles.StatusStyle(task.Status).Render(fmt.Sprintf("%-12s", task.Status))
	title := runewidth.Truncate(task.Title, taskTitleWidth, "...")
	return fmt.Sprintf("%s%-10s %s %s", cursor, task.ID, status, titleStyle.Render(title))
}

// viewSteps renders the overall bar and the five-step navigator.
func (m *Model) viewSteps() string {
	p := m.container.Workflow.Projection()

	var b strings.Builder
	b.WriteString(m.bar.ViewAs(p.Overall / 100))
	b.WriteString("\n\n")

	for i, s := range p.Steps {
		style := m.styles.StepStyle(s.Status)
		cursor := "  "
		if m.mode == ModeSteps && i == m.stepCursor {
			cursor = m.styles.Cursor.Render("> ")
		}
		fmt.Fprintf(&b, "%s%s %s %3d%%\n",
			cursor,
			style.Render(StepIcon(s.Status)),
			style.Render(fmt.Sprintf("%d. %-18s", s.Step, s.Label)),
			s.Percent,
		)
	}
	return b.String()
}

func (m *Model) viewPrompts() string {
	wf := m.container.Workflow
	prompts := wf.Prompts()
	if len(prompts) == 0 {
		return m.styles.Subtle.Render("No prompts yet. Run 'promptbench prompt add'.") + "\n"
	}

	selectedID := wf.SelectedPrompt()
	var b strings.Builder
	for i, p := range prompts {
		cursor := "  "
		textStyle := m.styles.ItemNormal
		if i == m.promptCursor {
			cursor = m.styles.Cursor.Render("> ")
			textStyle = m.styles.ItemSelected
		}
		mark := " "
		if p.ID == selectedID {
			mark = "*"
		}
		fmt.Fprintf(&b, "%s%s %-4s %s %s %s\n",
			cursor, mark, p.ID,
			m.renderRating(p.Rating),
			renderScore(p.QualityScore),
			textStyle.Render(runewidth.Truncate(strings.Join(strings.Fields(p.Text), " "), promptTextWidth, "...")),
		)
	}
	return b.String()
}

func (m *Model) renderRating(r *domain.Rating) string {
	if r == nil {
		return m.styles.Subtle.Render("-      ")
	}
	switch *r {
	case domain.RatingLike:
		return m.styles.Like.Render("like   ")
	case domain.RatingDislike:
		return m.styles.Dislike.Render("dislike")
	}
	return fmt.Sprintf("%-7s", *r)
}

func renderScore(score *float64) string {
	if score == nil {
		return "   -"
	}
	return fmt.Sprintf("%4.1f", *score)
}

func (m *Model) viewConfirmDialog() string {
	var msg string
	switch m.confirmAction {
	case ConfirmClearProgress:
		msg = "Delete the saved progress of this task?"
	case ConfirmRemovePrompt:
		if p, ok := m.SelectedPrompt(); ok {
			msg = fmt.Sprintf("Remove prompt %s?", p.ID)
		}
	case ConfirmNone:
	}

	content := m.styles.DialogTitle.Render(m.confirmAction.String()) + "\n\n" +
		msg + "\n\n" +
		m.styles.Subtle.Render("y: confirm  any other key: cancel")
	return m.styles.Dialog.Render(content)
}

func (m *Model) viewFooter() string {
	var b strings.Builder
	if m.err != nil {
		b.WriteString(m.styles.ErrorMsg.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	} else if m.notice != "" {
		b.WriteString(m.styles.Notice.Render(m.notice))
		b.WriteString("\n")
	}
	b.WriteString(m.styles.Footer.Render(m.help.ShortHelpView(m.keys.ShortHelp())))
	return b.String()
}

func (m *Model) viewHelp() string {
	var b strings.Builder
	b.WriteString(m.styles.Header.Render("Keybindings"))
	b.WriteString("\n")
	b.WriteString(m.help.FullHelpView(m.keys.FullHelp()))
	b.WriteString("\n\n")
	b.WriteString(m.styles.Subtle.Render("Press any key to return"))
	return b.String()
}
