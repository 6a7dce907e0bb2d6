package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/runoshun/promptbench/internal/domain"
)

// Colors defines the color palette for the TUI.
var Colors = struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Muted     lipgloss.Color
	Error     lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color

	TitleNormal   lipgloss.Color
	TitleSelected lipgloss.Color

	// Status colors
	Pending    lipgloss.Color
	InProgress lipgloss.Color
	Completed  lipgloss.Color
	Cancelled  lipgloss.Color
}{
	Primary:   lipgloss.Color("#6C5CE7"), // Purple
	Secondary: lipgloss.Color("#A29BFE"), // Lavender
	Muted:     lipgloss.Color("#636E72"), // Gray
	Error:     lipgloss.Color("#D63031"), // Red
	Success:   lipgloss.Color("#00B894"), // Green
	Warning:   lipgloss.Color("#FDCB6E"), // Yellow

	TitleNormal:   lipgloss.Color("#DFE6E9"), // Light gray
	TitleSelected: lipgloss.Color("#FFEAA7"), // Yellow (selected)

	Pending:    lipgloss.Color("#74B9FF"), // Light blue
	InProgress: lipgloss.Color("#FDCB6E"), // Yellow
	Completed:  lipgloss.Color("#00B894"), // Green
	Cancelled:  lipgloss.Color("#636E72"), // Gray
}

// Styles contains all the lipgloss styles for the TUI.
type Styles struct {
	App        lipgloss.Style
	Header     lipgloss.Style
	HeaderText lipgloss.Style
	Subtle     lipgloss.Style

	ItemNormal   lipgloss.Style
	ItemSelected lipgloss.Style
	Cursor       lipgloss.Style

	StepCompleted lipgloss.Style
	StepCurrent   lipgloss.Style
	StepPending   lipgloss.Style

	StatusPending    lipgloss.Style
	StatusInProgress lipgloss.Style
	StatusCompleted  lipgloss.Style
	StatusCancelled  lipgloss.Style

	Like    lipgloss.Style
	Dislike lipgloss.Style

	Dialog      lipgloss.Style
	DialogTitle lipgloss.Style

	Footer   lipgloss.Style
	ErrorMsg lipgloss.Style
	Notice   lipgloss.Style
}

// DefaultStyles returns the default styles for the TUI.
func DefaultStyles() Styles {
	return Styles{
		App: lipgloss.NewStyle().
			Padding(1, 2),

		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(Colors.Primary).
			MarginBottom(1),

		HeaderText: lipgloss.NewStyle().
			Bold(true),

		Subtle: lipgloss.NewStyle().
			Foreground(Colors.Muted),

		ItemNormal: lipgloss.NewStyle().
			Foreground(Colors.TitleNormal),

		ItemSelected: lipgloss.NewStyle().
			Bold(true).
			Foreground(Colors.TitleSelected),

		Cursor: lipgloss.NewStyle().
			Foreground(Colors.Primary).
			Bold(true),

		StepCompleted: lipgloss.NewStyle().
			Foreground(Colors.Success),

		StepCurrent: lipgloss.NewStyle().
			Foreground(Colors.Warning).
			Bold(true),

		StepPending: lipgloss.NewStyle().
			Foreground(Colors.Muted),

		StatusPending: lipgloss.NewStyle().
			Foreground(Colors.Pending),

		StatusInProgress: lipgloss.NewStyle().
			Foreground(Colors.InProgress),

		StatusCompleted: lipgloss.NewStyle().
			Foreground(Colors.Completed),

		StatusCancelled: lipgloss.NewStyle().
			Foreground(Colors.Cancelled),

		Like: lipgloss.NewStyle().
			Foreground(Colors.Success),

		Dislike: lipgloss.NewStyle().
			Foreground(Colors.Error),

		Dialog: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Colors.Primary).
			Padding(1, 2),

		DialogTitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(Colors.Primary),

		Footer: lipgloss.NewStyle().
			MarginTop(1).
			Foreground(Colors.Muted),

		ErrorMsg: lipgloss.NewStyle().
			Foreground(Colors.Error),

		Notice: lipgloss.NewStyle().
			Foreground(Colors.Success),
	}
}

// StatusStyle returns the style for a task status.
func (s Styles) StatusStyle(status domain.TaskStatus) lipgloss.Style {
	switch status {
	case domain.StatusPending:
		return s.StatusPending
	case domain.StatusInProgress:
		return s.StatusInProgress
	case domain.StatusCompleted:
		return s.StatusCompleted
	case domain.StatusCancelled:
		return s.StatusCancelled
	default:
		return s.Subtle
	}
}

// StepStyle returns the style for a step state.
func (s Styles) StepStyle(state domain.StepState) lipgloss.Style {
	switch state {
	case domain.StepCompleted:
		return s.StepCompleted
	case domain.StepCurrent:
		return s.StepCurrent
	default:
		return s.StepPending
	}
}

// StepIcon returns the marker drawn in front of a step.
func StepIcon(state domain.StepState) string {
	switch state {
	case domain.StepCompleted:
		return "✓"
	case domain.StepCurrent:
		return "▶"
	default:
		return "○"
	}
}
