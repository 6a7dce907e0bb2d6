// Package tui provides the terminal step navigator for promptbench.
package tui

// Mode represents the current UI mode.
type Mode int

const (
	ModeTasks   Mode = iota // Task picker
	ModeSteps               // Step navigator of the current task
	ModePrompts             // Prompt list of the current task
	ModeConfirm             // Confirmation dialog mode
	ModeHelp                // Help overlay mode
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeTasks:
		return "tasks"
	case ModeSteps:
		return "steps"
	case ModePrompts:
		return "prompts"
	case ModeConfirm:
		return "confirm"
	case ModeHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ConfirmAction represents the type of action requiring confirmation.
type ConfirmAction int

const (
	ConfirmNone          ConfirmAction = iota
	ConfirmClearProgress               // Delete saved progress of the current task
	ConfirmRemovePrompt                // Remove the prompt under the cursor
)

// String returns a human-readable description of the action.
func (a ConfirmAction) String() string {
	switch a {
	case ConfirmNone:
		return ""
	case ConfirmClearProgress:
		return "clear saved progress"
	case ConfirmRemovePrompt:
		return "remove prompt"
	}
	return ""
}
