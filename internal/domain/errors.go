package domain

import "errors"

// Domain errors.
var (
	ErrTaskNotFound          = errors.New("task not found")
	ErrPromptNotFound        = errors.New("prompt not found")
	ErrInvalidStep           = errors.New("invalid step")
	ErrNoCurrentTask         = errors.New("no current task")
	ErrProgressNotFound      = errors.New("progress not found")
	ErrNoSpreadsheet         = errors.New("no spreadsheet loaded")
	ErrInvalidSpreadsheetURL = errors.New("invalid spreadsheet url")
	ErrBridgeUnavailable     = errors.New("service not available in this runtime")
	ErrInvalidStatus         = errors.New("invalid status")
	ErrInvalidRating         = errors.New("invalid rating")
	ErrNotInitialized        = errors.New("promptbench not initialized (run 'promptbench init' first)")
	ErrAlreadyInitialized    = errors.New("promptbench already initialized")
	ErrConfigExists          = errors.New("config file already exists")
	ErrInvalidSnapshot       = errors.New("invalid snapshot")
	ErrNoPrompts             = errors.New("no prompts")
	ErrNoSelectedPrompt      = errors.New("no prompt selected")
	ErrEmptyPromptText       = errors.New("prompt text cannot be empty")
	ErrNoFieldsToUpdate      = errors.New("no fields to update")
	ErrNoReport              = errors.New("no final report generated")
)
