package tui

import "github.com/runoshun/promptbench/internal/domain"

// Msg is the sealed interface for all TUI messages.
//
// go-sumtype:decl Msg
type Msg interface {
	sealed()
}

// MsgTasksLoaded is sent when the catalog tasks are read.
type MsgTasksLoaded struct {
	Tasks []domain.Task
}

func (MsgTasksLoaded) sealed() {}

// MsgSessionLoaded is sent when the stored progress of the current task is loaded.
type MsgSessionLoaded struct {
	TaskID string
}

func (MsgSessionLoaded) sealed() {}

// MsgTaskStarted is sent when a task becomes the current task.
type MsgTaskStarted struct {
	StatusErr error
	TaskID    string
	Resumed   bool
}

func (MsgTaskStarted) sealed() {}

// MsgProgressSaved is sent when the workflow state has been saved.
type MsgProgressSaved struct {
	TaskID string
}

func (MsgProgressSaved) sealed() {}

// MsgProgressCleared is sent when the saved progress has been deleted.
type MsgProgressCleared struct {
	TaskID string
}

func (MsgProgressCleared) sealed() {}

// MsgError is sent when an error occurs.
type MsgError struct {
	Err error
}

func (MsgError) sealed() {}
