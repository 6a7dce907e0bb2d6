package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/runoshun/promptbench/internal/domain"
)

const logCategory = "workflow"

// SaveProgress forwards a snapshot of the whole state to the progress store,
// keyed by the current task. Failures are logged, kept in Err, and reported as false.
// If the current task changes while the save waits for its slot, the save
// follows the new task so a snapshot is only ever stored under its own task ID.
func (c *Container) SaveProgress(ctx context.Context) bool {
	taskID := c.currentTaskID()
	if taskID == "" {
		c.fail("", "save progress", domain.ErrNoCurrentTask)
		return false
	}
	if c.progress == nil {
		c.fail(taskID, "save progress", domain.ErrBridgeUnavailable)
		return false
	}

	for {
		release, err := c.queue.acquire(ctx, taskID)
		if err != nil {
			c.fail(taskID, "save progress", err)
			return false
		}

		// Snapshot after acquiring so a queued save writes the latest state.
		c.mu.RLock()
		var current string
		if c.state.CurrentTask != nil {
			current = c.state.CurrentTask.ID
		}
		snap := &domain.Snapshot{
			WorkflowState: c.state.Clone(),
			SavedAt:       c.clock.Now(),
			Version:       domain.SnapshotVersion,
		}
		c.mu.RUnlock()

		if current != taskID {
			release()
			if current == "" {
				c.fail(taskID, "save progress", domain.ErrNoCurrentTask)
				return false
			}
			c.logger.Debug(taskID, logCategory, "current task changed to "+current+" while queued")
			taskID = current
			continue
		}

		err = c.progress.SaveProgress(ctx, taskID, snap)
		release()
		if err != nil {
			c.fail(taskID, "save progress", err)
			return false
		}

		c.setErr(nil)
		c.logger.Debug(taskID, logCategory, fmt.Sprintf("progress saved (step %d, %d prompts)", snap.CurrentStep, len(snap.Prompts)))
		return true
	}
}

func (c *Container) currentTaskID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state.CurrentTask == nil {
		return ""
	}
	return c.state.CurrentTask.ID
}

// LoadProgress replaces the in-memory state with the stored snapshot of taskID.
// Returns false when nothing is stored or the store failed; only failures set Err.
func (c *Container) LoadProgress(ctx context.Context, taskID string) bool {
	if c.progress == nil {
		c.fail(taskID, "load progress", domain.ErrBridgeUnavailable)
		return false
	}

	release, err := c.queue.acquire(ctx, taskID)
	if err != nil {
		c.fail(taskID, "load progress", err)
		return false
	}
	defer release()

	snap, err := c.progress.GetProgress(ctx, taskID)
	if err != nil {
		if errors.Is(err, domain.ErrProgressNotFound) {
			c.logger.Debug(taskID, logCategory, "no stored progress")
			return false
		}
		c.fail(taskID, "load progress", err)
		return false
	}

	state := normalize(snap.WorkflowState)
	if state.CurrentTask == nil || state.CurrentTask.ID != taskID {
		c.logger.Warn(taskID, logCategory, "stored snapshot names another task; keyed to "+taskID)
	}
	c.mu.Lock()
	state.CurrentTask = taskFor(taskID, state.CurrentTask, c.state.CurrentTask)
	c.state = state
	c.err = nil
	c.mu.Unlock()

	c.persistDurable()
	c.logger.Info(taskID, logCategory, fmt.Sprintf("progress loaded (step %d, %d prompts)", state.CurrentStep, len(state.Prompts)))
	return true
}

// ClearProgress deletes the stored snapshot of taskID, then resets the step-scoped
// fields whether or not the delete succeeded. The current task and session start are kept.
func (c *Container) ClearProgress(ctx context.Context, taskID string) bool {
	ok := true
	switch {
	case c.progress == nil:
		c.fail(taskID, "clear progress", domain.ErrBridgeUnavailable)
		ok = false
	default:
		release, err := c.queue.acquire(ctx, taskID)
		if err != nil {
			c.fail(taskID, "clear progress", err)
			ok = false
			break
		}
		if err := c.progress.ClearProgress(ctx, taskID); err != nil {
			c.fail(taskID, "clear progress", err)
			ok = false
		}
		release()
	}

	c.mu.Lock()
	fresh := domain.NewWorkflowState()
	fresh.CurrentTask = c.state.CurrentTask
	fresh.SessionStartTime = c.state.SessionStartTime
	c.state = fresh
	if ok {
		c.err = nil
	}
	c.mu.Unlock()

	c.persistDurable()
	if ok {
		c.logger.Info(taskID, logCategory, "progress cleared")
	}
	return ok
}

// Restore loads the durable subset written by a previous process.
// A missing entry leaves the state untouched.
func (c *Container) Restore() error {
	if c.kv == nil {
		return nil
	}

	raw, found, err := c.kv.Get(c.storageKey)
	if err != nil {
		err = fmt.Errorf("read durable state: %w", err)
		c.fail("", "restore", err)
		return err
	}
	if !found {
		return nil
	}

	var d domain.DurableState
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		err = fmt.Errorf("parse durable state: %w", err)
		c.fail("", "restore", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.CurrentTask = d.CurrentTask
	if d.CurrentStep != 0 {
		c.state.CurrentStep = d.CurrentStep
	}
	if d.Progress != nil {
		c.state.Progress = d.Progress
	}
	c.state.SessionStartTime = d.SessionStartTime
	return nil
}

// persistDurable writes the durable subset to the key-value store, retrying once.
func (c *Container) persistDurable() {
	if c.kv == nil {
		return
	}

	// kvMu orders writes so the last writer always stores the latest state.
	c.kvMu.Lock()
	defer c.kvMu.Unlock()

	c.mu.RLock()
	d := c.state.Durable()
	c.mu.RUnlock()

	data, err := json.Marshal(d)
	if err != nil {
		c.fail("", "persist durable state", err)
		return
	}

	err = c.kv.Set(c.storageKey, string(data))
	if err != nil {
		err = c.kv.Set(c.storageKey, string(data))
	}
	if err != nil {
		c.fail("", "persist durable state", err)
	}
}

// fail records err as the last collaborator error and logs it.
func (c *Container) fail(taskID, op string, err error) {
	wrapped := fmt.Errorf("%s: %w", op, err)
	c.setErr(wrapped)
	c.logger.Error(taskID, logCategory, wrapped.Error())
}

func (c *Container) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// taskFor picks the task summary of a snapshot loaded under taskID.
// The stored summary wins when it belongs to taskID and is complete; otherwise the
// in-memory summary of the same task, and as a last resort a bare summary.
func taskFor(taskID string, loaded, current *domain.TaskSummary) *domain.TaskSummary {
	if loaded != nil && loaded.ID == taskID && loaded.Title != "" {
		return loaded
	}
	if current != nil && current.ID == taskID {
		return current.Clone()
	}
	if loaded != nil && loaded.ID == taskID {
		return loaded
	}
	return &domain.TaskSummary{ID: taskID}
}

// normalize fills nil collections of a loaded state.
func normalize(s domain.WorkflowState) domain.WorkflowState {
	s = s.Clone()
	if len(s.Progress) == 0 {
		s.Progress = map[domain.Step]int{}
	}
	if s.CurrentStep == 0 {
		s.CurrentStep = domain.StepAutoTranslate
	}
	if _, ok := s.Progress[s.CurrentStep]; !ok {
		s.Progress[s.CurrentStep] = 0
	}
	return s
}
