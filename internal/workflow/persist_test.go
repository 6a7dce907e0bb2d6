package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/runoshun/promptbench/internal/domain"
	"github.com/runoshun/promptbench/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func populate(t *testing.T, c *Container) {
	t.Helper()
	c.SetCurrentTask(testTask())
	c.SetAutoTranslation("Hi")
	require.NoError(t, c.SetCurrentStep(domain.StepFinalSelection))
	c.UpdateProgress(map[domain.Step]int{domain.StepFinalSelection: 30})
	a := c.AddPrompt(domain.PromptInput{Text: "formal", Translation: domain.Ptr("Good day")})
	b := c.AddPrompt(domain.PromptInput{Text: "casual", Translation: domain.Ptr("Hey")})
	require.NoError(t, c.SetEvaluation(a.ID, domain.Evaluation{
		Rating:       domain.Ptr(domain.RatingLike),
		Comment:      domain.Ptr("natural"),
		QualityScore: domain.Ptr(4.5),
	}))
	require.NoError(t, c.SetEvaluation(b.ID, domain.Evaluation{Rating: domain.Ptr(domain.RatingDislike)}))
	require.NoError(t, c.SetSelectedPrompt(a.ID))
}

func TestSaveLoadProgress_RoundTrip(t *testing.T) {
	c, progress, _, _ := newTestContainer(t)
	populate(t, c)

	require.True(t, c.SaveProgress(context.Background()))
	require.NoError(t, c.Err())

	fresh := New(Deps{Progress: progress, Clock: &testutil.MockClock{NowTime: testNow}})
	require.True(t, fresh.LoadProgress(context.Background(), "T-1"))

	want := c.State()
	got := fresh.State()
	assert.Equal(t, want.CurrentStep, got.CurrentStep)
	assert.Equal(t, want.Prompts, got.Prompts)
	assert.Equal(t, want.Evaluations, got.Evaluations)
	assert.Equal(t, want.SelectedPrompt, got.SelectedPrompt)
	assert.Equal(t, want.Progress, got.Progress)
	assert.Equal(t, want.AutoTranslation, got.AutoTranslation)
	assert.Equal(t, want.CurrentTask, got.CurrentTask)
}

func TestLoadProgress_ReplacesWholesale(t *testing.T) {
	c, progress, _, _ := newTestContainer(t)
	populate(t, c)
	require.True(t, c.SaveProgress(context.Background()))

	other := New(Deps{Progress: progress, IDs: &testutil.SequenceIDs{Fixed: "local"}})
	other.AddPrompt(domain.PromptInput{Text: "unsaved"})

	require.True(t, other.LoadProgress(context.Background(), "T-1"))

	_, ok := other.PromptByID("local")
	assert.False(t, ok)
	assert.Len(t, other.Prompts(), 2)
}

func TestLoadProgress_NotFound(t *testing.T) {
	c, _, _, _ := newTestContainer(t)
	c.AddPrompt(domain.PromptInput{Text: "kept"})

	ok := c.LoadProgress(context.Background(), "missing")

	assert.False(t, ok)
	assert.NoError(t, c.Err())
	assert.Len(t, c.Prompts(), 1)
}

func TestLoadProgress_StoreError(t *testing.T) {
	c, progress, _, _ := newTestContainer(t)
	progress.GetErr = errors.New("disk on fire")

	ok := c.LoadProgress(context.Background(), "T-1")

	assert.False(t, ok)
	require.Error(t, c.Err())
	assert.Contains(t, c.Err().Error(), "disk on fire")
}

func TestSaveProgress_NoCurrentTask(t *testing.T) {
	c, progress, _, _ := newTestContainer(t)

	ok := c.SaveProgress(context.Background())

	assert.False(t, ok)
	assert.ErrorIs(t, c.Err(), domain.ErrNoCurrentTask)
	assert.Equal(t, 0, progress.SaveCalls)
}

func TestSaveProgress_StoreError(t *testing.T) {
	logger := &testutil.RecordingLogger{}
	progress := testutil.NewMockProgressStore()
	progress.SaveErr = errors.New("quota exceeded")
	c := New(Deps{Progress: progress, Logger: logger})
	c.SetCurrentTask(testTask())

	ok := c.SaveProgress(context.Background())

	assert.False(t, ok)
	require.Error(t, c.Err())
	assert.Contains(t, c.Err().Error(), "quota exceeded")
	assert.Equal(t, 1, logger.Count("ERROR"))

	progress.SaveErr = nil
	assert.True(t, c.SaveProgress(context.Background()))
	assert.NoError(t, c.Err())
}

func TestPersistence_BridgeUnavailable(t *testing.T) {
	c := New(Deps{})
	c.SetCurrentTask(testTask())

	assert.False(t, c.SaveProgress(context.Background()))
	assert.ErrorIs(t, c.Err(), domain.ErrBridgeUnavailable)

	assert.False(t, c.LoadProgress(context.Background(), "T-1"))
	assert.ErrorIs(t, c.Err(), domain.ErrBridgeUnavailable)
}

func TestClearProgress(t *testing.T) {
	c, progress, _, _ := newTestContainer(t)
	populate(t, c)
	require.True(t, c.SaveProgress(context.Background()))

	ok := c.ClearProgress(context.Background(), "T-1")

	assert.True(t, ok)
	assert.False(t, progress.Has("T-1"))
	assert.Equal(t, "T-1", c.CurrentTask().ID)
	assert.Equal(t, domain.StepAutoTranslate, c.CurrentStep())
	assert.Empty(t, c.Prompts())
	assert.Empty(t, c.Evaluations())
	assert.Empty(t, c.SelectedPrompt())
	assert.NotZero(t, c.State().SessionStartTime)
}

func TestClearProgress_ResetsEvenOnFailure(t *testing.T) {
	c, progress, _, _ := newTestContainer(t)
	populate(t, c)
	progress.ClearErr = errors.New("offline")

	ok := c.ClearProgress(context.Background(), "T-1")

	assert.False(t, ok)
	require.Error(t, c.Err())
	assert.Empty(t, c.Prompts())
	assert.Equal(t, domain.StepAutoTranslate, c.CurrentStep())
	assert.NotNil(t, c.CurrentTask())
}

func TestClearProgress_BridgeUnavailable(t *testing.T) {
	c := New(Deps{IDs: &testutil.SequenceIDs{}})
	c.AddPrompt(domain.PromptInput{Text: "a"})

	ok := c.ClearProgress(context.Background(), "T-1")

	assert.False(t, ok)
	assert.ErrorIs(t, c.Err(), domain.ErrBridgeUnavailable)
	assert.Empty(t, c.Prompts())
}

func TestRestore_DurableSubset(t *testing.T) {
	c, _, kv, _ := newTestContainer(t)
	populate(t, c)

	next := New(Deps{KV: kv})
	require.NoError(t, next.Restore())

	state := next.State()
	require.NotNil(t, state.CurrentTask)
	assert.Equal(t, "T-1", state.CurrentTask.ID)
	assert.Equal(t, domain.StepFinalSelection, state.CurrentStep)
	assert.Equal(t, 30, state.Progress[domain.StepFinalSelection])
	require.NotNil(t, state.SessionStartTime)
	assert.True(t, testNow.Equal(*state.SessionStartTime))
	// Prompts are not part of the durable subset.
	assert.Empty(t, state.Prompts)
}

func TestRestore_Empty(t *testing.T) {
	kv := testutil.NewMockKVStore()
	c := New(Deps{KV: kv})

	require.NoError(t, c.Restore())

	assert.Equal(t, domain.NewWorkflowState(), c.State())
}

func TestRestore_Corrupt(t *testing.T) {
	kv := testutil.NewMockKVStore()
	kv.Data[domain.DefaultStorageKey] = "{not json"
	c := New(Deps{KV: kv})

	err := c.Restore()

	require.Error(t, err)
	assert.Error(t, c.Err())
}

func TestRestore_CustomStorageKey(t *testing.T) {
	kv := testutil.NewMockKVStore()
	c := New(Deps{KV: kv, StorageKey: "custom"})
	c.SetCurrentTask(testTask())

	assert.Contains(t, kv.Data, "custom")
	assert.NotContains(t, kv.Data, domain.DefaultStorageKey)
}

func TestPersistDurable_RetriesOnce(t *testing.T) {
	kv := testutil.NewMockKVStore()
	kv.SetErr = errors.New("locked")
	kv.SetFailures = 1
	c := New(Deps{KV: kv})

	c.SetCurrentTask(testTask())

	assert.NoError(t, c.Err())
	assert.Equal(t, 2, kv.SetCalls)
	assert.Contains(t, kv.Data, domain.DefaultStorageKey)
}

func TestPersistDurable_GivesUpAfterRetry(t *testing.T) {
	kv := testutil.NewMockKVStore()
	kv.SetErr = errors.New("locked")
	kv.SetFailures = 2
	c := New(Deps{KV: kv})

	c.SetCurrentTask(testTask())

	require.Error(t, c.Err())
	assert.Contains(t, c.Err().Error(), "locked")
	assert.Equal(t, 2, kv.SetCalls)
}

func TestSaveProgress_QueuedSaveWritesLatestState(t *testing.T) {
	c, progress, _, _ := newTestContainer(t)
	c.SetCurrentTask(testTask())
	progress.SaveGate = make(chan struct{})

	var wg sync.WaitGroup
	results := make([]bool, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = c.SaveProgress(context.Background())
	}()

	// Wait for the first save to hold the task slot.
	require.Eventually(t, func() bool { return c.queue.len() == 1 }, time.Second, time.Millisecond)

	added := c.AddPrompt(domain.PromptInput{Text: "late"})
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1] = c.SaveProgress(context.Background())
	}()

	progress.SaveGate <- struct{}{}
	progress.SaveGate <- struct{}{}
	wg.Wait()

	assert.Equal(t, []bool{true, true}, results)
	assert.Equal(t, []string{"T-1", "T-1"}, progress.SaveOrder)
	snap, err := progress.GetProgress(context.Background(), "T-1")
	require.NoError(t, err)
	require.Len(t, snap.Prompts, 1)
	assert.Equal(t, added.ID, snap.Prompts[0].ID)
	assert.Equal(t, 0, c.queue.len())
}

func TestSaveProgress_CancelledWhileQueued(t *testing.T) {
	c, _, _, _ := newTestContainer(t)
	c.SetCurrentTask(testTask())

	release, err := c.queue.acquire(context.Background(), "T-1")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	ok := c.SaveProgress(ctx)

	assert.False(t, ok)
	assert.ErrorIs(t, c.Err(), context.DeadlineExceeded)
}

// waiters returns the holders plus waiters queued on key.
func waiters(q *keyedQueue, key string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if s, ok := q.slots[key]; ok {
		return s.refs
	}
	return 0
}

func TestSaveProgress_TaskSwitchedWhileQueued(t *testing.T) {
	c, progress, _, _ := newTestContainer(t)
	c.SetCurrentTask(testTask())

	release, err := c.queue.acquire(context.Background(), "T-1")
	require.NoError(t, err)

	done := make(chan bool)
	go func() { done <- c.SaveProgress(context.Background()) }()
	require.Eventually(t, func() bool { return waiters(c.queue, "T-1") == 2 }, time.Second, time.Millisecond)

	c.SetCurrentTask(&domain.TaskSummary{ID: "T-2", Title: "Farewell"})
	added := c.AddPrompt(domain.PromptInput{Text: "for T-2"})
	release()

	require.True(t, <-done)
	assert.False(t, progress.Has("T-1"))
	assert.Equal(t, []string{"T-2"}, progress.SaveOrder)

	snap, err := progress.GetProgress(context.Background(), "T-2")
	require.NoError(t, err)
	require.NotNil(t, snap.CurrentTask)
	assert.Equal(t, "T-2", snap.CurrentTask.ID)
	require.Len(t, snap.Prompts, 1)
	assert.Equal(t, added.ID, snap.Prompts[0].ID)
	assert.Equal(t, 0, c.queue.len())
}

func TestSaveProgress_TaskClearedWhileQueued(t *testing.T) {
	c, progress, _, _ := newTestContainer(t)
	c.SetCurrentTask(testTask())

	release, err := c.queue.acquire(context.Background(), "T-1")
	require.NoError(t, err)

	done := make(chan bool)
	go func() { done <- c.SaveProgress(context.Background()) }()
	require.Eventually(t, func() bool { return waiters(c.queue, "T-1") == 2 }, time.Second, time.Millisecond)

	c.Reset()
	release()

	assert.False(t, <-done)
	assert.ErrorIs(t, c.Err(), domain.ErrNoCurrentTask)
	assert.Zero(t, progress.SaveCalls)
}

func TestLoadProgress_RekeysSnapshotOfAnotherTask(t *testing.T) {
	c, progress, _, _ := newTestContainer(t)
	populate(t, c)
	snap := &domain.Snapshot{WorkflowState: c.State(), SavedAt: testNow, Version: domain.SnapshotVersion}
	require.NoError(t, progress.SaveProgress(context.Background(), "T-9", snap))

	fresh := New(Deps{Progress: progress, Clock: &testutil.MockClock{NowTime: testNow}})
	fresh.SetCurrentTask(&domain.TaskSummary{ID: "T-9", Title: "Copy"})
	require.True(t, fresh.LoadProgress(context.Background(), "T-9"))

	assert.Equal(t, &domain.TaskSummary{ID: "T-9", Title: "Copy"}, fresh.CurrentTask())
	assert.Len(t, fresh.Prompts(), 2)

	require.True(t, fresh.SaveProgress(context.Background()))
	stored, err := progress.GetProgress(context.Background(), "T-9")
	require.NoError(t, err)
	assert.Equal(t, "T-9", stored.CurrentTask.ID)
	assert.False(t, progress.Has("T-1"))
}

func TestLoadProgress_BareTaskWhenNothingMatches(t *testing.T) {
	c, progress, _, _ := newTestContainer(t)
	populate(t, c)
	snap := &domain.Snapshot{WorkflowState: c.State(), SavedAt: testNow, Version: domain.SnapshotVersion}
	require.NoError(t, progress.SaveProgress(context.Background(), "T-9", snap))

	fresh := New(Deps{Progress: progress})
	require.True(t, fresh.LoadProgress(context.Background(), "T-9"))

	assert.Equal(t, &domain.TaskSummary{ID: "T-9"}, fresh.CurrentTask())
}
