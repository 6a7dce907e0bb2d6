package workflow

import (
	"testing"
	"time"

	"github.com/runoshun/promptbench/internal/domain"
	"github.com/runoshun/promptbench/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestContainer(t *testing.T) (*Container, *testutil.MockProgressStore, *testutil.MockKVStore, *testutil.MockClock) {
	t.Helper()
	progress := testutil.NewMockProgressStore()
	kv := testutil.NewMockKVStore()
	clock := &testutil.MockClock{NowTime: testNow}
	c := New(Deps{
		Progress: progress,
		KV:       kv,
		Clock:    clock,
		IDs:      &testutil.SequenceIDs{},
	})
	return c, progress, kv, clock
}

func testTask() *domain.TaskSummary {
	return &domain.TaskSummary{
		ID:           "T-1",
		Title:        "Greeting",
		OriginalText: "こんにちは",
		BaseTranslations: []domain.BaseTranslation{
			{ID: "T-1-bt1", Text: "Hello", Source: "rd_translation_1"},
		},
	}
}

func collect(seq func(func(domain.Prompt) bool)) []string {
	var ids []string
	for p := range seq {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestNew_InitialState(t *testing.T) {
	c, _, _, _ := newTestContainer(t)

	assert.Nil(t, c.CurrentTask())
	assert.Equal(t, domain.StepAutoTranslate, c.CurrentStep())
	assert.Equal(t, map[domain.Step]int{domain.StepAutoTranslate: 0}, c.Progress())
	assert.Empty(t, c.Prompts())
	assert.Empty(t, c.Evaluations())
	assert.Empty(t, c.SelectedPrompt())
	assert.Nil(t, c.FinalReport())
	assert.NoError(t, c.Err())
}

func TestSetCurrentTask(t *testing.T) {
	c, _, kv, _ := newTestContainer(t)

	c.SetCurrentTask(testTask())

	got := c.CurrentTask()
	require.NotNil(t, got)
	assert.Equal(t, "T-1", got.ID)
	state := c.State()
	require.NotNil(t, state.SessionStartTime)
	assert.Equal(t, testNow, *state.SessionStartTime)
	assert.Contains(t, kv.Data, domain.DefaultStorageKey)

	c.SetCurrentTask(nil)
	assert.Nil(t, c.CurrentTask())
}

func TestSetCurrentTask_CopiesInput(t *testing.T) {
	c, _, _, _ := newTestContainer(t)
	task := testTask()

	c.SetCurrentTask(task)
	task.Title = "changed"
	task.BaseTranslations[0].Text = "changed"

	got := c.CurrentTask()
	assert.Equal(t, "Greeting", got.Title)
	assert.Equal(t, "Hello", got.BaseTranslations[0].Text)
}

func TestSetCurrentStep(t *testing.T) {
	c, _, _, _ := newTestContainer(t)

	require.NoError(t, c.SetCurrentStep(domain.StepEvaluation))

	assert.Equal(t, domain.StepEvaluation, c.CurrentStep())
	assert.Equal(t, 0, c.Progress()[domain.StepEvaluation])
}

func TestSetCurrentStep_Idempotent(t *testing.T) {
	c, _, _, _ := newTestContainer(t)

	require.NoError(t, c.SetCurrentStep(domain.StepPromptAuthoring))
	assert.Equal(t, 0, c.Progress()[domain.StepPromptAuthoring])

	require.NoError(t, c.SetCurrentStep(domain.StepPromptAuthoring))
	assert.Equal(t, 0, c.Progress()[domain.StepPromptAuthoring])
}

func TestSetCurrentStep_KeepsExistingProgress(t *testing.T) {
	c, _, _, _ := newTestContainer(t)
	c.UpdateProgress(map[domain.Step]int{domain.StepEvaluation: 40})

	require.NoError(t, c.SetCurrentStep(domain.StepEvaluation))

	assert.Equal(t, 40, c.Progress()[domain.StepEvaluation])
}

func TestSetCurrentStep_Invalid(t *testing.T) {
	c, _, _, _ := newTestContainer(t)

	for _, step := range []domain.Step{0, 6, -1} {
		err := c.SetCurrentStep(step)
		assert.ErrorIs(t, err, domain.ErrInvalidStep)
	}
	assert.Equal(t, domain.StepAutoTranslate, c.CurrentStep())
}

func TestUpdateProgress_LastWriteWins(t *testing.T) {
	c, _, _, _ := newTestContainer(t)

	c.UpdateProgress(map[domain.Step]int{domain.StepAutoTranslate: 50, domain.StepPromptAuthoring: 10})
	c.UpdateProgress(map[domain.Step]int{domain.StepAutoTranslate: 100})

	assert.Equal(t, map[domain.Step]int{
		domain.StepAutoTranslate:   100,
		domain.StepPromptAuthoring: 10,
	}, c.Progress())
}

func TestAddPrompt(t *testing.T) {
	c, _, _, _ := newTestContainer(t)

	p := c.AddPrompt(domain.PromptInput{
		Text:              "Translate politely",
		Translation:       domain.Ptr("Hello there"),
		BaseTranslationID: "T-1-bt1",
	})

	assert.Equal(t, "p-1", p.ID)
	assert.Equal(t, "Translate politely", p.Text)
	require.NotNil(t, p.Translation)
	assert.Equal(t, "Hello there", *p.Translation)
	assert.Equal(t, testNow, p.CreatedAt)
	assert.Nil(t, p.Rating)
	assert.Nil(t, p.Comment)
	assert.Nil(t, p.QualityScore)
	assert.Len(t, c.Prompts(), 1)
}

func TestAddPrompt_UniqueIDs(t *testing.T) {
	c, _, _, _ := newTestContainer(t)

	seen := make(map[string]bool)
	for range 20 {
		p := c.AddPrompt(domain.PromptInput{Text: "same text"})
		assert.False(t, seen[p.ID], "duplicate id %s", p.ID)
		seen[p.ID] = true
	}
}

func TestAddPrompt_RepeatingGenerator(t *testing.T) {
	c := New(Deps{Clock: &testutil.MockClock{NowTime: testNow}, IDs: &testutil.SequenceIDs{Fixed: "dup"}})

	a := c.AddPrompt(domain.PromptInput{Text: "a"})
	b := c.AddPrompt(domain.PromptInput{Text: "b"})
	d := c.AddPrompt(domain.PromptInput{Text: "c"})

	assert.Equal(t, "dup", a.ID)
	assert.Equal(t, "dup-2", b.ID)
	assert.Equal(t, "dup-3", d.ID)
}

func TestAddPrompt_PreservesOrder(t *testing.T) {
	c, _, _, _ := newTestContainer(t)
	c.AddPrompt(domain.PromptInput{Text: "first"})
	c.AddPrompt(domain.PromptInput{Text: "second"})
	c.AddPrompt(domain.PromptInput{Text: "third"})

	var texts []string
	for _, p := range c.Prompts() {
		texts = append(texts, p.Text)
	}
	assert.Equal(t, []string{"first", "second", "third"}, texts)
}

func TestUpdatePrompt(t *testing.T) {
	c, _, _, _ := newTestContainer(t)
	p := c.AddPrompt(domain.PromptInput{Text: "old", BaseTranslationID: "bt1"})

	err := c.UpdatePrompt(p.ID, domain.PromptUpdate{
		Text:        domain.Ptr("new"),
		Translation: domain.Ptr("out"),
	})
	require.NoError(t, err)

	got, ok := c.PromptByID(p.ID)
	require.True(t, ok)
	assert.Equal(t, "new", got.Text)
	assert.Equal(t, "out", *got.Translation)
	assert.Equal(t, "bt1", got.BaseTranslationID)
}

func TestUpdatePrompt_NotFound(t *testing.T) {
	c, _, _, _ := newTestContainer(t)

	err := c.UpdatePrompt("missing", domain.PromptUpdate{Text: domain.Ptr("x")})

	assert.ErrorIs(t, err, domain.ErrPromptNotFound)
}

func TestRemovePrompt(t *testing.T) {
	c, _, _, _ := newTestContainer(t)
	a := c.AddPrompt(domain.PromptInput{Text: "a"})
	b := c.AddPrompt(domain.PromptInput{Text: "b"})

	require.NoError(t, c.RemovePrompt(a.ID))

	_, ok := c.PromptByID(a.ID)
	assert.False(t, ok)
	_, ok = c.PromptByID(b.ID)
	assert.True(t, ok)
}

func TestRemovePrompt_AnyAddedID(t *testing.T) {
	c, _, _, _ := newTestContainer(t)
	var ids []string
	for range 5 {
		ids = append(ids, c.AddPrompt(domain.PromptInput{Text: "x"}).ID)
	}

	for _, id := range ids {
		require.NoError(t, c.RemovePrompt(id))
		_, ok := c.PromptByID(id)
		assert.False(t, ok, id)
	}
	assert.Empty(t, c.Prompts())
}

func TestRemovePrompt_CascadesEvaluationAndSelection(t *testing.T) {
	c, _, _, _ := newTestContainer(t)
	p := c.AddPrompt(domain.PromptInput{Text: "a"})
	require.NoError(t, c.SetEvaluation(p.ID, domain.Evaluation{Rating: domain.Ptr(domain.RatingLike)}))
	require.NoError(t, c.SetSelectedPrompt(p.ID))

	require.NoError(t, c.RemovePrompt(p.ID))

	assert.NotContains(t, c.Evaluations(), p.ID)
	assert.Empty(t, c.SelectedPrompt())
}

func TestRemovePrompt_NotFound(t *testing.T) {
	c, _, _, _ := newTestContainer(t)

	assert.ErrorIs(t, c.RemovePrompt("missing"), domain.ErrPromptNotFound)
}

func TestSetEvaluation_MirrorsOntoPrompt(t *testing.T) {
	c, _, _, _ := newTestContainer(t)
	p := c.AddPrompt(domain.PromptInput{Text: "a"})

	require.NoError(t, c.SetEvaluation(p.ID, domain.Evaluation{
		Rating:       domain.Ptr(domain.RatingDislike),
		Comment:      domain.Ptr("too literal"),
		QualityScore: domain.Ptr(2.5),
	}))

	got, _ := c.PromptByID(p.ID)
	assert.Equal(t, domain.RatingDislike, *got.Rating)
	assert.Equal(t, "too literal", *got.Comment)
	assert.InDelta(t, 2.5, *got.QualityScore, 0.0001)
}

func TestSetEvaluation_Errors(t *testing.T) {
	c, _, _, _ := newTestContainer(t)
	p := c.AddPrompt(domain.PromptInput{Text: "a"})

	err := c.SetEvaluation("missing", domain.Evaluation{})
	assert.ErrorIs(t, err, domain.ErrPromptNotFound)

	err = c.SetEvaluation(p.ID, domain.Evaluation{Rating: domain.Ptr(domain.Rating("meh"))})
	assert.ErrorIs(t, err, domain.ErrInvalidRating)
	assert.Empty(t, c.Evaluations())
}

func TestUpdateEvaluation_Merges(t *testing.T) {
	c, _, _, _ := newTestContainer(t)
	p := c.AddPrompt(domain.PromptInput{Text: "a"})

	require.NoError(t, c.UpdateEvaluation(p.ID, domain.EvaluationUpdate{Rating: domain.Ptr(domain.RatingLike)}))
	require.NoError(t, c.UpdateEvaluation(p.ID, domain.EvaluationUpdate{Comment: domain.Ptr("good")}))

	ev := c.Evaluations()[p.ID]
	assert.Equal(t, domain.RatingLike, *ev.Rating)
	assert.Equal(t, "good", *ev.Comment)
	assert.Nil(t, ev.QualityScore)
}

func TestUpdateEvaluation_NotFound(t *testing.T) {
	c, _, _, _ := newTestContainer(t)

	err := c.UpdateEvaluation("missing", domain.EvaluationUpdate{Comment: domain.Ptr("x")})

	assert.ErrorIs(t, err, domain.ErrPromptNotFound)
}

func TestSetSelectedPrompt(t *testing.T) {
	c, _, _, _ := newTestContainer(t)
	p := c.AddPrompt(domain.PromptInput{Text: "a"})

	require.NoError(t, c.SetSelectedPrompt(p.ID))
	assert.Equal(t, p.ID, c.SelectedPrompt())

	assert.ErrorIs(t, c.SetSelectedPrompt("missing"), domain.ErrPromptNotFound)
	assert.Equal(t, p.ID, c.SelectedPrompt())

	require.NoError(t, c.SetSelectedPrompt(""))
	assert.Empty(t, c.SelectedPrompt())
}

func TestLikedAndDislikedPrompts(t *testing.T) {
	c, _, _, _ := newTestContainer(t)
	a := c.AddPrompt(domain.PromptInput{Text: "a"})
	b := c.AddPrompt(domain.PromptInput{Text: "b"})

	require.NoError(t, c.SetEvaluation(b.ID, domain.Evaluation{Rating: domain.Ptr(domain.RatingLike)}))
	d := c.AddPrompt(domain.PromptInput{Text: "d"})
	require.NoError(t, c.SetEvaluation(a.ID, domain.Evaluation{Rating: domain.Ptr(domain.RatingLike)}))
	require.NoError(t, c.SetEvaluation(d.ID, domain.Evaluation{Rating: domain.Ptr(domain.RatingDislike)}))
	c.AddPrompt(domain.PromptInput{Text: "unrated"})

	assert.Equal(t, []string{a.ID, b.ID}, collect(c.LikedPrompts()))
	assert.Equal(t, []string{d.ID}, collect(c.DislikedPrompts()))
}

func TestLikedPrompts_RecomputedOnEachRange(t *testing.T) {
	c, _, _, _ := newTestContainer(t)
	a := c.AddPrompt(domain.PromptInput{Text: "a"})
	liked := c.LikedPrompts()

	assert.Empty(t, collect(liked))

	require.NoError(t, c.SetEvaluation(a.ID, domain.Evaluation{Rating: domain.Ptr(domain.RatingLike)}))
	assert.Equal(t, []string{a.ID}, collect(liked))
	assert.Equal(t, []string{a.ID}, collect(liked))
}

func TestLikedPrompts_EarlyBreak(t *testing.T) {
	c, _, _, _ := newTestContainer(t)
	for range 3 {
		p := c.AddPrompt(domain.PromptInput{Text: "x"})
		require.NoError(t, c.SetEvaluation(p.ID, domain.Evaluation{Rating: domain.Ptr(domain.RatingLike)}))
	}

	n := 0
	for range c.LikedPrompts() {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestAverageQualityScore(t *testing.T) {
	c, _, _, _ := newTestContainer(t)
	_, ok := c.AverageQualityScore()
	assert.False(t, ok)

	a := c.AddPrompt(domain.PromptInput{Text: "a"})
	b := c.AddPrompt(domain.PromptInput{Text: "b"})
	require.NoError(t, c.SetEvaluation(a.ID, domain.Evaluation{QualityScore: domain.Ptr(4.0)}))
	require.NoError(t, c.SetEvaluation(b.ID, domain.Evaluation{QualityScore: domain.Ptr(2.0)}))

	avg, ok := c.AverageQualityScore()
	assert.True(t, ok)
	assert.InDelta(t, 3.0, avg, 0.0001)
}

func TestUpdateFinalReport(t *testing.T) {
	c, _, _, _ := newTestContainer(t)
	c.SetFinalReport(&domain.FinalReport{TaskID: "T-1", Summary: "draft"})

	err := c.UpdateFinalReport(map[string]any{
		"summary":      "final",
		"totalPrompts": "3",
		"reviewer":     "kim",
	})
	require.NoError(t, err)

	r := c.FinalReport()
	require.NotNil(t, r)
	assert.Equal(t, "T-1", r.TaskID)
	assert.Equal(t, "final", r.Summary)
	assert.Equal(t, 3, r.TotalPrompts)
	assert.Equal(t, map[string]string{"reviewer": "kim"}, r.Extra)
}

func TestUpdateFinalReport_CreatesReport(t *testing.T) {
	c, _, _, _ := newTestContainer(t)

	require.NoError(t, c.UpdateFinalReport(map[string]any{"notes": "n"}))

	require.NotNil(t, c.FinalReport())
	assert.Equal(t, "n", c.FinalReport().Notes)
}

func TestUpdateFinalReport_Empty(t *testing.T) {
	c, _, _, _ := newTestContainer(t)

	assert.ErrorIs(t, c.UpdateFinalReport(nil), domain.ErrNoFieldsToUpdate)
	assert.Nil(t, c.FinalReport())
}

func TestSetFinalReport_Clear(t *testing.T) {
	c, _, _, _ := newTestContainer(t)
	c.SetFinalReport(&domain.FinalReport{Summary: "x"})

	c.SetFinalReport(nil)

	assert.Nil(t, c.FinalReport())
}

func TestSessionDuration(t *testing.T) {
	c, _, _, clock := newTestContainer(t)

	assert.Equal(t, time.Duration(0), c.SessionDuration())

	c.SetCurrentTask(testTask())
	clock.NowTime = testNow.Add(90 * time.Second)

	assert.Equal(t, 90*time.Second, c.SessionDuration())
}

func TestReset(t *testing.T) {
	c, _, kv, _ := newTestContainer(t)
	c.SetCurrentTask(testTask())
	require.NoError(t, c.SetCurrentStep(domain.StepEvaluation))
	c.AddPrompt(domain.PromptInput{Text: "a"})

	c.Reset()

	assert.Nil(t, c.CurrentTask())
	assert.Equal(t, domain.StepAutoTranslate, c.CurrentStep())
	assert.Empty(t, c.Prompts())
	assert.Equal(t, time.Duration(0), c.SessionDuration())
	assert.Contains(t, kv.Data[domain.DefaultStorageKey], `"currentTask":null`)
}

func TestProjection(t *testing.T) {
	c, _, _, _ := newTestContainer(t)
	require.NoError(t, c.SetCurrentStep(domain.StepEvaluation))
	c.UpdateProgress(map[domain.Step]int{domain.StepEvaluation: 50})

	proj := c.Projection()

	assert.InDelta(t, 50.0, proj.Overall, 0.0001)
	require.Len(t, proj.Steps, domain.TotalSteps)
	assert.Equal(t, domain.StepCompleted, proj.Steps[1].Status)
	assert.Equal(t, domain.StepCurrent, proj.Steps[2].Status)
	assert.Equal(t, domain.StepPending, proj.Steps[3].Status)
}

func TestState_IsDeepCopy(t *testing.T) {
	c, _, _, _ := newTestContainer(t)
	p := c.AddPrompt(domain.PromptInput{Text: "a"})

	state := c.State()
	state.Prompts[0].Text = "mutated"
	state.Progress[domain.StepReport] = 99

	got, _ := c.PromptByID(p.ID)
	assert.Equal(t, "a", got.Text)
	assert.NotContains(t, c.Progress(), domain.StepReport)
}

func TestUpdateProgress_ClampsAndIgnoresUnknownSteps(t *testing.T) {
	c, _, _, _ := newTestContainer(t)

	c.UpdateProgress(map[domain.Step]int{domain.StepAutoTranslate: 140, domain.StepReport: -5, 9: 50})

	assert.Equal(t, map[domain.Step]int{
		domain.StepAutoTranslate: 100,
		domain.StepReport:        0,
	}, c.Progress())
}
