package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solace/internal/protocol"
	"solace/internal/therapy"
	"solace/internal/transition"
)

func newTestMachine(t *testing.T) *Machine {
	t.Helper()
	protocols, err := protocol.NewStore("")
	require.NoError(t, err)
	return NewMachine(protocols, transition.NewEngine())
}

func TestStartEmitsStepZeroPrompt(t *testing.T) {
	m := newTestMachine(t)

	sess, res := m.Start("user-1", "sess-1", therapy.MethodSomaticRegulation, "standard", therapy.DefaultUserState())

	assert.Equal(t, StatusInProgress, sess.Status)
	assert.Equal(t, 4, res.TotalSteps)
	assert.Equal(t, 0, res.Step)
	assert.Contains(t, res.Prompt, "où dans votre corps")
	assert.InDelta(t, 50, sess.BaselineDistress, 1e-9)
}

func TestStartSubstitutesBodyLocation(t *testing.T) {
	m := newTestMachine(t)

	state := therapy.DefaultUserState()
	state.EmotionLocation = "la gorge"

	_, res := m.Start("user-1", "sess-1", therapy.MethodSomaticRegulation, "focused", state)

	assert.Contains(t, res.Prompt, "la gorge")
	assert.NotContains(t, res.Prompt, "{location}")
}

// Starting then advancing with a response carrying two success indicators
// must move the step counter, never silently no-op.
func TestAdvanceWithIndicatorsMovesForward(t *testing.T) {
	m := newTestMachine(t)

	sess, _ := m.Start("user-1", "sess-1", therapy.MethodSomaticRegulation, "standard", therapy.DefaultUserState())

	res, err := m.Advance(&sess, "Je la sens surtout dans ma gorge et ma poitrine.",
		therapy.DefaultUserState(), therapy.DefaultContext())
	require.NoError(t, err)

	assert.Equal(t, TurnInProgress, res.Status)
	assert.Equal(t, 1, sess.CurrentStep)
	assert.Contains(t, res.Message, "sans la juger")
	require.Len(t, sess.ProgressionScores, 1)
	assert.GreaterOrEqual(t, sess.ProgressionScores[0], 0.7)
}

func TestAdvanceTriggersAdaptiveResponse(t *testing.T) {
	m := newTestMachine(t)

	sess, _ := m.Start("user-1", "sess-1", therapy.MethodSomaticRegulation, "standard", therapy.DefaultUserState())

	res, err := m.Advance(&sess, "Je ne sens rien, c'est le vide.",
		therapy.DefaultUserState(), therapy.DefaultContext())
	require.NoError(t, err)

	assert.Equal(t, TurnAdjusted, res.Status)
	assert.Equal(t, 0, sess.CurrentStep, "adaptive branch must not advance the step")
	assert.Contains(t, res.Message, "le vide est une sensation")
	assert.Equal(t, []string{"emptiness"}, sess.Adjustments)
}

func TestAdvanceLowProgressionWithoutTriggerStillAdvances(t *testing.T) {
	m := newTestMachine(t)

	sess, _ := m.Start("user-1", "sess-1", therapy.MethodSomaticRegulation, "standard", therapy.DefaultUserState())

	res, err := m.Advance(&sess, "D'accord.", therapy.DefaultUserState(), therapy.DefaultContext())
	require.NoError(t, err)

	assert.Equal(t, TurnInProgress, res.Status)
	assert.Equal(t, 1, sess.CurrentStep)
}

func TestFullSessionCompletes(t *testing.T) {
	m := newTestMachine(t)

	state := therapy.DefaultUserState()
	tctx := therapy.DefaultContext()
	sess, _ := m.Start("user-1", "sess-1", therapy.MethodSomaticRegulation, "standard", state)

	responses := []string{
		"Je la sens dans ma gorge et ma poitrine.",
		"C'est lourd et serré à la fois.",
		"Ça bouge un peu, la pression diminue.",
		"Je me sens plus calme, presque apaisé.",
	}
	var last AdvanceResult
	for _, r := range responses {
		var err error
		last, err = m.Advance(&sess, r, state, tctx)
		require.NoError(t, err)
	}

	assert.Equal(t, TurnCompleted, last.Status)
	assert.Equal(t, StatusCompleted, sess.Status)
	assert.Equal(t, completionMessage, last.Message)
	require.NotNil(t, last.Summary)
	assert.Equal(t, 4, last.Summary.StepsCompleted)
	assert.Equal(t, 0, last.Summary.AdjustmentsCount)
	assert.Greater(t, last.Summary.AverageProgression, 0.5)
}

func TestCompletionWithMeaningHandoff(t *testing.T) {
	m := newTestMachine(t)

	state := therapy.DefaultUserState()
	state.Distress = 40
	state.SomaticClarity = 0.7
	tctx := therapy.DefaultContext()

	sess, _ := m.Start("user-1", "sess-1", therapy.MethodSomaticRegulation, "standard", state)

	responses := []string{
		"Je la sens dans ma gorge et ma poitrine.",
		"C'est lourd et serré à la fois.",
		"Ça bouge un peu, la pression diminue.",
		"Je suis plus calme, mais pourquoi tout cela est-il arrivé ?",
	}
	var last AdvanceResult
	for _, r := range responses {
		var err error
		last, err = m.Advance(&sess, r, state, tctx)
		require.NoError(t, err)
	}

	assert.Equal(t, TurnCompletedWithTransition, last.Status)
	assert.Equal(t, StatusTransitioning, sess.Status)
	require.NotNil(t, last.Transition)
	assert.Equal(t, therapy.MethodMeaningMaking, last.Transition.To)
	assert.InDelta(t, 0.85, last.Transition.Confidence, 1e-9)
	assert.NotEmpty(t, last.Offer)
	require.NotNil(t, sess.PendingTransition)
}

func TestAdvanceRequiresActiveSession(t *testing.T) {
	m := newTestMachine(t)

	t.Run("nil session", func(t *testing.T) {
		_, err := m.Advance(nil, "bonjour", therapy.DefaultUserState(), therapy.DefaultContext())
		assert.ErrorIs(t, err, ErrNoActiveSession)
	})

	t.Run("completed session", func(t *testing.T) {
		sess := Context{Status: StatusCompleted}
		_, err := m.Advance(&sess, "bonjour", therapy.DefaultUserState(), therapy.DefaultContext())
		assert.ErrorIs(t, err, ErrNoActiveSession)
	})
}

func TestZeroStepProtocolEmitsContinuation(t *testing.T) {
	m := newTestMachine(t)

	sess := Context{ID: "sess-1", Status: StatusInProgress}
	res, err := m.Advance(&sess, "bonjour", therapy.DefaultUserState(), therapy.DefaultContext())
	require.NoError(t, err)

	assert.Equal(t, TurnInProgress, res.Status)
	assert.Equal(t, continuationPrompt, res.Message)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess := Context{ID: "sess-1", Status: StatusInProgress, Responses: []string{"a"}}
	require.NoError(t, store.Put(ctx, sess))

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	got.Responses[0] = "mutated"
	got.CurrentStep = 7

	again, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, again.Responses)
	assert.Equal(t, 0, again.CurrentStep)
}

func TestMemoryStoreMissingAndDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "absent")
	assert.ErrorIs(t, err, ErrNoActiveSession)

	require.NoError(t, store.Put(ctx, Context{ID: "sess-1"}))
	require.NoError(t, store.Delete(ctx, "sess-1"))
	_, err = store.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrNoActiveSession)
}
