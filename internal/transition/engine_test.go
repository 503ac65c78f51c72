package transition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solace/internal/therapy"
)

func TestSomaticHandsOffToMeaningMaking(t *testing.T) {
	e := NewEngine()

	state := therapy.DefaultUserState()
	state.Distress = 40
	state.SomaticClarity = 0.7

	rec, ok := e.Recommend(therapy.MethodSomaticRegulation,
		"Je me sens plus calme, mais je me demande pourquoi tout cela est arrivé.",
		state, therapy.DefaultContext())

	require.True(t, ok)
	assert.Equal(t, therapy.MethodMeaningMaking, rec.To)
	assert.InDelta(t, 0.85, rec.Confidence, 1e-9)
	assert.Contains(t, rec.Signals, SignalMeaningEmerging)
	assert.Contains(t, rec.Signals, SignalSomaticIntegration)
}

func TestSafetyRulePreemptsProgressRule(t *testing.T) {
	e := NewEngine()

	// Meaning language is present but so is overwhelm: the stabilization
	// handoff must win even though a progress rule also applies.
	state := therapy.DefaultUserState()
	state.Distress = 90
	state.SomaticClarity = 0.7

	rec, ok := e.Recommend(therapy.MethodSomaticRegulation,
		"C'est trop, je ne comprends pas pourquoi tout revient d'un coup.",
		state, therapy.DefaultContext())

	require.True(t, ok)
	assert.Equal(t, therapy.MethodPhysioRegulation, rec.To)
	assert.InDelta(t, 0.90, rec.Confidence, 1e-9)
}

func TestSomaticExpressionNeedsContainedDistress(t *testing.T) {
	e := NewEngine()

	t.Run("contained distress goes narrative", func(t *testing.T) {
		state := therapy.DefaultUserState()
		state.Distress = 55
		rec, ok := e.Recommend(therapy.MethodSomaticRegulation,
			"J'aimerais raconter ce qui s'est passé ce jour-là.",
			state, therapy.DefaultContext())
		require.True(t, ok)
		assert.Equal(t, therapy.MethodNarrative, rec.To)
		assert.InDelta(t, 0.80, rec.Confidence, 1e-9)
	})

	t.Run("high distress blocks the narrative rule", func(t *testing.T) {
		state := therapy.DefaultUserState()
		state.Distress = 70
		_, ok := e.Recommend(therapy.MethodSomaticRegulation,
			"J'aimerais raconter ce qui s'est passé ce jour-là.",
			state, therapy.DefaultContext())
		assert.False(t, ok)
	})
}

func TestValidationRoutesOnBodyAwareness(t *testing.T) {
	e := NewEngine()

	state := therapy.DefaultUserState()
	state.BodyAwareness = 0.6

	rec, ok := e.Recommend(therapy.MethodEmpathicValidation,
		"Merci de m'écouter.", state, therapy.DefaultContext())

	require.True(t, ok)
	assert.Equal(t, therapy.MethodSomaticRegulation, rec.To)
	assert.InDelta(t, 0.80, rec.Confidence, 1e-9)

	t.Run("rising dissociation blocks somatic handoff", func(t *testing.T) {
		state.Dissociation = 0.7
		rec, ok := e.Recommend(therapy.MethodEmpathicValidation,
			"Merci de m'écouter.", state, therapy.DefaultContext())
		if ok {
			assert.NotEqual(t, therapy.MethodSomaticRegulation, rec.To)
		}
	})
}

func TestNarrativeOverwhelmGoesToStabilization(t *testing.T) {
	e := NewEngine()

	state := therapy.DefaultUserState()
	state.Distress = 88

	rec, ok := e.Recommend(therapy.MethodNarrative,
		"Je ne peux pas continuer, c'est trop dur à raconter.",
		state, therapy.DefaultContext())

	require.True(t, ok)
	assert.Equal(t, therapy.MethodPhysioRegulation, rec.To)
	assert.InDelta(t, 0.90, rec.Confidence, 1e-9)
}

func TestUnknownSourceMethodHasNoRules(t *testing.T) {
	e := NewEngine()
	_, ok := e.Recommend(therapy.MethodMindfulness, "pourquoi", therapy.DefaultUserState(), therapy.DefaultContext())
	assert.False(t, ok)
}

func TestOfferFallsBackToGenericMessage(t *testing.T) {
	assert.Equal(t,
		"Votre corps s'est apaisé, et des questions semblent émerger. Voulez-vous qu'on explore ensemble ce que cette épreuve signifie pour vous ?",
		Offer(therapy.MethodSomaticRegulation, therapy.MethodMeaningMaking))
	assert.Equal(t, defaultOffer, Offer(therapy.MethodMindfulness, therapy.MethodNarrative))
}
