package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanInterventionTierMapping(t *testing.T) {
	cases := []struct {
		tier     Tier
		expected Strategy
	}{
		{TierOptimal, StrategyEnhanced},
		{TierGood, StrategyStandard},
		{TierCaution, StrategyAdapted},
		{TierWarning, StrategySupported},
		{TierUnsafe, StrategySafetyFirst},
	}
	for _, tc := range cases {
		got := PlanIntervention(tc.tier, RiskPrediction{}, false)
		assert.Equal(t, tc.expected, got.Strategy, "tier %s", tc.tier)
		assert.NotEmpty(t, got.ImmediateActions)
		assert.NotEmpty(t, got.AdaptiveChanges)
		assert.NotEmpty(t, got.Monitoring.Frequency)
	}
}

func TestPlanInterventionRiskOverrides(t *testing.T) {
	t.Run("risk above 0.7 forces safety first", func(t *testing.T) {
		got := PlanIntervention(TierGood, RiskPrediction{RiskScore: 0.75}, false)
		assert.Equal(t, StrategySafetyFirst, got.Strategy)
		assert.Equal(t, "continuous", got.Monitoring.Frequency)
	})

	t.Run("risk above 0.5 forces supported", func(t *testing.T) {
		got := PlanIntervention(TierOptimal, RiskPrediction{RiskScore: 0.6}, false)
		assert.Equal(t, StrategySupported, got.Strategy)
	})
}

func TestEveningSessionEscalates(t *testing.T) {
	t.Run("good escalates to adapted", func(t *testing.T) {
		got := PlanIntervention(TierGood, RiskPrediction{}, true)
		assert.Equal(t, StrategyAdapted, got.Strategy)
	})

	t.Run("optimal is left alone", func(t *testing.T) {
		got := PlanIntervention(TierOptimal, RiskPrediction{}, true)
		assert.Equal(t, StrategyEnhanced, got.Strategy)
	})
}

func TestDebriefingProtocols(t *testing.T) {
	t.Run("no debrief required", func(t *testing.T) {
		got := Debriefing(Alert{EffectType: EffectEmotionalFlooding})
		assert.False(t, got.Required)
		assert.Empty(t, got.Steps)
	})

	t.Run("distress increase protocol", func(t *testing.T) {
		got := Debriefing(Alert{EffectType: EffectDistressIncrease, DebriefingRequired: true})
		require.True(t, got.Required)
		assert.Len(t, got.Steps, 4)
		assert.Contains(t, got.SafetyCheck, "85")
	})

	t.Run("unmapped effect gets standard debrief", func(t *testing.T) {
		got := Debriefing(Alert{EffectType: EffectRuminationIncrease, DebriefingRequired: true})
		require.True(t, got.Required)
		assert.Equal(t, []string{"Débriefing standard"}, got.Steps)
	})
}

func TestAssessDetectsCrisisLanguage(t *testing.T) {
	assert.Equal(t, LevelCrisis, Assess(30, "Je veux mourir, c'est insupportable"))
	assert.Equal(t, LevelCrisis, Assess(85, "Je suis épuisée"))
	assert.Equal(t, LevelElevated, Assess(65, "C'est dur en ce moment"))
	assert.Equal(t, LevelNormal, Assess(40, "Ça va un peu mieux aujourd'hui"))
}

func TestLevelScoresAndTiers(t *testing.T) {
	assert.InDelta(t, 0.2, LevelCrisis.Score(), 1e-9)
	assert.InDelta(t, 0.5, LevelElevated.Score(), 1e-9)
	assert.InDelta(t, 0.9, LevelNormal.Score(), 1e-9)

	assert.Equal(t, TierUnsafe, TierFor(LevelCrisis, 90))
	assert.Equal(t, TierWarning, TierFor(LevelElevated, 78))
	assert.Equal(t, TierCaution, TierFor(LevelElevated, 65))
	assert.Equal(t, TierGood, TierFor(LevelNormal, 45))
	assert.Equal(t, TierOptimal, TierFor(LevelNormal, 20))
}
