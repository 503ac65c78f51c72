// Package safety watches running sessions for adverse effects: distress
// spikes, emotional flooding, emergent dissociation, rumination,
// derealization and cognitive overload. Thresholds are personalized from
// per-user history but never drop below the evidence-based defaults.
package safety

import "time"

// EffectType classifies an adverse effect.
type EffectType string

const (
	EffectDistressIncrease   EffectType = "distress_increase"
	EffectEmotionalFlooding  EffectType = "emotional_flooding"
	EffectDissociation       EffectType = "dissociation_emergent"
	EffectRuminationIncrease EffectType = "rumination_increase"
	EffectDerealization      EffectType = "derealization"
	EffectCognitiveOverload  EffectType = "cognitive_overload"
)

// Action is the recommended response to an adverse effect.
type Action string

const (
	ActionContinue      Action = "continue"
	ActionSlowDown      Action = "slow_down"
	ActionPauseSession  Action = "pause_session"
	ActionStopSession   Action = "stop_session"
	ActionSwitchMethod  Action = "switch_method"
	ActionStabilization Action = "stabilization"
)

// Alert is one fired safety check.
type Alert struct {
	EffectType         EffectType
	Severity           float64
	Indicators         []string
	RecommendedAction  Action
	AlternativeMethod  string
	DebriefingRequired bool
}

// Thresholds are the evidence-based default limits. Personalization only
// raises them, never lowers.
type Thresholds struct {
	DistressIncreaseRate float64
	ArousalFlooding      float64
	Dissociation         float64
	RuminationIncrease   float64
	CognitiveOverload    float64
	DerealizationMarkers int
}

// DefaultThresholds returns the published clinical floor values.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DistressIncreaseRate: 0.20,
		ArousalFlooding:      0.9,
		Dissociation:         0.7,
		RuminationIncrease:   0.3,
		CognitiveOverload:    0.8,
		DerealizationMarkers: 3,
	}
}

func (t Thresholds) metric(name string) (float64, bool) {
	switch name {
	case MetricDistressIncreaseRate:
		return t.DistressIncreaseRate, true
	case MetricArousalFlooding:
		return t.ArousalFlooding, true
	case MetricDissociation:
		return t.Dissociation, true
	case MetricRuminationIncrease:
		return t.RuminationIncrease, true
	case MetricCognitiveOverload:
		return t.CognitiveOverload, true
	default:
		return 0, false
	}
}

// Metric names used by the adaptive threshold history.
const (
	MetricDistressIncreaseRate = "distress_increase_rate"
	MetricArousalFlooding      = "arousal_flooding"
	MetricDissociation         = "dissociation_threshold"
	MetricRuminationIncrease   = "rumination_increase"
	MetricCognitiveOverload    = "cognitive_overload"
)

// Snapshot is the slice of state the checks compare. Distress is 0-100,
// the rest are [0,1].
type Snapshot struct {
	Distress           float64
	Arousal            float64
	Dissociation       float64
	Rumination         float64
	CognitiveResources float64
}

// Observation is one timestamped metric reading for trend analysis.
type Observation struct {
	Time     time.Time
	Distress float64
	Arousal  float64
	Dissoc   float64
}
