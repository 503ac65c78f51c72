package safety

import (
	"context"
	"math"
)

// minSessionsForPersonalization: below this many recorded sessions the
// defaults apply unchanged.
const minSessionsForPersonalization = 5

// AdaptiveThresholds derives per-user limits from session history.
// Personalization only tightens: the returned threshold is never below
// the evidence-based default.
type AdaptiveThresholds struct {
	history  SessionHistory
	defaults Thresholds
}

// NewAdaptiveThresholds wraps a session history with the default floors.
func NewAdaptiveThresholds(history SessionHistory, defaults Thresholds) *AdaptiveThresholds {
	return &AdaptiveThresholds{history: history, defaults: defaults}
}

// PersonalThreshold computes mean + 2 stddev of the user's history for a
// metric, floored by the default. Unknown metrics fall back to 0.7.
func (a *AdaptiveThresholds) PersonalThreshold(ctx context.Context, userID, metric string) float64 {
	def, ok := a.defaults.metric(metric)
	if !ok {
		def = 0.7
	}

	sessions, err := a.history.Recent(ctx, userID, sessionRetention)
	if err != nil || len(sessions) < minSessionsForPersonalization {
		return def
	}

	values := make([]float64, 0, len(sessions))
	for _, s := range sessions {
		values = append(values, s[metric])
	}

	mean := meanOf(values)
	variability := stddevOf(values, mean)
	if variability == 0 {
		variability = 0.1
	}

	personal := mean + 2*variability
	return math.Max(personal, def)
}

// RecordSession appends one session's metric summary to the history.
func (a *AdaptiveThresholds) RecordSession(ctx context.Context, userID string, metrics map[string]float64) error {
	return a.history.Append(ctx, userID, metrics)
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddevOf(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}
