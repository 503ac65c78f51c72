package safety

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"solace/internal/logging"
	"solace/internal/therapy"
)

// alternativeGrounding is the stabilization protocol offered alongside
// flooding and dissociation alerts.
const alternativeGrounding = "grounding_5_sens"

var derealizationMarkers = []*regexp.Regexp{
	regexp.MustCompile(`\birréel\b`),
	regexp.MustCompile(`\bétrange\b`),
	regexp.MustCompile(`\bdétaché\b`),
	regexp.MustCompile(`\bcomme dans un rêve\b`),
	regexp.MustCompile(`\bpas vraiment là\b`),
	regexp.MustCompile(`\bobserver de l'extérieur\b`),
}

// Monitor runs the sequential adverse-effect checks once per turn.
// First firing check wins.
type Monitor struct {
	thresholds Thresholds
	adaptive   *AdaptiveThresholds
	trend      *TrendAnalyzer
	predictor  *Predictor
}

// NewMonitor wires the monitor over its collaborators.
func NewMonitor(adaptive *AdaptiveThresholds, trend *TrendAnalyzer, predictor *Predictor) *Monitor {
	return &Monitor{
		thresholds: DefaultThresholds(),
		adaptive:   adaptive,
		trend:      trend,
		predictor:  predictor,
	}
}

// MonitorSession records the current reading, predicts near-term risk and
// runs the checks. High predicted risk tightens the distress and flooding
// limits for this call only. Returns nil when no check fires.
func (m *Monitor) MonitorSession(
	ctx context.Context,
	userID string,
	method therapy.Method,
	current, baseline Snapshot,
	responses []string,
	duration time.Duration,
	fatigue float64,
) *Alert {
	if err := m.trend.AddPoint(ctx, userID, current.Distress, current.Arousal, current.Dissociation); err != nil {
		logging.SafetyWarn("trend point not recorded for user=%s: %v", userID, err)
	}

	prediction := m.predictor.Predict(ctx, userID, current, fatigue)

	thresholds := m.thresholds
	distressTighten := 1.0
	if prediction.RiskScore > 0.6 {
		distressTighten = 0.8
		thresholds.ArousalFlooding *= 0.9
		logging.Safety("risk %.2f for user=%s, thresholds tightened (factors: %v)",
			prediction.RiskScore, userID, prediction.RiskFactors)
	}

	checks := []func() *Alert{
		func() *Alert { return m.checkDistressIncrease(ctx, userID, current, baseline, distressTighten) },
		func() *Alert { return checkEmotionalFlooding(current, thresholds) },
		func() *Alert { return checkDissociation(current, baseline) },
		func() *Alert { return checkRuminationIncrease(current, baseline, responses, thresholds) },
		func() *Alert { return checkDerealization(method, responses, thresholds) },
		func() *Alert { return checkCognitiveOverload(current, duration) },
	}
	for _, check := range checks {
		if alert := check(); alert != nil {
			logging.SafetyWarn("alert user=%s method=%s effect=%s severity=%.2f action=%s indicators=%v",
				userID, method, alert.EffectType, alert.Severity, alert.RecommendedAction, alert.Indicators)
			return alert
		}
	}
	return nil
}

// RecordSessionOutcome feeds a finished session's readings into the
// per-user history that personalizes thresholds.
func (m *Monitor) RecordSessionOutcome(ctx context.Context, userID string, current, baseline Snapshot) error {
	metrics := map[string]float64{
		MetricArousalFlooding:    current.Arousal,
		MetricRuminationIncrease: current.Rumination - baseline.Rumination,
	}
	if baseline.Distress > 0 {
		metrics[MetricDistressIncreaseRate] = (current.Distress - baseline.Distress) / baseline.Distress
	}
	return m.adaptive.RecordSession(ctx, userID, metrics)
}

func (m *Monitor) checkDistressIncrease(ctx context.Context, userID string, current, baseline Snapshot, tighten float64) *Alert {
	if baseline.Distress == 0 {
		return nil
	}
	increaseRate := (current.Distress - baseline.Distress) / baseline.Distress

	// Personalized threshold already floors at the default; high predicted
	// risk tightens it for this call only.
	threshold := m.adaptive.PersonalThreshold(ctx, userID, MetricDistressIncreaseRate) * tighten

	if increaseRate <= threshold {
		return nil
	}

	action := ActionSlowDown
	switch {
	case increaseRate > 0.4:
		action = ActionStopSession
	case increaseRate > 0.3:
		action = ActionPauseSession
	}

	return &Alert{
		EffectType:         EffectDistressIncrease,
		Severity:           math.Min(1, increaseRate/0.5),
		Indicators:         []string{fmt.Sprintf("Détresse augmentée de %.1f%%", increaseRate*100)},
		RecommendedAction:  action,
		DebriefingRequired: true,
	}
}

func checkEmotionalFlooding(current Snapshot, thresholds Thresholds) *Alert {
	if current.Arousal <= thresholds.ArousalFlooding {
		return nil
	}
	return &Alert{
		EffectType:        EffectEmotionalFlooding,
		Severity:          current.Arousal,
		Indicators:        []string{"Arousal émotionnel excessif"},
		RecommendedAction: ActionStabilization,
		AlternativeMethod: alternativeGrounding,
	}
}

func checkDissociation(current, baseline Snapshot) *Alert {
	if current.Dissociation <= 0.7 && current.Dissociation-baseline.Dissociation <= 0.3 {
		return nil
	}
	return &Alert{
		EffectType:         EffectDissociation,
		Severity:           current.Dissociation,
		Indicators:         []string{"Dissociation détectée"},
		RecommendedAction:  ActionStopSession,
		AlternativeMethod:  alternativeGrounding,
		DebriefingRequired: true,
	}
}

// checkRuminationIncrease fires on lexical overlap across the last three
// responses or on a rumination delta from baseline.
func checkRuminationIncrease(current, baseline Snapshot, responses []string, thresholds Thresholds) *Alert {
	if len(responses) < 3 {
		return nil
	}

	last := responses[len(responses)-3:]
	sets := make([]map[string]bool, len(last))
	for i, r := range last {
		sets[i] = wordSet(r)
	}

	var overlaps []float64
	for i := 0; i < len(sets)-1; i++ {
		overlaps = append(overlaps, jaccard(sets[i], sets[i+1]))
	}
	avgOverlap := meanOf(overlaps)

	if avgOverlap <= 0.7 && current.Rumination-baseline.Rumination <= thresholds.RuminationIncrease {
		return nil
	}
	return &Alert{
		EffectType: EffectRuminationIncrease,
		Severity:   math.Max(avgOverlap, current.Rumination),
		Indicators: []string{
			"Rumination augmentée",
			fmt.Sprintf("Répétition thématique: %.2f", avgOverlap),
		},
		RecommendedAction: ActionSwitchMethod,
		AlternativeMethod: string(therapy.MethodMindfulness),
	}
}

// checkDerealization scans the last five responses for derealization
// language. Only defusion-style work carries this risk, so the scan is
// limited to the acceptance-based method.
func checkDerealization(method therapy.Method, responses []string, thresholds Thresholds) *Alert {
	if method != therapy.MethodAcceptance {
		return nil
	}

	window := responses
	if len(window) > 5 {
		window = window[len(window)-5:]
	}

	var count int
	for _, response := range window {
		lower := strings.ToLower(response)
		for _, marker := range derealizationMarkers {
			if marker.MatchString(lower) {
				count++
			}
		}
	}
	if count < thresholds.DerealizationMarkers {
		return nil
	}
	return &Alert{
		EffectType:         EffectDerealization,
		Severity:           math.Min(1, float64(count)/5),
		Indicators:         []string{fmt.Sprintf("Marqueurs déréalisation: %d", count)},
		RecommendedAction:  ActionStopSession,
		AlternativeMethod:  alternativeGrounding,
		DebriefingRequired: true,
	}
}

func checkCognitiveOverload(current Snapshot, duration time.Duration) *Alert {
	if current.CognitiveResources >= 0.3 || duration <= 20*time.Minute {
		return nil
	}
	return &Alert{
		EffectType: EffectCognitiveOverload,
		Severity:   1 - current.CognitiveResources,
		Indicators: []string{
			"Ressources cognitives épuisées",
			fmt.Sprintf("Durée: %d min", int(duration.Minutes())),
		},
		RecommendedAction: ActionPauseSession,
	}
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	var inter int
	for w := range a {
		if b[w] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
