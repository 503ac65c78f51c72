package safety

import (
	"context"
	"math"
	"time"
)

// RiskPrediction is the rule-based risk estimate for the coming turns.
type RiskPrediction struct {
	RiskScore      float64
	RiskFactors    []string
	Confidence     float64
	TrendDirection string
}

// Predictor scores near-term risk from the recent trend and the current
// state, without any learned model.
type Predictor struct {
	trend *TrendAnalyzer
	now   func() time.Time
}

// NewPredictor creates a predictor over a trend analyzer.
func NewPredictor(trend *TrendAnalyzer) *Predictor {
	return &Predictor{trend: trend, now: time.Now}
}

// Predict applies the expert rule table. Factors are additive; the score
// is clamped to 1 and the confidence shrinks with each factor present.
func (p *Predictor) Predict(ctx context.Context, userID string, current Snapshot, fatigue float64) RiskPrediction {
	trend := p.trend.Analyze(ctx, userID)

	var score float64
	var factors []string

	if trend.DistressSlope > 0.1 {
		score += 0.3
		factors = append(factors, "detresse_croissante")
	}
	if trend.EmotionalVariability > 0.7 {
		score += 0.2
		factors = append(factors, "instabilite_emotionnelle")
	}
	if fatigue > 0.8 {
		score += 0.15
		factors = append(factors, "fatigue_elevee")
	}
	hour := p.now().Hour()
	if hour >= 22 || hour <= 6 {
		score += 0.15
		factors = append(factors, "periode_nocturne")
	}
	if current.Dissociation > 0.5 {
		score += 0.2
		factors = append(factors, "dissociation_baseline")
	}

	return RiskPrediction{
		RiskScore:      math.Min(score, 1),
		RiskFactors:    factors,
		Confidence:     0.8 - float64(len(factors))*0.1,
		TrendDirection: trend.TrendDirection,
	}
}
