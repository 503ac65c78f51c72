// Package emotion provides access to the emotion vector service and the
// clinical estimates derived from valence/arousal/dominance. When the
// service is unreachable callers fall back to the heuristic mapping from
// the self-reported scores, then to a neutral analysis.
package emotion

import (
	"context"
	"math"
)

// Vector is a raw emotion measurement. Components are in [-1, 1].
type Vector struct {
	Valence   float64 `json:"valence"`
	Arousal   float64 `json:"arousal"`
	Dominance float64 `json:"dominance"`
	Grief     float64 `json:"grief_intensity"`
}

// Analysis is a normalized emotion reading plus the clinical estimates
// derived from it. All components are in [0, 1].
type Analysis struct {
	Valence   float64
	Arousal   float64
	Dominance float64
	Grief     float64

	CognitiveFusion       float64
	ExperientialAvoidance float64
	Rumination            float64
	Mentalization         float64
	CognitiveProcessing   float64
	EmotionalAwareness    float64

	// Source records where the reading came from: "service", "heuristic"
	// or "neutral".
	Source string
}

// Analyzer produces an emotion analysis for a user message.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (Analysis, error)
}

// Neutral returns the analysis used when no emotion reading is available.
// Mid-scale on capacity estimates, zero on the pathology estimates.
func Neutral() Analysis {
	return Analysis{
		Valence:             0.5,
		Arousal:             0.5,
		Dominance:           0.5,
		Mentalization:       0.5,
		CognitiveProcessing: 0.5,
		EmotionalAwareness:  0.5,
		Source:              "neutral",
	}
}

// Derive normalizes a raw vector and computes the clinical estimates.
func Derive(v Vector) Analysis {
	a := Analysis{
		Valence:   normalize(v.Valence),
		Arousal:   normalize(v.Arousal),
		Dominance: normalize(v.Dominance),
		Grief:     clamp01(normalize(v.Grief)),
		Source:    "service",
	}

	// Optimal arousal peaks mid-scale: too flat or too activated both
	// impair reflective processing.
	optimalArousal := 1 - math.Abs(a.Arousal-0.5)*2

	a.CognitiveFusion = math.Min(1, a.Arousal*0.4+(1-a.Valence)*0.4+(1-a.Dominance)*0.2)
	a.ExperientialAvoidance = math.Min(1, a.Arousal*0.6+(1-a.Dominance)*0.4)
	a.Rumination = math.Min(1, (1-a.Valence)*0.6+optimalArousal*0.4)
	a.Mentalization = math.Min(1, a.Dominance*0.6+(1-a.Arousal)*0.4)
	a.CognitiveProcessing = math.Min(1, a.Dominance*0.5+optimalArousal*0.5)
	a.EmotionalAwareness = 0.5
	return a
}

// FromScores maps self-reported 0-100 scores onto a raw vector when the
// emotion service is unavailable.
func FromScores(distress, hope, energy float64) Vector {
	return Vector{
		Valence:   clamp11((hope - distress) / 100),
		Arousal:   clamp11((distress + energy) / 100 - 1),
		Dominance: clamp11((energy - 50) / 50),
		Grief:     clamp11(distress / 100),
	}
}

// AnalyzeOrEstimate calls the analyzer and degrades on any failure,
// including a nil analyzer: first to the heuristic mapping from the
// self-reported 0-100 scores, then to Neutral when no scores were
// reported. It never returns an error: emotion enrichment is best-effort
// by design of the pipeline.
func AnalyzeOrEstimate(ctx context.Context, a Analyzer, text string, distress, hope, energy float64) Analysis {
	if a != nil {
		if res, err := a.Analyze(ctx, text); err == nil {
			return res
		}
	}
	if distress == 0 && hope == 0 && energy == 0 {
		return Neutral()
	}
	est := Derive(FromScores(distress, hope, energy))
	est.Source = "heuristic"
	return est
}

// normalize maps [-1, 1] to [0, 1].
func normalize(x float64) float64 {
	return clamp01((x + 1) / 2)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func clamp11(x float64) float64 {
	if x < -1 {
		return -1
	}
	if x > 1 {
		return 1
	}
	return x
}
