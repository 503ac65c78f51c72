package safety

import (
	"context"
	"time"
)

// trendWindow is how far back the slope estimate looks.
const trendWindow = 4 * time.Hour

// minTrendPoints below which no trend is reported.
const minTrendPoints = 3

// TrendAnalysis summarizes the recent distress trajectory.
type TrendAnalysis struct {
	DistressSlope        float64
	EmotionalVariability float64
	DataPoints           int
	TrendDirection       string // "up", "down", "stable", "unknown"
}

func insufficientData() TrendAnalysis {
	return TrendAnalysis{TrendDirection: "unknown"}
}

// TrendAnalyzer computes slope and variability over the rolling window.
// The clock is injectable for tests.
type TrendAnalyzer struct {
	log ObservationLog
	now func() time.Time
}

// NewTrendAnalyzer wraps an observation log.
func NewTrendAnalyzer(log ObservationLog) *TrendAnalyzer {
	return &TrendAnalyzer{log: log, now: time.Now}
}

// AddPoint records one reading.
func (t *TrendAnalyzer) AddPoint(ctx context.Context, userID string, distress, arousal, dissociation float64) error {
	return t.log.Append(ctx, userID, Observation{
		Time:     t.now(),
		Distress: distress,
		Arousal:  arousal,
		Dissoc:   dissociation,
	})
}

// Analyze estimates the distress slope over the last 4 hours by simple
// linear regression over point index. Re-running on an unchanged window
// yields the same result.
func (t *TrendAnalyzer) Analyze(ctx context.Context, userID string) TrendAnalysis {
	points, err := t.log.Since(ctx, userID, t.now().Add(-trendWindow))
	if err != nil || len(points) < minTrendPoints {
		return insufficientData()
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Distress
	}

	slope := simpleSlope(values)

	mean := meanOf(values)
	variability := stddevOf(values, mean) / 100

	direction := "stable"
	switch {
	case slope > 0.05:
		direction = "up"
	case slope < -0.05:
		direction = "down"
	}

	return TrendAnalysis{
		DistressSlope:        slope,
		EmotionalVariability: variability,
		DataPoints:           len(points),
		TrendDirection:       direction,
	}
}

// simpleSlope is least-squares over x = 0..n-1.
func simpleSlope(y []float64) float64 {
	n := len(y)
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumX2 float64
	for i, v := range y {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumX2 += x * x
	}

	denom := float64(n)*sumX2 - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (float64(n)*sumXY - sumX*sumY) / denom
}
