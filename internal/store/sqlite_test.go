package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solace/internal/safety"
)

func newTestSafetyStore(t *testing.T) *SafetyStore {
	t.Helper()
	s, err := OpenSafetyStore(filepath.Join(t.TempDir(), "safety.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSafetyStoreSessionRoundTrip(t *testing.T) {
	s := newTestSafetyStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "marie", map[string]float64{"distress_increase_rate": 0.15}))
	require.NoError(t, s.Append(ctx, "marie", map[string]float64{"distress_increase_rate": 0.25}))
	require.NoError(t, s.Append(ctx, "paul", map[string]float64{"distress_increase_rate": 0.9}))

	recent, err := s.Recent(ctx, "marie", 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 0.15, recent[0]["distress_increase_rate"])
	assert.Equal(t, 0.25, recent[1]["distress_increase_rate"])
}

func TestSafetyStoreTrimsToRetentionWindow(t *testing.T) {
	s := newTestSafetyStore(t)
	ctx := context.Background()

	for i := 0; i < sessionRetention+5; i++ {
		require.NoError(t, s.Append(ctx, "marie", map[string]float64{"n": float64(i)}))
	}

	recent, err := s.Recent(ctx, "marie", 0)
	require.NoError(t, err)
	require.Len(t, recent, sessionRetention)
	assert.Equal(t, 5.0, recent[0]["n"])
	assert.Equal(t, float64(sessionRetention+4), recent[len(recent)-1]["n"])
}

func TestSafetyStoreRecentHonorsLimit(t *testing.T) {
	s := newTestSafetyStore(t)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		require.NoError(t, s.Append(ctx, "marie", map[string]float64{"n": float64(i)}))
	}

	recent, err := s.Recent(ctx, "marie", 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, 5.0, recent[0]["n"])
}

func TestSafetyStoreObservationsWindowAndOrder(t *testing.T) {
	s := newTestSafetyStore(t)
	ctx := context.Background()
	log := s.ObservationLog()
	now := time.Now()

	require.NoError(t, log.Append(ctx, "marie", safety.Observation{Time: now.Add(-2 * time.Hour), Distress: 40}))
	require.NoError(t, log.Append(ctx, "marie", safety.Observation{Time: now.Add(-30 * time.Minute), Distress: 55}))
	require.NoError(t, log.Append(ctx, "marie", safety.Observation{Time: now, Distress: 70}))

	points, err := log.Since(ctx, "marie", now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 55.0, points[0].Distress)
	assert.Equal(t, 70.0, points[1].Distress)
}

func TestSafetyStoreDropsStaleObservations(t *testing.T) {
	s := newTestSafetyStore(t)
	ctx := context.Background()
	log := s.ObservationLog()
	now := time.Now()

	require.NoError(t, log.Append(ctx, "marie", safety.Observation{Time: now.Add(-26 * time.Hour), Distress: 90}))
	require.NoError(t, log.Append(ctx, "marie", safety.Observation{Time: now, Distress: 40}))

	points, err := log.Since(ctx, "marie", now.Add(-48*time.Hour))
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 40.0, points[0].Distress)
}

func TestSafetyStoreBacksAdaptiveThresholds(t *testing.T) {
	s := newTestSafetyStore(t)
	ctx := context.Background()
	adaptive := safety.NewAdaptiveThresholds(s, safety.DefaultThresholds())

	for i := 0; i < 6; i++ {
		rate := 0.1 + float64(i)*0.01
		require.NoError(t, adaptive.RecordSession(ctx, "marie", map[string]float64{
			safety.MetricDistressIncreaseRate: rate,
		}))
	}

	threshold := adaptive.PersonalThreshold(ctx, "marie", safety.MetricDistressIncreaseRate)
	assert.GreaterOrEqual(t, threshold, safety.DefaultThresholds().DistressIncreaseRate)
}

func TestSafetyStoreIsolatesUsers(t *testing.T) {
	s := newTestSafetyStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Append(ctx, fmt.Sprintf("user-%d", i), map[string]float64{"n": float64(i)}))
	}

	recent, err := s.Recent(ctx, "user-1", 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, 1.0, recent[0]["n"])
}
