package safety

import (
	"context"
	"sort"
	"sync"
	"time"
)

// sessionRetention caps the rolling per-user session window.
const sessionRetention = 30

// observationRetention caps how long trend observations are kept.
const observationRetention = 24 * time.Hour

// SessionHistory stores per-session metric summaries used to personalize
// thresholds. Implementations keep at most the last 30 sessions per user.
type SessionHistory interface {
	Append(ctx context.Context, userID string, metrics map[string]float64) error
	Recent(ctx context.Context, userID string, limit int) ([]map[string]float64, error)
}

// ObservationLog stores timestamped readings for trend analysis.
// Implementations drop observations older than 24 hours.
type ObservationLog interface {
	Append(ctx context.Context, userID string, obs Observation) error
	Since(ctx context.Context, userID string, cutoff time.Time) ([]Observation, error)
}

// MemorySessionHistory is the in-process SessionHistory.
type MemorySessionHistory struct {
	mu       sync.RWMutex
	sessions map[string][]map[string]float64
}

// NewMemorySessionHistory creates an empty in-process session history.
func NewMemorySessionHistory() *MemorySessionHistory {
	return &MemorySessionHistory{sessions: make(map[string][]map[string]float64)}
}

func (h *MemorySessionHistory) Append(_ context.Context, userID string, metrics map[string]float64) error {
	cp := make(map[string]float64, len(metrics))
	for k, v := range metrics {
		cp[k] = v
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	list := append(h.sessions[userID], cp)
	if len(list) > sessionRetention {
		list = list[len(list)-sessionRetention:]
	}
	h.sessions[userID] = list
	return nil
}

func (h *MemorySessionHistory) Recent(_ context.Context, userID string, limit int) ([]map[string]float64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	list := h.sessions[userID]
	if limit > 0 && len(list) > limit {
		list = list[len(list)-limit:]
	}
	out := make([]map[string]float64, 0, len(list))
	for _, m := range list {
		cp := make(map[string]float64, len(m))
		for k, v := range m {
			cp[k] = v
		}
		out = append(out, cp)
	}
	return out, nil
}

// MemoryObservationLog is the in-process ObservationLog.
type MemoryObservationLog struct {
	mu     sync.RWMutex
	points map[string][]Observation
}

// NewMemoryObservationLog creates an empty in-process observation log.
func NewMemoryObservationLog() *MemoryObservationLog {
	return &MemoryObservationLog{points: make(map[string][]Observation)}
}

func (l *MemoryObservationLog) Append(_ context.Context, userID string, obs Observation) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := obs.Time.Add(-observationRetention)
	kept := make([]Observation, 0, len(l.points[userID])+1)
	for _, p := range l.points[userID] {
		if p.Time.After(cutoff) {
			kept = append(kept, p)
		}
	}
	kept = append(kept, obs)
	sort.Slice(kept, func(i, j int) bool { return kept[i].Time.Before(kept[j].Time) })
	l.points[userID] = kept
	return nil
}

func (l *MemoryObservationLog) Since(_ context.Context, userID string, cutoff time.Time) ([]Observation, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Observation
	for _, p := range l.points[userID] {
		if p.Time.After(cutoff) {
			out = append(out, p)
		}
	}
	return out, nil
}
