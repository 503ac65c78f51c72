// Package orchestrator composes detection, screening, the session state
// machine, safety monitoring and generation into the per-turn pipeline.
// Turns for different users run concurrently; turns for the same user are
// serialized on a per-user lock, and session mutations are committed only
// after the whole pipeline has succeeded.
package orchestrator

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"solace/internal/detection"
	"solace/internal/emotion"
	"solace/internal/generation"
	"solace/internal/safety"
	"solace/internal/screening"
	"solace/internal/session"
)

// Config wires the orchestrator's collaborators.
type Config struct {
	Detection *detection.Engine
	Screening *screening.Engine
	Machine   *session.Machine
	Sessions  session.Store
	Monitor   *safety.Monitor
	Predictor *safety.Predictor
	Router    *generation.Router

	// Analyzer may be nil; the pipeline then estimates readings from the
	// self-reported scores.
	Analyzer emotion.Analyzer

	// NewID defaults to uuid.NewString.
	NewID func() string
}

// Orchestrator is the end-to-end turn pipeline.
type Orchestrator struct {
	detection *detection.Engine
	screening *screening.Engine
	machine   *session.Machine
	sessions  session.Store
	monitor   *safety.Monitor
	predictor *safety.Predictor
	router    *generation.Router
	analyzer  emotion.Analyzer

	newID func() string
	now   func() time.Time
	locks *userLocks
}

// New creates an orchestrator from its collaborators.
func New(cfg Config) *Orchestrator {
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Orchestrator{
		detection: cfg.Detection,
		screening: cfg.Screening,
		machine:   cfg.Machine,
		sessions:  cfg.Sessions,
		monitor:   cfg.Monitor,
		predictor: cfg.Predictor,
		router:    cfg.Router,
		analyzer:  cfg.Analyzer,
		newID:     newID,
		now:       time.Now,
		locks:     newUserLocks(),
	}
}

// userLocks serializes turns per user. Safety-threshold updates and step
// increments are non-commutative, so two turns for the same user must
// never interleave.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *userLocks) lock(userID string) func() {
	l.mu.Lock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
