// Package session executes a multi-step guided protocol for one
// (user, session) pair. The state machine works on copies: callers load a
// Context from the Store, advance it, and commit it back only once the
// whole turn pipeline has succeeded.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"solace/internal/protocol"
	"solace/internal/therapy"
	"solace/internal/transition"
)

// Status of a session.
type Status string

const (
	StatusNotStarted    Status = "not_started"
	StatusInProgress    Status = "in_progress"
	StatusCompleted     Status = "completed"
	StatusTransitioning Status = "transitioning"
	StatusAborted       Status = "aborted"
)

// ErrNoActiveSession is returned when advancing a session that is not in
// progress, or loading one that does not exist.
var ErrNoActiveSession = errors.New("no active session")

// Context is the mutable state of one guided session. The protocol
// variation is snapshotted at start so a catalog reload cannot reshuffle
// the steps of a running session.
type Context struct {
	ID     string
	UserID string

	Method    therapy.Method
	Variation string
	Protocol  protocol.Variation

	Status      Status
	CurrentStep int
	TotalSteps  int
	StartTime   time.Time

	// BaselineDistress and BaselineDissociation are the readings at
	// session start, the reference the safety monitor measures changes
	// against.
	BaselineDistress     float64
	BaselineDissociation float64

	Responses         []string
	ProgressionScores []float64
	Adjustments       []string

	PendingTransition *transition.Recommendation
	DebriefingPending bool
}

// clone deep-copies the mutable parts so stored sessions cannot be
// mutated through a returned Context.
func (c Context) clone() Context {
	out := c
	out.Responses = append([]string(nil), c.Responses...)
	out.ProgressionScores = append([]float64(nil), c.ProgressionScores...)
	out.Adjustments = append([]string(nil), c.Adjustments...)
	if c.PendingTransition != nil {
		rec := *c.PendingTransition
		rec.Signals = append([]string(nil), c.PendingTransition.Signals...)
		out.PendingTransition = &rec
	}
	out.Protocol.Steps = append([]protocol.Step(nil), c.Protocol.Steps...)
	return out
}

// Store holds session contexts by id. Get returns a copy; mutations are
// only visible after Put.
type Store interface {
	Get(ctx context.Context, id string) (Context, error)
	Put(ctx context.Context, sess Context) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore is the in-process Store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Context
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Context)}
}

func (s *MemoryStore) Get(_ context.Context, id string) (Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Context{}, ErrNoActiveSession
	}
	return sess.clone(), nil
}

func (s *MemoryStore) Put(_ context.Context, sess Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess.clone()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
