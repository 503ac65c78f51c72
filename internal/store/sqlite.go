// Package store provides the persistent backends behind the in-memory
// defaults: SQLite for the per-user safety history and Redis for session
// contexts. The core only assumes get/put-by-key semantics, so either
// backend can be swapped for the memory implementations in tests.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"solace/internal/logging"
	"solace/internal/safety"
)

const schema = `
CREATE TABLE IF NOT EXISTS safety_sessions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id     TEXT NOT NULL,
	recorded_at TIMESTAMP NOT NULL,
	metrics     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_safety_sessions_user ON safety_sessions(user_id, id);

CREATE TABLE IF NOT EXISTS safety_observations (
	user_id      TEXT NOT NULL,
	observed_at  TIMESTAMP NOT NULL,
	distress     REAL NOT NULL,
	arousal      REAL NOT NULL,
	dissociation REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_safety_observations_user ON safety_observations(user_id, observed_at);
`

// sessionRetention mirrors the rolling window the safety package assumes.
const sessionRetention = 30

// observationRetention mirrors the trend window retention.
const observationRetention = 24 * time.Hour

// SafetyStore is the SQLite-backed safety history. It implements both
// safety.SessionHistory and safety.ObservationLog.
type SafetyStore struct {
	db *sql.DB
}

// OpenSafetyStore opens (and migrates) the SQLite database at path.
func OpenSafetyStore(path string) (*SafetyStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open safety db: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent turns.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate safety db: %w", err)
	}
	logging.Store("safety store opened at %s", path)
	return &SafetyStore{db: db}, nil
}

// Close releases the database handle.
func (s *SafetyStore) Close() error {
	return s.db.Close()
}

// Append records one session's metric summary and trims the rolling
// window to the last 30 sessions.
func (s *SafetyStore) Append(ctx context.Context, userID string, metrics map[string]float64) error {
	payload, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO safety_sessions (user_id, recorded_at, metrics) VALUES (?, ?, ?)`,
		userID, time.Now().UTC(), string(payload)); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM safety_sessions WHERE user_id = ? AND id NOT IN (
			SELECT id FROM safety_sessions WHERE user_id = ? ORDER BY id DESC LIMIT ?
		)`, userID, userID, sessionRetention); err != nil {
		return fmt.Errorf("trim sessions: %w", err)
	}
	return tx.Commit()
}

// Recent returns up to limit most recent session summaries, oldest first.
func (s *SafetyStore) Recent(ctx context.Context, userID string, limit int) ([]map[string]float64, error) {
	if limit <= 0 {
		limit = sessionRetention
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT metrics FROM (
			SELECT id, metrics FROM safety_sessions WHERE user_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []map[string]float64
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		var metrics map[string]float64
		if err := json.Unmarshal([]byte(payload), &metrics); err != nil {
			logging.StoreError("corrupt session metrics for user=%s skipped: %v", userID, err)
			continue
		}
		out = append(out, metrics)
	}
	return out, rows.Err()
}

// AppendObservation records a trend reading and drops points older than
// the 24h retention window.
func (s *SafetyStore) AppendObservation(ctx context.Context, userID string, obs safety.Observation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO safety_observations (user_id, observed_at, distress, arousal, dissociation)
		 VALUES (?, ?, ?, ?, ?)`,
		userID, obs.Time.UTC(), obs.Distress, obs.Arousal, obs.Dissoc); err != nil {
		return fmt.Errorf("insert observation: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM safety_observations WHERE user_id = ? AND observed_at <= ?`,
		userID, obs.Time.UTC().Add(-observationRetention)); err != nil {
		return fmt.Errorf("trim observations: %w", err)
	}
	return tx.Commit()
}

// ObservationsSince returns readings newer than cutoff, oldest first.
func (s *SafetyStore) ObservationsSince(ctx context.Context, userID string, cutoff time.Time) ([]safety.Observation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT observed_at, distress, arousal, dissociation
		 FROM safety_observations WHERE user_id = ? AND observed_at > ?
		 ORDER BY observed_at ASC`, userID, cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var out []safety.Observation
	for rows.Next() {
		var obs safety.Observation
		if err := rows.Scan(&obs.Time, &obs.Distress, &obs.Arousal, &obs.Dissoc); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		out = append(out, obs)
	}
	return out, rows.Err()
}

// ObservationLog adapts the store to safety.ObservationLog.
func (s *SafetyStore) ObservationLog() safety.ObservationLog {
	return observationLog{s}
}

type observationLog struct {
	store *SafetyStore
}

func (l observationLog) Append(ctx context.Context, userID string, obs safety.Observation) error {
	return l.store.AppendObservation(ctx, userID, obs)
}

func (l observationLog) Since(ctx context.Context, userID string, cutoff time.Time) ([]safety.Observation, error) {
	return l.store.ObservationsSince(ctx, userID, cutoff)
}
