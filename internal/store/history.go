package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Session is one recorded sync session.
type Session struct {
	ID        string
	Branch    string
	Mode      string
	StartedAt time.Time
	EndedAt   time.Time // zero while the session runs
}

// Cycle is one recorded commit cycle within a session.
type Cycle struct {
	SessionID string
	Seq       int64
	RepoID    string
	Revision  string
	Amend     bool
	PushedAt  time.Time
}

// BeginSession records the start of a session.
func (s *Store) BeginSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, branch, mode, started_at)
		VALUES (?, ?, ?, ?)
	`, sess.ID, sess.Branch, sess.Mode, sess.StartedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("begin session %s: %w", sess.ID, err)
	}
	return nil
}

// EndSession stamps a session's end time.
func (s *Store) EndSession(ctx context.Context, id string, endedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET ended_at = ? WHERE id = ?
	`, endedAt.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("end session %s: %w", id, err)
	}
	return nil
}

// RecordCycle records one completed commit cycle.
func (s *Store) RecordCycle(ctx context.Context, c Cycle) error {
	amend := 0
	if c.Amend {
		amend = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cycles (session_id, seq, repo_id, revision, amend, pushed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.SessionID, c.Seq, c.RepoID, c.Revision, amend, c.PushedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record cycle %s/%d: %w", c.SessionID, c.Seq, err)
	}
	return nil
}

// Sessions returns all recorded sessions, most recent first.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, branch, mode, started_at, ended_at
		FROM sessions
		ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var (
			sess    Session
			started string
			ended   sql.NullString
		)
		if err := rows.Scan(&sess.ID, &sess.Branch, &sess.Mode, &started, &ended); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if sess.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
			return nil, fmt.Errorf("parse session start: %w", err)
		}
		if ended.Valid {
			if sess.EndedAt, err = time.Parse(time.RFC3339, ended.String); err != nil {
				return nil, fmt.Errorf("parse session end: %w", err)
			}
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Cycles returns one session's commit cycles in clock order.
func (s *Store) Cycles(ctx context.Context, sessionID string) ([]Cycle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, seq, repo_id, revision, amend, pushed_at
		FROM cycles
		WHERE session_id = ?
		ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}
	defer rows.Close()

	var out []Cycle
	for rows.Next() {
		var (
			c      Cycle
			amend  int
			pushed string
		)
		if err := rows.Scan(&c.SessionID, &c.Seq, &c.RepoID, &c.Revision, &amend, &pushed); err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		c.Amend = amend != 0
		if c.PushedAt, err = time.Parse(time.RFC3339, pushed); err != nil {
			return nil, fmt.Errorf("parse cycle time: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
