package store

import (
	"database/sql"
	"fmt"
	"time"
)

const timeFmt = "2006-01-02T15:04:05Z"

// Session is one recorded run of the wrapped tool. FinishedAt and ExitCode
// stay nil while the run is in flight or if it never reported back.
type Session struct {
	ID         string
	Tool       string
	Target     string
	StartedAt  time.Time
	FinishedAt *time.Time
	ExitCode   *int
	Stamped    int
}

func (s *Store) StartSession(sess *Session) error {
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`INSERT INTO sessions (id, tool, target, started_at) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.Tool, sess.Target, sess.StartedAt.UTC().Format(timeFmt))
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	return nil
}

func (s *Store) FinishSession(id, target string, exitCode, stamped int) error {
	now := time.Now().UTC().Format(timeFmt)
	_, err := s.db.Exec(`UPDATE sessions SET target = ?, exit_code = ?, stamped = ?, finished_at = ? WHERE id = ?`,
		target, exitCode, stamped, now, id)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(id string) (*Session, error) {
	sess := &Session{}
	var startedAt string
	var finishedAt *string
	err := s.db.QueryRow(`SELECT id, tool, target, started_at, finished_at, exit_code, stamped
		FROM sessions WHERE id = ?`, id).Scan(
		&sess.ID, &sess.Tool, &sess.Target, &startedAt, &finishedAt, &sess.ExitCode, &sess.Stamped)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	sess.StartedAt = parseTime(startedAt)
	sess.FinishedAt = parseTimePtr(finishedAt)
	return sess, nil
}

func (s *Store) ListSessions(n int) ([]*Session, error) {
	rows, err := s.db.Query(`SELECT id, tool, target, started_at, finished_at, exit_code, stamped
		FROM sessions ORDER BY started_at DESC, id LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

func scanSessions(rows *sql.Rows) ([]*Session, error) {
	var sessions []*Session
	for rows.Next() {
		sess := &Session{}
		var startedAt string
		var finishedAt *string
		if err := rows.Scan(&sess.ID, &sess.Tool, &sess.Target, &startedAt, &finishedAt,
			&sess.ExitCode, &sess.Stamped); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.StartedAt = parseTime(startedAt)
		sess.FinishedAt = parseTimePtr(finishedAt)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func parseTime(s string) time.Time {
	for _, layout := range []string{timeFmt, "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parseTimePtr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t := parseTime(*s)
	if t.IsZero() {
		return nil
	}
	return &t
}
