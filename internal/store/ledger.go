package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lguelzow/CoreasSpellcaster/internal/dispatch"
	"github.com/lguelzow/CoreasSpellcaster/internal/runid"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// NewSessionID returns a time-ordered session identifier (UUIDv7).
func NewSessionID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return id.String(), nil
}

// Session is one dispatcher run.
type Session struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
	ConfigPath string    `json:"config_path,omitempty"`
	Parallel   int       `json:"parallel"`

	Skipped               int  `json:"skipped"`
	Aliased               int  `json:"aliased"`
	Dispatched            int  `json:"dispatched"`
	Succeeded             int  `json:"succeeded"`
	Failed                int  `json:"failed"`
	MaterializationErrors int  `json:"materialization_errors"`
	LaunchErrors          int  `json:"launch_errors"`
	Stopped               bool `json:"stopped"`
}

// Run is the ledger row of one dispatched item.
type Run struct {
	Session  string         `json:"session"`
	Seq      int64          `json:"seq"`
	ID       runid.ID       `json:"id"`
	Location string         `json:"location"`
	State    dispatch.State `json:"state"`
	ExitCode int            `json:"exit_code"`
	Signal   string         `json:"signal,omitempty"`
	Error    string         `json:"error,omitempty"`
	Started  time.Time      `json:"started"`
	Finished time.Time      `json:"finished,omitzero"`
}

// Filter narrows Runs. Zero fields match everything.
type Filter struct {
	Session string
	ID      runid.ID
	State   dispatch.State
	Limit   int
}

// BeginSession inserts a session row.
func (s *Store) BeginSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, started_at, config_path, parallel)
		VALUES (?, ?, ?, ?)
	`, sess.ID, formatTime(sess.StartedAt), sess.ConfigPath, sess.Parallel)
	if err != nil {
		return fmt.Errorf("begin session: %w", err)
	}
	return nil
}

// FinishSession stores the final counters of a session.
func (s *Store) FinishSession(ctx context.Context, summary *dispatch.Summary, finished time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET
			finished_at = ?,
			skipped = ?, aliased = ?, dispatched = ?, succeeded = ?, failed = ?,
			materialization_errors = ?, launch_errors = ?, stopped = ?
		WHERE id = ?
	`,
		formatTime(finished),
		summary.Skipped, summary.Aliased, summary.Dispatched, summary.Succeeded, summary.Failed,
		summary.MaterializationErrors, summary.LaunchErrors, summary.Stopped,
		summary.Session,
	)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish session %s: %w", summary.Session, ErrNotFound)
	}
	return nil
}

// RecordLaunch inserts the row of a launched item.
func (s *Store) RecordLaunch(ctx context.Context, session string, r dispatch.Result) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (session_id, seq, run_id, location, state, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`, session, r.Seq, string(r.ID), r.Location, string(r.State), formatTime(r.Started))
	if err != nil {
		return fmt.Errorf("record launch %s: %w", r.ID, err)
	}
	return nil
}

// RecordExit stores the final state of an item. Items that never launched
// have no row yet and get one.
func (s *Store) RecordExit(ctx context.Context, session string, r dispatch.Result) error {
	errText := ""
	if r.Err != nil {
		errText = r.Err.Error()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (session_id, seq, run_id, location, state, exit_code, signal, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO UPDATE SET
			state = excluded.state,
			exit_code = excluded.exit_code,
			signal = excluded.signal,
			error = excluded.error,
			finished_at = excluded.finished_at
	`,
		session, r.Seq, string(r.ID), r.Location, string(r.State),
		r.ExitCode, r.Signal, errText,
		formatTime(r.Started), formatTime(r.Finished),
	)
	if err != nil {
		return fmt.Errorf("record exit %s: %w", r.ID, err)
	}
	return nil
}

// Sessions lists every session, oldest first.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, config_path, parallel,
		       skipped, aliased, dispatched, succeeded, failed,
		       materialization_errors, launch_errors, stopped
		FROM sessions
		ORDER BY started_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var (
			sess     Session
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&sess.ID, &started, &finished, &sess.ConfigPath, &sess.Parallel,
			&sess.Skipped, &sess.Aliased, &sess.Dispatched, &sess.Succeeded, &sess.Failed,
			&sess.MaterializationErrors, &sess.LaunchErrors, &sess.Stopped); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if sess.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if finished.Valid {
			if sess.FinishedAt, err = parseTime(finished.String); err != nil {
				return nil, err
			}
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// LatestSession returns the most recently started session.
func (s *Store) LatestSession(ctx context.Context) (Session, error) {
	sessions, err := s.Sessions(ctx)
	if err != nil {
		return Session{}, err
	}
	if len(sessions) == 0 {
		return Session{}, fmt.Errorf("latest session: %w", ErrNotFound)
	}
	return sessions[len(sessions)-1], nil
}

const runColumns = `r.session_id, r.seq, r.run_id, r.location, r.state, r.exit_code, r.signal, r.error, r.started_at, r.finished_at`

// Runs lists matching rows in session order, then launch order.
func (s *Store) Runs(ctx context.Context, f Filter) ([]Run, error) {
	var (
		where []string
		args  []any
	)
	if f.Session != "" {
		where = append(where, "r.session_id = ?")
		args = append(args, f.Session)
	}
	if f.ID != "" {
		where = append(where, "r.run_id = ?")
		args = append(args, string(f.ID))
	}
	if f.State != "" {
		where = append(where, "r.state = ?")
		args = append(args, string(f.State))
	}

	query := `SELECT ` + runColumns + ` FROM runs r JOIN sessions s ON s.id = r.session_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY s.started_at ASC, r.session_id COLLATE BINARY ASC, r.seq ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LastOutcome returns the most recent finished row for an item.
func (s *Store) LastOutcome(ctx context.Context, id runid.ID, location string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs r JOIN sessions s ON s.id = r.session_id
		WHERE r.run_id = ? AND r.location = ? AND r.finished_at IS NOT NULL
		ORDER BY s.started_at DESC, r.session_id COLLATE BINARY DESC, r.seq DESC
		LIMIT 1
	`, string(id), location)

	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("outcome of %s: %w", id, ErrNotFound)
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r        Run
		id       string
		state    string
		started  string
		finished sql.NullString
	)
	if err := sc.Scan(&r.Session, &r.Seq, &id, &r.Location, &state, &r.ExitCode, &r.Signal, &r.Error, &started, &finished); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	r.ID = runid.ID(id)
	r.State = dispatch.State(state)

	var err error
	if r.Started, err = parseTime(started); err != nil {
		return Run{}, err
	}
	if finished.Valid {
		if r.Finished, err = parseTime(finished.String); err != nil {
			return Run{}, err
		}
	}
	return r, nil
}

// timeFormat has fixed width so stored timestamps sort as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

// Ledger records dispatcher results into a Store under one session.
type Ledger struct {
	Store   *Store
	Session string
	// Ctx bounds the ledger writes. Nil means context.Background.
	Ctx context.Context
}

func (l *Ledger) ctx() context.Context {
	if l.Ctx != nil {
		return l.Ctx
	}
	return context.Background()
}

// OnLaunch implements dispatch.Recorder.
func (l *Ledger) OnLaunch(r dispatch.Result) error {
	return l.Store.RecordLaunch(l.ctx(), l.Session, r)
}

// OnExit implements dispatch.Recorder.
func (l *Ledger) OnExit(r dispatch.Result) error {
	return l.Store.RecordExit(l.ctx(), l.Session, r)
}
