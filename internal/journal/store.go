package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"warden/internal/config"
)

// Store persists daemon run records in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.Journal.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: cfg.Journal.Path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Begin records the start of a daemon run.
func (s *Store) Begin(ctx context.Context, runID string, pid int, mode, logPath string) (*Run, error) {
	if runID == "" {
		return nil, errors.New("run id required")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (run_id, pid, mode, state, started_at, log_path)
         VALUES (?, ?, ?, ?, ?, ?)`,
		runID,
		pid,
		mode,
		RunStateRunning,
		now,
		nullableString(logPath),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	return s.GetByRunID(ctx, runID)
}

// Beat bumps the heartbeat counter for a run and stamps the beat time.
func (s *Store) Beat(ctx context.Context, runID string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE runs SET last_beat = ?, beats = beats + 1 WHERE run_id = ?`,
		now,
		runID,
	)
	if err != nil {
		return fmt.Errorf("record heartbeat: %w", err)
	}
	return nil
}

// MarkStopping flags that shutdown was requested for a running run.
func (s *Store) MarkStopping(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE runs SET state = ? WHERE run_id = ? AND state = ?`,
		RunStateStopping,
		runID,
		RunStateRunning,
	)
	if err != nil {
		return fmt.Errorf("mark stopping: %w", err)
	}
	return nil
}

// RecordRunError counts a failed workload iteration and keeps the latest
// failure message.
func (s *Store) RecordRunError(ctx context.Context, runID, message string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE runs SET run_errors = run_errors + 1, detail = COALESCE(?, detail) WHERE run_id = ?`,
		nullableString(message),
		runID,
	)
	if err != nil {
		return fmt.Errorf("record run error: %w", err)
	}
	return nil
}

// Finish moves a run to a terminal state. An empty detail preserves whatever
// the run recorded earlier.
func (s *Store) Finish(ctx context.Context, runID string, state RunState, detail string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE runs SET state = ?, stopped_at = ?, detail = COALESCE(?, detail) WHERE run_id = ?`,
		state,
		now,
		nullableString(detail),
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// GetByRunID fetches a run by its identifier.
func (s *Store) GetByRunID(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// Recent returns the newest runs first, at most limit of them.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Stats returns a count of runs grouped by state.
func (s *Store) Stats(ctx context.Context) (map[RunState]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(1) FROM runs GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("journal stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[RunState]int)
	for rows.Next() {
		var state RunState
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		stats[state] = count
	}
	return stats, rows.Err()
}

// Prune removes finished runs that started before cutoff. Runs still in
// flight are never pruned.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM runs WHERE started_at < ? AND state IN (?, ?, ?)`,
		cutoff.UTC().Format(time.RFC3339Nano),
		RunStateStopped,
		RunStateEscalated,
		RunStateFailed,
	)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all recorded runs.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs`)
	if err != nil {
		return 0, fmt.Errorf("clear journal: %w", err)
	}
	return res.RowsAffected()
}

const runColumns = "id, run_id, pid, mode, state, started_at, stopped_at, last_beat, beats, run_errors, log_path, detail"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		id         int64
		runID      string
		pid        int64
		mode       string
		stateStr   string
		startedRaw string
		stoppedRaw sql.NullString
		beatRaw    sql.NullString
		beats      int64
		runErrors  int64
		logPath    sql.NullString
		detail     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&runID,
		&pid,
		&mode,
		&stateStr,
		&startedRaw,
		&stoppedRaw,
		&beatRaw,
		&beats,
		&runErrors,
		&logPath,
		&detail,
	); err != nil {
		return nil, err
	}

	run := &Run{
		ID:        id,
		RunID:     runID,
		PID:       int(pid),
		Mode:      mode,
		State:     RunState(stateStr),
		Beats:     beats,
		RunErrors: runErrors,
		LogPath:   logPath.String,
		Detail:    detail.String,
	}
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if stoppedRaw.Valid {
		if stopped, err := parseTimeString(stoppedRaw.String); err == nil {
			run.StoppedAt = &stopped
		}
	}
	if beatRaw.Valid {
		if beat, err := parseTimeString(beatRaw.String); err == nil {
			run.LastBeat = &beat
		}
	}
	return run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
