package core

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/3cpo-dev/sweep/internal/dispatch"
	"github.com/3cpo-dev/sweep/pkg/api"
)

// Store is a SQLite-backed journal of dispatched runs.
type Store struct{ db *sql.DB }

//go:embed migrations/*.sql
var migrationFS embed.FS

// Run is one journaled dispatch.
type Run struct {
	ID        int64
	StartedAt time.Time
	Command   string
	Selector  string
	Backend   string
	Status    api.RunStatus
	HostCount int
	Duration  time.Duration
	Hosts     []RunHost
}

// RunHost is the outcome of one target of a run. ExitCode is nil when the
// backend did not report an exit status.
type RunHost struct {
	Host     string
	ExitCode *int
	Output   string
}

func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema, err := migrationFS.ReadFile("migrations/0001_init.sql")
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(string(schema)); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// RecordRun writes run and its hosts in one transaction and returns its id.
func (s *Store) RecordRun(ctx context.Context, run Run) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (started_at, command, selector, backend, status, host_count, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt.UTC().Format(time.RFC3339Nano), run.Command, run.Selector, run.Backend,
		string(run.Status), run.HostCount, run.Duration.Milliseconds())
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for i, h := range run.Hosts {
		var code sql.NullInt64
		if h.ExitCode != nil {
			code = sql.NullInt64{Int64: int64(*h.ExitCode), Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_hosts (run_id, position, host, exit_code, output) VALUES (?, ?, ?, ?, ?)`,
			id, i, h.Host, code, h.Output); err != nil {
			return 0, fmt.Errorf("insert run host: %w", err)
		}
	}
	return id, tx.Commit()
}

// ListRuns returns the most recent runs first, without their hosts.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, command, selector, backend, status, host_count, duration_ms
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		var (
			r       Run
			started string
			status  string
			ms      int64
		)
		if err := rows.Scan(&r.ID, &started, &r.Command, &r.Selector, &r.Backend, &status, &r.HostCount, &ms); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.Status = api.RunStatus(status)
		r.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}

// ErrRunNotFound is returned for a run id that was never recorded.
var ErrRunNotFound = errors.New("run not found")

// RunHosts returns the per-host outcomes of run id in target order.
func (s *Store) RunHosts(ctx context.Context, id int64) ([]RunHost, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("look up run %d: %w", id, err)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT host, exit_code, output FROM run_hosts WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("list run hosts: %w", err)
	}
	defer rows.Close()
	var out []RunHost
	for rows.Next() {
		var (
			h    RunHost
			code sql.NullInt64
		)
		if err := rows.Scan(&h.Host, &code, &h.Output); err != nil {
			return nil, err
		}
		if code.Valid {
			c := int(code.Int64)
			h.ExitCode = &c
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// hostsFromResult flattens a dispatch result for the journal.
func hostsFromResult(res dispatch.Result) []RunHost {
	out := make([]RunHost, 0, len(res.Hosts))
	for _, hr := range res.Hosts {
		switch o := hr.Outcome.(type) {
		case dispatch.Structured:
			h := RunHost{Host: hr.Host, Output: o.Primary + o.Secondary}
			if code, ok := o.ExitCode(); ok {
				h.ExitCode = &code
			} else {
				h.Output = o.Code + ": " + h.Output
			}
			out = append(out, h)
		case dispatch.Opaque:
			out = append(out, RunHost{Host: hr.Host, Output: o.Text})
		}
	}
	return out
}

// statusOf summarizes a result: succeeded only if every host exited 0.
func statusOf(res dispatch.Result) api.RunStatus {
	if res.Empty() {
		return api.RunEmpty
	}
	for _, hr := range res.Hosts {
		s, ok := hr.Outcome.(dispatch.Structured)
		if !ok {
			return api.RunFailed
		}
		if code, ok := s.ExitCode(); !ok || code != 0 {
			return api.RunFailed
		}
	}
	return api.RunSucceeded
}
