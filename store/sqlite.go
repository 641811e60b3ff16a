package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite-backed Store.
//
// It keeps solve runs in a single-file database, created and migrated on
// first use, with WAL mode enabled for concurrent readers. Suited to
// development, single-robot deployments and prototyping before moving to a
// shared database.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS solve_runs (
	run_id      TEXT PRIMARY KEY,
	solver      TEXT NOT NULL,
	risk_metric REAL NOT NULL,
	graph       TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_solve_runs_solver_created
	ON solve_runs(solver, created_at);
`

// NewSQLiteStore opens (or creates) the database at path. Use ":memory:"
// for an in-memory database that vanishes on Close.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// SQLite supports a single writer; size the pool accordingly.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// SaveRun persists the record, replacing a run with the same id.
func (s *SQLiteStore) SaveRun(ctx context.Context, rec Record) error {
	if rec.RunID == "" {
		return fmt.Errorf("empty run id")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO solve_runs (run_id, solver, risk_metric, graph, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.RunID, rec.Solver, rec.RiskMetric, string(rec.Graph), rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", rec.RunID, err)
	}
	return nil
}

// LoadRun retrieves a run by id.
func (s *SQLiteStore) LoadRun(ctx context.Context, runID string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, solver, risk_metric, graph, created_at
		 FROM solve_runs WHERE run_id = ?`, runID)
	return scanRecord(row, runID)
}

// LoadLatest retrieves the most recent run for the solver name.
func (s *SQLiteStore) LoadLatest(ctx context.Context, solverName string) (Record, error) {
	var row *sql.Row
	if solverName == "" {
		row = s.db.QueryRowContext(ctx,
			`SELECT run_id, solver, risk_metric, graph, created_at
			 FROM solve_runs ORDER BY created_at DESC LIMIT 1`)
	} else {
		row = s.db.QueryRowContext(ctx,
			`SELECT run_id, solver, risk_metric, graph, created_at
			 FROM solve_runs WHERE solver = ?
			 ORDER BY created_at DESC LIMIT 1`, solverName)
	}
	return scanRecord(row, solverName)
}

// ListRuns returns runs most recent first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Record, error) {
	query := `SELECT run_id, solver, risk_metric, graph, created_at
		 FROM solve_runs ORDER BY created_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		var rec Record
		var graph string
		if err := rows.Scan(&rec.RunID, &rec.Solver, &rec.RiskMetric, &graph, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		rec.Graph = []byte(graph)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanRecord decodes one row, translating sql.ErrNoRows to ErrNotFound.
func scanRecord(row *sql.Row, key string) (Record, error) {
	var rec Record
	var graph string
	err := row.Scan(&rec.RunID, &rec.Solver, &rec.RiskMetric, &graph, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%q: %w", key, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("loading run: %w", err)
	}
	rec.Graph = []byte(graph)
	return rec, nil
}
