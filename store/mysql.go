package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL-backed Store for fleet deployments where several
// processes share solve history.
//
// The DSN must enable parseTime so timestamps scan into time.Time:
//
//	store, err := NewMySQLStore("user:pass@tcp(host:3306)/stp?parseTime=true")
type MySQLStore struct {
	db *sql.DB
}

const mysqlSchema = `
CREATE TABLE IF NOT EXISTS solve_runs (
	run_id      VARCHAR(64) PRIMARY KEY,
	solver      VARCHAR(32) NOT NULL,
	risk_metric DOUBLE NOT NULL,
	graph       MEDIUMTEXT NOT NULL,
	created_at  TIMESTAMP(6) NOT NULL,
	INDEX idx_solver_created (solver, created_at)
)`

// NewMySQLStore connects to the database and migrates the schema.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening mysql connection: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging mysql: %w", err)
	}
	if _, err := db.ExecContext(ctx, mysqlSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &MySQLStore{db: db}, nil
}

// SaveRun persists the record, replacing a run with the same id.
func (s *MySQLStore) SaveRun(ctx context.Context, rec Record) error {
	if rec.RunID == "" {
		return fmt.Errorf("empty run id")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`REPLACE INTO solve_runs (run_id, solver, risk_metric, graph, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.RunID, rec.Solver, rec.RiskMetric, string(rec.Graph), rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", rec.RunID, err)
	}
	return nil
}

// LoadRun retrieves a run by id.
func (s *MySQLStore) LoadRun(ctx context.Context, runID string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, solver, risk_metric, graph, created_at
		 FROM solve_runs WHERE run_id = ?`, runID)
	return scanMySQLRecord(row, runID)
}

// LoadLatest retrieves the most recent run for the solver name.
func (s *MySQLStore) LoadLatest(ctx context.Context, solverName string) (Record, error) {
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
	return scanMySQLRecord(row, solverName)
}

// ListRuns returns runs most recent first.
func (s *MySQLStore) ListRuns(ctx context.Context, limit int) ([]Record, error) {
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
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

func scanMySQLRecord(row *sql.Row, key string) (Record, error) {
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
