// Package store keeps the history of evaluated snapshots in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"grid-integration-study/evaluate"
)

// FileName is the database file inside the store directory.
const FileName = "study.db"

// Store is the study history database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Cycle is one stored evaluation.
type Cycle struct {
	ID        int64
	RunID     uuid.UUID
	Label     string
	CreatedAt time.Time

	MaxLineLoading  float64
	WorstLine       int
	MaxTrafoLoading float64
	WorstTrafo      int
	MaxVM           float64
	MaxVMBus        int
	MinVM           float64
	MinVMBus        int
	TotalSgenMW     float64
	Violations      int
}

// Run summarises the cycles of one study run.
type Run struct {
	ID         uuid.UUID
	StartedAt  time.Time
	Cycles     int
	Violations int
}

// NewRunID returns a fresh run identifier.
func NewRunID() uuid.UUID {
	return uuid.New()
}

// Open opens or creates the database in dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	dbPath := filepath.Join(dir, FileName)
	db, err := sql.Open("sqlite", dbPath+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, dbPath: dbPath}
	if err := s.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS cycles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		label TEXT NOT NULL,
		created_at TEXT NOT NULL,
		max_line_loading REAL NOT NULL,
		worst_line INTEGER NOT NULL,
		max_trafo_loading REAL NOT NULL,
		worst_trafo INTEGER NOT NULL,
		max_vm REAL NOT NULL,
		max_vm_bus INTEGER NOT NULL,
		min_vm REAL NOT NULL,
		min_vm_bus INTEGER NOT NULL,
		total_sgen_mw REAL NOT NULL,
		violations INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cycles_run ON cycles(run_id);
	CREATE INDEX IF NOT EXISTS idx_cycles_created ON cycles(created_at);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveCycle stores an evaluation under runID and returns its row id.
func (s *Store) SaveCycle(ctx context.Context, runID uuid.UUID, label string, ev evaluate.Evaluation) (int64, error) {
	query := `
	INSERT INTO cycles (run_id, label, created_at, max_line_loading, worst_line,
		max_trafo_loading, worst_trafo, max_vm, max_vm_bus, min_vm, min_vm_bus,
		total_sgen_mw, violations)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := s.db.ExecContext(ctx, query,
		runID.String(), label, time.Now().UTC().Format(time.RFC3339Nano),
		ev.Line.Value, ev.Line.Index,
		ev.Transformer.Value, ev.Transformer.Index,
		ev.MaxVoltage.Value, ev.MaxVoltage.Index,
		ev.MinVoltage.Value, ev.MinVoltage.Index,
		ev.TotalGenerationMW, ev.Violations(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert cycle: %w", err)
	}
	return res.LastInsertId()
}

// Cycles returns the cycles of a run in insertion order.
func (s *Store) Cycles(ctx context.Context, runID uuid.UUID) ([]Cycle, error) {
	query := `
	SELECT id, run_id, label, created_at, max_line_loading, worst_line,
		max_trafo_loading, worst_trafo, max_vm, max_vm_bus, min_vm, min_vm_bus,
		total_sgen_mw, violations
	FROM cycles
	WHERE run_id = ?
	ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, runID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query cycles: %w", err)
	}
	defer rows.Close()

	var cycles []Cycle
	for rows.Next() {
		var c Cycle
		var run, created string
		if err := rows.Scan(&c.ID, &run, &c.Label, &created,
			&c.MaxLineLoading, &c.WorstLine, &c.MaxTrafoLoading, &c.WorstTrafo,
			&c.MaxVM, &c.MaxVMBus, &c.MinVM, &c.MinVMBus,
			&c.TotalSgenMW, &c.Violations); err != nil {
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}
		if c.RunID, err = uuid.Parse(run); err != nil {
			return nil, fmt.Errorf("cycle %d: %w", c.ID, err)
		}
		c.CreatedAt = parseTimestamp(created)
		cycles = append(cycles, c)
	}
	return cycles, rows.Err()
}

// Runs returns the latest runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `
	SELECT run_id, MIN(id) AS first_id, COUNT(*), SUM(violations)
	FROM cycles
	GROUP BY run_id
	ORDER BY first_id DESC
	LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	var firstIDs []int64
	for rows.Next() {
		var r Run
		var run string
		var firstID int64
		if err := rows.Scan(&run, &firstID, &r.Cycles, &r.Violations); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.ID, err = uuid.Parse(run); err != nil {
			return nil, fmt.Errorf("run %q: %w", run, err)
		}
		runs = append(runs, r)
		firstIDs = append(firstIDs, firstID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i, id := range firstIDs {
		var created string
		if err := s.db.QueryRowContext(ctx, "SELECT created_at FROM cycles WHERE id = ?", id).
			Scan(&created); err != nil {
			return nil, fmt.Errorf("failed to read run start: %w", err)
		}
		runs[i].StartedAt = parseTimestamp(created)
	}
	return runs, nil
}

var timestampFormats = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

// parseTimestamp returns the zero time for unknown formats.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
