package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS clustering_runs (
    id TEXT PRIMARY KEY,
    k INTEGER NOT NULL,
    entity_count INTEGER NOT NULL,
    policy TEXT NOT NULL,
    total_cost REAL,
    sweeps INTEGER,
    swaps INTEGER,
    evaluations INTEGER,
    restarts INTEGER,
    seed INTEGER,
    medoids_json TEXT,
    status TEXT DEFAULT 'completed',
    error_message TEXT,
    created_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_clustering_runs_created ON clustering_runs(created_at);
CREATE INDEX IF NOT EXISTS idx_clustering_runs_status ON clustering_runs(status);

CREATE TABLE IF NOT EXISTS run_assignments (
    run_id TEXT NOT NULL REFERENCES clustering_runs(id) ON DELETE CASCADE,
    entity TEXT NOT NULL,
    label INTEGER NOT NULL,
    is_medoid INTEGER DEFAULT 0,
    PRIMARY KEY (run_id, entity)
);
CREATE INDEX IF NOT EXISTS idx_run_assignments_label ON run_assignments(run_id, label);
`

// Database provides thread-safe SQLite operations.
type Database struct {
	db *sql.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// An in-memory database lives on a single connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	// SQLite pragmas
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=10000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %s: %w", pragma, err)
		}
	}
	return &Database{db: db}, nil
}

func (d *Database) Initialize() error {
	_, err := d.db.Exec(schemaDDL)
	return err
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) DB() *sql.DB {
	return d.db
}

// -- Run operations --

// InsertRun stores a run and its memberships in one transaction.
func (d *Database) InsertRun(run Run, members []Membership) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	_, err = tx.Exec(`
		INSERT INTO clustering_runs (id, k, entity_count, policy, total_cost, sweeps, swaps,
			evaluations, restarts, seed, medoids_json, status, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.K, run.EntityCount, run.Policy, run.TotalCost, run.Sweeps, run.Swaps,
		run.Evaluations, run.Restarts, run.Seed, run.medoidsJSON(), string(run.Status),
		run.ErrorMessage, run.CreatedAt,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO run_assignments (run_id, entity, label, is_medoid)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, m := range members {
		if _, err := stmt.Exec(run.ID, m.Entity, m.Label, m.IsMedoid); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert membership %s: %w", m.Entity, err)
		}
	}
	return tx.Commit()
}

const runColumns = `id, k, entity_count, policy, total_cost, sweeps, swaps, evaluations,
	restarts, seed, medoids_json, status, error_message, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var r Run
	var status, medoidsJSON string
	err := row.Scan(
		&r.ID, &r.K, &r.EntityCount, &r.Policy, &r.TotalCost, &r.Sweeps, &r.Swaps,
		&r.Evaluations, &r.Restarts, &r.Seed, &medoidsJSON, &status, &r.ErrorMessage, &r.CreatedAt,
	)
	if err != nil {
		return r, err
	}
	r.Status = RunStatus(status)
	if err := json.Unmarshal([]byte(medoidsJSON), &r.Medoids); err != nil {
		return r, fmt.Errorf("decode medoids of run %s: %w", r.ID, err)
	}
	return r, nil
}

// GetRun returns nil, nil when no run has the given ID.
func (d *Database) GetRun(runID string) (*Run, error) {
	r, err := scanRun(d.db.QueryRow("SELECT "+runColumns+" FROM clustering_runs WHERE id=?", runID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRuns returns the most recent runs first.
func (d *Database) ListRuns(limit int) ([]Run, error) {
	rows, err := d.db.Query(
		"SELECT "+runColumns+" FROM clustering_runs ORDER BY created_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (d *Database) CountRuns() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM clustering_runs").Scan(&n)
	return n, err
}

// GetMemberships returns a run's assignment ordered by label, then entity.
func (d *Database) GetMemberships(runID string) ([]Membership, error) {
	rows, err := d.db.Query(
		"SELECT entity, label, is_medoid FROM run_assignments WHERE run_id=? ORDER BY label, entity",
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []Membership
	for rows.Next() {
		var m Membership
		if err := rows.Scan(&m.Entity, &m.Label, &m.IsMedoid); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (d *Database) DeleteRun(runID string) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM run_assignments WHERE run_id=?", runID); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.Exec("DELETE FROM clustering_runs WHERE id=?", runID); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
