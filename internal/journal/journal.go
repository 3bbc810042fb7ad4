// Package journal records pair-processing outcomes in SQLite.
//
// The journal is an audit trail, not state: the service never reads it to
// make decisions, and losing it loses nothing but history. Pending pair
// halves are deliberately memory-resident and are not journaled.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Entry is one journaled pair attempt.
type Entry struct {
	ID            string
	RunID         string
	PatientID     string
	StructurePath string
	PlanPath      string
	Status        string
	Reason        string
	ReportPath    string
	CreatedAt     string
}

// Journal appends pair outcomes to a SQLite database. Safe for concurrent
// use; the pool is capped at one connection to keep SQLite single-writer.
type Journal struct {
	db    *sql.DB
	runID string
}

// Open creates or opens the journal database and stamps a fresh UUIDv7
// run identifier for this service run.
//
// The database uses WAL mode so external readers (reporting queries) do
// not block the writer, and a busy timeout to ride out transient lock
// contention.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect journal: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply journal schema: %w", err)
	}

	return &Journal{
		db:    db,
		runID: uuid.Must(uuid.NewV7()).String(),
	}, nil
}

// RunID returns this service run's identifier.
func (j *Journal) RunID() string { return j.runID }

// Record appends one outcome. Inserts are idempotent on the entry ID.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.Must(uuid.NewV7()).String()
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO pair_outcomes
		(id, run_id, patient_id, structure_path, plan_path, status, reason, report_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		e.ID,
		j.runID,
		e.PatientID,
		e.StructurePath,
		e.PlanPath,
		e.Status,
		e.Reason,
		e.ReportPath,
	)
	if err != nil {
		return fmt.Errorf("record pair outcome: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. Diagnostic read path
// for tests and ad-hoc inspection.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, run_id, patient_id, structure_path, plan_path, status, reason, report_path, created_at
		FROM pair_outcomes
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.RunID, &e.PatientID, &e.StructurePath, &e.PlanPath,
			&e.Status, &e.Reason, &e.ReportPath, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the database handle.
func (j *Journal) Close() error {
	return j.db.Close()
}
