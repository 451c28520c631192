package graph

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/iota-uz/foundry/pkg/logx"
)

// RunIndex is a supplementary, query-only audit trail over runs: one row
// per run id recording status, current node, and timestamps. The
// FileStore snapshot remains the system of record (§4.6); this index never
// participates in resumption and a missing or stale row never blocks a
// run. Adapted from the teacher's WAL-mode sqlite singleton, instanced
// rather than global so multiple engines (and tests) in one process don't
// share state through a package-level variable.
type RunIndex struct {
	db *sql.DB
}

// OpenRunIndex opens (creating if absent) a sqlite-backed run index at
// path, in WAL mode with a busy timeout so the engine's occasional writes
// never collide with a concurrent `graph-engine runs list` read.
func OpenRunIndex(path string) (*RunIndex, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open run index: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping run index: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite: one writer

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate run index: %w", err)
	}
	return &RunIndex{db: db}, nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	workflow_id TEXT NOT NULL,
	current_node TEXT NOT NULL,
	status TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`

// Close releases the underlying connection.
func (r *RunIndex) Close() error {
	return r.db.Close()
}

// Record upserts a run's latest observed state. The engine calls this
// best-effort after every persisted snapshot; a failure here is logged but
// never fails the run.
func (r *RunIndex) Record(runID, workflowID string, state *WorkflowState) {
	_, err := r.db.Exec(`
		INSERT INTO runs (id, workflow_id, current_node, status, started_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			current_node = excluded.current_node,
			status = excluded.status,
			updated_at = excluded.updated_at
	`, runID, workflowID, state.CurrentNode, string(state.Status), state.UpdatedAt, state.UpdatedAt)
	if err != nil {
		logx.Warnf("run index: failed to record run %s: %v", runID, err)
	}
}

// RunSummary is one row of the run index, returned by List/Show.
type RunSummary struct {
	StartedAt   time.Time
	UpdatedAt   time.Time
	ID          string
	WorkflowID  string
	CurrentNode string
	Status      string
}

// List returns all known runs, most recently updated first.
func (r *RunIndex) List() ([]RunSummary, error) {
	rows, err := r.db.Query(`SELECT id, workflow_id, current_node, status, started_at, updated_at FROM runs ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(&s.ID, &s.WorkflowID, &s.CurrentNode, &s.Status, &s.StartedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Show returns the summary for a single run id, or false if not indexed.
func (r *RunIndex) Show(runID string) (RunSummary, bool, error) {
	var s RunSummary
	err := r.db.QueryRow(`SELECT id, workflow_id, current_node, status, started_at, updated_at FROM runs WHERE id = ?`, runID).
		Scan(&s.ID, &s.WorkflowID, &s.CurrentNode, &s.Status, &s.StartedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return RunSummary{}, false, nil
	}
	if err != nil {
		return RunSummary{}, false, err
	}
	return s, true, nil
}
