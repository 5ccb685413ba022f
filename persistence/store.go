// Package persistence implements the optional durable record of subagent
// work: one row per spawned worker, created when the spawn starts and
// finalized with its report or failure once the child agent exits.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// Database drivers registered for database/sql's dialect dispatch.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// State is a worker result's lifecycle stage.
type State string

const (
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// WorkerResult is one durable record of a subagent spawn.
type WorkerResult struct {
	ID        string
	ParentID  string
	Role      string
	Task      string
	State     State
	Report    string // the closure report text, once available
	Error     string
	Metadata  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store records subagent spawns and their outcomes, grounded on spec.md
// §9's create/complete/fail worker-result triple.
type Store interface {
	CreateWorkerResult(ctx context.Context, parentID, role, task string) (*WorkerResult, error)
	CompleteWorkerResult(ctx context.Context, id, report string, metadata map[string]any) error
	FailWorkerResult(ctx context.Context, id, errMsg string) error
	GetWorkerResult(ctx context.Context, id string) (*WorkerResult, error)
	ListWorkerResultsByParent(ctx context.Context, parentID string) ([]*WorkerResult, error)
	Close() error
}

// SQLStore implements Store over database/sql, supporting postgres,
// mysql, and sqlite via the same schema (grounded on
// pkg/agent/task_service_sql.go's SQLTaskService).
type SQLStore struct {
	db      *sql.DB
	dialect string
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS worker_results (
    id VARCHAR(255) PRIMARY KEY,
    parent_id VARCHAR(255) NOT NULL,
    role VARCHAR(255) NOT NULL,
    task TEXT NOT NULL,
    state VARCHAR(50) NOT NULL,
    report TEXT,
    error TEXT,
    metadata TEXT,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_worker_results_parent_id ON worker_results(parent_id);
CREATE INDEX IF NOT EXISTS idx_worker_results_state ON worker_results(state);
`

// NewSQLStore opens db (already connected) as a Store, initializing the
// schema. dialect selects placeholder syntax: "postgres", "mysql", or
// "sqlite".
func NewSQLStore(db *sql.DB, dialect string) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	switch dialect {
	case "postgres", "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported dialect: %s (supported: postgres, mysql, sqlite)", dialect)
	}

	s := &SQLStore{db: db, dialect: dialect}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Open connects via driverName/dsn and wraps the connection as an
// SQLStore. driverName is the database/sql driver name ("sqlite3",
// "postgres", "mysql"); dialect selects placeholder syntax as in
// NewSQLStore.
func Open(ctx context.Context, driverName, dsn, dialect string) (*SQLStore, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewSQLStore(db, dialect)
}

func (s *SQLStore) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, createTableSQL)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// placeholder returns the nth bind placeholder for the store's dialect.
func (s *SQLStore) placeholder(n int) string {
	if s.dialect == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// CreateWorkerResult inserts a running row for a newly spawned worker.
func (s *SQLStore) CreateWorkerResult(ctx context.Context, parentID, role, task string) (*WorkerResult, error) {
	now := time.Now()
	wr := &WorkerResult{
		ID:        generateID(),
		ParentID:  parentID,
		Role:      role,
		Task:      task,
		State:     StateRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := fmt.Sprintf(`
INSERT INTO worker_results (id, parent_id, role, task, state, report, error, metadata, created_at, updated_at)
VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s)
`, s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4), s.placeholder(5),
		s.placeholder(6), s.placeholder(7), s.placeholder(8), s.placeholder(9), s.placeholder(10))

	_, err := s.db.ExecContext(ctx, query,
		wr.ID, wr.ParentID, wr.Role, wr.Task, string(wr.State),
		"", "", "{}", wr.CreatedAt, wr.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert worker result: %w", err)
	}
	return wr, nil
}

// CompleteWorkerResult marks id completed with its closure report.
func (s *SQLStore) CompleteWorkerResult(ctx context.Context, id, report string, metadata map[string]any) error {
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := fmt.Sprintf(`
UPDATE worker_results SET state = %s, report = %s, metadata = %s, updated_at = %s WHERE id = %s
`, s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4), s.placeholder(5))

	_, err = s.db.ExecContext(ctx, query, string(StateCompleted), report, string(metaJSON), time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to complete worker result: %w", err)
	}
	return nil
}

// FailWorkerResult marks id failed with errMsg.
func (s *SQLStore) FailWorkerResult(ctx context.Context, id, errMsg string) error {
	query := fmt.Sprintf(`
UPDATE worker_results SET state = %s, error = %s, updated_at = %s WHERE id = %s
`, s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4))

	_, err := s.db.ExecContext(ctx, query, string(StateFailed), errMsg, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to fail worker result: %w", err)
	}
	return nil
}

// GetWorkerResult looks up one record by ID.
func (s *SQLStore) GetWorkerResult(ctx context.Context, id string) (*WorkerResult, error) {
	query := fmt.Sprintf(`
SELECT id, parent_id, role, task, state, report, error, metadata, created_at, updated_at
FROM worker_results WHERE id = %s
`, s.placeholder(1))

	row := s.db.QueryRowContext(ctx, query, id)
	return scanWorkerResult(row)
}

// ListWorkerResultsByParent lists every worker spawned by parentID, most
// recent first.
func (s *SQLStore) ListWorkerResultsByParent(ctx context.Context, parentID string) ([]*WorkerResult, error) {
	query := fmt.Sprintf(`
SELECT id, parent_id, role, task, state, report, error, metadata, created_at, updated_at
FROM worker_results WHERE parent_id = %s ORDER BY created_at DESC
`, s.placeholder(1))

	rows, err := s.db.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query worker results: %w", err)
	}
	defer rows.Close()

	var out []*WorkerResult
	for rows.Next() {
		wr, err := scanWorkerResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, wr)
	}
	return out, rows.Err()
}

// Close closes the underlying connection pool.
func (s *SQLStore) Close() error { return s.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scanWorkerResult(row scanner) (*WorkerResult, error) {
	var wr WorkerResult
	var state, report, errMsg, metaJSON string

	err := row.Scan(&wr.ID, &wr.ParentID, &wr.Role, &wr.Task, &state,
		&report, &errMsg, &metaJSON, &wr.CreatedAt, &wr.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("worker result not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan worker result: %w", err)
	}

	wr.State = State(state)
	wr.Report = report
	wr.Error = errMsg
	if metaJSON != "" && metaJSON != "{}" {
		if err := json.Unmarshal([]byte(metaJSON), &wr.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &wr, nil
}
