package backend

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/taskflow-go/taskflow"
)

// SQLite is a SQLite-backed Backend: WAL mode for concurrent readers, a
// busy timeout so peer writers queue instead of erroring, and a
// single-writer connection pool (SQLite supports exactly one writer at a
// time).
//
// Schema:
//   - flow_details: one row per flow, by uuid.
//   - task_details: one row per task, by uuid, referencing its flow.
type SQLite struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLite opens (creating if absent) a SQLite-backed Backend at path.
// Use ":memory:" for an ephemeral database, handy in tests.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("taskflow/backend: open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("taskflow/backend: %s: %w", pragma, err)
		}
	}

	b := &SQLite{db: db}
	if err := b.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

func (b *SQLite) createTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS flow_details (
			uuid TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			state TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS task_details (
			uuid TEXT PRIMARY KEY,
			flow_uuid TEXT,
			name TEXT NOT NULL,
			state TEXT NOT NULL,
			results TEXT,
			meta TEXT,
			FOREIGN KEY(flow_uuid) REFERENCES flow_details(uuid)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_task_details_flow ON task_details(flow_uuid)`,
	}
	for _, stmt := range stmts {
		if _, err := b.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("taskflow/backend: create tables: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database handle.
func (b *SQLite) Close() error {
	return b.db.Close()
}

// GetConnection returns a scoped connection. SQLite serializes writers
// internally, so the returned connection shares the single *sql.DB handle.
func (b *SQLite) GetConnection(_ context.Context) (Connection, error) {
	return &sqlConnection{db: b.db, mu: &b.mu, dialect: dialectSQLite}, nil
}

// sqlConnection implements Connection against a database/sql handle; it is
// shared between the SQLite and MySQL backends since both speak
// database/sql and accept the same `?`-placeholder statements used here.
// The dialect field records which backend created the connection; the SQL
// issued does not vary with it.
type sqlConnection struct {
	db      *sql.DB
	mu      *sync.Mutex
	dialect dialect
	closed  bool
}

type dialect int

const (
	dialectSQLite dialect = iota
	dialectMySQL
)

func (c *sqlConnection) Close() error {
	c.closed = true
	return nil
}

func (c *sqlConnection) UpdateFlowDetails(ctx context.Context, fd *taskflow.FlowDetail) (*taskflow.FlowDetail, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("taskflow/backend: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var storedState string
	row := tx.QueryRowContext(ctx, `SELECT state FROM flow_details WHERE uuid = ?`, fd.UUID)
	switch err := row.Scan(&storedState); err {
	case nil:
		// Caller's state always wins, consistent with FlowDetail.Update's
		// overlay semantics.
		if _, err := tx.ExecContext(ctx, `UPDATE flow_details SET name = ?, state = ? WHERE uuid = ?`, fd.Name, string(fd.State), fd.UUID); err != nil {
			return nil, fmt.Errorf("taskflow/backend: update flow_details: %w", err)
		}
	case sql.ErrNoRows:
		if _, err := tx.ExecContext(ctx, `INSERT INTO flow_details (uuid, name, state) VALUES (?, ?, ?)`, fd.UUID, fd.Name, string(fd.State)); err != nil {
			return nil, fmt.Errorf("taskflow/backend: insert flow_details: %w", err)
		}
	default:
		return nil, fmt.Errorf("taskflow/backend: select flow_details: %w", err)
	}

	// Storage persists a task via UpdateTaskDetails (which has no flow
	// context) before ever calling UpdateFlowDetails, so the flow_uuid
	// association is recorded here, the first point at which both are
	// known together.
	for _, td := range fd.Tasks() {
		if _, err := tx.ExecContext(ctx, `UPDATE task_details SET flow_uuid = ? WHERE uuid = ?`, fd.UUID, td.UUID); err != nil {
			return nil, fmt.Errorf("taskflow/backend: associate task with flow: %w", err)
		}
	}

	merged := taskflow.NewFlowDetail(fd.UUID, fd.Name)
	merged.State = fd.State

	rows, err := tx.QueryContext(ctx, `SELECT uuid, name, state, results, meta FROM task_details WHERE flow_uuid = ?`, fd.UUID)
	if err != nil {
		return nil, fmt.Errorf("taskflow/backend: select task_details: %w", err)
	}
	for rows.Next() {
		td, err := scanTaskDetail(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		merged.Add(td)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("taskflow/backend: iterate task_details: %w", err)
	}
	_ = rows.Close()

	for _, td := range fd.Tasks() {
		if merged.Find(td.UUID) == nil {
			merged.Add(td.Clone())
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("taskflow/backend: commit: %w", err)
	}
	return merged, nil
}

func (c *sqlConnection) UpdateTaskDetails(ctx context.Context, td *taskflow.TaskDetail) (*taskflow.TaskDetail, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resultsBlob, err := encodeResults(td.Results)
	if err != nil {
		return nil, fmt.Errorf("taskflow/backend: encode results: %w", err)
	}
	metaBlob, err := encodeMeta(td.Meta)
	if err != nil {
		return nil, fmt.Errorf("taskflow/backend: encode meta: %w", err)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("taskflow/backend: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT uuid FROM task_details WHERE uuid = ?`, td.UUID)
	var existing string
	switch err := row.Scan(&existing); err {
	case nil:
		if _, err := tx.ExecContext(ctx, `UPDATE task_details SET name = ?, state = ?, results = ?, meta = ? WHERE uuid = ?`,
			td.Name, string(td.State), resultsBlob, metaBlob, td.UUID); err != nil {
			return nil, fmt.Errorf("taskflow/backend: update task_details: %w", err)
		}
	case sql.ErrNoRows:
		if _, err := tx.ExecContext(ctx, `INSERT INTO task_details (uuid, name, state, results, meta) VALUES (?, ?, ?, ?, ?)`,
			td.UUID, td.Name, string(td.State), resultsBlob, metaBlob); err != nil {
			return nil, fmt.Errorf("taskflow/backend: insert task_details: %w", err)
		}
	default:
		return nil, fmt.Errorf("taskflow/backend: select task_details: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("taskflow/backend: commit: %w", err)
	}

	return td.Clone(), nil
}

// rowScanner is the subset of *sql.Rows used by scanTaskDetail, so it can
// also be exercised against *sql.Row-shaped callers if needed.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTaskDetail(rows rowScanner) (*taskflow.TaskDetail, error) {
	var (
		uuid, name, state string
		resultsBlob       sql.NullString
		metaBlob          sql.NullString
	)
	if err := rows.Scan(&uuid, &name, &state, &resultsBlob, &metaBlob); err != nil {
		return nil, fmt.Errorf("taskflow/backend: scan task_details: %w", err)
	}
	td := taskflow.NewTaskDetail(uuid, name)
	td.State = taskflow.State(state)
	if resultsBlob.Valid {
		results, err := decodeResults([]byte(resultsBlob.String))
		if err != nil {
			return nil, fmt.Errorf("taskflow/backend: decode results: %w", err)
		}
		td.Results = results
	}
	if metaBlob.Valid {
		meta, err := decodeMeta([]byte(metaBlob.String))
		if err != nil {
			return nil, fmt.Errorf("taskflow/backend: decode meta: %w", err)
		}
		td.Meta = meta
	}
	return td, nil
}
