package backend

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/go-sql-driver/mysql"
)

// MySQL is a MySQL/MariaDB-backed Backend. Unlike SQLite it tolerates a
// real connection pool since MySQL handles concurrent writers itself.
type MySQL struct {
	db *sql.DB
	mu sync.Mutex
}

// NewMySQL opens a MySQL-backed Backend using dsn (a
// github.com/go-sql-driver/mysql data source name, e.g.
// "user:pass@tcp(127.0.0.1:3306)/taskflow?parseTime=true").
func NewMySQL(dsn string) (*MySQL, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("taskflow/backend: open mysql: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	b := &MySQL{db: db}
	if err := b.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

func (b *MySQL) createTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS flow_details (
			uuid VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			state VARCHAR(32) NOT NULL
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS task_details (
			uuid VARCHAR(64) PRIMARY KEY,
			flow_uuid VARCHAR(64),
			name VARCHAR(255) NOT NULL,
			state VARCHAR(32) NOT NULL,
			results LONGTEXT,
			meta LONGTEXT,
			INDEX idx_task_details_flow (flow_uuid)
		) ENGINE=InnoDB`,
	}
	for _, stmt := range stmts {
		if _, err := b.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("taskflow/backend: create tables: %w", err)
		}
	}
	return nil
}

// Close closes the underlying connection pool.
func (b *MySQL) Close() error {
	return b.db.Close()
}

// GetConnection returns a scoped connection sharing the pool's single
// in-process write lock, matching the SQLite backend's merge semantics even
// though MySQL itself does not require single-writer serialization.
func (b *MySQL) GetConnection(_ context.Context) (Connection, error) {
	return &sqlConnection{db: b.db, mu: &b.mu, dialect: dialectMySQL}, nil
}
