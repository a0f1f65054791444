package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq" // PostgreSQL driver and COPY support
)

const (
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
	defaultConnMaxIdleTime = 1 * time.Minute
)

// Rows keep their position so a load returns entries in insertion order.
const schema = `
CREATE TABLE IF NOT EXISTS chat_schedules (
    chat_id   BIGINT   NOT NULL,
    position  INTEGER  NOT NULL,
    day       SMALLINT NOT NULL CHECK (day BETWEEN 0 AND 6),
    hours     SMALLINT NOT NULL CHECK (hours BETWEEN 0 AND 23),
    minutes   SMALLINT NOT NULL CHECK (minutes BETWEEN 0 AND 59),
    thread_id INTEGER,
    PRIMARY KEY (chat_id, position)
);

CREATE TABLE IF NOT EXISTS chat_reminders (
    id         TEXT        NOT NULL PRIMARY KEY,
    chat_id    BIGINT      NOT NULL,
    position   INTEGER     NOT NULL,
    fire_at    TIMESTAMPTZ NOT NULL,
    frequency  TEXT        NOT NULL,
    body       TEXT        NOT NULL,
    thread_id  INTEGER,
    created_at TIMESTAMPTZ NOT NULL,
    UNIQUE (chat_id, position)
);
`

// NewPostgresConnection creates and returns a new PostgreSQL database connection.
// It also pings the database to ensure connectivity.
func NewPostgresConnection(ctx context.Context, dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)

	if err = db.PingContext(ctx); err != nil {
		db.Close() // Close the connection if ping fails
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// EnsureSchema creates the store tables when they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// replaceRows deletes every row of table and bulk-loads rows in one transaction.
func replaceRows(ctx context.Context, db *sql.DB, table string, columns []string, rows [][]interface{}) error {
	txn, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	if _, err := txn.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("error clearing %s: %w", table, err)
	}

	if len(rows) > 0 {
		stmt, err := txn.PrepareContext(ctx, pq.CopyIn(table, columns...))
		if err != nil {
			return fmt.Errorf("error preparing copy into %s: %w", table, err)
		}
		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				stmt.Close()
				return fmt.Errorf("error copying row into %s: %w", table, err)
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			stmt.Close()
			return fmt.Errorf("error flushing copy into %s: %w", table, err)
		}
		if err := stmt.Close(); err != nil {
			return fmt.Errorf("error closing copy into %s: %w", table, err)
		}
	}

	return txn.Commit()
}

func nullableThread(threadID *int) interface{} {
	if threadID == nil {
		return nil
	}
	return int64(*threadID)
}

func threadFromNull(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	id := int(v.Int64)
	return &id
}
