package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"token_portfolio/internal/app/port"
	"token_portfolio/internal/domain/entity"
)

const (
	DialectSQLite   = "sqlite3"
	DialectPostgres = "postgres"
)

const (
	createTableQuery = `CREATE TABLE IF NOT EXISTS kv_store (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at BIGINT NOT NULL
	)`
	selectQuery = `SELECT value FROM kv_store WHERE key = ?`
	upsertQuery = `INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	deleteQuery = `DELETE FROM kv_store WHERE key = ?`
)

// SQLBackend stores slots in a single kv_store table of a SQLite or Postgres database.
type SQLBackend struct {
	db      *sql.DB
	dialect string
	now     func() time.Time
}

// OpenSQLite opens (creating if needed) a SQLite database file.
func OpenSQLite(ctx context.Context, path string) (*SQLBackend, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
	}
	db, err := sql.Open(DialectSQLite, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // sqlite allows a single writer
	return NewSQLBackend(ctx, db, DialectSQLite)
}

// OpenPostgres connects to a Postgres database.
func OpenPostgres(ctx context.Context, dsn string) (*SQLBackend, error) {
	db, err := sql.Open(DialectPostgres, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}
	return NewSQLBackend(ctx, db, DialectPostgres)
}

// NewSQLBackend wraps an open database and ensures the table exists.
func NewSQLBackend(ctx context.Context, db *sql.DB, dialect string) (*SQLBackend, error) {
	b := &SQLBackend{db: db, dialect: dialect, now: time.Now}
	if _, err := db.ExecContext(ctx, createTableQuery); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create kv_store table: %w", err)
	}
	return b, nil
}

// rebind converts ? placeholders to $n for postgres.
func (b *SQLBackend) rebind(query string) string {
	if b.dialect != DialectPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (b *SQLBackend) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := b.db.QueryRowContext(ctx, b.rebind(selectQuery), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", entity.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select %q: %w", key, err)
	}
	return value, nil
}

func (b *SQLBackend) Set(ctx context.Context, key, value string) error {
	if _, err := b.db.ExecContext(ctx, b.rebind(upsertQuery), key, value, b.now().UnixMilli()); err != nil {
		return fmt.Errorf("upsert %q: %w", key, err)
	}
	return nil
}

func (b *SQLBackend) Delete(ctx context.Context, key string) error {
	if _, err := b.db.ExecContext(ctx, b.rebind(deleteQuery), key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

func (b *SQLBackend) Close() error {
	return b.db.Close()
}

var _ port.KVBackend = (*SQLBackend)(nil)
