package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DB wraps *sql.DB so services can write $n placeholders for every dialect.
type DB struct {
	*sql.DB
	Driver string
}

var placeholder = regexp.MustCompile(`\$(\d+)`)

// Open connects and verifies the connection before the server accepts traffic.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		// One writer; also keeps ":memory:" databases alive across calls.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	db := &DB{DB: sqlDB, Driver: driver}
	if driver == DriverSQLite {
		if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
			sqlDB.Close()
			return nil, err
		}
	}
	return db, nil
}

// IsUniqueViolation reports whether err is a UNIQUE constraint failure from
// either driver.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY ||
			(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE"))
	}
	return false
}

// Rebind rewrites $n placeholders to the driver's syntax.
func (db *DB) Rebind(query string) string {
	if db.Driver == DriverSQLite {
		return placeholder.ReplaceAllString(query, "?$1")
	}
	return query
}

func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.DB.QueryRowContext(ctx, db.Rebind(query), args...)
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.DB.QueryContext(ctx, db.Rebind(query), args...)
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.DB.ExecContext(ctx, db.Rebind(query), args...)
}

// Tx mirrors DB for transactional work.
type Tx struct {
	*sql.Tx
	db *DB
}

func (db *DB) BeginTx(ctx context.Context) (*Tx, error) {
	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{Tx: tx, db: db}, nil
}

func (tx *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return tx.Tx.ExecContext(ctx, tx.db.Rebind(query), args...)
}

func (tx *Tx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return tx.Tx.QueryRowContext(ctx, tx.db.Rebind(query), args...)
}

// Migrate creates the schema if it is not there yet.
func (db *DB) Migrate(ctx context.Context) error {
	stmts := postgresSchema
	if db.Driver == DriverSQLite {
		stmts = sqliteSchema
	}
	for _, stmt := range stmts {
		if _, err := db.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS app_user (
		id              UUID PRIMARY KEY,
		username        TEXT NOT NULL UNIQUE,
		email           TEXT NOT NULL UNIQUE,
		hashed_password TEXT NOT NULL,
		role            TEXT NOT NULL DEFAULT 'user',
		is_active       BOOLEAN NOT NULL DEFAULT TRUE,
		created_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS demonstration (
		id          BIGSERIAL PRIMARY KEY,
		title       TEXT NOT NULL,
		description TEXT,
		folder_name TEXT NOT NULL UNIQUE,
		url         TEXT,
		is_visible  BOOLEAN NOT NULL DEFAULT TRUE,
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL,
		created_by  UUID REFERENCES app_user(id) ON DELETE SET NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_demonstration_visible ON demonstration (is_visible)`,
	`CREATE TABLE IF NOT EXISTS comment (
		id         BIGSERIAL PRIMARY KEY,
		content    TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		demo_id    BIGINT NOT NULL REFERENCES demonstration(id) ON DELETE CASCADE,
		user_id    UUID NOT NULL REFERENCES app_user(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_comment_demo ON comment (demo_id)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS app_user (
		id              TEXT PRIMARY KEY,
		username        TEXT NOT NULL UNIQUE,
		email           TEXT NOT NULL UNIQUE,
		hashed_password TEXT NOT NULL,
		role            TEXT NOT NULL DEFAULT 'user',
		is_active       BOOLEAN NOT NULL DEFAULT 1,
		created_at      DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS demonstration (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		title       TEXT NOT NULL,
		description TEXT,
		folder_name TEXT NOT NULL UNIQUE,
		url         TEXT,
		is_visible  BOOLEAN NOT NULL DEFAULT 1,
		created_at  DATETIME NOT NULL,
		updated_at  DATETIME NOT NULL,
		created_by  TEXT REFERENCES app_user(id) ON DELETE SET NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_demonstration_visible ON demonstration (is_visible)`,
	`CREATE TABLE IF NOT EXISTS comment (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		content    TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		demo_id    INTEGER NOT NULL REFERENCES demonstration(id) ON DELETE CASCADE,
		user_id    TEXT NOT NULL REFERENCES app_user(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_comment_demo ON comment (demo_id)`,
}
