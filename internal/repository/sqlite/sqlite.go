// Package sqlite implements the repository interfaces on SQLite through the
// pure-Go modernc.org/sqlite driver, which ships FTS5 and the JSON1
// functions that note search and tag queries use.
//
// DATABASE/SQL OVERVIEW:
//   - sql.DB      a connection pool (NOT a single connection!)
//   - sql.Tx      a transaction
//   - sql.Row     a single result row
//   - sql.Rows    multiple result rows (must be closed!)
package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// BLANK IMPORT:
	// The sqlite package's init() registers a database/sql driver named "sqlite".
	// After this import, sql.Open("sqlite", ...) knows how to talk to SQLite.
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps a sql.DB connection pool and hands out one store per entity.
//
// Each store (NoteDB, AnalyticsDB, UserDB, PreferencesDB) shares the same
// underlying pool and implements one repository interface.
type DB struct {
	conn *sql.DB
}

// New opens the SQLite database at dbPath and runs all pending migrations.
//
// dbPath examples:
//   - "data/notebook.db"  → file-based database (persistent)
//   - ":memory:"          → in-memory database (great for tests, lost on close)
//
// ONE CONNECTION:
// SQLite allows a single writer at a time. Capping the pool at one connection
// turns every statement and transaction into a strictly serialised unit of
// work, which is what view counting needs under concurrent viewers. It also
// keeps ":memory:" databases alive, since each new connection to ":memory:"
// would otherwise see its own empty database.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers in other processes (e.g. notesctl) work while the
	// server writes. In-memory databases silently stay in "memory" mode.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

func (db *DB) Notes() *NoteDB {
	return &NoteDB{conn: db.conn}
}

func (db *DB) Analytics() *AnalyticsDB {
	return &AnalyticsDB{conn: db.conn}
}

func (db *DB) Users() *UserDB {
	return &UserDB{conn: db.conn}
}

func (db *DB) Preferences() *PreferencesDB {
	return &PreferencesDB{conn: db.conn}
}

// migrate applies the embedded SQL migrations with golang-migrate.
//
// The migrate instance is deliberately NOT closed: closing it would also close
// the sqlite database driver, and that driver owns our shared *sql.DB.
// Only the embedded source is released.
func (db *DB) migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading embedded migrations: %w", err)
	}
	defer src.Close()

	driver, err := migratesqlite.WithInstance(db.conn, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// SchemaVersion returns the applied migration version (0 before any ran).
func (db *DB) SchemaVersion() (uint, error) {
	var version uint
	err := db.conn.QueryRow(`SELECT version FROM schema_migrations LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("sqlite: reading schema version: %w", err)
	}
	return version, nil
}

// nullTime converts an optional timestamp into a value SQLite can store.
// Timestamps are always written in UTC so their text form sorts correctly.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// timePtr turns a scanned sql.NullTime back into an optional timestamp.
func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
