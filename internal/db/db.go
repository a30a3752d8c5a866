package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zealmehta21/nevermiss/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// FileName is the database file inside the base directory.
const FileName = "nevermiss.db"

// Init initializes the SQLite database at baseDir/nevermiss.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.nevermiss.
func Init(baseDir string) (*sql.DB, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	// Pragmas in the DSN apply to every pooled connection.
	dbPath := filepath.Join(baseDir, FileName)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: users, tasks, transcripts
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS users (
		  id         TEXT PRIMARY KEY,
		  email      TEXT NOT NULL,
		  timezone   TEXT NOT NULL,
		  created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS tasks (
		  id            TEXT PRIMARY KEY,
		  user_id       TEXT NOT NULL,
		  title         TEXT NOT NULL,
		  description   TEXT NOT NULL DEFAULT '',
		  due_date      TEXT,
		  priority      TEXT NOT NULL DEFAULT 'medium',
		  status        TEXT NOT NULL DEFAULT 'pending',
		  snooze_until  TEXT,
		  reminder_time TEXT,
		  created_at    INTEGER NOT NULL,
		  updated_at    INTEGER NOT NULL,
		  completed_at  INTEGER,
		  deleted_at    INTEGER
		);

		CREATE INDEX IF NOT EXISTS idx_tasks_user_status
		ON tasks(user_id, status, created_at);

		CREATE INDEX IF NOT EXISTS idx_tasks_deleted
		ON tasks(deleted_at)
		WHERE deleted_at IS NOT NULL;

		CREATE TABLE IF NOT EXISTS transcripts (
		  id         TEXT PRIMARY KEY,
		  user_id    TEXT NOT NULL,
		  text       TEXT NOT NULL,
		  source     TEXT NOT NULL,
		  created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_transcripts_user_created
		ON transcripts(user_id, created_at DESC);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
