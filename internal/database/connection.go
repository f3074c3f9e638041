package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Config selects the storage backend. Driver is "sqlite3" or "postgres";
// DSN is a file path (sqlite) or connection string (postgres).
type Config struct {
	Driver string
	DSN    string
}

// Open establishes a connection to the database and initializes the schema.
// The returned handle is passed explicitly to each repository; there is no
// package-level connection.
func Open(cfg Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Driver == "sqlite3" {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS learners (
			id TEXT PRIMARY KEY,
			batch_size INTEGER NOT NULL DEFAULT 10,
			reminder_hour INTEGER NOT NULL DEFAULT 9,
			reminders_enabled BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create learners table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS review_records (
			learner_id TEXT NOT NULL,
			item_id TEXT NOT NULL,
			repetitions INTEGER NOT NULL DEFAULT 0,
			interval_days REAL NOT NULL DEFAULT 0,
			ease_factor REAL NOT NULL DEFAULT 2.5,
			due_at TIMESTAMP NOT NULL,
			last_reviewed_at TIMESTAMP,
			lapses INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'new',
			revision INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (learner_id, item_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create review_records table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_review_records_due
		ON review_records (learner_id, due_at)
	`)
	if err != nil {
		return fmt.Errorf("failed to create review_records index: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS review_events (
			id TEXT PRIMARY KEY,
			learner_id TEXT NOT NULL,
			item_id TEXT NOT NULL,
			quality INTEGER NOT NULL,
			previous_interval REAL NOT NULL,
			new_interval REAL NOT NULL,
			occurred_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create review_events table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_review_events_learner
		ON review_events (learner_id, occurred_at)
	`)
	if err != nil {
		return fmt.Errorf("failed to create review_events index: %w", err)
	}

	return nil
}
