package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // cgo-free SQLite driver
)

// OpenUsersDatabase opens the users database file, creating it and its
// schema on first use.
func OpenUsersDatabase(cfg *Config) (*sqlx.DB, error) {
	path := cfg.Store.UsersDBPath
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open users database: %w", err)
	}

	if err := createUsersTable(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create users table: %w", err)
	}

	return db, nil
}

// createUsersTable creates the users table if it does not exist
func createUsersTable(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			hashed_password TEXT NOT NULL,
			full_name TEXT,
			email TEXT,
			disabled BOOLEAN NOT NULL DEFAULT 0,
			role TEXT NOT NULL DEFAULT 'user',
			created_at TIMESTAMP NOT NULL,
			last_login TIMESTAMP
		)
	`)
	return err
}
