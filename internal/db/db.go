package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/xxxsen/noteflow/internal/config"
)

func Open(cfg config.DatabaseConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		return nil, err
	}
	return conn, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		ctime BIGINT NOT NULL,
		mtime BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS notes (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		tags TEXT NOT NULL DEFAULT '[]',
		pinned BOOLEAN NOT NULL DEFAULT FALSE,
		summary TEXT NOT NULL DEFAULT '',
		is_summarizing BOOLEAN NOT NULL DEFAULT FALSE,
		ctime BIGINT NOT NULL,
		mtime BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notes_user_mtime ON notes (user_id, mtime DESC)`,
	`CREATE TABLE IF NOT EXISTS attachments (
		id TEXT PRIMARY KEY,
		note_id TEXT NOT NULL,
		name TEXT NOT NULL,
		file_type TEXT NOT NULL,
		size BIGINT NOT NULL,
		data BYTEA,
		legacy_key TEXT NOT NULL DEFAULT '',
		ctime BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attachments_note ON attachments (note_id, ctime)`,
}

func ApplyMigrations(conn *sql.DB) error {
	for _, stmt := range migrations {
		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}
