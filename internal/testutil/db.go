package testutil

import (
	"database/sql"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/noteflow/internal/config"
	"github.com/xxxsen/noteflow/internal/db"
)

// OpenTestDB connects to the database named by TEST_DB_* env vars and applies
// migrations. Tests calling it are skipped when TEST_DB_HOST is unset, so the
// suite stays runnable without a Postgres instance.
func OpenTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set; skipping database tests")
	}
	cfg := config.DatabaseConfig{
		Host:     host,
		Port:     envInt("TEST_DB_PORT", 5432),
		User:     envString("TEST_DB_USER", "postgres"),
		Password: os.Getenv("TEST_DB_PASSWORD"),
		DBName:   envString("TEST_DB_NAME", "noteflow_test"),
		SSLMode:  "disable",
	}
	conn, err := db.Open(cfg)
	require.NoError(t, err)
	require.NoError(t, db.ApplyMigrations(conn))
	cleanup := func() {
		_, _ = conn.Exec("DELETE FROM attachments")
		_, _ = conn.Exec("DELETE FROM notes")
		_, _ = conn.Exec("DELETE FROM users")
		_ = conn.Close()
	}
	return conn, cleanup
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
