package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableExists(t *testing.T, db interface {
	QueryRow(string, ...any) *sql.Row
}, name string) bool {
	t.Helper()
	var exists bool
	err := db.QueryRow(`SELECT COUNT(*) > 0 FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&exists)
	require.NoError(t, err)
	return exists
}

func TestOpen_CreatesDirectoryInWALMode(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scanner", "nested", "cache.db")

	db, err := Open(context.Background(), dbPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(filepath.Dir(dbPath))
	require.NoError(t, err)

	var journalMode string
	require.NoError(t, db.Get(&journalMode, "PRAGMA journal_mode"))
	assert.Equal(t, "wal", journalMode)
}

func testMigrations() []Migration {
	return []Migration{
		{
			Version:     20240101000002,
			Description: "Add column",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec("ALTER TABLE test_table ADD COLUMN name TEXT")
				return err
			},
		},
		{
			Version:     20240101000001,
			Description: "Create test table",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec("CREATE TABLE test_table (id INTEGER PRIMARY KEY)")
				return err
			},
			Down: func(tx *sql.Tx) error {
				_, err := tx.Exec("DROP TABLE test_table")
				return err
			},
		},
	}
}

func TestMigrationRunner_RunsInVersionOrder(t *testing.T) {
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run(context.Background(), testMigrations()))
	assert.True(t, tableExists(t, db, "test_table"))

	versions, err := runner.AppliedVersions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{20240101000001, 20240101000002}, versions)
}

func TestMigrationRunner_Idempotent(t *testing.T) {
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run(context.Background(), testMigrations()))
	require.NoError(t, runner.Run(context.Background(), testMigrations()))

	var count int
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM schema_migrations"))
	assert.Equal(t, 2, count)
}

func TestMigrationRunner_Rollback(t *testing.T) {
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	migrations := testMigrations()[1:]
	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run(context.Background(), migrations))
	require.True(t, tableExists(t, db, "test_table"))

	require.NoError(t, runner.Rollback(context.Background(), migrations))
	assert.False(t, tableExists(t, db, "test_table"))

	versions, err := runner.AppliedVersions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestMigrationRunner_RollbackWithoutDown(t *testing.T) {
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	migrations := testMigrations()
	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run(context.Background(), migrations))

	err = runner.Rollback(context.Background(), migrations)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no rollback function")
}

func TestOpenAndMigrate(t *testing.T) {
	db, err := OpenAndMigrate(context.Background(), filepath.Join(t.TempDir(), "test.db"), testMigrations())
	require.NoError(t, err)
	defer db.Close()

	assert.True(t, tableExists(t, db, "test_table"))
}
