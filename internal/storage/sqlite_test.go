package storage_test

import (
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/opratectl/internal/errors"
	"codeberg.org/mutker/opratectl/internal/logger"
	"codeberg.org/mutker/opratectl/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema(dir string, version int) storage.Schema {
	return storage.Schema{
		Name:      "test",
		Version:   version,
		Tables:    []string{"items"},
		CreateSQL: `CREATE TABLE IF NOT EXISTS items (id INTEGER PRIMARY KEY, name TEXT NOT NULL);`,
		BackupDir: filepath.Join(dir, "backups"),
	}
}

func TestOpenCreatesSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "test.db")

	db, err := storage.Open(path, testSchema(dir, 1), logger.Nop())
	require.NoError(t, err)
	defer db.Close()

	version, err := storage.GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, 1, version)

	exists, err := storage.TableExists(db, "items")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestOpenKeepsDataOnSameVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	db, err := storage.Open(path, testSchema(dir, 1), logger.Nop())
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO items (name) VALUES ('kept')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = storage.Open(path, testSchema(dir, 1), logger.Nop())
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestOpenMigratesWithBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	db, err := storage.Open(path, testSchema(dir, 1), logger.Nop())
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO items (name) VALUES ('old')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = storage.Open(path, testSchema(dir, 2), logger.Nop())
	require.NoError(t, err)
	defer db.Close()

	version, err := storage.GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&count))
	assert.Zero(t, count, "tables are recreated on a version change")

	backups, err := os.ReadDir(filepath.Join(dir, "backups"))
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Contains(t, backups[0].Name(), "test_v1_")
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := storage.Open("", testSchema(t.TempDir(), 1), logger.Nop())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, storage.ErrInvalidPath))
}
