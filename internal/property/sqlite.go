package property

import (
	"context"
	"database/sql"
	"path/filepath"
	"time"

	"codeberg.org/mutker/opratectl/internal/errors"
	"codeberg.org/mutker/opratectl/internal/logger"
	"codeberg.org/mutker/opratectl/internal/storage"
)

const (
	schemaVersion = 1

	createPropertiesSQL = `
	   CREATE TABLE IF NOT EXISTS properties (
	       key        TEXT PRIMARY KEY,
	       value      TEXT NOT NULL,
	       updated_at INTEGER NOT NULL
	   );`

	selectPropertySQL = `SELECT value FROM properties WHERE key = ?`

	upsertPropertySQL = `
    INSERT INTO properties (key, value, updated_at) VALUES (?, ?, ?)
    ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
)

// SQLiteStore persists properties in a single sqlite table.
type SQLiteStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewSQLiteStore(path string, log logger.Logger) (*SQLiteStore, error) {
	errFactory := errors.New()

	db, err := storage.Open(path, storage.Schema{
		Name:      "properties",
		Version:   schemaVersion,
		Tables:    []string{"properties"},
		CreateSQL: createPropertiesSQL,
		BackupDir: filepath.Join(filepath.Dir(path), "backups"),
	}, log)
	if err != nil {
		return nil, errFactory.Wrap(ErrStoreInit, err)
	}

	log.Info().Str("path", path).Msg("Property store opened")

	return &SQLiteStore{db: db, logger: log}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, selectPropertySQL, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.New().Wrap(ErrReadFailed, err)
	}

	return value, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, upsertPropertySQL, key, value, time.Now().Unix()); err != nil {
		return errors.New().Wrap(ErrWriteFailed, err)
	}

	s.logger.Debug().Str("key", key).Str("value", value).Msg("Property stored")
	return nil
}

func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.New().Wrap(ErrCloseFailed, err)
	}
	return nil
}
