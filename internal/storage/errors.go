package storage

import "codeberg.org/mutker/opratectl/internal/errors"

const (
	ErrInvalidPath            = errors.ErrorCode("storage_invalid_path")
	ErrOpenFailed             = errors.ErrorCode("storage_open_failed")
	ErrSchemaInitFailed       = errors.ErrorCode("storage_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("storage_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("storage_schema_migration_failed")
)
