package metrics

import "codeberg.org/mutker/opratectl/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidDBPath = errors.ErrorCode("metrics_invalid_db_path")

	// Storage Errors
	ErrTransactionFailed = errors.ErrorCode("metrics_transaction_failed")
	ErrStorageAccess     = errors.ErrorCode("metrics_storage_access_failed")
	ErrStorageInit       = errors.ErrInitFailed
	ErrStorageClose      = errors.ErrShutdownFailed

	// Service Errors
	ErrServiceShutdown = errors.ErrShutdownFailed

	// Collection Errors
	ErrMetricsCollection = errors.ErrorCode("metrics_collection_failed")
	ErrInvalidMetrics    = errors.ErrorCode("metrics_invalid_snapshot")
	ErrInvalidLimit      = errors.ErrorCode("metrics_invalid_limit")

	// Operation Errors
	ErrOperationTimeout = errors.ErrTimeout
)
