package property

import "codeberg.org/mutker/opratectl/internal/errors"

const (
	ErrInvalidConfig  = errors.ErrInvalidConfig
	ErrUnknownBackend = errors.ErrorCode("property_unknown_backend")
	ErrStoreInit      = errors.ErrorCode("property_store_init_failed")
	ErrStoreClosed    = errors.ErrorCode("property_store_closed")
	ErrReadFailed     = errors.ErrorCode("property_read_failed")
	ErrWriteFailed    = errors.ErrorCode("property_write_failed")
	ErrCloseFailed    = errors.ErrorCode("property_close_failed")
)
