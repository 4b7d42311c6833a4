package display

import "codeberg.org/mutker/opratectl/internal/errors"

const (
	ErrNoModes       = errors.ErrorCode("display_no_modes")
	ErrInvalidMode   = errors.ErrorCode("display_invalid_mode")
	ErrDuplicateMode = errors.ErrorCode("display_duplicate_mode")
	ErrUnknownConfig = errors.ErrorCode("display_unknown_config")
)
