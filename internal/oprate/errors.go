package oprate

import "codeberg.org/mutker/opratectl/internal/errors"

const (
	ErrInvalidConfig   = errors.ErrInvalidConfig
	ErrInitSampler     = errors.ErrorCode("oprate_init_sampler_failed")
	ErrCloseFailed     = errors.ErrorCode("oprate_close_failed")
	ErrUnknownConfig   = errors.ErrorCode("oprate_unknown_config")
	ErrLoadPeakRate    = errors.ErrorCode("oprate_load_peak_rate_failed")
	ErrPersistPeakRate = errors.ErrorCode("oprate_persist_peak_rate_failed")
)
