// Package property persists vendor properties that must survive restarts,
// such as the peak refresh rate hint.
package property

import (
	"context"
	"strconv"

	"codeberg.org/mutker/opratectl/internal/errors"
	"codeberg.org/mutker/opratectl/internal/logger"
)

// PeakRefreshRateKey holds the last peak refresh rate hint.
const PeakRefreshRateKey = "persist.vendor.primarydisplay.op.peak_refresh_rate"

// Store is a string key/value store.
type Store interface {
	// Get returns the value for key. found is false when the key is absent.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// New builds the store selected by cfg.Backend.
func New(cfg Config, log logger.Logger) (Store, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendSQLite:
		s, err := NewSQLiteStore(cfg.Path, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendRedis:
		s, err := NewRedisStore(cfg.Redis, cfg.Timeout, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, errFactory.WithData(ErrUnknownBackend, cfg.Backend)
	}
}

// PositiveInt reads key as an integer. Absent, unparsable and non-positive
// values report ok=false; only store failures are returned as errors.
func PositiveInt(ctx context.Context, s Store, key string) (int, bool, error) {
	raw, found, err := s.Get(ctx, key)
	if err != nil {
		return 0, false, err
	}
	if !found {
		return 0, false, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, false, nil
	}

	return v, true, nil
}

// SetInt stores v under key in decimal form.
func SetInt(ctx context.Context, s Store, key string, v int) error {
	return s.Set(ctx, key, strconv.Itoa(v))
}
