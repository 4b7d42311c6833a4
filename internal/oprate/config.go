package oprate

import (
	"time"

	"codeberg.org/mutker/opratectl/internal/errors"
	"codeberg.org/mutker/opratectl/internal/histogram"
)

const (
	DefaultHSRate                   = 120
	DefaultNSRate                   = 60
	DefaultBrightnessDeltaThreshold = 10
	DefaultLowPowerRate             = 30
	DefaultStoreTimeout             = 2 * time.Second
)

// Config is fixed for the lifetime of a Manager.
type Config struct {
	HSRate int
	NSRate int
	// NSMinDbv is the blocking zone floor while low battery mode is enabled.
	NSMinDbv int
	// HSSwitchMinDbv is the blocking zone floor otherwise. It only applies
	// when luma feedback is enabled.
	HSSwitchMinDbv int
	// LumaDeltaThreshold enables luma feedback when positive.
	LumaDeltaThreshold float64
	// VendorPeakRefreshRate is used when no peak hint has been persisted.
	VendorPeakRefreshRate    int
	BrightnessDeltaThreshold int
	LowPowerRate             int
	QueryPeriod              time.Duration
	// StoreTimeout bounds each property store call.
	StoreTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		HSRate:                   DefaultHSRate,
		NSRate:                   DefaultNSRate,
		BrightnessDeltaThreshold: DefaultBrightnessDeltaThreshold,
		LowPowerRate:             DefaultLowPowerRate,
		QueryPeriod:              histogram.DefaultQueryPeriod,
		StoreTimeout:             DefaultStoreTimeout,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	switch {
	case c.NSRate <= 0 || c.HSRate < c.NSRate:
		return errFactory.WithData(ErrInvalidConfig, "rates must satisfy 0 < ns <= hs")
	case c.LowPowerRate <= 0 || c.LowPowerRate >= c.NSRate:
		return errFactory.WithData(ErrInvalidConfig, "low power rate must be positive and below ns")
	case c.NSMinDbv < 0 || c.HSSwitchMinDbv < 0:
		return errFactory.WithData(ErrInvalidConfig, "brightness floors must not be negative")
	case c.BrightnessDeltaThreshold < 0:
		return errFactory.WithData(ErrInvalidConfig, "brightness delta threshold must not be negative")
	case c.LumaDeltaThreshold < 0:
		return errFactory.WithData(ErrInvalidConfig, "luma delta threshold must not be negative")
	case c.VendorPeakRefreshRate < 0:
		return errFactory.WithData(ErrInvalidConfig, "vendor peak refresh rate must not be negative")
	case c.QueryPeriod < 0 || c.StoreTimeout < 0:
		return errFactory.WithData(ErrInvalidConfig, "durations must not be negative")
	}

	return nil
}
