package metrics

import "codeberg.org/mutker/opratectl/internal/errors"

const (
	defaultDBPath       = "/var/lib/opratectl/metrics.db"
	defaultBatchSize    = 10
	defaultBatchTimeout = 30
)

type Config struct {
	DBPath string
	// BatchSize is the number of snapshots buffered before a flush.
	BatchSize int
	// BatchTimeout is the flush interval in seconds.
	BatchTimeout int
	Enabled      bool
	// Listen is the address of the HTTP status and metrics endpoint. Empty
	// disables the Prometheus exporter.
	Listen string
}

func DefaultConfig() Config {
	return Config{
		DBPath:       defaultDBPath,
		BatchSize:    defaultBatchSize,
		BatchTimeout: defaultBatchTimeout,
		Enabled:      false, // Disabled by default
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate DBPath if metrics is enabled
	if c.Enabled && c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BatchSize < 0 || c.BatchTimeout < 0 {
		return errFactory.WithData(ErrInvalidConfig, "batch size and timeout must not be negative")
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
