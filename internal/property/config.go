package property

import (
	"time"

	"codeberg.org/mutker/opratectl/internal/errors"
)

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"

	defaultDBPath  = "/var/lib/opratectl/properties.db"
	defaultTimeout = 2 * time.Second
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type Config struct {
	Backend string
	Path    string
	Redis   RedisConfig
	Timeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Backend: BackendSQLite,
		Path:    defaultDBPath,
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "opratectl:",
		},
		Timeout: defaultTimeout,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	switch c.Backend {
	case BackendSQLite:
		if c.Path == "" {
			return errFactory.WithData(ErrInvalidConfig, "store.path is required for the sqlite backend")
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return errFactory.WithData(ErrInvalidConfig, "store.redis.addr is required for the redis backend")
		}
	case BackendMemory:
	default:
		return errFactory.WithData(ErrUnknownBackend, c.Backend)
	}

	if c.Timeout <= 0 {
		return errFactory.WithData(ErrInvalidConfig, "store.timeout must be positive")
	}

	return nil
}
