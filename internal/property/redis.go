package property

import (
	"context"
	"time"

	"codeberg.org/mutker/opratectl/internal/errors"
	"codeberg.org/mutker/opratectl/internal/logger"
	"github.com/go-redis/redis/v8"
)

// RedisStore keeps properties in redis under a key prefix.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger logger.Logger
}

// NewRedisStore connects to redis and verifies the connection with a ping.
func NewRedisStore(cfg RedisConfig, timeout time.Duration, log logger.Logger) (*RedisStore, error) {
	errFactory := errors.New()

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errFactory.WithData(ErrStoreInit, struct {
			Addr  string
			Error string
		}{
			Addr:  cfg.Addr,
			Error: err.Error(),
		})
	}

	log.Info().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("Connected to redis property store")

	return &RedisStore{
		client: client,
		prefix: cfg.Prefix,
		logger: log,
	}, nil
}

func (s *RedisStore) Key(key string) string {
	return s.prefix + key
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.Key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.New().Wrap(ErrReadFailed, err)
	}

	return value, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.Key(key), value, 0).Err(); err != nil {
		return errors.New().Wrap(ErrWriteFailed, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	if err := s.client.Close(); err != nil {
		return errors.New().Wrap(ErrCloseFailed, err)
	}
	return nil
}
