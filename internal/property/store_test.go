package property_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/opratectl/internal/errors"
	"codeberg.org/mutker/opratectl/internal/logger"
	"codeberg.org/mutker/opratectl/internal/property"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositiveIntFallbacks(t *testing.T) {
	ctx := context.Background()
	s := property.NewMemoryStore()

	_, ok, err := property.PositiveInt(ctx, s, property.PeakRefreshRateKey)
	require.NoError(t, err)
	assert.False(t, ok, "absent key")

	for _, raw := range []string{"0", "-60", "fast", ""} {
		require.NoError(t, s.Set(ctx, property.PeakRefreshRateKey, raw))
		_, ok, err = property.PositiveInt(ctx, s, property.PeakRefreshRateKey)
		require.NoError(t, err)
		assert.False(t, ok, "value %q", raw)
	}

	require.NoError(t, property.SetInt(ctx, s, property.PeakRefreshRateKey, 90))
	v, ok, err := property.PositiveInt(ctx, s, property.PeakRefreshRateKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 90, v)
}

func TestMemoryStoreClosed(t *testing.T) {
	s := property.NewMemoryStore()
	require.NoError(t, s.Close())

	err := s.Set(context.Background(), "k", "v")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, property.ErrStoreClosed))

	_, _, err = s.Get(context.Background(), "k")
	assert.True(t, errors.HasCode(err, property.ErrStoreClosed))
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "properties.db")

	s, err := property.NewSQLiteStore(path, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, property.SetInt(ctx, s, property.PeakRefreshRateKey, 60))
	require.NoError(t, property.SetInt(ctx, s, property.PeakRefreshRateKey, 90))
	require.NoError(t, s.Close())

	s, err = property.NewSQLiteStore(path, logger.Nop())
	require.NoError(t, err)
	defer s.Close()

	v, ok, err := property.PositiveInt(ctx, s, property.PeakRefreshRateKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 90, v)

	_, found, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNewSelectsBackend(t *testing.T) {
	cfg := property.DefaultConfig()
	cfg.Backend = property.BackendMemory

	s, err := property.New(cfg, logger.Nop())
	require.NoError(t, err)
	assert.IsType(t, &property.MemoryStore{}, s)

	cfg.Backend = property.BackendSQLite
	cfg.Path = filepath.Join(t.TempDir(), "p.db")
	s, err = property.New(cfg, logger.Nop())
	require.NoError(t, err)
	assert.IsType(t, &property.SQLiteStore{}, s)
	require.NoError(t, s.Close())
}

func TestConfigValidate(t *testing.T) {
	cfg := property.DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Backend = "etcd"
	assert.True(t, errors.HasCode(cfg.Validate(), property.ErrUnknownBackend))

	cfg = property.DefaultConfig()
	cfg.Path = ""
	assert.True(t, errors.HasCode(cfg.Validate(), property.ErrInvalidConfig))

	cfg = property.DefaultConfig()
	cfg.Backend = property.BackendRedis
	cfg.Redis.Addr = ""
	assert.True(t, errors.HasCode(cfg.Validate(), property.ErrInvalidConfig))

	cfg = property.DefaultConfig()
	cfg.Timeout = 0
	assert.Error(t, cfg.Validate())
}

func TestRedisStoreUnreachable(t *testing.T) {
	_, err := property.NewRedisStore(property.RedisConfig{Addr: "127.0.0.1:1"}, 200*time.Millisecond, logger.Nop())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, property.ErrStoreInit))
}
