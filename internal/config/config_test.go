package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/opratectl/internal/config"
	"codeberg.org/mutker/opratectl/internal/display"
	"codeberg.org/mutker/opratectl/internal/errors"
	"codeberg.org/mutker/opratectl/internal/property"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "opratectl.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
interval = 10
log_level = "debug"

[oprate]
hs_hz = 120
ns_hz = 60
ns_min_dbv = 20
hs_switch_min_dbv = 50
hist_delta_th = 5.5
peak_refresh_rate = 120

[histogram]
query_period = "50ms"

[panel]
config_setting_enabled = false

[[panel.modes]]
id = 7
refresh_hz = 90
width = 1344
height = 2992

[store]
backend = "redis"
timeout = "500ms"

[store.redis]
addr = "redis:6379"
db = 2

[metrics]
enabled = true
db_path = "/tmp/decisions.db"
listen = ":9100"
`)

	cfg, err := config.Load(config.WithConfigFile(path), config.WithArgs(nil))
	require.NoError(t, err)

	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, 10, cfg.Interval)
	assert.Equal(t, "debug", cfg.LogLevel)

	rate := cfg.RateSettings()
	assert.Equal(t, 120, rate.HSRate)
	assert.Equal(t, 60, rate.NSRate)
	assert.Equal(t, 20, rate.NSMinDbv)
	assert.Equal(t, 50, rate.HSSwitchMinDbv)
	assert.InDelta(t, 5.5, rate.LumaDeltaThreshold, 1e-9)
	assert.Equal(t, 120, rate.VendorPeakRefreshRate)
	assert.Equal(t, 10, rate.BrightnessDeltaThreshold)
	assert.Equal(t, 30, rate.LowPowerRate)
	assert.Equal(t, 50*time.Millisecond, rate.QueryPeriod)
	assert.Equal(t, 500*time.Millisecond, rate.StoreTimeout)

	panel := cfg.PanelSettings()
	assert.False(t, panel.ConfigSettingEnabled)
	assert.Equal(t, []display.Mode{{ID: 7, RefreshHz: 90, Width: 1344, Height: 2992}}, panel.Modes)

	store := cfg.StoreSettings()
	assert.Equal(t, property.BackendRedis, store.Backend)
	assert.Equal(t, "redis:6379", store.Redis.Addr)
	assert.Equal(t, 2, store.Redis.DB)
	assert.Equal(t, "opratectl:", store.Redis.Prefix)

	history := cfg.MetricsSettings()
	assert.True(t, history.Enabled)
	assert.Equal(t, "/tmp/decisions.db", history.DBPath)
	assert.Equal(t, 10, history.BatchSize)
	assert.Equal(t, ":9100", history.Listen)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPRATECTL_CONFIG", "")

	cfg, err := config.Load(config.WithArgs(nil))
	require.NoError(t, err, "Failed to load config")

	assert.Equal(t, config.DefaultInterval, cfg.Interval)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.False(t, cfg.Debug)
	assert.Equal(t, config.DefaultPIDDir, cfg.PIDDir)

	rate := cfg.RateSettings()
	assert.Equal(t, 120, rate.HSRate)
	assert.Equal(t, 60, rate.NSRate)
	assert.Zero(t, rate.LumaDeltaThreshold)
	assert.Equal(t, 100*time.Millisecond, rate.QueryPeriod)

	panel := cfg.PanelSettings()
	assert.True(t, panel.ConfigSettingEnabled)
	require.Len(t, panel.Modes, 2)
	assert.Equal(t, 120, panel.Modes[0].RefreshHz)
	assert.Equal(t, 60, panel.Modes[1].RefreshHz)

	assert.Equal(t, property.BackendSQLite, cfg.StoreSettings().Backend)
	assert.False(t, cfg.MetricsSettings().Enabled)
}

func TestFlagsOverrideEnvAndFile(t *testing.T) {
	path := writeConfig(t, `
log_level = "warning"

[oprate]
hs_hz = 90
`)
	t.Setenv("OPRATECTL_OPRATE_NS_HZ", "45")
	t.Setenv("OPRATECTL_LOG_LEVEL", "error")

	cfg, err := config.Load(
		config.WithConfigFile(path),
		config.WithArgs([]string{"--log-level", "debug", "--hist-delta-th", "3", "--store-backend", "memory"}),
	)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel, "flag beats env")
	assert.Equal(t, 90, cfg.OpRate.HSHz, "file value kept")
	assert.Equal(t, 45, cfg.OpRate.NSHz, "env beats default")
	assert.InDelta(t, 3.0, cfg.OpRate.HistDeltaTh, 1e-9)
	assert.Equal(t, property.BackendMemory, cfg.Store.Backend)
}

func TestConfigFlagSelectsFile(t *testing.T) {
	path := writeConfig(t, "interval = 42\n")

	cfg, err := config.Load(config.WithArgs([]string{"--config", path}))
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Interval)
}

func TestEnvPrefixOption(t *testing.T) {
	path := writeConfig(t, "interval = 3\n")
	t.Setenv("PANELD_CONFIG", path)
	t.Setenv("PANELD_INTERVAL", "9")

	cfg, err := config.Load(config.WithEnvPrefix("PANELD"), config.WithArgs(nil))
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Interval)
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	path := writeConfig(t, "This is not a valid TOML file\n")

	_, err := config.Load(config.WithConfigFile(path), config.WithArgs(nil))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
	assert.Contains(t, err.Error(), "Failed to read config file")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := config.Load(config.WithConfigFile(filepath.Join(t.TempDir(), "missing.toml")), config.WithArgs(nil))
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    errors.ErrorCode
	}{
		{"log level", `log_level = "invalid"`, errors.ErrInvalidLogLevel},
		{"interval", `interval = 0`, errors.ErrInvalidInterval},
		{"rates", "[oprate]\nns_hz = 144", errors.ErrInvalidConfig},
		{"store backend", "[store]\nbackend = \"etcd\"", errors.ErrInvalidConfig},
		{"metrics path", "[metrics]\nenabled = true\ndb_path = \"\"", errors.ErrInvalidConfig},
		{"buckets", "[histogram]\nbuckets = 0", errors.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := config.Load(config.WithConfigFile(path), config.WithArgs(nil))
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), err.Error())
		})
	}
}

func TestUnknownFlag(t *testing.T) {
	_, err := config.Load(config.WithArgs([]string{"--temperature", "80"}))
	assert.True(t, errors.HasCode(err, errors.ErrInvalidArgument))
}
