// Package config loads the daemon configuration from a TOML file,
// OPRATECTL_* environment variables and command line flags.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/opratectl/internal/display"
	"codeberg.org/mutker/opratectl/internal/errors"
	"codeberg.org/mutker/opratectl/internal/histogram"
	"codeberg.org/mutker/opratectl/internal/metrics"
	"codeberg.org/mutker/opratectl/internal/oprate"
	"codeberg.org/mutker/opratectl/internal/property"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultEnvPrefix = "OPRATECTL"
	DefaultInterval  = 5
	DefaultLogLevel  = string(LogLevelInfo)
	DefaultPIDDir    = "/run/opratectl"

	configName = "opratectl"
	configType = "toml"
)

type Config struct {
	Interval  int             `mapstructure:"interval"`
	LogLevel  string          `mapstructure:"log_level"`
	Debug     bool            `mapstructure:"debug"`
	Verbose   bool            `mapstructure:"verbose"`
	PIDDir    string          `mapstructure:"pid_dir"`
	OpRate    OpRateConfig    `mapstructure:"oprate"`
	Histogram HistogramConfig `mapstructure:"histogram"`
	Panel     PanelConfig     `mapstructure:"panel"`
	Store     StoreConfig     `mapstructure:"store"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`

	// ConfigFile is the file the configuration was read from, if any.
	ConfigFile string `mapstructure:"-"`
}

type OpRateConfig struct {
	HSHz              int     `mapstructure:"hs_hz"`
	NSHz              int     `mapstructure:"ns_hz"`
	NSMinDbv          int     `mapstructure:"ns_min_dbv"`
	HSSwitchMinDbv    int     `mapstructure:"hs_switch_min_dbv"`
	HistDeltaTh       float64 `mapstructure:"hist_delta_th"`
	PeakRefreshRate   int     `mapstructure:"peak_refresh_rate"`
	BrightnessDeltaTh int     `mapstructure:"brightness_delta_th"`
	LowPowerHz        int     `mapstructure:"low_power_hz"`
}

type HistogramConfig struct {
	QueryPeriod time.Duration `mapstructure:"query_period"`
	// Buckets sizes the simulated sensor histogram.
	Buckets int `mapstructure:"buckets"`
}

type PanelConfig struct {
	Name                 string         `mapstructure:"name"`
	Modes                []display.Mode `mapstructure:"modes"`
	ActiveConfig         uint32         `mapstructure:"active_config"`
	ConfigSettingEnabled bool           `mapstructure:"config_setting_enabled"`
	DisplayColor         bool           `mapstructure:"display_color"`
}

type StoreConfig struct {
	Backend string        `mapstructure:"backend"`
	Path    string        `mapstructure:"path"`
	Timeout time.Duration `mapstructure:"timeout"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type MetricsConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DBPath       string `mapstructure:"db_path"`
	BatchSize    int    `mapstructure:"batch_size"`
	BatchTimeout int    `mapstructure:"batch_timeout"`
	Listen       string `mapstructure:"listen"`
}

func setDefaults(v *viper.Viper) {
	rate := oprate.DefaultConfig()
	store := property.DefaultConfig()
	history := metrics.DefaultConfig()

	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("debug", false)
	v.SetDefault("verbose", false)
	v.SetDefault("pid_dir", DefaultPIDDir)

	v.SetDefault("oprate.hs_hz", rate.HSRate)
	v.SetDefault("oprate.ns_hz", rate.NSRate)
	v.SetDefault("oprate.ns_min_dbv", 0)
	v.SetDefault("oprate.hs_switch_min_dbv", 0)
	v.SetDefault("oprate.hist_delta_th", 0)
	v.SetDefault("oprate.peak_refresh_rate", 0)
	v.SetDefault("oprate.brightness_delta_th", rate.BrightnessDeltaThreshold)
	v.SetDefault("oprate.low_power_hz", rate.LowPowerRate)

	v.SetDefault("histogram.query_period", histogram.DefaultQueryPeriod)
	v.SetDefault("histogram.buckets", histogram.DefaultSimBuckets)

	v.SetDefault("panel.name", "primary")
	v.SetDefault("panel.modes", []map[string]interface{}{
		{"id": 1, "refresh_hz": 120, "width": 1080, "height": 2400},
		{"id": 2, "refresh_hz": 60, "width": 1080, "height": 2400},
	})
	v.SetDefault("panel.active_config", 1)
	v.SetDefault("panel.config_setting_enabled", true)
	v.SetDefault("panel.display_color", true)

	v.SetDefault("store.backend", store.Backend)
	v.SetDefault("store.path", store.Path)
	v.SetDefault("store.timeout", store.Timeout)
	v.SetDefault("store.redis.addr", store.Redis.Addr)
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", store.Redis.DB)
	v.SetDefault("store.redis.prefix", store.Redis.Prefix)

	v.SetDefault("metrics.enabled", history.Enabled)
	v.SetDefault("metrics.db_path", history.DBPath)
	v.SetDefault("metrics.batch_size", history.BatchSize)
	v.SetDefault("metrics.batch_timeout", history.BatchTimeout)
	v.SetDefault("metrics.listen", "")
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"debug":          "debug",
	"verbose":        "verbose",
	"log-level":      "log_level",
	"interval":       "interval",
	"pid-dir":        "pid_dir",
	"hs-hz":          "oprate.hs_hz",
	"ns-hz":          "oprate.ns_hz",
	"hist-delta-th":  "oprate.hist_delta_th",
	"store-backend":  "store.backend",
	"store-path":     "store.path",
	"metrics":        "metrics.enabled",
	"metrics-db":     "metrics.db_path",
	"metrics-listen": "metrics.listen",
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet(configName, pflag.ContinueOnError)

	fs.String("config", "", "Path to the configuration file")
	fs.Bool("debug", false, "Enable debugging mode")
	fs.Bool("verbose", false, "Enable verbose logging")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.Int("interval", DefaultInterval, "Seconds between status snapshots")
	fs.String("pid-dir", DefaultPIDDir, "Directory of the PID file")
	fs.Int("hs-hz", oprate.DefaultHSRate, "High speed operation rate")
	fs.Int("ns-hz", oprate.DefaultNSRate, "Normal speed operation rate")
	fs.Float64("hist-delta-th", 0, "Luma delta threshold, 0 disables luma feedback")
	fs.String("store-backend", property.BackendSQLite, "Property store backend (sqlite, redis, memory)")
	fs.String("store-path", "", "Property database path")
	fs.Bool("metrics", false, "Record decision history")
	fs.String("metrics-db", "", "Decision history database path")
	fs.String("metrics-listen", "", "Address of the status and metrics endpoint")

	return fs
}

// Load reads the configuration. Command line flags override environment
// variables, which override the configuration file, which overrides the
// defaults.
func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidArgument, err)
		}
	}
	if !o.argsSet {
		o.args = os.Args[1:]
	}

	v := viper.New()
	setDefaults(v)

	fs := newFlagSet()
	if err := fs.Parse(o.args); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidArgument, err)
	}
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := o.configPath
	if f := fs.Lookup("config"); f != nil && f.Changed {
		configPath = f.Value.String()
	}
	if configPath == "" {
		configPath = os.Getenv(o.envPrefix + "_CONFIG")
	}

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func readConfigFile(v *viper.Viper, path string) error {
	errFactory := errors.New()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType(configType)
		if err := v.ReadInConfig(); err != nil {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}
		return nil
	}

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath("/etc/opratectl")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", configName))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	return nil
}

// Validate checks the daemon settings and every component configuration.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}
	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	if len(c.Panel.Modes) == 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "panel.modes must not be empty")
	}
	if c.Histogram.Buckets <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "histogram.buckets must be positive")
	}

	if err := c.RateSettings().Validate(); err != nil {
		return errFactory.Wrap(errors.ErrInvalidConfig, err)
	}
	if err := c.StoreSettings().Validate(); err != nil {
		return errFactory.Wrap(errors.ErrInvalidConfig, err)
	}
	if err := c.MetricsSettings().Validate(); err != nil {
		return errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	return nil
}

func (c *Config) RateSettings() oprate.Config {
	return oprate.Config{
		HSRate:                   c.OpRate.HSHz,
		NSRate:                   c.OpRate.NSHz,
		NSMinDbv:                 c.OpRate.NSMinDbv,
		HSSwitchMinDbv:           c.OpRate.HSSwitchMinDbv,
		LumaDeltaThreshold:       c.OpRate.HistDeltaTh,
		VendorPeakRefreshRate:    c.OpRate.PeakRefreshRate,
		BrightnessDeltaThreshold: c.OpRate.BrightnessDeltaTh,
		LowPowerRate:             c.OpRate.LowPowerHz,
		QueryPeriod:              c.Histogram.QueryPeriod,
		StoreTimeout:             c.Store.Timeout,
	}
}

func (c *Config) PanelSettings() display.PanelConfig {
	return display.PanelConfig{
		Name:                 c.Panel.Name,
		Modes:                c.Panel.Modes,
		ActiveConfig:         display.ConfigID(c.Panel.ActiveConfig),
		ConfigSettingEnabled: c.Panel.ConfigSettingEnabled,
		DisplayColor:         c.Panel.DisplayColor,
	}
}

func (c *Config) StoreSettings() property.Config {
	return property.Config{
		Backend: c.Store.Backend,
		Path:    c.Store.Path,
		Timeout: c.Store.Timeout,
		Redis: property.RedisConfig{
			Addr:     c.Store.Redis.Addr,
			Password: c.Store.Redis.Password,
			DB:       c.Store.Redis.DB,
			Prefix:   c.Store.Redis.Prefix,
		},
	}
}

func (c *Config) MetricsSettings() metrics.Config {
	return metrics.Config{
		DBPath:       c.Metrics.DBPath,
		BatchSize:    c.Metrics.BatchSize,
		BatchTimeout: c.Metrics.BatchTimeout,
		Enabled:      c.Metrics.Enabled,
		Listen:       c.Metrics.Listen,
	}
}
