package oprate

import (
	"testing"

	"codeberg.org/mutker/opratectl/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"ns above hs", func(c *Config) { c.NSRate = 144 }},
		{"zero ns", func(c *Config) { c.NSRate = 0 }},
		{"low power at ns", func(c *Config) { c.LowPowerRate = c.NSRate }},
		{"zero low power", func(c *Config) { c.LowPowerRate = 0 }},
		{"negative floor", func(c *Config) { c.NSMinDbv = -1 }},
		{"negative brightness delta", func(c *Config) { c.BrightnessDeltaThreshold = -1 }},
		{"negative luma delta", func(c *Config) { c.LumaDeltaThreshold = -0.5 }},
		{"negative vendor peak", func(c *Config) { c.VendorPeakRefreshRate = -60 }},
		{"negative period", func(c *Config) { c.QueryPeriod = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			assert.True(t, errors.HasCode(cfg.Validate(), ErrInvalidConfig))
		})
	}
}

func TestPowerMode(t *testing.T) {
	for _, mode := range []PowerMode{PowerOff, PowerDoze, PowerOn, PowerDozeSuspend} {
		parsed, ok := ParsePowerMode(mode.String())
		assert.True(t, ok)
		assert.Equal(t, mode, parsed)
	}

	assert.True(t, PowerDoze.IsLowPower())
	assert.True(t, PowerDozeSuspend.IsLowPower())
	assert.False(t, PowerOn.IsLowPower())
	assert.False(t, PowerOff.IsLowPower())

	parsed, ok := ParsePowerMode(" ON ")
	assert.True(t, ok)
	assert.Equal(t, PowerOn, parsed)

	_, ok = ParsePowerMode("standby")
	assert.False(t, ok)
	assert.Equal(t, "unknown", PowerMode(7).String())
	assert.Equal(t, "histogram", ConditionHistogramDelta.String())
}
