package display_test

import (
	"testing"

	"codeberg.org/mutker/opratectl/internal/display"
	"codeberg.org/mutker/opratectl/internal/errors"
	"codeberg.org/mutker/opratectl/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedRate int

func (r *fixedRate) TargetOperationRate() int { return int(*r) }

func newPanel(t *testing.T) *display.Panel {
	t.Helper()
	p, err := display.NewPanel(display.PanelConfig{
		Name: "primary",
		Modes: []display.Mode{
			{ID: 1, RefreshHz: 60, Width: 1080, Height: 2400},
			{ID: 0, RefreshHz: 120, Width: 1080, Height: 2400},
			{ID: 2, RefreshHz: 120, Width: 1344, Height: 2992},
		},
		ActiveConfig:         0,
		ConfigSettingEnabled: true,
	}, logger.Nop())
	require.NoError(t, err)
	return p
}

func TestPanelRefreshRate(t *testing.T) {
	p := newPanel(t)

	hz, err := p.RefreshRate(1)
	require.NoError(t, err)
	assert.Equal(t, 60, hz)

	_, err = p.RefreshRate(9)
	assert.True(t, errors.HasCode(err, display.ErrUnknownConfig))
}

func TestPanelActiveConfigChangesResolution(t *testing.T) {
	p := newPanel(t)
	assert.Equal(t, display.Resolution{Width: 1080, Height: 2400}, p.Resolution())

	require.NoError(t, p.SetActiveConfig(2))
	assert.Equal(t, display.Resolution{Width: 1344, Height: 2992}, p.Resolution())
	assert.Equal(t, display.ConfigID(2), p.ActiveConfig().ID)

	assert.Error(t, p.SetActiveConfig(7))
	assert.Equal(t, display.ConfigID(2), p.ActiveConfig().ID)
}

func TestPanelModesSorted(t *testing.T) {
	modes := newPanel(t).Modes()
	require.Len(t, modes, 3)
	for i, m := range modes {
		assert.Equal(t, display.ConfigID(i), m.ID)
	}
}

func TestPanelHandleTargetOperationRate(t *testing.T) {
	p := newPanel(t)

	p.HandleTargetOperationRate()
	assert.Zero(t, p.AppliedRate(), "no rate source wired")

	rate := fixedRate(60)
	p.SetRateSource(&rate)
	p.HandleTargetOperationRate()
	assert.Equal(t, 60, p.AppliedRate())

	rate = 120
	p.HandleTargetOperationRate()
	assert.Equal(t, 120, p.AppliedRate())
}

func TestPanelConfigSettingToggle(t *testing.T) {
	p := newPanel(t)
	assert.True(t, p.IsConfigSettingEnabled())
	p.SetConfigSettingEnabled(false)
	assert.False(t, p.IsConfigSettingEnabled())
	assert.False(t, p.HasDisplayColor())
}

func TestNewPanelValidation(t *testing.T) {
	_, err := display.NewPanel(display.PanelConfig{}, logger.Nop())
	assert.True(t, errors.HasCode(err, display.ErrNoModes))

	_, err = display.NewPanel(display.PanelConfig{
		Modes: []display.Mode{{ID: 0, RefreshHz: 0, Width: 1, Height: 1}},
	}, logger.Nop())
	assert.True(t, errors.HasCode(err, display.ErrInvalidMode))

	_, err = display.NewPanel(display.PanelConfig{
		Modes: []display.Mode{
			{ID: 0, RefreshHz: 60, Width: 1, Height: 1},
			{ID: 0, RefreshHz: 120, Width: 1, Height: 1},
		},
	}, logger.Nop())
	assert.True(t, errors.HasCode(err, display.ErrDuplicateMode))

	p, err := display.NewPanel(display.PanelConfig{
		Modes:        []display.Mode{{ID: 3, RefreshHz: 90, Width: 1, Height: 1}},
		ActiveConfig: 8,
	}, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, display.ConfigID(3), p.ActiveConfig().ID, "unknown active config falls back to the first mode")
}
