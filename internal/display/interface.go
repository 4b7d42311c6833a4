package display

// ConfigID identifies a display configuration (mode).
type ConfigID uint32

// Resolution is a panel size in pixels.
type Resolution struct {
	Width, Height int
}

// Context is the slice of the display pipeline the operation rate manager
// depends on.
type Context interface {
	// RefreshRate resolves a configuration to its refresh rate in Hz.
	RefreshRate(id ConfigID) (int, error)
	// Resolution returns the current panel resolution.
	Resolution() Resolution
	// IsConfigSettingEnabled reports whether rate switching is administratively allowed.
	IsConfigSettingEnabled() bool
	// HasDisplayColor reports whether color-managed preblending is available.
	HasDisplayColor() bool
	// HandleTargetOperationRate applies the operation rate currently chosen
	// by the rate source to the panel.
	HandleTargetOperationRate()
}

// RateSource provides the operation rate a panel should run at.
type RateSource interface {
	TargetOperationRate() int
}

// Mode is one supported display configuration.
type Mode struct {
	ID        ConfigID `mapstructure:"id"`
	RefreshHz int      `mapstructure:"refresh_hz"`
	Width     int      `mapstructure:"width"`
	Height    int      `mapstructure:"height"`
}
