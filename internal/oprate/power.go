package oprate

import "strings"

// PowerMode is the panel power state. Values match the composer's power
// mode numbering.
type PowerMode int

const (
	PowerOff         PowerMode = 0
	PowerDoze        PowerMode = 1
	PowerOn          PowerMode = 2
	PowerDozeSuspend PowerMode = 3
)

var powerModeNames = map[PowerMode]string{
	PowerOff:         "off",
	PowerDoze:        "doze",
	PowerOn:          "on",
	PowerDozeSuspend: "doze_suspend",
}

func (m PowerMode) String() string {
	if name, ok := powerModeNames[m]; ok {
		return name
	}
	return "unknown"
}

// IsLowPower reports whether the panel runs at the fixed low power rate.
func (m PowerMode) IsLowPower() bool {
	return m == PowerDoze || m == PowerDozeSuspend
}

// ParsePowerMode accepts the names returned by String.
func ParsePowerMode(s string) (PowerMode, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for mode, name := range powerModeNames {
		if name == s {
			return mode, true
		}
	}
	return PowerOff, false
}

// Condition is the signal that triggered an evaluation.
type Condition int

const (
	ConditionConfig Condition = iota
	ConditionBrightness
	ConditionPowerMode
	ConditionHistogramDelta
)

func (c Condition) String() string {
	switch c {
	case ConditionConfig:
		return "config"
	case ConditionBrightness:
		return "brightness"
	case ConditionPowerMode:
		return "power"
	case ConditionHistogramDelta:
		return "histogram"
	default:
		return "unknown"
	}
}
