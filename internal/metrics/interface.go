package metrics

import (
	"context"
	"time"
)

// ReasonStatus marks periodic snapshots that do not follow an evaluation.
const ReasonStatus = "status"

// Collector records rate decisions.
type Collector interface {
	Record(ctx context.Context, snapshot *DecisionSnapshot) error
	Close() error
}

// History reads recorded snapshots back, newest first.
type History interface {
	Recent(ctx context.Context, limit int) ([]DecisionSnapshot, error)
}

// Repository stores decision snapshots.
type Repository interface {
	History
	Record(snapshot *DecisionSnapshot) error
	// Flush writes buffered snapshots.
	Flush() error
	Close() error
}

// DecisionSnapshot is the manager state after one evaluation.
type DecisionSnapshot struct {
	Timestamp time.Time `json:"timestamp"`
	// Reason is the signal that triggered the evaluation, or ReasonStatus.
	Reason  string         `json:"reason"`
	Rates   RateMetrics    `json:"rates"`
	Display DisplayMetrics `json:"display"`
	State   StateMetrics   `json:"state"`
}

type RateMetrics struct {
	Target  int `json:"target_hz"`
	Desired int `json:"desired_hz"`
	Refresh int `json:"refresh_hz"`
	// Peak is 0 while the peak refresh rate is unknown.
	Peak int `json:"peak_hz"`
}

type DisplayMetrics struct {
	Brightness int    `json:"brightness_dbv"`
	PowerMode  string `json:"power_mode"`
}

type StateMetrics struct {
	LowBattery   bool `json:"low_battery"`
	SamplerArmed bool `json:"sampler_armed"`
	// Switched is set when the evaluation published a new target.
	Switched bool `json:"switched"`
}
