package oprate

import "codeberg.org/mutker/opratectl/internal/metrics"

// Status is a point-in-time view of the manager state.
type Status struct {
	Target       int    `json:"target_hz"`
	Desired      int    `json:"desired_hz"`
	Refresh      int    `json:"refresh_hz"`
	Peak         int    `json:"peak_hz"`
	PeakKnown    bool   `json:"peak_known"`
	Brightness   int    `json:"brightness_dbv"`
	PowerMode    string `json:"power_mode"`
	LowBattery   bool   `json:"low_battery"`
	LumaFeedback bool   `json:"luma_feedback"`
	SamplerArmed bool   `json:"sampler_armed"`
	HSRate       int    `json:"hs_hz"`
	NSRate       int    `json:"ns_hz"`
	LowPowerRate int    `json:"low_power_hz"`
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshotLocked(metrics.ReasonStatus)

	return Status{
		Target:       snap.Rates.Target,
		Desired:      snap.Rates.Desired,
		Refresh:      snap.Rates.Refresh,
		Peak:         snap.Rates.Peak,
		PeakKnown:    m.peak.known,
		Brightness:   snap.Display.Brightness,
		PowerMode:    snap.Display.PowerMode,
		LowBattery:   snap.State.LowBattery,
		LumaFeedback: m.sampler != nil,
		SamplerArmed: snap.State.SamplerArmed,
		HSRate:       m.cfg.HSRate,
		NSRate:       m.cfg.NSRate,
		LowPowerRate: m.cfg.LowPowerRate,
	}
}

// RecordStatus records the current state as a periodic status snapshot.
func (m *Manager) RecordStatus() {
	m.mu.Lock()
	snap := m.snapshotLocked(metrics.ReasonStatus)
	m.mu.Unlock()

	m.record(snap)
}
