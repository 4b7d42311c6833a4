// Package oprate decides the panel operation rate from the active refresh
// rate, power mode, brightness, low battery mode and luma feedback.
package oprate

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/opratectl/internal/display"
	"codeberg.org/mutker/opratectl/internal/errors"
	"codeberg.org/mutker/opratectl/internal/histogram"
	"codeberg.org/mutker/opratectl/internal/logger"
	"codeberg.org/mutker/opratectl/internal/metrics"
	"codeberg.org/mutker/opratectl/internal/property"
)

// RatePolicy receives the panel signals and answers which operation rate the
// panel should run at. Signal methods never fail; persistence errors are
// logged.
type RatePolicy interface {
	OnPowerMode(mode PowerMode)
	OnConfig(id display.ConfigID)
	OnBrightness(dbv int)
	OnPeakRefreshRate(hz int)
	OnLowBatteryMode(enabled bool)
	TargetOperationRate() int
}

// lumaSampler is the part of histogram.Sampler the manager drives.
type lumaSampler interface {
	Start()
	Arm()
	Disarm()
	IsArmed() bool
	IsRuntimeResolutionConfig() bool
	UpdateResolution(res display.Resolution)
	Close() error
}

// peakRate is the peak refresh rate hint. The zero value is unknown.
type peakRate struct {
	hz    int
	known bool
}

func (p peakRate) orZero() int {
	if !p.known {
		return 0
	}
	return p.hz
}

// Manager implements RatePolicy. All state is guarded by mu, and every
// evaluation runs to completion under it.
type Manager struct {
	display   display.Context
	store     property.Store
	collector metrics.Collector
	logger    logger.Logger
	cfg       Config

	// sampler is nil when luma feedback is disabled. It is set once during
	// construction.
	sampler   lumaSampler
	closeOnce sync.Once
	closeErr  error

	mu         sync.Mutex
	target     int
	desired    int
	refresh    int
	peak       peakRate
	dbv        int
	lastDbv    int
	power      PowerMode
	lowBattery bool
}

// New builds a manager for disp. Luma feedback is enabled when
// cfg.LumaDeltaThreshold is positive and sensor is not nil; the sampler is
// started before New returns.
func New(
	disp display.Context,
	store property.Store,
	sensor histogram.Sensor,
	cfg Config,
	collector metrics.Collector,
	log logger.Logger,
) (*Manager, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.LumaDeltaThreshold == 0 || sensor == nil {
		// The switch floor only means something with luma feedback.
		cfg.HSSwitchMinDbv = 0
	}

	m := newManager(disp, store, cfg, collector, log)

	if cfg.LumaDeltaThreshold > 0 && sensor != nil {
		sampler, err := histogram.NewSampler(sensor, disp, m.onHistogramLumaDelta, histogram.SamplerConfig{
			LumaDeltaThreshold: cfg.LumaDeltaThreshold,
			QueryPeriod:        cfg.QueryPeriod,
		}, log.With("component", "histogram"))
		if err != nil {
			return nil, errFactory.Wrap(ErrInitSampler, err)
		}
		m.sampler = sampler
		sampler.Start()
	}

	m.logger.Info().
		Int("ns", cfg.NSRate).
		Int("hs", cfg.HSRate).
		Int("ns_min_dbv", cfg.NSMinDbv).
		Int("hs_switch_min_dbv", cfg.HSSwitchMinDbv).
		Bool("luma_feedback", m.sampler != nil).
		Msg("Operation rate manager initialized")

	return m, nil
}

func newManager(disp display.Context, store property.Store, cfg Config, collector metrics.Collector, log logger.Logger) *Manager {
	if cfg.StoreTimeout == 0 {
		cfg.StoreTimeout = DefaultStoreTimeout
	}
	if collector == nil {
		collector = metrics.Noop()
	}

	return &Manager{
		display:   disp,
		store:     store,
		collector: collector,
		logger:    log,
		cfg:       cfg,
		target:    cfg.HSRate,
		desired:   cfg.HSRate,
		power:     PowerOn,
	}
}

// TargetOperationRate returns the low power rate in doze modes and the last
// published rate otherwise.
func (m *Manager) TargetOperationRate() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.targetOperationRateLocked()
}

func (m *Manager) targetOperationRateLocked() int {
	if m.power.IsLowPower() {
		return m.cfg.LowPowerRate
	}
	return m.target
}

func (m *Manager) OnPowerMode(mode PowerMode) {
	m.logger.Debug().Str("mode", mode.String()).Msg("Power mode changed")

	m.mu.Lock()
	m.power = mode
	snap := m.evaluateLocked(ConditionPowerMode)
	m.mu.Unlock()

	m.record(snap)
}

func (m *Manager) OnConfig(id display.ConfigID) {
	rate, err := m.display.RefreshRate(id)
	if err != nil {
		m.logger.ErrorWithCode(errors.New().Wrap(ErrUnknownConfig, err)).
			Uint32("config", uint32(id)).
			Msg("Ignoring unknown display config")
		return
	}

	m.mu.Lock()
	if m.sampler != nil && m.sampler.IsRuntimeResolutionConfig() && m.refresh == rate {
		m.sampler.UpdateResolution(m.display.Resolution())
		m.mu.Unlock()
		m.logger.Debug().Int("refresh", rate).Msg("Skipping rate update for runtime resolution config")
		return
	}
	m.refresh = rate
	m.logger.Debug().Int("refresh", rate).Msg("Display config changed")
	snap := m.evaluateLocked(ConditionConfig)
	m.mu.Unlock()

	m.record(snap)
}

func (m *Manager) OnBrightness(dbv int) {
	m.mu.Lock()
	if dbv <= 0 || dbv == m.lastDbv {
		m.mu.Unlock()
		return
	}
	m.logger.Debug().Int("dbv", dbv).Msg("Brightness changed")
	m.dbv = dbv

	// The persisted hint may not be readable yet when the manager is built,
	// so resolve it on the first brightness report instead.
	if !m.peak.known {
		m.resolvePeakLocked()
	}

	snap := m.evaluateLocked(ConditionBrightness)
	m.mu.Unlock()

	m.record(snap)
}

func (m *Manager) OnPeakRefreshRate(hz int) {
	m.logger.Debug().Int("rate", hz).Msg("Peak refresh rate hint")

	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.StoreTimeout)
	defer cancel()

	if err := property.SetInt(ctx, m.store, property.PeakRefreshRateKey, hz); err != nil {
		m.logger.ErrorWithCode(errors.New().Wrap(ErrPersistPeakRate, err)).
			Str("key", property.PeakRefreshRateKey).
			Msg("Failed to persist peak refresh rate")
	}

	m.peak = peakRate{hz: hz, known: hz > 0}
}

func (m *Manager) OnLowBatteryMode(enabled bool) {
	m.logger.Debug().Bool("enabled", enabled).Msg("Low battery mode changed")

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lowBattery = enabled
}

// onHistogramLumaDelta runs on the sampler goroutine.
func (m *Manager) onHistogramLumaDelta() {
	m.mu.Lock()
	m.logger.Debug().Msg("Histogram reached the luma delta threshold")
	snap := m.evaluateLocked(ConditionHistogramDelta)
	m.mu.Unlock()

	m.record(snap)
	m.display.HandleTargetOperationRate()
}

func (m *Manager) resolvePeakLocked() {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.StoreTimeout)
	defer cancel()

	persisted, ok, err := property.PositiveInt(ctx, m.store, property.PeakRefreshRateKey)
	if err != nil {
		m.logger.ErrorWithCode(errors.New().Wrap(ErrLoadPeakRate, err)).
			Str("key", property.PeakRefreshRateKey).
			Msg("Failed to read peak refresh rate, using vendor default")
	}

	switch {
	case ok:
		m.peak = peakRate{hz: persisted, known: true}
	case m.cfg.VendorPeakRefreshRate > 0:
		m.peak = peakRate{hz: m.cfg.VendorPeakRefreshRate, known: true}
	}

	m.logger.Debug().
		Int("peak", m.peak.orZero()).
		Int("vendor", m.cfg.VendorPeakRefreshRate).
		Int("persist", persisted).
		Msg("Peak refresh rate resolved")
}

func (m *Manager) disarmLocked(reason string) {
	if m.sampler == nil {
		return
	}
	m.logger.Debug().Str("reason", reason).Msg("Histogram stop query")
	m.sampler.Disarm()
}

func (m *Manager) evaluateLocked(cond Condition) *metrics.DecisionSnapshot {
	switched, ran := m.updateOperationRateLocked(cond)
	if !ran {
		return nil
	}
	snap := m.snapshotLocked(cond.String())
	snap.State.Switched = switched
	return snap
}

// updateOperationRateLocked runs one evaluation. switched reports whether a
// new target was published; ran is false when the panel is off and nothing
// was decided.
func (m *Manager) updateOperationRateLocked(cond Condition) (switched, ran bool) {
	hs, ns := m.cfg.HSRate, m.cfg.NSRate

	dbv := m.lastDbv
	if cond == ConditionBrightness {
		dbv = m.dbv
	}

	desired := hs
	steadyLowRefreshRate := (m.peak.known && m.peak.hz <= ns) || m.lowBattery
	inBlockingZone := dbv < m.cfg.HSSwitchMinDbv
	if m.lowBattery {
		inBlockingZone = dbv < m.cfg.NSMinDbv
	}
	effective := 0

	if steadyLowRefreshRate && m.refresh <= ns {
		desired = ns
	}
	if inBlockingZone {
		m.logger.Debug().
			Int("dbv", dbv).
			Int("ns_min_dbv", m.cfg.NSMinDbv).
			Int("hs_switch_min_dbv", m.cfg.HSSwitchMinDbv).
			Msg("Brightness in blocking zone")
		desired = hs
	}

	if m.power.IsLowPower() {
		switched = m.target != m.cfg.LowPowerRate
		m.target = m.cfg.LowPowerRate
		m.desired = m.target
		m.disarmLocked("low power")
		m.logDecisionLocked()
		return switched, true
	}
	if m.power != PowerOn {
		m.disarmLocked("power off")
		return false, false
	}

	switch cond {
	case ConditionConfig:
		if m.refresh > hs {
			break
		}
		if m.sampler == nil {
			if m.refresh > ns {
				effective = hs
			}
			break
		}
		if m.refresh == m.target && !inBlockingZone {
			m.disarmLocked("same config")
		}
		if !inBlockingZone {
			if m.lowBattery && (m.cfg.HSSwitchMinDbv == 0 || dbv < m.cfg.HSSwitchMinDbv) {
				// Defer NS to HS until luma feedback or brightness allows it.
				desired = m.refresh
			} else if m.refresh > ns {
				effective = hs
			}
		}

	case ConditionPowerMode:
		effective = desired

	case ConditionBrightness:
		delta := dbv - m.lastDbv
		if delta < 0 {
			delta = -delta
		}
		if m.sampler == nil {
			if desired == hs || delta > m.cfg.BrightnessDeltaThreshold {
				effective = desired
			}
		} else if delta > m.cfg.BrightnessDeltaThreshold {
			effective = desired
			m.disarmLocked("brightness delta")
		}
		m.lastDbv = dbv

		if effective > m.cfg.LowPowerRate && effective != m.target {
			m.logger.Debug().Int("delta", delta).Msg("Brightness delta")
		} else if m.sampler == nil || (desired == ns && inBlockingZone) {
			m.desired = desired
			return false, true
		}

	case ConditionHistogramDelta:
		effective = desired
	}

	m.desired = desired

	if !m.display.IsConfigSettingEnabled() && effective == ns {
		m.logger.Info().Int("rate", ns).Msg("Rate switching is disabled, skip NS op rate update")
		return false, true
	}
	if effective > m.cfg.LowPowerRate && effective != m.target {
		m.target = effective
		switched = true
		m.logger.Info().Int("rate", effective).Msg("Set target operation rate")
	}

	if m.sampler != nil && m.target != desired {
		m.logger.Debug().Msg("Histogram start query")
		m.sampler.Arm()
	}

	m.logDecisionLocked()
	return switched, true
}

func (m *Manager) logDecisionLocked() {
	battery := "OK"
	if m.lowBattery {
		battery = "Low"
	}

	m.logger.Info().
		Int("target", m.targetOperationRateLocked()).
		Int("desired", m.desired).
		Int("refresh", m.refresh).
		Int("peak", m.peak.orZero()).
		Str("battery", battery).
		Int("dbv", m.lastDbv).
		Int("ns_min_dbv", m.cfg.NSMinDbv).
		Int("hs_switch_min_dbv", m.cfg.HSSwitchMinDbv).
		Msg("Operation rate")
}

func (m *Manager) snapshotLocked(reason string) *metrics.DecisionSnapshot {
	armed := false
	if m.sampler != nil {
		armed = m.sampler.IsArmed()
	}

	return &metrics.DecisionSnapshot{
		Timestamp: time.Now(),
		Reason:    reason,
		Rates: metrics.RateMetrics{
			Target:  m.targetOperationRateLocked(),
			Desired: m.desired,
			Refresh: m.refresh,
			Peak:    m.peak.orZero(),
		},
		Display: metrics.DisplayMetrics{
			Brightness: m.lastDbv,
			PowerMode:  m.power.String(),
		},
		State: metrics.StateMetrics{
			LowBattery:   m.lowBattery,
			SamplerArmed: armed,
		},
	}
}

func (m *Manager) record(snap *metrics.DecisionSnapshot) {
	if snap == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.StoreTimeout)
	defer cancel()

	if err := m.collector.Record(ctx, snap); err != nil {
		m.logger.Warn().Err(err).Str("reason", snap.Reason).Msg("Failed to record decision")
	}
}

// Close stops luma feedback and unregisters the histogram. It must not be
// called with mu held: the sampler goroutine may be waiting for mu.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		if m.sampler == nil {
			return
		}
		if err := m.sampler.Close(); err != nil {
			m.closeErr = errors.New().Wrap(ErrCloseFailed, err)
		}
	})
	return m.closeErr
}
