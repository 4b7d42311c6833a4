package display

import (
	"sort"
	"sync"

	"codeberg.org/mutker/opratectl/internal/errors"
	"codeberg.org/mutker/opratectl/internal/logger"
)

// PanelConfig describes a panel driven from configuration.
type PanelConfig struct {
	Name                 string
	Modes                []Mode
	ActiveConfig         ConfigID
	ConfigSettingEnabled bool
	DisplayColor         bool
}

// Panel is a Context backed by a static list of modes.
type Panel struct {
	name    string
	modes   map[ConfigID]Mode
	active  ConfigID
	enabled bool
	color   bool

	source      RateSource
	appliedRate int

	mu     sync.RWMutex
	logger logger.Logger
}

func NewPanel(cfg PanelConfig, log logger.Logger) (*Panel, error) {
	errFactory := errors.New()

	if len(cfg.Modes) == 0 {
		return nil, errFactory.New(ErrNoModes)
	}

	modes := make(map[ConfigID]Mode, len(cfg.Modes))
	for _, m := range cfg.Modes {
		if m.RefreshHz <= 0 || m.Width <= 0 || m.Height <= 0 {
			return nil, errFactory.WithData(ErrInvalidMode, m)
		}
		if _, dup := modes[m.ID]; dup {
			return nil, errFactory.WithData(ErrDuplicateMode, m.ID)
		}
		modes[m.ID] = m
	}

	active := cfg.ActiveConfig
	if _, ok := modes[active]; !ok {
		active = cfg.Modes[0].ID
	}

	return &Panel{
		name:    cfg.Name,
		modes:   modes,
		active:  active,
		enabled: cfg.ConfigSettingEnabled,
		color:   cfg.DisplayColor,
		logger:  log,
	}, nil
}

// Name returns the display name used in log lines.
func (p *Panel) Name() string {
	return p.name
}

// SetRateSource wires the component whose target rate HandleTargetOperationRate applies.
func (p *Panel) SetRateSource(src RateSource) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.source = src
}

// SetActiveConfig switches the panel to another mode.
func (p *Panel) SetActiveConfig(id ConfigID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.modes[id]; !ok {
		return errors.New().WithData(ErrUnknownConfig, id)
	}
	p.active = id

	return nil
}

// ActiveConfig returns the currently active mode.
func (p *Panel) ActiveConfig() Mode {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.modes[p.active]
}

// Modes returns all modes ordered by id.
func (p *Panel) Modes() []Mode {
	p.mu.RLock()
	defer p.mu.RUnlock()

	modes := make([]Mode, 0, len(p.modes))
	for _, m := range p.modes {
		modes = append(modes, m)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i].ID < modes[j].ID })

	return modes
}

// SetConfigSettingEnabled toggles administrative rate switching.
func (p *Panel) SetConfigSettingEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = enabled
}

func (p *Panel) RefreshRate(id ConfigID) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	m, ok := p.modes[id]
	if !ok {
		return 0, errors.New().WithData(ErrUnknownConfig, id)
	}

	return m.RefreshHz, nil
}

func (p *Panel) Resolution() Resolution {
	p.mu.RLock()
	defer p.mu.RUnlock()

	m := p.modes[p.active]
	return Resolution{Width: m.Width, Height: m.Height}
}

func (p *Panel) IsConfigSettingEnabled() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.enabled
}

func (p *Panel) HasDisplayColor() bool {
	return p.color
}

// HandleTargetOperationRate reads the target rate from the rate source and
// applies it when it differs from the last applied rate.
func (p *Panel) HandleTargetOperationRate() {
	p.mu.RLock()
	src := p.source
	p.mu.RUnlock()

	if src == nil {
		p.logger.Debug().Msg("No rate source, skip operation rate update")
		return
	}

	// Read outside p.mu: the source takes its own lock.
	rate := src.TargetOperationRate()

	p.mu.Lock()
	defer p.mu.Unlock()

	if rate == p.appliedRate {
		return
	}

	p.logger.Info().
		Int("from", p.appliedRate).
		Int("to", rate).
		Msg("Apply panel operation rate")
	p.appliedRate = rate
}

// AppliedRate returns the operation rate last written to the panel.
func (p *Panel) AppliedRate() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.appliedRate
}
