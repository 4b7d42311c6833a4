package histogram

import (
	"context"
	"math"
	"sync"
	"time"

	"codeberg.org/mutker/opratectl/internal/display"
	"codeberg.org/mutker/opratectl/internal/errors"
	"codeberg.org/mutker/opratectl/internal/logger"
)

const (
	DefaultQueryPeriod = 100 * time.Millisecond
	unregisterTimeout  = time.Second
)

type samplerState int

const (
	stateIdle samplerState = iota
	stateArmed
	stateExiting
)

func (s samplerState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateArmed:
		return "armed"
	case stateExiting:
		return "exiting"
	default:
		return "unknown"
	}
}

// ResolutionSource reports the current panel resolution.
type ResolutionSource interface {
	Resolution() display.Resolution
}

type SamplerConfig struct {
	// LumaDeltaThreshold is the average luma change that triggers a report.
	LumaDeltaThreshold float64
	// QueryPeriod is the sampling period while armed.
	QueryPeriod time.Duration
}

func (c SamplerConfig) Validate() error {
	errFactory := errors.New()

	if c.LumaDeltaThreshold <= 0 {
		return errFactory.WithData(ErrInvalidConfig, "luma delta threshold must be positive")
	}
	if c.QueryPeriod < 0 {
		return errFactory.WithData(ErrInvalidConfig, "query period must not be negative")
	}
	return nil
}

// Sampler periodically queries the luma histogram while armed and calls
// onDelta when the average luma moves by more than the threshold.
//
// Arm and Disarm never block. The sampling goroutine owns the luma baseline;
// everything else is guarded by mu.
type Sampler struct {
	sensor    Sensor
	panel     ResolutionSource
	onDelta   func()
	threshold float64
	period    time.Duration
	logger    logger.Logger

	mu         sync.Mutex
	state      samplerState
	rearmed    bool // set by Disarm, cleared by the sampling goroutine
	started    bool
	registered bool
	handle     Handle
	config     Config

	wake      chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error

	prevLuma float64
}

// NewSampler builds an idle sampler. Call Start to register with the sensor
// and launch the sampling goroutine.
func NewSampler(sensor Sensor, panel ResolutionSource, onDelta func(), cfg SamplerConfig, log logger.Logger) (*Sampler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	period := cfg.QueryPeriod
	if period == 0 {
		period = DefaultQueryPeriod
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Sampler{
		sensor:    sensor,
		panel:     panel,
		onDelta:   onDelta,
		threshold: cfg.LumaDeltaThreshold,
		period:    period,
		logger:    log,
		wake:      make(chan struct{}, 1),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}, nil
}

// Start launches the sampling goroutine. It is a no-op after Close or a
// previous Start.
func (s *Sampler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.state == stateExiting {
		return
	}
	s.started = true

	go s.run()
}

// Arm asks the sampling goroutine to start (or keep) sampling. It is a
// no-op while the sampler is not registered.
func (s *Sampler) Arm() {
	s.mu.Lock()
	if !s.registered || s.state == stateExiting {
		s.mu.Unlock()
		return
	}
	s.state = stateArmed
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Disarm stops sampling at the goroutine's next wake. An in-flight query is
// not interrupted.
func (s *Sampler) Disarm() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateArmed {
		s.state = stateIdle
		s.rearmed = true
	}
}

// IsArmed reports whether sampling is requested.
func (s *Sampler) IsArmed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateArmed
}

// IsRegistered reports whether the sensor registration succeeded.
func (s *Sampler) IsRegistered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registered
}

// Config returns the registered histogram configuration.
func (s *Sampler) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// IsRuntimeResolutionConfig reports whether the registered ROI no longer
// matches the panel resolution, meaning the sensor maintains the ROI across
// resolution changes on its own.
func (s *Sampler) IsRuntimeResolutionConfig() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.registered {
		return false
	}

	res := s.panel.Resolution()
	if s.config.ROI.Right == res.Width || s.config.ROI.Bottom == res.Height {
		return false
	}

	s.logger.Debug().
		Int("roi_right", s.config.ROI.Right).
		Int("roi_bottom", s.config.ROI.Bottom).
		Int("xres", res.Width).
		Int("yres", res.Height).
		Msg("Histogram ROI follows runtime resolution")

	return true
}

// UpdateResolution records a new panel resolution in the registered ROI.
func (s *Sampler) UpdateResolution(res display.Resolution) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.config.ROI.Right = res.Width
	s.config.ROI.Bottom = res.Height
}

// Close stops the sampling goroutine and unregisters from the sensor. It is
// safe to call while the goroutine is blocked and safe to call twice.
func (s *Sampler) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = stateExiting
		started := s.started
		s.mu.Unlock()

		s.cancel()
		if started {
			<-s.done
		}

		s.mu.Lock()
		registered, handle := s.registered, s.handle
		s.registered = false
		s.mu.Unlock()

		if !registered {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), unregisterTimeout)
		defer cancel()

		if err := s.sensor.Unregister(ctx, handle); err != nil {
			s.closeErr = errors.New().Wrap(ErrUnregister, err)
			s.logger.Error().Err(err).Msg("Failed to unregister histogram")
			return
		}
		s.logger.Debug().Str("handle", string(handle)).Msg("Histogram unregistered")
	})

	return s.closeErr
}

func (s *Sampler) run() {
	defer close(s.done)

	if !s.register() {
		return
	}

	active := false
	for {
		if !active {
			s.logger.Debug().Msg("Histogram wait for signal")
			select {
			case <-s.ctx.Done():
				return
			case <-s.wake:
			}
			if armed, _ := s.takeArmState(); !armed {
				continue
			}
			active = true
			s.prevLuma = 0
		} else {
			timer := time.NewTimer(s.period)
			select {
			case <-s.ctx.Done():
				timer.Stop()
				return
			case <-s.wake:
			case <-timer.C:
			}
			timer.Stop()
			armed, rearmed := s.takeArmState()
			if !armed {
				active = false
				continue
			}
			if rearmed {
				s.prevLuma = 0
			}
		}

		if s.ctx.Err() != nil {
			return
		}

		if s.sample() {
			active = false
		}
	}
}

// takeArmState reports whether sampling is requested and whether a disarm
// happened since the last call.
func (s *Sampler) takeArmState() (armed, rearmed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rearmed = s.rearmed
	s.rearmed = false
	return s.state == stateArmed, rearmed
}

func (s *Sampler) register() bool {
	if s.ctx.Err() != nil {
		return false
	}

	// The panel may not be ready yet, so register the full frame.
	cfg := Config{
		ROI:       ROI{},
		Weights:   DefaultWeights(),
		SamplePos: SamplePosPostPostProc,
	}

	handle, err := s.sensor.Register(s.ctx, cfg)
	if err != nil {
		coded := errors.New().Wrap(ErrRegisterFailed, err)
		if code, ok := SensorErrorCodeOf(err); ok {
			s.logger.ErrorWithCode(coded).Str("sensor_error", code.String()).Msg("Failed to register histogram (hist err)")
		} else {
			s.logger.ErrorWithCode(coded).Msg("Failed to register histogram (transport err)")
		}
		return false
	}

	// Remember the panel resolution for IsRuntimeResolutionConfig.
	res := s.panel.Resolution()
	cfg.ROI.Right = res.Width
	cfg.ROI.Bottom = res.Height

	s.mu.Lock()
	s.handle = handle
	s.config = cfg
	s.registered = true
	s.mu.Unlock()

	s.logger.Info().Str("handle", string(handle)).Msg("Register histogram successfully")
	return true
}

// sample runs one query cycle and reports whether a luma delta event fired.
func (s *Sampler) sample() bool {
	data, err := s.sensor.Query(s.ctx, s.handle)
	if err != nil {
		if s.ctx.Err() != nil {
			return false
		}
		if code, ok := SensorErrorCodeOf(err); ok {
			s.logger.Error().Str("sensor_error", code.String()).Msg("Histogram failed to query")
		} else {
			s.logger.Error().Err(err).Msg("Histogram failed to query")
		}
		return false
	}

	if len(data) == 0 {
		s.logger.Warn().Msg("Histogram data is empty")
		return false
	}

	luma, ok := averageLuma(data)
	if !ok {
		s.logger.Warn().Msg("Histogram count is 0")
		return false
	}

	delta := math.Abs(luma - s.prevLuma)
	s.logger.Debug().
		Float64("luma", luma).
		Float64("delta", delta).
		Float64("threshold", s.threshold).
		Msg("Histogram luma")

	fired := s.prevLuma != 0 && delta > s.threshold
	s.prevLuma = luma

	if fired {
		s.Disarm()
		if s.onDelta != nil {
			s.onDelta()
		}
	}

	return fired
}

// averageLuma returns the count-weighted mean bucket index.
func averageLuma(data []uint16) (float64, bool) {
	var sum, count uint64
	for i, c := range data {
		sum += uint64(i) * uint64(c)
		count += uint64(c)
	}
	if count == 0 {
		return 0, false
	}

	return float64(sum) / float64(count), true
}
