package histogram

import (
	"context"
	"math"
	"sync"

	"codeberg.org/mutker/opratectl/internal/errors"
	"github.com/google/uuid"
)

const (
	DefaultSimBuckets = 256
	simPixelCount     = 4096
)

// SimSensor is an in-process histogram sensor. Every sample places all
// pixels around a settable luma value, which lets the daemon and tests drive
// luma deltas without hardware.
type SimSensor struct {
	mu          sync.Mutex
	buckets     int
	luma        float64
	registered  map[Handle]Config
	registerErr error
	queryErr    error
	queries     int
}

func NewSimSensor(buckets int) *SimSensor {
	if buckets <= 0 {
		buckets = DefaultSimBuckets
	}
	return &SimSensor{
		buckets:    buckets,
		registered: make(map[Handle]Config),
	}
}

// SetLuma moves the simulated average luma. Values are clamped to the bucket
// range; NaN is ignored.
func (s *SimSensor) SetLuma(luma float64) {
	if math.IsNaN(luma) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.luma = math.Max(0, math.Min(luma, float64(s.buckets-1)))
}

// Luma returns the simulated average luma.
func (s *SimSensor) Luma() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.luma
}

// FailRegister makes the next registrations fail with err (nil clears it).
func (s *SimSensor) FailRegister(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registerErr = err
}

// FailQuery makes queries fail with err (nil clears it).
func (s *SimSensor) FailQuery(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryErr = err
}

// Queries returns the number of successful queries served.
func (s *SimSensor) Queries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries
}

// Registrations returns the number of live registrations.
func (s *SimSensor) Registrations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.registered)
}

func (s *SimSensor) Register(ctx context.Context, cfg Config) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.New().Wrap(ErrTransport, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.registerErr != nil {
		return "", s.registerErr
	}
	if cfg.Weights.R < 0 || cfg.Weights.G < 0 || cfg.Weights.B < 0 ||
		cfg.Weights.R+cfg.Weights.G+cfg.Weights.B == 0 {
		return "", NewSensorError(SensorErrBadWeight)
	}
	if cfg.ROI.Right < cfg.ROI.Left || cfg.ROI.Bottom < cfg.ROI.Top {
		return "", NewSensorError(SensorErrBadROI)
	}

	h := Handle(uuid.NewString())
	s.registered[h] = cfg

	return h, nil
}

func (s *SimSensor) Unregister(ctx context.Context, h Handle) error {
	if err := ctx.Err(); err != nil {
		return errors.New().Wrap(ErrTransport, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.registered[h]; !ok {
		return NewSensorError(SensorErrBadToken)
	}
	delete(s.registered, h)

	return nil
}

func (s *SimSensor) Query(ctx context.Context, h Handle) ([]uint16, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.New().Wrap(ErrTransport, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queryErr != nil {
		return nil, s.queryErr
	}
	if _, ok := s.registered[h]; !ok {
		return nil, NewSensorError(SensorErrBadToken)
	}

	s.queries++

	// Split the pixels between the two buckets around luma so the weighted
	// mean lands on luma exactly.
	data := make([]uint16, s.buckets)
	lower := int(math.Floor(s.luma))
	frac := s.luma - float64(lower)
	upperCount := int(math.Round(frac * simPixelCount))
	data[lower] = uint16(simPixelCount - upperCount)
	if upperCount > 0 && lower+1 < s.buckets {
		data[lower+1] = uint16(upperCount)
	}

	return data, nil
}
