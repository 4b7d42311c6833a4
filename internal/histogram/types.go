// Package histogram samples the panel luma histogram and reports significant
// luma changes back to the operation rate manager.
package histogram

import "context"

// Perceptual channel weights measured for luma sampling. They are shared by
// all panels; only the luma delta threshold is tuned per device.
const (
	WeightR = 186
	WeightG = 766
	WeightB = 72
)

// SamplePos selects where in the display pipeline samples are taken.
type SamplePos int

const (
	SamplePosPostPostProc SamplePos = iota
	SamplePosPrePostProc
)

func (p SamplePos) String() string {
	switch p {
	case SamplePosPostPostProc:
		return "post_postproc"
	case SamplePosPrePostProc:
		return "pre_postproc"
	default:
		return "unknown"
	}
}

// ROI is a region of interest. The zero value means the full frame.
type ROI struct {
	Left, Top, Right, Bottom int
}

// IsFullFrame reports whether the ROI is undefined.
func (r ROI) IsFullFrame() bool {
	return r == ROI{}
}

type Weights struct {
	R, G, B int
}

// DefaultWeights returns the calibrated perceptual weights.
func DefaultWeights() Weights {
	return Weights{R: WeightR, G: WeightG, B: WeightB}
}

// Config is a histogram registration request.
type Config struct {
	ROI       ROI
	Weights   Weights
	SamplePos SamplePos
}

// Handle identifies a histogram registration.
type Handle string

// Sensor is the histogram sensor service.
type Sensor interface {
	Register(ctx context.Context, cfg Config) (Handle, error)
	Unregister(ctx context.Context, h Handle) error
	// Query returns per-bucket pixel counts ordered by bucket index.
	Query(ctx context.Context, h Handle) ([]uint16, error)
}
