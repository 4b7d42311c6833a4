package histogram

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimSensorLumaRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewSimSensor(0)

	h, err := s.Register(ctx, Config{Weights: DefaultWeights()})
	require.NoError(t, err)

	for _, want := range []float64{0, 12.5, 57, 255, 300} {
		s.SetLuma(want)
		data, err := s.Query(ctx, h)
		require.NoError(t, err)
		require.Len(t, data, DefaultSimBuckets)

		luma, ok := averageLuma(data)
		require.True(t, ok)
		assert.InDelta(t, s.Luma(), luma, 0.01)
	}
	assert.Equal(t, 5, s.Queries())
}

func TestSimSensorIgnoresNaNLuma(t *testing.T) {
	ctx := context.Background()
	s := NewSimSensor(0)

	h, err := s.Register(ctx, Config{Weights: DefaultWeights()})
	require.NoError(t, err)

	s.SetLuma(40)
	s.SetLuma(math.NaN())
	assert.Equal(t, 40.0, s.Luma())

	s.SetLuma(math.Inf(1))
	assert.Equal(t, float64(DefaultSimBuckets-1), s.Luma())
	s.SetLuma(math.Inf(-1))
	assert.Equal(t, 0.0, s.Luma())

	data, err := s.Query(ctx, h)
	require.NoError(t, err)
	luma, ok := averageLuma(data)
	require.True(t, ok)
	assert.Equal(t, 0.0, luma)
}

func TestSimSensorErrors(t *testing.T) {
	ctx := context.Background()
	s := NewSimSensor(16)

	_, err := s.Register(ctx, Config{})
	code, ok := SensorErrorCodeOf(err)
	require.True(t, ok)
	assert.Equal(t, SensorErrBadWeight, code)

	_, err = s.Register(ctx, Config{Weights: DefaultWeights(), ROI: ROI{Left: 10, Right: 5}})
	code, _ = SensorErrorCodeOf(err)
	assert.Equal(t, SensorErrBadROI, code)

	_, err = s.Query(ctx, "unknown")
	code, _ = SensorErrorCodeOf(err)
	assert.Equal(t, SensorErrBadToken, code)

	err = s.Unregister(ctx, "unknown")
	code, _ = SensorErrorCodeOf(err)
	assert.Equal(t, SensorErrBadToken, code)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.Register(cancelled, Config{Weights: DefaultWeights()})
	assert.True(t, IsTransportError(err))
	_, ok = SensorErrorCodeOf(err)
	assert.False(t, ok)
}

func TestSimSensorHandlesAreUnique(t *testing.T) {
	ctx := context.Background()
	s := NewSimSensor(0)

	a, err := s.Register(ctx, Config{Weights: DefaultWeights()})
	require.NoError(t, err)
	b, err := s.Register(ctx, Config{Weights: DefaultWeights()})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, s.Registrations())
	require.NoError(t, s.Unregister(ctx, a))
	assert.Equal(t, 1, s.Registrations())
}

func TestSensorErrorCodeString(t *testing.T) {
	assert.Equal(t, "bad_token", SensorErrBadToken.String())
	assert.Equal(t, "sensor_error_99", SensorErrorCode(99).String())
	assert.True(t, ROI{}.IsFullFrame())
	assert.Equal(t, "post_postproc", SamplePosPostPostProc.String())
}
