package logger_test

import (
	"bytes"
	"testing"

	"codeberg.org/mutker/opratectl/internal/errors"
	"codeberg.org/mutker/opratectl/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestComponentLoggerTagsLines(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, true, false, true)
	t.Cleanup(func() { logger.SetLogLevel(logger.DebugLevel) })

	log := logger.WithComponent("oprate").With("display", "primary")
	log.Info().Int("target", 120).Msg("set target operation rate")

	out := buf.String()
	assert.Contains(t, out, "set target operation rate")
	assert.Contains(t, out, "component=oprate")
	assert.Contains(t, out, "display=primary")
	assert.Contains(t, out, "target=120")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, false, false, true)
	t.Cleanup(func() { logger.SetLogLevel(logger.DebugLevel) })

	logger.Debug().Msg("hidden")
	logger.Info().Msg("hidden too")
	logger.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestErrorWithCode(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, true, false, true)
	t.Cleanup(func() { logger.SetLogLevel(logger.DebugLevel) })

	logger.ErrorWithCode(errors.New().New(errors.ErrInitStore)).Msg("store failed")

	assert.Contains(t, buf.String(), "error_code=init_store_failed")
}

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]logger.LogLevel{
		"debug":   logger.DebugLevel,
		"info":    logger.InfoLevel,
		"warning": logger.WarnLevel,
		"warn":    logger.WarnLevel,
		"error":   logger.ErrorLevel,
	} {
		got, ok := logger.ParseLevel(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	_, ok := logger.ParseLevel("loud")
	assert.False(t, ok)
}

func TestNopDiscards(t *testing.T) {
	assert.NotPanics(t, func() {
		logger.Nop().Error().Str("k", "v").Msg("dropped")
	})
}
