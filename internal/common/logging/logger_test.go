package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(t *testing.T, level LogLevel) (Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger, err := NewZapLogger(LogConfig{Level: level, Output: &buf, Name: "test"})
	require.NoError(t, err)
	return logger, &buf
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, InfoLevel, ParseLevel("INFO"))
	assert.Equal(t, WarnLevel, ParseLevel("warning"))
	assert.Equal(t, ErrorLevel, ParseLevel("ERROR"))
	assert.Equal(t, InfoLevel, ParseLevel("nonsense"))
}

func TestZapLogger_Levels(t *testing.T) {
	t.Run("respects minimum level", func(t *testing.T) {
		logger, buf := newBufferLogger(t, WarnLevel)

		logger.Info("should be filtered")
		logger.Warn("should appear")

		out := buf.String()
		assert.NotContains(t, out, "should be filtered")
		assert.Contains(t, out, "should appear")
	})

	t.Run("error includes cause", func(t *testing.T) {
		logger, buf := newBufferLogger(t, InfoLevel)

		logger.Error("remote set failed", errors.New("dial tcp: connection refused"))

		assert.Contains(t, buf.String(), "connection refused")
	})
}

func TestZapLogger_WithFields(t *testing.T) {
	logger, buf := newBufferLogger(t, InfoLevel)

	child := logger.WithFields(String("component", "tiered-cache"))
	child.Info("cache warmed", Int("entries", 42))

	out := buf.String()
	assert.Contains(t, out, "tiered-cache")
	assert.Contains(t, out, "42")
}

func TestGlobalLogger(t *testing.T) {
	logger, _ := newBufferLogger(t, InfoLevel)

	SetGlobalLogger(logger)
	assert.Same(t, logger, GetGlobalLogger())
}
