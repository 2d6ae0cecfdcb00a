package stencil

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LogInfo)

	logger.Debug("hidden %d", 1)
	logger.Info("shown %d", 2)
	logger.Warn("careful")
	logger.Error("broken")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `level=INFO msg="shown 2"`)
	assert.Contains(t, out, "level=WARN msg=careful")
	assert.Contains(t, out, "level=ERROR msg=broken")
	assert.False(t, logger.IsDebugMode())
}

func TestLogger_Off(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LogOff)
	logger.Error("nothing")
	assert.Empty(t, buf.String())
}

func TestLogger_FieldsAreSortedAndShareLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LogWarn)
	child := logger.WithFields(Fields{"b": 2, "a": 1}).WithField("c", "x")

	child.Debug("before")
	logger.SetLevel(LogDebug)
	child.Debug("after")

	out := buf.String()
	assert.NotContains(t, out, "before")
	assert.Contains(t, out, "level=DEBUG msg=after a=1 b=2 c=x")
	assert.True(t, child.IsDebugMode())
}

func TestLogger_NilWriter(t *testing.T) {
	logger := NewLogger(nil, LogDebug)
	assert.NotPanics(t, func() { logger.Info("discarded") })
}

func TestNewLoggerFromHandler(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := NewLoggerFromHandler(handler, LogWarn)

	logger.Info("dropped")
	logger.Warn("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "msg=kept")
}

func TestLogger_DebugTemplate(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LogDebug)

	logger.DebugTemplate("Hi {{name}}", NewRenderContext(1, 2, map[string]string{"name": "x"}, nil))

	assert.Contains(t, buf.String(), `msg="Template: Hi {{name}}"`)
	assert.Contains(t, buf.String(), `msg="Context: page=1/2 flat=1 structured=0"`)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  LogLevel
	}{
		{"debug", LogDebug},
		{" INFO ", LogInfo},
		{"warn", LogWarn},
		{"warning", LogWarn},
		{"error", LogError},
		{"off", LogOff},
		{"chatty", LogInfo},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LogDebug.String())
	assert.Equal(t, "OFF", LogOff.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestGlobalLogger(t *testing.T) {
	previous := GetLogger()
	t.Cleanup(func() { SetLogger(previous) })

	var buf bytes.Buffer
	SetLogger(NewLogger(&buf, LogInfo))

	Info("global %s", "info")
	WithField("k", "v").Warn("with field")
	WithFields(Fields{"n": 3}).Error("with fields")
	Debug("not shown")

	out := buf.String()
	assert.Contains(t, out, `msg="global info"`)
	assert.Contains(t, out, `msg="with field" k=v`)
	assert.Contains(t, out, `msg="with fields" n=3`)
	assert.NotContains(t, out, "not shown")
}

func TestUpdateLoggerFromConfig(t *testing.T) {
	previous := GetLogger()
	t.Cleanup(func() { SetLogger(previous) })
	SetLogger(NewLogger(nil, LogInfo))

	config := DefaultConfig()
	config.LogLevel = "debug"
	withGlobalConfig(t, config)

	assert.True(t, GetLogger().IsDebugMode())
}
