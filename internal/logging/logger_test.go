package logging

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(buf *bytes.Buffer, level Level) *Logger {
	logger := New()
	logger.SetLevel(level)
	logger.SetOutput(log.New(buf, "", 0))
	return logger
}

func TestLoggerLevels(t *testing.T) {
	tests := []struct {
		name      string
		minLevel  Level
		logLevel  Level
		shouldLog bool
	}{
		{"debug allowed at debug", LevelDebug, LevelDebug, true},
		{"info allowed at debug", LevelDebug, LevelInfo, true},
		{"debug blocked at info", LevelInfo, LevelDebug, false},
		{"info allowed at info", LevelInfo, LevelInfo, true},
		{"info blocked at warn", LevelWarn, LevelInfo, false},
		{"warn allowed at warn", LevelWarn, LevelWarn, true},
		{"warn blocked at error", LevelError, LevelWarn, false},
		{"error allowed at error", LevelError, LevelError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newTestLogger(&buf, tt.minLevel)

			switch tt.logLevel {
			case LevelDebug:
				logger.Debug("iteration started")
			case LevelInfo:
				logger.Info("iteration started")
			case LevelWarn:
				logger.Warn("iteration started")
			case LevelError:
				logger.Error("iteration started")
			}

			if tt.shouldLog {
				assert.Contains(t, buf.String(), "iteration started")
				assert.True(t, strings.HasPrefix(buf.String(), tt.logLevel.String()+":"))
			} else {
				assert.Empty(t, buf.String())
			}
			assert.Equal(t, tt.shouldLog, logger.Enabled(tt.logLevel))
		})
	}
}

func TestLoggerFieldsAreSorted(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, LevelDebug)

	logger.WithFields(map[string]interface{}{
		"run":       "r-1",
		"iteration": 3,
	}).Info("agent finished", "commits", 2, "action", "work")

	assert.Equal(t, "INFO: agent finished | action=work commits=2 iteration=3 run=r-1\n", buf.String())
}

func TestLoggerChildDoesNotLeakFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, LevelDebug)

	child := logger.With("run", "abc")
	child.With("tool", "bash").Debug("tool started")
	logger.Info("parent message")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "run=abc")
	assert.Contains(t, lines[0], "tool=bash")
	assert.NotContains(t, lines[1], "run=abc")
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		expected string
	}{
		{"simple string", "hello", "hello"},
		{"empty string", "", `""`},
		{"string with spaces", "push failed", `"push failed"`},
		{"string with newline", "a\nb", `"a\nb"`},
		{"integer", 42, "42"},
		{"error", errors.New("no remote"), `"no remote"`},
		{"stringer", 90 * time.Second, "1m30s"},
		{"bool", true, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatValue(tt.input))
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{" warn ", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"Error", LevelError, false},
		{"trace", LevelWarn, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	assert.False(t, logger.Enabled(LevelError))
	logger.Error("dropped")
}

func TestDefaultLogger(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(log.New(&buf, "", 0))
	SetLevel(LevelWarn)
	t.Cleanup(func() {
		SetOutput(log.New(&bytes.Buffer{}, "", 0))
	})

	Debug("hidden")
	assert.Empty(t, buf.String())

	Warn("push failed", "remote", "origin")
	assert.Contains(t, buf.String(), "WARN: push failed | remote=origin")

	buf.Reset()
	With("component", "loop").Error("stopped")
	assert.Contains(t, buf.String(), "component=loop")
	assert.Same(t, defaultLogger, Default())
}
