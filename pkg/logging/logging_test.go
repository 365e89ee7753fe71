package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LogLevel(999), "UNKNOWN"},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, test.level.String())
	}
}

func TestLogLevel_SlogLevel(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{LogLevel(999), slog.LevelInfo},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, test.level.SlogLevel())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in    string
		level LogLevel
		ok    bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{"", LevelInfo, true},
		{"warning", LevelWarn, true},
		{" error ", LevelError, true},
		{"verbose", LevelInfo, false},
	}

	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			level, ok := ParseLevel(test.in)
			assert.Equal(t, test.level, level)
			assert.Equal(t, test.ok, ok)
		})
	}
}

func TestInitForCLI(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelInfo, &buf)

	Info("test-subsystem", "test message %d", 42)

	output := buf.String()
	assert.Contains(t, output, "test message 42")
	assert.Contains(t, output, "subsystem=test-subsystem")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelWarn, &buf)

	Debug("Engine", "debug line")
	Info("Engine", "info line")
	Warn("Engine", "warn line")

	output := buf.String()
	assert.NotContains(t, output, "debug line")
	assert.NotContains(t, output, "info line")
	assert.Contains(t, output, "warn line")
}

func TestErrorAttribute(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelDebug, &buf)

	Error("Engine", errors.New("boom"), "step %s failed", "s1")

	output := buf.String()
	assert.Contains(t, output, "step s1 failed")
	assert.True(t, strings.Contains(output, "error=boom"))
}
