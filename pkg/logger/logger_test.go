package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/config"
)

func TestLoggerJSONEntryShape(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "info"}, &out)
	require.NoError(t, err)

	log.With("component", "gateway.pipeline").Info("Event dispatched",
		"request_id", "42",
		"ok", true,
		"error", errors.New("boom"),
	)

	var entry Entry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &entry))
	require.Equal(t, "info", entry.Level)
	require.Equal(t, "Event dispatched", entry.Message)
	require.Equal(t, "gateway.pipeline", entry.Component)
	require.Equal(t, "42", entry.RequestID)
	require.NotEmpty(t, entry.Timestamp)
	require.Equal(t, true, entry.Fields["ok"])
	require.Equal(t, "boom", entry.Fields["error"])
	require.NotContains(t, entry.Fields, "request_id")
}

func TestLoggerGroupsPrefixKeys(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json"}, &out)
	require.NoError(t, err)

	log.WithGroup("event").Info("Received", "type", "MESSAGE")

	var entry Entry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &entry))
	require.Equal(t, "MESSAGE", entry.Fields["event.type"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "error"}, &out)
	require.NoError(t, err)

	log.Info("Ignored")
	require.Empty(t, strings.TrimSpace(out.String()))

	log.Error("Kept")
	require.NotEmpty(t, strings.TrimSpace(out.String()))
}

func TestLoggerEnvironmentOverrides(t *testing.T) {
	unsetLoggingEnv(t)
	t.Setenv(envLevel, "debug")
	t.Setenv(envFormat, "text")

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "error"}, &out)
	require.NoError(t, err)

	log.Debug("Debug enabled", "component", "test")
	line := strings.TrimSpace(out.String())
	require.NotEmpty(t, line)
	require.False(t, strings.HasPrefix(line, "{"), "expected text format override, got %q", line)
}

func TestLoggerDefaultsToTextFormat(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{}, &out)
	require.NoError(t, err)

	log.Info("Default format")
	line := strings.TrimSpace(out.String())
	require.NotEmpty(t, line)
	require.False(t, strings.HasPrefix(line, "{"))
}

func TestLoggerRejectsUnknownSettings(t *testing.T) {
	unsetLoggingEnv(t)

	_, err := newWithWriter(config.LoggingConfig{Format: "xml"}, &bytes.Buffer{})
	require.ErrorContains(t, err, "unsupported log format")

	_, err = newWithWriter(config.LoggingConfig{Level: "trace"}, &bytes.Buffer{})
	require.ErrorContains(t, err, "unsupported log level")
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	log := Discard()
	log.Error("dropped")
	require.False(t, log.Enabled(context.Background(), slog.LevelError))
}

func unsetLoggingEnv(t *testing.T) {
	t.Helper()
	t.Setenv(envLevel, "")
	t.Setenv(envFormat, "")
	t.Setenv(envAddSource, "")
}
