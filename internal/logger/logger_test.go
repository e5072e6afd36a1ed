package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "json", "info")

	log.Info("user registered", "username", "testuser")
	log.Debug("hidden")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "user registered", line["msg"])
	assert.Equal(t, "testuser", line["username"])
}

func TestPrettyHandler(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "pretty", "warn")

	log.Info("suppressed")
	assert.Empty(t, buf.String())

	log.With("route", "login").WithGroup("client").Warn("rate limited", "ip", "10.0.0.1")

	out := buf.String()
	assert.Contains(t, out, "rate limited")
	assert.Contains(t, out, "route")
	assert.Contains(t, out, "client.ip")
	assert.Contains(t, out, "10.0.0.1")
}
