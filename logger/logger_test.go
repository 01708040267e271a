package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestLogTransition(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Level: "debug", Output: &buf})

	l.LogTransition("doc-1", 2, "publish", "ready", "published", "ed", nil)

	entry := decode(t, &buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "workflow", entry["component"])
	assert.Equal(t, "publish", entry["action"])
	assert.Equal(t, float64(2), entry["version"])
	assert.Equal(t, "edition-publisher", entry["service"])
}

func TestLogTransitionFailureIsWarning(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Output: &buf})

	l.LogTransition("doc-1", 1, "publish", "draft", "published", "ed", errors.New("nope"))

	entry := decode(t, &buf)
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "nope", entry["error"])
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Level: "warn", Output: &buf})

	l.Info().Msg("hidden")
	l.LogHTTPRequest("GET", "/health", 200, time.Millisecond)
	assert.Zero(t, buf.Len())

	l.LogHTTPRequest("GET", "/boom", 500, time.Millisecond)
	assert.NotZero(t, buf.Len())
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Output: &buf}).Component("clone")

	l.Info().Msg("hello")

	assert.Equal(t, "clone", decode(t, &buf)["component"])
}
