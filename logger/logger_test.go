package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf).WithField("component", "pipeline").ForSubscription(7)

	log.Error().Err(errors.New("boom")).Str("url", "https://example.com").Msg("cycle failed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "pipeline", entry["component"])
	assert.Equal(t, float64(7), entry["subscription_id"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "cycle failed", entry["message"])
	assert.Equal(t, "error", entry["level"])
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).WithFields(Fields{"a": 1, "b": "two"}).Info().Msg("hello")

	assert.Contains(t, buf.String(), `"a":1`)
	assert.Contains(t, buf.String(), `"b":"two"`)
}

func TestNop(t *testing.T) {
	// Must not panic
	Nop().Error().Msg("discarded")
}

func TestOutputFormat(t *testing.T) {
	var buf bytes.Buffer
	New(output(true, &buf)).Info().Str("url", "https://example.com").Msg("json line")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "json line", entry["message"])

	buf.Reset()
	New(output(false, &buf)).Info().Msg("console line")

	assert.Contains(t, buf.String(), "console line")
	assert.Error(t, json.Unmarshal(buf.Bytes(), &entry))
}

func TestGetLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	assert.Equal(t, zerolog.InfoLevel, getLogLevel(true))
	assert.Equal(t, zerolog.DebugLevel, getLogLevel(false))

	t.Setenv("LOG_LEVEL", "warn")
	assert.Equal(t, zerolog.WarnLevel, getLogLevel(true))

	t.Setenv("LOG_LEVEL", "loud")
	assert.Equal(t, zerolog.InfoLevel, getLogLevel(false))
}
