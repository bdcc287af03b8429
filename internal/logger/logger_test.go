package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"garbage", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseLevel(tt.input), "input %q", tt.input)
	}
}

func TestZerologLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerologLogger(&buf, "test", zerolog.InfoLevel)

	log.Info("hello", Field{Key: "player", Value: "Bob"})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "Bob", entry["player"])
	assert.Equal(t, "test", entry["service"])
}

func TestZerologLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerologLogger(&buf, "test", zerolog.WarnLevel)

	log.Debug("dropped")
	log.Info("dropped too")
	assert.Zero(t, buf.Len())

	log.Warn("kept")
	assert.NotZero(t, buf.Len())
}

func TestZerologLogger_With(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerologLogger(&buf, "test", zerolog.InfoLevel)

	derived := log.With(Field{Key: "session", Value: 7})
	derived.Info("scoped")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, float64(7), entry["session"])
}

func TestNopLogger(t *testing.T) {
	log := NewNopLogger()
	log.Info("nothing happens")
	assert.NoError(t, log.Close())
}
