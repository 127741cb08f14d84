package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restore(t *testing.T) {
	saved, level := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = saved
		zerolog.SetGlobalLevel(level)
	})
}

func TestSetupJSON(t *testing.T) {
	restore(t)

	var buf bytes.Buffer
	Logger{Level: "debug", Format: "json"}.SetupWriter(&buf)

	log.Debug().Str("category", "sidewalk").Msg("Fix received")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "sidewalk", entry["category"])
	assert.Equal(t, "Fix received", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestSetupLevelFilters(t *testing.T) {
	restore(t)

	var buf bytes.Buffer
	Logger{Level: "warn", Format: "json"}.SetupWriter(&buf)

	log.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	log.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestSetupConsoleWithoutTerminal(t *testing.T) {
	restore(t)

	var buf bytes.Buffer
	Logger{Format: "console"}.SetupWriter(&buf)

	log.Info().Msg("Recording saved")
	out := buf.String()
	assert.Contains(t, out, "Recording saved")
	assert.NotContains(t, out, "\x1b[")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
