package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: LogLevelDebug, Output: &buf})

	log := WithComponent("pool")
	log.Info().Str("task_type", "encode").Msg("Worker started")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "pool", entry["component"])
	assert.Equal(t, "encode", entry["task_type"])
	assert.Equal(t, "Worker started", entry["message"])
}

func TestInitWithMode(t *testing.T) {
	t.Run("test mode disables output", func(t *testing.T) {
		InitWithMode(LogModeTest)
		assert.Equal(t, zerolog.Disabled, zerolog.GlobalLevel())
	})

	t.Run("prod mode logs at info", func(t *testing.T) {
		InitWithMode(LogModeProd)
		assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	})

	t.Run("unknown mode falls back to debug", func(t *testing.T) {
		InitWithMode(LogMode("verbose"))
		assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	})

	InitWithMode(LogModeTest)
}
