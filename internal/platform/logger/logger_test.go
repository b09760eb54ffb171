package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proctor/internal/platform/config"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, config.Logging{Level: slog.LevelInfo, Format: "json"})

	log.Debug("hidden")
	log.Info("session started", "session_id", "abc")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "session started", line["msg"])
	assert.Equal(t, "abc", line["session_id"])
	assert.Equal(t, "proctor", line["service"])
}

func TestNewWithWriter_Text(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, config.Logging{Level: slog.LevelDebug, Format: "text"})

	log.Debug("tick")
	assert.Contains(t, buf.String(), "msg=tick")
}
