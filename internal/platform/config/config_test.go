package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, slog.LevelInfo, cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Empty(t, cfg.Redis.URL)
	assert.Empty(t, cfg.Postgres.DSN)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, 5*time.Second, cfg.Manager.JoinTimeout)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PROCTOR_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "TEXT")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("PROCTOR_ALLOWED_ORIGINS", "https://exam.example.com")
	t.Setenv("REDIS_STATUS_TTL", "90m")
	t.Setenv("PROCTOR_AUDIT_SAMPLE_RATES", "proctoring_violation_confirmed=0.5")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, slog.LevelDebug, cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, []string{"https://exam.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 90*time.Minute, cfg.Redis.StatusTTL)
	assert.Equal(t, map[string]float64{"proctoring_violation_confirmed": 0.5}, cfg.Manager.AuditSampleRates)
}

func TestFromEnv_ReportsEveryBadValue(t *testing.T) {
	t.Setenv("REDIS_POOL_SIZE", "many")
	t.Setenv("DETECTOR_TIMEOUT", "soon")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_POOL_SIZE")
	assert.Contains(t, err.Error(), "DETECTOR_TIMEOUT")
}

func TestValidate(t *testing.T) {
	t.Run("regulated mode needs a real key", func(t *testing.T) {
		t.Setenv("REGULATED_MODE", "true")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "regulated mode")
	})

	t.Run("remote audio needs a model url", func(t *testing.T) {
		t.Setenv("DETECTOR_REMOTE_AUDIO", "true")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "DETECTOR_MODEL_URL")
	})

	t.Run("short key", func(t *testing.T) {
		t.Setenv("JWT_SIGNING_KEY", "short")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "16 bytes")
	})
}
