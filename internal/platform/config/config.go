// Package config reads process configuration from the environment so main
// stays lean. Every setting has a development default; Validate rejects
// combinations that cannot run.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	strs "proctor/pkg/platform/strings"
)

const devSigningKey = "dev-secret-key-change-in-production"

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	StatusInterval  time.Duration
	RegulatedMode   bool
}

// Auth configures bearer token validation for callers.
type Auth struct {
	JWTSigningKey string
	Issuer        string
	Audience      string
}

// Logging selects the slog handler.
type Logging struct {
	Level  slog.Level
	Format string
}

// RedisConfig configures the live status cache. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	StatusTTL    time.Duration
}

// Postgres configures attempt and audit persistence. An empty DSN keeps
// everything in memory.
type Postgres struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Kafka configures audit transport. No brokers disables it.
type Kafka struct {
	Brokers        []string
	ClientID       string
	ConsumerGroup  string
	AuditTopic     string
	RelayInterval  time.Duration
	RelayBatchSize int
}

// Detector configures the model backends.
type Detector struct {
	ModelURL         string
	RemoteAudio      bool
	Timeout          time.Duration
	FailureThreshold int
	Cooldown         time.Duration
}

// Manager configures the session registry.
type Manager struct {
	JoinTimeout      time.Duration
	FeedBuffer       int
	AuditBuffer      int
	PolicyFile       string
	WatchPolicy      bool
	AuditSampleRates map[string]float64
}

type Config struct {
	Server   Server
	Auth     Auth
	Logging  Logging
	Redis    RedisConfig
	Postgres Postgres
	Kafka    Kafka
	Detector Detector
	Manager  Manager
}

// FromEnv builds the configuration from PROCTOR_* environment variables.
func FromEnv() (Config, error) {
	r := reader{}
	cfg := Config{
		Server: Server{
			Addr:            r.str("PROCTOR_ADDR", ":8080"),
			ShutdownTimeout: r.duration("PROCTOR_SHUTDOWN_TIMEOUT", 15*time.Second),
			AllowedOrigins:  r.list("PROCTOR_ALLOWED_ORIGINS"),
			StatusInterval:  r.duration("PROCTOR_STREAM_STATUS_INTERVAL", time.Second),
			RegulatedMode:   r.boolean("REGULATED_MODE", false),
		},
		Auth: Auth{
			JWTSigningKey: r.str("JWT_SIGNING_KEY", devSigningKey),
			Issuer:        r.str("JWT_ISSUER", "exam-service"),
			Audience:      r.str("JWT_AUDIENCE", "proctor"),
		},
		Logging: Logging{
			Level:  r.level("LOG_LEVEL", slog.LevelInfo),
			Format: strings.ToLower(r.str("LOG_FORMAT", "json")),
		},
		Redis: RedisConfig{
			URL:          r.str("REDIS_URL", ""),
			PoolSize:     r.integer("REDIS_POOL_SIZE", 20),
			MinIdleConns: r.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  r.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  r.duration("REDIS_READ_TIMEOUT", 2*time.Second),
			WriteTimeout: r.duration("REDIS_WRITE_TIMEOUT", 2*time.Second),
			StatusTTL:    r.duration("REDIS_STATUS_TTL", 6*time.Hour),
		},
		Postgres: Postgres{
			DSN:             r.str("DATABASE_URL", ""),
			MaxOpenConns:    r.integer("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    r.integer("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: r.duration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Kafka: Kafka{
			Brokers:        r.list("KAFKA_BROKERS"),
			ClientID:       r.str("KAFKA_CLIENT_ID", "proctor"),
			ConsumerGroup:  r.str("KAFKA_CONSUMER_GROUP", "proctor-audit-materializer"),
			AuditTopic:     r.str("KAFKA_AUDIT_TOPIC", "proctor.audit"),
			RelayInterval:  r.duration("KAFKA_RELAY_INTERVAL", time.Second),
			RelayBatchSize: r.integer("KAFKA_RELAY_BATCH_SIZE", 100),
		},
		Detector: Detector{
			ModelURL:         r.str("DETECTOR_MODEL_URL", ""),
			RemoteAudio:      r.boolean("DETECTOR_REMOTE_AUDIO", false),
			Timeout:          r.duration("DETECTOR_TIMEOUT", 10*time.Second),
			FailureThreshold: r.integer("DETECTOR_BREAKER_FAILURES", 5),
			Cooldown:         r.duration("DETECTOR_BREAKER_COOLDOWN", 30*time.Second),
		},
		Manager: Manager{
			JoinTimeout:      r.duration("PROCTOR_JOIN_TIMEOUT", 5*time.Second),
			FeedBuffer:       r.integer("PROCTOR_FEED_BUFFER", 32),
			AuditBuffer:      r.integer("PROCTOR_AUDIT_BUFFER", 1024),
			PolicyFile:       r.str("PROCTOR_POLICY_FILE", ""),
			WatchPolicy:      r.boolean("PROCTOR_POLICY_WATCH", true),
			AuditSampleRates: r.rates("PROCTOR_AUDIT_SAMPLE_RATES"),
		},
	}
	if err := errors.Join(r.errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.RegulatedMode && c.Auth.JWTSigningKey == devSigningKey {
		errs = append(errs, errors.New("JWT_SIGNING_KEY must be set in regulated mode"))
	}
	if len(c.Auth.JWTSigningKey) < 16 {
		errs = append(errs, errors.New("JWT_SIGNING_KEY must be at least 16 bytes"))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Logging.Format))
	}
	if c.Detector.ModelURL == "" && c.Detector.RemoteAudio {
		errs = append(errs, errors.New("DETECTOR_REMOTE_AUDIO requires DETECTOR_MODEL_URL"))
	}
	if c.Manager.FeedBuffer < 1 {
		errs = append(errs, errors.New("PROCTOR_FEED_BUFFER must be at least 1"))
	}
	return errors.Join(errs...)
}

// reader collects parse errors so every bad variable is reported at once.
type reader struct {
	errs []error
}

func (r *reader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (r *reader) integer(key string, def int) int {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (r *reader) boolean(key string, def bool) bool {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (r *reader) list(key string) []string {
	return strs.SplitList(r.str(key, ""))
}

func (r *reader) level(key string, def slog.Level) slog.Level {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return lvl
}

// rates parses "action=rate,action=rate".
func (r *reader) rates(key string) map[string]float64 {
	entries := r.list(key)
	if len(entries) == 0 {
		return nil
	}
	out := make(map[string]float64, len(entries))
	for _, e := range entries {
		action, raw, ok := strings.Cut(e, "=")
		if !ok {
			r.errs = append(r.errs, fmt.Errorf("%s: entry %q is not action=rate", key, e))
			continue
		}
		rate, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		out[strings.TrimSpace(action)] = rate
	}
	return out
}
