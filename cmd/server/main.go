package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	jwttoken "proctor/internal/jwt_token"
	"proctor/internal/platform/config"
	"proctor/internal/platform/httpserver"
	"proctor/internal/platform/kafka"
	"proctor/internal/platform/kafka/consumer"
	"proctor/internal/platform/logger"
	"proctor/internal/platform/metrics"
	"proctor/internal/platform/postgres"
	platformredis "proctor/internal/platform/redis"
	"proctor/internal/proctoring/certificate"
	"proctor/internal/proctoring/detector"
	"proctor/internal/proctoring/handler"
	proctormetrics "proctor/internal/proctoring/metrics"
	"proctor/internal/proctoring/models"
	"proctor/internal/proctoring/policy"
	"proctor/internal/proctoring/session"
	"proctor/internal/proctoring/store/attempt"
	"proctor/internal/proctoring/store/status"
	"proctor/migrations"
	audit "proctor/pkg/platform/audit"
	auditconsumer "proctor/pkg/platform/audit/consumer"
	"proctor/pkg/platform/audit/outbox"
	"proctor/pkg/platform/audit/publisher"
	"proctor/pkg/platform/audit/publishers/compliance"
	kafkasink "proctor/pkg/platform/audit/publishers/kafka"
	auditmemory "proctor/pkg/platform/audit/store/memory"
	auditpostgres "proctor/pkg/platform/audit/store/postgres"
	"proctor/pkg/platform/circuit"
	"proctor/pkg/platform/tx"
)

const auditTopicPartitions = 6

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "proctor: %v\n", err)
		os.Exit(1)
	}
}

// infra holds the optional backing services. Nil fields are not configured.
type infra struct {
	db    *sql.DB
	redis *platformredis.Client
	kafka *kgo.Client
}

func (i *infra) close() {
	if i.kafka != nil {
		i.kafka.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
	if i.db != nil {
		_ = i.db.Close()
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Logging)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.close()

	defaultPolicy := models.DefaultConfig()
	if cfg.Manager.PolicyFile != "" {
		if defaultPolicy, err = policy.Load(cfg.Manager.PolicyFile); err != nil {
			return fmt.Errorf("load policy: %w", err)
		}
	}

	platformMetrics := metrics.New(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	proctorMetrics := proctormetrics.New()

	var (
		attempts interface {
			session.AttemptStore
			certificate.AttemptStore
		} = attempt.NewInMemory()
		txRunner tx.Runner = tx.NoopRunner{}
	)
	if deps.db != nil {
		attempts = attempt.NewPostgres(deps.db)
		txRunner = tx.NewPostgresRunner(deps.db)
	}

	sink := auditSink(cfg, deps)
	pubOpts := []publisher.Option{
		publisher.WithAsyncBuffer(cfg.Manager.AuditBuffer),
		publisher.WithLogger(log),
		publisher.WithDropHook(platformMetrics.IncAuditDropped),
		publisher.WithFailureHook(platformMetrics.IncAuditAppendErrors),
	}
	if len(cfg.Manager.AuditSampleRates) > 0 {
		pubOpts = append(pubOpts, publisher.WithSampler(publisher.NewRateSampler(1, cfg.Manager.AuditSampleRates)))
	}
	auditor := publisher.NewPublisher(sink, pubOpts...)
	complianceAuditor := compliance.New(sink,
		compliance.WithLogger(log),
		compliance.WithMetrics(compliance.NewMetrics()),
	)

	var cache status.Cache = status.NewInMemory()
	if deps.redis != nil {
		cache = status.NewRedis(deps.redis.Client, status.WithTTL(cfg.Redis.StatusTTL))
	}
	syncer := status.NewSyncer(cache, status.WithSyncLogger(log), status.WithSyncMetrics(proctorMetrics))

	manager, err := session.New(newDetector(cfg.Detector, defaultPolicy, proctorMetrics, log), attempts,
		session.WithAuditor(auditor),
		session.WithComplianceAuditor(complianceAuditor),
		session.WithStatusPublisher(syncer),
		session.WithTxRunner(txRunner),
		session.WithMetrics(proctorMetrics),
		session.WithLogger(log),
		session.WithDefaultConfig(defaultPolicy),
		session.WithJoinTimeout(cfg.Manager.JoinTimeout),
		session.WithFeedBuffer(cfg.Manager.FeedBuffer),
	)
	if err != nil {
		return fmt.Errorf("create session manager: %w", err)
	}

	certificates, err := certificate.NewService(attempts,
		certificate.WithAuditor(complianceAuditor),
		certificate.WithTxRunner(txRunner),
		certificate.WithMetrics(proctorMetrics),
		certificate.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("create certificate service: %w", err)
	}

	jwtService := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)
	proctoring := handler.New(manager, certificates, log,
		handler.WithStatusCache(cache),
		handler.WithAllowedOrigins(cfg.Server.AllowedOrigins),
		handler.WithStatusInterval(cfg.Server.StatusInterval),
	)
	router := newRouter(routerDeps{
		proctoring: proctoring,
		validator:  jwttoken.NewJWTServiceAdapter(jwtService),
		metrics:    platformMetrics,
		health:     newHealth(manager, deps),
		logger:     log,
	})
	srv := httpserver.New(cfg.Server, router)

	// Background workers outlive the signal so sessions stopped during
	// shutdown still reach the cache and the audit log.
	bgCtx, stopBackground := context.WithCancel(context.WithoutCancel(ctx))
	defer stopBackground()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.InfoContext(ctx, "starting proctor", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		syncer.Run(bgCtx)
		return nil
	})
	if cfg.Manager.PolicyFile != "" && cfg.Manager.WatchPolicy {
		g.Go(func() error {
			return policy.Watch(gctx, cfg.Manager.PolicyFile, manager.SetDefaultConfig, log)
		})
	}
	if deps.db != nil && deps.kafka != nil {
		startAuditPipeline(gctx, g, cfg, deps, log)
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()

		log.InfoContext(shutdownCtx, "shutting down", "active_sessions", manager.ActiveCount())
		err := srv.Shutdown(shutdownCtx)
		err = errors.Join(err, manager.Shutdown(shutdownCtx))
		stopBackground()
		auditor.Close()
		err = errors.Join(err, complianceAuditor.Close())
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("proctor stopped")
	return nil
}

func openInfra(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	deps := &infra{}
	var err error

	if deps.db, err = postgres.Open(ctx, cfg.Postgres); err != nil {
		return nil, err
	}
	if deps.db != nil {
		if err := migrations.Apply(ctx, deps.db); err != nil {
			deps.close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		log.InfoContext(ctx, "postgres connected")
	}

	if deps.redis, err = platformredis.New(ctx, cfg.Redis); err != nil {
		deps.close()
		return nil, err
	}
	if deps.redis != nil {
		log.InfoContext(ctx, "redis connected")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		deps.kafka, err = kafka.NewClient(kafkaConfig(cfg.Kafka))
		if err != nil {
			deps.close()
			return nil, err
		}
		if err := kafka.EnsureTopic(ctx, deps.kafka, cfg.Kafka.AuditTopic, auditTopicPartitions, -1); err != nil {
			deps.close()
			return nil, err
		}
		log.InfoContext(ctx, "kafka connected", "brokers", cfg.Kafka.Brokers, "audit_topic", cfg.Kafka.AuditTopic)
	}
	return deps, nil
}

func kafkaConfig(cfg config.Kafka) kafka.Config {
	return kafka.Config{Brokers: cfg.Brokers, ClientID: cfg.ClientID, ConsumerGroup: cfg.ConsumerGroup}
}

// auditSink prefers the Postgres outbox so events commit with the writes
// that caused them. Without a database, events go straight to Kafka, and
// without either they stay in memory.
func auditSink(cfg config.Config, deps *infra) audit.Sink {
	switch {
	case deps.db != nil:
		return auditpostgres.New(deps.db)
	case deps.kafka != nil:
		return kafkasink.NewSink(deps.kafka, cfg.Kafka.AuditTopic)
	default:
		return auditmemory.NewInMemoryStore()
	}
}

// startAuditPipeline relays the outbox to Kafka and materializes the topic
// back into audit_events.
func startAuditPipeline(ctx context.Context, g *errgroup.Group, cfg config.Config, deps *infra, log *slog.Logger) {
	relay := outbox.New(deps.db, deps.kafka, cfg.Kafka.AuditTopic,
		outbox.WithBatchSize(cfg.Kafka.RelayBatchSize),
		outbox.WithInterval(cfg.Kafka.RelayInterval),
		outbox.WithLogger(log),
	)
	g.Go(func() error {
		if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("outbox relay: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		client, err := kafka.NewConsumerClient(kafkaConfig(cfg.Kafka), cfg.Kafka.AuditTopic)
		if err != nil {
			return err
		}
		defer client.Close()

		router := auditconsumer.NewRouter(log, nil)
		router.Register(cfg.Kafka.AuditTopic, auditconsumer.NewMaterializer(auditpostgres.New(deps.db), log))
		if err := consumer.New(client, router, log).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("audit consumer: %w", err)
		}
		return nil
	})
}

// newDetector uses the remote model service when configured. Audio falls
// back to the in-process energy analyzer.
func newDetector(cfg config.Detector, defaults models.ProctoringConfig, m *proctormetrics.Metrics, log *slog.Logger) *detector.Adapter {
	var (
		video detector.VideoModel
		audio detector.AudioAnalyzer = detector.NewEnergyAnalyzer()
	)
	if cfg.ModelURL != "" {
		remote := detector.NewRemoteModel(cfg.ModelURL, cfg.Timeout)
		video = remote
		if cfg.RemoteAudio {
			audio = remote
		}
	} else {
		log.Warn("DETECTOR_MODEL_URL not set, video detection reports model_not_configured")
	}

	breaker := func(name string) *circuit.Breaker {
		return circuit.New(name,
			circuit.WithFailureThreshold(cfg.FailureThreshold),
			circuit.WithSuccessThreshold(1),
			circuit.WithCooldown(cfg.Cooldown),
		)
	}
	return detector.New(video, audio,
		detector.WithTimeout(cfg.Timeout),
		detector.WithNoiseThreshold(defaults.NoiseThresholdDB),
		detector.WithBreakers(breaker("video_model"), breaker("audio_model")),
		detector.WithMetrics(m),
		detector.WithLogger(log),
	)
}
