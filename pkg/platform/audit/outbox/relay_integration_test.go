//go:build integration

package outbox_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"proctor/internal/platform/kafka"
	"proctor/internal/platform/kafka/consumer"
	id "proctor/pkg/domain"
	audit "proctor/pkg/platform/audit"
	auditconsumer "proctor/pkg/platform/audit/consumer"
	"proctor/pkg/platform/audit/outbox"
	auditpostgres "proctor/pkg/platform/audit/store/postgres"
	"proctor/pkg/testutil/containers"
)

// =============================================================================
// Outbox Relay Integration Suite
// =============================================================================
// Events appended to the Postgres outbox travel through Redpanda and come
// back into audit_events through the materializer, which is the path the
// server runs when both Postgres and Kafka are configured.

type RelaySuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	redpanda *containers.RedpandaContainer
	store    *auditpostgres.Store
	producer *kgo.Client
	topic    string
	logger   *slog.Logger
}

func TestRelaySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.redpanda = mgr.GetRedpanda(s.T())
	s.store = auditpostgres.New(s.postgres.DB)
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.topic = "proctor.audit." + uuid.NewString()[:8]

	client, err := kafka.NewClient(kafka.Config{Brokers: s.redpanda.Brokers, ClientID: "relay-test"})
	s.Require().NoError(err)
	s.producer = client
	s.Require().NoError(kafka.EnsureTopic(context.Background(), client, s.topic, 1, 1))
}

func (s *RelaySuite) TearDownSuite() {
	if s.producer != nil {
		s.producer.Close()
	}
}

func (s *RelaySuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "outbox", "audit_events"))
}

func (s *RelaySuite) TestOutboxRoundTrip() {
	ctx := context.Background()
	sessionID := id.NewSessionID()
	score := 85.0
	event := audit.Event{
		ID:            id.NewEventID(),
		Category:      audit.CategoryCompliance,
		Timestamp:     time.Now().UTC().Truncate(time.Millisecond),
		UserID:        id.UserID(uuid.New()),
		SessionID:     sessionID,
		TestSessionID: id.TestSessionID(uuid.New()),
		Action:        string(audit.EventSessionStopped),
		Score:         &score,
	}
	s.Require().NoError(s.store.Append(ctx, event))

	relay := outbox.New(s.postgres.DB, s.producer, s.topic, outbox.WithLogger(s.logger))
	n, err := relay.RelayOnce(ctx)
	s.Require().NoError(err)
	s.Equal(1, n)

	n, err = relay.RelayOnce(ctx)
	s.Require().NoError(err)
	s.Zero(n, "published rows must not be relayed twice")

	consumerClient, err := kafka.NewConsumerClient(kafka.Config{
		Brokers:       s.redpanda.Brokers,
		ClientID:      "materializer-test",
		ConsumerGroup: "materializer-" + uuid.NewString()[:8],
	}, s.topic, kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()))
	s.Require().NoError(err)
	defer consumerClient.Close()

	router := auditconsumer.NewRouter(s.logger, nil)
	router.Register(s.topic, auditconsumer.NewMaterializer(s.store, s.logger))

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = consumer.New(consumerClient, router, s.logger).Run(runCtx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	s.Eventually(func() bool {
		events, err := s.store.ListBySession(ctx, sessionID)
		return err == nil && len(events) == 1
	}, 30*time.Second, 200*time.Millisecond)

	events, err := s.store.ListBySession(ctx, sessionID)
	s.Require().NoError(err)
	s.Equal(event.ID, events[0].ID)
	s.Equal(event.Action, events[0].Action)
	s.Require().NotNil(events[0].Score)
	s.Equal(85.0, *events[0].Score)
}
