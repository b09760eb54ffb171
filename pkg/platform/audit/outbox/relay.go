// Package outbox relays committed outbox rows to Kafka.
//
// Rows are claimed with FOR UPDATE SKIP LOCKED so several relays can run
// against the same database, and are marked published only after the broker
// acknowledged them. Delivery is at least once; consumers dedupe by event ID.
package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer is the subset of *kgo.Client the relay needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

type Relay struct {
	db        *sql.DB
	producer  Producer
	topic     string
	batchSize int
	interval  time.Duration
	logger    *slog.Logger
}

type Option func(*Relay)

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) { r.logger = logger }
}

func New(db *sql.DB, producer Producer, topic string, opts ...Option) *Relay {
	r := &Relay{
		db:        db,
		producer:  producer,
		topic:     topic,
		batchSize: 100,
		interval:  time.Second,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays batches until ctx is cancelled. A full batch is followed
// immediately by the next one; otherwise the relay waits for the interval.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		n, err := r.RelayOnce(ctx)
		if err != nil && ctx.Err() == nil {
			r.logger.WarnContext(ctx, "outbox relay failed", "error", err)
		}
		if n == r.batchSize {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type row struct {
	id          uuid.UUID
	aggregateID string
	eventType   string
	payload     []byte
}

// RelayOnce publishes one batch and returns how many rows were relayed.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin outbox tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, aggregate_id, event_type, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("claim outbox rows: %w", err)
	}
	var batch []row
	for rows.Next() {
		var rw row
		if err := rows.Scan(&rw.id, &rw.aggregateID, &rw.eventType, &rw.payload); err != nil {
			_ = rows.Close()
			return 0, fmt.Errorf("scan outbox row: %w", err)
		}
		batch = append(batch, rw)
	}
	if err := rows.Close(); err != nil {
		return 0, fmt.Errorf("close outbox rows: %w", err)
	}
	if len(batch) == 0 {
		return 0, nil
	}

	records := make([]*kgo.Record, 0, len(batch))
	ids := make([]string, 0, len(batch))
	for _, rw := range batch {
		records = append(records, &kgo.Record{
			Topic:   r.topic,
			Key:     []byte(rw.aggregateID),
			Value:   rw.payload,
			Headers: []kgo.RecordHeader{{Key: "event_type", Value: []byte(rw.eventType)}},
		})
		ids = append(ids, rw.id.String())
	}
	if err := r.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return 0, fmt.Errorf("produce outbox batch: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE outbox SET published_at = $1 WHERE id = ANY($2::uuid[])`,
		time.Now(), pq.Array(ids),
	); err != nil {
		return 0, fmt.Errorf("mark outbox rows published: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit outbox tx: %w", err)
	}
	return len(batch), nil
}
