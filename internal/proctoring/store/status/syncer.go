package status

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"proctor/internal/proctoring/metrics"
	"proctor/internal/proctoring/models"
	id "proctor/pkg/domain"
)

// Syncer coalesces published snapshots and writes the newest one per session
// to the cache from a single background goroutine. Publish never blocks:
// a snapshot that has not been written yet is replaced by the next one.
type Syncer struct {
	cache        Cache
	logger       *slog.Logger
	metrics      *metrics.Metrics
	writeTimeout time.Duration

	mu      sync.Mutex
	pending map[id.SessionID]models.SessionStatus
	notify  chan struct{}
}

type SyncerOption func(*Syncer)

func WithSyncLogger(logger *slog.Logger) SyncerOption {
	return func(s *Syncer) { s.logger = logger }
}

func WithSyncMetrics(m *metrics.Metrics) SyncerOption {
	return func(s *Syncer) { s.metrics = m }
}

func NewSyncer(cache Cache, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		cache:        cache,
		logger:       slog.Default(),
		writeTimeout: 2 * time.Second,
		pending:      make(map[id.SessionID]models.SessionStatus),
		notify:       make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Syncer) Publish(status models.SessionStatus) {
	s.mu.Lock()
	s.pending[status.SessionID] = status
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Run writes pending snapshots until ctx is cancelled, then flushes once.
func (s *Syncer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.flush(context.WithoutCancel(ctx))
			return
		case <-s.notify:
			s.flush(ctx)
		}
	}
}

func (s *Syncer) flush(ctx context.Context) {
	s.mu.Lock()
	batch := s.pending
	s.pending = make(map[id.SessionID]models.SessionStatus, len(batch))
	s.mu.Unlock()

	for _, st := range batch {
		wctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
		err := s.cache.Put(wctx, st)
		cancel()
		if err != nil {
			s.metrics.IncStatusSyncFailures()
			s.logger.WarnContext(ctx, "failed to sync session status",
				"session_id", st.SessionID,
				"error", err,
			)
		}
	}
}
