// Package session owns live proctoring sessions.
//
// A Manager keeps a registry of sessions. Each session runs a video loop and
// an audio loop that pull from capture sources, plus one consumer goroutine
// that is the only writer of the session's debounce state, violation log and
// score. Loops and synchronous callers run detection in their own goroutine
// and hand the classified tick to the consumer over a channel; status reads
// go through an atomically swapped snapshot and never wait on the consumer.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"proctor/internal/proctoring/capture"
	"proctor/internal/proctoring/metrics"
	"proctor/internal/proctoring/models"
	id "proctor/pkg/domain"
	dErrors "proctor/pkg/domain-errors"
	audit "proctor/pkg/platform/audit"
	"proctor/pkg/platform/tx"
)

// Detector produces per-tick readings. Implementations must not return
// errors; failures are reported as unavailable readings.
type Detector interface {
	DetectVideo(ctx context.Context, frame models.Frame) models.VideoSignals
	DetectAudio(ctx context.Context, chunk models.AudioChunk) models.AudioSignals
}

// AttemptStore persists the record of a stopped session.
type AttemptStore interface {
	Save(ctx context.Context, record *models.AttemptRecord) error
}

// StatusPublisher receives every new snapshot. Publish must not block.
type StatusPublisher interface {
	Publish(status models.SessionStatus)
}

// Sources are the capture inputs of one session.
type Sources struct {
	Frames capture.FrameSource
	Audio  capture.AudioSource
}

// SourceFactory builds the capture sources for a new session.
type SourceFactory func(sessionID id.SessionID, cfg models.ProctoringConfig) Sources

// StartRequest describes a session to start. A nil SessionID is replaced by
// a generated one. Config replaces the manager default outright; ConfigJSON
// is a partial JSON object overlaid onto the default, so fields it omits keep
// their default values. Config wins when both are set.
type StartRequest struct {
	SessionID     id.SessionID
	UserID        id.UserID
	TestSessionID id.TestSessionID
	Config        *models.ProctoringConfig
	ConfigJSON    json.RawMessage
	Client        models.ClientInfo
}

const DefaultJoinTimeout = 5 * time.Second

type Manager struct {
	detector      Detector
	attempts      AttemptStore
	auditor       audit.Emitter
	compliance    audit.Emitter
	status        StatusPublisher
	tx            tx.Runner
	metrics       *metrics.Metrics
	logger        *slog.Logger
	tracer        trace.Tracer
	now           func() time.Time
	defaultConfig models.ProctoringConfig
	joinTimeout   time.Duration
	feedBuffer    int
	sources       SourceFactory

	mu       sync.Mutex
	sessions map[id.SessionID]*session
	byTest   map[id.TestSessionID]id.SessionID
}

type Option func(*Manager)

// WithAuditor receives operational and security events. It should be
// asynchronous; the consumer emits from its own goroutine.
func WithAuditor(e audit.Emitter) Option {
	return func(m *Manager) { m.auditor = e }
}

// WithComplianceAuditor receives the stop event inside the persistence
// transaction. A failing emitter fails the write.
func WithComplianceAuditor(e audit.Emitter) Option {
	return func(m *Manager) { m.compliance = e }
}

func WithStatusPublisher(p StatusPublisher) Option {
	return func(m *Manager) { m.status = p }
}

func WithTxRunner(r tx.Runner) Option {
	return func(m *Manager) {
		if r != nil {
			m.tx = r
		}
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithDefaultConfig sets the policy used when a start request carries none.
func WithDefaultConfig(cfg models.ProctoringConfig) Option {
	return func(m *Manager) { m.defaultConfig = cfg.Clone() }
}

// WithJoinTimeout bounds how long Stop waits for the loops before it forces
// the capture sources closed.
func WithJoinTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.joinTimeout = d
		}
	}
}

// WithFeedBuffer sizes the default capture feed queues.
func WithFeedBuffer(n int) Option {
	return func(m *Manager) { m.feedBuffer = n }
}

// WithSourceFactory replaces the default capture feed. Sessions built this
// way do not accept PushFrame and PushAudio.
func WithSourceFactory(f SourceFactory) Option {
	return func(m *Manager) { m.sources = f }
}

func New(detector Detector, attempts AttemptStore, opts ...Option) (*Manager, error) {
	if detector == nil {
		return nil, errors.New("detector is required")
	}
	if attempts == nil {
		return nil, errors.New("attempt store is required")
	}
	m := &Manager{
		detector:      detector,
		attempts:      attempts,
		tx:            tx.NoopRunner{},
		logger:        slog.Default(),
		tracer:        otel.Tracer("proctor/session"),
		now:           time.Now,
		defaultConfig: models.DefaultConfig(),
		joinTimeout:   DefaultJoinTimeout,
		feedBuffer:    capture.DefaultBuffer,
		sessions:      make(map[id.SessionID]*session),
		byTest:        make(map[id.TestSessionID]id.SessionID),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Start registers a session and launches its loops and consumer. The config
// is validated before anything is spawned.
func (m *Manager) Start(ctx context.Context, req StartRequest) (*models.SessionStatus, error) {
	if req.UserID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "user_id is required")
	}
	if req.TestSessionID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "test_session_id is required")
	}
	cfg, err := m.resolveConfig(req)
	if err != nil {
		return nil, err
	}
	sessionID := req.SessionID
	if sessionID.IsNil() {
		sessionID = id.NewSessionID()
	}

	m.mu.Lock()
	if _, exists := m.sessions[sessionID]; exists {
		m.mu.Unlock()
		return nil, models.AlreadyActive("session " + sessionID.String() + " is already active")
	}
	if _, exists := m.byTest[req.TestSessionID]; exists {
		m.mu.Unlock()
		return nil, models.AlreadyActive("test session " + req.TestSessionID.String() + " already has an active proctoring session")
	}
	s := m.newSession(sessionID, req, cfg)
	m.sessions[sessionID] = s
	m.byTest[req.TestSessionID] = sessionID
	m.mu.Unlock()

	go m.consume(s)
	go m.videoLoop(s)
	go m.audioLoop(s)

	m.metrics.SessionStarted()
	m.logger.InfoContext(ctx, "proctoring session started",
		"session_id", sessionID,
		"user_id", req.UserID,
		"test_session_id", req.TestSessionID,
	)
	m.emit(ctx, audit.Event{
		UserID:        req.UserID,
		SessionID:     sessionID,
		TestSessionID: req.TestSessionID,
		Action:        string(audit.EventSessionStarted),
		Subject:       req.Client.Browser,
	})
	return s.status(), nil
}

func (m *Manager) resolveConfig(req StartRequest) (models.ProctoringConfig, error) {
	if req.Config != nil {
		cfg := req.Config.Clone()
		return cfg, cfg.Validate()
	}
	return m.DefaultConfig().Overlay(req.ConfigJSON)
}

// DefaultConfig returns a copy of the policy applied to start requests that
// carry none.
func (m *Manager) DefaultConfig() models.ProctoringConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.defaultConfig.Clone()
}

// SetDefaultConfig replaces the default policy. Running sessions keep the
// policy they started with.
func (m *Manager) SetDefaultConfig(cfg models.ProctoringConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.defaultConfig = cfg.Clone()
	m.mu.Unlock()
	return nil
}

func (m *Manager) newSession(sessionID id.SessionID, req StartRequest, cfg models.ProctoringConfig) *session {
	s := &session{
		id:            sessionID,
		userID:        req.UserID,
		testSessionID: req.TestSessionID,
		cfg:           cfg,
		client:        req.Client,
		startedAt:     m.now(),
		ticks:         make(chan tick, tickBuffer),
		quit:          make(chan struct{}),
		consumerDone:  make(chan struct{}),
		unavailable:   make(map[models.Modality]bool),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.resetState()
	s.publish()
	s.loops.Add(2)

	if m.sources != nil {
		src := m.sources(sessionID, cfg)
		s.frames, s.audio = src.Frames, src.Audio
		return s
	}
	feed := capture.NewFeed(m.feedBuffer,
		capture.WithFrameSkip(cfg.FrameSkip),
		capture.WithDropHook(func(mod models.Modality) { m.metrics.IncDropped(string(mod)) }),
	)
	s.feed = feed
	s.frames, s.audio = feed.Frames(), feed.Audio()
	return s
}

func (m *Manager) lookup(sessionID id.SessionID) (*session, error) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok || s.stopping.Load() {
		return nil, models.SessionNotFound(sessionID)
	}
	return s, nil
}

// Status returns the latest snapshot of a live session.
func (m *Manager) Status(sessionID id.SessionID) (*models.SessionStatus, bool) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}
	return s.status(), true
}

// ActiveSession returns the live session ID for a test session.
func (m *Manager) ActiveSession(testSessionID id.TestSessionID) (id.SessionID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sessionID, ok := m.byTest[testSessionID]
	if !ok {
		return id.SessionID{}, false
	}
	if _, live := m.sessions[sessionID]; !live {
		return id.SessionID{}, false
	}
	return sessionID, true
}

// ActiveCount returns the number of registered sessions.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Stop cancels the session, waits a bounded time for its loops, persists the
// attempt record and releases the test session. The boolean is false when
// the session was not live, which makes repeated stops harmless.
func (m *Manager) Stop(ctx context.Context, sessionID id.SessionID) (*models.AttemptRecord, bool, error) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()
	if !ok {
		return nil, false, nil
	}
	defer m.release(s)

	forced := m.halt(ctx, s)
	record := s.record(m.now(), forced)

	s.state = models.StateStopped
	stoppedAt := record.StoppedAt
	s.stoppedAt = &stoppedAt
	s.publish()
	if m.status != nil {
		m.status.Publish(*s.status())
	}
	m.metrics.SessionStopped(forced)

	persistCtx := context.WithoutCancel(ctx)
	err := m.tx.RunInTx(persistCtx, func(txCtx context.Context) error {
		if err := m.attempts.Save(txCtx, record); err != nil {
			return err
		}
		if m.compliance == nil {
			return nil
		}
		score := record.BehaviorScore
		return m.compliance.Emit(txCtx, audit.Event{
			UserID:        record.UserID,
			SessionID:     record.SessionID,
			TestSessionID: record.TestSessionID,
			Action:        string(audit.EventSessionStopped),
			Subject:       string(models.StateStopped),
			Score:         &score,
		})
	})
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to persist attempt record",
			"session_id", sessionID,
			"test_session_id", record.TestSessionID,
			"error", err,
		)
		return record, true, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist attempt record")
	}

	m.logger.InfoContext(ctx, "proctoring session stopped",
		"session_id", sessionID,
		"violations", len(record.Violations),
		"behavior_score", record.BehaviorScore,
		"forced", forced,
	)
	return record, true, nil
}

// halt cancels the loops and joins them for at most the join timeout. When
// the timeout expires first the capture sources are closed to release any
// loop blocked on them, and the stop is reported as forced. The caller's ctx
// does not shorten the join, so a disconnected client cannot turn a clean
// stop into a forced one.
func (m *Manager) halt(ctx context.Context, s *session) bool {
	s.stopping.Store(true)
	s.cancel()

	joined := make(chan struct{})
	go func() {
		s.loops.Wait()
		close(joined)
	}()

	timer := time.NewTimer(m.joinTimeout)
	defer timer.Stop()

	forced := false
	select {
	case <-joined:
	case <-timer.C:
		forced = true
	}
	s.closeSources()
	if forced {
		m.logger.WarnContext(ctx, "proctoring loops did not exit in time, capture sources force-closed",
			"session_id", s.id,
			"join_timeout", m.joinTimeout,
		)
		m.emit(ctx, audit.Event{
			UserID:        s.userID,
			SessionID:     s.id,
			TestSessionID: s.testSessionID,
			Action:        string(audit.EventForcedStop),
			Reason:        "join timeout",
		})
	}

	close(s.quit)
	<-s.consumerDone
	return forced
}

func (m *Manager) release(s *session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byTest[s.testSessionID] == s.id {
		delete(m.byTest, s.testSessionID)
	}
}

// Shutdown stops every live session in parallel.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	ids := make([]id.SessionID, 0, len(m.sessions))
	for sessionID := range m.sessions {
		ids = append(ids, sessionID)
	}
	m.mu.Unlock()

	var g errgroup.Group
	for _, sessionID := range ids {
		g.Go(func() error {
			_, _, err := m.Stop(ctx, sessionID)
			return err
		})
	}
	return g.Wait()
}

func (m *Manager) emit(ctx context.Context, event audit.Event) {
	if m.auditor == nil {
		return
	}
	if err := m.auditor.Emit(ctx, event); err != nil {
		m.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"session_id", event.SessionID,
			"error", err,
		)
	}
}
