package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"proctor/internal/proctoring/capture"
	"proctor/internal/proctoring/debounce"
	"proctor/internal/proctoring/models"
	"proctor/internal/proctoring/scoring"
	id "proctor/pkg/domain"
	audit "proctor/pkg/platform/audit"
)

const tickBuffer = 16

type tickKind int

const (
	tickSignals tickKind = iota
	tickDegraded
)

// tick is one unit of work for the consumer. reply is nil for loop ticks and
// buffered for synchronous callers so the consumer never blocks on it.
type tick struct {
	kind        tickKind
	modality    models.Modality
	signals     []models.Signal
	at          time.Time
	available   bool
	reason      models.UnavailableReason
	frameDigest string
	degraded    string
	reply       chan tickResult
}

type tickResult struct {
	violations []models.Violation
	score      float64
	err        error
}

var errConsumerPanic = errors.New("session consumer failed to apply tick")

type session struct {
	id            id.SessionID
	userID        id.UserID
	testSessionID id.TestSessionID
	cfg           models.ProctoringConfig
	client        models.ClientInfo
	startedAt     time.Time

	ctx    context.Context
	cancel context.CancelFunc

	ticks        chan tick
	quit         chan struct{}
	consumerDone chan struct{}
	loops        sync.WaitGroup

	frames    capture.FrameSource
	audio     capture.AudioSource
	feed      *capture.Feed
	closeOnce sync.Once

	snapshot atomic.Pointer[models.SessionStatus]
	stopping atomic.Bool

	// Owned by the consumer goroutine; read by Stop only after it exits.
	state            models.SessionState
	stoppedAt        *time.Time
	debouncer        *debounce.Debouncer
	violations       []models.Violation
	score            float64
	framesAnalyzed   int64
	audioAnalyzed    int64
	unavailableTicks int64
	unavailable      map[models.Modality]bool
	degraded         bool
	degradedReason   string
	updatedAt        time.Time
}

func (s *session) resetState() {
	s.state = models.StateActive
	s.debouncer = debounce.New(s.cfg)
	s.violations = nil
	s.score = scoring.MaxScore
	s.updatedAt = s.startedAt
}

// publish swaps in a fresh snapshot built from consumer-owned state.
func (s *session) publish() {
	st := models.SessionStatus{
		SessionID:        s.id,
		UserID:           s.userID,
		TestSessionID:    s.testSessionID,
		State:            s.state,
		IsActive:         s.state == models.StateActive,
		Degraded:         s.degraded,
		DegradedReason:   s.degradedReason,
		StartedAt:        s.startedAt,
		StoppedAt:        s.stoppedAt,
		Violations:       slices.Clone(s.violations),
		ViolationsCount:  len(s.violations),
		BehaviorScore:    s.score,
		FramesAnalyzed:   s.framesAnalyzed,
		AudioAnalyzed:    s.audioAnalyzed,
		UnavailableTicks: s.unavailableTicks,
		UpdatedAt:        s.updatedAt,
	}
	if st.Violations == nil {
		st.Violations = []models.Violation{}
	}
	s.snapshot.Store(&st)
}

// status returns a copy of the latest snapshot.
func (s *session) status() *models.SessionStatus {
	st := *s.snapshot.Load()
	return &st
}

func (s *session) closeSources() {
	s.closeOnce.Do(func() {
		if s.frames != nil {
			_ = s.frames.Close()
		}
		if s.audio != nil {
			_ = s.audio.Close()
		}
	})
}

func (s *session) record(stoppedAt time.Time, forced bool) *models.AttemptRecord {
	return &models.AttemptRecord{
		SessionID:     s.id,
		UserID:        s.userID,
		TestSessionID: s.testSessionID,
		Config:        s.cfg,
		Client:        s.client,
		StartedAt:     s.startedAt,
		StoppedAt:     stoppedAt,
		Violations:    slices.Clone(s.violations),
		BehaviorScore: s.score,
		Degraded:      s.degraded,
		ForcedStop:    forced,
	}
}

// submit hands t to the consumer and, when t carries a reply channel, waits
// for the result. It fails with not found once the session is stopping.
func (s *session) submit(ctx context.Context, t tick) (tickResult, error) {
	select {
	case s.ticks <- t:
	case <-s.quit:
		return tickResult{}, models.SessionNotFound(s.id)
	case <-ctx.Done():
		return tickResult{}, ctx.Err()
	}
	if t.reply == nil {
		return tickResult{}, nil
	}
	select {
	case res := <-t.reply:
		return res, res.err
	case <-s.consumerDone:
		return tickResult{}, models.SessionNotFound(s.id)
	case <-ctx.Done():
		return tickResult{}, ctx.Err()
	}
}

// consume is the single writer of the session's monitoring state.
func (m *Manager) consume(s *session) {
	defer close(s.consumerDone)
	for {
		select {
		case <-s.quit:
			return
		case t := <-s.ticks:
			m.safeApply(s, t)
		}
	}
}

func (m *Manager) safeApply(s *session, t tick) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("proctoring consumer panic recovered",
				"session_id", s.id,
				"panic", fmt.Sprint(r),
			)
			m.degrade(s, fmt.Sprintf("consumer panic: %v", r))
			if t.reply != nil {
				t.reply <- tickResult{score: s.score, err: errConsumerPanic}
			}
		}
	}()

	switch t.kind {
	case tickDegraded:
		m.degrade(s, t.degraded)
	case tickSignals:
		res := m.apply(s, t)
		if t.reply != nil {
			t.reply <- res
		}
	}
}

func (m *Manager) apply(s *session, t tick) tickResult {
	switch t.modality {
	case models.ModalityVideo:
		s.framesAnalyzed++
		m.metrics.IncFramesProcessed()
	case models.ModalityAudio:
		s.audioAnalyzed++
		m.metrics.IncAudioChunksProcessed()
	}
	m.trackAvailability(s, t)

	confirmed := s.debouncer.Observe(t.modality, t.signals, t.at)
	for i := range confirmed {
		if t.frameDigest != "" {
			confirmed[i].Metadata["frame_digest"] = t.frameDigest
		}
	}
	if len(confirmed) > 0 {
		s.violations = append(s.violations, confirmed...)
		s.score = scoring.BehaviorScore(s.violations)
	}
	s.updatedAt = t.at
	s.publish()
	if m.status != nil {
		m.status.Publish(*s.status())
	}

	for _, v := range confirmed {
		m.metrics.IncViolation(string(v.Type))
		m.logger.Info("proctoring violation confirmed",
			"session_id", s.id,
			"type", v.Type,
			"severity", v.Severity,
			"behavior_score", s.score,
		)
		score := s.score
		m.emit(context.Background(), audit.Event{
			UserID:        s.userID,
			SessionID:     s.id,
			TestSessionID: s.testSessionID,
			Action:        string(audit.EventViolationConfirmed),
			Subject:       string(v.Type),
			Severity:      v.Severity,
			Score:         &score,
			Reason:        v.Description,
		})
	}
	return tickResult{violations: confirmed, score: s.score}
}

// trackAvailability counts unavailable ticks and audits the first tick of
// each outage per modality.
func (m *Manager) trackAvailability(s *session, t tick) {
	if t.modality == models.ModalityClient {
		return
	}
	if t.available {
		s.unavailable[t.modality] = false
		return
	}
	s.unavailableTicks++
	if s.unavailable[t.modality] {
		return
	}
	s.unavailable[t.modality] = true
	m.emit(context.Background(), audit.Event{
		UserID:        s.userID,
		SessionID:     s.id,
		TestSessionID: s.testSessionID,
		Action:        string(audit.EventDetectorUnavailable),
		Subject:       string(t.modality),
		Reason:        string(t.reason),
	})
}

func (m *Manager) degrade(s *session, reason string) {
	first := !s.degraded
	s.degraded = true
	s.degradedReason = reason
	s.publish()
	if m.status != nil {
		m.status.Publish(*s.status())
	}
	if !first {
		return
	}
	m.logger.Warn("proctoring session degraded",
		"session_id", s.id,
		"reason", reason,
	)
	m.emit(context.Background(), audit.Event{
		UserID:        s.userID,
		SessionID:     s.id,
		TestSessionID: s.testSessionID,
		Action:        string(audit.EventSessionDegraded),
		Reason:        reason,
	})
}
