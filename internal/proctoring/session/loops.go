package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"proctor/internal/proctoring/capture"
	"proctor/internal/proctoring/classifier"
	"proctor/internal/proctoring/models"
	id "proctor/pkg/domain"
	dErrors "proctor/pkg/domain-errors"
)

func (m *Manager) videoLoop(s *session) {
	defer s.loops.Done()
	defer m.recoverLoop(s, models.ModalityVideo)
	for {
		frame, err := s.frames.Next(s.ctx)
		if err != nil {
			m.sourceEnded(s, models.ModalityVideo, err)
			return
		}
		if _, _, err := m.analyzeFrame(s.ctx, s, frame, false); err != nil {
			return
		}
	}
}

func (m *Manager) audioLoop(s *session) {
	defer s.loops.Done()
	defer m.recoverLoop(s, models.ModalityAudio)
	for {
		chunk, err := s.audio.Next(s.ctx)
		if err != nil {
			m.sourceEnded(s, models.ModalityAudio, err)
			return
		}
		if _, _, err := m.analyzeAudio(s.ctx, s, chunk, false); err != nil {
			return
		}
	}
}

// recoverLoop keeps a panicking loop from taking the process down. The
// session stays queryable with its last score and is marked degraded.
func (m *Manager) recoverLoop(s *session, modality models.Modality) {
	r := recover()
	if r == nil {
		return
	}
	m.logger.Error("proctoring loop panic recovered",
		"session_id", s.id,
		"modality", modality,
		"panic", fmt.Sprint(r),
	)
	_, _ = s.submit(context.Background(), tick{
		kind:     tickDegraded,
		degraded: fmt.Sprintf("%s loop panic: %v", modality, r),
	})
}

func (m *Manager) sourceEnded(s *session, modality models.Modality, err error) {
	if errors.Is(err, io.EOF) || s.ctx.Err() != nil {
		return
	}
	m.logger.Warn("capture source failed",
		"session_id", s.id,
		"modality", modality,
		"error", err,
	)
	_, _ = s.submit(context.Background(), tick{
		kind:     tickDegraded,
		degraded: fmt.Sprintf("%s source failed: %v", modality, err),
	})
}

func (m *Manager) timestamp(at time.Time) time.Time {
	if at.IsZero() {
		return m.now()
	}
	return at
}

// analyzeFrame runs detection in the calling goroutine and submits the
// classified tick. With wait set it returns the consumer's result.
func (m *Manager) analyzeFrame(ctx context.Context, s *session, frame models.Frame, wait bool) (models.VideoSignals, tickResult, error) {
	dctx, cancel := context.WithTimeout(ctx, s.cfg.DetectorTimeout)
	reading := m.detector.DetectVideo(dctx, frame)
	cancel()

	at := m.timestamp(frame.CapturedAt)
	t := tick{
		kind:      tickSignals,
		modality:  models.ModalityVideo,
		signals:   classifier.ClassifyVideo(s.cfg, reading, at),
		at:        at,
		available: reading.Available,
		reason:    reading.Unavailable,
	}
	if len(t.signals) > 0 {
		t.frameDigest = frame.Digest()
	}
	if wait {
		t.reply = make(chan tickResult, 1)
	}
	res, err := s.submit(ctx, t)
	return reading, res, err
}

func (m *Manager) analyzeAudio(ctx context.Context, s *session, chunk models.AudioChunk, wait bool) (models.AudioSignals, tickResult, error) {
	dctx, cancel := context.WithTimeout(ctx, s.cfg.DetectorTimeout)
	reading := m.detector.DetectAudio(dctx, chunk)
	cancel()

	at := m.timestamp(chunk.CapturedAt)
	t := tick{
		kind:      tickSignals,
		modality:  models.ModalityAudio,
		signals:   classifier.ClassifyAudio(s.cfg, reading, at),
		at:        at,
		available: reading.Available,
		reason:    reading.Unavailable,
	}
	if wait {
		t.reply = make(chan tickResult, 1)
	}
	res, err := s.submit(ctx, t)
	return reading, res, err
}

// ProcessFrame analyzes one frame synchronously and returns the violations
// it confirmed together with the updated score.
func (m *Manager) ProcessFrame(ctx context.Context, sessionID id.SessionID, frame models.Frame) (*models.FrameResult, error) {
	ctx, span := m.tracer.Start(ctx, "session.ProcessFrame", trace.WithAttributes(
		attribute.String("session.id", sessionID.String()),
	))
	defer span.End()

	s, err := m.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	reading, res, err := m.analyzeFrame(ctx, s, frame, true)
	if err != nil {
		return nil, err
	}
	return &models.FrameResult{
		FaceCount:         reading.FaceCount,
		DetectorAvailable: reading.Available,
		Violations:        nonNil(res.violations),
		BehaviorScore:     res.score,
	}, nil
}

// ProcessAudio analyzes one audio chunk synchronously.
func (m *Manager) ProcessAudio(ctx context.Context, sessionID id.SessionID, chunk models.AudioChunk) (*models.AudioResult, error) {
	s, err := m.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	reading, res, err := m.analyzeAudio(ctx, s, chunk, true)
	if err != nil {
		return nil, err
	}
	return &models.AudioResult{
		DBLevel:           reading.DBLevel,
		SpeechDetected:    reading.SpeechDetected,
		DetectorAvailable: reading.Available,
		Violations:        nonNil(res.violations),
		BehaviorScore:     res.score,
	}, nil
}

// InjectSignal records a client-side event such as a tab switch. It skips
// detection and classification but is debounced and scored like any other
// signal. Only client-modality types are accepted.
func (m *Manager) InjectSignal(ctx context.Context, sessionID id.SessionID, signalType models.SignalType, at time.Time, metadata map[string]any) (*models.EventResult, error) {
	if signalType.Modality() != models.ModalityClient {
		return nil, dErrors.New(dErrors.CodeValidation, "signal type "+string(signalType)+" cannot be reported by the client")
	}
	s, err := m.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	at = m.timestamp(at)
	res, err := s.submit(ctx, tick{
		kind:      tickSignals,
		modality:  models.ModalityClient,
		signals:   []models.Signal{models.NewSignal(signalType, at, 1, metadata)},
		at:        at,
		available: true,
		reply:     make(chan tickResult, 1),
	})
	if err != nil {
		return nil, err
	}
	return &models.EventResult{Violations: nonNil(res.violations), BehaviorScore: res.score}, nil
}

// PushFrame queues a frame for the session's video loop. A full queue drops
// the frame and returns capture.ErrFull.
func (m *Manager) PushFrame(sessionID id.SessionID, frame models.Frame) error {
	s, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	if s.feed == nil {
		return dErrors.New(dErrors.CodeBadRequest, "session does not accept streamed input")
	}
	if err := s.feed.PushFrame(frame); errors.Is(err, capture.ErrClosed) {
		return models.SessionNotFound(sessionID)
	} else if err != nil {
		return err
	}
	return nil
}

// PushAudio queues an audio chunk for the session's audio loop.
func (m *Manager) PushAudio(sessionID id.SessionID, chunk models.AudioChunk) error {
	s, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	if s.feed == nil {
		return dErrors.New(dErrors.CodeBadRequest, "session does not accept streamed input")
	}
	if err := s.feed.PushAudio(chunk); errors.Is(err, capture.ErrClosed) {
		return models.SessionNotFound(sessionID)
	} else if err != nil {
		return err
	}
	return nil
}

func nonNil(v []models.Violation) []models.Violation {
	if v == nil {
		return []models.Violation{}
	}
	return v
}
