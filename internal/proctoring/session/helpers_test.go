package session

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"

	"proctor/internal/proctoring/models"
	id "proctor/pkg/domain"
	audit "proctor/pkg/platform/audit"
)

func newUUID() uuid.UUID { return uuid.New() }

func noFace() models.VideoSignals {
	return models.VideoSignals{Available: true}
}

func oneFace() models.VideoSignals {
	return models.VideoSignals{Available: true, FaceCount: 1, FaceConfidence: 0.95}
}

// sequence replays script in order and keeps returning its last reading.
func sequence(script []models.VideoSignals) func(models.Frame) models.VideoSignals {
	var mu sync.Mutex
	next := 0
	return func(models.Frame) models.VideoSignals {
		mu.Lock()
		defer mu.Unlock()
		r := script[min(next, len(script)-1)]
		next++
		return r
	}
}

func actions(events []audit.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Action)
	}
	return out
}

// scriptedDetector returns a visible face and silence unless scripted.
type scriptedDetector struct {
	mu    sync.Mutex
	video func(models.Frame) models.VideoSignals
	audio func(models.AudioChunk) models.AudioSignals
}

func (d *scriptedDetector) setVideo(fn func(models.Frame) models.VideoSignals) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.video = fn
}

func (d *scriptedDetector) setAudio(fn func(models.AudioChunk) models.AudioSignals) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.audio = fn
}

func (d *scriptedDetector) DetectVideo(_ context.Context, frame models.Frame) models.VideoSignals {
	d.mu.Lock()
	fn := d.video
	d.mu.Unlock()
	if fn == nil {
		return oneFace()
	}
	return fn(frame)
}

func (d *scriptedDetector) DetectAudio(_ context.Context, chunk models.AudioChunk) models.AudioSignals {
	d.mu.Lock()
	fn := d.audio
	d.mu.Unlock()
	if fn == nil {
		return models.AudioSignals{Available: true, DBLevel: 30}
	}
	return fn(chunk)
}

type recordingPublisher struct {
	mu       sync.Mutex
	statuses []models.SessionStatus
}

func (p *recordingPublisher) Publish(st models.SessionStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, st)
}

func (p *recordingPublisher) last(sessionID id.SessionID) models.SessionStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.statuses) - 1; i >= 0; i-- {
		if p.statuses[i].SessionID == sessionID {
			return p.statuses[i]
		}
	}
	return models.SessionStatus{}
}

// stuckSource ignores cancellation and only returns once closed.
type stuckSource struct {
	once sync.Once
	done chan struct{}
}

func newStuckSource() *stuckSource {
	return &stuckSource{done: make(chan struct{})}
}

func (s *stuckSource) Next(context.Context) (models.Frame, error) {
	<-s.done
	return models.Frame{}, io.EOF
}

func (s *stuckSource) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *stuckSource) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// idleAudio blocks until the session is cancelled.
type idleAudio struct{}

func (idleAudio) Next(ctx context.Context) (models.AudioChunk, error) {
	<-ctx.Done()
	return models.AudioChunk{}, ctx.Err()
}

func (idleAudio) Close() error { return nil }

// oneShotFrames yields a single frame and then waits for cancellation.
type oneShotFrames struct {
	mu   sync.Mutex
	sent bool
}

func (f *oneShotFrames) Next(ctx context.Context) (models.Frame, error) {
	f.mu.Lock()
	if !f.sent {
		f.sent = true
		f.mu.Unlock()
		return models.Frame{Data: []byte("frame")}, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return models.Frame{}, ctx.Err()
}

func (f *oneShotFrames) Close() error { return nil }

type failingFrames struct{ err error }

func (f *failingFrames) Next(context.Context) (models.Frame, error) { return models.Frame{}, f.err }
func (f *failingFrames) Close() error                              { return nil }

type failingSink struct{}

func (failingSink) Append(context.Context, audit.Event) error {
	return errors.New("audit store unavailable")
}
