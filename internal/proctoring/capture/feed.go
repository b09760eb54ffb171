// Package capture buffers streamed frames and audio between the client
// transport and a session's monitoring loops.
//
// A Feed holds one bounded queue per modality. When a queue is full the
// newest item is dropped and counted: the loops analyze what they can keep
// up with and the transport never blocks on a slow detector.
package capture

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"proctor/internal/proctoring/models"
)

var (
	ErrClosed = errors.New("capture feed closed")
	ErrFull   = errors.New("capture feed full")
)

// FrameSource yields frames until it is closed, then io.EOF.
type FrameSource interface {
	Next(ctx context.Context) (models.Frame, error)
	Close() error
}

// AudioSource yields audio chunks until it is closed, then io.EOF.
type AudioSource interface {
	Next(ctx context.Context) (models.AudioChunk, error)
	Close() error
}

const DefaultBuffer = 32

type Feed struct {
	frames    chan models.Frame
	audio     chan models.AudioChunk
	done      chan struct{}
	closeOnce sync.Once

	frameSkip uint64
	received  atomic.Uint64
	dropped   atomic.Uint64
	onDrop    func(modality models.Modality)
}

type Option func(*Feed)

// WithFrameSkip keeps one frame out of every n pushed.
func WithFrameSkip(n int) Option {
	return func(f *Feed) {
		if n > 0 {
			f.frameSkip = uint64(n)
		}
	}
}

// WithDropHook is called for every item dropped because a queue was full.
func WithDropHook(fn func(modality models.Modality)) Option {
	return func(f *Feed) { f.onDrop = fn }
}

func NewFeed(buffer int, opts ...Option) *Feed {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	f := &Feed{
		frames:    make(chan models.Frame, buffer),
		audio:     make(chan models.AudioChunk, buffer),
		done:      make(chan struct{}),
		frameSkip: 1,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// PushFrame queues a frame for analysis. Frames thinned out by the frame
// skip are accepted and discarded without error.
func (f *Feed) PushFrame(frame models.Frame) error {
	if f.isClosed() {
		return ErrClosed
	}
	if n := f.received.Add(1); (n-1)%f.frameSkip != 0 {
		return nil
	}
	select {
	case f.frames <- frame:
		return nil
	default:
		f.drop(models.ModalityVideo)
		return ErrFull
	}
}

// PushAudio queues an audio chunk for analysis.
func (f *Feed) PushAudio(chunk models.AudioChunk) error {
	if f.isClosed() {
		return ErrClosed
	}
	select {
	case f.audio <- chunk:
		return nil
	default:
		f.drop(models.ModalityAudio)
		return ErrFull
	}
}

// Dropped returns how many items were rejected because a queue was full.
func (f *Feed) Dropped() uint64 {
	return f.dropped.Load()
}

// Close releases both sources. Pending items are discarded. Safe to call
// more than once.
func (f *Feed) Close() error {
	f.closeOnce.Do(func() { close(f.done) })
	return nil
}

// Frames returns the video side of the feed.
func (f *Feed) Frames() FrameSource { return frameSource{f} }

// Audio returns the audio side of the feed.
func (f *Feed) Audio() AudioSource { return audioSource{f} }

func (f *Feed) isClosed() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

func (f *Feed) drop(m models.Modality) {
	f.dropped.Add(1)
	if f.onDrop != nil {
		f.onDrop(m)
	}
}

type frameSource struct{ f *Feed }

func (s frameSource) Next(ctx context.Context) (models.Frame, error) {
	select {
	case <-ctx.Done():
		return models.Frame{}, ctx.Err()
	case <-s.f.done:
		return models.Frame{}, io.EOF
	case frame := <-s.f.frames:
		return frame, nil
	}
}

func (s frameSource) Close() error { return s.f.Close() }

type audioSource struct{ f *Feed }

func (s audioSource) Next(ctx context.Context) (models.AudioChunk, error) {
	select {
	case <-ctx.Done():
		return models.AudioChunk{}, ctx.Err()
	case <-s.f.done:
		return models.AudioChunk{}, io.EOF
	case chunk := <-s.f.audio:
		return chunk, nil
	}
}

func (s audioSource) Close() error { return s.f.Close() }
