// Package detector adapts injected vision and audio models into typed
// per-tick readings.
//
// The adapter never returns an error to the monitoring loops. A model that
// is missing, fails, panics, exceeds its deadline or sits behind an open
// circuit breaker yields a reading with Available=false and a reason, which
// the classifier turns into zero signals.
package detector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"proctor/internal/proctoring/metrics"
	"proctor/internal/proctoring/models"
	"proctor/pkg/platform/circuit"
)

// VideoModel finds faces, objects and head pose in one frame.
type VideoModel interface {
	Detect(ctx context.Context, frame models.Frame) (*models.Detection, error)
}

// AudioAnalyzer measures level and speech presence in one chunk.
type AudioAnalyzer interface {
	Analyze(ctx context.Context, chunk models.AudioChunk) (*models.AudioAnalysis, error)
}

const (
	DefaultTimeout        = 10 * time.Second
	defaultNoiseThreshold = 60.0
)

type Adapter struct {
	video          VideoModel
	audio          AudioAnalyzer
	timeout        time.Duration
	noiseThreshold float64
	videoBreaker   *circuit.Breaker
	audioBreaker   *circuit.Breaker
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(*Adapter)

// WithTimeout bounds each model call. Callers may tighten it further through
// the context deadline.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithNoiseThreshold sets the level above which IsNoisy is reported.
func WithNoiseThreshold(db float64) Option {
	return func(a *Adapter) { a.noiseThreshold = db }
}

// WithBreakers replaces the per-modality circuit breakers.
func WithBreakers(video, audio *circuit.Breaker) Option {
	return func(a *Adapter) {
		if video != nil {
			a.videoBreaker = video
		}
		if audio != nil {
			a.audioBreaker = audio
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) { a.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Adapter) { a.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(a *Adapter) { a.tracer = t }
}

// New creates an adapter. Either model may be nil; the matching modality
// then always reports model_not_configured.
func New(video VideoModel, audio AudioAnalyzer, opts ...Option) *Adapter {
	a := &Adapter{
		video:          video,
		audio:          audio,
		timeout:        DefaultTimeout,
		noiseThreshold: defaultNoiseThreshold,
		videoBreaker:   circuit.New("video_model", circuit.WithSuccessThreshold(1)),
		audioBreaker:   circuit.New("audio_model", circuit.WithSuccessThreshold(1)),
		logger:         slog.Default(),
		tracer:         otel.Tracer("proctor/detector"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// DetectVideo runs the video model on one frame.
func (a *Adapter) DetectVideo(ctx context.Context, frame models.Frame) models.VideoSignals {
	const modality = "video"
	if a.video == nil {
		return models.UnavailableVideo(a.unavailable(ctx, modality, models.ReasonModelNotConfigured, nil))
	}
	if len(frame.Data) == 0 {
		return models.UnavailableVideo(a.unavailable(ctx, modality, models.ReasonInvalidInput, nil))
	}
	if !a.videoBreaker.Allow() {
		return models.UnavailableVideo(a.unavailable(ctx, modality, models.ReasonCircuitOpen, nil))
	}

	ctx, span := a.tracer.Start(ctx, "detector.DetectVideo", trace.WithAttributes(
		attribute.Int64("frame.sequence", int64(frame.Sequence)),
		attribute.Int("frame.bytes", len(frame.Data)),
	))
	defer span.End()

	start := time.Now()
	det, reason, err := invoke(ctx, a.timeout, func(ctx context.Context) (*models.Detection, error) {
		return a.video.Detect(ctx, frame)
	})
	a.metrics.ObserveDetectorLatency(modality, time.Since(start).Seconds())
	if err != nil {
		a.recordFailure(ctx, a.videoBreaker, span, err)
		return models.UnavailableVideo(a.unavailable(ctx, modality, reason, err))
	}
	a.recordSuccess(ctx, a.videoBreaker)

	out := models.VideoSignals{
		Available: true,
		FaceCount: len(det.Faces),
		Objects:   det.Objects,
	}
	for _, f := range det.Faces {
		out.FaceBoxes = append(out.FaceBoxes, f.Box)
		if f.Confidence > out.FaceConfidence {
			out.FaceConfidence = f.Confidence
		}
	}
	if det.Pose != nil {
		yaw, pitch := det.Pose.Yaw, det.Pose.Pitch
		out.Yaw, out.Pitch = &yaw, &pitch
	}
	span.SetAttributes(attribute.Int("faces", out.FaceCount), attribute.Int("objects", len(out.Objects)))
	return out
}

// DetectAudio runs the audio analyzer on one chunk.
func (a *Adapter) DetectAudio(ctx context.Context, chunk models.AudioChunk) models.AudioSignals {
	const modality = "audio"
	if a.audio == nil {
		return models.UnavailableAudio(a.unavailable(ctx, modality, models.ReasonModelNotConfigured, nil))
	}
	if len(chunk.Samples) == 0 || chunk.SampleRate <= 0 {
		return models.UnavailableAudio(a.unavailable(ctx, modality, models.ReasonInvalidInput, nil))
	}
	if !a.audioBreaker.Allow() {
		return models.UnavailableAudio(a.unavailable(ctx, modality, models.ReasonCircuitOpen, nil))
	}

	ctx, span := a.tracer.Start(ctx, "detector.DetectAudio", trace.WithAttributes(
		attribute.Int("audio.samples", len(chunk.Samples)),
		attribute.Int("audio.sample_rate", chunk.SampleRate),
	))
	defer span.End()

	start := time.Now()
	res, reason, err := invoke(ctx, a.timeout, func(ctx context.Context) (*models.AudioAnalysis, error) {
		return a.audio.Analyze(ctx, chunk)
	})
	a.metrics.ObserveDetectorLatency(modality, time.Since(start).Seconds())
	if err != nil {
		a.recordFailure(ctx, a.audioBreaker, span, err)
		return models.UnavailableAudio(a.unavailable(ctx, modality, reason, err))
	}
	a.recordSuccess(ctx, a.audioBreaker)

	return models.AudioSignals{
		Available:      true,
		DBLevel:        res.DBLevel,
		SpeechDetected: res.SpeechDetected,
		IsNoisy:        res.DBLevel > a.noiseThreshold,
	}
}

type outcome[T any] struct {
	value    *T
	err      error
	panicked any
}

// invoke runs fn with a deadline and converts panics and empty results into
// errors. The result channel is buffered so a late model call never blocks.
func invoke[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (*T, error)) (*T, models.UnavailableReason, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome[T]{panicked: r}
			}
		}()
		v, err := fn(ctx)
		done <- outcome[T]{value: v, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, models.ReasonTimeout, fmt.Errorf("%w: %w", models.ErrDetectorFailure, ctx.Err())
	case res := <-done:
		switch {
		case res.panicked != nil:
			return nil, models.ReasonPanic, fmt.Errorf("%w: model panicked: %v", models.ErrDetectorFailure, res.panicked)
		case res.err != nil && ctx.Err() != nil:
			return nil, models.ReasonTimeout, fmt.Errorf("%w: %w", models.ErrDetectorFailure, res.err)
		case res.err != nil:
			return nil, models.ReasonModelError, fmt.Errorf("%w: %w", models.ErrDetectorFailure, res.err)
		case res.value == nil:
			return nil, models.ReasonModelError, fmt.Errorf("%w: model returned no result", models.ErrDetectorFailure)
		}
		return res.value, models.ReasonNone, nil
	}
}

func (a *Adapter) unavailable(ctx context.Context, modality string, reason models.UnavailableReason, err error) models.UnavailableReason {
	a.metrics.IncDetectorUnavailable(modality, string(reason))
	if err != nil {
		a.logger.WarnContext(ctx, "detector unavailable",
			"modality", modality,
			"reason", reason,
			"error", err,
		)
	}
	return reason
}

func (a *Adapter) recordFailure(ctx context.Context, b *circuit.Breaker, span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if _, change := b.RecordFailure(); change.Opened {
		a.logger.WarnContext(ctx, "detector circuit opened", "model", b.Name())
	}
}

func (a *Adapter) recordSuccess(ctx context.Context, b *circuit.Breaker) {
	if _, change := b.RecordSuccess(); change.Closed {
		a.logger.InfoContext(ctx, "detector circuit closed", "model", b.Name())
	}
}
