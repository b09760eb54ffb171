// Package metrics holds the Prometheus collectors for the proctoring engine.
// Every method is safe on a nil *Metrics so tests can run without a registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ActiveSessions       prometheus.Gauge
	SessionsStarted      prometheus.Counter
	SessionsStopped      *prometheus.CounterVec
	FramesProcessed      prometheus.Counter
	AudioChunksProcessed prometheus.Counter
	FramesDropped        *prometheus.CounterVec
	DetectorLatency      *prometheus.HistogramVec
	DetectorUnavailable  *prometheus.CounterVec
	ViolationsConfirmed  *prometheus.CounterVec
	CertificateDecisions *prometheus.CounterVec
	StatusSyncFailures   prometheus.Counter
}

// New creates and registers the proctoring metrics with the default registry.
func New() *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "proctor_active_sessions",
			Help: "Number of proctoring sessions currently monitored",
		}),
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "proctor_sessions_started_total",
			Help: "Total number of proctoring sessions started",
		}),
		SessionsStopped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "proctor_sessions_stopped_total",
			Help: "Total number of proctoring sessions stopped, by whether the stop was forced",
		}, []string{"forced"}),
		FramesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "proctor_frames_processed_total",
			Help: "Total number of video frames analyzed",
		}),
		AudioChunksProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "proctor_audio_chunks_processed_total",
			Help: "Total number of audio chunks analyzed",
		}),
		FramesDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "proctor_capture_dropped_total",
			Help: "Total number of captured inputs dropped because the feed was full",
		}, []string{"modality"}),
		DetectorLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "proctor_detector_latency_seconds",
			Help:    "Latency of detector model calls",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"modality"}),
		DetectorUnavailable: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "proctor_detector_unavailable_total",
			Help: "Total number of ticks where a detector produced no reading",
		}, []string{"modality", "reason"}),
		ViolationsConfirmed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "proctor_violations_confirmed_total",
			Help: "Total number of confirmed violations by type",
		}, []string{"type"}),
		CertificateDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "proctor_certificate_decisions_total",
			Help: "Total number of certificate decisions by outcome reason",
		}, []string{"reason"}),
		StatusSyncFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "proctor_status_sync_failures_total",
			Help: "Total number of failed status cache writes",
		}),
	}
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
	m.ActiveSessions.Inc()
}

func (m *Metrics) SessionStopped(forced bool) {
	if m == nil {
		return
	}
	label := "false"
	if forced {
		label = "true"
	}
	m.SessionsStopped.WithLabelValues(label).Inc()
	m.ActiveSessions.Dec()
}

func (m *Metrics) IncFramesProcessed() {
	if m == nil {
		return
	}
	m.FramesProcessed.Inc()
}

func (m *Metrics) IncAudioChunksProcessed() {
	if m == nil {
		return
	}
	m.AudioChunksProcessed.Inc()
}

func (m *Metrics) IncDropped(modality string) {
	if m == nil {
		return
	}
	m.FramesDropped.WithLabelValues(modality).Inc()
}

func (m *Metrics) ObserveDetectorLatency(modality string, seconds float64) {
	if m == nil {
		return
	}
	m.DetectorLatency.WithLabelValues(modality).Observe(seconds)
}

func (m *Metrics) IncDetectorUnavailable(modality, reason string) {
	if m == nil {
		return
	}
	m.DetectorUnavailable.WithLabelValues(modality, reason).Inc()
}

func (m *Metrics) IncViolation(violationType string) {
	if m == nil {
		return
	}
	m.ViolationsConfirmed.WithLabelValues(violationType).Inc()
}

func (m *Metrics) IncCertificateDecision(reason string) {
	if m == nil {
		return
	}
	m.CertificateDecisions.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncStatusSyncFailures() {
	if m == nil {
		return
	}
	m.StatusSyncFailures.Inc()
}
