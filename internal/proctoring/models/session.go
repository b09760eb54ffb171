package models

import (
	"time"

	id "proctor/pkg/domain"
)

// SessionState is the lifecycle position of a proctoring session.
type SessionState string

const (
	StateCreated SessionState = "created"
	StateActive  SessionState = "active"
	StateStopped SessionState = "stopped"
)

// ClientInfo describes the candidate's browser as reported at start.
type ClientInfo struct {
	Browser        string `json:"browser,omitempty"`
	BrowserVersion string `json:"browser_version,omitempty"`
	OS             string `json:"os,omitempty"`
	Platform       string `json:"platform,omitempty"`
	Mobile         bool   `json:"mobile"`
	Bot            bool   `json:"bot"`
	IP             string `json:"ip,omitempty"`
}

// SessionStatus is a read-only snapshot of a session.
type SessionStatus struct {
	SessionID        id.SessionID     `json:"session_id"`
	UserID           id.UserID        `json:"user_id"`
	TestSessionID    id.TestSessionID `json:"test_session_id"`
	State            SessionState     `json:"state"`
	IsActive         bool             `json:"is_active"`
	Degraded         bool             `json:"degraded"`
	DegradedReason   string           `json:"degraded_reason,omitempty"`
	StartedAt        time.Time        `json:"started_at"`
	StoppedAt        *time.Time       `json:"stopped_at,omitempty"`
	Violations       []Violation      `json:"violations"`
	ViolationsCount  int              `json:"violations_count"`
	BehaviorScore    float64          `json:"behavior_score"`
	FramesAnalyzed   int64            `json:"frames_analyzed"`
	AudioAnalyzed    int64            `json:"audio_chunks_analyzed"`
	UnavailableTicks int64            `json:"detector_unavailable_ticks"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// FrameResult is returned by synchronous frame processing.
type FrameResult struct {
	FaceCount         int         `json:"face_count"`
	DetectorAvailable bool        `json:"detector_available"`
	Violations        []Violation `json:"violations"`
	BehaviorScore     float64     `json:"behavior_score"`
}

// AudioResult is returned by synchronous audio processing.
type AudioResult struct {
	DBLevel           float64     `json:"db_level"`
	SpeechDetected    bool        `json:"speech_detected"`
	DetectorAvailable bool        `json:"detector_available"`
	Violations        []Violation `json:"violations"`
	BehaviorScore     float64     `json:"behavior_score"`
}

// EventResult is returned when a client-side signal is injected.
type EventResult struct {
	Violations    []Violation `json:"violations"`
	BehaviorScore float64     `json:"behavior_score"`
}

// CertificateDecision records one evaluation of the certificate gate.
type CertificateDecision struct {
	TestScore     float64   `json:"test_score"`
	BehaviorScore float64   `json:"behavior_score"`
	FinalScore    float64   `json:"final_score"`
	Issue         bool      `json:"issue"`
	Reason        string    `json:"reason"`
	DecidedAt     time.Time `json:"decided_at"`
}

// AdminOverride is a reviewer's score annotation. It is informational and
// never consulted by the certificate gate.
type AdminOverride struct {
	Score      float64   `json:"score"`
	Reason     string    `json:"reason,omitempty"`
	ReviewerID string    `json:"reviewer_id"`
	RecordedAt time.Time `json:"recorded_at"`
}

// AttemptRecord is the persisted history of a stopped session.
type AttemptRecord struct {
	SessionID     id.SessionID         `json:"session_id"`
	UserID        id.UserID            `json:"user_id"`
	TestSessionID id.TestSessionID     `json:"test_session_id"`
	Config        ProctoringConfig     `json:"config"`
	Client        ClientInfo           `json:"client"`
	StartedAt     time.Time            `json:"started_at"`
	StoppedAt     time.Time            `json:"stopped_at"`
	Violations    []Violation          `json:"violations"`
	BehaviorScore float64              `json:"behavior_score"`
	Degraded      bool                 `json:"degraded"`
	ForcedStop    bool                 `json:"forced_stop"`
	Override      *AdminOverride       `json:"admin_override,omitempty"`
	Decision      *CertificateDecision `json:"certificate_decision,omitempty"`
}

func (r *AttemptRecord) ViolationsCount() int {
	return len(r.Violations)
}

// ViolationTypes lists the distinct violation types in first-seen order.
func (r *AttemptRecord) ViolationTypes() []string {
	seen := make(map[SignalType]bool)
	var out []string
	for _, v := range r.Violations {
		if !seen[v.Type] {
			seen[v.Type] = true
			out = append(out, string(v.Type))
		}
	}
	return out
}
