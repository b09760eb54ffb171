package handler

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"proctor/internal/proctoring/models"
	id "proctor/pkg/domain"
	dErrors "proctor/pkg/domain-errors"
)

const (
	maxFrameBytes   = 4 << 20
	maxAudioSamples = 48000 * 10
	maxMetadataKeys = 16
)

// StartSessionRequest is the HTTP request body for POST /proctoring/sessions.
// ClientUserAgent and ClientIP describe the candidate's browser as seen by
// the exam service; the caller's own headers are used when they are empty.
// Config is a partial policy overlaid onto the service default.
type StartSessionRequest struct {
	SessionID       string          `json:"session_id,omitempty"`
	UserID          string          `json:"user_id"`
	TestSessionID   string          `json:"test_session_id"`
	Config          json.RawMessage `json:"config,omitempty"`
	ClientUserAgent string          `json:"client_user_agent,omitempty"`
	ClientIP        string          `json:"client_ip,omitempty"`

	sessionID     id.SessionID
	userID        id.UserID
	testSessionID id.TestSessionID
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *StartSessionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.ClientUserAgent) > 512 {
		return dErrors.New(dErrors.CodeValidation, "client_user_agent must be at most 512 characters")
	}
	if cfg := bytes.TrimSpace(r.Config); len(cfg) > 0 && !bytes.Equal(cfg, []byte("null")) && cfg[0] != '{' {
		return dErrors.New(dErrors.CodeValidation, "config must be a JSON object")
	}

	userID, err := id.ParseUserID(strings.TrimSpace(r.UserID))
	if err != nil {
		return err
	}
	r.userID = userID

	testSessionID, err := id.ParseTestSessionID(strings.TrimSpace(r.TestSessionID))
	if err != nil {
		return err
	}
	r.testSessionID = testSessionID

	if s := strings.TrimSpace(r.SessionID); s != "" {
		sessionID, err := id.ParseSessionID(s)
		if err != nil {
			return err
		}
		r.sessionID = sessionID
	}
	return nil
}

// FrameRequest carries one base64 encoded image.
type FrameRequest struct {
	Data       []byte    `json:"data"`
	Format     string    `json:"format,omitempty"`
	Width      int       `json:"width,omitempty"`
	Height     int       `json:"height,omitempty"`
	Sequence   uint64    `json:"sequence,omitempty"`
	CapturedAt time.Time `json:"captured_at,omitempty"`
}

func (r *FrameRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Data) == 0 {
		return dErrors.New(dErrors.CodeValidation, "data is required")
	}
	if len(r.Data) > maxFrameBytes {
		return dErrors.New(dErrors.CodeValidation, "frame exceeds the maximum size")
	}
	if r.Width < 0 || r.Height < 0 {
		return dErrors.New(dErrors.CodeValidation, "width and height must not be negative")
	}
	return nil
}

func (r *FrameRequest) Frame() models.Frame {
	return models.Frame{
		Data:       r.Data,
		Format:     strings.ToLower(strings.TrimSpace(r.Format)),
		Width:      r.Width,
		Height:     r.Height,
		Sequence:   r.Sequence,
		CapturedAt: r.CapturedAt,
	}
}

// AudioRequest carries one chunk of mono PCM samples in [-1, 1].
type AudioRequest struct {
	Samples    []float32 `json:"samples"`
	SampleRate int       `json:"sample_rate"`
	CapturedAt time.Time `json:"captured_at,omitempty"`
}

func (r *AudioRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Samples) == 0 {
		return dErrors.New(dErrors.CodeValidation, "samples are required")
	}
	if len(r.Samples) > maxAudioSamples {
		return dErrors.New(dErrors.CodeValidation, "audio chunk exceeds the maximum length")
	}
	if r.SampleRate < 8000 || r.SampleRate > 48000 {
		return dErrors.New(dErrors.CodeValidation, "sample_rate must be within [8000,48000]")
	}
	return nil
}

func (r *AudioRequest) Chunk() models.AudioChunk {
	return models.AudioChunk{Samples: r.Samples, SampleRate: r.SampleRate, CapturedAt: r.CapturedAt}
}

// EventRequest reports a client-side event such as a tab switch.
type EventRequest struct {
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`

	signalType models.SignalType
}

func (r *EventRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Metadata) > maxMetadataKeys {
		return dErrors.New(dErrors.CodeValidation, "metadata has too many keys")
	}
	if strings.TrimSpace(r.Type) == "" {
		return dErrors.New(dErrors.CodeValidation, "type is required")
	}
	st, err := models.ParseSignalType(r.Type)
	if err != nil {
		return err
	}
	if st.Modality() != models.ModalityClient {
		return dErrors.New(dErrors.CodeValidation, "type "+string(st)+" cannot be reported by the client")
	}
	r.signalType = st
	return nil
}

// CertificateRequest carries the exam score for certificate evaluation.
type CertificateRequest struct {
	TestScore *float64 `json:"test_score"`
}

func (r *CertificateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.TestScore == nil {
		return dErrors.New(dErrors.CodeValidation, "test_score is required")
	}
	if *r.TestScore < 0 || *r.TestScore > 100 {
		return dErrors.New(dErrors.CodeValidation, "test_score must be within [0,100]")
	}
	return nil
}

// OverrideRequest records a reviewer's score annotation.
type OverrideRequest struct {
	Score  *float64 `json:"score"`
	Reason string   `json:"reason,omitempty"`
}

func (r *OverrideRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Score == nil {
		return dErrors.New(dErrors.CodeValidation, "score is required")
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if len(r.Reason) > 1000 {
		return dErrors.New(dErrors.CodeValidation, "reason must be at most 1000 characters")
	}
	return nil
}
