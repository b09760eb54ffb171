package models

import (
	"strings"
	"time"

	dErrors "proctor/pkg/domain-errors"
)

// SignalType names one kind of suspicious behavior.
type SignalType string

const (
	SignalFaceAbsent       SignalType = "face_absent"
	SignalHeadTurned       SignalType = "head_turned"
	SignalMultipleFaces    SignalType = "multiple_faces"
	SignalProhibitedObject SignalType = "prohibited_object"
	SignalNoise            SignalType = "noise"
	SignalSpeech           SignalType = "speech"
	SignalTabSwitching     SignalType = "tab_switching"
)

// Modality is the input stream a signal type is observed on. Debounce
// counters advance and reset per modality.
type Modality string

const (
	ModalityVideo  Modality = "video"
	ModalityAudio  Modality = "audio"
	ModalityClient Modality = "client"
)

type signalSpec struct {
	severity    int
	modality    Modality
	description string
}

// Severities are fixed per type. They feed both the certificate gate and the
// scorer's per-violation cap.
var signalSpecs = map[SignalType]signalSpec{
	SignalFaceAbsent:       {5, ModalityVideo, "Candidate face not visible"},
	SignalHeadTurned:       {3, ModalityVideo, "Candidate looking away from the screen"},
	SignalMultipleFaces:    {10, ModalityVideo, "Multiple faces detected"},
	SignalProhibitedObject: {10, ModalityVideo, "Prohibited object detected"},
	SignalNoise:            {3, ModalityAudio, "Background noise above threshold"},
	SignalSpeech:           {5, ModalityAudio, "Speech detected"},
	SignalTabSwitching:     {5, ModalityClient, "Candidate left the exam tab"},
}

// orderedTypes fixes iteration order wherever output must be deterministic.
var orderedTypes = []SignalType{
	SignalFaceAbsent,
	SignalHeadTurned,
	SignalMultipleFaces,
	SignalProhibitedObject,
	SignalNoise,
	SignalSpeech,
	SignalTabSwitching,
}

func ParseSignalType(s string) (SignalType, error) {
	t := SignalType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "unknown signal type: "+s)
	}
	return t, nil
}

func (t SignalType) IsValid() bool {
	_, ok := signalSpecs[t]
	return ok
}

func (t SignalType) String() string { return string(t) }

// Severity returns the fixed severity of t, or 0 for unknown types.
func (t SignalType) Severity() int {
	return signalSpecs[t].severity
}

func (t SignalType) Modality() Modality {
	return signalSpecs[t].modality
}

func (t SignalType) Description() string {
	return signalSpecs[t].description
}

// AllSignalTypes returns every known type in a stable order.
func AllSignalTypes() []SignalType {
	return append([]SignalType(nil), orderedTypes...)
}

// SignalTypesFor returns the types observed on modality m in a stable order.
func SignalTypesFor(m Modality) []SignalType {
	var out []SignalType
	for _, t := range orderedTypes {
		if signalSpecs[t].modality == m {
			out = append(out, t)
		}
	}
	return out
}

// Signal is one unconfirmed per-tick observation.
type Signal struct {
	Type       SignalType     `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	Severity   int            `json:"severity"`
	Confidence float64        `json:"confidence"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// NewSignal builds a signal carrying its type's fixed severity.
func NewSignal(t SignalType, at time.Time, confidence float64, metadata map[string]any) Signal {
	return Signal{
		Type:       t,
		Timestamp:  at,
		Severity:   t.Severity(),
		Confidence: confidence,
		Metadata:   metadata,
	}
}
