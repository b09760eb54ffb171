package models

import (
	"encoding/hex"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Frame is one captured video image. Data holds the encoded image bytes.
type Frame struct {
	Data       []byte
	Format     string
	Width      int
	Height     int
	Sequence   uint64
	CapturedAt time.Time
}

// Digest fingerprints the frame bytes so a confirmed violation can be tied
// to the evidence without storing the image.
func (f Frame) Digest() string {
	sum := blake2b.Sum256(f.Data)
	return hex.EncodeToString(sum[:16])
}

// AudioChunk is a block of mono PCM samples normalized to [-1, 1].
type AudioChunk struct {
	Samples    []float32
	SampleRate int
	CapturedAt time.Time
}

// Duration is the playback length of the chunk.
func (c AudioChunk) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type DetectedObject struct {
	Class      string      `json:"class"`
	Confidence float64     `json:"confidence"`
	Box        BoundingBox `json:"box"`
}

// Pose is head orientation in degrees, zero when facing the camera.
type Pose struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
}

// Face is one detected face.
type Face struct {
	Box        BoundingBox `json:"box"`
	Confidence float64     `json:"confidence"`
}

// Detection is the raw output of a video model for one frame. Pose is nil
// when no pose estimate was produced.
type Detection struct {
	Faces   []Face           `json:"faces"`
	Objects []DetectedObject `json:"objects,omitempty"`
	Pose    *Pose            `json:"pose,omitempty"`
}

// AudioAnalysis is the raw output of an audio analyzer for one chunk.
type AudioAnalysis struct {
	DBLevel        float64 `json:"db_level"`
	SpeechDetected bool    `json:"speech_detected"`
}

// UnavailableReason explains why a detector produced no reading.
type UnavailableReason string

const (
	ReasonNone               UnavailableReason = ""
	ReasonModelNotConfigured UnavailableReason = "model_not_configured"
	ReasonModelError         UnavailableReason = "model_error"
	ReasonTimeout            UnavailableReason = "timeout"
	ReasonPanic              UnavailableReason = "panic"
	ReasonCircuitOpen        UnavailableReason = "circuit_open"
	ReasonInvalidInput       UnavailableReason = "invalid_input"
)

// VideoSignals is the detector reading for one frame. When Available is
// false every other field is zero and the classifier emits nothing.
type VideoSignals struct {
	Available      bool
	Unavailable    UnavailableReason
	FaceCount      int
	FaceBoxes      []BoundingBox
	FaceConfidence float64
	Yaw            *float64
	Pitch          *float64
	Objects        []DetectedObject
}

// AudioSignals is the detector reading for one audio chunk.
type AudioSignals struct {
	Available      bool
	Unavailable    UnavailableReason
	DBLevel        float64
	SpeechDetected bool
	IsNoisy        bool
}

func UnavailableVideo(reason UnavailableReason) VideoSignals {
	return VideoSignals{Unavailable: reason}
}

func UnavailableAudio(reason UnavailableReason) AudioSignals {
	return AudioSignals{Unavailable: reason}
}
