package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	dErrors "proctor/pkg/domain-errors"
)

// ProctoringConfig is fixed for the lifetime of a session. The manager takes
// a copy at start.
type ProctoringConfig struct {
	FaceDetectionThreshold   float64            `json:"face_detection_threshold" yaml:"face_detection_threshold" toml:"face_detection_threshold"`
	ObjectDetectionThreshold float64            `json:"object_detection_threshold" yaml:"object_detection_threshold" toml:"object_detection_threshold"`
	NoiseThresholdDB         float64            `json:"noise_threshold_db" yaml:"noise_threshold_db" toml:"noise_threshold_db"`
	SpeechDetectionEnabled   bool               `json:"speech_detection_enabled" yaml:"speech_detection_enabled" toml:"speech_detection_enabled"`
	FaceAbsenceTimeout       int                `json:"face_absence_timeout" yaml:"face_absence_timeout" toml:"face_absence_timeout"`
	HeadTurnThreshold        float64            `json:"head_turn_threshold" yaml:"head_turn_threshold" toml:"head_turn_threshold"`
	HeadPitchThreshold       float64            `json:"head_pitch_threshold" yaml:"head_pitch_threshold" toml:"head_pitch_threshold"`
	MaxViolations            int                `json:"max_violations" yaml:"max_violations" toml:"max_violations"`
	BehaviorScoreWeight      float64            `json:"behavior_score_weight" yaml:"behavior_score_weight" toml:"behavior_score_weight"`
	TestScoreWeight          float64            `json:"test_score_weight" yaml:"test_score_weight" toml:"test_score_weight"`
	DebounceThreshold        int                `json:"debounce_threshold" yaml:"debounce_threshold" toml:"debounce_threshold"`
	DebounceThresholds       map[SignalType]int `json:"debounce_thresholds,omitempty" yaml:"debounce_thresholds" toml:"debounce_thresholds"`
	FrameSkip                int                `json:"frame_skip" yaml:"frame_skip" toml:"frame_skip"`
	DetectorTimeout          time.Duration      `json:"detector_timeout" yaml:"detector_timeout" toml:"detector_timeout"`
}

// DefaultConfig returns the reference policy.
func DefaultConfig() ProctoringConfig {
	return ProctoringConfig{
		FaceDetectionThreshold:   0.5,
		ObjectDetectionThreshold: 0.5,
		NoiseThresholdDB:         60,
		SpeechDetectionEnabled:   true,
		FaceAbsenceTimeout:       5,
		HeadTurnThreshold:        30,
		HeadPitchThreshold:       20,
		MaxViolations:            10,
		BehaviorScoreWeight:      0.4,
		TestScoreWeight:          0.6,
		DebounceThreshold:        5,
		DebounceThresholds: map[SignalType]int{
			SignalTabSwitching: 1,
		},
		FrameSkip:       1,
		DetectorTimeout: 10 * time.Second,
	}
}

// Clone returns a deep copy so callers cannot mutate a running session's policy.
func (c ProctoringConfig) Clone() ProctoringConfig {
	out := c
	if c.DebounceThresholds != nil {
		out.DebounceThresholds = make(map[SignalType]int, len(c.DebounceThresholds))
		for k, v := range c.DebounceThresholds {
			out.DebounceThresholds[k] = v
		}
	}
	return out
}

// ThresholdFor returns how many consecutive ticks confirm a violation of t.
// Face absence is governed by FaceAbsenceTimeout.
func (c ProctoringConfig) ThresholdFor(t SignalType) int {
	if t == SignalFaceAbsent {
		return c.FaceAbsenceTimeout
	}
	if n, ok := c.DebounceThresholds[t]; ok {
		return n
	}
	return c.DebounceThreshold
}

// Validate rejects out-of-range thresholds. It returns an error wrapping
// ErrConfigInvalid.
func (c ProctoringConfig) Validate() error {
	switch {
	case c.FaceDetectionThreshold < 0 || c.FaceDetectionThreshold > 1:
		return invalidConfig("face_detection_threshold must be within [0,1]")
	case c.ObjectDetectionThreshold < 0 || c.ObjectDetectionThreshold > 1:
		return invalidConfig("object_detection_threshold must be within [0,1]")
	case c.NoiseThresholdDB < 0 || c.NoiseThresholdDB > 194:
		return invalidConfig("noise_threshold_db must be within [0,194]")
	case c.FaceAbsenceTimeout < 1:
		return invalidConfig("face_absence_timeout must be at least 1 tick")
	case c.HeadTurnThreshold <= 0 || c.HeadTurnThreshold > 180:
		return invalidConfig("head_turn_threshold must be within (0,180]")
	case c.HeadPitchThreshold <= 0 || c.HeadPitchThreshold > 90:
		return invalidConfig("head_pitch_threshold must be within (0,90]")
	case c.MaxViolations < 0:
		return invalidConfig("max_violations must not be negative")
	case c.BehaviorScoreWeight < 0 || c.BehaviorScoreWeight > 1:
		return invalidConfig("behavior_score_weight must be within [0,1]")
	case c.TestScoreWeight < 0 || c.TestScoreWeight > 1:
		return invalidConfig("test_score_weight must be within [0,1]")
	case c.BehaviorScoreWeight+c.TestScoreWeight == 0:
		return invalidConfig("score weights must not both be zero")
	case c.DebounceThreshold < 1:
		return invalidConfig("debounce_threshold must be at least 1 tick")
	case c.FrameSkip < 1:
		return invalidConfig("frame_skip must be at least 1")
	case c.DetectorTimeout <= 0:
		return invalidConfig("detector_timeout must be positive")
	}
	for t, n := range c.DebounceThresholds {
		if !t.IsValid() {
			return invalidConfig(fmt.Sprintf("debounce_thresholds: unknown signal type %q", t))
		}
		if n < 1 {
			return invalidConfig(fmt.Sprintf("debounce_thresholds[%s] must be at least 1 tick", t))
		}
	}
	return nil
}

// Overlay decodes a JSON object onto a copy of c. Fields absent from raw keep
// their value from c and debounce_thresholds entries are merged. An empty or
// null raw returns the copy unchanged. The result is validated.
func (c ProctoringConfig) Overlay(raw []byte) (ProctoringConfig, error) {
	out := c.Clone()
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return out, out.Validate()
	}
	if trimmed[0] != '{' {
		return c, invalidConfig("config must be a JSON object")
	}
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return c, invalidConfig("config: " + err.Error())
	}
	return out, out.Validate()
}

// MarshalJSON writes detector_timeout as a duration string such as "10s".
func (c ProctoringConfig) MarshalJSON() ([]byte, error) {
	type plain ProctoringConfig
	return json.Marshal(struct {
		plain
		DetectorTimeout string `json:"detector_timeout"`
	}{
		plain:           plain(c),
		DetectorTimeout: c.DetectorTimeout.String(),
	})
}

// UnmarshalJSON decodes onto the current value of c. detector_timeout accepts
// a duration string ("2s") or integer nanoseconds.
func (c *ProctoringConfig) UnmarshalJSON(data []byte) error {
	type plain ProctoringConfig
	aux := struct {
		*plain
		DetectorTimeout json.RawMessage `json:"detector_timeout"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.DetectorTimeout) == 0 || bytes.Equal(aux.DetectorTimeout, []byte("null")) {
		return nil
	}
	d, err := parseJSONDuration(aux.DetectorTimeout)
	if err != nil {
		return fmt.Errorf("detector_timeout: %w", err)
	}
	c.DetectorTimeout = d
	return nil
}

func parseJSONDuration(raw json.RawMessage) (time.Duration, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return time.ParseDuration(s)
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("want a duration string or integer nanoseconds, got %s", raw)
	}
	return time.Duration(n), nil
}

func invalidConfig(msg string) error {
	return dErrors.Wrap(ErrConfigInvalid, dErrors.CodeValidation, msg)
}
