package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "proctor/pkg/domain-errors"
)

func TestSignalType_FixedSeverities(t *testing.T) {
	expected := map[SignalType]int{
		SignalFaceAbsent:       5,
		SignalHeadTurned:       3,
		SignalMultipleFaces:    10,
		SignalProhibitedObject: 10,
		SignalNoise:            3,
		SignalSpeech:           5,
		SignalTabSwitching:     5,
	}
	for st, sev := range expected {
		assert.Equal(t, sev, st.Severity(), st)
	}
	assert.Equal(t, 0, SignalType("unknown").Severity())
}

func TestSignalTypesFor_PartitionsByModality(t *testing.T) {
	assert.Equal(t, []SignalType{SignalFaceAbsent, SignalHeadTurned, SignalMultipleFaces, SignalProhibitedObject}, SignalTypesFor(ModalityVideo))
	assert.Equal(t, []SignalType{SignalNoise, SignalSpeech}, SignalTypesFor(ModalityAudio))
	assert.Equal(t, []SignalType{SignalTabSwitching}, SignalTypesFor(ModalityClient))
}

func TestParseSignalType(t *testing.T) {
	st, err := ParseSignalType(" Tab_Switching ")
	require.NoError(t, err)
	assert.Equal(t, SignalTabSwitching, st)

	_, err = ParseSignalType("eye_roll")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestDefaultConfig_IsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestConfigValidate_RejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ProctoringConfig)
	}{
		{"face threshold above one", func(c *ProctoringConfig) { c.FaceDetectionThreshold = 1.5 }},
		{"negative noise threshold", func(c *ProctoringConfig) { c.NoiseThresholdDB = -1 }},
		{"zero face absence timeout", func(c *ProctoringConfig) { c.FaceAbsenceTimeout = 0 }},
		{"zero head turn threshold", func(c *ProctoringConfig) { c.HeadTurnThreshold = 0 }},
		{"negative max violations", func(c *ProctoringConfig) { c.MaxViolations = -1 }},
		{"weight above one", func(c *ProctoringConfig) { c.TestScoreWeight = 2 }},
		{"both weights zero", func(c *ProctoringConfig) { c.TestScoreWeight, c.BehaviorScoreWeight = 0, 0 }},
		{"zero debounce threshold", func(c *ProctoringConfig) { c.DebounceThreshold = 0 }},
		{"unknown override type", func(c *ProctoringConfig) { c.DebounceThresholds = map[SignalType]int{"blink": 2} }},
		{"zero override", func(c *ProctoringConfig) { c.DebounceThresholds = map[SignalType]int{SignalNoise: 0} }},
		{"zero frame skip", func(c *ProctoringConfig) { c.FrameSkip = 0 }},
		{"zero detector timeout", func(c *ProctoringConfig) { c.DetectorTimeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfigInvalid))
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func TestConfigJSON_DurationsRoundTrip(t *testing.T) {
	raw, err := json.Marshal(DefaultConfig())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"detector_timeout":"10s"`)

	var got ProctoringConfig
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, DefaultConfig(), got)

	require.NoError(t, json.Unmarshal([]byte(`{"detector_timeout": 250000000}`), &got))
	assert.Equal(t, 250*time.Millisecond, got.DetectorTimeout)

	err = json.Unmarshal([]byte(`{"detector_timeout": true}`), &got)
	assert.Error(t, err)
}

func TestConfigOverlay(t *testing.T) {
	base := DefaultConfig()

	t.Run("keeps fields the overlay omits", func(t *testing.T) {
		cfg, err := base.Overlay([]byte(`{"max_violations": 3, "detector_timeout": "2s", "debounce_thresholds": {"speech": 2}}`))
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.MaxViolations)
		assert.Equal(t, 2*time.Second, cfg.DetectorTimeout)
		assert.Equal(t, base.FaceAbsenceTimeout, cfg.FaceAbsenceTimeout)
		assert.Equal(t, 1, cfg.ThresholdFor(SignalTabSwitching))
		assert.Equal(t, 2, cfg.ThresholdFor(SignalSpeech))
	})

	t.Run("does not mutate the base", func(t *testing.T) {
		_, err := base.Overlay([]byte(`{"debounce_thresholds": {"tab_switching": 4}}`))
		require.NoError(t, err)
		assert.Equal(t, 1, base.DebounceThresholds[SignalTabSwitching])
	})

	t.Run("empty and null return the base", func(t *testing.T) {
		for _, raw := range []string{"", "  ", "null"} {
			cfg, err := base.Overlay([]byte(raw))
			require.NoError(t, err)
			assert.Equal(t, base, cfg)
		}
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		for _, raw := range []string{`"x"`, `{"frame_skip": 0}`, `{"detector_timeout": "later"}`} {
			_, err := base.Overlay([]byte(raw))
			require.Error(t, err, raw)
			assert.ErrorIs(t, err, ErrConfigInvalid, raw)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), raw)
		}
	})
}

func TestThresholdFor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FaceAbsenceTimeout = 7
	cfg.DebounceThresholds[SignalNoise] = 2

	assert.Equal(t, 7, cfg.ThresholdFor(SignalFaceAbsent))
	assert.Equal(t, 2, cfg.ThresholdFor(SignalNoise))
	assert.Equal(t, 1, cfg.ThresholdFor(SignalTabSwitching))
	assert.Equal(t, 5, cfg.ThresholdFor(SignalSpeech))
}

func TestConfigClone_IsolatesOverrides(t *testing.T) {
	cfg := DefaultConfig()
	clone := cfg.Clone()
	clone.DebounceThresholds[SignalTabSwitching] = 9

	assert.Equal(t, 1, cfg.DebounceThresholds[SignalTabSwitching])
}

func TestNewViolation_CarriesTypeSeverity(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	sig := NewSignal(SignalProhibitedObject, at, 0.9, map[string]any{"object_class": "cell phone"})
	sig.Severity = 1

	v := NewViolation(sig, 5, at)
	assert.False(t, v.ID.IsNil())
	assert.Equal(t, 10, v.Severity, "severity comes from the type, not the signal")
	assert.Equal(t, "Prohibited object detected for 5 consecutive checks (cell phone)", v.Description)
	assert.Equal(t, 5, v.Metadata["consecutive_ticks"])
	assert.Equal(t, at, v.Timestamp)
}

func TestFrameDigest_StableAndShort(t *testing.T) {
	f := Frame{Data: []byte("jpeg-bytes")}
	assert.Equal(t, f.Digest(), f.Digest())
	assert.Len(t, f.Digest(), 32)
	assert.NotEqual(t, f.Digest(), Frame{Data: []byte("other")}.Digest())
}

func TestAudioChunkDuration(t *testing.T) {
	c := AudioChunk{Samples: make([]float32, 8000), SampleRate: 16000}
	assert.Equal(t, 500*time.Millisecond, c.Duration())
	assert.Zero(t, AudioChunk{Samples: make([]float32, 10)}.Duration())
}
