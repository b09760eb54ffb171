// Package classifier maps one detector reading to zero or more raw signals.
// Every function is pure; per-session state lives in the debouncer.
package classifier

import (
	"math"
	"strings"
	"time"

	"proctor/internal/proctoring/models"
)

// prohibitedClasses are the detector object labels that count as cheating aids.
var prohibitedClasses = map[string]struct{}{
	"cell phone": {},
	"book":       {},
}

// IsProhibited reports whether a detector object class is a prohibited item.
func IsProhibited(class string) bool {
	_, ok := prohibitedClasses[strings.ToLower(strings.TrimSpace(class))]
	return ok
}

// ClassifyVideo turns one frame reading into signals in a fixed order:
// face_absent, head_turned, multiple_faces, prohibited_object.
func ClassifyVideo(cfg models.ProctoringConfig, r models.VideoSignals, at time.Time) []models.Signal {
	if !r.Available {
		return nil
	}

	var out []models.Signal

	faceVisible := r.FaceCount > 0 && r.FaceConfidence >= cfg.FaceDetectionThreshold
	if !faceVisible {
		out = append(out, models.NewSignal(models.SignalFaceAbsent, at, 1-r.FaceConfidence, map[string]any{
			"face_count":      r.FaceCount,
			"face_confidence": r.FaceConfidence,
		}))
	}

	if faceVisible {
		if meta, turned := headTurned(cfg, r); turned {
			out = append(out, models.NewSignal(models.SignalHeadTurned, at, r.FaceConfidence, meta))
		}
	}

	if r.FaceCount > 1 {
		out = append(out, models.NewSignal(models.SignalMultipleFaces, at, r.FaceConfidence, map[string]any{
			"face_count": r.FaceCount,
		}))
	}

	if obj, ok := strongestProhibited(cfg, r.Objects); ok {
		out = append(out, models.NewSignal(models.SignalProhibitedObject, at, obj.Confidence, map[string]any{
			"object_class": strings.ToLower(obj.Class),
			"box":          obj.Box,
		}))
	}

	return out
}

// ClassifyAudio turns one audio reading into signals: noise, then speech.
func ClassifyAudio(cfg models.ProctoringConfig, r models.AudioSignals, at time.Time) []models.Signal {
	if !r.Available {
		return nil
	}

	var out []models.Signal
	if r.DBLevel > cfg.NoiseThresholdDB {
		out = append(out, models.NewSignal(models.SignalNoise, at, 1, map[string]any{
			"db_level": r.DBLevel,
		}))
	}
	if cfg.SpeechDetectionEnabled && r.SpeechDetected {
		out = append(out, models.NewSignal(models.SignalSpeech, at, 1, map[string]any{
			"db_level": r.DBLevel,
		}))
	}
	return out
}

func headTurned(cfg models.ProctoringConfig, r models.VideoSignals) (map[string]any, bool) {
	meta := map[string]any{}
	turned := false
	if r.Yaw != nil {
		meta["yaw"] = *r.Yaw
		if math.Abs(*r.Yaw) > cfg.HeadTurnThreshold {
			turned = true
		}
	}
	if r.Pitch != nil {
		meta["pitch"] = *r.Pitch
		if math.Abs(*r.Pitch) > cfg.HeadPitchThreshold {
			turned = true
		}
	}
	return meta, turned
}

func strongestProhibited(cfg models.ProctoringConfig, objects []models.DetectedObject) (models.DetectedObject, bool) {
	var best models.DetectedObject
	found := false
	for _, obj := range objects {
		if !IsProhibited(obj.Class) || obj.Confidence < cfg.ObjectDetectionThreshold {
			continue
		}
		if !found || obj.Confidence > best.Confidence {
			best = obj
			found = true
		}
	}
	return best, found
}
