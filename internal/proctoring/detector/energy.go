package detector

import (
	"context"
	"math"

	"proctor/internal/proctoring/models"
)

// EnergyAnalyzer is the built-in AudioAnalyzer. Level is the RMS of the chunk
// in dBFS shifted by a calibration offset so that normal room tone lands
// around 30-40 dB and raised voices above 60. Speech is assumed when the
// level clears MinSpeechDB and the zero-crossing rate sits in the voiced band.
type EnergyAnalyzer struct {
	CalibrationOffsetDB float64
	MinSpeechDB         float64
	MinCrossingsPerSec  float64
	MaxCrossingsPerSec  float64
}

// silenceFloorDB is reported for an all-zero chunk.
const silenceFloorDB = 0.0

func NewEnergyAnalyzer() *EnergyAnalyzer {
	return &EnergyAnalyzer{
		CalibrationOffsetDB: 94,
		MinSpeechDB:         45,
		MinCrossingsPerSec:  150,
		MaxCrossingsPerSec:  3000,
	}
}

func (e *EnergyAnalyzer) Analyze(_ context.Context, chunk models.AudioChunk) (*models.AudioAnalysis, error) {
	level := e.level(chunk.Samples)
	zcr := crossingsPerSecond(chunk)
	speech := level >= e.MinSpeechDB && zcr >= e.MinCrossingsPerSec && zcr <= e.MaxCrossingsPerSec
	return &models.AudioAnalysis{DBLevel: level, SpeechDetected: speech}, nil
}

func (e *EnergyAnalyzer) level(samples []float32) float64 {
	if len(samples) == 0 {
		return silenceFloorDB
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	if rms == 0 {
		return silenceFloorDB
	}
	return math.Max(silenceFloorDB, 20*math.Log10(rms)+e.CalibrationOffsetDB)
}

func crossingsPerSecond(chunk models.AudioChunk) float64 {
	if len(chunk.Samples) < 2 || chunk.SampleRate <= 0 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(chunk.Samples); i++ {
		if (chunk.Samples[i-1] >= 0) != (chunk.Samples[i] >= 0) {
			crossings++
		}
	}
	seconds := float64(len(chunk.Samples)) / float64(chunk.SampleRate)
	return float64(crossings) / seconds
}
