package scoring

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"proctor/internal/proctoring/models"
)

func violation(t models.SignalType) models.Violation {
	return models.Violation{Type: t, Severity: t.Severity(), Timestamp: time.Now()}
}

func repeat(t models.SignalType, n int) []models.Violation {
	out := make([]models.Violation, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, violation(t))
	}
	return out
}

func TestBehaviorScore_NoViolationsIsPerfect(t *testing.T) {
	assert.Equal(t, 100.0, BehaviorScore(nil))
}

func TestBehaviorScore_SingleViolationPenalties(t *testing.T) {
	tests := []struct {
		signal models.SignalType
		want   float64
	}{
		{models.SignalFaceAbsent, 95},
		{models.SignalHeadTurned, 97},
		{models.SignalMultipleFaces, 90},
		{models.SignalProhibitedObject, 90},
		{models.SignalSpeech, 95},
		{models.SignalNoise, 97},
		{models.SignalTabSwitching, 95},
	}
	for _, tt := range tests {
		t.Run(string(tt.signal), func(t *testing.T) {
			assert.Equal(t, tt.want, BehaviorScore([]models.Violation{violation(tt.signal)}))
		})
	}
}

func TestPenaltyFor_CapsSeverity(t *testing.T) {
	inflated := models.Violation{Type: models.SignalNoise, Severity: 50}
	assert.Equal(t, 3.0, PenaltyFor(inflated))

	unknown := models.Violation{Type: "gaze_drift", Severity: 4}
	assert.Equal(t, 4.0, PenaltyFor(unknown))

	negative := models.Violation{Type: models.SignalSpeech, Severity: -3}
	assert.Equal(t, 0.0, PenaltyFor(negative))
}

func TestEscalation_FourthViolationAddsTwo(t *testing.T) {
	three := Compute(repeat(models.SignalHeadTurned, 3))
	four := Compute(repeat(models.SignalHeadTurned, 4))

	assert.Equal(t, 9.0, three.TotalPenalty)
	assert.Equal(t, 0.0, three.EscalationPenalty)
	assert.Equal(t, 3.0+2*float64(4-3), four.TotalPenalty-three.TotalPenalty)
	assert.Equal(t, 14.0, four.TotalPenalty)
}

func TestEscalation_IsPerType(t *testing.T) {
	mixed := append(repeat(models.SignalNoise, 3), repeat(models.SignalSpeech, 3)...)
	b := Compute(mixed)

	assert.Equal(t, 0.0, b.EscalationPenalty)
	assert.Equal(t, 100.0-9-15, b.Score)
	assert.Equal(t, 3, b.ByType[models.SignalNoise].Count)
}

func TestBehaviorScore_FloorsAtZero(t *testing.T) {
	assert.Equal(t, 0.0, BehaviorScore(repeat(models.SignalMultipleFaces, 20)))
}

func TestBehaviorScore_BoundedAndMonotonic(t *testing.T) {
	types := models.AllSignalTypes()
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 200; run++ {
		var log []models.Violation
		prev := BehaviorScore(log)
		for i := 0; i < 40; i++ {
			log = append(log, violation(types[rng.Intn(len(types))]))
			score := BehaviorScore(log)

			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 100.0)
			assert.LessOrEqual(t, score, prev, "score must never recover")
			prev = score
		}
	}
}

func TestBehaviorScore_OrderIndependent(t *testing.T) {
	a := []models.Violation{violation(models.SignalNoise), violation(models.SignalSpeech), violation(models.SignalNoise)}
	b := []models.Violation{a[2], a[1], a[0]}

	assert.Equal(t, BehaviorScore(a), BehaviorScore(b))
}
