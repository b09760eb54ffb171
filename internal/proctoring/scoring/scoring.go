// Package scoring derives the behavior score from a violation log.
//
// The score is a pure function of the log. Penalties only accumulate, so the
// score never rises as violations are appended.
package scoring

import (
	"math"

	"proctor/internal/proctoring/models"
)

const (
	MaxScore = 100.0

	// escalationFreeCount is how many violations of one type are tolerated
	// before each further one adds escalationStep.
	escalationFreeCount = 3
	escalationStep      = 2.0
)

// penaltyCaps bounds the penalty a single violation of each type can add.
var penaltyCaps = map[models.SignalType]float64{
	models.SignalFaceAbsent:       5,
	models.SignalHeadTurned:       3,
	models.SignalMultipleFaces:    10,
	models.SignalProhibitedObject: 10,
	models.SignalSpeech:           5,
	models.SignalNoise:            3,
	models.SignalTabSwitching:     5,
}

// PenaltyFor returns the capped penalty for one violation. Unknown types are
// capped by their own severity.
func PenaltyFor(v models.Violation) float64 {
	sev := math.Max(0, float64(v.Severity))
	limit, ok := penaltyCaps[v.Type]
	if !ok {
		return sev
	}
	return math.Min(limit, sev)
}

// EscalationFor returns the repeat penalty for count violations of one type.
func EscalationFor(count int) float64 {
	if count <= escalationFreeCount {
		return 0
	}
	return escalationStep * float64(count-escalationFreeCount)
}

// TypeBreakdown is the penalty attributed to one violation type.
type TypeBreakdown struct {
	Count      int     `json:"count"`
	Penalty    float64 `json:"penalty"`
	Escalation float64 `json:"escalation"`
}

// Breakdown explains a score for reviewers.
type Breakdown struct {
	Score             float64                             `json:"score"`
	TotalPenalty      float64                             `json:"total_penalty"`
	ViolationPenalty  float64                             `json:"violation_penalty"`
	EscalationPenalty float64                             `json:"escalation_penalty"`
	ByType            map[models.SignalType]TypeBreakdown `json:"by_type"`
}

// Compute scores violations and returns the arithmetic behind the result.
func Compute(violations []models.Violation) Breakdown {
	b := Breakdown{ByType: make(map[models.SignalType]TypeBreakdown)}

	for _, v := range violations {
		p := PenaltyFor(v)
		tb := b.ByType[v.Type]
		tb.Count++
		tb.Penalty += p
		b.ByType[v.Type] = tb
		b.ViolationPenalty += p
	}

	for t, tb := range b.ByType {
		tb.Escalation = EscalationFor(tb.Count)
		b.ByType[t] = tb
		b.EscalationPenalty += tb.Escalation
	}

	b.TotalPenalty = b.ViolationPenalty + b.EscalationPenalty
	b.Score = math.Max(0, MaxScore-b.TotalPenalty)
	return b
}

// BehaviorScore returns the score in [0, 100] for violations.
func BehaviorScore(violations []models.Violation) float64 {
	return Compute(violations).Score
}
