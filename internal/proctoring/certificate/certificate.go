// Package certificate combines the exam score with the behavior score and
// decides whether a certificate may be issued.
//
// A single severe violation denies the certificate no matter how high the
// combined score is.
package certificate

import (
	"math"

	"proctor/internal/proctoring/models"
)

const (
	// PassingScore is the minimum final score for a certificate.
	PassingScore = 85.0
	// SevereViolation is the severity at or above which any single
	// violation denies the certificate.
	SevereViolation = 8
)

// Reason explains a gate outcome. Only the first failing rule is reported.
type Reason string

const (
	ReasonEligible          Reason = "eligible"
	ReasonBelowThreshold    Reason = "final_score_below_threshold"
	ReasonSevereViolation   Reason = "severe_violation"
	ReasonTooManyViolations Reason = "too_many_violations"
)

// Decision is the outcome of one gate evaluation.
type Decision struct {
	TestScore     float64 `json:"test_score"`
	BehaviorScore float64 `json:"behavior_score"`
	FinalScore    float64 `json:"final_score"`
	Issue         bool    `json:"issue"`
	Reason        Reason  `json:"reason"`
}

// FinalScore weights the test and behavior scores and clamps to [0, 100].
func FinalScore(policy models.ProctoringConfig, testScore, behaviorScore float64) float64 {
	final := policy.TestScoreWeight*testScore + policy.BehaviorScoreWeight*behaviorScore
	return math.Min(100, math.Max(0, final))
}

// ShouldIssueCertificate applies the gate rules to a final score.
func ShouldIssueCertificate(policy models.ProctoringConfig, finalScore float64, violations []models.Violation) bool {
	return gate(policy, finalScore, violations) == ReasonEligible
}

// Evaluate combines the scores and applies the gate.
func Evaluate(policy models.ProctoringConfig, testScore, behaviorScore float64, violations []models.Violation) Decision {
	final := FinalScore(policy, testScore, behaviorScore)
	reason := gate(policy, final, violations)
	return Decision{
		TestScore:     testScore,
		BehaviorScore: behaviorScore,
		FinalScore:    final,
		Issue:         reason == ReasonEligible,
		Reason:        reason,
	}
}

func gate(policy models.ProctoringConfig, finalScore float64, violations []models.Violation) Reason {
	if finalScore < PassingScore {
		return ReasonBelowThreshold
	}
	for _, v := range violations {
		if v.Severity >= SevereViolation {
			return ReasonSevereViolation
		}
	}
	if len(violations) > policy.MaxViolations {
		return ReasonTooManyViolations
	}
	return ReasonEligible
}
