package models

import (
	"fmt"
	"maps"
	"time"

	id "proctor/pkg/domain"
)

// Violation is a signal confirmed by the debouncer. It is immutable once
// appended to a session log.
type Violation struct {
	ID          id.ViolationID `json:"id"`
	Type        SignalType     `json:"type"`
	Timestamp   time.Time      `json:"timestamp"`
	Severity    int            `json:"severity"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// NewViolation confirms sig after ticks consecutive observations.
func NewViolation(sig Signal, ticks int, at time.Time) Violation {
	meta := make(map[string]any, len(sig.Metadata)+2)
	maps.Copy(meta, sig.Metadata)
	meta["consecutive_ticks"] = ticks
	meta["confidence"] = sig.Confidence

	desc := sig.Type.Description()
	if ticks > 1 {
		desc = fmt.Sprintf("%s for %d consecutive checks", desc, ticks)
	}
	if class, ok := sig.Metadata["object_class"].(string); ok && class != "" {
		desc = fmt.Sprintf("%s (%s)", desc, class)
	}

	return Violation{
		ID:          id.NewViolationID(),
		Type:        sig.Type,
		Timestamp:   at,
		Severity:    sig.Type.Severity(),
		Description: desc,
		Metadata:    meta,
	}
}

// CountByType groups violations by type.
func CountByType(violations []Violation) map[SignalType]int {
	counts := make(map[SignalType]int)
	for _, v := range violations {
		counts[v.Type]++
	}
	return counts
}
