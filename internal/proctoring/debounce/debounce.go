// Package debounce confirms violations from consecutive per-tick signals.
//
// Each signal type runs Idle -> Counting(n) -> Confirmed. A tick carrying the
// type increments its counter; reaching the threshold emits one violation and
// returns the counter to zero so a continuing episode can confirm again. A
// tick of the type's modality that lacks the type resets the counter to zero
// immediately, with no grace window.
//
// Face absence needs no special casing here: the classifier reports a missing
// face as a positive face_absent signal and its threshold is the configured
// face absence timeout.
//
// A Debouncer is not safe for concurrent use. The session consumer owns it.
package debounce

import (
	"time"

	"proctor/internal/proctoring/models"
)

// State is the counter for one signal type.
type State struct {
	Count        int    `json:"count"`
	LastSeenTick uint64 `json:"last_seen_tick"`
}

type Debouncer struct {
	cfg    models.ProctoringConfig
	states map[models.SignalType]*State
	ticks  map[models.Modality]uint64
	lastAt map[models.Modality]time.Time
}

func New(cfg models.ProctoringConfig) *Debouncer {
	d := &Debouncer{
		cfg:    cfg,
		states: make(map[models.SignalType]*State),
		ticks:  make(map[models.Modality]uint64),
		lastAt: make(map[models.Modality]time.Time),
	}
	for _, t := range models.AllSignalTypes() {
		d.states[t] = &State{}
	}
	return d
}

// Observe consumes one tick of modality m. Signals of other modalities are
// ignored and repeated types within the tick count once. Returned violations
// carry timestamps that never go backwards within a modality.
func (d *Debouncer) Observe(m models.Modality, signals []models.Signal, at time.Time) []models.Violation {
	d.ticks[m]++
	tick := d.ticks[m]

	if last := d.lastAt[m]; at.Before(last) {
		at = last
	}
	d.lastAt[m] = at

	present := make(map[models.SignalType]models.Signal, len(signals))
	for _, s := range signals {
		if s.Type.Modality() != m {
			continue
		}
		if _, dup := present[s.Type]; !dup {
			present[s.Type] = s
		}
	}

	var confirmed []models.Violation
	for _, t := range models.SignalTypesFor(m) {
		st := d.states[t]
		sig, ok := present[t]
		if !ok {
			st.Count = 0
			continue
		}
		st.Count++
		st.LastSeenTick = tick
		threshold := d.cfg.ThresholdFor(t)
		if st.Count >= threshold {
			confirmed = append(confirmed, models.NewViolation(sig, st.Count, at))
			st.Count = 0
		}
	}
	return confirmed
}

// Snapshot copies the current counters.
func (d *Debouncer) Snapshot() map[models.SignalType]State {
	out := make(map[models.SignalType]State, len(d.states))
	for t, st := range d.states {
		out[t] = *st
	}
	return out
}

// Ticks returns how many ticks of m have been observed.
func (d *Debouncer) Ticks(m models.Modality) uint64 {
	return d.ticks[m]
}
