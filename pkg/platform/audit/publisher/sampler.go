package publisher

import (
	"math/rand"
	"sync"
)

// RateSampler keeps a configurable fraction of events per action.
// High-volume operational events such as detector outages are sampled down
// while every other action keeps the default rate.
type RateSampler struct {
	mu           sync.Mutex
	defaultRate  float64
	rateByAction map[string]float64
	rng          *rand.Rand
}

// NewRateSampler creates a sampler. Rates are clamped to [0, 1].
func NewRateSampler(defaultRate float64, rates map[string]float64) *RateSampler {
	s := &RateSampler{
		defaultRate:  clampRate(defaultRate),
		rateByAction: make(map[string]float64, len(rates)),
		rng:          rand.New(rand.NewSource(rand.Int63())), //nolint:gosec // sampling doesn't need crypto rand
	}
	for action, rate := range rates {
		s.rateByAction[action] = clampRate(rate)
	}
	return s
}

// ShouldSample returns true if the event should be kept.
func (s *RateSampler) ShouldSample(action string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rate, ok := s.rateByAction[action]
	if !ok {
		rate = s.defaultRate
	}
	switch rate {
	case 0:
		return false
	case 1:
		return true
	}
	return s.rng.Float64() < rate
}

// SetRate overrides the rate for one action.
func (s *RateSampler) SetRate(action string, rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateByAction[action] = clampRate(rate)
}

func clampRate(rate float64) float64 {
	if rate < 0 {
		return 0
	}
	if rate > 1 {
		return 1
	}
	return rate
}
