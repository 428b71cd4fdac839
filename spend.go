package storyforge

import (
	"sync"
	"time"
)

// SpendTracker tracks per-provider dollar spend with daily reset.
type SpendTracker struct {
	mu        sync.Mutex
	providers map[string]*providerSpend
	resetDay  int // day of year for last reset
}

type providerSpend struct {
	amount float64
}

// NewSpendTracker creates a new SpendTracker.
func NewSpendTracker() *SpendTracker {
	return &SpendTracker{
		providers: make(map[string]*providerSpend),
		resetDay:  time.Now().UTC().YearDay(),
	}
}

// RecordSpend records dollar spend for a provider.
func (s *SpendTracker) RecordSpend(provider string, dollars float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checkReset()

	ps, ok := s.providers[provider]
	if !ok {
		ps = &providerSpend{}
		s.providers[provider] = ps
	}
	ps.amount += dollars
}

// GetSpend returns the current daily spend for a provider.
func (s *SpendTracker) GetSpend(provider string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checkReset()

	ps, ok := s.providers[provider]
	if !ok {
		return 0
	}
	return ps.amount
}

// Summary returns the daily spend for every tracked provider.
func (s *SpendTracker) Summary() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checkReset()

	out := make(map[string]float64, len(s.providers))
	for name, ps := range s.providers {
		out[name] = ps.amount
	}
	return out
}

// checkReset resets all spend if day has changed. Must be called with lock held.
func (s *SpendTracker) checkReset() {
	today := time.Now().UTC().YearDay()
	if today != s.resetDay {
		s.providers = make(map[string]*providerSpend)
		s.resetDay = today
	}
}
