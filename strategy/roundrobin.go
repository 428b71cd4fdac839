package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/fableforge/storyforge"
)

// RoundRobin rotates deterministically over the eligible set, independent
// of cost or quality, for even load distribution. The rotation index is
// owned by the strategy value, so one RoundRobin must be shared across
// calls for the rotation to advance.
type RoundRobin struct {
	mu    sync.Mutex
	index int
}

var _ storyforge.Strategy = (*RoundRobin)(nil)

func (s *RoundRobin) Name() string { return "round_robin" }

// Select picks the next provider in name order.
func (s *RoundRobin) Select(req storyforge.Request, candidates []storyforge.Candidate) storyforge.RoutingDecision {
	sorted := make([]storyforge.Candidate, len(candidates))
	copy(sorted, candidates)

	// Sort by name for a stable rotation order.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	s.mu.Lock()
	pick := s.index % len(sorted)
	s.index++
	turn := s.index
	s.mu.Unlock()

	// Rotate so the chosen candidate comes first; the rest keep their
	// wrap-around order as alternatives.
	rotated := append(append([]storyforge.Candidate{}, sorted[pick:]...), sorted[:pick]...)

	reasoning := fmt.Sprintf("round-robin selection (turn %d)", turn)
	return decision(rotated, reasoning, 0.7, names(rotated))
}
