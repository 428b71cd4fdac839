package strategy

import (
	"fmt"
	"sort"

	"github.com/fableforge/storyforge"
)

// LatencyOptimized picks the provider with the lowest average latency.
type LatencyOptimized struct{}

var _ storyforge.Strategy = (*LatencyOptimized)(nil)

func (s *LatencyOptimized) Name() string { return "latency_optimized" }

// Select orders candidates by average latency ascending.
func (s *LatencyOptimized) Select(req storyforge.Request, candidates []storyforge.Candidate) storyforge.RoutingDecision {
	sorted := make([]storyforge.Candidate, len(candidates))
	copy(sorted, candidates)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Config.AvgLatencyMS < sorted[j].Config.AvgLatencyMS
	})

	reasoning := fmt.Sprintf("fastest response at %.0fms average", sorted[0].Config.AvgLatencyMS)
	return decision(sorted, reasoning, 0.85, capped(names(sorted), 2))
}
