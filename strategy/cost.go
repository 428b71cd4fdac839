package strategy

import (
	"fmt"
	"sort"

	"github.com/fableforge/storyforge"
)

// CostOptimized picks the eligible provider with the lowest cost per unit.
type CostOptimized struct{}

var _ storyforge.Strategy = (*CostOptimized)(nil)

func (s *CostOptimized) Name() string { return "cost_optimized" }

// Select orders candidates by cost per unit ascending.
func (s *CostOptimized) Select(req storyforge.Request, candidates []storyforge.Candidate) storyforge.RoutingDecision {
	sorted := make([]storyforge.Candidate, len(candidates))
	copy(sorted, candidates)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Config.CostPerUnit < sorted[j].Config.CostPerUnit
	})

	reasoning := fmt.Sprintf("cheapest option at $%.2f/million units",
		sorted[0].Config.CostPerUnit*1_000_000)
	return decision(sorted, reasoning, 0.9, capped(names(sorted), 2))
}
