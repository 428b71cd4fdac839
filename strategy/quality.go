package strategy

import (
	"fmt"
	"sort"

	"github.com/fableforge/storyforge"
)

// QualityFirst picks the provider with the highest quality score.
type QualityFirst struct{}

var _ storyforge.Strategy = (*QualityFirst)(nil)

func (s *QualityFirst) Name() string { return "quality_first" }

// Select orders candidates by quality score descending.
func (s *QualityFirst) Select(req storyforge.Request, candidates []storyforge.Candidate) storyforge.RoutingDecision {
	sorted := make([]storyforge.Candidate, len(candidates))
	copy(sorted, candidates)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Config.QualityScore > sorted[j].Config.QualityScore
	})

	reasoning := fmt.Sprintf("highest quality at %.1f/10", sorted[0].Config.QualityScore)
	return decision(sorted, reasoning, 0.95, capped(names(sorted), 2))
}
