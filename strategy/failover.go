package strategy

import (
	"fmt"
	"sort"

	"github.com/fableforge/storyforge"
)

// Failover sorts by static priority. The alternatives list is the full
// remaining priority order, so Execute can walk every fallback.
type Failover struct{}

var _ storyforge.Strategy = (*Failover)(nil)

func (s *Failover) Name() string { return "failover" }

// Select orders candidates by priority ascending (1 = highest).
func (s *Failover) Select(req storyforge.Request, candidates []storyforge.Candidate) storyforge.RoutingDecision {
	sorted := make([]storyforge.Candidate, len(candidates))
	copy(sorted, candidates)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Config.Priority < sorted[j].Config.Priority
	})

	reasoning := fmt.Sprintf("primary provider (priority %d)", sorted[0].Config.Priority)
	return decision(sorted, reasoning, 0.9, names(sorted))
}
