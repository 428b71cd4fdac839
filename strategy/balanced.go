package strategy

import (
	"fmt"
	"sort"

	"github.com/fableforge/storyforge"
)

// Normalization ceilings for the balanced score. Costs at or above
// $100/million units score zero on cost; latencies at or above 500ms
// score zero on speed.
const (
	balancedCostCeiling    = 0.0001
	balancedLatencyCeiling = 500.0
)

// Balanced combines normalized cost, quality and latency with
// content-class-dependent weights. Ties are broken by provider priority,
// so selection is deterministic for a fixed candidate set.
type Balanced struct{}

var _ storyforge.Strategy = (*Balanced)(nil)

func (s *Balanced) Name() string { return "balanced" }

// Select orders candidates by composite score descending.
func (s *Balanced) Select(req storyforge.Request, candidates []storyforge.Candidate) storyforge.RoutingDecision {
	sorted := make([]storyforge.Candidate, len(candidates))
	copy(sorted, candidates)

	scores := make(map[string]float64, len(sorted))
	for _, c := range sorted {
		scores[c.Name] = composite(req.ContentClass, c.Config)
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		si, sj := scores[sorted[i].Name], scores[sorted[j].Name]
		if si != sj {
			return si > sj
		}
		return sorted[i].Config.Priority < sorted[j].Config.Priority
	})

	reasoning := fmt.Sprintf("best balanced score %.3f for %s content",
		scores[sorted[0].Name], req.ContentClass)
	return decision(sorted, reasoning, 0.8, capped(names(sorted), 2))
}

// composite scores a provider on a 0-1 scale, higher is better.
func composite(class storyforge.ContentClass, cfg storyforge.ProviderConfig) float64 {
	costScore := 1.0 - min(cfg.CostPerUnit/balancedCostCeiling, 1.0)
	qualityScore := cfg.QualityScore / 10.0
	latencyScore := 1.0 - min(cfg.AvgLatencyMS/balancedLatencyCeiling, 1.0)

	var wCost, wQuality, wLatency float64
	switch class {
	case storyforge.ContentBulk:
		wCost, wQuality, wLatency = 0.6, 0.2, 0.2
	case storyforge.ContentFeatured:
		wCost, wQuality, wLatency = 0.1, 0.7, 0.2
	case storyforge.ContentInteractive:
		wCost, wQuality, wLatency = 0.2, 0.3, 0.5
	default:
		wCost, wQuality, wLatency = 0.4, 0.4, 0.2
	}

	return wCost*costScore + wQuality*qualityScore + wLatency*latencyScore
}
