// Package strategy provides the routing strategies accepted by the
// storyforge Router. Each strategy orders the eligible candidates and
// exposes the remainder as ranked failover alternatives.
package strategy

import (
	"github.com/fableforge/storyforge"
)

// names returns the candidate names after the first, in order.
func names(sorted []storyforge.Candidate) []string {
	out := make([]string, 0, len(sorted)-1)
	for _, c := range sorted[1:] {
		out = append(out, c.Name)
	}
	return out
}

// capped returns at most n alternatives.
func capped(alts []string, n int) []string {
	if len(alts) > n {
		return alts[:n]
	}
	return alts
}

// decision builds a RoutingDecision for the first candidate of a sorted
// slice.
func decision(sorted []storyforge.Candidate, reasoning string, confidence float64, alts []string) storyforge.RoutingDecision {
	chosen := sorted[0]
	return storyforge.RoutingDecision{
		Provider:         chosen.Name,
		Reasoning:        reasoning,
		Confidence:       confidence,
		Alternatives:     alts,
		EstimatedCost:    chosen.EstimatedCost,
		EstimatedLatency: chosen.Config.AvgLatencyMS,
		EstimatedQuality: chosen.Config.QualityScore,
	}
}
