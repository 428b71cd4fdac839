package storyforge

// Strategy selects one provider from the eligible candidates and ranks
// the rest as failover alternatives.
type Strategy interface {
	// Name returns the strategy identifier (e.g. "balanced").
	Name() string

	// Select picks a provider for the request. Candidates is never empty.
	Select(req Request, candidates []Candidate) RoutingDecision
}
