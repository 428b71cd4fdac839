package storyforge

// eligible reports whether a provider can serve a request right now.
// The checks run before any strategy sees the candidate list: a provider
// must be enabled, healthy, under its concurrency cap, within its daily
// budget for the estimated cost, and capable of the request.
func eligible(cfg ProviderConfig, req Request, inFlight int, dailySpend, estimatedCost float64) bool {
	if !cfg.Enabled {
		return false
	}
	if inFlight >= cfg.MaxConcurrent {
		return false
	}
	if cfg.MaxDailyCost > 0 && dailySpend+estimatedCost > cfg.MaxDailyCost {
		return false
	}
	return capable(cfg.Capabilities, req)
}

// capable checks the static capability constraints of a provider against
// a request.
func capable(caps Capabilities, req Request) bool {
	if !caps.HandlesKind(req.Kind) {
		return false
	}
	if caps.MaxUnits > 0 && req.Units() > caps.MaxUnits {
		return false
	}
	if !caps.HandlesFormat(req.Format) {
		return false
	}
	if req.ContentClass == ContentCustomVoice && !caps.SupportsCloning {
		return false
	}
	// Interactive content needs sub-100ms first-byte latency.
	if req.ContentClass == ContentInteractive && caps.MinLatencyMS > 100 {
		return false
	}
	return true
}

// candidates builds the eligible candidate list for a request.
// Must be called with r.mu held.
func (r *Router) candidates(req Request) []Candidate {
	var out []Candidate
	for _, name := range r.order {
		ps := r.providers[name]
		spend := r.spend.GetSpend(name)
		est := float64(req.Units()) * ps.config.CostPerUnit

		if r.health.GetHealth(name) == HealthUnhealthy {
			continue
		}
		if !eligible(ps.config, req, ps.inFlight, spend, est) {
			continue
		}

		out = append(out, Candidate{
			Name:          name,
			Config:        ps.config,
			InFlight:      ps.inFlight,
			DailySpend:    spend,
			EstimatedCost: est,
		})
	}
	return out
}
