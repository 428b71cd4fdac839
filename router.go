package storyforge

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Router routes media generation requests across multiple providers.
type Router struct {
	mu         sync.Mutex
	providers  map[string]*providerState
	order      []string // config order, for stable iteration
	meter      Meter
	health     *HealthTracker
	spend      *SpendTracker
	maxRetries int
}

type providerState struct {
	config   ProviderConfig
	client   Provider
	inFlight int
	lastUsed time.Time
}

// Option configures a Router.
type Option func(*Router)

// WithMeter sets the meter.
func WithMeter(m Meter) Option {
	return func(r *Router) { r.meter = m }
}

// WithHealthTracker sets the health tracker.
func WithHealthTracker(h *HealthTracker) Option {
	return func(r *Router) { r.health = h }
}

// WithSpendTracker sets the per-provider spend tracker.
func WithSpendTracker(s *SpendTracker) Option {
	return func(r *Router) { r.spend = s }
}

// WithMaxRetries sets how many failover alternatives Execute may try
// after the chosen provider fails.
func WithMaxRetries(n int) Option {
	return func(r *Router) { r.maxRetries = n }
}

// NewRouter creates a Router from provider configs and their adapters.
// Every config must have a matching adapter by name. Default components
// (NoopMeter, fresh health/spend trackers, 3 retries) are used unless
// overridden via options.
func NewRouter(configs []ProviderConfig, providers []Provider, opts ...Option) (*Router, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("storyforge: at least one provider config is required")
	}

	clients := make(map[string]Provider, len(providers))
	for _, p := range providers {
		clients[p.Name()] = p
	}

	r := &Router{
		providers:  make(map[string]*providerState, len(configs)),
		maxRetries: 3,
	}

	for _, cfg := range configs {
		client, ok := clients[cfg.Name]
		if !ok {
			return nil, fmt.Errorf("storyforge: no adapter for provider %q", cfg.Name)
		}
		if _, dup := r.providers[cfg.Name]; dup {
			return nil, fmt.Errorf("storyforge: duplicate provider %q", cfg.Name)
		}
		r.providers[cfg.Name] = &providerState{config: cfg, client: client}
		r.order = append(r.order, cfg.Name)
	}

	for _, opt := range opts {
		opt(r)
	}

	// Apply defaults after options.
	if r.meter == nil {
		r.meter = &noopMeter{}
	}
	if r.health == nil {
		r.health = NewHealthTracker()
	}
	if r.spend == nil {
		r.spend = NewSpendTracker()
	}

	return r, nil
}

// Select picks a provider for the request using the given strategy,
// without performing any call. A nil strategy falls back to static
// priority order.
func (r *Router) Select(req Request, s Strategy) (RoutingDecision, error) {
	if s == nil {
		s = &defaultPriorityStrategy{}
	}

	r.mu.Lock()
	cands := r.candidates(req)
	r.mu.Unlock()

	if len(cands) == 0 {
		return RoutingDecision{}, ErrNoProviders
	}
	return s.Select(req, cands), nil
}

// Execute routes and performs the request. On failure it walks the
// decision's alternatives, up to the configured retry limit. In-flight
// counters are incremented before each call and decremented regardless
// of outcome; actual cost is added to the provider's daily spend on
// success.
func (r *Router) Execute(ctx context.Context, req Request, s Strategy) (Response, error) {
	if s == nil {
		s = &defaultPriorityStrategy{}
	}

	decision, err := r.Select(req, s)
	if err != nil {
		return Response{}, err
	}

	attempts := append([]string{decision.Provider}, decision.Alternatives...)
	if len(attempts) > 1+r.maxRetries {
		attempts = attempts[:1+r.maxRetries]
	}

	var lastErr error
	for i, name := range attempts {
		resp, err := r.attempt(ctx, req, s, decision, name, i)
		if err == nil {
			return resp, nil
		}

		r.health.RecordFailure(name)
		if IsFatal(err) {
			return Response{}, &RouteError{
				Err:      err,
				Provider: name,
				Kind:     req.Kind,
				Strategy: s.Name(),
				Attempts: i + 1,
			}
		}
		lastErr = err
	}

	return Response{}, &RouteError{
		Err:      fmt.Errorf("%w: %v", ErrAllFailed, lastErr),
		Provider: decision.Provider,
		Kind:     req.Kind,
		Strategy: s.Name(),
		Attempts: len(attempts),
	}
}

// attempt performs one provider call with counter bookkeeping.
func (r *Router) attempt(ctx context.Context, req Request, s Strategy, decision RoutingDecision, name string, attemptNum int) (Response, error) {
	r.mu.Lock()
	ps, ok := r.providers[name]
	if !ok {
		r.mu.Unlock()
		return Response{}, fmt.Errorf("storyforge: unknown provider %q", name)
	}
	ps.inFlight++
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		ps.inFlight--
		r.mu.Unlock()
	}()

	reasoning := decision.Reasoning
	if attemptNum > 0 {
		reasoning = fmt.Sprintf("failover from %s", decision.Provider)
	}

	r.meter.OnRoute(RouteEvent{
		Provider:      name,
		Kind:          req.Kind,
		Strategy:      s.Name(),
		Reasoning:     reasoning,
		AttemptNum:    attemptNum + 1,
		Units:         req.Units(),
		EstimatedCost: float64(req.Units()) * ps.config.CostPerUnit,
	})

	start := time.Now()
	resp, err := ps.client.Generate(ctx, req)
	duration := time.Since(start)

	r.meter.OnResult(ResultEvent{
		Provider:   name,
		Kind:       req.Kind,
		Strategy:   s.Name(),
		Success:    err == nil,
		FailedOver: attemptNum > 0,
		Duration:   duration,
		Cost:       resp.Cost,
		Error:      err,
	})

	if err != nil {
		return Response{}, err
	}

	r.spend.RecordSpend(name, resp.Cost)
	r.health.RecordSuccess(name)

	r.mu.Lock()
	ps.lastUsed = time.Now()
	r.mu.Unlock()

	confidence := decision.Confidence
	if attemptNum > 0 {
		confidence = 0.6
	}

	resp.Provider = name
	if resp.Latency == 0 {
		resp.Latency = duration
	}
	resp.Routing = RoutingInfo{
		Provider:   name,
		Strategy:   s.Name(),
		Reasoning:  reasoning,
		Confidence: confidence,
		Attempts:   attemptNum + 1,
		FailedOver: attemptNum > 0,
	}
	return resp, nil
}

// ProviderStats is a point-in-time view of one provider's routing state.
type ProviderStats struct {
	Config    ProviderConfig
	InFlight  int
	DailyCost float64
	Health    HealthState
	LastUsed  time.Time
}

// Stats returns routing state for every configured provider.
func (r *Router) Stats() map[string]ProviderStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]ProviderStats, len(r.providers))
	for name, ps := range r.providers {
		out[name] = ProviderStats{
			Config:    ps.config,
			InFlight:  ps.inFlight,
			DailyCost: r.spend.GetSpend(name),
			Health:    r.health.GetHealth(name),
			LastUsed:  ps.lastUsed,
		}
	}
	return out
}

// CostSummary aggregates today's spend across providers.
type CostSummary struct {
	Total     float64
	Providers map[string]float64
}

// CostSummary returns today's per-provider spend breakdown.
func (r *Router) CostSummary() CostSummary {
	byProvider := r.spend.Summary()
	var total float64
	for _, v := range byProvider {
		total += v
	}
	return CostSummary{Total: total, Providers: byProvider}
}

// defaultPriorityStrategy is an inline priority-order strategy used when
// no strategy is supplied, to avoid an import cycle with the strategy
// subpackage.
type defaultPriorityStrategy struct{}

func (p *defaultPriorityStrategy) Name() string { return "priority" }

func (p *defaultPriorityStrategy) Select(req Request, candidates []Candidate) RoutingDecision {
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Config.Priority < sorted[j].Config.Priority
	})

	chosen := sorted[0]
	alts := make([]string, 0, len(sorted)-1)
	for _, c := range sorted[1:] {
		alts = append(alts, c.Name)
	}

	return RoutingDecision{
		Provider:         chosen.Name,
		Reasoning:        fmt.Sprintf("primary provider (priority %d)", chosen.Config.Priority),
		Confidence:       0.9,
		Alternatives:     alts,
		EstimatedCost:    chosen.EstimatedCost,
		EstimatedLatency: chosen.Config.AvgLatencyMS,
		EstimatedQuality: chosen.Config.QualityScore,
	}
}

// noopMeter is a meter that does nothing.
type noopMeter struct{}

func (m *noopMeter) OnRoute(RouteEvent)   {}
func (m *noopMeter) OnResult(ResultEvent) {}
