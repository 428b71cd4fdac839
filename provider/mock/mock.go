// Package mock provides a configurable in-memory media provider for
// tests and demos.
package mock

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/fableforge/storyforge"
)

// Provider is a mock media provider.
type Provider struct {
	name         string
	latency      time.Duration
	failAfter    int
	callCount    atomic.Int64
	staticErr    error
	costPerUnit  float64
	responseFunc func(storyforge.Request) (storyforge.Response, error)
}

var _ storyforge.Provider = (*Provider)(nil)

// Option configures a mock Provider.
type Option func(*Provider)

// New creates a mock provider with the given options.
func New(opts ...Option) *Provider {
	p := &Provider{
		name:        "mock",
		costPerUnit: 0.00001,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithName sets the provider name.
func WithName(name string) Option {
	return func(p *Provider) { p.name = name }
}

// WithLatency adds simulated latency to each call.
func WithLatency(d time.Duration) Option {
	return func(p *Provider) { p.latency = d }
}

// WithFailAfter makes the provider fail after N successful calls.
func WithFailAfter(n int) Option {
	return func(p *Provider) { p.failAfter = n }
}

// WithError makes the provider always return this error.
func WithError(err error) Option {
	return func(p *Provider) { p.staticErr = err }
}

// WithCostPerUnit sets the per-unit cost billed by the mock.
func WithCostPerUnit(cost float64) Option {
	return func(p *Provider) { p.costPerUnit = cost }
}

// WithResponseFunc sets a custom response function.
func WithResponseFunc(fn func(storyforge.Request) (storyforge.Response, error)) Option {
	return func(p *Provider) { p.responseFunc = fn }
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) Generate(ctx context.Context, req storyforge.Request) (storyforge.Response, error) {
	if p.latency > 0 {
		select {
		case <-time.After(p.latency):
		case <-ctx.Done():
			return storyforge.Response{}, ctx.Err()
		}
	}

	count := p.callCount.Add(1)

	if p.staticErr != nil {
		return storyforge.Response{}, p.staticErr
	}

	if p.failAfter > 0 && int(count) > p.failAfter {
		return storyforge.Response{}, storyforge.ErrProviderUnavailable
	}

	if p.responseFunc != nil {
		return p.responseFunc(req)
	}

	return storyforge.Response{
		Data:     []byte("mock " + string(req.Kind) + " output"),
		Provider: p.name,
		Model:    "mock-model",
		Cost:     float64(req.Units()) * p.costPerUnit,
		Latency:  p.latency,
	}, nil
}

// CallCount returns the number of calls made to the provider.
func (p *Provider) CallCount() int64 { return p.callCount.Load() }
