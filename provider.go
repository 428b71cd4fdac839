package storyforge

import "context"

// Provider is the interface that media generation adapters must implement.
type Provider interface {
	// Name returns the provider identifier (e.g. "elevenlabs", "runware").
	Name() string

	// Generate performs a synchronous generation call.
	Generate(ctx context.Context, req Request) (Response, error)
}

// Capabilities declares what a provider can handle. Requests outside
// these limits exclude the provider from eligibility.
type Capabilities struct {
	Kinds             []MediaKind `yaml:"kinds"`
	MaxUnits          int         `yaml:"max_units"`
	Formats           []string    `yaml:"formats"`
	MinLatencyMS      float64     `yaml:"min_latency_ms"`
	SupportsStreaming bool        `yaml:"supports_streaming"`
	SupportsCloning   bool        `yaml:"supports_cloning"`
}

// HandlesKind reports whether the provider serves the given media kind.
func (c Capabilities) HandlesKind(kind MediaKind) bool {
	for _, k := range c.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// HandlesFormat reports whether the provider supports the output format.
// An empty format list means any format is accepted.
func (c Capabilities) HandlesFormat(format string) bool {
	if format == "" || len(c.Formats) == 0 {
		return true
	}
	for _, f := range c.Formats {
		if f == format {
			return true
		}
	}
	return false
}

// ProviderConfig is the operator-tunable configuration for one provider.
type ProviderConfig struct {
	Name          string       `yaml:"name"`
	Priority      int          `yaml:"priority"` // 1 = highest
	QualityScore  float64      `yaml:"quality_score"`
	AvgLatencyMS  float64      `yaml:"avg_latency_ms"`
	CostPerUnit   float64      `yaml:"cost_per_unit"`
	MaxConcurrent int          `yaml:"max_concurrent"`
	MaxDailyCost  float64      `yaml:"max_daily_cost"`
	Enabled       bool         `yaml:"enabled"`
	Capabilities  Capabilities `yaml:"capabilities"`
}
