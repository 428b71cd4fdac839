package storyforge

import "time"

// MediaKind identifies which generation capability a request needs.
type MediaKind string

const (
	MediaAudio MediaKind = "audio"
	MediaImage MediaKind = "image"
)

// ContentClass tags how a request should be optimized.
type ContentClass string

const (
	ContentFeatured     ContentClass = "featured"     // premium quality required
	ContentBulk         ContentClass = "bulk"         // cost optimization priority
	ContentInteractive  ContentClass = "interactive"  // low latency required
	ContentExperimental ContentClass = "experimental" // testing new features
	ContentCustomVoice  ContentClass = "custom_voice" // voice cloning required
)

// QualityLevel is the requested output quality.
type QualityLevel string

const (
	QualityBasic    QualityLevel = "basic"
	QualityStandard QualityLevel = "standard"
	QualityPremium  QualityLevel = "premium"
	QualityUltra    QualityLevel = "ultra"
)

// Request is a single media generation request.
type Request struct {
	ID           string
	Kind         MediaKind
	ContentClass ContentClass
	Quality      QualityLevel
	Payload      string // text to narrate, or image prompt
	Voice        string
	Format       string
}

// Units returns the billable size of the request. Providers price per
// character of payload regardless of media kind.
func (r Request) Units() int { return len(r.Payload) }

// Response is the result of a successful media generation call.
type Response struct {
	Data     []byte
	URL      string
	Provider string
	Model    string
	Cost     float64
	Latency  time.Duration
	Routing  RoutingInfo
}

// RoutingInfo describes how a response was routed.
type RoutingInfo struct {
	Provider   string
	Strategy   string
	Reasoning  string
	Confidence float64
	Attempts   int
	FailedOver bool
}

// RoutingDecision is the outcome of a provider selection. Alternatives
// hold the ranked failover order after the chosen provider.
type RoutingDecision struct {
	Provider         string
	Reasoning        string
	Confidence       float64
	Alternatives     []string
	EstimatedCost    float64
	EstimatedLatency float64 // milliseconds
	EstimatedQuality float64
}

// Candidate is an eligible provider presented to a Strategy, with a
// snapshot of its live state at selection time.
type Candidate struct {
	Name          string
	Config        ProviderConfig
	InFlight      int
	DailySpend    float64
	EstimatedCost float64
}
