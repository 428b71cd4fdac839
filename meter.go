package storyforge

import "time"

// Meter observes routing events for monitoring/logging.
type Meter interface {
	// OnRoute is called when a routing decision is made.
	OnRoute(event RouteEvent)

	// OnResult is called when a provider returns a result.
	OnResult(event ResultEvent)
}

// RouteEvent describes a routing decision.
type RouteEvent struct {
	Provider      string
	Kind          MediaKind
	Strategy      string
	Reasoning     string
	AttemptNum    int
	Units         int
	EstimatedCost float64
}

// ResultEvent describes the outcome of a provider call.
type ResultEvent struct {
	Provider   string
	Kind       MediaKind
	Strategy   string
	Success    bool
	FailedOver bool
	Duration   time.Duration
	Cost       float64
	Error      error
}
