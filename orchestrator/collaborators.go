package orchestrator

import "context"

// Usage reports the billable size of a narrative generation call.
type Usage struct {
	InputUnits  int64
	OutputUnits int64
}

// Chapter is one chapter of a generated narrative.
type Chapter struct {
	ID    string
	Title string
	Text  string
}

// Narrative is the output of a narrative generation call.
type Narrative struct {
	Title     string
	Text      string
	Chapters  []Chapter
	ModelUsed string
	Usage     Usage
}

// NarrativeGenerator produces story text from a premise. Implementations
// wrap a vendor text-generation API; the orchestrator only relies on
// this contract.
type NarrativeGenerator interface {
	Generate(ctx context.Context, premise, mood, characters, modelID string) (Narrative, error)
}

// NarrativeFunc adapts a function to the NarrativeGenerator interface.
type NarrativeFunc func(ctx context.Context, premise, mood, characters, modelID string) (Narrative, error)

func (f NarrativeFunc) Generate(ctx context.Context, premise, mood, characters, modelID string) (Narrative, error) {
	return f(ctx, premise, mood, characters, modelID)
}

// QualityReport is the outcome of the quality gate. The scoring
// algorithm is opaque to the orchestrator; only Valid and Score are read.
type QualityReport struct {
	Valid bool
	Score float64 // 0-100
}

// QualityScorer gates generated narratives.
type QualityScorer interface {
	Score(n Narrative) QualityReport
}

// QualityFunc adapts a function to the QualityScorer interface.
type QualityFunc func(n Narrative) QualityReport

func (f QualityFunc) Score(n Narrative) QualityReport { return f(n) }
