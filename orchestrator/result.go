package orchestrator

import (
	"fmt"
	"time"

	"github.com/fableforge/storyforge"
	"github.com/fableforge/storyforge/ledger"
)

// ErrorKind is the machine-readable failure classification.
type ErrorKind string

const (
	// KindBudgetExceeded means the daily budget cannot cover any tier.
	// Not retryable: no fallback path exists.
	KindBudgetExceeded ErrorKind = "budget_exceeded"

	// KindNarrativeFailed means both the primary and secondary narrative
	// models failed.
	KindNarrativeFailed ErrorKind = "narrative_generation_failed"

	// KindTimeout means the global deadline was exceeded, regardless of
	// any partial success.
	KindTimeout ErrorKind = "timeout"

	// KindUnexpected is the catch-all for internal faults.
	KindUnexpected ErrorKind = "unexpected_error"
)

// GenerationError describes a failed generation.
type GenerationError struct {
	Kind              ErrorKind
	Message           string
	Elapsed           time.Duration
	FallbackAvailable bool
	Err               error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("orchestrator: %s: %s", e.Kind, e.Message)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Result is the outcome of one generation request. It is always
// returned, never raised: Success discriminates, and a timed-out request
// still carries whatever narrative and quality content was computed
// before the deadline.
type Result struct {
	Success        bool
	Story          *Narrative
	Quality        *QualityReport
	Audio          *storyforge.Response
	Image          *storyforge.Response
	Tier           ledger.Tier
	ModelUsed      string
	Elapsed        time.Duration
	WithinDeadline bool
	Err            *GenerationError
}
