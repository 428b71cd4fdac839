// Package orchestrator runs the multi-phase story generation pipeline
// under a single end-to-end deadline: tier selection against the budget
// ledger, narrative generation with model fallback, a quality gate with
// one regenerate-and-compare retry, then audio and image generation in
// parallel bounded by the remaining time.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/fableforge/storyforge"
	"github.com/fableforge/storyforge/ledger"
	"github.com/fableforge/storyforge/strategy"
)

// Fallback unit estimates for narrative calls that report no usage.
const (
	estimatedInputUnits  = 500
	estimatedOutputUnits = 1500
)

// Request is one story generation request.
type Request struct {
	ID           string
	Premise      string
	Mood         string
	Characters   string
	IncludeAudio bool
	IncludeImage bool

	// OnProgress, when set, is invoked at each phase transition with
	// monotonically non-decreasing percent values.
	OnProgress func(Progress)
}

// Orchestrator coordinates the ledger, router and narrative collaborators
// for one process. Construct one per process (or per test) and share it;
// there is no package-level instance.
type Orchestrator struct {
	cfg       Config
	ledger    *ledger.Ledger
	router    *storyforge.Router
	narrative NarrativeGenerator
	scorer    QualityScorer

	audioStrategy storyforge.Strategy
	imageStrategy storyforge.Strategy
	logger        *slog.Logger

	total          atomic.Uint64
	successful     atomic.Uint64
	timeouts       atomic.Uint64
	qualityRetries atomic.Uint64
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithAudioStrategy sets the routing strategy for audio generation.
func WithAudioStrategy(s storyforge.Strategy) Option {
	return func(o *Orchestrator) { o.audioStrategy = s }
}

// WithImageStrategy sets the routing strategy for image generation.
func WithImageStrategy(s storyforge.Strategy) Option {
	return func(o *Orchestrator) { o.imageStrategy = s }
}

// New creates an Orchestrator. The ledger, router, narrative generator
// and quality scorer are required. Audio routes with a balanced strategy
// for featured content and images with a cost-optimized strategy unless
// overridden.
func New(cfg Config, led *ledger.Ledger, router *storyforge.Router, gen NarrativeGenerator, scorer QualityScorer, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if led == nil {
		return nil, fmt.Errorf("orchestrator: ledger is required")
	}
	if router == nil {
		return nil, fmt.Errorf("orchestrator: router is required")
	}
	if gen == nil {
		return nil, fmt.Errorf("orchestrator: narrative generator is required")
	}
	if scorer == nil {
		return nil, fmt.Errorf("orchestrator: quality scorer is required")
	}

	o := &Orchestrator{
		cfg:       cfg,
		ledger:    led,
		router:    router,
		narrative: gen,
		scorer:    scorer,
	}

	for _, opt := range opts {
		opt(o)
	}

	// Apply defaults after options.
	if o.audioStrategy == nil {
		o.audioStrategy = &strategy.Balanced{}
	}
	if o.imageStrategy == nil {
		o.imageStrategy = &strategy.CostOptimized{}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	return o, nil
}

// Generate runs the full pipeline and always returns a Result; it never
// lets a fault escape. Internal panics are converted to an
// unexpected_error result at the outermost scope.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (res Result) {
	start := time.Now()
	o.total.Add(1)

	defer func() {
		if p := recover(); p != nil {
			o.logger.Error("generation panicked", "panic", p)
			elapsed := time.Since(start)
			res = Result{
				Success: false,
				Elapsed: elapsed,
				Err: &GenerationError{
					Kind:              KindUnexpected,
					Message:           fmt.Sprintf("internal fault: %v", p),
					Elapsed:           elapsed,
					FallbackAvailable: true,
				},
			}
		}
	}()

	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	deadline := o.cfg.deadline()
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	prog := &progressReporter{fn: req.OnProgress, start: start, deadline: deadline}
	prog.report(StatusPending, "initializing", 0)

	// Phase 1: complexity classification and tier selection. A budget
	// failure terminates before any paid call is attempted.
	complexity := Classify(req.Premise, req.Mood, req.Characters)
	tier, ok := o.ledger.ChooseTier(complexity, true)
	if !ok {
		o.logger.Warn("daily budget exceeded", "request", req.ID, "complexity", complexity.String())
		return o.fail(prog, StatusFailed, KindBudgetExceeded,
			"daily budget exceeded - cannot generate story", start, false, nil)
	}

	models, ok := o.cfg.Models[tier]
	if !ok {
		return o.fail(prog, StatusFailed, KindUnexpected,
			fmt.Sprintf("no models configured for tier %q", tier), start, true, nil)
	}

	// Phase 2: narrative generation with one model fallback.
	prog.report(StatusGeneratingText, "generating story narrative", 10)
	narrative, usedModel, err := o.generateNarrative(ctx, req, tier, models)
	if err != nil {
		// A narrative failure caused by the global deadline expiring is a
		// timeout, not a model failure.
		if ctx.Err() != nil {
			o.timeouts.Add(1)
			elapsed := time.Since(start)
			prog.report(StatusTimedOut, "deadline exceeded", prog.percent)
			return Result{
				Success: false,
				Tier:    tier,
				Elapsed: elapsed,
				Err:     timeoutError(deadline, elapsed),
			}
		}
		return o.fail(prog, StatusFailed, KindNarrativeFailed, err.Error(), start, true, err)
	}

	// Phase 3: quality gate with at most one regenerate-and-compare retry.
	prog.report(StatusQualityCheck, "checking story quality", 50)
	quality := o.scorer.Score(narrative)
	if !quality.Valid && time.Since(start) < o.cfg.qualityRetryCutoff() {
		narrative, quality, usedModel = o.retryNarrative(ctx, req, tier, models, usedModel, narrative, quality)
	}

	// Phases 4-5: audio and image in parallel, bounded by remaining time.
	audio, image := o.generateMultimedia(ctx, req, narrative, start, deadline, prog)

	// Phase 6: finalize. The global deadline is authoritative: if it has
	// passed, the whole result is downgraded to a timeout even though
	// the inner work succeeded.
	elapsed := time.Since(start)
	if elapsed > deadline {
		o.timeouts.Add(1)
		prog.report(StatusTimedOut, "deadline exceeded", 95)
		return Result{
			Success:   false,
			Story:     &narrative,
			Quality:   &quality,
			Audio:     audio,
			Image:     image,
			Tier:      tier,
			ModelUsed: usedModel,
			Elapsed:   elapsed,
			Err:       timeoutError(deadline, elapsed),
		}
	}

	o.successful.Add(1)
	prog.report(StatusCompleted, "finalizing story", 95)
	prog.report(StatusCompleted, "completed", 100)
	return Result{
		Success:        true,
		Story:          &narrative,
		Quality:        &quality,
		Audio:          audio,
		Image:          image,
		Tier:           tier,
		ModelUsed:      usedModel,
		Elapsed:        elapsed,
		WithinDeadline: true,
	}
}

// generateNarrative tries the tier's primary model, then its secondary.
// Every attempt is recorded in the ledger, failed ones included. When
// both fail, the returned error carries both underlying errors.
func (o *Orchestrator) generateNarrative(ctx context.Context, req Request, tier ledger.Tier, models ModelPair) (Narrative, string, error) {
	n, err1 := o.generateWithModel(ctx, req, tier, models.Primary, o.cfg.narrativeTimeout())
	if err1 == nil {
		return n, models.Primary, nil
	}
	o.logger.Warn("primary narrative model failed, trying secondary",
		"model", models.Primary, "error", err1)

	n, err2 := o.generateWithModel(ctx, req, tier, models.Secondary, o.cfg.narrativeTimeout())
	if err2 == nil {
		return n, models.Secondary, nil
	}

	return Narrative{}, "", fmt.Errorf(
		"narrative generation failed: primary (%s): %w; secondary (%s): %w",
		models.Primary, err1, models.Secondary, err2)
}

// generateWithModel performs one narrative call under its own timeout and
// records its cost.
func (o *Orchestrator) generateWithModel(ctx context.Context, req Request, tier ledger.Tier, modelID string, timeout time.Duration) (Narrative, error) {
	nctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	n, err := o.narrative.Generate(nctx, req.Premise, req.Mood, req.Characters, modelID)

	in, out := n.Usage.InputUnits, n.Usage.OutputUnits
	if in == 0 {
		in = estimatedInputUnits
	}
	if out == 0 {
		out = estimatedOutputUnits
	}
	o.ledger.Record(tier, in, out, "narrative", err == nil)

	return n, err
}

// retryNarrative regenerates once with the other model of the pair and
// keeps whichever result scores higher.
func (o *Orchestrator) retryNarrative(ctx context.Context, req Request, tier ledger.Tier, models ModelPair, usedModel string, current Narrative, currentQuality QualityReport) (Narrative, QualityReport, string) {
	other := models.Secondary
	if usedModel == models.Secondary {
		other = models.Primary
	}
	o.logger.Info("quality check failed, regenerating with other model",
		"score", currentQuality.Score, "model", other)

	o.qualityRetries.Add(1)
	retry, err := o.generateWithModel(ctx, req, tier, other, o.cfg.retryTimeout())
	if err != nil {
		o.logger.Warn("quality retry failed, keeping original", "model", other, "error", err)
		return current, currentQuality, usedModel
	}

	retryQuality := o.scorer.Score(retry)
	if retryQuality.Score > currentQuality.Score {
		return retry, retryQuality, other
	}
	return current, currentQuality, usedModel
}

type mediaOutcome struct {
	kind storyforge.MediaKind
	resp storyforge.Response
	err  error
}

// generateMultimedia launches audio and image generation as independent
// tasks bounded by the remaining deadline. Sub-task failures are absorbed
// here and never escalate; a bounded-wait timeout keeps whatever
// completed and discards the rest.
func (o *Orchestrator) generateMultimedia(ctx context.Context, req Request, n Narrative, start time.Time, deadline time.Duration, prog *progressReporter) (audio, image *storyforge.Response) {
	remaining := deadline - time.Since(start)
	if remaining < o.cfg.multimediaMin() {
		return nil, nil
	}

	timeout := remaining - o.cfg.finalizeReserve()
	if timeout > o.cfg.multimediaMax() {
		timeout = o.cfg.multimediaMax()
	}
	if timeout <= 0 {
		return nil, nil
	}

	mmCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan mediaOutcome, 2)
	launched := 0

	if req.IncludeAudio && remaining > o.cfg.audioMin() {
		if mreq, ok := o.affordableMedia(req, audioRequest(req, n), o.audioStrategy); ok {
			prog.report(StatusGeneratingAudio, "generating multimedia content", 70)
			launched++
			go func() {
				resp, err := o.router.Execute(mmCtx, mreq, o.audioStrategy)
				ch <- mediaOutcome{kind: storyforge.MediaAudio, resp: resp, err: err}
			}()
		}
	}
	if req.IncludeImage && remaining > o.cfg.imageMin() {
		if mreq, ok := o.affordableMedia(req, imageRequest(req, n), o.imageStrategy); ok {
			prog.report(StatusGeneratingImage, "generating multimedia content", 70)
			launched++
			go func() {
				resp, err := o.router.Execute(mmCtx, mreq, o.imageStrategy)
				ch <- mediaOutcome{kind: storyforge.MediaImage, resp: resp, err: err}
			}()
		}
	}

	for i := 0; i < launched; i++ {
		select {
		case out := <-ch:
			if out.err != nil {
				o.logger.Warn("multimedia task failed", "kind", string(out.kind), "error", out.err)
				continue
			}
			o.ledger.RecordCost(ledger.Tier(out.resp.Provider),
				int64(len(out.resp.Data)), 0, out.resp.Cost, string(out.kind), true)
			switch out.kind {
			case storyforge.MediaAudio:
				resp := out.resp
				audio = &resp
			case storyforge.MediaImage:
				resp := out.resp
				image = &resp
			}
		case <-mmCtx.Done():
			// Stragglers are cancelled via mmCtx; their results are
			// discarded, not awaited.
			o.logger.Warn("multimedia generation timed out, proceeding with partial results",
				"request", req.ID)
			return audio, image
		}
	}
	return audio, image
}

// affordableMedia consults the router for an estimate and the ledger for
// affordability. An unaffordable or unroutable media task is skipped,
// not failed.
func (o *Orchestrator) affordableMedia(req Request, mreq storyforge.Request, s storyforge.Strategy) (storyforge.Request, bool) {
	decision, err := o.router.Select(mreq, s)
	if err != nil {
		o.logger.Warn("no provider for media task, skipping",
			"request", req.ID, "kind", string(mreq.Kind), "error", err)
		return mreq, false
	}
	if ok, detail := o.ledger.CanAfford(decision.EstimatedCost); !ok {
		o.logger.Warn("media task would exceed daily budget, skipping",
			"request", req.ID, "kind", string(mreq.Kind), "excess", detail.Excess)
		return mreq, false
	}
	return mreq, true
}

// audioRequest builds the narration request from the story's key
// sentences.
func audioRequest(req Request, n Narrative) storyforge.Request {
	return storyforge.Request{
		ID:           req.ID + "-audio",
		Kind:         storyforge.MediaAudio,
		ContentClass: storyforge.ContentFeatured,
		Quality:      storyforge.QualityStandard,
		Payload:      narrationExcerpt(n),
		Voice:        "narrator",
		Format:       "mp3",
	}
}

// imageRequest builds the illustration prompt from the premise, mood and
// opening chapter.
func imageRequest(req Request, n Narrative) storyforge.Request {
	prompt := fmt.Sprintf("%s, %s atmosphere, cinematic lighting, detailed illustration",
		req.Premise, req.Mood)
	if len(n.Chapters) > 0 {
		prompt += ", based on: " + truncate(n.Chapters[0].Text, 100)
	}
	return storyforge.Request{
		ID:           req.ID + "-image",
		Kind:         storyforge.MediaImage,
		ContentClass: storyforge.ContentBulk,
		Quality:      storyforge.QualityStandard,
		Payload:      prompt,
		Format:       "png",
	}
}

// narrationExcerpt picks the longest sentence of each of the first three
// chapters, capped to keep narration cost bounded.
func narrationExcerpt(n Narrative) string {
	var parts []string
	for i, ch := range n.Chapters {
		if i >= 3 {
			break
		}
		if s := keySentence(ch.Text); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return truncate(n.Text, 200)
	}
	return strings.Join(parts, " ")
}

func keySentence(text string) string {
	var longest string
	for _, s := range strings.Split(text, ".") {
		s = strings.TrimSpace(s)
		if len(s) > len(longest) {
			longest = s
		}
	}
	return truncate(longest, 200)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func timeoutError(deadline, elapsed time.Duration) *GenerationError {
	return &GenerationError{
		Kind:              KindTimeout,
		Message:           fmt.Sprintf("story generation exceeded %.0fs limit", deadline.Seconds()),
		Elapsed:           elapsed,
		FallbackAvailable: true,
	}
}

func (o *Orchestrator) fail(prog *progressReporter, status Status, kind ErrorKind, msg string, start time.Time, fallback bool, err error) Result {
	elapsed := time.Since(start)
	prog.report(status, msg, prog.percent)
	return Result{
		Success: false,
		Elapsed: elapsed,
		Err: &GenerationError{
			Kind:              kind,
			Message:           msg,
			Elapsed:           elapsed,
			FallbackAvailable: fallback,
			Err:               err,
		},
	}
}

// Stats is a snapshot of the orchestrator's lifetime counters.
type Stats struct {
	Total           uint64
	Successful      uint64
	TimeoutFailures uint64
	QualityRetries  uint64
}

// Stats returns the generation counters.
func (o *Orchestrator) Stats() Stats {
	return Stats{
		Total:           o.total.Load(),
		Successful:      o.successful.Load(),
		TimeoutFailures: o.timeouts.Load(),
		QualityRetries:  o.qualityRetries.Load(),
	}
}
