package orchestrator_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	sf "github.com/fableforge/storyforge"
	"github.com/fableforge/storyforge/ledger"
	"github.com/fableforge/storyforge/orchestrator"
	"github.com/fableforge/storyforge/provider/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scaled-down time budgets so the full pipeline runs in well under a
// second of test time.
func testConfig() orchestrator.Config {
	return orchestrator.Config{
		DeadlineSeconds:           2,
		NarrativeTimeoutSeconds:   1,
		RetryTimeoutSeconds:       1,
		QualityRetryCutoffSeconds: 1.5,
		MultimediaMinSeconds:      0.01,
		AudioMinSeconds:           0.001,
		ImageMinSeconds:           0.001,
		FinalizeReserveSeconds:    0.05,
		MultimediaMaxSeconds:      1,
		Models: map[ledger.Tier]orchestrator.ModelPair{
			ledger.TierEconomy:  {Primary: "model-a", Secondary: "model-b"},
			ledger.TierStandard: {Primary: "model-a", Secondary: "model-b"},
			ledger.TierPremium:  {Primary: "model-a", Secondary: "model-b"},
		},
	}
}

func sampleNarrative(model string) orchestrator.Narrative {
	return orchestrator.Narrative{
		Title: "The Lighthouse",
		Text:  "A keeper tends the flame. The sea answers at night.",
		Chapters: []orchestrator.Chapter{
			{ID: "1", Title: "Dusk", Text: "The keeper climbed the spiral stairs as dusk settled over the bay."},
		},
		ModelUsed: model,
		Usage:     orchestrator.Usage{InputUnits: 400, OutputUnits: 1200},
	}
}

func passingScorer() orchestrator.QualityScorer {
	return orchestrator.QualityFunc(func(orchestrator.Narrative) orchestrator.QualityReport {
		return orchestrator.QualityReport{Valid: true, Score: 80}
	})
}

func workingGenerator() orchestrator.NarrativeGenerator {
	return orchestrator.NarrativeFunc(func(_ context.Context, _, _, _, modelID string) (orchestrator.Narrative, error) {
		return sampleNarrative(modelID), nil
	})
}

func testMediaRouter(t *testing.T) (*sf.Router, *mock.Provider, *mock.Provider) {
	t.Helper()

	tts := mock.New(mock.WithName("tts"))
	img := mock.New(mock.WithName("img"))

	configs := []sf.ProviderConfig{
		{
			Name: "tts", Priority: 1, QualityScore: 8, AvgLatencyMS: 100,
			CostPerUnit: 0.00001, MaxConcurrent: 10, Enabled: true,
			Capabilities: sf.Capabilities{Kinds: []sf.MediaKind{sf.MediaAudio}},
		},
		{
			Name: "img", Priority: 2, QualityScore: 8, AvgLatencyMS: 100,
			CostPerUnit: 0.00001, MaxConcurrent: 10, Enabled: true,
			Capabilities: sf.Capabilities{Kinds: []sf.MediaKind{sf.MediaImage}},
		},
	}

	r, err := sf.NewRouter(configs, []sf.Provider{tts, img})
	require.NoError(t, err)
	return r, tts, img
}

func newTestOrchestrator(t *testing.T, cfg orchestrator.Config, led *ledger.Ledger, r *sf.Router, gen orchestrator.NarrativeGenerator, scorer orchestrator.QualityScorer) *orchestrator.Orchestrator {
	t.Helper()
	o, err := orchestrator.New(cfg, led, r, gen, scorer,
		orchestrator.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	return o
}

func TestGenerate_Success(t *testing.T) {
	led := ledger.New(ledger.DefaultConfig())
	r, tts, img := testMediaRouter(t)
	o := newTestOrchestrator(t, testConfig(), led, r, workingGenerator(), passingScorer())

	var percents []int
	res := o.Generate(context.Background(), orchestrator.Request{
		Premise:      "A lighthouse keeper discovers the light is speaking to the sea",
		Mood:         "melancholic",
		Characters:   "an old keeper",
		IncludeAudio: true,
		IncludeImage: true,
		OnProgress:   func(p orchestrator.Progress) { percents = append(percents, p.Percent) },
	})

	require.True(t, res.Success)
	assert.True(t, res.WithinDeadline)
	assert.Nil(t, res.Err)
	require.NotNil(t, res.Story)
	assert.Equal(t, "The Lighthouse", res.Story.Title)
	assert.Equal(t, "model-a", res.ModelUsed)
	require.NotNil(t, res.Quality)
	assert.True(t, res.Quality.Valid)

	require.NotNil(t, res.Audio)
	assert.Equal(t, "tts", res.Audio.Provider)
	require.NotNil(t, res.Image)
	assert.Equal(t, "img", res.Image.Provider)
	assert.EqualValues(t, 1, tts.CallCount())
	assert.EqualValues(t, 1, img.CallCount())

	// Progress never moves backwards and ends at 100.
	require.NotEmpty(t, percents)
	for i := 1; i < len(percents); i++ {
		assert.GreaterOrEqual(t, percents[i], percents[i-1])
	}
	assert.Equal(t, 100, percents[len(percents)-1])

	stats := o.Stats()
	assert.EqualValues(t, 1, stats.Total)
	assert.EqualValues(t, 1, stats.Successful)
}

func TestGenerate_BudgetExceeded(t *testing.T) {
	led := ledger.New(ledger.DefaultConfig())
	led.RecordCost(ledger.TierPremium, 0, 0, 50.0, "narrative", true) // limit consumed

	r, _, _ := testMediaRouter(t)
	calls := 0
	gen := orchestrator.NarrativeFunc(func(_ context.Context, _, _, _, modelID string) (orchestrator.Narrative, error) {
		calls++
		return sampleNarrative(modelID), nil
	})

	o := newTestOrchestrator(t, testConfig(), led, r, gen, passingScorer())
	res := o.Generate(context.Background(), orchestrator.Request{Premise: "a story"})

	require.False(t, res.Success)
	require.NotNil(t, res.Err)
	assert.Equal(t, orchestrator.KindBudgetExceeded, res.Err.Kind)
	assert.False(t, res.Err.FallbackAvailable)
	assert.Zero(t, calls, "no paid call may happen after a budget rejection")
}

func TestGenerate_FallsBackToSecondaryModel(t *testing.T) {
	led := ledger.New(ledger.DefaultConfig())
	r, _, _ := testMediaRouter(t)

	gen := orchestrator.NarrativeFunc(func(_ context.Context, _, _, _, modelID string) (orchestrator.Narrative, error) {
		if modelID == "model-a" {
			return orchestrator.Narrative{}, errors.New("model-a overloaded")
		}
		return sampleNarrative(modelID), nil
	})

	o := newTestOrchestrator(t, testConfig(), led, r, gen, passingScorer())
	res := o.Generate(context.Background(), orchestrator.Request{Premise: "a story"})

	require.True(t, res.Success)
	assert.Equal(t, "model-b", res.ModelUsed)

	// Both the failed and the successful attempt are on the ledger.
	stats := led.Stats("")
	assert.Equal(t, 2, stats.Requests)
	assert.Equal(t, 1, stats.Failed)
	assert.Greater(t, stats.Spend, 0.0)
}

func TestGenerate_BothModelsFail(t *testing.T) {
	led := ledger.New(ledger.DefaultConfig())
	r, _, _ := testMediaRouter(t)

	gen := orchestrator.NarrativeFunc(func(_ context.Context, _, _, _, modelID string) (orchestrator.Narrative, error) {
		return orchestrator.Narrative{}, errors.New(modelID + " exploded")
	})

	o := newTestOrchestrator(t, testConfig(), led, r, gen, passingScorer())
	res := o.Generate(context.Background(), orchestrator.Request{Premise: "a story"})

	require.False(t, res.Success)
	require.NotNil(t, res.Err)
	assert.Equal(t, orchestrator.KindNarrativeFailed, res.Err.Kind)
	assert.True(t, res.Err.FallbackAvailable)

	// The message names both models and both distinct failures.
	assert.Contains(t, res.Err.Message, "model-a")
	assert.Contains(t, res.Err.Message, "model-b")
	assert.Contains(t, res.Err.Message, "model-a exploded")
	assert.Contains(t, res.Err.Message, "model-b exploded")
}

func TestGenerate_QualityRetryKeepsBest(t *testing.T) {
	led := ledger.New(ledger.DefaultConfig())
	r, _, _ := testMediaRouter(t)

	genCalls := 0
	gen := orchestrator.NarrativeFunc(func(_ context.Context, _, _, _, modelID string) (orchestrator.Narrative, error) {
		genCalls++
		return sampleNarrative(modelID), nil
	})

	// First draft fails the gate at 40; the retry scores 60.
	scoreCalls := 0
	scorer := orchestrator.QualityFunc(func(orchestrator.Narrative) orchestrator.QualityReport {
		scoreCalls++
		if scoreCalls == 1 {
			return orchestrator.QualityReport{Valid: false, Score: 40}
		}
		return orchestrator.QualityReport{Valid: true, Score: 60}
	})

	o := newTestOrchestrator(t, testConfig(), led, r, gen, scorer)
	res := o.Generate(context.Background(), orchestrator.Request{Premise: "a story"})

	require.True(t, res.Success)
	assert.Equal(t, 2, genCalls, "exactly one quality retry")
	require.NotNil(t, res.Quality)
	assert.Equal(t, 60.0, res.Quality.Score)
	assert.Equal(t, "model-b", res.ModelUsed)
	assert.EqualValues(t, 1, o.Stats().QualityRetries)
}

func TestGenerate_QualityRetryKeepsOriginalWhenWorse(t *testing.T) {
	led := ledger.New(ledger.DefaultConfig())
	r, _, _ := testMediaRouter(t)

	scoreCalls := 0
	scorer := orchestrator.QualityFunc(func(orchestrator.Narrative) orchestrator.QualityReport {
		scoreCalls++
		if scoreCalls == 1 {
			return orchestrator.QualityReport{Valid: false, Score: 40}
		}
		return orchestrator.QualityReport{Valid: false, Score: 30}
	})

	o := newTestOrchestrator(t, testConfig(), led, r, workingGenerator(), scorer)
	res := o.Generate(context.Background(), orchestrator.Request{Premise: "a story"})

	require.True(t, res.Success)
	require.NotNil(t, res.Quality)
	assert.Equal(t, 40.0, res.Quality.Score)
	assert.Equal(t, "model-a", res.ModelUsed)
}

func TestGenerate_DeadlineExceededIsTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.DeadlineSeconds = 0.3

	led := ledger.New(ledger.DefaultConfig())
	r, _, _ := testMediaRouter(t)

	// Succeeds, but only after the global deadline has passed.
	gen := orchestrator.NarrativeFunc(func(_ context.Context, _, _, _, modelID string) (orchestrator.Narrative, error) {
		time.Sleep(400 * time.Millisecond)
		return sampleNarrative(modelID), nil
	})

	o := newTestOrchestrator(t, cfg, led, r, gen, passingScorer())

	var statuses []orchestrator.Status
	res := o.Generate(context.Background(), orchestrator.Request{
		Premise:    "a story",
		OnProgress: func(p orchestrator.Progress) { statuses = append(statuses, p.Status) },
	})

	require.False(t, res.Success)
	assert.False(t, res.WithinDeadline)
	require.NotNil(t, res.Err)
	assert.Equal(t, orchestrator.KindTimeout, res.Err.Kind)
	assert.True(t, res.Err.FallbackAvailable)
	assert.Greater(t, res.Err.Elapsed, 300*time.Millisecond)

	// The partial work is still attached to the failed result.
	assert.NotNil(t, res.Story)
	assert.EqualValues(t, 1, o.Stats().TimeoutFailures)

	// The observer of a timed-out request never sees a completed phase.
	assert.NotContains(t, statuses, orchestrator.StatusCompleted)
	assert.Equal(t, orchestrator.StatusTimedOut, statuses[len(statuses)-1])
}

// A generator that honors cancellation surfaces the deadline cut as a
// context error from both models; that is still a timeout, not a model
// failure.
func TestGenerate_DeadlineDuringNarrativeIsTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.DeadlineSeconds = 0.3

	led := ledger.New(ledger.DefaultConfig())
	r, _, _ := testMediaRouter(t)

	gen := orchestrator.NarrativeFunc(func(ctx context.Context, _, _, _, modelID string) (orchestrator.Narrative, error) {
		select {
		case <-time.After(5 * time.Second):
			return sampleNarrative(modelID), nil
		case <-ctx.Done():
			return orchestrator.Narrative{}, ctx.Err()
		}
	})

	o := newTestOrchestrator(t, cfg, led, r, gen, passingScorer())
	res := o.Generate(context.Background(), orchestrator.Request{Premise: "a story"})

	require.False(t, res.Success)
	require.NotNil(t, res.Err)
	assert.Equal(t, orchestrator.KindTimeout, res.Err.Kind)
	assert.True(t, res.Err.FallbackAvailable)
	assert.GreaterOrEqual(t, res.Err.Elapsed, 300*time.Millisecond)
	assert.EqualValues(t, 1, o.Stats().TimeoutFailures)
}

func TestGenerate_SkipsMultimediaWhenLittleTimeLeft(t *testing.T) {
	cfg := testConfig()
	cfg.MultimediaMinSeconds = 5 // more than the whole 2s deadline

	led := ledger.New(ledger.DefaultConfig())
	r, tts, img := testMediaRouter(t)

	o := newTestOrchestrator(t, cfg, led, r, workingGenerator(), passingScorer())
	res := o.Generate(context.Background(), orchestrator.Request{
		Premise:      "a story",
		IncludeAudio: true,
		IncludeImage: true,
	})

	require.True(t, res.Success)
	assert.Nil(t, res.Audio)
	assert.Nil(t, res.Image)
	assert.Zero(t, tts.CallCount())
	assert.Zero(t, img.CallCount())
}

func TestGenerate_MultimediaFailureDoesNotFailStory(t *testing.T) {
	led := ledger.New(ledger.DefaultConfig())

	tts := mock.New(mock.WithName("tts"), mock.WithError(sf.ErrProviderUnavailable))
	configs := []sf.ProviderConfig{{
		Name: "tts", Priority: 1, QualityScore: 8, AvgLatencyMS: 100,
		CostPerUnit: 0.00001, MaxConcurrent: 10, Enabled: true,
		Capabilities: sf.Capabilities{Kinds: []sf.MediaKind{sf.MediaAudio}},
	}}
	r, err := sf.NewRouter(configs, []sf.Provider{tts})
	require.NoError(t, err)

	o := newTestOrchestrator(t, testConfig(), led, r, workingGenerator(), passingScorer())
	res := o.Generate(context.Background(), orchestrator.Request{
		Premise:      "a story",
		IncludeAudio: true,
	})

	require.True(t, res.Success)
	assert.Nil(t, res.Audio)
	assert.NotNil(t, res.Story)
}

func TestGenerate_PanicBecomesUnexpectedError(t *testing.T) {
	led := ledger.New(ledger.DefaultConfig())
	r, _, _ := testMediaRouter(t)

	scorer := orchestrator.QualityFunc(func(orchestrator.Narrative) orchestrator.QualityReport {
		panic("scorer bug")
	})

	o := newTestOrchestrator(t, testConfig(), led, r, workingGenerator(), scorer)

	var res orchestrator.Result
	require.NotPanics(t, func() {
		res = o.Generate(context.Background(), orchestrator.Request{Premise: "a story"})
	})
	require.False(t, res.Success)
	require.NotNil(t, res.Err)
	assert.Equal(t, orchestrator.KindUnexpected, res.Err.Kind)
	assert.Contains(t, res.Err.Message, "scorer bug")
}

func TestNew_Validation(t *testing.T) {
	led := ledger.New(ledger.DefaultConfig())
	r, _, _ := testMediaRouter(t)

	_, err := orchestrator.New(orchestrator.Config{}, led, r, workingGenerator(), passingScorer())
	assert.Error(t, err)

	_, err = orchestrator.New(testConfig(), nil, r, workingGenerator(), passingScorer())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger")

	_, err = orchestrator.New(testConfig(), led, r, nil, passingScorer())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "narrative")
}
