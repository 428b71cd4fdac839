package orchestrator

import (
	"fmt"
	"time"

	"github.com/fableforge/storyforge/ledger"
)

// ModelPair names the primary narrative model for a tier and its
// designated fallback.
type ModelPair struct {
	Primary   string `yaml:"primary"`
	Secondary string `yaml:"secondary"`
}

// Config holds the orchestrator's time budgets and model assignments.
// All thresholds are operator-supplied, not constants of the algorithm.
type Config struct {
	DeadlineSeconds           float64 `yaml:"deadline_seconds"`
	NarrativeTimeoutSeconds   float64 `yaml:"narrative_timeout_seconds"`
	RetryTimeoutSeconds       float64 `yaml:"retry_timeout_seconds"`
	QualityRetryCutoffSeconds float64 `yaml:"quality_retry_cutoff_seconds"`

	MultimediaMinSeconds   float64 `yaml:"multimedia_min_seconds"`
	AudioMinSeconds        float64 `yaml:"audio_min_seconds"`
	ImageMinSeconds        float64 `yaml:"image_min_seconds"`
	FinalizeReserveSeconds float64 `yaml:"finalize_reserve_seconds"`
	MultimediaMaxSeconds   float64 `yaml:"multimedia_max_seconds"`

	Models map[ledger.Tier]ModelPair `yaml:"models"`
}

// DefaultConfig returns the stock time budgets: a 58s deadline (2s
// buffer under the product's 60s requirement), 30s narrative phase, one
// 20s quality retry allowed until 35s elapsed, multimedia skipped under
// 5s remaining, audio over 10s, image over 15s, 2s finalization reserve
// and a 20s multimedia cap.
func DefaultConfig() Config {
	return Config{
		DeadlineSeconds:           58,
		NarrativeTimeoutSeconds:   30,
		RetryTimeoutSeconds:       20,
		QualityRetryCutoffSeconds: 35,
		MultimediaMinSeconds:      5,
		AudioMinSeconds:           10,
		ImageMinSeconds:           15,
		FinalizeReserveSeconds:    2,
		MultimediaMaxSeconds:      20,
		Models: map[ledger.Tier]ModelPair{
			ledger.TierEconomy:  {Primary: "gemini-flash-1.5", Secondary: "claude-3-haiku"},
			ledger.TierStandard: {Primary: "claude-3-haiku", Secondary: "gemini-flash-1.5"},
			ledger.TierPremium:  {Primary: "claude-3-sonnet", Secondary: "claude-3-haiku"},
		},
	}
}

// Validate checks the config for required fields and consistency.
func (c Config) Validate() error {
	if c.DeadlineSeconds <= 0 {
		return fmt.Errorf("orchestrator: config: deadline_seconds must be positive")
	}
	if c.NarrativeTimeoutSeconds <= 0 {
		return fmt.Errorf("orchestrator: config: narrative_timeout_seconds must be positive")
	}
	if len(c.Models) == 0 {
		return fmt.Errorf("orchestrator: config: at least one tier model pair is required")
	}
	for tier, pair := range c.Models {
		if pair.Primary == "" {
			return fmt.Errorf("orchestrator: config: models[%s]: primary is required", tier)
		}
		if pair.Secondary == "" {
			return fmt.Errorf("orchestrator: config: models[%s]: secondary is required", tier)
		}
	}
	return nil
}

func (c Config) deadline() time.Duration           { return secs(c.DeadlineSeconds) }
func (c Config) narrativeTimeout() time.Duration   { return secs(c.NarrativeTimeoutSeconds) }
func (c Config) retryTimeout() time.Duration       { return secs(c.RetryTimeoutSeconds) }
func (c Config) qualityRetryCutoff() time.Duration { return secs(c.QualityRetryCutoffSeconds) }
func (c Config) multimediaMin() time.Duration      { return secs(c.MultimediaMinSeconds) }
func (c Config) audioMin() time.Duration           { return secs(c.AudioMinSeconds) }
func (c Config) imageMin() time.Duration           { return secs(c.ImageMinSeconds) }
func (c Config) finalizeReserve() time.Duration    { return secs(c.FinalizeReserveSeconds) }
func (c Config) multimediaMax() time.Duration      { return secs(c.MultimediaMaxSeconds) }

func secs(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}
