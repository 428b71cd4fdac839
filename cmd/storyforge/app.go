package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	sf "github.com/fableforge/storyforge"
	"github.com/fableforge/storyforge/ledger"
	"github.com/fableforge/storyforge/ledger/sqlite"
	"github.com/fableforge/storyforge/orchestrator"
	"github.com/fableforge/storyforge/provider/mock"
)

// appConfig composes the per-package configs into one file. Each section
// falls back to its package defaults when omitted.
type appConfig struct {
	LedgerDB     string              `yaml:"ledger_db"`
	Router       sf.Config           `yaml:"router"`
	Ledger       ledger.Config       `yaml:"ledger"`
	Orchestrator orchestrator.Config `yaml:"orchestrator"`
}

func loadAppConfig(path string) (appConfig, error) {
	cfg := appConfig{
		LedgerDB:     "storyforge.db",
		Ledger:       ledger.DefaultConfig(),
		Orchestrator: orchestrator.DefaultConfig(),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg.Router = demoRouterConfig()
		return cfg, nil
	}
	if err != nil {
		return appConfig{}, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return appConfig{}, fmt.Errorf("parse config: %w", err)
	}
	if len(cfg.Router.Providers) == 0 {
		cfg.Router = demoRouterConfig()
	}
	if err := cfg.Router.Validate(); err != nil {
		return appConfig{}, err
	}
	if err := cfg.Orchestrator.Validate(); err != nil {
		return appConfig{}, err
	}
	return cfg, nil
}

// demoRouterConfig describes two mock providers so the CLI works out of
// the box without vendor credentials.
func demoRouterConfig() sf.Config {
	return sf.Config{
		Providers: []sf.ProviderConfig{
			{
				Name: "mock-tts", Priority: 1, QualityScore: 8.0, AvgLatencyMS: 200,
				CostPerUnit: 0.00002, MaxConcurrent: 5, Enabled: true,
				Capabilities: sf.Capabilities{Kinds: []sf.MediaKind{sf.MediaAudio}},
			},
			{
				Name: "mock-image", Priority: 2, QualityScore: 7.5, AvgLatencyMS: 1500,
				CostPerUnit: 0.0005, MaxConcurrent: 3, Enabled: true,
				Capabilities: sf.Capabilities{Kinds: []sf.MediaKind{sf.MediaImage}},
			},
		},
	}
}

func openLedger(cfg appConfig) (*ledger.Ledger, *sqlite.Store, error) {
	store, err := sqlite.New(cfg.LedgerDB, cfg.Ledger.HistoryLimit)
	if err != nil {
		return nil, nil, err
	}
	return ledger.New(cfg.Ledger, ledger.WithStore(store)), store, nil
}

func buildRouter(cfg appConfig) (*sf.Router, error) {
	providers := make([]sf.Provider, 0, len(cfg.Router.Providers))
	for _, pc := range cfg.Router.Providers {
		providers = append(providers, mock.New(mock.WithName(pc.Name), mock.WithCostPerUnit(pc.CostPerUnit)))
	}

	opts := []sf.Option{}
	if cfg.Router.MaxRetries > 0 {
		opts = append(opts, sf.WithMaxRetries(cfg.Router.MaxRetries))
	}
	return sf.NewRouter(cfg.Router.Providers, providers, opts...)
}

// demoGenerator produces a deterministic three-chapter narrative from the
// premise, standing in for a vendor text model.
func demoGenerator() orchestrator.NarrativeGenerator {
	return orchestrator.NarrativeFunc(func(_ context.Context, premise, mood, _, modelID string) (orchestrator.Narrative, error) {
		title := premise
		if len(title) > 40 {
			title = title[:40]
		}
		if title != "" {
			title = strings.ToUpper(title[:1]) + title[1:]
		}

		chapters := make([]orchestrator.Chapter, 0, 3)
		for i, name := range []string{"Beginning", "Turning Point", "Resolution"} {
			chapters = append(chapters, orchestrator.Chapter{
				ID:    fmt.Sprintf("ch-%d", i+1),
				Title: name,
				Text:  fmt.Sprintf("%s. The %s mood deepens as the story of %s unfolds.", name, mood, premise),
			})
		}

		var b strings.Builder
		for _, ch := range chapters {
			b.WriteString(ch.Text)
			b.WriteString("\n\n")
		}

		return orchestrator.Narrative{
			Title:     title,
			Text:      b.String(),
			Chapters:  chapters,
			ModelUsed: modelID,
			Usage:     orchestrator.Usage{InputUnits: int64(len(premise)), OutputUnits: int64(b.Len())},
		}, nil
	})
}

// demoScorer gates on minimal structural completeness.
func demoScorer() orchestrator.QualityScorer {
	return orchestrator.QualityFunc(func(n orchestrator.Narrative) orchestrator.QualityReport {
		score := 50.0
		if n.Title != "" {
			score += 10
		}
		if len(n.Chapters) >= 3 {
			score += 20
		}
		if len(n.Text) > 200 {
			score += 20
		}
		return orchestrator.QualityReport{Valid: score >= 70, Score: score}
	})
}
