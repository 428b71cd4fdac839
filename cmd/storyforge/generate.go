package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fableforge/storyforge/orchestrator"
)

func newGenerateCmd() *cobra.Command {
	var (
		configPath string
		premise    string
		mood       string
		characters string
		withAudio  bool
		withImage  bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a story with audio and image under the deadline budget",
		RunE: func(cmd *cobra.Command, args []string) error {
			if premise == "" {
				return fmt.Errorf("--premise is required")
			}

			cfg, err := loadAppConfig(configPath)
			if err != nil {
				return err
			}

			led, store, err := openLedger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			router, err := buildRouter(cfg)
			if err != nil {
				return err
			}

			o, err := orchestrator.New(cfg.Orchestrator, led, router, demoGenerator(), demoScorer())
			if err != nil {
				return err
			}

			res := o.Generate(context.Background(), orchestrator.Request{
				Premise:      premise,
				Mood:         mood,
				Characters:   characters,
				IncludeAudio: withAudio,
				IncludeImage: withImage,
				OnProgress: func(p orchestrator.Progress) {
					fmt.Fprintf(os.Stderr, "[%3d%%] %-16s %s (%.1fs elapsed)\n",
						p.Percent, p.Status, p.Task, p.Elapsed.Seconds())
				},
			})

			if !res.Success {
				fmt.Printf("Generation failed: %s\n", res.Err.Message)
				fmt.Printf("  kind: %s, elapsed: %.1fs, fallback available: %v\n",
					res.Err.Kind, res.Elapsed.Seconds(), res.Err.FallbackAvailable)
				if res.Story == nil {
					return fmt.Errorf("%s", res.Err.Kind)
				}
				fmt.Println("Partial result:")
			}

			fmt.Printf("\n%s\n", res.Story.Title)
			fmt.Printf("  tier: %s, model: %s, quality: %.0f, elapsed: %.1fs\n",
				res.Tier, res.ModelUsed, res.Quality.Score, res.Elapsed.Seconds())
			for _, ch := range res.Story.Chapters {
				fmt.Printf("\n## %s\n%s\n", ch.Title, ch.Text)
			}
			if res.Audio != nil {
				fmt.Printf("\naudio: %d bytes via %s ($%.6f)\n",
					len(res.Audio.Data), res.Audio.Provider, res.Audio.Cost)
			}
			if res.Image != nil {
				fmt.Printf("image: %d bytes via %s ($%.6f)\n",
					len(res.Image.Data), res.Image.Provider, res.Image.Cost)
			}
			fmt.Printf("\nbudget remaining today: $%.4f\n", led.Remaining())
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "storyforge.yaml", "path to config file")
	cmd.Flags().StringVar(&premise, "premise", "", "story premise")
	cmd.Flags().StringVar(&mood, "mood", "whimsical", "story mood")
	cmd.Flags().StringVar(&characters, "characters", "", "character descriptions")
	cmd.Flags().BoolVar(&withAudio, "audio", true, "generate narration audio")
	cmd.Flags().BoolVar(&withImage, "image", true, "generate a cover image")
	return cmd
}
