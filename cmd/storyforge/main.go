package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	// Optional .env for API keys and config overrides.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:     "storyforge",
		Short:   "StoryForge — deadline-budgeted multi-media story generation",
		Version: version,
	}

	root.AddCommand(
		newGenerateCmd(),
		newBudgetCmd(),
		newProvidersCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
