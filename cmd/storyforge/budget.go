package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newBudgetCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Inspect the daily generation budget",
	}

	var date string
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show spend vs the daily limit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadAppConfig(configPath)
			if err != nil {
				return err
			}

			led, store, err := openLedger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			stats := led.Stats(date)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tLIMIT\tSPEND\tREMAINING\tUSED\tREQUESTS\tFAILED\tSUCCESS RATE")
			fmt.Fprintf(w, "%s\t$%.2f\t$%.4f\t$%.4f\t%.1f%%\t%d\t%d\t%.0f%%\n",
				stats.Date, stats.Limit, stats.Spend, stats.Remaining,
				stats.PercentUsed, stats.Requests, stats.Failed, stats.SuccessRate*100)
			if err := w.Flush(); err != nil {
				return err
			}

			if stats.OverBudget {
				fmt.Println("\nWARNING: daily budget exceeded")
			}
			return nil
		},
	}
	statusCmd.Flags().StringVar(&date, "date", "", "date to inspect (YYYY-MM-DD, default today)")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "storyforge.yaml", "path to config file")
	cmd.AddCommand(statusCmd)
	return cmd
}
