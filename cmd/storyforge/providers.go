package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newProvidersCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List configured media providers and their routing state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadAppConfig(configPath)
			if err != nil {
				return err
			}

			router, err := buildRouter(cfg)
			if err != nil {
				return err
			}

			stats := router.Stats()
			names := make([]string, 0, len(stats))
			for name := range stats {
				names = append(names, name)
			}
			sort.Strings(names)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tKINDS\tPRIORITY\tQUALITY\tLATENCY\tCOST/M UNITS\tHEALTH\tDAILY SPEND")
			for _, name := range names {
				s := stats[name]
				fmt.Fprintf(w, "%s\t%v\t%d\t%.1f\t%.0fms\t$%.2f\t%s\t$%.4f\n",
					name, s.Config.Capabilities.Kinds, s.Config.Priority,
					s.Config.QualityScore, s.Config.AvgLatencyMS,
					s.Config.CostPerUnit*1_000_000, s.Health, s.DailyCost)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "storyforge.yaml", "path to config file")
	return cmd
}
