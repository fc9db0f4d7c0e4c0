package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mtlsim/transitsync/internal/config"
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Show the configured network",
	Long:  `Network prints the seeded buses, stops and passengers after applying config file, environment and flag overrides.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		sd := cfg.Seed()
		if err := sd.Validate(); err != nil {
			return fmt.Errorf("invalid network: %w", err)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "fare %.2f, monthly pass %.2f, stop concurrency %d\n\n",
			sd.Fare, sd.PassPrice, sd.StopConcurrency)

		buses := sd.BusIDs()
		sort.Strings(buses)
		fmt.Fprintln(w, "buses:")
		for _, id := range buses {
			fmt.Fprintf(w, "  %-6s %d seats\n", id, sd.Buses[id].Capacity)
		}
		stops := sd.StopIDs()
		sort.Strings(stops)
		fmt.Fprintln(w, "stops:")
		for _, id := range stops {
			fmt.Fprintf(w, "  %-6s capacity %d\n", id, sd.Stops[id].Capacity)
		}
		passengers := sd.PassengerIDs()
		sort.Strings(passengers)
		fmt.Fprintln(w, "passengers:")
		for _, id := range passengers {
			fmt.Fprintf(w, "  %-6s balance %.2f\n", id, sd.Passengers[id].Balance)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(networkCmd)
}
