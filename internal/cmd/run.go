package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/mtlsim/transitsync/internal/config"
	"github.com/mtlsim/transitsync/internal/coordination"
	"github.com/mtlsim/transitsync/internal/event"
	"github.com/mtlsim/transitsync/internal/logging"
	"github.com/mtlsim/transitsync/internal/scenario"
)

var runShowStats bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the demo scenario on the configured network",
	Long: `Run starts the configured network, drives it with randomized bus
and passenger activity, and reports per-operation statistics when the
scenario finishes. Ctrl-C drains all in-flight waits and exits cleanly.`,
	RunE: runScenario,
}

func init() {
	runCmd.Flags().IntP("trips", "t", 0, "stop cycles per bus (overrides config)")
	runCmd.Flags().Int64("rand-seed", 0, "fix the scenario's random choices")
	runCmd.Flags().BoolVar(&runShowStats, "stats", true, "print per-operation statistics at the end")
	rootCmd.AddCommand(runCmd)
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	sd := cfg.Seed()
	if err := sd.Validate(); err != nil {
		return fmt.Errorf("invalid network: %w", err)
	}

	var logWriter io.Writer = os.Stderr
	if !cfg.Logging.Enabled {
		logWriter = io.Discard
	}
	lg := logging.NewLogger(logWriter, strings.ToUpper(cfg.Logging.Level))

	hub, err := coordination.NewHub(coordination.Config{
		Seed: sd,
		Bus:  event.NewBus(),
	}, coordination.WithLogger(lg))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := hub.Start(ctx); err != nil {
		return fmt.Errorf("failed to start network: %w", err)
	}
	defer func() { _ = hub.Stop() }()

	narrator := charmlog.New(os.Stderr)
	if !cfg.Logging.Enabled {
		narrator = charmlog.New(io.Discard)
	}

	opts := []scenario.Option{
		scenario.WithLogger(narrator),
		scenario.WithTrips(cfg.Scenario.Trips),
		scenario.WithWaitTimeout(cfg.Scenario.WaitTimeout()),
	}
	if trips, _ := cmd.Flags().GetInt("trips"); trips > 0 {
		opts = append(opts, scenario.WithTrips(trips))
	}
	randSeed := cfg.Scenario.RandSeed
	if flagSeed, _ := cmd.Flags().GetInt64("rand-seed"); flagSeed != 0 {
		randSeed = flagSeed
	}
	if randSeed != 0 {
		opts = append(opts, scenario.WithRandSeed(randSeed))
	}

	driver := scenario.New(hub, sd, opts...)
	runErr := driver.Run(ctx)

	if runShowStats {
		printStats(cmd.OutOrStdout(), hub)
	}

	if runErr != nil && ctx.Err() != nil {
		// Interrupted: the scenario drained cleanly, not a failure.
		return nil
	}
	return runErr
}

func printStats(w io.Writer, hub *coordination.Hub) {
	snap := hub.Metrics()
	if len(snap) == 0 {
		return
	}

	categories := make([]string, 0, len(snap))
	for c := range snap {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	fmt.Fprintf(w, "%-32s %8s %8s %12s %12s\n", "OPERATION", "COUNT", "FAILED", "MEAN WAIT", "MAX WAIT")
	for _, c := range categories {
		cs := snap[c]
		fmt.Fprintf(w, "%-32s %8d %8d %12s %12s\n",
			c, cs.Count, cs.Failures(), cs.MeanWait(), cs.MaxWait)
	}
}
