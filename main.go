package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"telesheet/internal/config"
	"telesheet/internal/fetcher"
)

var version = "dev"

var (
	networks     []string
	attempts     int
	retryDelay   time.Duration
	timeout      time.Duration
	navTimeout   time.Duration
	waitFor      string
	waitTarget   string
	showUI       bool
	proxyURL     string
	noSandbox    bool
	dryRun       bool
	outputFormat string
	dumpDir      string
	minInterval  time.Duration
	envFile      string
	verbose      bool

	cronSpec         string
	runNow           bool
	addr             string
	requireScheduled bool
)

// cfg is loaded before any command runs.
var cfg *config.Config

func main() {
	var rootCmd = &cobra.Command{
		Use:     "telesheet",
		Short:   "Record Subspace telemetry dashboard stats in a Google Sheet",
		Version: version,
		Long: `telesheet reads node counts off the Subspace telemetry dashboards with a
headless browser, fetches the space pledged by each network and appends one
row per network to a Google Sheet.`,
		Example: `  # Scrape the default networks once
  telesheet run

  # Print rows instead of writing them
  telesheet run --network taurus,mainnet --dry-run -f json

  # Poll every four hours, starting now
  telesheet schedule --cron "@every 4h" --now

  # Serve the update as a scheduled HTTP function
  telesheet serve --require-scheduled

  # Record every mainnet node in today's sheet
  telesheet nodes

  # Read the stats from a saved dashboard page
  telesheet extract dump.html`,
		PersistentPreRunE: setup,
		SilenceUsage:      true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringSliceVarP(&networks, "network", "n", nil, "Networks to process (defaults to TELESHEET_NETWORKS or taurus,gemini-3h)")
	pf.IntVar(&attempts, "attempts", 3, "Attempts per run and per space pledged fetch")
	pf.DurationVar(&retryDelay, "retry-delay", 2*time.Second, "Delay between attempts")
	pf.DurationVarP(&timeout, "timeout", "t", 5*time.Minute, "Time limit for one attempt (0 for none)")
	pf.DurationVar(&navTimeout, "nav-timeout", 60*time.Second, "Page navigation timeout")
	pf.StringVar(&waitFor, "wait-for", "idle", "How to let the dashboard settle: load, element, idle or time")
	pf.StringVar(&waitTarget, "wait-target", "", `Selector for --wait-for element, duration for --wait-for time ("5s")`)
	pf.BoolVar(&showUI, "showui", false, "Show browser UI (disable headless mode)")
	pf.StringVarP(&proxyURL, "proxy", "p", "", "Proxy URL (e.g. http://127.0.0.1:7890), defaults to TELESHEET_PROXY env var")
	pf.BoolVar(&noSandbox, "no-sandbox", false, "Launch Chromium without its sandbox (containers)")
	pf.BoolVar(&dryRun, "dry-run", false, "Print rows instead of appending them to the sheet")
	pf.StringVarP(&outputFormat, "format", "f", "text", "Output format for printed rows (text, json, csv)")
	pf.StringVar(&dumpDir, "dump-dir", "", "Dump pages without a node count as markdown into this directory")
	pf.DurationVar(&minInterval, "min-interval", 0, "Skip networks whose sheet already has a row newer than this")
	pf.StringVar(&envFile, "env-file", ".env", "Environment file to load if present")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(runCmd(), serveCmd(), scheduleCmd(), nodesCmd(), extractCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup configures logging and loads the environment. Flags that were set
// explicitly win over the environment.
func setup(cmd *cobra.Command, _ []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
	})))

	if err := validateFlags(); err != nil {
		return err
	}

	var err error
	cfg, err = config.Load(envFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if !flags.Changed("network") {
		networks = cfg.Networks
	}
	if !flags.Changed("proxy") {
		proxyURL = cfg.Browser.Proxy
	}
	return nil
}

func validateFlags() error {
	if attempts < 1 {
		return fmt.Errorf("--attempts must be at least 1, got %d", attempts)
	}
	if err := fetcher.Validate(fetcher.WaitStrategy(waitFor), waitTarget); err != nil {
		return fmt.Errorf("--wait-for %s: %w", waitFor, err)
	}
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
