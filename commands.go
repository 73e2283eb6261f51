package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"telesheet/internal/browser"
	"telesheet/internal/extractor"
	"telesheet/internal/fetcher"
	"telesheet/internal/formatter"
	"telesheet/internal/network"
	"telesheet/internal/pledge"
	"telesheet/internal/report"
	"telesheet/internal/retry"
	"telesheet/internal/schedule"
	"telesheet/internal/scraper"
	"telesheet/internal/server"
	"telesheet/internal/sheet"
	"telesheet/internal/telemetry"
	"telesheet/internal/workflow"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Scrape every selected network once and append the rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			job, err := updateJob(ctx)
			if err != nil {
				return err
			}
			return job(ctx)
		},
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the update as an HTTP function (POST /run)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			job, err := updateJob(ctx)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("addr") {
				addr = fmt.Sprintf(":%d", cfg.Port)
			}
			srv := server.New(server.Job(job), server.Options{
				Timeout:          totalTimeout(),
				RequireScheduled: requireScheduled,
			}, slog.Default())
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8888", "Listen address, defaults to :$PORT")
	cmd.Flags().BoolVar(&requireScheduled, "require-scheduled", false, "Reject requests without the "+server.ScheduledHeader+" header")
	return cmd
}

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the update on a cron schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			sched, err := schedule.New(cronSpec, slog.Default())
			if err != nil {
				return err
			}
			job, err := updateJob(ctx)
			if err != nil {
				return err
			}
			return sched.Run(ctx, runNow, schedule.Job(job))
		},
	}
	cmd.Flags().StringVar(&cronSpec, "cron", "@hourly", `Cron expression or descriptor ("@daily", "@every 4h")`)
	cmd.Flags().BoolVar(&runNow, "now", false, "Also run once immediately")
	return cmd
}

func nodesCmd() *cobra.Command {
	var chain string
	cmd := &cobra.Command{
		Use:   "nodes",
		Short: "Record every node of a chain from the telemetry feed in a daily sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			if err := cfg.ValidateTelemetry(); err != nil {
				return err
			}
			target, ok := network.Get(chain)
			if !ok || target.ChainID == "" {
				return fmt.Errorf("unknown network or missing chain id: %s", chain)
			}

			appender, err := newAppender(ctx, telemetry.Columns)
			if err != nil {
				return err
			}
			r := &workflow.NodesRunner{
				Feed:   telemetry.NewCollector(cfg.Telemetry.URL, target.ChainID, slog.Default()),
				Sheet:  appender,
				Prefix: target.Range,
				Log:    slog.Default(),
			}
			_, _, err = r.Run(ctx)
			return err
		},
	}
	cmd.Flags().StringVar(&chain, "chain", "mainnet", "Network whose chain id to subscribe to")
	return cmd
}

func extractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract FILE",
		Short: "Read the stats from a saved dashboard HTML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open page: %w", err)
			}
			defer f.Close()

			finder, err := extractor.NewDocumentFinder(f)
			if err != nil {
				return err
			}
			s := scraper.New(scraper.DefaultFields(), scraper.DefaultOptions(), slog.Default())
			stats := s.Extract(cmd.Context(), finder, slog.Default())

			out, err := formatter.Format(statsTable(args[0], stats), outputFormat)
			if err != nil {
				return err
			}
			fmt.Println(out)
			if stats.NodeCount == nil {
				return scraper.ErrNoNodeCount
			}
			return nil
		},
	}
}

// updateJob wires the scrape, fetch and append pipeline for the selected
// networks.
func updateJob(ctx context.Context) (func(ctx context.Context) error, error) {
	targets, err := network.Resolve(network.ParseIDs(strings.Join(networks, ",")))
	if err != nil {
		return nil, err
	}
	appender, err := newAppender(ctx, report.Header)
	if err != nil {
		return nil, err
	}

	log := slog.Default()
	policy := retry.Policy{Attempts: attempts, Delay: retryDelay}

	opts := scraper.DefaultOptions()
	opts.NavTimeout = navTimeout
	opts.DumpDir = dumpDir
	opts.WaitFor = fetcher.WaitStrategy(waitFor)
	opts.WaitTarget = waitTarget
	s := scraper.New(scraper.DefaultFields(), opts, log)

	runner := &workflow.Runner{
		Open: workflow.BrowserOpener(browser.Config{
			ProxyURL:  proxyURL,
			Headless:  !showUI,
			Bin:       cfg.Browser.Bin,
			NoSandbox: noSandbox,
		}, s),
		Pledge: pledge.Retrying{
			Next:   pledge.Router{API: pledge.NewAPIFetcher(30 * time.Second), RPC: pledge.NewRPCFetcher()},
			Policy: policy,
			Log:    log,
		},
		Sheet:       appender,
		Log:         log,
		Policy:      policy,
		Timeout:     timeout,
		MinInterval: minInterval,
	}

	return func(ctx context.Context) error {
		start := time.Now()
		results, err := runner.Run(ctx, targets)
		summary, ferr := formatter.Format(summaryTable(results), "text")
		if ferr == nil {
			fmt.Fprintln(os.Stderr, summary)
		}
		if err != nil {
			log.Error("update failed", "duration", time.Since(start), "err", err)
			return err
		}
		log.Info("update finished", "duration", time.Since(start))
		return nil
	}, nil
}

// newAppender returns the sheet client, or a printer on --dry-run.
func newAppender(ctx context.Context, header []string) (sheet.Appender, error) {
	if dryRun {
		if _, err := formatter.Format(formatter.Table{}, outputFormat); err != nil {
			return nil, err
		}
		return &formatter.Printer{Out: os.Stdout, Format: outputFormat, Header: header}, nil
	}
	if err := cfg.ValidateSheet(); err != nil {
		return nil, err
	}
	return sheet.New(ctx, sheet.Credentials{
		Email:      cfg.Sheet.ClientEmail,
		PrivateKey: cfg.Sheet.PrivateKey,
	}, cfg.Sheet.SpreadsheetID)
}

// totalTimeout bounds a whole served run: every attempt plus the delays.
func totalTimeout() time.Duration {
	if timeout <= 0 {
		return 0
	}
	n := time.Duration(max(attempts, 1))
	return n*timeout + (n-1)*retryDelay
}

func summaryTable(results []workflow.Result) formatter.Table {
	t := formatter.Table{Title: "summary", Header: []string{"Network", "Status", "Node Count", "Space Pledged"}}
	for _, r := range results {
		switch {
		case r.Row != nil:
			t.Rows = append(t.Rows, []any{r.Target.ID, "appended", r.Row.NodeCount, r.Row.SpacePledged})
		case r.Skipped:
			t.Rows = append(t.Rows, []any{r.Target.ID, "skipped", report.Missing, report.Missing})
		default:
			t.Rows = append(t.Rows, []any{r.Target.ID, "failed", report.Missing, report.Missing})
		}
	}
	return t
}

func statsTable(title string, s scraper.Stats) formatter.Table {
	t := formatter.Table{Title: title, Header: []string{"Field", "Value"}}
	add := func(name string, v *int) {
		if v == nil {
			t.Rows = append(t.Rows, []any{name, report.Missing})
			return
		}
		t.Rows = append(t.Rows, []any{name, *v})
	}
	add("nodeCount", s.NodeCount)
	add("subspaceNodeCount", s.SubspaceNodeCount)
	add("spaceAcresNodeCount", s.SpaceAcresNodeCount)
	add("linuxNodeCount", s.LinuxNodeCount)
	add("windowsNodeCount", s.WindowsNodeCount)
	add("macosNodeCount", s.MacOSNodeCount)
	return t
}
