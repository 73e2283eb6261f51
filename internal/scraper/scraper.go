package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"telesheet/internal/extractor"
	"telesheet/internal/fetcher"
	"telesheet/internal/network"
	"telesheet/internal/output"
	"telesheet/internal/retry"

	"github.com/go-rod/rod"
)

// Options tunes how a dashboard page is driven before extraction.
type Options struct {
	NavTimeout    time.Duration        // navigation + load event
	ReadySelector string               // element that signals the chain list rendered
	ReadyTimeout  time.Duration        // bound for each readiness wait
	WaitFor       fetcher.WaitStrategy // how to let the page settle after the chain list, empty to skip
	WaitTarget    string               // selector or duration for WaitFor
	TabXPath      string               // tab to click before reading the stats tables, empty to skip
	Click         retry.Policy
	StatsSelector string        // element that signals the stats tables rendered
	LookupTimeout time.Duration // bound for a single locator evaluation
	DumpDir       string        // where to dump the page when the node count is missing
}

// DefaultOptions returns the settings used against the telemetry dashboards.
func DefaultOptions() Options {
	return Options{
		NavTimeout:    60 * time.Second,
		ReadySelector: ".Chains-chain-selected",
		ReadyTimeout:  15 * time.Second,
		WaitFor:       fetcher.WaitStrategyIdle,
		TabXPath:      `//*[@id="root"]/div/div[2]/div[1]/div[6]/div[3]`,
		Click:         retry.Default,
		StatsSelector: "td.Stats-count",
		LookupTimeout: 10 * time.Second,
	}
}

var errTabNotFound = errors.New("tab element not found")

const clickByXPath = `(xpath) => {
	const el = document.evaluate(xpath, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
	if (!el) {
		return false;
	}
	el.click();
	return true;
}`

// Scraper reads node statistics off a telemetry dashboard page.
type Scraper struct {
	fields Fields
	opts   Options
	log    *slog.Logger
}

func New(fields Fields, opts Options, log *slog.Logger) *Scraper {
	if log == nil {
		log = slog.Default()
	}
	return &Scraper{fields: fields, opts: opts, log: log}
}

// Scrape drives page to the target's dashboard and extracts its stats.
// Navigation, readiness and click problems are logged and extraction still
// runs; only a missing node count fails the call.
func (s *Scraper) Scrape(ctx context.Context, page *rod.Page, target network.Target) (Stats, error) {
	log := s.log.With("network", target.ID)

	log.Info("navigating to dashboard", "url", target.DashboardURL)
	if res, err := fetcher.Navigate(ctx, page, target.DashboardURL, s.opts.NavTimeout); err != nil {
		log.Warn("navigation incomplete", "err", err)
	} else {
		log.Debug("page loaded", "title", res.Title, "load_time", res.LoadTime)
	}

	if s.opts.ReadySelector != "" {
		if err := fetcher.Wait(ctx, page, fetcher.WaitStrategyElement, s.opts.ReadySelector, s.opts.ReadyTimeout); err != nil {
			log.Warn("chain selector not found", "err", err)
		}
	}
	if s.opts.WaitFor != "" {
		if err := fetcher.Wait(ctx, page, s.opts.WaitFor, s.opts.WaitTarget, s.opts.ReadyTimeout); err != nil {
			log.Warn("page did not settle", "strategy", s.opts.WaitFor, "err", err)
		}
	}

	if s.opts.TabXPath != "" {
		if err := s.clickTab(ctx, page, log); err != nil {
			log.Warn("failed to switch tab", "err", err)
		} else if s.opts.StatsSelector != "" {
			if err := fetcher.Wait(ctx, page, fetcher.WaitStrategyElement, s.opts.StatsSelector, s.opts.ReadyTimeout); err != nil {
				log.Warn("stats tables not rendered", "err", err)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}

	stats := s.Extract(ctx, extractor.NewPageFinder(page, s.opts.LookupTimeout), log)
	if stats.NodeCount == nil {
		s.dump(ctx, page, target, log)
		return stats, fmt.Errorf("%s: %w", target.ID, ErrNoNodeCount)
	}
	return stats, nil
}

// Extract resolves every field chain against f. Fields that cannot be
// resolved stay nil.
func (s *Scraper) Extract(ctx context.Context, f extractor.Finder, log *slog.Logger) Stats {
	if log == nil {
		log = s.log
	}
	var stats Stats
	for _, field := range s.fields.bind(&stats) {
		m, ok, errs := field.chain.Resolve(ctx, f)
		for _, err := range errs {
			log.Debug("locator miss", "field", field.name, "err", err)
		}
		if !ok {
			log.Info("field not found", "field", field.name)
			continue
		}
		v := m.Value
		*field.dst = &v
		log.Info("field extracted", "field", field.name, "value", v, "locator", m.Index)
	}
	return stats
}

func (s *Scraper) clickTab(ctx context.Context, page *rod.Page, log *slog.Logger) error {
	return retry.Do(ctx, s.opts.Click, log, func(ctx context.Context, _ int) error {
		res, err := page.Context(ctx).Timeout(s.opts.LookupTimeout).Eval(clickByXPath, s.opts.TabXPath)
		if err != nil {
			return err
		}
		if !res.Value.Bool() {
			return errTabNotFound
		}
		return nil
	})
}

func (s *Scraper) dump(ctx context.Context, page *rod.Page, target network.Target, log *slog.Logger) {
	if s.opts.DumpDir == "" {
		return
	}
	html, err := page.Context(ctx).Timeout(s.opts.LookupTimeout).HTML()
	if err != nil {
		log.Warn("failed to read page for dump", "err", err)
		return
	}
	path, err := output.Write(s.opts.DumpDir, output.Dump{
		Network: target.ID,
		URL:     target.DashboardURL,
		HTML:    html,
		Taken:   time.Now(),
	})
	if err != nil {
		log.Warn("failed to write dump", "err", err)
		return
	}
	log.Info("page dumped", "path", path)
}
