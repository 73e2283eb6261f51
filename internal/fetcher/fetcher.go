package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// WaitStrategy decides when a loaded page is ready to be read.
type WaitStrategy string

const (
	WaitStrategyLoad    WaitStrategy = "load"    // Wait for the load event
	WaitStrategyElement WaitStrategy = "element" // Wait for a selector to appear
	WaitStrategyIdle    WaitStrategy = "idle"    // Wait until the network goes quiet
	WaitStrategyTime    WaitStrategy = "time"    // Wait for a fixed duration
)

// idleWindow is how long the network must stay quiet for WaitStrategyIdle.
const idleWindow = 500 * time.Millisecond

// Result describes the page after navigation.
type Result struct {
	Title    string
	URL      string
	LoadTime time.Duration
}

// Navigate loads url in page and waits for the load event, both bounded by
// timeout.
func Navigate(ctx context.Context, page *rod.Page, url string, timeout time.Duration) (*Result, error) {
	start := time.Now()
	p := page.Context(ctx).Timeout(timeout)

	if err := p.Navigate(url); err != nil {
		return nil, fmt.Errorf("failed to navigate: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return nil, fmt.Errorf("failed to wait for page load: %w", err)
	}

	res := &Result{URL: url, LoadTime: time.Since(start)}
	if info, err := page.Context(ctx).Info(); err == nil {
		res.Title = info.Title
		res.URL = info.URL
	}
	return res, nil
}

// Validate checks that target suits strategy without touching a page.
func Validate(strategy WaitStrategy, target string) error {
	switch strategy {
	case WaitStrategyLoad, WaitStrategyIdle:
		return nil
	case WaitStrategyElement:
		if target == "" {
			return fmt.Errorf("wait target is required for element strategy")
		}
		return nil
	case WaitStrategyTime:
		if _, err := time.ParseDuration(target); err != nil {
			return fmt.Errorf("invalid wait time '%s': %w", target, err)
		}
		return nil
	default:
		return fmt.Errorf("unknown wait strategy: %s", strategy)
	}
}

// Wait applies a wait strategy. target is a CSS selector for the element
// strategy and a duration ("5s", "1500ms") for the time strategy.
func Wait(ctx context.Context, page *rod.Page, strategy WaitStrategy, target string, timeout time.Duration) error {
	if err := Validate(strategy, target); err != nil {
		return err
	}
	bounded := func() *rod.Page { return page.Context(ctx).Timeout(timeout) }

	switch strategy {
	case WaitStrategyLoad:
		if err := bounded().WaitLoad(); err != nil {
			return fmt.Errorf("failed to wait for page load: %w", err)
		}

	case WaitStrategyElement:
		if _, err := bounded().Element(target); err != nil {
			return fmt.Errorf("failed to wait for element '%s': %w", target, err)
		}

	case WaitStrategyIdle:
		wait := bounded().WaitRequestIdle(
			idleWindow, nil, nil,
			[]proto.NetworkResourceType{proto.NetworkResourceTypeImage, proto.NetworkResourceTypeMedia},
		)
		wait()
		if err := ctx.Err(); err != nil {
			return err
		}

	case WaitStrategyTime:
		d, _ := time.ParseDuration(target)
		return Sleep(ctx, d)
	}

	return nil
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
