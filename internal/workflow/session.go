package workflow

import (
	"context"

	"telesheet/internal/browser"
	"telesheet/internal/network"
	"telesheet/internal/scraper"
)

// Session scrapes dashboards. Implementations must tolerate concurrent
// Scrape calls.
type Session interface {
	Scrape(ctx context.Context, target network.Target) (scraper.Stats, error)
	Close() error
}

// Opener starts a Session, once per workflow attempt.
type Opener func(ctx context.Context) (Session, error)

// BrowserOpener launches a browser per attempt and scrapes each target on
// its own page.
func BrowserOpener(cfg browser.Config, s *scraper.Scraper) Opener {
	return func(ctx context.Context) (Session, error) {
		b, err := browser.New(cfg)
		if err != nil {
			return nil, err
		}
		return &browserSession{browser: b, scraper: s}, nil
	}
}

type browserSession struct {
	browser *browser.Browser
	scraper *scraper.Scraper
}

func (s *browserSession) Scrape(ctx context.Context, target network.Target) (scraper.Stats, error) {
	page, err := s.browser.NewPage(ctx)
	if err != nil {
		return scraper.Stats{}, err
	}
	defer page.Close()
	return s.scraper.Scrape(ctx, page, target)
}

func (s *browserSession) Close() error {
	return s.browser.Close()
}
