package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Config controls how the browser process is launched.
type Config struct {
	ProxyURL  string
	Headless  bool
	Bin       string // explicit Chromium binary, empty to let rod download/locate one
	NoSandbox bool   // needed inside most containers
}

// Browser wraps a rod.Browser together with the launcher that owns the process.
type Browser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher

	closeOnce sync.Once
	closeErr  error
}

// New launches a browser process and connects to it.
func New(cfg Config) (*Browser, error) {
	l := launcher.New().Headless(cfg.Headless)

	if cfg.ProxyURL != "" {
		l = l.Proxy(cfg.ProxyURL)
	}
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}
	if cfg.NoSandbox {
		l = l.NoSandbox(true)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	return &Browser{
		browser:  b,
		launcher: l,
	}, nil
}

// NewPage opens a blank page bound to ctx.
func (b *Browser) NewPage(ctx context.Context) (*rod.Page, error) {
	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return page, nil
}

// Close shuts the browser down and kills the launched process. Only the first
// call does any work; later calls return the first result.
func (b *Browser) Close() error {
	b.closeOnce.Do(func() {
		if b.browser != nil {
			b.closeErr = b.browser.Close()
		}
		if b.launcher != nil {
			b.launcher.Kill()
		}
	})
	return b.closeErr
}
