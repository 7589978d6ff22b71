// Package browser owns a lazily launched headless Chromium shared by all
// pages of one scraper.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/SecondPrice/internal/observability"
	"github.com/IshaanNene/SecondPrice/internal/types"
)

// Options configures the browser launch and every page it opens.
type Options struct {
	Headless       bool
	Stealth        bool
	BrowserBin     string
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	Timeout        time.Duration
}

// Browser is a lazily-initialised, reusable browser instance. Init and Close
// are idempotent and safe for concurrent use.
type Browser struct {
	opts     Options
	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// New creates a Browser. Nothing is launched until Init or NewPage.
func New(opts Options, logger *slog.Logger, metrics *observability.Metrics) *Browser {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Browser{
		opts:    opts,
		metrics: metrics,
		logger:  logger.With("component", "browser"),
	}
}

// Init launches and connects the browser if it is not already running.
// Launch and connect failures wrap types.ErrBrowserUnavailable.
func (b *Browser) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		return nil
	}

	l := launcher.New().
		Headless(b.opts.Headless).
		NoSandbox(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("disable-blink-features", "AutomationControlled")
	if b.opts.BrowserBin != "" {
		l = l.Bin(b.opts.BrowserBin)
	}
	if b.opts.ViewportWidth > 0 && b.opts.ViewportHeight > 0 {
		l = l.Set("window-size", fmt.Sprintf("%d,%d", b.opts.ViewportWidth, b.opts.ViewportHeight))
	}

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: launch: %w", types.ErrBrowserUnavailable, err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("%w: connect: %w", types.ErrBrowserUnavailable, err)
	}

	b.browser = browser
	b.launcher = l
	b.logger.Info("browser started", "headless", b.opts.Headless, "stealth", b.opts.Stealth)
	return nil
}

// NewPage opens a fresh tab with the configured viewport and user agent.
// The caller must Close it.
func (b *Browser) NewPage(ctx context.Context) (Page, error) {
	if err := b.Init(ctx); err != nil {
		return nil, err
	}

	b.mu.Lock()
	browser := b.browser
	b.mu.Unlock()
	if browser == nil {
		return nil, fmt.Errorf("%w: closed while opening page", types.ErrBrowserUnavailable)
	}

	var (
		page *rod.Page
		err  error
	)
	if b.opts.Stealth {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}

	if b.opts.ViewportWidth > 0 && b.opts.ViewportHeight > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             b.opts.ViewportWidth,
			Height:            b.opts.ViewportHeight,
			DeviceScaleFactor: 1,
		}); err != nil {
			b.logger.Warn("failed to set viewport", "error", err)
		}
	}
	if b.opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: b.opts.UserAgent}); err != nil {
			b.logger.Warn("failed to set user agent", "error", err)
		}
	}

	if b.metrics != nil {
		b.metrics.BrowserPagesOpen.Add(1)
	}
	return &RodPage{
		page:    page,
		timeout: b.opts.Timeout,
		onClose: func() {
			if b.metrics != nil {
				b.metrics.BrowserPagesOpen.Add(-1)
			}
		},
	}, nil
}

// Running reports whether a browser process is connected.
func (b *Browser) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.browser != nil
}

// Close shuts the browser down. Closing a browser that never started, or
// closing twice, is a no-op.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	if b.launcher != nil {
		b.launcher.Kill()
	}
	b.browser = nil
	b.launcher = nil
	b.logger.Info("browser closed")
	if err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}
