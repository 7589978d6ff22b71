package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/SecondPrice/internal/browser"
	"github.com/IshaanNene/SecondPrice/internal/cache"
	"github.com/IshaanNene/SecondPrice/internal/config"
	"github.com/IshaanNene/SecondPrice/internal/fetcher"
	"github.com/IshaanNene/SecondPrice/internal/history"
	"github.com/IshaanNene/SecondPrice/internal/manager"
	"github.com/IshaanNene/SecondPrice/internal/observability"
	"github.com/IshaanNene/SecondPrice/internal/retry"
	"github.com/IshaanNene/SecondPrice/internal/scraper/carousell"
	"github.com/IshaanNene/SecondPrice/internal/scraper/facebook"
)

// app is everything built from one Config.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *observability.Metrics
	recorder *history.Multi
	manager  *manager.Manager
}

// newApp wires scrapers, history and metrics into a Manager.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	metrics := observability.NewMetrics(logger)

	recorder, err := history.Open(ctx, cfg.History, logger)
	if err != nil {
		logger.Warn("search history partially unavailable", "error", err)
	}

	m := manager.New(logger,
		manager.WithDeadline(cfg.Server.PlatformDeadline),
		manager.WithRecorder(recorder),
		manager.WithMetrics(metrics),
	)

	runner := retry.New(cfg.Scraper.RetryCount, cfg.Scraper.RetryDelay, logger,
		retry.WithRetryHook(metrics.RetryHook()))

	if cfg.Carousell.Enabled {
		f, err := fetcher.NewHTTPFetcher(cfg.Scraper, logger,
			fetcher.WithBlockCache(newCache(cfg.Cache, logger), cfg.Cache.RateLimitBlock),
			fetcher.WithMetrics(metrics),
			fetcher.WithProxy(cfg.Proxy),
		)
		if err != nil {
			_ = recorder.Close(ctx)
			return nil, fmt.Errorf("create fetcher: %w", err)
		}
		m.Register(carousell.Name, carousell.New(cfg.Carousell, f, runner, logger))
	}

	if cfg.Facebook.Enabled {
		b := browser.New(browser.Options{
			Headless:       cfg.Facebook.Headless,
			Stealth:        cfg.Facebook.Stealth,
			BrowserBin:     cfg.Facebook.BrowserBin,
			UserAgent:      cfg.Scraper.UserAgent,
			ViewportWidth:  cfg.Facebook.ViewportWidth,
			ViewportHeight: cfg.Facebook.ViewportHeight,
			Timeout:        cfg.Scraper.Timeout,
		}, logger, metrics)
		m.Register(facebook.Name, facebook.New(cfg.Facebook, b, runner, logger))
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		recorder: recorder,
		manager:  m,
	}, nil
}

// Close shuts down scrapers, then history backends.
func (a *app) Close(ctx context.Context) error {
	return errors.Join(a.manager.Close(ctx), a.recorder.Close(ctx))
}

// newCache returns the configured rate-limit block cache. An unreachable
// memcached falls back to process memory.
func newCache(cfg config.CacheConfig, logger *slog.Logger) cache.Cache {
	if cfg.Backend != "memcache" {
		return cache.NewMemory()
	}
	mc := cache.NewMemcache(cfg.MemcacheAddr)
	if err := mc.Ping(); err != nil {
		logger.Warn("memcached unreachable, using in-process cache", "addr", cfg.MemcacheAddr, "error", err)
		return cache.NewMemory()
	}
	return mc
}
