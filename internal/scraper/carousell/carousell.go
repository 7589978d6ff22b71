// Package carousell scrapes Carousell's server-rendered search and listing
// pages over plain HTTP.
package carousell

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/IshaanNene/SecondPrice/internal/config"
	"github.com/IshaanNene/SecondPrice/internal/fetcher"
	"github.com/IshaanNene/SecondPrice/internal/pipeline"
	"github.com/IshaanNene/SecondPrice/internal/retry"
	"github.com/IshaanNene/SecondPrice/internal/scraper"
	"github.com/IshaanNene/SecondPrice/internal/types"
)

// Name is the platform id and the source stamped on every listing.
const Name = "carousell"

// Scraper implements scraper.Scraper for Carousell.
type Scraper struct {
	cfg      config.CarousellConfig
	fetcher  fetcher.Fetcher
	runner   *retry.Runner
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
}

var _ scraper.Scraper = (*Scraper)(nil)

// New creates a Carousell scraper that fetches through f and retries with runner.
func New(cfg config.CarousellConfig, f fetcher.Fetcher, runner *retry.Runner, logger *slog.Logger) *Scraper {
	logger = logger.With("component", "scraper", "platform", Name)
	return &Scraper{
		cfg:      cfg,
		fetcher:  f,
		runner:   runner,
		pipeline: pipeline.New(logger, &pipeline.TrimMiddleware{}),
		logger:   logger,
	}
}

func (s *Scraper) Name() string { return Name }

// SearchURL builds {base}/search/{keyword}[/c/{category}]?sort_by={sort}.
func (s *Scraper) SearchURL(keyword string, opts types.SearchOptions) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(s.cfg.BaseURL, "/"))
	b.WriteString("/search/")
	b.WriteString(url.PathEscape(keyword))
	if opts.Category != "" {
		b.WriteString("/c/")
		b.WriteString(url.PathEscape(opts.Category))
	}

	sort := opts.SortBy
	if sort == "" {
		sort = s.cfg.DefaultSort
	}
	if sort != "" {
		b.WriteString("?")
		b.WriteString(url.Values{"sort_by": {sort}}.Encode())
	}
	return b.String()
}

// Search fetches one results page and returns up to the option limit.
// Failures never escape: they are logged and reported as a failed result.
func (s *Scraper) Search(ctx context.Context, keyword string, opts types.SearchOptions) types.SearchResult {
	searchURL := s.SearchURL(keyword, opts)
	limit := opts.EffectiveLimit()

	resp, err := s.fetch(ctx, "carousell-search-"+keyword, searchURL)
	if err != nil {
		s.logger.Error("search failed", "keyword", keyword, "url", searchURL, "error", err)
		return types.Failed(Name, &types.ScrapeError{Platform: Name, Op: "search", URL: searchURL, Err: err})
	}

	doc, err := resp.Document()
	if err != nil {
		s.logger.Error("parse search page", "url", searchURL, "error", err)
		return types.Failed(Name, &types.ScrapeError{Platform: Name, Op: "search", URL: searchURL, Err: err})
	}

	raws := s.pipeline.Run(parseSearch(doc, s.cfg.BaseURL, searchURL, limit))
	listings := make([]types.Listing, 0, len(raws))
	for _, raw := range raws {
		listings = append(listings, types.Normalize(Name, raw))
	}

	s.logger.Info("search complete", "keyword", keyword, "results", len(listings))
	return types.Succeeded(Name, listings)
}

// GetDetails fetches a listing page. Unlike Search, failures are returned.
func (s *Scraper) GetDetails(ctx context.Context, listingURL string) (types.Listing, error) {
	resp, err := s.fetch(ctx, "carousell-details-"+listingURL, listingURL)
	if err != nil {
		return types.Listing{}, &types.ScrapeError{Platform: Name, Op: "details", URL: listingURL, Err: err}
	}

	doc, err := resp.Document()
	if err != nil {
		return types.Listing{}, &types.ScrapeError{Platform: Name, Op: "details", URL: listingURL, Err: err}
	}

	raw := parseDetails(doc, listingURL)
	fillFromMeta(raw, resp.Body, s.logger)

	raw, err = s.pipeline.Process(raw)
	if err != nil {
		return types.Listing{}, &types.ScrapeError{Platform: Name, Op: "details", URL: listingURL, Err: err}
	}
	return types.Normalize(Name, raw), nil
}

// Shutdown releases idle connections. The scraper stays usable afterwards.
func (s *Scraper) Shutdown(ctx context.Context) error {
	return s.fetcher.Close()
}

func (s *Scraper) fetch(ctx context.Context, task, target string) (*types.Response, error) {
	return retry.Do(ctx, s.runner, task, func(ctx context.Context) (*types.Response, error) {
		resp, err := s.fetcher.Fetch(ctx, target)
		if err != nil && fetcher.IsPermanent(err) {
			return nil, retry.Permanent(err)
		}
		return resp, err
	})
}
