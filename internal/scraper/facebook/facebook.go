// Package facebook scrapes Facebook Marketplace by driving a headless
// browser, since its listings are rendered client side.
package facebook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/IshaanNene/SecondPrice/internal/browser"
	"github.com/IshaanNene/SecondPrice/internal/config"
	"github.com/IshaanNene/SecondPrice/internal/pipeline"
	"github.com/IshaanNene/SecondPrice/internal/retry"
	"github.com/IshaanNene/SecondPrice/internal/scraper"
	"github.com/IshaanNene/SecondPrice/internal/types"
)

// Name is the platform id. Listings carry Source instead.
const (
	Name   = "facebook"
	Source = "facebook-marketplace"
)

const (
	selCookieAccept = `button[data-testid="cookie-policy-manage-dialog-accept-button"]`
	selResults      = `[aria-label="Marketplace items"]`
	selResultCards  = `[aria-label="Marketplace items"] > div > div`
	selDetailFeed   = `[data-pagelet="MainFeed"]`

	selEmail    = "#email"
	selPassword = "#pass"
	selLogin    = "#loginbutton"
)

// Scraper implements scraper.Scraper for Facebook Marketplace. Pages are
// opened per call and always closed; the browser behind them is shared.
type Scraper struct {
	cfg     config.FacebookConfig
	browser browser.Opener
	runner  *retry.Runner
	logger  *slog.Logger

	scrollPause time.Duration
	settle      time.Duration

	mu             sync.Mutex
	loginAttempted bool
	loggedIn       bool
}

var _ scraper.Scraper = (*Scraper)(nil)

// New creates a Facebook scraper on top of b. Opening the results page is
// retried with runner.
func New(cfg config.FacebookConfig, b browser.Opener, runner *retry.Runner, logger *slog.Logger) *Scraper {
	return &Scraper{
		cfg:         cfg,
		browser:     b,
		runner:      runner,
		logger:      logger.With("component", "scraper", "platform", Name),
		scrollPause: 100 * time.Millisecond,
		settle:      time.Second,
	}
}

func (s *Scraper) Name() string { return Name }

// SearchURL builds {base}[/{location}]/search?query={keyword}&exact=false.
func (s *Scraper) SearchURL(keyword, location string) string {
	base := strings.TrimRight(s.cfg.BaseURL, "/")
	if location != "" {
		base += "/" + url.PathEscape(location)
	}
	return base + "/search?" + url.Values{"query": {keyword}}.Encode() + "&exact=false"
}

// LoggedIn reports whether a login succeeded in the current browser session.
func (s *Scraper) LoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loggedIn
}

// Login signs in once per browser session. Without credentials it logs that
// results may be limited and reports false. Failures are logged, never returned.
func (s *Scraper) Login(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loggedIn || s.loginAttempted {
		return s.loggedIn
	}
	if !s.cfg.HasCredentials() {
		s.logger.Warn("no login credentials configured, some listings may be hidden")
		s.loginAttempted = true
		return false
	}
	s.loginAttempted = true

	page, err := s.browser.NewPage(ctx)
	if err != nil {
		s.logger.Error("login failed", "error", err)
		return false
	}
	defer page.Close()

	ok, err := browser.Login(ctx, page, browser.LoginCredentials{
		LoginURL:         s.cfg.LoginURL,
		UsernameSelector: selEmail,
		PasswordSelector: selPassword,
		SubmitSelector:   selLogin,
		DismissSelector:  selCookieAccept,
		Username:         s.cfg.Email,
		Password:         s.cfg.Password,
		FailureMarkers:   []string{"login", "checkpoint"},
	})
	if err != nil {
		s.logger.Error("login failed", "error", err)
		return false
	}
	if !ok {
		s.logger.Error("login rejected, check credentials or a security checkpoint")
		return false
	}

	s.loggedIn = true
	s.logger.Info("logged in")
	return true
}

// Search renders the results page, scrolls until enough cards have loaded
// and extracts them. Failures are logged and reported as a failed result.
func (s *Scraper) Search(ctx context.Context, keyword string, opts types.SearchOptions) types.SearchResult {
	limit := opts.EffectiveLimit()
	location := opts.Location
	if location == "" {
		location = s.cfg.Location
	}
	searchURL := s.SearchURL(keyword, location)

	listings, err := s.search(ctx, searchURL, limit)
	if err != nil {
		s.logger.Error("search failed", "keyword", keyword, "url", searchURL, "error", err)
		return types.Failed(Name, &types.ScrapeError{Platform: Name, Op: "search", URL: searchURL, Err: err})
	}

	s.logger.Info("search complete", "keyword", keyword, "results", len(listings))
	return types.Succeeded(Name, listings)
}

func (s *Scraper) search(ctx context.Context, searchURL string, limit int) ([]types.Listing, error) {
	if s.cfg.HasCredentials() {
		s.Login(ctx)
	}

	page, err := retry.Do(ctx, s.runner, "facebook-search", func(ctx context.Context) (browser.Page, error) {
		return s.openResults(ctx, searchURL)
	})
	if err != nil {
		return nil, err
	}
	defer page.Close()

	count, scrolled, err := browser.ScrollUntil(ctx, page, browser.ScrollOptions{
		ItemSelector: selResultCards,
		Target:       limit,
		Step:         s.cfg.ScrollStep,
		Pause:        s.scrollPause,
		MaxFactor:    3,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("scrolled results", "cards", count, "distance", scrolled)

	if err := wait(ctx, s.settle); err != nil {
		return nil, err
	}

	html, err := page.HTML(ctx)
	if err != nil {
		return nil, err
	}
	raws, err := parseSearch(html, s.cfg.BaseURL, searchURL)
	if err != nil {
		return nil, err
	}

	raws = newSearchPipeline(s.logger).Run(raws)
	if len(raws) > limit {
		raws = raws[:limit]
	}
	listings := make([]types.Listing, 0, len(raws))
	for _, raw := range raws {
		listings = append(listings, types.Normalize(Source, raw))
	}
	return listings, nil
}

// openResults is one attempt at loading the results page. The page is
// closed unless it is returned.
func (s *Scraper) openResults(ctx context.Context, searchURL string) (browser.Page, error) {
	page, err := s.browser.NewPage(ctx)
	if err != nil {
		if errors.Is(err, types.ErrBrowserUnavailable) {
			return nil, retry.Permanent(err)
		}
		return nil, err
	}

	if err := page.Navigate(ctx, searchURL); err != nil {
		page.Close()
		return nil, err
	}
	if _, err := browser.DismissIfPresent(ctx, page, selCookieAccept); err != nil {
		s.logger.Debug("cookie dialog not dismissed", "error", err)
	}
	if err := page.WaitVisible(ctx, selResults); err != nil {
		page.Close()
		return nil, fmt.Errorf("wait for results: %w", err)
	}
	return page, nil
}

// GetDetails renders a listing page and extracts it. Failures are returned.
func (s *Scraper) GetDetails(ctx context.Context, listingURL string) (types.Listing, error) {
	l, err := s.getDetails(ctx, listingURL)
	if err != nil {
		return types.Listing{}, &types.ScrapeError{Platform: Name, Op: "details", URL: listingURL, Err: err}
	}
	return l, nil
}

func (s *Scraper) getDetails(ctx context.Context, listingURL string) (types.Listing, error) {
	page, err := s.browser.NewPage(ctx)
	if err != nil {
		return types.Listing{}, err
	}
	defer page.Close()

	if err := page.Navigate(ctx, listingURL); err != nil {
		return types.Listing{}, err
	}
	if err := page.WaitVisible(ctx, selDetailFeed); err != nil {
		return types.Listing{}, fmt.Errorf("wait for listing: %w", err)
	}

	html, err := page.HTML(ctx)
	if err != nil {
		return types.Listing{}, err
	}
	raw, err := parseDetails(html, listingURL)
	if err != nil {
		return types.Listing{}, err
	}
	raw, err = pipeline.New(s.logger, &pipeline.TrimMiddleware{},
		pipeline.NewHTMLSanitizeMiddleware(types.FieldTitle, types.FieldDescription)).Process(raw)
	if err != nil {
		return types.Listing{}, err
	}
	return types.Normalize(Source, raw), nil
}

// Shutdown closes the shared browser and forgets the session. A later call
// relaunches the browser and may log in again.
func (s *Scraper) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.loggedIn = false
	s.loginAttempted = false
	s.mu.Unlock()
	return s.browser.Close()
}

func newSearchPipeline(logger *slog.Logger) *pipeline.Pipeline {
	return pipeline.New(logger,
		&pipeline.TrimMiddleware{},
		pipeline.NewHTMLSanitizeMiddleware(types.FieldTitle),
		&pipeline.RequiredFieldsMiddleware{Fields: []string{types.FieldTitle, types.FieldURL}},
		pipeline.NewDedupMiddleware(types.FieldURL),
	)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
