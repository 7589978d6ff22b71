// Package manager owns the platform scrapers and answers cross-platform
// queries: concurrent fan-out, per-platform isolation, merge and sort.
package manager

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/SecondPrice/internal/history"
	"github.com/IshaanNene/SecondPrice/internal/observability"
	"github.com/IshaanNene/SecondPrice/internal/scraper"
	"github.com/IshaanNene/SecondPrice/internal/types"
)

// recordTimeout bounds how long a search waits on history recorders.
const recordTimeout = 3 * time.Second

// Manager is a registry of scrapers keyed by platform id. It is built once
// and shared; Close releases scraper resources but leaves it usable.
type Manager struct {
	mu       sync.RWMutex
	scrapers map[string]scraper.Scraper
	order    []string

	deadline time.Duration
	recorder history.Recorder
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithDeadline bounds each platform's search. Zero disables the bound.
func WithDeadline(d time.Duration) Option {
	return func(m *Manager) { m.deadline = d }
}

// WithRecorder records every search. A nil r keeps the default, which
// discards events.
func WithRecorder(r history.Recorder) Option {
	return func(m *Manager) {
		if r != nil {
			m.recorder = r
		}
	}
}

// WithMetrics counts searches and lookups.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// New creates an empty Manager.
func New(logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		scrapers: make(map[string]scraper.Scraper),
		recorder: history.Nop{},
		logger:   logger.With("component", "manager"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register adds s under platform. Registering an id again replaces the
// scraper but keeps its original position.
func (m *Manager) Register(platform string, s scraper.Scraper) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.scrapers[platform]; !exists {
		m.order = append(m.order, platform)
	}
	m.scrapers[platform] = s
	m.logger.Info("scraper registered", "platform", platform)
}

// Get returns the scraper for platform, or false if none is registered.
func (m *Manager) Get(platform string) (scraper.Scraper, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.scrapers[platform]
	return s, ok
}

// Platforms returns the registered ids in registration order.
func (m *Manager) Platforms() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.order)
}

// SearchPlatform searches one platform. The only error it returns is
// ErrPlatformNotFound; scraper failures become an empty sequence.
func (m *Manager) SearchPlatform(ctx context.Context, platform, keyword string, opts types.SearchOptions) ([]types.Listing, error) {
	s, ok := m.Get(platform)
	if !ok {
		return nil, types.NewPlatformNotFound(platform)
	}
	m.count(func(mt *observability.Metrics) { mt.SearchesTotal.Add(1) })

	start := time.Now()
	res := m.searchOne(ctx, platform, s, keyword, opts)
	m.record(ctx, keyword, opts, []string{platform}, map[string]types.SearchResult{platform: res}, time.Since(start))
	return res.Listings, nil
}

// SearchAll searches every requested platform (all registered ones when
// opts.Platforms is empty) concurrently and waits for all of them. The map
// has one entry per requested platform; unknown ids get StatusNotFound.
func (m *Manager) SearchAll(ctx context.Context, keyword string, opts types.SearchOptions) map[string]types.SearchResult {
	platforms := m.requested(opts)
	m.count(func(mt *observability.Metrics) { mt.SearchesTotal.Add(1) })

	start := time.Now()
	results := m.fanOut(ctx, platforms, keyword, opts)
	m.record(ctx, keyword, opts, platforms, results, time.Since(start))
	return results
}

// Merged is one cross-platform search: the per-platform results and the
// listings merged from them.
type Merged struct {
	Platforms []string
	Results   map[string]types.SearchResult
	Listings  []types.Listing
}

// SearchMerged runs SearchAll and merges the results in platform order,
// sorting by price when asked, then truncating to TotalLimit.
func (m *Manager) SearchMerged(ctx context.Context, keyword string, opts types.SearchOptions) Merged {
	platforms := m.requested(opts)
	results := m.SearchAll(ctx, keyword, opts)
	merged := Merge(platforms, results, opts)
	m.count(func(mt *observability.Metrics) { mt.ListingsReturned.Add(int64(len(merged))) })
	return Merged{Platforms: platforms, Results: results, Listings: merged}
}

// SearchAndMerge returns only the merged listings of SearchMerged.
func (m *Manager) SearchAndMerge(ctx context.Context, keyword string, opts types.SearchOptions) []types.Listing {
	return m.SearchMerged(ctx, keyword, opts).Listings
}

// GetProductDetails fetches one listing. Unlike search, scraper failures
// are returned to the caller.
func (m *Manager) GetProductDetails(ctx context.Context, platform, listingURL string) (types.Listing, error) {
	s, ok := m.Get(platform)
	if !ok {
		return types.Listing{}, types.NewPlatformNotFound(platform)
	}
	m.count(func(mt *observability.Metrics) { mt.DetailLookups.Add(1) })

	l, err := s.GetDetails(ctx, listingURL)
	if err != nil {
		m.count(func(mt *observability.Metrics) { mt.DetailFailures.Add(1) })
		m.logger.Error("detail lookup failed", "platform", platform, "url", listingURL, "error", err)
		var se *types.ScrapeError
		if !errors.As(err, &se) {
			err = &types.ScrapeError{Platform: platform, Op: "details", URL: listingURL, Err: err}
		}
		return types.Listing{}, err
	}
	return l, nil
}

// Close shuts down every scraper and joins their errors. Searching after
// Close is allowed; browser-backed scrapers start again on demand.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.RLock()
	platforms := slices.Clone(m.order)
	scrapers := make([]scraper.Scraper, len(platforms))
	for i, p := range platforms {
		scrapers[i] = m.scrapers[p]
	}
	m.mu.RUnlock()

	var errs []error
	for i, s := range scrapers {
		if err := s.Shutdown(ctx); err != nil {
			m.logger.Error("scraper shutdown failed", "platform", platforms[i], "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", platforms[i], err))
		}
	}
	m.logger.Info("scrapers shut down", "count", len(scrapers))
	return errors.Join(errs...)
}

func (m *Manager) requested(opts types.SearchOptions) []string {
	if len(opts.Platforms) == 0 {
		return m.Platforms()
	}
	seen := make(map[string]bool, len(opts.Platforms))
	platforms := make([]string, 0, len(opts.Platforms))
	for _, p := range opts.Platforms {
		if !seen[p] {
			seen[p] = true
			platforms = append(platforms, p)
		}
	}
	return platforms
}

func (m *Manager) fanOut(ctx context.Context, platforms []string, keyword string, opts types.SearchOptions) map[string]types.SearchResult {
	out := make([]types.SearchResult, len(platforms))

	var g errgroup.Group
	for i, platform := range platforms {
		s, ok := m.Get(platform)
		if !ok {
			out[i] = types.SearchResult{
				Platform: platform,
				Status:   types.StatusNotFound,
				Listings: []types.Listing{},
				Err:      types.NewPlatformNotFound(platform),
			}
			continue
		}
		g.Go(func() error {
			out[i] = m.searchOne(ctx, platform, s, keyword, opts)
			return nil
		})
	}
	_ = g.Wait()

	results := make(map[string]types.SearchResult, len(platforms))
	for i, platform := range platforms {
		results[platform] = out[i]
	}
	return results
}

// searchOne runs one scraper's search under the platform deadline. A panic
// or a missed deadline becomes a non-ok result.
func (m *Manager) searchOne(ctx context.Context, platform string, s scraper.Scraper, keyword string, opts types.SearchOptions) types.SearchResult {
	start := time.Now()
	if m.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.deadline)
		defer cancel()
	}

	done := make(chan types.SearchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- types.Failed(platform, fmt.Errorf("%s search panicked: %v", platform, r))
			}
		}()
		done <- s.Search(ctx, keyword, opts)
	}()

	var res types.SearchResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res = types.Failed(platform, ctx.Err())
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			res.Status = types.StatusTimeout
			res.Err = fmt.Errorf("%w: %s gave no answer within %s", types.ErrTimeout, platform, m.deadline)
		}
	}

	res.Platform = platform
	res.Duration = time.Since(start)
	if res.Listings == nil {
		res.Listings = []types.Listing{}
	}

	m.count(func(mt *observability.Metrics) {
		mt.PlatformSearches.Add(1)
		switch res.Status {
		case types.StatusTimeout:
			mt.PlatformTimeouts.Add(1)
		case types.StatusFailed:
			mt.PlatformFailures.Add(1)
		}
	})
	if res.OK() {
		m.logger.Debug("platform search done", "platform", platform, "count", len(res.Listings), "duration", res.Duration)
	} else {
		m.logger.Error("platform search failed", "platform", platform, "status", res.Status, "error", res.Err)
	}
	return res
}

func (m *Manager) record(ctx context.Context, keyword string, opts types.SearchOptions, platforms []string, results map[string]types.SearchResult, took time.Duration) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	ev := history.NewEvent(keyword, opts, platforms, results, took)
	if err := m.recorder.Record(ctx, ev); err != nil {
		m.count(func(mt *observability.Metrics) { mt.HistoryErrors.Add(1) })
		m.logger.Warn("search history not recorded", "keyword", keyword, "error", err)
	}
}

func (m *Manager) count(fn func(mt *observability.Metrics)) {
	if m.metrics != nil {
		fn(m.metrics)
	}
}

// Merge concatenates results in platform order, sorts by price when
// opts.SortBy is "price", and truncates to opts.TotalLimit.
func Merge(platforms []string, results map[string]types.SearchResult, opts types.SearchOptions) []types.Listing {
	merged := []types.Listing{}
	for _, platform := range platforms {
		merged = append(merged, results[platform].Listings...)
	}

	if opts.SortBy == types.SortByPrice {
		SortByPrice(merged, opts.SortOrder == types.OrderDesc)
	}
	if opts.TotalLimit > 0 && len(merged) > opts.TotalLimit {
		merged = merged[:opts.TotalLimit]
	}
	return merged
}

// SortByPrice stable-sorts listings by price. Listings without a price go
// last in either direction.
func SortByPrice(listings []types.Listing, desc bool) {
	slices.SortStableFunc(listings, func(a, b types.Listing) int {
		switch {
		case a.Price == nil && b.Price == nil:
			return 0
		case a.Price == nil:
			return 1
		case b.Price == nil:
			return -1
		}
		c := cmp.Compare(*a.Price, *b.Price)
		if desc {
			return -c
		}
		return c
	})
}
