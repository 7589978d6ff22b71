package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
)

// Metrics tracks operational counters for searches and scrapers.
type Metrics struct {
	// Search metrics
	SearchesTotal    atomic.Int64
	PlatformSearches atomic.Int64
	PlatformFailures atomic.Int64
	PlatformTimeouts atomic.Int64
	ListingsReturned atomic.Int64
	DetailLookups    atomic.Int64
	DetailFailures   atomic.Int64

	// Transport metrics
	FetchesTotal    atomic.Int64
	FetchErrors     atomic.Int64
	RetriesTotal    atomic.Int64
	RateLimitBlocks atomic.Int64
	BytesDownloaded atomic.Int64

	// Browser metrics
	BrowserPagesOpen atomic.Int64

	// History metrics
	HistoryErrors atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metrics := []struct {
		name  string
		help  string
		kind  string
		value int64
	}{
		{"secondprice_searches_total", "Total search requests", "counter", m.SearchesTotal.Load()},
		{"secondprice_platform_searches_total", "Total per-platform searches", "counter", m.PlatformSearches.Load()},
		{"secondprice_platform_failures_total", "Per-platform searches that failed", "counter", m.PlatformFailures.Load()},
		{"secondprice_platform_timeouts_total", "Per-platform searches that missed the deadline", "counter", m.PlatformTimeouts.Load()},
		{"secondprice_listings_returned_total", "Listings returned to callers", "counter", m.ListingsReturned.Load()},
		{"secondprice_detail_lookups_total", "Product detail lookups", "counter", m.DetailLookups.Load()},
		{"secondprice_detail_failures_total", "Product detail lookups that failed", "counter", m.DetailFailures.Load()},
		{"secondprice_fetches_total", "HTTP fetches made", "counter", m.FetchesTotal.Load()},
		{"secondprice_fetch_errors_total", "HTTP fetches that failed", "counter", m.FetchErrors.Load()},
		{"secondprice_retries_total", "Retried attempts", "counter", m.RetriesTotal.Load()},
		{"secondprice_rate_limit_blocks_total", "Rate-limit responses from platforms", "counter", m.RateLimitBlocks.Load()},
		{"secondprice_bytes_downloaded_total", "Bytes downloaded", "counter", m.BytesDownloaded.Load()},
		{"secondprice_browser_pages_open", "Browser pages currently open", "gauge", m.BrowserPagesOpen.Load()},
		{"secondprice_history_errors_total", "Search history writes that failed", "counter", m.HistoryErrors.Load()},
	}

	for _, metric := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", metric.name, metric.kind)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// RetryHook returns a callback suitable for retry.WithRetryHook.
func (m *Metrics) RetryHook() func(task string, attempt int, err error) {
	return func(string, int, error) { m.RetriesTotal.Add(1) }
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"searches_total":     m.SearchesTotal.Load(),
		"platform_searches":  m.PlatformSearches.Load(),
		"platform_failures":  m.PlatformFailures.Load(),
		"platform_timeouts":  m.PlatformTimeouts.Load(),
		"listings_returned":  m.ListingsReturned.Load(),
		"detail_lookups":     m.DetailLookups.Load(),
		"detail_failures":    m.DetailFailures.Load(),
		"fetches_total":      m.FetchesTotal.Load(),
		"fetch_errors":       m.FetchErrors.Load(),
		"retries_total":      m.RetriesTotal.Load(),
		"rate_limit_blocks":  m.RateLimitBlocks.Load(),
		"bytes_downloaded":   m.BytesDownloaded.Load(),
		"browser_pages_open": m.BrowserPagesOpen.Load(),
		"history_errors":     m.HistoryErrors.Load(),
	}
}
