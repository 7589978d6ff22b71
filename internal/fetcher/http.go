package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/IshaanNene/SecondPrice/internal/cache"
	"github.com/IshaanNene/SecondPrice/internal/config"
	"github.com/IshaanNene/SecondPrice/internal/observability"
	"github.com/IshaanNene/SecondPrice/internal/types"
)

const blockKeyPrefix = "secondprice:ratelimit:"

// HTTPFetcher implements Fetcher using net/http with the browser-like header
// set, a per-host politeness limiter and a shared rate-limit block cache.
type HTTPFetcher struct {
	client     *http.Client
	cfg        config.ScraperConfig
	proxyMgr   *ProxyManager
	blocks     cache.Cache
	blockTTL   time.Duration
	metrics    *observability.Metrics
	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter
	logger     *slog.Logger
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithBlockCache remembers HTTP 429 responses in c for ttl (or Retry-After).
func WithBlockCache(c cache.Cache, ttl time.Duration) Option {
	return func(f *HTTPFetcher) {
		f.blocks = c
		f.blockTTL = ttl
	}
}

// WithMetrics records fetch counters.
func WithMetrics(m *observability.Metrics) Option {
	return func(f *HTTPFetcher) { f.metrics = m }
}

// WithProxy routes requests through the given proxies.
func WithProxy(cfg config.ProxyConfig) Option {
	return func(f *HTTPFetcher) {
		if cfg.Enabled && len(cfg.URLs) > 0 {
			f.proxyMgr = NewProxyManager(cfg, f.logger)
		}
	}
}

// NewHTTPFetcher creates a new HTTP fetcher.
func NewHTTPFetcher(cfg config.ScraperConfig, logger *slog.Logger, opts ...Option) (*HTTPFetcher, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	f := &HTTPFetcher{
		cfg:      cfg,
		limiters: make(map[string]*rate.Limiter),
		logger:   logger.With("component", "http_fetcher"),
	}
	for _, opt := range opts {
		opt(f)
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  true, // decoded in decompressReader, including brotli
	}
	if f.proxyMgr != nil {
		transport.Proxy = f.proxyMgr.ProxyFunc()
	}

	f.client = &http.Client{
		Transport: transport,
		Jar:       jar,
		Timeout:   cfg.Timeout,
	}
	return f, nil
}

// Fetch issues a GET for rawURL and returns the UTF-8 body.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*types.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, &types.FetchError{URL: rawURL, Err: types.ErrInvalidURL}
	}

	if f.isBlocked(u.Host) {
		return nil, &types.FetchError{
			URL: rawURL,
			Err: fmt.Errorf("%w: %s is cooling down", types.ErrRateLimited, u.Host),
		}
	}

	if err := f.limiter(u.Host).Wait(ctx); err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err}
	}
	httpReq.Header.Set("User-Agent", f.cfg.UserAgent)
	httpReq.Header.Set("Accept", f.cfg.Accept)
	httpReq.Header.Set("Accept-Language", f.cfg.AcceptLanguage)
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")

	f.count(func(m *observability.Metrics) { m.FetchesTotal.Add(1) })

	start := time.Now()
	httpResp, err := f.client.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		f.count(func(m *observability.Metrics) { m.FetchErrors.Add(1) })
		return nil, &types.FetchError{URL: rawURL, Err: err, Retryable: isRetryableError(err)}
	}
	defer httpResp.Body.Close()

	// 430 is what some CDNs send in place of 429
	if httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode == 430 {
		retryAfter := parseRetryAfter(httpResp.Header.Get("Retry-After"))
		f.block(u.Host, retryAfter)
		f.count(func(m *observability.Metrics) {
			m.FetchErrors.Add(1)
			m.RateLimitBlocks.Add(1)
		})
		return nil, &types.FetchError{
			URL:        rawURL,
			StatusCode: httpResp.StatusCode,
			Err:        fmt.Errorf("%w: HTTP %d (retry after %s)", types.ErrRateLimited, httpResp.StatusCode, retryAfter),
			RetryAfter: retryAfter,
		}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		f.count(func(m *observability.Metrics) { m.FetchErrors.Add(1) })
		return nil, &types.FetchError{
			URL:        rawURL,
			StatusCode: httpResp.StatusCode,
			Err:        fmt.Errorf("HTTP %d: %s", httpResp.StatusCode, strings.TrimSpace(string(body))),
			Retryable:  httpResp.StatusCode >= 500,
		}
	}

	reader, err := decompressReader(httpResp, httpResp.Body)
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err}
	}
	if f.cfg.MaxBodySize > 0 {
		reader = io.LimitReader(reader, f.cfg.MaxBodySize)
	}
	utf8Reader, err := charset.NewReader(reader, httpResp.Header.Get("Content-Type"))
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: fmt.Errorf("detect charset: %w", err)}
	}

	body, err := io.ReadAll(utf8Reader)
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err, Retryable: true}
	}
	if len(body) == 0 {
		return nil, &types.FetchError{URL: rawURL, StatusCode: httpResp.StatusCode, Err: types.ErrEmptyResponse, Retryable: true}
	}

	f.count(func(m *observability.Metrics) { m.BytesDownloaded.Add(int64(len(body))) })
	f.logger.Debug("fetch complete",
		"url", rawURL,
		"status", httpResp.StatusCode,
		"size", len(body),
		"duration", duration,
	)

	return types.NewResponse(rawURL, httpResp, body, duration), nil
}

// Close releases idle connections.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

func (f *HTTPFetcher) limiter(host string) *rate.Limiter {
	f.limitersMu.Lock()
	defer f.limitersMu.Unlock()

	l, ok := f.limiters[host]
	if !ok {
		limit := rate.Inf
		if f.cfg.RateLimit > 0 {
			limit = rate.Limit(f.cfg.RateLimit)
		}
		burst := f.cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		l = rate.NewLimiter(limit, burst)
		f.limiters[host] = l
	}
	return l
}

func (f *HTTPFetcher) isBlocked(host string) bool {
	if f.blocks == nil {
		return false
	}
	_, err := f.blocks.Get(blockKeyPrefix + host)
	if err != nil && !errors.Is(err, cache.ErrMiss) {
		f.logger.Warn("block cache unavailable", "host", host, "error", err)
	}
	return err == nil
}

func (f *HTTPFetcher) block(host string, retryAfter time.Duration) {
	if f.blocks == nil {
		return
	}
	ttl := f.blockTTL
	if retryAfter > 0 {
		ttl = retryAfter
	}
	if ttl <= 0 {
		return
	}
	if err := f.blocks.Set(blockKeyPrefix+host, []byte(time.Now().Add(ttl).Format(time.RFC3339)), ttl); err != nil {
		f.logger.Warn("failed to record rate-limit block", "host", host, "error", err)
		return
	}
	f.logger.Warn("platform rate limited, blocking host", "host", host, "for", ttl)
}

func (f *HTTPFetcher) count(fn func(m *observability.Metrics)) {
	if f.metrics != nil {
		fn(f.metrics)
	}
}

// decompressReader wraps a reader with the decompressor for the response's
// Content-Encoding (gzip, deflate or br).
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}

// isRetryableError checks if a network error warrants a retry.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNRESET) ||
			errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return true
		}
	}
	return false
}

// parseRetryAfter parses a Retry-After header given in seconds or as an
// HTTP date. It returns 0 when the header is absent or unreadable.
func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
