package fetcher

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/SecondPrice/internal/cache"
	"github.com/IshaanNene/SecondPrice/internal/config"
	"github.com/IshaanNene/SecondPrice/internal/observability"
	"github.com/IshaanNene/SecondPrice/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func testScraperConfig() config.ScraperConfig {
	cfg := config.DefaultConfig().Scraper
	cfg.RateLimit = 0
	cfg.Timeout = 5 * time.Second
	return cfg
}

func TestFetchSendsBrowserHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, "<html><body>ok</body></html>")
	}))
	defer srv.Close()

	f, err := NewHTTPFetcher(testScraperConfig(), testLogger)
	require.NoError(t, err)
	defer f.Close()

	resp, err := f.Fetch(context.Background(), srv.URL+"/search/iphone")
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
	assert.Contains(t, string(resp.Body), "ok")

	cfg := testScraperConfig()
	assert.Equal(t, cfg.UserAgent, got.Get("User-Agent"))
	assert.Equal(t, cfg.Accept, got.Get("Accept"))
	assert.Equal(t, "en-US,en;q=0.5", got.Get("Accept-Language"))
}

func TestFetchDecodesCompressedBodies(t *testing.T) {
	page := "<html><body><h1>compressed</h1></body></html>"

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	gw.Write([]byte(page))
	gw.Close()

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	bw.Write([]byte(page))
	bw.Close()

	bodies := map[string][]byte{"gzip": gz.Bytes(), "br": br.Bytes()}
	for enc, body := range bodies {
		t.Run(enc, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				w.Header().Set("Content-Encoding", enc)
				w.Write(body)
			}))
			defer srv.Close()

			f, err := NewHTTPFetcher(testScraperConfig(), testLogger)
			require.NoError(t, err)

			resp, err := f.Fetch(context.Background(), srv.URL)
			require.NoError(t, err)
			assert.Equal(t, page, string(resp.Body))
		})
	}
}

func TestFetchConvertsCharset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write([]byte("<p>caf\xe9</p>"))
	}))
	defer srv.Close()

	f, err := NewHTTPFetcher(testScraperConfig(), testLogger)
	require.NoError(t, err)

	resp, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<p>café</p>", string(resp.Body))
}

func TestFetchStatusErrors(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusNotFound, false},
		{http.StatusBadGateway, true},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		f, err := NewHTTPFetcher(testScraperConfig(), testLogger)
		require.NoError(t, err)

		_, err = f.Fetch(context.Background(), srv.URL)
		var fe *types.FetchError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, tt.status, fe.StatusCode)
		assert.Equal(t, tt.retryable, fe.IsRetryable())
		srv.Close()
	}
}

func TestFetchRateLimitBlocksHost(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	metrics := observability.NewMetrics(testLogger)
	f, err := NewHTTPFetcher(testScraperConfig(), testLogger,
		WithBlockCache(cache.NewMemory(), time.Minute),
		WithMetrics(metrics),
	)
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, types.ErrRateLimited)
	var fe *types.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 60*time.Second, fe.RetryAfter)

	_, err = f.Fetch(context.Background(), srv.URL+"/again")
	assert.ErrorIs(t, err, types.ErrRateLimited)
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, int64(1), metrics.RateLimitBlocks.Load())
}

func TestFetchEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	f, err := NewHTTPFetcher(testScraperConfig(), testLogger)
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, types.ErrEmptyResponse)
}

func TestFetchInvalidURL(t *testing.T) {
	f, err := NewHTTPFetcher(testScraperConfig(), testLogger)
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), "not a url")
	assert.ErrorIs(t, err, types.ErrInvalidURL)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, 30*time.Second, parseRetryAfter("30"))
	assert.Equal(t, time.Duration(0), parseRetryAfter("soon"))
	future := time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)
	assert.Greater(t, parseRetryAfter(future), 50*time.Minute)
}

func TestProxyRoundRobin(t *testing.T) {
	pm := NewProxyManager(config.ProxyConfig{
		Enabled:  true,
		Rotation: "round_robin",
		URLs:     []string{"http://p1:8080", "::bad::", "http://p2:8080"},
	}, testLogger)

	require.Equal(t, 2, pm.Count())
	assert.Equal(t, "p1:8080", pm.Next().Host)
	assert.Equal(t, "p2:8080", pm.Next().Host)
	assert.Equal(t, "p1:8080", pm.Next().Host)
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(types.ErrRateLimited))
	assert.True(t, IsPermanent(&types.FetchError{URL: "x", Err: types.ErrInvalidURL}))
	assert.True(t, IsPermanent(&types.FetchError{URL: "x", StatusCode: 404, Err: errors.New("HTTP 404")}))
	assert.False(t, IsPermanent(&types.FetchError{URL: "x", StatusCode: 502, Err: errors.New("HTTP 502")}))
	assert.True(t, IsPermanent(&types.FetchError{URL: "x", Err: errors.New("x509: certificate signed by unknown authority")}))
	assert.False(t, IsPermanent(&types.FetchError{URL: "x", Err: errors.New("read: connection reset by peer"), Retryable: true}))
	assert.False(t, IsPermanent(types.ErrEmptyResponse))
	assert.False(t, IsPermanent(context.DeadlineExceeded))
}
