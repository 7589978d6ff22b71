package observability

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics(slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.SearchesTotal.Add(2)
	m.BrowserPagesOpen.Add(1)
	m.RetryHook()("task", 1, nil)

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	assert.Contains(t, body, "secondprice_searches_total 2\n")
	assert.Contains(t, body, "# TYPE secondprice_browser_pages_open gauge\n")
	assert.Contains(t, body, "secondprice_retries_total 1\n")
	assert.Equal(t, int64(1), m.Snapshot()["retries_total"])
}
