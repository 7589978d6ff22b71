package dashboard

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticStats map[string]int64

func (s staticStats) Snapshot() map[string]int64 { return s }

func TestStatsIncludePlatformsAndCounters(t *testing.T) {
	mux := http.NewServeMux()
	d := New(staticStats{"searches_total": 7}, func() []string { return []string{"carousell"} },
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	d.Register(mux, "/dashboard")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 7, body["searches_total"])
	assert.Equal(t, []any{"carousell"}, body["platforms"])
	assert.NotEmpty(t, body["uptime"])
}

func TestPageIsHTML(t *testing.T) {
	mux := http.NewServeMux()
	New(nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(mux, "/dashboard")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "SecondPrice Dashboard")
}
