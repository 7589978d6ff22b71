// Package dashboard serves a live HTML view of search and scraper counters.
package dashboard

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// StatsProvider provides counters to display.
type StatsProvider interface {
	Snapshot() map[string]int64
}

// Dashboard serves the page and the JSON it polls.
type Dashboard struct {
	provider  StatsProvider
	platforms func() []string
	started   time.Time
	logger    *slog.Logger
}

// New creates a dashboard over provider. platforms may be nil.
func New(provider StatsProvider, platforms func() []string, logger *slog.Logger) *Dashboard {
	return &Dashboard{
		provider:  provider,
		platforms: platforms,
		started:   time.Now(),
		logger:    logger.With("component", "dashboard"),
	}
}

// Register mounts the page at path and its data at path+"/stats".
func (d *Dashboard) Register(mux *http.ServeMux, path string) {
	mux.HandleFunc("GET "+path, d.handlePage)
	mux.HandleFunc("GET "+path+"/stats", d.handleStats)
}

func (d *Dashboard) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(dashboardHTML))
}

func (d *Dashboard) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(d.started).Round(time.Second).String(),
	}
	if d.platforms != nil {
		stats["platforms"] = d.platforms()
	}
	if d.provider != nil {
		for k, v := range d.provider.Snapshot() {
			stats[k] = v
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		d.logger.Warn("failed to write stats", "error", err)
	}
}
