// Package api serves marketplace search over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/IshaanNene/SecondPrice/internal/config"
	"github.com/IshaanNene/SecondPrice/internal/dashboard"
	"github.com/IshaanNene/SecondPrice/internal/observability"
	"github.com/IshaanNene/SecondPrice/internal/types"
)

// Searcher is what the API needs from the scraper manager.
type Searcher interface {
	Platforms() []string
	SearchPlatform(ctx context.Context, platform, keyword string, opts types.SearchOptions) ([]types.Listing, error)
	SearchAll(ctx context.Context, keyword string, opts types.SearchOptions) map[string]types.SearchResult
	SearchAndMerge(ctx context.Context, keyword string, opts types.SearchOptions) []types.Listing
	GetProductDetails(ctx context.Context, platform, url string) (types.Listing, error)
}

// Server is the HTTP front of a Searcher.
type Server struct {
	mux      *http.ServeMux
	handler  http.Handler
	cfg      config.ServerConfig
	searcher Searcher
	logger   *slog.Logger

	httpServer *http.Server
	listener   net.Listener
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics exposes m at path.
func WithMetrics(m *observability.Metrics, path string) Option {
	return func(s *Server) {
		if path == "" {
			path = "/metrics"
		}
		s.mux.Handle("GET "+path, m)
	}
}

// WithDashboard mounts a live metrics page at /dashboard.
func WithDashboard(m *observability.Metrics) Option {
	return func(s *Server) {
		dashboard.New(m, s.searcher.Platforms, s.logger).Register(s.mux, "/dashboard")
	}
}

// NewServer creates a server answering from searcher.
func NewServer(cfg config.ServerConfig, searcher Searcher, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		cfg:      cfg,
		searcher: searcher,
		logger:   logger.With("component", "api_server"),
	}
	s.registerRoutes()
	for _, opt := range opts {
		opt(s)
	}
	s.handler = s.recoverPanics(s.logRequests(cors(s.mux)))
	return s
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Start binds the port and serves in the background.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	s.logger.Info("API server starting", "addr", ln.Addr().String())

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("API server shutting down")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	s.mux.HandleFunc("GET /api/scrapers/search", s.handleSearch)
	s.mux.HandleFunc("GET /api/scrapers/product", s.handleProduct)
	s.mux.HandleFunc("GET /api/scrapers/status", s.handleStatus)

	s.mux.HandleFunc("/", s.handleNotFound)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"message": "Welcome to SecondPrice API",
		"version": config.Version,
		"endpoints": map[string]any{
			"scrapers": map[string]string{
				"search":  "/api/scrapers/search?keyword=<keyword>&platform=<platform>&limit=<limit>",
				"product": "/api/scrapers/product?platform=<platform>&url=<url>",
			},
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   config.Version,
		"platforms": s.searcher.Platforms(),
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusNotFound, map[string]string{
		"error":   "Not Found",
		"message": fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path),
	})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}

// errorResponse maps err onto the API's error bodies.
func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	if errors.Is(err, types.ErrPlatformNotFound) {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{
			"error":   "Platform not found",
			"message": err.Error(),
		})
		return
	}
	s.jsonResponse(w, http.StatusInternalServerError, map[string]string{
		"error":   "Internal Server Error",
		"message": err.Error(),
	})
}

func (s *Server) badRequest(w http.ResponseWriter, msg string) {
	s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": msg})
}
