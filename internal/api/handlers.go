package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/IshaanNene/SecondPrice/internal/types"
)

// Query defaults for /api/scrapers/search.
const (
	defaultSort      = types.SortByPrice
	defaultSortOrder = types.OrderAsc
)

type searchResponse struct {
	Success  bool            `json:"success"`
	Platform string          `json:"platform,omitempty"`
	Keyword  string          `json:"keyword"`
	Count    int             `json:"count"`
	Results  []types.Listing `json:"results"`
}

type productResponse struct {
	Success  bool          `json:"success"`
	Platform string        `json:"platform"`
	Product  types.Listing `json:"product"`
}

type platformStatus struct {
	Status     types.SearchStatus `json:"status"`
	Count      int                `json:"count"`
	Error      string             `json:"error,omitempty"`
	DurationMS int64              `json:"duration_ms"`
}

type statusResponse struct {
	Success   bool                      `json:"success"`
	Keyword   string                    `json:"keyword"`
	Platforms map[string]platformStatus `json:"platforms"`
}

// searchOptions reads limit, sort, sortOrder, category and location.
// An unreadable or non-positive limit falls back to the default.
func searchOptions(r *http.Request) types.SearchOptions {
	q := r.URL.Query()

	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit < 1 {
		limit = types.DefaultLimit
	}
	sort := q.Get("sort")
	if sort == "" {
		sort = defaultSort
	}
	order := strings.ToLower(q.Get("sortOrder"))
	if order != types.OrderDesc {
		order = defaultSortOrder
	}

	return types.SearchOptions{
		Limit:     limit,
		SortBy:    sort,
		SortOrder: order,
		Category:  q.Get("category"),
		Location:  q.Get("location"),
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	keyword := strings.TrimSpace(r.URL.Query().Get("keyword"))
	if keyword == "" {
		s.badRequest(w, "Keyword is required")
		return
	}
	opts := searchOptions(r)

	if platform := r.URL.Query().Get("platform"); platform != "" {
		listings, err := s.searcher.SearchPlatform(r.Context(), platform, keyword, opts)
		if err != nil {
			s.errorResponse(w, err)
			return
		}
		s.jsonResponse(w, http.StatusOK, searchResponse{
			Success:  true,
			Platform: platform,
			Keyword:  keyword,
			Count:    len(listings),
			Results:  nonNil(listings),
		})
		return
	}

	opts.TotalLimit = opts.Limit
	listings := s.searcher.SearchAndMerge(r.Context(), keyword, opts)
	s.jsonResponse(w, http.StatusOK, searchResponse{
		Success: true,
		Keyword: keyword,
		Count:   len(listings),
		Results: nonNil(listings),
	})
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	platform := q.Get("platform")
	if platform == "" {
		s.badRequest(w, "Platform is required")
		return
	}
	url := q.Get("url")
	if url == "" {
		s.badRequest(w, "URL is required")
		return
	}

	product, err := s.searcher.GetProductDetails(r.Context(), platform, url)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, productResponse{
		Success:  true,
		Platform: platform,
		Product:  product,
	})
}

// handleStatus runs a search on every platform and reports how each one
// answered instead of the listings.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	keyword := strings.TrimSpace(r.URL.Query().Get("keyword"))
	if keyword == "" {
		s.badRequest(w, "Keyword is required")
		return
	}
	opts := searchOptions(r)
	if p := r.URL.Query().Get("platforms"); p != "" {
		for _, id := range strings.Split(p, ",") {
			if id = strings.TrimSpace(id); id != "" {
				opts.Platforms = append(opts.Platforms, id)
			}
		}
	}

	results := s.searcher.SearchAll(r.Context(), keyword, opts)
	resp := statusResponse{
		Success:   true,
		Keyword:   keyword,
		Platforms: make(map[string]platformStatus, len(results)),
	}
	for id, res := range results {
		resp.Platforms[id] = platformStatus{
			Status:     res.Status,
			Count:      len(res.Listings),
			Error:      res.ErrorString(),
			DurationMS: res.Duration.Milliseconds(),
		}
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func nonNil(listings []types.Listing) []types.Listing {
	if listings == nil {
		return []types.Listing{}
	}
	return listings
}
