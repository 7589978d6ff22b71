package types

import "time"

// Listing is the canonical normalized record for one marketplace item.
// Every field is always present; absence is represented by defaults.
type Listing struct {
	ID          string         `json:"id"           bson:"id"`
	Title       string         `json:"title"        bson:"title"`
	Description string         `json:"description"  bson:"description"`
	Price       *float64       `json:"price"        bson:"price"`
	Currency    string         `json:"currency"     bson:"currency"`
	Condition   string         `json:"condition"    bson:"condition"`
	Category    string         `json:"category"     bson:"category"`
	Source      string         `json:"source"       bson:"source"`
	URL         string         `json:"url"          bson:"url"`
	Images      []string       `json:"images"       bson:"images"`
	CreatedAt   string         `json:"createdAt"    bson:"created_at"`
	Metadata    map[string]any `json:"metadata"     bson:"metadata"`
}

// Sort orders understood by the Manager.
const (
	SortByPrice = "price"
	OrderAsc    = "asc"
	OrderDesc   = "desc"
)

// DefaultLimit is the per-platform result cap when a caller passes none.
const DefaultLimit = 20

// SearchOptions controls a single or cross-platform search.
type SearchOptions struct {
	// Limit caps the number of listings each platform returns.
	Limit int

	// SortBy selects the merged ordering; only "price" sorts. It is also
	// forwarded to platforms that accept a sort parameter.
	SortBy string

	// SortOrder is "asc" (default) or "desc".
	SortOrder string

	// TotalLimit truncates the merged sequence after sorting. Zero means no cap.
	TotalLimit int

	// Category is an optional platform category path segment.
	Category string

	// Location is used by location-scoped platforms.
	Location string

	// Platforms restricts SearchAll to a subset; empty means all registered.
	Platforms []string
}

// EffectiveLimit returns Limit, or DefaultLimit when unset.
func (o SearchOptions) EffectiveLimit() int {
	if o.Limit <= 0 {
		return DefaultLimit
	}
	return o.Limit
}

// SearchStatus tags the outcome of one platform's search.
type SearchStatus string

const (
	StatusOK       SearchStatus = "ok"
	StatusFailed   SearchStatus = "failed"
	StatusTimeout  SearchStatus = "timeout"
	StatusNotFound SearchStatus = "not_found"
)

// SearchResult is the tagged outcome of one platform's search: either the
// listings it produced or the reason it produced none.
type SearchResult struct {
	Platform string
	Status   SearchStatus
	Listings []Listing
	Err      error
	Duration time.Duration
}

// Succeeded builds an ok result. A nil slice is replaced by an empty one.
func Succeeded(platform string, listings []Listing) SearchResult {
	if listings == nil {
		listings = []Listing{}
	}
	return SearchResult{Platform: platform, Status: StatusOK, Listings: listings}
}

// Failed builds a failed result carrying err and no listings.
func Failed(platform string, err error) SearchResult {
	return SearchResult{Platform: platform, Status: StatusFailed, Listings: []Listing{}, Err: err}
}

// OK reports whether the platform answered.
func (r SearchResult) OK() bool { return r.Status == StatusOK }

// ErrorString returns the failure reason or an empty string.
func (r SearchResult) ErrorString() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
