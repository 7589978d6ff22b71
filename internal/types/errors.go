package types

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure modes.
var (
	ErrPlatformNotFound   = errors.New("platform not found")
	ErrMissingParameter   = errors.New("missing required parameter")
	ErrTimeout            = errors.New("timed out")
	ErrRateLimited        = errors.New("rate limited by platform")
	ErrSelectorTimeout    = errors.New("selector wait timed out")
	ErrEmptyResponse      = errors.New("empty response body")
	ErrInvalidURL         = errors.New("invalid URL")
	ErrBrowserUnavailable = errors.New("browser is not available")
)

// FetchError wraps errors that occur during fetching.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
	Retryable  bool
	RetryAfter time.Duration // populated from Retry-After header on HTTP 429
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) IsRetryable() bool { return e.Retryable }

// ScrapeError wraps a failure of a single platform operation.
type ScrapeError struct {
	Platform string
	Op       string // "search" or "details"
	URL      string
	Err      error
}

func (e *ScrapeError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("%s %s %s: %v", e.Platform, e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Platform, e.Op, e.Err)
}

func (e *ScrapeError) Unwrap() error { return e.Err }

// NewPlatformNotFound returns an error matching ErrPlatformNotFound that names the platform.
func NewPlatformNotFound(platform string) error {
	return fmt.Errorf("%w: %q", ErrPlatformNotFound, platform)
}

// StorageError wraps errors that occur while exporting or recording.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
