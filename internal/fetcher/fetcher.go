package fetcher

import (
	"context"
	"errors"

	"github.com/IshaanNene/SecondPrice/internal/types"
)

// Fetcher retrieves a page over plain HTTP.
type Fetcher interface {
	// Fetch retrieves the content at rawURL.
	Fetch(ctx context.Context, rawURL string) (*types.Response, error)

	// Close releases any resources held by the fetcher.
	Close() error
}

// IsPermanent reports whether retrying err against the same URL is pointless:
// the platform is rate limiting us, the URL is malformed, the server
// answered with a client error, or the request failed in a way the fetcher
// did not classify as transient.
func IsPermanent(err error) bool {
	if errors.Is(err, types.ErrRateLimited) || errors.Is(err, types.ErrInvalidURL) {
		return true
	}
	var fe *types.FetchError
	if errors.As(err, &fe) {
		if fe.StatusCode == 0 {
			return !fe.Retryable
		}
		return fe.StatusCode >= 400 && fe.StatusCode < 500
	}
	return false
}
