package browser

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ScrollOptions bounds an incremental scroll.
type ScrollOptions struct {
	// ItemSelector counts loaded items after each step.
	ItemSelector string

	// Target stops scrolling once this many items are present.
	Target int

	// Step is the pixel distance of each scroll.
	Step int

	// Pause is the wait between steps.
	Pause time.Duration

	// MaxFactor stops scrolling once the total distance reaches
	// MaxFactor times the page's scroll height.
	MaxFactor int
}

// ScrollUntil scrolls in fixed steps until Target items are visible or the
// distance bound is reached. It returns the last item count and the total
// distance scrolled.
func ScrollUntil(ctx context.Context, page Page, opts ScrollOptions) (int, int, error) {
	if opts.Step <= 0 {
		opts.Step = 100
	}
	if opts.MaxFactor <= 0 {
		opts.MaxFactor = 3
	}

	total := 0
	for {
		height, err := page.ScrollHeight(ctx)
		if err != nil {
			return 0, total, fmt.Errorf("read scroll height: %w", err)
		}
		if err := page.ScrollBy(ctx, opts.Step); err != nil {
			return 0, total, fmt.Errorf("scroll: %w", err)
		}
		total += opts.Step

		count, err := page.Count(ctx, opts.ItemSelector)
		if err != nil {
			return 0, total, fmt.Errorf("count %s: %w", opts.ItemSelector, err)
		}
		if count >= opts.Target || total >= height*opts.MaxFactor {
			return count, total, nil
		}

		if opts.Pause > 0 {
			select {
			case <-ctx.Done():
				return count, total, ctx.Err()
			case <-time.After(opts.Pause):
			}
		} else if err := ctx.Err(); err != nil {
			return count, total, err
		}
	}
}

// LoginCredentials holds login form data.
type LoginCredentials struct {
	LoginURL         string
	UsernameSelector string
	PasswordSelector string
	SubmitSelector   string
	Username         string
	Password         string

	// DismissSelector, when set, is clicked if present before the form is filled.
	DismissSelector string

	// FailureMarkers are URL substrings that mean the login did not go through.
	FailureMarkers []string
}

// Login fills and submits a login form, then judges success by the landing URL.
func Login(ctx context.Context, page Page, creds LoginCredentials) (bool, error) {
	if err := page.Navigate(ctx, creds.LoginURL); err != nil {
		return false, err
	}
	if creds.DismissSelector != "" {
		if _, err := DismissIfPresent(ctx, page, creds.DismissSelector); err != nil {
			return false, fmt.Errorf("dismiss %s: %w", creds.DismissSelector, err)
		}
	}
	if err := page.Type(ctx, creds.UsernameSelector, creds.Username); err != nil {
		return false, fmt.Errorf("type username: %w", err)
	}
	if err := page.Type(ctx, creds.PasswordSelector, creds.Password); err != nil {
		return false, fmt.Errorf("type password: %w", err)
	}
	if err := page.Click(ctx, creds.SubmitSelector); err != nil {
		return false, fmt.Errorf("submit: %w", err)
	}
	if err := page.WaitLoad(ctx); err != nil {
		return false, fmt.Errorf("wait for landing page: %w", err)
	}

	landing, err := page.URL(ctx)
	if err != nil {
		return false, err
	}
	for _, marker := range creds.FailureMarkers {
		if strings.Contains(landing, marker) {
			return false, nil
		}
	}
	return true, nil
}

// DismissIfPresent clicks selector when it exists on the page.
func DismissIfPresent(ctx context.Context, page Page, selector string) (bool, error) {
	has, err := page.Has(ctx, selector)
	if err != nil || !has {
		return false, err
	}
	if err := page.Click(ctx, selector); err != nil {
		return false, err
	}
	return true, nil
}
