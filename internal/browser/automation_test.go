package browser_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/SecondPrice/internal/browser"
	"github.com/IshaanNene/SecondPrice/internal/browser/browsertest"
	"github.com/IshaanNene/SecondPrice/internal/types"
)

func TestScrollUntilStopsAtTarget(t *testing.T) {
	page := &browsertest.Page{
		Height:  10000,
		CountFn: func(scrolled int) int { return scrolled / 100 }, // one item per step
	}

	count, total, err := browser.ScrollUntil(context.Background(), page, browser.ScrollOptions{
		ItemSelector: ".item",
		Target:       5,
		Step:         100,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, count)
	assert.Equal(t, 500, total)
}

func TestScrollUntilStopsAtDistanceBound(t *testing.T) {
	page := &browsertest.Page{
		Height:  400,
		CountFn: func(int) int { return 2 },
	}

	count, total, err := browser.ScrollUntil(context.Background(), page, browser.ScrollOptions{
		ItemSelector: ".item",
		Target:       20,
		Step:         100,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 1200, total)
}

func TestScrollUntilHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	page := &browsertest.Page{Height: 1 << 20}
	_, _, err := browser.ScrollUntil(ctx, page, browser.ScrollOptions{ItemSelector: ".item", Target: 10})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoginJudgesLandingURL(t *testing.T) {
	creds := browser.LoginCredentials{
		LoginURL:         "https://example.com/login",
		UsernameSelector: "#email",
		PasswordSelector: "#pass",
		SubmitSelector:   "#loginbutton",
		Username:         "me@example.com",
		Password:         "secret",
		FailureMarkers:   []string{"login", "checkpoint"},
	}

	ok := &browsertest.Page{LandingURL: "https://example.com/"}
	success, err := browser.Login(context.Background(), ok, creds)
	require.NoError(t, err)
	assert.True(t, success)
	assert.Equal(t, "me@example.com", ok.Typed["#email"])
	assert.Equal(t, "secret", ok.Typed["#pass"])
	assert.Equal(t, []string{"#loginbutton"}, ok.Clicked)

	blocked := &browsertest.Page{LandingURL: "https://example.com/checkpoint/?next"}
	success, err = browser.Login(context.Background(), blocked, creds)
	require.NoError(t, err)
	assert.False(t, success)
}

func TestDismissIfPresent(t *testing.T) {
	page := &browsertest.Page{Visible: map[string]bool{"#cookie": true}}

	clicked, err := browser.DismissIfPresent(context.Background(), page, "#cookie")
	require.NoError(t, err)
	assert.True(t, clicked)

	clicked, err = browser.DismissIfPresent(context.Background(), page, "#absent")
	require.NoError(t, err)
	assert.False(t, clicked)
	assert.Equal(t, []string{"#cookie"}, page.Clicked)
}

func TestBrowserCloseWithoutInit(t *testing.T) {
	b := browser.New(browser.Options{Headless: true}, testLogger, nil)
	assert.False(t, b.Running())
	assert.NoError(t, b.Close())
	assert.NoError(t, b.Close())
}

func TestNewPageWithoutBrowserBinary(t *testing.T) {
	b := browser.New(browser.Options{
		Headless:   true,
		BrowserBin: filepath.Join(t.TempDir(), "no-such-chromium"),
	}, testLogger, nil)
	defer b.Close()

	page, err := b.NewPage(context.Background())
	require.Error(t, err)
	assert.Nil(t, page)
	assert.True(t, errors.Is(err, types.ErrBrowserUnavailable), err.Error())
	assert.False(t, b.Running())
}
