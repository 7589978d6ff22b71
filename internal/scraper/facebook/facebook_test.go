package facebook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/SecondPrice/internal/browser/browsertest"
	"github.com/IshaanNene/SecondPrice/internal/config"
	"github.com/IshaanNene/SecondPrice/internal/retry"
	"github.com/IshaanNene/SecondPrice/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

const resultsPage = `<html><body>
<div aria-label="Marketplace items">
  <div>
    <div>
      <a href="/marketplace/item/111/">
        <img src="https://scontent.example/111.jpg">
        <span class="d2edcug0">HK$1,200</span>
        <span class="a8c37x1j">Sony A7 III</span><span class="a8c37x1j">Kowloon, Hong Kong</span>
      </a>
    </div>
    <div><span class="a8c37x1j">Sponsored</span></div>
    <div>
      <a href="/marketplace/item/222/?ref=search">
        <span class="d2edcug0">Free</span>
        <span class="a8c37x1j">Fuji X100V &amp; case</span>
      </a>
    </div>
    <div>
      <a href="/marketplace/item/111/">
        <span class="d2edcug0">HK$1,200</span>
        <span class="a8c37x1j">Sony A7 III</span>
      </a>
    </div>
    <div>
      <a href="/marketplace/item/333/"><span class="d2edcug0">HK$50</span></a>
    </div>
  </div>
</div>
</body></html>`

const detailPage = `<html><body>
<h1 class="a8c37x1j">Sony A7 III body</h1>
<span class="d2edcug0">HK$9,800</span>
<div data-pagelet="MainFeed">
  <span class="d2edcug0 hpfvmrgz">Shutter count 12k. Comes with two batteries.</span>
  <a class="a8c37x1j" href="https://www.facebook.com/marketplace/hongkong/">Mong Kok</a>
  <a class="a8c37x1j" href="https://www.facebook.com/marketplace/category/electronics/">Electronics</a>
  <img src="https://scontent.example/a.jpg">
  <img src="https://scontent.example/b.jpg">
  <img src="https://scontent.example/a.jpg">
</div>
</body></html>`

const duplicatedResultsPage = `<html><body>
<div aria-label="Marketplace items">
  <div>
    <div><a href="/marketplace/item/111/"><span class="d2edcug0">HK$1,200</span><span class="a8c37x1j">Sony A7 III</span></a></div>
    <div><a href="/marketplace/item/111/"><span class="d2edcug0">HK$1,200</span><span class="a8c37x1j">Sony A7 III</span></a></div>
    <div><a href="/marketplace/item/444/"><span class="d2edcug0">HK$3,000</span><span class="a8c37x1j">Ricoh GR III</span></a></div>
  </div>
</div>
</body></html>`

func testConfig() config.FacebookConfig {
	return config.DefaultConfig().Facebook
}

func newTestScraper(cfg config.FacebookConfig, b *browsertest.Browser) *Scraper {
	s := New(cfg, b, testRunner(), testLogger)
	s.scrollPause = 0
	s.settle = 0
	return s
}

func testRunner() *retry.Runner {
	return retry.New(3, time.Millisecond, testLogger,
		retry.WithSleep(func(context.Context, time.Duration) error { return nil }))
}

func resultsBrowser(searchURL string) *browsertest.Browser {
	return &browsertest.Browser{NewPageFn: func() (*browsertest.Page, error) {
		return &browsertest.Page{
			HTMLByURL: map[string]string{searchURL: resultsPage},
			Visible:   map[string]bool{selResults: true},
			Height:    2000,
			CountFn:   func(int) int { return 5 },
		}, nil
	}}
}

func TestSearchURL(t *testing.T) {
	s := New(testConfig(), &browsertest.Browser{}, testRunner(), testLogger)

	assert.Equal(t, "https://www.facebook.com/marketplace/hongkong/search?query=sony+camera&exact=false",
		s.SearchURL("sony camera", "hongkong"))
	assert.Equal(t, "https://www.facebook.com/marketplace/search?query=ps5&exact=false",
		s.SearchURL("ps5", ""))
}

func TestSearchExtractsRenderedCards(t *testing.T) {
	cfg := testConfig()
	s := newTestScraper(cfg, nil)
	b := resultsBrowser(s.SearchURL("camera", cfg.Location))
	s.browser = b

	res := s.Search(context.Background(), "camera", types.SearchOptions{Limit: 4})

	require.True(t, res.OK(), res.ErrorString())
	require.Len(t, res.Listings, 2)

	first := res.Listings[0]
	assert.Equal(t, "Sony A7 III", first.Title)
	require.NotNil(t, first.Price)
	assert.Equal(t, 1200.0, *first.Price)
	assert.Equal(t, Source, first.Source)
	assert.Equal(t, "https://www.facebook.com/marketplace/item/111/", first.URL)
	assert.Equal(t, []string{"https://scontent.example/111.jpg"}, first.Images)
	assert.Equal(t, "Kowloon, Hong Kong", first.Metadata["location"])
	assert.Equal(t, "HK$1,200", first.Metadata["originalPrice"])
	assert.Equal(t, Name, first.Metadata["platform"])

	second := res.Listings[1]
	assert.Equal(t, "Fuji X100V & case", second.Title)
	assert.Nil(t, second.Price)
	assert.Empty(t, second.Images)

	require.Len(t, b.Pages, 1)
	assert.True(t, b.AllClosed())
	assert.Equal(t, 100, b.Pages[0].Scrolled)
}

func TestSearchStopsAtLimit(t *testing.T) {
	cfg := testConfig()
	s := newTestScraper(cfg, nil)
	s.browser = resultsBrowser(s.SearchURL("camera", "tsuen-wan"))

	res := s.Search(context.Background(), "camera", types.SearchOptions{Limit: 1, Location: "tsuen-wan"})
	require.True(t, res.OK(), res.ErrorString())
	require.Len(t, res.Listings, 1)
	assert.Equal(t, "Sony A7 III", res.Listings[0].Title)
}

func TestSearchLimitAppliesAfterDedup(t *testing.T) {
	cfg := testConfig()
	s := newTestScraper(cfg, nil)
	searchURL := s.SearchURL("camera", cfg.Location)
	s.browser = &browsertest.Browser{NewPageFn: func() (*browsertest.Page, error) {
		return &browsertest.Page{
			HTMLByURL: map[string]string{searchURL: duplicatedResultsPage},
			Visible:   map[string]bool{selResults: true},
			CountFn:   func(int) int { return 3 },
		}, nil
	}}

	res := s.Search(context.Background(), "camera", types.SearchOptions{Limit: 2})

	require.True(t, res.OK(), res.ErrorString())
	require.Len(t, res.Listings, 2)
	assert.Equal(t, "Sony A7 III", res.Listings[0].Title)
	assert.Equal(t, "Ricoh GR III", res.Listings[1].Title)
}

func TestSearchRetriesResultsWait(t *testing.T) {
	cfg := testConfig()
	s := newTestScraper(cfg, nil)
	searchURL := s.SearchURL("camera", cfg.Location)

	opened := 0
	b := &browsertest.Browser{NewPageFn: func() (*browsertest.Page, error) {
		opened++
		page := &browsertest.Page{
			HTMLByURL: map[string]string{searchURL: resultsPage},
			Visible:   map[string]bool{selResults: true},
			CountFn:   func(int) int { return 5 },
		}
		if opened == 1 {
			page.WaitErr = errors.New("net::ERR_TIMED_OUT")
		}
		return page, nil
	}}
	s.browser = b

	res := s.Search(context.Background(), "camera", types.SearchOptions{})

	require.True(t, res.OK(), res.ErrorString())
	assert.Len(t, res.Listings, 2)
	require.Len(t, b.Pages, 2)
	assert.True(t, b.AllClosed())
}

func TestSearchWaitTimeoutYieldsFailedResult(t *testing.T) {
	b := &browsertest.Browser{NewPageFn: func() (*browsertest.Page, error) {
		return &browsertest.Page{}, nil
	}}
	s := newTestScraper(testConfig(), b)

	res := s.Search(context.Background(), "camera", types.SearchOptions{})

	assert.Equal(t, types.StatusFailed, res.Status)
	assert.Empty(t, res.Listings)
	assert.True(t, errors.Is(res.Err, types.ErrSelectorTimeout))
	assert.Len(t, b.Pages, 3)
	assert.True(t, b.AllClosed())
}

func TestSearchBrowserUnavailable(t *testing.T) {
	calls := 0
	b := &browsertest.Browser{NewPageFn: func() (*browsertest.Page, error) {
		calls++
		return nil, types.ErrBrowserUnavailable
	}}
	res := newTestScraper(testConfig(), b).Search(context.Background(), "camera", types.SearchOptions{})

	assert.Equal(t, types.StatusFailed, res.Status)
	assert.True(t, errors.Is(res.Err, types.ErrBrowserUnavailable))
	assert.Equal(t, 1, calls)
}

func TestLoginHappensOnce(t *testing.T) {
	cfg := testConfig()
	cfg.Email = "me@example.com"
	cfg.Password = "secret"
	s := newTestScraper(cfg, nil)
	searchURL := s.SearchURL("camera", cfg.Location)

	b := &browsertest.Browser{NewPageFn: func() (*browsertest.Page, error) {
		return &browsertest.Page{
			HTMLByURL:  map[string]string{searchURL: resultsPage},
			Visible:    map[string]bool{selResults: true},
			Height:     2000,
			CountFn:    func(int) int { return 5 },
			LandingURL: "https://www.facebook.com/",
		}, nil
	}}
	s.browser = b

	s.Search(context.Background(), "camera", types.SearchOptions{})
	s.Search(context.Background(), "camera", types.SearchOptions{})

	assert.True(t, s.LoggedIn())
	logins := 0
	for _, p := range b.Pages {
		if len(p.Navigated) > 0 && p.Navigated[0] == cfg.LoginURL {
			logins++
			assert.Equal(t, "me@example.com", p.Typed[selEmail])
			assert.Equal(t, "secret", p.Typed[selPassword])
		}
	}
	assert.Equal(t, 1, logins)
	assert.Len(t, b.Pages, 3)
	assert.True(t, b.AllClosed())
}

func TestRejectedLoginIsNotRetried(t *testing.T) {
	cfg := testConfig()
	cfg.Email = "me@example.com"
	cfg.Password = "wrong"

	b := &browsertest.Browser{NewPageFn: func() (*browsertest.Page, error) {
		return &browsertest.Page{LandingURL: "https://www.facebook.com/checkpoint/?next"}, nil
	}}
	s := newTestScraper(cfg, b)

	assert.False(t, s.Login(context.Background()))
	assert.False(t, s.Login(context.Background()))
	assert.False(t, s.LoggedIn())
	assert.Len(t, b.Pages, 1)
	assert.True(t, b.AllClosed())
}

func TestLoginWithoutCredentials(t *testing.T) {
	b := &browsertest.Browser{NewPageFn: func() (*browsertest.Page, error) {
		return &browsertest.Page{}, nil
	}}
	s := newTestScraper(testConfig(), b)

	assert.False(t, s.Login(context.Background()))
	assert.Empty(t, b.Pages)
}

func TestGetDetails(t *testing.T) {
	listingURL := "https://www.facebook.com/marketplace/item/111/"
	b := &browsertest.Browser{NewPageFn: func() (*browsertest.Page, error) {
		return &browsertest.Page{
			HTMLByURL: map[string]string{listingURL: detailPage},
			Visible:   map[string]bool{selDetailFeed: true},
		}, nil
	}}

	l, err := newTestScraper(testConfig(), b).GetDetails(context.Background(), listingURL)
	require.NoError(t, err)

	assert.Equal(t, "Sony A7 III body", l.Title)
	require.NotNil(t, l.Price)
	assert.Equal(t, 9800.0, *l.Price)
	assert.Equal(t, "Shutter count 12k. Comes with two batteries.", l.Description)
	assert.Equal(t, "Electronics", l.Category)
	assert.Equal(t, "unknown", l.Condition)
	assert.Equal(t, listingURL, l.URL)
	assert.Equal(t, []string{"https://scontent.example/a.jpg", "https://scontent.example/b.jpg"}, l.Images)
	assert.Equal(t, "Mong Kok", l.Metadata["location"])
	assert.Equal(t, Source, l.Source)
	assert.True(t, b.AllClosed())
}

func TestGetDetailsPropagatesFailure(t *testing.T) {
	b := &browsertest.Browser{NewPageFn: func() (*browsertest.Page, error) {
		return &browsertest.Page{NavigateErr: errors.New("net::ERR_CONNECTION_RESET")}, nil
	}}

	_, err := newTestScraper(testConfig(), b).GetDetails(context.Background(), "https://www.facebook.com/marketplace/item/9/")
	require.Error(t, err)

	var se *types.ScrapeError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "details", se.Op)
	assert.Contains(t, err.Error(), "ERR_CONNECTION_RESET")
	assert.True(t, b.AllClosed())
}

func TestShutdownForgetsSession(t *testing.T) {
	cfg := testConfig()
	cfg.Email = "me@example.com"
	cfg.Password = "secret"
	b := &browsertest.Browser{NewPageFn: func() (*browsertest.Page, error) {
		return &browsertest.Page{LandingURL: "https://www.facebook.com/"}, nil
	}}
	s := newTestScraper(cfg, b)

	require.True(t, s.Login(context.Background()))
	require.NoError(t, s.Shutdown(context.Background()))
	require.NoError(t, s.Shutdown(context.Background()))

	assert.False(t, s.LoggedIn())
	assert.Equal(t, 2, b.Closes)
	assert.True(t, s.Login(context.Background()))
}
