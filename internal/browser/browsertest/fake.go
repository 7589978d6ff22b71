// Package browsertest provides in-memory stand-ins for browser pages.
package browsertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/IshaanNene/SecondPrice/internal/browser"
	"github.com/IshaanNene/SecondPrice/internal/types"
)

// Page is a scripted browser.Page.
type Page struct {
	mu sync.Mutex

	// HTMLByURL is served by HTML for the last navigated URL.
	HTMLByURL map[string]string

	// Visible lists selectors that exist and are visible.
	Visible map[string]bool

	// Height is the reported document scroll height.
	Height int

	// CountFn reports the item count given the distance scrolled so far.
	CountFn func(scrolled int) int

	// LandingURL, when set, is reported by URL after a Click.
	LandingURL string

	NavigateErr error
	WaitErr     error

	Navigated []string
	Typed     map[string]string
	Clicked   []string
	Scrolled  int
	Closes    int

	current string
	clicked bool
}

var _ browser.Page = (*Page)(nil)

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Navigated = append(p.Navigated, url)
	p.current = url
	return p.NavigateErr
}

func (p *Page) WaitVisible(ctx context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.WaitErr != nil {
		return p.WaitErr
	}
	if !p.Visible[selector] {
		return fmt.Errorf("%w: %s", types.ErrSelectorTimeout, selector)
	}
	return nil
}

func (p *Page) Has(ctx context.Context, selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Visible[selector], nil
}

func (p *Page) Click(ctx context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Clicked = append(p.Clicked, selector)
	p.clicked = true
	return nil
}

func (p *Page) Type(ctx context.Context, selector, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Typed == nil {
		p.Typed = make(map[string]string)
	}
	p.Typed[selector] = text
	return nil
}

func (p *Page) ScrollBy(ctx context.Context, dy int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Scrolled += dy
	return nil
}

func (p *Page) ScrollHeight(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Height, nil
}

func (p *Page) Count(ctx context.Context, selector string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.CountFn == nil {
		return 0, nil
	}
	return p.CountFn(p.Scrolled), nil
}

func (p *Page) WaitLoad(ctx context.Context) error { return nil }

func (p *Page) HTML(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.HTMLByURL[p.current], nil
}

func (p *Page) URL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.clicked && p.LandingURL != "" {
		return p.LandingURL, nil
	}
	return p.current, nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closes++
	return nil
}

// Browser is a browser.Opener handing out pages built by NewPageFn.
type Browser struct {
	mu sync.Mutex

	NewPageFn func() (*Page, error)
	Pages     []*Page
	Closes    int
}

var _ browser.Opener = (*Browser)(nil)

func (b *Browser) NewPage(ctx context.Context) (browser.Page, error) {
	page, err := b.NewPageFn()
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.Pages = append(b.Pages, page)
	b.mu.Unlock()
	return page, nil
}

func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Closes++
	return nil
}

// AllClosed reports whether every handed-out page was closed exactly once.
func (b *Browser) AllClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.Pages {
		p.mu.Lock()
		closes := p.Closes
		p.mu.Unlock()
		if closes != 1 {
			return false
		}
	}
	return true
}
