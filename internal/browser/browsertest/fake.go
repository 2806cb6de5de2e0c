// Package browsertest provides in-memory Browser and Page implementations for tests.
package browsertest

import (
	"context"
	"errors"
	"sync"

	"github.com/williampepple1/pr-snapshot/internal/browser"
)

// PNG is a minimal payload returned by fake screenshots
var PNG = []byte("\x89PNG\r\n\x1a\nfake")

// Page is a scripted browser.Page
type Page struct {
	mu sync.Mutex

	// LoadMore is how many times the load-more control is present; negative means forever
	LoadMore int
	// Resolved lists the counts returned by successive TriggerAllMatching calls; later calls return 0
	Resolved []int

	NavigateErr   error
	ClickErr      error
	QueryErr      error
	TriggerErr    error
	FullPageErr   error
	ViewportErr   error
	HTMLContent   string
	CloseErr      error
	OnNavigate    func(url string) error
	ScreenshotPNG []byte

	Navigated    []string
	Clicks       int
	TriggerCalls int
	Selectors    []string
	Viewport     [2]int
	Shots        []bool
	Closed       bool
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	p.Navigated = append(p.Navigated, url)
	hook := p.OnNavigate
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if hook != nil {
		if err := hook(url); err != nil {
			return err
		}
	}
	return p.NavigateErr
}

func (p *Page) ClickFirst(ctx context.Context, selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Selectors = append(p.Selectors, selector)
	if p.QueryErr != nil {
		return false, p.QueryErr
	}
	if p.LoadMore == 0 {
		return false, nil
	}
	p.Clicks++
	if p.LoadMore > 0 {
		p.LoadMore--
	}
	return true, p.ClickErr
}

func (p *Page) TriggerAllMatching(ctx context.Context, selector string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Selectors = append(p.Selectors, selector)
	p.TriggerCalls++
	if p.TriggerErr != nil {
		return 0, p.TriggerErr
	}
	if len(p.Resolved) == 0 {
		return 0, nil
	}
	n := p.Resolved[0]
	p.Resolved = p.Resolved[1:]
	return n, nil
}

func (p *Page) SetViewport(ctx context.Context, width, height int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Viewport = [2]int{width, height}
	return nil
}

func (p *Page) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Shots = append(p.Shots, fullPage)
	if fullPage && p.FullPageErr != nil {
		return nil, p.FullPageErr
	}
	if !fullPage && p.ViewportErr != nil {
		return nil, p.ViewportErr
	}
	if p.ScreenshotPNG != nil {
		return p.ScreenshotPNG, nil
	}
	return PNG, nil
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	return p.HTMLContent, nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closed = true
	return p.CloseErr
}

// Browser hands out fake pages and tracks how many are open at once
type Browser struct {
	mu sync.Mutex

	// Configure prepares each new page; it receives the page index
	Configure  func(index int, p *Page)
	NewPageErr error

	Pages    []*Page
	open     int
	peakOpen int
	Closed   bool
}

// ErrPageOpen is reported by Browser.Close when pages were never closed
var ErrPageOpen = errors.New("pages left open")

func (b *Browser) NewPage(ctx context.Context) (browser.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.NewPageErr != nil {
		return nil, b.NewPageErr
	}
	p := &Page{}
	if b.Configure != nil {
		b.Configure(len(b.Pages), p)
	}
	b.Pages = append(b.Pages, p)
	b.open++
	if b.open > b.peakOpen {
		b.peakOpen = b.open
	}
	return &trackedPage{Page: p, browser: b}, nil
}

func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Closed = true
	if b.open != 0 {
		return ErrPageOpen
	}
	return nil
}

// Open returns the number of pages currently open
func (b *Browser) Open() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// PeakOpen returns the largest number of pages open at the same time
func (b *Browser) PeakOpen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.peakOpen
}

type trackedPage struct {
	*Page
	browser *Browser
	once    sync.Once
}

func (t *trackedPage) Close() error {
	t.once.Do(func() {
		t.browser.mu.Lock()
		t.browser.open--
		t.browser.mu.Unlock()
	})
	return t.Page.Close()
}
