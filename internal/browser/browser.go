package browser

import "context"

// Browser is a connection to a browser able to open independent pages
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single browser tab
type Page interface {
	// Navigate loads url and returns once network activity has settled
	Navigate(ctx context.Context, url string) error
	// ClickFirst clicks the first element matching selector. It reports
	// whether an element was found; a non-nil error with found set means the
	// click itself failed.
	ClickFirst(ctx context.Context, selector string) (found bool, err error)
	// TriggerAllMatching clicks every element matching selector in a single
	// in-page pass and returns how many were found. Individual click
	// failures are ignored.
	TriggerAllMatching(ctx context.Context, selector string) (int, error)
	SetViewport(ctx context.Context, width, height int) error
	// Screenshot captures the page as PNG, either the whole document or only
	// the current viewport
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
	// HTML returns the rendered document markup
	HTML(ctx context.Context) (string, error)
	Close() error
}
