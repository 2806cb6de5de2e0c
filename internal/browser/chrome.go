package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// networkAlmostIdle is the lifecycle event Chrome fires once no more than two
// requests have been in flight for 500ms
const networkAlmostIdle = "networkAlmostIdle"

const defaultNavigationTimeout = 60 * time.Second

// triggerAllScript clicks every element matching the selector substituted for
// %s and evaluates to the number of elements found
const triggerAllScript = `(() => {
	const elements = Array.from(document.querySelectorAll(%s));
	for (const el of elements) {
		try {
			el.click();
		} catch (e) {}
	}
	return elements.length;
})()`

// ChromeBrowser is a Browser backed by a remote Chrome DevTools endpoint
type ChromeBrowser struct {
	ctx               context.Context
	cancel            context.CancelFunc
	allocCancel       context.CancelFunc
	navigationTimeout time.Duration
}

// Connect attaches to the browser listening on endpoint, e.g. http://localhost:9222
func Connect(ctx context.Context, endpoint string, navigationTimeout time.Duration) (*ChromeBrowser, error) {
	if navigationTimeout <= 0 {
		navigationTimeout = defaultNavigationTimeout
	}

	allocCtx, allocCancel := chromedp.NewRemoteAllocator(ctx, endpoint)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	// Run with no actions establishes the connection
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("connect to browser at %s: %w", endpoint, err)
	}

	return &ChromeBrowser{
		ctx:               browserCtx,
		cancel:            cancel,
		allocCancel:       allocCancel,
		navigationTimeout: navigationTimeout,
	}, nil
}

// NewPage opens a new tab sharing the browser connection
func (b *ChromeBrowser) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tabCtx, cancel := chromedp.NewContext(b.ctx)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("open page: %w", err)
	}

	return &chromePage{
		ctx:               tabCtx,
		cancel:            cancel,
		navigationTimeout: b.navigationTimeout,
	}, nil
}

// Close drops the connection. The remote browser keeps running.
func (b *ChromeBrowser) Close() error {
	b.cancel()
	b.allocCancel()
	return nil
}

type chromePage struct {
	ctx               context.Context
	cancel            context.CancelFunc
	navigationTimeout time.Duration
	closeOnce         sync.Once
	closeErr          error
}

// run executes actions on the tab. Cancelling ctx closes the tab.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	stop := context.AfterFunc(ctx, p.cancel)
	defer stop()
	return chromedp.Run(p.ctx, actions...)
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	stop := context.AfterFunc(ctx, p.cancel)
	defer stop()

	navCtx, cancel := context.WithTimeout(p.ctx, p.navigationTimeout)
	defer cancel()

	idle := newIdleWatcher()
	chromedp.ListenTarget(navCtx, idle.observe)

	if err := chromedp.Run(navCtx,
		page.SetLifecycleEventsEnabled(true),
		chromedp.Navigate(url),
	); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}

	var tree *page.FrameTree
	if err := chromedp.Run(navCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		tree, err = page.GetFrameTree().Do(ctx)
		return err
	})); err != nil {
		return fmt.Errorf("read frame tree: %w", err)
	}

	return idle.wait(navCtx, tree.Frame.LoaderID)
}

func (p *chromePage) ClickFirst(ctx context.Context, selector string) (bool, error) {
	var nodes []*cdp.Node
	if err := p.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.AtLeast(0))); err != nil {
		return false, fmt.Errorf("query %s: %w", selector, err)
	}
	if len(nodes) == 0 {
		return false, nil
	}

	if err := p.run(ctx, chromedp.MouseClickNode(nodes[0])); err != nil {
		return true, fmt.Errorf("click %s: %w", selector, err)
	}
	return true, nil
}

func (p *chromePage) TriggerAllMatching(ctx context.Context, selector string) (int, error) {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return 0, err
	}

	var count int
	if err := p.run(ctx, chromedp.Evaluate(fmt.Sprintf(triggerAllScript, quoted), &count)); err != nil {
		return 0, fmt.Errorf("trigger %s: %w", selector, err)
	}
	return count, nil
}

func (p *chromePage) SetViewport(ctx context.Context, width, height int) error {
	return p.run(ctx, chromedp.EmulateViewport(int64(width), int64(height)))
}

func (p *chromePage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	var buf []byte
	var action chromedp.Action = chromedp.CaptureScreenshot(&buf)
	if fullPage {
		// quality 100 selects PNG encoding
		action = chromedp.FullScreenshot(&buf, 100)
	}
	if err := p.run(ctx, action); err != nil {
		return nil, err
	}
	return buf, nil
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// Close closes the tab and waits for the browser to release it
func (p *chromePage) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = chromedp.Cancel(p.ctx)
	})
	return p.closeErr
}

// idleWatcher records which loaders reached network quiescence
type idleWatcher struct {
	mu      sync.Mutex
	loaders map[cdp.LoaderID]bool
	notify  chan struct{}
}

func newIdleWatcher() *idleWatcher {
	return &idleWatcher{
		loaders: make(map[cdp.LoaderID]bool),
		notify:  make(chan struct{}, 1),
	}
}

func (w *idleWatcher) observe(ev interface{}) {
	e, ok := ev.(*page.EventLifecycleEvent)
	if !ok || e.Name != networkAlmostIdle {
		return
	}

	w.mu.Lock()
	w.loaders[e.LoaderID] = true
	w.mu.Unlock()

	select {
	case w.notify <- struct{}{}:
	default:
	}
}

func (w *idleWatcher) wait(ctx context.Context, loader cdp.LoaderID) error {
	for {
		w.mu.Lock()
		done := w.loaders[loader]
		w.mu.Unlock()
		if done {
			return nil
		}

		select {
		case <-w.notify:
		case <-ctx.Done():
			return fmt.Errorf("waiting for network idle: %w", ctx.Err())
		}
	}
}
