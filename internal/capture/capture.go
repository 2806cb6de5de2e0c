package capture

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/afero"
	"github.com/williampepple1/pr-snapshot/internal/browser"
	"github.com/williampepple1/pr-snapshot/internal/config"
	"github.com/williampepple1/pr-snapshot/internal/extraction"
	"github.com/williampepple1/pr-snapshot/internal/wait"
	"github.com/williampepple1/pr-snapshot/pkg/models"
)

// Options controls how a page is expanded and captured
type Options struct {
	LoadMoreSelector     string
	ShowResolvedSelector string
	MaxIterations        int
	LoadMoreDelay        time.Duration
	ShowResolvedDelay    time.Duration
	ScreenshotRetryDelay time.Duration
	ViewportWidth        int
	ViewportHeight       int
}

// OptionsFromConfig builds capture options from the browser configuration
func OptionsFromConfig(cfg *config.BrowserConfig) Options {
	return Options{
		LoadMoreSelector:     cfg.LoadMoreSelector,
		ShowResolvedSelector: cfg.ShowResolvedSelector,
		MaxIterations:        cfg.MaxExpandIterations,
		LoadMoreDelay:        cfg.LoadMoreDelay,
		ShowResolvedDelay:    cfg.ShowResolvedDelay,
		ScreenshotRetryDelay: cfg.ScreenshotRetryDelay,
		ViewportWidth:        cfg.ViewportWidth,
		ViewportHeight:       cfg.ViewportHeight,
	}
}

// Interactor expands the dynamic content of a page and saves a screenshot of it
type Interactor struct {
	fs        afero.Fs
	opts      Options
	extractor *extraction.Extractor
	logger    *slog.Logger
	sleep     wait.SleepFunc
}

// NewInteractor creates an interactor writing screenshots to fs
func NewInteractor(fs afero.Fs, opts Options, extractor *extraction.Extractor, logger *slog.Logger) *Interactor {
	return &Interactor{
		fs:        fs,
		opts:      opts,
		extractor: extractor,
		logger:    logger,
		sleep:     wait.Sleep,
	}
}

// PrepareAndCapture loads targetURL in page, expands every "load more" and
// "show resolved" control, fixes the viewport and writes a PNG to outputPath.
// A failed full-page capture falls back once to a viewport-only capture.
func (i *Interactor) PrepareAndCapture(ctx context.Context, page browser.Page, targetURL, outputPath string) (models.Artifact, error) {
	artifact := models.Artifact{URL: targetURL, Path: outputPath}
	log := i.logger.With("url", targetURL)

	if err := page.Navigate(ctx, targetURL); err != nil {
		return artifact, fmt.Errorf("navigate: %w", err)
	}

	clicks, err := i.ExpandPagination(ctx, page)
	if err != nil {
		return artifact, err
	}
	batches, err := i.ExpandResolved(ctx, page)
	if err != nil {
		return artifact, err
	}
	log.Debug("Page expanded", "load_more_clicks", clicks, "resolved_passes", batches)

	if err := page.SetViewport(ctx, i.opts.ViewportWidth, i.opts.ViewportHeight); err != nil {
		return artifact, fmt.Errorf("set viewport: %w", err)
	}

	if i.extractor.Enabled() {
		artifact.Extracted = i.extract(ctx, page, log)
	}

	data, fullPage, err := i.screenshot(ctx, page, log)
	if err != nil {
		return artifact, err
	}
	if err := afero.WriteFile(i.fs, outputPath, data, 0644); err != nil {
		return artifact, fmt.Errorf("write %s: %w", outputPath, err)
	}

	artifact.Bytes = len(data)
	artifact.FullPage = fullPage
	return artifact, nil
}

// ExpandPagination clicks the load-more control until it disappears or the
// iteration cap is hit, returning the number of clicks attempted. A failed
// click is logged and the loop goes on.
func (i *Interactor) ExpandPagination(ctx context.Context, page browser.Page) (int, error) {
	attempts := 0
	for n := 0; n < i.opts.MaxIterations; n++ {
		found, err := page.ClickFirst(ctx, i.opts.LoadMoreSelector)
		if !found {
			if err != nil {
				return attempts, fmt.Errorf("locate load more: %w", err)
			}
			break
		}

		attempts++
		if err != nil {
			i.logger.Warn("Load more click failed", "attempt", attempts, "error", err)
		} else {
			i.logger.Info("Clicked load more", "attempt", attempts)
		}

		if err := i.sleep(ctx, i.opts.LoadMoreDelay); err != nil {
			return attempts, err
		}
	}
	return attempts, nil
}

// ExpandResolved triggers every show-resolved control in one pass per
// iteration until a pass finds none or the iteration cap is hit. It returns
// the number of passes made.
func (i *Interactor) ExpandResolved(ctx context.Context, page browser.Page) (int, error) {
	passes := 0
	for n := 0; n < i.opts.MaxIterations; n++ {
		passes++
		count, err := page.TriggerAllMatching(ctx, i.opts.ShowResolvedSelector)
		if err != nil {
			return passes, fmt.Errorf("expand resolved: %w", err)
		}
		if count == 0 {
			break
		}
		i.logger.Info("Expanded resolved conversations", "count", count)

		if err := i.sleep(ctx, i.opts.ShowResolvedDelay); err != nil {
			return passes, err
		}
	}
	return passes, nil
}

func (i *Interactor) screenshot(ctx context.Context, page browser.Page, log *slog.Logger) ([]byte, bool, error) {
	data, err := page.Screenshot(ctx, true)
	if err == nil {
		return data, true, nil
	}

	log.Warn("Full-page screenshot failed, retrying viewport only", "error", err)
	if err := i.sleep(ctx, i.opts.ScreenshotRetryDelay); err != nil {
		return nil, false, err
	}

	data, err = page.Screenshot(ctx, false)
	if err != nil {
		return nil, false, fmt.Errorf("screenshot: %w", err)
	}
	return data, false, nil
}

// extract is best effort; a failure only costs the metadata
func (i *Interactor) extract(ctx context.Context, page browser.Page, log *slog.Logger) map[string]interface{} {
	html, err := page.HTML(ctx)
	if err != nil {
		log.Warn("Reading page markup failed", "error", err)
		return nil
	}
	extracted, err := i.extractor.ExtractHTML(html)
	if err != nil {
		log.Warn("Parsing page markup failed", "error", err)
		return nil
	}
	return extracted
}
