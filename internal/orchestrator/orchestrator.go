package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/afero"
	"github.com/williampepple1/pr-snapshot/internal/browser"
	"github.com/williampepple1/pr-snapshot/internal/capture"
	"github.com/williampepple1/pr-snapshot/internal/config"
	"github.com/williampepple1/pr-snapshot/internal/extraction"
	"github.com/williampepple1/pr-snapshot/internal/io"
	"github.com/williampepple1/pr-snapshot/internal/job"
	"github.com/williampepple1/pr-snapshot/internal/search"
	"github.com/williampepple1/pr-snapshot/internal/worker"
	"github.com/williampepple1/pr-snapshot/pkg/models"
)

// RecordSource lists the pull requests to capture
type RecordSource interface {
	FetchAll(ctx context.Context, owner, repo, author string) ([]models.PullRequestRecord, error)
}

// Connector opens the browser connection shared by every job of a run
type Connector func(ctx context.Context, cfg *config.BrowserConfig) (browser.Browser, error)

// Orchestrator runs a complete capture: search, then screenshots in batches
type Orchestrator struct {
	cfg     *config.AppConfig
	logger  *slog.Logger
	fs      afero.Fs
	source  RecordSource
	connect Connector
}

// Option customizes an Orchestrator
type Option func(*Orchestrator)

// WithFs replaces the filesystem screenshots and the manifest are written to
func WithFs(fs afero.Fs) Option {
	return func(o *Orchestrator) { o.fs = fs }
}

// WithSource replaces the GitHub search pager
func WithSource(source RecordSource) Option {
	return func(o *Orchestrator) { o.source = source }
}

// WithConnector replaces the Chrome DevTools connection
func WithConnector(connect Connector) Option {
	return func(o *Orchestrator) { o.connect = connect }
}

// New creates an orchestrator for cfg
func New(cfg *config.AppConfig, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:     cfg,
		logger:  logger,
		fs:      afero.NewOsFs(),
		connect: connectChrome,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func connectChrome(ctx context.Context, cfg *config.BrowserConfig) (browser.Browser, error) {
	b, err := browser.Connect(ctx, cfg.Endpoint, cfg.NavigationTimeout)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (o *Orchestrator) recordSource(ctx context.Context) (RecordSource, error) {
	if o.source != nil {
		return o.source, nil
	}
	client, err := search.NewClient(ctx, &o.cfg.GitHub, &o.cfg.Proxy)
	if err != nil {
		return nil, fmt.Errorf("create GitHub client: %w", err)
	}
	return search.NewPager(client, o.cfg.GitHub.PerPage, o.logger), nil
}

// Run fetches the matching pull requests and captures both pages of each.
// Every job runs even when others fail; the returned error joins the
// failures of all jobs that still failed after their retry.
func (o *Orchestrator) Run(ctx context.Context) error {
	gh := o.cfg.GitHub

	source, err := o.recordSource(ctx)
	if err != nil {
		return err
	}
	records, err := source.FetchAll(ctx, gh.Owner, gh.Repo, gh.Author)
	if err != nil {
		return fmt.Errorf("fetch pull requests: %w", err)
	}
	if len(records) == 0 {
		o.logger.Info("No pull requests matched", "repo", gh.Owner+"/"+gh.Repo, "author", gh.Author)
		return nil
	}
	o.logger.Info("Found pull requests, capturing screenshots", "count", len(records), "dir", o.cfg.Output.Dir)

	if err := o.fs.MkdirAll(o.cfg.Output.Dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	b, err := o.connect(ctx, &o.cfg.Browser)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			o.logger.Warn("Closing browser connection failed", "error", err)
		}
	}()

	interactor := capture.NewInteractor(o.fs, capture.OptionsFromConfig(&o.cfg.Browser),
		extraction.NewExtractor(&o.cfg.Extraction), o.logger)
	runner := job.NewRunner(b, interactor, o.cfg.Output.Dir, o.logger)
	retrier := job.NewRetrier(o.cfg.Scheduler.RetryDelay, o.logger)

	// each task writes only its own slot
	outcomes := make([]models.Outcome, len(records))
	tasks := make([]worker.Task, len(records))
	for i, record := range records {
		tasks[i] = func(ctx context.Context) error {
			outcome := &outcomes[i]
			outcome.Record = record
			start := time.Now()

			err := retrier.Attempt(ctx, func(ctx context.Context) error {
				outcome.Attempts++
				artifacts, err := runner.Run(ctx, record)
				outcome.Artifacts = artifacts
				return err
			})

			outcome.Duration = time.Since(start)
			outcome.Timestamp = time.Now()
			if err != nil {
				outcome.Err = err.Error()
				o.logger.Error("Pull request failed", "pr", record.Number, "attempts", outcome.Attempts, "error", err)
			}
			return err
		}
	}

	runErr := worker.NewScheduler(o.cfg.Scheduler.BatchSize, o.logger).RunAll(ctx, tasks)

	succeeded := 0
	for _, outcome := range outcomes {
		if outcome.Succeeded() {
			succeeded++
		}
	}
	o.logger.Info("All pull requests processed", "succeeded", succeeded, "failed", len(outcomes)-succeeded)

	manifest := io.NewManifestWriter(o.fs, &o.cfg.Output)
	if manifest.Enabled() {
		if err := manifest.Save(outcomes); err != nil {
			runErr = errors.Join(runErr, fmt.Errorf("save manifest: %w", err))
		} else {
			o.logger.Info("Manifest saved", "path", o.cfg.Output.ManifestFile)
		}
	}

	return runErr
}
