package job

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/williampepple1/pr-snapshot/internal/browser"
	"github.com/williampepple1/pr-snapshot/internal/capture"
	"github.com/williampepple1/pr-snapshot/pkg/models"
)

// Error reports which pull request, and which of its pages, a job failed on
type Error struct {
	Number int
	View   models.View
	Err    error
}

func (e *Error) Error() string {
	if e.View == "" {
		return fmt.Sprintf("PR #%d: %v", e.Number, e.Err)
	}
	return fmt.Sprintf("PR #%d %s page: %v", e.Number, e.View, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Runner captures both pages of a pull request
type Runner struct {
	browser    browser.Browser
	interactor *capture.Interactor
	outputDir  string
	logger     *slog.Logger
}

// NewRunner creates a runner opening pages on b and writing into outputDir
func NewRunner(b browser.Browser, interactor *capture.Interactor, outputDir string, logger *slog.Logger) *Runner {
	return &Runner{
		browser:    b,
		interactor: interactor,
		outputDir:  outputDir,
		logger:     logger,
	}
}

// Run captures the conversation page and then the files page of record.
// Each page is opened in its own tab, which is closed before moving on
// whether or not the capture succeeded.
func (r *Runner) Run(ctx context.Context, record models.PullRequestRecord) ([]models.Artifact, error) {
	log := r.logger.With("pr", record.Number)
	artifacts := make([]models.Artifact, 0, len(models.Views))

	for _, view := range models.Views {
		artifact, err := r.captureView(ctx, record, view, log)
		if err != nil {
			return artifacts, &Error{Number: record.Number, View: view, Err: err}
		}
		artifacts = append(artifacts, artifact)
	}
	return artifacts, nil
}

func (r *Runner) captureView(ctx context.Context, record models.PullRequestRecord, view models.View, log *slog.Logger) (models.Artifact, error) {
	url := record.ViewURL(view)
	log.Info("Processing page", "view", view, "title", record.Title, "url", url)

	page, err := r.browser.NewPage(ctx)
	if err != nil {
		return models.Artifact{View: view, URL: url}, fmt.Errorf("open page: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			log.Warn("Closing page failed", "view", view, "error", cerr)
		}
	}()

	path := filepath.Join(r.outputDir, record.ArtifactName(view))
	artifact, err := r.interactor.PrepareAndCapture(ctx, page, url, path)
	artifact.View = view
	if err != nil {
		return artifact, err
	}

	log.Info("Saved screenshot", "view", view, "path", path, "full_page", artifact.FullPage)
	return artifact, nil
}
