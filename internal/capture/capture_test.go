package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/williampepple1/pr-snapshot/internal/browser/browsertest"
	"github.com/williampepple1/pr-snapshot/internal/config"
	"github.com/williampepple1/pr-snapshot/internal/extraction"
	"github.com/williampepple1/pr-snapshot/internal/logging"
)

type sleepRecorder struct {
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func newTestInteractor(fs afero.Fs, selectors map[string]string) (*Interactor, *sleepRecorder) {
	opts := OptionsFromConfig(&config.CreateDefault().Browser)
	i := NewInteractor(fs, opts, extraction.NewExtractor(&config.ExtractionConfig{Selectors: selectors}), logging.Discard())
	rec := &sleepRecorder{}
	i.sleep = rec.sleep
	return i, rec
}

func TestExpandPagination_StopsAtCap(t *testing.T) {
	i, rec := newTestInteractor(afero.NewMemMapFs(), nil)
	page := &browsertest.Page{LoadMore: -1}

	attempts, err := i.ExpandPagination(context.Background(), page)
	require.NoError(t, err)

	assert.Equal(t, 10, attempts)
	assert.Equal(t, 10, page.Clicks)
	assert.Len(t, rec.delays, 10)
	assert.Equal(t, 1500*time.Millisecond, rec.delays[0])
}

func TestExpandPagination_StopsWhenControlGone(t *testing.T) {
	i, _ := newTestInteractor(afero.NewMemMapFs(), nil)
	page := &browsertest.Page{LoadMore: 3}

	attempts, err := i.ExpandPagination(context.Background(), page)
	require.NoError(t, err)

	assert.Equal(t, 3, attempts)
	assert.Equal(t, []string{
		config.DefaultLoadMoreSelector, config.DefaultLoadMoreSelector,
		config.DefaultLoadMoreSelector, config.DefaultLoadMoreSelector,
	}, page.Selectors)
}

func TestExpandPagination_ClickFailureIsNotFatal(t *testing.T) {
	i, _ := newTestInteractor(afero.NewMemMapFs(), nil)
	page := &browsertest.Page{LoadMore: -1, ClickErr: errors.New("node is detached")}

	attempts, err := i.ExpandPagination(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, 10, attempts)
}

func TestExpandPagination_QueryFailure(t *testing.T) {
	i, _ := newTestInteractor(afero.NewMemMapFs(), nil)
	page := &browsertest.Page{QueryErr: errors.New("target closed")}

	_, err := i.ExpandPagination(context.Background(), page)
	assert.Error(t, err)
}

func TestExpandResolved_BatchThenStop(t *testing.T) {
	i, rec := newTestInteractor(afero.NewMemMapFs(), nil)
	page := &browsertest.Page{Resolved: []int{5}}

	passes, err := i.ExpandResolved(context.Background(), page)
	require.NoError(t, err)

	assert.Equal(t, 2, passes)
	assert.Equal(t, 2, page.TriggerCalls)
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, rec.delays)
	assert.Equal(t, config.DefaultShowResolvedSelector, page.Selectors[0])
}

func TestExpandResolved_StopsAtCap(t *testing.T) {
	i, _ := newTestInteractor(afero.NewMemMapFs(), nil)
	page := &browsertest.Page{Resolved: []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}}

	passes, err := i.ExpandResolved(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, 10, passes)
}

func TestPrepareAndCapture(t *testing.T) {
	fs := afero.NewMemMapFs()
	i, _ := newTestInteractor(fs, map[string]string{"state": "span.State"})
	page := &browsertest.Page{
		LoadMore:    2,
		Resolved:    []int{3},
		HTMLContent: `<html><body><span class="State">Open</span></body></html>`,
	}

	artifact, err := i.PrepareAndCapture(context.Background(), page, "https://github.com/o/r/pull/1", "out/PR_1_x_details.png")
	require.NoError(t, err)

	assert.Equal(t, []string{"https://github.com/o/r/pull/1"}, page.Navigated)
	assert.Equal(t, [2]int{1280, 800}, page.Viewport)
	assert.Equal(t, []bool{true}, page.Shots)
	assert.True(t, artifact.FullPage)
	assert.Equal(t, len(browsertest.PNG), artifact.Bytes)
	assert.Equal(t, "Open", artifact.Extracted["state"])

	data, err := afero.ReadFile(fs, "out/PR_1_x_details.png")
	require.NoError(t, err)
	assert.Equal(t, browsertest.PNG, data)
}

func TestPrepareAndCapture_ViewportFallback(t *testing.T) {
	fs := afero.NewMemMapFs()
	i, rec := newTestInteractor(fs, nil)
	page := &browsertest.Page{FullPageErr: errors.New("page too tall")}

	artifact, err := i.PrepareAndCapture(context.Background(), page, "https://github.com/o/r/pull/1", "shot.png")
	require.NoError(t, err)

	assert.Equal(t, []bool{true, false}, page.Shots)
	assert.False(t, artifact.FullPage)
	assert.Contains(t, rec.delays, time.Second)
	exists, err := afero.Exists(fs, "shot.png")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestPrepareAndCapture_FallbackFails(t *testing.T) {
	fs := afero.NewMemMapFs()
	i, _ := newTestInteractor(fs, nil)
	viewportErr := errors.New("render state inconsistent")
	page := &browsertest.Page{FullPageErr: errors.New("page too tall"), ViewportErr: viewportErr}

	_, err := i.PrepareAndCapture(context.Background(), page, "https://github.com/o/r/pull/1", "shot.png")
	require.Error(t, err)
	assert.ErrorIs(t, err, viewportErr)

	exists, _ := afero.Exists(fs, "shot.png")
	assert.False(t, exists)
}

func TestPrepareAndCapture_NavigationFailure(t *testing.T) {
	i, _ := newTestInteractor(afero.NewMemMapFs(), nil)
	navErr := errors.New("net::ERR_NAME_NOT_RESOLVED")
	page := &browsertest.Page{NavigateErr: navErr}

	_, err := i.PrepareAndCapture(context.Background(), page, "https://github.com/o/r/pull/1", "shot.png")
	assert.ErrorIs(t, err, navErr)
	assert.Empty(t, page.Shots)
}
