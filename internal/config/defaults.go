package config

import "time"

// Defaults for the search API
const (
	DefaultPerPage = 40
)

// Defaults for the browser and page interaction
const (
	DefaultBrowserEndpoint      = "http://localhost:9222"
	DefaultNavigationTimeout    = 60 * time.Second
	DefaultViewportWidth        = 1280
	DefaultViewportHeight       = 800
	DefaultLoadMoreSelector     = "button.ajax-pagination-btn"
	DefaultShowResolvedSelector = "span.Details-content--closed"
	DefaultMaxExpandIterations  = 10
	DefaultLoadMoreDelay        = 1500 * time.Millisecond
	DefaultShowResolvedDelay    = 500 * time.Millisecond
	DefaultScreenshotRetryDelay = 1000 * time.Millisecond
)

// Defaults for scheduling and output
const (
	DefaultBatchSize  = 20
	DefaultRetryDelay = 2000 * time.Millisecond
	DefaultOutputDir  = "screenshots"
)
