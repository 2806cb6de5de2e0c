package models

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// View identifies which page of a pull request a screenshot shows
type View string

const (
	// ViewDetails is the conversation page
	ViewDetails View = "details"
	// ViewFiles is the changed-files page
	ViewFiles View = "files"
)

// Views lists the views captured for every pull request, in capture order
var Views = []View{ViewDetails, ViewFiles}

// PullRequestRecord represents one pull request returned by the search API
type PullRequestRecord struct {
	Number int    `json:"number" yaml:"number"`
	Title  string `json:"title" yaml:"title"`
	URL    string `json:"url" yaml:"url"`
}

// Stem returns the deterministic file name prefix for the record
func (r PullRequestRecord) Stem() string {
	return fmt.Sprintf("PR_%d_%s", r.Number, Sanitize(r.Title))
}

// ArtifactName returns the screenshot file name for a view
func (r PullRequestRecord) ArtifactName(view View) string {
	return fmt.Sprintf("%s_%s.png", r.Stem(), view)
}

// ViewURL returns the page address of a view
func (r PullRequestRecord) ViewURL(view View) string {
	if view == ViewFiles {
		return r.FilesURL()
	}
	return r.URL
}

// FilesURL returns the changed-files address of the pull request
func (r PullRequestRecord) FilesURL() string {
	base := strings.TrimRight(r.URL, "/")
	if strings.HasSuffix(base, "/files") {
		return base
	}
	return base + "/files"
}

const forbiddenChars = `/\:*?"<>|`

// Sanitize makes a title safe for use in a file name. Surrounding whitespace
// is trimmed, then every forbidden character and every remaining whitespace
// character is replaced with an underscore.
func Sanitize(title string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(forbiddenChars, r) || unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
}

// Artifact describes a screenshot written to disk
type Artifact struct {
	View      View                   `json:"view" yaml:"view"`
	URL       string                 `json:"url" yaml:"url"`
	Path      string                 `json:"path" yaml:"path"`
	Bytes     int                    `json:"bytes" yaml:"bytes"`
	FullPage  bool                   `json:"full_page" yaml:"full_page"`
	Extracted map[string]interface{} `json:"extracted,omitempty" yaml:"extracted,omitempty"`
}

// Outcome represents the result of processing one pull request
type Outcome struct {
	Record    PullRequestRecord `json:"record" yaml:"record"`
	Artifacts []Artifact        `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
	Err       string            `json:"error,omitempty" yaml:"error,omitempty"`
	Attempts  int               `json:"attempts" yaml:"attempts"`
	Duration  time.Duration     `json:"duration" yaml:"duration"`
	Timestamp time.Time         `json:"timestamp" yaml:"timestamp"`
}

// Succeeded reports whether both screenshots were written
func (o Outcome) Succeeded() bool {
	return o.Err == ""
}
