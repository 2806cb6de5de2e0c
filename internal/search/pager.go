package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v74/github"
	"github.com/williampepple1/pr-snapshot/internal/config"
	"github.com/williampepple1/pr-snapshot/internal/proxy"
	"github.com/williampepple1/pr-snapshot/pkg/models"
	"golang.org/x/oauth2"
)

// Pager walks the issue search endpoint page by page
type Pager struct {
	client  *github.Client
	perPage int
	logger  *slog.Logger
}

// NewClient creates a GitHub client authenticated with the configured token.
// Requests go through the configured proxy, and APIURL overrides the API root.
func NewClient(ctx context.Context, gh *config.GitHubConfig, proxyConfig *config.ProxyConfig) (*github.Client, error) {
	transport, err := proxy.NewManager(proxyConfig).Transport()
	if err != nil {
		return nil, err
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: transport})

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: gh.Token})
	client := github.NewClient(oauth2.NewClient(ctx, ts))

	if gh.APIURL != "" && gh.APIURL != "https://api.github.com" {
		base := gh.APIURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		client.BaseURL, err = url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API url: %w", err)
		}
	}

	return client, nil
}

// NewPager creates a pager requesting perPage items per call
func NewPager(client *github.Client, perPage int, logger *slog.Logger) *Pager {
	if perPage < 1 {
		perPage = config.DefaultPerPage
	}
	return &Pager{
		client:  client,
		perPage: perPage,
		logger:  logger,
	}
}

// Query builds the search expression selecting an author's pull requests in a repository
func Query(owner, repo, author string) string {
	return fmt.Sprintf("is:pr repo:%s/%s author:%s", owner, repo, author)
}

// FetchAll returns every pull request in owner/repo authored by author, in
// the order the search endpoint returns them. Paging stops at the first short
// page. A malformed or rejected response stops paging and the records gathered
// so far are returned without error; only transport failures are errors.
func (p *Pager) FetchAll(ctx context.Context, owner, repo, author string) ([]models.PullRequestRecord, error) {
	query := Query(owner, repo, author)
	var records []models.PullRequestRecord
	seen := make(map[int]struct{})

	for page := 1; ; page++ {
		p.logger.Info("Querying search API", "query", query, "page", page, "per_page", p.perPage)

		result, resp, err := p.client.Search.Issues(ctx, query, &github.SearchOptions{
			ListOptions: github.ListOptions{Page: page, PerPage: p.perPage},
		})
		if err != nil {
			if resp != nil && resp.Response != nil {
				p.logger.Error("Unexpected search response", "page", page, "status", resp.StatusCode, "payload", describe(err))
				return records, nil
			}
			return records, fmt.Errorf("search page %d: %w", page, err)
		}
		if result == nil || result.Issues == nil {
			p.logger.Error("Unexpected search response", "page", page, "payload", "missing items field",
				"total_count", result.GetTotal())
			return records, nil
		}

		for _, issue := range result.Issues {
			record := toRecord(issue)
			if _, ok := seen[record.Number]; ok {
				p.logger.Warn("Duplicate pull request in search results", "pr", record.Number, "page", page)
			}
			seen[record.Number] = struct{}{}
			records = append(records, record)
		}

		if len(result.Issues) < p.perPage {
			return records, nil
		}
	}
}

func toRecord(issue *github.Issue) models.PullRequestRecord {
	htmlURL := issue.GetHTMLURL()
	if link := issue.GetPullRequestLinks().GetHTMLURL(); link != "" {
		htmlURL = link
	}
	return models.PullRequestRecord{
		Number: issue.GetNumber(),
		Title:  issue.GetTitle(),
		URL:    htmlURL,
	}
}

func describe(err error) string {
	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) {
		return errResp.Message
	}
	return err.Error()
}
