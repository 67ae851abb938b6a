// Package forge consumes the GitHub REST API surface a release needs:
// milestones, closed issues and release records.
package forge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"

	"github.com/tagmint/tagmint/version"
)

var tokenRe = regexp.MustCompile(`^[0-9a-f]{40}$`)

// APIError wraps a non-success response from the forge.
type APIError struct {
	URL  string
	Code int
	Body string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github request failed (%d): %s", e.Code, e.URL)
}

// Milestone is the slice of a forge milestone the release flow cares
// about.
type Milestone struct {
	Number     int
	Title      string
	State      string
	OpenIssues int
	URL        string
}

// Issue is a closed issue or pull request used for changelog entries.
type Issue struct {
	Number      int
	Title       string
	URL         string
	PullRequest bool
}

// ResolveToken returns a usable API token. A value that already looks
// like a token (40 hex characters) passes through; anything else is
// treated as the name of an environment variable holding one.
func ResolveToken(token string) (string, error) {
	if token == "" {
		token = "GITHUB_TOKEN"
	}
	if v := os.Getenv(token); v != "" {
		token = v
	}
	if !tokenRe.MatchString(token) {
		return "", &version.ValidationError{Field: "token", Value: token}
	}
	return token, nil
}

// GitHub talks to the GitHub REST API for one repository host.
type GitHub struct {
	cl     *github.Client
	logger *slog.Logger
}

// New creates a GitHub forge client from a token value or token
// environment variable name. GITHUB_API_URL or GITHUB_ENDPOINT override
// the API base URL for GitHub Enterprise hosts.
func New(token string, logger *slog.Logger) (*GitHub, error) {
	t, err := ResolveToken(token)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: t})
	cl := github.NewClient(oauth2.NewClient(ctx, ts))

	apiURL := os.Getenv("GITHUB_API_URL")
	if apiURL == "" {
		apiURL = os.Getenv("GITHUB_ENDPOINT")
	}
	if apiURL != "" {
		baseURL, err := url.Parse(apiURL)
		if err != nil {
			return nil, fmt.Errorf("invalid API URL: %w", err)
		}
		if !strings.HasSuffix(baseURL.Path, "/") {
			baseURL.Path += "/"
		}
		cl.BaseURL = baseURL
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &GitHub{cl: cl, logger: logger}, nil
}

// NewWithClient wraps a prepared go-github client, used by tests to
// inject a mock transport.
func NewWithClient(cl *github.Client, logger *slog.Logger) *GitHub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &GitHub{cl: cl, logger: logger}
}

func splitRepo(repo string) (string, string, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return "", "", &version.ValidationError{Field: "repository", Value: repo}
	}
	return owner, name, nil
}

func apiErr(resp *github.Response, err error) error {
	var gerr *github.ErrorResponse
	if errors.As(err, &gerr) {
		e := &APIError{Body: gerr.Message}
		if gerr.Response != nil {
			e.Code = gerr.Response.StatusCode
			if gerr.Response.Request != nil {
				e.URL = gerr.Response.Request.URL.String()
			}
		}
		return e
	}
	if err != nil {
		return err
	}
	if resp != nil && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		e := &APIError{Code: resp.StatusCode}
		if resp.Request != nil {
			e.URL = resp.Request.URL.String()
		}
		return e
	}
	return nil
}

// Milestones lists the open milestones of a repository.
func (g *GitHub) Milestones(ctx context.Context, repo string) ([]Milestone, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	g.logger.Debug("retrieving milestones", slog.String("repo", repo))
	ms, resp, err := g.cl.Issues.ListMilestones(ctx, owner, name, &github.MilestoneListOptions{})
	if err := apiErr(resp, err); err != nil {
		return nil, err
	}

	var out []Milestone
	for _, m := range ms {
		out = append(out, Milestone{
			Number:     m.GetNumber(),
			Title:      m.GetTitle(),
			State:      m.GetState(),
			OpenIssues: m.GetOpenIssues(),
			URL:        m.GetHTMLURL(),
		})
	}
	return out, nil
}

// VersionMilestone returns the open milestone titled v<version>, or nil
// when the repository has none.
func (g *GitHub) VersionMilestone(ctx context.Context, repo string, v version.SemVer) (*Milestone, error) {
	ms, err := g.Milestones(ctx, repo)
	if err != nil {
		return nil, err
	}
	title := "v" + v.String()
	for _, m := range ms {
		if m.Title == title && m.State == "open" {
			return &m, nil
		}
	}
	return nil, nil
}

// CloseMilestone marks a milestone closed.
func (g *GitHub) CloseMilestone(ctx context.Context, repo string, number int) error {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return err
	}

	g.logger.Debug("closing milestone", slog.String("repo", repo), slog.Int("number", number))
	state := "closed"
	_, resp, err := g.cl.Issues.EditMilestone(ctx, owner, name, number, &github.Milestone{State: &state})
	if err := apiErr(resp, err); err != nil {
		return err
	}
	g.logger.Info("closed milestone", slog.Int("number", number))
	return nil
}

// Issues lists issues of a repository in the given state, oldest first.
// A non-zero since restricts the listing to issues updated after it.
// Pull requests are flagged through the PullRequest field.
func (g *GitHub) Issues(ctx context.Context, repo, state string, since time.Time) ([]Issue, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	opts := &github.IssueListByRepoOptions{
		State:     state,
		Sort:      "created",
		Direction: "asc",
	}
	if !since.IsZero() {
		opts.Since = since.UTC()
	}

	g.logger.Debug("retrieving issues", slog.String("repo", repo), slog.String("state", state))
	issues, resp, err := g.cl.Issues.ListByRepo(ctx, owner, name, opts)
	if err := apiErr(resp, err); err != nil {
		return nil, err
	}

	var out []Issue
	for _, i := range issues {
		out = append(out, Issue{
			Number:      i.GetNumber(),
			Title:       i.GetTitle(),
			URL:         i.GetHTMLURL(),
			PullRequest: i.PullRequestLinks != nil,
		})
	}
	g.logger.Debug("retrieved issues", slog.Int("count", len(out)))
	return out, nil
}

// CreateRelease creates the release record for an existing tag, with the
// changelog entry as its body.
func (g *GitHub) CreateRelease(ctx context.Context, repo string, v version.SemVer, body string) error {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return err
	}

	tag := "v" + v.String()
	display := v.String()
	g.logger.Debug("creating release", slog.String("repo", repo), slog.String("tag", tag))
	_, resp, err := g.cl.Repositories.CreateRelease(ctx, owner, name, &github.RepositoryRelease{
		TagName: &tag,
		Name:    &display,
		Body:    &body,
	})
	if err := apiErr(resp, err); err != nil {
		return err
	}
	if resp.StatusCode != http.StatusCreated {
		e := &APIError{Code: resp.StatusCode}
		if resp.Request != nil {
			e.URL = resp.Request.URL.String()
		}
		return e
	}
	g.logger.Info("created github release", slog.String("tag", tag))
	return nil
}
