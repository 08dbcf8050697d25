// Package github is the thin GitHub REST client used to read pull request
// bodies and post build comments.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/fyrsmithlabs/pluginbuild/internal/config"
	"github.com/fyrsmithlabs/pluginbuild/internal/logging"
	gh "github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

const (
	mediaTypeJSON    = "application/vnd.github+json"
	mediaTypeV3      = "application/vnd.github.v3+json"
	defaultUserAgent = "PlogonBuild/1.0.0"
)

var (
	// ErrTokenNotSet is returned when no token is configured.
	ErrTokenNotSet = errors.New("GitHub token not set")

	// ErrNoIssueBody is returned when an issue has no body.
	ErrNoIssueBody = errors.New("couldn't read issue body")

	// ErrInvalidRepo is returned for repository names not of the form owner/name.
	ErrInvalidRepo = errors.New("repository must be owner/name")
)

// Options configures the client.
type Options struct {
	Token     config.Secret
	APIURL    string // Defaults to https://api.github.com/
	UserAgent string
	Retry     *RetryConfig
}

// Client talks to the GitHub issues API.
type Client struct {
	gh     *gh.Client
	retry  *RetryConfig
	logger *logging.Logger
}

// NewClient creates a GitHub client with token authentication.
func NewClient(ctx context.Context, opts Options, logger *logging.Logger) (*Client, error) {
	if !opts.Token.IsSet() {
		return nil, ErrTokenNotSet
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	// oauth2 picks up the base transport from the context.
	base := &http.Client{Transport: &acceptTransport{base: http.DefaultTransport}}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token.Value()})
	client := gh.NewClient(oauth2.NewClient(ctx, ts))

	client.UserAgent = defaultUserAgent
	if opts.UserAgent != "" {
		client.UserAgent = opts.UserAgent
	}

	if opts.APIURL != "" {
		u, err := url.Parse(strings.TrimSuffix(opts.APIURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", opts.APIURL, err)
		}
		client.BaseURL = u
	}

	return &Client{
		gh:     client,
		retry:  opts.Retry,
		logger: logger.Named("github"),
	}, nil
}

// GetIssueBody returns the body of an issue or pull request.
func (c *Client) GetIssueBody(ctx context.Context, repo string, number int) (string, error) {
	owner, name, err := SplitRepo(repo)
	if err != nil {
		return "", err
	}

	var issue *gh.Issue
	_, err = retryOperation(ctx, c.retry, c.logger, isRetryableError, func() (*gh.Response, error) {
		var resp *gh.Response
		var err error
		issue, resp, err = c.gh.Issues.Get(ctx, owner, name, number)
		return resp, err
	})
	if err != nil {
		return "", fmt.Errorf("get issue %s#%d: %w", repo, number, err)
	}

	if issue == nil || issue.Body == nil {
		return "", fmt.Errorf("get issue %s#%d: %w", repo, number, ErrNoIssueBody)
	}
	return issue.GetBody(), nil
}

// AddComment posts a comment to an issue or pull request.
func (c *Client) AddComment(ctx context.Context, repo string, number int, body string) error {
	owner, name, err := SplitRepo(repo)
	if err != nil {
		return err
	}

	comment := &gh.IssueComment{Body: gh.String(body)}
	_, err = retryOperation(ctx, c.retry, c.logger, isRateLimitOnly, func() (*gh.Response, error) {
		_, resp, err := c.gh.Issues.CreateComment(ctx, owner, name, number, comment)
		return resp, err
	})
	if err != nil {
		return fmt.Errorf("add comment to %s#%d: %w", repo, number, err)
	}
	return nil
}

// SplitRepo splits "owner/name" into its parts.
func SplitRepo(repo string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRepo, repo)
	}
	return owner, name, nil
}

// acceptTransport asks for the current GitHub media type instead of the
// v3 one go-github sends by default.
type acceptTransport struct {
	base http.RoundTripper
}

func (t *acceptTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept") == mediaTypeV3 {
		req = req.Clone(req.Context())
		req.Header.Set("Accept", mediaTypeJSON)
	}
	return t.base.RoundTrip(req)
}
