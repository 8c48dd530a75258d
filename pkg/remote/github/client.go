// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package github

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v60/github"
	"github.com/rs/zerolog"
	"github.com/walteh/repofetch/pkg/remote"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the per-request HTTP timeout
	DefaultTimeout = 30 * time.Second

	// DefaultRequestsPerSecond keeps an authenticated token under 5000/hour
	DefaultRequestsPerSecond = 1.2

	// headRef is used when no branch is given
	headRef = "HEAD"
)

var _ remote.Client = (*Client)(nil)

// 🔌 API is the subset of go-github the client needs
type API interface {
	GetTree(ctx context.Context, owner, repo, sha string, recursive bool) (*github.Tree, *github.Response, error)
	GetContents(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentGetOptions) (*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error)
	RateLimits(ctx context.Context) (*github.RateLimits, *github.Response, error)
}

// githubAPI adapts *github.Client to API
type githubAPI struct {
	client *github.Client
}

func (w *githubAPI) GetTree(ctx context.Context, owner, repo, sha string, recursive bool) (*github.Tree, *github.Response, error) {
	return w.client.Git.GetTree(ctx, owner, repo, sha, recursive)
}

func (w *githubAPI) GetContents(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentGetOptions) (*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error) {
	return w.client.Repositories.GetContents(ctx, owner, repo, path, opts)
}

func (w *githubAPI) RateLimits(ctx context.Context) (*github.RateLimits, *github.Response, error) {
	return w.client.RateLimit.Get(ctx)
}

// 🔧 Options configures the GitHub client
type Options struct {
	// Token is a personal access or OAuth token; empty means anonymous
	Token string
	// BaseURL overrides the API root (GitHub Enterprise, tests)
	BaseURL string
	// RequestsPerSecond throttles requests proactively; <= 0 disables it
	RequestsPerSecond float64
	// Timeout is the HTTP client timeout; 0 uses DefaultTimeout
	Timeout time.Duration
}

// 🎯 Client implements remote.Client against the GitHub REST API
type Client struct {
	api     API
	limiter *rate.Limiter
}

// 🏭 New creates a GitHub client
func New(ctx context.Context, opts Options) (*Client, error) {
	var httpClient *http.Client
	if opts.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		httpClient = oauth2.NewClient(ctx, ts)
	} else {
		httpClient = &http.Client{}
	}

	httpClient.Timeout = opts.Timeout
	if httpClient.Timeout == 0 {
		httpClient.Timeout = DefaultTimeout
	}

	client := github.NewClient(httpClient)
	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, errors.Errorf("parsing base url: %w", err)
		}
		client.BaseURL = u
	}

	return NewWithAPI(&githubAPI{client: client}, opts.RequestsPerSecond), nil
}

// 🏭 NewWithAPI wraps an API implementation, mostly for tests
func NewWithAPI(api API, requestsPerSecond float64) *Client {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &Client{
		api:     api,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// 📂 ListFilesRecursively lists the whole tree in one call
func (c *Client) ListFilesRecursively(ctx context.Context, repo remote.Repository) ([]remote.FileEntry, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Errorf("waiting for rate limiter: %w", err)
	}

	tree, _, err := c.api.GetTree(ctx, repo.Owner, repo.Name, refOrHead(repo.Branch), true)
	if err != nil {
		return nil, wrapError(err, "getting repository tree")
	}

	if tree.GetTruncated() {
		zerolog.Ctx(ctx).Warn().
			Str("repo", repo.String()).
			Int("entries", len(tree.Entries)).
			Msg("repository tree was truncated by the API")
	}

	entries := make([]remote.FileEntry, 0, len(tree.Entries))
	for _, entry := range tree.Entries {
		switch entry.GetType() {
		case "blob":
			entries = append(entries, remote.FileEntry{
				Path: entry.GetPath(),
				Kind: remote.KindFile,
				Size: int64(entry.GetSize()),
			})
		case "tree":
			entries = append(entries, remote.FileEntry{
				Path: entry.GetPath(),
				Kind: remote.KindDir,
			})
		}
	}

	return entries, nil
}

// 📁 ListDirectory lists the immediate children of path
func (c *Client) ListDirectory(ctx context.Context, repo remote.Repository, path string) ([]remote.FileEntry, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Errorf("waiting for rate limiter: %w", err)
	}

	file, dir, _, err := c.api.GetContents(ctx, repo.Owner, repo.Name, path, contentOptions(repo.Branch))
	if err != nil {
		return nil, wrapError(err, "listing directory")
	}

	if file != nil {
		return nil, errors.Errorf("listing directory %q: path is a file", path)
	}

	entries := make([]remote.FileEntry, 0, len(dir))
	for _, item := range dir {
		kind := remote.KindFile
		if item.GetType() == "dir" {
			kind = remote.KindDir
		} else if item.GetType() != "file" {
			// symlinks and submodules have no fetchable content
			continue
		}
		entries = append(entries, remote.FileEntry{
			Path: item.GetPath(),
			Kind: kind,
			Size: int64(item.GetSize()),
		})
	}

	return entries, nil
}

// 📄 GetFileContent fetches and decodes a single file
func (c *Client) GetFileContent(ctx context.Context, repo remote.Repository, path string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", errors.Errorf("waiting for rate limiter: %w", err)
	}

	file, _, _, err := c.api.GetContents(ctx, repo.Owner, repo.Name, path, contentOptions(repo.Branch))
	if err != nil {
		return "", wrapError(err, "getting file content")
	}

	if file == nil {
		return "", errors.Errorf("getting file content %q: %w", path, remote.ErrNotAFile)
	}

	content, err := file.GetContent()
	if err != nil {
		return "", errors.Errorf("decoding content of %q: %w", path, err)
	}

	return content, nil
}

// ⏱️ RateLimitStatus reports the core API quota. The rate_limit endpoint
// does not count against the quota.
func (c *Client) RateLimitStatus(ctx context.Context) (remote.RateLimit, bool) {
	limits, _, err := c.api.RateLimits(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("rate limit status unavailable")
		return remote.RateLimit{}, false
	}

	core := limits.GetCore()
	if core == nil {
		return remote.RateLimit{}, false
	}

	return remote.RateLimit{Limit: core.Limit, Remaining: core.Remaining}, true
}

func refOrHead(branch string) string {
	if branch == "" {
		return headRef
	}
	return branch
}

func contentOptions(branch string) *github.RepositoryContentGetOptions {
	if branch == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: branch}
}

// 🔄 wrapError converts go-github errors into the remote error taxonomy
func wrapError(err error, operation string) error {
	var rateLimitErr *github.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return errors.Errorf("%s: %w", operation, &remote.RateLimitError{
			ResetAt:   rateLimitErr.Rate.Reset.Time,
			Remaining: rateLimitErr.Rate.Remaining,
			Limit:     rateLimitErr.Rate.Limit,
			Message:   rateLimitErr.Message,
		})
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		rle := &remote.RateLimitError{Message: abuseErr.Message}
		if retry := abuseErr.GetRetryAfter(); retry > 0 {
			rle.ResetAt = time.Now().Add(retry)
		}
		return errors.Errorf("%s: %w", operation, rle)
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		apiErr := &remote.APIError{
			StatusCode: ghErr.Response.StatusCode,
			Message:    ghErr.Message,
		}
		if ghErr.Response.Request != nil && ghErr.Response.Request.URL != nil {
			apiErr.URL = ghErr.Response.Request.URL.String()
		}
		return errors.Errorf("%s: %w", operation, apiErr)
	}

	return errors.Errorf("%s: %w", operation, err)
}
