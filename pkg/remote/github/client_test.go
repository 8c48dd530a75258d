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
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-github/v60/github"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/walteh/repofetch/pkg/remote"
)

// 🔧 mockAPI is a testify mock of the go-github subset
type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) GetTree(ctx context.Context, owner, repo, sha string, recursive bool) (*github.Tree, *github.Response, error) {
	args := m.Called(ctx, owner, repo, sha, recursive)
	tree, _ := args.Get(0).(*github.Tree)
	return tree, nil, args.Error(1)
}

func (m *mockAPI) GetContents(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentGetOptions) (*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error) {
	args := m.Called(ctx, owner, repo, path, opts)
	file, _ := args.Get(0).(*github.RepositoryContent)
	dir, _ := args.Get(1).([]*github.RepositoryContent)
	return file, dir, nil, args.Error(2)
}

func (m *mockAPI) RateLimits(ctx context.Context) (*github.RateLimits, *github.Response, error) {
	args := m.Called(ctx)
	limits, _ := args.Get(0).(*github.RateLimits)
	return limits, nil, args.Error(1)
}

func testContext() context.Context {
	return zerolog.New(os.Stderr).WithContext(context.Background())
}

func TestListFilesRecursively(t *testing.T) {
	ctx := testContext()

	t.Run("maps_blobs_and_trees", func(t *testing.T) {
		api := &mockAPI{}
		api.On("GetTree", mock.Anything, "walteh", "repofetch", "HEAD", true).Return(&github.Tree{
			Entries: []*github.TreeEntry{
				{Path: github.String("README.md"), Type: github.String("blob"), Size: github.Int(12)},
				{Path: github.String("pkg"), Type: github.String("tree")},
				{Path: github.String("pkg/a.go"), Type: github.String("blob"), Size: github.Int(40)},
				{Path: github.String("vendor/sub"), Type: github.String("commit")},
			},
		}, nil)

		c := NewWithAPI(api, 0)
		entries, err := c.ListFilesRecursively(ctx, remote.Repository{Owner: "walteh", Name: "repofetch"})
		require.NoError(t, err, "listing should succeed")

		assert.Equal(t, []remote.FileEntry{
			{Path: "README.md", Kind: remote.KindFile, Size: 12},
			{Path: "pkg", Kind: remote.KindDir},
			{Path: "pkg/a.go", Kind: remote.KindFile, Size: 40},
		}, entries, "entries should match")
		api.AssertExpectations(t)
	})

	t.Run("uses_branch_as_tree_ref", func(t *testing.T) {
		api := &mockAPI{}
		api.On("GetTree", mock.Anything, "walteh", "repofetch", "develop", true).Return(&github.Tree{}, nil)

		c := NewWithAPI(api, 0)
		_, err := c.ListFilesRecursively(ctx, remote.Repository{Owner: "walteh", Name: "repofetch", Branch: "develop"})
		require.NoError(t, err, "listing should succeed")
		api.AssertExpectations(t)
	})

	t.Run("rate_limit_is_classified", func(t *testing.T) {
		api := &mockAPI{}
		api.On("GetTree", mock.Anything, "walteh", "repofetch", "HEAD", true).Return(nil, &github.RateLimitError{
			Rate:    github.Rate{Limit: 60, Remaining: 0},
			Message: "API rate limit exceeded",
		})

		c := NewWithAPI(api, 0)
		_, err := c.ListFilesRecursively(ctx, remote.Repository{Owner: "walteh", Name: "repofetch"})
		require.Error(t, err, "listing should fail")
		assert.True(t, remote.IsRateLimited(err), "error should be classified as rate limited")

		var rle *remote.RateLimitError
		require.ErrorAs(t, err, &rle, "error should carry a RateLimitError")
		assert.Equal(t, 60, rle.Limit, "limit should be carried over")
	})

	t.Run("not_found_is_not_rate_limited", func(t *testing.T) {
		api := &mockAPI{}
		api.On("GetTree", mock.Anything, "walteh", "missing", "HEAD", true).Return(nil, &github.ErrorResponse{
			Response: &http.Response{StatusCode: http.StatusNotFound},
			Message:  "Not Found",
		})

		c := NewWithAPI(api, 0)
		_, err := c.ListFilesRecursively(ctx, remote.Repository{Owner: "walteh", Name: "missing"})
		require.Error(t, err, "listing should fail")
		assert.False(t, remote.IsRateLimited(err), "404 should not be rate limited")
		assert.True(t, remote.IsNotFound(err), "404 should be not found")
	})
}

func TestListDirectory(t *testing.T) {
	ctx := testContext()
	api := &mockAPI{}
	api.On("GetContents", mock.Anything, "walteh", "repofetch", "", (*github.RepositoryContentGetOptions)(nil)).Return(nil, []*github.RepositoryContent{
		{Path: github.String("go.mod"), Type: github.String("file"), Size: github.Int(100)},
		{Path: github.String("pkg"), Type: github.String("dir")},
		{Path: github.String("link"), Type: github.String("symlink")},
	}, nil)

	c := NewWithAPI(api, 0)
	entries, err := c.ListDirectory(ctx, remote.Repository{Owner: "walteh", Name: "repofetch"}, "")
	require.NoError(t, err, "listing should succeed")
	assert.Equal(t, []remote.FileEntry{
		{Path: "go.mod", Kind: remote.KindFile, Size: 100},
		{Path: "pkg", Kind: remote.KindDir},
	}, entries, "symlinks should be dropped")
}

func TestGetFileContent(t *testing.T) {
	ctx := testContext()

	t.Run("decodes_base64", func(t *testing.T) {
		api := &mockAPI{}
		api.On("GetContents", mock.Anything, "walteh", "repofetch", "README.md", &github.RepositoryContentGetOptions{Ref: "main"}).Return(&github.RepositoryContent{
			Type:     github.String("file"),
			Encoding: github.String("base64"),
			Content:  github.String(base64.StdEncoding.EncodeToString([]byte("hello"))),
		}, nil, nil)

		c := NewWithAPI(api, 0)
		content, err := c.GetFileContent(ctx, remote.Repository{Owner: "walteh", Name: "repofetch", Branch: "main"}, "README.md")
		require.NoError(t, err, "fetch should succeed")
		assert.Equal(t, "hello", content, "content should be decoded")
	})

	t.Run("directory_is_error", func(t *testing.T) {
		api := &mockAPI{}
		api.On("GetContents", mock.Anything, "walteh", "repofetch", "pkg", (*github.RepositoryContentGetOptions)(nil)).Return(nil, []*github.RepositoryContent{}, nil)

		c := NewWithAPI(api, 0)
		_, err := c.GetFileContent(ctx, remote.Repository{Owner: "walteh", Name: "repofetch"}, "pkg")
		require.ErrorIs(t, err, remote.ErrNotAFile, "directory should not be fetchable")
	})
}

func TestRateLimitStatus(t *testing.T) {
	ctx := testContext()

	t.Run("reports_core_quota", func(t *testing.T) {
		api := &mockAPI{}
		api.On("RateLimits", mock.Anything).Return(&github.RateLimits{Core: &github.Rate{Limit: 5000, Remaining: 12}}, nil)

		c := NewWithAPI(api, 0)
		status, ok := c.RateLimitStatus(ctx)
		require.True(t, ok, "status should be available")
		assert.Equal(t, remote.RateLimit{Limit: 5000, Remaining: 12}, status, "status should match")
	})

	t.Run("absent_on_error", func(t *testing.T) {
		api := &mockAPI{}
		api.On("RateLimits", mock.Anything).Return(nil, fmt.Errorf("boom"))

		c := NewWithAPI(api, 0)
		_, ok := c.RateLimitStatus(ctx)
		assert.False(t, ok, "status should be absent")
	})
}

func TestClientAgainstServer(t *testing.T) {
	reset := strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10)

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/walteh/repofetch/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("recursive"), "tree should be requested recursively")
		fmt.Fprint(w, `{"sha":"abc","truncated":false,"tree":[
			{"path":"README.md","type":"blob","size":5},
			{"path":"docs","type":"tree"}
		]}`)
	})
	mux.HandleFunc("/repos/walteh/repofetch/contents/README.md", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "main", r.URL.Query().Get("ref"), "ref should be forwarded")
		fmt.Fprintf(w, `{"type":"file","path":"README.md","encoding":"base64","content":%q}`,
			base64.StdEncoding.EncodeToString([]byte("hello")))
	})
	mux.HandleFunc("/repos/walteh/limited/git/trees/HEAD", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "60")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", reset)
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message":"API rate limit exceeded for 127.0.0.1."}`)
	})
	mux.HandleFunc("/rate_limit", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"resources":{"core":{"limit":60,"remaining":7,"reset":%s}}}`, reset)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	ctx := testContext()
	c, err := New(ctx, Options{BaseURL: srv.URL})
	require.NoError(t, err, "creating client should succeed")

	repo := remote.Repository{Owner: "walteh", Name: "repofetch", Branch: "main"}

	entries, err := c.ListFilesRecursively(ctx, repo)
	require.NoError(t, err, "listing should succeed")
	assert.Equal(t, []remote.FileEntry{
		{Path: "README.md", Kind: remote.KindFile, Size: 5},
		{Path: "docs", Kind: remote.KindDir},
	}, entries, "entries should match")

	content, err := c.GetFileContent(ctx, repo, "README.md")
	require.NoError(t, err, "fetch should succeed")
	assert.Equal(t, "hello", content, "content should match")

	status, ok := c.RateLimitStatus(ctx)
	require.True(t, ok, "status should be available")
	assert.Equal(t, 7, status.Remaining, "remaining should match")

	_, err = c.ListFilesRecursively(ctx, remote.Repository{Owner: "walteh", Name: "limited"})
	require.Error(t, err, "limited listing should fail")
	assert.True(t, remote.IsRateLimited(err), "403 with exhausted quota should be rate limited")
}
