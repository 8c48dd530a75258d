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

// Package testutils holds test doubles for remote.Client.
package testutils

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/stretchr/testify/mock"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/repofetch/pkg/remote"
)

var (
	_ remote.Client = (*MockClient)(nil)
	_ remote.Client = (*FakeClient)(nil)
)

// 🎭 MockClient is a testify mock of remote.Client
type MockClient struct {
	mock.Mock
}

func (m *MockClient) ListFilesRecursively(ctx context.Context, repo remote.Repository) ([]remote.FileEntry, error) {
	args := m.Called(ctx, repo)
	files, _ := args.Get(0).([]remote.FileEntry)
	return files, args.Error(1)
}

func (m *MockClient) ListDirectory(ctx context.Context, repo remote.Repository, path string) ([]remote.FileEntry, error) {
	args := m.Called(ctx, repo, path)
	files, _ := args.Get(0).([]remote.FileEntry)
	return files, args.Error(1)
}

func (m *MockClient) GetFileContent(ctx context.Context, repo remote.Repository, path string) (string, error) {
	args := m.Called(ctx, repo, path)
	return args.String(0), args.Error(1)
}

func (m *MockClient) RateLimitStatus(ctx context.Context) (remote.RateLimit, bool) {
	args := m.Called(ctx)
	rl, _ := args.Get(0).(remote.RateLimit)
	return rl, args.Bool(1)
}

// 🧪 FakeClient serves a fixed in-memory repository. Errors can be injected
// per path, and every content fetch is counted.
type FakeClient struct {
	mu sync.Mutex

	files    map[string]string
	fileErrs map[string]error

	ListErr   error
	DirErr    error
	RateLimit *remote.RateLimit

	// OnGet runs before each content fetch, outside the lock
	OnGet func(ctx context.Context, path string)

	gets map[string]int
}

// 🏭 NewFakeClient creates a fake serving files (path -> content)
func NewFakeClient(files map[string]string) *FakeClient {
	fc := &FakeClient{
		files:    make(map[string]string, len(files)),
		fileErrs: make(map[string]error),
		gets:     make(map[string]int),
	}
	for k, v := range files {
		fc.files[k] = v
	}
	return fc
}

// FailFile makes GetFileContent(path) return err; the path is still listed
func (fc *FakeClient) FailFile(path string, err error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if _, ok := fc.files[path]; !ok {
		fc.files[path] = ""
	}
	fc.fileErrs[path] = err
}

// Gets returns how many times path was fetched
func (fc *FakeClient) Gets(path string) int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.gets[path]
}

// TotalGets returns the number of content fetches across all paths
func (fc *FakeClient) TotalGets() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	n := 0
	for _, c := range fc.gets {
		n += c
	}
	return n
}

func (fc *FakeClient) ListFilesRecursively(ctx context.Context, repo remote.Repository) ([]remote.FileEntry, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.ListErr != nil {
		return nil, fc.ListErr
	}
	return fc.entries(), nil
}

func (fc *FakeClient) ListDirectory(ctx context.Context, repo remote.Repository, path string) ([]remote.FileEntry, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.DirErr != nil {
		return nil, fc.DirErr
	}
	return fc.entries(), nil
}

func (fc *FakeClient) GetFileContent(ctx context.Context, repo remote.Repository, path string) (string, error) {
	if fc.OnGet != nil {
		fc.OnGet(ctx, path)
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.gets[path]++

	if err := fc.fileErrs[path]; err != nil {
		return "", err
	}
	content, ok := fc.files[path]
	if !ok {
		return "", errors.Errorf("%s: %w", path, remote.ErrNotFound)
	}
	return content, nil
}

func (fc *FakeClient) RateLimitStatus(ctx context.Context) (remote.RateLimit, bool) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.RateLimit == nil {
		return remote.RateLimit{}, false
	}
	return *fc.RateLimit, true
}

// entries lists the files sorted by path; callers hold the lock
func (fc *FakeClient) entries() []remote.FileEntry {
	paths := make([]string, 0, len(fc.files))
	for p := range fc.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	out := make([]remote.FileEntry, len(paths))
	for i, p := range paths {
		out[i] = remote.FileEntry{Path: p, Kind: remote.KindFile, Size: int64(len(fc.files[p]))}
	}
	return out
}

// Files builds n files named file-000.txt... with content "content-<i>"
func Files(n int) map[string]string {
	out := make(map[string]string, n)
	for i := range n {
		out[fmt.Sprintf("file-%03d.txt", i)] = fmt.Sprintf("content-%d", i)
	}
	return out
}
