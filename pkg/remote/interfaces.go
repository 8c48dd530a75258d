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

// Package remote defines the narrow interface the fetch core uses to talk to
// a repository hosting API.
package remote

import (
	"context"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// 📂 Kind is the type of a tree entry
type Kind string

const (
	KindFile Kind = "file"
	KindDir  Kind = "dir"
)

// 📄 FileEntry is a single entry of a repository listing
type FileEntry struct {
	Path string
	Kind Kind
	Size int64
}

// IsFile reports whether the entry is a regular file
func (e FileEntry) IsFile() bool {
	return e.Kind == KindFile
}

// 📦 Repository identifies a repository and the branch to read from.
// An empty Branch means the repository's default branch.
type Repository struct {
	Owner  string
	Name   string
	Branch string
}

// String returns owner/name, with @branch when one is set
func (r Repository) String() string {
	if r.Branch == "" {
		return r.Owner + "/" + r.Name
	}
	return r.Owner + "/" + r.Name + "@" + r.Branch
}

// ParseRepository parses "owner/name" or "owner/name@branch"
func ParseRepository(s string) (Repository, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Repository{}, errors.Errorf("empty repository name")
	}

	var branch string
	if idx := strings.LastIndex(s, "@"); idx >= 0 {
		branch = strings.TrimSpace(s[idx+1:])
		s = s[:idx]
		if branch == "" {
			return Repository{}, errors.Errorf("empty branch in repository name")
		}
	}

	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "github.com/")

	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return Repository{}, errors.Errorf("invalid repository name: %s", s)
	}

	owner := strings.TrimSpace(parts[0])
	name := strings.TrimSpace(parts[1])
	if owner == "" || name == "" {
		return Repository{}, errors.Errorf("invalid repository name: %s", s)
	}

	return Repository{Owner: owner, Name: name, Branch: branch}, nil
}

// ⏱️ RateLimit is a snapshot of the API quota
type RateLimit struct {
	Limit     int
	Remaining int
}

// 🔌 Client is the collaborator the fetch core consumes. Implementations
// must return errors that IsRateLimited can classify.
type Client interface {
	// ListFilesRecursively returns every entry in the repository tree
	ListFilesRecursively(ctx context.Context, repo Repository) ([]FileEntry, error)
	// ListDirectory returns the immediate children of path ("" is the root)
	ListDirectory(ctx context.Context, repo Repository, path string) ([]FileEntry, error)
	// GetFileContent returns the decoded content of a single file
	GetFileContent(ctx context.Context, repo Repository, path string) (string, error)
	// RateLimitStatus returns the current quota, or false when unknown
	RateLimitStatus(ctx context.Context) (RateLimit, bool)
}
