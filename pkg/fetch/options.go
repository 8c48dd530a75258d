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

package fetch

import (
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/repofetch/pkg/cache"
	"github.com/walteh/repofetch/pkg/remote"
)

const (
	DefaultBatchSize     = 20
	DefaultMaxConcurrent = 5
)

// ErrInvalidOptions is returned before any network activity when Options
// cannot be used
var ErrInvalidOptions = errors.New("invalid fetch options")

// ⚙️ Options tunes a single download
type Options struct {
	// BatchSize is how many files make up one batch
	BatchSize int
	// MaxConcurrent bounds in-flight fetches inside a batch
	MaxConcurrent int
	// EnableCaching reads and populates the cache
	EnableCaching bool
	// CacheTimeout is applied to the cache as its ttl
	CacheTimeout time.Duration

	// Include keeps only paths matching one of these doublestar patterns
	Include []string
	// Exclude drops paths matching any of these doublestar patterns
	Exclude []string
	// MaxFileSize skips files whose listed size is larger; 0 disables
	MaxFileSize int64
}

// DefaultOptions returns batches of 20, 5 concurrent fetches and a five
// minute cache
func DefaultOptions() Options {
	return Options{
		BatchSize:     DefaultBatchSize,
		MaxConcurrent: DefaultMaxConcurrent,
		EnableCaching: true,
		CacheTimeout:  cache.DefaultTTL,
	}
}

// ✅ Validate reports configuration errors wrapped in ErrInvalidOptions
func (o Options) Validate() error {
	if o.BatchSize <= 0 {
		return errors.Errorf("%w: batch size must be positive, got %d", ErrInvalidOptions, o.BatchSize)
	}
	if o.MaxConcurrent <= 0 {
		return errors.Errorf("%w: max concurrent must be positive, got %d", ErrInvalidOptions, o.MaxConcurrent)
	}
	if o.EnableCaching && o.CacheTimeout <= 0 {
		return errors.Errorf("%w: cache timeout must be positive when caching, got %s", ErrInvalidOptions, o.CacheTimeout)
	}
	if o.MaxFileSize < 0 {
		return errors.Errorf("%w: max file size must not be negative, got %d", ErrInvalidOptions, o.MaxFileSize)
	}
	for _, p := range append(append([]string{}, o.Include...), o.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return errors.Errorf("%w: bad glob pattern %q", ErrInvalidOptions, p)
		}
	}
	return nil
}

// filter drops directories and splits files into kept and skipped, keeping
// listing order
func (o Options) filter(entries []remote.FileEntry) (kept []remote.FileEntry, skipped []string) {
	kept = make([]remote.FileEntry, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if !e.IsFile() {
			continue
		}
		// a listing may repeat a path; the first entry wins
		if _, dup := seen[e.Path]; dup {
			continue
		}
		seen[e.Path] = struct{}{}
		if o.skip(e) {
			skipped = append(skipped, e.Path)
			continue
		}
		kept = append(kept, e)
	}
	return kept, skipped
}

func (o Options) skip(e remote.FileEntry) bool {
	if o.MaxFileSize > 0 && e.Size > o.MaxFileSize {
		return true
	}
	if len(o.Include) > 0 && !matchAny(o.Include, e.Path) {
		return true
	}
	return matchAny(o.Exclude, e.Path)
}

func matchAny(patterns []string, path string) bool {
	for _, p := range patterns {
		// patterns are checked in Validate
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}
