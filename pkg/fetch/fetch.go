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
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/repofetch/pkg/cache"
	"github.com/walteh/repofetch/pkg/discovery"
	"github.com/walteh/repofetch/pkg/pool"
	"github.com/walteh/repofetch/pkg/progress"
	"github.com/walteh/repofetch/pkg/remote"
)

// 🔧 Config wires a Fetcher to its collaborators
type Config struct {
	// Client talks to the remote API; required
	Client remote.Client
	// Cache defaults to an unbounded in-memory cache
	Cache cache.Store
	// Discovery tunes retries of the file listing
	Discovery discovery.Options
	// Now defaults to time.Now
	Now func() time.Time
}

// 🚚 Fetcher downloads whole repositories. One Fetcher may serve many
// downloads; they share its cache.
type Fetcher struct {
	client    remote.Client
	cache     cache.Store
	discovery *discovery.Controller
	now       func() time.Time
}

// 📊 Stats summarizes one download
type Stats struct {
	Discovered int
	Downloaded int
	FromCache  int
	Failed     int
	Skipped    int
	Batches    int
	Source     discovery.Source
	Attempts   int
	Elapsed    time.Duration
}

// 📦 Result holds the downloaded files. Contents has exactly the keys in
// Paths; files that could not be fetched are listed only in Failed.
type Result struct {
	Paths    []string
	Contents map[string]string
	Failed   []string
	Skipped  []string
	// Cached lists the paths in Paths that were served from the cache
	Cached []string
	Stats  Stats
}

// fileResult is the tagged outcome of one fetch task
type fileResult struct {
	Index     int
	Path      string
	Content   string
	FromCache bool
	Failed    bool
	Err       error
}

// 🏭 New creates a Fetcher
func New(cfg Config) (*Fetcher, error) {
	if cfg.Client == nil {
		return nil, errors.New("fetch: client is required")
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewMemory()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Fetcher{
		client:    cfg.Client,
		cache:     cfg.Cache,
		discovery: discovery.New(cfg.Client, cfg.Discovery),
		now:       cfg.Now,
	}, nil
}

// CacheKey is the cache key of a file
func CacheKey(owner, repo, path string) string {
	return owner + "/" + repo + "/" + path
}

// 📥 Download discovers every file of owner/repo at branch (empty for the
// default branch) and fetches them in sequential batches. Per-file failures
// end up in Result.Failed; discovery failures, cancellation and invalid
// options are returned as errors.
func (f *Fetcher) Download(ctx context.Context, owner, repo, branch string, opts Options, sink progress.Sink) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if owner == "" || repo == "" {
		return nil, errors.Errorf("%w: owner and repository are required", ErrInvalidOptions)
	}

	r := remote.Repository{Owner: owner, Name: repo, Branch: branch}
	logger := zerolog.Ctx(ctx).With().Str("run_id", uuid.NewString()).Str("repository", r.String()).Logger()
	ctx = logger.WithContext(ctx)

	start := f.now()
	emit := progress.NewEmitter(sink)
	elapsed := func() time.Duration { return f.now().Sub(start) }

	emit.Emit(progress.Event{Stage: progress.StageAnalyzing, Percent: 0, Message: "analyzing " + r.String()})
	if opts.EnableCaching {
		f.cache.SetTTL(opts.CacheTimeout)
	}
	emit.Emit(progress.Event{Stage: progress.StageAnalyzing, Percent: 100, Elapsed: elapsed()})

	found, err := f.discovery.Discover(ctx, r, emit)
	if err != nil {
		return nil, errors.Errorf("discovering files: %w", err)
	}

	files, skipped := opts.filter(found.Files)
	batches := split(files, opts.BatchSize)

	logger.Info().
		Int("files", len(files)).
		Int("skipped", len(skipped)).
		Int("batches", len(batches)).
		Str("source", string(found.Source)).
		Msg("starting download")

	res := &Result{
		Paths:    make([]string, 0, len(files)),
		Contents: make(map[string]string, len(files)),
		Skipped:  skipped,
		Stats: Stats{
			Discovered: len(found.Files),
			Skipped:    len(skipped),
			Batches:    len(batches),
			Source:     found.Source,
			Attempts:   found.Attempts,
		},
	}

	attempted := 0
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return nil, errors.Errorf("downloading batch %d/%d: %w", i+1, len(batches), err)
		}

		for _, fr := range f.runBatch(ctx, r, batch, attempted, opts) {
			if fr.Failed {
				res.Failed = append(res.Failed, fr.Path)
				continue
			}
			res.Paths = append(res.Paths, fr.Path)
			res.Contents[fr.Path] = fr.Content
			if fr.FromCache {
				res.Cached = append(res.Cached, fr.Path)
				res.Stats.FromCache++
			}
		}
		attempted += len(batch)

		emit.Emit(progress.Event{
			Stage:          progress.StageDownloading,
			Percent:        progress.Percent(attempted, len(files)),
			Message:        fmt.Sprintf("batch %d/%d", i+1, len(batches)),
			FilesProcessed: len(res.Paths),
			TotalFiles:     len(files),
			BatchIndex:     i + 1,
			TotalBatches:   len(batches),
			Elapsed:        elapsed(),
		})
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Errorf("downloading files: %w", err)
	}

	res.Stats.Downloaded = len(res.Paths)
	res.Stats.Failed = len(res.Failed)
	res.Stats.Elapsed = elapsed()

	emit.Emit(progress.Event{
		Stage:          progress.StageComplete,
		Percent:        100,
		Message:        fmt.Sprintf("downloaded %d files, %d failed", res.Stats.Downloaded, res.Stats.Failed),
		FilesProcessed: res.Stats.Downloaded,
		TotalFiles:     len(files),
		TotalBatches:   len(batches),
		Elapsed:        res.Stats.Elapsed,
	})

	logger.Info().
		Int("downloaded", res.Stats.Downloaded).
		Int("from_cache", res.Stats.FromCache).
		Int("failed", res.Stats.Failed).
		Dur("elapsed", res.Stats.Elapsed).
		Msg("download complete")

	return res, nil
}

func (f *Fetcher) runBatch(ctx context.Context, r remote.Repository, batch []remote.FileEntry, offset int, opts Options) []fileResult {
	tasks := make([]pool.Task[fileResult], len(batch))
	for i, e := range batch {
		tasks[i] = func(ctx context.Context) fileResult {
			return f.fetchOne(ctx, r, offset+i, e.Path, opts)
		}
	}

	return pool.RunWithRecover(ctx, tasks, opts.MaxConcurrent, func(i int, recovered any) fileResult {
		zerolog.Ctx(ctx).Error().Str("path", batch[i].Path).Interface("panic", recovered).Msg("fetch task panicked")
		return fileResult{
			Index:  offset + i,
			Path:   batch[i].Path,
			Failed: true,
			Err:    errors.Errorf("fetch task panicked: %v", recovered),
		}
	})
}

func (f *Fetcher) fetchOne(ctx context.Context, r remote.Repository, index int, path string, opts Options) fileResult {
	key := CacheKey(r.Owner, r.Name, path)

	if opts.EnableCaching {
		if content, ok := f.cache.Get(ctx, key); ok {
			return fileResult{Index: index, Path: path, Content: content, FromCache: true}
		}
	}

	content, err := f.client.GetFileContent(ctx, r, path)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("path", path).Msg("file fetch failed")
		return fileResult{Index: index, Path: path, Failed: true, Err: err}
	}

	if opts.EnableCaching {
		if err := f.cache.Put(ctx, key, content); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("path", path).Msg("caching file failed")
		}
	}

	return fileResult{Index: index, Path: path, Content: content}
}

// 🧹 ClearCache drops every cached file
func (f *Fetcher) ClearCache(ctx context.Context) error {
	if err := f.cache.Clear(ctx); err != nil {
		return errors.Errorf("clearing cache: %w", err)
	}
	return nil
}

// CacheStats reports the cache size
func (f *Fetcher) CacheStats(ctx context.Context) (cache.Stats, error) {
	stats, err := f.cache.Stats(ctx)
	if err != nil {
		return cache.Stats{}, errors.Errorf("reading cache stats: %w", err)
	}
	return stats, nil
}

// split cuts entries into consecutive batches of at most size
func split(entries []remote.FileEntry, size int) [][]remote.FileEntry {
	if len(entries) == 0 {
		return nil
	}
	out := make([][]remote.FileEntry, 0, (len(entries)+size-1)/size)
	for start := 0; start < len(entries); start += size {
		end := min(start+size, len(entries))
		out = append(out, entries[start:end])
	}
	return out
}
