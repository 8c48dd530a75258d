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

// Package discovery lists the files of a repository, retrying rate limited
// listings with exponential backoff and degrading to a shallow listing or a
// fixed set of conventional names when the full listing is unavailable.
package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/repofetch/pkg/progress"
	"github.com/walteh/repofetch/pkg/remote"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second

	// MaxAttemptsLimit is the most attempts a config may ask for
	MaxAttemptsLimit = 10
	// MaxDelay caps a single backoff wait
	MaxDelay = 10 * time.Minute
)

// DefaultFiles is used when neither the recursive nor the root listing works
var DefaultFiles = []string{
	"README.md",
	"LICENSE",
	"package.json",
	"go.mod",
	"go.sum",
	"Cargo.toml",
	"pyproject.toml",
	"requirements.txt",
	"setup.py",
	"Makefile",
	"Dockerfile",
	".gitignore",
}

// 📍 Source says where a discovered list came from
type Source string

const (
	SourcePrimary  Source = "primary"
	SourceFallback Source = "fallback"
	SourceDefaults Source = "defaults"
)

// 📦 Result is the outcome of discovery
type Result struct {
	Files    []remote.FileEntry
	Source   Source
	Attempts int
}

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// 🎛️ Options configures a Controller
type Options struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Sleep       SleepFunc
}

// DefaultOptions returns 3 attempts with a one second base delay
func DefaultOptions() Options {
	return Options{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		Sleep:       SleepContext,
	}
}

// 🔁 Controller runs discovery for one repository at a time
type Controller struct {
	client remote.Client
	opts   Options
}

// 🏭 New creates a controller; zero option fields take their defaults
func New(client remote.Client, opts Options) *Controller {
	def := DefaultOptions()
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = def.BaseDelay
	}
	if opts.Sleep == nil {
		opts.Sleep = def.Sleep
	}
	return &Controller{client: client, opts: opts}
}

// Delay returns the wait before attempt n+1, base * 2^(n-1), saturating at
// MaxDelay
func (c *Controller) Delay(n int) time.Duration {
	d := c.opts.BaseDelay
	for i := 1; i < n; i++ {
		if d >= MaxDelay/2 {
			return MaxDelay
		}
		d *= 2
	}
	return min(d, MaxDelay)
}

type state int

const (
	stateAttempting state = iota
	stateFallback
	stateDone
	stateFailed
)

// 🔍 Discover lists repo's files. Rate limited failures are retried and then
// handed to the fallback path; any other listing failure is returned.
func (c *Controller) Discover(ctx context.Context, repo remote.Repository, emit *progress.Emitter) (*Result, error) {
	// callers put the repository on the logger
	logger := zerolog.Ctx(ctx)
	if emit == nil {
		emit = progress.NewEmitter(nil)
	}

	var (
		st      = stateAttempting
		attempt = 0
		res     *Result
		failure error
	)

	for {
		switch st {
		case stateAttempting:
			attempt++
			if err := ctx.Err(); err != nil {
				return nil, errors.Errorf("discovering files: %w", err)
			}

			emit.Emit(progress.Event{
				Stage:   progress.StageDiscovering,
				Percent: (attempt - 1) * 100 / c.opts.MaxAttempts,
				Message: fmt.Sprintf("listing files (attempt %d/%d)", attempt, c.opts.MaxAttempts),
			})

			files, err := c.list(ctx, repo, attempt)
			if err == nil {
				res = &Result{Files: files, Source: SourcePrimary, Attempts: attempt}
				st = stateDone
				continue
			}

			if !remote.IsRateLimited(err) {
				failure = errors.Errorf("listing files of %s: %w", repo, err)
				st = stateFailed
				continue
			}

			if attempt >= c.opts.MaxAttempts {
				logger.Warn().Err(err).Int("attempts", attempt).Msg("rate limited on every attempt, falling back to root listing")
				st = stateFallback
				continue
			}

			delay := c.Delay(attempt)
			logger.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("rate limited, backing off")
			if err := c.opts.Sleep(ctx, delay); err != nil {
				return nil, errors.Errorf("waiting to retry discovery: %w", err)
			}

		case stateFallback:
			if err := ctx.Err(); err != nil {
				return nil, errors.Errorf("discovering files: %w", err)
			}
			res = c.fallback(ctx, repo, attempt)
			st = stateDone

		case stateDone:
			emit.Emit(progress.Event{
				Stage:   progress.StageDiscovering,
				Percent: 100,
				Message: fmt.Sprintf("found %d files (%s)", len(res.Files), res.Source),
			})
			logger.Debug().Int("files", len(res.Files)).Str("source", string(res.Source)).Int("attempts", res.Attempts).Msg("discovery finished")
			return res, nil

		case stateFailed:
			return nil, failure
		}
	}
}

// list runs one recursive listing. An empty first listing while the quota is
// exhausted is reported as a rate limit, since some APIs answer that way
// instead of erroring.
func (c *Controller) list(ctx context.Context, repo remote.Repository, attempt int) ([]remote.FileEntry, error) {
	files, err := c.client.ListFilesRecursively(ctx, repo)
	if err != nil {
		return nil, err
	}

	if attempt == 1 && len(files) == 0 {
		if rl, ok := c.client.RateLimitStatus(ctx); ok && rl.Remaining == 0 {
			return nil, &remote.RateLimitError{
				Remaining: 0,
				Limit:     rl.Limit,
				Message:   "empty listing with exhausted rate limit",
			}
		}
	}

	return files, nil
}

func (c *Controller) fallback(ctx context.Context, repo remote.Repository, attempts int) *Result {
	logger := zerolog.Ctx(ctx)

	entries, err := c.client.ListDirectory(ctx, repo, "")
	if err == nil {
		files := make([]remote.FileEntry, 0, len(entries))
		for _, e := range entries {
			if e.IsFile() {
				files = append(files, e)
			}
		}
		return &Result{Files: files, Source: SourceFallback, Attempts: attempts}
	}

	logger.Warn().Err(err).Msg("root listing failed, using default file names")

	files := make([]remote.FileEntry, len(DefaultFiles))
	for i, name := range DefaultFiles {
		files[i] = remote.FileEntry{Path: name, Kind: remote.KindFile}
	}
	return &Result{Files: files, Source: SourceDefaults, Attempts: attempts}
}

// SleepContext waits for d, returning early with ctx's error on cancellation
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
