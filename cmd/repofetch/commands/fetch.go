package commands

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/repofetch/cmd/repofetch/opts"
	"github.com/walteh/repofetch/pkg/fetch"
	"github.com/walteh/repofetch/pkg/log"
	"github.com/walteh/repofetch/pkg/progress"
	"github.com/walteh/repofetch/pkg/remote"
	"github.com/walteh/repofetch/pkg/status"
)

type fetchFlags struct {
	dest          string
	batchSize     int
	maxConcurrent int
	noCache       bool
	cacheTimeout  time.Duration
	include       []string
	exclude       []string
	maxFileSize   int64
	quiet         bool
}

func NewFetchCmd(ro *opts.RootOpts) *cobra.Command {
	flags := &fetchFlags{}

	cmd := &cobra.Command{
		Use:   "fetch [owner/repo[@branch]]",
		Short: "Download every file of a repository",
		Long: `Fetch lists the files of a repository and downloads them in batches.
It will:
1. List the full tree, retrying rate limits with backoff
2. Fall back to the root directory or well known names if listing keeps failing
3. Download files in batches, serving repeats from the cache
4. Write them under --dest, or list them when no destination is set

The repository may also come from the config file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := zerolog.Ctx(cmd.Context()).With().Str("command", "fetch").Logger().WithContext(cmd.Context())

			spec := ro.Config.Repository
			if len(args) == 1 {
				spec = args[0]
			}
			if spec == "" {
				return errors.New("no repository given; pass owner/repo or set repository in the config")
			}
			repo, err := remote.ParseRepository(spec)
			if err != nil {
				return errors.Errorf("parsing repository: %w", err)
			}

			fetchOpts, err := ro.Config.FetchOptions()
			if err != nil {
				return errors.Errorf("reading fetch options: %w", err)
			}
			applyFetchFlags(cmd, flags, &fetchOpts)

			dest := ro.Config.Destination
			if cmd.Flags().Changed("dest") {
				dest = flags.dest
			}

			console := log.New(cmd.OutOrStdout(), *zerolog.Ctx(ctx))
			ctx = log.NewContext(ctx, console)

			sink := progress.NewLogSink(*zerolog.Ctx(ctx))
			if !flags.quiet {
				sink = progress.Tee(progress.NewConsoleSink(cmd.ErrOrStderr()), sink)
			}

			console.StartRepository(ctx, log.RepoLine{Name: repo.Owner + "/" + repo.Name, Ref: repo.Branch, Destination: dest})

			res, err := ro.Fetcher.Download(ctx, repo.Owner, repo.Name, repo.Branch, fetchOpts, sink)
			if err != nil {
				return errors.Errorf("fetching %s: %w", repo, err)
			}

			summary := log.Summary{
				Downloaded: res.Stats.Downloaded,
				FromCache:  res.Stats.FromCache,
				Failed:     res.Stats.Failed,
				Skipped:    res.Stats.Skipped,
				Batches:    res.Stats.Batches,
				Source:     string(res.Stats.Source),
				Elapsed:    res.Stats.Elapsed,
			}

			written := map[string]status.FileInfo{}
			if dest != "" {
				abs, err := filepath.Abs(dest)
				if err != nil {
					return errors.Errorf("resolving destination: %w", err)
				}
				sum, err := status.New(abs).WriteAll(ctx, res.Paths, res.Contents)
				if err != nil {
					return errors.Errorf("writing files: %w", err)
				}
				for _, f := range sum.Files {
					written[f.Path] = f
				}
				summary.New, summary.Modified, summary.Unchanged = sum.New, sum.Modified, sum.Unchanged
				if sum.Failed > 0 {
					console.Warning(fmt.Sprintf("%d files could not be written", sum.Failed))
				}
			}

			cached := make(map[string]bool, len(res.Cached))
			for _, p := range res.Cached {
				cached[p] = true
			}
			for _, p := range res.Paths {
				line := log.FileLine{Path: p, Source: log.SourceRemote, Size: int64(len(res.Contents[p]))}
				if cached[p] {
					line.Source = log.SourceCache
				}
				if info, ok := written[p]; ok {
					line.Status = info.Status.String()
				}
				console.LogFile(ctx, line)
			}
			for _, p := range res.Failed {
				console.LogFile(ctx, log.FileLine{Path: p, Source: log.SourceFailed})
			}
			for _, p := range res.Skipped {
				console.LogFile(ctx, log.FileLine{Path: p, Source: log.SourceSkipped})
			}

			console.EndRepository(ctx, summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.dest, "dest", "", "directory to write files into (default: list only)")
	cmd.Flags().IntVar(&flags.batchSize, "batch-size", fetch.DefaultBatchSize, "files per batch")
	cmd.Flags().IntVar(&flags.maxConcurrent, "max-concurrent", fetch.DefaultMaxConcurrent, "concurrent downloads within a batch")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "neither read nor populate the cache")
	cmd.Flags().DurationVar(&flags.cacheTimeout, "cache-timeout", 5*time.Minute, "how long cached files are served")
	cmd.Flags().StringArrayVar(&flags.include, "include", nil, "only fetch paths matching this glob (repeatable)")
	cmd.Flags().StringArrayVar(&flags.exclude, "exclude", nil, "skip paths matching this glob (repeatable)")
	cmd.Flags().Int64Var(&flags.maxFileSize, "max-file-size", 0, "skip files larger than this many bytes (0: no limit)")
	cmd.Flags().BoolVarP(&flags.quiet, "quiet", "q", false, "hide progress output")

	return cmd
}

// applyFetchFlags overrides config values with flags the user actually set
func applyFetchFlags(cmd *cobra.Command, flags *fetchFlags, o *fetch.Options) {
	if cmd.Flags().Changed("batch-size") {
		o.BatchSize = flags.batchSize
	}
	if cmd.Flags().Changed("max-concurrent") {
		o.MaxConcurrent = flags.maxConcurrent
	}
	if cmd.Flags().Changed("no-cache") {
		o.EnableCaching = !flags.noCache
	}
	if cmd.Flags().Changed("cache-timeout") {
		o.CacheTimeout = flags.cacheTimeout
	}
	if cmd.Flags().Changed("include") {
		o.Include = flags.include
	}
	if cmd.Flags().Changed("exclude") {
		o.Exclude = flags.exclude
	}
	if cmd.Flags().Changed("max-file-size") {
		o.MaxFileSize = flags.maxFileSize
	}
}
