package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/repofetch/cmd/repofetch/opts"
	"github.com/walteh/repofetch/pkg/config"
)

func NewCacheCmd(ro *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the file cache",
		Long: `Cache operates on the configured cache backend. The memory backend only
lives for one process, so these commands are mostly useful with redis.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Show how many files are cached",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				stats, err := ro.Fetcher.CacheStats(cmd.Context())
				if err != nil {
					return errors.Errorf("reading cache stats: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "backend:  %s\nentries:  %d\nttl:      %s\n",
					ro.Config.Cache.Backend, stats.EntryCount, ro.Cache.TTL())
				if ro.Config.Cache.Backend == config.BackendMemory {
					fmt.Fprintln(cmd.OutOrStdout(), "note:     the memory backend is empty at the start of every run")
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every cached file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := ro.Fetcher.ClearCache(cmd.Context()); err != nil {
					return errors.Errorf("clearing cache: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✅ cleared %s cache\n", ro.Config.Cache.Backend)
				return nil
			},
		},
	)

	return cmd
}
