package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/walteh/repofetch/cmd/repofetch/opts"
)

func NewRateLimitCmd(ro *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "ratelimit",
		Short: "Show the remaining API quota",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rl, ok := ro.Client.RateLimitStatus(cmd.Context())
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "⚠️  rate limit status unavailable")
				return nil
			}

			symbol := "✅"
			if rl.Remaining == 0 {
				symbol = "⛔"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d/%d requests remaining\n", symbol, rl.Remaining, rl.Limit)
			return nil
		},
	}
}
