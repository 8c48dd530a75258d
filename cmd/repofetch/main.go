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

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/walteh/repofetch/cmd/repofetch/commands"
	"github.com/walteh/repofetch/cmd/repofetch/opts"
)

func main() {
	ctx := context.Background()
	ro := &opts.RootOpts{}

	rootCmd := &cobra.Command{
		Use:   "repofetch",
		Short: "Download every file of a GitHub repository, fast",
		Long: `repofetch lists a repository's files and downloads them in batches with
bounded concurrency. Rate limited listings are retried with backoff, and
fetched files are cached so repeated runs skip the network.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogging()
			cmd.SetContext(logger.WithContext(cmd.Context()))
			if cmd.Name() == "version" {
				return nil
			}
			return loadRootOpts(cmd.Context(), ro)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return ro.Close()
		},
	}

	addRootFlags(rootCmd)

	rootCmd.AddCommand(
		commands.NewFetchCmd(ro),
		commands.NewCacheCmd(ro),
		commands.NewRateLimitCmd(ro),
		newVersionCmd(),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		_ = ro.Close()
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}
