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
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

const shortRevisionLen = 12

// buildStamp is what `repofetch version` reports
type buildStamp struct {
	Version  string `json:"version"`
	Revision string `json:"revision,omitempty"`
	Time     string `json:"time,omitempty"`
	Dirty    bool   `json:"dirty"`
	Go       string `json:"go"`
	Platform string `json:"platform"`
}

func readBuildStamp() buildStamp {
	stamp := buildStamp{
		Version:  "dev",
		Go:       runtime.Version(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return stamp
	}
	if v := bi.Main.Version; v != "" && v != "(devel)" {
		stamp.Version = v
	}
	for _, kv := range bi.Settings {
		switch kv.Key {
		case "vcs.revision":
			stamp.Revision = kv.Value
		case "vcs.time":
			stamp.Time = kv.Value
		case "vcs.modified":
			stamp.Dirty = kv.Value == "true"
		}
	}
	return stamp
}

// short trims the revision for the human readable form
func (b buildStamp) short() string {
	rev := b.Revision
	if len(rev) > shortRevisionLen {
		rev = rev[:shortRevisionLen]
	}
	if rev == "" {
		rev = "unknown"
	}
	if b.Dirty {
		rev += "-dirty"
	}
	return rev
}

func (b buildStamp) write(w io.Writer, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(b); err != nil {
			return errors.Errorf("encoding version: %w", err)
		}
		return nil
	}
	_, err := fmt.Fprintf(w, "🚀 repofetch %s (%s) %s %s\n", b.Version, b.short(), b.Go, b.Platform)
	return err
}

func newVersionCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return readBuildStamp().write(cmd.OutOrStdout(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print machine readable JSON")
	return cmd
}
