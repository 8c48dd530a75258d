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

package log

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	// Disable color for testing
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name     string
		op       func(t *testing.T, logger *Logger)
		wantLogs []string
	}{
		{
			name: "new_file_from_remote",
			op: func(t *testing.T, logger *Logger) {
				logger.LogFile(context.Background(), FileLine{
					Path:   "README.md",
					Source: SourceRemote,
					Status: "new",
					Size:   512,
				})
			},
			wantLogs: []string{
				"    ✓ README.md                                remote   new            512 B",
			},
		},
		{
			name: "failed_file",
			op: func(t *testing.T, logger *Logger) {
				logger.LogFile(context.Background(), FileLine{Path: "broken.go", Source: SourceFailed})
			},
			wantLogs: []string{
				"    ✗ broken.go                                failed",
			},
		},
		{
			name: "repository_header",
			op: func(t *testing.T, logger *Logger) {
				logger.StartRepository(context.Background(), RepoLine{
					Name:        "walteh/repofetch",
					Ref:         "main",
					Destination: "/tmp/out",
				})
			},
			wantLogs: []string{
				"[writing to /tmp/out]",
				"◆ walteh/repofetch • main",
			},
		},
		{
			name: "repository_header_default_branch",
			op: func(t *testing.T, logger *Logger) {
				logger.StartRepository(context.Background(), RepoLine{Name: "walteh/repofetch"})
			},
			wantLogs: []string{
				"◆ walteh/repofetch • default branch",
			},
		},
		{
			name: "summary",
			op: func(t *testing.T, logger *Logger) {
				logger.StartRepository(context.Background(), RepoLine{Name: "walteh/repofetch"})
				logger.EndRepository(context.Background(), Summary{
					Downloaded: 43,
					FromCache:  10,
					Failed:     2,
					Skipped:    1,
					Batches:    3,
					Source:     "primary",
					Elapsed:    1500 * time.Millisecond,
					New:        40,
					Modified:   2,
					Unchanged:  1,
				})
			},
			wantLogs: []string{
				"✅ 43 downloaded (10 cached), 2 failed, 1 skipped in 3 batches via primary listing, 1.5s",
				"   40 new, 2 modified, 1 unchanged",
			},
		},
		{
			name: "log_messages",
			op: func(t *testing.T, logger *Logger) {
				logger.Info("info message")
				logger.Warning("warning message")
				logger.Error("error message")
				logger.Success("success message")
			},
			wantLogs: []string{
				"ℹ️  info message",
				"⚠️  warning message",
				"❌ error message",
				"✅ success message",
			},
		},
		{
			name: "header",
			op: func(t *testing.T, logger *Logger) {
				logger.Header("fetching")
			},
			wantLogs: []string{
				"repofetch • fetching",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(&buf, zerolog.Nop())

			tt.op(t, logger)

			output := buf.String()
			for _, want := range tt.wantLogs {
				assert.Contains(t, output, want, "output should contain expected log line")
			}
		})
	}
}

func TestLoggerMirrorsToZerolog(t *testing.T) {
	var console, records bytes.Buffer
	logger := New(&console, zerolog.New(&records).Level(zerolog.DebugLevel))

	logger.LogFile(context.Background(), FileLine{Path: "a.go", Source: SourceCache, Status: "unchanged"})
	logger.LogFile(context.Background(), FileLine{Path: "b.go", Source: SourceFailed})

	lines := strings.Split(strings.TrimSpace(records.String()), "\n")
	require.Len(t, lines, 2, "one record per file")
	assert.Contains(t, lines[0], `"level":"debug"`, "successful files are debug")
	assert.Contains(t, lines[0], `"source":"cache"`, "source should be recorded")
	assert.Contains(t, lines[1], `"level":"warn"`, "failed files are warnings")

	files := logger.Files()
	require.Len(t, files, 2, "files should be remembered")
	assert.Equal(t, "b.go", files[1].Path, "order should be kept")
}

func TestContext(t *testing.T) {
	logger := New(&bytes.Buffer{}, zerolog.Nop())
	ctx := NewContext(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx), "logger should round trip through context")

	assert.NotPanics(t, func() {
		FromContext(context.Background()).Info("discarded")
	}, "missing logger should discard")
}

func TestHumanSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{in: 0, want: "0 B"},
		{in: 1023, want: "1023 B"},
		{in: 1024, want: "1.0 KiB"},
		{in: 1536, want: "1.5 KiB"},
		{in: 5 * 1024 * 1024, want: "5.0 MiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, humanSize(tt.in), "size %d", tt.in)
	}
}
