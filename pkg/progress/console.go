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

package progress

import (
	"fmt"
	"io"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
)

// 🖥️ NewConsoleSink prints one prefixed line per event
func NewConsoleSink(w io.Writer) Sink {
	return func(e Event) {
		printer := printerFor(e.Stage).WithWriter(w)
		printer.Println(FormatEvent(e))
	}
}

func printerFor(stage Stage) *pterm.PrefixPrinter {
	switch stage {
	case StageAnalyzing:
		return pterm.Info.WithPrefix(pterm.Prefix{Text: "🔍", Style: pterm.Info.Prefix.Style})
	case StageDiscovering:
		return pterm.Info.WithPrefix(pterm.Prefix{Text: "📂", Style: pterm.Info.Prefix.Style})
	case StageDownloading:
		return pterm.Info.WithPrefix(pterm.Prefix{Text: "📥", Style: pterm.Info.Prefix.Style})
	default:
		return pterm.Success.WithPrefix(pterm.Prefix{Text: "✅", Style: pterm.Success.Prefix.Style})
	}
}

// 📝 FormatEvent renders an event as a single line
func FormatEvent(e Event) string {
	line := fmt.Sprintf("%-11s %3d%%", e.Stage, e.Percent)
	if e.TotalBatches > 0 {
		line += fmt.Sprintf("  batch %d/%d", e.BatchIndex, e.TotalBatches)
	}
	if e.TotalFiles > 0 {
		line += fmt.Sprintf("  files %d/%d", e.FilesProcessed, e.TotalFiles)
	}
	if e.Message != "" {
		line += "  " + e.Message
	}
	return line
}

// 📜 NewLogSink writes events to a zerolog logger at debug level, with the
// final event at info
func NewLogSink(logger zerolog.Logger) Sink {
	return func(e Event) {
		ev := logger.Debug()
		if e.Stage == StageComplete {
			ev = logger.Info()
		}
		ev.Str("stage", e.Stage.String()).
			Int("percent", e.Percent).
			Int("files_processed", e.FilesProcessed).
			Int("total_files", e.TotalFiles).
			Int("batch", e.BatchIndex).
			Int("total_batches", e.TotalBatches).
			Dur("elapsed", e.Elapsed).
			Msg(e.Message)
	}
}
