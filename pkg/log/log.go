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
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// 🎨 Display configuration
const (
	fileIndent   = 4  // spaces to indent file entries
	nameWidth    = 40 // base width for filename
	sourceWidth  = 8  // width for where the content came from
	statusWidth  = 10 // width for status text
	sizeWidth    = 9
	defaultTitle = "repofetch"
)

// 📥 Source is where a file's content came from
type Source string

const (
	SourceRemote  Source = "remote"
	SourceCache   Source = "cache"
	SourceFailed  Source = "failed"
	SourceSkipped Source = "skipped"
)

// 🎯 FileLine is one file of a download, as shown to the user
type FileLine struct {
	Path   string // repository path
	Source Source // remote, cache, failed or skipped
	Status string // on-disk outcome (new/modified/unchanged), empty if not written
	Size   int64  // bytes, 0 if unknown
}

// 📦 RepoLine heads the output for one repository
type RepoLine struct {
	Name        string // owner/name
	Ref         string // branch, empty for the default branch
	Destination string // output directory, empty when not writing
}

// 📊 Summary closes the output for one repository
type Summary struct {
	Downloaded int
	FromCache  int
	Failed     int
	Skipped    int
	Batches    int
	Source     string
	Elapsed    time.Duration
	New        int
	Modified   int
	Unchanged  int
}

// 🎯 Logger prints colored lines for people and mirrors them to zerolog
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	mu      sync.Mutex
	repo    *RepoLine
	files   []FileLine
}

// 🏭 New creates a logger writing lines to console and records to zlog
func New(console io.Writer, zlog zerolog.Logger) *Logger {
	return &Logger{
		zlog:    zlog,
		console: console,
	}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context; without one, lines are
// discarded
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		return New(io.Discard, zerolog.Nop())
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// 📝 formatFile formats a file line for display
func (l *Logger) formatFile(f FileLine) string {
	var symbol rune
	var symbolColor color.Attribute
	switch {
	case f.Source == SourceFailed:
		symbol = '✗'
		symbolColor = color.FgRed
	case f.Source == SourceSkipped:
		symbol = '-'
		symbolColor = color.FgHiBlack
	case f.Status == "new":
		symbol = '✓'
		symbolColor = color.FgGreen
	case f.Status == "modified":
		symbol = '⟳'
		symbolColor = color.FgBlue
	default:
		symbol = '•'
		symbolColor = color.FgCyan
	}

	var sourceColor color.Attribute
	switch f.Source {
	case SourceCache:
		sourceColor = color.FgMagenta
	case SourceFailed:
		sourceColor = color.FgRed
	case SourceSkipped:
		sourceColor = color.FgHiBlack
	default:
		sourceColor = color.FgBlue
	}

	size := ""
	if f.Size > 0 {
		size = humanSize(f.Size)
	}

	return fmt.Sprintf("%s%s %s %s %s %s",
		fmt.Sprintf("%*s", fileIndent, ""),
		color.New(symbolColor).Sprint(string(symbol)),
		fmt.Sprintf("%-*s", nameWidth, f.Path),
		color.New(sourceColor).Sprint(fmt.Sprintf("%-*s", sourceWidth, f.Source)),
		fmt.Sprintf("%-*s", statusWidth, f.Status),
		fmt.Sprintf("%*s", sizeWidth, size))
}

// 📝 LogFile prints one file line
func (l *Logger) LogFile(ctx context.Context, f FileLine) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.files = append(l.files, f)
	fmt.Fprintln(l.console, l.formatFile(f))

	ev := l.zlog.Debug()
	if f.Source == SourceFailed {
		ev = l.zlog.Warn()
	}
	ev.Str("file", f.Path).
		Str("source", string(f.Source)).
		Str("status", f.Status).
		Int64("size", f.Size).
		Msg("file")
}

// 📝 StartRepository prints the repository header
func (l *Logger) StartRepository(ctx context.Context, r RepoLine) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.repo = &r
	l.files = nil

	ref := r.Ref
	if ref == "" {
		ref = "default branch"
	}

	if r.Destination != "" {
		fmt.Fprintf(l.console, "[writing to %s]\n", color.New(color.FgCyan).Sprint(r.Destination))
	}
	fmt.Fprintf(l.console, "%s %s %s %s\n",
		color.New(color.FgMagenta).Sprint("◆"),
		color.New(color.Bold).Sprint(r.Name),
		color.New(color.Faint).Sprint("•"),
		color.New(color.FgYellow).Sprint(ref))

	l.zlog.Info().
		Str("repo", r.Name).
		Str("ref", r.Ref).
		Str("destination", r.Destination).
		Msg("starting repository")
}

// 📝 EndRepository prints the summary and resets the current repository
func (l *Logger) EndRepository(ctx context.Context, s Summary) {
	l.mu.Lock()
	defer l.mu.Unlock()

	name := ""
	if l.repo != nil {
		name = l.repo.Name
	}

	fmt.Fprintln(l.console)
	fmt.Fprintf(l.console, "%s %d downloaded (%d cached), %s, %d skipped in %d batches via %s listing, %s\n",
		color.New(color.FgGreen).Sprint("✅"),
		s.Downloaded, s.FromCache,
		failedText(s.Failed),
		s.Skipped, s.Batches, s.Source,
		s.Elapsed.Round(time.Millisecond))
	if s.New+s.Modified+s.Unchanged > 0 {
		fmt.Fprintf(l.console, "   %s new, %s modified, %s unchanged\n",
			color.New(color.FgGreen).Sprint(s.New),
			color.New(color.FgBlue).Sprint(s.Modified),
			color.New(color.Faint).Sprint(s.Unchanged))
	}

	l.zlog.Info().
		Str("repo", name).
		Int("downloaded", s.Downloaded).
		Int("from_cache", s.FromCache).
		Int("failed", s.Failed).
		Int("skipped", s.Skipped).
		Int("batches", s.Batches).
		Str("source", s.Source).
		Dur("elapsed", s.Elapsed).
		Msg("repository complete")

	l.repo = nil
	l.files = nil
}

// Files returns the lines logged for the current repository
func (l *Logger) Files() []FileLine {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]FileLine, len(l.files))
	copy(out, l.files)
	return out
}

func failedText(n int) string {
	text := fmt.Sprintf("%d failed", n)
	if n > 0 {
		return color.New(color.FgRed).Sprint(text)
	}
	return text
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	title := color.New(color.Bold, color.FgCyan).Sprint(defaultTitle)
	fmt.Fprintf(l.console, "\n%s %s\n\n", title, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...any) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...any) {
	l.Warning(fmt.Sprintf(format, args...))
}
