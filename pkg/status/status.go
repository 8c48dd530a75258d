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

package status

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// ErrUnsafePath is returned for paths that would land outside the base directory
var ErrUnsafePath = errors.New("path escapes destination")

// 📊 FileStatus is what happened to a file on disk
type FileStatus int

const (
	StatusUnknown   FileStatus = iota
	StatusNew                  // file did not exist
	StatusModified             // file existed with different content
	StatusUnchanged            // file existed with the same content
	StatusFailed               // file could not be written
)

// String returns a string representation of FileStatus
func (s FileStatus) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusModified:
		return "modified"
	case StatusUnchanged:
		return "unchanged"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// 📄 FileInfo describes one written file
type FileInfo struct {
	Path     string     // relative to the base directory
	Status   FileStatus // outcome of the write
	Size     int64      // bytes written
	Checksum string     // sha256 of the content
	Error    error      // set when Status is StatusFailed
}

// 📋 Summary counts the outcomes of a WriteAll
type Summary struct {
	New       int
	Modified  int
	Unchanged int
	Failed    int
	Files     []FileInfo
}

// 🔧 Manager writes files below a base directory and remembers what it did
type Manager struct {
	baseDir string

	mu    sync.RWMutex
	files map[string]FileInfo
}

// 🏭 New creates a manager rooted at baseDir
func New(baseDir string) *Manager {
	return &Manager{
		baseDir: filepath.Clean(baseDir),
		files:   make(map[string]FileInfo),
	}
}

// BaseDir returns the root all paths are written under
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// 🔒 absPath resolves a relative slash path, refusing anything outside baseDir
func (m *Manager) absPath(path string) (string, error) {
	local := filepath.FromSlash(path)
	if !filepath.IsLocal(local) {
		return "", errors.Errorf("%w: %q", ErrUnsafePath, path)
	}
	return filepath.Join(m.baseDir, local), nil
}

// 🔍 checksum generates a SHA-256 hash of the content
func checksum(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

// 📝 WriteFile writes content to path and reports whether it was new,
// modified or unchanged. Unchanged files are not rewritten.
func (m *Manager) WriteFile(ctx context.Context, path string, content []byte) (FileInfo, error) {
	info := FileInfo{Path: path, Size: int64(len(content)), Checksum: checksum(content)}

	abs, err := m.absPath(path)
	if err != nil {
		return m.track(failed(info, err)), err
	}

	existing, err := os.ReadFile(abs)
	switch {
	case err == nil && checksum(existing) == info.Checksum:
		info.Status = StatusUnchanged
		return m.track(info), nil
	case err == nil:
		info.Status = StatusModified
	case errors.Is(err, os.ErrNotExist):
		info.Status = StatusNew
	default:
		err = errors.Errorf("reading existing %s: %w", path, err)
		return m.track(failed(info, err)), err
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		err = errors.Errorf("creating parent directories: %w", err)
		return m.track(failed(info, err)), err
	}

	if err := writeAtomic(abs, content); err != nil {
		return m.track(failed(info, err)), err
	}

	zerolog.Ctx(ctx).Debug().Str("path", path).Str("status", info.Status.String()).Msg("wrote file")
	return m.track(info), nil
}

// 📦 WriteAll writes contents[p] for every p in paths, in order. A failed
// write is recorded in the summary and does not stop the rest.
func (m *Manager) WriteAll(ctx context.Context, paths []string, contents map[string]string) (*Summary, error) {
	sum := &Summary{Files: make([]FileInfo, 0, len(paths))}

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return sum, errors.Errorf("writing files: %w", err)
		}

		content, ok := contents[p]
		if !ok {
			continue
		}

		info, err := m.WriteFile(ctx, p, []byte(content))
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("path", p).Msg("writing file failed")
		}

		switch info.Status {
		case StatusNew:
			sum.New++
		case StatusModified:
			sum.Modified++
		case StatusUnchanged:
			sum.Unchanged++
		case StatusFailed:
			sum.Failed++
		}
		sum.Files = append(sum.Files, info)
	}

	return sum, nil
}

// GetFileInfo returns what happened to path
func (m *Manager) GetFileInfo(path string) (FileInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.files[path]
	return info, ok
}

// ListFiles returns every tracked file sorted by path
func (m *Manager) ListFiles() []FileInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make([]FileInfo, 0, len(m.files))
	for _, info := range m.files {
		files = append(files, info)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files
}

func (m *Manager) track(info FileInfo) FileInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[info.Path] = info
	return info
}

func failed(info FileInfo, err error) FileInfo {
	info.Status = StatusFailed
	info.Error = err
	return info
}

// writeAtomic writes to a temp file in the target directory then renames it
// over the target
func writeAtomic(abs string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(abs), "."+filepath.Base(abs)+".*.tmp")
	if err != nil {
		return errors.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return errors.Errorf("setting file mode: %w", err)
	}
	if err := os.Rename(tmpPath, abs); err != nil {
		os.Remove(tmpPath)
		return errors.Errorf("renaming temp file: %w", err)
	}
	return nil
}
