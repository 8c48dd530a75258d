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

package cache

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL is how long an entry is served after it was stored
const DefaultTTL = 5 * time.Minute

// 📊 Stats describes the cache contents
type Stats struct {
	EntryCount int
}

// 🔌 Store is a key/value cache with a cache-wide time-to-live
type Store interface {
	// Get returns the value for key, or false when absent or expired
	Get(ctx context.Context, key string) (string, bool)
	// Put stores value under key, replacing any previous entry
	Put(ctx context.Context, key, value string) error
	// Clear removes every entry
	Clear(ctx context.Context) error
	// Stats reports the number of stored entries
	Stats(ctx context.Context) (Stats, error)
	// SetTTL changes the time-to-live for subsequent reads and writes
	SetTTL(ttl time.Duration)
	// TTL returns the current time-to-live
	TTL() time.Duration
}

// entry is replaced as a whole on every Put
type entry struct {
	value    string
	storedAt time.Time
}

// 🗄️ Memory is an in-process Store. Expiry is checked lazily on Get; there
// is no background sweep.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]entry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

var _ Store = (*Memory)(nil)

// 🔧 Option configures a Memory cache
type Option func(*Memory)

// WithTTL sets the time-to-live
func WithTTL(ttl time.Duration) Option {
	return func(m *Memory) {
		m.ttl = ttl
	}
}

// WithMaxEntries caps the number of entries; 0 means unbounded
func WithMaxEntries(n int) Option {
	return func(m *Memory) {
		m.maxEntries = n
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Memory) {
		m.now = now
	}
}

// 🏭 NewMemory creates an in-memory cache
func NewMemory(opts ...Option) *Memory {
	m := &Memory{
		entries: make(map[string]entry),
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// 🔍 Get returns the value if it was stored less than ttl ago
func (m *Memory) Get(ctx context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return "", false
	}

	if m.expired(e) {
		delete(m.entries, key)
		return "", false
	}

	return e.value, true
}

// 📥 Put stores value and resets its timestamp
func (m *Memory) Put(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists && m.maxEntries > 0 && len(m.entries) >= m.maxEntries {
		m.makeRoom()
	}

	m.entries[key] = entry{value: value, storedAt: m.now()}
	return nil
}

// 🧹 Clear drops every entry
func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]entry)
	return nil
}

// 📊 Stats counts stored entries, expired ones included until they are read
func (m *Memory) Stats(ctx context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Stats{EntryCount: len(m.entries)}, nil
}

// SetTTL changes the time-to-live
func (m *Memory) SetTTL(ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ttl = ttl
}

// TTL returns the time-to-live
func (m *Memory) TTL() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ttl
}

func (m *Memory) expired(e entry) bool {
	return m.now().Sub(e.storedAt) >= m.ttl
}

// makeRoom drops expired entries, then the oldest one if still at capacity.
// Callers hold mu.
func (m *Memory) makeRoom() {
	var oldestKey string
	var oldest time.Time
	for k, e := range m.entries {
		if m.expired(e) {
			delete(m.entries, k)
			continue
		}
		if oldestKey == "" || e.storedAt.Before(oldest) {
			oldestKey = k
			oldest = e.storedAt
		}
	}

	if len(m.entries) >= m.maxEntries && oldestKey != "" {
		delete(m.entries, oldestKey)
	}
}
