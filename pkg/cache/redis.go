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
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// DefaultKeyPrefix namespaces cache keys in a shared Redis
const DefaultKeyPrefix = "repofetch:cache:"

const scanBatch = 500

// hash fields of a cached entry
const (
	fieldValue    = "value"
	fieldStoredAt = "stored_at"
)

// 🧱 Redis is a Store shared between processes. Each entry is a hash holding
// the value and its write time. Get compares the write time against the
// current ttl; the key expiry set on Put bounds how long Redis keeps it.
type Redis struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time

	mu  sync.RWMutex
	ttl time.Duration
}

var _ Store = (*Redis)(nil)

// 🔧 RedisOption configures a Redis cache
type RedisOption func(*Redis)

// WithRedisClock replaces time.Now for write times and expiry checks
func WithRedisClock(now func() time.Time) RedisOption {
	return func(r *Redis) {
		r.now = now
	}
}

// 🏭 NewRedis creates a Redis-backed cache. An empty prefix uses
// DefaultKeyPrefix.
func NewRedis(rdb *redis.Client, prefix string, ttl time.Duration, opts ...RedisOption) *Redis {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	r := &Redis{
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// 🔍 Get returns the value if it was stored less than ttl ago. Redis errors
// and malformed entries read as misses.
func (r *Redis) Get(ctx context.Context, key string) (string, bool) {
	logger := zerolog.Ctx(ctx).With().Str("key", key).Logger()

	vals, err := r.rdb.HMGet(ctx, r.prefix+key, fieldValue, fieldStoredAt).Result()
	if err != nil {
		logger.Warn().Err(err).Msg("redis cache read failed, treating as miss")
		return "", false
	}

	value, okValue := vals[0].(string)
	stamp, okStamp := vals[1].(string)
	if !okValue || !okStamp {
		return "", false
	}

	nanos, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil {
		logger.Warn().Err(err).Msg("malformed cache entry, treating as miss")
		return "", false
	}

	if r.now().Sub(time.Unix(0, nanos)) >= r.TTL() {
		if err := r.rdb.Del(ctx, r.prefix+key).Err(); err != nil {
			logger.Debug().Err(err).Msg("dropping expired cache entry failed")
		}
		return "", false
	}

	return value, true
}

// 📥 Put replaces the entry and resets its timestamp
func (r *Redis) Put(ctx context.Context, key, value string) error {
	k := r.prefix + key
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.HSet(ctx, k, fieldValue, value, fieldStoredAt, strconv.FormatInt(r.now().UnixNano(), 10))
		pipe.PExpire(ctx, k, r.TTL())
		return nil
	})
	if err != nil {
		return errors.Errorf("storing %q: %w", key, err)
	}
	return nil
}

// 🧹 Clear deletes every key under the prefix
func (r *Redis) Clear(ctx context.Context) error {
	keys, err := r.keys(ctx)
	if err != nil {
		return err
	}
	for start := 0; start < len(keys); start += scanBatch {
		end := min(start+scanBatch, len(keys))
		if err := r.rdb.Del(ctx, keys[start:end]...).Err(); err != nil {
			return errors.Errorf("deleting cache keys: %w", err)
		}
	}
	return nil
}

// 📊 Stats counts live keys under the prefix
func (r *Redis) Stats(ctx context.Context) (Stats, error) {
	keys, err := r.keys(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{EntryCount: len(keys)}, nil
}

// SetTTL changes the ttl checked by later reads and set on later writes
func (r *Redis) SetTTL(ttl time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ttl = ttl
}

// TTL returns the time-to-live
func (r *Redis) TTL() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ttl
}

func (r *Redis) keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := r.rdb.Scan(ctx, 0, r.prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Errorf("scanning cache keys: %w", err)
	}
	return keys, nil
}
