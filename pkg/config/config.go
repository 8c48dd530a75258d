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

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/repofetch/pkg/cache"
	"github.com/walteh/repofetch/pkg/discovery"
	"github.com/walteh/repofetch/pkg/fetch"
	"github.com/walteh/repofetch/pkg/remote"
	"github.com/walteh/repofetch/pkg/remote/github"
)

// DefaultPath is where the CLI looks for a config file
const DefaultPath = ".repofetch.yaml"

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"

	DefaultTokenEnv = "GITHUB_TOKEN"
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 📥 FetchConfig mirrors fetch.Options with durations as strings
type FetchConfig struct {
	BatchSize     int      `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`
	MaxConcurrent int      `json:"max_concurrent,omitempty" yaml:"max_concurrent,omitempty"`
	EnableCaching *bool    `json:"enable_caching,omitempty" yaml:"enable_caching,omitempty"`
	CacheTimeout  string   `json:"cache_timeout,omitempty" yaml:"cache_timeout,omitempty"`
	Include       []string `json:"include,omitempty" yaml:"include,omitempty"`
	Exclude       []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	MaxFileSize   int64    `json:"max_file_size,omitempty" yaml:"max_file_size,omitempty"`
}

// 🔁 DiscoveryConfig tunes listing retries
type DiscoveryConfig struct {
	MaxAttempts int    `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	BaseDelay   string `json:"base_delay,omitempty" yaml:"base_delay,omitempty"`
}

// 🗄️ CacheConfig selects the cache backend
type CacheConfig struct {
	Backend    string `json:"backend,omitempty" yaml:"backend,omitempty"` // memory or redis
	Addr       string `json:"addr,omitempty" yaml:"addr,omitempty"`       // redis host:port
	DB         int    `json:"db,omitempty" yaml:"db,omitempty"`
	Prefix     string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	MaxEntries int    `json:"max_entries,omitempty" yaml:"max_entries,omitempty"` // memory only
}

// 🐙 GitHubConfig configures the API client
type GitHubConfig struct {
	TokenEnv string `json:"token_env,omitempty" yaml:"token_env,omitempty"`
	BaseURL  string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// RequestsPerSecond < 0 disables throttling; 0 takes the default
	RequestsPerSecond float64 `json:"requests_per_second,omitempty" yaml:"requests_per_second,omitempty"`
	Timeout           string  `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// 📚 Config represents the complete configuration
type Config struct {
	Repository  string          `json:"repository,omitempty" yaml:"repository,omitempty"`
	Destination string          `json:"destination,omitempty" yaml:"destination,omitempty"`
	Fetch       FetchConfig     `json:"fetch,omitempty" yaml:"fetch,omitempty"`
	Discovery   DiscoveryConfig `json:"discovery,omitempty" yaml:"discovery,omitempty"`
	Cache       CacheConfig     `json:"cache,omitempty" yaml:"cache,omitempty"`
	GitHub      GitHubConfig    `json:"github,omitempty" yaml:"github,omitempty"`
}

// 🏭 Default returns a config with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// 🎯 Load loads the configuration from a file
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// 🎯 LoadOptional is Load, except a missing file yields Default()
func LoadOptional(ctx context.Context, path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		zerolog.Ctx(ctx).Debug().Str("path", path).Msg("no config file, using defaults")
		return Default(), nil
	}
	return Load(ctx, path)
}

// ApplyDefaults fills every unset field
func (cfg *Config) ApplyDefaults() {
	if cfg.Fetch.BatchSize == 0 {
		cfg.Fetch.BatchSize = fetch.DefaultBatchSize
	}
	if cfg.Fetch.MaxConcurrent == 0 {
		cfg.Fetch.MaxConcurrent = fetch.DefaultMaxConcurrent
	}
	if cfg.Fetch.EnableCaching == nil {
		enabled := true
		cfg.Fetch.EnableCaching = &enabled
	}
	if cfg.Fetch.CacheTimeout == "" {
		cfg.Fetch.CacheTimeout = cache.DefaultTTL.String()
	}
	if cfg.Discovery.MaxAttempts == 0 {
		cfg.Discovery.MaxAttempts = discovery.DefaultMaxAttempts
	}
	if cfg.Discovery.BaseDelay == "" {
		cfg.Discovery.BaseDelay = discovery.DefaultBaseDelay.String()
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = BackendMemory
	}
	if cfg.Cache.Prefix == "" {
		cfg.Cache.Prefix = cache.DefaultKeyPrefix
	}
	if cfg.GitHub.TokenEnv == "" {
		cfg.GitHub.TokenEnv = DefaultTokenEnv
	}
	if cfg.GitHub.RequestsPerSecond == 0 {
		cfg.GitHub.RequestsPerSecond = github.DefaultRequestsPerSecond
	}
	if cfg.GitHub.Timeout == "" {
		cfg.GitHub.Timeout = github.DefaultTimeout.String()
	}
	if cfg.Destination != "" {
		cfg.Destination = filepath.Clean(cfg.Destination)
	}
}

// 🔍 Validate checks if the configuration is valid; call after ApplyDefaults
func (cfg *Config) Validate() error {
	if cfg.Repository != "" {
		if _, err := remote.ParseRepository(cfg.Repository); err != nil {
			return errors.Errorf("repository: %w", err)
		}
	}

	if _, err := cfg.FetchOptions(); err != nil {
		return err
	}
	if _, err := cfg.DiscoveryOptions(); err != nil {
		return err
	}

	switch cfg.Cache.Backend {
	case BackendMemory:
		if cfg.Cache.MaxEntries < 0 {
			return errors.Errorf("cache.max_entries must not be negative")
		}
	case BackendRedis:
		if cfg.Cache.Addr == "" {
			return errors.Errorf("cache.addr is required for the redis backend")
		}
	default:
		return errors.Errorf("unknown cache.backend %q (want %s or %s)", cfg.Cache.Backend, BackendMemory, BackendRedis)
	}

	if _, err := cfg.GitHubOptions(); err != nil {
		return err
	}

	return nil
}

// FetchOptions converts the fetch section; the result is validated
func (cfg *Config) FetchOptions() (fetch.Options, error) {
	timeout, err := parseDuration("fetch.cache_timeout", cfg.Fetch.CacheTimeout)
	if err != nil {
		return fetch.Options{}, err
	}

	opts := fetch.Options{
		BatchSize:     cfg.Fetch.BatchSize,
		MaxConcurrent: cfg.Fetch.MaxConcurrent,
		EnableCaching: cfg.Fetch.EnableCaching == nil || *cfg.Fetch.EnableCaching,
		CacheTimeout:  timeout,
		Include:       cfg.Fetch.Include,
		Exclude:       cfg.Fetch.Exclude,
		MaxFileSize:   cfg.Fetch.MaxFileSize,
	}
	if err := opts.Validate(); err != nil {
		return fetch.Options{}, errors.Errorf("fetch: %w", err)
	}
	return opts, nil
}

// DiscoveryOptions converts the discovery section
func (cfg *Config) DiscoveryOptions() (discovery.Options, error) {
	if cfg.Discovery.MaxAttempts < 0 || cfg.Discovery.MaxAttempts > discovery.MaxAttemptsLimit {
		return discovery.Options{}, errors.Errorf("discovery.max_attempts must be between 1 and %d, got %d",
			discovery.MaxAttemptsLimit, cfg.Discovery.MaxAttempts)
	}
	delay, err := parseDuration("discovery.base_delay", cfg.Discovery.BaseDelay)
	if err != nil {
		return discovery.Options{}, err
	}
	return discovery.Options{
		MaxAttempts: cfg.Discovery.MaxAttempts,
		BaseDelay:   delay,
	}, nil
}

// GitHubOptions converts the github section, reading the token from the
// configured environment variable
func (cfg *Config) GitHubOptions() (github.Options, error) {
	timeout, err := parseDuration("github.timeout", cfg.GitHub.Timeout)
	if err != nil {
		return github.Options{}, err
	}
	return github.Options{
		Token:             cfg.Token(),
		BaseURL:           cfg.GitHub.BaseURL,
		RequestsPerSecond: cfg.GitHub.RequestsPerSecond,
		Timeout:           timeout,
	}, nil
}

// Token returns the API token, or empty for anonymous access
func (cfg *Config) Token() string {
	if cfg.GitHub.TokenEnv == "" {
		return ""
	}
	return os.Getenv(cfg.GitHub.TokenEnv)
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	repo := cfg.Repository
	if repo == "" {
		repo = "<none>"
	}
	dest := cfg.Destination
	if dest == "" {
		dest = "<stdout>"
	}
	return fmt.Sprintf("%s -> %s (cache: %s)", repo, dest, cfg.Cache.Backend)
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.Errorf("%s: %w", field, err)
	}
	return d, nil
}
