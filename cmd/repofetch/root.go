package main

import (
	"context"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/repofetch/cmd/repofetch/opts"
	"github.com/walteh/repofetch/pkg/cache"
	"github.com/walteh/repofetch/pkg/config"
	"github.com/walteh/repofetch/pkg/fetch"
	"github.com/walteh/repofetch/pkg/remote/github"
)

var (
	// Flags
	configFile string
	debugFlag  bool
)

// loadRootOpts fills ro from the config file; it runs after flag parsing
func loadRootOpts(ctx context.Context, ro *opts.RootOpts) error {
	cfg, err := config.LoadOptional(ctx, configFile)
	if err != nil {
		return errors.Errorf("loading config: %w", err)
	}

	ghOpts, err := cfg.GitHubOptions()
	if err != nil {
		return errors.Errorf("configuring github client: %w", err)
	}
	if ghOpts.Token == "" {
		zerolog.Ctx(ctx).Debug().Str("env", cfg.GitHub.TokenEnv).Msg("no token set, using anonymous access")
	}

	client, err := github.New(ctx, ghOpts)
	if err != nil {
		return errors.Errorf("creating github client: %w", err)
	}

	store, closer, err := newCacheStore(ctx, cfg)
	if err != nil {
		return errors.Errorf("creating cache: %w", err)
	}
	if closer != nil {
		ro.Closers = append(ro.Closers, closer)
	}

	discOpts, err := cfg.DiscoveryOptions()
	if err != nil {
		return errors.Errorf("configuring discovery: %w", err)
	}

	fetcher, err := fetch.New(fetch.Config{
		Client:    client,
		Cache:     store,
		Discovery: discOpts,
	})
	if err != nil {
		return errors.Errorf("creating fetcher: %w", err)
	}

	ro.Config = cfg
	ro.Client = client
	ro.Cache = store
	ro.Fetcher = fetcher
	return nil
}

func newCacheStore(ctx context.Context, cfg *config.Config) (cache.Store, *redis.Client, error) {
	fetchOpts, err := cfg.FetchOptions()
	if err != nil {
		return nil, nil, err
	}

	switch cfg.Cache.Backend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.Cache.Addr,
			DB:   cfg.Cache.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, errors.Errorf("connecting to redis at %s: %w", cfg.Cache.Addr, err)
		}
		return cache.NewRedis(rdb, cfg.Cache.Prefix, fetchOpts.CacheTimeout), rdb, nil
	default:
		mem := cache.NewMemory(
			cache.WithTTL(fetchOpts.CacheTimeout),
			cache.WithMaxEntries(cfg.Cache.MaxEntries),
		)
		return mem, nil, nil
	}
}

func addRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", config.DefaultPath, "config file path (yaml, json or hcl)")
	cmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false, "enable debug logging")
}

func setupLogging() zerolog.Logger {
	level := zerolog.InfoLevel
	if debugFlag {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &log
	return log
}
