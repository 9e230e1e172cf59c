package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sips-and-steals/deals-cli/internal/archive"
	"github.com/sips-and-steals/deals-cli/internal/builder"
	"github.com/sips-and-steals/deals-cli/internal/fetcher"
	"github.com/sips-and-steals/deals-cli/internal/pattern"
	"github.com/sips-and-steals/deals-cli/internal/pipeline"
	"github.com/sips-and-steals/deals-cli/internal/resolver"
	"github.com/sips-and-steals/deals-cli/internal/store"
)

// pipelineEnv bundles the wired pipeline and the resources that need
// closing when the command finishes.
type pipelineEnv struct {
	Pipeline *pipeline.Pipeline
	Store    *store.Store
	Cache    *store.FetchCache
}

func (e *pipelineEnv) Close() {
	if e.Cache != nil {
		if err := e.Cache.Close(); err != nil {
			zap.L().Warn("close fetch cache", zap.Error(err))
		}
	}
}

// initEnv builds the full pipeline from config: stores, fetch cache,
// fetcher, pattern library, builder, resolver, and archiver.
func initEnv(ctx context.Context) (*pipelineEnv, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := store.New(cfg.Store)
	if err != nil {
		return nil, err
	}

	cachePath := cfg.Store.CachePath
	if cachePath == "" {
		cachePath = filepath.Join(cfg.Store.DataDir, "fetch_cache.db")
	}
	cache, err := store.NewFetchCache(cachePath)
	if err != nil {
		return nil, err
	}
	if err := cache.Migrate(ctx); err != nil {
		_ = cache.Close()
		return nil, eris.Wrap(err, "migrate fetch cache")
	}
	if n, err := cache.DeleteExpired(ctx); err != nil {
		zap.L().Warn("sweep fetch cache", zap.Error(err))
	} else if n > 0 {
		zap.L().Debug("swept expired cache entries", zap.Int("removed", n))
	}

	lib, err := pattern.LoadDir(cfg.Extract.PatternsDir)
	if err != nil {
		_ = cache.Close()
		return nil, err
	}

	aw, err := archive.New(filepath.Join(cfg.Store.DataDir, "deals_archive"))
	if err != nil {
		_ = cache.Close()
		return nil, err
	}

	cacheTTL := time.Duration(cfg.Store.CacheTTLHours) * time.Hour
	f := fetcher.New(cfg.Fetch, cache, cacheTTL)

	p := pipeline.New(
		*cfg,
		st,
		f,
		lib,
		builder.New(cfg.Extract),
		resolver.New(cfg.Pipeline.FreshnessDays),
		aw,
	)

	return &pipelineEnv{Pipeline: p, Store: st, Cache: cache}, nil
}
