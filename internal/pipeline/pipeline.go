// Package pipeline orchestrates the full scrape run: fetch each
// restaurant's pages, match patterns, build deals, and persist live
// snapshots plus daily archives.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sips-and-steals/deals-cli/internal/archive"
	"github.com/sips-and-steals/deals-cli/internal/builder"
	"github.com/sips-and-steals/deals-cli/internal/config"
	"github.com/sips-and-steals/deals-cli/internal/merge"
	"github.com/sips-and-steals/deals-cli/internal/model"
	"github.com/sips-and-steals/deals-cli/internal/pattern"
	"github.com/sips-and-steals/deals-cli/internal/resolver"
	"github.com/sips-and-steals/deals-cli/internal/store"
)

// RestaurantFetcher abstracts the fetch layer so runs can be tested without
// a network. Implemented by fetcher.Fetcher.
type RestaurantFetcher interface {
	FetchRestaurant(ctx context.Context, r model.Restaurant) []model.ScrapeResult
}

// Stats aggregates one run's outcomes.
type Stats struct {
	Restaurants int `json:"restaurants"`
	Scraped     int `json:"scraped"`
	Failed      int `json:"failed"`
	Skipped     int `json:"skipped"`
	DealsFound  int `json:"deals_found"`
	Rejections  int `json:"rejections"`

	TierCounts map[resolver.Tier]int `json:"tier_counts"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Pipeline wires the scrape stages together.
type Pipeline struct {
	cfg      config.Config
	store    *store.Store
	fetcher  RestaurantFetcher
	library  *pattern.Library
	builder  *builder.Builder
	resolver *resolver.Resolver
	archiver *archive.Writer
	nowFunc  func() time.Time
}

// New assembles a pipeline from its stages.
func New(cfg config.Config, st *store.Store, f RestaurantFetcher, lib *pattern.Library, b *builder.Builder, r *resolver.Resolver, aw *archive.Writer) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		store:    st,
		fetcher:  f,
		library:  lib,
		builder:  b,
		resolver: r,
		archiver: aw,
		nowFunc:  time.Now,
	}
}

// WithNow overrides the clock, for tests.
func (p *Pipeline) WithNow(now func() time.Time) *Pipeline {
	p.nowFunc = now
	return p
}

// Run scrapes every scrapable restaurant (optionally filtered by district),
// replaces their live snapshots, and archives the resolved schedules.
// Per-restaurant failures are isolated: one bad site never aborts the run.
func (p *Pipeline) Run(ctx context.Context, district string) (*Stats, error) {
	if err := p.store.Lock(); err != nil {
		return nil, err
	}
	defer func() {
		if err := p.store.Unlock(); err != nil {
			zap.L().Warn("pipeline: release lock", zap.Error(err))
		}
	}()

	restaurants, err := p.store.LoadRestaurants()
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load restaurants")
	}
	live, err := p.store.LoadLiveDeals()
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load live deals")
	}

	stats := &Stats{
		TierCounts: make(map[resolver.Tier]int),
		StartedAt:  p.nowFunc(),
	}

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())

	for slug := range restaurants {
		r := restaurants[slug]

		mu.Lock()
		stats.Restaurants++
		mu.Unlock()

		if district != "" && r.District != district {
			mu.Lock()
			stats.Skipped++
			mu.Unlock()
			continue
		}
		if !r.Scrapable() {
			mu.Lock()
			stats.Skipped++
			mu.Unlock()
			continue
		}

		g.Go(func() error {
			deals, rejections := p.scrapeOne(gCtx, r)

			mu.Lock()
			defer mu.Unlock()
			stats.Rejections += rejections
			if deals == nil {
				stats.Failed++
				return nil
			}
			stats.Scraped++
			stats.DealsFound += len(deals)
			live[r.Slug] = model.LiveDealSet{Deals: deals, LastUpdated: p.nowFunc()}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return stats, eris.Wrap(err, "pipeline: run cancelled")
	}

	if err := p.store.Backup(); err != nil {
		zap.L().Warn("pipeline: backup failed", zap.Error(err))
	}
	if err := p.store.SaveLiveDeals(live); err != nil {
		return stats, eris.Wrap(err, "pipeline: save live deals")
	}

	p.archiveResolved(restaurants, live, stats)
	if _, err := p.archiver.Prune(p.cfg.Pipeline.ArchiveDays); err != nil {
		zap.L().Warn("pipeline: archive prune failed", zap.Error(err))
	}
	stats.FinishedAt = p.nowFunc()

	zap.L().Info("pipeline: run complete",
		zap.Int("restaurants", stats.Restaurants),
		zap.Int("scraped", stats.Scraped),
		zap.Int("failed", stats.Failed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("deals", stats.DealsFound),
	)
	return stats, nil
}

// scrapeOne runs fetch, match, and build for a single restaurant. A nil
// deal slice means no page fetched successfully; an empty non-nil slice
// means pages fetched but nothing extracted.
func (p *Pipeline) scrapeOne(ctx context.Context, r model.Restaurant) ([]model.Deal, int) {
	results := p.fetcher.FetchRestaurant(ctx, r)

	set := p.library.ForRestaurant(r.PatternSet)
	deals := []model.Deal(nil)
	rejections := 0
	fetched := false

	for _, res := range results {
		if !res.OK() {
			continue
		}
		fetched = true

		sections := pattern.ExtractSections(res.Body)
		var matches []pattern.RawMatch
		for i, sec := range sections {
			matches = append(matches, set.MatchSection(i, sec.Text)...)
		}

		built := p.builder.Build(r.Slug, res.SourceURL, sections, matches)
		deals = append(deals, built.Deals...)
		rejections += len(built.Rejections)
	}

	if !fetched {
		return nil, rejections
	}

	deals = merge.Deals(deals)
	zap.L().Debug("pipeline: restaurant scraped",
		zap.String("slug", r.Slug),
		zap.Int("deals", len(deals)),
	)
	if deals == nil {
		deals = []model.Deal{}
	}
	return deals, rejections
}

// archiveResolved resolves every restaurant's schedule and writes the daily
// archive snapshot. Archival is best-effort and never fails the run.
func (p *Pipeline) archiveResolved(restaurants map[string]model.Restaurant, live map[string]model.LiveDealSet, stats *Stats) {
	now := p.nowFunc()
	for slug, r := range restaurants {
		deals, tier := p.resolveOne(live, slug, r, now)
		stats.TierCounts[tier]++
		if tier == resolver.TierNone {
			continue
		}
		if err := p.archiver.Write(slug, deals); err != nil {
			zap.L().Warn("pipeline: archive write failed",
				zap.String("slug", slug),
				zap.Error(err),
			)
		}
	}
}

func (p *Pipeline) resolveOne(live map[string]model.LiveDealSet, slug string, r model.Restaurant, now time.Time) ([]model.Deal, resolver.Tier) {
	var snapshots []model.LiveDealSet
	if set, ok := live[slug]; ok {
		snapshots = append(snapshots, set)
	}
	deals, tier := p.resolver.Resolve(snapshots, r.StaticDeals, now)
	return merge.Deals(deals), tier
}

func (p *Pipeline) workers() int {
	if p.cfg.Pipeline.Workers > 0 {
		return p.cfg.Pipeline.Workers
	}
	return 2
}
