package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sips-and-steals/deals-cli/internal/archive"
	"github.com/sips-and-steals/deals-cli/internal/builder"
	"github.com/sips-and-steals/deals-cli/internal/config"
	"github.com/sips-and-steals/deals-cli/internal/model"
	"github.com/sips-and-steals/deals-cli/internal/pattern"
	"github.com/sips-and-steals/deals-cli/internal/resolver"
	"github.com/sips-and-steals/deals-cli/internal/store"
)

var runNow = time.Date(2025, 6, 2, 17, 0, 0, 0, time.UTC)

// fakeFetcher serves canned bodies keyed by slug; slugs without a body fail
// every URL.
type fakeFetcher struct {
	bodies map[string]string
}

func (f *fakeFetcher) FetchRestaurant(_ context.Context, r model.Restaurant) []model.ScrapeResult {
	body, ok := f.bodies[r.Slug]
	if !ok {
		return []model.ScrapeResult{{
			RestaurantSlug: r.Slug,
			SourceURL:      r.Website,
			StatusCode:     503,
			Error:          "server unavailable",
		}}
	}
	return []model.ScrapeResult{{
		RestaurantSlug: r.Slug,
		SourceURL:      r.Website,
		StatusCode:     200,
		Body:           body,
		FetchedAt:      runNow,
	}}
}

func testPipeline(t *testing.T, bodies map[string]string) (*Pipeline, *store.Store) {
	t.Helper()

	dataDir := t.TempDir()
	st, err := store.New(config.StoreConfig{DataDir: dataDir, MaxBackups: 3})
	require.NoError(t, err)
	st.WithNow(func() time.Time { return runNow })

	aw, err := archive.New(filepath.Join(dataDir, "deals_archive"))
	require.NoError(t, err)
	aw.WithNow(func() time.Time { return runNow })

	cfg := config.Config{}
	cfg.Pipeline.Workers = 2
	cfg.Pipeline.FreshnessDays = 7

	b := builder.New(config.ExtractConfig{ProximityChars: 200, MinConfidence: 0.3}).
		WithNow(func() time.Time { return runNow })

	p := New(cfg, st, &fakeFetcher{bodies: bodies}, pattern.NewLibrary(), b, resolver.New(7), aw).
		WithNow(func() time.Time { return runNow })
	return p, st
}

func seedRestaurants(t *testing.T, st *store.Store) {
	t.Helper()
	require.NoError(t, st.SaveRestaurants(map[string]model.Restaurant{
		"the-tavern": {
			Name:          "The Tavern",
			Slug:          "the-tavern",
			District:      "LoDo",
			Website:       "https://tavern.example.com",
			ScrapeEnabled: true,
		},
		"flaky-bar": {
			Name:          "Flaky Bar",
			Slug:          "flaky-bar",
			District:      "LoDo",
			Website:       "https://flaky.example.com",
			ScrapeEnabled: true,
			StaticDeals: []model.Deal{
				{Title: "Curated HH", DealType: model.DealTypeHappyHour, IsAllDay: true, ConfidenceScore: 1.0},
			},
		},
		"no-website": {
			Name:     "No Website",
			Slug:     "no-website",
			District: "RiNo",
		},
	}))
}

func TestRun_ScrapesAndPersists(t *testing.T) {
	p, st := testPipeline(t, map[string]string{
		"the-tavern": "Happy Hour Monday - Friday 3pm - 6pm $5 wings",
	})
	seedRestaurants(t, st)

	stats, err := p.Run(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Restaurants)
	assert.Equal(t, 1, stats.Scraped)
	assert.Equal(t, 1, stats.Failed, "flaky-bar has no fetchable body")
	assert.Equal(t, 1, stats.Skipped, "no-website is not scrapable")
	assert.Equal(t, 1, stats.DealsFound)

	live, err := st.LoadLiveDeals()
	require.NoError(t, err)
	require.Contains(t, live, "the-tavern")
	require.Len(t, live["the-tavern"].Deals, 1)
	deal := live["the-tavern"].Deals[0]
	assert.Equal(t, "15:00", deal.StartTime)
	assert.Equal(t, "18:00", deal.EndTime)
	assert.Equal(t, runNow, live["the-tavern"].LastUpdated)
}

func TestRun_FailedScrapeFallsBackToStaticInArchive(t *testing.T) {
	p, st := testPipeline(t, map[string]string{
		"the-tavern": "Happy Hour Monday - Friday 3pm - 6pm",
	})
	seedRestaurants(t, st)

	stats, err := p.Run(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, 1, stats.TierCounts[resolver.TierFreshLive])
	assert.Equal(t, 1, stats.TierCounts[resolver.TierStatic])
	assert.Equal(t, 1, stats.TierCounts[resolver.TierNone])
}

func TestRun_DistrictFilter(t *testing.T) {
	p, st := testPipeline(t, map[string]string{
		"the-tavern": "Happy Hour Monday - Friday 3pm - 6pm",
	})
	seedRestaurants(t, st)

	stats, err := p.Run(context.Background(), "RiNo")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Scraped)
	assert.Equal(t, 3, stats.Skipped)
}

func TestRun_FailedScrapeKeepsPriorSnapshot(t *testing.T) {
	p, st := testPipeline(t, nil)
	seedRestaurants(t, st)

	prior := map[string]model.LiveDealSet{
		"flaky-bar": {
			LastUpdated: runNow.Add(-48 * time.Hour),
			Deals:       []model.Deal{{Title: "Old HH", DealType: model.DealTypeHappyHour, IsAllDay: true}},
		},
	}
	require.NoError(t, st.SaveLiveDeals(prior))

	_, err := p.Run(context.Background(), "")
	require.NoError(t, err)

	live, err := st.LoadLiveDeals()
	require.NoError(t, err)
	require.Contains(t, live, "flaky-bar")
	assert.Equal(t, "Old HH", live["flaky-bar"].Deals[0].Title)
}

func TestRun_SecondRunBlockedByLock(t *testing.T) {
	p, st := testPipeline(t, nil)
	seedRestaurants(t, st)

	require.NoError(t, st.Lock())
	_, err := p.Run(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lock")
}

func TestResolveAll(t *testing.T) {
	p, st := testPipeline(t, nil)
	seedRestaurants(t, st)

	require.NoError(t, st.SaveLiveDeals(map[string]model.LiveDealSet{
		"the-tavern": {
			LastUpdated: runNow.Add(-24 * time.Hour),
			Deals:       []model.Deal{{Title: "Live HH", DealType: model.DealTypeHappyHour, IsAllDay: true, ConfidenceScore: 0.8}},
		},
	}))

	schedules, err := p.ResolveAll("", runNow)
	require.NoError(t, err)
	require.Len(t, schedules, 2, "no-website has no data at all")

	// Sorted by slug: flaky-bar then the-tavern.
	assert.Equal(t, "flaky-bar", schedules[0].Restaurant.Slug)
	assert.Equal(t, resolver.TierStatic, schedules[0].Tier)
	assert.Equal(t, 0.3, schedules[0].Deals[0].ConfidenceScore)

	assert.Equal(t, "the-tavern", schedules[1].Restaurant.Slug)
	assert.Equal(t, resolver.TierFreshLive, schedules[1].Tier)
	assert.Equal(t, "Live HH", schedules[1].Deals[0].Title)
}

func TestResolveAll_DistrictFilter(t *testing.T) {
	p, st := testPipeline(t, nil)
	seedRestaurants(t, st)

	schedules, err := p.ResolveAll("RiNo", runNow)
	require.NoError(t, err)
	assert.Empty(t, schedules, "no-website has neither live nor static deals")
}
