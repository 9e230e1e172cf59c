package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sips-and-steals/deals-cli/internal/config"
	"github.com/sips-and-steals/deals-cli/internal/model"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(config.StoreConfig{DataDir: t.TempDir(), MaxBackups: 3})
	require.NoError(t, err)
	return s
}

func sampleRestaurants() map[string]model.Restaurant {
	return map[string]model.Restaurant{
		"the-tavern": {
			Name:          "The Tavern",
			Slug:          "the-tavern",
			District:      "LoDo",
			Website:       "https://example.com",
			ScrapeEnabled: true,
			StaticDeals: []model.Deal{
				{Title: "Static HH", DealType: model.DealTypeHappyHour, IsAllDay: true, ConfidenceScore: 1.0},
			},
		},
		"hapa-sushi": {
			Name:     "Hapa Sushi",
			Slug:     "hapa-sushi",
			District: "Cherry Creek",
		},
	}
}

func TestRestaurants_RoundTrip(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.SaveRestaurants(sampleRestaurants()))

	got, err := s.LoadRestaurants()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "The Tavern", got["the-tavern"].Name)
	assert.Equal(t, "LoDo", got["the-tavern"].District)
	assert.Len(t, got["the-tavern"].StaticDeals, 1)
}

func TestLoadRestaurants_Missing(t *testing.T) {
	s := testStore(t)
	got, err := s.LoadRestaurants()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoadRestaurants_FillsSlugAndDistrictFromKeys(t *testing.T) {
	s := testStore(t)
	doc := `{"areas": {"RiNo": {"bar-x": {"name": "Bar X"}}}}`
	require.NoError(t, os.WriteFile(filepath.Join(s.dataDir, restaurantsFile), []byte(doc), 0o644))

	got, err := s.LoadRestaurants()
	require.NoError(t, err)
	require.Contains(t, got, "bar-x")
	assert.Equal(t, "bar-x", got["bar-x"].Slug)
	assert.Equal(t, "RiNo", got["bar-x"].District)
}

func TestLiveDeals_RoundTrip(t *testing.T) {
	s := testStore(t)
	live := map[string]model.LiveDealSet{
		"the-tavern": {
			LastUpdated: time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC),
			Deals:       []model.Deal{{Title: "HH", DealType: model.DealTypeHappyHour, IsAllDay: true}},
		},
	}

	require.NoError(t, s.SaveLiveDeals(live))
	got, err := s.LoadLiveDeals()
	require.NoError(t, err)
	assert.Equal(t, live, got)
}

func TestWrite_StrayTempNeverCorruptsStore(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.SaveRestaurants(sampleRestaurants()))

	// A crash before rename leaves a temp file behind; the committed file
	// must still read back cleanly.
	stray := filepath.Join(s.dataDir, restaurantsFile+".tmp-crashed")
	require.NoError(t, os.WriteFile(stray, []byte("{truncated"), 0o644))

	got, err := s.LoadRestaurants()
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestLock_SecondAcquireFails(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.Lock())
	err := s.Lock()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lock")

	require.NoError(t, s.Unlock())
	assert.NoError(t, s.Lock())
}

func TestUnlock_Idempotent(t *testing.T) {
	s := testStore(t)
	assert.NoError(t, s.Unlock())
}

func TestBackup_PrunesBeyondLimit(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.SaveRestaurants(sampleRestaurants()))

	base := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		offset := time.Duration(i) * time.Hour
		s.WithNow(func() time.Time { return base.Add(offset) })
		require.NoError(t, s.Backup())
	}

	entries, err := os.ReadDir(filepath.Join(s.dataDir, backupDirName))
	require.NoError(t, err)
	assert.Len(t, entries, 3, "only the newest backups survive")

	// Oldest two are gone.
	for _, e := range entries {
		assert.NotEqual(t, "backup_20250602_080000", e.Name())
		assert.NotEqual(t, "backup_20250602_090000", e.Name())
	}
}

func TestBackup_CopiesDataFiles(t *testing.T) {
	s := testStore(t).WithNow(func() time.Time {
		return time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	})
	require.NoError(t, s.SaveRestaurants(sampleRestaurants()))
	require.NoError(t, s.Backup())

	copied := filepath.Join(s.dataDir, backupDirName, "backup_20250602_080000", restaurantsFile)
	data, err := os.ReadFile(copied)
	require.NoError(t, err)
	assert.Contains(t, string(data), "the-tavern")
}
