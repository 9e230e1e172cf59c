package pipeline

import (
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sips-and-steals/deals-cli/internal/model"
	"github.com/sips-and-steals/deals-cli/internal/resolver"
)

// ResolvedSchedule is one restaurant's canonical deal schedule with the
// fallback tier it came from.
type ResolvedSchedule struct {
	Restaurant model.Restaurant `json:"restaurant"`
	Deals      []model.Deal     `json:"deals"`
	Tier       resolver.Tier    `json:"tier"`
}

// ResolveAll loads the stores and resolves every restaurant's schedule,
// without scraping. Restaurants with no data at all are omitted.
func (p *Pipeline) ResolveAll(district string, now time.Time) ([]ResolvedSchedule, error) {
	restaurants, err := p.store.LoadRestaurants()
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load restaurants")
	}
	live, err := p.store.LoadLiveDeals()
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load live deals")
	}

	var schedules []ResolvedSchedule
	for slug, r := range restaurants {
		if district != "" && r.District != district {
			continue
		}
		deals, tier := p.resolveOne(live, slug, r, now)
		if tier == resolver.TierNone {
			continue
		}
		schedules = append(schedules, ResolvedSchedule{
			Restaurant: r,
			Deals:      deals,
			Tier:       tier,
		})
	}

	sort.Slice(schedules, func(i, j int) bool {
		return schedules[i].Restaurant.Slug < schedules[j].Restaurant.Slug
	})
	return schedules, nil
}
