package model

import "time"

// Restaurant is a venue entity identified by a stable slug. Static deals are
// curated fallback data owned by the restaurant; live deals are keyed by slug
// in the live store and replaced wholesale on each successful scrape.
type Restaurant struct {
	Name         string   `json:"name"`
	Slug         string   `json:"slug"`
	District     string   `json:"district"`
	Neighborhood string   `json:"neighborhood,omitempty"`
	Address      string   `json:"address,omitempty"`
	Cuisine      string   `json:"cuisine,omitempty"`
	Website      string   `json:"website,omitempty"`
	Websites     []string `json:"websites,omitempty"`
	Phone        string   `json:"phone,omitempty"`

	StaticDeals  []Deal   `json:"static_deals,omitempty"`
	SpecialNotes []string `json:"special_notes,omitempty"`

	// PatternSet names a per-restaurant pattern file; empty means the
	// universal pattern set.
	PatternSet string `json:"pattern_set,omitempty"`

	ScrapeEnabled bool `json:"scrape_enabled"`
}

// CandidateURLs returns the URLs to try, in configured order.
func (r *Restaurant) CandidateURLs() []string {
	if len(r.Websites) > 0 {
		return r.Websites
	}
	if r.Website != "" {
		return []string{r.Website}
	}
	return nil
}

// Scrapable reports whether the restaurant has anything to fetch.
func (r *Restaurant) Scrapable() bool {
	return r.ScrapeEnabled && len(r.CandidateURLs()) > 0
}

// LiveDealSet holds the most recent scraped deals for one restaurant.
type LiveDealSet struct {
	Deals       []Deal    `json:"deals"`
	LastUpdated time.Time `json:"last_updated"`
}
