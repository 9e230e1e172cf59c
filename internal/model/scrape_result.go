package model

import "time"

// ScrapeResult is the fetcher's unit of output for one URL attempt. It is
// ephemeral: consumed by the pattern matcher and discarded — only derived
// deals persist.
type ScrapeResult struct {
	RestaurantSlug string    `json:"restaurant_slug"`
	SourceURL      string    `json:"source_url"`
	Body           string    `json:"body,omitempty"`
	StatusCode     int       `json:"status_code,omitempty"`
	FetchedAt      time.Time `json:"fetched_at"`
	Error          string    `json:"error,omitempty"`
}

// OK reports whether the fetch produced a usable body.
func (s *ScrapeResult) OK() bool {
	return s.Error == "" && s.Body != ""
}
