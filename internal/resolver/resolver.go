// Package resolver selects which deal set to present for a restaurant:
// fresh live data, stale live data, or the curated static fallback.
package resolver

import (
	"time"

	"go.uber.org/zap"

	"github.com/sips-and-steals/deals-cli/internal/model"
)

// StaticConfidence is stamped on every static fallback deal to signal
// reduced trust relative to live extractions.
const StaticConfidence = 0.3

// Tier labels where the resolved deals came from.
type Tier string

const (
	TierFreshLive Tier = "fresh_live"
	TierStaleLive Tier = "stale_live"
	TierStatic    Tier = "static"
	TierNone      Tier = "none"
)

// Resolver applies the three-tier fallback rule. Resolution is a pure
// function of the snapshot timestamps, the static list, and the clock
// passed in; it holds no state beyond the freshness window.
type Resolver struct {
	freshness time.Duration
}

// New builds a resolver with the given freshness window in days.
func New(freshnessDays int) *Resolver {
	if freshnessDays <= 0 {
		freshnessDays = 7
	}
	return &Resolver{freshness: time.Duration(freshnessDays) * 24 * time.Hour}
}

// Resolve picks the deal set for one restaurant. Among live snapshots the
// most recent one with deals wins entirely; snapshots are never merged
// across time. Live data beats static even when stale. Static deals are
// returned as copies stamped with StaticConfidence, never mutated.
func (r *Resolver) Resolve(snapshots []model.LiveDealSet, static []model.Deal, now time.Time) ([]model.Deal, Tier) {
	var latest *model.LiveDealSet
	for i := range snapshots {
		if len(snapshots[i].Deals) == 0 {
			continue
		}
		if latest == nil || snapshots[i].LastUpdated.After(latest.LastUpdated) {
			latest = &snapshots[i]
		}
	}

	if latest != nil {
		deals := append([]model.Deal(nil), latest.Deals...)
		if now.Sub(latest.LastUpdated) < r.freshness {
			return deals, TierFreshLive
		}
		zap.L().Debug("resolver: live data stale, serving anyway",
			zap.Time("last_updated", latest.LastUpdated),
		)
		return deals, TierStaleLive
	}

	if len(static) == 0 {
		return nil, TierNone
	}

	deals := make([]model.Deal, len(static))
	for i, d := range static {
		d.ConfidenceScore = StaticConfidence
		deals[i] = d
	}
	return deals, TierStatic
}
