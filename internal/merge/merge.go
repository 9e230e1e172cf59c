// Package merge collapses near-duplicate deal extractions into canonical
// schedule entries. Many raw extractions describing the same offering
// (overlapping days and times, same deal type) reduce to one record.
package merge

import (
	"strconv"
	"strings"

	"github.com/sips-and-steals/deals-cli/internal/model"
)

const minutesPerDay = 24 * 60

// Deals merges duplicates until no pair remains mergeable, so re-running on
// already-merged output is a no-op.
func Deals(deals []model.Deal) []model.Deal {
	out := append([]model.Deal(nil), deals...)

	for {
		merged := false
		for i := 0; i < len(out); i++ {
			for j := i + 1; j < len(out); {
				if duplicate(out[i], out[j]) {
					out[i] = combine(out[i], out[j])
					out = append(out[:j], out[j+1:]...)
					merged = true
				} else {
					j++
				}
			}
		}
		if !merged {
			return out
		}
	}
}

// duplicate reports whether two deals describe the same real-world offering:
// same type, intersecting day sets, overlapping time windows (or both
// all-day).
func duplicate(a, b model.Deal) bool {
	if a.DealType != b.DealType {
		return false
	}
	if !daysIntersect(a, b) {
		return false
	}
	return windowsOverlap(a, b)
}

func daysIntersect(a, b model.Deal) bool {
	for _, d := range a.DaysOfWeek {
		if b.HasDay(d) {
			return true
		}
	}
	return false
}

func windowsOverlap(a, b model.Deal) bool {
	if a.IsAllDay || b.IsAllDay {
		return a.IsAllDay && b.IsAllDay
	}

	s1, e1, ok1 := window(a)
	s2, e2, ok2 := window(b)
	if !ok1 || !ok2 {
		// Neither deal carries a parseable window: same type on the same
		// days is enough. A parseable window never matches a missing one.
		return !ok1 && !ok2
	}

	// Overnight windows were unrolled past midnight, so also test each
	// interval shifted by a day.
	return intervalsOverlap(s1, e1, s2, e2) ||
		intervalsOverlap(s1, e1, s2+minutesPerDay, e2+minutesPerDay) ||
		intervalsOverlap(s1+minutesPerDay, e1+minutesPerDay, s2, e2)
}

// window returns the deal's time span in minutes past midnight. An end at
// or before the start means the window crosses midnight and is unrolled
// into the next day. A missing end is read as a point-in-time start.
func window(d model.Deal) (start, end int, ok bool) {
	start, ok = parseHHMM(d.StartTime)
	if !ok {
		return 0, 0, false
	}
	end, ok = parseHHMM(d.EndTime)
	if !ok {
		return start, start + 1, true
	}
	if end <= start {
		end += minutesPerDay
	}
	return start, end, true
}

func intervalsOverlap(s1, e1, s2, e2 int) bool {
	return s1 < e2 && s2 < e1
}

func parseHHMM(s string) (int, bool) {
	if !model.ValidTimeOfDay(s) {
		return 0, false
	}
	h, _ := strconv.Atoi(s[:2])
	m, _ := strconv.Atoi(s[3:])
	return h*60 + m, true
}

// combine folds two duplicates into one. The higher-confidence record is
// the base and keeps its title, times, and price; days union, distinct
// notes concatenate, and the most recent scrape wins the source fields.
func combine(a, b model.Deal) model.Deal {
	base, other := a, b
	if other.ConfidenceScore > base.ConfidenceScore {
		base, other = other, base
	}

	base.DaysOfWeek = append(append([]model.Weekday(nil), base.DaysOfWeek...), other.DaysOfWeek...)
	base.SortDays()

	base.SpecialNotes = mergeNotes(base.SpecialNotes, other.SpecialNotes)

	if other.ScrapedAt.After(base.ScrapedAt) {
		base.ScrapedAt = other.ScrapedAt
		if other.SourceURL != "" {
			base.SourceURL = other.SourceURL
		}
	}
	return base
}

func mergeNotes(base, extra []string) []string {
	seen := make(map[string]bool, len(base))
	out := append([]string(nil), base...)
	for _, n := range base {
		seen[strings.ToLower(n)] = true
	}
	for _, n := range extra {
		key := strings.ToLower(n)
		if n == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}
