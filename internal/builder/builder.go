// Package builder assembles raw pattern matches into validated Deal records.
package builder

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sips-and-steals/deals-cli/internal/config"
	"github.com/sips-and-steals/deals-cli/internal/model"
	"github.com/sips-and-steals/deals-cli/internal/pattern"
)

const (
	defaultProximity = 200
	maxSnippetLen    = 280
)

// Rejection records why a candidate group did not become a Deal. These are
// diagnostics for pattern tuning, not user-facing errors.
type Rejection struct {
	Snippet    string   `json:"snippet"`
	Reasons    []string `json:"reasons"`
	Confidence float64  `json:"confidence"`
}

// Result is the outcome of building one (restaurant, source URL) pair.
type Result struct {
	Deals      []model.Deal
	Rejections []Rejection
}

// Builder turns raw matches into Deals.
type Builder struct {
	proximity     int
	minConfidence float64
	nowFunc       func() time.Time
}

// New builds a Builder from extraction config.
func New(cfg config.ExtractConfig) *Builder {
	proximity := cfg.ProximityChars
	if proximity <= 0 {
		proximity = defaultProximity
	}
	return &Builder{
		proximity:     proximity,
		minConfidence: cfg.MinConfidence,
		nowFunc:       time.Now,
	}
}

// WithNow overrides the clock, for tests.
func (b *Builder) WithNow(now func() time.Time) *Builder {
	b.nowFunc = now
	return b
}

// Build groups the raw matches by proximity and assembles one Deal per group.
// Groups that fail validation or score below the confidence floor are
// recorded as rejections.
func (b *Builder) Build(slug, sourceURL string, sections []pattern.Section, matches []pattern.RawMatch) Result {
	var res Result

	for _, g := range b.group(matches) {
		deal, rej := b.assemble(sourceURL, sections, g)
		if rej != nil {
			res.Rejections = append(res.Rejections, *rej)
			zap.L().Debug("builder: rejected candidate",
				zap.String("restaurant", slug),
				zap.Strings("reasons", rej.Reasons),
				zap.Float64("confidence", rej.Confidence),
			)
			continue
		}
		res.Deals = append(res.Deals, *deal)
	}

	zap.L().Debug("builder: built deals",
		zap.String("restaurant", slug),
		zap.Int("deals", len(res.Deals)),
		zap.Int("rejected", len(res.Rejections)),
	)
	return res
}

// group clusters matches that sit within proximity characters of each other
// in the same section. Matches further apart describe different deals.
func (b *Builder) group(matches []pattern.RawMatch) [][]pattern.RawMatch {
	if len(matches) == 0 {
		return nil
	}

	sorted := make([]pattern.RawMatch, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Section != sorted[j].Section {
			return sorted[i].Section < sorted[j].Section
		}
		return sorted[i].Start < sorted[j].Start
	})

	var groups [][]pattern.RawMatch
	current := []pattern.RawMatch{sorted[0]}
	lastEnd := sorted[0].End

	for _, m := range sorted[1:] {
		prev := current[len(current)-1]
		if m.Section != prev.Section || m.Start-lastEnd > b.proximity {
			groups = append(groups, current)
			current = nil
			lastEnd = 0
		}
		current = append(current, m)
		if m.End > lastEnd {
			lastEnd = m.End
		}
	}
	return append(groups, current)
}

// assemble resolves field precedence inside one group and builds the Deal.
func (b *Builder) assemble(sourceURL string, sections []pattern.Section, group []pattern.RawMatch) (*model.Deal, *Rejection) {
	snippet := groupSnippet(sections, group)

	var contributing []float64
	deal := &model.Deal{
		ID:        uuid.NewString(),
		SourceURL: sourceURL,
		ScrapedAt: b.nowFunc(),
	}

	if w, ok := b.resolveTime(deal, group); ok {
		contributing = append(contributing, w)
	}
	if w, ok := b.resolveDays(deal, group); ok {
		contributing = append(contributing, w)
	}
	if m := bestWithField(group, "price"); m != nil {
		deal.Price = strings.TrimSpace(m.Fields["price"])
		contributing = append(contributing, m.Weight)
	}

	var extractedTitle string
	if m := bestWithField(group, "title"); m != nil {
		extractedTitle = m.Fields["title"]
		contributing = append(contributing, m.Weight)
	}
	if w, ok := resolveNotes(deal, group); ok {
		contributing = append(contributing, w)
	}

	if deal.StartTime == "" && len(deal.DaysOfWeek) == 0 && !deal.IsAllDay {
		return nil, &Rejection{Snippet: snippet, Reasons: []string{"no time or day fields matched"}}
	}

	deal.Description = snippet
	deal.DealType = classify(extractedTitle, snippet)
	deal.Title = displayTitle(extractedTitle, deal.DealType)
	deal.SortDays()
	deal.ConfidenceScore = b.score(deal, group, contributing)

	if issues := deal.Validate(); len(issues) > 0 {
		return nil, &Rejection{Snippet: snippet, Reasons: issues, Confidence: deal.ConfidenceScore}
	}
	if deal.ConfidenceScore < b.minConfidence {
		return nil, &Rejection{
			Snippet:    snippet,
			Reasons:    []string{"confidence below floor"},
			Confidence: deal.ConfidenceScore,
		}
	}
	return deal, nil
}

// score averages the contributing match weights, adds a small boost per
// distinct keyword-presence signal, and halves the result when the group
// produced no day information at all.
func (b *Builder) score(deal *model.Deal, group []pattern.RawMatch, contributing []float64) float64 {
	if len(contributing) == 0 {
		return 0
	}

	var sum float64
	for _, w := range contributing {
		sum += w
	}
	conf := sum / float64(len(contributing))

	seen := make(map[string]bool)
	for _, m := range group {
		if m.Fields == nil && !seen[m.Pattern] {
			seen[m.Pattern] = true
			conf += m.Weight / 10
		}
	}
	if conf > 1 {
		conf = 1
	}

	if len(deal.DaysOfWeek) == 0 && !deal.IsAllDay {
		conf *= 0.5
	}
	return conf
}

// resolveTime picks the strongest time match and normalizes it, falling back
// to weaker candidates when the strongest fails to parse.
func (b *Builder) resolveTime(deal *model.Deal, group []pattern.RawMatch) (float64, bool) {
	for _, m := range candidatesWithField(group, "start") {
		if end, ok := m.Fields["end"]; ok {
			start24, end24, parsed := normalizeWindow(m.Fields["start"], end)
			if !parsed {
				continue
			}
			deal.StartTime, deal.EndTime = start24, end24
			return m.Weight, true
		}
		start24, parsed := normalizeStart(m.Fields["start"])
		if !parsed {
			continue
		}
		deal.StartTime = start24
		return m.Weight, true
	}
	return 0, false
}

// resolveDays picks among day-range, all-day, and single-day matches. A
// range or all-day marker beats singles by weight; lone day mentions union.
func (b *Builder) resolveDays(deal *model.Deal, group []pattern.RawMatch) (float64, bool) {
	rangeMatch := bestWithField(group, "day_from")
	allDayMatch := bestWithField(group, "all_day")

	best := rangeMatch
	if allDayMatch != nil && (best == nil || better(*allDayMatch, *best)) {
		best = allDayMatch
	}

	if best != nil {
		if _, isAllDay := best.Fields["all_day"]; isAllDay {
			deal.IsAllDay = true
			deal.DaysOfWeek = append([]model.Weekday(nil), model.AllWeekdays...)
			return best.Weight, true
		}
		days, ok := expandDayRange(best.Fields["day_from"], best.Fields["day_to"])
		if ok {
			deal.DaysOfWeek = days
			return best.Weight, true
		}
	}

	var weight float64
	for _, m := range candidatesWithField(group, "day") {
		day, ok := model.ParseWeekday(m.Fields["day"])
		if !ok {
			continue
		}
		deal.DaysOfWeek = append(deal.DaysOfWeek, day)
		if m.Weight > weight {
			weight = m.Weight
		}
	}
	if len(deal.DaysOfWeek) == 0 {
		return 0, false
	}
	return weight, true
}

func resolveNotes(deal *model.Deal, group []pattern.RawMatch) (float64, bool) {
	var weight float64
	seen := make(map[string]bool)
	for _, m := range candidatesWithField(group, "note") {
		note := strings.TrimSpace(m.Fields["note"])
		if note == "" || seen[note] {
			continue
		}
		seen[note] = true
		deal.SpecialNotes = append(deal.SpecialNotes, note)
		if m.Weight > weight {
			weight = m.Weight
		}
	}
	return weight, len(deal.SpecialNotes) > 0
}

// better orders matches by weight, then declaration order, then position.
func better(a, b pattern.RawMatch) bool {
	if a.Weight != b.Weight {
		return a.Weight > b.Weight
	}
	if a.Order != b.Order {
		return a.Order < b.Order
	}
	return a.Start < b.Start
}

func bestWithField(group []pattern.RawMatch, field string) *pattern.RawMatch {
	var best *pattern.RawMatch
	for i := range group {
		if _, ok := group[i].Fields[field]; !ok {
			continue
		}
		if best == nil || better(group[i], *best) {
			best = &group[i]
		}
	}
	return best
}

// candidatesWithField returns matches carrying the field, strongest first.
func candidatesWithField(group []pattern.RawMatch, field string) []pattern.RawMatch {
	var out []pattern.RawMatch
	for _, m := range group {
		if _, ok := m.Fields[field]; ok {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return better(out[i], out[j]) })
	return out
}

// groupSnippet slices the section text spanned by the group for diagnostics
// and classification.
func groupSnippet(sections []pattern.Section, group []pattern.RawMatch) string {
	if len(group) == 0 {
		return ""
	}
	sec := group[0].Section
	if sec < 0 || sec >= len(sections) {
		return ""
	}
	lo, hi := group[0].Start, group[0].End
	for _, m := range group {
		if m.Start < lo {
			lo = m.Start
		}
		if m.End > hi {
			hi = m.End
		}
	}
	text := sections[sec].Text
	if lo < 0 {
		lo = 0
	}
	if hi > len(text) {
		hi = len(text)
	}
	snippet := strings.TrimSpace(text[lo:hi])
	if len(snippet) > maxSnippetLen {
		snippet = snippet[:maxSnippetLen]
	}
	return snippet
}
