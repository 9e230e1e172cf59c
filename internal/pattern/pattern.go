// Package pattern applies ordered, weighted regular expressions to restaurant
// page text to produce raw candidate matches for the deal builder.
package pattern

import (
	"regexp"

	"github.com/rotisserie/eris"
)

// Spec is the declarative form of a pattern as authored in config files.
type Spec struct {
	// Name identifies the pattern in diagnostics.
	Name string `yaml:"name"`
	// Regex is the Go regular expression. Capture groups map positionally
	// onto Fields. A pattern with no capture groups is a keyword-presence
	// signal: it contributes its weight without producing field values.
	Regex string `yaml:"regex"`
	// Fields names each capture group, in order. Recognized field names:
	// start, end, day, day_from, day_to, all_day, price, title, note.
	Fields []string `yaml:"fields"`
	// Weight is the confidence contribution in [0,1].
	Weight float64 `yaml:"weight"`
}

// Pattern is a compiled Spec.
type Pattern struct {
	Name   string
	Fields []string
	Weight float64
	re     *regexp.Regexp
}

// Compile validates and compiles a pattern spec.
func Compile(s Spec) (Pattern, error) {
	if s.Name == "" {
		return Pattern{}, eris.New("pattern: name is required")
	}
	if s.Weight < 0 || s.Weight > 1 {
		return Pattern{}, eris.Errorf("pattern %s: weight %.2f out of [0,1]", s.Name, s.Weight)
	}
	re, err := regexp.Compile(s.Regex)
	if err != nil {
		return Pattern{}, eris.Wrapf(err, "pattern %s: compile", s.Name)
	}
	if got, want := re.NumSubexp(), len(s.Fields); got != want && want != 0 {
		return Pattern{}, eris.Errorf("pattern %s: %d capture groups but %d fields", s.Name, got, want)
	}
	return Pattern{Name: s.Name, Fields: s.Fields, Weight: s.Weight, re: re}, nil
}

// Set is an ordered list of patterns tried against each text section.
// Declaration order doubles as the tie-break order in the deal builder.
type Set struct {
	Name     string
	Patterns []Pattern
}

// CompileSet compiles a list of specs into a Set, failing on the first bad
// spec — malformed pattern config is a startup error, not a per-run warning.
func CompileSet(name string, specs []Spec) (*Set, error) {
	set := &Set{Name: name, Patterns: make([]Pattern, 0, len(specs))}
	for _, s := range specs {
		p, err := Compile(s)
		if err != nil {
			return nil, err
		}
		set.Patterns = append(set.Patterns, p)
	}
	return set, nil
}

// RawMatch is one pattern firing at one location. All candidate matches are
// retained — overlapping or competing matches are reconciled downstream by
// the deal builder, not here.
type RawMatch struct {
	Pattern string
	// Fields maps recognized field names to captured values. Empty for
	// keyword-presence patterns.
	Fields map[string]string
	Weight float64
	// Order is the pattern's declaration index, used for tie-breaks.
	Order int
	// Section and Start/End locate the match for proximity grouping.
	Section int
	Start   int
	End     int
}

// MatchSection runs every pattern against one text section, in order.
func (s *Set) MatchSection(section int, text string) []RawMatch {
	var matches []RawMatch
	for order, p := range s.Patterns {
		locs := p.re.FindAllStringSubmatchIndex(text, -1)
		for _, loc := range locs {
			m := RawMatch{
				Pattern: p.Name,
				Weight:  p.Weight,
				Order:   order,
				Section: section,
				Start:   loc[0],
				End:     loc[1],
			}
			if len(p.Fields) > 0 {
				m.Fields = make(map[string]string, len(p.Fields))
				for gi, field := range p.Fields {
					lo, hi := loc[2+2*gi], loc[3+2*gi]
					if lo >= 0 && hi >= 0 {
						m.Fields[field] = text[lo:hi]
					}
				}
			}
			matches = append(matches, m)
		}
	}
	return matches
}

// Match preprocesses a fetched page and runs the set against each discovered
// section.
func (s *Set) Match(html string) []RawMatch {
	var matches []RawMatch
	for i, section := range ExtractSections(html) {
		matches = append(matches, s.MatchSection(i, section.Text)...)
	}
	return matches
}
