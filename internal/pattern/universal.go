package pattern

// universalSpecs is the generic extraction set used when a restaurant has no
// pattern file of its own. Ordering matters: higher-precision patterns come
// first so tie-breaks in the builder favor them.
var universalSpecs = []Spec{
	{
		Name:   "time_range",
		Regex:  `(?i)(\d{1,2}(?::\d{2})?\s*(?:am|pm)?)\s*(?:-|~|to|until)\s*(\d{1,2}(?::\d{2})?\s*(?:am|pm)|close)`,
		Fields: []string{"start", "end"},
		Weight: 0.9,
	},
	{
		Name:   "day_range",
		Regex:  `(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday|mon|tues?|weds?|thurs?|fri|sat|sun)\b\s*(?:-|through|thru)\s*\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday|mon|tues?|weds?|thurs?|fri|sat|sun)\b`,
		Fields: []string{"day_from", "day_to"},
		Weight: 0.85,
	},
	{
		Name:   "day_single",
		Regex:  `(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)s?\b`,
		Fields: []string{"day"},
		Weight: 0.6,
	},
	{
		Name:   "all_day",
		Regex:  `(?i)\b(every\s*day|everyday|daily|all\s*day|7\s*days(?:\s*a\s*week)?)\b`,
		Fields: []string{"all_day"},
		Weight: 0.7,
	},
	{
		Name:   "price",
		Regex:  `(\$\d+(?:\.\d{2})?(?:\s*-\s*\$?\d+(?:\.\d{2})?)?)`,
		Fields: []string{"price"},
		Weight: 0.5,
	},
	{
		Name:   "price_off",
		Regex:  `(?i)(half\s*(?:price|off)|\d+%\s*off|\$\d+\s*off)`,
		Fields: []string{"price"},
		Weight: 0.45,
	},
	{
		Name:   "title_heading",
		Regex:  `(?i)((?:happy|happii)\s*hour|drink\s+specials|bar\s+specials|daily\s+specials|brunch(?:\s+specials)?|early\s+bird|late\s+night(?:\s+menu)?)`,
		Fields: []string{"title"},
		Weight: 0.75,
	},
	// Keyword-presence signals: no captures, confidence boost only.
	{
		Name:   "happy_hour_keyword",
		Regex:  `(?i)happy\s*hour`,
		Weight: 0.3,
	},
	{
		Name:   "specials_keyword",
		Regex:  `(?i)(?:drink|bar|food)\s+specials`,
		Weight: 0.2,
	},
}

// UniversalSet returns the compiled generic pattern set. The specs are
// maintained alongside the tests that pin their behavior; compilation cannot
// fail for the built-in set, so errors are treated as programmer mistakes.
func UniversalSet() *Set {
	set, err := CompileSet("universal", universalSpecs)
	if err != nil {
		panic(err)
	}
	return set
}
