package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DealType classifies a deal. The set is extensible; unknown values parse
// to DealTypeOther rather than failing.
type DealType string

const (
	DealTypeHappyHour    DealType = "happy_hour"
	DealTypeDailySpecial DealType = "daily_special"
	DealTypeBrunch       DealType = "brunch"
	DealTypeEarlyBird    DealType = "early_bird"
	DealTypeLateNight    DealType = "late_night"
	DealTypeSeasonal     DealType = "seasonal"
	DealTypeOther        DealType = "other"
)

// ParseDealType maps a stored string onto a known deal type.
func ParseDealType(s string) DealType {
	switch DealType(strings.ToLower(strings.TrimSpace(s))) {
	case DealTypeHappyHour, DealTypeDailySpecial, DealTypeBrunch,
		DealTypeEarlyBird, DealTypeLateNight, DealTypeSeasonal:
		return DealType(strings.ToLower(strings.TrimSpace(s)))
	default:
		return DealTypeOther
	}
}

// Weekday is a lowercase full day name ("monday" .. "sunday").
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// AllWeekdays lists the week in calendar order, Monday first.
var AllWeekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var weekdayIndex = map[Weekday]int{
	Monday: 0, Tuesday: 1, Wednesday: 2, Thursday: 3, Friday: 4, Saturday: 5, Sunday: 6,
}

// Index returns the calendar position of the day (Monday=0) or -1 when unknown.
func (w Weekday) Index() int {
	if i, ok := weekdayIndex[w]; ok {
		return i
	}
	return -1
}

var weekdayAliases = map[string]Weekday{
	"mon": Monday, "monday": Monday,
	"tue": Tuesday, "tues": Tuesday, "tuesday": Tuesday,
	"wed": Wednesday, "weds": Wednesday, "wednesday": Wednesday,
	"thu": Thursday, "thur": Thursday, "thurs": Thursday, "thursday": Thursday,
	"fri": Friday, "friday": Friday,
	"sat": Saturday, "saturday": Saturday,
	"sun": Sunday, "sunday": Sunday,
}

// ParseWeekday normalizes a day name or common abbreviation.
func ParseWeekday(s string) (Weekday, bool) {
	w, ok := weekdayAliases[strings.ToLower(strings.TrimSpace(s))]
	return w, ok
}

// timeOfDayRe matches a normalized 24-hour "HH:MM" time.
var timeOfDayRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ValidTimeOfDay reports whether s is a normalized 24-hour "HH:MM" value.
func ValidTimeOfDay(s string) bool {
	return timeOfDayRe.MatchString(s)
}

// Deal is a single extracted or curated happy-hour offer. Times are stored
// as normalized 24-hour "HH:MM" strings; an absent time pair with IsAllDay
// set means the deal runs all day.
type Deal struct {
	ID              string    `json:"id,omitempty"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	DealType        DealType  `json:"deal_type"`
	DaysOfWeek      []Weekday `json:"days_of_week"`
	StartTime       string    `json:"start_time,omitempty"`
	EndTime         string    `json:"end_time,omitempty"`
	IsAllDay        bool      `json:"is_all_day"`
	Price           string    `json:"price,omitempty"`
	SpecialNotes    []string  `json:"special_notes,omitempty"`
	SourceURL       string    `json:"source_url,omitempty"`
	ScrapedAt       time.Time `json:"scraped_at"`
	ConfidenceScore float64   `json:"confidence_score"`
}

// Validate returns the list of issues that make the deal unfit for
// persistence. An empty slice means the deal is valid.
func (d *Deal) Validate() []string {
	var issues []string

	if len(strings.TrimSpace(d.Title)) < 3 {
		issues = append(issues, "title is empty or too short")
	}

	if len(d.DaysOfWeek) == 0 && !d.IsAllDay {
		issues = append(issues, "no days specified and not marked all-day")
	}

	for _, day := range d.DaysOfWeek {
		if day.Index() < 0 {
			issues = append(issues, fmt.Sprintf("unknown weekday %q", day))
		}
	}

	if d.StartTime != "" && !ValidTimeOfDay(d.StartTime) {
		issues = append(issues, fmt.Sprintf("start time %q is not HH:MM", d.StartTime))
	}
	if d.EndTime != "" && !ValidTimeOfDay(d.EndTime) {
		issues = append(issues, fmt.Sprintf("end time %q is not HH:MM", d.EndTime))
	}

	// Equal start and end is a malformed extraction, not a 24-hour window.
	if d.StartTime != "" && d.StartTime == d.EndTime {
		issues = append(issues, "start and end time are equal")
	}

	if d.ConfidenceScore < 0.0 || d.ConfidenceScore > 1.0 {
		issues = append(issues, fmt.Sprintf("confidence score %.2f out of [0,1]", d.ConfidenceScore))
	}

	return issues
}

// HasDay reports whether the deal is active on the given day.
func (d *Deal) HasDay(day Weekday) bool {
	for _, w := range d.DaysOfWeek {
		if w == day {
			return true
		}
	}
	return false
}

// SortDays orders DaysOfWeek in calendar order, dropping duplicates.
func (d *Deal) SortDays() {
	seen := make(map[Weekday]bool, len(d.DaysOfWeek))
	ordered := make([]Weekday, 0, len(d.DaysOfWeek))
	for _, day := range AllWeekdays {
		for _, w := range d.DaysOfWeek {
			if w == day && !seen[w] {
				seen[w] = true
				ordered = append(ordered, w)
			}
		}
	}
	d.DaysOfWeek = ordered
}
