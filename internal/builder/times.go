package builder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// closeTime is the normalized end for "until close" windows. Denver last
// call is 2am, which also exercises the overnight handling downstream.
const closeTime = "02:00"

var clockRe = regexp.MustCompile(`(?i)^\s*(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\s*$`)

type clock struct {
	hour     int // 1-12 as written
	min      int
	meridiem string // "am", "pm", or ""
}

func parseClock(s string) (clock, bool) {
	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return clock{}, false
	}
	hour, _ := strconv.Atoi(m[1])
	if hour < 1 || hour > 12 {
		return clock{}, false
	}
	min := 0
	if m[2] != "" {
		min, _ = strconv.Atoi(m[2])
		if min > 59 {
			return clock{}, false
		}
	}
	return clock{hour: hour, min: min, meridiem: strings.ToLower(m[3])}, true
}

// minutes converts to minutes past midnight under the given meridiem.
func (c clock) minutes(meridiem string) int {
	h := c.hour
	switch meridiem {
	case "am":
		if h == 12 {
			h = 0
		}
	case "pm":
		if h != 12 {
			h += 12
		}
	}
	return h*60 + c.min
}

func formatMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// normalizeWindow converts a raw (start, end) pair to 24-hour "HH:MM"
// strings. Meridiem inference follows how people actually write hours:
// a bare hour inherits the other side's am/pm, flipped when inheriting
// would put the window backwards ("11 - 2pm" means 11am), and a pair
// with no meridiem at all defaults to PM since deals cluster in the
// afternoon and evening. An end of "close" maps to closeTime.
func normalizeWindow(start, end string) (string, string, bool) {
	untilClose := strings.EqualFold(strings.TrimSpace(end), "close")

	sc, ok := parseClock(start)
	if !ok {
		return "", "", false
	}

	if untilClose {
		if sc.meridiem == "" {
			sc.meridiem = "pm"
		}
		return formatMinutes(sc.minutes(sc.meridiem)), closeTime, true
	}

	ec, ok := parseClock(end)
	if !ok {
		return "", "", false
	}

	switch {
	case sc.meridiem == "" && ec.meridiem != "":
		sc.meridiem = ec.meridiem
		if sc.minutes(sc.meridiem) > ec.minutes(ec.meridiem) {
			sc.meridiem = flip(sc.meridiem)
		}
	case sc.meridiem != "" && ec.meridiem == "":
		ec.meridiem = sc.meridiem
		if ec.minutes(ec.meridiem) <= sc.minutes(sc.meridiem) {
			ec.meridiem = flip(ec.meridiem)
		}
	case sc.meridiem == "" && ec.meridiem == "":
		sc.meridiem, ec.meridiem = "pm", "pm"
	}

	return formatMinutes(sc.minutes(sc.meridiem)), formatMinutes(ec.minutes(ec.meridiem)), true
}

// normalizeStart handles a lone start time with no end, defaulting to PM.
func normalizeStart(start string) (string, bool) {
	c, ok := parseClock(start)
	if !ok {
		return "", false
	}
	if c.meridiem == "" {
		c.meridiem = "pm"
	}
	return formatMinutes(c.minutes(c.meridiem)), true
}

func flip(meridiem string) string {
	if meridiem == "am" {
		return "pm"
	}
	return "am"
}
