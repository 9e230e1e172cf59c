package builder

import "github.com/sips-and-steals/deals-cli/internal/model"

// expandDayRange expands an inclusive "Monday - Friday" style range.
// Ranges may wrap the week: "Friday - Monday" is Fri, Sat, Sun, Mon.
func expandDayRange(from, to string) ([]model.Weekday, bool) {
	start, ok := model.ParseWeekday(from)
	if !ok {
		return nil, false
	}
	end, ok := model.ParseWeekday(to)
	if !ok {
		return nil, false
	}

	days := []model.Weekday{start}
	for i := start.Index(); i != end.Index(); {
		i = (i + 1) % len(model.AllWeekdays)
		days = append(days, model.AllWeekdays[i])
	}
	return days, true
}
