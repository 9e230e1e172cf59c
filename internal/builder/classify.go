package builder

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sips-and-steals/deals-cli/internal/model"
)

// typeKeywords are checked in order; the first hit wins. Happy hour is the
// default when nothing more specific appears, since this pipeline is
// happy-hour-centric to begin with.
var typeKeywords = []struct {
	dealType model.DealType
	words    []string
}{
	{model.DealTypeBrunch, []string{"brunch", "breakfast", "mimosa", "bloody mary"}},
	{model.DealTypeLateNight, []string{"late night", "late-night", "midnight", "after 10"}},
	{model.DealTypeEarlyBird, []string{"early bird", "sunset menu", "pre-theater"}},
	{model.DealTypeSeasonal, []string{"seasonal", "patio season", "summer special", "winter special"}},
	{model.DealTypeDailySpecial, []string{
		"taco tuesday", "wine wednesday", "thirsty thursday",
		"daily special", "weekly special", "of the day",
	}},
}

// classify picks a deal type from the extracted title and surrounding text.
func classify(title, description string) model.DealType {
	content := strings.ToLower(title + " " + description)
	for _, tk := range typeKeywords {
		for _, w := range tk.words {
			if strings.Contains(content, w) {
				return tk.dealType
			}
		}
	}
	return model.DealTypeHappyHour
}

var dealTypeTitles = map[model.DealType]string{
	model.DealTypeHappyHour:    "Happy Hour",
	model.DealTypeDailySpecial: "Daily Special",
	model.DealTypeBrunch:       "Brunch Special",
	model.DealTypeEarlyBird:    "Early Bird Special",
	model.DealTypeLateNight:    "Late Night Special",
	model.DealTypeSeasonal:     "Seasonal Special",
	model.DealTypeOther:        "Special",
}

var titleCaser = cases.Title(language.AmericanEnglish)

// displayTitle renders an extracted heading ("happy hour") in title case, or
// falls back to the deal type's generic name when nothing was extracted.
func displayTitle(extracted string, dealType model.DealType) string {
	if t := strings.TrimSpace(extracted); t != "" {
		return titleCaser.String(t)
	}
	return dealTypeTitles[dealType]
}
