package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_BadRegex(t *testing.T) {
	_, err := Compile(Spec{Name: "broken", Regex: `([a-z`, Weight: 0.5})
	assert.Error(t, err)
}

func TestCompile_FieldCountMismatch(t *testing.T) {
	_, err := Compile(Spec{Name: "mismatch", Regex: `(\d+)`, Fields: []string{"a", "b"}, Weight: 0.5})
	assert.Error(t, err)
}

func TestCompile_WeightBounds(t *testing.T) {
	_, err := Compile(Spec{Name: "heavy", Regex: `x`, Weight: 1.5})
	assert.Error(t, err)
}

func TestMatchSection_CapturesFields(t *testing.T) {
	set, err := CompileSet("t", []Spec{
		{Name: "time_range", Regex: `(?i)(\d{1,2}pm)\s*-\s*(\d{1,2}pm)`, Fields: []string{"start", "end"}, Weight: 0.9},
	})
	require.NoError(t, err)

	matches := set.MatchSection(0, "Happy hour 3pm - 6pm daily")
	require.Len(t, matches, 1)
	assert.Equal(t, "3pm", matches[0].Fields["start"])
	assert.Equal(t, "6pm", matches[0].Fields["end"])
	assert.InDelta(t, 0.9, matches[0].Weight, 0.001)
	assert.Equal(t, 11, matches[0].Start)
}

func TestMatchSection_KeywordSignalHasNoFields(t *testing.T) {
	set, err := CompileSet("t", []Spec{
		{Name: "hh", Regex: `(?i)happy\s*hour`, Weight: 0.3},
	})
	require.NoError(t, err)

	matches := set.MatchSection(0, "Join us for Happy Hour!")
	require.Len(t, matches, 1)
	assert.Nil(t, matches[0].Fields)
	assert.Equal(t, "hh", matches[0].Pattern)
}

func TestMatchSection_AllCandidatesRetained(t *testing.T) {
	set, err := CompileSet("t", []Spec{
		{Name: "day", Regex: `(?i)\b(monday|friday)\b`, Fields: []string{"day"}, Weight: 0.6},
	})
	require.NoError(t, err)

	matches := set.MatchSection(0, "Monday and Friday and monday again")
	assert.Len(t, matches, 3)
}

func TestUniversalSet_TimeRange(t *testing.T) {
	set := UniversalSet()
	matches := set.MatchSection(0, "Monday - Friday: 3pm - 6pm $5 cocktails")

	byPattern := map[string][]RawMatch{}
	for _, m := range matches {
		byPattern[m.Pattern] = append(byPattern[m.Pattern], m)
	}

	require.Len(t, byPattern["time_range"], 1)
	assert.Equal(t, "3pm", byPattern["time_range"][0].Fields["start"])
	assert.Equal(t, "6pm", byPattern["time_range"][0].Fields["end"])

	require.Len(t, byPattern["day_range"], 1)
	assert.Equal(t, "Monday", byPattern["day_range"][0].Fields["day_from"])
	assert.Equal(t, "Friday", byPattern["day_range"][0].Fields["day_to"])

	require.Len(t, byPattern["price"], 1)
	assert.Equal(t, "$5", byPattern["price"][0].Fields["price"])
}

func TestUniversalSet_UntilClose(t *testing.T) {
	set := UniversalSet()
	matches := set.MatchSection(0, "late night happy hour 9pm until close")

	var timeRange *RawMatch
	for i := range matches {
		if matches[i].Pattern == "time_range" {
			timeRange = &matches[i]
		}
	}
	require.NotNil(t, timeRange)
	assert.Equal(t, "9pm", timeRange.Fields["start"])
	assert.Equal(t, "close", timeRange.Fields["end"])
}

func TestUniversalSet_PriceNotMistakenForTime(t *testing.T) {
	set := UniversalSet()
	matches := set.MatchSection(0, "wings $5-$8 all day")
	for _, m := range matches {
		assert.NotEqual(t, "time_range", m.Pattern, "price range must not parse as a time range")
	}
}

func TestUniversalSet_AllDay(t *testing.T) {
	set := UniversalSet()
	matches := set.MatchSection(0, "Happy hour specials every day")

	found := false
	for _, m := range matches {
		if m.Pattern == "all_day" {
			found = true
		}
	}
	assert.True(t, found)
}
