package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeText_SmartPunct(t *testing.T) {
	in := "Happy Hour  3–6pm “daily” — it’s on"
	out := NormalizeText(in)
	assert.Equal(t, `Happy Hour 3-6pm "daily" - it's on`, out)
}

func TestNormalizeText_CollapsesWhitespace(t *testing.T) {
	in := "a    b\t\tc\n\n\n\n\nd"
	assert.Equal(t, "a b c\n\nd", NormalizeText(in))
}

func TestExtractSections_FindsDealContainer(t *testing.T) {
	html := `
<html><body>
<nav>Home | Menu | Contact</nav>
<div class="happy-hour">Happy Hour Monday - Friday 3pm - 6pm</div>
<div class="content">Our story: founded in 1999.</div>
<footer>Copyright</footer>
</body></html>`

	sections := ExtractSections(html)
	require.NotEmpty(t, sections)
	assert.Equal(t, "container:.happy-hour", sections[0].Source)
	assert.Contains(t, sections[0].Text, "Monday - Friday")

	for _, s := range sections {
		assert.NotContains(t, s.Text, "Copyright", "footer must be stripped")
	}
}

func TestExtractSections_SkipsContainersWithoutKeywords(t *testing.T) {
	html := `<div class="specials">Gift cards available</div>
<div class="deals">Daily specials: $2 tacos every day</div>`

	sections := ExtractSections(html)
	require.Len(t, sections, 1)
	assert.Contains(t, sections[0].Text, "tacos")
}

func TestExtractSections_FallsBackToDocument(t *testing.T) {
	sections := ExtractSections("Monday - Friday: 3pm - 6pm $5 cocktails")
	require.Len(t, sections, 1)
	assert.Equal(t, "document", sections[0].Source)
	assert.Contains(t, sections[0].Text, "$5 cocktails")
}

func TestExtractSections_DeduplicatesNestedContainers(t *testing.T) {
	html := `<main><div class="specials">Happy hour deals 4pm - 6pm</div></main>`
	sections := ExtractSections(html)

	texts := map[string]int{}
	for _, s := range sections {
		texts[s.Text]++
	}
	for text, n := range texts {
		assert.Equal(t, 1, n, "duplicate section text: %s", text)
	}
}

func TestStripHTML(t *testing.T) {
	html := `<script>var x=1;</script><p>Happy   hour</p><style>.x{}</style>`
	assert.Equal(t, "Happy hour", stripHTML(html))
}
