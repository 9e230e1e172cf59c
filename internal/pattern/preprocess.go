package pattern

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Section is one region of page text worth matching against, with its
// provenance for diagnostics.
type Section struct {
	Text   string
	Source string // e.g. "container:.happy-hour", "keyword", "document"
}

// contentContainers are tried in priority order when carving a page into
// sections: deal-specific selectors first, generic content areas last.
var contentContainers = []string{
	".happy-hour", ".happy-hour-content", "[class*='happy']", "[id*='happy']",
	".specials", ".deals", ".bar-specials", ".drink-specials",
	".main-content", "main", "article", ".content", ".page-content",
	".menu-content", ".specials-section",
}

// dealKeywords mark a section as likely to describe deals.
var dealKeywords = []string{
	"happy hour", "drink specials", "bar specials", "cocktail hour",
	"daily specials", "deals", "brunch", "early bird", "late night",
}

// smartPunct maps typographic punctuation from CMS output onto the ASCII
// forms the patterns expect.
var smartPunct = strings.NewReplacer(
	"‘", "'", "’", "'",
	"“", `"`, "”", `"`,
	"–", "-", "—", "-", "−", "-",
	" ", " ",
	"&amp;", "&", "&lt;", "<", "&gt;", ">",
	"&quot;", `"`, "&#39;", "'", "&nbsp;", " ",
)

var (
	spaceRe = regexp.MustCompile(`[ \t]+`)
	nlRe    = regexp.MustCompile(`\n{3,}`)
	tagRe   = regexp.MustCompile(`<[^>]+>`)
	blockRe = regexp.MustCompile(`(?is)<(script|style|nav|footer)[^>]*>.*?</(script|style|nav|footer)>`)
)

// NormalizeText canonicalizes punctuation and collapses irregular whitespace
// so the regex patterns see predictable input.
func NormalizeText(s string) string {
	s = smartPunct.Replace(s)
	s = spaceRe.ReplaceAllString(s, " ")
	s = nlRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// ExtractSections carves an HTML page into candidate text sections. Sections
// come from known content containers that mention deal keywords; when none
// match, the whole stripped document is returned as a single section so the
// patterns still get a chance on unstructured pages.
func ExtractSections(html string) []Section {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		zap.L().Debug("pattern: html parse failed, falling back to raw strip", zap.Error(err))
		return []Section{{Text: stripHTML(html), Source: "document"}}
	}

	doc.Find("script, style, nav, footer").Remove()

	var sections []Section
	seen := make(map[string]bool)

	for _, selector := range contentContainers {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			text := NormalizeText(sel.Text())
			if text == "" || !containsDealKeyword(text) {
				return
			}
			// Containers nest; drop sections whose text we already hold.
			if seen[text] {
				return
			}
			seen[text] = true
			sections = append(sections, Section{
				Text:   text,
				Source: "container:" + selector,
			})
		})
	}

	if len(sections) == 0 {
		text := NormalizeText(doc.Text())
		if text != "" {
			sections = append(sections, Section{Text: text, Source: "document"})
		}
	}
	return sections
}

func containsDealKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range dealKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// stripHTML is the no-parser fallback: remove noisy blocks, drop tags,
// normalize.
func stripHTML(html string) string {
	html = blockRe.ReplaceAllString(html, "")
	html = tagRe.ReplaceAllString(html, " ")
	return NormalizeText(html)
}
