package parse

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/greyfort/eventscout/internal/event"
)

// hit is one successful rule application: the extracted value, where it
// came from, and the literal source text backing it.
type hit struct {
	value  string
	source event.EvidenceSource
	quote  string
}

// fieldRule tries to extract one field from the document. Rules for a
// field run in order; the first hit that passes the field's validity
// filter wins. Microdata outranks meta tags, meta tags outrank regexes.
type fieldRule func(doc *goquery.Document, bodyText string) *hit

// --- title ---

// genericTitles are placeholder titles sites serve on index or error
// pages. A short title matching one of these is not an event title.
var genericTitles = map[string]struct{}{
	"home": {}, "homepage": {}, "welcome": {}, "untitled": {},
	"index": {}, "event": {}, "events": {}, "news": {}, "blog": {},
	"404": {}, "page not found": {}, "coming soon": {},
}

func validTitle(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if len(s) < 20 {
		if _, generic := genericTitles[strings.ToLower(s)]; generic {
			return false
		}
	}
	return true
}

var titleRules = []fieldRule{
	microdataText("name", event.EvidenceMicrodata),
	metaContent(`meta[property="og:title"]`),
	func(doc *goquery.Document, _ string) *hit {
		if t := clean(doc.Find("title").First().Text()); t != "" {
			return &hit{value: t, source: event.EvidenceHTML, quote: t}
		}
		return nil
	},
	func(doc *goquery.Document, _ string) *hit {
		if t := clean(doc.Find("h1").First().Text()); t != "" {
			return &hit{value: t, source: event.EvidenceHTML, quote: t}
		}
		return nil
	},
}

// --- description ---

var descriptionRules = []fieldRule{
	microdataText("description", event.EvidenceMicrodata),
	metaContent(`meta[property="og:description"]`),
	metaContent(`meta[name="description"]`),
	func(doc *goquery.Document, _ string) *hit {
		var found *hit
		doc.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if t := clean(s.Text()); len(t) >= 80 {
				found = &hit{value: t, source: event.EvidenceHTML, quote: t}
				return false
			}
			return true
		})
		return found
	},
}

// --- date ---

var months = `January|February|March|April|May|June|July|August|September|October|November|December|` +
	`Januar|Februar|März|April|Mai|Juni|Juli|August|September|Oktober|November|Dezember`

var dateRegexes = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
	regexp.MustCompile(`\b\d{1,2}\.\s?\d{1,2}\.\s?\d{4}\b`),
	regexp.MustCompile(`\b(?:` + months + `)\s+\d{1,2},?\s+\d{4}\b`),
	regexp.MustCompile(`\b\d{1,2}\.?\s+(?:` + months + `)\s+\d{4}\b`),
	regexp.MustCompile(`\b\d{1,2}\s*[-–]\s*\d{1,2}\.?\s+(?:` + months + `)\s+\d{4}\b`),
}

var dateRules = []fieldRule{
	func(doc *goquery.Document, _ string) *hit {
		sel := doc.Find(`[itemprop="startDate"]`).First()
		if sel.Length() == 0 {
			return nil
		}
		v, _ := sel.Attr("content")
		if v == "" {
			v, _ = sel.Attr("datetime")
		}
		if v == "" {
			v = clean(sel.Text())
		}
		if v == "" {
			return nil
		}
		return &hit{value: v, source: event.EvidenceMicrodata, quote: v}
	},
	func(doc *goquery.Document, _ string) *hit {
		sel := doc.Find("time[datetime]").First()
		if sel.Length() == 0 {
			return nil
		}
		v, _ := sel.Attr("datetime")
		if v == "" {
			return nil
		}
		return &hit{value: v, source: event.EvidenceHTML, quote: clean(sel.Text())}
	},
	func(_ *goquery.Document, bodyText string) *hit {
		// Range patterns first so "12-14 March 2026" is not reduced to
		// its end date.
		for i := len(dateRegexes) - 1; i >= 0; i-- {
			if m := dateRegexes[i].FindString(bodyText); m != "" {
				return &hit{value: m, source: event.EvidenceRegex, quote: sentenceAround(bodyText, m)}
			}
		}
		return nil
	},
}

// --- location ---

// markupFragments appear in extracted "locations" when a stylesheet or
// script bled into the text. Any of these invalidates the value.
var markupFragments = []string{"{", "}", "<", ">", "function", "px;", "css", "var(", "@media"}

func validLocation(s string) bool {
	if len(strings.TrimSpace(s)) < 3 {
		return false
	}
	lower := strings.ToLower(s)
	for _, frag := range markupFragments {
		if strings.Contains(lower, frag) {
			return false
		}
	}
	return true
}

var locationRegex = regexp.MustCompile(`\bin\s+(\p{Lu}[\p{L}]+(?:\s\p{Lu}[\p{L}]+)?,\s*\p{Lu}[\p{L}]+(?:\s\p{Lu}[\p{L}]+)?)`)

var locationRules = []fieldRule{
	func(doc *goquery.Document, _ string) *hit {
		sel := doc.Find(`[itemprop="location"] [itemprop="address"]`).First()
		if sel.Length() == 0 {
			sel = doc.Find(`[itemprop="address"]`).First()
		}
		if t := clean(sel.Text()); t != "" {
			return &hit{value: t, source: event.EvidenceMicrodata, quote: t}
		}
		return nil
	},
	metaContent(`meta[property="event:location"]`),
	func(_ *goquery.Document, bodyText string) *hit {
		if m := locationRegex.FindStringSubmatch(bodyText); m != nil {
			return &hit{value: m[1], source: event.EvidenceRegex, quote: sentenceAround(bodyText, m[0])}
		}
		return nil
	},
}

// --- venue ---

var venueRules = []fieldRule{
	func(doc *goquery.Document, _ string) *hit {
		if t := clean(doc.Find(`[itemprop="location"] [itemprop="name"]`).First().Text()); t != "" {
			return &hit{value: t, source: event.EvidenceMicrodata, quote: t}
		}
		return nil
	},
	func(doc *goquery.Document, _ string) *hit {
		if t := clean(doc.Find(`[class*="venue"]`).First().Text()); t != "" && len(t) <= 120 {
			return &hit{value: t, source: event.EvidenceHTML, quote: t}
		}
		return nil
	},
}

// --- speakers & agenda (list fields, separate extraction path) ---

// extractSpeakers walks microdata performers first, then speaker-classed
// blocks. Every name passes the shared "Firstname Lastname" + denylist
// validation; duplicates collapse on the composite key.
func extractSpeakers(doc *goquery.Document) ([]event.Speaker, event.EvidenceSource) {
	var speakers []event.Speaker
	seen := make(map[string]struct{})
	source := event.EvidenceMicrodata

	add := func(s event.Speaker) {
		if !event.ValidName(s.Name) {
			return
		}
		if _, dup := seen[s.Key()]; dup {
			return
		}
		seen[s.Key()] = struct{}{}
		speakers = append(speakers, s)
	}

	doc.Find(`[itemprop="performer"]`).Each(func(_ int, sel *goquery.Selection) {
		s := event.Speaker{
			Name:    clean(sel.Find(`[itemprop="name"]`).First().Text()),
			Title:   clean(sel.Find(`[itemprop="jobTitle"]`).First().Text()),
			Company: clean(sel.Find(`[itemprop="worksFor"]`).First().Text()),
		}
		if s.Name == "" {
			s.Name = clean(sel.Text())
		}
		add(s)
	})

	if len(speakers) == 0 {
		source = event.EvidenceHTML
		doc.Find(`[class*="speaker"]`).Each(func(_ int, sel *goquery.Selection) {
			sel.Find("h3, h4, strong, .name").Each(func(_ int, nameSel *goquery.Selection) {
				add(event.Speaker{Name: clean(nameSel.Text())})
			})
		})
	}

	return speakers, source
}

// extractAgenda collects agenda line items from agenda-classed lists.
func extractAgenda(doc *goquery.Document) []string {
	var items []string
	doc.Find(`[class*="agenda"] li, [class*="programm"] li, [class*="schedule"] li`).Each(func(_ int, sel *goquery.Selection) {
		if len(items) >= 20 {
			return
		}
		if t := clean(sel.Text()); t != "" && len(t) >= 5 {
			items = append(items, t)
		}
	})
	return items
}

// --- shared helpers ---

func microdataText(prop string, source event.EvidenceSource) fieldRule {
	return func(doc *goquery.Document, _ string) *hit {
		// Prefer props scoped under an Event itemtype, fall back to any.
		sel := doc.Find(`[itemtype*="Event"] [itemprop="` + prop + `"]`).First()
		if sel.Length() == 0 {
			sel = doc.Find(`[itemprop="` + prop + `"]`).First()
		}
		if t := clean(sel.Text()); t != "" {
			return &hit{value: t, source: source, quote: t}
		}
		return nil
	}
}

func metaContent(selector string) fieldRule {
	return func(doc *goquery.Document, _ string) *hit {
		if v, ok := doc.Find(selector).First().Attr("content"); ok {
			if t := clean(v); t != "" {
				return &hit{value: t, source: event.EvidenceHTML, quote: t}
			}
		}
		return nil
	}
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func clean(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// firstHit applies rules in order and returns the first hit whose value
// passes valid (nil valid accepts everything).
func firstHit(rules []fieldRule, doc *goquery.Document, bodyText string, valid func(string) bool) *hit {
	for _, rule := range rules {
		h := rule(doc, bodyText)
		if h == nil {
			continue
		}
		if valid != nil && !valid(h.value) {
			continue
		}
		return h
	}
	return nil
}
