package prioritize

import (
	"net/url"
	"strings"
	"time"

	"github.com/greyfort/eventscout/internal/event"
)

// eventTokens mark a URL or snippet as probably describing an event page.
var eventTokens = []string{
	"conference", "summit", "congress", "kongress", "event", "symposium",
	"forum", "expo", "messe", "tagung", "seminar", "workshop", "convention",
}

var agendaTokens = []string{"agenda", "program", "programm", "schedule", "sessions"}

var speakerTokens = []string{"speaker", "speakers", "referent", "referenten", "keynote"}

// germanCues are language signals that boost relevance for German-market
// queries regardless of the page's TLD.
var germanCues = []string{
	"kongress", "tagung", "veranstaltung", "messe", "fachkonferenz",
	"referenten", "programm", "anmeldung", "teilnehmer",
}

var majorCities = []string{
	"berlin", "munich", "münchen", "muenchen", "hamburg", "frankfurt",
	"cologne", "köln", "koeln", "stuttgart", "düsseldorf", "duesseldorf",
	"leipzig", "vienna", "wien", "zurich", "zürich",
}

// countryTLDs maps ISO country codes to their ccTLD.
var countryTLDs = map[string]string{
	"DE": ".de", "AT": ".at", "CH": ".ch", "FR": ".fr", "NL": ".nl",
	"ES": ".es", "IT": ".it", "GB": ".uk", "US": ".com",
}

var countryNames = map[string][]string{
	"DE": {"germany", "deutschland", "german"},
	"AT": {"austria", "österreich", "oesterreich"},
	"CH": {"switzerland", "schweiz", "swiss"},
	"FR": {"france", "french"},
	"GB": {"united kingdom", "britain", "uk"},
	"US": {"united states", "usa"},
}

// urlLooksLikeEvent gates the URL-only model path: only URLs carrying
// event-like tokens are worth a model call, the rest go straight to the
// heuristic.
func urlLooksLikeEvent(rawURL string) bool {
	return containsAny(strings.ToLower(rawURL), eventTokens)
}

// heuristicScores is the deterministic fallback scorer. It only inspects
// the URL, provider metadata, and any provider-supplied content, so it
// cannot fail.
func heuristicScores(cand *event.Candidate, country string) subScores {
	text := strings.ToLower(cand.URL + " " + cand.Content)

	var s subScores
	if containsAny(text, eventTokens) {
		s.IsEvent = 0.8
	} else {
		s.IsEvent = 0.2
	}
	if containsAny(text, agendaTokens) {
		s.HasAgenda = 0.7
	}
	if containsAny(text, speakerTokens) {
		s.HasSpeakers = 0.7
	}
	s.IsRecent = recencyScore(cand.Meta.ExtractedDate)
	s.IsRelevant = queryOverlap(cand.Meta.Query, text)
	if country != "" {
		s.IsCountryRelevant = countryScore(cand.URL, text, country)
	}
	return s
}

// recencyScore rates how current the candidate's extracted date looks.
// The window check against "now" happens post hoc in finalize; this only
// rewards having a parseable date at all.
func recencyScore(raw string) float64 {
	start, _, conf, ok := event.NormalizeDate(raw)
	if !ok {
		return 0.3
	}
	if _, err := time.Parse("2006-01-02", start); err != nil {
		return 0.3
	}
	if conf == event.DateConfidenceHigh {
		return 0.9
	}
	return 0.6
}

// queryOverlap is the fraction of query terms appearing in the candidate
// text, ignoring short stop-ish words.
func queryOverlap(query, text string) float64 {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return 0.5
	}
	matched, counted := 0, 0
	for _, t := range terms {
		if len(t) < 4 {
			continue
		}
		counted++
		if strings.Contains(text, t) {
			matched++
		}
	}
	if counted == 0 {
		return 0.5
	}
	return float64(matched) / float64(counted)
}

// countryScore combines the hostname TLD with country-name mentions.
func countryScore(rawURL, text, country string) float64 {
	country = strings.ToUpper(country)
	score := 0.3 // unknown is not a negative signal

	if u, err := url.Parse(rawURL); err == nil {
		host := strings.ToLower(u.Hostname())
		if tld, ok := countryTLDs[country]; ok && strings.HasSuffix(host, tld) {
			score = 0.9
		}
	}
	if names, ok := countryNames[country]; ok && containsAny(text, names) && score < 0.8 {
		score = 0.8
	}
	return score
}

func hasGermanCues(text string) bool {
	return containsAny(strings.ToLower(text), germanCues)
}

func hasMajorCity(text string) bool {
	return containsAny(strings.ToLower(text), majorCities)
}

func containsAny(text string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}
