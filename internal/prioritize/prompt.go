package prioritize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/greyfort/eventscout/internal/event"
	"github.com/greyfort/eventscout/internal/llm"
)

// maxContentChars bounds how much provider content goes into a prompt.
const maxContentChars = 3000

// contentPrompt asks the model to rate a candidate from its scraped content.
func contentPrompt(cand *event.Candidate, country string) string {
	content := cand.Content
	if len(content) > maxContentChars {
		content = content[:maxContentChars]
	}

	var b strings.Builder
	b.WriteString("Rate how likely this web page describes an upcoming business event relevant to the query.\n")
	fmt.Fprintf(&b, "Query: %s\n", cand.Meta.Query)
	if country != "" {
		fmt.Fprintf(&b, "Target country: %s\n", country)
	}
	fmt.Fprintf(&b, "URL: %s\n\nPage content:\n%s\n\n", cand.URL, content)
	b.WriteString(scoreInstructions(country))
	return b.String()
}

// urlPrompt asks the model to rate a candidate from its URL alone.
func urlPrompt(cand *event.Candidate, country string) string {
	var b strings.Builder
	b.WriteString("Rate how likely this URL points to a page for an upcoming business event relevant to the query. Judge only from the URL structure and wording.\n")
	fmt.Fprintf(&b, "Query: %s\n", cand.Meta.Query)
	if country != "" {
		fmt.Fprintf(&b, "Target country: %s\n", country)
	}
	fmt.Fprintf(&b, "URL: %s\n\n", cand.URL)
	b.WriteString(scoreInstructions(country))
	return b.String()
}

func scoreInstructions(country string) string {
	fields := `"is_event", "has_agenda", "has_speakers", "is_recent", "is_relevant"`
	if country != "" {
		fields += `, "is_country_relevant"`
	}
	return fmt.Sprintf(`Respond with only a JSON object containing the keys %s, each a number between 0.0 and 1.0. No prose, no code fences.`, fields)
}

// parseScores decodes a model response into sub-scores, tolerating fenced
// JSON. Out-of-range values are clamped rather than rejected.
func parseScores(raw string) (subScores, error) {
	var s subScores
	if err := json.Unmarshal([]byte(llm.StripFences(raw)), &s); err != nil {
		return subScores{}, fmt.Errorf("decode score response: %w", err)
	}
	for _, f := range []*float64{&s.IsEvent, &s.HasAgenda, &s.HasSpeakers, &s.IsRecent, &s.IsRelevant, &s.IsCountryRelevant} {
		if *f < 0 {
			*f = 0
		} else if *f > 1 {
			*f = 1
		}
	}
	return s, nil
}
