package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/greyfort/eventscout/internal/event"
	"github.com/greyfort/eventscout/internal/llm"
)

// enhancement is the shape the model is asked to return. Speakers stay
// loosely typed because models return both strings and objects.
type enhancement struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Location    string `json:"location"`
	Venue       string `json:"venue"`
	Speakers    []any  `json:"speakers"`
}

// enhancementPrompt builds the model prompt from the parse result, the
// candidate URL, and the auxiliary page texts.
func enhancementPrompt(cand *event.Candidate, aux []auxPage) string {
	parsed, _ := json.MarshalIndent(cand.Parse, "", "  ")

	var b strings.Builder
	b.WriteString("You are completing structured data for a business event page.\n")
	fmt.Fprintf(&b, "Page URL: %s\n\n", cand.URL)
	fmt.Fprintf(&b, "Fields extracted so far:\n%s\n\n", parsed)

	for _, p := range aux {
		fmt.Fprintf(&b, "Additional page %s:\n%s\n\n", p.URL, p.Text)
	}

	b.WriteString(`Correct and complete the fields using only information present above. Respond with only a JSON object with the keys "title", "description", "date", "location", "venue", and "speakers" (a list of objects with "name", "title", "company"). Leave a field empty if the information is not present. No prose, no code fences.`)
	return b.String()
}

// parseEnhancement decodes the model response, tolerating fenced JSON.
func parseEnhancement(raw string) (*enhancement, error) {
	var s enhancement
	if err := json.Unmarshal([]byte(llm.StripFences(raw)), &s); err != nil {
		return nil, fmt.Errorf("decode enhancement response: %w", err)
	}
	return &s, nil
}
