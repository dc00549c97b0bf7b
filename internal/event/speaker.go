package event

import (
	"regexp"
	"strings"
)

// Speaker is the single normalized speaker representation used from parsing
// onward. Upstream payloads (provider items, model output) arrive either as
// plain strings or as objects; SpeakerFromAny converts them once at the
// model boundary so later stages never re-check the shape.
type Speaker struct {
	Name    string `json:"name"`
	Title   string `json:"title,omitempty"`
	Company string `json:"company,omitempty"`
}

// Key returns the case-insensitive dedup key for the speaker.
func (s Speaker) Key() string {
	return strings.ToLower(strings.TrimSpace(s.Name)) + "|" +
		strings.ToLower(strings.TrimSpace(s.Title)) + "|" +
		strings.ToLower(strings.TrimSpace(s.Company))
}

// SpeakerFromAny converts the heterogeneous speaker payloads seen in
// provider and model output into a Speaker. A bare string may carry
// "Name, Title, Company" segments. The second return is false when the
// value holds no usable name.
func SpeakerFromAny(v any) (Speaker, bool) {
	switch t := v.(type) {
	case Speaker:
		return t, t.Name != ""
	case string:
		parts := strings.SplitN(t, ",", 3)
		s := Speaker{Name: strings.TrimSpace(parts[0])}
		if len(parts) > 1 {
			s.Title = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			s.Company = strings.TrimSpace(parts[2])
		}
		return s, s.Name != ""
	case map[string]any:
		s := Speaker{
			Name:    stringField(t, "name"),
			Title:   stringField(t, "title", "role"),
			Company: stringField(t, "company", "organization"),
		}
		return s, s.Name != ""
	default:
		return Speaker{}, false
	}
}

func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Name-shape patterns. NameStrict is the plain "Firstname Lastname" form;
// NameWithInitial additionally allows a middle initial. \p{L} keeps
// diacritics (Jürgen, Müller) valid.
var (
	NameStrict      = regexp.MustCompile(`^\p{Lu}[\p{L}'-]+ \p{Lu}[\p{L}'-]+$`)
	NameWithInitial = regexp.MustCompile(`^\p{Lu}[\p{L}'-]+ \p{Lu}\.? \p{Lu}[\p{L}'-]+$`)
)

// nameDenylist holds tokens that mark a "name" as actually being a job
// title, organization, or page furniture. Checked case-insensitively
// against whole words.
var nameDenylist = map[string]struct{}{
	"agenda": {}, "ceo": {}, "cfo": {}, "chair": {}, "conference": {},
	"cto": {}, "director": {}, "event": {}, "gmbh": {}, "group": {},
	"inc": {}, "institute": {}, "keynote": {}, "llc": {}, "ltd": {},
	"manager": {}, "panel": {}, "partner": {}, "president": {},
	"registration": {}, "schedule": {}, "session": {}, "speaker": {},
	"speakers": {}, "sponsor": {}, "summit": {}, "team": {},
	"university": {}, "workshop": {},
}

// ValidName reports whether the string looks like a real person's name:
// a "Firstname Lastname" shape (middle initial allowed) with no denylisted
// job-title or organization token.
func ValidName(name string) bool {
	name = strings.TrimSpace(name)
	if len(name) < 5 || len(name) > 60 {
		return false
	}
	if !NameStrict.MatchString(name) && !NameWithInitial.MatchString(name) {
		return false
	}
	for _, word := range strings.Fields(strings.ToLower(name)) {
		if _, bad := nameDenylist[strings.Trim(word, ".,")]; bad {
			return false
		}
	}
	return true
}
