package event

import "time"

// ParseMethod tags how a result was produced.
type ParseMethod string

const (
	MethodDeterministic ParseMethod = "deterministic"
	MethodLLMEnhanced   ParseMethod = "llm_enhanced"
)

// EvidenceSource tags where an extracted value came from.
type EvidenceSource string

const (
	EvidenceHTML      EvidenceSource = "html"
	EvidencePDF       EvidenceSource = "pdf"
	EvidenceMicrodata EvidenceSource = "microdata"
	EvidenceLLM       EvidenceSource = "llm"
	EvidenceRegex     EvidenceSource = "regex"
)

// Evidence ties one extracted field to the literal source text it was taken
// from. Evidence lists are append-only: extraction concatenates onto what
// parsing collected, it never replaces it.
type Evidence struct {
	Field       string         `json:"field"`
	Value       string         `json:"value"`
	Source      EvidenceSource `json:"source"`
	Quote       string         `json:"quote,omitempty"`
	Confidence  float64        `json:"confidence"`
	CollectedAt time.Time      `json:"collected_at"`
}

// ParseResult holds the fields a deterministic parse recovered from a page.
type ParseResult struct {
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description,omitempty"`
	Date        string      `json:"date,omitempty"`
	Location    string      `json:"location,omitempty"`
	Venue       string      `json:"venue,omitempty"`
	Speakers    []Speaker   `json:"speakers,omitempty"`
	Agenda      []string    `json:"agenda,omitempty"`
	Confidence  float64     `json:"confidence"`
	Evidence    []Evidence  `json:"evidence,omitempty"`
	Method      ParseMethod `json:"parse_method"`
}

// FieldCount returns how many of the five core fields (title, description,
// date, location, venue) are populated. Used by completeness scoring.
func (r *ParseResult) FieldCount() int {
	n := 0
	for _, v := range []string{r.Title, r.Description, r.Date, r.Location, r.Venue} {
		if v != "" {
			n++
		}
	}
	return n
}

// ExtractResult is a ParseResult enriched by the language-model pass, plus
// the schema-validation outcome and the blended final confidence.
type ExtractResult struct {
	ParseResult
	LLMEnhanced      bool     `json:"llm_enhanced"`
	SchemaValidated  bool     `json:"schema_validated"`
	ValidationErrors []string `json:"validation_errors,omitempty"`
	StartDate        string   `json:"start_date,omitempty"`
	EndDate          string   `json:"end_date,omitempty"`
	DateConfidence   string   `json:"date_confidence,omitempty"`
	Notes            []string `json:"notes,omitempty"`
}
