package event

import "time"

// PublishedSpeaker is a speaker as it appears on a published event, with a
// confidence derived from how regular the name looks.
type PublishedSpeaker struct {
	Speaker
	Confidence float64 `json:"confidence"`
}

// Provenance records how a published event travelled through the pipeline.
type Provenance struct {
	Source        Source      `json:"source"`
	PriorityScore float64     `json:"priority_score"`
	Method        ParseMethod `json:"parse_method"`
	EvidenceCount int         `json:"evidence_count"`
	QualityScore  float64     `json:"quality_score"`
}

// PublishedEvent is the terminal, immutable output of the pipeline: one
// event record that passed the quality gate.
type PublishedEvent struct {
	ID               string             `json:"id"`
	Title            string             `json:"title"`
	Description      string             `json:"description"`
	StartDate        string             `json:"start_date,omitempty"`
	Location         string             `json:"location,omitempty"`
	Venue            string             `json:"venue,omitempty"`
	Country          string             `json:"country"`
	City             string             `json:"city,omitempty"`
	URL              string             `json:"url"`
	Speakers         []PublishedSpeaker `json:"speakers,omitempty"`
	Confidence       float64            `json:"confidence"`
	ConfidenceReason string             `json:"confidence_reason"`
	Provenance       Provenance         `json:"provenance"`
	PublishedAt      time.Time          `json:"published_at"`
}
