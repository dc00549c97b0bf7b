// Package publish runs the quality gate and turns surviving candidates into
// published events. The gate is the last defense against junk: too little
// confidence, degenerate text, spam, impossible geography, or a broken date
// all reject the candidate.
package publish

import (
	"log/slog"
	"strings"
	"time"

	"github.com/greyfort/eventscout/internal/event"
	"github.com/greyfort/eventscout/internal/metrics"
)

// Publisher gates and formats candidates. ConfidenceThreshold is the gate's
// minimum result confidence; Country is the request's target country used as
// the country-code fallback.
type Publisher struct {
	threshold float64
	country   string
	logger    *slog.Logger
}

// New creates a Publisher for one request.
func New(confidenceThreshold float64, targetCountry string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{threshold: confidenceThreshold, country: targetCountry, logger: logger}
}

// Publish runs the quality gate over the candidate's richest result. It
// returns nil with the candidate rejected when any gate check fails; a
// candidate with neither parse nor extract result is also a rejection, not
// an error.
func (p *Publisher) Publish(cand *event.Candidate) *event.PublishedEvent {
	result := cand.Result()
	if result == nil {
		cand.Reject("publish: no result to publish")
		return nil
	}

	if reason := p.gate(cand, result); reason != "" {
		p.logger.Debug("candidate rejected at quality gate",
			"candidate", cand.ID, "reason", reason)
		cand.Reject(reason)
		return nil
	}

	ev := p.format(cand, result)
	if err := cand.Advance(event.StatusPublished); err != nil {
		cand.Reject("publish: " + err.Error())
		return nil
	}
	metrics.PublishedEvents.Inc()
	return ev
}

// gate returns a rejection reason, or "" when the candidate passes.
func (p *Publisher) gate(cand *event.Candidate, r *event.ParseResult) string {
	confidence := resultConfidence(cand, r)
	if confidence < p.threshold {
		return "confidence below threshold"
	}

	title := normalizeText(r.Title)
	if len(title) < 10 {
		return "title missing or too short"
	}
	if len(normalizeText(r.Description)) < 20 {
		return "description missing or too short"
	}
	if containsSpam(title + " " + r.Description) {
		return "spam keyword match"
	}
	if len(dedupeKey(title)) < 10 {
		return "title degenerates under normalization"
	}
	if r.Date != "" {
		if _, _, _, ok := event.NormalizeDate(r.Date); !ok {
			return "invalid date"
		}
	}
	if r.Location != "" && len(normalizeText(r.Location)) < 3 {
		return "invalid location"
	}
	if impossibleCombo(r.Location, strings.ToUpper(p.country)) {
		return "impossible city/country combination"
	}
	return ""
}

// format builds the published record from a gated result.
func (p *Publisher) format(cand *event.Candidate, r *event.ParseResult) *event.PublishedEvent {
	location := normalizeText(r.Location)
	country := p.targetOrDerived(location)

	ev := &event.PublishedEvent{
		ID:          cand.ID,
		Title:       normalizeText(r.Title),
		Description: normalizeText(r.Description),
		Location:    location,
		Venue:       normalizeText(r.Venue),
		Country:     country,
		City:        cityOf(location),
		URL:         cand.URL,
		Confidence:  resultConfidence(cand, r),
		PublishedAt: time.Now(),
	}

	if r.Date != "" {
		if start, _, _, ok := event.NormalizeDate(r.Date); ok {
			ev.StartDate = start
		}
	}
	if cand.Extract != nil && cand.Extract.StartDate != "" {
		ev.StartDate = cand.Extract.StartDate
	}

	for _, s := range r.Speakers {
		ev.Speakers = append(ev.Speakers, event.PublishedSpeaker{
			Speaker:    s,
			Confidence: speakerConfidence(s.Name),
		})
	}

	ev.Provenance = event.Provenance{
		Source:        cand.Source,
		Method:        r.Method,
		EvidenceCount: len(r.Evidence),
		QualityScore:  qualityScore(cand, r),
	}
	if cand.PriorityScore != nil {
		ev.Provenance.PriorityScore = *cand.PriorityScore
	}

	ev.ConfidenceReason = confidenceReason(cand, ev)
	return ev
}

// targetOrDerived resolves the event's country code: location lookup first,
// then the request's target country, then Unknown.
func (p *Publisher) targetOrDerived(location string) string {
	if code := countryFromLocation(location); code != "" {
		return code
	}
	if p.country != "" {
		return strings.ToUpper(p.country)
	}
	return "Unknown"
}

// resultConfidence picks the extract-stage confidence when present, since
// it already folds in validation and completeness.
func resultConfidence(cand *event.Candidate, r *event.ParseResult) float64 {
	if cand.Extract != nil {
		return cand.Extract.Confidence
	}
	return r.Confidence
}

// speakerConfidence rates a speaker by name-shape regularity.
func speakerConfidence(name string) float64 {
	switch {
	case event.NameStrict.MatchString(name):
		return 0.9
	case event.NameWithInitial.MatchString(name):
		return 0.8
	default:
		return 0.6
	}
}

// qualityScore summarizes how complete and well-sourced the published event
// is: 0.4 confidence + 0.3 completeness + up to 0.3 in fixed bonuses.
func qualityScore(cand *event.Candidate, r *event.ParseResult) float64 {
	score := 0.4*resultConfidence(cand, r) + 0.3*(float64(r.FieldCount())/5)

	if len(normalizeText(r.Title)) >= 20 {
		score += 0.05
	}
	if len(normalizeText(r.Description)) >= 100 {
		score += 0.05
	}
	if len(r.Speakers) > 0 {
		score += 0.08
	}
	if r.Venue != "" {
		score += 0.05
	}
	if cand.Extract != nil && cand.Extract.LLMEnhanced {
		score += 0.07
	}

	if score > 1 {
		score = 1
	}
	return score
}

// confidenceReason joins the human-readable descriptors that apply.
func confidenceReason(cand *event.Candidate, ev *event.PublishedEvent) string {
	var parts []string
	if cand.Extract != nil && cand.Extract.LLMEnhanced {
		parts = append(parts, "llm-enhanced")
	}
	switch {
	case ev.Confidence >= 0.8:
		parts = append(parts, "high confidence")
	case ev.Confidence >= 0.6:
		parts = append(parts, "moderate confidence")
	default:
		parts = append(parts, "low confidence")
	}
	if ev.Provenance.QualityScore >= 0.8 {
		parts = append(parts, "high quality")
	}
	if ev.Provenance.EvidenceCount >= 5 {
		parts = append(parts, "strong evidence")
	}
	return strings.Join(parts, ", ")
}
