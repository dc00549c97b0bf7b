// Package extract enriches parsed candidates through a language-model pass.
// The model sees the deterministic parse result plus text from a few
// auxiliary pages (speakers, agenda) and may fill or correct fields; its
// values win where present. Model failure degrades to the parse result, it
// never fails the candidate.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/greyfort/eventscout/internal/event"
	"github.com/greyfort/eventscout/internal/fetch"
	"github.com/greyfort/eventscout/internal/llm"
	"github.com/greyfort/eventscout/internal/metrics"
)

const (
	// defaultAuxPages bounds how many related pages feed the model prompt
	// when the caller does not set a limit.
	defaultAuxPages = 3
	// maxAuxChars truncates each auxiliary page's text.
	maxAuxChars = 2000
)

// Extractor runs the enhancement stage.
type Extractor struct {
	llm        llm.Client
	fetcher    *fetch.Fetcher
	logger     *slog.Logger
	auxPages   int
	auxTimeout time.Duration
}

// New creates an Extractor. A nil client turns the stage into a
// validation-only pass over parse results; auxPages <= 0 falls back to the
// default limit.
func New(client llm.Client, fetcher *fetch.Fetcher, auxPages int, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if auxPages <= 0 {
		auxPages = defaultAuxPages
	}
	return &Extractor{
		llm:        client,
		fetcher:    fetcher,
		logger:     logger,
		auxPages:   auxPages,
		auxTimeout: 10 * time.Second,
	}
}

// Extract enriches a parsed candidate and records the result on it. A
// missing parse result is a precondition violation and fails the candidate;
// everything past that point degrades instead of failing.
func (e *Extractor) Extract(ctx context.Context, cand *event.Candidate) (*event.ExtractResult, error) {
	start := time.Now()

	if cand.Parse == nil {
		cand.Fail("extract: no parse result")
		return nil, fmt.Errorf("extract %s: candidate has no parse result", cand.ID)
	}

	result := &event.ExtractResult{ParseResult: *cand.Parse}

	if e.llm != nil {
		aux := e.fetchAuxPages(ctx, cand)
		if err := e.enhance(ctx, cand, result, aux); err != nil {
			e.logger.Warn("extract: enhancement failed, keeping parse result",
				"candidate", cand.ID, "error", err)
			result.Notes = append(result.Notes, "llm enhancement failed: "+err.Error())
		}
	}

	if result.Date != "" {
		if s, end, conf, ok := event.NormalizeDate(result.Date); ok {
			result.StartDate, result.EndDate, result.DateConfidence = s, end, conf
		}
	}
	result.Speakers = normalizeSpeakers(result.Speakers)

	result.ValidationErrors = validate(result)
	result.SchemaValidated = len(result.ValidationErrors) == 0
	result.Confidence = blendConfidence(cand.Parse.Confidence, result)

	cand.Extract = result
	if err := cand.Advance(event.StatusExtracted); err != nil {
		return nil, err
	}
	cand.Meta.RecordTiming(event.StatusExtracted, time.Since(start))
	return result, nil
}

// auxPage is one fetched related page, reduced to text.
type auxPage struct {
	URL  string
	Text string
}

// fetchAuxPages pulls up to the configured number of the candidate's related links
// (speaker/agenda/sponsor pages found during parsing) for prompt context.
// Fetch failures just shrink the context.
func (e *Extractor) fetchAuxPages(ctx context.Context, cand *event.Candidate) []auxPage {
	if e.fetcher == nil || len(cand.RelatedURLs) == 0 {
		return nil
	}

	urls := cand.RelatedURLs
	if len(urls) > e.auxPages {
		urls = urls[:e.auxPages]
	}

	var pages []auxPage
	for _, u := range urls {
		fctx, cancel := context.WithTimeout(ctx, e.auxTimeout)
		res, err := e.fetcher.Get(fctx, u)
		cancel()
		if err != nil || !res.OK() {
			e.logger.Debug("extract: aux page skipped", "url", u, "error", err)
			continue
		}
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
		if err != nil {
			continue
		}
		text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
		if len(text) > maxAuxChars {
			text = text[:maxAuxChars]
		}
		if text != "" {
			pages = append(pages, auxPage{URL: u, Text: text})
		}
	}
	return pages
}

// enhance calls the model and merges its suggestions over the parse result.
func (e *Extractor) enhance(ctx context.Context, cand *event.Candidate, result *event.ExtractResult, aux []auxPage) error {
	raw, err := e.llm.GenerateContent(ctx, enhancementPrompt(cand, aux))
	if err != nil {
		metrics.RecordLLMCall("extract", "error")
		return err
	}

	suggestion, err := parseEnhancement(raw)
	if err != nil {
		metrics.RecordLLMCall("extract", "malformed")
		return err
	}
	metrics.RecordLLMCall("extract", "ok")

	merge(result, suggestion)
	result.LLMEnhanced = true
	result.Method = event.MethodLLMEnhanced
	return nil
}

// merge applies model-suggested values over the parse result. Model values
// win when present; evidence for each accepted value is appended, never
// replacing what parsing collected.
func merge(result *event.ExtractResult, s *enhancement) {
	now := time.Now()
	take := func(field, value string, dst *string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		*dst = value
		result.Evidence = append(result.Evidence, event.Evidence{
			Field:       field,
			Value:       value,
			Source:      event.EvidenceLLM,
			Confidence:  0.7,
			CollectedAt: now,
		})
	}

	take("title", s.Title, &result.Title)
	take("description", s.Description, &result.Description)
	take("date", s.Date, &result.Date)
	take("location", s.Location, &result.Location)
	take("venue", s.Venue, &result.Venue)

	if len(s.Speakers) > 0 {
		var speakers []event.Speaker
		for _, v := range s.Speakers {
			if sp, ok := event.SpeakerFromAny(v); ok {
				speakers = append(speakers, sp)
			}
		}
		if len(speakers) > 0 {
			result.Speakers = speakers
			result.Evidence = append(result.Evidence, event.Evidence{
				Field:       "speakers",
				Value:       fmt.Sprintf("%d speakers", len(speakers)),
				Source:      event.EvidenceLLM,
				Confidence:  0.7,
				CollectedAt: now,
			})
		}
	}
}

// normalizeSpeakers drops invalid names and deduplicates on the composite
// name+title+company key, keeping first occurrence.
func normalizeSpeakers(in []event.Speaker) []event.Speaker {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]event.Speaker, 0, len(in))
	for _, s := range in {
		if !event.ValidName(s.Name) {
			continue
		}
		k := s.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
