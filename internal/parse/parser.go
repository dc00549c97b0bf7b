// Package parse turns a fetched candidate page into a deterministic
// ParseResult. Extraction is rule-driven: microdata first, then meta tags,
// then scoped regexes; the first rule hit that passes the field's validity
// filter wins. Confidence is a fixed weighted sum over which fields were
// recovered.
package parse

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/greyfort/eventscout/internal/event"
	"github.com/greyfort/eventscout/internal/fetch"
)

// Field weights for the parse confidence. They sum to 1.0; confidence is
// capped there regardless.
const (
	weightTitle       = 0.30
	weightDescription = 0.20
	weightDate        = 0.20
	weightLocation    = 0.15
	weightVenue       = 0.10
	weightSpeakers    = 0.05
)

// Evidence confidence is flat per value shape: a single string field reads
// more reliably than a scraped list.
const (
	evidenceStringConfidence = 0.8
	evidenceListConfidence   = 0.7
)

// auxLinkTokens mark anchor paths worth fetching later for extra context.
var auxLinkTokens = []string{"speaker", "agenda", "sponsor", "referenten", "programm"}

// Parser fetches and deterministically parses candidate pages.
type Parser struct {
	fetcher *fetch.Fetcher
	logger  *slog.Logger
}

// New creates a Parser on top of the given fetcher.
func New(fetcher *fetch.Fetcher, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{fetcher: fetcher, logger: logger}
}

// Parse fetches the candidate URL and extracts structured fields. On
// success it stores the result on the candidate and advances its status.
// Fetch failures, non-2xx responses, and challenge pages mark the
// candidate failed and return the error; the orchestrator isolates it.
func (p *Parser) Parse(ctx context.Context, cand *event.Candidate) (*event.ParseResult, error) {
	start := time.Now()

	res, err := p.fetcher.Get(ctx, cand.URL)
	if err != nil {
		cand.Fail(err.Error())
		return nil, fmt.Errorf("parse %s: %w", cand.URL, err)
	}
	if res.Blocked {
		err := fmt.Errorf("parse %s: blocked by %s challenge", cand.URL, res.BlockedBy)
		cand.Fail(err.Error())
		return nil, err
	}
	if !res.OK() {
		err := fmt.Errorf("parse %s: status %d", cand.URL, res.StatusCode)
		cand.Fail(err.Error())
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		cand.Fail("unparseable html: " + err.Error())
		return nil, fmt.Errorf("parse %s: %w", cand.URL, err)
	}

	result := p.extract(doc)
	cand.RelatedURLs = mergeRelated(cand.RelatedURLs, auxLinks(cand.URL, doc))

	cand.Parse = result
	if err := cand.Advance(event.StatusParsed); err != nil {
		return nil, err
	}
	cand.Meta.RecordTiming(event.StatusParsed, time.Since(start))

	p.logger.Debug("parsed candidate",
		"url", cand.URL, "confidence", result.Confidence, "evidence", len(result.Evidence))
	return result, nil
}

// extract applies the rule chains and assembles the result.
func (p *Parser) extract(doc *goquery.Document) *event.ParseResult {
	bodyText := clean(doc.Find("body").Text())
	now := time.Now().UTC()

	result := &event.ParseResult{Method: event.MethodDeterministic}

	record := func(field, value string, source event.EvidenceSource, quote string, confidence float64) {
		result.Evidence = append(result.Evidence, event.Evidence{
			Field:       field,
			Value:       value,
			Source:      source,
			Quote:       quote,
			Confidence:  confidence,
			CollectedAt: now,
		})
	}

	if h := firstHit(titleRules, doc, bodyText, validTitle); h != nil {
		result.Title = h.value
		result.Confidence += weightTitle
		record("title", h.value, h.source, h.quote, evidenceStringConfidence)
	}
	if h := firstHit(descriptionRules, doc, bodyText, nil); h != nil {
		result.Description = h.value
		result.Confidence += weightDescription
		record("description", h.value, h.source, h.quote, evidenceStringConfidence)
	}
	if h := firstHit(dateRules, doc, bodyText, nil); h != nil {
		result.Date = h.value
		result.Confidence += weightDate
		record("date", h.value, h.source, h.quote, evidenceStringConfidence)
	}
	if h := firstHit(locationRules, doc, bodyText, validLocation); h != nil {
		result.Location = h.value
		result.Confidence += weightLocation
		record("location", h.value, h.source, h.quote, evidenceStringConfidence)
	}
	if h := firstHit(venueRules, doc, bodyText, nil); h != nil {
		result.Venue = h.value
		result.Confidence += weightVenue
		record("venue", h.value, h.source, h.quote, evidenceStringConfidence)
	}

	speakers, speakerSource := extractSpeakers(doc)
	if len(speakers) > 0 {
		result.Speakers = speakers
		result.Confidence += weightSpeakers
		names := make([]string, len(speakers))
		for i, s := range speakers {
			names[i] = s.Name
		}
		record("speakers", strings.Join(names, "; "), speakerSource,
			sentenceAround(bodyText, speakers[0].Name), evidenceListConfidence)
	}

	if agenda := extractAgenda(doc); len(agenda) > 0 {
		result.Agenda = agenda
		record("agenda", strings.Join(agenda, "; "), event.EvidenceHTML,
			truncate(agenda[0]), evidenceListConfidence)
	}

	if result.Confidence > 1.0 {
		result.Confidence = 1.0
	}
	return result
}

// auxLinks collects same-host anchors whose path mentions a speaker,
// agenda, or sponsor page. The extractor fetches a few of them later for
// extra context.
func auxLinks(baseURL string, doc *goquery.Document) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		u, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(u)
		if resolved.Hostname() != base.Hostname() {
			return
		}
		path := strings.ToLower(resolved.Path)
		for _, token := range auxLinkTokens {
			if strings.Contains(path, token) {
				resolved.Fragment = ""
				links = append(links, resolved.String())
				return
			}
		}
	})
	return links
}

func mergeRelated(existing, found []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(found))
	var out []string
	for _, lst := range [][]string{existing, found} {
		for _, u := range lst {
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			out = append(out, u)
		}
	}
	return out
}
