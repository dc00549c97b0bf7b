// Package event defines the records that flow through the discovery
// pipeline: candidates, parse/extract results, evidence, and the published
// event that leaves the quality gate.
package event

import (
	"fmt"
	"time"
)

// Source identifies the discovery provider that produced a candidate.
type Source string

const (
	SourceWebSearch Source = "websearch"
	SourceCrawl     Source = "crawl"
	SourceCurated   Source = "curated"
)

// Status is the pipeline lifecycle state of a candidate.
type Status string

const (
	StatusDiscovered  Status = "discovered"
	StatusPrioritized Status = "prioritized"
	StatusParsed      Status = "parsed"
	StatusExtracted   Status = "extracted"
	StatusPublished   Status = "published"
	StatusRejected    Status = "rejected"
	StatusFailed      Status = "failed"
)

// stageOrder maps each non-terminal status to its position in the pipeline.
var stageOrder = map[Status]int{
	StatusDiscovered:  0,
	StatusPrioritized: 1,
	StatusParsed:      2,
	StatusExtracted:   3,
	StatusPublished:   4,
}

// Terminal reports whether the status ends a candidate's lifecycle.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusFailed || s == StatusPublished
}

// Meta carries per-candidate request context and diagnostics. It is the
// typed replacement for a free-form metadata bag: the fields are exactly
// what the stages record.
type Meta struct {
	Query         string                   `json:"query,omitempty"`
	Country       string                   `json:"country,omitempty"`
	Locale        string                   `json:"locale,omitempty"`
	DiscoveredAt  time.Time                `json:"discovered_at,omitempty"`
	ExtractedDate string                   `json:"extracted_date,omitempty"`
	GeoReason     string                   `json:"geo_reason,omitempty"`
	DateReason    string                   `json:"date_reason,omitempty"`
	StageTimings  map[Status]time.Duration `json:"stage_timings,omitempty"`
	Notes         []string                 `json:"notes,omitempty"`
}

// RecordTiming stores the wall time a stage spent on this candidate.
func (m *Meta) RecordTiming(s Status, d time.Duration) {
	if m.StageTimings == nil {
		m.StageTimings = make(map[Status]time.Duration, 4)
	}
	m.StageTimings[s] = d
}

// Candidate is a discovered URL tracked through the pipeline. The status
// only moves forward through the stage order; rejected and failed are
// reachable from any stage and are final.
type Candidate struct {
	ID            string         `json:"id"`
	URL           string         `json:"url"`
	Source        Source         `json:"source"`
	Status        Status         `json:"status"`
	PriorityScore *float64       `json:"priority_score,omitempty"`
	Parse         *ParseResult   `json:"parse_result,omitempty"`
	Extract       *ExtractResult `json:"extract_result,omitempty"`
	RelatedURLs   []string       `json:"related_urls,omitempty"`
	Content       string         `json:"-"` // provider-supplied page content or snippet
	Meta          Meta           `json:"metadata"`
}

// Advance moves the candidate to the next status. It returns an error when
// the transition would move backwards, skip a stage, or leave a terminal
// state; callers treat that as an orchestration bug, not a candidate failure.
func (c *Candidate) Advance(to Status) error {
	if c.Status == StatusRejected || c.Status == StatusFailed {
		return fmt.Errorf("candidate %s: cannot advance from terminal status %s", c.ID, c.Status)
	}
	cur, ok := stageOrder[c.Status]
	if !ok {
		return fmt.Errorf("candidate %s: unknown status %s", c.ID, c.Status)
	}
	next, ok := stageOrder[to]
	if !ok {
		return fmt.Errorf("candidate %s: unknown target status %s", c.ID, to)
	}
	if next != cur+1 {
		return fmt.Errorf("candidate %s: illegal status transition %s -> %s", c.ID, c.Status, to)
	}
	c.Status = to
	return nil
}

// Reject marks the candidate terminally rejected, recording why.
func (c *Candidate) Reject(reason string) {
	c.Status = StatusRejected
	if reason != "" {
		c.Meta.Notes = append(c.Meta.Notes, "rejected: "+reason)
	}
}

// Fail marks the candidate terminally failed, recording why.
func (c *Candidate) Fail(reason string) {
	c.Status = StatusFailed
	if reason != "" {
		c.Meta.Notes = append(c.Meta.Notes, "failed: "+reason)
	}
}

// Result returns the richest extraction available: the extract result when
// present, otherwise the parse result. Publishing requires one of the two.
func (c *Candidate) Result() *ParseResult {
	if c.Extract != nil {
		return &c.Extract.ParseResult
	}
	return c.Parse
}
