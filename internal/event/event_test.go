package event

import (
	"testing"
	"time"
)

func TestCandidate_AdvanceForwardOnly(t *testing.T) {
	c := &Candidate{ID: "websearch-1", Status: StatusDiscovered}

	if err := c.Advance(StatusPrioritized); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Advance(StatusParsed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Regression must be refused
	if err := c.Advance(StatusDiscovered); err == nil {
		t.Errorf("expected regression to be rejected")
	}
	// So must a skipped stage
	if err := c.Advance(StatusPublished); err == nil {
		t.Errorf("expected stage skip to be rejected")
	}
	if c.Status != StatusParsed {
		t.Errorf("status changed on failed transition: %s", c.Status)
	}
}

func TestCandidate_TerminalStates(t *testing.T) {
	c := &Candidate{ID: "crawl-1", Status: StatusPrioritized}
	c.Fail("fetch timeout")

	if c.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", c.Status)
	}
	if err := c.Advance(StatusParsed); err == nil {
		t.Errorf("expected advance from terminal state to fail")
	}
	if len(c.Meta.Notes) != 1 {
		t.Errorf("expected failure note, got %v", c.Meta.Notes)
	}
}

func TestCandidate_Result(t *testing.T) {
	c := &Candidate{ID: "curated-1"}
	if c.Result() != nil {
		t.Errorf("expected nil result for fresh candidate")
	}

	c.Parse = &ParseResult{Title: "parsed"}
	if got := c.Result().Title; got != "parsed" {
		t.Errorf("expected parse result, got %q", got)
	}

	c.Extract = &ExtractResult{ParseResult: ParseResult{Title: "extracted"}}
	if got := c.Result().Title; got != "extracted" {
		t.Errorf("expected extract result to win, got %q", got)
	}
}

func TestValidName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"Anna Schmidt", true},
		{"Jürgen Müller", true},
		{"Mary J. Watson", true},
		{"Keynote Speaker", false},
		{"Conference Team", false},
		{"anna schmidt", false},
		{"Anna", false},
		{"Acme GmbH", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidName(tt.name); got != tt.valid {
			t.Errorf("ValidName(%q) = %v, want %v", tt.name, got, tt.valid)
		}
	}
}

func TestSpeakerFromAny(t *testing.T) {
	s, ok := SpeakerFromAny("Anna Schmidt, CTO, Acme")
	if !ok || s.Name != "Anna Schmidt" || s.Title != "CTO" || s.Company != "Acme" {
		t.Errorf("string conversion failed: %+v ok=%v", s, ok)
	}

	s, ok = SpeakerFromAny(map[string]any{"name": "Max Weber", "role": "Partner", "organization": "Weber Legal"})
	if !ok || s.Name != "Max Weber" || s.Title != "Partner" || s.Company != "Weber Legal" {
		t.Errorf("map conversion failed: %+v ok=%v", s, ok)
	}

	if _, ok := SpeakerFromAny(42); ok {
		t.Errorf("expected numeric payload to be rejected")
	}
	if _, ok := SpeakerFromAny(map[string]any{"title": "CTO"}); ok {
		t.Errorf("expected nameless map to be rejected")
	}
}

func TestSpeaker_KeyCaseInsensitive(t *testing.T) {
	a := Speaker{Name: "Anna Schmidt", Title: "CTO", Company: "Acme"}
	b := Speaker{Name: "ANNA SCHMIDT", Title: "cto", Company: "acme"}
	if a.Key() != b.Key() {
		t.Errorf("expected case-insensitive keys to match: %q vs %q", a.Key(), b.Key())
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		raw        string
		start      string
		end        string
		confidence string
		ok         bool
	}{
		{"2026-03-12", "2026-03-12", "2026-03-12", DateConfidenceHigh, true},
		{"March 12, 2026", "2026-03-12", "2026-03-12", DateConfidenceHigh, true},
		{"12 March 2026", "2026-03-12", "2026-03-12", DateConfidenceHigh, true},
		{"12.03.2026", "2026-03-12", "2026-03-12", DateConfidenceHigh, true},
		{"12-14 March 2026", "2026-03-12", "2026-03-14", DateConfidenceHigh, true},
		{"March 2026", "2026-03-01", "2026-03-01", DateConfidenceMedium, true},
		{"sometime soon", "", "", "", false},
		{"", "", "", "", false},
	}

	for _, tt := range tests {
		start, end, conf, ok := NormalizeDate(tt.raw)
		if ok != tt.ok {
			t.Errorf("NormalizeDate(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
			continue
		}
		if start != tt.start || end != tt.end || conf != tt.confidence {
			t.Errorf("NormalizeDate(%q) = (%s, %s, %s), want (%s, %s, %s)",
				tt.raw, start, end, conf, tt.start, tt.end, tt.confidence)
		}
	}
}

func TestMeta_RecordTiming(t *testing.T) {
	var m Meta
	m.RecordTiming(StatusParsed, 120*time.Millisecond)
	if m.StageTimings[StatusParsed] != 120*time.Millisecond {
		t.Errorf("timing not recorded: %v", m.StageTimings)
	}
}

func TestParseResult_FieldCount(t *testing.T) {
	r := &ParseResult{Title: "t", Date: "2026-01-01"}
	if got := r.FieldCount(); got != 2 {
		t.Errorf("FieldCount = %d, want 2", got)
	}
}
