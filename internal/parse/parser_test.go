package parse

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/greyfort/eventscout/internal/event"
	"github.com/greyfort/eventscout/internal/fetch"
	"github.com/greyfort/eventscout/internal/fingerprint"
)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	f, err := fetch.New(fetch.Config{Fingerprint: fingerprint.ProfileGo})
	if err != nil {
		t.Fatal(err)
	}
	return New(f, nil)
}

func serve(t *testing.T, html string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(html))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func parseHTML(t *testing.T, html string) (*event.Candidate, *event.ParseResult) {
	t.Helper()
	srv := serve(t, html)
	cand := &event.Candidate{ID: "websearch-1", URL: srv.URL, Status: event.StatusPrioritized}

	result, err := newTestParser(t).Parse(context.Background(), cand)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return cand, result
}

func TestParse_TitleOnlyPage(t *testing.T) {
	// A page with only a <title> must score exactly the title weight and
	// produce exactly one evidence entry.
	_, result := parseHTML(t, `<html><head><title>Legal Compliance Summit 2026 Berlin</title></head><body></body></html>`)

	if math.Abs(result.Confidence-0.3) > 1e-9 {
		t.Errorf("confidence = %v, want 0.3", result.Confidence)
	}
	if len(result.Evidence) != 1 {
		t.Fatalf("evidence entries = %d, want 1", len(result.Evidence))
	}
	if result.Evidence[0].Field != "title" {
		t.Errorf("evidence field = %q, want title", result.Evidence[0].Field)
	}
	if result.Method != event.MethodDeterministic {
		t.Errorf("method = %q", result.Method)
	}
}

func TestParse_MicrodataWins(t *testing.T) {
	html := `<html><head>
	<title>Some Other Title For This Page</title>
	<meta property="og:title" content="Meta Title For The Event Page">
	</head><body>
	<div itemscope itemtype="https://schema.org/Event">
	  <span itemprop="name">Compliance &amp; RegTech Kongress 2026</span>
	  <meta itemprop="startDate" content="2026-04-21">
	  <div itemprop="location" itemscope>
	    <span itemprop="name">Estrel Congress Center</span>
	    <span itemprop="address">Sonnenallee 225, Berlin, Germany</span>
	  </div>
	</div>
	</body></html>`

	_, result := parseHTML(t, html)

	if result.Title != "Compliance & RegTech Kongress 2026" {
		t.Errorf("title = %q, microdata must outrank meta and <title>", result.Title)
	}
	if result.Date != "2026-04-21" {
		t.Errorf("date = %q, want microdata startDate", result.Date)
	}
	if result.Venue != "Estrel Congress Center" {
		t.Errorf("venue = %q", result.Venue)
	}
	if result.Location == "" {
		t.Errorf("location missing")
	}

	for _, ev := range result.Evidence {
		if ev.Field == "title" && ev.Source != event.EvidenceMicrodata {
			t.Errorf("title evidence source = %s, want microdata", ev.Source)
		}
	}
}

func TestParse_GenericTitleRejected(t *testing.T) {
	html := `<html><head><title>Events</title></head><body><h1>Data Privacy World Forum 2026</h1></body></html>`
	_, result := parseHTML(t, html)

	if result.Title != "Data Privacy World Forum 2026" {
		t.Errorf("generic placeholder must be skipped for the h1, got %q", result.Title)
	}
}

func TestParse_DateFromBodyRegex(t *testing.T) {
	html := `<html><head><title>Annual Compliance Conference Hamburg</title></head>
	<body><p>Join us on 12-14 March 2026 for three days of sessions on regulatory change management and more topics.</p></body></html>`

	_, result := parseHTML(t, html)

	if result.Date != "12-14 March 2026" {
		t.Errorf("date = %q, want the range match", result.Date)
	}

	var dateEv *event.Evidence
	for i := range result.Evidence {
		if result.Evidence[i].Field == "date" {
			dateEv = &result.Evidence[i]
		}
	}
	if dateEv == nil {
		t.Fatalf("no date evidence")
	}
	if dateEv.Source != event.EvidenceRegex {
		t.Errorf("date evidence source = %s, want regex", dateEv.Source)
	}
	if dateEv.Quote == "" || dateEv.Quote == dateEv.Value {
		t.Errorf("expected a sentence-scoped quote, got %q", dateEv.Quote)
	}
}

func TestParse_LocationMarkupRejected(t *testing.T) {
	html := `<html><head><title>Fintech Legal Days Munich Event</title></head><body>
	<span itemprop="address">.venue { color: red; }</span>
	<p>The conference takes place in Munich, Germany and covers the regulatory agenda.</p>
	</body></html>`

	_, result := parseHTML(t, html)

	if result.Location != "Munich, Germany" {
		t.Errorf("location = %q, stylesheet fragment must be rejected in favor of the regex", result.Location)
	}
}

func TestParse_Speakers(t *testing.T) {
	html := `<html><head><title>Regulatory Affairs Summit Vienna</title></head><body>
	<div class="speaker-grid">
	  <div class="speaker"><h3>Anna Schmidt</h3></div>
	  <div class="speaker"><h3>Max Weber</h3></div>
	  <div class="speaker"><h3>Keynote Speaker</h3></div>
	  <div class="speaker"><h3>Anna Schmidt</h3></div>
	</div>
	</body></html>`

	_, result := parseHTML(t, html)

	if len(result.Speakers) != 2 {
		t.Fatalf("speakers = %d, want 2 (invalid and duplicate dropped): %+v", len(result.Speakers), result.Speakers)
	}
	for _, s := range result.Speakers {
		if !event.ValidName(s.Name) {
			t.Errorf("invalid speaker survived: %q", s.Name)
		}
	}
}

func TestParse_ConfidenceBounds(t *testing.T) {
	// A page with every field populated must still cap at 1.0.
	html := `<html><head><title>Compliance and Ethics World Congress</title>
	<meta property="og:description" content="The leading congress for compliance, ethics and governance professionals across Europe, with three days of keynotes.">
	</head><body>
	<div itemscope itemtype="https://schema.org/Event">
	  <meta itemprop="startDate" content="2026-09-01">
	  <div itemprop="location"><span itemprop="name">Messe Frankfurt</span>
	  <span itemprop="address">Ludwig-Erhard-Anlage 1, Frankfurt, Germany</span></div>
	</div>
	<div class="speaker"><h3>Laura Klein</h3></div>
	<ul class="agenda"><li>Opening keynote on supervisory expectations</li></ul>
	</body></html>`

	_, result := parseHTML(t, html)

	if result.Confidence < 0 || result.Confidence > 1 {
		t.Errorf("confidence out of bounds: %v", result.Confidence)
	}
	if result.Confidence != 1.0 {
		t.Errorf("fully populated page should reach 1.0, got %v", result.Confidence)
	}
	if len(result.Agenda) == 0 {
		t.Errorf("agenda not extracted")
	}
}

func TestParse_FetchFailureFailsCandidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	cand := &event.Candidate{ID: "crawl-1", URL: srv.URL, Status: event.StatusPrioritized}
	_, err := newTestParser(t).Parse(context.Background(), cand)
	if err == nil {
		t.Fatalf("expected error for non-2xx response")
	}
	if cand.Status != event.StatusFailed {
		t.Errorf("candidate status = %s, want failed", cand.Status)
	}
}

func TestParse_CollectsAuxLinks(t *testing.T) {
	html := `<html><head><title>Privacy Tech Conference Berlin</title></head><body>
	<a href="/speakers">Our Speakers</a>
	<a href="/agenda/day-1">Agenda</a>
	<a href="https://othersite.example/speakers">External</a>
	<a href="/about">About</a>
	</body></html>`

	cand, _ := parseHTML(t, html)

	if len(cand.RelatedURLs) != 2 {
		t.Fatalf("aux links = %v, want the two same-host speaker/agenda links", cand.RelatedURLs)
	}
}

func TestSentenceAround(t *testing.T) {
	text := "The venue is great. Tickets for 12 March 2026 are on sale now. Book early."
	got := sentenceAround(text, "12 March 2026")
	if got != "Tickets for 12 March 2026 are on sale now." {
		t.Errorf("sentenceAround = %q", got)
	}

	if got := sentenceAround(text, "not present"); got != "not present" {
		t.Errorf("missing needle should return the needle, got %q", got)
	}
}
