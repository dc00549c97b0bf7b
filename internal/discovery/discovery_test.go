package discovery

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/greyfort/eventscout/internal/event"
	"github.com/greyfort/eventscout/pkg/cache"
)

type fakeProvider struct {
	name    string
	items   []Item
	err     error
	calls   int
	delay   time.Duration
	lastReq Request
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Search(ctx context.Context, req Request) (*Response, error) {
	f.calls++
	f.lastReq = req
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &Response{Items: f.items}, nil
}

func TestDiscover_MergesAndDeduplicates(t *testing.T) {
	// Two providers with 3 and 2 URLs, one shared: exactly 4 unique
	// candidates must come out.
	p1 := &fakeProvider{name: "websearch", items: []Item{
		{URL: "https://legal-summit.de/2026"},
		{URL: "https://compliance-con.com"},
		{URL: "https://regtech-day.io"},
	}}
	p2 := &fakeProvider{name: "crawl", items: []Item{
		{URL: "https://legal-summit.de/2026"},
		{URL: "https://gdpr-forum.eu"},
	}}

	d := New([]Provider{p1, p2}, Options{})
	cands, tried, err := d.Discover(context.Background(), "legal compliance summit", "DE", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cands) != 4 {
		t.Fatalf("expected 4 unique candidates, got %d", len(cands))
	}
	if len(tried) != 2 {
		t.Errorf("expected both providers tried, got %v", tried)
	}

	seen := make(map[string]event.Source)
	for _, c := range cands {
		if _, dup := seen[c.URL]; dup {
			t.Errorf("duplicate URL in output: %s", c.URL)
		}
		seen[c.URL] = c.Source
		if c.Status != event.StatusDiscovered {
			t.Errorf("candidate %s status = %s, want discovered", c.URL, c.Status)
		}
		if c.ID == "" || c.Meta.Query == "" {
			t.Errorf("candidate missing id or query metadata: %+v", c)
		}
	}
}

func TestDiscover_FirstSeenWinsOnDuplicate(t *testing.T) {
	// The slow provider finishes second; the shared URL must keep the fast
	// provider's tag.
	fast := &fakeProvider{name: "websearch", items: []Item{{URL: "https://shared.example/event"}}}
	slow := &fakeProvider{name: "crawl", delay: 80 * time.Millisecond, items: []Item{{URL: "https://shared.example/event"}}}

	d := New([]Provider{slow, fast}, Options{})
	cands, _, err := d.Discover(context.Background(), "q", "", time.Time{}, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(cands))
	}
	if cands[0].Source != event.SourceWebSearch {
		t.Errorf("first-seen provider tag = %s, want websearch", cands[0].Source)
	}
}

func TestDiscover_ProviderFailureIsIsolated(t *testing.T) {
	broken := &fakeProvider{name: "websearch", err: errors.New("upstream 500")}
	healthy := &fakeProvider{name: "crawl", items: []Item{{URL: "https://ok.example"}}}

	d := New([]Provider{broken, healthy}, Options{})
	cands, tried, err := d.Discover(context.Background(), "q", "", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("provider failure must not abort discovery: %v", err)
	}
	if len(cands) != 1 || cands[0].URL != "https://ok.example" {
		t.Fatalf("expected the healthy provider's candidate, got %v", cands)
	}
	if len(tried) != 2 {
		t.Errorf("failed provider still counts as tried, got %v", tried)
	}
}

func TestDiscover_TruncatesToLimit(t *testing.T) {
	var items []Item
	for i := 0; i < 30; i++ {
		items = append(items, Item{URL: "https://example.com/event/" + string(rune('a'+i))})
	}
	p := &fakeProvider{name: "websearch", items: items}

	d := New([]Provider{p}, Options{MaxCandidates: 5})
	cands, _, err := d.Discover(context.Background(), "q", "", time.Time{}, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 5 {
		t.Errorf("expected truncation to 5, got %d", len(cands))
	}
}

func TestDiscover_CrawlGeoTaggingKeepsCandidate(t *testing.T) {
	p := &fakeProvider{name: "crawl", items: []Item{
		{URL: "https://conference.fr/agenda"},
		{URL: "https://summit.de/2026"},
		{URL: "https://global-event.com"},
	}}

	d := New([]Provider{p}, Options{})
	cands, _, err := d.Discover(context.Background(), "q", "DE", time.Time{}, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 3 {
		t.Fatalf("geo mismatch must tag, not drop: got %d candidates", len(cands))
	}

	byURL := make(map[string]*event.Candidate)
	for _, c := range cands {
		byURL[c.URL] = c
	}
	if byURL["https://conference.fr/agenda"].Meta.GeoReason == "" {
		t.Errorf(".fr host with DE target must carry a geo reason")
	}
	if byURL["https://summit.de/2026"].Meta.GeoReason != "" {
		t.Errorf(".de host matches target, no geo reason expected")
	}
	if byURL["https://global-event.com"].Meta.GeoReason != "" {
		t.Errorf("generic TLD carries no geo signal, no reason expected")
	}
}

func TestDiscover_CrawlDateWindowDrops(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)

	p := &fakeProvider{name: "crawl", items: []Item{
		{URL: "https://a.example", ExtractedDate: "2026-06-15"},
		{URL: "https://b.example", ExtractedDate: "2024-03-01"}, // before window
		{URL: "https://c.example"},                              // no date: kept
	}}

	d := New([]Provider{p}, Options{})
	cands, _, err := d.Discover(context.Background(), "q", "", from, to)
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 2 {
		t.Fatalf("expected out-of-window candidate dropped, got %d", len(cands))
	}
	for _, c := range cands {
		if c.URL == "https://b.example" {
			t.Errorf("out-of-window candidate survived")
		}
	}
}

func TestDiscover_WebSearchNotDateFiltered(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)

	p := &fakeProvider{name: "websearch", items: []Item{
		{URL: "https://old.example", ExtractedDate: "2020-01-01"},
	}}

	d := New([]Provider{p}, Options{})
	cands, _, err := d.Discover(context.Background(), "q", "", from, to)
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 1 {
		t.Errorf("date post-filter applies to the crawl provider only")
	}
}

func TestDiscover_CachedResults(t *testing.T) {
	p := &fakeProvider{name: "websearch", items: []Item{{URL: "https://cached.example"}}}

	d := New([]Provider{p}, Options{Cache: cache.NewMemory(), CacheTTL: time.Minute})

	for i := 0; i < 3; i++ {
		cands, _, err := d.Discover(context.Background(), "same query", "DE", time.Time{}, time.Time{})
		if err != nil {
			t.Fatal(err)
		}
		if len(cands) != 1 {
			t.Fatalf("run %d: expected 1 candidate, got %d", i, len(cands))
		}
	}

	if p.calls != 1 {
		t.Errorf("expected 1 upstream call with cache enabled, got %d", p.calls)
	}
}

func TestDiscover_NoProviders(t *testing.T) {
	d := New(nil, Options{})
	if _, _, err := d.Discover(context.Background(), "q", "", time.Time{}, time.Time{}); err == nil {
		t.Errorf("expected error with no providers")
	}
}

func TestWebSearchProvider_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Subscription-Token") != "key" {
			t.Errorf("missing subscription token")
		}
		if got := r.URL.Query().Get("q"); got == "" {
			t.Errorf("missing query parameter")
		}
		w.Write([]byte(`{"web":{"results":[{"title":"Legal Summit","url":"https://legal.example","description":"desc","score":0.8}]}}`))
	}))
	defer srv.Close()

	p, err := NewWebSearch("key", srv.URL)
	if err != nil {
		t.Fatal(err)
	}

	resp, err := p.Search(context.Background(), Request{Query: "legal summit", Country: "de", Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].URL != "https://legal.example" {
		t.Errorf("unexpected items: %+v", resp.Items)
	}
}

func TestCrawlProvider_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		w.Write([]byte(`{"results":[{"url":"https://crawl.example","title":"t","raw_content":"full text","related_urls":["https://crawl.example/speakers"],"extracted_date":"2026-05-01","score":0.7}]}`))
	}))
	defer srv.Close()

	p, err := NewCrawl("key", srv.URL)
	if err != nil {
		t.Fatal(err)
	}

	resp, err := p.Search(context.Background(), Request{Query: "q", DateFrom: time.Now()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(resp.Items))
	}
	item := resp.Items[0]
	if item.Content != "full text" || len(item.RelatedURLs) != 1 || item.ExtractedDate != "2026-05-01" {
		t.Errorf("unexpected item: %+v", item)
	}
}

func TestProviders_RejectMissingConfig(t *testing.T) {
	if _, err := NewWebSearch("", "http://x"); err == nil {
		t.Errorf("websearch must require an api key")
	}
	if _, err := NewCrawl("k", ""); err == nil {
		t.Errorf("crawl must require an api url")
	}
	if _, err := NewCurated(nil, nil, nil); err == nil {
		t.Errorf("curated must require seeds")
	}
}

func TestGeoMismatch(t *testing.T) {
	tests := []struct {
		url     string
		country string
		tagged  bool
	}{
		{"https://event.fr/x", "DE", true},
		{"https://event.de/x", "DE", false},
		{"https://event.com/x", "DE", false},
		{"https://event.fr/x", "", false},
		{"https://event.co.uk/x", "GB", false},
	}
	for _, tt := range tests {
		got := geoMismatch(tt.url, tt.country)
		if (got != "") != tt.tagged {
			t.Errorf("geoMismatch(%q, %q) = %q, tagged want %v", tt.url, tt.country, got, tt.tagged)
		}
	}
}

func TestMatchesQuery(t *testing.T) {
	tests := []struct {
		url   string
		query string
		want  bool
	}{
		{"https://example.de/events/compliance-summit", "compliance berlin", true},
		{"https://example.de/events/jazz-night", "compliance berlin", false},
		// tokens under four characters are too loose to filter on
		{"https://example.de/events/anything", "ai", true},
		{"https://example.de/events/anything", "ai ml kI", true},
		{"https://example.de/events/tech-forum", "ai tech", true},
	}
	for _, tt := range tests {
		tokens := strings.Fields(strings.ToLower(tt.query))
		if got := matchesQuery(tt.url, tokens); got != tt.want {
			t.Errorf("matchesQuery(%q, %q) = %v, want %v", tt.url, tt.query, got, tt.want)
		}
	}
}
