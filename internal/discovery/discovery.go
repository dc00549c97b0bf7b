// Package discovery finds candidate event URLs. One to three independent
// providers are queried in parallel; their results are merged, deduplicated
// by URL, and truncated to the configured candidate limit. A provider
// failure degrades to an empty contribution and never aborts the others.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/greyfort/eventscout/internal/event"
	"github.com/greyfort/eventscout/internal/metrics"
	"github.com/greyfort/eventscout/pkg/cache"
)

// Request is what the Discoverer passes to each provider. Providers must
// tolerate any subset of the optional fields being zero.
type Request struct {
	Query          string
	Country        string
	Limit          int
	CountryContext string
	DateFrom       time.Time
	DateTo         time.Time
}

// Item is one raw provider hit.
type Item struct {
	URL           string
	Title         string
	Description   string
	Content       string
	RelatedURLs   []string
	ExtractedDate string
	Confidence    float64
}

// Response wraps a provider's hits.
type Response struct {
	Items []Item
}

// Provider is an external source of discovery results.
type Provider interface {
	Name() string
	Search(ctx context.Context, req Request) (*Response, error)
}

// Discoverer fans a query out to the enabled providers and merges the
// results into candidates.
type Discoverer struct {
	providers     []Provider
	loader        *cache.Loader
	logger        *slog.Logger
	maxCandidates int
	timeout       time.Duration
	cacheTTL      time.Duration
}

// Options configures a Discoverer.
type Options struct {
	MaxCandidates int
	Timeout       time.Duration // per-provider search deadline
	Cache         cache.Cache   // optional read-through result cache
	CacheTTL      time.Duration
	Logger        *slog.Logger
}

// New creates a Discoverer over the given providers.
func New(providers []Provider, opts Options) *Discoverer {
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = 20
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	d := &Discoverer{
		providers:     providers,
		logger:        opts.Logger,
		maxCandidates: opts.MaxCandidates,
		timeout:       opts.Timeout,
		cacheTTL:      opts.CacheTTL,
	}
	if opts.Cache != nil {
		d.loader = cache.NewLoader(opts.Cache)
	}
	return d
}

// contribution is one provider's mapped candidates, appended to the merge
// list as each provider completes. Merge order therefore follows
// completion order, not provider registration order.
type contribution struct {
	provider   string
	candidates []*event.Candidate
}

// Discover queries all providers in parallel and returns the merged,
// deduplicated candidate set plus the names of the providers that
// contributed (failed providers included: they were tried).
func (d *Discoverer) Discover(ctx context.Context, query, country string, dateFrom, dateTo time.Time) ([]*event.Candidate, []string, error) {
	if len(d.providers) == 0 {
		return nil, nil, fmt.Errorf("discovery: no providers configured")
	}

	req := Request{
		Query:          query,
		Country:        country,
		Limit:          d.maxCandidates,
		CountryContext: countryContext(country),
		DateFrom:       dateFrom,
		DateTo:         dateTo,
	}

	var (
		mu            sync.Mutex
		contributions []contribution
		tried         []string
	)

	g, gCtx := errgroup.WithContext(ctx)
	for _, p := range d.providers {
		p := p
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(gCtx, d.timeout)
			defer cancel()

			items, err := d.search(pctx, p, req)

			mu.Lock()
			defer mu.Unlock()
			tried = append(tried, p.Name())

			if err != nil {
				// Isolated failure: log, count, contribute nothing.
				d.logger.Warn("discovery provider failed", "provider", p.Name(), "err", err)
				metrics.ProviderFailures.WithLabelValues(p.Name()).Inc()
				return nil
			}

			metrics.ProviderResults.WithLabelValues(p.Name()).Add(float64(len(items)))
			contributions = append(contributions, contribution{
				provider:   p.Name(),
				candidates: d.mapItems(p.Name(), items, query, country, dateFrom, dateTo),
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, tried, err
	}

	merged := dedupe(contributions)
	if len(merged) > d.maxCandidates {
		merged = merged[:d.maxCandidates]
	}

	d.logger.Info("discovery complete",
		"query", query, "providers", len(d.providers), "candidates", len(merged))
	return merged, tried, nil
}

// search runs one provider call, through the result cache when one is
// configured. Cached entries are raw items, so every run maps them into
// fresh candidates.
func (d *Discoverer) search(ctx context.Context, p Provider, req Request) ([]Item, error) {
	if d.loader == nil {
		resp, err := p.Search(ctx, req)
		if err != nil {
			return nil, err
		}
		return resp.Items, nil
	}

	key := fmt.Sprintf("discover:%s:%s:%s", p.Name(), req.Query, req.Country)
	v, err := d.loader.Load(ctx, key, d.cacheTTL, func(ctx context.Context) (any, error) {
		resp, err := p.Search(ctx, req)
		if err != nil {
			return nil, err
		}
		return resp.Items, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Item), nil
}

// mapItems turns provider hits into candidates. The crawl provider's
// results additionally pass the geo/date post-filters: a foreign country
// TLD is tagged (kept), a date outside the window drops the item.
func (d *Discoverer) mapItems(provider string, items []Item, query, country string, dateFrom, dateTo time.Time) []*event.Candidate {
	cands := make([]*event.Candidate, 0, len(items))
	for _, item := range items {
		if item.URL == "" {
			continue
		}

		c := &event.Candidate{
			ID:          provider + "-" + uuid.New().String(),
			URL:         item.URL,
			Source:      event.Source(provider),
			Status:      event.StatusDiscovered,
			RelatedURLs: item.RelatedURLs,
			Content:     item.Content,
			Meta: event.Meta{
				Query:         query,
				Country:       country,
				DiscoveredAt:  time.Now().UTC(),
				ExtractedDate: item.ExtractedDate,
			},
		}
		if item.Title != "" && c.Content == "" {
			c.Content = strings.TrimSpace(item.Title + "\n" + item.Description)
		}

		if provider == string(event.SourceCrawl) {
			if reason := geoMismatch(item.URL, country); reason != "" {
				c.Meta.GeoReason = reason
			}
			if reason := dateOutsideWindow(item.ExtractedDate, dateFrom, dateTo); reason != "" {
				d.logger.Debug("dropping candidate outside date window",
					"url", item.URL, "reason", reason)
				continue
			}
		}

		cands = append(cands, c)
	}
	return cands
}

// dedupe removes repeated URLs, first seen wins. Contributions arrive in
// provider completion order, so which provider "owns" a shared URL is not
// deterministic across runs.
func dedupe(contributions []contribution) []*event.Candidate {
	seen := make(map[string]struct{})
	var out []*event.Candidate
	for _, contrib := range contributions {
		for _, c := range contrib.candidates {
			key := normalizeURL(c.URL)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""
	s := u.String()
	return strings.TrimSuffix(s, "/")
}

// tldCountry maps country-code TLDs to ISO country codes. Generic TLDs are
// absent on purpose: they carry no geo signal and must not be tagged.
var tldCountry = map[string]string{
	"at": "AT", "au": "AU", "be": "BE", "ca": "CA", "ch": "CH",
	"cz": "CZ", "de": "DE", "dk": "DK", "es": "ES", "fr": "FR",
	"it": "IT", "jp": "JP", "nl": "NL", "pl": "PL", "se": "SE",
	"sg": "SG", "uk": "GB", "us": "US", "vn": "VN",
}

// geoMismatch returns a diagnostic reason when the URL's country TLD
// points at a different country than the target. The candidate is kept;
// the prioritizer weighs the tag.
func geoMismatch(rawURL, country string) string {
	if country == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := u.Hostname()
	idx := strings.LastIndexByte(host, '.')
	if idx < 0 {
		return ""
	}
	tld := strings.ToLower(host[idx+1:])
	iso, known := tldCountry[tld]
	if !known || strings.EqualFold(iso, country) {
		return ""
	}
	return fmt.Sprintf("tld .%s suggests %s, target is %s", tld, iso, strings.ToUpper(country))
}

// dateOutsideWindow returns a diagnostic reason when the extracted date
// parses and falls outside [dateFrom, dateTo]. An unparseable or missing
// date passes: the parser will pin it down later.
func dateOutsideWindow(extractedDate string, dateFrom, dateTo time.Time) string {
	if extractedDate == "" || (dateFrom.IsZero() && dateTo.IsZero()) {
		return ""
	}
	start, _, _, ok := event.NormalizeDate(extractedDate)
	if !ok {
		return ""
	}
	t, err := time.Parse("2006-01-02", start)
	if err != nil {
		return ""
	}
	if !dateFrom.IsZero() && t.Before(dateFrom) {
		return fmt.Sprintf("date %s before window start %s", start, dateFrom.Format("2006-01-02"))
	}
	if !dateTo.IsZero() && t.After(dateTo) {
		return fmt.Sprintf("date %s after window end %s", start, dateTo.Format("2006-01-02"))
	}
	return ""
}

// countryContext expands a country code into the hint phrase providers can
// fold into their queries.
func countryContext(country string) string {
	switch strings.ToUpper(country) {
	case "DE":
		return "Germany Deutschland"
	case "AT":
		return "Austria Österreich"
	case "CH":
		return "Switzerland Schweiz"
	case "GB":
		return "United Kingdom"
	case "US":
		return "United States"
	case "":
		return ""
	default:
		return strings.ToUpper(country)
	}
}
