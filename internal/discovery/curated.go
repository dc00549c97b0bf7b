package discovery

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	sitemap "github.com/oxffaa/gopher-parse-sitemap"

	"github.com/greyfort/eventscout/internal/fetch"
)

// eventPathTokens mark sitemap URLs that plausibly point at event pages.
var eventPathTokens = []string{
	"event", "events", "konferenz", "conference", "summit",
	"kongress", "tagung", "workshop", "symposium", "messe",
}

// CuratedProvider expands a hand-maintained list of seed sites through
// their sitemaps and keeps the event-looking paths. It fetches with the
// same evasion fetcher the parser uses.
type CuratedProvider struct {
	seeds      []string
	fetcher    *fetch.Fetcher
	logger     *slog.Logger
	maxPerSeed int
}

var _ Provider = (*CuratedProvider)(nil)

// NewCurated creates the curated provider.
func NewCurated(seeds []string, fetcher *fetch.Fetcher, logger *slog.Logger) (*CuratedProvider, error) {
	if len(seeds) == 0 {
		return nil, fmt.Errorf("curated provider requires at least one seed site")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("curated provider requires a fetcher")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CuratedProvider{
		seeds:      seeds,
		fetcher:    fetcher,
		logger:     logger,
		maxPerSeed: 10,
	}, nil
}

func (p *CuratedProvider) Name() string { return "curated" }

// Search walks each seed's sitemap and returns event-path URLs that also
// mention a query token. Seed failures are skipped, not fatal: a curated
// list degrades seed by seed.
func (p *CuratedProvider) Search(ctx context.Context, req Request) (*Response, error) {
	queryTokens := strings.Fields(strings.ToLower(req.Query))

	var items []Item
	for _, seed := range p.seeds {
		urls, err := p.sitemapURLs(ctx, seed)
		if err != nil {
			p.logger.Warn("curated seed sitemap failed", "seed", seed, "err", err)
			continue
		}

		kept := 0
		for _, u := range urls {
			if kept >= p.maxPerSeed {
				break
			}
			if !eventPath(u) {
				continue
			}
			if len(queryTokens) > 0 && !matchesQuery(u, queryTokens) {
				continue
			}
			items = append(items, Item{URL: u})
			kept++
		}
	}
	return &Response{Items: items}, nil
}

// sitemapURLs fetches /sitemap.xml for the seed and flattens one level of
// sitemap index nesting.
func (p *CuratedProvider) sitemapURLs(ctx context.Context, seed string) ([]string, error) {
	seed = strings.TrimRight(seed, "/")
	if !strings.HasPrefix(seed, "http") {
		seed = "https://" + seed
	}

	body, err := p.fetchXML(ctx, seed+"/sitemap.xml")
	if err != nil {
		return nil, err
	}

	var urls []string
	err = sitemap.Parse(bytes.NewReader(body), func(e sitemap.Entry) error {
		urls = append(urls, e.GetLocation())
		return nil
	})
	if err == nil && len(urls) > 0 {
		return urls, nil
	}

	// Possibly a sitemap index; fetch the nested maps.
	var nested []string
	if idxErr := sitemap.ParseIndex(bytes.NewReader(body), func(e sitemap.IndexEntry) error {
		nested = append(nested, e.GetLocation())
		return nil
	}); idxErr != nil || len(nested) == 0 {
		return nil, fmt.Errorf("parse sitemap for %s: %w", seed, err)
	}

	for _, nestedURL := range nested {
		nbody, err := p.fetchXML(ctx, nestedURL)
		if err != nil {
			p.logger.Debug("nested sitemap fetch failed", "url", nestedURL, "err", err)
			continue
		}
		_ = sitemap.Parse(bytes.NewReader(nbody), func(e sitemap.Entry) error {
			urls = append(urls, e.GetLocation())
			return nil
		})
	}
	return urls, nil
}

func (p *CuratedProvider) fetchXML(ctx context.Context, url string) ([]byte, error) {
	res, err := p.fetcher.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		return nil, fmt.Errorf("fetch %s: status %d", url, res.StatusCode)
	}
	return res.Body, nil
}

func eventPath(u string) bool {
	lower := strings.ToLower(u)
	for _, token := range eventPathTokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

// matchesQuery filters URLs by query tokens, ignoring tokens shorter than
// four characters since they match too loosely. A query with no usable
// tokens cannot discriminate, so every URL passes.
func matchesQuery(u string, tokens []string) bool {
	lower := strings.ToLower(u)
	usable := false
	for _, t := range tokens {
		if len(t) < 4 {
			continue
		}
		usable = true
		if strings.Contains(lower, t) {
			return true
		}
	}
	return !usable
}
