package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// CrawlProvider queries a crawl/content-extraction API over POST. Its
// results carry page content, related URLs, and extracted dates, which the
// Discoverer runs through the geo/date post-filters.
type CrawlProvider struct {
	apiKey string
	apiURL string
	client *http.Client
}

var _ Provider = (*CrawlProvider)(nil)

// NewCrawl creates the crawl provider.
func NewCrawl(apiKey, apiURL string) (*CrawlProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("crawl api key is required")
	}
	if strings.TrimSpace(apiURL) == "" {
		return nil, fmt.Errorf("crawl api url is required")
	}
	return &CrawlProvider{
		apiKey: apiKey,
		apiURL: apiURL,
		client: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (p *CrawlProvider) Name() string { return "crawl" }

type crawlRequest struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results,omitempty"`
	Country           string `json:"country,omitempty"`
	DateFrom          string `json:"date_from,omitempty"`
	DateTo            string `json:"date_to,omitempty"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type crawlResponse struct {
	Results []struct {
		URL           string   `json:"url"`
		Title         string   `json:"title"`
		Content       string   `json:"content"`
		RawContent    string   `json:"raw_content"`
		RelatedURLs   []string `json:"related_urls"`
		ExtractedDate string   `json:"extracted_date"`
		Score         float64  `json:"score"`
	} `json:"results"`
}

// Search executes the query against the crawl API.
func (p *CrawlProvider) Search(ctx context.Context, req Request) (*Response, error) {
	body := crawlRequest{
		APIKey:            p.apiKey,
		Query:             req.Query,
		MaxResults:        req.Limit,
		Country:           strings.ToUpper(req.Country),
		IncludeRawContent: true,
	}
	if !req.DateFrom.IsZero() {
		body.DateFrom = req.DateFrom.Format("2006-01-02")
	}
	if !req.DateTo.IsZero() {
		body.DateTo = req.DateTo.Format("2006-01-02")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal crawl request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create crawl request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("crawl request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("crawl request failed with status %d", resp.StatusCode)
	}

	var decoded crawlResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode crawl response: %w", err)
	}

	items := make([]Item, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		content := strings.TrimSpace(r.RawContent)
		if content == "" {
			content = strings.TrimSpace(r.Content)
		}
		items = append(items, Item{
			URL:           r.URL,
			Title:         r.Title,
			Content:       content,
			RelatedURLs:   r.RelatedURLs,
			ExtractedDate: r.ExtractedDate,
			Confidence:    r.Score,
		})
	}
	return &Response{Items: items}, nil
}
