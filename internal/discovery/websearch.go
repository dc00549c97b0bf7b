package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// WebSearchProvider queries a search-engine-style REST API over GET.
type WebSearchProvider struct {
	apiKey string
	apiURL string
	client *http.Client
}

var _ Provider = (*WebSearchProvider)(nil)

// NewWebSearch creates the websearch provider. The API URL must be
// supplied by configuration; there is no default endpoint.
func NewWebSearch(apiKey, apiURL string) (*WebSearchProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("websearch api key is required")
	}
	if strings.TrimSpace(apiURL) == "" {
		return nil, fmt.Errorf("websearch api url is required")
	}
	return &WebSearchProvider{
		apiKey: apiKey,
		apiURL: apiURL,
		client: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (p *WebSearchProvider) Name() string { return "websearch" }

type webSearchResponse struct {
	Web struct {
		Results []struct {
			Title       string  `json:"title"`
			URL         string  `json:"url"`
			Description string  `json:"description"`
			Score       float64 `json:"score"`
		} `json:"results"`
	} `json:"web"`
}

// Search executes the query. The country context, when present, is folded
// into the query string so region-local results rank higher.
func (p *WebSearchProvider) Search(ctx context.Context, req Request) (*Response, error) {
	endpoint, err := url.Parse(p.apiURL)
	if err != nil {
		return nil, fmt.Errorf("parse websearch url: %w", err)
	}

	query := req.Query
	if req.CountryContext != "" {
		query += " " + req.CountryContext
	}

	q := endpoint.Query()
	q.Set("q", query)
	if req.Limit > 0 {
		q.Set("count", fmt.Sprintf("%d", req.Limit))
	}
	if req.Country != "" {
		q.Set("country", strings.ToUpper(req.Country))
	}
	endpoint.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create websearch request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Subscription-Token", p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("websearch request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("websearch request failed with status %d", resp.StatusCode)
	}

	var decoded webSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode websearch response: %w", err)
	}

	items := make([]Item, 0, len(decoded.Web.Results))
	for _, r := range decoded.Web.Results {
		items = append(items, Item{
			URL:         r.URL,
			Title:       r.Title,
			Description: strings.TrimSpace(r.Description),
			Confidence:  r.Score,
		})
	}
	return &Response{Items: items}, nil
}
