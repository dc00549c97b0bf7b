package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultGoogleAIURL = "https://generativelanguage.googleapis.com/v1beta"

// googleAI calls the Generative Language REST API.
type googleAI struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

var _ Client = (*googleAI)(nil)

func newGoogleAI(cfg Config) (*googleAI, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("llm: googleai api key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGoogleAIURL
	}
	return &googleAI{
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type googleAIRequest struct {
	Contents []googleAIContent `json:"contents"`
}

type googleAIContent struct {
	Parts []googleAIPart `json:"parts"`
}

type googleAIPart struct {
	Text string `json:"text"`
}

type googleAIResponse struct {
	Candidates []struct {
		Content struct {
			Parts []googleAIPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (g *googleAI) GenerateContent(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(googleAIRequest{
		Contents: []googleAIContent{{Parts: []googleAIPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal googleai request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create googleai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("googleai request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("googleai request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var decoded googleAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode googleai response: %w", err)
	}

	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("googleai response contained no candidates")
	}

	var out strings.Builder
	for _, part := range decoded.Candidates[0].Content.Parts {
		out.WriteString(part.Text)
	}
	return out.String(), nil
}
