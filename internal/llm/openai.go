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

const defaultOpenAIURL = "https://api.openai.com/v1/chat/completions"

// openAI calls an OpenAI-compatible chat completions endpoint.
type openAI struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

var _ Client = (*openAI)(nil)

func newOpenAI(cfg Config) (*openAI, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("llm: openai api key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	endpoint := cfg.BaseURL
	if endpoint == "" {
		endpoint = defaultOpenAIURL
	}
	return &openAI{
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (o *openAI) GenerateContent(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"model": o.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal openai request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create openai request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("openai error %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	var decoded openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}

	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("openai response contained no choices")
	}
	return decoded.Choices[0].Message.Content, nil
}
