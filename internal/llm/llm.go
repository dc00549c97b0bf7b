// Package llm is the pipeline's language-model boundary: a one-method
// client port, REST adapters for the supported providers, and the helpers
// callers need to get JSON out of model output.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Client generates text for a prompt. Prioritization and enhancement
// prompts ask for JSON; any malformed response is the caller's cue to fall
// back to its heuristic path.
type Client interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider string // "googleai" or "openai"
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// New builds a client for the configured provider.
func New(cfg Config) (Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	switch cfg.Provider {
	case "googleai":
		return newGoogleAI(cfg)
	case "openai":
		return newOpenAI(cfg)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}

// StripFences removes a Markdown code fence around a model response.
// Models regularly wrap requested JSON in ```json blocks even when told
// not to.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		// Drop the language tag line ("json", "JSON", or empty).
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
