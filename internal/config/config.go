// Package config holds the pipeline tunables. Values come from compiled
// defaults, then an optional TOML file, then environment overrides, in that
// order. A loaded config is validated once and treated as immutable for the
// duration of a run.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Thresholds are the score cutoffs applied between stages. All values live
// in [0,1].
type Thresholds struct {
	Prioritization float64 `toml:"prioritization"`
	Confidence     float64 `toml:"confidence"`
	ParseQuality   float64 `toml:"parse_quality"`
}

// Degraded controls the temporary threshold relaxation used when discovery
// yields very few candidates. The lowered threshold is passed to the
// prioritizer as a call argument; the config itself is never mutated.
type Degraded struct {
	PoolSize  int     `toml:"pool_size"`
	Threshold float64 `toml:"threshold"`
}

// EarlyTermination stops further extraction batches once Count candidates
// exceed the Confidence bar.
type EarlyTermination struct {
	Confidence float64 `toml:"confidence"`
	Count      int     `toml:"count"`
}

// Sources toggles the discovery providers.
type Sources struct {
	WebSearch bool `toml:"websearch"`
	Crawl     bool `toml:"crawl"`
	Curated   bool `toml:"curated"`
}

// Limits bounds the candidate volume per run.
type Limits struct {
	MaxCandidates  int `toml:"max_candidates"`
	MaxExtractions int `toml:"max_extractions"`
	AuxPages       int `toml:"aux_pages"`
}

// Timeouts are the per-operation deadlines, in seconds in TOML.
type Timeouts struct {
	FetchSeconds     int `toml:"fetch_seconds"`
	LLMSeconds       int `toml:"llm_seconds"`
	DiscoverySeconds int `toml:"discovery_seconds"`
}

// Fetch returns the page-fetch deadline.
func (t Timeouts) Fetch() time.Duration { return time.Duration(t.FetchSeconds) * time.Second }

// LLM returns the model-call deadline.
func (t Timeouts) LLM() time.Duration { return time.Duration(t.LLMSeconds) * time.Second }

// Discovery returns the per-provider search deadline.
func (t Timeouts) Discovery() time.Duration { return time.Duration(t.DiscoverySeconds) * time.Second }

// LLM selects and configures the language-model provider.
type LLM struct {
	Provider string `toml:"provider"`
	APIKey   string `toml:"api_key"`
	Model    string `toml:"model"`
	BaseURL  string `toml:"base_url"`
}

// Providers configures the discovery adapters.
type Providers struct {
	WebSearchAPIKey string   `toml:"websearch_api_key"`
	WebSearchURL    string   `toml:"websearch_url"`
	CrawlAPIKey     string   `toml:"crawl_api_key"`
	CrawlURL        string   `toml:"crawl_url"`
	CuratedSeeds    []string `toml:"curated_seeds"`
}

// Fetch configures the page fetcher.
type Fetch struct {
	Fingerprint string `toml:"fingerprint"` // chrome, firefox, go
	ProxyFile   string `toml:"proxy_file"`  // optional, one proxy URL per line
}

// Store selects the published-event store backend.
type Store struct {
	Backend string `toml:"backend"` // memory, jsonl, sqlite, postgres
	Path    string `toml:"path"`    // jsonl file or sqlite dsn
	DSN     string `toml:"dsn"`     // postgres dsn
}

// Config is the full process configuration.
type Config struct {
	Thresholds       Thresholds       `toml:"thresholds"`
	Degraded         Degraded         `toml:"degraded"`
	EarlyTermination EarlyTermination `toml:"early_termination"`
	Sources          Sources          `toml:"sources"`
	Limits           Limits           `toml:"limits"`
	Timeouts         Timeouts         `toml:"timeouts"`
	LLM              LLM              `toml:"llm"`
	Providers        Providers        `toml:"providers"`
	Fetch            Fetch            `toml:"fetch"`
	Store            Store            `toml:"store"`
	MetricsPort      int              `toml:"metrics_port"`
	RespectRobots    bool             `toml:"respect_robots"`
}

// Default returns the compiled-in configuration.
func Default() *Config {
	return &Config{
		Thresholds: Thresholds{
			Prioritization: 0.5,
			Confidence:     0.6,
			ParseQuality:   0.3,
		},
		Degraded: Degraded{
			PoolSize:  3,
			Threshold: 0.3,
		},
		EarlyTermination: EarlyTermination{
			Confidence: 0.8,
			Count:      8,
		},
		Sources: Sources{
			WebSearch: true,
			Crawl:     true,
			Curated:   false,
		},
		Limits: Limits{
			MaxCandidates:  20,
			MaxExtractions: 12,
			AuxPages:       3,
		},
		Timeouts: Timeouts{
			FetchSeconds:     15,
			LLMSeconds:       30,
			DiscoverySeconds: 20,
		},
		LLM: LLM{
			Provider: "googleai",
			Model:    "gemini-2.0-flash",
		},
		Fetch: Fetch{
			Fingerprint: "chrome",
		},
		Store: Store{
			Backend: "memory",
		},
		MetricsPort:   9190,
		RespectRobots: false,
	}
}

// Load builds the configuration from defaults, an optional TOML file at
// path (a missing file is not an error when path is ""), and environment
// overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.LLM.Provider = getEnv("EVENTSCOUT_LLM_PROVIDER", c.LLM.Provider)
	c.LLM.APIKey = getEnv("EVENTSCOUT_LLM_API_KEY", c.LLM.APIKey)
	c.LLM.Model = getEnv("EVENTSCOUT_LLM_MODEL", c.LLM.Model)
	c.LLM.BaseURL = getEnv("EVENTSCOUT_LLM_BASE_URL", c.LLM.BaseURL)

	c.Providers.WebSearchAPIKey = getEnv("EVENTSCOUT_WEBSEARCH_API_KEY", c.Providers.WebSearchAPIKey)
	c.Providers.WebSearchURL = getEnv("EVENTSCOUT_WEBSEARCH_URL", c.Providers.WebSearchURL)
	c.Providers.CrawlAPIKey = getEnv("EVENTSCOUT_CRAWL_API_KEY", c.Providers.CrawlAPIKey)
	c.Providers.CrawlURL = getEnv("EVENTSCOUT_CRAWL_URL", c.Providers.CrawlURL)

	c.Fetch.Fingerprint = getEnv("EVENTSCOUT_FINGERPRINT", c.Fetch.Fingerprint)
	c.Fetch.ProxyFile = getEnv("EVENTSCOUT_PROXY_FILE", c.Fetch.ProxyFile)

	c.Store.Backend = getEnv("EVENTSCOUT_STORE_BACKEND", c.Store.Backend)
	c.Store.Path = getEnv("EVENTSCOUT_STORE_PATH", c.Store.Path)
	c.Store.DSN = getEnv("EVENTSCOUT_STORE_DSN", c.Store.DSN)

	c.Thresholds.Prioritization = getEnvFloat("EVENTSCOUT_THRESHOLD_PRIORITIZATION", c.Thresholds.Prioritization)
	c.Thresholds.Confidence = getEnvFloat("EVENTSCOUT_THRESHOLD_CONFIDENCE", c.Thresholds.Confidence)
	c.Limits.MaxCandidates = getEnvInt("EVENTSCOUT_MAX_CANDIDATES", c.Limits.MaxCandidates)
	c.MetricsPort = getEnvInt("EVENTSCOUT_METRICS_PORT", c.MetricsPort)
	c.RespectRobots = getEnvBool("EVENTSCOUT_RESPECT_ROBOTS", c.RespectRobots)
}

// Validate checks the invariants a run relies on. It returns the first
// violation found.
func (c *Config) Validate() error {
	for name, v := range map[string]float64{
		"thresholds.prioritization":    c.Thresholds.Prioritization,
		"thresholds.confidence":        c.Thresholds.Confidence,
		"thresholds.parse_quality":     c.Thresholds.ParseQuality,
		"degraded.threshold":           c.Degraded.Threshold,
		"early_termination.confidence": c.EarlyTermination.Confidence,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("config: %s must be in [0,1], got %v", name, v)
		}
	}

	if !c.Sources.WebSearch && !c.Sources.Crawl && !c.Sources.Curated {
		return errors.New("config: at least one discovery source must be enabled")
	}

	if c.Limits.MaxCandidates < 1 {
		return fmt.Errorf("config: limits.max_candidates must be >= 1, got %d", c.Limits.MaxCandidates)
	}
	if c.Limits.MaxExtractions < 1 {
		return fmt.Errorf("config: limits.max_extractions must be >= 1, got %d", c.Limits.MaxExtractions)
	}
	if c.EarlyTermination.Count < 1 {
		return fmt.Errorf("config: early_termination.count must be >= 1, got %d", c.EarlyTermination.Count)
	}

	for name, secs := range map[string]int{
		"timeouts.fetch_seconds":     c.Timeouts.FetchSeconds,
		"timeouts.llm_seconds":       c.Timeouts.LLMSeconds,
		"timeouts.discovery_seconds": c.Timeouts.DiscoverySeconds,
	} {
		if secs <= 0 {
			return fmt.Errorf("config: %s must be positive, got %d", name, secs)
		}
	}

	switch c.Fetch.Fingerprint {
	case "chrome", "firefox", "go":
	default:
		return fmt.Errorf("config: unknown fetch fingerprint %q", c.Fetch.Fingerprint)
	}

	switch c.Store.Backend {
	case "memory", "jsonl", "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}

	return nil
}

// EnabledSources lists the enabled provider names in a stable order. Useful
// for logs; discovery itself runs the providers in parallel.
func (c *Config) EnabledSources() []string {
	var out []string
	if c.Sources.WebSearch {
		out = append(out, "websearch")
	}
	if c.Sources.Crawl {
		out = append(out, "crawl")
	}
	if c.Sources.Curated {
		out = append(out, "curated")
	}
	return out
}
