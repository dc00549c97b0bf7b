package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/greyfort/eventscout/internal/config"
	"github.com/greyfort/eventscout/internal/discovery"
	"github.com/greyfort/eventscout/internal/extract"
	"github.com/greyfort/eventscout/internal/fetch"
	"github.com/greyfort/eventscout/internal/fingerprint"
	"github.com/greyfort/eventscout/internal/llm"
	"github.com/greyfort/eventscout/internal/metrics"
	"github.com/greyfort/eventscout/internal/parse"
	"github.com/greyfort/eventscout/internal/pipeline"
	"github.com/greyfort/eventscout/internal/prioritize"
	"github.com/greyfort/eventscout/internal/report"
	"github.com/greyfort/eventscout/internal/runlog"
	"github.com/greyfort/eventscout/pkg/cache"
	"github.com/greyfort/eventscout/pkg/proxy"
	"github.com/greyfort/eventscout/pkg/ratelimit"
)

func newDiscoverCommand(configFlag *string) *cobra.Command {
	var (
		country     string
		fromFlag    string
		toFlag      string
		jsonOut     bool
		saveEvents  bool
		withMetrics bool
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "discover <query>",
		Short: "Run one discovery pipeline request and print the results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFlag)
			if err != nil {
				return err
			}

			req := pipeline.Request{Query: args[0], Country: country}
			if fromFlag != "" {
				if req.DateFrom, err = time.Parse("2006-01-02", fromFlag); err != nil {
					return fmt.Errorf("invalid --from date %q: %w", fromFlag, err)
				}
			}
			if toFlag != "" {
				if req.DateTo, err = time.Parse("2006-01-02", toFlag); err != nil {
					return fmt.Errorf("invalid --to date %q: %w", toFlag, err)
				}
			}

			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			recorder := runlog.NewRecorder(slog.LevelInfo)
			logger := runlog.Tee(
				slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})),
				recorder,
			)

			if withMetrics {
				srv := metrics.Start(cfg.MetricsPort)
				defer func() {
					ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
					defer cancel()
					_ = srv.Stop(ctx)
				}()
			}

			p, err := buildPipeline(cfg, recorder, logger)
			if err != nil {
				return err
			}

			result, err := p.Process(cmd.Context(), req)
			if err != nil {
				return err
			}

			if saveEvents && len(result.Published) > 0 {
				if err := persistEvents(cmd.Context(), cfg, result); err != nil {
					return err
				}
			}

			summary := report.GenerateSummary(req.Query, req.Country, result)
			if jsonOut {
				return report.WriteJSON(cmd.OutOrStdout(), summary)
			}
			if err := report.WriteText(cmd.OutOrStdout(), summary); err != nil {
				return err
			}
			if len(result.Published) > 0 {
				fmt.Fprintln(cmd.OutOrStdout())
				fmt.Fprintln(cmd.OutOrStdout(), renderEventTable(result.Published))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&country, "country", "", "Target country code (e.g. DE)")
	cmd.Flags().StringVar(&fromFlag, "from", "", "Date window start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&toFlag, "to", "", "Date window end (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the run summary as JSON")
	cmd.Flags().BoolVar(&saveEvents, "save", false, "Persist published events to the configured store")
	cmd.Flags().BoolVar(&withMetrics, "metrics", false, "Serve Prometheus metrics during the run")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	return cmd
}

// buildPipeline assembles the stage implementations from configuration.
func buildPipeline(cfg *config.Config, recorder *runlog.Recorder, logger *slog.Logger) (*pipeline.Pipeline, error) {
	var pool *proxy.Pool
	if cfg.Fetch.ProxyFile != "" {
		var err error
		pool, err = proxy.FromFile(cfg.Fetch.ProxyFile, proxy.Options{})
		if err != nil {
			return nil, fmt.Errorf("load proxies: %w", err)
		}
	}

	fetcher, err := fetch.New(fetch.Config{
		Timeout:       cfg.Timeouts.Fetch(),
		UseCookieJar:  true,
		Fingerprint:   fingerprint.Profile(cfg.Fetch.Fingerprint),
		ProxyPool:     pool,
		RespectRobots: cfg.RespectRobots,
		RobotsAgent:   "eventscout",
	})
	if err != nil {
		return nil, fmt.Errorf("build fetcher: %w", err)
	}

	var client llm.Client
	if cfg.LLM.APIKey != "" {
		client, err = llm.New(llm.Config{
			Provider: cfg.LLM.Provider,
			APIKey:   cfg.LLM.APIKey,
			Model:    cfg.LLM.Model,
			BaseURL:  cfg.LLM.BaseURL,
			Timeout:  cfg.Timeouts.LLM(),
		})
		if err != nil {
			return nil, fmt.Errorf("build llm client: %w", err)
		}
	} else {
		logger.Warn("no llm api key configured, model scoring and enhancement disabled")
	}

	providers, err := buildProviders(cfg, fetcher, logger)
	if err != nil {
		return nil, err
	}

	discoverer := discovery.New(providers, discovery.Options{
		MaxCandidates: cfg.Limits.MaxCandidates,
		Timeout:       cfg.Timeouts.Discovery(),
		Cache:         cache.NewMemory(),
		Logger:        logger,
	})

	limiter := ratelimit.NewInterval(500*time.Millisecond, 0.3)

	return pipeline.New(cfg, pipeline.Deps{
		Discoverer:  discoverer,
		Prioritizer: prioritize.New(client, limiter, logger),
		Parser:      parse.New(fetcher, logger),
		Extractor:   extract.New(client, fetcher, cfg.Limits.AuxPages, logger),
		Limiter:     limiter,
		Recorder:    recorder,
		Logger:      logger,
	})
}

func buildProviders(cfg *config.Config, fetcher *fetch.Fetcher, logger *slog.Logger) ([]discovery.Provider, error) {
	var providers []discovery.Provider

	if cfg.Sources.WebSearch {
		if cfg.Providers.WebSearchAPIKey == "" {
			logger.Warn("websearch source enabled but no api key configured, skipping")
		} else {
			p, err := discovery.NewWebSearch(cfg.Providers.WebSearchAPIKey, cfg.Providers.WebSearchURL)
			if err != nil {
				return nil, fmt.Errorf("build websearch provider: %w", err)
			}
			providers = append(providers, p)
		}
	}
	if cfg.Sources.Crawl {
		if cfg.Providers.CrawlAPIKey == "" {
			logger.Warn("crawl source enabled but no api key configured, skipping")
		} else {
			p, err := discovery.NewCrawl(cfg.Providers.CrawlAPIKey, cfg.Providers.CrawlURL)
			if err != nil {
				return nil, fmt.Errorf("build crawl provider: %w", err)
			}
			providers = append(providers, p)
		}
	}
	if cfg.Sources.Curated && len(cfg.Providers.CuratedSeeds) > 0 {
		p, err := discovery.NewCurated(cfg.Providers.CuratedSeeds, fetcher, logger)
		if err != nil {
			return nil, fmt.Errorf("build curated provider: %w", err)
		}
		providers = append(providers, p)
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no discovery providers usable, check source toggles and api keys")
	}
	return providers, nil
}
