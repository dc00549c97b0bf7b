// Package metrics exposes the pipeline's Prometheus metrics and the
// /metrics HTTP server.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	StageCandidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventscout_stage_candidates_total",
			Help: "Candidates entering and leaving each pipeline stage",
		},
		[]string{"stage", "direction"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventscout_stage_duration_seconds",
			Help:    "Wall time per pipeline stage",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	ProviderResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventscout_provider_results_total",
			Help: "Raw items returned per discovery provider",
		},
		[]string{"provider"},
	)

	ProviderFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventscout_provider_failures_total",
			Help: "Discovery provider calls that failed and degraded to an empty contribution",
		},
		[]string{"provider"},
	)

	LLMCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventscout_llm_calls_total",
			Help: "Language-model calls by purpose and outcome",
		},
		[]string{"purpose", "outcome"},
	)

	FetchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventscout_fetch_requests_total",
			Help: "Page fetches by domain, status, and block detection",
		},
		[]string{"domain", "status", "blocked"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventscout_fetch_duration_seconds",
			Help:    "Duration of page fetches",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"domain"},
	)

	PublishedEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventscout_published_events_total",
			Help: "Events that passed the quality gate",
		},
	)
)

// RecordStage updates the per-stage counters and duration histogram.
func RecordStage(stage string, in, out int, duration time.Duration) {
	StageCandidates.WithLabelValues(stage, "in").Add(float64(in))
	StageCandidates.WithLabelValues(stage, "out").Add(float64(out))
	StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordFetch updates the fetch counters. A zero status means the request
// failed before a response arrived.
func RecordFetch(domain string, status int, duration time.Duration, blocked bool) {
	statusStr := "error"
	if status > 0 {
		statusStr = strconv.Itoa(status)
	}
	FetchRequests.WithLabelValues(domain, statusStr, strconv.FormatBool(blocked)).Inc()
	FetchDuration.WithLabelValues(domain).Observe(duration.Seconds())
}

// RecordLLMCall counts one model call. Purpose is "prioritize" or
// "enhance"; outcome is "ok", "error", or "fallback".
func RecordLLMCall(purpose, outcome string) {
	LLMCalls.WithLabelValues(purpose, outcome).Inc()
}

// Server serves /metrics for Prometheus scrapes.
type Server struct {
	srv *http.Server
}

// Start begins listening on the given port in the background.
func Start(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server failed: %v\n", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
