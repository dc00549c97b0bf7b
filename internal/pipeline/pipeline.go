// Package pipeline orchestrates the five stages: discover, prioritize,
// parse, extract, publish. Stages run strictly in order; within the
// fetch-heavy stages candidates are processed in bounded concurrent batches
// with a barrier and a politeness pause between batches. One candidate's
// failure never aborts its siblings.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/greyfort/eventscout/internal/config"
	"github.com/greyfort/eventscout/internal/event"
	"github.com/greyfort/eventscout/internal/metrics"
	"github.com/greyfort/eventscout/internal/publish"
	"github.com/greyfort/eventscout/internal/runlog"
	"github.com/greyfort/eventscout/pkg/ratelimit"
)

// Request is one pipeline invocation: a query, an optional target country,
// and an optional date window.
type Request struct {
	Query    string
	Country  string
	DateFrom time.Time
	DateTo   time.Time
	Locale   string
}

// StageMetrics summarizes one stage of a run.
type StageMetrics struct {
	In         int           `json:"in"`
	Out        int           `json:"out"`
	Duration   time.Duration `json:"duration"`
	Efficiency float64       `json:"efficiency"` // out/in, 0 when nothing came in
}

// Result is everything a run produced: every candidate in its final state,
// the published events, per-stage metrics, captured logs, and which
// providers were tried.
type Result struct {
	Candidates     []*event.Candidate      `json:"candidates"`
	Published      []*event.PublishedEvent `json:"published"`
	Metrics        map[string]StageMetrics `json:"metrics"`
	Logs           []string                `json:"logs,omitempty"`
	ProvidersTried []string                `json:"providers_tried"`
}

// stageNames in pipeline order, used to zero-fill metrics on short-circuit.
var stageNames = []string{"discover", "prioritize", "parse", "extract", "publish"}

// Consumer-side ports over the stage implementations, so tests can slot in
// fakes per stage.
type discoverer interface {
	Discover(ctx context.Context, query, country string, dateFrom, dateTo time.Time) ([]*event.Candidate, []string, error)
}

type prioritizer interface {
	Prioritize(ctx context.Context, cands []*event.Candidate, country string, threshold float64) ([]*event.Candidate, error)
}

type parser interface {
	Parse(ctx context.Context, cand *event.Candidate) (*event.ParseResult, error)
}

type extractor interface {
	Extract(ctx context.Context, cand *event.Candidate) (*event.ExtractResult, error)
}

type publisher interface {
	Publish(cand *event.Candidate) *event.PublishedEvent
}

// publisherFactory builds a publisher for one request; the publisher holds
// the request's confidence threshold and target country.
type publisherFactory func(confidenceThreshold float64, targetCountry string) publisher

// Pipeline wires the stages together. Construct with New; the zero value is
// not usable.
type Pipeline struct {
	cfg          *config.Config
	discoverer   discoverer
	prioritizer  prioritizer
	parser       parser
	extractor    extractor
	newPublisher publisherFactory
	limiter      *ratelimit.Limiter
	recorder     *runlog.Recorder
	logger       *slog.Logger
}

// Deps are the stage implementations a Pipeline runs. Recorder is optional;
// when set, its captured entries land in Result.Logs (pass the same
// recorder the stage loggers tee into).
type Deps struct {
	Discoverer  discoverer
	Prioritizer prioritizer
	Parser      parser
	Extractor   extractor
	// NewPublisher overrides the publisher construction; tests use it.
	NewPublisher publisherFactory
	Limiter      *ratelimit.Limiter
	Recorder     *runlog.Recorder
	Logger       *slog.Logger
}

// New assembles a Pipeline from its stage implementations.
func New(cfg *config.Config, deps Deps) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("pipeline: config is required")
	}
	if deps.Discoverer == nil || deps.Prioritizer == nil || deps.Parser == nil || deps.Extractor == nil {
		return nil, fmt.Errorf("pipeline: all stage implementations are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	newPublisher := deps.NewPublisher
	if newPublisher == nil {
		newPublisher = func(threshold float64, country string) publisher {
			return publish.New(threshold, country, logger)
		}
	}
	return &Pipeline{
		cfg:          cfg,
		discoverer:   deps.Discoverer,
		prioritizer:  deps.Prioritizer,
		parser:       deps.Parser,
		extractor:    deps.Extractor,
		newPublisher: newPublisher,
		limiter:      deps.Limiter,
		recorder:     deps.Recorder,
		logger:       logger,
	}, nil
}

// Process runs all five stages for one request. Per-candidate failures stay
// in the result as failed candidates; the returned error is reserved for
// orchestration-level problems (discovery wiring, context cancellation).
func (p *Pipeline) Process(ctx context.Context, req Request) (*Result, error) {
	result := &Result{Metrics: make(map[string]StageMetrics, len(stageNames))}
	defer p.captureLogs(result)

	// Discover.
	start := time.Now()
	cands, tried, err := p.discoverer.Discover(ctx, req.Query, req.Country, req.DateFrom, req.DateTo)
	if err != nil {
		return nil, &StageError{Stage: "discover", Err: err}
	}
	result.Candidates = cands
	result.ProvidersTried = tried
	if req.Locale != "" {
		for _, cand := range cands {
			cand.Meta.Locale = req.Locale
		}
	}
	p.record(result, "discover", len(cands), len(cands), time.Since(start))
	if p.shortCircuit(result, "discover", len(cands)) {
		return result, nil
	}

	// Prioritize. Degraded mode lowers the threshold for this invocation
	// only; the config is never touched.
	threshold := p.cfg.Thresholds.Prioritization
	if len(cands) <= p.cfg.Degraded.PoolSize {
		threshold = p.cfg.Degraded.Threshold
		p.logger.Info("degraded mode: lowering prioritization threshold",
			"pool", len(cands), "threshold", threshold)
	}
	start = time.Now()
	prioritized, err := p.prioritizer.Prioritize(ctx, cands, req.Country, threshold)
	if err != nil {
		return nil, &StageError{Stage: "prioritize", Err: err}
	}
	p.record(result, "prioritize", len(cands), len(prioritized), time.Since(start))
	if p.shortCircuit(result, "prioritize", len(prioritized)) {
		return result, nil
	}

	// Parse.
	start = time.Now()
	parsed, err := p.runParse(ctx, prioritized)
	if err != nil {
		return nil, err
	}
	p.record(result, "parse", len(prioritized), len(parsed), time.Since(start))
	if p.shortCircuit(result, "parse", len(parsed)) {
		return result, nil
	}

	// Extract.
	if len(parsed) > p.cfg.Limits.MaxExtractions {
		for _, cand := range parsed[p.cfg.Limits.MaxExtractions:] {
			cand.Reject("over extraction limit")
		}
		parsed = parsed[:p.cfg.Limits.MaxExtractions]
	}
	start = time.Now()
	extracted, err := p.runExtract(ctx, parsed)
	if err != nil {
		return nil, err
	}
	p.record(result, "extract", len(parsed), len(extracted), time.Since(start))
	if p.shortCircuit(result, "extract", len(extracted)) {
		return result, nil
	}

	// Publish.
	start = time.Now()
	published, err := p.runPublish(ctx, extracted, req.Country)
	if err != nil {
		return nil, err
	}
	result.Published = published
	p.record(result, "publish", len(extracted), len(published), time.Since(start))

	p.logger.Info("run complete",
		"query", req.Query,
		"candidates", len(result.Candidates),
		"published", len(published))
	return result, nil
}

// runParse processes the prioritized candidates in concurrent batches and
// returns the ones that parsed successfully, in candidate order.
func (p *Pipeline) runParse(ctx context.Context, cands []*event.Candidate) ([]*event.Candidate, error) {
	size := batchSize(len(cands), maxParseBatch)
	for i, batch := range batches(cands, size) {
		if i > 0 {
			if err := p.pause(ctx); err != nil {
				return nil, err
			}
		}
		g, gctx := errgroup.WithContext(ctx)
		for _, cand := range batch {
			cand := cand
			g.Go(func() error {
				if _, err := p.parser.Parse(gctx, cand); err != nil {
					p.logger.Warn("parse failed",
						"error", &StageError{Stage: "parse", CandidateID: cand.ID, Err: err})
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	// Quality gate: a parse that recovered almost nothing is not worth an
	// extraction slot.
	var kept []*event.Candidate
	for _, cand := range survivors(cands, event.StatusParsed) {
		if cand.Parse != nil && cand.Parse.Confidence < p.cfg.Thresholds.ParseQuality {
			cand.Reject("parse quality below threshold")
			continue
		}
		kept = append(kept, cand)
	}
	return kept, nil
}

// runExtract processes parsed candidates in batches, stopping early once
// enough high-confidence results have accumulated.
func (p *Pipeline) runExtract(ctx context.Context, cands []*event.Candidate) ([]*event.Candidate, error) {
	size := batchSize(len(cands), maxExtractBatch)
	highConfidence := 0

	for i, batch := range batches(cands, size) {
		if i > 0 {
			if err := p.pause(ctx); err != nil {
				return nil, err
			}
		}
		g, gctx := errgroup.WithContext(ctx)
		for _, cand := range batch {
			cand := cand
			g.Go(func() error {
				if _, err := p.extractor.Extract(gctx, cand); err != nil {
					p.logger.Warn("extract failed",
						"error", &StageError{Stage: "extract", CandidateID: cand.ID, Err: err})
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		for _, cand := range batch {
			if cand.Extract != nil && cand.Extract.Confidence > p.cfg.EarlyTermination.Confidence {
				highConfidence++
			}
		}
		if highConfidence >= p.cfg.EarlyTermination.Count {
			p.logger.Info("early termination: enough high-confidence results",
				"count", highConfidence, "after_batch", i+1)
			break
		}
	}
	return survivors(cands, event.StatusExtracted), nil
}

// runPublish gates the extracted candidates. Publishing is CPU-only but
// keeps the batch shape for uniform pacing and metrics.
func (p *Pipeline) runPublish(ctx context.Context, cands []*event.Candidate, country string) ([]*event.PublishedEvent, error) {
	pub := p.newPublisher(p.cfg.Thresholds.Confidence, country)
	size := batchSize(len(cands), maxPublishBatch)

	// Tag each batch's output by candidate ID so merge order never depends
	// on goroutine completion order.
	byID := make(map[string]*event.PublishedEvent, len(cands))

	for i, batch := range batches(cands, size) {
		if i > 0 {
			if err := p.pause(ctx); err != nil {
				return nil, err
			}
		}
		results := make([]*event.PublishedEvent, len(batch))
		g, _ := errgroup.WithContext(ctx)
		for j, cand := range batch {
			j, cand := j, cand
			g.Go(func() error {
				results[j] = pub.Publish(cand)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		for j, ev := range results {
			if ev != nil {
				byID[batch[j].ID] = ev
			}
		}
	}

	var published []*event.PublishedEvent
	for _, cand := range cands {
		if ev, ok := byID[cand.ID]; ok {
			published = append(published, ev)
		}
	}
	return published, nil
}

// survivors filters candidates to those that reached the given status.
func survivors(cands []*event.Candidate, status event.Status) []*event.Candidate {
	var out []*event.Candidate
	for _, c := range cands {
		if c.Status == status {
			out = append(out, c)
		}
	}
	return out
}

func (p *Pipeline) pause(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	if err := p.limiter.Pause(ctx); err != nil {
		return &StageError{Stage: "pause", Err: err}
	}
	return nil
}

// record stores a stage's metrics in the result and emits them to
// Prometheus.
func (p *Pipeline) record(result *Result, stage string, in, out int, d time.Duration) {
	m := StageMetrics{In: in, Out: out, Duration: d}
	if in > 0 {
		m.Efficiency = float64(out) / float64(in)
	}
	result.Metrics[stage] = m
	metrics.RecordStage(stage, in, out, d)
}

// shortCircuit zero-fills the metrics of the stages after a stage that
// produced no survivors. Returns true when the run should stop.
func (p *Pipeline) shortCircuit(result *Result, after string, out int) bool {
	if out > 0 {
		return false
	}
	fill := false
	for _, name := range stageNames {
		if fill {
			result.Metrics[name] = StageMetrics{}
		}
		if name == after {
			fill = true
		}
	}
	p.logger.Info("no candidates survived stage, run stops early", "stage", after)
	return true
}

func (p *Pipeline) captureLogs(result *Result) {
	if p.recorder != nil {
		result.Logs = p.recorder.Lines()
	}
}
