// Package prioritize scores discovered candidates and keeps the ones worth
// fetching. Scoring prefers a language-model judgment when page content or
// an event-looking URL is available and falls back to a deterministic
// keyword/date/TLD heuristic that never fails.
package prioritize

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/greyfort/eventscout/internal/event"
	"github.com/greyfort/eventscout/internal/llm"
	"github.com/greyfort/eventscout/internal/metrics"
	"github.com/greyfort/eventscout/pkg/ratelimit"
)

// batchSize is how many candidates are scored concurrently between
// politeness pauses.
const batchSize = 8

// recencyWindowPast and recencyWindowFuture bound the dates considered
// plausible for an upcoming event. A candidate dated outside the window
// scores zero overall.
const (
	recencyWindowPast   = 30 * 24 * time.Hour
	recencyWindowFuture = 365 * 24 * time.Hour
)

// Prioritizer scores candidates against a query and optional target country.
type Prioritizer struct {
	llm     llm.Client
	limiter *ratelimit.Limiter
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a Prioritizer. A nil client disables the model paths and
// every candidate is scored heuristically. A nil limiter disables the
// inter-batch pause.
func New(client llm.Client, limiter *ratelimit.Limiter, logger *slog.Logger) *Prioritizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Prioritizer{
		llm:     client,
		limiter: limiter,
		logger:  logger,
		now:     time.Now,
	}
}

// Prioritize scores every candidate and splits the set at the threshold:
// score >= threshold advances to prioritized, anything below is rejected.
// The threshold is an explicit parameter so a degraded-mode override stays
// scoped to one invocation. Scoring itself never fails; the returned error
// only reflects context cancellation.
func (p *Prioritizer) Prioritize(ctx context.Context, cands []*event.Candidate, country string, threshold float64) ([]*event.Candidate, error) {
	var kept []*event.Candidate

	for start := 0; start < len(cands); start += batchSize {
		stop := start + batchSize
		if stop > len(cands) {
			stop = len(cands)
		}

		if start > 0 && p.limiter != nil {
			if err := p.limiter.Pause(ctx); err != nil {
				return kept, err
			}
		}

		g, gctx := errgroup.WithContext(ctx)
		batch := cands[start:stop]
		for _, cand := range batch {
			cand := cand
			g.Go(func() error {
				score := p.score(gctx, cand, country)
				cand.PriorityScore = &score
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return kept, err
		}

		for _, cand := range batch {
			if *cand.PriorityScore >= threshold {
				if err := cand.Advance(event.StatusPrioritized); err != nil {
					p.logger.Warn("prioritize: advance failed", "candidate", cand.ID, "error", err)
					continue
				}
				kept = append(kept, cand)
			} else {
				cand.Reject("priority score below threshold")
			}
			p.logger.Debug("candidate scored",
				"candidate", cand.ID,
				"url", cand.URL,
				"score", *cand.PriorityScore,
				"threshold", threshold)
		}
	}

	return kept, nil
}

// score produces the final [0,1] priority for one candidate. Model paths are
// tried first when available; any model failure drops to the heuristic.
func (p *Prioritizer) score(ctx context.Context, cand *event.Candidate, country string) float64 {
	scores, ok := p.modelScores(ctx, cand, country)
	if !ok {
		scores = heuristicScores(cand, country)
	}
	return p.finalize(scores, cand, country)
}

// modelScores runs the language-model scoring paths: a content-aware prompt
// when the provider supplied page content, otherwise a URL-only prompt gated
// by the event-token heuristic so obviously unrelated URLs skip the call.
func (p *Prioritizer) modelScores(ctx context.Context, cand *event.Candidate, country string) (subScores, bool) {
	if p.llm == nil {
		return subScores{}, false
	}

	var prompt string
	switch {
	case cand.Content != "":
		prompt = contentPrompt(cand, country)
	case urlLooksLikeEvent(cand.URL):
		prompt = urlPrompt(cand, country)
	default:
		return subScores{}, false
	}

	raw, err := p.llm.GenerateContent(ctx, prompt)
	if err != nil {
		metrics.RecordLLMCall("prioritize", "error")
		p.logger.Warn("prioritize: model call failed, using heuristic",
			"candidate", cand.ID, "error", err)
		return subScores{}, false
	}

	scores, err := parseScores(raw)
	if err != nil {
		metrics.RecordLLMCall("prioritize", "malformed")
		p.logger.Warn("prioritize: malformed model response, using heuristic",
			"candidate", cand.ID, "error", err)
		return subScores{}, false
	}

	metrics.RecordLLMCall("prioritize", "ok")
	return scores, true
}

// finalize applies the weight vector, the post-hoc recency adjustment, and
// the locale bonuses.
func (p *Prioritizer) finalize(s subScores, cand *event.Candidate, country string) float64 {
	start, _, _, dated := event.NormalizeDate(cand.Meta.ExtractedDate)
	if !dated {
		if s.IsRecent > 0.3 {
			// Without a parseable date, recency is a guess.
			s.IsRecent = 0.3
		}
		if cand.Meta.ExtractedDate != "" {
			cand.Meta.DateReason = "extracted date did not normalize"
		}
	}

	overall := s.weighted(country != "")

	if dated {
		if t, err := time.Parse("2006-01-02", start); err == nil {
			now := p.now()
			if t.Before(now.Add(-recencyWindowPast)) || t.After(now.Add(recencyWindowFuture)) {
				cand.Meta.DateReason = "date outside recency window"
				return 0
			}
		}
	}

	text := cand.URL + " " + cand.Meta.Query + " " + cand.Content
	if hasGermanCues(text) {
		overall += 0.05
	}
	if hasMajorCity(text) {
		overall += 0.05
	}
	if overall > 1 {
		overall = 1
	}
	if overall < 0 {
		overall = 0
	}
	return overall
}

// subScores are the model- or heuristic-produced components of the priority.
type subScores struct {
	IsEvent           float64 `json:"is_event"`
	HasAgenda         float64 `json:"has_agenda"`
	HasSpeakers       float64 `json:"has_speakers"`
	IsRecent          float64 `json:"is_recent"`
	IsRelevant        float64 `json:"is_relevant"`
	IsCountryRelevant float64 `json:"is_country_relevant"`
}

// weighted combines the sub-scores with the fixed weight vector. Each
// vector sums to 1; country relevance only participates when a target
// country was requested.
func (s subScores) weighted(withCountry bool) float64 {
	if withCountry {
		return s.IsEvent*0.25 +
			s.HasAgenda*0.15 +
			s.HasSpeakers*0.10 +
			s.IsRecent*0.15 +
			s.IsRelevant*0.15 +
			s.IsCountryRelevant*0.20
	}
	return s.IsEvent*0.30 +
		s.HasAgenda*0.20 +
		s.HasSpeakers*0.15 +
		s.IsRecent*0.15 +
		s.IsRelevant*0.20
}
