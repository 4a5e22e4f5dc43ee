package eval

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/feedbacklab/feedback-analyzer/internal/core/domain"
	"github.com/feedbacklab/feedback-analyzer/internal/observability/metrics"
)

// Strategy is the slice of retrieval behavior the harness needs.
type Strategy interface {
	Name() string
	Retrieve(ctx context.Context, query string) ([]domain.Passage, domain.Usage, error)
}

type synthesizer interface {
	Synthesize(ctx context.Context, question string, passages []domain.Passage) (string, float64, domain.Usage, error)
}

type scorer interface {
	Score(ctx context.Context, example domain.GoldenExample, answer string, retrieved []domain.Passage) (Scores, domain.Usage, error)
}

// Harness evaluates every (strategy, question) pair on a bounded worker
// pool. A pair failure is recorded on its ScoredRun and never aborts the
// rest of the sweep.
type Harness struct {
	synth       synthesizer
	scorer      scorer
	concurrency int
	callTimeout time.Duration
	metrics     *metrics.EvalMetrics
	service     string
	logger      *slog.Logger
}

func NewHarness(synth synthesizer, sc scorer, concurrency int, callTimeout time.Duration, m *metrics.EvalMetrics, service string, logger *slog.Logger) *Harness {
	if concurrency <= 0 {
		concurrency = 4
	}
	if callTimeout <= 0 {
		callTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Harness{
		synth:       synth,
		scorer:      sc,
		concurrency: concurrency,
		callTimeout: callTimeout,
		metrics:     m,
		service:     service,
		logger:      logger,
	}
}

// Run sweeps the full strategy × question grid. The result slice is
// ordered by strategy, then by golden example, regardless of worker
// scheduling.
func (h *Harness) Run(ctx context.Context, strategies []Strategy, golden []domain.GoldenExample) []domain.ScoredRun {
	results := make([]domain.ScoredRun, len(strategies)*len(golden))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.concurrency)

	for i, strat := range strategies {
		for j, example := range golden {
			idx := i*len(golden) + j
			strat, example := strat, example
			g.Go(func() error {
				results[idx] = h.runOne(gctx, strat, example)
				return nil
			})
		}
	}
	_ = g.Wait()

	return results
}

func (h *Harness) runOne(ctx context.Context, strat Strategy, example domain.GoldenExample) domain.ScoredRun {
	run := domain.ScoredRun{Strategy: strat.Name(), Question: example.Question}
	started := time.Now()
	if h.metrics != nil {
		h.metrics.RunStarted()
	}
	scoringCost := 0.0
	defer func() {
		if h.metrics == nil {
			return
		}
		status := "ok"
		if run.Err != nil {
			status = "failed"
		}
		h.metrics.RunFinished(h.service, run.Strategy, status, time.Since(started), run.CostUSD+scoringCost)
	}()

	rctx, cancel := context.WithTimeout(ctx, h.callTimeout)
	passages, usage, err := strat.Retrieve(rctx, example.Question)
	cancel()
	run.CostUSD += usage.CostUSD
	if err != nil {
		run.Err = err
		h.logger.Warn("retrieval failed", "strategy", run.Strategy, "question", example.ID, "error", err)
		return run
	}

	sctx, cancel := context.WithTimeout(ctx, h.callTimeout)
	answer, _, usage, err := h.synth.Synthesize(sctx, example.Question, passages)
	cancel()
	run.CostUSD += usage.CostUSD
	if err != nil {
		run.Err = err
		h.logger.Warn("synthesis failed", "strategy", run.Strategy, "question", example.ID, "error", err)
		return run
	}
	run.GeneratedAnswer = answer
	// Latency covers what a production request would pay: retrieval
	// plus synthesis. Scoring time is an evaluation artifact.
	run.LatencySeconds = time.Since(started).Seconds()

	// Zero passages scores zero on every metric, so skip the judge
	// calls outright.
	if len(passages) == 0 {
		return run
	}

	scctx, cancel := context.WithTimeout(ctx, h.callTimeout)
	scores, scoreUsage, err := h.scorer.Score(scctx, example, answer, passages)
	cancel()
	scoringCost = scoreUsage.CostUSD
	if err != nil {
		run.Err = err
		h.logger.Warn("scoring failed", "strategy", run.Strategy, "question", example.ID, "error", err)
		return run
	}

	run.Faithfulness = scores.Faithfulness
	run.AnswerRelevancy = scores.AnswerRelevancy
	run.ContextPrecision = scores.ContextPrecision
	run.ContextRecall = scores.ContextRecall
	return run
}

// Aggregate folds runs into one row per strategy, in first-seen order.
// Metric and latency means cover successful runs only; failures are
// accounted in FailureRate. Cost sums over all runs.
func Aggregate(runs []domain.ScoredRun) []domain.StrategyAggregate {
	order := make([]string, 0)
	grouped := make(map[string][]domain.ScoredRun)
	for _, run := range runs {
		if _, ok := grouped[run.Strategy]; !ok {
			order = append(order, run.Strategy)
		}
		grouped[run.Strategy] = append(grouped[run.Strategy], run)
	}

	out := make([]domain.StrategyAggregate, 0, len(order))
	for _, name := range order {
		agg := domain.StrategyAggregate{Strategy: name}
		var lastErr error
		for _, run := range grouped[name] {
			agg.NumQuestions++
			agg.TotalCostUSD += run.CostUSD
			if run.Err != nil {
				agg.Failed++
				lastErr = run.Err
				continue
			}
			agg.Succeeded++
			agg.Faithfulness += run.Faithfulness
			agg.AnswerRelevancy += run.AnswerRelevancy
			agg.ContextPrecision += run.ContextPrecision
			agg.ContextRecall += run.ContextRecall
			agg.AvgLatencySeconds += run.LatencySeconds
		}
		if agg.Succeeded > 0 {
			n := float64(agg.Succeeded)
			agg.Faithfulness /= n
			agg.AnswerRelevancy /= n
			agg.ContextPrecision /= n
			agg.ContextRecall /= n
			agg.AvgLatencySeconds /= n
		}
		if agg.NumQuestions > 0 {
			agg.FailureRate = float64(agg.Failed) / float64(agg.NumQuestions)
		}
		if agg.Succeeded == 0 && lastErr != nil {
			agg.Err = lastErr.Error()
		}
		out = append(out, agg)
	}
	return out
}

// DisabledAggregate is the report row for a strategy that failed
// construction and never ran.
func DisabledAggregate(name string, err error) domain.StrategyAggregate {
	return domain.StrategyAggregate{Strategy: name, Err: err.Error()}
}

// Rank orders aggregates by the priority metric, breaking ties by lower
// average latency, then lower total cost. Rows that never produced a
// successful run sink to the bottom.
func Rank(aggregates []domain.StrategyAggregate, priority domain.Metric) []domain.StrategyAggregate {
	if !priority.Valid() {
		priority = domain.MetricAnswerRelevancy
	}
	out := make([]domain.StrategyAggregate, len(aggregates))
	copy(out, aggregates)

	sort.SliceStable(out, func(i, j int) bool {
		iRan, jRan := out[i].Succeeded > 0, out[j].Succeeded > 0
		if iRan != jRan {
			return iRan
		}
		if !iRan {
			return out[i].Strategy < out[j].Strategy
		}
		vi, vj := out[i].MetricValue(priority), out[j].MetricValue(priority)
		if vi != vj {
			return vi > vj
		}
		if out[i].AvgLatencySeconds != out[j].AvgLatencySeconds {
			return out[i].AvgLatencySeconds < out[j].AvgLatencySeconds
		}
		return out[i].TotalCostUSD < out[j].TotalCostUSD
	})
	return out
}
