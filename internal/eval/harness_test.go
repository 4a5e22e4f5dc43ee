package eval

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/feedbacklab/feedback-analyzer/internal/core/domain"
)

type fakeStrategy struct {
	name     string
	passages []domain.Passage
	cost     float64
	failOn   map[string]error
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Retrieve(_ context.Context, query string) ([]domain.Passage, domain.Usage, error) {
	if err, ok := f.failOn[query]; ok {
		return nil, domain.Usage{}, err
	}
	return f.passages, domain.Usage{CostUSD: f.cost}, nil
}

type fakeSynth struct {
	answer string
	cost   float64
	err    error
}

func (f *fakeSynth) Synthesize(_ context.Context, question string, _ []domain.Passage) (string, float64, domain.Usage, error) {
	if f.err != nil {
		return "", 0, domain.Usage{}, f.err
	}
	return f.answer + " / " + question, 0.01, domain.Usage{CostUSD: f.cost}, nil
}

type fakeScorer struct {
	scores Scores
	cost   float64
	err    error
}

func (f *fakeScorer) Score(context.Context, domain.GoldenExample, string, []domain.Passage) (Scores, domain.Usage, error) {
	if f.err != nil {
		return Scores{}, domain.Usage{}, f.err
	}
	return f.scores, domain.Usage{CostUSD: f.cost}, nil
}

func goldenSet(n int) []domain.GoldenExample {
	out := make([]domain.GoldenExample, n)
	for i := range out {
		out[i] = domain.GoldenExample{
			ID:              fmt.Sprintf("golden-%03d", i+1),
			Question:        fmt.Sprintf("question %d", i+1),
			ReferenceAnswer: "reference",
		}
	}
	return out
}

func newTestHarness(synth synthesizer, sc scorer) *Harness {
	return NewHarness(synth, sc, 3, time.Minute, nil, "eval", nil)
}

func TestHarnessProducesOneRunPerStrategyQuestionPair(t *testing.T) {
	h := newTestHarness(
		&fakeSynth{answer: "a"},
		&fakeScorer{scores: Scores{Faithfulness: 0.9, AnswerRelevancy: 0.8, ContextPrecision: 0.7, ContextRecall: 0.6}},
	)
	strategies := []Strategy{
		&fakeStrategy{name: "naive", passages: []domain.Passage{{Text: "p"}}},
		&fakeStrategy{name: "keyword", passages: []domain.Passage{{Text: "p"}}},
	}
	golden := goldenSet(3)

	runs := h.Run(context.Background(), strategies, golden)
	if len(runs) != 6 {
		t.Fatalf("expected 6 runs, got %d", len(runs))
	}
	// Grid order regardless of worker scheduling.
	for i, strat := range strategies {
		for j, ex := range golden {
			run := runs[i*len(golden)+j]
			if run.Strategy != strat.Name() || run.Question != ex.Question {
				t.Fatalf("run %d out of order: %s/%s", i*len(golden)+j, run.Strategy, run.Question)
			}
			if run.Err != nil {
				t.Fatalf("unexpected failure: %v", run.Err)
			}
			if run.AnswerRelevancy != 0.8 {
				t.Fatalf("expected scored run, got %+v", run)
			}
		}
	}
}

func TestHarnessRecordsPairFailuresWithoutAborting(t *testing.T) {
	h := newTestHarness(&fakeSynth{answer: "a"}, &fakeScorer{scores: Scores{AnswerRelevancy: 0.5}})
	failing := &fakeStrategy{
		name:     "rerank",
		passages: []domain.Passage{{Text: "p"}},
		failOn: map[string]error{
			"question 2": domain.WrapError(domain.ErrRetrievalUnavailable, "rerank", errors.New("status 503")),
		},
	}

	runs := h.Run(context.Background(), []Strategy{failing}, goldenSet(5))
	var failed int
	for _, run := range runs {
		if run.Err != nil {
			failed++
			if !domain.IsKind(run.Err, domain.ErrRetrievalUnavailable) {
				t.Fatalf("expected ErrRetrievalUnavailable on the run, got %v", run.Err)
			}
		}
	}
	if failed != 1 {
		t.Fatalf("expected exactly 1 failed run, got %d", failed)
	}
}

func TestHarnessEmptyRetrievalScoresZeroWithoutScorer(t *testing.T) {
	h := newTestHarness(
		&fakeSynth{answer: "no relevant feedback found"},
		&fakeScorer{err: errors.New("scorer must not be called")},
	)
	empty := &fakeStrategy{name: "naive"}

	runs := h.Run(context.Background(), []Strategy{empty}, goldenSet(1))
	run := runs[0]
	if run.Err != nil {
		t.Fatalf("expected successful zero-score run, got error %v", run.Err)
	}
	if run.Faithfulness != 0 || run.AnswerRelevancy != 0 || run.ContextPrecision != 0 || run.ContextRecall != 0 {
		t.Fatalf("expected zero scores, got %+v", run)
	}
}

func TestHarnessIdempotentWithDeterministicFakes(t *testing.T) {
	build := func() []domain.ScoredRun {
		h := newTestHarness(&fakeSynth{answer: "a"}, &fakeScorer{scores: Scores{AnswerRelevancy: 0.42}})
		runs := h.Run(context.Background(), []Strategy{
			&fakeStrategy{name: "naive", passages: []domain.Passage{{Text: "p"}}, cost: 0.001},
		}, goldenSet(4))
		for i := range runs {
			runs[i].LatencySeconds = 0
		}
		return runs
	}

	if first, second := build(), build(); !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical runs:\nfirst=%+v\nsecond=%+v", first, second)
	}
}

func TestAggregateExcludesFailedRunsFromMeans(t *testing.T) {
	boom := errors.New("boom")
	runs := []domain.ScoredRun{
		{Strategy: "naive", AnswerRelevancy: 1.0, Faithfulness: 1.0, ContextPrecision: 1.0, ContextRecall: 1.0, LatencySeconds: 1.0, CostUSD: 0.01},
		{Strategy: "naive", AnswerRelevancy: 0.5, Faithfulness: 0.5, ContextPrecision: 0.5, ContextRecall: 0.5, LatencySeconds: 3.0, CostUSD: 0.01},
		{Strategy: "naive", Err: boom, CostUSD: 0.002},
		{Strategy: "naive", AnswerRelevancy: 0.75, Faithfulness: 0.75, ContextPrecision: 0.75, ContextRecall: 0.75, LatencySeconds: 2.0, CostUSD: 0.01},
		{Strategy: "naive", AnswerRelevancy: 0.75, Faithfulness: 0.75, ContextPrecision: 0.75, ContextRecall: 0.75, LatencySeconds: 2.0, CostUSD: 0.01},
	}

	aggs := Aggregate(runs)
	if len(aggs) != 1 {
		t.Fatalf("expected one aggregate, got %d", len(aggs))
	}
	agg := aggs[0]
	if agg.NumQuestions != 5 || agg.Succeeded != 4 || agg.Failed != 1 {
		t.Fatalf("unexpected counts: %+v", agg)
	}
	if agg.FailureRate != 0.2 {
		t.Fatalf("expected failure rate 0.2, got %f", agg.FailureRate)
	}
	if agg.AnswerRelevancy != 0.75 {
		t.Fatalf("expected mean over successes only 0.75, got %f", agg.AnswerRelevancy)
	}
	if agg.AvgLatencySeconds != 2.0 {
		t.Fatalf("expected latency mean 2.0, got %f", agg.AvgLatencySeconds)
	}
	if agg.TotalCostUSD != 0.042 {
		t.Fatalf("expected cost summed over all runs 0.042, got %f", agg.TotalCostUSD)
	}
}

func TestRankBreaksTiesByLatencyThenCost(t *testing.T) {
	aggs := []domain.StrategyAggregate{
		{Strategy: "a", AnswerRelevancy: 0.8, AvgLatencySeconds: 2.0, TotalCostUSD: 0.01, Succeeded: 5, NumQuestions: 5},
		{Strategy: "b", AnswerRelevancy: 0.8, AvgLatencySeconds: 1.0, TotalCostUSD: 0.05, Succeeded: 5, NumQuestions: 5},
		{Strategy: "c", AnswerRelevancy: 0.9, AvgLatencySeconds: 9.0, TotalCostUSD: 0.99, Succeeded: 5, NumQuestions: 5},
		{Strategy: "d", AnswerRelevancy: 0.8, AvgLatencySeconds: 1.0, TotalCostUSD: 0.02, Succeeded: 5, NumQuestions: 5},
	}

	ranked := Rank(aggs, domain.MetricAnswerRelevancy)
	got := []string{ranked[0].Strategy, ranked[1].Strategy, ranked[2].Strategy, ranked[3].Strategy}
	want := []string{"c", "d", "b", "a"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected order %v, got %v", want, got)
	}
}

func TestRankSinksStrategiesWithoutSuccessfulRuns(t *testing.T) {
	aggs := []domain.StrategyAggregate{
		{Strategy: "rerank", Err: "configuration: COHERE_API_KEY is required"},
		{Strategy: "naive", AnswerRelevancy: 0.3, Succeeded: 2, NumQuestions: 2},
	}

	ranked := Rank(aggs, domain.MetricAnswerRelevancy)
	if ranked[0].Strategy != "naive" || ranked[1].Strategy != "rerank" {
		t.Fatalf("expected failed strategy last, got %+v", ranked)
	}
}

func TestHarnessEndToEndSmallGrid(t *testing.T) {
	h := newTestHarness(
		&fakeSynth{answer: "users report checkout failures", cost: 0.0002},
		&fakeScorer{scores: Scores{Faithfulness: 1, AnswerRelevancy: 0.9, ContextPrecision: 0.8, ContextRecall: 0.7}},
	)
	strategy := &fakeStrategy{
		name: "naive",
		passages: []domain.Passage{
			{RecordID: "FB-001", Text: "checkout fails"},
			{RecordID: "FB-002", Text: "payment page hangs"},
			{RecordID: "FB-003", Text: "love the new design"},
		},
		cost: 0.0001,
	}

	runs := h.Run(context.Background(), []Strategy{strategy}, goldenSet(2))
	if len(runs) != 2 {
		t.Fatalf("expected 2 scored runs, got %d", len(runs))
	}

	aggs := Aggregate(runs)
	if len(aggs) != 1 {
		t.Fatalf("expected one aggregate row, got %d", len(aggs))
	}
	agg := aggs[0]
	if agg.NumQuestions != 2 || agg.Succeeded != 2 || agg.Failed != 0 {
		t.Fatalf("unexpected aggregate: %+v", agg)
	}
	if agg.AnswerRelevancy != 0.9 || agg.ContextRecall != 0.7 {
		t.Fatalf("unexpected means: %+v", agg)
	}
}
