package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/feedbacklab/feedback-analyzer/internal/core/domain"
)

type stubGenerator struct {
	jsonResponse string
	jsonErr      error
	completion   string
	completeErr  error
	usage        domain.Usage
	prompts      []string
}

func (g *stubGenerator) Complete(_ context.Context, prompt string) (string, domain.Usage, error) {
	g.prompts = append(g.prompts, prompt)
	return g.completion, g.usage, g.completeErr
}

func (g *stubGenerator) CompleteJSON(_ context.Context, prompt string) (string, domain.Usage, error) {
	g.prompts = append(g.prompts, prompt)
	return g.jsonResponse, g.usage, g.jsonErr
}

type stubRetriever struct {
	passages []domain.Passage
	usage    domain.Usage
	err      error
	calls    int
}

func (r *stubRetriever) Retrieve(context.Context, string) ([]domain.Passage, domain.Usage, error) {
	r.calls++
	return r.passages, r.usage, r.err
}

type stubWebSearcher struct {
	results []domain.WebResult
	err     error
	calls   int
}

func (w *stubWebSearcher) Search(context.Context, string, int) ([]domain.WebResult, error) {
	w.calls++
	return w.results, w.err
}

func TestAnalyzeRoutesToFeedbackSearch(t *testing.T) {
	gen := &stubGenerator{jsonResponse: `{"tool": "feedback_search"}`, completion: "users hate the new checkout"}
	ret := &stubRetriever{passages: []domain.Passage{{RecordID: "FB-001", Text: "checkout is broken"}}}
	web := &stubWebSearcher{}

	uc := NewAnalyzeUseCase(gen, ret, web, AnalyzeLimits{})
	answer, err := uc.Analyze(context.Background(), "what do users say about checkout?")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if answer.Route != toolFeedbackSearch {
		t.Fatalf("expected feedback_search route, got %s", answer.Route)
	}
	if ret.calls != 1 || web.calls != 0 {
		t.Fatalf("expected retriever only, got retriever=%d web=%d", ret.calls, web.calls)
	}
	if len(answer.Sources) != 1 {
		t.Fatalf("expected sources attached, got %d", len(answer.Sources))
	}
}

func TestAnalyzeRoutesToWebSearch(t *testing.T) {
	gen := &stubGenerator{jsonResponse: `{"tool": "web_search"}`, completion: "competitor launched feature X"}
	ret := &stubRetriever{}
	web := &stubWebSearcher{results: []domain.WebResult{{Title: "News", URL: "https://example.com"}}}

	uc := NewAnalyzeUseCase(gen, ret, web, AnalyzeLimits{})
	answer, err := uc.Analyze(context.Background(), "what did our competitor launch this week?")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if answer.Route != toolWebSearch {
		t.Fatalf("expected web_search route, got %s", answer.Route)
	}
	if web.calls != 1 || ret.calls != 0 {
		t.Fatalf("expected web only, got retriever=%d web=%d", ret.calls, web.calls)
	}
	if len(answer.WebSources) != 1 {
		t.Fatalf("expected web sources attached, got %d", len(answer.WebSources))
	}
}

func TestAnalyzeRoutingFailureFallsBackToFeedbackSearch(t *testing.T) {
	gen := &stubGenerator{jsonErr: errors.New("status 503"), completion: "answer"}
	ret := &stubRetriever{}

	uc := NewAnalyzeUseCase(gen, ret, &stubWebSearcher{}, AnalyzeLimits{})
	answer, err := uc.Analyze(context.Background(), "question")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if answer.Route != toolFeedbackSearch {
		t.Fatalf("expected fallback to feedback_search, got %s", answer.Route)
	}
}

func TestAnalyzeWithoutWebSearcherSkipsRouting(t *testing.T) {
	gen := &stubGenerator{completion: "answer"}
	ret := &stubRetriever{}

	uc := NewAnalyzeUseCase(gen, ret, nil, AnalyzeLimits{})
	answer, err := uc.Analyze(context.Background(), "question")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if answer.Route != toolFeedbackSearch {
		t.Fatalf("expected feedback_search, got %s", answer.Route)
	}
	// Only the answer completion, no routing call.
	if len(gen.prompts) != 1 {
		t.Fatalf("expected a single generation call, got %d", len(gen.prompts))
	}
}

func TestAnalyzeAccumulatesTokenUsageAcrossCalls(t *testing.T) {
	gen := &stubGenerator{
		jsonResponse: `{"tool": "feedback_search"}`,
		completion:   "answer",
		usage:        domain.Usage{PromptTokens: 10, CompletionTokens: 5, CostUSD: 0.001},
	}
	ret := &stubRetriever{usage: domain.Usage{PromptTokens: 7, CostUSD: 0.0001}}

	uc := NewAnalyzeUseCase(gen, ret, &stubWebSearcher{}, AnalyzeLimits{})
	answer, err := uc.Analyze(context.Background(), "question")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	// Routing call + query embedding + answer completion.
	if answer.Usage.PromptTokens != 27 || answer.Usage.CompletionTokens != 10 {
		t.Fatalf("unexpected usage: %+v", answer.Usage)
	}
	if answer.Usage.CostUSD != 0.001+0.0001+0.001 {
		t.Fatalf("unexpected cost: %f", answer.Usage.CostUSD)
	}
}

func TestAnalyzeEmptyQueryIsInvalidInput(t *testing.T) {
	uc := NewAnalyzeUseCase(&stubGenerator{}, &stubRetriever{}, nil, AnalyzeLimits{})
	_, err := uc.Analyze(context.Background(), "   ")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAnalyzePropagatesRetrievalError(t *testing.T) {
	retErr := domain.WrapError(domain.ErrRetrievalUnavailable, "search", errors.New("qdrant down"))
	uc := NewAnalyzeUseCase(&stubGenerator{}, &stubRetriever{err: retErr}, nil, AnalyzeLimits{})
	_, err := uc.Analyze(context.Background(), "question")
	if !domain.IsKind(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("expected ErrRetrievalUnavailable, got %v", err)
	}
}
