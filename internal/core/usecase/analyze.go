package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/feedbacklab/feedback-analyzer/internal/core/domain"
	"github.com/feedbacklab/feedback-analyzer/internal/core/ports"
)

const (
	toolFeedbackSearch = "feedback_search"
	toolWebSearch      = "web_search"
)

type retriever interface {
	Retrieve(ctx context.Context, query string) ([]domain.Passage, domain.Usage, error)
}

// AnalyzeLimits bounds the routing and tool phases of one analyze call.
type AnalyzeLimits struct {
	RouteTimeout     time.Duration
	ToolTimeout      time.Duration
	WebSearchResults int
}

// AnalyzeUseCase answers a natural-language question about the feedback
// corpus. A routing call decides between internal feedback retrieval and
// external web search; a routing failure falls back to feedback search
// rather than failing the request.
type AnalyzeUseCase struct {
	generator ports.Generator
	retriever retriever
	web       ports.WebSearcher
	limits    AnalyzeLimits
}

func NewAnalyzeUseCase(generator ports.Generator, ret retriever, web ports.WebSearcher, limits AnalyzeLimits) *AnalyzeUseCase {
	if limits.RouteTimeout <= 0 {
		limits.RouteTimeout = 20 * time.Second
	}
	if limits.ToolTimeout <= 0 {
		limits.ToolTimeout = 60 * time.Second
	}
	if limits.WebSearchResults <= 0 {
		limits.WebSearchResults = 3
	}
	return &AnalyzeUseCase{generator: generator, retriever: ret, web: web, limits: limits}
}

func (uc *AnalyzeUseCase) Analyze(ctx context.Context, query string) (*domain.Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "analyze", errors.New("query is required"))
	}

	route, routeUsage := uc.route(ctx, query)

	toolCtx, cancel := context.WithTimeout(ctx, uc.limits.ToolTimeout)
	defer cancel()

	var answer *domain.Answer
	var err error
	switch route {
	case toolWebSearch:
		answer, err = uc.answerFromWeb(toolCtx, query)
	default:
		answer, err = uc.answerFromFeedback(toolCtx, query)
	}
	if err != nil {
		return nil, err
	}
	answer.Usage.Add(routeUsage)
	return answer, nil
}

// route picks the tool for the query. Any routing failure means
// feedback search; web search additionally requires a configured
// searcher.
func (uc *AnalyzeUseCase) route(ctx context.Context, query string) (string, domain.Usage) {
	if uc.web == nil {
		return toolFeedbackSearch, domain.Usage{}
	}

	routeCtx, cancel := context.WithTimeout(ctx, uc.limits.RouteTimeout)
	defer cancel()

	raw, usage, err := uc.generator.CompleteJSON(routeCtx, buildRoutePrompt(query))
	if err != nil {
		return toolFeedbackSearch, usage
	}
	var decision struct {
		Tool string `json:"tool"`
	}
	if err := json.Unmarshal([]byte(raw), &decision); err != nil {
		return toolFeedbackSearch, usage
	}
	if strings.ToLower(strings.TrimSpace(decision.Tool)) == toolWebSearch {
		return toolWebSearch, usage
	}
	return toolFeedbackSearch, usage
}

func (uc *AnalyzeUseCase) answerFromFeedback(ctx context.Context, query string) (*domain.Answer, error) {
	passages, usage, err := uc.retriever.Retrieve(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieve feedback: %w", err)
	}

	text, genUsage, err := uc.generator.Complete(ctx, buildFeedbackAnswerPrompt(query, passages))
	if err != nil {
		return nil, domain.WrapError(domain.ErrGeneration, "analyze answer", err)
	}
	usage.Add(genUsage)

	return &domain.Answer{
		Text:    strings.TrimSpace(text),
		Route:   toolFeedbackSearch,
		Sources: passages,
		Usage:   usage,
	}, nil
}

func (uc *AnalyzeUseCase) answerFromWeb(ctx context.Context, query string) (*domain.Answer, error) {
	results, err := uc.web.Search(ctx, query, uc.limits.WebSearchResults)
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}

	text, usage, err := uc.generator.Complete(ctx, buildWebAnswerPrompt(query, results))
	if err != nil {
		return nil, domain.WrapError(domain.ErrGeneration, "analyze answer", err)
	}

	return &domain.Answer{
		Text:       strings.TrimSpace(text),
		Route:      toolWebSearch,
		WebSources: results,
		Usage:      usage,
	}, nil
}

func buildRoutePrompt(query string) string {
	return fmt.Sprintf(`You route questions for a customer feedback analysis service.
Pick "feedback_search" for questions answerable from the internal feedback corpus
(complaints, praise, sentiment, feature requests). Pick "web_search" only for
questions that need current external information (competitors, news, market data).
Return strict JSON object: {"tool": "feedback_search"} or {"tool": "web_search"}.

Question:
%s`, query)
}

func buildFeedbackAnswerPrompt(query string, passages []domain.Passage) string {
	var b strings.Builder
	b.WriteString("You analyze customer feedback. Answer the question using only the feedback excerpts below.\n")
	b.WriteString("If the excerpts do not contain the answer, say so plainly.\n\n")
	if len(passages) == 0 {
		b.WriteString("No feedback excerpts were found.\n")
	}
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] (source: %s, sentiment: %s)\n%s\n\n", i+1, p.Source, p.Sentiment, p.Text)
	}
	fmt.Fprintf(&b, "Question: %s\nAnswer:", query)
	return b.String()
}

func buildWebAnswerPrompt(query string, results []domain.WebResult) string {
	var b strings.Builder
	b.WriteString("Answer the question using the web search results below. Cite result titles.\n\n")
	if len(results) == 0 {
		b.WriteString("No web results were found.\n")
	}
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] %s (%s)\n%s\n\n", i+1, r.Title, r.URL, r.Content)
	}
	fmt.Fprintf(&b, "Question: %s\nAnswer:", query)
	return b.String()
}
