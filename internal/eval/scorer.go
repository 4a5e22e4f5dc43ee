package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/feedbacklab/feedback-analyzer/internal/core/domain"
	"github.com/feedbacklab/feedback-analyzer/internal/core/ports"
)

// Scores holds the four quality metrics for one run, each in [0, 1].
type Scores struct {
	Faithfulness     float64
	AnswerRelevancy  float64
	ContextPrecision float64
	ContextRecall    float64
}

// MetricScorer computes quality metrics for a generated answer against
// a golden example. Stateless and safe for concurrent use.
type MetricScorer struct {
	generator ports.Generator
	embedder  ports.Embedder
}

func NewMetricScorer(generator ports.Generator, embedder ports.Embedder) *MetricScorer {
	return &MetricScorer{generator: generator, embedder: embedder}
}

// Score evaluates one run. Empty retrieval scores zero across the board
// without any model calls.
func (s *MetricScorer) Score(ctx context.Context, example domain.GoldenExample, answer string, retrieved []domain.Passage) (Scores, domain.Usage, error) {
	var total domain.Usage
	if len(retrieved) == 0 {
		return Scores{}, total, nil
	}

	faithfulness, usage, err := s.faithfulness(ctx, answer, retrieved)
	total.Add(usage)
	if err != nil {
		return Scores{}, total, domain.WrapError(domain.ErrScoring, "faithfulness", err)
	}

	relevancy, usage, err := s.answerRelevancy(ctx, example.Question, answer)
	total.Add(usage)
	if err != nil {
		return Scores{}, total, domain.WrapError(domain.ErrScoring, "answer_relevancy", err)
	}

	precision, usage, err := s.contextPrecision(ctx, example, retrieved)
	total.Add(usage)
	if err != nil {
		return Scores{}, total, domain.WrapError(domain.ErrScoring, "context_precision", err)
	}

	recall, usage, err := s.contextRecall(ctx, example, retrieved)
	total.Add(usage)
	if err != nil {
		return Scores{}, total, domain.WrapError(domain.ErrScoring, "context_recall", err)
	}

	return Scores{
		Faithfulness:     faithfulness,
		AnswerRelevancy:  relevancy,
		ContextPrecision: precision,
		ContextRecall:    recall,
	}, total, nil
}

// faithfulness is the share of answer claims supported by the retrieved
// passages. An answer with no extractable claims scores zero.
func (s *MetricScorer) faithfulness(ctx context.Context, answer string, retrieved []domain.Passage) (float64, domain.Usage, error) {
	var total domain.Usage
	claims, usage, err := s.extractClaims(ctx, answer)
	total.Add(usage)
	if err != nil {
		return 0, total, err
	}
	if len(claims) == 0 {
		return 0, total, nil
	}

	verdicts, usage, err := s.verdicts(ctx, buildClaimVerdictsPrompt(claims, retrieved), len(claims))
	total.Add(usage)
	if err != nil {
		return 0, total, err
	}
	return ratio(verdicts), total, nil
}

// answerRelevancy is embedding cosine similarity between question and
// answer, clamped to [0, 1].
func (s *MetricScorer) answerRelevancy(ctx context.Context, question, answer string) (float64, domain.Usage, error) {
	if answer == "" {
		return 0, domain.Usage{}, nil
	}
	vectors, usage, err := s.embedder.Embed(ctx, []string{question, answer})
	if err != nil {
		return 0, usage, err
	}
	if len(vectors) != 2 {
		return 0, usage, fmt.Errorf("expected 2 embeddings, got %d", len(vectors))
	}
	return clamp01(cosine(vectors[0], vectors[1])), usage, nil
}

// contextPrecision is rank-weighted average precision over relevance
// verdicts: relevant passages near the top of the ranking score higher
// than the same passages further down.
func (s *MetricScorer) contextPrecision(ctx context.Context, example domain.GoldenExample, retrieved []domain.Passage) (float64, domain.Usage, error) {
	verdicts, usage, err := s.verdicts(ctx,
		buildRelevancePrompt(example.Question, example.ReferenceAnswer, retrieved), len(retrieved))
	if err != nil {
		return 0, usage, err
	}

	relevant := 0
	score := 0.0
	for rank, ok := range verdicts {
		if !ok {
			continue
		}
		relevant++
		score += float64(relevant) / float64(rank+1)
	}
	if relevant == 0 {
		return 0, usage, nil
	}
	return score / float64(relevant), usage, nil
}

// contextRecall is the share of reference-answer claims attributable to
// the retrieved passages.
func (s *MetricScorer) contextRecall(ctx context.Context, example domain.GoldenExample, retrieved []domain.Passage) (float64, domain.Usage, error) {
	var total domain.Usage
	claims, usage, err := s.extractClaims(ctx, example.ReferenceAnswer)
	total.Add(usage)
	if err != nil {
		return 0, total, err
	}
	if len(claims) == 0 {
		return 0, total, nil
	}

	verdicts, usage, err := s.verdicts(ctx, buildClaimVerdictsPrompt(claims, retrieved), len(claims))
	total.Add(usage)
	if err != nil {
		return 0, total, err
	}
	return ratio(verdicts), total, nil
}

func (s *MetricScorer) extractClaims(ctx context.Context, text string) ([]string, domain.Usage, error) {
	raw, usage, err := s.generator.CompleteJSON(ctx, buildClaimsPrompt(text))
	if err != nil {
		return nil, usage, err
	}
	var parsed struct {
		Claims []string `json:"claims"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, usage, fmt.Errorf("parse claims json: %w", err)
	}
	return parsed.Claims, usage, nil
}

func (s *MetricScorer) verdicts(ctx context.Context, prompt string, want int) ([]bool, domain.Usage, error) {
	raw, usage, err := s.generator.CompleteJSON(ctx, prompt)
	if err != nil {
		return nil, usage, err
	}
	var parsed struct {
		Verdicts []bool `json:"verdicts"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, usage, fmt.Errorf("parse verdicts json: %w", err)
	}
	if len(parsed.Verdicts) != want {
		return nil, usage, fmt.Errorf("expected %d verdicts, got %d", want, len(parsed.Verdicts))
	}
	return parsed.Verdicts, usage, nil
}

func ratio(verdicts []bool) float64 {
	if len(verdicts) == 0 {
		return 0
	}
	supported := 0
	for _, ok := range verdicts {
		if ok {
			supported++
		}
	}
	return float64(supported) / float64(len(verdicts))
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
