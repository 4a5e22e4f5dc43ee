package eval

import (
	"context"
	"strings"
	"time"

	"github.com/feedbacklab/feedback-analyzer/internal/core/domain"
	"github.com/feedbacklab/feedback-analyzer/internal/core/ports"
)

// AnswerSynthesizer turns a question plus retrieved passages into a
// grounded answer, reporting wall-clock latency and model cost per call.
type AnswerSynthesizer struct {
	generator ports.Generator
}

func NewAnswerSynthesizer(generator ports.Generator) *AnswerSynthesizer {
	return &AnswerSynthesizer{generator: generator}
}

func (s *AnswerSynthesizer) Synthesize(ctx context.Context, question string, passages []domain.Passage) (string, float64, domain.Usage, error) {
	start := time.Now()
	answer, usage, err := s.generator.Complete(ctx, buildAnswerPrompt(question, passages))
	latency := time.Since(start).Seconds()
	if err != nil {
		return "", latency, usage, domain.WrapError(domain.ErrGeneration, "synthesize answer", err)
	}
	return strings.TrimSpace(answer), latency, usage, nil
}
