package retrieval

import (
	"context"

	"github.com/feedbacklab/feedback-analyzer/internal/core/domain"
	"github.com/feedbacklab/feedback-analyzer/internal/core/ports"
)

// Keyword ranks by lexical term match, no embeddings. Useful when the
// query carries exact vocabulary absent from the semantic space.
type Keyword struct {
	index ports.VectorIndex
	topK  int
}

func NewKeyword(index ports.VectorIndex, topK int) *Keyword {
	return &Keyword{index: index, topK: topK}
}

func (s *Keyword) Name() string { return StrategyKeyword }

func (s *Keyword) Retrieve(ctx context.Context, query string) ([]domain.Passage, domain.Usage, error) {
	passages, err := s.index.SearchLexical(ctx, query, s.topK)
	if err != nil {
		return nil, domain.Usage{}, err
	}
	return trimPassages(passages, s.topK), domain.Usage{}, nil
}
