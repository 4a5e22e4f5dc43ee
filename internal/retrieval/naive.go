package retrieval

import (
	"context"

	"github.com/feedbacklab/feedback-analyzer/internal/core/domain"
	"github.com/feedbacklab/feedback-analyzer/internal/core/ports"
)

// Naive is single-shot nearest-neighbor search over the embedded index.
type Naive struct {
	embedder ports.Embedder
	index    ports.VectorIndex
	topK     int
}

func NewNaive(embedder ports.Embedder, index ports.VectorIndex, topK int) *Naive {
	return &Naive{embedder: embedder, index: index, topK: topK}
}

func (s *Naive) Name() string { return StrategyNaive }

func (s *Naive) Retrieve(ctx context.Context, query string) ([]domain.Passage, domain.Usage, error) {
	vector, usage, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, usage, domain.WrapError(domain.ErrRetrievalUnavailable, "embed query", err)
	}

	passages, err := s.index.Search(ctx, vector, s.topK)
	if err != nil {
		return nil, usage, err
	}
	return trimPassages(passages, s.topK), usage, nil
}
