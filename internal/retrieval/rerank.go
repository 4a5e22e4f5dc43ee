package retrieval

import (
	"context"

	"github.com/feedbacklab/feedback-analyzer/internal/core/domain"
	"github.com/feedbacklab/feedback-analyzer/internal/core/ports"
)

// Rerank fetches an oversized candidate set by similarity, reorders it
// through a cross-encoder relevance scorer and truncates to K.
type Rerank struct {
	embedder   ports.Embedder
	index      ports.VectorIndex
	reranker   ports.Reranker
	topK       int
	candidates int
}

func NewRerank(embedder ports.Embedder, index ports.VectorIndex, reranker ports.Reranker, topK, candidates int) *Rerank {
	if candidates < topK {
		candidates = topK
	}
	return &Rerank{
		embedder:   embedder,
		index:      index,
		reranker:   reranker,
		topK:       topK,
		candidates: candidates,
	}
}

func (s *Rerank) Name() string { return StrategyRerank }

func (s *Rerank) Retrieve(ctx context.Context, query string) ([]domain.Passage, domain.Usage, error) {
	vector, usage, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, usage, domain.WrapError(domain.ErrRetrievalUnavailable, "embed query", err)
	}

	candidates, err := s.index.Search(ctx, vector, s.candidates)
	if err != nil {
		return nil, usage, err
	}
	if len(candidates) == 0 {
		return nil, usage, nil
	}

	reranked, err := s.reranker.Rerank(ctx, query, candidates, s.topK)
	if err != nil {
		return nil, usage, err
	}
	return trimPassages(reranked, s.topK), usage, nil
}
