package ports

import (
	"context"

	"github.com/feedbacklab/feedback-analyzer/internal/core/domain"
)

// Embedder builds vectors for passages and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, domain.Usage, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, domain.Usage, error)
}

// Generator produces free-form and strict-JSON completions.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, domain.Usage, error)
	CompleteJSON(ctx context.Context, prompt string) (string, domain.Usage, error)
}

// Chunker splits text into retrievable chunks.
type Chunker interface {
	Split(text string) []string
}

// VectorIndex indexes passages and performs dense and lexical search.
type VectorIndex interface {
	IndexPassages(ctx context.Context, passages []domain.Passage, vectors [][]float32) error
	Search(ctx context.Context, queryVector []float32, limit int) ([]domain.Passage, error)
	SearchLexical(ctx context.Context, queryText string, limit int) ([]domain.Passage, error)
}

// ParentStore resolves a child chunk to its enclosing parent block.
type ParentStore interface {
	Parent(id string) (domain.Passage, bool)
}

// Reranker reorders candidates by cross-encoder relevance to the query.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []domain.Passage, topN int) ([]domain.Passage, error)
}

// WebSearcher queries an external web search service.
type WebSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]domain.WebResult, error)
}
