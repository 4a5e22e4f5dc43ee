// Package retrieval implements the interchangeable retrieval strategies
// compared by the evaluation harness. Every strategy is a stateless
// scoring unit over the shared read-only index: it takes a query and
// returns at most K passages, best first. An empty result is a valid
// answer; only a broken external dependency is an error.
package retrieval

import (
	"context"
	"errors"
	"fmt"

	"github.com/feedbacklab/feedback-analyzer/internal/core/domain"
	"github.com/feedbacklab/feedback-analyzer/internal/core/ports"
)

const (
	StrategyNaive          = "naive"
	StrategyKeyword        = "keyword"
	StrategyMultiQuery     = "multi_query"
	StrategyParentDocument = "parent_document"
	StrategyRerank         = "rerank"
	StrategyEnsemble       = "ensemble"
)

// Known lists every strategy name the factory can build, in the default
// evaluation order.
var Known = []string{
	StrategyNaive,
	StrategyKeyword,
	StrategyMultiQuery,
	StrategyParentDocument,
	StrategyRerank,
	StrategyEnsemble,
}

type Strategy interface {
	Name() string
	Retrieve(ctx context.Context, query string) ([]domain.Passage, domain.Usage, error)
}

type Params struct {
	TopK             int
	RerankCandidates int
	MultiQueryCount  int
	RRFK             int
}

func (p Params) normalize() Params {
	if p.TopK <= 0 {
		p.TopK = 10
	}
	if p.RerankCandidates <= 0 {
		p.RerankCandidates = 2 * p.TopK
	}
	if p.MultiQueryCount <= 0 {
		p.MultiQueryCount = 3
	}
	if p.RRFK <= 0 {
		p.RRFK = 60
	}
	return p
}

// Factory wires strategies from shared dependencies. The reranker is
// optional; requesting the rerank strategy without one is a
// configuration error scoped to that strategy alone.
type Factory struct {
	embedder  ports.Embedder
	index     ports.VectorIndex
	generator ports.Generator
	parents   ports.ParentStore
	reranker  ports.Reranker
	params    Params
}

func NewFactory(
	embedder ports.Embedder,
	index ports.VectorIndex,
	generator ports.Generator,
	parents ports.ParentStore,
	reranker ports.Reranker,
	params Params,
) *Factory {
	return &Factory{
		embedder:  embedder,
		index:     index,
		generator: generator,
		parents:   parents,
		reranker:  reranker,
		params:    params.normalize(),
	}
}

func (f *Factory) Create(name string) (Strategy, error) {
	switch name {
	case StrategyNaive:
		return NewNaive(f.embedder, f.index, f.params.TopK), nil
	case StrategyKeyword:
		return NewKeyword(f.index, f.params.TopK), nil
	case StrategyMultiQuery:
		return NewMultiQuery(f.generator, f.embedder, f.index, f.params.TopK, f.params.MultiQueryCount), nil
	case StrategyParentDocument:
		if f.parents == nil {
			return nil, domain.WrapError(domain.ErrConfiguration, "parent_document strategy",
				errors.New("parent block store is not initialized"))
		}
		return NewParentDocument(f.embedder, f.index, f.parents, f.params.TopK), nil
	case StrategyRerank:
		if f.reranker == nil {
			return nil, domain.WrapError(domain.ErrConfiguration, "rerank strategy",
				errors.New("COHERE_API_KEY is required"))
		}
		return NewRerank(f.embedder, f.index, f.reranker, f.params.TopK, f.params.RerankCandidates), nil
	case StrategyEnsemble:
		return NewEnsemble(f.params.RRFK, f.params.TopK,
			NewKeyword(f.index, f.params.TopK),
			NewNaive(f.embedder, f.index, f.params.TopK),
		), nil
	default:
		return nil, domain.WrapError(domain.ErrConfiguration, "strategy factory",
			fmt.Errorf("unknown strategy %q", name))
	}
}

func trimPassages(passages []domain.Passage, limit int) []domain.Passage {
	if limit <= 0 || len(passages) <= limit {
		return passages
	}
	return passages[:limit]
}
