package retrieval

import (
	"context"
	"sync"

	"github.com/feedbacklab/feedback-analyzer/internal/core/domain"
	"github.com/feedbacklab/feedback-analyzer/internal/core/ports"
)

// ParentDocument retrieves small child chunks by similarity, then swaps
// each child for its enclosing parent block. Trades precision for larger
// context windows.
type ParentDocument struct {
	embedder ports.Embedder
	index    ports.VectorIndex
	parents  ports.ParentStore
	topK     int
}

func NewParentDocument(embedder ports.Embedder, index ports.VectorIndex, parents ports.ParentStore, topK int) *ParentDocument {
	return &ParentDocument{
		embedder: embedder,
		index:    index,
		parents:  parents,
		topK:     topK,
	}
}

func (s *ParentDocument) Name() string { return StrategyParentDocument }

func (s *ParentDocument) Retrieve(ctx context.Context, query string) ([]domain.Passage, domain.Usage, error) {
	vector, usage, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, usage, domain.WrapError(domain.ErrRetrievalUnavailable, "embed query", err)
	}

	// Oversample children: several may collapse into the same parent.
	children, err := s.index.Search(ctx, vector, s.topK*3)
	if err != nil {
		return nil, usage, err
	}

	seen := make(map[string]struct{}, s.topK)
	out := make([]domain.Passage, 0, s.topK)
	for _, child := range children {
		resolved := child
		if child.ParentID != "" {
			if parent, ok := s.parents.Parent(child.ParentID); ok {
				parent.Score = child.Score
				resolved = parent
			}
		}
		key := resolved.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, resolved)
		if len(out) == s.topK {
			break
		}
	}
	return out, usage, nil
}

// ParentBlockStore holds parent blocks built at indexing time. Frozen
// after indexing, so reads are effectively lock-free.
type ParentBlockStore struct {
	mu     sync.RWMutex
	blocks map[string]domain.Passage
}

func NewParentBlockStore() *ParentBlockStore {
	return &ParentBlockStore{blocks: make(map[string]domain.Passage)}
}

func (s *ParentBlockStore) Put(block domain.Passage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks[block.ID] = block
}

func (s *ParentBlockStore) Parent(id string) (domain.Passage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	block, ok := s.blocks[id]
	return block, ok
}

func (s *ParentBlockStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blocks)
}
