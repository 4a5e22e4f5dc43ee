package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/feedbacklab/feedback-analyzer/internal/core/domain"
	"github.com/feedbacklab/feedback-analyzer/internal/core/ports"
)

// MultiQuery expands the query into paraphrases via a generation call,
// retrieves per paraphrase and merges the union by passage identity.
// Strictly more expensive in latency and cost than naive retrieval.
type MultiQuery struct {
	generator ports.Generator
	embedder  ports.Embedder
	index     ports.VectorIndex
	topK      int
	expansion int
}

func NewMultiQuery(generator ports.Generator, embedder ports.Embedder, index ports.VectorIndex, topK, expansion int) *MultiQuery {
	return &MultiQuery{
		generator: generator,
		embedder:  embedder,
		index:     index,
		topK:      topK,
		expansion: expansion,
	}
}

func (s *MultiQuery) Name() string { return StrategyMultiQuery }

func (s *MultiQuery) Retrieve(ctx context.Context, query string) ([]domain.Passage, domain.Usage, error) {
	var total domain.Usage

	paraphrases, usage, err := s.paraphrase(ctx, query)
	total.Add(usage)
	if err != nil {
		return nil, total, domain.WrapError(domain.ErrRetrievalUnavailable, "paraphrase query", err)
	}

	queries := append([]string{query}, paraphrases...)
	seen := make(map[string]struct{}, s.topK*len(queries))
	var merged []domain.Passage

	for _, q := range queries {
		vector, usage, err := s.embedder.EmbedQuery(ctx, q)
		total.Add(usage)
		if err != nil {
			return nil, total, domain.WrapError(domain.ErrRetrievalUnavailable, "embed paraphrase", err)
		}
		passages, err := s.index.Search(ctx, vector, s.topK)
		if err != nil {
			return nil, total, err
		}
		for _, p := range passages {
			// Merge by chunk identity, not text equality: the same
			// underlying passage reached via two wordings counts once.
			key := p.Key()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, p)
		}
	}

	return trimPassages(merged, s.topK), total, nil
}

func (s *MultiQuery) paraphrase(ctx context.Context, query string) ([]string, domain.Usage, error) {
	raw, usage, err := s.generator.CompleteJSON(ctx, buildParaphrasePrompt(query, s.expansion))
	if err != nil {
		return nil, usage, err
	}

	var parsed struct {
		Queries []string `json:"queries"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, usage, fmt.Errorf("parse paraphrase json: %w", err)
	}

	out := make([]string, 0, s.expansion)
	for _, q := range parsed.Queries {
		q = strings.TrimSpace(q)
		if q == "" || strings.EqualFold(q, query) {
			continue
		}
		out = append(out, q)
		if len(out) == s.expansion {
			break
		}
	}
	return out, usage, nil
}

func buildParaphrasePrompt(query string, n int) string {
	return fmt.Sprintf(`You rewrite search queries.
Produce %d alternative phrasings of the user question below, keeping its meaning.
Return strict JSON object: {"queries": ["...", "..."]}. No markdown, no extra keys.

Question:
%s`, n, query)
}
