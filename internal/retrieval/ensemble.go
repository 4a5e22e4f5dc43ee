package retrieval

import (
	"context"
	"sort"

	"github.com/feedbacklab/feedback-analyzer/internal/core/domain"
)

// Ensemble runs its member strategies in priority order and fuses their
// ranked lists with reciprocal rank fusion. A passage surfaced by
// several members accumulates score from each list.
type Ensemble struct {
	members []Strategy
	rrfK    int
	topK    int
}

func NewEnsemble(rrfK, topK int, members ...Strategy) *Ensemble {
	return &Ensemble{members: members, rrfK: rrfK, topK: topK}
}

func (s *Ensemble) Name() string { return StrategyEnsemble }

func (s *Ensemble) Retrieve(ctx context.Context, query string) ([]domain.Passage, domain.Usage, error) {
	var total domain.Usage
	ranked := make([][]domain.Passage, 0, len(s.members))

	for _, member := range s.members {
		passages, usage, err := member.Retrieve(ctx, query)
		total.Add(usage)
		if err != nil {
			return nil, total, err
		}
		ranked = append(ranked, passages)
	}

	fused := fusePassagesRRF(ranked, s.rrfK)
	return trimPassages(fused, s.topK), total, nil
}

type fusedCandidate struct {
	passage  domain.Passage
	score    float64
	priority int
}

// fusePassagesRRF merges ranked lists with reciprocal rank fusion.
// Lists are given in priority order; on an exact score tie the passage
// first surfaced by a higher-priority list wins.
func fusePassagesRRF(ranked [][]domain.Passage, rrfK int) []domain.Passage {
	if rrfK <= 0 {
		rrfK = 60
	}

	acc := make(map[string]fusedCandidate)
	order := make([]string, 0)
	for priority, passages := range ranked {
		for rank, passage := range passages {
			key := passage.Key()
			candidate, seen := acc[key]
			if !seen {
				candidate.passage = passage
				candidate.priority = priority
				order = append(order, key)
			}
			candidate.score += 1.0 / float64(rrfK+rank+1)
			acc[key] = candidate
		}
	}

	out := make([]domain.Passage, 0, len(order))
	for _, key := range order {
		candidate := acc[key]
		passage := candidate.passage
		passage.Score = candidate.score
		out = append(out, passage)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		pi, pj := acc[out[i].Key()].priority, acc[out[j].Key()].priority
		if pi != pj {
			return pi < pj
		}
		return out[i].Key() < out[j].Key()
	})

	return out
}
