package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/feedbacklab/feedback-analyzer/internal/core/domain"
	"github.com/feedbacklab/feedback-analyzer/internal/core/ports"
)

const embedBatchSize = 64

type parentWriter interface {
	Put(block domain.Passage)
}

// IndexCorpusUseCase runs the startup indexing pipeline: feedback records
// are chunked, embedded and upserted into the vector index. Alongside the
// base chunks it builds parent blocks with small child chunks for the
// parent-document strategy.
type IndexCorpusUseCase struct {
	chunker       ports.Chunker
	parentChunker ports.Chunker
	childChunker  ports.Chunker
	embedder      ports.Embedder
	index         ports.VectorIndex
	parents       parentWriter
}

func NewIndexCorpusUseCase(
	chunker ports.Chunker,
	parentChunker ports.Chunker,
	childChunker ports.Chunker,
	embedder ports.Embedder,
	index ports.VectorIndex,
	parents parentWriter,
) *IndexCorpusUseCase {
	return &IndexCorpusUseCase{
		chunker:       chunker,
		parentChunker: parentChunker,
		childChunker:  childChunker,
		embedder:      embedder,
		index:         index,
		parents:       parents,
	}
}

// Index builds and upserts every indexable passage. Returns the number
// of indexed passages and the total embedding usage.
func (uc *IndexCorpusUseCase) Index(ctx context.Context, records []domain.FeedbackRecord) (int, domain.Usage, error) {
	var total domain.Usage
	if len(records) == 0 {
		return 0, total, domain.WrapError(domain.ErrInvalidInput, "index corpus", errors.New("no records to index"))
	}

	passages := uc.buildPassages(records)
	if len(passages) == 0 {
		return 0, total, domain.WrapError(domain.ErrInvalidInput, "index corpus", errors.New("chunking produced zero passages"))
	}

	for start := 0; start < len(passages); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(passages) {
			end = len(passages)
		}
		batch := passages[start:end]

		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = p.Text
		}
		vectors, usage, err := uc.embedder.Embed(ctx, texts)
		total.Add(usage)
		if err != nil {
			return 0, total, fmt.Errorf("embed passages: %w", err)
		}
		if len(vectors) != len(batch) {
			return 0, total, domain.WrapError(domain.ErrInvalidInput, "embed passages",
				fmt.Errorf("vectors/passages mismatch: %d/%d", len(vectors), len(batch)))
		}
		if err := uc.index.IndexPassages(ctx, batch, vectors); err != nil {
			return 0, total, fmt.Errorf("index passages: %w", err)
		}
	}

	return len(passages), total, nil
}

// buildPassages produces base chunks for every record plus child chunks
// that reference parent blocks. Parent blocks go to the parent store,
// not the index.
func (uc *IndexCorpusUseCase) buildPassages(records []domain.FeedbackRecord) []domain.Passage {
	var out []domain.Passage
	for _, record := range records {
		for i, chunk := range uc.chunker.Split(record.Text) {
			out = append(out, domain.Passage{
				ID:         uuid.NewString(),
				RecordID:   record.ID,
				ChunkIndex: i,
				Source:     string(record.Source),
				Sentiment:  string(record.Sentiment),
				Text:       chunk,
			})
		}

		if uc.parents == nil || uc.parentChunker == nil || uc.childChunker == nil {
			continue
		}
		for pi, block := range uc.parentChunker.Split(record.Text) {
			parent := domain.Passage{
				ID:         fmt.Sprintf("parent:%s:%d", record.ID, pi),
				RecordID:   record.ID,
				ChunkIndex: pi,
				Source:     string(record.Source),
				Sentiment:  string(record.Sentiment),
				Text:       block,
			}
			uc.parents.Put(parent)

			for ci, child := range uc.childChunker.Split(block) {
				out = append(out, domain.Passage{
					ID:         uuid.NewString(),
					RecordID:   record.ID,
					ParentID:   parent.ID,
					ChunkIndex: ci,
					Source:     string(record.Source),
					Sentiment:  string(record.Sentiment),
					Text:       child,
				})
			}
		}
	}
	return out
}
