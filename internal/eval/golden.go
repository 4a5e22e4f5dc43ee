// Package eval generates the golden dataset, runs retrieval strategies
// against it and scores the results.
package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strings"

	"github.com/feedbacklab/feedback-analyzer/internal/core/domain"
	"github.com/feedbacklab/feedback-analyzer/internal/core/ports"
)

// GoldenGenerator builds question/answer examples grounded in sampled
// corpus records. Sampling is deterministic under a fixed seed so two
// runs over the same corpus draw the same record sequence.
type GoldenGenerator struct {
	generator ports.Generator
	size      int
	seed      int64
	logger    *slog.Logger
}

func NewGoldenGenerator(generator ports.Generator, size int, seed int64, logger *slog.Logger) *GoldenGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &GoldenGenerator{generator: generator, size: size, seed: seed, logger: logger}
}

// Generate produces up to the configured number of examples. Individual
// generation failures are discarded; the attempt budget is three times
// the requested size. A shortfall is reported, not fatal. Zero examples
// is ErrGeneration.
func (g *GoldenGenerator) Generate(ctx context.Context, records []domain.FeedbackRecord) ([]domain.GoldenExample, domain.Usage, error) {
	var total domain.Usage
	if len(records) == 0 {
		return nil, total, domain.WrapError(domain.ErrGeneration, "generate golden dataset",
			fmt.Errorf("corpus is empty"))
	}

	rng := rand.New(rand.NewSource(g.seed))
	used := make(map[string]struct{}, g.size)
	examples := make([]domain.GoldenExample, 0, g.size)

	maxAttempts := 3 * g.size
	for attempt := 0; attempt < maxAttempts && len(examples) < g.size; attempt++ {
		record := records[rng.Intn(len(records))]
		if _, ok := used[record.ID]; ok && len(used) < len(records) {
			continue
		}

		raw, usage, err := g.generator.CompleteJSON(ctx, buildGoldenPrompt(record))
		total.Add(usage)
		if err != nil {
			g.logger.Warn("golden example generation failed", "record_id", record.ID, "error", err)
			continue
		}

		var parsed struct {
			Question string `json:"question"`
			Answer   string `json:"answer"`
		}
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			g.logger.Warn("golden example response is not valid json", "record_id", record.ID, "error", err)
			continue
		}
		question := strings.TrimSpace(parsed.Question)
		answer := strings.TrimSpace(parsed.Answer)
		if question == "" || answer == "" {
			g.logger.Warn("golden example is incomplete", "record_id", record.ID)
			continue
		}

		used[record.ID] = struct{}{}
		examples = append(examples, domain.GoldenExample{
			ID:              fmt.Sprintf("golden-%03d", len(examples)+1),
			Question:        question,
			ReferenceAnswer: answer,
			ReferenceContext: []domain.Passage{{
				RecordID:  record.ID,
				Source:    string(record.Source),
				Sentiment: string(record.Sentiment),
				Text:      record.Text,
			}},
		})
	}

	if len(examples) == 0 {
		return nil, total, domain.WrapError(domain.ErrGeneration, "generate golden dataset",
			fmt.Errorf("no examples after %d attempts", maxAttempts))
	}
	if len(examples) < g.size {
		g.logger.Warn("golden dataset shortfall", "requested", g.size, "generated", len(examples))
	}
	return examples, total, nil
}

// SaveGolden persists the dataset so later runs compare strategies on
// the identical example set.
func SaveGolden(path string, examples []domain.GoldenExample) error {
	data, err := json.MarshalIndent(examples, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal golden dataset: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write golden dataset %s: %w", path, err)
	}
	return nil
}

func LoadGolden(path string) ([]domain.GoldenExample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read golden dataset %s: %w", path, err)
	}
	var examples []domain.GoldenExample
	if err := json.Unmarshal(data, &examples); err != nil {
		return nil, fmt.Errorf("parse golden dataset %s: %w", path, err)
	}
	return examples, nil
}
