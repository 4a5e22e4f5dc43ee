package eval

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/feedbacklab/feedback-analyzer/internal/core/domain"
)

type scriptedGenerator struct {
	responses []string
	err       error
	calls     int
}

func (g *scriptedGenerator) Complete(context.Context, string) (string, domain.Usage, error) {
	return g.next()
}

func (g *scriptedGenerator) CompleteJSON(context.Context, string) (string, domain.Usage, error) {
	return g.next()
}

func (g *scriptedGenerator) next() (string, domain.Usage, error) {
	g.calls++
	if g.err != nil {
		return "", domain.Usage{}, g.err
	}
	resp := g.responses[(g.calls-1)%len(g.responses)]
	return resp, domain.Usage{PromptTokens: 10, CompletionTokens: 5, CostUSD: 0.0001}, nil
}

func testRecords(n int) []domain.FeedbackRecord {
	out := make([]domain.FeedbackRecord, n)
	for i := range out {
		out[i] = domain.FeedbackRecord{
			ID:        fmt.Sprintf("FB-%03d", i+1),
			Source:    "App Store Review",
			Sentiment: "Negative",
			Text:      fmt.Sprintf("feedback record number %d about checkout", i+1),
		}
	}
	return out
}

func TestGoldenGenerationDeterministicUnderFixedSeed(t *testing.T) {
	records := testRecords(10)
	response := `{"question": "What breaks during checkout?", "answer": "Payment fails on step two."}`

	generate := func() []domain.GoldenExample {
		g := NewGoldenGenerator(&scriptedGenerator{responses: []string{response}}, 4, 42, nil)
		examples, _, err := g.Generate(context.Background(), records)
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		return examples
	}

	first := generate()
	second := generate()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical datasets under fixed seed:\nfirst=%+v\nsecond=%+v", first, second)
	}
	if len(first) != 4 {
		t.Fatalf("expected 4 examples, got %d", len(first))
	}
	if first[0].ReferenceContext[0].RecordID == "" {
		t.Fatalf("expected reference context traceable to a record")
	}
}

func TestGoldenGenerationShortfallIsNotFatal(t *testing.T) {
	responses := []string{
		`{"question": "q", "answer": "a"}`,
		`not json`,
		`{"question": "", "answer": "a"}`,
		`not json`,
	}
	g := NewGoldenGenerator(&scriptedGenerator{responses: responses}, 6, 42, nil)
	examples, _, err := g.Generate(context.Background(), testRecords(30))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(examples) == 0 || len(examples) >= 6 {
		t.Fatalf("expected partial dataset, got %d examples", len(examples))
	}
}

func TestGoldenGenerationAttemptBudgetIsThreeTimesSize(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"not json"}}
	g := NewGoldenGenerator(gen, 5, 42, nil)
	_, _, err := g.Generate(context.Background(), testRecords(100))
	if !domain.IsKind(err, domain.ErrGeneration) {
		t.Fatalf("expected ErrGeneration when nothing was produced, got %v", err)
	}
	if gen.calls > 15 {
		t.Fatalf("expected at most 15 attempts, got %d", gen.calls)
	}
}

func TestGoldenGenerationEmptyCorpusIsGenerationError(t *testing.T) {
	g := NewGoldenGenerator(&scriptedGenerator{}, 5, 42, nil)
	_, _, err := g.Generate(context.Background(), nil)
	if !domain.IsKind(err, domain.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
}

func TestGoldenGenerationAllCallsFailIsGenerationError(t *testing.T) {
	g := NewGoldenGenerator(&scriptedGenerator{err: errors.New("status 500")}, 3, 42, nil)
	_, _, err := g.Generate(context.Background(), testRecords(5))
	if !domain.IsKind(err, domain.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
}

func TestSaveAndLoadGoldenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "golden.json")
	in := []domain.GoldenExample{{
		ID:              "golden-001",
		Question:        "What breaks during checkout?",
		ReferenceAnswer: "Payment fails on step two.",
		ReferenceContext: []domain.Passage{
			{RecordID: "FB-001", Text: "payment fails", ChunkIndex: 0},
		},
	}}

	if err := SaveGolden(path, in); err != nil {
		t.Fatalf("SaveGolden() error = %v", err)
	}
	out, err := LoadGolden(path)
	if err != nil {
		t.Fatalf("LoadGolden() error = %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch:\nin=%+v\nout=%+v", in, out)
	}
}
