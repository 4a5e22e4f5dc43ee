package cohere

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/feedbacklab/feedback-analyzer/internal/core/domain"
)

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New("", "", "")
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestRerankReordersByRelevance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/rerank" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"results":[
			{"index":2,"relevance_score":0.95},
			{"index":0,"relevance_score":0.40}
		]}`))
	}))
	defer server.Close()

	client, err := New("key", "rerank-english-v3.0", server.URL)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	candidates := []domain.Passage{
		{ID: "a", Text: "first"},
		{ID: "b", Text: "second"},
		{ID: "c", Text: "third"},
	}
	out, err := client.Rerank(context.Background(), "query", candidates, 2)
	if err != nil {
		t.Fatalf("Rerank() error = %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 results, got %d", len(out))
	}
	if out[0].ID != "c" || out[0].Score != 0.95 {
		t.Fatalf("expected c first with score 0.95, got %+v", out[0])
	}
}

func TestRerankServiceDownIsRetrievalUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := New("key", "", server.URL)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = client.Rerank(context.Background(), "query", []domain.Passage{{Text: "x"}}, 1)
	if !domain.IsKind(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("expected ErrRetrievalUnavailable, got %v", err)
	}
}

func TestRerankEmptyCandidates(t *testing.T) {
	client, err := New("key", "", "http://unreachable.invalid")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	out, err := client.Rerank(context.Background(), "query", nil, 3)
	if err != nil || out != nil {
		t.Fatalf("expected empty no-op, got %v %v", out, err)
	}
}
