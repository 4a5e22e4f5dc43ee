package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/feedbacklab/feedback-analyzer/internal/core/domain"
)

func TestIndexPassagesEnsuresCollectionOncePerVectorSize(t *testing.T) {
	var ensureCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/feedback":
			atomic.AddInt32(&ensureCalls, 1)
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/feedback/points":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "feedback")
	passages := []domain.Passage{
		{ID: "FB-001:0", RecordID: "FB-001", ChunkIndex: 0, Text: "a"},
		{ID: "FB-001:1", RecordID: "FB-001", ChunkIndex: 1, Text: "b"},
	}
	vectors := [][]float32{{0.1, 0.2}, {0.3, 0.4}}

	if err := client.IndexPassages(context.Background(), passages, vectors); err != nil {
		t.Fatalf("first IndexPassages() error = %v", err)
	}
	if err := client.IndexPassages(context.Background(), passages, vectors); err != nil {
		t.Fatalf("second IndexPassages() error = %v", err)
	}
	if got := atomic.LoadInt32(&ensureCalls); got != 1 {
		t.Fatalf("expected ensure collection called once, got %d", got)
	}
}

func TestSearchMapsPayloadToPassage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/feedback/points/search" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"result":[{"score":0.87,"payload":{
			"passage_id":"FB-002:0","record_id":"FB-002","parent_id":"FB-002",
			"chunk_index":0,"source":"Survey","sentiment":"Negative","text":"slow loading"}}]}`))
	}))
	defer server.Close()

	client := New(server.URL, "feedback")
	passages, err := client.Search(context.Background(), []float32{0.1}, 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(passages) != 1 {
		t.Fatalf("expected 1 passage, got %d", len(passages))
	}
	p := passages[0]
	if p.RecordID != "FB-002" || p.ChunkIndex != 0 || p.Score != 0.87 {
		t.Fatalf("unexpected passage: %+v", p)
	}
	if p.Key() != "FB-002:0" {
		t.Fatalf("unexpected passage key: %s", p.Key())
	}
}

func TestSearchLexicalUsesNamedSparseVector(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/feedback/points/search" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"result":[]}`))
	}))
	defer server.Close()

	client := New(server.URL, "feedback")
	if _, err := client.SearchLexical(context.Background(), "dark mode request", 5); err != nil {
		t.Fatalf("SearchLexical() error = %v", err)
	}

	vector, ok := captured["vector"].(map[string]any)
	if !ok {
		t.Fatalf("expected named vector in request, got %v", captured)
	}
	if vector["name"] != "lexical" {
		t.Fatalf("expected lexical vector name, got %v", vector["name"])
	}
}

func TestSearchLexicalEmptyQueryReturnsNothing(t *testing.T) {
	client := New("http://unreachable.invalid", "feedback")
	passages, err := client.SearchLexical(context.Background(), "!!! ---", 5)
	if err != nil {
		t.Fatalf("SearchLexical() error = %v", err)
	}
	if len(passages) != 0 {
		t.Fatalf("expected empty result, got %d", len(passages))
	}
}

func TestSearchFailureIsRetrievalUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL, "feedback")
	_, err := client.Search(context.Background(), []float32{0.1}, 5)
	if !domain.IsKind(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("expected ErrRetrievalUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected status in error, got %v", err)
	}
}
