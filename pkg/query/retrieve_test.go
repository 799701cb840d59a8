package query

import (
	"context"
	"errors"
	"testing"

	"github.com/corvid-labs/quill/pkg/graph"
	"github.com/corvid-labs/quill/pkg/store/memory"
)

func TestClampResultCount(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{-5, 1},
		{0, 1},
		{1, 1},
		{10, 10},
		{20, 20},
		{100, 20},
	}

	for _, tt := range tests {
		if got := ClampResultCount(tt.in); got != tt.want {
			t.Fatalf("ClampResultCount(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func retrievalStore(t *testing.T) *memory.GraphMemStore {
	t.Helper()
	s := memory.NewGraphMemStore()
	s.AddDocument(graph.Document{Title: "Doc"}, "full content")
	passages := []struct {
		id        string
		embedding []float32
	}{
		{"p1", []float32{1, 0, 0}},
		{"p2", []float32{0, 1, 0}},
		{"p3", []float32{0, 0, 1}},
	}
	for _, p := range passages {
		err := s.AddPassage(graph.Passage{
			ID:            p.id,
			Title:         p.id,
			Content:       "passage " + p.id,
			WordCount:     50,
			DocumentTitle: "Doc",
		}, p.embedding)
		if err != nil {
			t.Fatalf("AddPassage(%q) failed: %v", p.id, err)
		}
	}
	return s
}

func TestRetriever_MergesVariantsByMaxSimilarity(t *testing.T) {
	s := retrievalStore(t)
	client := &stubModelClient{embedFn: func(text string) ([]float32, error) {
		if text == "alternate" {
			// Leans toward p2 but still overlaps p1.
			return []float32{0.5, 0.8, 0}, nil
		}
		return []float32{1, 0, 0}, nil
	}}

	candidates, embedding, err := NewRetriever(s, client).Retrieve(
		context.Background(), []string{"original", "alternate"}, 3, 1)
	if err != nil {
		t.Fatalf("Retrieve() failed: %v", err)
	}

	if len(embedding) != 3 || embedding[0] != 1 {
		t.Fatalf("Retrieve() embedding = %v, want the original variant's embedding", embedding)
	}

	byID := map[string]Candidate{}
	for _, c := range candidates {
		if _, dup := byID[c.Passage.ID]; dup {
			t.Fatalf("Retrieve() returned passage %q twice", c.Passage.ID)
		}
		byID[c.Passage.ID] = c
	}

	// p1 matches the original variant exactly; the weaker overlap from the
	// alternate variant must not pull its similarity down.
	if got := byID["p1"].Similarity; got < 0.999 {
		t.Fatalf("similarity of p1 = %v, want the maximum across variants (~1.0)", got)
	}

	for i := 1; i < len(candidates); i++ {
		if candidates[i].Similarity > candidates[i-1].Similarity {
			t.Fatalf("candidates not sorted by similarity: %v", candidates)
		}
	}
}

func TestRetriever_WidensPoolForReranking(t *testing.T) {
	s := retrievalStore(t)
	client := &stubModelClient{}

	candidates, _, err := NewRetriever(s, client).Retrieve(
		context.Background(), []string{"q"}, 1, 2)
	if err != nil {
		t.Fatalf("Retrieve() failed: %v", err)
	}
	// k=1 widened by 2 keeps two candidates for the reranker.
	if len(candidates) != 2 {
		t.Fatalf("Retrieve() returned %d candidates, want 2", len(candidates))
	}
}

func TestRetriever_EmbeddingFailurePropagates(t *testing.T) {
	s := retrievalStore(t)
	client := &stubModelClient{embedFn: func(text string) ([]float32, error) {
		return nil, errors.New("embedding service down")
	}}

	_, _, err := NewRetriever(s, client).Retrieve(context.Background(), []string{"q"}, 3, 1)
	if err == nil {
		t.Fatal("Retrieve() should fail when embedding fails")
	}
}
