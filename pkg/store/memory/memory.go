package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/corvid-labs/quill/pkg/graph"
)

// GraphMemStore is an in-memory store.GraphStore over a fully materialized
// graph. It is used by tests and for small embedded graphs. All methods are
// safe for concurrent readers; the graph is built before serving queries.
type GraphMemStore struct {
	mu        sync.RWMutex
	documents map[string]graph.Document
	content   map[string]string
	passages  []storedPassage
	edgesOut  map[string][]string
	edgesIn   map[string][]string
	edgeCount int
}

type storedPassage struct {
	passage   graph.Passage
	embedding []float32
}

// NewGraphMemStore creates an empty in-memory store.
func NewGraphMemStore() *GraphMemStore {
	return &GraphMemStore{
		documents: make(map[string]graph.Document),
		content:   make(map[string]string),
		edgesOut:  make(map[string][]string),
		edgesIn:   make(map[string][]string),
	}
}

// AddDocument registers a document with optional raw full text.
func (s *GraphMemStore) AddDocument(doc graph.Document, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.Title] = doc
	if content != "" {
		s.content[doc.Title] = content
	}
}

// AddPassage registers a passage with its embedding. The owning document must
// have been added first.
func (s *GraphMemStore) AddPassage(p graph.Passage, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[p.DocumentTitle]; !ok {
		return fmt.Errorf("unknown document %q for passage %q", p.DocumentTitle, p.ID)
	}
	s.passages = append(s.passages, storedPassage{passage: p, embedding: embedding})
	return nil
}

// AddEdge registers a directed reference edge between two known documents.
func (s *GraphMemStore) AddEdge(sourceTitle, targetTitle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[sourceTitle]; !ok {
		return fmt.Errorf("unknown source document %q", sourceTitle)
	}
	if _, ok := s.documents[targetTitle]; !ok {
		return fmt.Errorf("unknown target document %q", targetTitle)
	}
	s.edgesOut[sourceTitle] = append(s.edgesOut[sourceTitle], targetTitle)
	s.edgesIn[targetTitle] = append(s.edgesIn[targetTitle], sourceTitle)
	s.edgeCount++
	return nil
}

// Search returns the k passages nearest to the embedding by brute-force
// cosine similarity, ordered by descending similarity with passage ID as a
// deterministic tie-break.
func (s *GraphMemStore) Search(ctx context.Context, embedding []float32, k int) ([]graph.SearchHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]graph.SearchHit, 0, len(s.passages))
	for _, sp := range s.passages {
		hits = append(hits, graph.SearchHit{
			Passage:    sp.passage,
			Similarity: CosineSimilarity(embedding, sp.embedding),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity == hits[j].Similarity {
			return hits[i].Passage.ID < hits[j].Passage.ID
		}
		return hits[i].Similarity > hits[j].Similarity
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Neighbors returns the titles of documents linked to the given document.
func (s *GraphMemStore) Neighbors(
	ctx context.Context,
	documentTitle string,
	direction graph.Direction,
) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var titles []string
	switch direction {
	case graph.DirectionOut:
		titles = append(titles, s.edgesOut[documentTitle]...)
	case graph.DirectionIn:
		titles = append(titles, s.edgesIn[documentTitle]...)
	case graph.DirectionBoth:
		seen := make(map[string]struct{})
		for _, t := range s.edgesOut[documentTitle] {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				titles = append(titles, t)
			}
		}
		for _, t := range s.edgesIn[documentTitle] {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				titles = append(titles, t)
			}
		}
	default:
		return nil, fmt.Errorf("unknown direction %q", direction)
	}

	sort.Strings(titles)
	return titles, nil
}

// Degrees returns in-degree plus out-degree for every document.
func (s *GraphMemStore) Degrees(ctx context.Context) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	degrees := make(map[string]int, len(s.documents))
	for title := range s.documents {
		degrees[title] = len(s.edgesOut[title]) + len(s.edgesIn[title])
	}
	return degrees, nil
}

// DocumentContent returns the raw full text for the given document titles.
func (s *GraphMemStore) DocumentContent(ctx context.Context, titles []string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	content := make(map[string]string, len(titles))
	for _, title := range titles {
		if text, ok := s.content[title]; ok {
			content[title] = text
		}
	}
	return content, nil
}

// Stats reports the size and connectivity of the graph.
func (s *GraphMemStore) Stats(ctx context.Context) (graph.Stats, error) {
	if err := ctx.Err(); err != nil {
		return graph.Stats{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := graph.Stats{
		Documents: len(s.documents),
		Passages:  len(s.passages),
		Edges:     s.edgeCount,
	}
	if stats.Documents > 0 {
		stats.AvgDegree = float64(stats.Edges) / float64(stats.Documents)
	}
	return stats, nil
}

// CosineSimilarity computes the cosine similarity between two vectors. Zero
// or mismatched vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
