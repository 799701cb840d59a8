package store

import (
	"context"

	"github.com/corvid-labs/quill/pkg/graph"
)

// GraphStore is the read-only view of a pre-built knowledge graph used at
// query time. Implementations must be safe for concurrent readers; the query
// pipeline never writes through this interface.
type GraphStore interface {
	// Search returns the k passages nearest to the embedding, ordered by
	// descending cosine similarity.
	Search(ctx context.Context, embedding []float32, k int) ([]graph.SearchHit, error)

	// Neighbors returns the titles of documents linked to the given document
	// by reference edges in the requested direction.
	Neighbors(ctx context.Context, documentTitle string, direction graph.Direction) ([]string, error)

	// Degrees returns in-degree plus out-degree for every document, keyed by
	// title. Used for authority scoring.
	Degrees(ctx context.Context) (map[string]int, error)

	// DocumentContent returns the raw full text for the given document
	// titles. Titles without stored content are absent from the result.
	DocumentContent(ctx context.Context, titles []string) (map[string]string, error)

	// Stats reports the size and connectivity of the graph.
	Stats(ctx context.Context) (graph.Stats, error)
}
