package pgx

import (
	"context"

	"github.com/corvid-labs/quill/pkg/graph"

	"github.com/pgvector/pgvector-go"
)

const searchSQL = `
SELECT
	p.public_id,
	p.title,
	p.content,
	p.word_count,
	d.title,
	1 - (p.embedding <=> $1) AS similarity
FROM passages p
JOIN documents d ON d.id = p.document_id
ORDER BY p.embedding <=> $1
LIMIT $2
`

// Search returns the k passages nearest to the embedding by cosine distance,
// ordered by descending similarity.
func (s *GraphDBStore) Search(ctx context.Context, embedding []float32, k int) ([]graph.SearchHit, error) {
	if k <= 0 {
		return nil, nil
	}

	rows, err := s.conn.Query(ctx, searchSQL, pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hits := make([]graph.SearchHit, 0, k)
	for rows.Next() {
		var hit graph.SearchHit
		if err := rows.Scan(
			&hit.Passage.ID,
			&hit.Passage.Title,
			&hit.Passage.Content,
			&hit.Passage.WordCount,
			&hit.Passage.DocumentTitle,
			&hit.Similarity,
		); err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}
