package pgx

import (
	"context"
	"fmt"

	"github.com/corvid-labs/quill/pkg/graph"
)

const neighborsOutSQL = `
SELECT dt.title
FROM reference_edges e
JOIN documents ds ON ds.id = e.source_id
JOIN documents dt ON dt.id = e.target_id
WHERE ds.title = $1
ORDER BY dt.title
`

const neighborsInSQL = `
SELECT ds.title
FROM reference_edges e
JOIN documents ds ON ds.id = e.source_id
JOIN documents dt ON dt.id = e.target_id
WHERE dt.title = $1
ORDER BY ds.title
`

const neighborsBothSQL = `
SELECT dt.title
FROM reference_edges e
JOIN documents ds ON ds.id = e.source_id
JOIN documents dt ON dt.id = e.target_id
WHERE ds.title = $1
UNION
SELECT ds.title
FROM reference_edges e
JOIN documents ds ON ds.id = e.source_id
JOIN documents dt ON dt.id = e.target_id
WHERE dt.title = $1
ORDER BY 1
`

// Neighbors returns the titles of documents linked to the given document by
// reference edges in the requested direction.
func (s *GraphDBStore) Neighbors(
	ctx context.Context,
	documentTitle string,
	direction graph.Direction,
) ([]string, error) {
	var sql string
	switch direction {
	case graph.DirectionOut:
		sql = neighborsOutSQL
	case graph.DirectionIn:
		sql = neighborsInSQL
	case graph.DirectionBoth:
		sql = neighborsBothSQL
	default:
		return nil, fmt.Errorf("unknown direction %q", direction)
	}

	rows, err := s.conn.Query(ctx, sql, documentTitle)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	titles := make([]string, 0)
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, err
		}
		titles = append(titles, title)
	}
	return titles, rows.Err()
}

const degreesSQL = `
SELECT d.title, count(e.*)
FROM documents d
LEFT JOIN reference_edges e ON e.source_id = d.id OR e.target_id = d.id
GROUP BY d.title
`

// Degrees returns in-degree plus out-degree for every document.
func (s *GraphDBStore) Degrees(ctx context.Context) (map[string]int, error) {
	rows, err := s.conn.Query(ctx, degreesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	degrees := make(map[string]int)
	for rows.Next() {
		var title string
		var degree int
		if err := rows.Scan(&title, &degree); err != nil {
			return nil, err
		}
		degrees[title] = degree
	}
	return degrees, rows.Err()
}

const documentContentSQL = `
SELECT title, content
FROM documents
WHERE title = ANY($1) AND content <> ''
`

// DocumentContent returns the raw full text for the given document titles.
func (s *GraphDBStore) DocumentContent(ctx context.Context, titles []string) (map[string]string, error) {
	if len(titles) == 0 {
		return map[string]string{}, nil
	}

	rows, err := s.conn.Query(ctx, documentContentSQL, titles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	content := make(map[string]string, len(titles))
	for rows.Next() {
		var title, text string
		if err := rows.Scan(&title, &text); err != nil {
			return nil, err
		}
		content[title] = text
	}
	return content, rows.Err()
}
