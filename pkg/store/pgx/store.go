package pgx

import (
	"context"
	"fmt"

	"github.com/corvid-labs/quill/pkg/graph"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgxIConn interface {
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
}

// GraphDBStore implements store.GraphStore on PostgreSQL with pgvector.
// All operations are reads; concurrent use is safe through the pool.
type GraphDBStore struct {
	conn pgxIConn
}

// NewGraphDBStore creates a store over an existing connection pool and
// verifies the graph tables are reachable. An unreachable or empty schema is
// a construction-time failure.
func NewGraphDBStore(ctx context.Context, pool *pgxpool.Pool) (*GraphDBStore, error) {
	s := &GraphDBStore{conn: pool}
	if _, err := s.Stats(ctx); err != nil {
		return nil, fmt.Errorf("graph store unreachable: %w", err)
	}
	return s, nil
}

// NewGraphDBStoreWithConnection creates a store over any pgx-compatible
// connection without the reachability probe. Used by tests.
func NewGraphDBStoreWithConnection(conn pgxIConn) *GraphDBStore {
	return &GraphDBStore{conn: conn}
}

const statsSQL = `
SELECT
	(SELECT count(*) FROM documents),
	(SELECT count(*) FROM passages),
	(SELECT count(*) FROM reference_edges)
`

// Stats reports document, passage and edge counts plus average degree.
func (s *GraphDBStore) Stats(ctx context.Context) (graph.Stats, error) {
	var stats graph.Stats
	err := s.conn.QueryRow(ctx, statsSQL).Scan(&stats.Documents, &stats.Passages, &stats.Edges)
	if err != nil {
		return graph.Stats{}, err
	}
	if stats.Documents > 0 {
		stats.AvgDegree = float64(stats.Edges) / float64(stats.Documents)
	}
	return stats, nil
}
