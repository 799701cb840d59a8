package query

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/corvid-labs/quill/pkg/store"

	"golang.org/x/sync/singleflight"
)

const (
	rrfK = 60.0

	// DefaultAuthorityWeight is the RRF weight of the authority signal
	// relative to the vector signal.
	DefaultAuthorityWeight = 0.5

	// DefaultAuthorityCacheTTL bounds how long centrality scores are reused
	// before recomputation.
	DefaultAuthorityCacheTTL = time.Hour

	// minAvgDegree is the connectivity floor below which centrality is noise
	// and authority reranking disables itself.
	minAvgDegree = 1.0
)

type authoritySnapshot struct {
	ranks     map[string]int
	degrees   map[string]int
	avgDegree float64
}

// AuthorityCache holds degree-centrality ranks for the whole document set,
// recomputed at most once per TTL. It is the only shared mutable state in the
// query core: recomputation is guarded by a single-flight group so concurrent
// queries observing an expired cache trigger exactly one graph traversal.
type AuthorityCache struct {
	store store.GraphStore
	ttl   time.Duration

	mu       sync.RWMutex
	snapshot *authoritySnapshot
	expires  time.Time

	group singleflight.Group
}

// NewAuthorityCache creates a cache over the given store. A non-positive TTL
// uses the default.
func NewAuthorityCache(s store.GraphStore, ttl time.Duration) *AuthorityCache {
	if ttl <= 0 {
		ttl = DefaultAuthorityCacheTTL
	}
	return &AuthorityCache{store: s, ttl: ttl}
}

// Invalidate drops the cached scores so the next query recomputes them.
func (c *AuthorityCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = nil
	c.expires = time.Time{}
}

// Refresh recomputes the cached scores immediately.
func (c *AuthorityCache) Refresh(ctx context.Context) error {
	c.Invalidate()
	_, err := c.get(ctx)
	return err
}

func (c *AuthorityCache) get(ctx context.Context) (*authoritySnapshot, error) {
	c.mu.RLock()
	snapshot, expires := c.snapshot, c.expires
	c.mu.RUnlock()
	if snapshot != nil && time.Now().Before(expires) {
		return snapshot, nil
	}

	result, err, _ := c.group.Do("authority", func() (any, error) {
		// Double-check under the flight: another caller may have refreshed.
		c.mu.RLock()
		snapshot, expires := c.snapshot, c.expires
		c.mu.RUnlock()
		if snapshot != nil && time.Now().Before(expires) {
			return snapshot, nil
		}

		fresh, err := c.compute(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.snapshot = fresh
		c.expires = time.Now().Add(c.ttl)
		c.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*authoritySnapshot), nil
}

// compute derives 1-based authority ranks from degree centrality, highest
// degree first, titles as the deterministic tie-break.
func (c *AuthorityCache) compute(ctx context.Context) (*authoritySnapshot, error) {
	degrees, err := c.store.Degrees(ctx)
	if err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(degrees))
	total := 0
	for title, degree := range degrees {
		titles = append(titles, title)
		total += degree
	}
	sort.Slice(titles, func(i, j int) bool {
		if degrees[titles[i]] == degrees[titles[j]] {
			return titles[i] < titles[j]
		}
		return degrees[titles[i]] > degrees[titles[j]]
	})

	ranks := make(map[string]int, len(titles))
	for i, title := range titles {
		ranks[title] = i + 1
	}

	avgDegree := 0.0
	if len(degrees) > 0 {
		// Every edge contributes one in-degree and one out-degree.
		avgDegree = float64(total) / 2.0 / float64(len(degrees))
	}

	return &authoritySnapshot{ranks: ranks, degrees: degrees, avgDegree: avgDegree}, nil
}

func rrfComponent(rank int, weight float64) float64 {
	if rank <= 0 {
		return 0
	}
	return weight / (rrfK + float64(rank))
}

// AuthorityStage blends each candidate's vector rank with the graph-authority
// rank of its owning document using reciprocal rank fusion, promoting
// well-connected canonical sources over incidentally-similar obscure ones.
// On a sparse graph (average edges per document below the floor) the stage
// is a no-op.
type AuthorityStage struct {
	cache  *AuthorityCache
	weight float64
}

// NewAuthorityStage creates the stage. Weights outside (0,1] use the default.
func NewAuthorityStage(cache *AuthorityCache, weight float64) *AuthorityStage {
	if weight <= 0 || weight > 1 {
		weight = DefaultAuthorityWeight
	}
	return &AuthorityStage{cache: cache, weight: weight}
}

func (s *AuthorityStage) Name() string { return "authority_rerank" }

// Process reorders st.Candidates by combined RRF score. Similarity and
// authority inputs are preserved on each candidate for observability.
func (s *AuthorityStage) Process(ctx context.Context, st *State) StageResult {
	if len(st.Candidates) == 0 {
		return resultOK(s.Name())
	}

	snapshot, err := s.cache.get(ctx)
	if err != nil {
		return resultDegraded(s.Name(), err.Error())
	}
	if snapshot.avgDegree < minAvgDegree {
		return resultSkipped(s.Name(), "graph too sparse for centrality")
	}

	reranked := make([]Candidate, len(st.Candidates))
	for i, c := range st.Candidates {
		title := c.Passage.DocumentTitle
		c.Authority = float64(snapshot.degrees[title])
		c.Combined = rrfComponent(i+1, 1.0) + rrfComponent(snapshot.ranks[title], s.weight)
		reranked[i] = c
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		if reranked[i].Combined == reranked[j].Combined {
			if reranked[i].Similarity == reranked[j].Similarity {
				return reranked[i].Passage.ID < reranked[j].Passage.ID
			}
			return reranked[i].Similarity > reranked[j].Similarity
		}
		return reranked[i].Combined > reranked[j].Combined
	})

	st.Candidates = reranked
	return resultOK(s.Name())
}
