package query

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/corvid-labs/quill/internal/util"
	"github.com/corvid-labs/quill/pkg/ai"
	"github.com/corvid-labs/quill/pkg/graph"
	"github.com/corvid-labs/quill/pkg/store"

	"golang.org/x/sync/errgroup"
)

const (
	minResults = 1
	maxResults = 20

	searchTimeout = 30 * time.Second
)

// ClampResultCount bounds a requested result count to the supported range.
func ClampResultCount(k int) int {
	if k < minResults {
		return minResults
	}
	if k > maxResults {
		return maxResults
	}
	return k
}

// Retriever embeds query texts and runs nearest-neighbor search for each,
// merging the results across variants.
type Retriever struct {
	store  store.GraphStore
	client ai.ModelClient
}

// NewRetriever creates a retriever over the given store and model client.
func NewRetriever(s store.GraphStore, client ai.ModelClient) *Retriever {
	return &Retriever{store: s, client: client}
}

// Retrieve runs retrieval for each query variant and merges hits by passage
// identity, keeping the maximum similarity observed across variants. The
// first variant is the original question; its embedding is returned for
// reuse by later stages. k is clamped to the supported range and widened by
// widenFactor when a reranker wants a larger pool.
func (r *Retriever) Retrieve(
	ctx context.Context,
	variants []string,
	k int,
	widenFactor int,
) ([]Candidate, []float32, error) {
	k = ClampResultCount(k)
	poolSize := k
	if widenFactor > 1 {
		poolSize = k * widenFactor
	}

	var (
		mu                sync.Mutex
		merged            = make(map[string]Candidate)
		questionEmbedding []float32
	)

	eg, ectx := errgroup.WithContext(ctx)
	for i, variant := range variants {
		idx := i
		text := variant
		eg.Go(func() error {
			embedding, err := util.RetryWithContext(ectx, 2, time.Second,
				func(ctx context.Context) ([]float32, error) {
					return r.client.GenerateEmbedding(ctx, []byte(text))
				})
			if err != nil {
				return err
			}

			hits, err := util.RetryWithContext(ectx, 2, time.Second,
				func(ctx context.Context) ([]graph.SearchHit, error) {
					sCtx, cancel := context.WithTimeout(ctx, searchTimeout)
					defer cancel()
					return r.store.Search(sCtx, embedding, poolSize)
				})
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			if idx == 0 {
				questionEmbedding = embedding
			}
			for _, hit := range hits {
				existing, exists := merged[hit.Passage.ID]
				if !exists || hit.Similarity > existing.Similarity {
					merged[hit.Passage.ID] = Candidate{
						Passage:    hit.Passage,
						Similarity: hit.Similarity,
					}
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	candidates := make([]Candidate, 0, len(merged))
	for _, c := range merged {
		candidates = append(candidates, c)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Similarity == candidates[j].Similarity {
			return candidates[i].Passage.ID < candidates[j].Passage.ID
		}
		return candidates[i].Similarity > candidates[j].Similarity
	})
	if len(candidates) > poolSize {
		candidates = candidates[:poolSize]
	}

	return candidates, questionEmbedding, nil
}
