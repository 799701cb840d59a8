package query

import (
	"context"
	"fmt"
	"time"

	"github.com/corvid-labs/quill/pkg/graph"
	"github.com/corvid-labs/quill/pkg/store"
)

const (
	// DefaultNeighborCount bounds how many directly linked documents are
	// pulled in around the seed.
	DefaultNeighborCount = 2

	// DefaultDocumentCap bounds the total distinct documents contributing
	// evidence, seed included.
	DefaultDocumentCap = 7

	neighborTimeout = 15 * time.Second
)

// MultiDocStage grows the single top-ranked document into a bounded evidence
// set by following its reference edges one hop out. Candidates are then
// restricted to passages belonging to the selected documents, and the
// selection is recorded on the state for the synthesizer.
type MultiDocStage struct {
	store     store.GraphStore
	neighbors int
	docCap    int
	tracer    Tracer
}

// NewMultiDocStage creates the stage. Non-positive limits use the defaults.
func NewMultiDocStage(s store.GraphStore, neighbors, docCap int, tracer Tracer) *MultiDocStage {
	if neighbors <= 0 {
		neighbors = DefaultNeighborCount
	}
	if docCap <= 0 {
		docCap = DefaultDocumentCap
	}
	return &MultiDocStage{store: s, neighbors: neighbors, docCap: docCap, tracer: tracer}
}

func (s *MultiDocStage) Name() string { return "multi_document" }

// Process selects the evidence documents. The seed is the document owning
// the highest-ranked candidate, joined by up to the configured number of its
// direct neighbors.
func (s *MultiDocStage) Process(ctx context.Context, st *State) StageResult {
	if len(st.Candidates) == 0 {
		return resultSkipped(s.Name(), "no candidates")
	}

	seed := st.Candidates[0].Passage.DocumentTitle
	selected := []string{seed}
	seen := map[string]bool{seed: true}

	nctx, cancel := context.WithTimeout(ctx, neighborTimeout)
	defer cancel()
	neighbors, err := s.store.Neighbors(nctx, seed, graph.DirectionBoth)
	if err != nil {
		// The seed document alone is still a valid evidence set.
		neighbors = nil
	}
	// Selection is strictly the seed plus its direct neighbors. Documents
	// that are only reachable through a neighbor, or that merely surfaced a
	// lower-ranked candidate, stay out of the evidence set.
	added := 0
	for _, title := range neighbors {
		if added >= s.neighbors || len(selected) >= s.docCap {
			break
		}
		if seen[title] {
			continue
		}
		seen[title] = true
		selected = append(selected, title)
		added++
	}

	recordConsideredDocuments(s.tracer, selected...)

	kept := make([]Candidate, 0, len(st.Candidates))
	for _, c := range st.Candidates {
		if seen[c.Passage.DocumentTitle] {
			kept = append(kept, c)
		}
	}
	st.Candidates = kept
	st.Documents = selected

	if err != nil {
		return resultDegraded(s.Name(), fmt.Sprintf("neighbor lookup failed: %v", err))
	}
	return resultOK(s.Name())
}
