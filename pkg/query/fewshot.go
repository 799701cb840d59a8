package query

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/corvid-labs/quill/pkg/graph"
)

// DefaultExemplarCount is how many exemplars are selected for the prompt
// preamble.
const DefaultExemplarCount = 2

// FewShotStage picks the exemplars closest to the question and formats them
// into a prompt preamble demonstrating the expected answer structure. With no
// exemplar set configured the stage skips silently.
type FewShotStage struct {
	exemplars []graph.Exemplar
	topK      int
}

// NewFewShotStage creates the stage. A non-positive topK uses the default.
func NewFewShotStage(exemplars []graph.Exemplar, topK int) *FewShotStage {
	if topK <= 0 {
		topK = DefaultExemplarCount
	}
	return &FewShotStage{exemplars: exemplars, topK: topK}
}

func (s *FewShotStage) Name() string { return "few_shot" }

func (s *FewShotStage) Process(ctx context.Context, st *State) StageResult {
	if len(s.exemplars) == 0 {
		return resultSkipped(s.Name(), "no exemplars configured")
	}
	if len(st.Embedding) == 0 {
		return resultSkipped(s.Name(), "no question embedding")
	}

	type scored struct {
		exemplar   graph.Exemplar
		similarity float64
	}
	ranked := make([]scored, 0, len(s.exemplars))
	for _, e := range s.exemplars {
		ranked = append(ranked, scored{exemplar: e, similarity: cosineSimilarity(st.Embedding, e.Embedding)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].similarity > ranked[j].similarity
	})
	if len(ranked) > s.topK {
		ranked = ranked[:s.topK]
	}

	var b strings.Builder
	b.WriteString("Here are examples of well-formed answers:\n\n")
	for i, r := range ranked {
		fmt.Fprintf(&b, "Example %d:\nQuestion: %s\nEvidence: %s\nAnswer: %s\n\n",
			i+1, r.exemplar.Question, r.exemplar.Evidence, r.exemplar.Answer)
	}
	st.FewShotPreamble = b.String()

	return resultOK(s.Name())
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
