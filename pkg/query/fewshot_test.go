package query

import (
	"context"
	"strings"
	"testing"

	"github.com/corvid-labs/quill/pkg/graph"
)

func TestFewShotStage_SelectsNearestExemplars(t *testing.T) {
	exemplars := []graph.Exemplar{
		{Question: "far question", Answer: "far", Embedding: []float32{0, 0, 1}},
		{Question: "near question", Answer: "near", Embedding: []float32{1, 0, 0}},
		{Question: "middle question", Answer: "middle", Embedding: []float32{0.7, 0.7, 0}},
	}
	stage := NewFewShotStage(exemplars, 2)

	st := &State{Embedding: []float32{1, 0, 0}}
	result := stage.Process(context.Background(), st)
	if result.Status != StageOK {
		t.Fatalf("Process() status = %q, want %q", result.Status, StageOK)
	}

	if !strings.Contains(st.FewShotPreamble, "near question") {
		t.Fatalf("preamble should contain the nearest exemplar, got %q", st.FewShotPreamble)
	}
	if !strings.Contains(st.FewShotPreamble, "middle question") {
		t.Fatalf("preamble should contain the second exemplar, got %q", st.FewShotPreamble)
	}
	if strings.Contains(st.FewShotPreamble, "far question") {
		t.Fatalf("preamble should not contain the farthest exemplar, got %q", st.FewShotPreamble)
	}
}

func TestFewShotStage_SkipsWithoutExemplars(t *testing.T) {
	stage := NewFewShotStage(nil, 2)
	st := &State{Embedding: []float32{1, 0, 0}}

	result := stage.Process(context.Background(), st)
	if result.Status != StageSkipped {
		t.Fatalf("Process() status = %q, want %q", result.Status, StageSkipped)
	}
	if st.FewShotPreamble != "" {
		t.Fatalf("preamble should stay empty, got %q", st.FewShotPreamble)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"length mismatch", []float32{1, 0}, []float32{1}, 0.0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("cosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}
