package query

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCrossEncoderStage_ReordersByScore(t *testing.T) {
	scorer := &stubScorer{scoreFn: func(query, text string) (float64, error) {
		if strings.Contains(text, "relevant") {
			return 0.9, nil
		}
		return 0.1, nil
	}}
	stage := NewCrossEncoderStage(scorer, 5)

	st := &State{
		Question: "test",
		Candidates: []Candidate{
			candidate("p1", "A", 0.9, 100, "filler text"),
			candidate("p2", "B", 0.8, 100, "relevant text"),
		},
	}

	result := stage.Process(context.Background(), st)
	if result.Status != StageOK {
		t.Fatalf("Process() status = %q, want %q", result.Status, StageOK)
	}
	if st.Candidates[0].Passage.ID != "p2" {
		t.Fatalf("top candidate = %q, want p2 promoted by the relevance model", st.Candidates[0].Passage.ID)
	}
	if st.Candidates[0].CEScore == nil || *st.Candidates[0].CEScore != 0.9 {
		t.Fatalf("CEScore = %v, want 0.9", st.Candidates[0].CEScore)
	}
}

func TestCrossEncoderStage_TruncatesToTopK(t *testing.T) {
	scorer := &stubScorer{}
	stage := NewCrossEncoderStage(scorer, 2)

	st := &State{
		Question: "test",
		Candidates: []Candidate{
			candidate("p1", "A", 0.9, 100, "a"),
			candidate("p2", "A", 0.8, 100, "b"),
			candidate("p3", "A", 0.7, 100, "c"),
		},
	}

	stage.Process(context.Background(), st)
	if len(st.Candidates) != 2 {
		t.Fatalf("kept %d candidates, want 2", len(st.Candidates))
	}
}

func TestCrossEncoderStage_LoadFailureIsPermanentPassthrough(t *testing.T) {
	scorer := &stubScorer{loadErr: errors.New("model not found")}
	stage := NewCrossEncoderStage(scorer, 5)

	st := &State{
		Question: "test",
		Candidates: []Candidate{
			candidate("p1", "A", 0.9, 100, "a"),
			candidate("p2", "A", 0.8, 100, "b"),
		},
	}

	result := stage.Process(context.Background(), st)
	if result.Status != StageSkipped {
		t.Fatalf("Process() status = %q, want %q", result.Status, StageSkipped)
	}
	if len(st.Candidates) != 2 || st.Candidates[0].Passage.ID != "p1" {
		t.Fatalf("passthrough must leave candidates unchanged, got %+v", st.Candidates)
	}

	// A later successful Load must not revive the stage.
	scorer.loadErr = nil
	result = stage.Process(context.Background(), st)
	if result.Status != StageSkipped {
		t.Fatalf("Process() after load failure = %q, want permanent %q", result.Status, StageSkipped)
	}
}

func TestCrossEncoderStage_ScoreErrorDegradesThisQueryOnly(t *testing.T) {
	failing := true
	scorer := &stubScorer{scoreFn: func(query, text string) (float64, error) {
		if failing {
			return 0, errors.New("inference timeout")
		}
		return 0.5, nil
	}}
	stage := NewCrossEncoderStage(scorer, 5)

	st := &State{
		Question:   "test",
		Candidates: []Candidate{candidate("p1", "A", 0.9, 100, "a")},
	}

	result := stage.Process(context.Background(), st)
	if result.Status != StageDegraded {
		t.Fatalf("Process() status = %q, want %q", result.Status, StageDegraded)
	}

	failing = false
	result = stage.Process(context.Background(), st)
	if result.Status != StageOK {
		t.Fatalf("Process() after recovery = %q, want %q", result.Status, StageOK)
	}
}
