package query

import (
	"context"
	"strings"
	"testing"
)

func passageText(words int) string {
	return strings.TrimSpace(strings.Repeat("word ", words))
}

func TestQualityScore_ShortPassageIsZero(t *testing.T) {
	got := QualityScore("any question", passageText(15), 15)
	if got != 0.0 {
		t.Fatalf("QualityScore() = %v, want 0.0 for a 15-word stub", got)
	}
}

func TestQualityScore_LongPassageClearsThreshold(t *testing.T) {
	got := QualityScore("unrelated question", passageText(250), 250)
	// 250 words saturate the length component at 0.8 even with zero keyword
	// overlap.
	if got < 0.8 {
		t.Fatalf("QualityScore() = %v, want >= 0.8 for a 250-word passage", got)
	}
	if got > 1.0 {
		t.Fatalf("QualityScore() = %v, want <= 1.0", got)
	}
}

func TestQualityScore_KeywordOverlapAddsUpToPointTwo(t *testing.T) {
	content := passageText(30) + " photosynthesis chlorophyll"
	without := QualityScore("what is gravity", content, 32)
	with := QualityScore("what is photosynthesis chlorophyll", content, 32)

	if with <= without {
		t.Fatalf("full keyword overlap should raise the score: with=%v without=%v", with, without)
	}
	if diff := with - without; diff > 0.2001 {
		t.Fatalf("keyword component contributed %v, want <= 0.2", diff)
	}
}

func TestKeywordOverlap_IgnoresStopwords(t *testing.T) {
	// Every question term is a stopword, so there is nothing to match.
	if got := keywordOverlap("what is the and of", "anything at all"); got != 0.0 {
		t.Fatalf("keywordOverlap() = %v, want 0.0 for all-stopword question", got)
	}
}

func TestQualityStage_FiltersBelowThreshold(t *testing.T) {
	st := &State{
		Question: "test question",
		Candidates: []Candidate{
			candidate("p1", "A", 0.9, 250, passageText(250)),
			candidate("p2", "A", 0.8, 10, passageText(10)),
		},
	}

	result := NewQualityStage(0.3).Process(context.Background(), st)

	if result.Status != StageOK {
		t.Fatalf("Process() status = %q, want %q", result.Status, StageOK)
	}
	if len(st.Candidates) != 1 || st.Candidates[0].Passage.ID != "p1" {
		t.Fatalf("Process() kept %+v, want only p1", st.Candidates)
	}
}

func TestQualityStage_EmptyResultTriggersRawContentFallback(t *testing.T) {
	st := &State{
		Question:  "test question",
		Documents: []string{"A"},
		Candidates: []Candidate{
			candidate("p1", "A", 0.9, 5, passageText(5)),
			candidate("p2", "A", 0.8, 10, passageText(10)),
		},
	}

	result := NewQualityStage(0.3).Process(context.Background(), st)

	if result.Status != StageDegraded {
		t.Fatalf("Process() status = %q, want %q", result.Status, StageDegraded)
	}
	if !st.RawContentFallback {
		t.Fatal("Process() should set RawContentFallback when every passage is filtered")
	}
	if len(st.Candidates) != 0 {
		t.Fatalf("Process() left %d candidates, want 0", len(st.Candidates))
	}
	if len(st.Documents) != 1 || st.Documents[0] != "A" {
		t.Fatalf("Process() must preserve selected documents, got %v", st.Documents)
	}
}

func TestQualityStage_FallbackCapturesDocumentsFromCandidates(t *testing.T) {
	// No prior document selection (multi-document expansion disabled): the
	// fallback must derive the evidence set from the candidates before
	// clearing them.
	st := &State{
		Question: "test question",
		Candidates: []Candidate{
			candidate("p1", "A", 0.9, 5, passageText(5)),
			candidate("p2", "B", 0.8, 10, passageText(10)),
		},
	}

	result := NewQualityStage(0.3).Process(context.Background(), st)

	if result.Status != StageDegraded {
		t.Fatalf("Process() status = %q, want %q", result.Status, StageDegraded)
	}
	if !st.RawContentFallback {
		t.Fatal("Process() should set RawContentFallback")
	}
	if len(st.Documents) != 2 || st.Documents[0] != "A" || st.Documents[1] != "B" {
		t.Fatalf("Documents = %v, want [A B] captured from the candidate pool", st.Documents)
	}
}
