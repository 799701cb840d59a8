package query

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestValidateAlternatives(t *testing.T) {
	tests := []struct {
		name     string
		question string
		raw      []string
		want     []string
	}{
		{
			name:     "drops empties and whitespace",
			question: "original",
			raw:      []string{"", "   ", "first"},
			want:     []string{"first"},
		},
		{
			name:     "drops duplicates of the question case-insensitively",
			question: "What is GraphRAG?",
			raw:      []string{"what is graphrag?", "how does GraphRAG work?"},
			want:     []string{"how does GraphRAG work?"},
		},
		{
			name:     "drops duplicate alternatives",
			question: "original",
			raw:      []string{"variant", "Variant", "other"},
			want:     []string{"variant", "other"},
		},
		{
			name:     "caps the count",
			question: "original",
			raw:      []string{"one", "two", "three"},
			want:     []string{"one", "two"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := validateAlternatives(tt.question, tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("validateAlternatives() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("validateAlternatives() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestValidateAlternatives_TruncatesLongAlternatives(t *testing.T) {
	long := strings.Repeat("x", 400)
	got := validateAlternatives("original", []string{long})
	if len(got) != 1 {
		t.Fatalf("validateAlternatives() = %v, want one alternative", got)
	}
	if len(got[0]) != maxAlternativeChars {
		t.Fatalf("alternative length = %d, want %d", len(got[0]), maxAlternativeChars)
	}
}

func TestQueryExpander_Expand(t *testing.T) {
	client := &stubModelClient{formatFn: func(name, prompt string) (string, error) {
		return `{"alternatives": ["alt one", "alt two"]}`, nil
	}}

	alternatives, result := NewQueryExpander(client, "").Expand(context.Background(), "test question")
	if result.Status != StageOK {
		t.Fatalf("Expand() status = %q, want %q", result.Status, StageOK)
	}
	if len(alternatives) != 2 {
		t.Fatalf("Expand() = %v, want two alternatives", alternatives)
	}
}

func TestQueryExpander_FailureDegradesToNoAlternatives(t *testing.T) {
	client := &stubModelClient{formatFn: func(name, prompt string) (string, error) {
		return "", errors.New("model overloaded")
	}}

	alternatives, result := NewQueryExpander(client, "").Expand(context.Background(), "test question")
	if result.Status != StageDegraded {
		t.Fatalf("Expand() status = %q, want %q", result.Status, StageDegraded)
	}
	if alternatives != nil {
		t.Fatalf("Expand() = %v, want no alternatives on failure", alternatives)
	}
}

func TestQueryExpander_EmptyQuestionSkips(t *testing.T) {
	client := &stubModelClient{}
	_, result := NewQueryExpander(client, "").Expand(context.Background(), "   ")
	if result.Status != StageSkipped {
		t.Fatalf("Expand() status = %q, want %q", result.Status, StageSkipped)
	}
}
