package query

import "testing"

func TestConfidenceGate_Evaluate(t *testing.T) {
	tests := []struct {
		name       string
		threshold  float64
		candidates []Candidate
		want       QueryType
	}{
		{
			name:      "no candidates",
			threshold: 0.5,
			want:      QueryTypeVectorFallback,
		},
		{
			name:      "best below threshold",
			threshold: 0.5,
			candidates: []Candidate{
				candidate("p1", "A", 0.49, 100, ""),
				candidate("p2", "B", 0.30, 100, ""),
			},
			want: QueryTypeConfidenceGatedFallback,
		},
		{
			name:      "best exactly at threshold",
			threshold: 0.5,
			candidates: []Candidate{
				candidate("p1", "A", 0.5, 100, ""),
			},
			want: QueryTypeVectorSearch,
		},
		{
			name:      "best above threshold buried in the pool",
			threshold: 0.5,
			candidates: []Candidate{
				candidate("p1", "A", 0.2, 100, ""),
				candidate("p2", "B", 0.9, 100, ""),
			},
			want: QueryTypeVectorSearch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewConfidenceGate(tt.threshold).Evaluate(tt.candidates)
			if got != tt.want {
				t.Fatalf("Evaluate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewConfidenceGate_InvalidThresholdUsesDefault(t *testing.T) {
	// Zero is reserved for the default.
	for _, threshold := range []float64{-0.1, 0, 1.5} {
		g := NewConfidenceGate(threshold)
		if g.Threshold != DefaultConfidenceThreshold {
			t.Fatalf("NewConfidenceGate(%v).Threshold = %v, want %v", threshold, g.Threshold, DefaultConfidenceThreshold)
		}
	}
}
