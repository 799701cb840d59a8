package query

// DefaultConfidenceThreshold is the similarity below which retrieved
// evidence is considered too weak to ground an answer.
const DefaultConfidenceThreshold = 0.5

// ConfidenceGate decides whether first-stage retrieval results are strong
// enough to ground synthesis, or whether the model should answer from its own
// knowledge. Low-relevance evidence corrupts answers the model could have
// given correctly on its own.
type ConfidenceGate struct {
	Threshold float64
}

// NewConfidenceGate creates a gate with the given threshold. Valid thresholds
// are in (0,1]; zero is reserved for the default, so gating cannot be fully
// disabled — a near-zero threshold approximates that.
func NewConfidenceGate(threshold float64) *ConfidenceGate {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultConfidenceThreshold
	}
	return &ConfidenceGate{Threshold: threshold}
}

// Evaluate maps the retrieval outcome to a query type. Zero candidates mean
// vector fallback; a best similarity below the threshold means confidence
// gated fallback; otherwise the evidence path proceeds.
func (g *ConfidenceGate) Evaluate(candidates []Candidate) QueryType {
	if len(candidates) == 0 {
		return QueryTypeVectorFallback
	}

	best := candidates[0].Similarity
	for _, c := range candidates[1:] {
		if c.Similarity > best {
			best = c.Similarity
		}
	}

	if best < g.Threshold {
		return QueryTypeConfidenceGatedFallback
	}
	return QueryTypeVectorSearch
}
