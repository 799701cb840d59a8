package query

import (
	"context"

	"github.com/corvid-labs/quill/pkg/graph"
)

// QueryType tags how a response was produced.
type QueryType string

const (
	// QueryTypeVectorSearch means retrieval cleared the confidence gate and
	// the answer is grounded in graph evidence.
	QueryTypeVectorSearch QueryType = "vector_search"
	// QueryTypeConfidenceGatedFallback means retrieval returned results below
	// the confidence threshold and the answer was generated without evidence.
	QueryTypeConfidenceGatedFallback QueryType = "confidence_gated_fallback"
	// QueryTypeVectorFallback means retrieval returned nothing at all.
	QueryTypeVectorFallback QueryType = "vector_fallback"
)

// TokenUsage counts model usage. The pipeline accumulates these for its
// lifetime; responses carry the cumulative counters plus a per-query delta.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	APICalls     int `json:"api_calls"`
}

// Add merges another usage sample into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.APICalls += other.APICalls
}

// Response is the result of one pipeline query. It is always well-formed:
// runtime failures degrade the answer but never surface as errors.
type Response struct {
	Answer     string     `json:"answer"`
	Sources    []string   `json:"sources"`
	Entities   []string   `json:"entities"`
	Facts      []string   `json:"facts"`
	QueryType  QueryType  `json:"query_type"`
	TokenUsage TokenUsage `json:"token_usage"`
	QueryUsage TokenUsage `json:"query_usage"`

	Stages []StageResult `json:"stages,omitempty"`
}

// Candidate is a retrieved passage moving through the ranking stages.
type Candidate struct {
	Passage    graph.Passage `json:"passage"`
	Similarity float64       `json:"similarity"`

	// CEScore is set by the cross-encoder stage; nil when the stage is
	// disabled or in passthrough mode.
	CEScore *float64 `json:"ce_score,omitempty"`

	// Authority and Combined are set by the authority reranker and preserved
	// for observability.
	Authority float64 `json:"authority,omitempty"`
	Combined  float64 `json:"combined,omitempty"`
}

// QueryClient answers natural-language questions from a knowledge graph.
type QueryClient interface {
	Query(ctx context.Context, question string) *Response
}
