package query

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/corvid-labs/quill/pkg/ai"
	"github.com/corvid-labs/quill/pkg/graph"
	"github.com/corvid-labs/quill/pkg/logger"
	"github.com/corvid-labs/quill/pkg/store"

	"github.com/go-playground/validator"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Params configures a Pipeline at construction time. Optional stages are
// enabled by providing their collaborator or flag; per-query behavior is not
// reconfigurable afterwards.
type Params struct {
	Store  store.GraphStore `validate:"required"`
	Client ai.ModelClient   `validate:"required"`

	// Scorer enables cross-encoder reranking when non-nil.
	Scorer ai.RelevanceScorer

	// ExpandQueries enables LLM query expansion before retrieval.
	ExpandQueries bool

	// UseAuthority enables graph-authority reranking.
	UseAuthority bool

	// UseMultiDocument enables evidence expansion across linked documents.
	UseMultiDocument bool

	// Exemplars enables few-shot prompting when non-empty. Exemplars without
	// a pre-computed embedding are embedded at construction.
	Exemplars []graph.Exemplar

	// SynthesisModel is passed to the model client for answer generation.
	// Empty means the client default.
	SynthesisModel string

	// ExpansionModel is the model used for query expansion. Empty means the
	// client default.
	ExpansionModel string

	// ConfidenceThreshold below which evidence is discarded. Zero means the
	// default.
	ConfidenceThreshold float64

	// MaxResults is the retrieval K, clamped to the supported range.
	MaxResults int

	// AuthorityCacheTTL bounds centrality staleness. Zero means the default.
	AuthorityCacheTTL time.Duration

	// Tracer receives per-query observability events. Optional.
	Tracer Tracer
}

// Pipeline answers questions from a knowledge graph through a fixed sequence
// of retrieval and ranking stages. It is safe for concurrent use; the only
// shared mutable state is the authority cache and the usage counters, both
// internally synchronized.
type Pipeline struct {
	store       store.GraphStore
	client      ai.ModelClient
	gate        *ConfidenceGate
	expander    *QueryExpander
	retriever   *Retriever
	stages      []Stage
	synthesizer *Synthesizer
	authority   *AuthorityCache
	tracer      Tracer

	maxResults  int
	widenFactor int

	mu    sync.Mutex
	usage TokenUsage
}

var paramsValidator = validator.New()

// New builds the pipeline and fails fast on an unusable configuration: an
// unreachable store or a broken embedding model surface here, not on the
// first query.
func New(ctx context.Context, params Params) (*Pipeline, error) {
	if err := paramsValidator.Struct(params); err != nil {
		return nil, fmt.Errorf("invalid pipeline params: %w", err)
	}

	stats, err := params.Store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("graph store unreachable: %w", err)
	}
	logger.Info("graph store connected",
		"documents", stats.Documents,
		"passages", stats.Passages,
		"edges", stats.Edges,
	)

	exemplars, err := embedExemplars(ctx, params.Client, params.Exemplars)
	if err != nil {
		return nil, fmt.Errorf("embedding exemplars: %w", err)
	}

	p := &Pipeline{
		store:       params.Store,
		client:      params.Client,
		gate:        NewConfidenceGate(params.ConfidenceThreshold),
		retriever:   NewRetriever(params.Store, params.Client),
		tracer:      params.Tracer,
		maxResults:  ClampResultCount(params.MaxResults),
		widenFactor: 1,
	}

	if params.ExpandQueries {
		p.expander = NewQueryExpander(params.Client, params.ExpansionModel)
	}
	if params.Scorer != nil {
		p.stages = append(p.stages, NewCrossEncoderStage(params.Scorer, p.maxResults))
		p.widenFactor = 2
	}
	if params.UseAuthority {
		p.authority = NewAuthorityCache(params.Store, params.AuthorityCacheTTL)
		p.stages = append(p.stages, NewAuthorityStage(p.authority, DefaultAuthorityWeight))
	}
	if params.UseMultiDocument {
		p.stages = append(p.stages, NewMultiDocStage(params.Store, DefaultNeighborCount, DefaultDocumentCap, params.Tracer))
	}
	p.stages = append(p.stages, NewQualityStage(DefaultQualityThreshold))
	if len(exemplars) > 0 {
		p.stages = append(p.stages, NewFewShotStage(exemplars, DefaultExemplarCount))
	}

	p.synthesizer = NewSynthesizer(
		params.Client,
		params.Store,
		params.SynthesisModel,
		DefaultDocumentCharBudget,
		DefaultSynthesisMaxTokens,
		params.Tracer,
	)

	return p, nil
}

// Query answers a question. It never returns an error: every runtime failure
// degrades to a weaker but valid response, with the degradation recorded in
// the stage results.
func (p *Pipeline) Query(ctx context.Context, question string) *Response {
	queryID := gonanoid.Must(8)
	started := time.Now()
	before := p.client.GetMetrics()

	resp := p.run(ctx, queryID, question)

	after := p.client.GetMetrics()
	resp.QueryUsage = TokenUsage{
		InputTokens:  after.InputTokens - before.InputTokens,
		OutputTokens: after.OutputTokens - before.OutputTokens,
		APICalls:     after.APICalls - before.APICalls,
	}

	p.mu.Lock()
	p.usage.Add(resp.QueryUsage)
	resp.TokenUsage = p.usage
	p.mu.Unlock()

	logger.Info("query answered",
		"query_id", queryID,
		"query_type", resp.QueryType,
		"sources", len(resp.Sources),
		"api_calls", resp.QueryUsage.APICalls,
		"duration", time.Since(started).Round(time.Millisecond),
	)
	return resp
}

func (p *Pipeline) run(ctx context.Context, queryID, question string) *Response {
	resp := &Response{
		Sources:  []string{},
		Entities: []string{},
		Facts:    []string{},
	}
	record := func(result StageResult) {
		resp.Stages = append(resp.Stages, result)
		recordStageResult(p.tracer, result)
	}

	variants := []string{question}
	if p.expander != nil {
		alternatives, result := p.expander.Expand(ctx, question)
		record(result)
		variants = append(variants, alternatives...)
	}

	candidates, embedding, err := p.retriever.Retrieve(ctx, variants, p.maxResults, p.widenFactor)
	if err != nil {
		logger.Warn("retrieval failed", "query_id", queryID, "error", err)
		record(resultDegraded("retrieval", err.Error()))
		candidates = nil
	} else {
		record(resultOK("retrieval"))
	}

	resp.QueryType = p.gate.Evaluate(candidates)
	if resp.QueryType != QueryTypeVectorSearch {
		resp.Answer = p.synthesizer.SynthesizeFallback(ctx, question)
		return resp
	}

	st := &State{
		Question:   question,
		Embedding:  embedding,
		Candidates: candidates,
	}
	for _, stage := range p.stages {
		record(stage.Process(ctx, st))
	}
	if len(st.Documents) == 0 {
		st.Documents = st.DocumentOrder()
	}

	answer, sources, entities, facts := p.synthesizer.Synthesize(ctx, st)
	resp.Answer = answer
	if sources != nil {
		resp.Sources = sources
	}
	if entities != nil {
		resp.Entities = entities
	}
	if facts != nil {
		resp.Facts = facts
	}
	return resp
}

// Usage returns the cumulative model usage across the pipeline's lifetime.
func (p *Pipeline) Usage() TokenUsage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.usage
}

// Stats reports the current shape of the underlying graph.
func (p *Pipeline) Stats(ctx context.Context) (graph.Stats, error) {
	return p.store.Stats(ctx)
}

// InvalidateAuthorityCache drops cached centrality scores, forcing the next
// query to recompute them. A no-op when authority reranking is disabled.
func (p *Pipeline) InvalidateAuthorityCache() {
	if p.authority != nil {
		p.authority.Invalidate()
	}
}

// embedExemplars fills in missing exemplar embeddings so few-shot selection
// can run vector comparisons per query without further model calls.
func embedExemplars(ctx context.Context, client ai.ModelClient, exemplars []graph.Exemplar) ([]graph.Exemplar, error) {
	if len(exemplars) == 0 {
		return nil, nil
	}
	out := make([]graph.Exemplar, len(exemplars))
	copy(out, exemplars)
	for i := range out {
		if len(out[i].Embedding) > 0 {
			continue
		}
		embedding, err := client.GenerateEmbedding(ctx, []byte(out[i].Question))
		if err != nil {
			return nil, fmt.Errorf("exemplar %q: %w", out[i].Question, err)
		}
		out[i].Embedding = embedding
	}
	return out, nil
}
