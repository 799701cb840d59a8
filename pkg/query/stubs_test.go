package query

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/corvid-labs/quill/pkg/ai"
	"github.com/corvid-labs/quill/pkg/graph"
)

// stubDefaultChatModel stands in for the chat model a real client falls back
// to when no option overrides it.
const stubDefaultChatModel = "chat-default"

// stubModelClient is a hook-based ai.ModelClient for tests. Every call
// increments the usage metrics so accounting can be asserted, and the
// options of the last completion call are kept for inspection.
type stubModelClient struct {
	mu          sync.Mutex
	metrics     ai.ModelMetrics
	lastOptions ai.GenerateOptions

	embedFn    func(text string) ([]float32, error)
	completeFn func(prompt string) (string, error)
	formatFn   func(name, prompt string) (string, error)
}

// applyOptions resolves the generate options the way the real clients do:
// start from the client's configured chat model, then apply overrides.
func (s *stubModelClient) applyOptions(opts []ai.GenerateOption) ai.GenerateOptions {
	options := ai.GenerateOptions{Model: stubDefaultChatModel}
	for _, o := range opts {
		o(&options)
	}
	s.mu.Lock()
	s.lastOptions = options
	s.mu.Unlock()
	return options
}

func (s *stubModelClient) effectiveModel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastOptions.Model
}

func (s *stubModelClient) count(input, output int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.Add(ai.ModelMetrics{
		InputTokens:  input,
		OutputTokens: output,
		TotalTokens:  input + output,
		APICalls:     1,
	})
}

func (s *stubModelClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	s.count(1, 0)
	if s.embedFn == nil {
		return []float32{1, 0, 0}, nil
	}
	return s.embedFn(string(input))
}

func (s *stubModelClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	s.count(10, 5)
	s.applyOptions(opts)
	if s.completeFn == nil {
		return "stub answer", nil
	}
	return s.completeFn(prompt)
}

func (s *stubModelClient) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	s.count(10, 5)
	s.applyOptions(opts)
	if s.formatFn == nil {
		return errors.New("no format hook configured")
	}
	raw, err := s.formatFn(name, prompt)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), out)
}

func (s *stubModelClient) ResetMetrics() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = ai.ModelMetrics{}
}

func (s *stubModelClient) GetMetrics() ai.ModelMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

// stubScorer is a hook-based ai.RelevanceScorer.
type stubScorer struct {
	loadErr error
	scoreFn func(query, text string) (float64, error)
}

func (s *stubScorer) Load(ctx context.Context) error { return s.loadErr }

func (s *stubScorer) Score(ctx context.Context, query string, text string) (float64, error) {
	if s.scoreFn == nil {
		return 0.5, nil
	}
	return s.scoreFn(query, text)
}

func candidate(id, documentTitle string, similarity float64, wordCount int, content string) Candidate {
	return Candidate{
		Passage: graph.Passage{
			ID:            id,
			Title:         id,
			Content:       content,
			WordCount:     wordCount,
			DocumentTitle: documentTitle,
		},
		Similarity: similarity,
	}
}
