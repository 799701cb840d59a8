package ai

import "context"

// GenerateOptions holds configuration for model generation requests.
type GenerateOptions struct {
	Model         string   // Model identifier to use for generation
	SystemPrompts []string // System prompts prepended to the request
	Temperature   float64  // Sampling temperature (0.0-2.0)
	MaxTokens     int      // Upper bound on generated tokens; 0 means provider default
}

// GenerateOption is a functional option for configuring generation requests.
type GenerateOption func(*GenerateOptions)

// WithModel returns a GenerateOption that sets the model to use.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Model = model
	}
}

// WithSystemPrompts returns a GenerateOption that sets the system prompts
// prepended to the request.
func WithSystemPrompts(prompts ...string) GenerateOption {
	return func(o *GenerateOptions) {
		o.SystemPrompts = prompts
	}
}

// WithTemperature returns a GenerateOption that sets the sampling temperature.
func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = temp
	}
}

// WithMaxTokens returns a GenerateOption that bounds the output token budget.
func WithMaxTokens(tokens int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = tokens
	}
}

// ModelMetrics contains cumulative usage from model operations.
type ModelMetrics struct {
	InputTokens  int   `json:"input_tokens"`
	OutputTokens int   `json:"output_tokens"`
	TotalTokens  int   `json:"total_tokens"`
	APICalls     int   `json:"api_calls"`
	DurationMs   int64 `json:"duration_ms"`
}

// Add merges another metrics sample into m.
func (m *ModelMetrics) Add(other ModelMetrics) {
	m.InputTokens += other.InputTokens
	m.OutputTokens += other.OutputTokens
	m.TotalTokens += other.TotalTokens
	m.APICalls += other.APICalls
	m.DurationMs += other.DurationMs
}

// ModelClient is the interface to the embedding and chat models behind the
// query pipeline. Implementations accumulate usage metrics across calls.
type ModelClient interface {
	// GenerateEmbedding creates a vector embedding for the input text,
	// deterministic for a fixed model version.
	GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error)

	// GenerateCompletion sends a single-turn prompt to the chat model and
	// returns the generated text.
	GenerateCompletion(ctx context.Context, prompt string, opts ...GenerateOption) (string, error)

	// GenerateCompletionWithFormat enforces a JSON schema derived from out and
	// unmarshals the response into it.
	GenerateCompletionWithFormat(
		ctx context.Context,
		name string,
		description string,
		prompt string,
		out any,
		opts ...GenerateOption,
	) error

	ResetMetrics()
	GetMetrics() ModelMetrics
}

// RelevanceScorer scores a (query, document) pair jointly with a local model.
// Load reports whether the underlying model is available; a failed Load means
// the scorer cannot be used for the lifetime of the process.
type RelevanceScorer interface {
	Load(ctx context.Context) error
	Score(ctx context.Context, query string, text string) (float64, error)
}
