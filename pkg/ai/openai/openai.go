package openai

import (
	"sync"
	"time"

	"github.com/corvid-labs/quill/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const defaultRequestTimeout = 2 * time.Minute

// Client implements ai.ModelClient against OpenAI-compatible APIs. Separate
// underlying clients are kept for embeddings and chat so both can point at
// different endpoints.
type Client struct {
	embeddingModel string
	chatModel      string
	embeddingDim   int
	timeout        time.Duration

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient      *openai.Client
	EmbeddingClient *openai.Client
}

// NewClientParams configures a new Client. ChatURL/EmbeddingURL may be empty
// for the default OpenAI endpoint.
type NewClientParams struct {
	EmbeddingModel string
	ChatModel      string
	EmbeddingDim   int

	EmbeddingURL string
	EmbeddingKey string
	ChatURL      string
	ChatKey      string

	RequestTimeout time.Duration
}

// NewClient creates a Client from the given parameters.
func NewClient(params NewClientParams) *Client {
	timeout := params.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return &Client{
		embeddingModel:  params.EmbeddingModel,
		chatModel:       params.ChatModel,
		embeddingDim:    params.EmbeddingDim,
		timeout:         timeout,
		ChatClient:      newOpenaiClient(params.ChatURL, params.ChatKey),
		EmbeddingClient: newOpenaiClient(params.EmbeddingURL, params.EmbeddingKey),
	}
}

func newOpenaiClient(baseURL string, apiKey string) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)
	return &client
}

func (c *Client) modifyMetrics(delta ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics.Add(delta)
}

// GetMetrics returns the cumulative usage recorded by this client.
func (c *Client) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}

// ResetMetrics clears the cumulative usage counters.
func (c *Client) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics = ai.ModelMetrics{}
}
