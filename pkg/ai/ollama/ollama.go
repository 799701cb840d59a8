package ollama

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/corvid-labs/quill/pkg/ai"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

const defaultMaxConcurrentRequests = 2

// Client implements ai.ModelClient against a locally-hosted Ollama server.
type Client struct {
	embeddingModel string
	chatModel      string
	embeddingDim   int

	reqLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	Client *api.Client
}

// NewClientParams contains configuration options for creating a new Client.
type NewClientParams struct {
	EmbeddingModel string
	ChatModel      string
	EmbeddingDim   int

	BaseURL string
	ApiKey  string

	MaxConcurrentRequests int64
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewClient connects to the Ollama server at BaseURL (or the default when
// empty) and uses the configured models for embeddings and chat.
func NewClient(params NewClientParams) (*Client, error) {
	var (
		u   *url.URL
		err error
	)
	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	}

	httpClient := http.DefaultClient
	if params.ApiKey != "" {
		httpClient = &http.Client{
			Transport: &headerTransport{
				headers: map[string]string{
					"Authorization": "Bearer " + params.ApiKey,
				},
				rt: http.DefaultTransport,
			},
		}
	}

	maxConcurrent := params.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrentRequests
	}

	var apiClient *api.Client
	if u != nil {
		apiClient = api.NewClient(u, httpClient)
	} else {
		apiClient, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, err
		}
	}

	return &Client{
		embeddingModel: params.EmbeddingModel,
		chatModel:      params.ChatModel,
		embeddingDim:   params.EmbeddingDim,
		reqLock:        semaphore.NewWeighted(maxConcurrent),
		Client:         apiClient,
	}, nil
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
