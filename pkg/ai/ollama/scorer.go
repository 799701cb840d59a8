package ollama

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/corvid-labs/quill/pkg/ai"

	"github.com/ollama/ollama/api"
)

// Scorer implements ai.RelevanceScorer on a locally-hosted Ollama model. The
// model judges each (question, passage) pair with a pointwise scoring prompt.
type Scorer struct {
	model  string
	client *api.Client

	loadOnce sync.Once
	loadErr  error
}

// NewScorer creates a Scorer for the given model on an existing Client.
func NewScorer(client *Client, model string) *Scorer {
	return &Scorer{
		model:  model,
		client: client.Client,
	}
}

// Load verifies the scoring model is present on the server. The result is
// cached: once Load fails, the scorer stays unavailable for the process
// lifetime.
func (s *Scorer) Load(ctx context.Context) error {
	s.loadOnce.Do(func() {
		_, err := s.client.Show(ctx, &api.ShowRequest{Model: s.model})
		if err != nil {
			s.loadErr = fmt.Errorf("relevance model %q unavailable: %w", s.model, err)
		}
	})
	return s.loadErr
}

// Score rates the passage's relevance for the query on [0,1].
func (s *Scorer) Score(ctx context.Context, query string, text string) (float64, error) {
	if err := s.Load(ctx); err != nil {
		return 0, err
	}

	stream := false
	req := &api.GenerateRequest{
		Model:   s.model,
		Prompt:  fmt.Sprintf(ai.RelevancePrompt, query, text),
		Stream:  &stream,
		Options: map[string]any{"temperature": 0.0},
	}

	var raw strings.Builder
	if err := s.client.Generate(ctx, req, func(gr api.GenerateResponse) error {
		raw.WriteString(gr.Response)
		return nil
	}); err != nil {
		return 0, err
	}

	return parseRelevanceReply(raw.String())
}

// parseRelevanceReply extracts a 0-100 rating from model output and maps it
// to [0,1]. The reply is untrusted text; anything without a leading number is
// an error.
func parseRelevanceReply(reply string) (float64, error) {
	reply = strings.TrimSpace(reply)
	fields := strings.FieldsFunc(reply, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	if len(fields) == 0 {
		return 0, fmt.Errorf("no numeric rating in reply %q", reply)
	}
	value, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid rating %q: %w", fields[0], err)
	}
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	return value / 100.0, nil
}
