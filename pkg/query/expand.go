package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/corvid-labs/quill/internal/util"
	"github.com/corvid-labs/quill/pkg/ai"
)

const (
	// maxQuestionChars bounds what is sent to the expansion model.
	maxQuestionChars = 500
	// maxAlternativeChars bounds each returned alternative.
	maxAlternativeChars = 300
	// maxAlternatives caps how many alternate phrasings are kept.
	maxAlternatives = 2

	expandTimeout = 20 * time.Second
)

// QueryExpander asks the model for alternate phrasings of a question to
// improve retrieval recall. Any failure degrades to "no alternatives"; a
// query never aborts because expansion misbehaved.
type QueryExpander struct {
	client ai.ModelClient
	model  string
}

// NewQueryExpander creates an expander using the given model identifier. An
// empty model uses the client default.
func NewQueryExpander(client ai.ModelClient, model string) *QueryExpander {
	return &QueryExpander{client: client, model: model}
}

type expansionReply struct {
	Alternatives []string `json:"alternatives" jsonschema_description:"Up to two alternate phrasings of the question"`
}

// Expand returns 0-2 validated alternate phrasings of the question.
func (e *QueryExpander) Expand(ctx context.Context, question string) ([]string, StageResult) {
	const stage = "query_expansion"

	question = strings.TrimSpace(util.Truncate(question, maxQuestionChars))
	if question == "" {
		return nil, resultSkipped(stage, "empty question")
	}

	prompt := fmt.Sprintf(ai.ExpandPrompt, question)

	var reply expansionReply
	_, err := util.RetryWithContext(ctx, 2, time.Second, func(ctx context.Context) (struct{}, error) {
		rCtx, cancel := context.WithTimeout(ctx, expandTimeout)
		defer cancel()

		opts := []ai.GenerateOption{}
		if e.model != "" {
			opts = append(opts, ai.WithModel(e.model))
		}
		reply = expansionReply{}
		return struct{}{}, e.client.GenerateCompletionWithFormat(
			rCtx,
			"query_expansion",
			"Alternate phrasings of a search question.",
			prompt,
			&reply,
			opts...,
		)
	})
	if err != nil {
		return nil, resultDegraded(stage, err.Error())
	}

	alternatives := validateAlternatives(question, reply.Alternatives)
	if len(alternatives) == 0 {
		return nil, resultOK(stage)
	}
	return alternatives, resultOK(stage)
}

// validateAlternatives treats the model reply as an untrusted string list:
// it enforces count and length bounds and drops empties and duplicates of the
// original question.
func validateAlternatives(question string, raw []string) []string {
	seen := map[string]struct{}{strings.ToLower(question): {}}
	alternatives := make([]string, 0, maxAlternatives)
	for _, alt := range raw {
		if len(alternatives) >= maxAlternatives {
			break
		}
		alt = strings.TrimSpace(util.Truncate(alt, maxAlternativeChars))
		if alt == "" {
			continue
		}
		key := strings.ToLower(alt)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		alternatives = append(alternatives, alt)
	}
	return alternatives
}
