package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/corvid-labs/quill/internal/util"
	"github.com/corvid-labs/quill/pkg/ai"
	"github.com/corvid-labs/quill/pkg/logger"
	"github.com/corvid-labs/quill/pkg/store"
)

const (
	// DefaultDocumentCharBudget caps each document's contribution to the
	// synthesis prompt.
	DefaultDocumentCharBudget = 3000

	// DefaultSynthesisMaxTokens bounds the answer length.
	DefaultSynthesisMaxTokens = 1024

	synthesisTimeout = 90 * time.Second

	apologeticAnswer = "I am sorry, I was unable to generate an answer to this question. Please try again."
)

// synthesisReply mirrors the structured output contract of the synthesis
// prompt.
type synthesisReply struct {
	Answer   string   `json:"answer" jsonschema_description:"The answer to the question, grounded in the provided excerpts"`
	Sources  []string `json:"sources" jsonschema_description:"Exact titles of the documents the answer relies on"`
	Entities []string `json:"entities" jsonschema_description:"Named entities appearing in the answer"`
	Facts    []string `json:"facts" jsonschema_description:"Individual facts the answer is built from"`
}

// Synthesizer turns a ranked evidence set, or no evidence at all, into the
// final answer. It is not a Stage: the pipeline invokes it directly on
// whichever path the confidence gate chose.
type Synthesizer struct {
	client     ai.ModelClient
	store      store.GraphStore
	model      string
	charBudget int
	maxTokens  int
	tracer     Tracer
}

// NewSynthesizer creates the synthesizer. Non-positive budgets use the
// defaults.
func NewSynthesizer(client ai.ModelClient, s store.GraphStore, model string, charBudget, maxTokens int, tracer Tracer) *Synthesizer {
	if charBudget <= 0 {
		charBudget = DefaultDocumentCharBudget
	}
	if maxTokens <= 0 {
		maxTokens = DefaultSynthesisMaxTokens
	}
	return &Synthesizer{
		client:     client,
		store:      s,
		model:      model,
		charBudget: charBudget,
		maxTokens:  maxTokens,
		tracer:     tracer,
	}
}

// Synthesize produces the grounded answer for the evidence path. Model
// failures degrade to an apologetic answer instead of an error.
func (s *Synthesizer) Synthesize(ctx context.Context, st *State) (answer string, sources, entities, facts []string) {
	contextBlock := s.buildContext(ctx, st)

	prompt := st.Question
	systemPrompt := fmt.Sprintf(ai.SynthesisPrompt, contextBlock)
	if st.FewShotPreamble != "" {
		systemPrompt = st.FewShotPreamble + "\n" + systemPrompt
	}

	sctx, cancel := context.WithTimeout(ctx, synthesisTimeout)
	defer cancel()

	opts := []ai.GenerateOption{
		ai.WithSystemPrompts(systemPrompt),
		ai.WithMaxTokens(s.maxTokens),
	}
	if s.model != "" {
		opts = append(opts, ai.WithModel(s.model))
	}

	var reply synthesisReply
	err := s.client.GenerateCompletionWithFormat(
		sctx,
		"synthesis",
		"Answer with sources, entities and facts",
		prompt,
		&reply,
		opts...,
	)
	if err != nil {
		logger.Warn("structured synthesis failed, retrying as plain text", "error", err)
		plain, perr := s.client.GenerateCompletion(sctx, prompt, opts...)
		if perr != nil || strings.TrimSpace(plain) == "" {
			logger.Error("synthesis failed", "error", perr)
			return apologeticAnswer, nil, nil, nil
		}
		return plain, st.Documents, nil, nil
	}

	if strings.TrimSpace(reply.Answer) == "" {
		return apologeticAnswer, nil, nil, nil
	}

	sources = filterToSelected(reply.Sources, st.Documents)
	recordUsedDocuments(s.tracer, sources...)
	return reply.Answer, sources, reply.Entities, reply.Facts
}

// SynthesizeFallback answers without retrieved evidence, from the model's own
// knowledge.
func (s *Synthesizer) SynthesizeFallback(ctx context.Context, question string) string {
	sctx, cancel := context.WithTimeout(ctx, synthesisTimeout)
	defer cancel()

	opts := []ai.GenerateOption{ai.WithMaxTokens(s.maxTokens)}
	if s.model != "" {
		opts = append(opts, ai.WithModel(s.model))
	}
	answer, err := s.client.GenerateCompletion(
		sctx,
		fmt.Sprintf(ai.FallbackPrompt, question),
		opts...,
	)
	if err != nil || strings.TrimSpace(answer) == "" {
		logger.Error("fallback synthesis failed", "error", err)
		return apologeticAnswer
	}
	return answer
}

// buildContext assembles the per-document evidence block. Each document gets
// its passages concatenated in rank order, truncated to the character budget.
// With the raw-content fallback set, the documents' stored full text is used
// instead.
func (s *Synthesizer) buildContext(ctx context.Context, st *State) string {
	titles := st.Documents
	if len(titles) == 0 {
		titles = st.DocumentOrder()
	}

	perDocument := make(map[string]string, len(titles))
	if st.RawContentFallback {
		content, err := s.store.DocumentContent(ctx, titles)
		if err != nil {
			logger.Warn("raw content lookup failed", "error", err)
		}
		for title, text := range content {
			perDocument[title] = text
		}
	} else {
		for _, c := range st.Candidates {
			title := c.Passage.DocumentTitle
			if perDocument[title] == "" {
				perDocument[title] = c.Passage.Content
			} else {
				perDocument[title] += "\n\n" + c.Passage.Content
			}
		}
	}

	var b strings.Builder
	for _, title := range titles {
		text := strings.TrimSpace(perDocument[title])
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "=== Document: %s ===\n%s\n\n", title, util.Truncate(text, s.charBudget))
	}
	return b.String()
}

// filterToSelected keeps only reported sources that are actually among the
// selected documents, preserving the model's order.
func filterToSelected(reported, selected []string) []string {
	if len(reported) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(selected))
	for _, title := range selected {
		allowed[title] = true
	}
	kept := make([]string, 0, len(reported))
	seen := make(map[string]bool, len(reported))
	for _, title := range reported {
		if !allowed[title] || seen[title] {
			continue
		}
		seen[title] = true
		kept = append(kept, title)
	}
	return kept
}
