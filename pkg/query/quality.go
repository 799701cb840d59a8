package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/corvid-labs/quill/internal/util"
)

const (
	// qualityMinWords is the hard cutoff below which a passage is treated as
	// a stub and always excluded.
	qualityMinWords = 20

	// DefaultQualityThreshold is the minimum quality score for a passage to
	// contribute to synthesis context.
	DefaultQualityThreshold = 0.3
)

// stopwords excluded from keyword-overlap scoring. Intentionally small: only
// words so common their presence in a passage says nothing about relevance.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true,
	"has": true, "have": true, "how": true, "in": true, "is": true,
	"it": true, "its": true, "of": true, "on": true, "or": true,
	"that": true, "the": true, "to": true, "was": true, "were": true,
	"what": true, "when": true, "where": true, "which": true, "who": true,
	"why": true, "will": true, "with": true,
}

// QualityScore rates a passage's worth as synthesis evidence in [0,1].
// Length dominates (up to 0.8), keyword overlap with the question adds up to
// 0.2. Passages under the word-count floor score zero unconditionally.
func QualityScore(question, content string, wordCount int) float64 {
	if wordCount < qualityMinWords {
		return 0.0
	}

	lengthScore := 0.2 + float64(wordCount)/200.0*0.6
	if lengthScore > 0.8 {
		lengthScore = 0.8
	}

	keywordScore := keywordOverlap(question, content) * 0.2
	if keywordScore > 0.2 {
		keywordScore = 0.2
	}

	score := lengthScore + keywordScore
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// keywordOverlap returns the fraction of the question's distinct non-stopword
// terms that appear in the content.
func keywordOverlap(question, content string) float64 {
	terms := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(question)) {
		w = strings.Trim(w, ".,;:!?\"'()[]")
		if w == "" || stopwords[w] {
			continue
		}
		terms[w] = true
	}
	if len(terms) == 0 {
		return 0.0
	}

	lowered := strings.ToLower(content)
	matched := 0
	for term := range terms {
		if strings.Contains(lowered, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

// QualityStage filters the candidate pool down to passages worth feeding the
// synthesizer. If filtering would leave nothing at all, it keeps the selected
// documents and flags the state to synthesize from raw document content
// instead, so a graph of short passages still yields a grounded answer.
type QualityStage struct {
	threshold float64
}

// NewQualityStage creates the stage. Thresholds outside (0,1] use the
// default.
func NewQualityStage(threshold float64) *QualityStage {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultQualityThreshold
	}
	return &QualityStage{threshold: threshold}
}

func (s *QualityStage) Name() string { return "quality_filter" }

func (s *QualityStage) Process(ctx context.Context, st *State) StageResult {
	if len(st.Candidates) == 0 {
		return resultSkipped(s.Name(), "no candidates")
	}

	kept := make([]Candidate, 0, len(st.Candidates))
	for _, c := range st.Candidates {
		wc := c.Passage.WordCount
		if wc == 0 {
			wc = util.WordCount(c.Passage.Content)
		}
		if QualityScore(st.Question, c.Passage.Content, wc) >= s.threshold {
			kept = append(kept, c)
		}
	}

	if len(kept) == 0 {
		// Synthesis falls back to the selected documents' raw content. With
		// no earlier selection, the candidates' documents are the evidence
		// set and must be captured before the pool is cleared.
		if len(st.Documents) == 0 {
			st.Documents = st.DocumentOrder()
		}
		st.RawContentFallback = true
		st.Candidates = nil
		return resultDegraded(s.Name(), "all passages below quality threshold")
	}

	dropped := len(st.Candidates) - len(kept)
	st.Candidates = kept
	if dropped > 0 {
		return StageResult{Stage: s.Name(), Status: StageOK, Reason: fmt.Sprintf("dropped %d low-quality passages", dropped)}
	}
	return resultOK(s.Name())
}
