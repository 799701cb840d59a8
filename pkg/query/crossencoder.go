package query

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/corvid-labs/quill/pkg/ai"
	"github.com/corvid-labs/quill/pkg/logger"
)

const scoreTimeout = 30 * time.Second

// CrossEncoderStage reorders candidates by jointly scoring each (question,
// passage) pair with a local relevance model, then truncates to topK.
//
// If the model cannot be loaded, the stage becomes a permanent passthrough
// for the remaining lifetime of the pipeline: input is returned unchanged,
// unscored and untruncated, and the degradation is logged once.
type CrossEncoderStage struct {
	scorer ai.RelevanceScorer
	topK   int

	mu          sync.Mutex
	passthrough bool
	logged      bool
}

// NewCrossEncoderStage creates the stage with the given result cap.
func NewCrossEncoderStage(scorer ai.RelevanceScorer, topK int) *CrossEncoderStage {
	return &CrossEncoderStage{scorer: scorer, topK: ClampResultCount(topK)}
}

func (s *CrossEncoderStage) Name() string { return "cross_encoder" }

// Process scores and reorders st.Candidates. Scoring failures on individual
// pairs degrade the whole stage to passthrough for this query; a load
// failure flips the permanent passthrough switch.
func (s *CrossEncoderStage) Process(ctx context.Context, st *State) StageResult {
	if s.isPassthrough() {
		return resultSkipped(s.Name(), "relevance model unavailable")
	}
	if len(st.Candidates) == 0 {
		return resultOK(s.Name())
	}

	if err := s.scorer.Load(ctx); err != nil {
		s.enterPassthrough(err)
		return resultSkipped(s.Name(), "relevance model unavailable")
	}

	scored := make([]Candidate, len(st.Candidates))
	for i, c := range st.Candidates {
		text := c.Passage.Content
		if text == "" {
			text = c.Passage.Title
		}

		sCtx, cancel := context.WithTimeout(ctx, scoreTimeout)
		score, err := s.scorer.Score(sCtx, st.Question, text)
		cancel()
		if err != nil {
			return resultDegraded(s.Name(), err.Error())
		}

		c.CEScore = &score
		scored[i] = c
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if *scored[i].CEScore == *scored[j].CEScore {
			return scored[i].Similarity > scored[j].Similarity
		}
		return *scored[i].CEScore > *scored[j].CEScore
	})
	if len(scored) > s.topK {
		scored = scored[:s.topK]
	}

	st.Candidates = scored
	return resultOK(s.Name())
}

func (s *CrossEncoderStage) isPassthrough() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.passthrough
}

func (s *CrossEncoderStage) enterPassthrough(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passthrough = true
	if !s.logged {
		s.logged = true
		logger.Warn("cross-encoder disabled for pipeline lifetime", "err", err)
	}
}
