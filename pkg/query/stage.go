package query

import "context"

// StageStatus tells how a stage concluded.
type StageStatus string

const (
	// StageOK means the stage ran and transformed the candidate set.
	StageOK StageStatus = "ok"
	// StageDegraded means the stage hit a runtime failure and passed its
	// input through unchanged. Reason records why.
	StageDegraded StageStatus = "degraded"
	// StageSkipped means the stage decided not to run (disabled model,
	// sparse graph, no exemplars). Reason records why.
	StageSkipped StageStatus = "skipped"
)

// StageResult is the tagged outcome of one stage run. Stages report
// degradation explicitly instead of swallowing errors.
type StageResult struct {
	Stage  string      `json:"stage"`
	Status StageStatus `json:"status"`
	Reason string      `json:"reason,omitempty"`
}

func resultOK(stage string) StageResult {
	return StageResult{Stage: stage, Status: StageOK}
}

func resultDegraded(stage string, reason string) StageResult {
	return StageResult{Stage: stage, Status: StageDegraded, Reason: reason}
}

func resultSkipped(stage string, reason string) StageResult {
	return StageResult{Stage: stage, Status: StageSkipped, Reason: reason}
}

// State is the per-query working set handed from stage to stage.
type State struct {
	Question  string
	Embedding []float32

	// Candidates is the ranked passage pool, best first.
	Candidates []Candidate

	// Documents are the distinct document titles selected for synthesis, in
	// rank order. Populated by the multi-document expander; before that it
	// mirrors the candidates' documents.
	Documents []string

	// RawContentFallback is set when quality filtering removed every passage
	// and synthesis should use raw document text instead.
	RawContentFallback bool

	// FewShotPreamble is prepended to the synthesis prompt when exemplars
	// were selected.
	FewShotPreamble string
}

// DocumentOrder returns the distinct document titles of the current
// candidates in rank order.
func (s *State) DocumentOrder() []string {
	seen := make(map[string]struct{}, len(s.Candidates))
	order := make([]string, 0, len(s.Candidates))
	for _, c := range s.Candidates {
		title := c.Passage.DocumentTitle
		if _, dup := seen[title]; dup {
			continue
		}
		seen[title] = struct{}{}
		order = append(order, title)
	}
	return order
}

// Stage processes the candidate pool of a query. Implementations never
// return errors: failures degrade to passthrough and are reported in the
// StageResult.
type Stage interface {
	Name() string
	Process(ctx context.Context, st *State) StageResult
}
