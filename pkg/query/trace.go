package query

import (
	"sort"
	"sync"
)

type TraceEventKind string

const (
	TraceEventConsideredDocuments TraceEventKind = "considered_documents"
	TraceEventUsedDocuments       TraceEventKind = "used_documents"
	TraceEventStageResult         TraceEventKind = "stage_result"
)

// TraceEvent is an extensible event envelope for query tracing. Additive
// changes to this struct are backward compatible for implementers.
type TraceEvent struct {
	Kind TraceEventKind

	DocumentTitles []string
	Result         StageResult
}

// Tracer is a sink for query tracing events. Implementers can forward events
// to logs, telemetry, or custom post-processing pipelines.
type Tracer interface {
	Record(event TraceEvent)
}

func recordConsideredDocuments(t Tracer, titles ...string) {
	if t == nil {
		return
	}
	t.Record(TraceEvent{Kind: TraceEventConsideredDocuments, DocumentTitles: titles})
}

func recordUsedDocuments(t Tracer, titles ...string) {
	if t == nil {
		return
	}
	t.Record(TraceEvent{Kind: TraceEventUsedDocuments, DocumentTitles: titles})
}

func recordStageResult(t Tracer, result StageResult) {
	if t == nil {
		return
	}
	t.Record(TraceEvent{Kind: TraceEventStageResult, Result: result})
}

// QueryTrace collects which documents a query run considered and used, plus
// the outcome of every stage. It is safe for concurrent use.
type QueryTrace struct {
	mu sync.Mutex

	consideredDocuments map[string]struct{}
	usedDocuments       map[string]struct{}
	stageResults        []StageResult
}

type QueryTraceSnapshot struct {
	ConsideredDocuments []string
	UsedDocuments       []string
	StageResults        []StageResult
}

func NewQueryTrace() *QueryTrace {
	return &QueryTrace{
		consideredDocuments: make(map[string]struct{}),
		usedDocuments:       make(map[string]struct{}),
	}
}

func (t *QueryTrace) Record(event TraceEvent) {
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch event.Kind {
	case TraceEventConsideredDocuments:
		for _, title := range event.DocumentTitles {
			if title == "" {
				continue
			}
			t.consideredDocuments[title] = struct{}{}
		}
	case TraceEventUsedDocuments:
		for _, title := range event.DocumentTitles {
			if title == "" {
				continue
			}
			t.usedDocuments[title] = struct{}{}
		}
	case TraceEventStageResult:
		if event.Result.Stage != "" {
			t.stageResults = append(t.stageResults, event.Result)
		}
	}
}

func (t *QueryTrace) Snapshot() QueryTraceSnapshot {
	if t == nil {
		return QueryTraceSnapshot{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s := QueryTraceSnapshot{
		ConsideredDocuments: make([]string, 0, len(t.consideredDocuments)),
		UsedDocuments:       make([]string, 0, len(t.usedDocuments)),
		StageResults:        append([]StageResult(nil), t.stageResults...),
	}
	for title := range t.consideredDocuments {
		s.ConsideredDocuments = append(s.ConsideredDocuments, title)
	}
	for title := range t.usedDocuments {
		s.UsedDocuments = append(s.UsedDocuments, title)
	}

	sort.Strings(s.ConsideredDocuments)
	sort.Strings(s.UsedDocuments)

	return s
}
