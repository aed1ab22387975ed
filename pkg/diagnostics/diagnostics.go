// Package diagnostics is the structured warning sink injected into every
// pipeline stage. Events are logged and counted so runs and tests can
// assert on them.
package diagnostics

import (
	"context"
	"sort"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/metrics"
)

// Kind names the condition behind an event.
type Kind string

const (
	MissingColumn     Kind = "missing_column"
	EmptyResult       Kind = "empty_result"
	ConversionFailure Kind = "conversion_failure"
	EncodingFailure   Kind = "encoding_failure"
	IOFailure         Kind = "io_failure"
	DuplicateKey      Kind = "duplicate_key"
	SparseColumn      Kind = "sparse_column"
	Degraded          Kind = "degraded"
)

// Level is the severity of an event.
type Level string

const (
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Event is one diagnostic. Count defaults to 1.
type Event struct {
	Stage   string         `json:"stage"`
	Kind    Kind           `json:"kind"`
	Level   Level          `json:"level"`
	Message string         `json:"message"`
	Count   int            `json:"count"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// Sink receives diagnostics from pipeline stages.
type Sink interface {
	Warn(ctx context.Context, e Event)
	Error(ctx context.Context, e Event)
}

// Recorder logs events through ectologger and keeps per-kind counts.
type Recorder struct {
	logger ectologger.Logger
	mu     sync.Mutex
	counts map[Kind]int
	events []Event
}

func NewRecorder(logger ectologger.Logger) *Recorder {
	return &Recorder{
		logger: logger,
		counts: make(map[Kind]int),
	}
}

func (r *Recorder) Warn(ctx context.Context, e Event) {
	e.Level = LevelWarn
	r.record(e)
	r.log(ctx, e).Warn(e.Message)
}

func (r *Recorder) Error(ctx context.Context, e Event) {
	e.Level = LevelError
	r.record(e)
	r.log(ctx, e).Error(e.Message)
}

// Count returns the summed counts recorded for kind.
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[kind]
}

// Counts returns a copy of the per-kind counts.
func (r *Recorder) Counts() map[Kind]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[Kind]int, len(r.counts))
	for k, v := range r.counts {
		out[k] = v
	}
	return out
}

// Events returns the recorded events ordered by stage then kind.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Stage != out[j].Stage {
			return out[i].Stage < out[j].Stage
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

func (r *Recorder) record(e Event) {
	if e.Count <= 0 {
		e.Count = 1
	}
	r.mu.Lock()
	r.counts[e.Kind] += e.Count
	r.events = append(r.events, e)
	r.mu.Unlock()
	metrics.WarningsTotal.WithLabelValues(e.Stage, string(e.Kind)).Add(float64(e.Count))
}

func (r *Recorder) log(ctx context.Context, e Event) ectologger.Logger {
	f := map[string]any{
		"stage": e.Stage,
		"kind":  string(e.Kind),
		"count": max(e.Count, 1),
	}
	for k, v := range e.Fields {
		f[k] = v
	}
	return r.logger.WithContext(ctx).WithFields(f)
}
