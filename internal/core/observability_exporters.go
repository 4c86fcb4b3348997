package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var expvarSeq uint64

// OperationStats aggregates timing and result counts for one service
// operation. Durations are milliseconds.
type OperationStats struct {
	Count   int64   `json:"count"`
	Errors  int64   `json:"errors"`
	TotalMS float64 `json:"total_ms"`
	MinMS   float64 `json:"min_ms"`
	MaxMS   float64 `json:"max_ms"`
	AvgMS   float64 `json:"avg_ms"`
}

// ExpvarMetricsSnapshot is the read-only view published through expvar.
type ExpvarMetricsSnapshot struct {
	Operations map[string]OperationStats `json:"operations"`
	RecordedAt time.Time                 `json:"recorded_at"`
}

// ExpvarMetricsRecorder publishes per-operation stats via expvar, for
// deployments that prefer process-local metrics over a scrape endpoint.
type ExpvarMetricsRecorder struct {
	name string
	mu   sync.Mutex
	ops  map[string]*OperationStats
}

// NewExpvarMetricsRecorder constructs an expvar-backed recorder and publishes
// it under the supplied name. When name is empty, a unique identifier is
// generated.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		id := atomic.AddUint64(&expvarSeq, 1)
		name = fmt.Sprintf("metacore_service_metrics_%d", id)
	}
	rec := &ExpvarMetricsRecorder{
		name: name,
		ops:  make(map[string]*OperationStats),
	}
	expvar.Publish(name, expvar.Func(func() any {
		return rec.Snapshot()
	}))
	return rec
}

// Name returns the expvar export name associated with the recorder.
func (r *ExpvarMetricsRecorder) Name() string {
	return r.name
}

// Snapshot returns an immutable copy of the aggregated metrics.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	ops := make(map[string]OperationStats, len(r.ops))
	for op, stats := range r.ops {
		cp := *stats
		if cp.Count > 0 {
			cp.AvgMS = cp.TotalMS / float64(cp.Count)
		}
		ops[op] = cp
	}
	return ExpvarMetricsSnapshot{Operations: ops, RecordedAt: time.Now().UTC()}
}

// Observe records a service operation outcome.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	ms := float64(duration) / float64(time.Millisecond)

	r.mu.Lock()
	stats, ok := r.ops[operation]
	if !ok {
		stats = &OperationStats{MinMS: ms, MaxMS: ms}
		r.ops[operation] = stats
	}
	stats.Count++
	if !success {
		stats.Errors++
	}
	stats.TotalMS += ms
	if ms < stats.MinMS {
		stats.MinMS = ms
	}
	if ms > stats.MaxMS {
		stats.MaxMS = ms
	}
	r.mu.Unlock()
}

// TraceEvent is one completed span as serialized by JSONTraceTracer. Seq
// orders events within a single tracer; wall-clock fields can tie under
// coarse timers.
type TraceEvent struct {
	Seq        int64     `json:"seq"`
	Operation  string    `json:"operation"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	DurationMS float64   `json:"duration_ms"`
	EndedAt    time.Time `json:"ended_at"`
}

// JSONTraceTracer writes completed spans as JSON lines and retains them for
// inspection.
type JSONTraceTracer struct {
	mu     sync.Mutex
	seq    int64
	events []TraceEvent
	enc    *json.Encoder
}

// NewJSONTracer constructs a tracer writing to w; a nil writer retains
// events without encoding them.
func NewJSONTracer(w io.Writer) *JSONTraceTracer {
	t := &JSONTraceTracer{}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Entries returns a copy of all recorded events in completion order.
func (t *JSONTraceTracer) Entries() []TraceEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TraceEvent, len(t.events))
	copy(out, t.events)
	return out
}

// Start implements the Tracer interface.
func (t *JSONTraceTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonSpan{tracer: t, operation: operation, began: time.Now().UTC()}
}

type jsonSpan struct {
	tracer    *JSONTraceTracer
	operation string
	began     time.Time
}

func (s *jsonSpan) End(err error) {
	ended := time.Now().UTC()
	event := TraceEvent{
		Operation:  s.operation,
		Status:     "success",
		DurationMS: float64(ended.Sub(s.began)) / float64(time.Millisecond),
		EndedAt:    ended,
	}
	if err != nil {
		event.Status = "error"
		event.Error = err.Error()
	}

	s.tracer.mu.Lock()
	s.tracer.seq++
	event.Seq = s.tracer.seq
	s.tracer.events = append(s.tracer.events, event)
	if s.tracer.enc != nil {
		_ = s.tracer.enc.Encode(event)
	}
	s.tracer.mu.Unlock()
}
