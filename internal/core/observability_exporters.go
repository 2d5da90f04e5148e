package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"sync"
	"time"
)

// ExpvarMetricsRecorder publishes per-operation counters and cumulative
// latency through the expvar registry. Variables are named
// <prefix>_<operation>_{success,error,duration_ms}.
type ExpvarMetricsRecorder struct {
	prefix string

	mu   sync.Mutex
	vars map[string]*expvar.Int
}

// NewExpvarMetricsRecorder constructs a recorder publishing under prefix.
func NewExpvarMetricsRecorder(prefix string) *ExpvarMetricsRecorder {
	if prefix == "" {
		prefix = "bookcore"
	}
	return &ExpvarMetricsRecorder{prefix: prefix, vars: map[string]*expvar.Int{}}
}

// counter resolves name to a shared expvar.Int. expvar.NewInt panics on a
// duplicate name, so an already-published var is reused; two recorders with
// the same prefix feed the same counters.
func (r *ExpvarMetricsRecorder) counter(name string) *expvar.Int {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vars[name]
	if !ok {
		switch existing := expvar.Get(name).(type) {
		case *expvar.Int:
			v = existing
		case nil:
			v = expvar.NewInt(name)
		default:
			// Name taken by a var of another type; count privately rather
			// than panic.
			v = new(expvar.Int)
		}
		r.vars[name] = v
	}
	return v
}

// Observe implements MetricsRecorder.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	outcome := "error"
	if success {
		outcome = "success"
	}
	r.counter(fmt.Sprintf("%s_%s_%s", r.prefix, operation, outcome)).Add(1)
	r.counter(fmt.Sprintf("%s_%s_duration_ms", r.prefix, operation)).Add(duration.Milliseconds())
}

// JSONTraceTracer writes one JSON line per finished span. It is meant for
// lightweight diagnostics where a full tracing backend is not wired.
type JSONTraceTracer struct {
	mu    sync.Mutex
	out   io.Writer
	nowFn func() time.Time
}

// NewJSONTraceTracer constructs a tracer writing to out.
func NewJSONTraceTracer(out io.Writer) *JSONTraceTracer {
	return &JSONTraceTracer{out: out, nowFn: time.Now}
}

type jsonTraceSpan struct {
	tracer    *JSONTraceTracer
	operation string
	start     time.Time
}

type jsonTraceRecord struct {
	Operation  string `json:"operation"`
	StartedAt  string `json:"started_at"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Start implements Tracer.
func (t *JSONTraceTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonTraceSpan{tracer: t, operation: operation, start: t.nowFn()}
}

// End implements TraceSpan.
func (s *jsonTraceSpan) End(err error) {
	rec := jsonTraceRecord{
		Operation:  s.operation,
		StartedAt:  s.start.UTC().Format(time.RFC3339Nano),
		DurationMS: s.tracer.nowFn().Sub(s.start).Milliseconds(),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	payload, marshalErr := json.Marshal(rec)
	if marshalErr != nil {
		return
	}
	s.tracer.mu.Lock()
	defer s.tracer.mu.Unlock()
	s.tracer.out.Write(append(payload, '\n'))
}
