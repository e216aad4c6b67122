package core

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// EventKind classifies an engine event.
type EventKind string

const (
	// EventRunStarted is emitted when a node or flow begins a Run.
	EventRunStarted EventKind = "run_started"
	// EventRunFinished is emitted when a Run returns, successfully or not.
	EventRunFinished EventKind = "run_finished"
	// EventRetry is emitted when an attempt fails and another one follows.
	EventRetry EventKind = "retry"
	// EventFallback is emitted when the final attempt fails and the fallback runs.
	EventFallback EventKind = "fallback"
	// EventSuccessorOverwritten is emitted when an action is re-registered.
	EventSuccessorOverwritten EventKind = "successor_overwritten"
	// EventUnmatchedAction is emitted when a node with successors produced an
	// action none of them is registered for.
	EventUnmatchedAction EventKind = "unmatched_action"
	// EventSuccessorsIgnored is emitted when a node with successors is run
	// outside of a flow.
	EventSuccessorsIgnored EventKind = "successors_ignored"
)

// Event describes something the engine did. Fields that do not apply to a
// kind are left zero.
type Event struct {
	Kind     EventKind
	RunID    string
	Node     string
	Action   Action
	Attempt  int
	Item     int // index of the batch item, -1 outside batches
	Err      error
	Duration time.Duration
	Time     time.Time
}

// Observer receives engine events. Implementations must be safe for
// concurrent use: parallel batches emit from several goroutines.
type Observer interface {
	OnEvent(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) OnEvent(ctx context.Context, ev Event) { f(ctx, ev) }

type nopObserver struct{}

func (nopObserver) OnEvent(context.Context, Event) {}

// NopObserver discards every event.
var NopObserver Observer = nopObserver{}

const tracerName = "github.com/alt-coder/pocketflow-go/v2/core"

// runtime is the run-scoped state carried in the context from the top-level
// Run down to every nested node.
type runtime struct {
	id       string
	observer Observer
	tracer   trace.Tracer
}

type runtimeKey struct{}

// enter returns the runtime for a Run of a workflow configured with s. The
// first Run in a context creates it; nested Runs inherit it, with the
// workflow's own observer or tracer taking precedence when set.
func enter(ctx context.Context, s *settings) (context.Context, *runtime, bool) {
	parent, nested := ctx.Value(runtimeKey{}).(*runtime)
	rt := &runtime{}
	if nested {
		*rt = *parent
	} else {
		rt.id = uuid.NewString()
		rt.observer = NopObserver
		rt.tracer = otel.GetTracerProvider().Tracer(tracerName)
	}
	if s.observer != nil {
		rt.observer = s.observer
	}
	if s.tracerProvider != nil {
		rt.tracer = s.tracerProvider.Tracer(tracerName)
	}
	if nested && rt.observer == parent.observer && rt.tracer == parent.tracer {
		return ctx, parent, true
	}
	return context.WithValue(ctx, runtimeKey{}, rt), rt, nested
}

// RunID returns the id of the top-level Run executing in ctx, or "" outside
// of a Run.
func RunID(ctx context.Context) string {
	if rt, ok := ctx.Value(runtimeKey{}).(*runtime); ok {
		return rt.id
	}
	return ""
}

func (rt *runtime) emit(ctx context.Context, ev Event) {
	ev.RunID = rt.id
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	rt.observer.OnEvent(ctx, ev)
}
