package core

import (
	"context"
	"reflect"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// executor runs the Exec phase of a node according to its strategy.
type executor[Prep any, Exec any] func(ctx context.Context, rt *runtime, prep Prep, params Params) (Exec, error)

// Node represents a single node in the workflow graph and implements Workflow
type Node[State any, Prep any, Exec any] struct {
	graph[State]
	strategy Strategy
	prep     func(ctx context.Context, state *State, params Params) (Prep, error)
	execute  executor[Prep, Exec]
	post     func(ctx context.Context, state *State, prep Prep, exec Exec, params Params) (Action, error)
}

// NewNode wraps base in a node that runs Exec once per Run under the
// configured retry policy.
func NewNode[State any, Prep any, Exec any](base BaseNode[State, Prep, Exec], opts ...Option) *Node[State, Prep, Exec] {
	s := newSettings(typeName(base), opts)
	n := &Node[State, Prep, Exec]{
		graph:    newGraph[State](s),
		strategy: Single,
		prep:     base.Prep,
		post:     base.Post,
	}
	n.execute = func(ctx context.Context, rt *runtime, prep Prep, params Params) (Exec, error) {
		return executeWithRetry(ctx, rt, s.name, -1, s.retry,
			func(attempt int) (Exec, error) {
				return base.Exec(ctx, prep, params, attempt)
			},
			func(err error, attempt int) (Exec, error) {
				return base.ExecFallback(ctx, prep, err, params, attempt)
			})
	}
	return n
}

// NewBatchNode wraps base in a node that runs Exec once per item produced by
// Prep, each item under its own retry policy. strategy selects Sequential or
// Parallel execution; Single is treated as Sequential.
func NewBatchNode[State any, Item any, Result any](base BatchBaseNode[State, Item, Result], strategy Strategy, opts ...Option) *Node[State, Items[Item], []Result] {
	s := newSettings(typeName(base), opts)
	if strategy == Single {
		strategy = Sequential
	}
	n := &Node[State, Items[Item], []Result]{
		graph:    newGraph[State](s),
		strategy: strategy,
		prep:     base.Prep,
		post:     base.Post,
	}
	if strategy == Parallel {
		n.execute = parallelItems(s, base)
	} else {
		n.execute = sequentialItems(s, base)
	}
	return n
}

// Run implements the Workflow interface and executes the three-phase execution model
func (n *Node[State, Prep, Exec]) Run(ctx context.Context, state *State, params Params) (Action, error) {
	ctx, rt, nested := enter(ctx, n.settings)
	n.flushPending(ctx, rt)
	if !nested && len(n.successors) > 0 {
		rt.emit(ctx, Event{Kind: EventSuccessorsIgnored, Node: n.name, Item: -1})
	}
	return observeRun(ctx, rt, n.name, "node", func(ctx context.Context) (Action, error) {
		merged := n.params.Merge(params)

		prep, err := n.prep(ctx, state, merged)
		if err != nil {
			return "", wrapNodeError(n.name, PhasePrep, err)
		}
		exec, err := n.execute(ctx, rt, prep, merged)
		if err != nil {
			return "", wrapNodeError(n.name, PhaseExec, err)
		}
		action, err := n.post(ctx, state, prep, exec, merged)
		if err != nil {
			return "", wrapNodeError(n.name, PhasePost, err)
		}
		return action.normalize(), nil
	})
}

// Strategy returns the execution strategy of the node.
func (n *Node[State, Prep, Exec]) Strategy() Strategy {
	return n.strategy
}

// SetParams replaces the default params and returns the node for chaining.
func (n *Node[State, Prep, Exec]) SetParams(params Params) *Node[State, Prep, Exec] {
	n.params = params.Clone()
	return n
}

// SetMaxRetries updates the maximum number of attempts
func (n *Node[State, Prep, Exec]) SetMaxRetries(retries int) {
	n.retry.MaxRetries = retries
	n.retry = n.retry.Normalize()
}

// SetWait updates the delay between attempts
func (n *Node[State, Prep, Exec]) SetWait(wait time.Duration) {
	n.retry.Wait = wait
	n.retry = n.retry.Normalize()
}

// observeRun wraps one Run of a node or flow in a span and start/finish events.
func observeRun(ctx context.Context, rt *runtime, name, kind string, run func(ctx context.Context) (Action, error)) (Action, error) {
	ctx, span := rt.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("pocketflow.kind", kind),
		attribute.String("pocketflow.node", name),
		attribute.String("pocketflow.run_id", rt.id),
	))
	defer span.End()

	start := time.Now()
	rt.emit(ctx, Event{Kind: EventRunStarted, Node: name, Item: -1, Time: start})

	action, err := run(ctx)

	rt.emit(ctx, Event{Kind: EventRunFinished, Node: name, Action: action, Item: -1, Err: err, Duration: time.Since(start)})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return action, err
	}
	span.SetAttributes(attribute.String("pocketflow.action", string(action)))
	return action, nil
}

// typeName derives a default workflow name from the hook implementation.
func typeName(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "node"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return "node"
	}
	return name
}
