package core

import (
	"context"
	"sync"
)

// funcNode is a BaseNode whose hooks are plain functions. Nil hooks fall
// back to the NoOp behaviour.
type funcNode struct {
	NoOp[Shared, any, any]
	prep     func(ctx context.Context, state *Shared, params Params) (any, error)
	exec     func(ctx context.Context, prep any, params Params, attempt int) (any, error)
	fallback func(ctx context.Context, prep any, err error, params Params, attempt int) (any, error)
	post     func(ctx context.Context, state *Shared, prep, exec any, params Params) (Action, error)
}

func (f *funcNode) Prep(ctx context.Context, state *Shared, params Params) (any, error) {
	if f.prep == nil {
		return f.NoOp.Prep(ctx, state, params)
	}
	return f.prep(ctx, state, params)
}

func (f *funcNode) Exec(ctx context.Context, prep any, params Params, attempt int) (any, error) {
	if f.exec == nil {
		return f.NoOp.Exec(ctx, prep, params, attempt)
	}
	return f.exec(ctx, prep, params, attempt)
}

func (f *funcNode) ExecFallback(ctx context.Context, prep any, err error, params Params, attempt int) (any, error) {
	if f.fallback == nil {
		return f.NoOp.ExecFallback(ctx, prep, err, params, attempt)
	}
	return f.fallback(ctx, prep, err, params, attempt)
}

func (f *funcNode) Post(ctx context.Context, state *Shared, prep, exec any, params Params) (Action, error) {
	if f.post == nil {
		return f.NoOp.Post(ctx, state, prep, exec, params)
	}
	return f.post(ctx, state, prep, exec, params)
}

// funcBatch is a BatchBaseNode built from functions.
type funcBatch struct {
	NoOpBatch[Shared, string, string]
	items    func() Items[string]
	exec     func(item string, attempt int) (string, error)
	fallback func(item string, err error, attempt int) (string, error)
	post     func(state *Shared, items Items[string], results []string) (Action, error)
}

func (f *funcBatch) Prep(ctx context.Context, state *Shared, params Params) (Items[string], error) {
	if f.items == nil {
		return f.NoOpBatch.Prep(ctx, state, params)
	}
	return f.items(), nil
}

func (f *funcBatch) Exec(ctx context.Context, item string, params Params, attempt int) (string, error) {
	return f.exec(item, attempt)
}

func (f *funcBatch) ExecFallback(ctx context.Context, item string, err error, params Params, attempt int) (string, error) {
	if f.fallback == nil {
		return f.NoOpBatch.ExecFallback(ctx, item, err, params, attempt)
	}
	return f.fallback(item, err, attempt)
}

func (f *funcBatch) Post(ctx context.Context, state *Shared, items Items[string], results []string, params Params) (Action, error) {
	if f.post == nil {
		return ActionDefault, nil
	}
	return f.post(state, items, results)
}

// recorder is an Observer that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnEvent(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds(kind EventKind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// trail records an ordered list of labels from concurrent writers.
type trail struct {
	mu    sync.Mutex
	steps []string
}

func (t *trail) add(step string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.steps = append(t.steps, step)
}

func (t *trail) list() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.steps...)
}
