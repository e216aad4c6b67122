package core

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Flow represents a workflow subgraph that implements Workflow interface.
// It walks the successor graph from its start node, running every visited
// node with the flow's own merged params.
type Flow[State any] struct {
	graph[State]
	start    Workflow[State]
	strategy Strategy
	run      func(ctx context.Context, rt *runtime, state *State, params Params) (Action, error)
}

// NewFlow creates a flow over the graph reachable from start, with no-op
// flow hooks.
func NewFlow[State any](start Workflow[State], opts ...Option) *Flow[State] {
	return NewFlowWith[State, any](start, NoOpFlow[State, any]{}, append([]Option{WithName("flow")}, opts...)...)
}

// NewFlowWith creates a flow whose Prep and Post hooks come from base.
func NewFlowWith[State any, Prep any](start Workflow[State], base FlowBase[State, Prep], opts ...Option) *Flow[State] {
	f := &Flow[State]{
		graph:    newGraph[State](newSettings(typeName(base), opts)),
		start:    start,
		strategy: Single,
	}
	f.run = func(ctx context.Context, rt *runtime, state *State, params Params) (Action, error) {
		prep, err := base.Prep(ctx, state, params)
		if err != nil {
			return "", wrapNodeError(f.name, PhasePrep, err)
		}
		if err := f.orchestrate(ctx, rt, state, params); err != nil {
			return "", err
		}
		action, err := base.Post(ctx, state, prep, params)
		if err != nil {
			return "", wrapNodeError(f.name, PhasePost, err)
		}
		return action, nil
	}
	return f
}

// NewBatchFlow creates a flow that traverses its graph once per params set
// produced by base.Prep. Each set is merged over the flow's params, the set
// winning per key. With Sequential the traversals run one after another;
// with Parallel the sets are collected first and every traversal runs in its
// own goroutine against the same state, without any locking.
func NewBatchFlow[State any](start Workflow[State], base FlowBase[State, Items[Params]], strategy Strategy, opts ...Option) *Flow[State] {
	if strategy == Single {
		strategy = Sequential
	}
	f := &Flow[State]{
		graph:    newGraph[State](newSettings(typeName(base), opts)),
		start:    start,
		strategy: strategy,
	}
	f.run = func(ctx context.Context, rt *runtime, state *State, params Params) (Action, error) {
		branches, err := base.Prep(ctx, state, params)
		if err != nil {
			return "", wrapNodeError(f.name, PhasePrep, err)
		}
		if strategy == Parallel {
			err = f.orchestrateParallel(ctx, rt, state, params, branches)
		} else {
			err = f.orchestrateSequential(ctx, rt, state, params, branches)
		}
		if err != nil {
			return "", err
		}
		action, err := base.Post(ctx, state, branches, params)
		if err != nil {
			return "", wrapNodeError(f.name, PhasePost, err)
		}
		return action, nil
	}
	return f
}

// Run implements the Workflow interface - executes the flow and returns an action
func (f *Flow[State]) Run(ctx context.Context, state *State, params Params) (Action, error) {
	ctx, rt, nested := enter(ctx, f.settings)
	f.flushPending(ctx, rt)
	if !nested && len(f.successors) > 0 {
		rt.emit(ctx, Event{Kind: EventSuccessorsIgnored, Node: f.name, Item: -1})
	}
	return observeRun(ctx, rt, f.name, "flow", func(ctx context.Context) (Action, error) {
		action, err := f.run(ctx, rt, state, f.params.Merge(params))
		if err != nil {
			return "", err
		}
		return action.normalize(), nil
	})
}

// Start returns the start node of the flow.
func (f *Flow[State]) Start() Workflow[State] {
	return f.start
}

// Strategy returns how batch traversals are scheduled; Single for plain flows.
func (f *Flow[State]) Strategy() Strategy {
	return f.strategy
}

// SetParams replaces the default params and returns the flow for chaining.
func (f *Flow[State]) SetParams(params Params) *Flow[State] {
	f.params = params.Clone()
	return f
}

// orchestrate performs one traversal from the start node until no successor
// matches the produced action.
func (f *Flow[State]) orchestrate(ctx context.Context, rt *runtime, state *State, params Params) error {
	current := f.start
	for current != nil {
		action, err := current.Run(ctx, state, params)
		if err != nil {
			return err
		}
		current = next(ctx, rt, current, action)
	}
	return nil
}

func (f *Flow[State]) orchestrateSequential(ctx context.Context, rt *runtime, state *State, params Params, branches Items[Params]) error {
	if branches == nil {
		return nil
	}
	for branch, err := range branches {
		if err != nil {
			return wrapNodeError(f.name, PhaseItems, err)
		}
		if err := f.orchestrate(ctx, rt, state, params.Merge(branch)); err != nil {
			return err
		}
	}
	return nil
}

func (f *Flow[State]) orchestrateParallel(ctx context.Context, rt *runtime, state *State, params Params, branches Items[Params]) error {
	all, err := branches.Collect()
	if err != nil {
		return wrapNodeError(f.name, PhaseItems, err)
	}
	var g errgroup.Group
	for _, branch := range all {
		g.Go(func() error {
			return f.orchestrate(ctx, rt, state, params.Merge(branch))
		})
	}
	return g.Wait()
}
