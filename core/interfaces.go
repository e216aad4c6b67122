package core

import "context"

// BaseNode defines the lifecycle hooks of a single unit of work.
// This follows the three-phase execution model: Prep -> Exec -> Post
type BaseNode[State any, Prep any, Exec any] interface {
	// Prep reads the shared state and produces the input for Exec.
	// By convention it does not mutate state.
	Prep(ctx context.Context, state *State, params Params) (Prep, error)

	// Exec performs the fallible core logic. It may be called several times
	// for one Run, with attempt counting up from 0.
	Exec(ctx context.Context, prep Prep, params Params, attempt int) (Exec, error)

	// ExecFallback is called once after the final attempt fails. Returning an
	// error makes the Run fail.
	ExecFallback(ctx context.Context, prep Prep, err error, params Params, attempt int) (Exec, error)

	// Post writes results to the shared state and picks the next action.
	Post(ctx context.Context, state *State, prep Prep, exec Exec, params Params) (Action, error)
}

// BatchBaseNode defines the hooks of a node whose Prep produces a sequence of
// items and whose Exec handles one item at a time.
type BatchBaseNode[State any, Item any, Result any] interface {
	Prep(ctx context.Context, state *State, params Params) (Items[Item], error)
	Exec(ctx context.Context, item Item, params Params, attempt int) (Result, error)
	ExecFallback(ctx context.Context, item Item, err error, params Params, attempt int) (Result, error)
	// Post receives the item sequence as returned by Prep and one result per
	// item in input order.
	Post(ctx context.Context, state *State, items Items[Item], results []Result, params Params) (Action, error)
}

// FlowBase defines the flow-level hooks run around a graph traversal. A flow
// has no Exec of its own, so Post receives only the prepared value.
type FlowBase[State any, Prep any] interface {
	Prep(ctx context.Context, state *State, params Params) (Prep, error)
	Post(ctx context.Context, state *State, prep Prep, params Params) (Action, error)
}

// Workflow represents a unit of execution that can be connected to other workflows
// This interface is implemented by both Node and Flow to enable composition
type Workflow[State any] interface {
	// Run executes the workflow with params merged over its defaults and
	// returns an action for routing.
	Run(ctx context.Context, state *State, params Params) (Action, error)

	// Name identifies the workflow in events, spans and errors.
	Name() string

	// GetSuccessor returns the successor workflow for a given action
	GetSuccessor(action Action) Workflow[State]

	// Successors returns a copy of the action to successor table.
	Successors() map[Action]Workflow[State]

	// AddSuccessor connects a successor workflow for a specific action
	AddSuccessor(successor Workflow[State], action ...Action) Workflow[State]

	// Then connects a successor for ActionDefault.
	Then(successor Workflow[State]) Workflow[State]

	// On connects a successor for action.
	On(action Action, successor Workflow[State]) Workflow[State]
}

// NoOp supplies the default hook implementations. Embed it and override the
// hooks a node needs.
type NoOp[State any, Prep any, Exec any] struct{}

func (NoOp[State, Prep, Exec]) Prep(context.Context, *State, Params) (Prep, error) {
	var zero Prep
	return zero, nil
}

func (NoOp[State, Prep, Exec]) Exec(context.Context, Prep, Params, int) (Exec, error) {
	var zero Exec
	return zero, nil
}

// ExecFallback re-raises err: by default a node has no fallback.
func (NoOp[State, Prep, Exec]) ExecFallback(_ context.Context, _ Prep, err error, _ Params, _ int) (Exec, error) {
	var zero Exec
	return zero, err
}

func (NoOp[State, Prep, Exec]) Post(context.Context, *State, Prep, Exec, Params) (Action, error) {
	return ActionDefault, nil
}

// NoOpBatch supplies default hooks for batch nodes.
type NoOpBatch[State any, Item any, Result any] struct{}

func (NoOpBatch[State, Item, Result]) Prep(context.Context, *State, Params) (Items[Item], error) {
	return ItemsOf[Item](), nil
}

func (NoOpBatch[State, Item, Result]) Exec(context.Context, Item, Params, int) (Result, error) {
	var zero Result
	return zero, nil
}

func (NoOpBatch[State, Item, Result]) ExecFallback(_ context.Context, _ Item, err error, _ Params, _ int) (Result, error) {
	var zero Result
	return zero, err
}

func (NoOpBatch[State, Item, Result]) Post(context.Context, *State, Items[Item], []Result, Params) (Action, error) {
	return ActionDefault, nil
}

// NoOpFlow supplies default flow hooks.
type NoOpFlow[State any, Prep any] struct{}

func (NoOpFlow[State, Prep]) Prep(context.Context, *State, Params) (Prep, error) {
	var zero Prep
	return zero, nil
}

func (NoOpFlow[State, Prep]) Post(context.Context, *State, Prep, Params) (Action, error) {
	return ActionDefault, nil
}
