package core

import (
	"context"
	"maps"
	"sync"
	"time"
)

// graph holds the identity, defaults and successor table shared by Node and Flow.
type graph[State any] struct {
	*settings
	successors map[Action]Workflow[State]
	pending    *pendingEvents
}

// pendingEvents buffers graph warnings raised while wiring, before the
// observer of the run is known.
type pendingEvents struct {
	mu     sync.Mutex
	events []Event
}

func (p *pendingEvents) add(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *pendingEvents) drain() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	events := p.events
	p.events = nil
	return events
}

func newGraph[State any](s *settings) graph[State] {
	return graph[State]{
		settings:   s,
		successors: make(map[Action]Workflow[State]),
		pending:    &pendingEvents{},
	}
}

// Name returns the workflow name.
func (g *graph[State]) Name() string {
	return g.name
}

// Params returns a copy of the default params.
func (g *graph[State]) Params() Params {
	return g.params.Clone()
}

// RetryPolicy returns the normalized retry policy.
func (g *graph[State]) RetryPolicy() RetryPolicy {
	return g.retry
}

// AddSuccessor connects successor for action, or for ActionDefault when no
// action is given, and returns successor so that chains read left to right.
// Registering an action twice replaces the earlier successor and raises
// EventSuccessorOverwritten: immediately on the workflow's own observer, or
// on the observer of its next Run otherwise.
func (g *graph[State]) AddSuccessor(successor Workflow[State], action ...Action) Workflow[State] {
	if successor == nil {
		return successor
	}
	a := ActionDefault
	if len(action) > 0 {
		a = action[0].normalize()
	}
	if prev, exists := g.successors[a]; exists {
		ev := Event{
			Kind:   EventSuccessorOverwritten,
			Node:   g.name,
			Action: a,
			Item:   -1,
			Time:   time.Now(),
			Err:    &overwriteError{action: a, prev: prev.Name(), next: successor.Name()},
		}
		if g.observer != nil {
			g.observer.OnEvent(context.Background(), ev)
		} else {
			g.pending.add(ev)
		}
	}
	g.successors[a] = successor
	return successor
}

// Then connects successor for ActionDefault.
func (g *graph[State]) Then(successor Workflow[State]) Workflow[State] {
	return g.AddSuccessor(successor)
}

// On connects successor for action.
func (g *graph[State]) On(action Action, successor Workflow[State]) Workflow[State] {
	return g.AddSuccessor(successor, action)
}

// GetSuccessor gets the next Workflow as per action.
func (g *graph[State]) GetSuccessor(action Action) Workflow[State] {
	return g.successors[action.normalize()]
}

// Successors returns a copy of the successor table.
func (g *graph[State]) Successors() map[Action]Workflow[State] {
	return maps.Clone(g.successors)
}

// flushPending reports the warnings buffered since the last Run.
func (g *graph[State]) flushPending(ctx context.Context, rt *runtime) {
	for _, ev := range g.pending.drain() {
		rt.emit(ctx, ev)
	}
}

type overwriteError struct {
	action     Action
	prev, next string
}

func (e *overwriteError) Error() string {
	return "successor for action " + string(e.action) + " changed from " + e.prev + " to " + e.next
}

// next resolves the successor of current for action and reports an
// unmatched action when current has successors for other actions.
func next[State any](ctx context.Context, rt *runtime, current Workflow[State], action Action) Workflow[State] {
	nxt := current.GetSuccessor(action)
	if nxt == nil && len(current.Successors()) > 0 {
		rt.emit(ctx, Event{Kind: EventUnmatchedAction, Node: current.Name(), Action: action, Item: -1})
	}
	return nxt
}
