// Package core implements the workflow graph engine: nodes with a
// Prep -> Exec -> Post lifecycle, retry and fallback around Exec, action
// based successor routing, flows that walk the graph, and sequential or
// parallel batch variants of both.
package core

// Action represents the result of a node execution that determines flow control
type Action string

// Common actions
const (
	ActionContinue Action = "continue"
	ActionSuccess  Action = "success"
	ActionFailure  Action = "failure"
	ActionRetry    Action = "retry"
	ActionDefault  Action = "default"
)

// normalize maps the absent action onto ActionDefault.
func (a Action) normalize() Action {
	if a == "" {
		return ActionDefault
	}
	return a
}

// Shared is an untyped shared state for flows that do not declare their own
// state struct.
type Shared map[string]any

// Strategy selects how a node executes its prepared input.
type Strategy int

const (
	// Single runs Exec once per Run, wrapped in the retry policy.
	Single Strategy = iota
	// Sequential runs every item one after another, each with its own retries.
	Sequential
	// Parallel runs every item in its own goroutine, each with its own retries.
	Parallel
)

// String returns the configuration name of the strategy
func (s Strategy) String() string {
	switch s {
	case Sequential:
		return "sequential"
	case Parallel:
		return "parallel"
	default:
		return "single"
	}
}

// ParseStrategy maps a configuration name onto a Strategy. Unknown names
// return false.
func ParseStrategy(name string) (Strategy, bool) {
	switch name {
	case "", "single":
		return Single, true
	case "sequential", "batch":
		return Sequential, true
	case "parallel", "parallel_batch":
		return Parallel, true
	}
	return Single, false
}
