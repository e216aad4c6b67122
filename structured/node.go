package structured

import (
	"context"
	"errors"
	"fmt"

	"github.com/alt-coder/pocketflow-go/v2/core"
	"github.com/alt-coder/pocketflow-go/v2/llm"
)

// Request is what a ParseNode prepares for each attempt: the text to parse
// and any extra context for the prompt.
type Request struct {
	Input   string
	Context []string
}

// ParseNode is a core.BaseNode that asks an LLM to turn the text read from the
// state into a T. A reply that cannot be decoded or fails validation is an
// Exec error, so the node's retry policy applies to it.
type ParseNode[State any, T any] struct {
	provider  llm.Provider
	input     func(state *State, params core.Params) (Request, error)
	output    func(state *State, result T, params core.Params) (core.Action, error)
	validator Validator[T]
	system    string
	fallback  func(req Request, err error) (T, error)
}

// ParseOption configures a ParseNode.
type ParseOption[State any, T any] func(*ParseNode[State, T])

// WithValidator runs v on every decoded value.
func WithValidator[State any, T any](v Validator[T]) ParseOption[State, T] {
	return func(n *ParseNode[State, T]) { n.validator = v }
}

// WithSystemPrompt prepends a system message to every request.
func WithSystemPrompt[State any, T any](prompt string) ParseOption[State, T] {
	return func(n *ParseNode[State, T]) { n.system = prompt }
}

// WithFallback supplies the value used once every attempt failed. Without it
// the last error fails the run.
func WithFallback[State any, T any](fallback func(req Request, err error) (T, error)) ParseOption[State, T] {
	return func(n *ParseNode[State, T]) { n.fallback = fallback }
}

// NewParseNode creates the hooks of a parsing node. input reads the text to
// parse from the state; output stores the result and picks the next action.
// Wrap the result with core.NewNode to run it.
func NewParseNode[State any, T any](
	provider llm.Provider,
	input func(state *State, params core.Params) (Request, error),
	output func(state *State, result T, params core.Params) (core.Action, error),
	opts ...ParseOption[State, T],
) *ParseNode[State, T] {
	n := &ParseNode[State, T]{
		provider:  provider,
		input:     input,
		output:    output,
		validator: NoOpValidator[T]{},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *ParseNode[State, T]) Prep(_ context.Context, state *State, params core.Params) (Request, error) {
	if n.provider == nil {
		return Request{}, errors.New("llm provider cannot be nil")
	}
	req, err := n.input(state, params)
	if err != nil {
		return Request{}, err
	}
	if req.Input == "" {
		return Request{}, errors.New("text content is empty")
	}
	return req, nil
}

func (n *ParseNode[State, T]) Exec(ctx context.Context, req Request, _ core.Params, _ int) (T, error) {
	messages := make([]llm.Message, 0, 2)
	if n.system != "" {
		messages = append(messages, llm.SystemMessage(n.system))
	}
	messages = append(messages, llm.UserMessage(BuildPrompt[T](req.Input, req.Context...)))

	result, err := Parse[T](ctx, n.provider, messages...)
	if err != nil {
		return result, err
	}
	if err := n.validator.Validate(&result); err != nil {
		return result, fmt.Errorf("validation failed: %w", err)
	}
	return result, nil
}

func (n *ParseNode[State, T]) ExecFallback(_ context.Context, req Request, err error, _ core.Params, _ int) (T, error) {
	if n.fallback != nil {
		return n.fallback(req, err)
	}
	var zero T
	return zero, err
}

func (n *ParseNode[State, T]) Post(_ context.Context, state *State, _ Request, result T, params core.Params) (core.Action, error) {
	if n.output == nil {
		return core.ActionDefault, nil
	}
	return n.output(state, result, params)
}
