package tools

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/alt-coder/pocketflow-go/v2/core"
	"github.com/alt-coder/pocketflow-go/v2/llm"
)

// ExecNode is a core.BatchBaseNode running the tool calls found in the state
// through an Executor, one item per call. Run it with the Parallel strategy
// to execute independent calls concurrently. A call that still fails after
// its retries becomes an error ToolResult so the model can see what went
// wrong; the batch itself does not fail.
type ExecNode[State any] struct {
	executor Executor
	calls    func(state *State) []llm.ToolCall
	store    func(state *State, results []llm.ToolResult) (core.Action, error)
	logger   *zap.Logger
}

// NewExecNode creates the hooks of a tool execution node. calls reads the
// pending calls from the state; store writes the results back, in call order,
// and picks the next action.
func NewExecNode[State any](
	executor Executor,
	calls func(state *State) []llm.ToolCall,
	store func(state *State, results []llm.ToolResult) (core.Action, error),
	logger *zap.Logger,
) *ExecNode[State] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecNode[State]{executor: executor, calls: calls, store: store, logger: logger}
}

func (n *ExecNode[State]) Prep(_ context.Context, state *State, _ core.Params) (core.Items[llm.ToolCall], error) {
	if n.executor == nil {
		return nil, errors.New("tool executor cannot be nil")
	}
	if n.calls == nil {
		return nil, errors.New("tool call source cannot be nil")
	}
	return core.ItemsFromSlice(n.calls(state)), nil
}

func (n *ExecNode[State]) Exec(ctx context.Context, call llm.ToolCall, _ core.Params, attempt int) (llm.ToolResult, error) {
	n.logger.Debug("executing tool",
		zap.String("tool", call.Name),
		zap.String("call_id", call.ID),
		zap.Int("attempt", attempt),
		zap.String("run_id", core.RunID(ctx)))
	result, err := n.executor.Execute(ctx, call)
	if err != nil {
		return llm.ToolResult{}, err
	}
	if result.ID == "" {
		result.ID = call.ID
	}
	if result.Name == "" {
		result.Name = call.Name
	}
	return result, nil
}

func (n *ExecNode[State]) ExecFallback(_ context.Context, call llm.ToolCall, err error, _ core.Params, attempt int) (llm.ToolResult, error) {
	n.logger.Warn("tool call failed",
		zap.String("tool", call.Name),
		zap.String("call_id", call.ID),
		zap.Int("attempts", attempt+1),
		zap.Error(err))
	return llm.ToolResult{
		ID:      call.ID,
		Name:    call.Name,
		Content: err.Error(),
		IsError: true,
	}, nil
}

func (n *ExecNode[State]) Post(_ context.Context, state *State, _ core.Items[llm.ToolCall], results []llm.ToolResult, _ core.Params) (core.Action, error) {
	if n.store == nil {
		return core.ActionDefault, nil
	}
	return n.store(state, results)
}
