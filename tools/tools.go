// Package tools executes the tool calls requested by a model, either against
// local Go functions (Registry) or against MCP servers (MCPManager), and
// provides ExecNode to run a batch of calls inside a flow.
package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/alt-coder/pocketflow-go/v2/llm"
)

// ErrToolNotFound is returned by an Executor asked to run a tool it does not
// provide.
var ErrToolNotFound = errors.New("tool not found")

// Executor runs tool calls and describes the tools it can run.
type Executor interface {
	Definitions() []llm.ToolDefinition
	Execute(ctx context.Context, call llm.ToolCall) (llm.ToolResult, error)
}

// Chain routes each call to the first executor that provides the tool, so
// local tools can shadow MCP tools of the same name.
func Chain(executors ...Executor) Executor {
	return chain(executors)
}

type chain []Executor

func (c chain) Definitions() []llm.ToolDefinition {
	var defs []llm.ToolDefinition
	seen := make(map[string]bool)
	for _, e := range c {
		for _, def := range e.Definitions() {
			if seen[def.Name] {
				continue
			}
			seen[def.Name] = true
			defs = append(defs, def)
		}
	}
	return defs
}

func (c chain) Execute(ctx context.Context, call llm.ToolCall) (llm.ToolResult, error) {
	for _, e := range c {
		result, err := e.Execute(ctx, call)
		if errors.Is(err, ErrToolNotFound) {
			continue
		}
		return result, err
	}
	return llm.ToolResult{}, notFound(call.Name)
}

func notFound(name string) error {
	return fmt.Errorf("%w: %q", ErrToolNotFound, name)
}
