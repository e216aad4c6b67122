// Package structured turns free-form LLM responses into typed values. It
// builds a schema prompt from a struct's tags, extracts the YAML or JSON
// document from the reply and decodes it.
package structured

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/alt-coder/pocketflow-go/v2/llm"
)

// BuildPrompt wraps input and any additional context with the schema prompt
// for T.
func BuildPrompt[T any](input string, additionalContext ...string) string {
	var b strings.Builder
	b.WriteString("Analyze the following data and extract the requested information.\n\n")
	b.WriteString("**Input Data:**\n```\n")
	b.WriteString(input)
	b.WriteString("\n```\n\n")
	for i, extra := range additionalContext {
		fmt.Fprintf(&b, "**Additional Context %d:**\n%s\n\n", i+1, extra)
	}
	b.WriteString(SchemaPrompt[T]())
	return b.String()
}

// Parse sends messages to provider and decodes the reply into T.
func Parse[T any](ctx context.Context, provider llm.Provider, messages ...llm.Message) (T, error) {
	var zero T
	if provider == nil {
		return zero, errors.New("llm provider cannot be nil")
	}
	response, err := provider.CallLLM(ctx, messages)
	if err != nil {
		return zero, fmt.Errorf("LLM call failed: %w", err)
	}
	return Decode[T](response.Content)
}

// ParseText builds the schema prompt around text and parses the reply.
func ParseText[T any](ctx context.Context, provider llm.Provider, text string, additionalContext ...string) (T, error) {
	var zero T
	if strings.TrimSpace(text) == "" {
		return zero, errors.New("text content is empty")
	}
	return Parse[T](ctx, provider, llm.UserMessage(BuildPrompt[T](text, additionalContext...)))
}

// ReadInput reads a file for parsing, rejecting empty files.
func ReadInput(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", path, err)
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return "", fmt.Errorf("file %s is empty", path)
	}
	return content, nil
}

// FormatIndexedList creates a formatted string of items with their indexes
func FormatIndexedList(items []string) string {
	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "%d: %s\n", i, item)
	}
	return b.String()
}
