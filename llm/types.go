// Package llm defines the provider-neutral chat types used by LLM-backed
// nodes and the Provider interface implemented by the openai, gemini and
// mock clients.
package llm

import (
	"context"
	"errors"
	"time"
)

// ErrNoMessages is returned by providers called with an empty conversation.
var ErrNoMessages = errors.New("llm: no messages to send")

// Message represents a generic chat message that can be used across different LLM providers
type Message struct {
	Role        string // "user", "assistant", "system", "tool"
	Content     string // The actual message content
	Media       []byte
	MimeType    string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolResult is the outcome of a ToolCall, sent back to the model.
type ToolResult struct {
	ID       string // ToolCall.ID this result answers
	Name     string
	Content  string
	IsError  bool
	Media    []byte
	MimeType string
}

// Provider defines the contract that all LLM implementations must follow
type Provider interface {
	// CallLLM sends messages to the LLM and returns the response
	CallLLM(ctx context.Context, messages []Message) (Message, error)

	// Name returns the name/identifier of the LLM provider
	Name() string
}

// Config holds provider-neutral settings, as read from the config file.
type Config struct {
	Provider    string  `yaml:"provider"` // "gemini", "openai" or "mock"
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	MaxTokens   int     `yaml:"max_tokens"`

	// RateLimit is the number of requests allowed per RateLimitInterval; 0 disables limiting.
	RateLimit         int           `yaml:"rate_limit"`
	RateLimitInterval time.Duration `yaml:"rate_limit_interval"`
}

const (
	// RoleSystem is used for system-level messages
	RoleSystem = "system"
	// RoleUser is used for user messages
	RoleUser = "user"
	// RoleAssistant is used for assistant messages
	RoleAssistant = "assistant"
	// RoleTool is used for messages carrying tool results
	RoleTool = "tool"
)

// UserMessage is shorthand for a user message with text content.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// SystemMessage is shorthand for a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// ToolDefinition describes a callable tool to the model. Parameters is a JSON
// schema object.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolAware is implemented by providers that can declare tools to the model.
type ToolAware interface {
	SetTools(tools []ToolDefinition)
}
