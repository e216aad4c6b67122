package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/alt-coder/pocketflow-go/v2/llm"
)

// Client implements llm.Provider for OpenAI-compatible chat completion APIs.
type Client struct {
	client  *openai.Client
	config  *Config
	limiter *rate.Limiter

	mu    sync.RWMutex
	tools []openai.Tool
}

var (
	_ llm.Provider  = (*Client)(nil)
	_ llm.ToolAware = (*Client)(nil)
)

// NewClient creates a new OpenAI client with the provided configuration
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if config.OrgID != "" {
		clientConfig.OrgID = config.OrgID
	}

	return &Client{
		client:  openai.NewClientWithConfig(clientConfig),
		config:  config,
		limiter: llm.NewLimiter(config.RateLimit, config.RateLimitInterval),
	}, nil
}

// CallLLM sends one chat completion request. Failures are returned as is;
// the calling node decides whether to retry.
func (c *Client) CallLLM(ctx context.Context, messages []llm.Message) (llm.Message, error) {
	if len(messages) == 0 {
		return llm.Message{}, llm.ErrNoMessages
	}
	if err := llm.WaitLimiter(ctx, c.limiter); err != nil {
		return llm.Message{}, err
	}

	openaiMessages, err := toOpenAIMessages(messages)
	if err != nil {
		return llm.Message{}, fmt.Errorf("failed to convert messages: %w", err)
	}

	c.mu.RLock()
	tools := c.tools
	c.mu.RUnlock()

	request := openai.ChatCompletionRequest{
		Model:            c.config.Model,
		Messages:         openaiMessages,
		Temperature:      c.config.Temperature,
		MaxTokens:        c.config.MaxTokens,
		FrequencyPenalty: c.config.FrequencyPenalty,
		PresencePenalty:  c.config.PresencePenalty,
		Tools:            tools,
	}
	if c.config.TopP != 1.0 {
		request.TopP = c.config.TopP
	}

	response, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return llm.Message{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(response.Choices) == 0 {
		return llm.Message{}, errors.New("no choices returned from OpenAI API")
	}

	choice := response.Choices[0]
	result := llm.Message{Role: llm.RoleAssistant, Content: choice.Message.Content}
	for _, toolCall := range choice.Message.ToolCalls {
		if toolCall.Type != openai.ToolTypeFunction {
			continue
		}
		var args map[string]any
		if toolCall.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &args); err != nil {
				return llm.Message{}, fmt.Errorf("failed to parse arguments of tool %s: %w", toolCall.Function.Name, err)
			}
		}
		result.ToolCalls = append(result.ToolCalls, llm.ToolCall{
			ID:   toolCall.ID,
			Name: toolCall.Function.Name,
			Args: args,
		})
	}
	return result, nil
}

// SetTools declares the tools the model may call on subsequent requests.
func (c *Client) SetTools(defs []llm.ToolDefinition) {
	tools := make([]openai.Tool, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}
	c.mu.Lock()
	c.tools = tools
	c.mu.Unlock()
}

// Name returns the provider name
func (c *Client) Name() string {
	return "openai"
}

// toOpenAIMessages converts generic messages to OpenAI format. Tool results
// become one tool message each.
func toOpenAIMessages(messages []llm.Message) ([]openai.ChatCompletionMessage, error) {
	var out []openai.ChatCompletionMessage

	for _, msg := range messages {
		if len(msg.ToolResults) > 0 {
			for _, tr := range msg.ToolResults {
				content := tr.Content
				if tr.IsError {
					content = "error: " + content
				}
				out = append(out, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    content,
					ToolCallID: tr.ID,
				})
			}
			continue
		}

		openaiMsg := openai.ChatCompletionMessage{Role: msg.Role}
		if len(msg.Media) > 0 {
			imageURL := fmt.Sprintf("data:%s;base64,%s", msg.MimeType, base64.StdEncoding.EncodeToString(msg.Media))
			openaiMsg.MultiContent = []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: msg.Content},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    imageURL,
						Detail: openai.ImageURLDetailAuto,
					},
				},
			}
		} else {
			openaiMsg.Content = msg.Content
		}

		for _, toolCall := range msg.ToolCalls {
			args, err := json.Marshal(toolCall.Args)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal tool arguments: %w", err)
			}
			openaiMsg.ToolCalls = append(openaiMsg.ToolCalls, openai.ToolCall{
				ID:   toolCall.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      toolCall.Name,
					Arguments: string(args),
				},
			})
		}
		out = append(out, openaiMsg)
	}

	return out, nil
}
