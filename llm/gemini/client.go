package gemini

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/alt-coder/pocketflow-go/v2/llm"
)

// Client implements llm.Provider for Google's Gemini models
type Client struct {
	genaiClient *genai.Client
	config      *Config
	limiter     *rate.Limiter

	mu    sync.RWMutex
	tools []*genai.Tool
}

var (
	_ llm.Provider  = (*Client)(nil)
	_ llm.ToolAware = (*Client)(nil)
)

// NewClient creates a new Gemini client with the provided configuration
func NewClient(ctx context.Context, config *Config) (*Client, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	backend := config.Backend
	if backend == genai.BackendUnspecified {
		backend = genai.BackendGeminiAPI
	}
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      config.APIKey,
		Backend:     backend,
		HTTPOptions: genai.HTTPOptions{BaseURL: config.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Client{
		genaiClient: genaiClient,
		config:      config,
		limiter:     llm.NewLimiter(config.RateLimit, config.RateLimitInterval),
	}, nil
}

// CallLLM sends one GenerateContent request. Failures are returned as is;
// the calling node decides whether to retry.
func (c *Client) CallLLM(ctx context.Context, messages []llm.Message) (llm.Message, error) {
	if len(messages) == 0 {
		return llm.Message{}, llm.ErrNoMessages
	}
	if err := llm.WaitLimiter(ctx, c.limiter); err != nil {
		return llm.Message{}, err
	}

	system, contents := toGenaiContents(messages)

	c.mu.RLock()
	tools := c.tools
	c.mu.RUnlock()

	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(c.config.Temperature),
		SystemInstruction: system,
		Tools:             tools,
	}
	if c.config.MaxTokens > 0 {
		config.MaxOutputTokens = int32(c.config.MaxTokens)
	}

	response, err := c.genaiClient.Models.GenerateContent(ctx, c.config.Model, contents, config)
	if err != nil {
		return llm.Message{}, fmt.Errorf("failed to generate content: %w", err)
	}

	result := llm.Message{Role: llm.RoleAssistant, Content: response.Text()}
	for _, functionCall := range response.FunctionCalls() {
		result.ToolCalls = append(result.ToolCalls, llm.ToolCall{
			ID:   functionCall.ID,
			Name: functionCall.Name,
			Args: functionCall.Args,
		})
	}
	return result, nil
}

// SetTools declares the tools the model may call on subsequent requests.
func (c *Client) SetTools(defs []llm.ToolDefinition) {
	var tools []*genai.Tool
	if len(defs) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(defs))
		for _, def := range defs {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:                 def.Name,
				Description:          def.Description,
				ParametersJsonSchema: def.Parameters,
			})
		}
		tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	c.mu.Lock()
	c.tools = tools
	c.mu.Unlock()
}

// Name returns the provider name
func (c *Client) Name() string {
	return "gemini"
}

// toGenaiContents converts generic messages to Gemini format. System
// messages are joined into the system instruction.
func toGenaiContents(messages []llm.Message) (*genai.Content, []*genai.Content) {
	var system *genai.Content
	var contents []*genai.Content

	for _, msg := range messages {
		if msg.Role == llm.RoleSystem {
			if system == nil {
				system = &genai.Content{}
			}
			system.Parts = append(system.Parts, &genai.Part{Text: msg.Content})
			continue
		}

		content := &genai.Content{Role: getRole(msg.Role)}
		if msg.Content != "" {
			content.Parts = append(content.Parts, &genai.Part{Text: msg.Content})
		}
		if len(msg.Media) > 0 {
			content.Parts = append(content.Parts, &genai.Part{
				InlineData: &genai.Blob{
					MIMEType: msg.MimeType,
					Data:     msg.Media,
				},
			})
		}
		for _, call := range msg.ToolCalls {
			part := genai.NewPartFromFunctionCall(call.Name, call.Args)
			part.FunctionCall.ID = call.ID
			content.Parts = append(content.Parts, part)
		}
		for _, tr := range msg.ToolResults {
			key := "output"
			if tr.IsError {
				key = "error"
			}
			part := genai.NewPartFromFunctionResponse(tr.Name, map[string]any{key: tr.Content})
			part.FunctionResponse.ID = tr.ID
			content.Parts = append(content.Parts, part)
		}
		if len(content.Parts) == 0 {
			content.Parts = []*genai.Part{{Text: ""}}
		}
		contents = append(contents, content)
	}

	return system, contents
}

func getRole(role string) string {
	switch role {
	case llm.RoleAssistant:
		return genai.RoleModel
	default:
		return genai.RoleUser
	}
}
