package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/client"
	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/ThinkInAIXYZ/go-mcp/transport"
	"go.uber.org/zap"

	"github.com/alt-coder/pocketflow-go/v2/llm"
)

const (
	discoverTimeout = 10 * time.Second
	callTimeout     = 30 * time.Second
)

// MCPConfig lists the MCP servers to connect to.
type MCPConfig struct {
	Servers map[string]MCPServerConfig `yaml:"servers" json:"servers"`
}

// MCPServerConfig describes one stdio MCP server.
type MCPServerConfig struct {
	Command  string            `yaml:"command" json:"command"`
	Args     []string          `yaml:"args" json:"args"`
	Env      map[string]string `yaml:"env" json:"env"`
	Disabled bool              `yaml:"disabled" json:"disabled"`
}

// session is one connected MCP server.
type session interface {
	Tools(ctx context.Context) ([]llm.ToolDefinition, error)
	Call(ctx context.Context, call llm.ToolCall) (llm.ToolResult, error)
	Close() error
}

// connectFunc opens a session to a configured server.
type connectFunc func(ctx context.Context, name string, cfg MCPServerConfig) (session, error)

// mcpTool is a discovered tool and the server providing it.
type mcpTool struct {
	def    llm.ToolDefinition
	server string
}

// MCPManager connects to MCP servers, discovers their tools and executes
// calls against them. Tools are addressable both as "tool" and as
// "server.tool"; for the bare name the last server discovered wins.
type MCPManager struct {
	mu       sync.RWMutex
	config   MCPConfig
	sessions map[string]session
	tools    map[string]mcpTool
	connect  connectFunc
	logger   *zap.Logger
}

// NewMCPManager creates a manager for config. Nothing is connected until
// Initialize or AddServer.
func NewMCPManager(config *MCPConfig, logger *zap.Logger) *MCPManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := MCPConfig{Servers: make(map[string]MCPServerConfig)}
	if config != nil {
		maps.Copy(cfg.Servers, config.Servers)
	}
	return &MCPManager{
		config:   cfg,
		sessions: make(map[string]session),
		tools:    make(map[string]mcpTool),
		connect:  connectStdio,
		logger:   logger.With(zap.String("component", "mcp")),
	}
}

// Initialize connects every enabled server. A server that fails to start is
// logged and skipped.
func (m *MCPManager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := slices.Sorted(maps.Keys(m.config.Servers))
	for _, name := range names {
		cfg := m.config.Servers[name]
		if cfg.Disabled {
			continue
		}
		if err := m.initializeServer(ctx, name, cfg); err != nil {
			m.logger.Warn("failed to initialize MCP server", zap.String("server", name), zap.Error(err))
		}
	}
	return nil
}

// AddServer adds a server to the configuration and connects it unless it is
// disabled.
func (m *MCPManager) AddServer(ctx context.Context, name string, cfg MCPServerConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config.Servers[name] = cfg
	if cfg.Disabled {
		return nil
	}
	return m.initializeServer(ctx, name, cfg)
}

// initializeServer must be called with mu held.
func (m *MCPManager) initializeServer(ctx context.Context, name string, cfg MCPServerConfig) error {
	s, err := m.connect(ctx, name, cfg)
	if err != nil {
		return err
	}
	if old, ok := m.sessions[name]; ok {
		m.closeSession(name, old)
	}
	m.sessions[name] = s

	discoverCtx, cancel := context.WithTimeout(ctx, discoverTimeout)
	defer cancel()
	defs, err := s.Tools(discoverCtx)
	if err != nil {
		m.logger.Warn("failed to discover MCP tools", zap.String("server", name), zap.Error(err))
		return nil
	}
	for _, def := range defs {
		tool := mcpTool{def: def, server: name}
		m.tools[name+"."+def.Name] = tool
		m.tools[def.Name] = tool
	}
	m.logger.Info("MCP server connected", zap.String("server", name), zap.Int("tools", len(defs)))
	return nil
}

// Definitions returns each discovered tool once, sorted by name.
func (m *MCPManager) Definitions() []llm.ToolDefinition {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	var defs []llm.ToolDefinition
	for _, key := range slices.Sorted(maps.Keys(m.tools)) {
		tool := m.tools[key]
		id := tool.server + "." + tool.def.Name
		if seen[id] {
			continue
		}
		// a shadowed tool stays callable as server.tool but is not listed
		if bare, ok := m.tools[tool.def.Name]; ok && bare.server != tool.server {
			continue
		}
		seen[id] = true
		defs = append(defs, tool.def)
	}
	return defs
}

// Has reports whether a tool has been discovered.
func (m *MCPManager) Has(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.tools[name]
	return ok
}

// Execute calls the tool on the server that provides it. A result the server
// flags as an error is returned with IsError set and a nil error.
func (m *MCPManager) Execute(ctx context.Context, call llm.ToolCall) (llm.ToolResult, error) {
	m.mu.RLock()
	tool, ok := m.tools[call.Name]
	var s session
	if ok {
		s = m.sessions[tool.server]
	}
	m.mu.RUnlock()

	if !ok {
		return llm.ToolResult{}, notFound(call.Name)
	}
	if s == nil {
		return llm.ToolResult{}, fmt.Errorf("MCP client for server %q not available", tool.server)
	}

	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	forward := call
	forward.Name = tool.def.Name
	result, err := s.Call(callCtx, forward)
	if err != nil {
		return llm.ToolResult{}, fmt.Errorf("MCP tool %s failed: %w", call.Name, err)
	}
	result.ID, result.Name = call.ID, call.Name
	return result, nil
}

// RemoveServer disconnects a server and forgets its tools.
func (m *MCPManager) RemoveServer(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[name]; ok {
		m.closeSession(name, s)
		delete(m.sessions, name)
	}
	maps.DeleteFunc(m.tools, func(_ string, tool mcpTool) bool { return tool.server == name })
	delete(m.config.Servers, name)
}

// Close disconnects every server.
func (m *MCPManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, s := range m.sessions {
		m.closeSession(name, s)
	}
	m.sessions = make(map[string]session)
	m.tools = make(map[string]mcpTool)
	return nil
}

func (m *MCPManager) closeSession(name string, s session) {
	if err := s.Close(); err != nil {
		m.logger.Warn("failed to close MCP client", zap.String("server", name), zap.Error(err))
	}
}

// stdioSession is a session over a go-mcp stdio client.
type stdioSession struct {
	cli *client.Client
}

func connectStdio(_ context.Context, name string, cfg MCPServerConfig) (session, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("no command configured for MCP server %s", name)
	}

	var opts []transport.StdioClientTransportOption
	if env := environ(cfg.Env); len(env) > 0 {
		opts = append(opts, transport.WithStdioClientOptionEnv(env...))
	}
	t, err := transport.NewStdioClientTransport(cfg.Command, cfg.Args, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create stdio transport: %w", err)
	}

	cli, err := client.NewClient(t, client.WithClientInfo(&protocol.Implementation{
		Name:    "pocketflow-tools",
		Version: "2.0.0",
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP client: %w", err)
	}
	return &stdioSession{cli: cli}, nil
}

// environ renders env as KEY=VALUE pairs sorted by key. The pairs are
// appended to the parent process environment.
func environ(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		out = append(out, k+"="+env[k])
	}
	return out
}

func (s *stdioSession) Tools(ctx context.Context) ([]llm.ToolDefinition, error) {
	resp, err := s.cli.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	defs := make([]llm.ToolDefinition, 0, len(resp.Tools))
	for _, tool := range resp.Tools {
		params, err := schemaMap(tool.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", tool.Name, err)
		}
		defs = append(defs, llm.ToolDefinition{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  params,
		})
	}
	return defs, nil
}

func (s *stdioSession) Call(ctx context.Context, call llm.ToolCall) (llm.ToolResult, error) {
	resp, err := s.cli.CallTool(ctx, &protocol.CallToolRequest{
		Name:      call.Name,
		Arguments: call.Args,
	})
	if err != nil {
		return llm.ToolResult{}, err
	}

	result := llm.ToolResult{IsError: resp.IsError}
	var text []string
	for _, content := range resp.Content {
		switch c := content.(type) {
		case *protocol.TextContent:
			text = append(text, c.Text)
		case *protocol.ImageContent:
			result.Media = c.Data
			result.MimeType = c.MimeType
		}
	}
	result.Content = strings.Join(text, "\n")
	return result, nil
}

func (s *stdioSession) Close() error {
	return s.cli.Close()
}

// schemaMap converts a protocol input schema into the generic JSON schema
// map carried by llm.ToolDefinition.
func schemaMap(schema any) (map[string]any, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
