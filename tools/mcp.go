package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// ============================================================================
// MCP TOOL SOURCE
// ============================================================================

// MCPConfig configures an MCP stdio source.
type MCPConfig struct {
	// Name identifies this source.
	Name string `yaml:"name"`

	// Command launches the MCP server subprocess.
	Command string `yaml:"command"`

	// Args for the subprocess.
	Args []string `yaml:"args"`

	// Env for the subprocess, KEY=VALUE pairs.
	Env map[string]string `yaml:"env"`

	// Filter limits which tools are exposed.
	Filter []string `yaml:"filter"`
}

// MCPSource exposes the tools of an MCP server over stdio. The connection
// is established lazily on first Discover.
type MCPSource struct {
	cfg MCPConfig

	mu        sync.Mutex
	client    *client.Client
	tools     []Tool
	connected bool
	filterSet map[string]bool
}

// NewMCPSource creates an MCP stdio source.
func NewMCPSource(cfg MCPConfig) (*MCPSource, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("mcp source: command is required")
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Command
	}

	var filterSet map[string]bool
	if len(cfg.Filter) > 0 {
		filterSet = make(map[string]bool, len(cfg.Filter))
		for _, name := range cfg.Filter {
			filterSet[name] = true
		}
	}
	return &MCPSource{cfg: cfg, filterSet: filterSet}, nil
}

// Name returns the source name.
func (s *MCPSource) Name() string {
	return s.cfg.Name
}

// Discover connects if needed and returns the server's tools.
func (s *MCPSource) Discover(ctx context.Context) ([]Tool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		if err := s.connect(ctx); err != nil {
			return nil, fmt.Errorf("failed to connect to MCP server: %w", err)
		}
	}
	return s.tools, nil
}

// Close shuts the MCP subprocess down.
func (s *MCPSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	s.connected = false
	s.tools = nil
	return err
}

func (s *MCPSource) connect(ctx context.Context) error {
	env := make([]string, 0, len(s.cfg.Env))
	for k, v := range s.cfg.Env {
		env = append(env, k+"="+v)
	}

	mcpClient, err := client.NewStdioMCPClient(s.cfg.Command, env, s.cfg.Args...)
	if err != nil {
		return fmt.Errorf("failed to create MCP client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "agentsharp",
		Version: "1.0.0",
	}
	initReq.Params.ProtocolVersion = "2024-11-05"

	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return fmt.Errorf("failed to initialize MCP: %w", err)
	}

	listResp, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		mcpClient.Close()
		return fmt.Errorf("failed to list tools: %w", err)
	}

	var tools []Tool
	for _, mcpTool := range listResp.Tools {
		if s.filterSet != nil && !s.filterSet[mcpTool.Name] {
			continue
		}
		tools = append(tools, &remoteTool{
			source: s,
			name:   mcpTool.Name,
			desc:   mcpTool.Description,
			schema: convertMCPSchema(mcpTool.InputSchema),
		})
	}

	s.client = mcpClient
	s.tools = tools
	s.connected = true

	slog.Info("Connected to MCP server",
		"name", s.cfg.Name, "command", s.cfg.Command, "tools", len(tools))
	return nil
}

// remoteTool adapts one remote MCP tool to the Tool contract.
type remoteTool struct {
	source *MCPSource
	name   string
	desc   string
	schema map[string]interface{}
}

func (t *remoteTool) GetName() string        { return t.name }
func (t *remoteTool) GetDescription() string { return t.desc }

func (t *remoteTool) GetParameterSchema() map[string]interface{} {
	return t.schema
}

func (t *remoteTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	t.source.mu.Lock()
	mcpClient := t.source.client
	t.source.mu.Unlock()

	if mcpClient == nil {
		return nil, fmt.Errorf("MCP client not connected")
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = t.name
	req.Params.Arguments = params

	resp, err := mcpClient.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("MCP call failed: %w", err)
	}
	return parseMCPResult(resp)
}

// parseMCPResult collapses the MCP content blocks into a plain result.
func parseMCPResult(resp *mcp.CallToolResult) (interface{}, error) {
	var texts []string
	for _, content := range resp.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			texts = append(texts, textContent.Text)
		}
	}

	if resp.IsError {
		if len(texts) > 0 {
			return nil, fmt.Errorf("%s", texts[0])
		}
		return nil, fmt.Errorf("unknown MCP tool error")
	}

	switch len(texts) {
	case 0:
		return nil, nil
	case 1:
		return texts[0], nil
	default:
		return texts, nil
	}
}

func convertMCPSchema(schema mcp.ToolInputSchema) map[string]interface{} {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}
