// Package mcptoolset exposes tools served by an external MCP server as a
// tool.Source.
//
// MCP (Model Context Protocol) servers run as subprocesses and communicate
// over stdio. The connection is established lazily on the first Tools()
// call.
package mcptoolset

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/prismgate/prism/pkg/tool"
)

// Config configures an MCP toolset.
type Config struct {
	// Name identifies this toolset.
	Name string `yaml:"name"`

	// Command launches the MCP server subprocess.
	Command string `yaml:"command"`

	// Args for the subprocess.
	Args []string `yaml:"args"`

	// Env for the subprocess, as KEY=VALUE pairs after conversion.
	Env map[string]string `yaml:"env"`

	// Filter limits which tools are exposed. Empty means all.
	Filter []string `yaml:"filter"`
}

// Toolset is an MCP-backed tool source with lazy initialization.
type Toolset struct {
	cfg Config

	mu        sync.Mutex
	client    *client.Client
	tools     []tool.Tool
	connected bool
	filterSet map[string]bool
}

// New creates an MCP toolset. The server is not contacted until the first
// Tools() call.
func New(cfg Config) (*Toolset, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("command is required")
	}

	var filterSet map[string]bool
	if len(cfg.Filter) > 0 {
		filterSet = make(map[string]bool, len(cfg.Filter))
		for _, name := range cfg.Filter {
			filterSet[name] = true
		}
	}

	return &Toolset{cfg: cfg, filterSet: filterSet}, nil
}

// Name returns the toolset name.
func (t *Toolset) Name() string {
	return t.cfg.Name
}

// Tools returns the server's tools, connecting lazily if needed.
func (t *Toolset) Tools(ctx context.Context) ([]tool.Tool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		if err := t.connect(ctx); err != nil {
			return nil, fmt.Errorf("failed to connect to MCP server: %w", err)
		}
	}
	return t.tools, nil
}

// Close shuts down the MCP server connection.
func (t *Toolset) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	t.connected = false
	return err
}

func (t *Toolset) connect(ctx context.Context) error {
	mcpClient, err := client.NewStdioMCPClient(
		t.cfg.Command,
		t.convertEnv(t.cfg.Env),
		t.cfg.Args...,
	)
	if err != nil {
		return fmt.Errorf("failed to create MCP client: %w", err)
	}

	if err := mcpClient.Start(ctx); err != nil {
		return fmt.Errorf("failed to start MCP client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "prism",
		Version: "0.1.0",
	}
	initReq.Params.ProtocolVersion = "2024-11-05"

	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return fmt.Errorf("failed to initialize MCP: %w", err)
	}

	listReq := mcp.ListToolsRequest{}
	listResp, err := mcpClient.ListTools(ctx, listReq)
	if err != nil {
		mcpClient.Close()
		return fmt.Errorf("failed to list tools: %w", err)
	}

	var tools []tool.Tool
	for _, mcpTool := range listResp.Tools {
		if t.filterSet != nil && !t.filterSet[mcpTool.Name] {
			continue
		}
		tools = append(tools, &remoteTool{
			toolset: t,
			name:    mcpTool.Name,
			desc:    mcpTool.Description,
			schema:  convertSchema(mcpTool.InputSchema),
		})
	}

	t.client = mcpClient
	t.tools = tools
	t.connected = true

	slog.Info("connected to MCP server",
		"name", t.cfg.Name,
		"command", t.cfg.Command,
		"tools", len(tools),
	)
	return nil
}

func (t *Toolset) convertEnv(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

// remoteTool adapts one remote MCP tool to the tool.Tool interface.
type remoteTool struct {
	toolset *Toolset
	name    string
	desc    string
	schema  map[string]any
}

func (w *remoteTool) Name() string           { return w.name }
func (w *remoteTool) Description() string    { return w.desc }
func (w *remoteTool) Schema() map[string]any { return w.schema }

func (w *remoteTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	w.toolset.mu.Lock()
	mcpClient := w.toolset.client
	w.toolset.mu.Unlock()

	if mcpClient == nil {
		return "", fmt.Errorf("MCP client not connected")
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = w.name
	req.Params.Arguments = args

	resp, err := mcpClient.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("MCP call failed: %w", err)
	}

	var texts []string
	for _, content := range resp.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			texts = append(texts, textContent.Text)
		}
	}
	joined := strings.Join(texts, "\n")

	if resp.IsError {
		if joined == "" {
			joined = "unknown error"
		}
		return "", fmt.Errorf("%s", joined)
	}
	return joined, nil
}

// convertSchema converts the MCP schema struct to a plain map.
func convertSchema(schema mcp.ToolInputSchema) map[string]any {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}

var _ tool.Source = (*Toolset)(nil)
