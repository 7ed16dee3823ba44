// Package mcp implements the tool-invocation protocol adapter: list and
// call tools, read resources, and render prompt templates, in the style of
// the Model Context Protocol's request/response semantics.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prismgate/prism/pkg/agent"
	"github.com/prismgate/prism/pkg/protocol"
	"github.com/prismgate/prism/pkg/tool"
)

// ProtocolName is the registry name for this adapter.
const ProtocolName = "mcp"

// Method is the closed set of supported request methods. Dispatch is a
// switch over this set so an unsupported method is rejected up front.
type Method string

const (
	MethodListTools     Method = "list_tools"
	MethodCallTool      Method = "call_tool"
	MethodListResources Method = "list_resources"
	MethodReadResource  Method = "read_resource"
	MethodListPrompts   Method = "list_prompts"
	MethodGetPrompt     Method = "get_prompt"
)

// Request is the non-streaming request envelope.
type Request struct {
	Method    Method         `json:"method"`
	Name      string         `json:"name,omitempty"`      // call_tool, get_prompt
	Arguments map[string]any `json:"arguments,omitempty"` // call_tool, get_prompt
	URI       string         `json:"uri,omitempty"`       // read_resource
}

// ContentBlock is one unit of call_tool response content.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallToolResult is the call_tool response shape. Execution failures are
// reported with IsError set and a human-readable message, never as a
// transport fault.
type CallToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// StreamRequest is the streaming request envelope.
type StreamRequest struct {
	AgentID   string         `json:"agent_id,omitempty"`
	Message   string         `json:"message"`
	SessionID string         `json:"session_id,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
}

// StreamEvent tags one re-emitted agent chunk, or the terminal marker.
type StreamEvent struct {
	Type      string         `json:"type"` // chunk type, "done", or "error"
	Content   string         `json:"content,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Adapter is the tool-invocation protocol adapter.
type Adapter struct {
	tools        *tool.Registry
	resources    *tool.ResourceSet
	prompts      *tool.PromptSet
	agents       *agent.Registry
	defaultAgent string
}

// Config assembles an Adapter.
type Config struct {
	Tools        *tool.Registry
	Resources    *tool.ResourceSet
	Prompts      *tool.PromptSet
	Agents       *agent.Registry
	DefaultAgent string
}

// New creates the adapter.
func New(cfg Config) *Adapter {
	if cfg.Tools == nil {
		cfg.Tools = tool.NewRegistry()
	}
	if cfg.Resources == nil {
		cfg.Resources = tool.NewResourceSet()
	}
	if cfg.Prompts == nil {
		cfg.Prompts = tool.NewPromptSet()
	}
	return &Adapter{
		tools:        cfg.Tools,
		resources:    cfg.Resources,
		prompts:      cfg.Prompts,
		agents:       cfg.Agents,
		defaultAgent: cfg.DefaultAgent,
	}
}

// Name implements protocol.Adapter.
func (a *Adapter) Name() string {
	return ProtocolName
}

// Execute dispatches a non-streaming request on its method.
func (a *Adapter) Execute(ctx context.Context, body json.RawMessage) (any, error) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, protocol.ClientErrorf("malformed request body: %v", err)
	}

	switch req.Method {
	case MethodListTools:
		return map[string]any{"tools": a.tools.ListInfo()}, nil

	case MethodCallTool:
		return a.callTool(ctx, req)

	case MethodListResources:
		return map[string]any{"resources": a.resources.List()}, nil

	case MethodReadResource:
		res, err := a.resources.Read(req.URI)
		if err != nil {
			return nil, protocol.ClientErrorf("%v", err)
		}
		return map[string]any{
			"uri":       res.URI,
			"mime_type": res.MimeType,
			"text":      res.Content,
		}, nil

	case MethodListPrompts:
		return map[string]any{"prompts": a.prompts.List()}, nil

	case MethodGetPrompt:
		p, err := a.prompts.Get(req.Name)
		if err != nil {
			return nil, protocol.ClientErrorf("%v", err)
		}
		params := make(map[string]string, len(req.Arguments))
		for k, v := range req.Arguments {
			params[k] = fmt.Sprint(v)
		}
		text, err := p.Render(params)
		if err != nil {
			return nil, protocol.ClientErrorf("%v", err)
		}
		return map[string]any{"name": p.Name, "text": text}, nil

	default:
		return nil, protocol.ClientErrorf("unsupported method '%s'", req.Method)
	}
}

// callTool validates and executes a named tool. Unknown names are client
// errors; validation and execution failures come back as IsError results.
func (a *Adapter) callTool(ctx context.Context, req Request) (any, error) {
	result, err := a.tools.Execute(ctx, req.Name, req.Arguments)
	if err != nil {
		var notFound *tool.NotFoundError
		if errors.As(err, &notFound) {
			return nil, protocol.ClientErrorf("%v", err)
		}
		slog.Debug("tool call failed", "tool", req.Name, "error", err)
		return &CallToolResult{
			Content: []ContentBlock{{Type: "text", Text: err.Error()}},
			IsError: true,
		}, nil
	}

	return &CallToolResult{
		Content: []ContentBlock{{Type: "text", Text: result}},
	}, nil
}

// ExecuteStream re-emits each agent chunk as a tagged event and appends a
// terminal done marker. Mid-stream errors become a terminal error event.
func (a *Adapter) ExecuteStream(ctx context.Context, body json.RawMessage, sink protocol.EventSink) error {
	var req StreamRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return protocol.ClientErrorf("malformed request body: %v", err)
	}

	ag, err := a.resolveAgent(req.AgentID)
	if err != nil {
		return protocol.ClientErrorf("%v", err)
	}

	input := agent.Input{
		Message:   req.Message,
		SessionID: req.SessionID,
		Context:   req.Context,
	}

	for chunk, err := range ag.Stream(ctx, input) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return sink.Write(ctx, &StreamEvent{
				Type:      "error",
				Content:   ctxErr.Error(),
				Timestamp: time.Now().UTC(),
			})
		}
		if err != nil {
			return sink.Write(ctx, &StreamEvent{
				Type:      "error",
				Content:   err.Error(),
				Timestamp: time.Now().UTC(),
			})
		}
		event := &StreamEvent{
			Type:      string(chunk.Type),
			Content:   chunk.Content,
			Metadata:  chunk.Metadata,
			Timestamp: time.Now().UTC(),
		}
		if err := sink.Write(ctx, event); err != nil {
			return fmt.Errorf("failed to write stream event: %w", err)
		}
		if chunk.Type == agent.ChunkError {
			return nil
		}
	}

	return sink.Write(ctx, &StreamEvent{Type: "done", Timestamp: time.Now().UTC()})
}

func (a *Adapter) resolveAgent(id string) (agent.Agent, error) {
	if a.agents == nil {
		return nil, fmt.Errorf("no agents configured")
	}
	if id == "" {
		id = a.defaultAgent
	}
	return a.agents.Resolve(id)
}

var _ protocol.Adapter = (*Adapter)(nil)
