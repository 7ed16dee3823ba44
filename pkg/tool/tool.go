// Package tool defines the tool abstraction exposed through the
// tool-invocation protocol, together with the registry that aggregates
// tools from local and remote sources.
package tool

import (
	"context"
	"fmt"
)

// Tool is a named capability with a JSON-schema parameter declaration.
type Tool interface {
	// Name returns the unique tool name.
	Name() string

	// Description returns a human-readable description.
	Description() string

	// Schema returns the JSON schema for the tool's arguments:
	// {"type": "object", "properties": {...}, "required": [...]}.
	// Nil means the tool takes no arguments.
	Schema() map[string]any

	// Execute runs the tool. Execution failures are returned as errors;
	// the adapter reports them as structured results, never transport
	// faults.
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// Source contributes tools to the registry (local set, MCP server, ...).
type Source interface {
	// Name identifies the source.
	Name() string

	// Tools returns the tools this source provides, connecting lazily
	// if needed.
	Tools(ctx context.Context) ([]Tool, error)
}

// Info is the listing form of a tool.
type Info struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"input_schema,omitempty"`
}

// NotFoundError distinguishes unknown tool names from execution failures.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tool '%s' not found", e.Name)
}
