package agent

// ChunkType discriminates the stream chunk union.
type ChunkType string

const (
	// ChunkText carries a delta of the agent's response text.
	ChunkText ChunkType = "text"

	// ChunkToolStart marks the beginning of a tool invocation. Content is
	// the tool name; arguments travel in Metadata["arguments"].
	ChunkToolStart ChunkType = "tool_start"

	// ChunkToolEnd marks the completion of a tool invocation. Content is
	// the tool result.
	ChunkToolEnd ChunkType = "tool_end"

	// ChunkError reports an agent-side failure. A chunk of this type is
	// terminal: no further chunks follow it.
	ChunkError ChunkType = "error"
)

// StreamChunk is the wire-neutral unit of streaming agent output. Adapters
// translate the ordered chunk sequence into protocol-specific events.
type StreamChunk struct {
	Type     ChunkType      `json:"type"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Text returns a text chunk.
func Text(content string) *StreamChunk {
	return &StreamChunk{Type: ChunkText, Content: content}
}

// ToolStart returns a tool_start chunk for the named tool.
func ToolStart(name string, args map[string]any) *StreamChunk {
	c := &StreamChunk{Type: ChunkToolStart, Content: name}
	if args != nil {
		c.Metadata = map[string]any{"arguments": args}
	}
	return c
}

// ToolEnd returns a tool_end chunk carrying the tool result.
func ToolEnd(name, result string) *StreamChunk {
	return &StreamChunk{
		Type:     ChunkToolEnd,
		Content:  result,
		Metadata: map[string]any{"tool": name},
	}
}

// Errorf returns a terminal error chunk.
func Errorf(message string) *StreamChunk {
	return &StreamChunk{Type: ChunkError, Content: message}
}

// ToolName returns the tool name associated with a tool_start or tool_end
// chunk, or the empty string.
func (c *StreamChunk) ToolName() string {
	switch c.Type {
	case ChunkToolStart:
		return c.Content
	case ChunkToolEnd:
		if name, ok := c.Metadata["tool"].(string); ok {
			return name
		}
	}
	return ""
}

// Arguments returns the tool arguments attached to a tool_start chunk.
func (c *StreamChunk) Arguments() map[string]any {
	if args, ok := c.Metadata["arguments"].(map[string]any); ok {
		return args
	}
	return nil
}
