// Package agent defines the contract every agent served by the gateway
// implements, together with the wire-neutral stream chunk model that all
// protocol adapters translate from.
//
// An agent is an opaque producer: it takes a message and produces text and
// tool-call output, either all at once (Invoke) or incrementally (Stream).
// How it computes its response is outside the gateway's concern.
package agent

import (
	"context"
	"iter"
)

// Input is the immutable per-invocation input to an agent.
type Input struct {
	// Message is the user message text.
	Message string `json:"message"`

	// SessionID optionally links the invocation to a conversation.
	SessionID string `json:"session_id,omitempty"`

	// Context carries free-form invocation context.
	Context map[string]any `json:"context,omitempty"`
}

// Output is the result of a single non-streaming invocation.
type Output struct {
	// Content is the agent's response text.
	Content string `json:"content"`

	// ToolCalls records any tool invocations the agent performed.
	ToolCalls []ToolCallRecord `json:"tool_calls,omitempty"`

	// Metadata carries additional result data.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ToolCallRecord describes one tool invocation inside an Output.
type ToolCallRecord struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Result    string         `json:"result,omitempty"`
}

// Agent is the protocol-agnostic contract the gateway serves.
//
// Stream returns a lazy, finite sequence of chunks. The sequence is
// single-consumer and not restartable: the agent may hold one-shot internal
// state (network calls already issued), so driving the same sequence twice
// is undefined. Exactly one adapter consumes a given stream.
type Agent interface {
	// Name returns the agent's unique identifier.
	Name() string

	// Description returns a human-readable description of the agent.
	Description() string

	// Invoke runs the agent to completion and returns the full result.
	Invoke(ctx context.Context, input Input) (*Output, error)

	// Stream runs the agent and yields chunks as they are produced.
	// Iteration stops early when the yield function returns false or the
	// context is cancelled; the sequence always terminates.
	Stream(ctx context.Context, input Input) iter.Seq2[*StreamChunk, error]
}
