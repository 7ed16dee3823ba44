// Package testutils provides shared testing helpers for the gateway.
package testutils

import (
	"context"
	"iter"
	"sync"

	"github.com/prismgate/prism/pkg/agent"
)

// ScriptedAgent yields a fixed chunk sequence. StreamErr, when set, is
// yielded as an iterator error after the scripted chunks.
type ScriptedAgent struct {
	AgentName string
	Chunks    []*agent.StreamChunk
	StreamErr error

	mu      sync.Mutex
	streams int
}

// NewScriptedAgent builds an agent that streams the given chunks.
func NewScriptedAgent(name string, chunks ...*agent.StreamChunk) *ScriptedAgent {
	return &ScriptedAgent{AgentName: name, Chunks: chunks}
}

func (a *ScriptedAgent) Name() string {
	return a.AgentName
}

func (a *ScriptedAgent) Description() string {
	return "scripted test agent"
}

func (a *ScriptedAgent) Invoke(ctx context.Context, input agent.Input) (*agent.Output, error) {
	if a.StreamErr != nil {
		return nil, a.StreamErr
	}
	var content string
	for _, c := range a.Chunks {
		if c.Type == agent.ChunkText {
			content += c.Content
		}
	}
	return &agent.Output{Content: content}, nil
}

func (a *ScriptedAgent) Stream(ctx context.Context, input agent.Input) iter.Seq2[*agent.StreamChunk, error] {
	a.mu.Lock()
	a.streams++
	a.mu.Unlock()

	return func(yield func(*agent.StreamChunk, error) bool) {
		for _, c := range a.Chunks {
			if !yield(c, nil) {
				return
			}
		}
		if a.StreamErr != nil {
			yield(nil, a.StreamErr)
		}
	}
}

// Streams reports how many times Stream was driven.
func (a *ScriptedAgent) Streams() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.streams
}

var _ agent.Agent = (*ScriptedAgent)(nil)

// CaptureSink records every event written to it, in order.
type CaptureSink struct {
	mu     sync.Mutex
	events []any

	// WriteErr, when set, is returned by every Write.
	WriteErr error
}

// NewCaptureSink creates an empty capture sink.
func NewCaptureSink() *CaptureSink {
	return &CaptureSink{}
}

func (s *CaptureSink) Write(ctx context.Context, event any) error {
	if s.WriteErr != nil {
		return s.WriteErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns the captured events in write order.
func (s *CaptureSink) Events() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]any, len(s.events))
	copy(out, s.events)
	return out
}

// Len returns the number of captured events.
func (s *CaptureSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}
