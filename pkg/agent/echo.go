package agent

import (
	"context"
	"iter"
	"strings"
)

// EchoAgent is a loopback agent: it returns the input message as its output.
// It gives the gateway a working default agent for smoke testing a deployment
// end to end without any model behind it.
type EchoAgent struct {
	name string
}

// NewEchoAgent creates the loopback agent.
func NewEchoAgent(name string) *EchoAgent {
	if name == "" {
		name = "echo"
	}
	return &EchoAgent{name: name}
}

func (a *EchoAgent) Name() string {
	return a.name
}

func (a *EchoAgent) Description() string {
	return "Loopback agent that echoes the input message"
}

func (a *EchoAgent) Invoke(ctx context.Context, input Input) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Output{Content: input.Message}, nil
}

// Stream yields the message word by word so streaming consumers observe
// multiple chunks.
func (a *EchoAgent) Stream(ctx context.Context, input Input) iter.Seq2[*StreamChunk, error] {
	return func(yield func(*StreamChunk, error) bool) {
		words := strings.SplitAfter(input.Message, " ")
		for _, word := range words {
			if word == "" {
				continue
			}
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(Text(word), nil) {
				return
			}
		}
	}
}

var _ Agent = (*EchoAgent)(nil)
