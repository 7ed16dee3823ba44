// Package protocol defines the adapter contract shared by every protocol
// the gateway speaks, and the registry the HTTP layer uses to dispatch
// requests to the right adapter.
//
// Adapters translate the agent's chunk stream into protocol-specific wire
// events. The non-streaming path takes a raw request body and returns a
// protocol-shaped response; the streaming path writes one event at a time
// into an EventSink, which the transport frames as newline-delimited JSON.
package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prismgate/prism/pkg/registry"
)

// Adapter translates between the agent contract and one external protocol.
type Adapter interface {
	// Name returns the protocol name used for registry dispatch.
	Name() string

	// Execute handles a non-streaming request and returns the
	// protocol-shaped response value, ready for JSON encoding.
	Execute(ctx context.Context, body json.RawMessage) (any, error)

	// ExecuteStream drives the agent's stream for one request, writing
	// each wire event to sink in order. A nil error means the protocol's
	// terminal event was written; producer failures are converted to
	// terminal error events, not returned.
	ExecuteStream(ctx context.Context, body json.RawMessage, sink EventSink) error
}

// EventSink receives ordered wire events during a streaming execution.
// Writes block until the event is handed to the transport; a write error
// aborts the stream.
type EventSink interface {
	Write(ctx context.Context, event any) error
}

// ClientError marks a request-level failure the caller can correct:
// unknown names, malformed bodies, invalid arguments. The transport maps
// it to a 4xx status instead of a transport fault.
type ClientError struct {
	Message string
}

func (e *ClientError) Error() string {
	return e.Message
}

// ClientErrorf builds a ClientError.
func ClientErrorf(format string, args ...any) *ClientError {
	return &ClientError{Message: fmt.Sprintf(format, args...)}
}

// IsClientError reports whether err is request-correctable.
func IsClientError(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce)
}

// Registry maps protocol names to adapters. Registration happens once at
// startup driven by configuration; lookups thereafter are pure reads.
type Registry struct {
	*registry.BaseRegistry[Adapter]
}

// NewRegistry creates an empty protocol registry.
func NewRegistry() *Registry {
	return &Registry{BaseRegistry: registry.NewBaseRegistry[Adapter]()}
}

// RegisterAdapter adds an adapter under its own protocol name.
func (r *Registry) RegisterAdapter(a Adapter) error {
	return r.Register(a.Name(), a)
}

// IsRegistered reports whether the named protocol is available.
func (r *Registry) IsRegistered(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// ListProtocols returns the registered protocol names, sorted.
func (r *Registry) ListProtocols() []string {
	return r.Names()
}
