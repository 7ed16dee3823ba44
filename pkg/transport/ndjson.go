package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/prismgate/prism/pkg/protocol"
)

// NDJSONSink delivers stream events as newline-delimited JSON, one event per
// line, flushing after every write so clients observe events as they are
// produced. Safe for use by a single producer; the mutex guards against the
// transport reusing a sink across goroutines.
type NDJSONSink struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
	count   int
}

// NewNDJSONSink wraps an arbitrary writer.
func NewNDJSONSink(w io.Writer) *NDJSONSink {
	s := &NDJSONSink{w: w}
	if f, ok := w.(http.Flusher); ok {
		s.flusher = f
	}
	return s
}

// Write implements protocol.EventSink.
func (s *NDJSONSink) Write(ctx context.Context, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	s.count++
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

// Count returns the number of events written.
func (s *NDJSONSink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

var _ protocol.EventSink = (*NDJSONSink)(nil)

// countingSink forwards to an inner sink and invokes a hook per event.
type countingSink struct {
	inner protocol.EventSink
	onW   func()
}

func (s *countingSink) Write(ctx context.Context, event any) error {
	if err := s.inner.Write(ctx, event); err != nil {
		return err
	}
	if s.onW != nil {
		s.onW()
	}
	return nil
}
