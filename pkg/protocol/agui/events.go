package agui

import (
	"time"
)

// EventType enumerates every UI stream event. The set is closed: consumers
// can switch over it exhaustively.
type EventType string

const (
	EventRunStarted         EventType = "run_started"
	EventRunFinished        EventType = "run_finished"
	EventRunFailed          EventType = "run_failed"
	EventTextMessageStart   EventType = "text_message_start"
	EventTextMessageContent EventType = "text_message_content"
	EventTextMessageEnd     EventType = "text_message_end"
	EventToolCallStart      EventType = "tool_call_start"
	EventToolCallProgress   EventType = "tool_call_progress"
	EventToolCallEnd        EventType = "tool_call_end"
	EventToolCallError      EventType = "tool_call_error"
	EventStateSync          EventType = "state_sync"
	EventStateUpdate        EventType = "state_update"
	EventError              EventType = "error"
)

// Event is the single wire envelope for all UI stream events. Every event
// carries the event tag and a timestamp; run-scoped events carry the run id.
// The remaining fields are populated per event type.
type Event struct {
	Event     EventType `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id,omitempty"`

	// run_started / run_finished / run_failed
	AgentName string         `json:"agent_name,omitempty"`
	Message   string         `json:"message,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Error     string         `json:"error,omitempty"`
	ErrorType string         `json:"error_type,omitempty"`

	// text_message_*
	MessageID string `json:"message_id,omitempty"`
	Role      string `json:"role,omitempty"`
	Delta     string `json:"delta,omitempty"`
	Content   string `json:"content,omitempty"`

	// tool_call_*
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolName   string         `json:"tool_name,omitempty"`
	Arguments  map[string]any `json:"arguments,omitempty"`
	Result     string         `json:"result,omitempty"`
	Success    *bool          `json:"success,omitempty"`

	// state_sync / state_update
	State      map[string]any `json:"state,omitempty"`
	StateDelta map[string]any `json:"state_delta,omitempty"`
	Path       string         `json:"path,omitempty"`
	Version    int64          `json:"version,omitempty"`
}

func newEvent(et EventType, runID string) *Event {
	return &Event{
		Event:     et,
		Timestamp: time.Now().UTC(),
		RunID:     runID,
	}
}

// NewRunStartedEvent creates a run_started event.
func NewRunStartedEvent(runID, agentName, message string, metadata map[string]any) *Event {
	e := newEvent(EventRunStarted, runID)
	e.AgentName = agentName
	e.Message = message
	e.Metadata = metadata
	return e
}

// NewRunFinishedEvent creates a run_finished event.
func NewRunFinishedEvent(runID, content string, metadata map[string]any) *Event {
	e := newEvent(EventRunFinished, runID)
	e.Content = content
	e.Metadata = metadata
	return e
}

// NewRunFailedEvent creates a run_failed event.
func NewRunFailedEvent(runID, errText, errType string, metadata map[string]any) *Event {
	e := newEvent(EventRunFailed, runID)
	e.Error = errText
	e.ErrorType = errType
	e.Metadata = metadata
	return e
}

// NewTextMessageStartEvent creates a text_message_start event.
func NewTextMessageStartEvent(runID, messageID, role string) *Event {
	e := newEvent(EventTextMessageStart, runID)
	e.MessageID = messageID
	e.Role = role
	return e
}

// NewTextMessageContentEvent creates a text_message_content event.
func NewTextMessageContentEvent(runID, messageID, delta string) *Event {
	e := newEvent(EventTextMessageContent, runID)
	e.MessageID = messageID
	e.Delta = delta
	return e
}

// NewTextMessageEndEvent creates a text_message_end event carrying the full
// accumulated content.
func NewTextMessageEndEvent(runID, messageID, content string) *Event {
	e := newEvent(EventTextMessageEnd, runID)
	e.MessageID = messageID
	e.Content = content
	return e
}

// NewToolCallStartEvent creates a tool_call_start event.
func NewToolCallStartEvent(runID, toolCallID, toolName string, args map[string]any) *Event {
	e := newEvent(EventToolCallStart, runID)
	e.ToolCallID = toolCallID
	e.ToolName = toolName
	e.Arguments = args
	return e
}

// NewToolCallProgressEvent creates a tool_call_progress event.
func NewToolCallProgressEvent(runID, toolCallID, delta string) *Event {
	e := newEvent(EventToolCallProgress, runID)
	e.ToolCallID = toolCallID
	e.Delta = delta
	return e
}

// NewToolCallEndEvent creates a tool_call_end event.
func NewToolCallEndEvent(runID, toolCallID, result string) *Event {
	success := true
	e := newEvent(EventToolCallEnd, runID)
	e.ToolCallID = toolCallID
	e.Result = result
	e.Success = &success
	return e
}

// NewToolCallErrorEvent creates a tool_call_error event.
func NewToolCallErrorEvent(runID, toolCallID, errText string) *Event {
	success := false
	e := newEvent(EventToolCallError, runID)
	e.ToolCallID = toolCallID
	e.Error = errText
	e.Success = &success
	return e
}

// NewStateSyncEvent creates a state_sync event carrying the full tree.
func NewStateSyncEvent(runID string, state map[string]any, version int64) *Event {
	e := newEvent(EventStateSync, runID)
	e.State = state
	e.Version = version
	return e
}

// NewStateUpdateEvent creates an incremental state_update event. It carries
// only the changed subtree, never the full state.
func NewStateUpdateEvent(runID string, delta map[string]any, path string, version int64) *Event {
	e := newEvent(EventStateUpdate, runID)
	e.StateDelta = delta
	e.Path = path
	e.Version = version
	return e
}

// NewErrorEvent creates a generic error event not tied to a run phase.
func NewErrorEvent(runID, errText string) *Event {
	e := newEvent(EventError, runID)
	e.Error = errText
	return e
}
