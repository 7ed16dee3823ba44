// Package task implements the task-lifecycle data model and the Manager
// that owns long-running task objects.
//
// A Task is created on first message, mutated by status updates and message
// appends, and destroyed by storage expiry (TTL, default 24h) or explicit
// deletion. Status transitions are forward-only and enforced:
//
//	CREATED → WORKING → INPUT_REQUIRED → COMPLETED | FAILED | CANCELLED
//
// Terminal states are immutable. Same-state updates are idempotent.
package task

import (
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusCreated       Status = "CREATED"
	StatusWorking       Status = "WORKING"
	StatusInputRequired Status = "INPUT_REQUIRED"
	StatusCompleted     Status = "COMPLETED"
	StatusFailed        Status = "FAILED"
	StatusCancelled     Status = "CANCELLED"
)

// statusRank orders states for forward-only transition checks. Terminal
// states share the highest rank.
var statusRank = map[Status]int{
	StatusCreated:       0,
	StatusWorking:       1,
	StatusInputRequired: 2,
	StatusCompleted:     3,
	StatusFailed:        3,
	StatusCancelled:     3,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether a transition from s to next is legal.
// Transitions never move backward, and terminal states are immutable.
// A same-state transition is legal (idempotent update).
func (s Status) CanTransition(next Status) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	if s.IsTerminal() {
		return false
	}
	return statusRank[next] > statusRank[s]
}

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// PartType discriminates the message part union.
type PartType string

const (
	PartText PartType = "text"
	PartFile PartType = "file"
	PartData PartType = "data"
)

// Part is one unit of message content. Exactly one of Text, File, or Data
// is populated, selected by Type.
type Part struct {
	Type PartType     `json:"type"`
	Text string       `json:"text,omitempty"`
	File *FileContent `json:"file,omitempty"`
	Data *DataContent `json:"data,omitempty"`
}

// FileContent references an external file by URL.
type FileContent struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type,omitempty"`
	Filename string `json:"filename,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// DataContent carries a structured payload with an optional schema id.
type DataContent struct {
	Payload  map[string]any `json:"payload"`
	SchemaID string         `json:"schema_id,omitempty"`
}

// TextPart builds a text part.
func TextPart(text string) Part {
	return Part{Type: PartText, Text: text}
}

// Message is one entry in a task's ordered message history.
type Message struct {
	Role      Role           `json:"role"`
	Parts     []Part         `json:"parts"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewMessage builds a message with the current timestamp.
func NewMessage(role Role, parts ...Part) Message {
	return Message{
		Role:      role,
		Parts:     parts,
		Timestamp: time.Now().UTC(),
	}
}

// Text concatenates the message's text parts.
func (m Message) Text() string {
	var out string
	for _, p := range m.Parts {
		if p.Type == PartText {
			out += p.Text
		}
	}
	return out
}

// Task is a persisted, long-lived unit of work with an explicit lifecycle.
type Task struct {
	ID          string         `json:"id"`
	AgentID     string         `json:"agent_id"`
	Status      Status         `json:"status"`
	Messages    []Message      `json:"messages"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Error       string         `json:"error,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Errors

var (
	ErrTaskNotFound      = &Error{Code: "task_not_found", Message: "task not found"}
	ErrInvalidTransition = &Error{Code: "invalid_transition", Message: "illegal task status transition"}
	ErrInvalidStatus     = &Error{Code: "invalid_status", Message: "unknown task status"}
)

// Error is a task-related error with a machine-readable code.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
