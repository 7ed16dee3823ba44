// Package a2a implements the task-lifecycle protocol adapter. Requests
// operate on persisted tasks through the task manager; the streaming entry
// point drives an agent and mirrors its chunks into the task's message
// history, emitting one lifecycle event per update.
package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prismgate/prism/pkg/agent"
	"github.com/prismgate/prism/pkg/protocol"
	"github.com/prismgate/prism/pkg/task"
)

// ProtocolName is the registry name for this adapter.
const ProtocolName = "a2a"

// Operation is the closed set of non-streaming task operations.
type Operation string

const (
	OpCreateTask   Operation = "create_task"
	OpGetTask      Operation = "get_task"
	OpListTasks    Operation = "list_tasks"
	OpAddMessage   Operation = "add_message"
	OpUpdateStatus Operation = "update_status"
	OpDeleteTask   Operation = "delete_task"
)

// EventType tags one lifecycle stream event.
type EventType string

const (
	EventStatus   EventType = "status"
	EventMessage  EventType = "message"
	EventError    EventType = "error"
	EventComplete EventType = "complete"
)

// Request is the non-streaming request envelope. Fields beyond Op are
// populated per operation.
type Request struct {
	Op      Operation      `json:"op"`
	TaskID  string         `json:"task_id,omitempty"`
	AgentID string         `json:"agent_id,omitempty"`
	Message *task.Message  `json:"message,omitempty"`
	Context map[string]any `json:"context,omitempty"`
	Status  task.Status    `json:"status,omitempty"`
	Error   string         `json:"error,omitempty"`
	Limit   int            `json:"limit,omitempty"`
	Offset  int            `json:"offset,omitempty"`
}

// StreamRequest is the streaming request envelope. The initial message is
// recorded on the created task before the agent is driven.
type StreamRequest struct {
	AgentID   string         `json:"agent_id"`
	Message   string         `json:"message"`
	SessionID string         `json:"session_id,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
}

// Event is one task-lifecycle stream event.
type Event struct {
	TaskID    string    `json:"task_id"`
	EventType EventType `json:"event_type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ListResult pages a task listing.
type ListResult struct {
	Tasks  []*task.Task `json:"tasks"`
	Count  int          `json:"count"`
	Limit  int          `json:"limit,omitempty"`
	Offset int          `json:"offset,omitempty"`
}

// Adapter is the task-lifecycle protocol adapter. The task manager is the
// single source of truth for task status; the adapter holds none itself.
type Adapter struct {
	tasks        *task.Manager
	agents       *agent.Registry
	defaultAgent string
}

// New creates the adapter.
func New(tasks *task.Manager, agents *agent.Registry, defaultAgent string) *Adapter {
	return &Adapter{
		tasks:        tasks,
		agents:       agents,
		defaultAgent: defaultAgent,
	}
}

// Name implements protocol.Adapter.
func (a *Adapter) Name() string {
	return ProtocolName
}

// Execute dispatches a non-streaming request on its operation.
func (a *Adapter) Execute(ctx context.Context, body json.RawMessage) (any, error) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, protocol.ClientErrorf("malformed request body: %v", err)
	}

	switch req.Op {
	case OpCreateTask:
		if req.Message == nil {
			return nil, protocol.ClientErrorf("message is required")
		}
		t, err := a.tasks.Create(ctx, req.AgentID, *req.Message, req.Context)
		if err != nil {
			return nil, protocol.ClientErrorf("%v", err)
		}
		return t, nil

	case OpGetTask:
		t, err := a.tasks.Get(ctx, req.TaskID)
		if err != nil {
			return nil, wrapTaskError(err)
		}
		return t, nil

	case OpListTasks:
		tasks, err := a.tasks.List(ctx, task.ListFilter{
			AgentID: req.AgentID,
			Status:  req.Status,
			Limit:   req.Limit,
			Offset:  req.Offset,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list tasks: %w", err)
		}
		if tasks == nil {
			tasks = []*task.Task{}
		}
		return &ListResult{
			Tasks:  tasks,
			Count:  len(tasks),
			Limit:  req.Limit,
			Offset: req.Offset,
		}, nil

	case OpAddMessage:
		if req.Message == nil {
			return nil, protocol.ClientErrorf("message is required")
		}
		t, err := a.tasks.AddMessage(ctx, req.TaskID, *req.Message)
		if err != nil {
			return nil, wrapTaskError(err)
		}
		return t, nil

	case OpUpdateStatus:
		t, err := a.tasks.UpdateStatus(ctx, req.TaskID, req.Status, req.Error)
		if err != nil {
			return nil, wrapTaskError(err)
		}
		return t, nil

	case OpDeleteTask:
		existed, err := a.tasks.Delete(ctx, req.TaskID)
		if err != nil {
			return nil, fmt.Errorf("failed to delete task: %w", err)
		}
		if !existed {
			return nil, protocol.ClientErrorf("task '%s' not found", req.TaskID)
		}
		return map[string]any{"deleted": true, "task_id": req.TaskID}, nil

	default:
		return nil, protocol.ClientErrorf("unsupported operation '%s'", req.Op)
	}
}

// ExecuteStream creates a task, marks it WORKING, drives the agent, and
// mirrors each chunk into the task's message history. Exhaustion completes
// the task; an error chunk or a store failure fails it.
func (a *Adapter) ExecuteStream(ctx context.Context, body json.RawMessage, sink protocol.EventSink) error {
	var req StreamRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return protocol.ClientErrorf("malformed request body: %v", err)
	}

	ag, err := a.resolveAgent(req.AgentID)
	if err != nil {
		return protocol.ClientErrorf("%v", err)
	}

	initial := task.NewMessage(task.RoleUser, task.TextPart(req.Message))
	t, err := a.tasks.Create(ctx, ag.Name(), initial, req.Context)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	if t, err = a.tasks.UpdateStatus(ctx, t.ID, task.StatusWorking, ""); err != nil {
		return fmt.Errorf("failed to start task %s: %w", t.ID, err)
	}
	if err := a.emit(ctx, sink, t.ID, EventStatus, map[string]any{"status": t.Status}); err != nil {
		return err
	}

	input := agent.Input{
		Message:   req.Message,
		SessionID: req.SessionID,
		Context:   req.Context,
	}

	for chunk, streamErr := range ag.Stream(ctx, input) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return a.cancel(ctx, sink, t.ID, ctxErr)
		}
		if streamErr != nil {
			return a.fail(ctx, sink, t.ID, streamErr.Error())
		}
		if chunk.Type == agent.ChunkError {
			return a.fail(ctx, sink, t.ID, chunk.Content)
		}

		msg := chunkMessage(chunk)
		if _, err := a.tasks.AddMessage(ctx, t.ID, msg); err != nil {
			return a.fail(ctx, sink, t.ID, fmt.Sprintf("failed to record message: %v", err))
		}
		if err := a.emit(ctx, sink, t.ID, EventMessage, msg); err != nil {
			return err
		}
	}

	if t, err = a.tasks.UpdateStatus(ctx, t.ID, task.StatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to complete task %s: %w", t.ID, err)
	}
	if err := a.emit(ctx, sink, t.ID, EventStatus, map[string]any{"status": t.Status}); err != nil {
		return err
	}
	return a.emit(ctx, sink, t.ID, EventComplete, map[string]any{"status": t.Status})
}

// cancel marks the task CANCELLED when the request context is torn down
// mid-stream. The event write is best effort; the caller is likely gone.
func (a *Adapter) cancel(ctx context.Context, sink protocol.EventSink, taskID string, cause error) error {
	bg := context.WithoutCancel(ctx)
	if _, err := a.tasks.UpdateStatus(bg, taskID, task.StatusCancelled, cause.Error()); err != nil {
		slog.Error("failed to mark task cancelled", "taskID", taskID, "error", err)
	}
	return a.emit(bg, sink, taskID, EventError, map[string]any{
		"status": task.StatusCancelled,
		"error":  cause.Error(),
	})
}

// fail marks the task FAILED and emits the terminal error event.
func (a *Adapter) fail(ctx context.Context, sink protocol.EventSink, taskID, errText string) error {
	if _, err := a.tasks.UpdateStatus(ctx, taskID, task.StatusFailed, errText); err != nil {
		slog.Error("failed to mark task failed", "taskID", taskID, "error", err)
	}
	return a.emit(ctx, sink, taskID, EventError, map[string]any{
		"status": task.StatusFailed,
		"error":  errText,
	})
}

func (a *Adapter) emit(ctx context.Context, sink protocol.EventSink, taskID string, et EventType, data any) error {
	return sink.Write(ctx, &Event{
		TaskID:    taskID,
		EventType: et,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
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

// chunkMessage converts an agent chunk into the equivalent task message.
// Tool activity is recorded as data parts so the history stays structured.
func chunkMessage(chunk *agent.StreamChunk) task.Message {
	switch chunk.Type {
	case agent.ChunkToolStart, agent.ChunkToolEnd:
		payload := map[string]any{
			"phase": string(chunk.Type),
			"tool":  chunk.ToolName(),
		}
		if chunk.Type == agent.ChunkToolStart {
			payload["arguments"] = chunk.Arguments()
		} else {
			payload["result"] = chunk.Content
		}
		msg := task.NewMessage(task.RoleAssistant, task.Part{
			Type: task.PartData,
			Data: &task.DataContent{Payload: payload},
		})
		return msg
	default:
		return task.NewMessage(task.RoleAssistant, task.TextPart(chunk.Content))
	}
}

func wrapTaskError(err error) error {
	if errors.Is(err, task.ErrTaskNotFound) {
		return protocol.ClientErrorf("%v", err)
	}
	if errors.Is(err, task.ErrInvalidTransition) || errors.Is(err, task.ErrInvalidStatus) {
		return protocol.ClientErrorf("%v", err)
	}
	return err
}

var _ protocol.Adapter = (*Adapter)(nil)
