// Package agui implements the UI event-stream protocol adapter. Each
// streaming request becomes a run with a fresh run id and its own state
// synchronizer; the agent's chunks are translated into a strictly ordered
// event sequence that always opens with run_started and closes with exactly
// one of run_finished or run_failed.
package agui

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/prismgate/prism/pkg/agent"
	"github.com/prismgate/prism/pkg/protocol"
	"github.com/prismgate/prism/pkg/state"
)

// ProtocolName is the registry name for this adapter.
const ProtocolName = "agui"

// StreamRequest is the streaming request envelope. IncludeState opts into
// state_sync and state_update events alongside the message and tool events.
type StreamRequest struct {
	AgentID      string         `json:"agent_id,omitempty"`
	Message      string         `json:"message"`
	SessionID    string         `json:"session_id,omitempty"`
	Context      map[string]any `json:"context,omitempty"`
	IncludeState bool           `json:"include_state,omitempty"`
}

// RunInfo is the non-streaming view of one active run.
type RunInfo struct {
	RunID     string          `json:"run_id"`
	Status    state.RunStatus `json:"status"`
	StartedAt string          `json:"started_at"`
	Version   int64           `json:"version"`
	State     map[string]any  `json:"state,omitempty"`
}

// Adapter is the UI event-stream protocol adapter.
type Adapter struct {
	agents       *agent.Registry
	runs         *state.RunTable
	defaultAgent string
}

// New creates the adapter with an empty active-runs table.
func New(agents *agent.Registry, defaultAgent string) *Adapter {
	return &Adapter{
		agents:       agents,
		runs:         state.NewRunTable(),
		defaultAgent: defaultAgent,
	}
}

// Name implements protocol.Adapter.
func (a *Adapter) Name() string {
	return ProtocolName
}

// Runs exposes the active-runs table.
func (a *Adapter) Runs() *state.RunTable {
	return a.runs
}

// Execute serves run inspection: {"run_id": "..."} returns the run's status
// and current state tree. The protocol is otherwise streaming-only.
func (a *Adapter) Execute(ctx context.Context, body json.RawMessage) (any, error) {
	var req struct {
		RunID string `json:"run_id"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, protocol.ClientErrorf("malformed request body: %v", err)
	}
	if req.RunID == "" {
		return nil, protocol.ClientErrorf("run_id is required")
	}

	run, ok := a.runs.Get(req.RunID)
	if !ok {
		return nil, protocol.ClientErrorf("run '%s' not found", req.RunID)
	}
	return &RunInfo{
		RunID:     run.RunID,
		Status:    run.Status,
		StartedAt: run.StartedAt.Format("2006-01-02T15:04:05.000Z07:00"),
		Version:   run.State.Version(),
		State:     run.State.GetState(),
	}, nil
}

// ExecuteStream drives one run. The run is removed from the active table on
// every exit path; the client always receives a terminal run event unless
// the sink itself fails.
func (a *Adapter) ExecuteStream(ctx context.Context, body json.RawMessage, sink protocol.EventSink) error {
	var req StreamRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return protocol.ClientErrorf("malformed request body: %v", err)
	}

	ag, err := a.resolveAgent(req.AgentID)
	if err != nil {
		return protocol.ClientErrorf("%v", err)
	}

	run := state.NewRunState(uuid.New().String())
	a.runs.Add(run)
	defer a.runs.Remove(run.RunID)

	r := &runner{
		adapter: a,
		run:     run,
		sink:    sink,
		req:     req,
	}
	return r.drive(ctx, ag)
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

// runner holds the per-run translation state: the open message, the open
// tool call if any, and the accumulated content.
type runner struct {
	adapter *Adapter
	run     *state.RunState
	sink    protocol.EventSink
	req     StreamRequest

	messageID  string
	content    strings.Builder
	toolCallID string
	toolName   string
}

func (r *runner) drive(ctx context.Context, ag agent.Agent) error {
	runID := r.run.RunID
	r.messageID = uuid.New().String()

	if err := r.emit(ctx, NewRunStartedEvent(runID, ag.Name(), r.req.Message, r.req.Context)); err != nil {
		return r.abort(err)
	}
	if r.req.IncludeState {
		if err := r.emit(ctx, NewStateSyncEvent(runID, r.run.State.GetState(), r.run.State.Version())); err != nil {
			return r.abort(err)
		}
	}
	if err := r.emit(ctx, NewTextMessageStartEvent(runID, r.messageID, "assistant")); err != nil {
		return r.abort(err)
	}

	input := agent.Input{
		Message:   r.req.Message,
		SessionID: r.req.SessionID,
		Context:   r.req.Context,
	}

	for chunk, streamErr := range ag.Stream(ctx, input) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return r.fail(context.WithoutCancel(ctx), ctxErr.Error(), "cancelled")
		}
		if streamErr != nil {
			return r.fail(ctx, streamErr.Error(), "stream_error")
		}

		done, err := r.handleChunk(ctx, chunk)
		if err != nil {
			return r.abort(err)
		}
		if done {
			return nil
		}
	}

	if err := r.emit(ctx, NewTextMessageEndEvent(runID, r.messageID, r.content.String())); err != nil {
		return r.abort(err)
	}
	if r.req.IncludeState {
		if err := r.emit(ctx, NewStateSyncEvent(runID, r.run.State.GetState(), r.run.State.Version())); err != nil {
			return r.abort(err)
		}
	}

	r.run.Finish(state.RunCompleted, "")
	metadata := map[string]any{"state_version": r.run.State.Version()}
	if err := r.emit(ctx, NewRunFinishedEvent(runID, r.content.String(), metadata)); err != nil {
		return r.abort(err)
	}

	slog.Debug("run finished", "runID", runID, "agent", ag.Name())
	return nil
}

// handleChunk translates one agent chunk. It reports done=true when the run
// has terminated (error chunk path) and no further chunks may be consumed.
func (r *runner) handleChunk(ctx context.Context, chunk *agent.StreamChunk) (bool, error) {
	runID := r.run.RunID

	switch chunk.Type {
	case agent.ChunkText:
		r.content.WriteString(chunk.Content)
		return false, r.emit(ctx, NewTextMessageContentEvent(runID, r.messageID, chunk.Content))

	case agent.ChunkToolStart:
		r.toolCallID = uuid.New().String()
		r.toolName = chunk.ToolName()
		if err := r.emit(ctx, NewToolCallStartEvent(runID, r.toolCallID, r.toolName, chunk.Arguments())); err != nil {
			return false, err
		}
		return false, r.mergeState(ctx, map[string]any{
			"current_tool": r.toolName,
			"tool_status":  "running",
		})

	case agent.ChunkToolEnd:
		if err := r.emit(ctx, NewToolCallEndEvent(runID, r.toolCallID, chunk.Content)); err != nil {
			return false, err
		}
		err := r.mergeState(ctx, map[string]any{
			"current_tool":     nil,
			"tool_status":      "completed",
			"last_tool_result": chunk.Content,
		})
		r.toolCallID = ""
		r.toolName = ""
		return false, err

	case agent.ChunkError:
		if r.toolCallID != "" {
			if err := r.emit(ctx, NewToolCallErrorEvent(runID, r.toolCallID, chunk.Content)); err != nil {
				return false, err
			}
		}
		if err := r.fail(ctx, chunk.Content, "agent_error"); err != nil {
			return false, err
		}
		return true, nil

	default:
		slog.Warn("unknown chunk type skipped", "runID", runID, "type", chunk.Type)
		return false, nil
	}
}

// mergeState applies a tool-status delta to the run's state tree, emitting
// an incremental state_update when state inclusion was requested.
func (r *runner) mergeState(ctx context.Context, delta map[string]any) error {
	event := r.run.State.MergeState(delta)
	if !r.req.IncludeState {
		return nil
	}
	return r.emit(ctx, NewStateUpdateEvent(r.run.RunID, event.Delta, event.Path, event.Version))
}

// fail marks the run failed and emits the terminal run_failed event. At most
// one terminal event is ever emitted.
func (r *runner) fail(ctx context.Context, errText, errType string) error {
	r.run.Finish(state.RunFailed, errText)
	metadata := map[string]any{"state_version": r.run.State.Version()}
	return r.emit(ctx, NewRunFailedEvent(r.run.RunID, errText, errType, metadata))
}

// abort handles a sink write failure. The client connection is gone, so no
// terminal event can be delivered; the run is still recorded as failed.
func (r *runner) abort(err error) error {
	r.run.Finish(state.RunFailed, err.Error())
	return fmt.Errorf("failed to write run event: %w", err)
}

func (r *runner) emit(ctx context.Context, event *Event) error {
	return r.sink.Write(ctx, event)
}

var _ protocol.Adapter = (*Adapter)(nil)
