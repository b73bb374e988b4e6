package chat

import (
	"time"

	"github.com/Keccak1/gourme7-idea-frontend/pkg/events"
	"github.com/Keccak1/gourme7-idea-frontend/pkg/logger"
	"github.com/Keccak1/gourme7-idea-frontend/pkg/metadata"
)

// InterruptedResult is the synthetic value recorded on a tool call whose
// stream terminated with an error before its result arrived.
const InterruptedResult = "Tool execution interrupted"

// Reconciler translates stream events into message history mutations. It is
// the store's only streaming-side writer and assumes events arrive in strict
// delivery order (the transport guarantees per-connection ordering).
type Reconciler struct {
	store      *Store
	buffer     streamBuffer
	projection RoleProjection
	names      *metadata.SessionNames
	onError    func(string)
	onApproval func(events.Approval)
	log        *logger.Logger
}

// NewReconciler creates a reconciler writing to the given store. Roles fold
// tool/system into assistant by default.
func NewReconciler(store *Store) *Reconciler {
	return &Reconciler{
		store:      store,
		projection: FoldRoles,
		log:        logger.WithComponent("reconciler"),
	}
}

// SetRoleProjection overrides the display-role projection applied at
// ingestion.
func (r *Reconciler) SetRoleProjection(p RoleProjection) {
	if p != nil {
		r.projection = p
	}
}

// SetSessionNames wires the side-channel store updated by session_renamed
// events.
func (r *Reconciler) SetSessionNames(names *metadata.SessionNames) {
	r.names = names
}

// OnError registers the callback receiving stream error events.
func (r *Reconciler) OnError(fn func(string)) {
	r.onError = fn
}

// OnApproval registers the callback receiving approval_required payloads.
func (r *Reconciler) OnApproval(fn func(events.Approval)) {
	r.onApproval = fn
}

// Reset drops any in-progress streaming state. Called when a connection
// (re)opens.
func (r *Reconciler) Reset() {
	r.buffer.reset()
}

// Handle processes one stream event. Unknown event types are ignored.
func (r *Reconciler) Handle(ev events.Event) {
	switch ev.Type {
	case events.TypeMessageStart:
		r.handleMessageStart(ev)
	case events.TypeTextDelta:
		r.handleTextDelta(ev)
	case events.TypeToolCall:
		r.handleToolCall(ev)
	case events.TypeToolResult:
		r.handleToolResult(ev)
	case events.TypeMessageStop:
		r.handleMessageStop(ev)
	case events.TypeError:
		r.handleError(ev)
	case events.TypeApprovalRequired:
		r.handleApprovalRequired(ev)
	case events.TypeSessionRenamed:
		r.handleSessionRenamed(ev)
	default:
		r.log.Debug("Ignoring unknown event type", "type", ev.Type)
	}
}

func (r *Reconciler) handleMessageStart(ev events.Event) {
	role := r.projection(ev.Message.Role)
	r.buffer.start(ev.Message.ID, role, ev.Message.Role)
	r.log.Debug("Message started", "id", ev.Message.ID, "role", role)

	if role == RoleAssistant {
		// Placeholder so the view can show a pending indicator immediately.
		r.store.Append(Message{
			ID:        ev.Message.ID,
			Role:      role,
			RawRole:   ev.Message.Role,
			Content:   []Part{NewTextPart("")},
			CreatedAt: time.Now(),
		})
		r.store.SetStreaming(true)
	}
}

func (r *Reconciler) handleTextDelta(ev events.Event) {
	if !r.buffer.active() {
		r.log.Debug("Text delta with no open message dropped")
		return
	}
	r.buffer.appendText(ev.Delta)
	r.store.Update(r.buffer.messageID, []Part{NewTextPart(r.buffer.text.String())})
}

func (r *Reconciler) handleToolCall(ev events.Event) {
	if !r.buffer.active() {
		r.log.Debug("Tool call with no open message dropped", "toolCallId", ev.ToolCall.ToolCallID)
		return
	}
	r.buffer.recordCall(*ev.ToolCall)
	r.store.Update(r.buffer.messageID, r.buffer.contentParts(false))
}

// handleToolResult attaches a result to whichever message holds the matching
// call. Results are matched by toolCallId rather than message id: a tool may
// complete after its owning message was already finalized.
func (r *Reconciler) handleToolResult(ev events.Event) {
	if r.buffer.active() {
		r.buffer.recordResult(*ev.ToolResult)
	}
	attached := r.store.AttachToolResult(ev.ToolResult.ToolCallID, ToolResultPart{
		Value:   ev.ToolResult.Result,
		IsError: ev.ToolResult.IsError,
	})
	if !attached {
		r.log.Debug("Unmatched tool result ignored", "toolCallId", ev.ToolResult.ToolCallID)
	}
}

func (r *Reconciler) handleMessageStop(ev events.Event) {
	if r.buffer.active() {
		parts := r.buffer.contentParts(true)
		if ev.FinishReason == events.FinishError {
			for i := range parts {
				if parts[i].Type == PartToolCall && parts[i].ToolCall.Result == nil {
					parts[i].ToolCall.Result = &ToolResultPart{
						Value:   InterruptedResult,
						IsError: true,
					}
				}
			}
		}
		if len(parts) == 0 {
			// Keep a placeholder so the finalized message still renders.
			parts = []Part{NewTextPart("")}
		}
		r.store.Update(r.buffer.messageID, parts)
	}

	r.store.SetStreaming(false)
	// A tool_calls finish means the backend resumes the stream once tool
	// execution completes; the turn is still in flight.
	if ev.FinishReason != events.FinishToolCalls {
		r.store.SetRunning(false)
	}
	r.buffer.reset()
	r.log.Debug("Message stopped", "finishReason", ev.FinishReason)
}

func (r *Reconciler) handleError(ev events.Event) {
	r.store.SetStreaming(false)
	r.store.SetRunning(false)
	r.buffer.reset()
	r.log.Debug("Stream error", "error", ev.Error)
	if r.onError != nil {
		r.onError(ev.Error)
	}
}

// handleApprovalRequired clears only the streaming indicator. The turn is
// still in flight while a human decision is pending, so running stays set.
func (r *Reconciler) handleApprovalRequired(ev events.Event) {
	r.store.SetStreaming(false)
	r.log.Debug("Approval required", "approvalId", ev.Approval.ID, "tool", ev.Approval.ToolCall.ToolName)
	if r.onApproval != nil {
		r.onApproval(*ev.Approval)
	}
}

func (r *Reconciler) handleSessionRenamed(ev events.Event) {
	if r.names != nil {
		r.names.Set(ev.SessionID, ev.Name)
	}
	r.log.Debug("Session renamed", "sessionId", ev.SessionID, "name", ev.Name)
}
