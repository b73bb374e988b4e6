package chat

import (
	"strings"

	"github.com/Keccak1/gourme7-idea-frontend/pkg/events"
)

// streamBuffer is the private working accumulator for the message currently
// being streamed. It is freely mutated by the reconciler and never handed to
// consumers; the store's copy-on-write snapshots are the published view.
type streamBuffer struct {
	messageID   string
	role        string
	rawRole     string
	text        strings.Builder
	toolCalls   []events.ToolCall
	toolResults []events.ToolResult
}

// active reports whether a message is currently being built.
func (b *streamBuffer) active() bool {
	return b.messageID != ""
}

// start keys the buffer to a new message, dropping prior state.
func (b *streamBuffer) start(messageID, role, rawRole string) {
	b.reset()
	b.messageID = messageID
	b.role = role
	b.rawRole = rawRole
}

// reset empties the buffer. Called at connection start, at each
// message_start, and after message_stop/error.
func (b *streamBuffer) reset() {
	b.messageID = ""
	b.role = ""
	b.rawRole = ""
	b.text.Reset()
	b.toolCalls = nil
	b.toolResults = nil
}

// appendText accumulates a text delta.
func (b *streamBuffer) appendText(delta string) {
	b.text.WriteString(delta)
}

// recordCall appends a tool-call invocation in arrival order.
func (b *streamBuffer) recordCall(call events.ToolCall) {
	b.toolCalls = append(b.toolCalls, call)
}

// recordResult appends a tool result in arrival order.
func (b *streamBuffer) recordResult(result events.ToolResult) {
	b.toolResults = append(b.toolResults, result)
}

// resultFor returns the recorded result matching a call id, if any.
func (b *streamBuffer) resultFor(toolCallID string) (events.ToolResult, bool) {
	for _, r := range b.toolResults {
		if r.ToolCallID == toolCallID {
			return r, true
		}
	}
	return events.ToolResult{}, false
}

// contentParts rebuilds the target message's content from the accumulated
// state: text first (when non-empty), then one part per tool call seen so
// far. Rebuilding wholesale on every event keeps the mutation model simple;
// message content is small enough that the redundant work is irrelevant.
func (b *streamBuffer) contentParts(withResults bool) []Part {
	var parts []Part
	if b.text.Len() > 0 {
		parts = append(parts, NewTextPart(b.text.String()))
	}
	for _, call := range b.toolCalls {
		part := NewToolCallPart(call)
		if withResults {
			if result, ok := b.resultFor(call.ToolCallID); ok {
				part.ToolCall.Result = &ToolResultPart{
					Value:   result.Result,
					IsError: result.IsError,
				}
			}
		}
		parts = append(parts, part)
	}
	return parts
}
