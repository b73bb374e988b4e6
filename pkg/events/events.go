package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type discriminates stream events delivered on a session's event stream.
type Type string

const (
	TypeMessageStart     Type = "message_start"
	TypeTextDelta        Type = "text_delta"
	TypeToolCall         Type = "tool_call"
	TypeToolResult       Type = "tool_result"
	TypeMessageStop      Type = "message_stop"
	TypeError            Type = "error"
	TypeApprovalRequired Type = "approval_required"
	TypeSessionRenamed   Type = "session_renamed"
)

// FinishReason tags why generation stopped for a message.
type FinishReason string

const (
	FinishStop      FinishReason = "stop"
	FinishToolCalls FinishReason = "tool_calls"
	FinishError     FinishReason = "error"
)

// MessageStart identifies the message a stream is about to build.
type MessageStart struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// ToolCall is a structured invocation of a named backend capability.
type ToolCall struct {
	ToolCallID string         `json:"toolCallId"`
	ToolName   string         `json:"toolName"`
	Args       map[string]any `json:"args"`
}

// ToolResult carries the outcome of a tool call, matched by ToolCallID.
type ToolResult struct {
	ToolCallID string `json:"toolCallId"`
	ToolName   string `json:"toolName"`
	Result     any    `json:"result"`
	IsError    bool   `json:"isError,omitempty"`
}

// Approval is a human-in-the-loop gate on a pending tool call.
type Approval struct {
	ID        string    `json:"id"`
	ToolCall  ToolCall  `json:"toolCall"`
	Summary   string    `json:"summary"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Event is the discriminated payload delivered on the stream. Exactly one
// payload field is populated, selected by Type.
type Event struct {
	Type Type `json:"type"`

	Message      *MessageStart `json:"message,omitempty"`      // message_start
	Delta        string        `json:"delta,omitempty"`        // text_delta
	ToolCall     *ToolCall     `json:"toolCall,omitempty"`     // tool_call
	ToolResult   *ToolResult   `json:"toolResult,omitempty"`   // tool_result
	FinishReason FinishReason  `json:"finishReason,omitempty"` // message_stop
	Error        string        `json:"error,omitempty"`        // error
	Approval     *Approval     `json:"approval,omitempty"`     // approval_required
	SessionID    string        `json:"sessionId,omitempty"`    // session_renamed
	Name         string        `json:"name,omitempty"`         // session_renamed
}

// Parse decodes a single wire event. Unknown event types decode without
// error so new server events never break the client; payloads required by
// known types are validated.
func Parse(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("failed to decode event: %w", err)
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("event missing type field")
	}
	if err := ev.validate(); err != nil {
		return Event{}, err
	}
	return ev, nil
}

func (e Event) validate() error {
	switch e.Type {
	case TypeMessageStart:
		if e.Message == nil || e.Message.ID == "" {
			return fmt.Errorf("message_start event missing message payload")
		}
	case TypeToolCall:
		if e.ToolCall == nil || e.ToolCall.ToolCallID == "" {
			return fmt.Errorf("tool_call event missing toolCall payload")
		}
	case TypeToolResult:
		if e.ToolResult == nil || e.ToolResult.ToolCallID == "" {
			return fmt.Errorf("tool_result event missing toolResult payload")
		}
	case TypeApprovalRequired:
		if e.Approval == nil || e.Approval.ID == "" {
			return fmt.Errorf("approval_required event missing approval payload")
		}
	case TypeSessionRenamed:
		if e.SessionID == "" {
			return fmt.Errorf("session_renamed event missing sessionId")
		}
	}
	return nil
}

// Known reports whether the event type is one the client understands.
// Unknown events are ignored by the reconciler.
func (e Event) Known() bool {
	switch e.Type {
	case TypeMessageStart, TypeTextDelta, TypeToolCall, TypeToolResult,
		TypeMessageStop, TypeError, TypeApprovalRequired, TypeSessionRenamed:
		return true
	}
	return false
}
