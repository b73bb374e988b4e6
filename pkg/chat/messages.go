package chat

import (
	"strings"
	"time"

	"github.com/Keccak1/gourme7-idea-frontend/pkg/events"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// Part type discriminators
const (
	PartText     = "text"
	PartToolCall = "tool_call"
)

// Message is a single turn in a conversation. ID is immutable once created;
// content is rebuilt (never patched in place) as streaming progresses.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	RawRole   string    `json:"rawRole,omitempty"` // server role before projection
	Content   []Part    `json:"content"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Part is one element of a message's ordered content: either accumulated
// text or a tool-call invocation.
type Part struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ToolCall *ToolCallPart `json:"toolCall,omitempty"`
}

// ToolCallPart is a tool invocation embedded in message content. Result is
// nil until a matching tool_result arrives or a synthetic failure is
// recorded on abnormal stream termination.
type ToolCallPart struct {
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Args       map[string]any  `json:"args,omitempty"`
	Result     *ToolResultPart `json:"result,omitempty"`
}

// ToolResultPart is the recorded outcome of a tool call.
type ToolResultPart struct {
	Value   any  `json:"value"`
	IsError bool `json:"isError,omitempty"`
}

// NewTextPart builds a text content part.
func NewTextPart(text string) Part {
	return Part{Type: PartText, Text: text}
}

// NewToolCallPart builds a pending tool-call content part from a wire event.
func NewToolCallPart(call events.ToolCall) Part {
	return Part{
		Type: PartToolCall,
		ToolCall: &ToolCallPart{
			ToolCallID: call.ToolCallID,
			ToolName:   call.ToolName,
			Args:       call.Args,
		},
	}
}

// NewUserMessage builds a user turn with a single text part.
func NewUserMessage(id, content string) Message {
	return Message{
		ID:        id,
		Role:      RoleUser,
		RawRole:   RoleUser,
		Content:   []Part{NewTextPart(strings.TrimSpace(content))},
		CreatedAt: time.Now(),
	}
}

func (m Message) IsUser() bool      { return m.Role == RoleUser }
func (m Message) IsAssistant() bool { return m.Role == RoleAssistant }

// Text returns the concatenated text of all text parts.
func (m Message) Text() string {
	var b strings.Builder
	for _, p := range m.Content {
		if p.Type == PartText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// ToolCalls returns all tool-call parts in content order.
func (m Message) ToolCalls() []*ToolCallPart {
	var calls []*ToolCallPart
	for _, p := range m.Content {
		if p.Type == PartToolCall && p.ToolCall != nil {
			calls = append(calls, p.ToolCall)
		}
	}
	return calls
}

// FindToolCall returns the tool-call part with the given id, if present.
func (m Message) FindToolCall(toolCallID string) (*ToolCallPart, bool) {
	for _, p := range m.Content {
		if p.Type == PartToolCall && p.ToolCall != nil && p.ToolCall.ToolCallID == toolCallID {
			return p.ToolCall, true
		}
	}
	return nil, false
}

// Clone deep-copies a message so published snapshots never share mutable
// state with the store's working copy.
func (m Message) Clone() Message {
	out := m
	out.Content = clonePartList(m.Content)
	return out
}

func clonePartList(parts []Part) []Part {
	if parts == nil {
		return nil
	}
	out := make([]Part, len(parts))
	for i, p := range parts {
		out[i] = p.clone()
	}
	return out
}

func (p Part) clone() Part {
	out := p
	if p.ToolCall != nil {
		tc := *p.ToolCall
		if p.ToolCall.Result != nil {
			res := *p.ToolCall.Result
			tc.Result = &res
		}
		out.ToolCall = &tc
	}
	return out
}

// RoleProjection maps a server-side role onto a display role at ingestion.
type RoleProjection func(role string) string

// FoldRoles collapses tool and system roles into assistant for rendering
// compatibility with the message list. The raw role survives on the message
// record.
func FoldRoles(role string) string {
	switch role {
	case RoleTool, RoleSystem:
		return RoleAssistant
	default:
		return role
	}
}

// IdentityRoles keeps server roles as-is.
func IdentityRoles(role string) string {
	return role
}
