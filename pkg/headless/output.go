package headless

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/Keccak1/gourme7-idea-frontend/pkg/chat"
	"github.com/Keccak1/gourme7-idea-frontend/pkg/events"
)

// Console palette.
var (
	styleUser = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6b93b5")).
			Bold(true)

	styleAssistant = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#93b56b")).
			Bold(true)

	styleTool = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f5b761"))

	styleToolError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d95f5f"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d95f5f")).
			Bold(true)

	styleDim = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#83715f"))
)

// Output renders conversation activity for headless mode.
type Output struct {
	w io.Writer
}

// NewOutput creates an output writing to stdout.
func NewOutput() *Output {
	return &Output{w: os.Stdout}
}

// NewOutputWithWriter creates an output writing to w. Used in tests.
func NewOutputWithWriter(w io.Writer) *Output {
	return &Output{w: w}
}

// Delta writes an incremental chunk of streamed assistant text.
func (o *Output) Delta(text string) {
	fmt.Fprint(o.w, text)
}

// RoleLabel prints a styled role header line.
func (o *Output) RoleLabel(role string) {
	switch role {
	case chat.RoleUser:
		fmt.Fprintln(o.w, styleUser.Render("you:"))
	default:
		fmt.Fprintln(o.w, styleAssistant.Render("agent:"))
	}
}

// ToolCall prints a tool invocation line, with its result state when known.
func (o *Output) ToolCall(call *chat.ToolCallPart) {
	line := fmt.Sprintf("⚙ %s", call.ToolName)
	switch {
	case call.Result == nil:
		line += styleDim.Render(" (pending)")
	case call.Result.IsError:
		line += styleToolError.Render(fmt.Sprintf(" ✗ %v", call.Result.Value))
	default:
		line += fmt.Sprintf(" → %v", call.Result.Value)
	}
	fmt.Fprintln(o.w, styleTool.Render(line))
}

// Approval prints a pending human-in-the-loop gate.
func (o *Output) Approval(approval events.Approval) {
	fmt.Fprintln(o.w, styleTool.Render(
		fmt.Sprintf("⏸ approval required [%s]: %s", approval.ID, approval.Summary)))
}

// Error prints a stream or submission error.
func (o *Output) Error(msg string) {
	fmt.Fprintln(o.w, styleError.Render("error: "+msg))
}

// Transcript renders the full message history.
func (o *Output) Transcript(messages []chat.Message) {
	for _, msg := range messages {
		o.RoleLabel(msg.Role)
		for _, part := range msg.Content {
			switch part.Type {
			case chat.PartText:
				if part.Text != "" {
					fmt.Fprintln(o.w, part.Text)
				}
			case chat.PartToolCall:
				o.ToolCall(part.ToolCall)
			}
		}
		fmt.Fprintln(o.w)
	}
}
