package chat_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Keccak1/gourme7-idea-frontend/pkg/chat"
	"github.com/Keccak1/gourme7-idea-frontend/pkg/events"
)

func TestChat(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Chat Suite")
}

var _ = Describe("Messages", func() {
	Describe("NewUserMessage", func() {
		It("should create a user message with trimmed text content", func() {
			msg := chat.NewUserMessage("u1", "  swap 1 eth to usdc  ")

			Expect(msg.ID).To(Equal("u1"))
			Expect(msg.Role).To(Equal(chat.RoleUser))
			Expect(msg.Content).To(HaveLen(1))
			Expect(msg.Text()).To(Equal("swap 1 eth to usdc"))
			Expect(msg.IsUser()).To(BeTrue())
		})
	})

	Describe("Text", func() {
		It("should concatenate text parts and skip tool calls", func() {
			msg := chat.Message{
				Role: chat.RoleAssistant,
				Content: []chat.Part{
					chat.NewTextPart("Checking "),
					chat.NewToolCallPart(events.ToolCall{ToolCallID: "t1", ToolName: "wallet_balance"}),
					chat.NewTextPart("prices"),
				},
			}

			Expect(msg.Text()).To(Equal("Checking prices"))
			Expect(msg.ToolCalls()).To(HaveLen(1))
		})
	})

	Describe("FindToolCall", func() {
		It("should locate a tool call by id", func() {
			msg := chat.Message{
				Content: []chat.Part{
					chat.NewToolCallPart(events.ToolCall{ToolCallID: "t1", ToolName: "swap_quote"}),
					chat.NewToolCallPart(events.ToolCall{ToolCallID: "t2", ToolName: "bridge_assets"}),
				},
			}

			call, found := msg.FindToolCall("t2")
			Expect(found).To(BeTrue())
			Expect(call.ToolName).To(Equal("bridge_assets"))

			_, found = msg.FindToolCall("t3")
			Expect(found).To(BeFalse())
		})
	})

	Describe("Clone", func() {
		It("should isolate tool call results from the original", func() {
			original := chat.Message{
				Content: []chat.Part{
					chat.NewToolCallPart(events.ToolCall{ToolCallID: "t1"}),
				},
			}

			copied := original.Clone()
			copied.Content[0].ToolCall.Result = &chat.ToolResultPart{Value: "done"}

			Expect(original.Content[0].ToolCall.Result).To(BeNil())
		})
	})

	Describe("FoldRoles", func() {
		It("should collapse tool and system roles into assistant", func() {
			Expect(chat.FoldRoles(chat.RoleTool)).To(Equal(chat.RoleAssistant))
			Expect(chat.FoldRoles(chat.RoleSystem)).To(Equal(chat.RoleAssistant))
			Expect(chat.FoldRoles(chat.RoleUser)).To(Equal(chat.RoleUser))
			Expect(chat.FoldRoles(chat.RoleAssistant)).To(Equal(chat.RoleAssistant))
		})

		It("should leave roles untouched under the identity projection", func() {
			Expect(chat.IdentityRoles(chat.RoleTool)).To(Equal(chat.RoleTool))
		})
	})
})
