package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Keccak1/gourme7-idea-frontend/pkg/chat"
	"github.com/Keccak1/gourme7-idea-frontend/pkg/session"
)

func TestSession(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Session Suite")
}

var _ = Describe("Client", func() {
	var (
		client *session.Client
		server *httptest.Server
	)

	AfterEach(func() {
		if server != nil {
			server.Close()
		}
	})

	Describe("SendMessage", func() {
		It("should post the content to the session messages endpoint", func() {
			var gotPath string
			var gotBody map[string]string
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				Expect(r.Method).To(Equal(http.MethodPost))
				Expect(json.NewDecoder(r.Body).Decode(&gotBody)).To(Succeed())
				w.WriteHeader(http.StatusAccepted)
			}))
			client = session.NewClient(server.URL)

			err := client.SendMessage(context.Background(), "s1", "rebalance my portfolio")

			Expect(err).ToNot(HaveOccurred())
			Expect(gotPath).To(Equal("/api/sessions/s1/messages"))
			Expect(gotBody).To(HaveKeyWithValue("content", "rebalance my portfolio"))
		})

		It("should surface non-2xx responses as errors", func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			}))
			client = session.NewClient(server.URL)

			err := client.SendMessage(context.Background(), "s1", "hello")

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("502"))
		})
	})

	Describe("History", func() {
		It("should decode the session backlog", func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/api/sessions/s1/messages"))
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`[
					{"id":"u1","role":"user","content":[{"type":"text","text":"gm"}]},
					{"id":"a1","role":"tool","content":[{"type":"text","text":"0.42 ETH"}]}
				]`))
			}))
			client = session.NewClient(server.URL)

			messages, err := client.History(context.Background(), "s1")

			Expect(err).ToNot(HaveOccurred())
			Expect(messages).To(HaveLen(2))
			Expect(messages[0].Text()).To(Equal("gm"))
			Expect(messages[1].Role).To(Equal(chat.RoleTool))
		})
	})

	Describe("List", func() {
		It("should return all sessions", func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/api/sessions"))
				w.Write([]byte(`[{"id":"s1","name":"Yield scan"},{"id":"s2","name":"Gas audit"}]`))
			}))
			client = session.NewClient(server.URL)

			sessions, err := client.List(context.Background())

			Expect(err).ToNot(HaveOccurred())
			Expect(sessions).To(HaveLen(2))
			Expect(sessions[1].Name).To(Equal("Gas audit"))
		})
	})

	Describe("Rename", func() {
		It("should patch the session name", func() {
			var gotMethod, gotPath string
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotMethod = r.Method
				gotPath = r.URL.Path
			}))
			client = session.NewClient(server.URL)

			Expect(client.Rename(context.Background(), "s1", "DCA plan")).To(Succeed())
			Expect(gotMethod).To(Equal(http.MethodPatch))
			Expect(gotPath).To(Equal("/api/sessions/s1"))
		})
	})

	Describe("Approvals", func() {
		It("should post approve and reject decisions by id", func() {
			var paths []string
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal(http.MethodPost))
				paths = append(paths, r.URL.Path)
			}))
			client = session.NewClient(server.URL)

			Expect(client.Approve(context.Background(), "ap1")).To(Succeed())
			Expect(client.Reject(context.Background(), "ap2")).To(Succeed())
			Expect(paths).To(Equal([]string{"/api/approvals/ap1/approve", "/api/approvals/ap2/reject"}))
		})
	})
})

var _ = Describe("ProjectHistory", func() {
	It("should fold server roles while preserving the raw role", func() {
		raw := []chat.Message{
			{ID: "u1", Role: chat.RoleUser},
			{ID: "t1", Role: chat.RoleTool},
		}

		projected := session.ProjectHistory(raw, chat.FoldRoles)

		Expect(projected[0].Role).To(Equal(chat.RoleUser))
		Expect(projected[1].Role).To(Equal(chat.RoleAssistant))
		Expect(projected[1].RawRole).To(Equal(chat.RoleTool))
		// Input untouched.
		Expect(raw[1].Role).To(Equal(chat.RoleTool))
	})
})
