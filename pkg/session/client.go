package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Keccak1/gourme7-idea-frontend/pkg/chat"
)

// Session describes one conversation on the agent platform.
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	AgentName string    `json:"agentName,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Client talks to the platform's REST surface: message submission, history,
// session admin and approval decisions. Streamed responses arrive on the
// event stream, never through these calls.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a session API client.
func NewClient(baseURL string) *Client {
	return NewClientWithTimeout(baseURL, 60*time.Second)
}

// NewClientWithTimeout creates a session API client with a custom timeout.
func NewClientWithTimeout(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SendMessage submits a user utterance to a session. The response streams
// back out-of-band on the session's event stream.
func (c *Client) SendMessage(ctx context.Context, sessionID, content string) error {
	body := map[string]string{"content": content}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/sessions/%s/messages", sessionID), body, nil)
}

// History fetches a session's full message backlog, used to seed the store
// on mount.
func (c *Client) History(ctx context.Context, sessionID string) ([]chat.Message, error) {
	var messages []chat.Message
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/sessions/%s/messages", sessionID), nil, &messages)
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// List returns all sessions visible to the client.
func (c *Client) List(ctx context.Context) ([]Session, error) {
	var sessions []Session
	if err := c.do(ctx, http.MethodGet, "/api/sessions", nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Rename updates a session's display name. The confirming session_renamed
// event follows on the stream.
func (c *Client) Rename(ctx context.Context, sessionID, name string) error {
	body := map[string]string{"name": name}
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/sessions/%s", sessionID), body, nil)
}

// Approve accepts a pending tool-call approval.
func (c *Client) Approve(ctx context.Context, approvalID string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/approvals/%s/approve", approvalID), nil, nil)
}

// Reject declines a pending tool-call approval.
func (c *Client) Reject(ctx context.Context, approvalID string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/approvals/%s/reject", approvalID), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(encoded)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// ProjectHistory applies a display-role projection to fetched history,
// preserving the server role in RawRole.
func ProjectHistory(messages []chat.Message, projection chat.RoleProjection) []chat.Message {
	out := make([]chat.Message, len(messages))
	for i, m := range messages {
		projected := m.Clone()
		if projected.RawRole == "" {
			projected.RawRole = m.Role
		}
		projected.Role = projection(projected.RawRole)
		out[i] = projected
	}
	return out
}
