package headless

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Keccak1/gourme7-idea-frontend/pkg/chat"
	"github.com/Keccak1/gourme7-idea-frontend/pkg/config"
)

// fakePlatform serves history, message submission and the SSE event stream
// for one scripted turn.
type fakePlatform struct {
	submitted chan string
	events    []string
}

func (p *fakePlatform) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/sessions/s1/messages", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[{"id":"h1","role":"user","content":[{"type":"text","text":"earlier question"}]}]`))
		case http.MethodPost:
			select {
			case p.submitted <- "sent":
			default:
			}
			w.WriteHeader(http.StatusAccepted)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/sessions/s1/events", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		flusher.Flush()

		// Stream the scripted turn only after the prompt arrives.
		select {
		case <-p.submitted:
		case <-r.Context().Done():
			return
		}

		for _, ev := range p.events {
			fmt.Fprintf(w, "data: %s\n\n", ev)
			flusher.Flush()
		}
		<-r.Context().Done()
	})

	return mux
}

func TestRunnerEndToEnd(t *testing.T) {
	platform := &fakePlatform{
		submitted: make(chan string, 1),
		events: []string{
			`{"type":"message_start","message":{"id":"a1","role":"assistant"}}`,
			`{"type":"text_delta","delta":"Current gas is "}`,
			`{"type":"text_delta","delta":"23 gwei."}`,
			`{"type":"tool_call","toolCall":{"toolCallId":"t1","toolName":"gas_oracle","args":{}}}`,
			`{"type":"tool_result","toolResult":{"toolCallId":"t1","toolName":"gas_oracle","result":"23"}}`,
			`{"type":"session_renamed","sessionId":"s1","name":"Gas check"}`,
			`{"type":"message_stop","finishReason":"stop"}`,
		},
	}
	server := httptest.NewServer(platform.handler(t))
	defer server.Close()

	cfg := testConfig(server.URL)
	var buf syncBuffer
	runner := NewRunnerWithOutput(cfg, NewOutputWithWriter(&buf))
	defer runner.Cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := runner.Run(ctx, "s1", "what is eth gas right now")
	require.NoError(t, err)

	// History was loaded, then user + assistant turns appended.
	messages := runner.store.Messages()
	require.Len(t, messages, 3)
	assert.Equal(t, "earlier question", messages[0].Text())
	assert.Equal(t, chat.RoleUser, messages[1].Role)

	final := messages[2]
	assert.Equal(t, chat.RoleAssistant, final.Role)
	assert.Equal(t, "Current gas is 23 gwei.", final.Text())
	call, found := final.FindToolCall("t1")
	require.True(t, found)
	require.NotNil(t, call.Result)
	assert.Equal(t, "23", call.Result.Value)

	assert.False(t, runner.store.Running())

	name, ok := runner.names.Get("s1")
	require.True(t, ok)
	assert.Equal(t, "Gas check", name)

	out := buf.String()
	assert.Contains(t, out, "Current gas is 23 gwei.")
	assert.Contains(t, out, "gas_oracle")
}

func TestRunnerRejectsEmptyPrompt(t *testing.T) {
	cfg := testConfig("http://localhost:1")
	var buf syncBuffer
	runner := NewRunnerWithOutput(cfg, NewOutputWithWriter(&buf))
	defer runner.Cleanup()

	err := runner.Run(context.Background(), "s1", "")
	assert.Error(t, err)
}

func TestRunnerSurfacesSendFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if r.URL.Path == "/api/sessions/s1/events" {
			w.Header().Set("Content-Type", "text/event-stream")
			w.(http.Flusher).Flush()
			<-r.Context().Done()
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	var buf syncBuffer
	runner := NewRunnerWithOutput(cfg, NewOutputWithWriter(&buf))
	defer runner.Cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := runner.Run(ctx, "s1", "doomed")
	require.Error(t, err)

	// The optimistic message was rolled back.
	assert.Equal(t, 0, runner.store.Len())
	assert.False(t, runner.store.Running())
}

func testConfig(url string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{URL: url, Timeout: 5 * time.Second},
		Reconnect: config.ReconnectConfig{
			MaxAttempts:    2,
			InitialDelayMs: 10,
			MaxDelayMs:     50,
		},
		Chat: config.ChatConfig{FoldToolRoles: true},
	}
}

// syncBuffer guards a bytes.Buffer against concurrent observer writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
