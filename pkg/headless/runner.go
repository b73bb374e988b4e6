package headless

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Keccak1/gourme7-idea-frontend/pkg/chat"
	"github.com/Keccak1/gourme7-idea-frontend/pkg/config"
	"github.com/Keccak1/gourme7-idea-frontend/pkg/events"
	"github.com/Keccak1/gourme7-idea-frontend/pkg/logger"
	"github.com/Keccak1/gourme7-idea-frontend/pkg/metadata"
	"github.com/Keccak1/gourme7-idea-frontend/pkg/session"
	"github.com/Keccak1/gourme7-idea-frontend/pkg/transport"
)

// Runner wires the full client core for a one-shot headless exchange:
// history load, event stream, reconciler, submission and console output.
type Runner struct {
	cfg        *config.Config
	store      *chat.Store
	rec        *chat.Reconciler
	stream     *transport.Client
	api        *session.Client
	submitter  *session.Submitter
	names      *metadata.SessionNames
	agent      *metadata.AgentName
	output     *Output
	projection chat.RoleProjection
	log        *logger.Logger

	mu      sync.Mutex
	printed map[string]int // message id -> chars already echoed
	turn    chan struct{}
	turnEnd sync.Once
}

// NewRunner assembles a runner from configuration, printing to stdout.
func NewRunner(cfg *config.Config) *Runner {
	return NewRunnerWithOutput(cfg, NewOutput())
}

// NewRunnerWithOutput assembles a runner with a caller-supplied output.
func NewRunnerWithOutput(cfg *config.Config, output *Output) *Runner {
	store := chat.NewStore()
	names := metadata.NewSessionNames()
	agent := metadata.NewAgentName()

	projection := chat.FoldRoles
	if !cfg.Chat.FoldToolRoles {
		projection = chat.IdentityRoles
	}

	rec := chat.NewReconciler(store)
	rec.SetSessionNames(names)
	rec.SetRoleProjection(projection)

	api := session.NewClientWithTimeout(cfg.Server.URL, cfg.Server.Timeout)

	stream := transport.NewClient(transport.Options{
		BaseURL:               cfg.Server.URL,
		MaxReconnectAttempts:  cfg.Reconnect.MaxAttempts,
		InitialReconnectDelay: cfg.Reconnect.InitialDelay(),
		MaxReconnectDelay:     cfg.Reconnect.MaxDelay(),
	})

	r := &Runner{
		cfg:        cfg,
		store:      store,
		rec:        rec,
		stream:     stream,
		api:        api,
		submitter:  session.NewSubmitter(store, api),
		names:      names,
		agent:      agent,
		output:     output,
		projection: projection,
		log:        logger.WithComponent("headless"),
		printed:    make(map[string]int),
		turn:       make(chan struct{}),
	}

	rec.OnError(func(msg string) {
		output.Error(msg)
		r.finishTurn()
	})
	rec.OnApproval(func(approval events.Approval) {
		output.Approval(approval)
	})

	stream.OnEvent(rec.Handle)
	stream.OnError(func(err error) {
		r.log.Warn("Transport error", "error", err)
	})
	stream.OnDisconnect(func() {
		output.Error("event stream lost; response may be incomplete")
		r.finishTurn()
	})
	stream.OnStateChange(func(s transport.State) {
		r.log.Info("Connection state", "state", s)
	})

	store.Subscribe(chat.ChangeMessages, observerFunc(r.echoStreaming))
	store.Subscribe(chat.ChangeRunning, observerFunc(func(change chat.StateChange) {
		if !change.Running {
			r.finishTurn()
		}
	}))

	if cfg.Agent.Default != "" {
		agent.Set(cfg.Agent.Default)
	}

	return r
}

// Run executes one prompt against a session and blocks until the streamed
// turn finalizes, the context expires, or the stream is lost.
func (r *Runner) Run(ctx context.Context, sessionID, prompt string) error {
	if prompt == "" {
		return fmt.Errorf("prompt cannot be empty in headless mode")
	}

	if history, err := r.api.History(ctx, sessionID); err == nil {
		r.store.Replace(session.ProjectHistory(history, r.projection))
	} else {
		r.log.Warn("History load failed, starting empty", "error", err)
	}

	r.rec.Reset()
	r.stream.Connect(sessionID)

	r.output.RoleLabel(chat.RoleUser)
	r.output.Delta(prompt + "\n")

	if _, err := r.submitter.SubmitText(ctx, sessionID, prompt); err != nil {
		r.output.Error(err.Error())
		return err
	}

	r.output.RoleLabel(chat.RoleAssistant)

	select {
	case <-r.turn:
	case <-ctx.Done():
		return ctx.Err()
	}

	// Give trailing tool results a moment to pair up before rendering.
	time.Sleep(50 * time.Millisecond)
	r.output.Delta("\n")
	r.renderTools()

	if name, ok := r.names.Get(sessionID); ok {
		r.log.Info("Session renamed during turn", "name", name)
	}
	return nil
}

// Cleanup releases the event stream and metadata slots.
func (r *Runner) Cleanup() error {
	r.stream.Close()
	r.agent.Clear()
	return nil
}

// echoStreaming writes newly arrived assistant text incrementally.
func (r *Runner) echoStreaming(change chat.StateChange) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, msg := range change.Messages {
		if !msg.IsAssistant() {
			continue
		}
		text := msg.Text()
		seen := r.printed[msg.ID]
		if len(text) > seen {
			r.output.Delta(text[seen:])
			r.printed[msg.ID] = len(text)
		}
	}
}

// renderTools prints the final state of any tool calls in the last
// assistant turn.
func (r *Runner) renderTools() {
	messages := r.store.Messages()
	for i := len(messages) - 1; i >= 0; i-- {
		if !messages[i].IsAssistant() {
			break
		}
		for _, call := range messages[i].ToolCalls() {
			r.output.ToolCall(call)
		}
	}
}

func (r *Runner) finishTurn() {
	r.turnEnd.Do(func() { close(r.turn) })
}

// observerFunc adapts a function to the store Observer interface.
type observerFunc func(chat.StateChange)

func (f observerFunc) OnStateChanged(change chat.StateChange) { f(change) }
