package transport

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Keccak1/gourme7-idea-frontend/pkg/events"
	"github.com/Keccak1/gourme7-idea-frontend/pkg/logger"
)

// State is the connection state of the event stream, owned exclusively by
// the Client. Consumers only observe it.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateError        State = "error"
)

// Reconnection policy defaults, caller-overridable through Options.
const (
	DefaultMaxReconnectAttempts  = 5
	DefaultInitialReconnectDelay = 1000 * time.Millisecond
	DefaultMaxReconnectDelay     = 30000 * time.Millisecond
)

// Options configures a stream client.
type Options struct {
	BaseURL               string
	MaxReconnectAttempts  int
	InitialReconnectDelay time.Duration
	MaxReconnectDelay     time.Duration
	HTTPClient            *http.Client
}

// Client maintains one logical subscription to a per-session event stream.
// On unexpected connection loss it reconnects with exponential backoff;
// net/http performs no retrying of its own, so this policy is the only one
// in effect.
type Client struct {
	opts Options
	log  *logger.Logger

	mu        sync.Mutex
	state     State
	sessionID string
	attempts  int
	closing   bool
	gen       int
	cancel    context.CancelFunc
	timer     *time.Timer

	handler      func(events.Event)
	onState      func(State)
	onError      func(error)
	onDisconnect func()
}

// NewClient creates a stream client, filling unset options with defaults.
func NewClient(opts Options) *Client {
	if opts.MaxReconnectAttempts == 0 {
		opts.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if opts.InitialReconnectDelay == 0 {
		opts.InitialReconnectDelay = DefaultInitialReconnectDelay
	}
	if opts.MaxReconnectDelay == 0 {
		opts.MaxReconnectDelay = DefaultMaxReconnectDelay
	}
	if opts.HTTPClient == nil {
		// No overall timeout: the stream stays open indefinitely.
		opts.HTTPClient = &http.Client{}
	}
	return &Client{
		opts:  opts,
		state: StateDisconnected,
		log:   logger.WithComponent("transport"),
	}
}

// OnEvent registers the decoded-event handler.
func (c *Client) OnEvent(fn func(events.Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = fn
}

// OnStateChange registers the connection state observer. It fires only on
// actual state changes.
func (c *Client) OnStateChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = fn
}

// OnError registers the error callback. Parse failures, connection failures
// and reconnect exhaustion are reported here; none of them crash the client.
func (c *Client) OnError(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = fn
}

// OnDisconnect registers the callback fired when the client gives up
// reconnecting.
func (c *Client) OnDisconnect(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDisconnect = fn
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the session currently subscribed to.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Connect opens the event stream for a session. Connecting to the session
// already subscribed is a no-op; a different session closes the prior
// stream first. The reconnect attempt counter resets to zero.
func (c *Client) Connect(sessionID string) {
	c.mu.Lock()
	if c.sessionID == sessionID && (c.state == StateConnected || c.state == StateConnecting) {
		c.mu.Unlock()
		c.log.Debug("Already connected to session", "session", sessionID)
		return
	}

	c.teardownLocked()
	c.sessionID = sessionID
	c.closing = false
	c.attempts = 0
	c.gen++
	gen := c.gen
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	c.log.Info("Connecting to event stream", "session", sessionID)
	go c.dial(gen)
}

// Close intentionally releases the stream. It cancels any pending reconnect
// timer, drops the handler reference so stray events are never delivered,
// and is guaranteed not to trigger a reconnect afterward.
func (c *Client) Close() {
	c.mu.Lock()
	c.closing = true
	c.gen++
	c.teardownLocked()
	c.handler = nil
	c.setStateLocked(StateDisconnected)
	c.mu.Unlock()

	c.log.Info("Event stream closed")
}

// teardownLocked cancels the active stream and any pending reconnect timer.
func (c *Client) teardownLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// setStateLocked transitions state, notifying only on actual change.
func (c *Client) setStateLocked(next State) {
	if c.state == next {
		return
	}
	prev := c.state
	c.state = next
	notify := c.onState

	c.log.Debug("Connection state changed", "from", prev, "to", next)
	if notify != nil {
		go notify(next)
	}
}

// dial opens the HTTP stream and pumps events until the connection drops.
func (c *Client) dial(gen int) {
	c.mu.Lock()
	if gen != c.gen || c.closing {
		c.mu.Unlock()
		return
	}
	sessionID := c.sessionID
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.mu.Unlock()

	url := fmt.Sprintf("%s/api/sessions/%s/events", strings.TrimRight(c.opts.BaseURL, "/"), sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.connectionLost(gen, fmt.Errorf("failed to create stream request: %w", err))
		return
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		c.connectionLost(gen, fmt.Errorf("stream connection failed: %w", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.connectionLost(gen, fmt.Errorf("stream request failed with status %d", resp.StatusCode))
		return
	}

	c.mu.Lock()
	if gen != c.gen || c.closing {
		c.mu.Unlock()
		return
	}
	c.attempts = 0
	c.setStateLocked(StateConnected)
	c.mu.Unlock()

	c.readLoop(gen, resp)
}

// readLoop consumes the SSE body line by line. Each data payload decodes to
// one event; decode failures are reported and skipped without advancing any
// streaming state.
func (c *Client) readLoop(gen int, resp *http.Response) {
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			if data.Len() > 0 {
				c.dispatch(gen, data.String())
				data.Reset()
			}
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case strings.HasPrefix(line, ":"):
			// SSE comment / keep-alive
		default:
			// Field lines other than data (event:, id:, retry:) are unused
			// by this protocol.
		}
	}
	if data.Len() > 0 {
		c.dispatch(gen, data.String())
	}

	err := scanner.Err()
	if err == nil {
		err = fmt.Errorf("event stream ended")
	}
	c.connectionLost(gen, err)
}

// dispatch decodes and delivers one event payload.
func (c *Client) dispatch(gen int, payload string) {
	c.mu.Lock()
	if gen != c.gen || c.closing {
		c.mu.Unlock()
		return
	}
	handler := c.handler
	onError := c.onError
	c.mu.Unlock()

	ev, err := events.Parse([]byte(payload))
	if err != nil {
		c.log.Warn("Dropping malformed event", "error", err)
		if onError != nil {
			onError(err)
		}
		return
	}

	if handler != nil {
		handler(ev)
	}
}

// connectionLost handles an unexpected drop: schedule a backoff reconnect,
// or give up once attempts are exhausted.
func (c *Client) connectionLost(gen int, cause error) {
	c.mu.Lock()
	if gen != c.gen || c.closing {
		// Intentional close; Close() already settled the state.
		c.mu.Unlock()
		return
	}

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.attempts++
	attempt := c.attempts

	if attempt > c.opts.MaxReconnectAttempts {
		c.setStateLocked(StateError)
		onError := c.onError
		onDisconnect := c.onDisconnect
		c.mu.Unlock()

		c.log.Error("Reconnect attempts exhausted", "attempts", attempt-1, "cause", cause)
		if onError != nil {
			onError(fmt.Errorf("reconnect attempts exhausted after %d tries: %w", attempt-1, cause))
		}
		if onDisconnect != nil {
			onDisconnect()
		}
		return
	}

	c.setStateLocked(StateReconnecting)
	delay := c.nextDelay(attempt)
	c.timer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		stale := gen != c.gen || c.closing
		c.mu.Unlock()
		if stale {
			return
		}
		c.dial(gen)
	})
	c.mu.Unlock()

	c.log.Warn("Connection lost, scheduling reconnect",
		"attempt", attempt, "delay", delay, "cause", cause)
}

// nextDelay computes the backoff for an attempt (counted from 1):
// min(initial * 2^(attempt-1), max).
func (c *Client) nextDelay(attempt int) time.Duration {
	delay := c.opts.InitialReconnectDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.opts.MaxReconnectDelay {
			return c.opts.MaxReconnectDelay
		}
	}
	if delay > c.opts.MaxReconnectDelay {
		return c.opts.MaxReconnectDelay
	}
	return delay
}
