package chat

import (
	"sync"
	"time"

	"github.com/Keccak1/gourme7-idea-frontend/pkg/logger"
)

// Change types published to store observers
const (
	ChangeMessages  = "messages_change"
	ChangeRunning   = "running_change"
	ChangeStreaming = "streaming_change"
)

// StateChange describes one store mutation.
type StateChange struct {
	Type      string
	Messages  []Message
	Running   bool
	Streaming bool
	Timestamp time.Time
}

// Observer receives store change notifications.
type Observer interface {
	OnStateChanged(change StateChange)
}

// Store holds the ordered message history plus the running/streaming flags.
// The reconciler and the submitter are the only writers; views observe.
//
// Mutations always derive a new message slice from the old one, so a
// snapshot handed out earlier is never edited underneath its holder.
type Store struct {
	mu        sync.RWMutex
	messages  []Message
	running   bool
	streaming bool
	observers map[string][]Observer
	log       *logger.Logger
}

// NewStore creates an empty message history store.
func NewStore() *Store {
	return &Store{
		messages:  make([]Message, 0),
		observers: make(map[string][]Observer),
		log:       logger.WithComponent("store"),
	}
}

// Subscribe adds an observer for a change type. "*" receives everything.
func (s *Store) Subscribe(changeType string, observer Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers[changeType] = append(s.observers[changeType], observer)
	s.log.Debug("Observer subscribed", "changeType", changeType)
}

// Unsubscribe removes an observer from a change type.
func (s *Store) Unsubscribe(changeType string, observer Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	observers := s.observers[changeType]
	for i, obs := range observers {
		if obs == observer {
			s.observers[changeType] = append(observers[:i], observers[i+1:]...)
			break
		}
	}
}

// Messages returns a deep-copied snapshot of the ordered history.
func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Len returns the number of messages in history.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Get returns the message with the given id.
func (s *Store) Get(id string) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.messages {
		if m.ID == id {
			return m.Clone(), true
		}
	}
	return Message{}, false
}

// Running reports whether a response is in flight (submit through
// finalization, inclusive of approval waits and tool round-trips).
func (s *Store) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Streaming reports whether deltas are actively arriving for an open message.
func (s *Store) Streaming() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.streaming
}

// Append adds a message to the end of history.
func (s *Store) Append(msg Message) {
	s.mu.Lock()
	next := make([]Message, len(s.messages)+1)
	copy(next, s.messages)
	next[len(s.messages)] = msg.Clone()
	s.messages = next
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Debug("Message appended", "id", msg.ID, "role", msg.Role)
	s.notify(StateChange{Type: ChangeMessages, Messages: snapshot, Timestamp: time.Now()})
}

// Update replaces the content of the message with the given id. Returns
// false (and mutates nothing) if no such message exists.
func (s *Store) Update(id string, content []Part) bool {
	s.mu.Lock()
	idx := -1
	for i, m := range s.messages {
		if m.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		s.log.Debug("Update targeted missing message", "id", id)
		return false
	}

	next := make([]Message, len(s.messages))
	copy(next, s.messages)
	updated := next[idx]
	updated.Content = clonePartList(content)
	next[idx] = updated
	s.messages = next
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(StateChange{Type: ChangeMessages, Messages: snapshot, Timestamp: time.Now()})
	return true
}

// AttachToolResult finds the message containing a tool-call part with the
// given id and records the result on that part. Returns false if no message
// holds a matching call; unmatched results are a tolerated ordering anomaly.
func (s *Store) AttachToolResult(toolCallID string, result ToolResultPart) bool {
	s.mu.Lock()
	msgIdx, partIdx := -1, -1
	for i, m := range s.messages {
		for j, p := range m.Content {
			if p.Type == PartToolCall && p.ToolCall != nil && p.ToolCall.ToolCallID == toolCallID {
				msgIdx, partIdx = i, j
				break
			}
		}
		if msgIdx >= 0 {
			break
		}
	}
	if msgIdx < 0 {
		s.mu.Unlock()
		s.log.Debug("Tool result had no matching call", "toolCallId", toolCallID)
		return false
	}

	next := make([]Message, len(s.messages))
	copy(next, s.messages)
	updated := next[msgIdx].Clone()
	updated.Content[partIdx].ToolCall.Result = &result
	next[msgIdx] = updated
	s.messages = next
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Debug("Tool result attached", "toolCallId", toolCallID, "isError", result.IsError)
	s.notify(StateChange{Type: ChangeMessages, Messages: snapshot, Timestamp: time.Now()})
	return true
}

// Remove deletes the message with the given id. Returns false if absent.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	idx := -1
	for i, m := range s.messages {
		if m.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}

	next := make([]Message, 0, len(s.messages)-1)
	next = append(next, s.messages[:idx]...)
	next = append(next, s.messages[idx+1:]...)
	s.messages = next
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Debug("Message removed", "id", id)
	s.notify(StateChange{Type: ChangeMessages, Messages: snapshot, Timestamp: time.Now()})
	return true
}

// Replace swaps the full history, used when a session's backlog loads from
// the backend. The caller sees it complete synchronously; observers are
// notified on a separate goroutine like every other change, so a view
// triggering the load is never re-entered mid-render.
func (s *Store) Replace(messages []Message) {
	next := make([]Message, len(messages))
	for i, m := range messages {
		next[i] = m.Clone()
	}

	s.mu.Lock()
	s.messages = next
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Debug("History replaced", "count", len(next))
	s.notify(StateChange{Type: ChangeMessages, Messages: snapshot, Timestamp: time.Now()})
}

// SetRunning sets the in-flight flag. Observers are only notified on an
// actual change.
func (s *Store) SetRunning(running bool) {
	s.mu.Lock()
	if s.running == running {
		s.mu.Unlock()
		return
	}
	s.running = running
	s.mu.Unlock()

	s.log.Debug("Running flag changed", "running", running)
	s.notify(StateChange{Type: ChangeRunning, Running: running, Timestamp: time.Now()})
}

// SetStreaming sets the actively-streaming flag. Observers are only
// notified on an actual change.
func (s *Store) SetStreaming(streaming bool) {
	s.mu.Lock()
	if s.streaming == streaming {
		s.mu.Unlock()
		return
	}
	s.streaming = streaming
	s.mu.Unlock()

	s.log.Debug("Streaming flag changed", "streaming", streaming)
	s.notify(StateChange{Type: ChangeStreaming, Streaming: streaming, Timestamp: time.Now()})
}

func (s *Store) snapshotLocked() []Message {
	snapshot := make([]Message, len(s.messages))
	for i, m := range s.messages {
		snapshot[i] = m.Clone()
	}
	return snapshot
}

// notify delivers a change to subscribed and global observers outside the
// store lock.
func (s *Store) notify(change StateChange) {
	s.mu.RLock()
	observers := append([]Observer{}, s.observers[change.Type]...)
	observers = append(observers, s.observers["*"]...)
	s.mu.RUnlock()

	for _, observer := range observers {
		go func(obs Observer) {
			obs.OnStateChanged(change)
		}(observer)
	}
}
