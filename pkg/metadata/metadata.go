package metadata

import "sync"

// SessionNames maps session ids to human-readable names. Entries are fed by
// session_renamed stream events and read by any view needing a display name.
// Entries are never expired automatically; the owner clears explicitly.
type SessionNames struct {
	mu    sync.RWMutex
	names map[string]string
}

// NewSessionNames creates an empty session-name mapping.
func NewSessionNames() *SessionNames {
	return &SessionNames{names: make(map[string]string)}
}

// Set records the display name for a session.
func (s *SessionNames) Set(sessionID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[sessionID] = name
}

// Get returns the display name for a session, if one has been recorded.
func (s *SessionNames) Get(sessionID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.names[sessionID]
	return name, ok
}

// Delete removes a single session's name.
func (s *SessionNames) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.names, sessionID)
}

// Clear drops all recorded names.
func (s *SessionNames) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = make(map[string]string)
}

// Len returns the number of recorded names.
func (s *SessionNames) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.names)
}

// AgentName is a single slot holding the currently loaded agent's display
// name. Set when an agent's detail loads; cleared when the owning view
// unmounts so a stale name never leaks into another agent's view.
type AgentName struct {
	mu   sync.RWMutex
	name string
}

// NewAgentName creates an empty agent-name slot.
func NewAgentName() *AgentName {
	return &AgentName{}
}

// Set records the current agent's name.
func (a *AgentName) Set(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.name = name
}

// Get returns the current agent's name, empty if none is loaded.
func (a *AgentName) Get() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.name
}

// Clear empties the slot.
func (a *AgentName) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.name = ""
}
