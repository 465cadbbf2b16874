package editor

import (
	"sync"
)

// Manager owns one composer session per conversation and serializes all
// access to it. Each session has a single writer at a time; handlers run
// their whole edit under the session lock via With.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	mu      sync.Mutex
	session *Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*entry)}
}

// SessionKey addresses a user's composer for one conversation. The empty
// conversation id is the new-chat composer that exists before any
// conversation does.
func SessionKey(userID, conversationID string) string {
	return userID + "/" + conversationID
}

// With runs fn against the conversation's session, creating it on first use.
// The session must not escape fn.
func (m *Manager) With(conversationID string, fn func(*Session)) {
	e := m.entryFor(conversationID)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.session)
}

// Drop discards the session for a conversation, e.g. when the conversation
// is deleted.
func (m *Manager) Drop(conversationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, conversationID)
}

func (m *Manager) entryFor(id string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		e = &entry{session: NewSession()}
		m.sessions[id] = e
	}
	return e
}
