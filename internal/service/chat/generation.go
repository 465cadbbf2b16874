package chat

import (
	"context"
	"sync"
)

// generation is one tracked in-flight response request.
type generation struct {
	messageID string
	cancel    context.CancelFunc
}

// generationRegistry tracks at most one in-flight generation per
// conversation. Beginning a new one implicitly cancels and supersedes the
// previous, and a finished request can detect that it has been superseded
// before applying its result.
type generationRegistry struct {
	mu     sync.Mutex
	active map[string]generation // conversation id -> in-flight request
}

func newGenerationRegistry() *generationRegistry {
	return &generationRegistry{active: make(map[string]generation)}
}

// begin registers a generation for the conversation and returns its context.
func (r *generationRegistry) begin(conversationID, messageID string) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.active[conversationID]; ok {
		prev.cancel()
	}
	r.active[conversationID] = generation{messageID: messageID, cancel: cancel}
	return ctx
}

// matches reports whether the given generation is still the tracked one for
// its conversation.
func (r *generationRegistry) matches(conversationID, messageID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.active[conversationID]
	return ok && g.messageID == messageID
}

// finish clears the entry if it still belongs to the given generation.
func (r *generationRegistry) finish(conversationID, messageID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.active[conversationID]; ok && g.messageID == messageID {
		g.cancel()
		delete(r.active, conversationID)
	}
}

// cancel aborts the conversation's in-flight generation, if any.
func (r *generationRegistry) cancel(conversationID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.active[conversationID]
	if !ok {
		return false
	}
	g.cancel()
	delete(r.active, conversationID)
	return true
}
