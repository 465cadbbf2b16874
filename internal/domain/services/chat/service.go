package chat

import (
	"context"
	"time"

	chatModels "intelligence/internal/domain/models/chat"
)

// SendResult reports what a submit produced: the conversation it landed in
// (created on the fly when none was active) and the two messages appended
// atomically.
type SendResult struct {
	ConversationID string             `json:"conversation_id"`
	Created        bool               `json:"created"`
	UserMessage    chatModels.Message `json:"user_message"`
	Placeholder    chatModels.Message `json:"placeholder"`
}

// ConversationService is the conversation/history surface: the sidebar
// operations plus the submit/stop round-trip.
type ConversationService interface {
	// Create starts an empty conversation with the default title and
	// selects it. The composer session is cleared.
	Create(ctx context.Context, userID string) (*chatModels.Conversation, error)

	// Get returns one conversation with messages.
	Get(ctx context.Context, userID, id string) (*chatModels.Conversation, error)

	// List returns all conversations, newest first.
	List(ctx context.Context, userID string) ([]*chatModels.Conversation, error)

	// Select switches the active conversation, clearing the composer and
	// any attached file.
	Select(ctx context.Context, userID, id string) error

	// Selected reports the active conversation id, if any.
	Selected(userID string) (string, bool)

	// Rename updates a title in place.
	Rename(ctx context.Context, userID, id, title string) error

	// Delete removes a conversation. If it was selected, selection falls
	// back to the first remaining conversation, or to none.
	Delete(ctx context.Context, userID, id string) error

	// Search filters conversations by case-insensitive substring match on
	// the title. A view over List, never destructive.
	Search(ctx context.Context, userID, query string) ([]*chatModels.Conversation, error)

	// Grouped buckets conversations into Today/Yesterday/Older by the
	// calendar day of creation relative to now. Empty buckets are
	// omitted; order is fixed.
	Grouped(ctx context.Context, userID string, now time.Time) ([]chatModels.ConversationGroup, error)

	// Send submits the composer draft to the given conversation, creating
	// one when id is empty. Returns domain.ErrEmptyDraft when there is
	// nothing to send. The response generation continues asynchronously
	// after Send returns.
	Send(ctx context.Context, userID, conversationID string) (*SendResult, error)

	// Stop cancels the in-flight generation for a conversation and marks
	// its placeholder terminal without deleting it.
	Stop(ctx context.Context, userID, conversationID string) error
}
