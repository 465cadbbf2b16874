package chat

import (
	"context"

	chatModels "intelligence/internal/domain/models/chat"
)

// ConversationRepository persists conversations and their message logs.
// Implementations return domain.ErrNotFound (wrapped) when the addressed
// conversation or message does not exist for the user.
type ConversationRepository interface {
	// Create stores a new conversation, including any initial messages.
	Create(ctx context.Context, conv *chatModels.Conversation) error

	// GetByID returns one conversation with its full message log.
	GetByID(ctx context.Context, userID, id string) (*chatModels.Conversation, error)

	// List returns the user's conversations newest-created first, with
	// messages loaded.
	List(ctx context.Context, userID string) ([]*chatModels.Conversation, error)

	// Rename updates the title in place.
	Rename(ctx context.Context, userID, id, title string) error

	// Delete removes a conversation (soft delete).
	Delete(ctx context.Context, userID, id string) error

	// AppendMessages appends messages to the log as one atomic write:
	// all become visible together or none do.
	AppendMessages(ctx context.Context, userID, conversationID string, messages []chatModels.Message) error

	// UpdateMessage replaces a message in place, matched by its id.
	UpdateMessage(ctx context.Context, userID, conversationID string, message chatModels.Message) error

	// SetGenerating flags whether a response is in flight for the
	// conversation.
	SetGenerating(ctx context.Context, userID, conversationID string, generating bool) error
}
