package chat

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"intelligence/internal/config"
	"intelligence/internal/domain"
	"intelligence/internal/domain/models/richtext"
)

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message delivery states. A bot placeholder starts Pending and moves to
// exactly one terminal state; the explicit state machine replaces positional
// "last message is loading" inference, which is fragile under reordering.
type MessageState string

const (
	MessageStatePending   MessageState = "pending"
	MessageStateFulfilled MessageState = "fulfilled"
	MessageStateCancelled MessageState = "cancelled"
)

// AttachedFile is a by-reference file handle: the core never owns file
// bytes, only the name and MIME type travel with the message.
type AttachedFile struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
}

// Validate checks the reference shape: a name is required and must fit the
// stored column.
func (f AttachedFile) Validate() error {
	err := validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required, validation.RuneLength(1, config.MaxAttachmentNameLength)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

// Message is one entry in a conversation log. Content is the structured
// document, stored as JSONB. Messages are never deleted individually; they
// go away with their conversation.
type Message struct {
	ID           string            `json:"id" db:"id"`
	Sender       Sender            `json:"sender" db:"sender"`
	Content      richtext.Document `json:"content" db:"content"`
	AttachedFile *AttachedFile     `json:"attached_file,omitempty" db:"attached_file"`
	State        MessageState      `json:"state" db:"state"`
	IsEmailDraft bool              `json:"is_email_draft" db:"is_email_draft"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
}

// IsLoading reports whether the message is a live bot placeholder.
func (m *Message) IsLoading() bool {
	return m.Sender == SenderBot && m.State == MessageStatePending
}
