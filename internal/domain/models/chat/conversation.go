package chat

import (
	"time"
)

// Conversation is a titled, timestamped, ordered message log. It exclusively
// owns its message sequence; the composer owns the in-progress document until
// submit turns it into a Message.
type Conversation struct {
	ID           string     `json:"id" db:"id"`
	UserID       string     `json:"user_id" db:"user_id"`
	Title        string     `json:"title" db:"title"`
	Messages     []Message  `json:"messages"`
	IsGenerating bool       `json:"is_generating" db:"is_generating"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Recency bucket labels, in their fixed display order.
const (
	BucketToday     = "Today"
	BucketYesterday = "Yesterday"
	BucketOlder     = "Older"
)

// ConversationGroup is one recency bucket of the sidebar listing.
type ConversationGroup struct {
	Label string         `json:"label"`
	Items []Conversation `json:"items"`
}
