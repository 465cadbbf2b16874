package config

const (
	// MaxConversationTitleLength is the maximum length for conversation
	// titles. Limited to 255 to fit in PostgreSQL VARCHAR(255) and keep
	// sidebar entries short.
	MaxConversationTitleLength = 255

	// MaxAttachmentNameLength is the maximum length for attached file
	// names. Files travel by reference, only the name is stored.
	MaxAttachmentNameLength = 255
)
