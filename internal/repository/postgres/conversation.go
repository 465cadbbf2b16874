package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"intelligence/internal/domain"
	chatModels "intelligence/internal/domain/models/chat"
	"intelligence/internal/domain/models/richtext"
	"intelligence/internal/domain/repositories"
	chatRepo "intelligence/internal/domain/repositories/chat"
)

// PostgresConversationRepository implements the ConversationRepository
// interface. Message content is stored as JSONB in the document model's wire
// encoding; conversations soft-delete via deleted_at.
type PostgresConversationRepository struct {
	pool      *pgxpool.Pool
	tables    *TableNames
	txManager repositories.TransactionManager
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(config *RepositoryConfig) chatRepo.ConversationRepository {
	return &PostgresConversationRepository{
		pool:      config.Pool,
		tables:    config.Tables,
		txManager: NewTransactionManager(config.Pool),
	}
}

// Create inserts the conversation and any initial messages in one
// transaction.
func (r *PostgresConversationRepository) Create(ctx context.Context, conv *chatModels.Conversation) error {
	return r.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		query := fmt.Sprintf(`
			INSERT INTO %s (id, user_id, title, is_generating, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, r.tables.Conversations)

		_, err := GetExecutor(txCtx, r.pool).Exec(txCtx, query,
			conv.ID,
			conv.UserID,
			conv.Title,
			conv.IsGenerating,
			conv.CreatedAt,
			conv.UpdatedAt,
		)
		if err != nil {
			if isPgDuplicateError(err) {
				return fmt.Errorf("conversation %s already exists: %w", conv.ID, domain.ErrValidation)
			}
			return fmt.Errorf("create conversation: %w", err)
		}

		for _, msg := range conv.Messages {
			if err := r.insertMessage(txCtx, conv.ID, msg); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByID retrieves a conversation with its ordered message log.
func (r *PostgresConversationRepository) GetByID(ctx context.Context, userID, id string) (*chatModels.Conversation, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, title, is_generating, created_at, updated_at
		FROM %s
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, r.tables.Conversations)

	var conv chatModels.Conversation
	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, id, userID).Scan(
		&conv.ID,
		&conv.UserID,
		&conv.Title,
		&conv.IsGenerating,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	messages, err := r.loadMessages(ctx, id)
	if err != nil {
		return nil, err
	}
	conv.Messages = messages
	return &conv, nil
}

// List returns the user's conversations newest-created first, including
// message logs.
func (r *PostgresConversationRepository) List(ctx context.Context, userID string) ([]*chatModels.Conversation, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, title, is_generating, created_at, updated_at
		FROM %s
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`, r.tables.Conversations)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var convs []*chatModels.Conversation
	for rows.Next() {
		var conv chatModels.Conversation
		if err := rows.Scan(
			&conv.ID,
			&conv.UserID,
			&conv.Title,
			&conv.IsGenerating,
			&conv.CreatedAt,
			&conv.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, &conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	for _, conv := range convs {
		messages, err := r.loadMessages(ctx, conv.ID)
		if err != nil {
			return nil, err
		}
		conv.Messages = messages
	}
	return convs, nil
}

// Rename updates the title in place.
func (r *PostgresConversationRepository) Rename(ctx context.Context, userID, id, title string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $1, updated_at = $2
		WHERE id = $3 AND user_id = $4 AND deleted_at IS NULL
	`, r.tables.Conversations)

	tag, err := GetExecutor(ctx, r.pool).Exec(ctx, query, title, time.Now(), id, userID)
	if err != nil {
		return fmt.Errorf("rename conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Delete soft-deletes a conversation; its messages stay behind the tombstone.
func (r *PostgresConversationRepository) Delete(ctx context.Context, userID, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = $1, updated_at = $1
		WHERE id = $2 AND user_id = $3 AND deleted_at IS NULL
	`, r.tables.Conversations)

	tag, err := GetExecutor(ctx, r.pool).Exec(ctx, query, time.Now(), id, userID)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// AppendMessages appends to the log in one transaction: all messages become
// visible together or none do.
func (r *PostgresConversationRepository) AppendMessages(ctx context.Context, userID, conversationID string, messages []chatModels.Message) error {
	if _, err := r.GetByID(ctx, userID, conversationID); err != nil {
		return err
	}
	return r.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		for _, msg := range messages {
			if err := r.insertMessage(txCtx, conversationID, msg); err != nil {
				return err
			}
		}
		return r.touch(txCtx, conversationID)
	})
}

// UpdateMessage replaces one message in place, matched by id.
func (r *PostgresConversationRepository) UpdateMessage(ctx context.Context, userID, conversationID string, message chatModels.Message) error {
	if _, err := r.GetByID(ctx, userID, conversationID); err != nil {
		return err
	}

	content, attachedFile, err := encodeMessageBody(message)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET content = $1, attached_file = $2, state = $3, is_email_draft = $4
		WHERE id = $5 AND conversation_id = $6
	`, r.tables.Messages)

	tag, err := GetExecutor(ctx, r.pool).Exec(ctx, query,
		content,
		attachedFile,
		string(message.State),
		message.IsEmailDraft,
		message.ID,
		conversationID,
	)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("message %s: %w", message.ID, domain.ErrNotFound)
	}
	return r.touch(ctx, conversationID)
}

// SetGenerating flags an in-flight response for the conversation.
func (r *PostgresConversationRepository) SetGenerating(ctx context.Context, userID, conversationID string, generating bool) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET is_generating = $1, updated_at = $2
		WHERE id = $3 AND user_id = $4 AND deleted_at IS NULL
	`, r.tables.Conversations)

	tag, err := GetExecutor(ctx, r.pool).Exec(ctx, query, generating, time.Now(), conversationID, userID)
	if err != nil {
		return fmt.Errorf("set generating flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("conversation %s: %w", conversationID, domain.ErrNotFound)
	}
	return nil
}

// insertMessage appends one message. The seq column takes its value from the
// table's sequence, so log order survives reloads even when a batch of
// messages shares a created_at timestamp.
func (r *PostgresConversationRepository) insertMessage(ctx context.Context, conversationID string, msg chatModels.Message) error {
	content, attachedFile, err := encodeMessageBody(msg)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, conversation_id, sender, content, attached_file, state, is_email_draft, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.tables.Messages)

	_, err = GetExecutor(ctx, r.pool).Exec(ctx, query,
		msg.ID,
		conversationID,
		string(msg.Sender),
		content,
		attachedFile,
		string(msg.State),
		msg.IsEmailDraft,
		msg.CreatedAt,
	)
	if err != nil {
		if isPgForeignKeyError(err) {
			return fmt.Errorf("conversation %s: %w", conversationID, domain.ErrNotFound)
		}
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *PostgresConversationRepository) loadMessages(ctx context.Context, conversationID string) ([]chatModels.Message, error) {
	query := fmt.Sprintf(`
		SELECT id, sender, content, attached_file, state, is_email_draft, created_at
		FROM %s
		WHERE conversation_id = $1
		ORDER BY seq ASC
	`, r.tables.Messages)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	messages := []chatModels.Message{}
	for rows.Next() {
		var (
			msg          chatModels.Message
			sender       string
			state        string
			content      []byte
			attachedFile []byte
		)
		if err := rows.Scan(&msg.ID, &sender, &content, &attachedFile, &state, &msg.IsEmailDraft, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Sender = chatModels.Sender(sender)
		msg.State = chatModels.MessageState(state)

		var doc richtext.Document
		if err := json.Unmarshal(content, &doc); err != nil {
			return nil, fmt.Errorf("decode message content: %w", err)
		}
		msg.Content = doc

		if len(attachedFile) > 0 {
			var file chatModels.AttachedFile
			if err := json.Unmarshal(attachedFile, &file); err != nil {
				return nil, fmt.Errorf("decode attached file: %w", err)
			}
			msg.AttachedFile = &file
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	return messages, nil
}

// touch bumps the conversation's updated_at.
func (r *PostgresConversationRepository) touch(ctx context.Context, conversationID string) error {
	query := fmt.Sprintf(`UPDATE %s SET updated_at = $1 WHERE id = $2`, r.tables.Conversations)
	if _, err := GetExecutor(ctx, r.pool).Exec(ctx, query, time.Now(), conversationID); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

// encodeMessageBody renders the JSONB columns: the document in its wire
// encoding, and the attached-file reference or NULL.
func encodeMessageBody(msg chatModels.Message) (content, attachedFile []byte, err error) {
	content, err = json.Marshal(msg.Content)
	if err != nil {
		return nil, nil, fmt.Errorf("encode message content: %w", err)
	}
	if msg.AttachedFile != nil {
		attachedFile, err = json.Marshal(msg.AttachedFile)
		if err != nil {
			return nil, nil, fmt.Errorf("encode attached file: %w", err)
		}
	}
	return content, attachedFile, nil
}
