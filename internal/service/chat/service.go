// Package chat implements the conversation/history surface: the sidebar
// operations, the composer sessions behind them, and the submit/stop
// round-trip against the response provider.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"intelligence/internal/config"
	"intelligence/internal/domain"
	chatModels "intelligence/internal/domain/models/chat"
	chatRepo "intelligence/internal/domain/repositories/chat"
	domainchat "intelligence/internal/domain/services/chat"
	domainllm "intelligence/internal/domain/services/llm"
	"intelligence/internal/prompts"
	"intelligence/internal/service/editor"
)

const maxTitleLength = config.MaxConversationTitleLength

// conversationService implements the ConversationService interface.
type conversationService struct {
	repo     chatRepo.ConversationRepository
	provider domainllm.Provider
	prompts  *prompts.Registry
	sessions *editor.Manager
	logger   *slog.Logger

	generations *generationRegistry

	mu       sync.Mutex
	selected map[string]string // user id -> active conversation id
}

// NewConversationService creates a new conversation service.
func NewConversationService(
	repo chatRepo.ConversationRepository,
	provider domainllm.Provider,
	registry *prompts.Registry,
	sessions *editor.Manager,
	logger *slog.Logger,
) domainchat.ConversationService {
	return &conversationService{
		repo:        repo,
		provider:    provider,
		prompts:     registry,
		sessions:    sessions,
		logger:      logger,
		generations: newGenerationRegistry(),
		selected:    make(map[string]string),
	}
}

// sessionKey addresses a composer session; see editor.SessionKey.
func sessionKey(userID, conversationID string) string {
	return editor.SessionKey(userID, conversationID)
}

func (s *conversationService) Create(ctx context.Context, userID string) (*chatModels.Conversation, error) {
	now := time.Now()
	conv := &chatModels.Conversation{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     s.prompts.DefaultTitle(),
		Messages:  []chatModels.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	s.setSelected(userID, conv.ID)
	s.sessions.Drop(sessionKey(userID, conv.ID))
	s.sessions.Drop(sessionKey(userID, ""))

	s.logger.Info("conversation created", "conversation_id", conv.ID, "user_id", userID)
	return conv, nil
}

func (s *conversationService) Get(ctx context.Context, userID, id string) (*chatModels.Conversation, error) {
	return s.repo.GetByID(ctx, userID, id)
}

func (s *conversationService) List(ctx context.Context, userID string) ([]*chatModels.Conversation, error) {
	return s.repo.List(ctx, userID)
}

func (s *conversationService) Select(ctx context.Context, userID, id string) error {
	if _, err := s.repo.GetByID(ctx, userID, id); err != nil {
		return err
	}
	s.setSelected(userID, id)
	// Switching chats starts from a clean composer: draft, attached file
	// and voice tracker all reset.
	s.sessions.Drop(sessionKey(userID, id))
	return nil
}

func (s *conversationService) Selected(userID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.selected[userID]
	return id, ok
}

func (s *conversationService) Rename(ctx context.Context, userID, id, title string) error {
	title = strings.TrimSpace(title)
	if err := validation.Validate(title,
		validation.Required,
		validation.Length(1, maxTitleLength),
	); err != nil {
		return fmt.Errorf("%w: invalid title: %v", domain.ErrValidation, err)
	}
	return s.repo.Rename(ctx, userID, id, title)
}

func (s *conversationService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.generations.cancel(id)
	s.sessions.Drop(sessionKey(userID, id))

	// Selection must never point at a deleted conversation: fall back to
	// the first remaining one, or to none.
	if selected, ok := s.Selected(userID); ok && selected == id {
		remaining, err := s.repo.List(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to reselect after delete: %w", err)
		}
		if len(remaining) > 0 {
			s.setSelected(userID, remaining[0].ID)
		} else {
			s.clearSelected(userID)
		}
	}

	s.logger.Info("conversation deleted", "conversation_id", id, "user_id", userID)
	return nil
}

func (s *conversationService) Search(ctx context.Context, userID, query string) ([]*chatModels.Conversation, error) {
	all, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all, nil
	}
	matched := make([]*chatModels.Conversation, 0, len(all))
	for _, conv := range all {
		if strings.Contains(strings.ToLower(conv.Title), q) {
			matched = append(matched, conv)
		}
	}
	return matched, nil
}

func (s *conversationService) Grouped(ctx context.Context, userID string, now time.Time) ([]chatModels.ConversationGroup, error) {
	all, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	buckets := map[string][]chatModels.Conversation{}
	today := now.Format("2006-01-02")
	yesterday := now.AddDate(0, 0, -1).Format("2006-01-02")
	for _, conv := range all {
		day := conv.CreatedAt.In(now.Location()).Format("2006-01-02")
		switch day {
		case today:
			buckets[chatModels.BucketToday] = append(buckets[chatModels.BucketToday], *conv)
		case yesterday:
			buckets[chatModels.BucketYesterday] = append(buckets[chatModels.BucketYesterday], *conv)
		default:
			buckets[chatModels.BucketOlder] = append(buckets[chatModels.BucketOlder], *conv)
		}
	}

	groups := make([]chatModels.ConversationGroup, 0, 3)
	for _, label := range []string{chatModels.BucketToday, chatModels.BucketYesterday, chatModels.BucketOlder} {
		if items := buckets[label]; len(items) > 0 {
			groups = append(groups, chatModels.ConversationGroup{Label: label, Items: items})
		}
	}
	return groups, nil
}

func (s *conversationService) setSelected(userID, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected[userID] = id
}

func (s *conversationService) clearSelected(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.selected, userID)
}
