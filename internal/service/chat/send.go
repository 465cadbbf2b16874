package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"intelligence/internal/domain"
	chatModels "intelligence/internal/domain/models/chat"
	"intelligence/internal/domain/models/richtext"
	domainchat "intelligence/internal/domain/services/chat"
	"intelligence/internal/service/editor"
	"intelligence/internal/service/markdown"
)

const titleTimeout = 30 * time.Second

// Send submits the composer draft. The user message and the pending bot
// placeholder are appended as one atomic write, then generation runs in the
// background; the caller gets the two messages back immediately.
func (s *conversationService) Send(ctx context.Context, userID, conversationID string) (*domainchat.SendResult, error) {
	key := sessionKey(userID, conversationID)

	var (
		doc  richtext.Document
		file *chatModels.AttachedFile
		has  bool
	)
	// Snapshot the draft without resetting the session: a failure anywhere
	// below must leave the composer holding the user's text. The session is
	// cleared only once the append has landed.
	s.sessions.With(key, func(sess *editor.Session) {
		if has = sess.HasContent(); has {
			doc = sess.Document
			if f := sess.AttachedFile(); f != nil {
				cp := *f
				file = &cp
			}
		}
	})
	if !has {
		return nil, domain.ErrEmptyDraft
	}

	created := false
	if conversationID == "" {
		conv, err := s.Create(ctx, userID)
		if err != nil {
			return nil, err
		}
		conversationID = conv.ID
		created = true
	}

	before, err := s.repo.GetByID(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	userMsg := chatModels.Message{
		ID:           uuid.New().String(),
		Sender:       chatModels.SenderUser,
		Content:      doc,
		AttachedFile: file,
		State:        chatModels.MessageStateFulfilled,
		CreatedAt:    now,
	}
	placeholder := chatModels.Message{
		ID:        uuid.New().String(),
		Sender:    chatModels.SenderBot,
		Content:   richtext.New(),
		State:     chatModels.MessageStatePending,
		CreatedAt: now,
	}

	if err := s.repo.AppendMessages(ctx, userID, conversationID, []chatModels.Message{userMsg, placeholder}); err != nil {
		return nil, fmt.Errorf("failed to append messages: %w", err)
	}
	s.sessions.With(key, func(sess *editor.Session) {
		sess.TakeDocument()
	})
	if err := s.repo.SetGenerating(ctx, userID, conversationID, true); err != nil {
		s.logger.Warn("failed to flag generation", "conversation_id", conversationID, "error", err)
	}

	prompt := s.buildPrompt(before.Messages, userMsg)
	genCtx := s.generations.begin(conversationID, placeholder.ID)
	go s.generate(genCtx, userID, conversationID, placeholder, prompt)

	if len(before.Messages) == 0 {
		go s.generateTitle(userID, conversationID, markdown.Serialize(doc))
	}

	return &domainchat.SendResult{
		ConversationID: conversationID,
		Created:        created,
		UserMessage:    userMsg,
		Placeholder:    placeholder,
	}, nil
}

// Stop cancels the in-flight generation. The placeholder stays in the log,
// terminal and non-loading, with whatever content it had.
func (s *conversationService) Stop(ctx context.Context, userID, conversationID string) error {
	s.generations.cancel(conversationID)

	conv, err := s.repo.GetByID(ctx, userID, conversationID)
	if err != nil {
		return err
	}
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		msg := conv.Messages[i]
		if !msg.IsLoading() {
			continue
		}
		msg.State = chatModels.MessageStateCancelled
		if err := s.repo.UpdateMessage(ctx, userID, conversationID, msg); err != nil {
			return fmt.Errorf("failed to settle cancelled placeholder: %w", err)
		}
		break
	}
	if err := s.repo.SetGenerating(ctx, userID, conversationID, false); err != nil {
		s.logger.Warn("failed to clear generation flag", "conversation_id", conversationID, "error", err)
	}
	return nil
}

// buildPrompt renders the transcript the provider sees: one "User:"/"Bot:"
// line per settled message, ending with the new user message. Unfulfilled
// bot placeholders contribute nothing.
func (s *conversationService) buildPrompt(history []chatModels.Message, userMsg chatModels.Message) string {
	lines := make([]string, 0, len(history)+1)
	for _, msg := range history {
		if msg.Sender == chatModels.SenderBot && msg.State != chatModels.MessageStateFulfilled {
			continue
		}
		lines = append(lines, s.promptLine(msg))
	}
	lines = append(lines, s.promptLine(userMsg))
	return strings.Join(lines, "\n")
}

func (s *conversationService) promptLine(msg chatModels.Message) string {
	label := s.prompts.UserLabel()
	if msg.Sender == chatModels.SenderBot {
		label = s.prompts.BotLabel()
	}
	return label + ": " + markdown.Serialize(msg.Content)
}

// generate runs the provider round-trip and settles the placeholder. A
// completion that no longer matches the tracked generation for its
// conversation is stale (user stopped it, deleted the conversation, or sent
// again) and is discarded rather than applied.
func (s *conversationService) generate(ctx context.Context, userID, conversationID string, placeholder chatModels.Message, prompt string) {
	text, err := s.provider.GenerateResponse(ctx, prompt)

	if !s.generations.matches(conversationID, placeholder.ID) {
		s.logger.Debug("discarding stale completion", "conversation_id", conversationID, "message_id", placeholder.ID)
		return
	}
	defer s.generations.finish(conversationID, placeholder.ID)

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, domain.ErrCancelled) {
			// Stop already settled the placeholder.
			return
		}
		s.logger.Error("response generation failed", "conversation_id", conversationID, "error", err)
		placeholder.Content = richtext.FromPlainText(s.prompts.Apology())
	} else {
		placeholder.Content = markdown.Parse(text)
	}
	placeholder.State = chatModels.MessageStateFulfilled

	bg := context.Background()
	if err := s.repo.UpdateMessage(bg, userID, conversationID, placeholder); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// The placeholder is gone; append instead of losing the
			// response.
			if appendErr := s.repo.AppendMessages(bg, userID, conversationID, []chatModels.Message{placeholder}); appendErr != nil {
				s.logger.Error("failed to append fallback response", "conversation_id", conversationID, "error", appendErr)
			}
		} else {
			s.logger.Error("failed to settle placeholder", "conversation_id", conversationID, "error", err)
		}
	}
	if err := s.repo.SetGenerating(bg, userID, conversationID, false); err != nil {
		s.logger.Warn("failed to clear generation flag", "conversation_id", conversationID, "error", err)
	}
}

// generateTitle runs the fire-and-forget title request after the first
// exchange. Not cancellable; failure falls back to the default title and an
// empty result to the generated-title fallback.
func (s *conversationService) generateTitle(userID, conversationID, firstMessage string) {
	ctx, cancel := context.WithTimeout(context.Background(), titleTimeout)
	defer cancel()

	title, err := s.provider.GenerateTitle(ctx, firstMessage)
	switch {
	case err != nil:
		s.logger.Warn("title generation failed, falling back to default", "conversation_id", conversationID, "error", err)
		title = s.prompts.DefaultTitle()
	case strings.TrimSpace(title) == "":
		title = s.prompts.GeneratedTitleFallback()
	default:
		title = strings.TrimSpace(title)
	}
	if runes := []rune(title); len(runes) > maxTitleLength {
		title = string(runes[:maxTitleLength])
	}

	if err := s.repo.Rename(context.Background(), userID, conversationID, title); err != nil {
		s.logger.Warn("failed to apply generated title", "conversation_id", conversationID, "error", err)
	}
}
