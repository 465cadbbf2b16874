package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"intelligence/internal/domain"
	chatModels "intelligence/internal/domain/models/chat"
	"intelligence/internal/domain/models/richtext"
	"intelligence/internal/service/editor"
)

func typeDraft(sessions *editor.Manager, userID, conversationID, text string) {
	sessions.With(sessionKey(userID, conversationID), func(s *editor.Session) {
		s.InsertText(text)
	})
}

func TestSend_EmptyDraftIsNoOp(t *testing.T) {
	svc, repo, _ := newTestService(t, &fakeProvider{response: "hi"})
	_, err := svc.Send(context.Background(), "u1", "")
	if !errors.Is(err, domain.ErrEmptyDraft) {
		t.Fatalf("err = %v", err)
	}
	all, _ := repo.List(context.Background(), "u1")
	if len(all) != 0 {
		t.Fatalf("empty submit created %d conversations", len(all))
	}
}

func TestSend_CreatesConversationAndReplacesPlaceholder(t *testing.T) {
	provider := &fakeProvider{response: "Here is your **draft**.", title: "Leave Email"}
	svc, repo, sessions := newTestService(t, provider)
	ctx := context.Background()

	typeDraft(sessions, "u1", "", "Draft a leave email")
	res, err := svc.Send(ctx, "u1", "")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !res.Created || res.ConversationID == "" {
		t.Fatalf("result = %+v", res)
	}
	if res.UserMessage.Content.PlainText() != "Draft a leave email" {
		t.Fatalf("user message = %q", res.UserMessage.Content.PlainText())
	}
	if !res.Placeholder.IsLoading() {
		t.Fatal("placeholder should start pending")
	}

	conv, _ := repo.GetByID(ctx, "u1", res.ConversationID)
	if len(conv.Messages) != 2 {
		t.Fatalf("got %d messages immediately after send", len(conv.Messages))
	}

	waitFor(t, "placeholder fulfillment", func() bool {
		conv, _ := repo.GetByID(ctx, "u1", res.ConversationID)
		return conv.Messages[1].State == chatModels.MessageStateFulfilled
	})

	conv, _ = repo.GetByID(ctx, "u1", res.ConversationID)
	if len(conv.Messages) != 2 {
		t.Fatalf("placeholder was appended, not replaced: %d messages", len(conv.Messages))
	}
	if got := conv.Messages[1].Content.PlainText(); got != "Here is your draft." {
		t.Fatalf("bot content = %q", got)
	}
	if conv.IsGenerating {
		t.Fatal("generation flag should clear")
	}

	waitFor(t, "generated title", func() bool {
		conv, _ := repo.GetByID(ctx, "u1", res.ConversationID)
		return conv.Title == "Leave Email"
	})
}

func TestSend_AttachmentOnlyProceeds(t *testing.T) {
	svc, repo, sessions := newTestService(t, &fakeProvider{response: "ok"})
	sessions.With(sessionKey("u1", ""), func(s *editor.Session) {
		s.Attach(chatModels.AttachedFile{Name: "report.pdf", MIMEType: "application/pdf"})
	})

	res, err := svc.Send(context.Background(), "u1", "")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	conv, _ := repo.GetByID(context.Background(), "u1", res.ConversationID)
	if conv.Messages[0].AttachedFile == nil || conv.Messages[0].AttachedFile.Name != "report.pdf" {
		t.Fatalf("user message attachment = %+v", conv.Messages[0].AttachedFile)
	}
}

func TestSend_FailureYieldsApology(t *testing.T) {
	provider := &fakeProvider{err: fmt.Errorf("backend down")}
	svc, repo, sessions := newTestService(t, provider)
	ctx := context.Background()

	typeDraft(sessions, "u1", "", "hello")
	res, err := svc.Send(ctx, "u1", "")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	waitFor(t, "apology placeholder", func() bool {
		conv, _ := repo.GetByID(ctx, "u1", res.ConversationID)
		return conv.Messages[1].State == chatModels.MessageStateFulfilled
	})
	conv, _ := repo.GetByID(ctx, "u1", res.ConversationID)
	if got := conv.Messages[1].Content.PlainText(); got != "Sorry, something went wrong." {
		t.Fatalf("bot content = %q", got)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("failure appended messages: %d", len(conv.Messages))
	}
}

func TestSend_FailedAppendKeepsDraft(t *testing.T) {
	svc, repo, sessions := newTestService(t, &fakeProvider{response: "ok"})
	ctx := context.Background()
	repo.appendErr = errors.New("connection reset")

	typeDraft(sessions, "u1", "", "my important draft")
	sessions.With(sessionKey("u1", ""), func(s *editor.Session) {
		s.Attach(chatModels.AttachedFile{Name: "notes.txt", MIMEType: "text/plain"})
	})

	if _, err := svc.Send(ctx, "u1", ""); err == nil {
		t.Fatal("Send should surface the append failure")
	}

	sessions.With(sessionKey("u1", ""), func(s *editor.Session) {
		if got := s.Document.PlainText(); got != "my important draft" {
			t.Fatalf("draft = %q after failed send", got)
		}
		if s.AttachedFile() == nil {
			t.Fatal("attachment lost after failed send")
		}
	})

	// A retry once the repo recovers submits the same draft and clears it.
	repo.appendErr = nil
	res, err := svc.Send(ctx, "u1", "")
	if err != nil {
		t.Fatalf("retry Send: %v", err)
	}
	if got := res.UserMessage.Content.PlainText(); got != "my important draft" {
		t.Fatalf("retried message = %q", got)
	}
	sessions.With(sessionKey("u1", ""), func(s *editor.Session) {
		if s.HasContent() {
			t.Fatal("composer should clear after a successful send")
		}
	})
}

func TestGeneratedTitle_TruncatesOnRunes(t *testing.T) {
	provider := &fakeProvider{response: "ok", title: strings.Repeat("é", maxTitleLength+20)}
	svc, repo, sessions := newTestService(t, provider)
	ctx := context.Background()

	typeDraft(sessions, "u1", "", "hello")
	res, err := svc.Send(ctx, "u1", "")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	waitFor(t, "generated title", func() bool {
		conv, _ := repo.GetByID(ctx, "u1", res.ConversationID)
		return conv.Title != "Untitled Chat"
	})
	conv, _ := repo.GetByID(ctx, "u1", res.ConversationID)
	if !utf8.ValidString(conv.Title) {
		t.Fatalf("title is not valid UTF-8: %q", conv.Title)
	}
	if got := len([]rune(conv.Title)); got != maxTitleLength {
		t.Fatalf("title length = %d runes, want %d", got, maxTitleLength)
	}
}

func TestStop_SettlesPlaceholderAndDiscardsLateCompletion(t *testing.T) {
	blocked := make(chan struct{})
	provider := &fakeProvider{response: "too late", blocked: blocked}
	svc, repo, sessions := newTestService(t, provider)
	ctx := context.Background()

	typeDraft(sessions, "u1", "", "hello")
	res, err := svc.Send(ctx, "u1", "")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if err := svc.Stop(ctx, "u1", res.ConversationID); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	conv, _ := repo.GetByID(ctx, "u1", res.ConversationID)
	if got := conv.Messages[1].State; got != chatModels.MessageStateCancelled {
		t.Fatalf("placeholder state = %q after stop", got)
	}
	if conv.IsGenerating {
		t.Fatal("generation flag should clear on stop")
	}

	// Let the provider "answer" after the stop: the stale completion must
	// not revive or overwrite the cancelled placeholder.
	close(blocked)
	time.Sleep(50 * time.Millisecond)
	conv, _ = repo.GetByID(ctx, "u1", res.ConversationID)
	if got := conv.Messages[1].State; got != chatModels.MessageStateCancelled {
		t.Fatalf("late completion overwrote the placeholder: state = %q", got)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("late completion appended a message: %d", len(conv.Messages))
	}
}

func TestSend_PromptCarriesTranscript(t *testing.T) {
	svc, repo, sessions := newTestService(t, &fakeProvider{response: "fine, thanks"})
	ctx := context.Background()

	typeDraft(sessions, "u1", "", "hello there")
	res, err := svc.Send(ctx, "u1", "")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	waitFor(t, "first exchange", func() bool {
		conv, _ := repo.GetByID(ctx, "u1", res.ConversationID)
		return conv.Messages[1].State == chatModels.MessageStateFulfilled
	})

	conv, _ := repo.GetByID(ctx, "u1", res.ConversationID)
	prompt := (svc.(*conversationService)).buildPrompt(conv.Messages, chatModels.Message{
		Sender:  chatModels.SenderUser,
		Content: richtext.FromPlainText("how are you"),
	})
	want := "User: hello there\nBot: fine, thanks\nUser: how are you"
	if prompt != want {
		t.Fatalf("prompt = %q, want %q", prompt, want)
	}
}

func TestGenerationRegistry_NewRequestSupersedes(t *testing.T) {
	r := newGenerationRegistry()
	ctx1 := r.begin("conv", "m1")
	ctx2 := r.begin("conv", "m2")

	if ctx1.Err() == nil {
		t.Fatal("beginning a new generation should cancel the previous one")
	}
	if ctx2.Err() != nil {
		t.Fatal("the new generation should stay live")
	}
	if r.matches("conv", "m1") {
		t.Fatal("superseded generation should no longer match")
	}
	if !r.matches("conv", "m2") {
		t.Fatal("current generation should match")
	}

	r.finish("conv", "m2")
	if r.matches("conv", "m2") {
		t.Fatal("finished generation should be cleared")
	}
}
