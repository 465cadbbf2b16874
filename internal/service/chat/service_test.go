package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"intelligence/internal/domain"
	chatModels "intelligence/internal/domain/models/chat"
	domainchat "intelligence/internal/domain/services/chat"
	"intelligence/internal/prompts"
	"intelligence/internal/service/editor"
)

// memoryRepo is an in-memory ConversationRepository for tests.
type memoryRepo struct {
	mu    sync.Mutex
	convs map[string]*chatModels.Conversation

	// appendErr, when set, makes every AppendMessages call fail.
	appendErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{convs: make(map[string]*chatModels.Conversation)}
}

func (r *memoryRepo) Create(ctx context.Context, conv *chatModels.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *conv
	cp.Messages = append([]chatModels.Message{}, conv.Messages...)
	r.convs[conv.ID] = &cp
	return nil
}

func (r *memoryRepo) GetByID(ctx context.Context, userID, id string) (*chatModels.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.convs[id]
	if !ok || conv.UserID != userID {
		return nil, fmt.Errorf("%w: conversation %s", domain.ErrNotFound, id)
	}
	cp := *conv
	cp.Messages = append([]chatModels.Message{}, conv.Messages...)
	return &cp, nil
}

func (r *memoryRepo) List(ctx context.Context, userID string) ([]*chatModels.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*chatModels.Conversation
	for _, conv := range r.convs {
		if conv.UserID != userID {
			continue
		}
		cp := *conv
		cp.Messages = append([]chatModels.Message{}, conv.Messages...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryRepo) Rename(ctx context.Context, userID, id, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.convs[id]
	if !ok || conv.UserID != userID {
		return fmt.Errorf("%w: conversation %s", domain.ErrNotFound, id)
	}
	conv.Title = title
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.convs[id]
	if !ok || conv.UserID != userID {
		return fmt.Errorf("%w: conversation %s", domain.ErrNotFound, id)
	}
	delete(r.convs, id)
	return nil
}

func (r *memoryRepo) AppendMessages(ctx context.Context, userID, id string, messages []chatModels.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	conv, ok := r.convs[id]
	if !ok || conv.UserID != userID {
		return fmt.Errorf("%w: conversation %s", domain.ErrNotFound, id)
	}
	conv.Messages = append(conv.Messages, messages...)
	return nil
}

func (r *memoryRepo) UpdateMessage(ctx context.Context, userID, id string, message chatModels.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.convs[id]
	if !ok || conv.UserID != userID {
		return fmt.Errorf("%w: conversation %s", domain.ErrNotFound, id)
	}
	for i := range conv.Messages {
		if conv.Messages[i].ID == message.ID {
			conv.Messages[i] = message
			return nil
		}
	}
	return fmt.Errorf("%w: message %s", domain.ErrNotFound, message.ID)
}

func (r *memoryRepo) SetGenerating(ctx context.Context, userID, id string, generating bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conv, ok := r.convs[id]; ok && conv.UserID == userID {
		conv.IsGenerating = generating
	}
	return nil
}

// fakeProvider scripts responses. When blocked is non-nil, GenerateResponse
// waits for the channel to close or the context to end.
type fakeProvider struct {
	mu       sync.Mutex
	response string
	err      error
	title    string
	titleErr error
	blocked  chan struct{}
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	p.mu.Lock()
	blocked := p.blocked
	response, err := p.response, p.err
	p.mu.Unlock()
	if blocked != nil {
		select {
		case <-blocked:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return response, err
}

func (p *fakeProvider) GenerateTitle(ctx context.Context, firstMessage string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.title, p.titleErr
}

func newTestService(t *testing.T, provider *fakeProvider) (domainchat.ConversationService, *memoryRepo, *editor.Manager) {
	t.Helper()
	registry, err := prompts.NewRegistry()
	if err != nil {
		t.Fatalf("prompts.NewRegistry: %v", err)
	}
	repo := newMemoryRepo()
	sessions := editor.NewManager()
	svc := NewConversationService(repo, provider, registry, sessions, slog.New(slog.DiscardHandler))
	return svc, repo, sessions
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestCreate_SelectsAndUsesDefaultTitle(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeProvider{})
	conv, err := svc.Create(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if conv.Title != "Untitled Chat" {
		t.Fatalf("title = %q", conv.Title)
	}
	if id, ok := svc.Selected("u1"); !ok || id != conv.ID {
		t.Fatalf("selected = %q ok=%v", id, ok)
	}
}

func TestRename_Validates(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeProvider{})
	conv, _ := svc.Create(context.Background(), "u1")

	if err := svc.Rename(context.Background(), "u1", conv.ID, "   "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("blank title err = %v", err)
	}
	if err := svc.Rename(context.Background(), "u1", conv.ID, "Leave email"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	got, _ := svc.Get(context.Background(), "u1", conv.ID)
	if got.Title != "Leave email" {
		t.Fatalf("title = %q", got.Title)
	}
}

func TestDelete_SelectionFallsBack(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeProvider{})
	ctx := context.Background()
	a, _ := svc.Create(ctx, "u1")
	b, _ := svc.Create(ctx, "u1")
	c, _ := svc.Create(ctx, "u1")

	if err := svc.Select(ctx, "u1", b.ID); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if err := svc.Delete(ctx, "u1", b.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	id, ok := svc.Selected("u1")
	if !ok || (id != a.ID && id != c.ID) {
		t.Fatalf("selection = %q ok=%v, want a remaining conversation", id, ok)
	}

	if err := svc.Delete(ctx, "u1", a.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, "u1", c.ID); err != nil {
		t.Fatal(err)
	}
	// Selection may have moved between deletes; deleting the last one must
	// leave no selection at all.
	if id, ok := svc.Selected("u1"); ok {
		t.Fatalf("selection = %q after deleting every conversation", id)
	}
}

func TestSearch_IsANonDestructiveView(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeProvider{})
	ctx := context.Background()
	a, _ := svc.Create(ctx, "u1")
	svc.Rename(ctx, "u1", a.ID, "Draft email for leave")
	b, _ := svc.Create(ctx, "u1")
	svc.Rename(ctx, "u1", b.ID, "Weekly report summary")

	got, err := svc.Search(ctx, "u1", "EMAIL")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].ID != a.ID {
		t.Fatalf("search hits = %+v", got)
	}

	all, _ := svc.List(ctx, "u1")
	if len(all) != 2 {
		t.Fatalf("search mutated the list: %d conversations", len(all))
	}
}

func TestGrouped_BucketsByCalendarDay(t *testing.T) {
	svc, repo, _ := newTestService(t, &fakeProvider{})
	ctx := context.Background()
	now := time.Now()

	mk := func(title string, createdAt time.Time) {
		repo.Create(ctx, &chatModels.Conversation{
			ID: title, UserID: "u1", Title: title,
			CreatedAt: createdAt, UpdatedAt: createdAt,
		})
	}
	mk("today", now)
	mk("yesterday", now.Add(-25*time.Hour))
	mk("older", now.AddDate(0, 0, -8))

	groups, err := svc.Grouped(ctx, "u1", now)
	if err != nil {
		t.Fatalf("Grouped: %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("groups = %+v", groups)
	}
	wantLabels := []string{chatModels.BucketToday, chatModels.BucketYesterday, chatModels.BucketOlder}
	for i, g := range groups {
		if g.Label != wantLabels[i] || len(g.Items) != 1 {
			t.Fatalf("group %d = %q with %d items", i, g.Label, len(g.Items))
		}
	}
}

func TestGrouped_OmitsEmptyBuckets(t *testing.T) {
	svc, repo, _ := newTestService(t, &fakeProvider{})
	ctx := context.Background()
	now := time.Now()
	repo.Create(ctx, &chatModels.Conversation{ID: "c", UserID: "u1", Title: "c", CreatedAt: now.AddDate(0, 0, -10)})

	groups, err := svc.Grouped(ctx, "u1", now)
	if err != nil {
		t.Fatalf("Grouped: %v", err)
	}
	if len(groups) != 1 || groups[0].Label != chatModels.BucketOlder {
		t.Fatalf("groups = %+v", groups)
	}
}
