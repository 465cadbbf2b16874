package prompts

import (
	"strings"
	"testing"
)

func TestNewRegistry_LoadsEmbeddedFile(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if r.UserLabel() != "User" || r.BotLabel() != "Bot" {
		t.Fatalf("labels = %q / %q", r.UserLabel(), r.BotLabel())
	}
	if r.DefaultTitle() != "Untitled Chat" {
		t.Fatalf("DefaultTitle = %q", r.DefaultTitle())
	}
	if r.GeneratedTitleFallback() != "New Chat" {
		t.Fatalf("GeneratedTitleFallback = %q", r.GeneratedTitleFallback())
	}
	if r.Apology() != "Sorry, something went wrong." {
		t.Fatalf("Apology = %q", r.Apology())
	}
}

func TestTitlePrompt_AppendsMessage(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	got := r.TitlePrompt("Draft a leave email")
	if !strings.HasSuffix(got, "\n\nDraft a leave email") {
		t.Fatalf("TitlePrompt = %q", got)
	}
	if strings.HasPrefix(got, "\n") {
		t.Fatalf("instruction should be trimmed, got %q", got)
	}
}
