package editor

import (
	"testing"

	chatModels "intelligence/internal/domain/models/chat"
	"intelligence/internal/domain/models/richtext"
)

func sessionWithText(text string) *Session {
	s := NewSession()
	s.SetDocument(richtext.FromPlainText(text))
	return s
}

func selectRange(s *Session, anchor, focus richtext.Point) {
	s.Select(richtext.Selection{Anchor: anchor, Focus: focus})
}

func TestHasContent(t *testing.T) {
	s := NewSession()
	if s.HasContent() {
		t.Fatal("empty session should have no content")
	}

	s.InsertText("   ")
	if s.HasContent() {
		t.Fatal("whitespace-only draft should have no content")
	}

	s.Attach(chatModels.AttachedFile{Name: "report.pdf", MIMEType: "application/pdf"})
	if !s.HasContent() {
		t.Fatal("attached file alone should be submittable")
	}

	s = NewSession()
	doc, _ := richtext.InsertInline(richtext.New(), richtext.DocumentStart().Anchor, richtext.Mention{DisplayName: "Ann", Email: "ann@example.com"})
	s.SetDocument(doc)
	if !s.HasContent() {
		t.Fatal("mention alone should be submittable")
	}
}

func TestToggleMark_PartialRangeBecomesUniform(t *testing.T) {
	s := sessionWithText("hello world")
	// Bold just "world" first.
	selectRange(s,
		richtext.Point{Block: 0, Inline: 0, Offset: 6},
		richtext.Point{Block: 0, Inline: 0, Offset: 11},
	)
	s.ToggleMark(richtext.MarkBold)

	// Now select everything: start is unformatted, so the toggle bolds the
	// whole range instead of unbolding "world".
	selectRange(s,
		richtext.Point{Block: 0, Inline: 0, Offset: 0},
		richtext.Point{Block: 0, Inline: 1, Offset: 5},
	)
	if s.IsMarkActive(richtext.MarkBold) {
		t.Fatal("mark should read inactive at the unformatted start")
	}
	s.ToggleMark(richtext.MarkBold)

	for _, in := range s.Document.Blocks[0].Inlines() {
		leaf, ok := in.(richtext.Text)
		if !ok {
			t.Fatalf("unexpected inline %T", in)
		}
		if !leaf.Marks.Bold {
			t.Fatalf("leaf %q not bold after uniform toggle", leaf.Content)
		}
	}

	// Second toggle on the now-uniform range removes it everywhere.
	s.Selection = s.Selection.Clamp(s.Document)
	selectRange(s,
		richtext.Point{Block: 0, Inline: 0, Offset: 0},
		richtext.Point{Block: 0, Inline: 0, Offset: 11},
	)
	s.ToggleMark(richtext.MarkBold)
	for _, in := range s.Document.Blocks[0].Inlines() {
		if leaf, ok := in.(richtext.Text); ok && leaf.Marks.Bold {
			t.Fatalf("leaf %q still bold after second toggle", leaf.Content)
		}
	}
}

func TestToggleMark_CollapsedAppliesToNextInsert(t *testing.T) {
	s := sessionWithText("ab")
	s.Select(richtext.Collapse(richtext.Point{Block: 0, Inline: 0, Offset: 2}))

	s.ToggleMark(richtext.MarkItalic)
	if !s.IsMarkActive(richtext.MarkItalic) {
		t.Fatal("pending italic should read as active")
	}
	// The document itself is untouched until something is typed.
	if leaf := s.Document.Blocks[0].Inlines()[0].(richtext.Text); leaf.Marks.Italic {
		t.Fatal("collapsed toggle must not rewrite existing leaves")
	}

	s.InsertText("c")
	inlines := s.Document.Blocks[0].Inlines()
	last := inlines[len(inlines)-1].(richtext.Text)
	if last.Content != "c" || !last.Marks.Italic {
		t.Fatalf("typed text should carry the pending mark, got %q marks %+v", last.Content, last.Marks)
	}

	// Pending marks are consumed: the next character inherits normally.
	if s.pending != nil {
		t.Fatal("pending marks should reset after insert")
	}
}

func TestToggleBlock_RoundTripsToParagraph(t *testing.T) {
	s := sessionWithText("item")
	s.ToggleBlock(richtext.BlockTypeBulletedList)
	if !s.IsBlockActive(richtext.BlockTypeBulletedList) {
		t.Fatal("block should be a bulleted list")
	}
	s.ToggleBlock(richtext.BlockTypeBulletedList)
	if !s.IsBlockActive(richtext.BlockTypeParagraph) {
		t.Fatal("second toggle should restore the paragraph")
	}
}

func TestHandleKey_EnterSubmitGating(t *testing.T) {
	s := NewSession()
	if got := s.HandleKey(KeyEvent{Key: "Enter"}); got != ActionNone {
		t.Fatal("Enter on an empty draft must not submit")
	}

	s.InsertText("hi")
	if got := s.HandleKey(KeyEvent{Key: "Enter"}); got != ActionSubmit {
		t.Fatal("Enter on a non-empty draft should submit")
	}

	if got := s.HandleKey(KeyEvent{Key: "Enter", Shift: true}); got != ActionNone {
		t.Fatal("Shift+Enter must not submit")
	}
	if len(s.Document.Blocks) != 2 {
		t.Fatalf("Shift+Enter should split the block, got %d blocks", len(s.Document.Blocks))
	}
}

func TestHandleKey_FormatShortcuts(t *testing.T) {
	s := sessionWithText("text")
	selectRange(s,
		richtext.Point{Block: 0, Inline: 0, Offset: 0},
		richtext.Point{Block: 0, Inline: 0, Offset: 4},
	)
	s.HandleKey(KeyEvent{Key: "b", Ctrl: true})
	leaf := s.Document.Blocks[0].Inlines()[0].(richtext.Text)
	if !leaf.Marks.Bold {
		t.Fatal("Ctrl+B should bold the selection")
	}

	s.HandleKey(KeyEvent{Key: "s", Meta: true})
	leaf = s.Document.Blocks[0].Inlines()[0].(richtext.Text)
	if !leaf.Marks.Strikethrough {
		t.Fatal("Cmd+S should strike the selection")
	}
}

func TestMentionPicker_ChooseReplacesQuery(t *testing.T) {
	s := NewSession()
	s.InsertText("hey ")
	s.HandleKey(KeyEvent{Key: "@"})
	s.HandleKey(KeyEvent{Key: "a"})
	s.HandleKey(KeyEvent{Key: "n"})

	q, open := s.MentionQuery()
	if !open || q != "an" {
		t.Fatalf("query = %q open = %v", q, open)
	}
	if got := s.Document.PlainText(); got != "hey @an" {
		t.Fatalf("document text = %q before choose", got)
	}

	s.ChooseMention(chatModels.Contact{Name: "Ann Chen", Email: "ann@example.com"})
	if _, open := s.MentionQuery(); open {
		t.Fatal("picker should close after choosing")
	}
	if !s.Document.HasMention() {
		t.Fatal("chosen contact should become a mention node")
	}
	if got := s.Document.PlainText(); got != "hey @Ann Chen" {
		t.Fatalf("document text = %q after choose", got)
	}
}

func TestMentionPicker_BackspacePastTriggerDismisses(t *testing.T) {
	s := NewSession()
	s.HandleKey(KeyEvent{Key: "@"})
	s.HandleKey(KeyEvent{Key: "a"})
	s.HandleKey(KeyEvent{Key: "Backspace"})
	if q, open := s.MentionQuery(); !open || q != "" {
		t.Fatalf("backspace should shrink the query, got %q open=%v", q, open)
	}
	s.HandleKey(KeyEvent{Key: "Backspace"})
	if _, open := s.MentionQuery(); open {
		t.Fatal("deleting the trigger should close the picker")
	}
}

func TestMentionPicker_CursorMoveDismisses(t *testing.T) {
	s := NewSession()
	s.InsertText("hey ")
	s.HandleKey(KeyEvent{Key: "@"})
	s.HandleKey(KeyEvent{Key: "a"})

	// Clicking elsewhere mid-search cancels the picker; a late choose must
	// not eat text at the new cursor position.
	s.Select(richtext.Collapse(richtext.Point{}))
	if _, open := s.MentionQuery(); open {
		t.Fatal("moving the cursor should close the picker")
	}
	s.ChooseMention(chatModels.Contact{Name: "Ann Chen", Email: "ann@example.com"})
	if s.Document.HasMention() {
		t.Fatal("choose after dismiss should be a no-op")
	}
	if got := s.Document.PlainText(); got != "hey @a" {
		t.Fatalf("document text = %q after dismissed choose", got)
	}
}

func TestFilterContacts(t *testing.T) {
	contacts := []chatModels.Contact{
		{Name: "Ann Chen", Email: "ann@example.com"},
		{Name: "Bob Park", Email: "bpark@example.com"},
		{Name: "Dana Cruz", Email: "dana.ann@example.com"},
	}

	got := FilterContacts(contacts, "AN")
	if len(got) != 2 {
		t.Fatalf("expected Ann and Dana, got %d contacts", len(got))
	}

	got = FilterContacts(contacts, "bpark")
	if len(got) != 1 || got[0].Name != "Bob Park" {
		t.Fatalf("email match failed: %+v", got)
	}

	if got := FilterContacts(contacts, ""); len(got) != len(contacts) {
		t.Fatal("empty query should match everyone")
	}
}

func TestMergeTranscript_AppendsOnlySuffix(t *testing.T) {
	s := NewSession()
	s.MergeTranscript("hello")
	s.MergeTranscript("hello world")
	if got := s.Document.PlainText(); got != "hello world" {
		t.Fatalf("document = %q", got)
	}

	// A replay of an already-consumed transcript merges nothing.
	s.MergeTranscript("hello world")
	if got := s.Document.PlainText(); got != "hello world" {
		t.Fatalf("replay changed document to %q", got)
	}
}

func TestMergeTranscript_ResetsWhenEditorCleared(t *testing.T) {
	s := NewSession()
	s.MergeTranscript("first take")
	for range "first take" {
		s.DeleteBackward()
	}
	if !s.Document.IsEmpty() {
		t.Fatalf("document should be empty, got %q", s.Document.PlainText())
	}

	// With the editor cleared the tracker resets, so a fresh dictation is
	// taken whole instead of being diffed against the old transcript.
	s.MergeTranscript("second")
	if got := s.Document.PlainText(); got != "second" {
		t.Fatalf("document = %q after reset", got)
	}
}

func TestAttach_ReplacesExistingFile(t *testing.T) {
	s := NewSession()
	s.Attach(chatModels.AttachedFile{Name: "a.txt", MIMEType: "text/plain"})
	s.Attach(chatModels.AttachedFile{Name: "b.png", MIMEType: "image/png"})
	if got := s.AttachedFile(); got == nil || got.Name != "b.png" {
		t.Fatalf("attachment = %+v, want the replacement", got)
	}
	s.RemoveAttachment()
	if s.AttachedFile() != nil {
		t.Fatal("attachment should clear")
	}
}

func TestTakeDocument_ResetsSession(t *testing.T) {
	s := NewSession()
	s.InsertText("draft")
	s.Attach(chatModels.AttachedFile{Name: "a.txt", MIMEType: "text/plain"})
	s.ToggleMark(richtext.MarkBold)

	doc, file := s.TakeDocument()
	if doc.PlainText() != "draft" || file == nil {
		t.Fatalf("take returned %q / %+v", doc.PlainText(), file)
	}
	if !s.Document.IsEmpty() || s.AttachedFile() != nil || s.pending != nil {
		t.Fatal("session should reset to empty after take")
	}
	if s.HasContent() {
		t.Fatal("reset session should not be submittable")
	}
}

func TestManager_SessionsAreIsolated(t *testing.T) {
	m := NewManager()
	m.With("conv-1", func(s *Session) { s.InsertText("one") })
	m.With("conv-2", func(s *Session) { s.InsertText("two") })

	m.With("conv-1", func(s *Session) {
		if got := s.Document.PlainText(); got != "one" {
			t.Fatalf("conv-1 document = %q", got)
		}
	})

	m.Drop("conv-1")
	m.With("conv-1", func(s *Session) {
		if !s.Document.IsEmpty() {
			t.Fatal("dropped session should come back empty")
		}
	})
}
