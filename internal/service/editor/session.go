package editor

import (
	"strings"

	chatModels "intelligence/internal/domain/models/chat"
	"intelligence/internal/domain/models/richtext"
)

// Session is the explicit editing context: the draft document, the current
// selection, and everything the composer tracks between keystrokes. All
// operations take the session they act on; there is no ambient editor state.
//
// A session has a single writer (the manager serializes access), so methods
// mutate in place and repair the selection before returning.
type Session struct {
	Document  richtext.Document
	Selection richtext.Selection

	// pending carries mark toggles made on a collapsed selection; the next
	// inserted text picks them up, after which they reset.
	pending *richtext.Marks

	// attached is the single-capacity file slot. A new drop or pick
	// replaces it, never appends.
	attached *chatModels.AttachedFile

	// consumedTranscript is the length of the cumulative voice transcript
	// already merged into the document.
	consumedTranscript int

	picker PickerState
}

// NewSession returns a session holding the canonical empty document with a
// collapsed selection at its start.
func NewSession() *Session {
	return &Session{
		Document:  richtext.New(),
		Selection: richtext.DocumentStart(),
	}
}

// HasContent reports whether there is anything to submit: non-whitespace
// text in any leaf, at least one mention, or an attached file.
func (s *Session) HasContent() bool {
	return s.Document.HasText() || s.Document.HasMention() || s.attached != nil
}

// AttachedFile returns the current attachment, or nil.
func (s *Session) AttachedFile() *chatModels.AttachedFile {
	return s.attached
}

// Attach replaces the attached file. The document text is untouched.
func (s *Session) Attach(f chatModels.AttachedFile) {
	s.attached = &f
}

// RemoveAttachment clears the file slot without touching the document.
func (s *Session) RemoveAttachment() {
	s.attached = nil
}

// SetDocument replaces the draft wholesale, normalizing and repairing the
// selection. Used when the client pushes its local editor state.
func (s *Session) SetDocument(d richtext.Document) {
	s.Document = d.Normalize()
	s.Selection = s.Selection.Clamp(s.Document)
	s.picker = PickerState{Mode: PickerIdle}
	s.syncTranscriptTracker()
}

// Select moves the selection, clamped to valid positions. Moving the cursor
// ends any mention search: the picker's delete-backward replacement is only
// valid while the cursor sits after the "@query" text.
func (s *Session) Select(sel richtext.Selection) {
	s.Selection = sel.Clamp(s.Document)
	s.pending = nil
	s.picker = PickerState{Mode: PickerIdle}
}

// InsertText types text at the focus, collapsing any range selection first
// and consuming pending marks.
func (s *Session) InsertText(text string) {
	if text == "" {
		return
	}
	start, _ := s.Selection.Ordered()
	doc, after := richtext.InsertText(s.Document, start, text, s.pending)
	s.Document = doc
	s.Selection = richtext.Collapse(after)
	s.pending = nil
}

// InsertParagraphBreak splits the current block at the focus (Shift+Enter).
func (s *Session) InsertParagraphBreak() {
	start, _ := s.Selection.Ordered()
	doc, after := richtext.SplitBlock(s.Document, start)
	s.Document = doc
	s.Selection = richtext.Collapse(after)
}

// DeleteBackward removes one unit before the focus. See the transform for
// the empty-bulleted-list and void-node behavior.
func (s *Session) DeleteBackward() {
	start, _ := s.Selection.Ordered()
	doc, after := richtext.DeleteBackward(s.Document, start)
	s.Document = doc
	s.Selection = richtext.Collapse(after)
	s.syncTranscriptTracker()
}

// TakeDocument returns the draft and resets the session to the empty state:
// document, selection, attachment, pending marks and the transcript tracker
// all clear, ready for the next message.
func (s *Session) TakeDocument() (richtext.Document, *chatModels.AttachedFile) {
	doc := s.Document
	file := s.attached
	s.Document = richtext.New()
	s.Selection = richtext.DocumentStart()
	s.attached = nil
	s.pending = nil
	s.consumedTranscript = 0
	return doc, file
}

// MergeTranscript folds a cumulative voice transcript into the first
// paragraph. The collaborator reports the whole transcript each time, so only
// the suffix past what was already consumed is appended; a shorter or equal
// transcript is a replay and merges nothing.
func (s *Session) MergeTranscript(transcript string) {
	runes := []rune(transcript)
	if len(runes) <= s.consumedTranscript {
		return
	}
	suffix := string(runes[s.consumedTranscript:])
	s.consumedTranscript = len(runes)

	// Append to the end of the first paragraph's text, like dictation
	// continuing the opening line. Clamp resolves the oversized indices to
	// the last valid position in the block.
	end := richtext.Point{Block: 0}
	if len(s.Document.Blocks) > 0 {
		end.Inline = len(s.Document.Blocks[0].Inlines()) - 1
	}
	end.Offset = len([]rune(firstBlockText(s.Document)))
	end = end.Clamp(s.Document)
	doc, after := richtext.InsertText(s.Document, end, suffix, nil)
	s.Document = doc
	s.Selection = richtext.Collapse(after)
}

// syncTranscriptTracker resets the voice tracker once the document returns
// to the fully empty state, so stale dictation cannot leak back in.
func (s *Session) syncTranscriptTracker() {
	if s.Document.IsEmpty() {
		s.consumedTranscript = 0
	}
}

func firstBlockText(d richtext.Document) string {
	if len(d.Blocks) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, in := range d.Blocks[0].Inlines() {
		sb.WriteString(in.PlainText())
	}
	return sb.String()
}
