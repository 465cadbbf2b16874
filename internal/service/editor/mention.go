package editor

import (
	"strings"

	chatModels "intelligence/internal/domain/models/chat"
	"intelligence/internal/domain/models/richtext"
)

// PickerMode is the mention picker's lifecycle. Typing "@" opens the picker;
// every subsequent keystroke refines the query; choosing a contact or
// dismissing returns it to idle.
type PickerMode string

const (
	PickerIdle      PickerMode = "idle"
	PickerSearching PickerMode = "searching"
)

// PickerState tracks an in-progress mention search. While searching, the
// cursor sits directly after the "@query" text: every keystroke that could
// move it elsewhere either refines the query or dismisses the picker, so
// ChooseMention can delete the trigger text backward from the cursor.
type PickerState struct {
	Mode  PickerMode
	Query string
}

// MentionQuery returns the active search query, or ok=false when the picker
// is closed.
func (s *Session) MentionQuery() (string, bool) {
	if s.picker.Mode != PickerSearching {
		return "", false
	}
	return s.picker.Query, true
}

// OpenMentionPicker starts a search at the current focus. The "@" character
// itself is typed into the document like any other text.
func (s *Session) OpenMentionPicker() {
	s.InsertText("@")
	s.picker = PickerState{Mode: PickerSearching}
}

// UpdateMentionQuery types the next query character and refines the search.
// A no-op while the picker is idle.
func (s *Session) UpdateMentionQuery(ch string) {
	if s.picker.Mode != PickerSearching {
		return
	}
	s.InsertText(ch)
	s.picker.Query += ch
}

// DismissMentionPicker closes the picker, leaving the typed "@query" text in
// the document as plain text.
func (s *Session) DismissMentionPicker() {
	s.picker = PickerState{Mode: PickerIdle}
}

// ChooseMention replaces the "@query" text with an atomic mention node and
// places the cursor after it. The picker returns to idle.
func (s *Session) ChooseMention(c chatModels.Contact) {
	if s.picker.Mode != PickerSearching {
		return
	}
	// Delete the trigger and query, one rune each, back to the anchor.
	for i := 0; i < len([]rune(s.picker.Query))+1; i++ {
		s.DeleteBackward()
	}
	start, _ := s.Selection.Ordered()
	doc, after := richtext.InsertInline(s.Document, start, richtext.Mention{
		DisplayName: c.Name,
		Email:       c.Email,
	})
	s.Document = doc
	s.Selection = richtext.Collapse(after)
	s.picker = PickerState{Mode: PickerIdle}
}

// FilterContacts returns the contacts whose name or email contains the query,
// case-insensitively. An empty query matches everyone.
func FilterContacts(contacts []chatModels.Contact, query string) []chatModels.Contact {
	q := strings.ToLower(query)
	out := make([]chatModels.Contact, 0, len(contacts))
	for _, c := range contacts {
		if strings.Contains(strings.ToLower(c.Name), q) ||
			strings.Contains(strings.ToLower(c.Email), q) {
			out = append(out, c)
		}
	}
	return out
}
