package editor

import (
	"intelligence/internal/domain/models/richtext"
)

// KeyEvent is the wire shape of a composer keystroke.
type KeyEvent struct {
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrl"`
	Meta  bool   `json:"meta"`
	Shift bool   `json:"shift"`
}

// Action is what a keystroke asks the caller to do after the session has
// absorbed it.
type Action int

const (
	// ActionNone: the session handled the key (or ignored it); nothing
	// further to do.
	ActionNone Action = iota
	// ActionSubmit: plain Enter on a submittable draft; the caller should
	// take the document and send it.
	ActionSubmit
)

// HandleKey routes a single keystroke:
//
//	Enter          submit (unless Shift, which inserts a paragraph break)
//	Ctrl/Cmd+B     toggle bold       Ctrl/Cmd+I  toggle italic
//	Ctrl/Cmd+U     toggle underline  Ctrl/Cmd+S  toggle strikethrough
//	Backspace      delete backward
//	"@"            open the mention picker
//	printable rune insert text (refining the mention query when open)
//
// Submission is still gated on HasContent: Enter on an empty draft is a
// no-op rather than an empty message.
func (s *Session) HandleKey(ev KeyEvent) Action {
	if ev.Ctrl || ev.Meta {
		switch ev.Key {
		case "b", "B":
			s.ToggleMark(richtext.MarkBold)
		case "i", "I":
			s.ToggleMark(richtext.MarkItalic)
		case "u", "U":
			s.ToggleMark(richtext.MarkUnderline)
		case "s", "S":
			s.ToggleMark(richtext.MarkStrikethrough)
		}
		return ActionNone
	}

	switch ev.Key {
	case "Enter":
		if ev.Shift {
			s.InsertParagraphBreak()
			s.DismissMentionPicker()
			return ActionNone
		}
		if !s.HasContent() {
			return ActionNone
		}
		return ActionSubmit
	case "Backspace":
		s.handleBackspace()
		return ActionNone
	case "Escape":
		s.DismissMentionPicker()
		return ActionNone
	case "@":
		s.OpenMentionPicker()
		return ActionNone
	}

	if len([]rune(ev.Key)) == 1 {
		if s.picker.Mode == PickerSearching {
			s.UpdateMentionQuery(ev.Key)
		} else {
			s.InsertText(ev.Key)
		}
	}
	return ActionNone
}

// handleBackspace deletes backward, shrinking an open mention query with it.
// Deleting past the "@" trigger closes the picker.
func (s *Session) handleBackspace() {
	s.DeleteBackward()
	if s.picker.Mode != PickerSearching {
		return
	}
	if s.picker.Query == "" {
		s.picker = PickerState{Mode: PickerIdle}
		return
	}
	runes := []rune(s.picker.Query)
	s.picker.Query = string(runes[:len(runes)-1])
}
