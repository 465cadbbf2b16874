package editor

import (
	"intelligence/internal/domain/models/richtext"
)

// Mark and block toggles follow a uniform rule: check whether the format is
// active at a representative point of the selection, then apply the opposite
// state to the whole range. A partially formatted range therefore becomes
// fully formatted first, and only a second toggle removes the format.

// IsMarkActive reports whether the mark is on at the selection start. Pending
// marks from a collapsed-selection toggle take precedence over the document.
func (s *Session) IsMarkActive(mark string) bool {
	if s.pending != nil {
		return s.pending.Has(mark)
	}
	start, _ := s.Selection.Ordered()
	return marksAt(s.Document, start).Has(mark)
}

// ToggleMark flips the mark. On a range it rewrites every covered leaf to the
// new state; on a collapsed selection it only records the intent, and the
// next InsertText materializes it.
func (s *Session) ToggleMark(mark string) {
	on := !s.IsMarkActive(mark)
	if s.Selection.Collapsed() {
		base := s.currentMarks()
		next := base.With(mark, on)
		s.pending = &next
		return
	}
	s.Document = richtext.ApplyMark(s.Document, s.Selection, mark, on)
	s.Selection = s.Selection.Clamp(s.Document)
	s.pending = nil
}

// IsBlockActive reports whether the block containing the selection start has
// the given type.
func (s *Session) IsBlockActive(blockType string) bool {
	start, _ := s.Selection.Ordered()
	start = start.Clamp(s.Document)
	if start.Block >= len(s.Document.Blocks) {
		return false
	}
	return s.Document.Blocks[start.Block].BlockType() == blockType
}

// ToggleBlock sets every block intersecting the selection to blockType, or
// back to a paragraph when the type is already active.
func (s *Session) ToggleBlock(blockType string) {
	target := blockType
	if s.IsBlockActive(blockType) {
		target = richtext.BlockTypeParagraph
	}
	s.Document = richtext.SetBlockType(s.Document, s.Selection, target)
	s.Selection = s.Selection.Clamp(s.Document)
}

// SetAlignment aligns the paragraphs intersecting the selection. Unlike block
// types this is absolute, not a toggle.
func (s *Session) SetAlignment(align richtext.Alignment) {
	s.Document = richtext.SetAlignment(s.Document, s.Selection, align)
}

// currentMarks resolves the marks a newly typed character would carry:
// pending if set, otherwise the marks at the selection start.
func (s *Session) currentMarks() richtext.Marks {
	if s.pending != nil {
		return *s.pending
	}
	start, _ := s.Selection.Ordered()
	return marksAt(s.Document, start)
}

// marksAt returns the marks of the leaf under the point. The leaf before a
// cursor sitting at offset 0 does not contribute; typing there starts from
// the leaf the point addresses.
func marksAt(d richtext.Document, p richtext.Point) richtext.Marks {
	p = p.Clamp(d)
	if p.Block >= len(d.Blocks) {
		return richtext.Marks{}
	}
	inlines := d.Blocks[p.Block].Inlines()
	if p.Inline >= len(inlines) {
		return richtext.Marks{}
	}
	switch n := inlines[p.Inline].(type) {
	case richtext.Text:
		return n.Marks
	case richtext.Link:
		for _, child := range n.Children {
			if t, ok := child.(richtext.Text); ok {
				return t.Marks
			}
		}
	}
	return richtext.Marks{}
}
