package richtext

// Point addresses a position inside a document: a block index, an inline
// index within that block, and a rune offset within that inline's text.
// Points always rest on text-bearing inlines; Clamp moves a point off a void
// node to the nearest valid position.
type Point struct {
	Block  int `json:"block"`
	Inline int `json:"inline"`
	Offset int `json:"offset"`
}

// Selection is an anchor/focus pair. Anchor may come after focus when the
// user selected backwards; Ordered resolves that.
type Selection struct {
	Anchor Point `json:"anchor"`
	Focus  Point `json:"focus"`
}

// Collapsed reports whether anchor and focus coincide.
func (s Selection) Collapsed() bool {
	return s.Anchor == s.Focus
}

// Ordered returns the selection's start and end points in document order.
func (s Selection) Ordered() (Point, Point) {
	if s.Anchor.Compare(s.Focus) <= 0 {
		return s.Anchor, s.Focus
	}
	return s.Focus, s.Anchor
}

// Compare orders two points in document order: -1, 0 or 1.
func (p Point) Compare(q Point) int {
	if p.Block != q.Block {
		if p.Block < q.Block {
			return -1
		}
		return 1
	}
	if p.Inline != q.Inline {
		if p.Inline < q.Inline {
			return -1
		}
		return 1
	}
	if p.Offset != q.Offset {
		if p.Offset < q.Offset {
			return -1
		}
		return 1
	}
	return 0
}

// Collapse returns a collapsed selection at the given point.
func Collapse(p Point) Selection {
	return Selection{Anchor: p, Focus: p}
}

// DocumentStart is the collapsed selection at the first position.
func DocumentStart() Selection {
	return Collapse(Point{})
}

// inlineLength returns the rune length of a text-bearing inline. Mentions
// report zero: a point never rests inside one.
func inlineLength(n Inline) int {
	switch v := n.(type) {
	case Text:
		return len([]rune(v.Content))
	case Link:
		return len([]rune(v.PlainText()))
	default:
		return 0
	}
}

// Clamp repairs the point to the nearest valid position in the document.
// Out-of-range indices are clamped, and a point landing on a void node is
// moved past it, keeping mentions atomic for cursor movement.
func (p Point) Clamp(d Document) Point {
	if len(d.Blocks) == 0 {
		return Point{}
	}
	if p.Block < 0 {
		p.Block = 0
	}
	if p.Block >= len(d.Blocks) {
		p.Block = len(d.Blocks) - 1
		p.Inline = len(d.Blocks[p.Block].Inlines()) - 1
		p.Offset = inlineLength(d.Blocks[p.Block].Inlines()[p.Inline])
		return p
	}
	inlines := d.Blocks[p.Block].Inlines()
	if p.Inline < 0 {
		p.Inline = 0
		p.Offset = 0
	}
	if p.Inline >= len(inlines) {
		p.Inline = len(inlines) - 1
		p.Offset = inlineLength(inlines[p.Inline])
	}
	if _, void := inlines[p.Inline].(Mention); void {
		// Step over the void node to the start of the next inline, or to
		// the end of the previous one when the mention is last.
		if p.Inline+1 < len(inlines) {
			p.Inline++
			p.Offset = 0
		} else if p.Inline > 0 {
			p.Inline--
			p.Offset = inlineLength(inlines[p.Inline])
		} else {
			p.Offset = 0
		}
		return p
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if max := inlineLength(inlines[p.Inline]); p.Offset > max {
		p.Offset = max
	}
	return p
}

// Clamp repairs both ends of the selection against the document.
func (s Selection) Clamp(d Document) Selection {
	return Selection{Anchor: s.Anchor.Clamp(d), Focus: s.Focus.Clamp(d)}
}
