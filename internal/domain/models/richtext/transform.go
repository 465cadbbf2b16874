package richtext

import "strings"

// Structural transforms. Every function takes and returns values: the input
// document is never mutated, and returned selections are always valid for
// the returned document.

// blockOfType rebuilds a block as the given type, preserving children.
func blockOfType(blockType string, b Block) Block {
	children := b.Inlines()
	switch blockType {
	case BlockTypeBulletedList:
		return BulletedList{Children: children}
	case BlockTypeBlockQuote:
		return BlockQuote{Children: children}
	case BlockTypeCodeBlock:
		return CodeBlock{Children: children}
	default:
		align := AlignLeft
		if p, ok := b.(Paragraph); ok {
			align = p.Align
		}
		return Paragraph{Align: align, Children: children}
	}
}

// SetBlockType replaces the type of every block intersecting the selection.
func SetBlockType(d Document, sel Selection, blockType string) Document {
	d = d.Clone()
	sel = sel.Clamp(d)
	start, end := sel.Ordered()
	for i := start.Block; i <= end.Block && i < len(d.Blocks); i++ {
		d.Blocks[i] = blockOfType(blockType, d.Blocks[i])
	}
	return d.Normalize()
}

// SetAlignment sets the alignment of every paragraph intersecting the
// selection. Non-paragraph blocks are left untouched: align is defined only
// on paragraphs.
func SetAlignment(d Document, sel Selection, align Alignment) Document {
	d = d.Clone()
	sel = sel.Clamp(d)
	start, end := sel.Ordered()
	for i := start.Block; i <= end.Block && i < len(d.Blocks); i++ {
		if p, ok := d.Blocks[i].(Paragraph); ok {
			p.Align = align
			d.Blocks[i] = p
		}
	}
	return d
}

// ApplyMark sets or clears a mark across the selected range. Text leaves are
// split at the range boundaries; a link intersecting the range has the mark
// applied to all of its text (links are atomic for formatting); mentions are
// skipped. Adjacent leaves with identical marks are merged afterwards.
func ApplyMark(d Document, sel Selection, mark string, on bool) Document {
	d = d.Clone()
	sel = sel.Clamp(d)
	start, end := sel.Ordered()
	for i := start.Block; i <= end.Block && i < len(d.Blocks); i++ {
		b := d.Blocks[i]
		inlines := b.Inlines()

		fromInline, fromOffset := 0, 0
		if i == start.Block {
			fromInline, fromOffset = start.Inline, start.Offset
		}
		toInline, toOffset := len(inlines)-1, 0
		if len(inlines) > 0 {
			toOffset = inlineLength(inlines[toInline])
		}
		if i == end.Block {
			toInline, toOffset = end.Inline, end.Offset
		}

		var out []Inline
		for j, n := range inlines {
			if j < fromInline || j > toInline {
				out = append(out, n)
				continue
			}
			switch v := n.(type) {
			case Text:
				lo := 0
				if j == fromInline {
					lo = fromOffset
				}
				hi := inlineLength(v)
				if j == toInline {
					hi = toOffset
				}
				out = append(out, splitApply(v, lo, hi, mark, on)...)
			case Link:
				for k, c := range v.Children {
					if t, ok := c.(Text); ok {
						t.Marks = t.Marks.With(mark, on)
						v.Children[k] = t
					}
				}
				out = append(out, v)
			default:
				out = append(out, n)
			}
		}
		d.Blocks[i] = b.WithInlines(mergeTexts(out))
	}
	return d.Normalize()
}

// splitApply splits a text leaf at [lo, hi) and applies the mark to the
// covered segment. Empty segments are dropped unless the whole leaf is empty.
func splitApply(t Text, lo, hi int, mark string, on bool) []Inline {
	runes := []rune(t.Content)
	if lo < 0 {
		lo = 0
	}
	if hi > len(runes) {
		hi = len(runes)
	}
	if lo >= hi {
		if len(runes) == 0 {
			t.Marks = t.Marks.With(mark, on)
			return []Inline{t}
		}
		return []Inline{t}
	}
	var out []Inline
	if lo > 0 {
		out = append(out, Text{Content: string(runes[:lo]), Marks: t.Marks})
	}
	out = append(out, Text{Content: string(runes[lo:hi]), Marks: t.Marks.With(mark, on)})
	if hi < len(runes) {
		out = append(out, Text{Content: string(runes[hi:]), Marks: t.Marks})
	}
	return out
}

// mergeTexts joins adjacent text leaves carrying identical marks so that
// repeated toggles converge to the same tree. Empty leaves collapse into a
// text neighbor but survive next to void nodes, where they hold the cursor
// position.
func mergeTexts(in []Inline) []Inline {
	var out []Inline
	for _, n := range in {
		t, ok := n.(Text)
		if ok && len(out) > 0 {
			if prev, prevOK := out[len(out)-1].(Text); prevOK {
				switch {
				case prev.Marks == t.Marks:
					prev.Content += t.Content
					out[len(out)-1] = prev
					continue
				case t.Content == "":
					continue
				case prev.Content == "":
					out[len(out)-1] = t
					continue
				}
			}
		}
		out = append(out, n)
	}
	return out
}

// InsertText inserts text at the point. When marks is nil the surrounding
// leaf's marks are inherited; otherwise the inserted run carries the given
// marks in its own leaf. Returns the point after the inserted text.
func InsertText(d Document, p Point, text string, marks *Marks) (Document, Point) {
	if text == "" {
		return d, p
	}
	d = d.Clone()
	p = p.Clamp(d)
	b := d.Blocks[p.Block]
	inlines := b.Inlines()

	switch v := inlines[p.Inline].(type) {
	case Text:
		if marks == nil || *marks == v.Marks {
			runes := []rune(v.Content)
			v.Content = string(runes[:p.Offset]) + text + string(runes[p.Offset:])
			inlines[p.Inline] = v
			d.Blocks[p.Block] = b.WithInlines(mergeTexts(inlines))
			return d.Normalize(), Point{Block: p.Block, Inline: p.Inline, Offset: p.Offset + len([]rune(text))}.Clamp(d)
		}
		parts := splitLeaf(v, p.Offset)
		inserted := Text{Content: text, Marks: *marks}
		rebuilt := append(append(append([]Inline{}, inlines[:p.Inline]...), parts.before...), inserted)
		insertedAt := len(rebuilt) - 1
		rebuilt = append(rebuilt, parts.after...)
		rebuilt = append(rebuilt, inlines[p.Inline+1:]...)
		d.Blocks[p.Block] = b.WithInlines(mergeTexts(rebuilt))
		d = d.Normalize()
		return d, Point{Block: p.Block, Inline: insertedAt, Offset: len([]rune(text))}.Clamp(d)
	case Link:
		// Insert inside the link's text children.
		v.Children = insertIntoLink(v.Children, p.Offset, text)
		inlines[p.Inline] = v
		d.Blocks[p.Block] = b.WithInlines(inlines)
		return d.Normalize(), Point{Block: p.Block, Inline: p.Inline, Offset: p.Offset + len([]rune(text))}.Clamp(d)
	default:
		return d, p
	}
}

type leafParts struct {
	before []Inline
	after  []Inline
}

func splitLeaf(t Text, offset int) leafParts {
	runes := []rune(t.Content)
	if offset < 0 {
		offset = 0
	}
	if offset > len(runes) {
		offset = len(runes)
	}
	var parts leafParts
	if offset > 0 {
		parts.before = []Inline{Text{Content: string(runes[:offset]), Marks: t.Marks}}
	}
	if offset < len(runes) {
		parts.after = []Inline{Text{Content: string(runes[offset:]), Marks: t.Marks}}
	}
	return parts
}

func insertIntoLink(children []Inline, offset int, text string) []Inline {
	consumed := 0
	for i, c := range children {
		t, ok := c.(Text)
		if !ok {
			continue
		}
		n := len([]rune(t.Content))
		if offset <= consumed+n {
			local := offset - consumed
			runes := []rune(t.Content)
			t.Content = string(runes[:local]) + text + string(runes[local:])
			children[i] = t
			return children
		}
		consumed += n
	}
	return append(children, Text{Content: text})
}

// InsertInline splits the text leaf at the point and places the node between
// the halves. A trailing empty text leaf is guaranteed after the node so the
// cursor can land past it; the returned point sits there.
func InsertInline(d Document, p Point, n Inline) (Document, Point) {
	d = d.Clone()
	p = p.Clamp(d)
	b := d.Blocks[p.Block]
	inlines := b.Inlines()

	t, ok := inlines[p.Inline].(Text)
	if !ok {
		// Point on a link: place the node after it.
		rebuilt := append(append([]Inline{}, inlines[:p.Inline+1]...), n, Text{})
		at := p.Inline + 2
		rebuilt = append(rebuilt, inlines[p.Inline+1:]...)
		d.Blocks[p.Block] = b.WithInlines(rebuilt)
		d = d.Normalize()
		return d, Point{Block: p.Block, Inline: at}.Clamp(d)
	}

	parts := splitLeaf(t, p.Offset)
	rebuilt := append(append([]Inline{}, inlines[:p.Inline]...), parts.before...)
	rebuilt = append(rebuilt, n)
	after := parts.after
	if len(after) == 0 {
		after = []Inline{Text{Marks: t.Marks}}
	}
	at := len(rebuilt)
	rebuilt = append(rebuilt, after...)
	rebuilt = append(rebuilt, inlines[p.Inline+1:]...)
	d.Blocks[p.Block] = b.WithInlines(rebuilt)
	d = d.Normalize()
	return d, Point{Block: p.Block, Inline: at, Offset: 0}.Clamp(d)
}

// SplitBlock splits the block at the point into two blocks of the same type.
// Used for Shift+Enter. The returned point is the start of the new block.
func SplitBlock(d Document, p Point) (Document, Point) {
	d = d.Clone()
	p = p.Clamp(d)
	b := d.Blocks[p.Block]
	inlines := b.Inlines()

	var first, second []Inline
	for j, n := range inlines {
		switch {
		case j < p.Inline:
			first = append(first, n)
		case j > p.Inline:
			second = append(second, n)
		default:
			if t, ok := n.(Text); ok {
				parts := splitLeaf(t, p.Offset)
				first = append(first, parts.before...)
				second = append(second, parts.after...)
			} else if p.Offset == 0 {
				second = append(second, n)
			} else {
				first = append(first, n)
			}
		}
	}
	if len(first) == 0 {
		first = []Inline{Text{}}
	}
	if len(second) == 0 {
		second = []Inline{Text{}}
	}

	blocks := append(append([]Block{}, d.Blocks[:p.Block]...), b.WithInlines(first), b.WithInlines(second))
	blocks = append(blocks, d.Blocks[p.Block+1:]...)
	d = Document{Blocks: blocks}.Normalize()
	return d, Point{Block: p.Block + 1}.Clamp(d)
}

// DeleteBackward removes one unit before the point: a rune within a leaf, a
// whole mention (void nodes delete atomically), or a block boundary. At the
// start of an empty bulleted list the list converts back to a paragraph so no
// dangling empty bullet survives.
func DeleteBackward(d Document, p Point) (Document, Point) {
	d = d.Clone()
	p = p.Clamp(d)
	b := d.Blocks[p.Block]
	inlines := b.Inlines()

	if p.Offset > 0 {
		switch v := inlines[p.Inline].(type) {
		case Text:
			runes := []rune(v.Content)
			v.Content = string(runes[:p.Offset-1]) + string(runes[p.Offset:])
			inlines[p.Inline] = v
			d.Blocks[p.Block] = b.WithInlines(mergeTexts(inlines))
			d = d.Normalize()
			return d, Point{Block: p.Block, Inline: p.Inline, Offset: p.Offset - 1}.Clamp(d)
		case Link:
			v.Children = deleteFromLink(v.Children, p.Offset)
			if linkEmpty(v) {
				rebuilt := append(append([]Inline{}, inlines[:p.Inline]...), inlines[p.Inline+1:]...)
				d.Blocks[p.Block] = b.WithInlines(mergeTexts(rebuilt))
				d = d.Normalize()
				return d, Point{Block: p.Block, Inline: p.Inline - 1}.Clamp(d)
			}
			inlines[p.Inline] = v
			d.Blocks[p.Block] = b.WithInlines(inlines)
			return d.Normalize(), Point{Block: p.Block, Inline: p.Inline, Offset: p.Offset - 1}.Clamp(d)
		}
	}

	if p.Inline > 0 {
		prev := inlines[p.Inline-1]
		switch prev.(type) {
		case Mention:
			// Void node: deleted as one unit.
			rebuilt := append(append([]Inline{}, inlines[:p.Inline-1]...), inlines[p.Inline:]...)
			d.Blocks[p.Block] = b.WithInlines(mergeTexts(rebuilt))
			d = d.Normalize()
			return d, Point{Block: p.Block, Inline: p.Inline - 1}.Clamp(d)
		default:
			end := inlineLength(prev)
			return DeleteBackward(d, Point{Block: p.Block, Inline: p.Inline - 1, Offset: end})
		}
	}

	// At the very start of a block.
	if _, isList := b.(BulletedList); isList && !blockHasText(b) {
		d.Blocks[p.Block] = Paragraph{Children: b.Inlines()}
		return d.Normalize(), Point{Block: p.Block}.Clamp(d)
	}
	if p.Block == 0 {
		return d, p
	}

	// Merge with the previous block. The cursor lands at the join point,
	// which survives leaf merging because offsets are leaf-relative.
	prevBlock := d.Blocks[p.Block-1]
	prevInlines := prevBlock.Inlines()
	joinInline := len(prevInlines) - 1
	joinOffset := inlineLength(prevInlines[joinInline])
	merged := mergeTexts(append(append([]Inline{}, prevInlines...), inlines...))
	blocks := append(append([]Block{}, d.Blocks[:p.Block-1]...), prevBlock.WithInlines(merged))
	blocks = append(blocks, d.Blocks[p.Block+1:]...)
	d = Document{Blocks: blocks}.Normalize()
	return d, Point{Block: p.Block - 1, Inline: joinInline, Offset: joinOffset}.Clamp(d)
}

func deleteFromLink(children []Inline, offset int) []Inline {
	consumed := 0
	for i, c := range children {
		t, ok := c.(Text)
		if !ok {
			continue
		}
		n := len([]rune(t.Content))
		if offset <= consumed+n {
			local := offset - consumed
			if local > 0 {
				runes := []rune(t.Content)
				t.Content = string(runes[:local-1]) + string(runes[local:])
				children[i] = t
			}
			return children
		}
		consumed += n
	}
	return children
}

func linkEmpty(l Link) bool {
	return strings.TrimSpace(l.PlainText()) == ""
}

func blockHasText(b Block) bool {
	for _, n := range b.Inlines() {
		if strings.TrimSpace(n.PlainText()) != "" {
			return true
		}
	}
	return false
}
