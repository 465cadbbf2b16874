package richtext

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Block type constants. These double as the "type" tag in the JSON encoding,
// which stays compatible with the document shape the web composer produces.
const (
	BlockTypeParagraph    = "paragraph"
	BlockTypeBulletedList = "bulleted-list"
	BlockTypeBlockQuote   = "block-quote"
	BlockTypeCodeBlock    = "code-block"
)

// Inline type constants.
const (
	InlineTypeText    = "text"
	InlineTypeLink    = "link"
	InlineTypeMention = "mention"
)

// Alignment values for paragraphs. The zero value means left.
type Alignment string

const (
	AlignLeft    Alignment = "left"
	AlignCenter  Alignment = "center"
	AlignRight   Alignment = "right"
	AlignJustify Alignment = "justify"
)

// Marks are independent character-level style flags. Any subset may be
// active on a single text leaf at once.
type Marks struct {
	Bold          bool `json:"bold,omitempty"`
	Italic        bool `json:"italic,omitempty"`
	Underline     bool `json:"underline,omitempty"`
	Strikethrough bool `json:"strikethrough,omitempty"`
}

// Mark names accepted by the format engine.
const (
	MarkBold          = "bold"
	MarkItalic        = "italic"
	MarkUnderline     = "underline"
	MarkStrikethrough = "strikethrough"
)

// Has reports whether the named mark is set.
func (m Marks) Has(name string) bool {
	switch name {
	case MarkBold:
		return m.Bold
	case MarkItalic:
		return m.Italic
	case MarkUnderline:
		return m.Underline
	case MarkStrikethrough:
		return m.Strikethrough
	default:
		return false
	}
}

// With returns a copy of the marks with the named mark set or cleared.
func (m Marks) With(name string, on bool) Marks {
	switch name {
	case MarkBold:
		m.Bold = on
	case MarkItalic:
		m.Italic = on
	case MarkUnderline:
		m.Underline = on
	case MarkStrikethrough:
		m.Strikethrough = on
	}
	return m
}

// None reports whether no marks are set.
func (m Marks) None() bool {
	return !m.Bold && !m.Italic && !m.Underline && !m.Strikethrough
}

// Inline is the closed set of nodes nested within a block: text runs, links
// and mentions. The concrete types are the only implementations.
type Inline interface {
	InlineType() string
	// PlainText returns the visible text of the node.
	PlainText() string
	inlineNode()
}

// Text is the only leaf node. Content may be empty only as the structural
// placeholder of an empty paragraph or a void node.
type Text struct {
	Content string
	Marks   Marks
}

func (Text) InlineType() string  { return InlineTypeText }
func (t Text) PlainText() string { return t.Content }
func (Text) inlineNode()         {}

// Link wraps text children and carries a destination URL.
type Link struct {
	URL      string
	Children []Inline
}

func (Link) InlineType() string { return InlineTypeLink }
func (l Link) PlainText() string {
	var sb strings.Builder
	for _, c := range l.Children {
		sb.WriteString(c.PlainText())
	}
	return sb.String()
}
func (Link) inlineNode() {}

// Mention references a contact. It is a void inline: atomic for cursor
// movement and deletion, never holding editable text. Its single empty text
// child required by the tree shape is implicit and re-emitted on encode.
type Mention struct {
	DisplayName string
	Email       string
}

func (Mention) InlineType() string  { return InlineTypeMention }
func (m Mention) PlainText() string { return "@" + m.DisplayName }
func (Mention) inlineNode()         {}

// Block is the closed set of top-level structural units. All variants hold a
// flat inline sequence; lists are single-level by design.
type Block interface {
	BlockType() string
	Inlines() []Inline
	// WithInlines returns a copy of the block with the given children.
	WithInlines([]Inline) Block
	blockNode()
}

// Paragraph is the default block. Align is left when empty.
type Paragraph struct {
	Align    Alignment
	Children []Inline
}

func (Paragraph) BlockType() string    { return BlockTypeParagraph }
func (p Paragraph) Inlines() []Inline  { return p.Children }
func (p Paragraph) WithInlines(in []Inline) Block { p.Children = in; return p }
func (Paragraph) blockNode()           {}

// BulletedList renders each inline child as one bullet line.
type BulletedList struct {
	Children []Inline
}

func (BulletedList) BlockType() string   { return BlockTypeBulletedList }
func (b BulletedList) Inlines() []Inline { return b.Children }
func (b BulletedList) WithInlines(in []Inline) Block { b.Children = in; return b }
func (BulletedList) blockNode()          {}

// BlockQuote is a quoted block.
type BlockQuote struct {
	Children []Inline
}

func (BlockQuote) BlockType() string   { return BlockTypeBlockQuote }
func (q BlockQuote) Inlines() []Inline { return q.Children }
func (q BlockQuote) WithInlines(in []Inline) Block { q.Children = in; return q }
func (BlockQuote) blockNode()          {}

// CodeBlock is a preformatted block.
type CodeBlock struct {
	Children []Inline
}

func (CodeBlock) BlockType() string   { return BlockTypeCodeBlock }
func (c CodeBlock) Inlines() []Inline { return c.Children }
func (c CodeBlock) WithInlines(in []Inline) Block { c.Children = in; return c }
func (CodeBlock) blockNode()          {}

// Document is an ordered sequence of blocks. A document under edit is never
// empty: the empty state is a single empty paragraph.
type Document struct {
	Blocks []Block
}

// New returns the canonical empty document.
func New() Document {
	return Document{Blocks: []Block{Paragraph{Children: []Inline{Text{}}}}}
}

// FromPlainText builds a document with one paragraph per input line.
func FromPlainText(text string) Document {
	if text == "" {
		return New()
	}
	lines := strings.Split(text, "\n")
	blocks := make([]Block, 0, len(lines))
	for _, line := range lines {
		blocks = append(blocks, Paragraph{Children: []Inline{Text{Content: line}}})
	}
	return Document{Blocks: blocks}
}

// IsEmpty reports whether the document is in the canonical empty state: a
// single paragraph whose only child is an unmarked empty text leaf.
func (d Document) IsEmpty() bool {
	if len(d.Blocks) != 1 {
		return false
	}
	p, ok := d.Blocks[0].(Paragraph)
	if !ok || len(p.Children) != 1 {
		return false
	}
	t, ok := p.Children[0].(Text)
	return ok && t.Content == "" && t.Marks.None()
}

// HasText reports whether any leaf contains non-whitespace text.
func (d Document) HasText() bool {
	for _, b := range d.Blocks {
		for _, in := range b.Inlines() {
			if in.InlineType() == InlineTypeMention {
				continue
			}
			if strings.TrimSpace(in.PlainText()) != "" {
				return true
			}
		}
	}
	return false
}

// HasMention reports whether the document contains at least one mention node.
func (d Document) HasMention() bool {
	for _, b := range d.Blocks {
		for _, in := range b.Inlines() {
			if in.InlineType() == InlineTypeMention {
				return true
			}
		}
	}
	return false
}

// PlainText flattens the document to text, one line per block.
func (d Document) PlainText() string {
	lines := make([]string, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		var sb strings.Builder
		for _, in := range b.Inlines() {
			sb.WriteString(in.PlainText())
		}
		lines = append(lines, sb.String())
	}
	return strings.Join(lines, "\n")
}

// Clone returns a deep copy of the document. Blocks and inlines are value
// types, so copying the slices is sufficient.
func (d Document) Clone() Document {
	blocks := make([]Block, len(d.Blocks))
	for i, b := range d.Blocks {
		in := b.Inlines()
		children := make([]Inline, len(in))
		copy(children, cloneInlines(in))
		blocks[i] = b.WithInlines(children)
	}
	return Document{Blocks: blocks}
}

func cloneInlines(in []Inline) []Inline {
	out := make([]Inline, len(in))
	for i, n := range in {
		if l, ok := n.(Link); ok {
			children := make([]Inline, len(l.Children))
			copy(children, l.Children)
			l.Children = children
			out[i] = l
			continue
		}
		out[i] = n
	}
	return out
}

// Normalize repairs the tree-shape invariants in place and returns the
// document: at least one block, and every container holding at least one
// child (an empty text leaf is inserted where needed).
func (d Document) Normalize() Document {
	if len(d.Blocks) == 0 {
		return New()
	}
	for i, b := range d.Blocks {
		in := b.Inlines()
		if len(in) == 0 {
			d.Blocks[i] = b.WithInlines([]Inline{Text{}})
			continue
		}
		for j, n := range in {
			if l, ok := n.(Link); ok && len(l.Children) == 0 {
				l.Children = []Inline{Text{}}
				in[j] = l
			}
		}
	}
	return d
}

// Validate reports the first tree-shape violation, or nil.
func (d Document) Validate() error {
	if len(d.Blocks) == 0 {
		return fmt.Errorf("document has no blocks")
	}
	for i, b := range d.Blocks {
		in := b.Inlines()
		if len(in) == 0 {
			return fmt.Errorf("block %d (%s) has no children", i, b.BlockType())
		}
		for j, n := range in {
			if l, ok := n.(Link); ok && len(l.Children) == 0 {
				return fmt.Errorf("link at block %d inline %d has no children", i, j)
			}
		}
	}
	return nil
}

// jsonNode is the wire shape of a single node in the tagged-union encoding.
type jsonNode struct {
	Type          string     `json:"type,omitempty"`
	Align         Alignment  `json:"align,omitempty"`
	URL           string     `json:"url,omitempty"`
	Name          string     `json:"name,omitempty"`
	Email         string     `json:"email,omitempty"`
	Children      []jsonNode `json:"children,omitempty"`
	Text          *string    `json:"text,omitempty"`
	Bold          bool       `json:"bold,omitempty"`
	Italic        bool       `json:"italic,omitempty"`
	Underline     bool       `json:"underline,omitempty"`
	Strikethrough bool       `json:"strikethrough,omitempty"`
}

// MarshalJSON encodes the document as an array of tagged block nodes.
func (d Document) MarshalJSON() ([]byte, error) {
	nodes := make([]jsonNode, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		nodes = append(nodes, encodeBlock(b))
	}
	return json.Marshal(nodes)
}

// UnmarshalJSON decodes the tagged-union array, normalizing the result.
// Unknown node types degrade to paragraphs so stored documents from newer
// writers never fail to load.
func (d *Document) UnmarshalJSON(data []byte) error {
	var nodes []jsonNode
	if err := json.Unmarshal(data, &nodes); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	blocks := make([]Block, 0, len(nodes))
	for _, n := range nodes {
		blocks = append(blocks, decodeBlock(n))
	}
	*d = Document{Blocks: blocks}.Normalize()
	return nil
}

func encodeBlock(b Block) jsonNode {
	node := jsonNode{Type: b.BlockType(), Children: encodeInlines(b.Inlines())}
	if p, ok := b.(Paragraph); ok && p.Align != "" && p.Align != AlignLeft {
		node.Align = p.Align
	}
	return node
}

func encodeInlines(in []Inline) []jsonNode {
	nodes := make([]jsonNode, 0, len(in))
	for _, n := range in {
		switch v := n.(type) {
		case Text:
			content := v.Content
			nodes = append(nodes, jsonNode{
				Text:          &content,
				Bold:          v.Marks.Bold,
				Italic:        v.Marks.Italic,
				Underline:     v.Marks.Underline,
				Strikethrough: v.Marks.Strikethrough,
			})
		case Link:
			nodes = append(nodes, jsonNode{Type: InlineTypeLink, URL: v.URL, Children: encodeInlines(v.Children)})
		case Mention:
			empty := ""
			nodes = append(nodes, jsonNode{
				Type:     InlineTypeMention,
				Name:     v.DisplayName,
				Email:    v.Email,
				Children: []jsonNode{{Text: &empty}},
			})
		}
	}
	return nodes
}

func decodeBlock(n jsonNode) Block {
	children := decodeInlines(n.Children)
	switch n.Type {
	case BlockTypeBulletedList:
		return BulletedList{Children: children}
	case BlockTypeBlockQuote:
		return BlockQuote{Children: children}
	case BlockTypeCodeBlock:
		return CodeBlock{Children: children}
	default:
		align := n.Align
		if align == "" {
			align = AlignLeft
		}
		return Paragraph{Align: align, Children: children}
	}
}

func decodeInlines(nodes []jsonNode) []Inline {
	in := make([]Inline, 0, len(nodes))
	for _, n := range nodes {
		switch {
		case n.Type == InlineTypeLink:
			in = append(in, Link{URL: n.URL, Children: decodeInlines(n.Children)})
		case n.Type == InlineTypeMention:
			in = append(in, Mention{DisplayName: n.Name, Email: n.Email})
		case n.Text != nil:
			in = append(in, Text{
				Content: *n.Text,
				Marks: Marks{
					Bold:          n.Bold,
					Italic:        n.Italic,
					Underline:     n.Underline,
					Strikethrough: n.Strikethrough,
				},
			})
		}
	}
	return in
}
