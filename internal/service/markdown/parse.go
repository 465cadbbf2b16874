package markdown

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"intelligence/internal/domain/models/richtext"
)

// engine is safe for concurrent use; Strikethrough is the only extension the
// serializer can emit.
var engine = goldmark.New(goldmark.WithExtensions(extension.Strikethrough))

// Parse converts Markdown into a document. It never fails: anything the
// grammar does not recognize degrades to plain paragraph text, and an empty
// input yields the canonical empty document.
//
// Mentions do not round-trip ("@Name" stays plain text) and "<u>" spans are
// the only inline HTML honored; both are accepted asymmetries with Serialize.
func Parse(src string) richtext.Document {
	source := []byte(src)
	root := engine.Parser().Parse(text.NewReader(source))

	var blocks []richtext.Block
	for node := root.FirstChild(); node != nil; node = node.NextSibling() {
		if b, ok := parseBlock(node, source); ok {
			blocks = append(blocks, b)
		}
	}
	return richtext.Document{Blocks: blocks}.Normalize()
}

func parseBlock(node ast.Node, source []byte) (richtext.Block, bool) {
	switch n := node.(type) {
	case *ast.Paragraph:
		return richtext.Paragraph{Children: parseInlines(n, source, richtext.Marks{})}, true
	case *ast.Heading:
		// No heading block in the document model; degrade to a bold
		// paragraph so the emphasis survives.
		return richtext.Paragraph{Children: parseInlines(n, source, richtext.Marks{Bold: true})}, true
	case *ast.List:
		return parseList(n, source), true
	case *ast.Blockquote:
		var children []richtext.Inline
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			children = append(children, parseInlines(c, source, richtext.Marks{})...)
		}
		return richtext.BlockQuote{Children: children}, true
	case *ast.FencedCodeBlock:
		return richtext.CodeBlock{Children: []richtext.Inline{richtext.Text{Content: blockLines(n, source)}}}, true
	case *ast.CodeBlock:
		return richtext.CodeBlock{Children: []richtext.Inline{richtext.Text{Content: blockLines(n, source)}}}, true
	case *ast.HTMLBlock:
		// Raw HTML at block level degrades to its text.
		raw := strings.TrimSpace(blockLines(n, source))
		if raw == "" {
			return nil, false
		}
		return richtext.Paragraph{Children: []richtext.Inline{richtext.Text{Content: raw}}}, true
	case *ast.ThematicBreak:
		return nil, false
	default:
		txt := strings.TrimSpace(nodeText(node, source))
		if txt == "" {
			return nil, false
		}
		return richtext.Paragraph{Children: []richtext.Inline{richtext.Text{Content: txt}}}, true
	}
}

// parseList flattens a Markdown list into the single-level bulleted-list
// block: one inline child per item. An item with mixed formatting collapses
// to its plain text so the one-line-per-child shape holds.
func parseList(list *ast.List, source []byte) richtext.Block {
	var children []richtext.Inline
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		var itemInlines []richtext.Inline
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			itemInlines = append(itemInlines, parseInlines(c, source, richtext.Marks{})...)
		}
		switch len(itemInlines) {
		case 0:
			children = append(children, richtext.Text{})
		case 1:
			children = append(children, itemInlines[0])
		default:
			var sb strings.Builder
			for _, in := range itemInlines {
				sb.WriteString(in.PlainText())
			}
			children = append(children, richtext.Text{Content: sb.String()})
		}
	}
	return richtext.BulletedList{Children: children}
}

func parseInlines(parent ast.Node, source []byte, inherited richtext.Marks) []richtext.Inline {
	var out []richtext.Inline
	m := inherited
	for node := parent.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.Text:
			content := string(n.Segment.Value(source))
			out = appendText(out, richtext.Text{Content: content, Marks: m})
			if n.SoftLineBreak() || n.HardLineBreak() {
				out = appendText(out, richtext.Text{Content: " ", Marks: m})
			}
		case *ast.String:
			out = appendText(out, richtext.Text{Content: string(n.Value), Marks: m})
		case *ast.Emphasis:
			em := m
			if n.Level >= 2 {
				em = em.With(richtext.MarkBold, true)
			} else {
				em = em.With(richtext.MarkItalic, true)
			}
			out = appendInlines(out, parseInlines(n, source, em))
		case *east.Strikethrough:
			out = appendInlines(out, parseInlines(n, source, m.With(richtext.MarkStrikethrough, true)))
		case *ast.CodeSpan:
			out = appendText(out, richtext.Text{Content: nodeText(n, source), Marks: m})
		case *ast.Link:
			out = append(out, richtext.Link{
				URL:      string(n.Destination),
				Children: parseInlines(n, source, m),
			})
		case *ast.AutoLink:
			url := string(n.URL(source))
			out = append(out, richtext.Link{
				URL:      url,
				Children: []richtext.Inline{richtext.Text{Content: string(n.Label(source)), Marks: m}},
			})
		case *ast.Image:
			out = appendText(out, richtext.Text{Content: nodeText(n, source), Marks: m})
		case *ast.RawHTML:
			// "<u>"/"</u>" toggle the underline mark for following
			// siblings; other raw HTML is dropped.
			switch strings.ToLower(rawHTML(n, source)) {
			case "<u>":
				m = m.With(richtext.MarkUnderline, true)
			case "</u>":
				m = m.With(richtext.MarkUnderline, false)
			}
		default:
			out = appendText(out, richtext.Text{Content: nodeText(node, source), Marks: m})
		}
	}
	return out
}

// appendText drops empty leaves and merges runs that share marks, so
// "*a*b" parses to two leaves instead of four.
func appendText(out []richtext.Inline, t richtext.Text) []richtext.Inline {
	if t.Content == "" {
		return out
	}
	if len(out) > 0 {
		if prev, ok := out[len(out)-1].(richtext.Text); ok && prev.Marks == t.Marks {
			prev.Content += t.Content
			out[len(out)-1] = prev
			return out
		}
	}
	return append(out, t)
}

func appendInlines(out []richtext.Inline, in []richtext.Inline) []richtext.Inline {
	for _, n := range in {
		if t, ok := n.(richtext.Text); ok {
			out = appendText(out, t)
			continue
		}
		out = append(out, n)
	}
	return out
}

// blockLines joins the raw source lines a block node spans, without the
// trailing newline.
func blockLines(node ast.Node, source []byte) string {
	var sb strings.Builder
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(source))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func rawHTML(n *ast.RawHTML, source []byte) string {
	var sb strings.Builder
	for i := 0; i < n.Segments.Len(); i++ {
		seg := n.Segments.At(i)
		sb.Write(seg.Value(source))
	}
	return sb.String()
}

// nodeText collects the plain text under a node, ignoring structure.
func nodeText(node ast.Node, source []byte) string {
	if t, ok := node.(*ast.Text); ok {
		return string(t.Segment.Value(source))
	}
	var sb strings.Builder
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		sb.WriteString(nodeText(c, source))
	}
	return sb.String()
}
