package markdown

import (
	"strings"

	"intelligence/internal/domain/models/richtext"
)

// Serialize renders a document as Markdown for the LLM prompt and the email
// body. Top-level blocks are separated by a blank line.
//
// The direction is lossy on purpose: mentions flatten to "@Name" with the
// email elided, and paragraph alignment has no Markdown encoding.
func Serialize(d richtext.Document) string {
	parts := make([]string, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		parts = append(parts, serializeBlock(b))
	}
	return strings.Join(parts, "\n\n")
}

func serializeBlock(b richtext.Block) string {
	switch blk := b.(type) {
	case richtext.Paragraph:
		return serializeInlines(blk.Children, "")
	case richtext.BulletedList:
		lines := make([]string, 0, len(blk.Children))
		for _, in := range blk.Children {
			lines = append(lines, "- "+serializeInline(in))
		}
		return strings.Join(lines, "\n")
	case richtext.BlockQuote:
		return "> " + serializeInlines(blk.Children, " ")
	case richtext.CodeBlock:
		return "```\n" + serializeInlines(blk.Children, "") + "\n```"
	default:
		return serializeInlines(b.Inlines(), "")
	}
}

func serializeInlines(in []richtext.Inline, sep string) string {
	parts := make([]string, 0, len(in))
	for _, n := range in {
		parts = append(parts, serializeInline(n))
	}
	return strings.Join(parts, sep)
}

func serializeInline(n richtext.Inline) string {
	switch in := n.(type) {
	case richtext.Text:
		return wrapMarks(in.Content, in.Marks)
	case richtext.Link:
		return "[" + serializeInlines(in.Children, "") + "](" + in.URL + ")"
	case richtext.Mention:
		return "@" + in.DisplayName
	default:
		return ""
	}
}

// wrapMarks composes the mark wrappers outer-to-inner as bold, italic,
// underline, strikethrough. The order is fixed so output bytes stay stable
// across versions for identical documents.
func wrapMarks(s string, m richtext.Marks) string {
	if m.Strikethrough {
		s = "~~" + s + "~~"
	}
	if m.Underline {
		s = "<u>" + s + "</u>"
	}
	if m.Italic {
		s = "*" + s + "*"
	}
	if m.Bold {
		s = "**" + s + "**"
	}
	return s
}
