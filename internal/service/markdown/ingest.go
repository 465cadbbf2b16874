package markdown

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/microcosm-cc/bluemonday"

	"intelligence/internal/domain/models/richtext"
)

// ContentConverter normalizes one inbound content format to Markdown, which
// Parse then lifts into a document.
type ContentConverter interface {
	Convert(ctx context.Context, input []byte) (string, error)
	SupportedExtensions() []string
	Name() string
}

// ConverterRegistry routes pasted or imported content to a converter by file
// extension. Thread-safe.
type ConverterRegistry struct {
	mu         sync.RWMutex
	converters map[string]ContentConverter
}

// NewConverterRegistry returns a registry with the standard converters
// pre-registered: markdown and plain-text passthroughs plus the sanitizing
// HTML converter.
func NewConverterRegistry() *ConverterRegistry {
	r := &ConverterRegistry{converters: make(map[string]ContentConverter)}
	r.Register(newMarkdownConverter())
	r.Register(newTextConverter())
	r.Register(NewHTMLConverter())
	return r
}

// Register adds a converter under each of its extensions, normalized to
// lowercase with a leading dot.
func (r *ConverterRegistry) Register(c ContentConverter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range c.SupportedExtensions() {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		r.converters[ext] = c
	}
}

// ToDocument converts named content into a document: pick the converter by
// extension, normalize to Markdown, parse.
func (r *ConverterRegistry) ToDocument(ctx context.Context, filename string, content []byte) (richtext.Document, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	r.mu.RLock()
	c := r.converters[ext]
	r.mu.RUnlock()
	if c == nil {
		return richtext.Document{}, fmt.Errorf("unsupported content type: %s", ext)
	}
	out, err := c.Convert(ctx, content)
	if err != nil {
		return richtext.Document{}, fmt.Errorf("%s conversion failed: %w", c.Name(), err)
	}
	return Parse(out), nil
}

// htmlConverter converts pasted HTML in two stages: sanitize with a UGC
// policy, then rewrite the surviving elements as Markdown.
type htmlConverter struct {
	policy    *bluemonday.Policy
	converter *md.Converter
}

func NewHTMLConverter() ContentConverter {
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("u")
	return &htmlConverter{
		policy:    policy,
		converter: md.NewConverter("", true, nil),
	}
}

func (c *htmlConverter) Convert(ctx context.Context, input []byte) (string, error) {
	sanitized := c.policy.Sanitize(string(input))
	out, err := c.converter.ConvertString(sanitized)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}
	return out, nil
}

func (c *htmlConverter) SupportedExtensions() []string { return []string{".html", ".htm"} }
func (c *htmlConverter) Name() string                  { return "html" }

// markdownConverter is a passthrough; Markdown is the pipeline's native
// format.
type markdownConverter struct{}

func newMarkdownConverter() ContentConverter { return &markdownConverter{} }

func (c *markdownConverter) Convert(ctx context.Context, input []byte) (string, error) {
	return string(input), nil
}
func (c *markdownConverter) SupportedExtensions() []string { return []string{".md", ".markdown"} }
func (c *markdownConverter) Name() string                  { return "markdown" }

// textConverter passes plain text through; plain text is valid Markdown.
type textConverter struct{}

func newTextConverter() ContentConverter { return &textConverter{} }

func (c *textConverter) Convert(ctx context.Context, input []byte) (string, error) {
	return string(input), nil
}
func (c *textConverter) SupportedExtensions() []string { return []string{".txt", ".text"} }
func (c *textConverter) Name() string                  { return "plaintext" }
