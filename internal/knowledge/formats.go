package knowledge

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/markusmobius/go-trafilatura"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Document formats
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

// ErrNoContent is returned when an HTML page has no extractable main content
var ErrNoContent = errors.New("no content extracted from page")

var markdownParser = goldmark.New(goldmark.WithExtensions(extension.GFM)).Parser()

// PlainText returns the document body as plain text ready for chunking
func (d Document) PlainText() (string, error) {
	switch strings.ToLower(d.Format) {
	case "", FormatText:
		return d.Text, nil
	case FormatMarkdown, "md":
		body, _ := MarkdownToText(d.Text)
		return body, nil
	case FormatHTML:
		body, _, err := HTMLToText(d.Text)
		return body, err
	default:
		return "", fmt.Errorf("unsupported document format %q", d.Format)
	}
}

func isBlock(n ast.Node) bool {
	switch n.(type) {
	case *ast.Paragraph, *ast.Heading, *ast.ListItem, *ast.Blockquote, *ast.ThematicBreak:
		return true
	}
	return false
}

// MarkdownToText strips Markdown syntax, keeping one line per block, and
// returns the first heading as a title
func MarkdownToText(markdown string) (body, title string) {
	src := []byte(markdown)
	doc := markdownParser.Parse(text.NewReader(src))

	var b, heading strings.Builder
	inTitle, titleDone := false, false

	write := func(p []byte) {
		b.Write(p)
		if inTitle {
			heading.Write(p)
		}
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Heading:
			if !titleDone {
				inTitle = entering
				titleDone = !entering
			}
		case *ast.Text:
			if entering {
				write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					write([]byte(" "))
				}
			}
		case *ast.String:
			if entering {
				write(node.Value)
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := node.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					b.Write(seg.Value(src))
				}
				b.WriteByte('\n')
			}
			return ast.WalkSkipChildren, nil
		}
		if !entering && isBlock(n) {
			b.WriteByte('\n')
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(b.String()), strings.TrimSpace(heading.String())
}

// HTMLToText extracts the main content of a page and its title
func HTMLToText(page string) (body, title string, err error) {
	result, err := trafilatura.Extract(bytes.NewReader([]byte(page)), trafilatura.Options{})
	if err != nil {
		return "", "", fmt.Errorf("failed to extract content: %w", err)
	}
	if result == nil || strings.TrimSpace(result.ContentText) == "" {
		return "", "", ErrNoContent
	}
	return strings.TrimSpace(result.ContentText), result.Metadata.Title, nil
}
