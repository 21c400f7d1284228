package chunk

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// PlainText extracts the speakable text of a Markdown document. Code
// blocks and raw HTML are dropped, link and image targets are dropped,
// and every heading, paragraph and list item ends with a sentence
// boundary so that Split can cut there.
func PlainText(markdown string) string {
	source := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var buf strings.Builder
	walk(doc, source, &buf)

	return strings.TrimSpace(buf.String())
}

func walk(node ast.Node, source []byte, buf *strings.Builder) {
	switch n := node.(type) {
	case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock, *ast.RawHTML:
		return

	case *ast.Text:
		buf.Write(n.Segment.Value(source))
		if n.SoftLineBreak() || n.HardLineBreak() {
			buf.WriteByte(' ')
		}
		return

	case *ast.String:
		buf.Write(n.Value)
		return

	case *ast.AutoLink:
		buf.Write(n.Label(source))
		return

	case *ast.Image:
		// alt text only
		walkChildren(n, source, buf)
		return

	case *ast.Heading, *ast.Paragraph, *ast.TextBlock:
		walkChildren(n, source, buf)
		endSentence(buf)
		return

	case *ast.ThematicBreak:
		endSentence(buf)
		return
	}

	walkChildren(node, source, buf)
}

func walkChildren(node ast.Node, source []byte, buf *strings.Builder) {
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		walk(c, source, buf)
	}
}

// endSentence terminates the current block with a boundary rune and a
// newline, unless the block already ends with one.
func endSentence(buf *strings.Builder) {
	s := strings.TrimRightFunc(buf.String(), unicode.IsSpace)
	if s == "" {
		return
	}
	last, _ := utf8.DecodeLastRuneInString(s)
	buf.Reset()
	buf.WriteString(s)
	if !IsBoundary(last) && last != ':' {
		buf.WriteByte('.')
	}
	buf.WriteByte('\n')
}
