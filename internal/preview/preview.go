// ABOUTME: Renders markdown message bodies into short plain-text previews
// ABOUTME: Uses goldmark's parser to strip formatting before truncation

package preview

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Ellipsis is appended to truncated previews.
const Ellipsis = "…"

var md = goldmark.New()

// Render converts markdown to a single line of plain text, at most maxRunes
// long including the ellipsis. maxRunes <= 0 disables truncation.
func Render(markdown string, maxRunes int) string {
	plain := PlainText(markdown)
	return Truncate(plain, maxRunes)
}

// PlainText strips markdown formatting and collapses all whitespace,
// including block boundaries, into single spaces.
func PlainText(markdown string) string {
	if strings.TrimSpace(markdown) == "" {
		return ""
	}

	src := []byte(markdown)
	doc := md.Parser().Parse(text.NewReader(src))

	var buf strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				buf.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(node.Value)
		case *ast.AutoLink:
			buf.Write(node.Label(src))
		case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				buf.Write(seg.Value(src))
				buf.WriteByte(' ')
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return strings.Join(strings.Fields(buf.String()), " ")
}

// Truncate shortens s to at most maxRunes runes, ending with Ellipsis when cut.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes == 1 {
		return Ellipsis
	}
	cut := strings.TrimRight(string(runes[:maxRunes-1]), " ")
	return cut + Ellipsis
}
