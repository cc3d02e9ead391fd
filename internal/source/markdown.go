package source

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownReader handles Markdown files using goldmark. Inline markup is
// stripped while headings and fenced code keep their markdown form, so
// "## Assistant" headings still read as speaker markers and markers inside
// code stay inert.
type MarkdownReader struct{}

func (p *MarkdownReader) Read(r io.Reader, filename string) (*Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	return &Document{
		Title: titleOf(filename),
		Text:  joinBlocks(markdownBlocks(doc, src)),
	}, nil
}

func markdownBlocks(n ast.Node, src []byte) []string {
	var out []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Heading:
			out = append(out, strings.Repeat("#", node.Level)+" "+inlineText(node, src))
		case *ast.Paragraph, *ast.TextBlock:
			out = append(out, inlineText(node, src))
		case *ast.FencedCodeBlock:
			out = append(out, "```"+string(node.Language(src))+"\n"+rawLines(node, src)+"```")
		case *ast.CodeBlock:
			out = append(out, "```\n"+rawLines(node, src)+"```")
		case *ast.HTMLBlock:
			out = append(out, rawLines(node, src))
		case *ast.List:
			out = append(out, listText(node, src))
		case *ast.Blockquote:
			inner := strings.Split(joinBlocks(markdownBlocks(node, src)), "\n")
			for i, l := range inner {
				inner[i] = strings.TrimRight("> "+l, " ")
			}
			out = append(out, strings.Join(inner, "\n"))
		case *ast.ThematicBreak:
		default:
			out = append(out, markdownBlocks(node, src)...)
		}
	}
	return out
}

func listText(list *ast.List, src []byte) string {
	var lines []string
	i := list.Start
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		bullet := "- "
		if list.IsOrdered() {
			bullet = strconv.Itoa(i) + ". "
			i++
		}
		body := strings.Split(joinBlocks(markdownBlocks(item, src)), "\n")
		for j, l := range body {
			if j == 0 {
				body[j] = bullet + l
			} else if l != "" {
				body[j] = strings.Repeat(" ", len(bullet)) + l
			}
		}
		lines = append(lines, strings.Join(body, "\n"))
	}
	return strings.Join(lines, "\n")
}

// inlineText gets the plain text of a block's inline children.
func inlineText(n ast.Node, src []byte) string {
	var buf strings.Builder
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch node := c.(type) {
			case *ast.Text:
				buf.Write(node.Segment.Value(src))
				if node.HardLineBreak() || node.SoftLineBreak() {
					buf.WriteByte('\n')
				}
			case *ast.String:
				buf.Write(node.Value)
			case *ast.AutoLink:
				buf.Write(node.URL(src))
			case *ast.RawHTML:
			default:
				walk(node)
			}
		}
	}
	walk(n)
	return strings.TrimSpace(buf.String())
}

func rawLines(n ast.Node, src []byte) string {
	var buf strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(src))
	}
	s := buf.String()
	if s != "" && !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	return s
}
