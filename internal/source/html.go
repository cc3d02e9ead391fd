package source

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// roleAttr marks a message container in saved chat-share pages.
const roleAttr = "data-message-author-role"

// HTMLReader handles HTML files. Saved chat pages that tag each message
// with a role attribute yield one labelled turn per message; other pages
// are flattened to block text.
type HTMLReader struct{}

func (p *HTMLReader) Read(r io.Reader, filename string) (*Document, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	d := &Document{Title: titleOf(filename)}
	if title := findTitle(doc); title != "" {
		d.Title = title
	}

	root := findBody(doc)
	if root == nil {
		root = doc
	}
	if turns := roleBlocks(root); len(turns) > 0 {
		d.Text = joinBlocks(turns)
	} else {
		d.Text = joinBlocks(htmlBlocks(root))
	}
	return d, nil
}

// roleBlocks collects messages tagged with roleAttr, in document order.
// Roles other than user and assistant are skipped.
func roleBlocks(n *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if role, ok := attr(n, roleAttr); ok {
				var label string
				switch strings.ToLower(role) {
				case "user":
					label = "User"
				case "assistant":
					label = "Assistant"
				default:
					return
				}
				body := joinBlocks(htmlBlocks(n))
				if body == "" {
					body = inlineHTML(n)
				}
				if body != "" {
					out = append(out, speakerBlock(label, body))
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func htmlBlocks(n *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				if t := inlineHTML(n); t != "" {
					out = append(out, strings.Repeat("#", level)+" "+t)
				}
				return
			}

			switch n.Data {
			case "script", "style", "nav", "footer", "header", "noscript", "template", "button", "svg":
				return
			case "pre":
				out = append(out, "```\n"+strings.Trim(rawHTML(n), "\n")+"\n```")
				return
			case "p", "li", "td", "th", "dt", "dd", "figcaption":
				out = append(out, inlineHTML(n))
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

// inlineHTML gets the visible text of n with collapsed whitespace; <br>
// becomes a line break.
func inlineHTML(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			buf.WriteString(strings.Map(func(r rune) rune {
				if unicode.IsSpace(r) {
					return ' '
				}
				return r
			}, n.Data))
		case n.Type == html.ElementNode && n.Data == "br":
			buf.WriteByte('\n')
		case n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style"):
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	lines := strings.Split(buf.String(), "\n")
	for i, l := range lines {
		lines[i] = strings.Join(strings.Fields(l), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// rawHTML gets the text of n with whitespace preserved.
func rawHTML(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return inlineHTML(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
