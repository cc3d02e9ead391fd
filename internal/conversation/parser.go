// Package conversation recovers speaker turns from copy-pasted chat text.
package conversation

import (
	"strings"
	"unicode/utf8"
)

// Parser converts raw conversation text into a Conversation. A Parser is
// safe for concurrent use.
type Parser struct {
	markers *MarkerSet
}

// NewParser returns a parser recognising the given markers. A nil set means
// the default markers.
func NewParser(markers *MarkerSet) *Parser {
	if markers == nil {
		markers = DefaultMarkerSet()
	}
	return &Parser{markers: markers}
}

var defaultParser = NewParser(nil)

// Parse parses raw with the default markers.
func Parse(raw string) *Conversation {
	return defaultParser.Parse(raw)
}

type block struct {
	role  Role
	label string
	text  string
}

// Parse never fails. Empty or whitespace-only input yields zero turns.
//
// Strategies are tried in order and the first that applies is used for the
// whole input: explicit speaker labels, then blank-line paragraphs with
// USER/ASSISTANT alternation, then a single UNKNOWN turn.
func (p *Parser) Parse(raw string) *Conversation {
	lines := normalize(raw)
	fenced := fencedLines(lines)

	if blocks, ok := p.splitLabeled(lines, fenced); ok {
		return newConversation(StrategyExplicitLabels, blocks)
	}

	paras := splitParagraphs(lines, fenced)
	switch len(paras) {
	case 0:
		return newConversation(StrategyEmpty, nil)
	case 1:
		return newConversation(StrategySingleBlock, []block{{role: RoleUnknown, text: paras[0]}})
	}

	blocks := make([]block, len(paras))
	for i, para := range paras {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		blocks[i] = block{role: role, text: para}
	}
	return newConversation(StrategyAlternation, blocks)
}

// normalize unifies line endings and caps blank-line runs at two.
func normalize(raw string) []string {
	s := strings.ToValidUTF8(raw, "\uFFFD")
	s = strings.TrimPrefix(s, "\uFEFF")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	src := strings.Split(s, "\n")
	lines := make([]string, 0, len(src))
	blanks := 0
	for _, line := range src {
		if strings.TrimSpace(line) == "" {
			blanks++
			if blanks > 2 {
				continue
			}
			lines = append(lines, "")
			continue
		}
		blanks = 0
		lines = append(lines, line)
	}
	return lines
}

// splitLabeled segments lines at marker lines. Text before the first marker
// becomes an UNKNOWN block. ok is false when no marker was found.
func (p *Parser) splitLabeled(lines []string, fenced []bool) (blocks []block, ok bool) {
	cur := block{role: RoleUnknown}
	var buf []string

	for i, line := range lines {
		if !fenced[i] {
			if m, label, rest, matched := p.markers.match(line); matched {
				cur.text = strings.Join(buf, "\n")
				blocks = append(blocks, cur)

				cur = block{role: m.Role, label: label}
				buf = nil
				if rest != "" {
					buf = append(buf, rest)
				}
				ok = true
				continue
			}
		}
		buf = append(buf, line)
	}
	cur.text = strings.Join(buf, "\n")
	blocks = append(blocks, cur)

	if !ok {
		return nil, false
	}
	return blocks, true
}

// splitParagraphs splits on blank lines outside fenced code.
func splitParagraphs(lines []string, fenced []bool) []string {
	var paras []string
	var buf []string

	flush := func() {
		if t := trimBlock(strings.Join(buf, "\n")); t != "" {
			paras = append(paras, t)
		}
		buf = buf[:0]
	}

	for i, line := range lines {
		if line == "" && !fenced[i] {
			flush()
			continue
		}
		buf = append(buf, line)
	}
	flush()
	return paras
}

// fencedLines marks lines inside closed ``` or ~~~ fences, fence lines
// included. An opening fence that is never closed is treated as text.
func fencedLines(lines []string) []bool {
	in := make([]bool, len(lines))
	open := -1
	var opener string

	for i, line := range lines {
		f := fenceOf(line)
		if f == "" {
			continue
		}
		if open < 0 {
			open, opener = i, f
			continue
		}
		if f[0] == opener[0] && len(f) >= len(opener) {
			for j := open; j <= i; j++ {
				in[j] = true
			}
			open = -1
		}
	}
	return in
}

// fenceOf returns the fence run that starts line, or "".
func fenceOf(line string) string {
	s := trimIndent(line)
	if len(s) < 3 || (s[0] != '`' && s[0] != '~') {
		return ""
	}
	n := 0
	for n < len(s) && s[n] == s[0] {
		n++
	}
	if n < 3 {
		return ""
	}
	return s[:n]
}

// trimIndent strips up to three leading spaces.
func trimIndent(line string) string {
	n := 0
	for n < len(line) && n < 3 && line[n] == ' ' {
		n++
	}
	return line[n:]
}

// headingPrefix returns the byte length of a markdown ATX heading prefix
// ("## ") at the start of s, or 0.
func headingPrefix(s string) int {
	n := 0
	for n < len(s) && n < 6 && s[n] == '#' {
		n++
	}
	if n == 0 || n >= len(s) || (s[n] != ' ' && s[n] != '\t') {
		return 0
	}
	for n < len(s) && (s[n] == ' ' || s[n] == '\t') {
		n++
	}
	return n
}

// match reports whether line starts with a marker. label is the token as
// written; rest is the remainder of the line after the separator.
func (s *MarkerSet) match(line string) (m Marker, label, rest string, ok bool) {
	body := trimIndent(line)

	heading := false
	if h := headingPrefix(body); h > 0 {
		body = body[h:]
		heading = true
	}

	emph := ""
	switch {
	case strings.HasPrefix(body, "**"), strings.HasPrefix(body, "__"):
		emph = body[:2]
	case len(body) > 1 && (body[0] == '*' || body[0] == '_') && body[1] != ' ' && body[1] != '\t':
		// "* " is a list bullet, not emphasis.
		emph = body[:1]
	}
	body = body[len(emph):]

	for _, mk := range s.markers {
		prefix, tail, found := cutFold(body, mk.Token)
		if !found {
			continue
		}
		if emph != "" {
			tail = strings.TrimPrefix(tail, emph)
		}
		tail = strings.TrimLeft(tail, " \t")

		if r, size := utf8.DecodeRuneInString(tail); size > 0 && (r == ':' || r == '：') {
			tail = tail[size:]
			if emph != "" {
				tail = strings.TrimPrefix(tail, emph)
			}
			return mk, prefix, strings.TrimLeft(tail, " \t"), true
		}
		if heading && strings.TrimSpace(tail) == "" {
			return mk, prefix, "", true
		}
	}
	return Marker{}, "", "", false
}

// cutFold cuts token from the front of s, comparing case-insensitively.
func cutFold(s, token string) (prefix, rest string, ok bool) {
	i := 0
	for n := utf8.RuneCountInString(token); n > 0; n-- {
		if i >= len(s) {
			return "", "", false
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	if !strings.EqualFold(s[:i], token) {
		return "", "", false
	}
	return s[:i], s[i:], true
}

func trimBlock(s string) string {
	return strings.TrimSpace(s)
}
