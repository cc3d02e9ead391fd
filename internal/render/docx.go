package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dgallion1/chatexport/internal/conversation"
	"github.com/fumiama/go-docx"
)

// Run sizes are in half-points.
const (
	docxTitleSize   = "48"
	docxInfoSize    = "20"
	docxHeadingSize = "24"
	docxContentSize = "22"
)

// DOCX renders an editable Word document: a coloured heading and shaded
// content paragraphs per turn, separated by a uniform spacer paragraph.
type DOCX struct{}

func (DOCX) Format() Format { return FormatDOCX }

func (DOCX) Render(conv *conversation.Conversation, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	pal := NewPalette(opts.Colors)

	doc := docx.New().WithDefaultTheme()
	font := func(r *docx.Run) *docx.Run {
		if opts.FontName != "" {
			r.Font(opts.FontName, opts.FontName, opts.FontName, "eastAsia")
		}
		return r
	}

	title := doc.AddParagraph().Justification("center")
	font(title.AddText(opts.Title)).Size(docxTitleSize).Bold().Color(titleColor)

	info := []string{summaryLine(conv)}
	if line := exportedLine(opts.GeneratedAt); line != "" {
		info = append([]string{line}, info...)
	}
	infoPara := doc.AddParagraph().Justification("center")
	font(infoPara.AddText(strings.Join(info, " | "))).Size(docxInfoSize).Color(mutedColor)
	doc.AddParagraph()

	if conv.Empty() {
		p := doc.AddParagraph().Justification("center")
		font(p.AddText(noContent)).Size(docxHeadingSize).Color(mutedColor)
	}

	for _, t := range conv.Turns() {
		heading := doc.AddParagraph()
		font(heading.AddText(turnHeading(t, opts.TurnNumbering))).
			Size(docxHeadingSize).Bold().Color(pal.Accent(t.Role))

		shade := &docx.Shade{Val: "clear", Color: "auto", Fill: pal.Shade(t.Role)}
		for _, line := range strings.Split(t.Content, "\n") {
			// Paragraph shading fills the full text width, blank lines included.
			p := doc.AddParagraph()
			p.Properties = &docx.ParagraphProperties{Shade: shade}
			font(p.AddText(expandTabs(line))).Size(docxContentSize).Color(contentColor)
		}
		doc.AddParagraph()
	}

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write docx: %w", err)
	}
	return canonicalZip(buf.Bytes())
}
