package render

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/dgallion1/chatexport/internal/conversation"
	"github.com/go-pdf/fpdf"
)

// A4 portrait, millimetres.
const (
	pdfMarginLeft   = 25.0
	pdfMarginTop    = 30.0
	pdfMarginRight  = 25.0
	pdfMarginBottom = 25.0

	pdfHeadingHeight = 8.0
	pdfLineHeight    = 6.0
	pdfContentIndent = 6.0
	pdfTurnGap       = 4.0

	pdfFontFamily = "body"
)

// pdfEpoch stamps document metadata when Options.GeneratedAt is unset.
var pdfEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// PDF renders a paginated document: one heading plus wrapped content per turn.
type PDF struct{}

func (PDF) Format() Format { return FormatPDF }

func (PDF) Render(conv *conversation.Conversation, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	pal := NewPalette(opts.Colors)

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(pdfMarginLeft, pdfMarginTop, pdfMarginRight)
	doc.SetAutoPageBreak(true, pdfMarginBottom)
	doc.SetCatalogSort(true)

	stamp := opts.GeneratedAt
	if stamp.IsZero() {
		stamp = pdfEpoch
	}
	doc.SetCreationDate(stamp)
	doc.SetModificationDate(stamp)
	doc.SetTitle(opts.Title, true)
	doc.SetCreator("chatexport", true)

	family := "Helvetica"
	tr := doc.UnicodeTranslatorFromDescriptor("")
	if len(opts.FontBytes) > 0 {
		doc.AddUTF8FontFromBytes(pdfFontFamily, "", opts.FontBytes)
		doc.AddUTF8FontFromBytes(pdfFontFamily, "B", opts.FontBytes)
		family = pdfFontFamily
		tr = func(s string) string { return s }
	}
	text := func(s string) string { return tr(expandTabs(s)) }

	doc.SetFooterFunc(func() {
		doc.SetY(-15)
		doc.SetFont(family, "", 8)
		doc.SetTextColor(rgbOf(mutedColor))
		doc.CellFormat(0, 10, strconv.Itoa(doc.PageNo()), "", 0, "C", false, 0, "")
	})

	doc.AddPage()
	writePDFTitle(doc, family, text, conv, opts)

	if conv.Empty() {
		doc.SetFont(family, "", 12)
		doc.SetTextColor(rgbOf(mutedColor))
		doc.CellFormat(0, pdfHeadingHeight, text(noContent), "", 1, "C", false, 0, "")
	}

	_, pageH := doc.GetPageSize()
	for _, t := range conv.Turns() {
		// Keep the heading on the same page as the first content line.
		if doc.GetY()+pdfHeadingHeight+pdfLineHeight > pageH-pdfMarginBottom {
			doc.AddPage()
		}

		r, g, b := pal.AccentRGB(t.Role)
		y := doc.GetY()
		doc.SetFillColor(r, g, b)
		doc.Rect(pdfMarginLeft, y+1, 1.5, pdfHeadingHeight-2, "F")

		doc.SetFont(family, "B", 12)
		doc.SetTextColor(r, g, b)
		doc.SetX(pdfMarginLeft + 4)
		doc.CellFormat(0, pdfHeadingHeight, text(turnHeading(t, opts.TurnNumbering)), "", 1, "L", false, 0, "")

		doc.SetFont(family, "", 11)
		doc.SetTextColor(rgbOf(contentColor))
		doc.SetLeftMargin(pdfMarginLeft + pdfContentIndent)
		doc.SetRightMargin(pdfMarginRight + pdfContentIndent)
		doc.SetX(pdfMarginLeft + pdfContentIndent)
		doc.MultiCell(0, pdfLineHeight, text(t.Content), "", "L", false)
		doc.SetLeftMargin(pdfMarginLeft)
		doc.SetRightMargin(pdfMarginRight)
		doc.Ln(pdfTurnGap)
	}

	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("build pdf: %w", err)
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writePDFTitle(doc *fpdf.Fpdf, family string, text func(string) string, conv *conversation.Conversation, opts Options) {
	doc.Ln(10)
	doc.SetFont(family, "B", 24)
	doc.SetTextColor(rgbOf(titleColor))
	doc.MultiCell(0, 12, text(opts.Title), "", "C", false)
	doc.Ln(3)

	doc.SetFont(family, "", 11)
	doc.SetTextColor(rgbOf(mutedColor))
	if line := exportedLine(opts.GeneratedAt); line != "" {
		doc.CellFormat(0, 7, text(line), "", 1, "C", false, 0, "")
	}
	doc.CellFormat(0, 7, text(summaryLine(conv)), "", 1, "C", false, 0, "")
	doc.Ln(12)
}
