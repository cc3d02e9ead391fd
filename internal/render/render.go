// Package render turns a parsed conversation into PDF, DOCX and XLSX documents.
package render

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgallion1/chatexport/internal/conversation"
)

// Format identifies an output document type.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatXLSX Format = "xlsx"
)

// Formats lists every supported format.
var Formats = []Format{FormatPDF, FormatDOCX, FormatXLSX}

// ErrUnsupportedFormat is returned for an unknown format name.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ParseFormat maps a name or extension ("pdf", ".docx", "Excel") to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "pdf":
		return FormatPDF, nil
	case "docx", "word":
		return FormatDOCX, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Extension returns the conventional file extension, including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// MIMEType returns the media type for the format.
func (f Format) MIMEType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}

// Renderer produces one document format from a conversation. Render must
// not modify conv and must return identical bytes for identical input.
type Renderer interface {
	Format() Format
	Render(conv *conversation.Conversation, opts Options) ([]byte, error)
}

// New returns the renderer for f.
func New(f Format) (Renderer, error) {
	switch f {
	case FormatPDF:
		return PDF{}, nil
	case FormatDOCX:
		return DOCX{}, nil
	case FormatXLSX:
		return XLSX{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(f))
}

// All returns one renderer per supported format.
func All() []Renderer {
	return []Renderer{PDF{}, DOCX{}, XLSX{}}
}

// RoleColors holds the accent colours for the two known roles as hex
// strings ("#2563EB" or "2563EB").
type RoleColors struct {
	User      string `json:"user_color,omitempty"`
	Assistant string `json:"assistant_color,omitempty"`
}

// Options controls rendering.
type Options struct {
	Title string
	// GeneratedAt is printed as the export time and used for document
	// metadata. The zero value omits the export time line.
	GeneratedAt time.Time

	IncludeStatistics bool // XLSX only
	TurnNumbering     bool // PDF and DOCX headings
	Colors            RoleColors

	// FontBytes is an optional TrueType font for the PDF renderer. Without
	// it, text is transliterated to the core Helvetica code page and runes
	// outside it are lost.
	FontBytes []byte
	// FontName sets the font family in DOCX and XLSX output.
	FontName string
}

const DefaultTitle = "AI Conversation"

// DefaultOptions returns the options used when a caller sets nothing.
func DefaultOptions() Options {
	return Options{
		Title:             DefaultTitle,
		IncludeStatistics: true,
		TurnNumbering:     true,
	}
}

func (o Options) withDefaults() Options {
	o.Title = strings.TrimSpace(o.Title)
	if o.Title == "" {
		o.Title = DefaultTitle
	}
	return o
}

// turnHeading is the label shown above a turn, e.g. "Assistant · Turn 2 (ChatGPT)".
func turnHeading(t conversation.Turn, numbering bool) string {
	h := t.Role.DisplayName()
	if numbering {
		h = fmt.Sprintf("%s · Turn %d", h, t.Index)
	}
	if t.Label != "" && !strings.EqualFold(t.Label, t.Role.DisplayName()) {
		h += " (" + t.Label + ")"
	}
	return h
}

// summaryLine describes the conversation size, e.g. "4 turns · 120 characters".
func summaryLine(conv *conversation.Conversation) string {
	st := conv.Stats()
	turns := "turns"
	if st.TotalTurns == 1 {
		turns = "turn"
	}
	return fmt.Sprintf("%d %s · %d characters", st.TotalTurns, turns, st.TotalChars)
}

func exportedLine(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return "Exported " + t.Format("2006-01-02 15:04")
}

const noContent = "No content"

// expandTabs replaces tabs with four spaces; none of the target formats
// render a raw tab inside a text run consistently.
func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}
