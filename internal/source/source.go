// Package source turns an uploaded conversation file into the raw text the
// conversation parser consumes.
package source

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnsupportedFile is returned for a file extension with no reader.
var ErrUnsupportedFile = errors.New("unsupported file extension")

// Document is the text recovered from one file.
type Document struct {
	Title string
	Text  string
}

// Reader extracts conversation text from a file's bytes.
type Reader interface {
	Read(r io.Reader, filename string) (*Document, error)
}

// Options tunes the readers returned by ForFile.
type Options struct {
	// PdftotextFallback retries PDF extraction with the pdftotext binary
	// when the built-in reader fails.
	PdftotextFallback bool
}

// SupportedExtensions lists file extensions ForFile can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".text":     true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".csv":      true,
	".pdf":      true,
	".docx":     true,
	".xlsx":     true,
}

// ForFile returns the reader for a filename's extension.
func ForFile(filename string, opts Options) (Reader, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt", ".text":
		return &TextReader{}, nil
	case ".md", ".markdown":
		return &MarkdownReader{}, nil
	case ".html", ".htm":
		return &HTMLReader{}, nil
	case ".csv":
		return &CSVReader{}, nil
	case ".pdf":
		return &PDFReader{FallbackPdftotext: opts.PdftotextFallback}, nil
	case ".docx":
		return &DOCXReader{}, nil
	case ".xlsx":
		return &XLSXReader{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFile, ext)
	}
}

// Extensions returns SupportedExtensions in sorted order.
func Extensions() []string {
	exts := make([]string, 0, len(SupportedExtensions))
	for ext := range SupportedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Extract reads r with the reader for filename.
func Extract(r io.Reader, filename string, opts Options) (*Document, error) {
	rd, err := ForFile(filename, opts)
	if err != nil {
		return nil, err
	}
	return rd.Read(r, filename)
}

// titleOf is the filename without directory or extension.
func titleOf(filename string) string {
	base := filepath.Base(filename)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// joinBlocks separates non-empty blocks with a blank line.
func joinBlocks(blocks []string) string {
	out := blocks[:0:0]
	for _, b := range blocks {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return strings.Join(out, "\n\n")
}

// speakerBlock renders one known-role turn as a marker line plus content.
func speakerBlock(label, content string) string {
	return label + ":\n" + strings.TrimSpace(content)
}
