package source

import (
	"errors"
	"strings"
	"testing"
)

func TestForFile(t *testing.T) {
	tests := []struct {
		name string
		want Reader
	}{
		{"chat.txt", &TextReader{}},
		{"chat.MD", &MarkdownReader{}},
		{"share.htm", &HTMLReader{}},
		{"log.csv", &CSVReader{}},
		{"export.pdf", &PDFReader{}},
		{"export.docx", &DOCXReader{}},
		{"export.xlsx", &XLSXReader{}},
	}
	for _, tt := range tests {
		got, err := ForFile(tt.name, Options{})
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.name, err)
			continue
		}
		if gotType, wantType := typeName(got), typeName(tt.want); gotType != wantType {
			t.Errorf("%s: expected %s, got %s", tt.name, wantType, gotType)
		}
		if !IsSupportedExtension(tt.name) {
			t.Errorf("%s: expected supported", tt.name)
		}
	}

	if _, err := ForFile("slides.pptx", Options{}); !errors.Is(err, ErrUnsupportedFile) {
		t.Errorf("expected ErrUnsupportedFile, got %v", err)
	}
	if IsSupportedExtension("noext") {
		t.Error("file without extension should be unsupported")
	}
}

func TestForFile_PdftotextOption(t *testing.T) {
	r, err := ForFile("a.pdf", Options{PdftotextFallback: true})
	if err != nil {
		t.Fatal(err)
	}
	if !r.(*PDFReader).FallbackPdftotext {
		t.Error("expected fallback to be enabled")
	}
}

func typeName(r Reader) string {
	switch r.(type) {
	case *TextReader:
		return "text"
	case *MarkdownReader:
		return "markdown"
	case *HTMLReader:
		return "html"
	case *CSVReader:
		return "csv"
	case *PDFReader:
		return "pdf"
	case *DOCXReader:
		return "docx"
	case *XLSXReader:
		return "xlsx"
	}
	return "?"
}

func TestTextReader_PassesThrough(t *testing.T) {
	input := "User: hi\r\n\r\nAssistant: hello\n"
	d, err := Extract(strings.NewReader(input), "notes.txt", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Title != "notes" {
		t.Errorf("expected title %q, got %q", "notes", d.Title)
	}
	if d.Text != input {
		t.Errorf("expected text unchanged, got %q", d.Text)
	}
}

func TestTitleOf(t *testing.T) {
	tests := map[string]string{
		"chat.txt":          "chat",
		"/tmp/dir/chat.md":  "chat",
		"archive.tar.csv":   "archive.tar",
		"":                  "",
	}
	for in, want := range tests {
		if got := titleOf(in); got != want {
			t.Errorf("titleOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtensions_SortedAndComplete(t *testing.T) {
	exts := Extensions()
	if len(exts) != len(SupportedExtensions) {
		t.Fatalf("expected %d extensions, got %d", len(SupportedExtensions), len(exts))
	}
	for i := 1; i < len(exts); i++ {
		if exts[i-1] >= exts[i] {
			t.Errorf("extensions out of order: %v", exts)
			break
		}
	}
}
