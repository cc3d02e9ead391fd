package export

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/dgallion1/chatexport/internal/render"
)

func TestBundle_SkipsFailures(t *testing.T) {
	results := []Result{
		{Format: render.FormatPDF, Filename: "chat.pdf", Data: []byte("pdf")},
		{Format: render.FormatDOCX, Filename: "chat.docx", Err: errors.New("boom")},
		{Format: render.FormatXLSX, Filename: "chat.xlsx", Data: []byte("xlsx")},
	}
	data, err := Bundle(results, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open bundle: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(zr.File))
	}
	want := map[string]string{"chat.pdf": "pdf", "chat.xlsx": "xlsx"}
	for i, name := range []string{"chat.pdf", "chat.xlsx"} {
		f := zr.File[i]
		if f.Name != name {
			t.Errorf("entry %d: expected %q, got %q", i, name, f.Name)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		b, _ := io.ReadAll(rc)
		rc.Close()
		if string(b) != want[name] {
			t.Errorf("%s: expected %q, got %q", name, want[name], b)
		}
	}
}

func TestBundle_Deterministic(t *testing.T) {
	results := []Result{{Format: render.FormatPDF, Filename: "a.pdf", Data: []byte("x")}}
	a, err := Bundle(results, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Bundle(results, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("bundles of identical results differ")
	}
}

func TestBundle_NothingToBundle(t *testing.T) {
	_, err := Bundle([]Result{{Format: render.FormatPDF, Err: errors.New("x")}}, time.Time{})
	if !errors.Is(err, ErrNothingToBundle) {
		t.Errorf("expected ErrNothingToBundle, got %v", err)
	}
}

func TestBundleName(t *testing.T) {
	at := time.Date(2026, 10, 19, 14, 3, 9, 0, time.UTC)
	if got := BundleName("Loop help", at); got != "Loop_help_20261019_140309.zip" {
		t.Errorf("unexpected name %q", got)
	}
	if got := BundleName("", time.Time{}); got != "AI_Conversation.zip" {
		t.Errorf("unexpected name %q", got)
	}
}
