package api

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"slices"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/chatexport/internal/config"
	"github.com/dgallion1/chatexport/internal/conversation"
	"github.com/dgallion1/chatexport/internal/export"
	"github.com/dgallion1/chatexport/internal/render"
)

var (
	discard = slog.New(slog.NewTextHandler(io.Discard, nil))
	fixedAt = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
)

const chat = "User: How do I loop in Go?\nAssistant: Use for.\nUser: Thanks!"

func testConfig() config.Config {
	return config.Config{
		Port:                 "8090",
		MaxInputBytes:        64 << 10,
		MaxUploadBytes:       64 << 10,
		MaxConcurrentRenders: 2,
		StatsWindow:          time.Hour,
	}
}

func newTestServer(t *testing.T, renderers ...render.Renderer) (*Server, *export.RenderStats) {
	t.Helper()
	stats := export.NewRenderStats(time.Hour)
	exp := export.NewExporter(discard, 2, stats, renderers...)
	s := NewServer(conversation.NewParser(nil), exp, stats, render.DefaultOptions(), discard, testConfig())
	s.now = func() time.Time { return fixedAt }
	return s, stats
}

func postJSON(t *testing.T, s *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func postUpload(t *testing.T, s *Server, path, filename string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(content)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func attachmentName(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	_, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	if err != nil {
		t.Fatalf("bad Content-Disposition %q: %v", rec.Header().Get("Content-Disposition"), err)
	}
	return params["filename"]
}

type failingRenderer struct{ format render.Format }

func (f failingRenderer) Format() render.Format { return f.format }

func (f failingRenderer) Render(*conversation.Conversation, render.Options) ([]byte, error) {
	return nil, errors.New("disk on fire")
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}
}

func TestFormats(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/formats", nil))

	var body struct {
		Formats          []formatInfo `json:"formats"`
		SourceExtensions []string     `json:"source_extensions"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Formats) != len(render.Formats) {
		t.Errorf("expected %d formats, got %d", len(render.Formats), len(body.Formats))
	}
	if !sort.StringsAreSorted(body.SourceExtensions) {
		t.Errorf("extensions not sorted: %v", body.SourceExtensions)
	}
	for _, want := range []string{".md", ".html", ".xlsx"} {
		if !slices.Contains(body.SourceExtensions, want) {
			t.Errorf("expected %s in %v", want, body.SourceExtensions)
		}
	}
}

func TestParse(t *testing.T) {
	s, _ := newTestServer(t)
	rec := postJSON(t, s, "/api/parse", parseRequest{Text: chat})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Strategy string `json:"strategy"`
		Turns    []struct {
			Index     int    `json:"index"`
			Role      string `json:"role"`
			Content   string `json:"content"`
			CharCount int    `json:"char_count"`
		} `json:"turns"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Strategy != "explicit_labels" {
		t.Errorf("unexpected strategy %q", body.Strategy)
	}
	if len(body.Turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(body.Turns))
	}
	if body.Turns[1].Role != "assistant" || body.Turns[1].Content != "Use for." || body.Turns[1].Index != 2 {
		t.Errorf("unexpected turn %+v", body.Turns[1])
	}
}

func TestParse_InvalidJSON(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/parse", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestParse_TooLarge(t *testing.T) {
	s, _ := newTestServer(t)
	rec := postJSON(t, s, "/api/parse", parseRequest{Text: strings.Repeat("a", 65<<10)})
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestExport_SingleFormat(t *testing.T) {
	s, stats := newTestServer(t)
	rec := postJSON(t, s, "/api/export", exportRequest{Text: chat, Title: "Loop help", Formats: []string{"pdf"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("unexpected content type %q", ct)
	}
	if name := attachmentName(t, rec); name != "Loop_help_20261019_093000.pdf" {
		t.Errorf("unexpected filename %q", name)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")) {
		t.Error("body is not a PDF")
	}
	if rec.Header().Get("X-Conversation-Turns") != "3" {
		t.Errorf("unexpected turn header %q", rec.Header().Get("X-Conversation-Turns"))
	}
	if stats.Snapshot()[render.FormatPDF].Count != 1 {
		t.Error("expected render latency to be recorded")
	}
}

func TestExport_NonASCIITitle(t *testing.T) {
	s, _ := newTestServer(t)
	rec := postJSON(t, s, "/api/export", exportRequest{Text: chat, Title: "AI对话记录", Formats: []string{"xlsx"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if name := attachmentName(t, rec); name != "AI对话记录_20261019_093000.xlsx" {
		t.Errorf("unexpected filename %q", name)
	}
}

func TestExport_MultipleFormatsBundled(t *testing.T) {
	s, _ := newTestServer(t)
	rec := postJSON(t, s, "/api/export", exportRequest{Text: chat, Formats: []string{"docx", "xlsx"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/zip" {
		t.Errorf("unexpected content type %q", ct)
	}
	if name := attachmentName(t, rec); name != "AI_Conversation_20261019_093000.zip" {
		t.Errorf("unexpected filename %q", name)
	}

	data := rec.Body.Bytes()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(zr.File))
	}
	if !strings.HasSuffix(zr.File[0].Name, ".docx") || !strings.HasSuffix(zr.File[1].Name, ".xlsx") {
		t.Errorf("unexpected entries %s, %s", zr.File[0].Name, zr.File[1].Name)
	}
}

func TestExport_DuplicateFormatIsSingleFile(t *testing.T) {
	s, _ := newTestServer(t)
	rec := postJSON(t, s, "/api/export", exportRequest{Text: chat, Formats: []string{"pdf", "PDF"}})
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("expected a single PDF, got %q", ct)
	}
}

func TestExport_PartialFailure(t *testing.T) {
	s, _ := newTestServer(t, render.PDF{}, failingRenderer{render.FormatDOCX})
	rec := postJSON(t, s, "/api/export", exportRequest{Text: chat, Formats: []string{"pdf", "docx"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-Export-Failed"); got != "docx" {
		t.Errorf("expected X-Export-Failed=docx, got %q", got)
	}
	data := rec.Body.Bytes()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	if len(zr.File) != 1 || !strings.HasSuffix(zr.File[0].Name, ".pdf") {
		t.Errorf("expected only the PDF in the bundle")
	}
}

func TestExport_AllFail(t *testing.T) {
	s, _ := newTestServer(t, failingRenderer{render.FormatPDF})
	rec := postJSON(t, s, "/api/export", exportRequest{Text: chat, Formats: []string{"pdf"}})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body struct {
		Error    string            `json:"error"`
		Failures map[string]string `json:"failures"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(body.Failures["pdf"], "disk on fire") {
		t.Errorf("expected failure detail, got %+v", body)
	}
}

func TestExport_BadRequests(t *testing.T) {
	s, _ := newTestServer(t)
	tests := []struct {
		name string
		req  exportRequest
	}{
		{"no formats", exportRequest{Text: chat}},
		{"unknown format", exportRequest{Text: chat, Formats: []string{"odt"}}},
		{"bad colour", exportRequest{Text: chat, Formats: []string{"pdf"}, UserColor: "red"}},
	}
	for _, tt := range tests {
		if rec := postJSON(t, s, "/api/export", tt.req); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tt.name, rec.Code)
		}
	}
}

func TestExport_EmptyTextStillRenders(t *testing.T) {
	s, _ := newTestServer(t)
	rec := postJSON(t, s, "/api/export", exportRequest{Text: "  ", Formats: []string{"docx"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Conversation-Strategy") != "empty" {
		t.Errorf("unexpected strategy %q", rec.Header().Get("X-Conversation-Strategy"))
	}
}

func TestExportUpload(t *testing.T) {
	s, _ := newTestServer(t)
	rec := postUpload(t, s, "/api/export/upload", "my chat.txt", []byte(chat), map[string]string{
		"formats":        "xlsx",
		"turn_numbering": "false",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if name := attachmentName(t, rec); name != "my_chat_20261019_093000.xlsx" {
		t.Errorf("expected title from filename, got %q", name)
	}
}

func TestExportUpload_Errors(t *testing.T) {
	s, _ := newTestServer(t)

	rec := postUpload(t, s, "/api/export/upload", "deck.pptx", []byte("x"), map[string]string{"formats": "pdf"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unsupported type: expected 400, got %d", rec.Code)
	}

	rec = postUpload(t, s, "/api/export/upload", "big.txt", bytes.Repeat([]byte("a"), 65<<10), map[string]string{"formats": "pdf"})
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized file: expected 413, got %d", rec.Code)
	}

	rec = postUpload(t, s, "/api/export/upload", "chat.txt", []byte(chat), map[string]string{"formats": "pdf", "turn_numbering": "maybe"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad boolean: expected 400, got %d", rec.Code)
	}

	rec = postUpload(t, s, "/api/export/upload", "broken.docx", []byte("not a docx"), map[string]string{"formats": "pdf"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("unreadable file: expected 422, got %d", rec.Code)
	}
}

func TestParseUpload_Markdown(t *testing.T) {
	s, _ := newTestServer(t)
	rec := postUpload(t, s, "/api/parse/upload", "../../etc/share.md", []byte("## User\n\nhi\n\n## Assistant\n\nhello\n"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Filename     string `json:"filename"`
		Conversation struct {
			Turns []struct {
				Role string `json:"role"`
			} `json:"turns"`
		} `json:"conversation"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Filename != "share.md" {
		t.Errorf("expected sanitized filename, got %q", body.Filename)
	}
	if len(body.Conversation.Turns) != 2 || body.Conversation.Turns[1].Role != "assistant" {
		t.Errorf("unexpected turns %+v", body.Conversation.Turns)
	}
}

func TestRenderStats(t *testing.T) {
	s, _ := newTestServer(t)
	postJSON(t, s, "/api/export", exportRequest{Text: chat, Formats: []string{"docx"}})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats/render", nil))
	var body struct {
		Window  string                          `json:"window"`
		Formats map[string]export.StatsSnapshot `json:"formats"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Window != "1h0m0s" {
		t.Errorf("unexpected window %q", body.Window)
	}
	if body.Formats["docx"].Count != 1 {
		t.Errorf("expected one docx sample, got %+v", body.Formats)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"chat.txt":             "chat.txt",
		"../../etc/passwd.txt": "passwd.txt",
		`C:\Users\me\log.md`:   "log.md",
		"":                     "unnamed",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
