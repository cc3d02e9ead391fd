package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/chatexport/internal/source"
)

type upload struct {
	filename string
	doc      *source.Document
}

// readUpload parses the multipart "file" field and extracts its text. It
// writes the error response itself when it fails.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*upload, bool) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		if isTooLarge(err) {
			jsonError(w, fmt.Sprintf("upload exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return nil, false
		}
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !source.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return nil, false
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return nil, false
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return nil, false
	}

	doc, err := source.Extract(bytes.NewReader(data), filename, source.Options{
		PdftotextFallback: s.cfg.PDFFallbackPdftotext,
	})
	if err != nil {
		s.log.Warn("extract upload failed", "filename", filename, "error", err)
		jsonError(w, "could not read file: "+err.Error(), http.StatusUnprocessableEntity)
		return nil, false
	}
	if int64(len(doc.Text)) > s.cfg.MaxInputBytes {
		jsonError(w, fmt.Sprintf("extracted text exceeds max size (%d bytes)", s.cfg.MaxInputBytes), http.StatusRequestEntityTooLarge)
		return nil, false
	}

	return &upload{filename: filename, doc: doc}, true
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
