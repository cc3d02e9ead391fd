package api

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/dgallion1/chatexport/internal/export"
	"github.com/dgallion1/chatexport/internal/render"
)

type exportRequest struct {
	Text              string   `json:"text"`
	Title             string   `json:"title"`
	Formats           []string `json:"formats"`
	IncludeStatistics *bool    `json:"include_statistics,omitempty"`
	TurnNumbering     *bool    `json:"turn_numbering,omitempty"`
	UserColor         string   `json:"user_color,omitempty"`
	AssistantColor    string   `json:"assistant_color,omitempty"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	s.export(w, r, req)
}

func (s *Server) handleExportUpload(w http.ResponseWriter, r *http.Request) {
	up, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	req := exportRequest{
		Text:           up.doc.Text,
		Title:          r.FormValue("title"),
		UserColor:      r.FormValue("user_color"),
		AssistantColor: r.FormValue("assistant_color"),
	}
	if req.Title == "" {
		req.Title = up.doc.Title
	}
	for _, v := range r.MultipartForm.Value["formats"] {
		req.Formats = append(req.Formats, strings.Split(v, ",")...)
	}
	var err error
	if req.IncludeStatistics, err = formBool(r, "include_statistics"); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.TurnNumbering, err = formBool(r, "turn_numbering"); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.export(w, r, req)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request, req exportRequest) {
	formats, opts, err := s.exportOptions(req)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	conv := s.parser.Parse(req.Text)
	results := s.exporter.Export(r.Context(), conv, formats, opts)

	var (
		succeeded []export.Result
		failed    []string
		failures  = make(map[render.Format]string)
	)
	for _, res := range results {
		if res.OK() {
			succeeded = append(succeeded, res)
			continue
		}
		failed = append(failed, string(res.Format))
		failures[res.Format] = res.Err.Error()
	}

	if len(succeeded) == 0 {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":    "all formats failed",
			"failures": failures,
		})
		return
	}
	if len(failed) > 0 {
		w.Header().Set("X-Export-Failed", strings.Join(failed, ","))
	}
	w.Header().Set("X-Conversation-Strategy", string(conv.Strategy()))
	w.Header().Set("X-Conversation-Turns", strconv.Itoa(conv.Len()))

	if len(results) == 1 {
		res := succeeded[0]
		writeFile(w, res.Filename, res.Format.MIMEType(), res.Data)
		return
	}

	bundle, err := export.Bundle(succeeded, opts.GeneratedAt)
	if err != nil {
		s.log.Error("bundle failed", "error", err)
		jsonError(w, "failed to bundle exports", http.StatusInternalServerError)
		return
	}
	writeFile(w, export.BundleName(opts.Title, opts.GeneratedAt), "application/zip", bundle)
}

// exportOptions merges the request over the server's rendering defaults.
func (s *Server) exportOptions(req exportRequest) ([]render.Format, render.Options, error) {
	var formats []render.Format
	for _, name := range req.Formats {
		if strings.TrimSpace(name) == "" {
			continue
		}
		f, err := render.ParseFormat(name)
		if err != nil {
			return nil, render.Options{}, err
		}
		formats = append(formats, f)
	}
	if len(formats) == 0 {
		return nil, render.Options{}, errors.New("at least one format is required")
	}

	opts := s.defaults
	opts.GeneratedAt = s.now()
	if t := strings.TrimSpace(req.Title); t != "" {
		opts.Title = t
	}
	if req.IncludeStatistics != nil {
		opts.IncludeStatistics = *req.IncludeStatistics
	}
	if req.TurnNumbering != nil {
		opts.TurnNumbering = *req.TurnNumbering
	}
	for _, c := range []struct {
		name, value string
		dst         *string
	}{
		{"user_color", req.UserColor, &opts.Colors.User},
		{"assistant_color", req.AssistantColor, &opts.Colors.Assistant},
	} {
		if c.value == "" {
			continue
		}
		if !render.ValidColor(c.value) {
			return nil, render.Options{}, fmt.Errorf("%s must be a hex colour like #2563EB", c.name)
		}
		*c.dst = c.value
	}
	return formats, opts, nil
}

func formBool(r *http.Request, key string) (*bool, error) {
	v := r.FormValue(key)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("%s must be true or false", key)
	}
	return &b, nil
}

func writeFile(w http.ResponseWriter, filename, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

