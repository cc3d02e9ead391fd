package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dgallion1/chatexport/internal/config"
	"github.com/dgallion1/chatexport/internal/conversation"
	"github.com/dgallion1/chatexport/internal/export"
	"github.com/dgallion1/chatexport/internal/render"
	"github.com/dgallion1/chatexport/internal/source"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for chatexport.
type Server struct {
	router   chi.Router
	parser   *conversation.Parser
	exporter *export.Exporter
	stats    *export.RenderStats
	defaults render.Options
	log      *slog.Logger
	cfg      config.Config
	now      func() time.Time
}

// NewServer creates and configures the HTTP server. defaults holds the
// rendering options requests start from, including any loaded font.
func NewServer(p *conversation.Parser, exp *export.Exporter, stats *export.RenderStats, defaults render.Options, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		parser:   p,
		exporter: exp,
		stats:    stats,
		defaults: defaults,
		log:      log,
		cfg:      cfg,
		now:      time.Now,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/formats", s.handleFormats)

		r.Post("/parse", s.handleParse)
		r.Post("/parse/upload", s.handleParseUpload)

		r.Post("/export", s.handleExport)
		r.Post("/export/upload", s.handleExportUpload)

		r.Get("/stats/render", s.handleRenderStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type formatInfo struct {
	Format    render.Format `json:"format"`
	Extension string        `json:"extension"`
	MIMEType  string        `json:"mime_type"`
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	out := make([]formatInfo, 0, len(render.Formats))
	for _, f := range render.Formats {
		out = append(out, formatInfo{Format: f, Extension: f.Extension(), MIMEType: f.MIMEType()})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"formats":           out,
		"source_extensions": source.Extensions(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
