// Package export fans one conversation out to the requested document formats.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/dgallion1/chatexport/internal/conversation"
	"github.com/dgallion1/chatexport/internal/render"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of rendering one format.
type Result struct {
	Format   render.Format
	Filename string
	Data     []byte
	Err      error
	Duration time.Duration
}

// OK reports whether the format rendered successfully.
func (r Result) OK() bool { return r.Err == nil }

// Exporter runs renderers concurrently with a bound on in-flight renders.
type Exporter struct {
	renderers map[render.Format]render.Renderer
	limit     int
	stats     *RenderStats
	log       *slog.Logger
}

// NewExporter builds an exporter over the given renderers, or over every
// built-in renderer when none are passed. stats may be nil.
func NewExporter(log *slog.Logger, maxConcurrent int, stats *RenderStats, renderers ...render.Renderer) *Exporter {
	if len(renderers) == 0 {
		renderers = render.All()
	}
	if maxConcurrent <= 0 {
		maxConcurrent = len(renderers)
	}
	if log == nil {
		log = slog.Default()
	}
	byFormat := make(map[render.Format]render.Renderer, len(renderers))
	for _, r := range renderers {
		byFormat[r.Format()] = r
	}
	return &Exporter{
		renderers: byFormat,
		limit:     maxConcurrent,
		stats:     stats,
		log:       log,
	}
}

// Export renders conv once per distinct requested format. Results follow the
// order of first appearance in formats; a failure in one format is reported
// in its Result and never affects the others.
func (e *Exporter) Export(ctx context.Context, conv *conversation.Conversation, formats []render.Format, opts render.Options) []Result {
	formats = dedupe(formats)
	results := make([]Result, len(formats))
	log := e.log.With("turns", conv.Len(), "strategy", conv.Strategy())

	var g errgroup.Group
	g.SetLimit(e.limit)
	for i, f := range formats {
		results[i] = Result{Format: f, Filename: Filename(opts.Title, f, opts.GeneratedAt)}
		r, ok := e.renderers[f]
		if !ok {
			results[i].Err = fmt.Errorf("%w: %q", render.ErrUnsupportedFormat, string(f))
			continue
		}
		i, f := i, f
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			start := time.Now()
			data, err := renderSafely(r, conv, opts)
			results[i].Duration = time.Since(start)
			if err != nil {
				results[i].Err = fmt.Errorf("render %s: %w", f, err)
				log.Error("render failed", "format", f, "error", err)
				return nil
			}
			results[i].Data = data
			if e.stats != nil {
				e.stats.Record(f, results[i].Duration)
			}
			log.Info("rendered", "format", f, "bytes", len(data), "duration_ms", results[i].Duration.Milliseconds())
			return nil
		})
	}
	g.Wait()
	return results
}

// renderSafely converts a renderer panic into an error.
func renderSafely(r render.Renderer, conv *conversation.Conversation, opts render.Options) (data []byte, err error) {
	defer func() {
		if p := recover(); p != nil {
			data, err = nil, fmt.Errorf("renderer panicked: %v", p)
		}
	}()
	return r.Render(conv, opts)
}

func dedupe(formats []render.Format) []render.Format {
	seen := make(map[render.Format]bool, len(formats))
	out := make([]render.Format, 0, len(formats))
	for _, f := range formats {
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// Filename builds "<title>_<yyyymmdd_hhmmss>.<ext>". The timestamp part is
// omitted when at is zero.
func Filename(title string, f render.Format, at time.Time) string {
	name := safeName(title)
	if name == "" {
		name = safeName(render.DefaultTitle)
	}
	if !at.IsZero() {
		name += "_" + at.Format("20060102_150405")
	}
	return name + f.Extension()
}

func safeName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r), unicode.IsControl(r):
			return '_'
		case unicode.IsSpace(r):
			return ' '
		}
		return r
	}, strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), "_")
	return strings.Trim(s, "._")
}
