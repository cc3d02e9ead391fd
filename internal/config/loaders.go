package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dgallion1/chatexport/internal/conversation"
	"github.com/dgallion1/chatexport/internal/render"
)

// LoadParser builds the conversation parser, merging markers from
// MARKERS_FILE over the built-in set.
func (c Config) LoadParser() (*conversation.Parser, error) {
	markers := conversation.DefaultMarkerSet()
	if c.MarkersFile == "" {
		return conversation.NewParser(markers), nil
	}

	f, err := os.Open(c.MarkersFile)
	if err != nil {
		return nil, fmt.Errorf("open markers file: %w", err)
	}
	defer f.Close()

	extra, err := conversation.LoadMarkers(f)
	if err != nil {
		return nil, fmt.Errorf("load markers file %s: %w", c.MarkersFile, err)
	}
	return conversation.NewParser(markers.With(extra...)), nil
}

// fontSearchPaths is the candidate list for PDF_FONT_SEARCH.
var fontSearchPaths = render.SystemFontPaths

// LoadRenderOptions returns RenderOptions with the PDF font read from
// PDF_FONT_PATH, or from the first system font found when the path is unset
// and PDF_FONT_SEARCH is on.
func (c Config) LoadRenderOptions(log *slog.Logger) (render.Options, error) {
	opts := c.RenderOptions()
	path := c.PDFFontPath
	if path == "" {
		if !c.PDFFontSearch {
			return opts, nil
		}
		found, ok := render.FindFont(fontSearchPaths)
		if !ok {
			log.Warn("no unicode font found, pdf text limited to latin-1")
			return opts, nil
		}
		path = found
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("read pdf font: %w", err)
	}
	log.Info("pdf font", "path", path)
	opts.FontBytes = b
	return opts, nil
}
