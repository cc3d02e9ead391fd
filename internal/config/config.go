package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/chatexport/internal/render"
)

type Config struct {
	Port string

	// Request limits
	MaxInputBytes  int64
	MaxUploadBytes int64

	// Export fan-out
	MaxConcurrentRenders int
	StatsWindow          time.Duration

	// Rendering defaults, overridable per request
	DefaultTitle      string
	UserColor         string
	AssistantColor    string
	TurnNumbering     bool
	IncludeStatistics bool

	// Fonts. With no PDFFontPath, PDFFontSearch looks for a system font.
	PDFFontPath   string
	PDFFontSearch bool
	DocumentFont  string

	// Extra speaker markers (YAML)
	MarkersFile string

	// PDF uploads
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		MaxInputBytes:  envInt64("MAX_INPUT_BYTES", 5<<20),   // 5MB
		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 20<<20), // 20MB

		MaxConcurrentRenders: envInt("MAX_CONCURRENT_RENDERS", 3),
		StatsWindow:          envDuration("STATS_WINDOW", 1*time.Hour),

		DefaultTitle:      envOr("DEFAULT_TITLE", render.DefaultTitle),
		UserColor:         envOr("USER_COLOR", "#"+render.DefaultUserColor),
		AssistantColor:    envOr("ASSISTANT_COLOR", "#"+render.DefaultAssistantColor),
		TurnNumbering:     envBool("TURN_NUMBERING", true),
		IncludeStatistics: envBool("INCLUDE_STATISTICS", true),

		PDFFontPath:   os.Getenv("PDF_FONT_PATH"),
		PDFFontSearch: envBool("PDF_FONT_SEARCH", true),
		DocumentFont:  os.Getenv("DOCUMENT_FONT"),

		MarkersFile: os.Getenv("MARKERS_FILE"),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.MaxInputBytes <= 0 {
		cfg.MaxInputBytes = 5 << 20
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20 << 20
	}
	if cfg.MaxConcurrentRenders <= 0 {
		cfg.MaxConcurrentRenders = 3
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if n, err := strconv.Atoi(c.Port); err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("PORT must be a TCP port number, got %q", c.Port)
	}
	if !render.ValidColor(c.UserColor) {
		return fmt.Errorf("USER_COLOR must be a hex colour like #2563EB, got %q", c.UserColor)
	}
	if !render.ValidColor(c.AssistantColor) {
		return fmt.Errorf("ASSISTANT_COLOR must be a hex colour like #16A34A, got %q", c.AssistantColor)
	}
	for key, path := range map[string]string{"PDF_FONT_PATH": c.PDFFontPath, "MARKERS_FILE": c.MarkersFile} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

// RenderOptions returns the per-request rendering defaults. Font bytes are
// loaded by the caller.
func (c Config) RenderOptions() render.Options {
	return render.Options{
		Title:             strings.TrimSpace(c.DefaultTitle),
		IncludeStatistics: c.IncludeStatistics,
		TurnNumbering:     c.TurnNumbering,
		Colors: render.RoleColors{
			User:      c.UserColor,
			Assistant: c.AssistantColor,
		},
		FontName: c.DocumentFont,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
