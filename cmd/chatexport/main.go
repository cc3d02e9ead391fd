package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dgallion1/chatexport/internal/config"
	"github.com/dgallion1/chatexport/internal/source"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	verbose bool
	markers string
}

func newRootCmd() *cobra.Command {
	ro := &rootOptions{}
	root := &cobra.Command{
		Use:          "chatexport",
		Short:        "Turn copy-pasted AI chat transcripts into PDF, Word and Excel documents",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&ro.verbose, "verbose", "v", false, "Log progress to stderr")
	root.PersistentFlags().StringVar(&ro.markers, "markers", "", "YAML file with extra speaker markers (overrides MARKERS_FILE)")

	root.AddCommand(newParseCmd(ro), newConvertCmd(ro))
	return root
}

// setup loads and validates environment configuration after applying root
// flag overrides.
func (ro *rootOptions) setup(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	level := slog.LevelWarn
	if ro.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	cfg := config.Load()
	if ro.markers != "" {
		cfg.MarkersFile = ro.markers
	}
	if err := cfg.Validate(); err != nil {
		return cfg, log, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, log, nil
}

// readInput reads the conversation text from a file argument, or stdin
// when the argument is absent or "-".
func readInput(cmd *cobra.Command, args []string, cfg config.Config) (*source.Document, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), cfg.MaxInputBytes+1))
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		if int64(len(b)) > cfg.MaxInputBytes {
			return nil, fmt.Errorf("input exceeds max size (%d bytes)", cfg.MaxInputBytes)
		}
		return &source.Document{Text: string(b)}, nil
	}

	path := args[0]
	if !source.IsSupportedExtension(path) {
		return nil, fmt.Errorf("%s: %w", path, source.ErrUnsupportedFile)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > cfg.MaxUploadBytes {
		return nil, fmt.Errorf("%s exceeds max size (%d bytes)", path, cfg.MaxUploadBytes)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := source.Extract(f, path, source.Options{PdftotextFallback: cfg.PDFFallbackPdftotext})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return doc, nil
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
