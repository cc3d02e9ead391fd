package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgallion1/chatexport/internal/export"
	"github.com/dgallion1/chatexport/internal/render"
	"github.com/spf13/cobra"
)

type convertOptions struct {
	formats        []string
	outDir         string
	title          string
	noNumbering    bool
	noStatistics   bool
	userColor      string
	assistantColor string
	fontPath       string
	bundle         bool
}

func newConvertCmd(ro *rootOptions) *cobra.Command {
	co := &convertOptions{}
	cmd := &cobra.Command{
		Use:   "convert [file|-]",
		Short: "Render a transcript to one or more document formats",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := ro.setup(cmd)
			if err != nil {
				return err
			}
			if co.fontPath != "" {
				cfg.PDFFontPath = co.fontPath
			}

			var formats []render.Format
			for _, name := range splitList(co.formats) {
				f, err := render.ParseFormat(name)
				if err != nil {
					return err
				}
				formats = append(formats, f)
			}
			if len(formats) == 0 {
				return errors.New("at least one --format is required")
			}

			parser, err := cfg.LoadParser()
			if err != nil {
				return err
			}
			opts, err := cfg.LoadRenderOptions(log)
			if err != nil {
				return err
			}
			doc, err := readInput(cmd, args, cfg)
			if err != nil {
				return err
			}

			opts.GeneratedAt = time.Now()
			switch {
			case co.title != "":
				opts.Title = co.title
			case doc.Title != "":
				opts.Title = doc.Title
			}
			if co.noNumbering {
				opts.TurnNumbering = false
			}
			if co.noStatistics {
				opts.IncludeStatistics = false
			}
			for _, c := range []struct {
				flag, value string
				dst         *string
			}{
				{"--user-color", co.userColor, &opts.Colors.User},
				{"--assistant-color", co.assistantColor, &opts.Colors.Assistant},
			} {
				if c.value == "" {
					continue
				}
				if !render.ValidColor(c.value) {
					return fmt.Errorf("%s must be a hex colour like #2563EB", c.flag)
				}
				*c.dst = c.value
			}

			conv := parser.Parse(doc.Text)
			log.Info("parsed", "turns", conv.Len(), "strategy", conv.Strategy())

			exporter := export.NewExporter(log, cfg.MaxConcurrentRenders, nil)
			results := exporter.Export(cmd.Context(), conv, formats, opts)
			return writeResults(cmd, co, opts, results)
		},
	}

	f := cmd.Flags()
	f.StringSliceVarP(&co.formats, "format", "f", []string{"pdf"}, "Output formats: pdf, docx, xlsx (repeat or comma-separate)")
	f.StringVarP(&co.outDir, "out", "o", ".", "Output directory")
	f.StringVarP(&co.title, "title", "t", "", "Document title (default: file name, then DEFAULT_TITLE)")
	f.BoolVar(&co.noNumbering, "no-numbering", false, "Omit turn numbers from headings")
	f.BoolVar(&co.noStatistics, "no-stats", false, "Omit the spreadsheet summary block")
	f.StringVar(&co.userColor, "user-color", "", "User accent colour (hex)")
	f.StringVar(&co.assistantColor, "assistant-color", "", "Assistant accent colour (hex)")
	f.StringVar(&co.fontPath, "font", "", "TrueType font for PDF output (overrides PDF_FONT_PATH)")
	f.BoolVar(&co.bundle, "zip", false, "Write all formats into one zip archive")
	return cmd
}

func writeResults(cmd *cobra.Command, co *convertOptions, opts render.Options, results []export.Result) error {
	if err := os.MkdirAll(co.outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	var failed []error
	var ok []export.Result
	for _, r := range results {
		if r.OK() {
			ok = append(ok, r)
		} else {
			failed = append(failed, r.Err)
		}
	}

	write := func(name string, data []byte) error {
		path := filepath.Join(co.outDir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	}

	if co.bundle && len(ok) > 0 {
		data, err := export.Bundle(ok, opts.GeneratedAt)
		if err != nil {
			return err
		}
		if err := write(export.BundleName(opts.Title, opts.GeneratedAt), data); err != nil {
			return err
		}
	} else {
		for _, r := range ok {
			if err := write(r.Filename, r.Data); err != nil {
				return err
			}
		}
	}

	return errors.Join(failed...)
}
