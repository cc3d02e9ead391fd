package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/chatexport/internal/api"
	"github.com/dgallion1/chatexport/internal/config"
	"github.com/dgallion1/chatexport/internal/export"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	parser, err := cfg.LoadParser()
	if err != nil {
		log.Error("load markers", "error", err)
		os.Exit(1)
	}
	defaults, err := cfg.LoadRenderOptions(log)
	if err != nil {
		log.Error("load render options", "error", err)
		os.Exit(1)
	}

	stats := export.NewRenderStats(cfg.StatsWindow)
	exporter := export.NewExporter(log, cfg.MaxConcurrentRenders, stats)

	srv := api.NewServer(parser, exporter, stats, defaults, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting chatexport",
		"port", cfg.Port,
		"max_concurrent_renders", cfg.MaxConcurrentRenders,
		"pdf_font", cfg.PDFFontPath != "",
		"markers_file", cfg.MarkersFile,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
