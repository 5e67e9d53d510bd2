package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/textra-dev/textra/internal/common"
	"github.com/textra-dev/textra/internal/export"
	"github.com/textra-dev/textra/internal/extract"
	"github.com/textra-dev/textra/internal/format"
	"github.com/textra-dev/textra/internal/jobs"
	"github.com/textra-dev/textra/internal/kvstore"
	"github.com/textra-dev/textra/internal/ocr"
	"github.com/textra-dev/textra/internal/pdfdoc"
	"github.com/textra-dev/textra/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, err := kvstore.Open(ctx, cfg.Store.Path, logger)
	if err != nil {
		logger.Error("open kv store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := kv.Close(); cerr != nil {
			logger.Error("close kv store", "error", cerr)
		}
	}()

	runner := ocr.ExecRunner{Logger: logger}
	engine := ocr.NewEngine(ocr.Config{
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		TessdataDir:   cfg.OCR.TessdataDir,
	}, runner, logger)
	// the engine is released exactly once, at daemon shutdown
	defer engine.Close()

	rasterizer := pdfdoc.NewRasterizer(cfg.OCR.Pdftoppm, runner, logger)
	pipeline := extract.NewPipeline(extract.PDFOpener{Rasterizer: rasterizer}, engine, logger)
	dispatcher := format.NewDispatcher(&http.Client{}, logger)

	store := jobs.NewStore()
	hub := server.NewHub(logger)
	hub.Start()

	uploadsDir := filepath.Join(cfg.OCR.ArtifactCacheDir, "uploads")
	svc := server.NewService(store, pipeline, dispatcher, hub, uploadsDir, logger)
	exporter := export.NewService(store, logger)

	router := server.SetupRouter(
		server.NewDocumentHandler(svc, store, logger),
		server.NewFormatHandler(svc),
		server.NewSettingsHandler(kv),
		server.NewExportHandler(exporter),
		server.NewWSHandler(hub, logger),
		cfg.Server.MaxUploadBytes,
	)

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: router}

	go func() {
		logger.Info("http.serving", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http.serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http.shutdown", "error", err)
	}
}
