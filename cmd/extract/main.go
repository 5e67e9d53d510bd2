// One-shot extraction: file in, text out. Progress goes to stderr.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/textra-dev/textra/internal/common"
	"github.com/textra-dev/textra/internal/extract"
	"github.com/textra-dev/textra/internal/ocr"
	"github.com/textra-dev/textra/internal/pdfdoc"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: extract <file>")
		os.Exit(2)
	}
	path := os.Args[1]

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	runner := ocr.ExecRunner{Logger: logger}
	engine := ocr.NewEngine(ocr.Config{
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		TessdataDir:   cfg.OCR.TessdataDir,
	}, runner, logger)
	defer engine.Close()

	rasterizer := pdfdoc.NewRasterizer(cfg.OCR.Pdftoppm, runner, logger)
	pipeline := extract.NewPipeline(extract.PDFOpener{Rasterizer: rasterizer}, engine, logger)

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	res, err := pipeline.Extract(ctx, path, mimeType, func(percent float64) {
		fmt.Fprintf(os.Stderr, "\rprogress: %3.0f%%", percent)
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "extract failed (%s): %v\n", common.CodeOf(err), err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "method=%s pages=%d fallback_pages=%d elapsed=%s\n",
		res.Method, res.Pages, res.FallbackPages, res.Duration.Round(time.Millisecond))
	fmt.Print(res.Text)
}
