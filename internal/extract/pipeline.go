package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/textra-dev/textra/constants"
	"github.com/textra-dev/textra/internal/common"
)

const (
	// nativeTextThreshold separates a real text layer from the stray
	// artifacts a scanned page tends to carry.
	nativeTextThreshold = 20

	// fallbackScale is the rasterization scale for recognition fallback.
	fallbackScale = 2.0

	// pageSeparator joins accepted page texts.
	pageSeparator = "\n\n"
)

// Pipeline turns a submitted file into normalized text. It dispatches on the
// declared MIME type and extension, runs one of three strategies, and reports
// fractional progress through the caller-supplied callback.
type Pipeline struct {
	opener DocumentOpener
	engine Recognizer
	logger *slog.Logger
}

func NewPipeline(opener DocumentOpener, engine Recognizer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{opener: opener, engine: engine, logger: logger}
}

// Extract classifies the file at path by its declared MIME type and
// extension, then runs the matching strategy. All failures come back as
// classified errors; onProgress may be nil.
func (p *Pipeline) Extract(ctx context.Context, path, declaredMime string, onProgress ProgressFunc) (Result, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))

	format, ok := constants.DetectFormat(declaredMime, ext)
	if !ok {
		return Result{}, common.Errorf(common.CodeUnsupportedType,
			"unsupported file type %q (extension %q)", declaredMime, ext)
	}

	p.logger.Debug("extract.start", "path", path, "mime", declaredMime, "ext", ext, "format", string(format))

	var (
		res Result
		err error
	)
	switch format {
	case constants.PDF:
		res, err = p.extractPDF(ctx, path, onProgress)
	case constants.IMAGE:
		res, err = p.extractImage(ctx, path, onProgress)
	case constants.TEXT:
		res, err = p.extractPlain(path)
	}
	res.Format = format
	res.Duration = time.Since(start)
	if err != nil {
		p.logger.Error("extract.failed", "path", path, "format", string(format), "error", err)
		return res, err
	}
	p.logger.Info("extract.ok",
		"path", path,
		"format", string(format),
		"method", res.Method,
		"pages", res.Pages,
		"fallback_pages", res.FallbackPages,
		"chars", len(res.Text),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// extractPDF walks the document page by page: native text layer when it is
// substantial, rasterize-and-recognize otherwise. A page that fails to
// render or recognize contributes empty text; it never aborts the document.
func (p *Pipeline) extractPDF(ctx context.Context, path string, onProgress ProgressFunc) (Result, error) {
	report := progressReporter(onProgress)

	doc, err := p.opener.Open(path)
	if err != nil {
		return Result{}, common.NewAppError(common.CodeDecodeError, "parse pdf", err)
	}
	defer func() {
		if cerr := doc.Close(); cerr != nil {
			p.logger.Warn("extract.pdf.close", "path", path, "error", cerr)
		}
	}()

	total := doc.PageCount()
	report(0)

	var (
		pages    = make([]PageResult, 0, total)
		warnings []string
	)
	for i := 0; i < total; i++ {
		pr, warns := p.extractPage(ctx, doc.Page(i), i)
		pages = append(pages, pr)
		warnings = append(warnings, warns...)
		// progress is per completed page, not interpolated
		report(float64(i+1) / float64(total) * 100)
	}

	var (
		accepted []string
		fallback int
	)
	for _, pr := range pages {
		if pr.Text == "" {
			continue
		}
		accepted = append(accepted, pr.Text)
		if pr.UsedFallback {
			fallback++
		}
	}
	if len(accepted) == 0 {
		return Result{Pages: total, Warnings: warnings},
			common.Errorf(common.CodeNoTextFound, "no text found in any of %d pages", total)
	}

	method := "pdf-text"
	switch {
	case fallback == len(accepted):
		method = "pdf-ocr"
	case fallback > 0:
		method = "pdf-mixed"
	}

	return Result{
		Text:          strings.Join(accepted, pageSeparator),
		Method:        method,
		Pages:         total,
		FallbackPages: fallback,
		Warnings:      warnings,
	}, nil
}

// extractPage resolves one page. Errors are absorbed into warnings; the page
// contributes empty text instead of failing the document.
func (p *Pipeline) extractPage(ctx context.Context, page Page, index int) (PageResult, []string) {
	var warnings []string

	native, err := page.NativeText()
	if err != nil {
		warnings = append(warnings, err.Error())
		p.logger.Warn("extract.pdf.native_text", "page", index+1, "error", err)
	}
	if len(native) > nativeTextThreshold {
		return PageResult{Index: index, Text: native}, warnings
	}

	img, err := page.RenderImage(ctx, fallbackScale)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("page %d: render: %v", index+1, err))
		p.logger.Warn("extract.pdf.render", "page", index+1, "error", err)
		return PageResult{Index: index}, warnings
	}

	txt, err := p.engine.Recognize(ctx, img, nil)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("page %d: recognize: %v", index+1, err))
		p.logger.Warn("extract.pdf.recognize", "page", index+1, "error", err)
		return PageResult{Index: index}, warnings
	}
	if txt = strings.TrimSpace(txt); txt != "" {
		return PageResult{Index: index, Text: txt, UsedFallback: true}, warnings
	}
	return PageResult{Index: index}, warnings
}

// extractImage runs recognition over the raw image bytes. Engine progress is
// forwarded to the caller verbatim.
func (p *Pipeline) extractImage(ctx context.Context, path string, onProgress ProgressFunc) (Result, error) {
	if err := p.engine.Init(ctx); err != nil {
		return Result{}, err
	}

	img, err := os.ReadFile(path)
	if err != nil {
		return Result{}, common.NewAppError(common.CodeDecodeError, "read image", err)
	}

	txt, err := p.engine.Recognize(ctx, img, onProgress)
	if err != nil {
		// the engine classifies its own setup failures; anything else means
		// this particular image could not be processed
		if common.CodeOf(err) != "" {
			return Result{}, err
		}
		return Result{}, common.NewAppError(common.CodeDecodeError, "recognize image", err)
	}
	if strings.TrimSpace(txt) == "" {
		return Result{Pages: 1}, common.Errorf(common.CodeNoTextFound, "recognition produced no text")
	}
	return Result{Text: txt, Method: "image-ocr", Pages: 1}, nil
}

// extractPlain reads the file verbatim as UTF-8.
func (p *Pipeline) extractPlain(path string) (Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Result{}, common.NewAppError(common.CodeDecodeError, "read file", err)
	}
	if !utf8.Valid(raw) {
		return Result{}, common.Errorf(common.CodeDecodeError, "file is not valid UTF-8")
	}
	return Result{Text: string(raw), Method: "plain-read", Pages: 1}, nil
}

func progressReporter(onProgress ProgressFunc) ProgressFunc {
	if onProgress == nil {
		return func(float64) {}
	}
	return onProgress
}
