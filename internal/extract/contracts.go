package extract

import (
	"context"
	"time"

	"github.com/textra-dev/textra/constants"
)

// ProgressFunc receives percentages in [0,100], non-decreasing within one
// operation. Alias so the engine's callbacks can be forwarded verbatim.
type ProgressFunc = func(percent float64)

// Recognizer is the text-recognition capability the pipeline depends on.
// Init is idempotent and collapses concurrent callers into one flight.
type Recognizer interface {
	Init(ctx context.Context) error
	Recognize(ctx context.Context, image []byte, onProgress ProgressFunc) (string, error)
}

// Document is a parsed, paged document.
type Document interface {
	PageCount() int
	Page(i int) Page
	Close() error
}

// Page is one page of a Document.
type Page interface {
	// NativeText returns the embedded text layer, "" when there is none.
	NativeText() (string, error)
	// RenderImage rasterizes the page at the given scale into PNG bytes.
	RenderImage(ctx context.Context, scale float64) ([]byte, error)
}

// DocumentOpener parses a file on disk into a Document.
type DocumentOpener interface {
	Open(path string) (Document, error)
}

// PageResult is the transient per-page outcome on the PDF path. Pages are
// folded into Result.Text in index order and never persisted individually.
type PageResult struct {
	Index        int
	Text         string
	UsedFallback bool
}

// Result is the terminal outcome of one extraction.
type Result struct {
	Text          string
	Format        constants.FileFormat
	Method        string // "pdf-text" | "pdf-ocr" | "pdf-mixed" | "image-ocr" | "plain-read"
	Pages         int
	FallbackPages int
	Duration      time.Duration
	Warnings      []string
}
