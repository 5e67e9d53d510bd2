// Package pdfdoc exposes a paged view over a PDF file: the native text layer
// per page plus on-demand rasterization for recognition fallback.
package pdfdoc

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Document is an open PDF. Close releases the underlying file handle.
type Document struct {
	path       string
	file       *os.File
	reader     *pdf.Reader
	rasterizer *Rasterizer
}

// Open parses the PDF at path. The rasterizer may be nil when the caller
// never renders pages (native-text-only use).
func Open(path string, rasterizer *Rasterizer) (*Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &Document{path: path, file: f, reader: r, rasterizer: rasterizer}, nil
}

func (d *Document) PageCount() int {
	return d.reader.NumPage()
}

// Page returns the zero-based i-th page.
func (d *Document) Page(i int) Page {
	return Page{doc: d, index: i}
}

func (d *Document) Close() error {
	return d.file.Close()
}

// Page is a handle to one page of an open Document.
type Page struct {
	doc   *Document
	index int // zero-based
}

// NativeText returns the page's embedded text layer: content-stream text
// fragments joined with single spaces. A page without a text layer returns
// an empty string, not an error.
func (p Page) NativeText() (text string, err error) {
	// The pdf package panics on some malformed content streams; contain
	// that to the page so the document-level fold can continue.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("page %d: text layer: %v", p.index+1, r)
		}
	}()

	page := p.doc.reader.Page(p.index + 1)
	if page.V.IsNull() {
		return "", nil
	}
	content := page.Content()
	frags := make([]string, 0, len(content.Text))
	for _, t := range content.Text {
		if t.S != "" {
			frags = append(frags, t.S)
		}
	}
	return strings.Join(frags, " "), nil
}

// RenderImage rasterizes the page at the given scale (1.0 = 72 DPI) and
// returns PNG bytes.
func (p Page) RenderImage(ctx context.Context, scale float64) ([]byte, error) {
	if p.doc.rasterizer == nil {
		return nil, fmt.Errorf("page %d: no rasterizer configured", p.index+1)
	}
	return p.doc.rasterizer.RenderPage(ctx, p.doc.path, p.index+1, scale)
}
