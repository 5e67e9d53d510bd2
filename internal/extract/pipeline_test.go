package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textra-dev/textra/internal/common"
)

// fakePage scripts one page's native text and recognition outcome.
type fakePage struct {
	native    string
	nativeErr error
	renderErr error
	ocrText   string // what the engine returns for this page's image
}

func (p *fakePage) NativeText() (string, error) {
	return p.native, p.nativeErr
}

func (p *fakePage) RenderImage(_ context.Context, scale float64) ([]byte, error) {
	if p.renderErr != nil {
		return nil, p.renderErr
	}
	// smuggle the scripted OCR text through as the "image"
	return []byte(fmt.Sprintf("%.1f|%s", scale, p.ocrText)), nil
}

type fakeDoc struct {
	pages  []*fakePage
	closed bool
}

func (d *fakeDoc) PageCount() int  { return len(d.pages) }
func (d *fakeDoc) Page(i int) Page { return d.pages[i] }
func (d *fakeDoc) Close() error    { d.closed = true; return nil }

type fakeOpener struct {
	doc *fakeDoc
	err error
}

func (o fakeOpener) Open(string) (Document, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.doc, nil
}

type fakeEngine struct {
	initErr      error
	initCalls    int
	recognizeErr error
	recognized   [][]byte
}

func (e *fakeEngine) Init(context.Context) error {
	e.initCalls++
	return e.initErr
}

func (e *fakeEngine) Recognize(_ context.Context, image []byte, onProgress ProgressFunc) (string, error) {
	if e.recognizeErr != nil {
		return "", e.recognizeErr
	}
	e.recognized = append(e.recognized, image)
	if onProgress != nil {
		onProgress(0)
		onProgress(100)
	}
	// unwrap what fakePage smuggled through
	if idx := strings.IndexByte(string(image), '|'); idx >= 0 {
		return string(image)[idx+1:], nil
	}
	return string(image), nil
}

func pdfPath(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(p, []byte("%PDF-1.4"), 0o644))
	return p
}

func TestExtractUnsupportedType(t *testing.T) {
	p := NewPipeline(fakeOpener{}, &fakeEngine{}, nil)

	_, err := p.Extract(context.Background(), "report.zip", "application/zip", nil)
	require.Error(t, err)
	assert.Equal(t, common.CodeUnsupportedType, common.CodeOf(err))
	assert.Contains(t, err.Error(), "application/zip")
	assert.Contains(t, err.Error(), "zip")
}

func TestExtractPDFAllPagesFallback(t *testing.T) {
	// every page's native text is <= 20 chars, so every page must go
	// through rasterize+recognize
	doc := &fakeDoc{pages: []*fakePage{
		{native: "short", ocrText: "page one text"},
		{native: "", ocrText: "page two text"},
		{native: "tiny artifacts", ocrText: "page three text"},
	}}
	engine := &fakeEngine{}
	p := NewPipeline(fakeOpener{doc: doc}, engine, nil)

	res, err := p.Extract(context.Background(), pdfPath(t), "application/pdf", nil)
	require.NoError(t, err)

	assert.Equal(t, "page one text\n\npage two text\n\npage three text", res.Text)
	assert.Equal(t, "pdf-ocr", res.Method)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, 3, res.FallbackPages)
	assert.Len(t, engine.recognized, 3)
	assert.True(t, doc.closed)
	// fallback renders at 2.0x
	for _, img := range engine.recognized {
		assert.True(t, strings.HasPrefix(string(img), "2.0|"), "image %q not rendered at 2.0x", img)
	}
}

func TestExtractPDFNativeTextAccepted(t *testing.T) {
	long := strings.Repeat("real text layer ", 4) // > 20 chars
	doc := &fakeDoc{pages: []*fakePage{
		{native: long},
		{native: long},
	}}
	engine := &fakeEngine{}
	p := NewPipeline(fakeOpener{doc: doc}, engine, nil)

	res, err := p.Extract(context.Background(), pdfPath(t), "application/pdf", nil)
	require.NoError(t, err)
	assert.Equal(t, long+"\n\n"+long, res.Text)
	assert.Equal(t, "pdf-text", res.Method)
	assert.Empty(t, engine.recognized, "native pages must not hit the engine")
}

func TestExtractPDFMixed(t *testing.T) {
	long := strings.Repeat("native ", 5)
	doc := &fakeDoc{pages: []*fakePage{
		{native: long},
		{native: "", ocrText: "scanned page"},
	}}
	p := NewPipeline(fakeOpener{doc: doc}, &fakeEngine{}, nil)

	res, err := p.Extract(context.Background(), pdfPath(t), "application/pdf", nil)
	require.NoError(t, err)
	assert.Equal(t, "pdf-mixed", res.Method)
	assert.Equal(t, 1, res.FallbackPages)
}

func TestExtractPDFNoTextFound(t *testing.T) {
	doc := &fakeDoc{pages: []*fakePage{
		{native: "", ocrText: ""},
		{native: "   ", ocrText: "  \n "},
	}}
	p := NewPipeline(fakeOpener{doc: doc}, &fakeEngine{}, nil)

	_, err := p.Extract(context.Background(), pdfPath(t), "application/pdf", nil)
	require.Error(t, err)
	assert.Equal(t, common.CodeNoTextFound, common.CodeOf(err))
}

func TestExtractPDFPerPageIsolation(t *testing.T) {
	// a page that cannot be rendered or recognized contributes nothing but
	// never aborts the document
	doc := &fakeDoc{pages: []*fakePage{
		{native: "", ocrText: "first"},
		{native: "", renderErr: errors.New("render exploded")},
		{native: "", nativeErr: errors.New("bad content stream"), ocrText: "third"},
	}}
	p := NewPipeline(fakeOpener{doc: doc}, &fakeEngine{}, nil)

	res, err := p.Extract(context.Background(), pdfPath(t), "application/pdf", nil)
	require.NoError(t, err)
	assert.Equal(t, "first\n\nthird", res.Text)
	assert.NotEmpty(t, res.Warnings)
}

func TestExtractPDFProgress(t *testing.T) {
	const n = 4
	pages := make([]*fakePage, n)
	for i := range pages {
		pages[i] = &fakePage{native: "", ocrText: fmt.Sprintf("page %d", i+1)}
	}
	p := NewPipeline(fakeOpener{doc: &fakeDoc{pages: pages}}, &fakeEngine{}, nil)

	var seen []float64
	_, err := p.Extract(context.Background(), pdfPath(t), "application/pdf", func(percent float64) {
		seen = append(seen, percent)
	})
	require.NoError(t, err)

	// non-decreasing throughout
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1])
	}
	// k/N*100 after the k-th page, preceded by the initial 0
	require.Len(t, seen, n+1)
	assert.Equal(t, 0.0, seen[0])
	for k := 1; k <= n; k++ {
		assert.InDelta(t, float64(k)/float64(n)*100, seen[k], 1e-9)
	}
	// the last page fraction is 100 only because all pages completed; the
	// pipeline itself never forces a final 100
	assert.Equal(t, 100.0, seen[n])
}

func TestExtractImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan.png")
	require.NoError(t, os.WriteFile(path, []byte("recognized words"), 0o644))

	engine := &fakeEngine{}
	p := NewPipeline(fakeOpener{}, engine, nil)

	var seen []float64
	res, err := p.Extract(context.Background(), path, "image/png", func(percent float64) {
		seen = append(seen, percent)
	})
	require.NoError(t, err)
	assert.Equal(t, "recognized words", res.Text)
	assert.Equal(t, "image-ocr", res.Method)
	assert.GreaterOrEqual(t, engine.initCalls, 1)
	// engine progress forwarded verbatim
	assert.Equal(t, []float64{0, 100}, seen)
}

func TestExtractImageInitFailed(t *testing.T) {
	engine := &fakeEngine{initErr: common.Errorf(common.CodeRecognitionInitFailed, "no tesseract")}
	p := NewPipeline(fakeOpener{}, engine, nil)

	_, err := p.Extract(context.Background(), "scan.png", "image/png", nil)
	require.Error(t, err)
	assert.Equal(t, common.CodeRecognitionInitFailed, common.CodeOf(err))
}

func TestExtractImageRecognizeFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan.png")
	require.NoError(t, os.WriteFile(path, []byte("img"), 0o644))

	// an unclassified engine failure means this image could not be processed
	p := NewPipeline(fakeOpener{}, &fakeEngine{recognizeErr: errors.New("corrupt raster data")}, nil)
	_, err := p.Extract(context.Background(), path, "image/png", nil)
	require.Error(t, err)
	assert.Equal(t, common.CodeDecodeError, common.CodeOf(err))

	// the engine's own classification passes through untouched
	classified := common.Errorf(common.CodeRecognitionInitFailed, "missing language pack")
	p = NewPipeline(fakeOpener{}, &fakeEngine{recognizeErr: classified}, nil)
	_, err = p.Extract(context.Background(), path, "image/png", nil)
	require.Error(t, err)
	assert.Equal(t, common.CodeRecognitionInitFailed, common.CodeOf(err))
}

func TestExtractImageNoText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blank.png")
	require.NoError(t, os.WriteFile(path, []byte("   \n\t "), 0o644))

	p := NewPipeline(fakeOpener{}, &fakeEngine{}, nil)
	_, err := p.Extract(context.Background(), path, "image/png", nil)
	require.Error(t, err)
	assert.Equal(t, common.CodeNoTextFound, common.CodeOf(err))
}

func TestExtractPlainRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	content := "line one\n\nline two\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p := NewPipeline(fakeOpener{}, &fakeEngine{}, nil)
	res, err := p.Extract(context.Background(), path, "text/plain", nil)
	require.NoError(t, err)
	// verbatim, no normalization
	assert.Equal(t, content, res.Text)
	assert.Equal(t, "plain-read", res.Method)
}

func TestExtractPlainReadInvalidUTF8(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.txt")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xfe, 0x00, 0x80}, 0o644))

	p := NewPipeline(fakeOpener{}, &fakeEngine{}, nil)
	_, err := p.Extract(context.Background(), path, "text/plain", nil)
	require.Error(t, err)
	assert.Equal(t, common.CodeDecodeError, common.CodeOf(err))
}

func TestExtractPDFOpenFailure(t *testing.T) {
	p := NewPipeline(fakeOpener{err: errors.New("not a pdf")}, &fakeEngine{}, nil)
	_, err := p.Extract(context.Background(), "doc.pdf", "application/pdf", nil)
	require.Error(t, err)
	assert.Equal(t, common.CodeDecodeError, common.CodeOf(err))
}
