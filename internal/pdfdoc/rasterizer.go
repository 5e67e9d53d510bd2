package pdfdoc

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/textra-dev/textra/internal/ocr"
)

// baseDPI is the PDF user-space resolution; scale multiplies it.
const baseDPI = 72

// Rasterizer renders single PDF pages to PNG through pdftoppm.
type Rasterizer struct {
	pdftoppm string
	runner   ocr.Runner
	logger   *slog.Logger
}

func NewRasterizer(pdftoppm string, runner ocr.Runner, logger *slog.Logger) *Rasterizer {
	if pdftoppm == "" {
		pdftoppm = "pdftoppm"
	}
	if runner == nil {
		runner = ocr.ExecRunner{Logger: logger}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Rasterizer{pdftoppm: pdftoppm, runner: runner, logger: logger}
}

// RenderPage rasterizes one page (1-based) of the PDF at path and returns the
// PNG bytes. Temp artifacts are removed before returning.
func (r *Rasterizer) RenderPage(ctx context.Context, path string, pageNum int, scale float64) ([]byte, error) {
	if scale <= 0 {
		scale = 1.0
	}
	dpi := int(baseDPI * scale)

	tmpDir, err := os.MkdirTemp("", "textra-pp-*")
	if err != nil {
		return nil, fmt.Errorf("temp dir: %w", err)
	}
	defer func() {
		if rerr := os.RemoveAll(tmpDir); rerr != nil {
			r.logger.Warn("pdfdoc.rasterize.temp_cleanup", "dir", tmpDir, "error", rerr)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -f N -l N -r DPI -png <in.pdf> <tmp/page>
	pageArg := fmt.Sprintf("%d", pageNum)
	_, errb, err := r.runner.Run(ctx, r.pdftoppm,
		"-f", pageArg, "-l", pageArg, "-r", fmt.Sprintf("%d", dpi), "-png", path, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm: %w (%s)", err, string(errb))
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no image for page %d", pageNum)
	}

	img, err := os.ReadFile(matches[0])
	if err != nil {
		return nil, fmt.Errorf("read rendered page: %w", err)
	}
	r.logger.Debug("pdfdoc.rasterize.ok", "path", path, "page", pageNum, "dpi", dpi, "bytes", len(img))
	return img, nil
}
