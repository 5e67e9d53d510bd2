package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/textra-dev/textra/internal/common"
)

// ProgressFunc receives percentages in [0,100]. The engine only reports the
// coarse endpoints of a recognition run; callers must tolerate zero calls.
// Alias so callbacks flow across package boundaries without conversion.
type ProgressFunc = func(percent float64)

var reBoxNoise = regexp.MustCompile(`(?m)^\s*[_\-]{3,}\s*$`)

type Config struct {
	Tesseract     string // binary name or absolute path; if empty -> "tesseract"
	TesseractLang string // default "eng"
	TessdataDir   string
	PSM           int // e.g. 6 for a uniform block of text
	OEM           int // 1 = LSTM; 0 = tesseract default
}

// Engine wraps the tesseract binary as a process-wide recognition resource.
// Initialization is lazy and collapses concurrent callers into a single
// flight; Close is an idempotent no-op when the engine was never initialized.
type Engine struct {
	cfg    Config
	runner Runner
	logger *slog.Logger

	initFlight singleflight.Group

	mu     sync.Mutex
	binary string // resolved path, non-empty once initialized
	closed bool
}

func NewEngine(cfg Config, runner Runner, logger *slog.Logger) *Engine {
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, runner: runner, logger: logger}
}

// Init resolves and warms the tesseract binary. Safe to call repeatedly and
// concurrently: at most one initialization is in flight, later callers share
// its outcome.
func (e *Engine) Init(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return common.Errorf(common.CodeRecognitionInitFailed, "recognition engine already released")
	}
	if e.binary != "" {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	_, err, _ := e.initFlight.Do("init", func() (any, error) {
		path, err := exec.LookPath(e.cfg.Tesseract)
		if err != nil {
			return nil, common.NewAppError(common.CodeRecognitionInitFailed,
				fmt.Sprintf("locate %s", e.cfg.Tesseract), err)
		}
		// Warm run so the first real recognition doesn't pay for a broken
		// install at recognition time.
		if _, errb, err := e.runner.Run(ctx, path, "--version"); err != nil {
			return nil, common.NewAppError(common.CodeRecognitionInitFailed,
				fmt.Sprintf("tesseract --version: %s", truncate(string(errb), 512)), err)
		}
		e.mu.Lock()
		e.binary = path
		e.mu.Unlock()
		e.logger.Info("ocr.engine.ready", "binary", path, "lang", e.cfg.TesseractLang)
		return nil, nil
	})
	return err
}

// Recognize runs OCR over raw image bytes and returns the recognized text.
// The engine is initialized on first use.
func (e *Engine) Recognize(ctx context.Context, image []byte, onProgress ProgressFunc) (string, error) {
	if err := e.Init(ctx); err != nil {
		return "", err
	}
	e.mu.Lock()
	binary := e.binary
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return "", common.Errorf(common.CodeRecognitionInitFailed, "recognition engine already released")
	}

	report := func(p float64) {
		if onProgress != nil {
			onProgress(p)
		}
	}
	report(0)

	tmp, err := os.CreateTemp("", "textra-ocr-*.png")
	if err != nil {
		return "", fmt.Errorf("create temp image: %w", err)
	}
	defer func() {
		if rerr := os.Remove(tmp.Name()); rerr != nil {
			e.logger.Warn("ocr.engine.temp_cleanup", "path", tmp.Name(), "error", rerr)
		}
	}()
	if _, err := tmp.Write(image); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write temp image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp image: %w", err)
	}

	args := []string{tmp.Name(), "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", fmt.Sprintf("%d", e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", fmt.Sprintf("%d", e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	out, errb, err := e.runner.Run(ctx, binary, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w (%s)", err, truncate(string(errb), 512))
	}

	report(100)
	return reBoxNoise.ReplaceAllString(string(out), ""), nil
}

// Close releases the engine. Idempotent; safe when Init was never called.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.binary = ""
	e.logger.Debug("ocr.engine.closed")
}
