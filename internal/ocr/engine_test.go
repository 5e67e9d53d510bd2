package ocr

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textra-dev/textra/internal/common"
)

// stubRunner scripts Run outcomes and records every invocation.
type stubRunner struct {
	mu    sync.Mutex
	calls [][]string
	delay time.Duration
	out   []byte
	errb  []byte
	err   error
}

func (r *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	r.calls = append(r.calls, append([]string{name}, args...))
	r.mu.Unlock()
	return r.out, r.errb, r.err
}

func (r *stubRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// fakeBinary drops an executable file in a temp dir so LookPath resolves it
// without depending on what the host has installed.
func fakeBinary(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tesseract")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
	return path
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEngineInitCollapsesConcurrentCallers(t *testing.T) {
	runner := &stubRunner{delay: 20 * time.Millisecond}
	engine := NewEngine(Config{Tesseract: fakeBinary(t)}, runner, testLogger())
	defer engine.Close()

	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := engine.Init(context.Background()); err != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(0), failures.Load())
	assert.Equal(t, 1, runner.callCount(), "init must warm the binary exactly once")
}

func TestEngineInitMissingBinary(t *testing.T) {
	engine := NewEngine(Config{Tesseract: filepath.Join(t.TempDir(), "nope")}, &stubRunner{}, testLogger())
	err := engine.Init(context.Background())
	require.Error(t, err)
	assert.Equal(t, common.CodeRecognitionInitFailed, common.CodeOf(err))
}

func TestEngineInitWarmRunFails(t *testing.T) {
	runner := &stubRunner{errb: []byte("libtesseract missing"), err: errors.New("exit status 127")}
	engine := NewEngine(Config{Tesseract: fakeBinary(t)}, runner, testLogger())

	err := engine.Init(context.Background())
	require.Error(t, err)
	assert.Equal(t, common.CodeRecognitionInitFailed, common.CodeOf(err))
	assert.Contains(t, err.Error(), "libtesseract missing")
}

func TestEngineRecognize(t *testing.T) {
	runner := &stubRunner{out: []byte("hello world\n-----\nsecond line\n")}
	engine := NewEngine(Config{Tesseract: fakeBinary(t), PSM: 6}, runner, testLogger())
	defer engine.Close()

	var seen []float64
	text, err := engine.Recognize(context.Background(), []byte("png bytes"), func(percent float64) {
		seen = append(seen, percent)
	})
	require.NoError(t, err)
	// separator noise lines are stripped, real text survives
	assert.Equal(t, "hello world\n\nsecond line\n", text)
	assert.Equal(t, []float64{0, 100}, seen)

	// one warm run, one recognition run
	require.Equal(t, 2, runner.callCount())
	recog := runner.calls[1]
	assert.Contains(t, recog, "stdout")
	assert.Contains(t, recog, "-l")
	assert.Contains(t, recog, "eng")
	assert.Contains(t, recog, "--psm")
}

func TestEngineCloseIdempotent(t *testing.T) {
	engine := NewEngine(Config{}, &stubRunner{}, testLogger())
	// never initialized: both closes are no-ops
	engine.Close()
	engine.Close()
}

func TestEngineRecognizeAfterClose(t *testing.T) {
	engine := NewEngine(Config{Tesseract: fakeBinary(t)}, &stubRunner{}, testLogger())
	require.NoError(t, engine.Init(context.Background()))
	engine.Close()

	_, err := engine.Recognize(context.Background(), []byte("img"), nil)
	require.Error(t, err)
	assert.Equal(t, common.CodeRecognitionInitFailed, common.CodeOf(err))
}
