// One-shot formatting: text on stdin, instruction as argument, result on
// stdout. Provider settings come from TEXTRA_FORMAT_* or textra.yaml.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/textra-dev/textra/internal/common"
	"github.com/textra-dev/textra/internal/format"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 || len(os.Args) > 3 {
		fmt.Fprintln(os.Stderr, "usage: format <instruction> [output-format] < input.txt")
		os.Exit(2)
	}
	instruction := os.Args[1]
	outputFormat := ""
	if len(os.Args) == 3 {
		outputFormat = os.Args[2]
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	text, err := io.ReadAll(os.Stdin)
	if err != nil {
		logger.Error("read stdin", "error", err)
		os.Exit(1)
	}

	dispatcher := format.NewDispatcher(&http.Client{}, logger)
	out, err := dispatcher.Format(context.Background(), format.Config{
		Provider: cfg.Format.Provider,
		APIKey:   cfg.Format.APIKey,
		Model:    cfg.Format.Model,
		Endpoint: cfg.Format.Endpoint,
	}, instruction, string(text), outputFormat, nil)
	if err != nil {
		var ml *format.ModelLoadingError
		if errors.As(err, &ml) {
			fmt.Fprintf(os.Stderr, "model loading; retry in %s\n", ml.RetryAfter)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "format failed (%s): %v\n", common.CodeOf(err), err)
		os.Exit(1)
	}
	fmt.Print(out)
}
