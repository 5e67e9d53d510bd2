package format

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/textra-dev/textra/internal/common"
)

const (
	chatTimeout      = 30 * time.Second
	inferenceTimeout = 45 * time.Second
)

// ProgressFunc receives percentages in [0,100].
type ProgressFunc = func(percent float64)

// Dispatcher resolves a provider configuration to a backend and applies one
// bounded-time formatting call. It holds no per-call state; a single
// Dispatcher serves concurrent callers.
type Dispatcher struct {
	client *http.Client
	logger *slog.Logger

	// overridable in tests
	chatTimeout      time.Duration
	inferenceTimeout time.Duration
}

func NewDispatcher(client *http.Client, logger *slog.Logger) *Dispatcher {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		client:           client,
		logger:           logger,
		chatTimeout:      chatTimeout,
		inferenceTimeout: inferenceTimeout,
	}
}

// Format transforms text per the instruction using the backend selected by
// cfg. An empty or "local" provider runs the network-free local transform.
// Exactly one HTTP attempt is made for remote backends; retry is the
// caller's policy. onProgress may be nil.
func (d *Dispatcher) Format(ctx context.Context, cfg Config, instruction, text, outputFormat string, onProgress ProgressFunc) (string, error) {
	if IsLocal(cfg.Provider) {
		return LocalTransform(text, outputFormat), nil
	}

	profile, ok := LookupProfile(cfg.Provider)
	if !ok {
		return "", common.Errorf(common.CodeInvalidProvider, "unknown provider %q", cfg.Provider)
	}
	if profile.RequiresKey && strings.TrimSpace(cfg.APIKey) == "" {
		return "", common.Errorf(common.CodeMissingCredential, "provider %q requires an API key", profile.Name)
	}

	model := cfg.Model
	if model == "" {
		model = profile.DefaultModel
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = profile.Endpoint
	}
	endpoint = strings.ReplaceAll(endpoint, "{model}", model)

	timeout := d.chatTimeout
	if profile.Family == FamilyInference {
		timeout = d.inferenceTimeout
	}

	report := func(p float64) {
		if onProgress != nil {
			onProgress(p)
		}
	}

	var body any
	switch profile.Family {
	case FamilyInference:
		body = buildInferenceBody(instruction, text)
	default:
		body = buildChatBody(model, instruction, text)
	}

	d.logger.Info("format.dispatch",
		"provider", profile.Name,
		"family", string(profile.Family),
		"model", model,
		"output_format", outputFormat,
		"text_len", len(text),
	)
	report(10)

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	headers := map[string]string{"Authorization": "Bearer " + cfg.APIKey}
	raw, status, err := postJSON(callCtx, d.client, endpoint, body, headers, d.logger)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded {
			return "", common.NewAppError(common.CodeTimeout,
				"provider did not respond within "+timeout.String(), err)
		}
		return "", NewProviderError(0, err.Error())
	}

	if profile.Family == FamilyInference {
		if secs, loading := inferenceLoadingError(raw); loading {
			return "", NewModelLoadingError(secs)
		}
	}

	if status/100 != 2 {
		return "", NewProviderError(status, decodeErrorMessage(raw))
	}

	var out string
	switch profile.Family {
	case FamilyInference:
		out = parseInferenceResponse(raw)
	default:
		var cr chatResponse
		if derr := json.Unmarshal(raw, &cr); derr != nil {
			return "", NewProviderError(status, "undecodable response body")
		}
		out = parseChatResponse(cr)
	}

	report(90)
	return out, nil
}

// decodeErrorMessage pulls a structured error message out of a non-2xx body,
// falling back to the raw text.
func decodeErrorMessage(raw []byte) string {
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}
	var flat struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &flat); err == nil && flat.Error != "" {
		return flat.Error
	}
	return strings.TrimSpace(string(raw))
}
