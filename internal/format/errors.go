package format

import (
	"fmt"
	"time"

	"github.com/textra-dev/textra/internal/common"
)

// defaultModelLoadingRetry is used when the backend reports a cold model
// without an estimate.
const defaultModelLoadingRetry = 20 * time.Second

// ModelLoadingError indicates the backend's model is still warming up; the
// caller should wait RetryAfter and try again.
type ModelLoadingError struct {
	RetryAfter time.Duration
}

func (e *ModelLoadingError) Error() string {
	return fmt.Sprintf("model loading (retry after %s)", e.RetryAfter)
}

// NewModelLoadingError builds a classified MODEL_LOADING error. A zero or
// negative estimate falls back to the default retry delay.
func NewModelLoadingError(estimatedSecs float64) error {
	retry := defaultModelLoadingRetry
	if estimatedSecs > 0 {
		retry = time.Duration(estimatedSecs * float64(time.Second))
	}
	inner := &ModelLoadingError{RetryAfter: retry}
	return common.NewAppError(common.CodeModelLoading, "backend model is warming up", inner)
}

// ProviderError carries the HTTP status and decoded message of a failed
// backend call. Status 0 means the request never got a response.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("provider request failed: %s", e.Message)
	}
	return fmt.Sprintf("provider returned %d: %s", e.Status, e.Message)
}

// NewProviderError builds a classified PROVIDER_ERROR.
func NewProviderError(status int, message string) error {
	inner := &ProviderError{Status: status, Message: message}
	return common.NewAppError(common.CodeProviderError, "backend call failed", inner)
}
