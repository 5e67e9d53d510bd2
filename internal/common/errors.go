package common

import (
	"errors"
	"fmt"
)

// Error codes for the extraction side.
const (
	CodeUnsupportedType       = "UNSUPPORTED_TYPE"
	CodeRecognitionInitFailed = "RECOGNITION_INIT_FAILED"
	CodeNoTextFound           = "NO_TEXT_FOUND"
	CodeDecodeError           = "DECODE_ERROR"
)

// Error codes for the formatting side.
const (
	CodeInvalidProvider   = "INVALID_PROVIDER"
	CodeMissingCredential = "MISSING_CREDENTIAL"
	CodeTimeout           = "TIMEOUT"
	CodeModelLoading      = "MODEL_LOADING"
	CodeProviderError     = "PROVIDER_ERROR"
)

// AppError is a classified application error. Nothing crosses the
// extraction/formatting boundary unclassified: every failure the caller can
// see carries one of the codes above.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func NewAppError(code, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func Errorf(code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the classification code of err, or "" if err carries none.
func CodeOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// IsCode reports whether err is classified with the given code.
func IsCode(err error, code string) bool {
	return CodeOf(err) == code
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
