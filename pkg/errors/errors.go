// Package errors defines the sentinel errors shared by the scoring core and
// the services around it, plus an AppError carrying an HTTP status.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Scoring errors. All three are recoverable: callers exclude the offending
// document or term and count the exclusion.
var (
	ErrDivisionUndefined        = errors.New("division undefined: zero denominator")
	ErrMissingTerm              = errors.New("term missing from weighted dictionary")
	ErrMalformedDictionaryEntry = errors.New("malformed dictionary entry")
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrDictionaryNotFound = errors.New("dictionary not found")
	ErrDocumentNotFound   = errors.New("document not found")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrInternal           = errors.New("internal error")
	ErrTimeout            = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// IsRecoverable reports whether err matches any of the scoring sentinels, i.e. whether
// the failure should exclude one item rather than abort the run.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrDivisionUndefined) ||
		errors.Is(err, ErrMissingTerm) ||
		errors.Is(err, ErrMalformedDictionaryEntry)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrDocumentNotFound), errors.Is(err, ErrDictionaryNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrMalformedDictionaryEntry):
		return http.StatusBadRequest
	case errors.Is(err, ErrDivisionUndefined), errors.Is(err, ErrMissingTerm):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
