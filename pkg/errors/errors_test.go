package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error wins", New(ErrInvalidInput, http.StatusConflict, "custom"), http.StatusConflict},
		{"wrapped invalid input", fmt.Errorf("decoding: %w", ErrInvalidInput), http.StatusBadRequest},
		{"dictionary not found", ErrDictionaryNotFound, http.StatusNotFound},
		{"division undefined", fmt.Errorf("doc 7: %w", ErrDivisionUndefined), http.StatusUnprocessableEntity},
		{"malformed entry", ErrMalformedDictionaryEntry, http.StatusBadRequest},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusCode(tt.err); got != tt.want {
				t.Errorf("HTTPStatusCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := Newf(ErrDictionaryNotFound, http.StatusNotFound, "no dictionary %q", "concreteness")
	if !errors.Is(err, ErrDictionaryNotFound) {
		t.Fatal("expected AppError to unwrap to its sentinel")
	}
	if err.Error() != `dictionary not found: no dictionary "concreteness"` {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestIsRecoverable(t *testing.T) {
	if !IsRecoverable(fmt.Errorf("x: %w", ErrMissingTerm)) {
		t.Error("missing term should be recoverable")
	}
	if IsRecoverable(ErrInternal) {
		t.Error("internal error should not be recoverable")
	}
}
