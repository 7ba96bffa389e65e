package apikey

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// Validator checks a raw key. *Store implements it.
type Validator interface {
	Validate(ctx context.Context, rawKey string) (*KeyInfo, error)
}

type contextKey struct{}

// Require returns middleware that rejects requests without a valid key. The
// key is read from "Authorization: Bearer <key>" or the X-API-Key header.
func Require(v Validator) func(http.Handler) http.Handler {
	log := slog.Default().With("component", "apikey-auth")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := extractKey(r)
			if key == "" {
				writeError(w, http.StatusUnauthorized, "missing api key")
				return
			}

			info, err := v.Validate(r.Context(), key)
			switch {
			case err == nil:
			case errors.Is(err, ErrInvalidKey):
				writeError(w, http.StatusUnauthorized, "invalid api key")
				return
			case errors.Is(err, ErrExpiredKey):
				writeError(w, http.StatusUnauthorized, "expired api key")
				return
			default:
				log.Error("api key lookup failed", "error", err)
				writeError(w, http.StatusInternalServerError, "authentication error")
				return
			}

			ctx := context.WithValue(r.Context(), contextKey{}, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext returns the key that authorised the request, if any.
func FromContext(ctx context.Context) *KeyInfo {
	info, _ := ctx.Value(contextKey{}).(*KeyInfo)
	return info
}

func extractKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.Header.Get("X-API-Key")
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
