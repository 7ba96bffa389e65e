package apikey

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeValidator map[string]error

func (f fakeValidator) Validate(_ context.Context, rawKey string) (*KeyInfo, error) {
	err, ok := f[rawKey]
	if !ok {
		return nil, ErrInvalidKey
	}
	if err != nil {
		return nil, err
	}
	return &KeyInfo{ID: "k1", Name: "ops"}, nil
}

func TestHashKey(t *testing.T) {
	if HashKey("secret") != HashKey("secret") {
		t.Error("hash must be deterministic")
	}
	if HashKey("secret") == HashKey("Secret") {
		t.Error("different keys must hash differently")
	}
	if len(HashKey("")) != 64 {
		t.Errorf("digest length = %d", len(HashKey("")))
	}
}

func TestGenerateRawKey(t *testing.T) {
	a, err := generateRawKey()
	if err != nil {
		t.Fatal(err)
	}
	b, _ := generateRawKey()
	if len(a) != 64 || a == b {
		t.Errorf("keys %q and %q", a, b)
	}
}

func TestRequire(t *testing.T) {
	v := fakeValidator{
		"good":  nil,
		"old":   ErrExpiredKey,
		"flaky": errors.New("connection reset"),
	}
	var seen *KeyInfo
	h := Require(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		value  string
		status int
	}{
		{"bearer", "Authorization", "Bearer good", http.StatusNoContent},
		{"header", "X-API-Key", "good", http.StatusNoContent},
		{"missing", "", "", http.StatusUnauthorized},
		{"unknown", "X-API-Key", "nope", http.StatusUnauthorized},
		{"expired", "X-API-Key", "old", http.StatusUnauthorized},
		{"store down", "X-API-Key", "flaky", http.StatusInternalServerError},
		{"basic auth ignored", "Authorization", "Basic good", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status == http.StatusNoContent && (seen == nil || seen.Name != "ops") {
				t.Errorf("key info not in context: %+v", seen)
			}
		})
	}
}
