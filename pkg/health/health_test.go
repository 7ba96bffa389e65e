package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func up(context.Context) ComponentHealth { return ComponentHealth{Status: StatusUp} }

func TestReadyHandler(t *testing.T) {
	tests := []struct {
		name       string
		cache      error
		dicts      Status
		wantStatus Status
		wantCode   int
	}{
		{"all up", nil, StatusUp, StatusUp, http.StatusOK},
		{"cache degraded", errors.New("connection refused"), StatusUp, StatusDegraded, http.StatusOK},
		{"dictionaries down", nil, StatusDown, StatusDown, http.StatusServiceUnavailable},
		{"down beats degraded", errors.New("timeout"), StatusDown, StatusDown, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			c.Register("redis", Ping(func(context.Context) error { return tt.cache }, StatusDegraded))
			c.Register("dictionaries", func(context.Context) ComponentHealth {
				return ComponentHealth{Status: tt.dicts}
			})
			c.Register("postgres", up)

			rec := httptest.NewRecorder()
			c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			var report Report
			if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
				t.Fatal(err)
			}
			if report.Status != tt.wantStatus || len(report.Components) != 3 {
				t.Errorf("report = %+v", report)
			}
			if tt.cache != nil && report.Components["redis"].Message != tt.cache.Error() {
				t.Errorf("redis = %+v", report.Components["redis"])
			}
		})
	}
}

func TestLiveHandlerSkipsChecks(t *testing.T) {
	c := NewChecker()
	c.Register("broken", func(context.Context) ComponentHealth {
		t.Error("liveness must not run checks")
		return ComponentHealth{Status: StatusDown}
	})
	rec := httptest.NewRecorder()
	c.LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("code = %d", rec.Code)
	}
}
