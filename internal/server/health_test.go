package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(_ context.Context) error { return f.err }

type fakeChecker struct{ err error }

func (f fakeChecker) HealthCheck(_ context.Context) error { return f.err }

func TestHandleHealth(t *testing.T) {
	tests := []struct {
		name       string
		db         error
		vector     error
		cache      error
		wantStatus string
		wantCode   int
	}{
		{
			name:       "all healthy",
			wantStatus: "ok",
			wantCode:   http.StatusOK,
		},
		{
			name:       "postgres down",
			db:         fmt.Errorf("connection refused"),
			wantStatus: "unhealthy",
			wantCode:   http.StatusServiceUnavailable,
		},
		{
			name:       "qdrant down",
			vector:     fmt.Errorf("unavailable"),
			wantStatus: "unhealthy",
			wantCode:   http.StatusServiceUnavailable,
		},
		{
			name:       "cache down degrades only",
			cache:      fmt.Errorf("redis unreachable"),
			wantStatus: "degraded",
			wantCode:   http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(fakePinger{tt.db}, fakeChecker{tt.vector}, fakePinger{tt.cache}, "test")

			w := httptest.NewRecorder()
			h.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if w.Code != tt.wantCode {
				t.Errorf("status code = %d, want %d", w.Code, tt.wantCode)
			}

			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", resp.Status, tt.wantStatus)
			}
			if resp.Version != "test" {
				t.Errorf("Version = %s, want test", resp.Version)
			}
		})
	}
}

func TestHandleHealthNoCache(t *testing.T) {
	h := NewHealthHandler(fakePinger{}, fakeChecker{}, nil, "test")

	w := httptest.NewRecorder()
	h.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if _, ok := resp.Checks["redis"]; ok {
		t.Error("redis check should be absent when the cache is disabled")
	}
}
