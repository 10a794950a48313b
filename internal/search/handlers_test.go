package search

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lucidnotes/lucid-search/internal/auth"
	"github.com/lucidnotes/lucid-search/internal/pkg/logger"
)

func newTestHandler(kw *fakeKeyword) *Handler {
	svc := newTestService(kw, &fakeSemantic{}, &fakeEmbedder{}, nil)
	return NewHandler(svc, logger.New("error", "text"))
}

func authedRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/search", strings.NewReader(body))
	return req.WithContext(auth.WithUserID(req.Context(), "user-1"))
}

func TestHandleSearchSuccess(t *testing.T) {
	h := newTestHandler(&fakeKeyword{results: ranked("A", "B")})

	req := authedRequest(http.MethodPost, `{"query":"stoicism","mode":"keyword"}`)
	w := httptest.NewRecorder()
	h.HandleSearch(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}

	var resp Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if resp.Count != 2 {
		t.Errorf("Count = %d, want 2", resp.Count)
	}
	if resp.Mode != ModeKeyword {
		t.Errorf("Mode = %s, want keyword", resp.Mode)
	}
	if resp.Query != "stoicism" {
		t.Errorf("Query = %s, want stoicism", resp.Query)
	}
}

func TestHandleSearchValidationError(t *testing.T) {
	h := newTestHandler(&fakeKeyword{})

	tests := []struct {
		name string
		body string
	}{
		{"empty query", `{"query":"","mode":"keyword"}`},
		{"bad mode", `{"query":"q","mode":"fuzzy"}`},
		{"explicit zero limit", `{"query":"q","mode":"keyword","limit":0}`},
		{"limit too large", `{"query":"q","mode":"keyword","limit":101}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.HandleSearch(w, authedRequest(http.MethodPost, tt.body))

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			if !strings.Contains(w.Body.String(), "VALIDATION_ERROR") {
				t.Errorf("body = %s, want VALIDATION_ERROR code", w.Body.String())
			}
		})
	}
}

func TestHandleSearchMalformedBody(t *testing.T) {
	h := newTestHandler(&fakeKeyword{})

	w := httptest.NewRecorder()
	h.HandleSearch(w, authedRequest(http.MethodPost, `{not json`))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleSearchUnauthenticated(t *testing.T) {
	h := newTestHandler(&fakeKeyword{})

	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query":"q","mode":"keyword"}`))
	w := httptest.NewRecorder()
	h.HandleSearch(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestHandleSearchMethodNotAllowed(t *testing.T) {
	h := newTestHandler(&fakeKeyword{})

	w := httptest.NewRecorder()
	h.HandleSearch(w, authedRequest(http.MethodGet, ""))

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestHandleSearchInternalErrorSanitized(t *testing.T) {
	svc := newTestService(&fakeKeyword{err: errSentinel{}}, &fakeSemantic{}, &fakeEmbedder{}, nil)
	h := NewHandler(svc, logger.New("error", "text"))

	w := httptest.NewRecorder()
	h.HandleSearch(w, authedRequest(http.MethodPost, `{"query":"q","mode":"keyword"}`))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "connection refused to db-internal") {
		t.Error("internal error details leaked to client")
	}
}

type errSentinel struct{}

func (errSentinel) Error() string { return "connection refused to db-internal" }
