package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker reports whether the vector store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler serves GET /healthz.
type HealthHandler struct {
	db      Pinger
	vector  HealthChecker
	cache   Pinger
	version string
}

// NewHealthHandler creates a health handler. The cache may be nil.
func NewHealthHandler(db Pinger, vector HealthChecker, cache Pinger, version string) *HealthHandler {
	return &HealthHandler{
		db:      db,
		vector:  vector,
		cache:   cache,
		version: version,
	}
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// HandleHealth reports the status of each backing service. The cache is
// optional, so a cache failure degrades the status without failing it.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	status := "ok"

	if err := h.db.Ping(ctx); err != nil {
		checks["postgres"] = err.Error()
		status = "unhealthy"
	} else {
		checks["postgres"] = "ok"
	}

	if err := h.vector.HealthCheck(ctx); err != nil {
		checks["qdrant"] = err.Error()
		status = "unhealthy"
	} else {
		checks["qdrant"] = "ok"
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			checks["redis"] = err.Error()
			if status == "ok" {
				status = "degraded"
			}
		} else {
			checks["redis"] = "ok"
		}
	}

	code := http.StatusOK
	if status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(HealthResponse{
		Status:  status,
		Version: h.version,
		Checks:  checks,
	})
}
