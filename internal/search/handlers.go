package search

import (
	"encoding/json"
	"net/http"

	"github.com/lucidnotes/lucid-search/internal/auth"
	"github.com/lucidnotes/lucid-search/internal/pkg/errors"
	"github.com/lucidnotes/lucid-search/internal/pkg/logger"
)

// Handler provides HTTP handlers for search operations.
type Handler struct {
	svc *Service
	log *logger.Logger
}

// NewHandler creates a new search handler.
func NewHandler(svc *Service, log *logger.Logger) *Handler {
	return &Handler{
		svc: svc,
		log: log,
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// HandleSearch handles POST /search.
//
// Identity comes from the verified session set by the auth middleware.
// The request body never carries a user id.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		errors.WriteErrorWithStatus(w, http.StatusMethodNotAllowed,
			errors.InvalidRequestError("method not allowed"))
		return
	}

	userID := auth.UserID(r.Context())
	if userID == "" {
		errors.WriteError(w, errors.UnauthorizedError())
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, errors.InvalidRequestError("invalid request body"))
		return
	}

	resp, err := h.svc.Search(r.Context(), userID, req)
	if err != nil {
		h.log.WithUser(userID).WithError(err).Error("search failed", "mode", req.Mode)
		errors.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
