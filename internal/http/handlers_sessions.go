package httpx

import (
	"net/http"

	"github.com/authbridge/relying-party/internal/domain/model"
	"github.com/authbridge/relying-party/internal/service"
)

// SessionHandlers provides HTTP handlers for session issuance and logout.
type SessionHandlers struct {
	Svc *service.SessionService
}

// Create authenticates with either a password or a FIDO authentication
// response and, on success, mints a session.
func (h *SessionHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateSessionRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	resp, err := h.Svc.CreateSession(r.Context(), req)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, resp)
}

// Delete revokes the session named in the path.
func (h *SessionHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
		WriteAppError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
