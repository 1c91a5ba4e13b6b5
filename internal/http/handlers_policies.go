package httpx

import (
	"net/http"

	"github.com/authbridge/relying-party/internal/service"
)

// PolicyHandlers provides HTTP handlers for facets and policy retrieval.
type PolicyHandlers struct {
	Svc *service.AuthenticatorService
}

// Facets returns the application's trusted facets. Anonymous; FIDO clients
// fetch this before any credential exists.
func (h *PolicyHandlers) Facets(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Svc.Facets(r.Context())
	if err != nil {
		WriteAppError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, resp)
}

// Get returns the registration or authentication policy named in the path.
func (h *PolicyHandlers) Get(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Svc.Policy(r.Context(), sessionID(r), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, resp)
}
