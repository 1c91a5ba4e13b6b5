// Package httpx provides the HTTP handlers and router for the relying party API.
package httpx

import (
	"net/http"

	"github.com/authbridge/relying-party/internal/domain/model"
	"github.com/authbridge/relying-party/internal/service"
)

// AccountHandlers provides HTTP handlers for account lifecycle operations.
type AccountHandlers struct {
	Svc *service.AccountService
}

// Create handles account registration. When the request asks for FIDO
// enrollment the response additionally carries the first registration
// challenge.
func (h *AccountHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateAccountRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	resp, err := h.Svc.CreateAccount(r.Context(), req)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, resp)
}

// Delete removes the account that owns the session named in the path,
// deactivating its provider identity first.
func (h *AccountHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Svc.DeleteAccount(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, resp)
}
