package httpx

import (
	"net/http"

	"github.com/authbridge/relying-party/internal/domain/model"
	"github.com/authbridge/relying-party/internal/service"
)

// SessionIDHeader names the request header that carries the caller's session.
const SessionIDHeader = "Session-Id"

func sessionID(r *http.Request) string {
	return r.Header.Get(SessionIDHeader)
}

// AuthenticatorHandlers provides HTTP handlers for FIDO challenge and
// authenticator management operations.
type AuthenticatorHandlers struct {
	Svc *service.AuthenticatorService
}

// CreateAuthRequest issues an anonymous authentication challenge.
func (h *AuthenticatorHandlers) CreateAuthRequest(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Svc.CreateAuthRequest(r.Context())
	if err != nil {
		WriteAppError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, resp)
}

// CreateRegRequest issues a registration challenge for the caller's account.
func (h *AuthenticatorHandlers) CreateRegRequest(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Svc.CreateRegRequest(r.Context(), sessionID(r))
	if err != nil {
		WriteAppError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, resp)
}

// Create completes a registration challenge, enrolling a new authenticator.
func (h *AuthenticatorHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateAuthenticatorRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	resp, err := h.Svc.CreateAuthenticator(r.Context(), sessionID(r), req)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, resp)
}

// List returns the authenticators registered for the caller's account.
func (h *AuthenticatorHandlers) List(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Svc.ListAuthenticators(r.Context(), sessionID(r))
	if err != nil {
		WriteAppError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, resp)
}

// Get returns a single authenticator, including its deregistration message.
func (h *AuthenticatorHandlers) Get(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Svc.GetAuthenticator(r.Context(), sessionID(r), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, resp)
}

// Delete archives an authenticator at the provider and returns the
// deregistration message for the FIDO client.
func (h *AuthenticatorHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	dereg, err := h.Svc.DeleteAuthenticator(r.Context(), sessionID(r), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, model.DeleteAuthenticatorResponse{FIDODeregistrationRequest: dereg})
}
