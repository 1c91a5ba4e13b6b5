package httpx

import (
	"net/http"

	"github.com/authbridge/relying-party/internal/domain/model"
	"github.com/authbridge/relying-party/internal/service"
)

// TransactionHandlers provides HTTP handlers for transaction confirmation.
type TransactionHandlers struct {
	Svc *service.AuthenticatorService
}

// CreateRequest issues a transaction confirmation challenge carrying the
// content the user must approve.
func (h *TransactionHandlers) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var req model.CreateTransactionAuthRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	resp, err := h.Svc.CreateTransactionAuthRequest(r.Context(), sessionID(r), req)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, resp)
}

// Validate checks the signed transaction response. No session is minted;
// confirmation only reports the outcome.
func (h *TransactionHandlers) Validate(w http.ResponseWriter, r *http.Request) {
	var req model.ValidateTransactionAuthRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	resp, err := h.Svc.ValidateTransactionAuth(r.Context(), sessionID(r), req)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, resp)
}
