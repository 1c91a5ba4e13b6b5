package httpx

import (
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/authbridge/relying-party/internal/errors"

	"github.com/authbridge/relying-party/internal/domain/model"
	"github.com/authbridge/relying-party/internal/service"
)

// InspectionHandlers provides the dev-only debugging endpoints under /test.
// They are mounted only when the service runs in dev mode.
type InspectionHandlers struct {
	Svc *service.InspectionService
}

// pageResponse wraps a listing so the payload shape survives adding paging
// metadata later.
type pageResponse[T any] struct {
	Items []T `json:"items"`
}

// GetAccount returns one account by ID.
func (h *InspectionHandlers) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.Svc.GetAccount(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, account)
}

// SearchAccounts lists accounts whose email matches the "email" query
// parameter, "*" being the wildcard.
func (h *InspectionHandlers) SearchAccounts(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pageParams(w, r)
	if !ok {
		return
	}

	accounts, err := h.Svc.SearchAccounts(r.Context(), r.URL.Query().Get("email"), limit, offset)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, pageResponse[model.Account]{Items: accounts})
}

// SearchSessions lists sessions whose ID matches the "id" query parameter,
// "*" being the wildcard.
func (h *InspectionHandlers) SearchSessions(w http.ResponseWriter, r *http.Request) {
	limit, _, ok := pageParams(w, r)
	if !ok {
		return
	}

	sessions, err := h.Svc.SearchSessions(r.Context(), r.URL.Query().Get("id"), limit)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, pageResponse[model.Session]{Items: sessions})
}

// ListAudits lists audit records created before the RFC 3339 instant in the
// "createdBefore" query parameter, defaulting to now.
func (h *InspectionHandlers) ListAudits(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pageParams(w, r)
	if !ok {
		return
	}

	var before time.Time
	if raw := r.URL.Query().Get("createdBefore"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			WriteAppError(w, r, &apperrors.AppError{
				Code:    apperrors.ErrCodeValidation,
				Reason:  apperrors.ReasonUnexpected,
				Message: "createdBefore must be an RFC 3339 timestamp",
				Cause:   err,
			})
			return
		}
		before = parsed
	}

	records, err := h.Svc.ListAudits(r.Context(), before, limit, offset)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, pageResponse[model.AuditRecord]{Items: records})
}

// pageParams parses the optional "limit" and "offset" query parameters.
// Reports false after writing the error response when either is malformed.
func pageParams(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	limit, ok = intParam(w, r, "limit")
	if !ok {
		return 0, 0, false
	}
	offset, ok = intParam(w, r, "offset")
	if !ok {
		return 0, 0, false
	}
	return limit, offset, true
}

func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		WriteAppError(w, r, &apperrors.AppError{
			Code:    apperrors.ErrCodeValidation,
			Reason:  apperrors.ReasonUnexpected,
			Message: name + " must be a non-negative integer",
		})
		return 0, false
	}
	return v, true
}
