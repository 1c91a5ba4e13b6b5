package httpx

import (
	"log/slog"
	"net/http"

	apperrors "github.com/authbridge/relying-party/internal/errors"
)

// wireError is the error payload returned to clients. Code carries the stable
// numeric reason so clients can branch without parsing messages.
type wireError struct {
	Code             int    `json:"code"`
	Message          string `json:"message"`
	FIDOResponseCode *int64 `json:"fidoResponseCode,omitempty"`
	FIDOResponseMsg  string `json:"fidoResponseMsg,omitempty"`
}

// WriteAppError translates an application error into the wire error payload.
// Reason-coded errors are client-facing and map to 400 regardless of category.
// Everything else is opaque: the detail goes to the log, the client gets a
// generic payload with reason 1.
func WriteAppError(w http.ResponseWriter, r *http.Request, err error) {
	ae := apperrors.AsAppError(err)

	if ae.Reason == 0 || opaqueCategory(ae.Code) {
		slog.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("method", r.Method),
			slog.String("category", string(ae.Code)),
			slog.Any("error", err),
		)
		WriteJSON(w, http.StatusInternalServerError, wireError{
			Code:    int(apperrors.ReasonUnexpected),
			Message: "An unexpected error occurred",
		})
		return
	}

	WriteJSON(w, http.StatusBadRequest, wireError{
		Code:             int(ae.Reason),
		Message:          ae.Message,
		FIDOResponseCode: ae.FIDOResponseCode,
		FIDOResponseMsg:  ae.FIDOResponseMsg,
	})
}

// opaqueCategory reports whether an error category must never leak its
// message to clients.
func opaqueCategory(code apperrors.ErrorCode) bool {
	switch code {
	case apperrors.ErrCodeConsistency, apperrors.ErrCodeDependency, apperrors.ErrCodeInternal:
		return true
	}
	return false
}
