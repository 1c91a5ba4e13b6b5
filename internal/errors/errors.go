package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeValidation indicates missing or malformed input.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeAuthentication indicates rejected credentials or an invalid session.
	ErrCodeAuthentication ErrorCode = "authentication"
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict indicates a conflict with existing data (e.g., unique constraint violation).
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeConsistency indicates local and remote state have diverged. Fatal for the request.
	ErrCodeConsistency ErrorCode = "consistency"
	// ErrCodeDependency indicates a provider or store communication failure.
	ErrCodeDependency ErrorCode = "dependency"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "internal"
)

// Reason is the stable numeric code reported to API clients.
// Values are part of the wire contract and must not be renumbered.
type Reason int

const (
	ReasonUnexpected              Reason = 1
	ReasonAccountNotFound         Reason = 10
	ReasonInvalidCredentials      Reason = 11
	ReasonInsufficientCredentials Reason = 12
	ReasonUnknownAuthenticator    Reason = 14
	ReasonRevokedAuthenticator    Reason = 15

	ReasonAuthRequestIDNotProvided Reason = 100
	ReasonPasswordNotProvided      Reason = 101
	ReasonEmailNotProvided         Reason = 102
	ReasonFirstNameNotProvided     Reason = 103
	ReasonLastNameNotProvided      Reason = 104
	ReasonAccountAlreadyExists     Reason = 105

	ReasonFIDOAccountNotFound Reason = 200
	ReasonUnknownSession      Reason = 201
	ReasonExpiredSession      Reason = 202

	ReasonTransactionContentNotProvided Reason = 303
)

// AppError is a structured application error with a category, a stable numeric
// reason code, and an optional cause. It supports errors.Is and errors.As.
// Authentication failures that originate at the FIDO provider additionally
// carry the provider response code and message for client-side remediation.
type AppError struct {
	// Code categorizes the error type.
	Code ErrorCode
	// Reason is the stable numeric code reported to clients. Zero for errors
	// that are never surfaced with a reason of their own (consistency,
	// dependency); those are reported as ReasonUnexpected at the boundary.
	Reason Reason
	// Message is a human-readable error message.
	Message string
	// Field is the specific input field that caused the error (validation only).
	Field string
	// Cause is the underlying error (optional).
	Cause error
	// FIDOResponseCode and FIDOResponseMsg carry the raw provider response
	// for failures the FIDO client can act on (optional).
	FIDOResponseCode *int64
	FIDOResponseMsg  string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithFIDOResponse returns a copy of the error carrying the provider response
// code and message.
func (e *AppError) WithFIDOResponse(code int64, msg string) *AppError {
	out := *e
	out.FIDOResponseCode = &code
	out.FIDOResponseMsg = msg
	return &out
}

// Constructors return fresh values so callers may attach causes or provider
// responses without mutating shared state.

// Unexpected is the opaque error returned for any unanticipated failure.
func Unexpected(cause error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Reason:  ReasonUnexpected,
		Message: "An unexpected error occurred",
		Cause:   cause,
	}
}

// AccountNotFound is returned when an account lookup finds no record.
func AccountNotFound() *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Reason:  ReasonAccountNotFound,
		Message: "The account could not be found",
	}
}

// InvalidCredentials rejects a credential-validation attempt without revealing
// whether the account exists.
func InvalidCredentials() *AppError {
	return &AppError{
		Code:    ErrCodeAuthentication,
		Reason:  ReasonInvalidCredentials,
		Message: "Invalid credentials provided - the user could not be authenticated",
	}
}

// InsufficientCredentials is returned when neither credential path was supplied.
func InsufficientCredentials() *AppError {
	return &AppError{
		Code:    ErrCodeAuthentication,
		Reason:  ReasonInsufficientCredentials,
		Message: "The user cannot be authenticated - please supply an email and password or a FIDO authentication response",
	}
}

// UnknownAuthenticator maps the provider's unknown-authenticator failure.
func UnknownAuthenticator() *AppError {
	return &AppError{
		Code:    ErrCodeAuthentication,
		Reason:  ReasonUnknownAuthenticator,
		Message: "This authenticator is not known by the server",
	}
}

// RevokedAuthenticator maps the provider's deregistered-authenticator failure.
func RevokedAuthenticator() *AppError {
	return &AppError{
		Code:    ErrCodeAuthentication,
		Reason:  ReasonRevokedAuthenticator,
		Message: "This authenticator has been deregistered. It is no longer acceptable",
	}
}

// MissingField returns the validation error for a required request field.
// The reason code is field-specific and part of the API contract.
func MissingField(field string, reason Reason) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Reason:  reason,
		Message: fmt.Sprintf("The %s must be provided", field),
		Field:   field,
	}
}

// AccountAlreadyExists is returned on a duplicate email at persistence time.
func AccountAlreadyExists() *AppError {
	return &AppError{
		Code:    ErrCodeConflict,
		Reason:  ReasonAccountAlreadyExists,
		Message: "An account with this email address already exists",
	}
}

// FIDOAccountNotFound is returned when the provider authenticated a user that
// has no local account. Distinct from InvalidCredentials: upstream auth
// succeeded, local state is missing.
func FIDOAccountNotFound() *AppError {
	return &AppError{
		Code:    ErrCodeAuthentication,
		Reason:  ReasonFIDOAccountNotFound,
		Message: "The user was authenticated by FIDO but this account is not in the system",
	}
}

// UnknownSession rejects a session identifier with no record.
func UnknownSession() *AppError {
	return &AppError{
		Code:    ErrCodeAuthentication,
		Reason:  ReasonUnknownSession,
		Message: "Unknown session identifier",
	}
}

// ExpiredSession rejects a session whose expiry deadline has passed.
func ExpiredSession() *AppError {
	return &AppError{
		Code:    ErrCodeAuthentication,
		Reason:  ReasonExpiredSession,
		Message: "The specified session has expired",
	}
}

// Consistency reports diverged local/remote state. Logged with full detail,
// surfaced to clients as an opaque internal error.
func Consistency(message string) *AppError {
	return &AppError{
		Code:    ErrCodeConsistency,
		Message: message,
	}
}

// Dependency wraps a provider or store communication failure.
func Dependency(message string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeDependency,
		Message: message,
		Cause:   cause,
	}
}

// Internal creates a new internal error.
func Internal(message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
	}
}

// Internalf creates a new internal error with a formatted message.
func Internalf(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: fmt.Sprintf(format, args...),
	}
}

// NotFoundf creates a new not-found error with a formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsAuthentication checks if an error is an authentication error.
func IsAuthentication(err error) bool {
	return isCode(err, ErrCodeAuthentication)
}

// IsNotFound checks if an error is a not-found error.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// IsConflict checks if an error is a conflict error.
func IsConflict(err error) bool {
	return isCode(err, ErrCodeConflict)
}

// IsConsistency checks if an error is a consistency error.
func IsConsistency(err error) bool {
	return isCode(err, ErrCodeConsistency)
}

// IsDependency checks if an error is a dependency error.
func IsDependency(err error) bool {
	return isCode(err, ErrCodeDependency)
}

// GetReason returns the numeric reason from an error, or ReasonUnexpected if
// the error is not an AppError or carries no reason.
func GetReason(err error) Reason {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Reason != 0 {
		return appErr.Reason
	}
	return ReasonUnexpected
}

// AsAppError extracts an *AppError from err, or wraps err as Unexpected.
// The HTTP boundary uses this as its catch-all translation.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Unexpected(err)
}
