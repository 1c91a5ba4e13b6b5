package model

import (
	"strings"
	"time"

	apperrors "github.com/authbridge/relying-party/internal/errors"
)

// Account is the local identity and credential record for a user.
// HashedPassword, Salt, and Iterations are either all present or all absent;
// ExternalID links the account to the FIDO provider's user identity and is
// immutable once set.
type Account struct {
	ID             string     `db:"id"               json:"id"`
	Email          string     `db:"email"            json:"email"`
	FirstName      string     `db:"first_name"       json:"firstName"`
	LastName       string     `db:"last_name"        json:"lastName"`
	HashedPassword []byte     `db:"hashed_password"  json:"-"`
	Salt           []byte     `db:"salt"             json:"-"`
	Iterations     int        `db:"iterations"       json:"-"`
	ExternalID     *string    `db:"external_id"      json:"-"`
	CreatedAt      time.Time  `db:"created_at"       json:"createdAt"`
	LastLoggedInAt *time.Time `db:"last_logged_in_at" json:"lastLoggedInAt,omitempty"`
}

// HasPasswordCredential reports whether password authentication is enabled
// for this account.
func (a *Account) HasPasswordCredential() bool {
	return len(a.HashedPassword) > 0 && len(a.Salt) > 0 && a.Iterations > 0
}

// CreateAccountRequest carries the inputs for account creation.
type CreateAccountRequest struct {
	Email                 string `json:"email"`
	Password              string `json:"password"`
	FirstName             string `json:"firstName"`
	LastName              string `json:"lastName"`
	RegistrationRequested bool   `json:"registrationRequested"`
}

// Validate checks required fields in their contract order: the first empty
// field determines the reason code returned to the client.
func (r *CreateAccountRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return apperrors.MissingField("email", apperrors.ReasonEmailNotProvided)
	}
	if r.Password == "" {
		return apperrors.MissingField("password", apperrors.ReasonPasswordNotProvided)
	}
	if strings.TrimSpace(r.FirstName) == "" {
		return apperrors.MissingField("first name", apperrors.ReasonFirstNameNotProvided)
	}
	if strings.TrimSpace(r.LastName) == "" {
		return apperrors.MissingField("last name", apperrors.ReasonLastNameNotProvided)
	}
	return nil
}

// CreateAccountResponse is returned from account creation. The registration
// fields are present only when a FIDO registration was requested.
type CreateAccountResponse struct {
	SessionID               string `json:"sessionId"`
	RegistrationRequestID   string `json:"registrationRequestId,omitempty"`
	FIDORegistrationRequest string `json:"fidoRegistrationRequest,omitempty"`
}

// DeleteAccountResponse carries the FIDO deregistration requests for each
// authenticator that was deactivated upstream before the local delete.
type DeleteAccountResponse struct {
	FIDODeregistrationRequests []AuthenticatorInfo `json:"fidoDeregistrationRequests,omitempty"`
}
