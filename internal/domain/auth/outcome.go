package auth

// Package auth contains domain-level types for credential validation.
// It is pure and free of adapter concerns.

import (
	"github.com/authbridge/relying-party/internal/domain/model"
	apperrors "github.com/authbridge/relying-party/internal/errors"
)

// Method identifies which credential path produced an authentication.
type Method string

const (
	MethodPassword Method = "USERNAME_PASSWORD"
	MethodFIDO     Method = "FIDO_AUTHENTICATION"
)

// ChallengeArtifacts carries the provider response for a FIDO validation
// that completed upstream without a bound user. The caller forwards these
// to the FIDO client instead of minting a session.
type ChallengeArtifacts struct {
	FIDOAuthenticationResponse string
	FIDOResponseCode           *int64
	FIDOResponseMsg            string
}

// Outcome is the ephemeral result of one credential-validation attempt.
// Exactly one of the three states holds:
//
//   - success: Account and Method are set
//   - pending: Pending is set (provider succeeded with no bound user)
//   - failure: Err is set
type Outcome struct {
	Account *model.Account
	Method  Method
	Pending *ChallengeArtifacts
	Err     *apperrors.AppError

	// Artifacts carries the provider response alongside a successful FIDO
	// authentication, for echo back to the client.
	Artifacts *ChallengeArtifacts
}

// Success constructs a successful outcome. Artifacts may be nil for the
// password path.
func Success(account *model.Account, method Method, artifacts *ChallengeArtifacts) *Outcome {
	return &Outcome{Account: account, Method: method, Artifacts: artifacts}
}

// Pending constructs a pending outcome.
func Pending(artifacts *ChallengeArtifacts) *Outcome {
	return &Outcome{Pending: artifacts}
}

// Failure constructs a failed outcome.
func Failure(err *apperrors.AppError) *Outcome {
	return &Outcome{Err: err}
}

// Succeeded reports whether the outcome carries an authenticated account.
func (o *Outcome) Succeeded() bool {
	return o.Err == nil && o.Pending == nil && o.Account != nil
}
