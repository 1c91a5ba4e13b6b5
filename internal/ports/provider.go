package ports

// Package ports defines interfaces (hexagonal ports) for the FIDO identity
// provider and session persistence. Implementations live in
// internal/adapters; orchestration in internal/service.

import (
	"context"
	"errors"

	"github.com/authbridge/relying-party/internal/domain/model"
)

// AuthRequestStatus is the provider-side terminal state of an
// authentication request.
type AuthRequestStatus string

const (
	StatusPending             AuthRequestStatus = "PENDING"
	StatusCompletedSuccessful AuthRequestStatus = "COMPLETED_SUCCESSFUL"
	StatusCompletedFailure    AuthRequestStatus = "COMPLETED_FAILURE"
	StatusExpired             AuthRequestStatus = "EXPIRED"
)

// ProviderUser is the provider's view of an enrolled user. UserID is the
// business identifier (the account email); ID is the provider-generated
// identity the account binds to.
type ProviderUser struct {
	ID     string
	UserID string
}

// RegistrationChallenge is a provider-issued registration artifact. Ref is
// the opaque reference a client submits its response against.
type RegistrationChallenge struct {
	Ref                      string
	FIDORegistrationRequest  string
	FIDORegistrationResponse string
	FIDOResponseCode         *int64
	FIDOResponseMsg          string
}

// RegistrationResult pairs a registration challenge with the provider
// identity it was created for.
type RegistrationResult struct {
	ExternalID string
	Challenge  RegistrationChallenge
}

// AuthRequest is a provider-issued authentication artifact. Ref identifies
// the outstanding request; after submission Status is terminal and User is
// populated when the provider bound the authentication to an enrolled user.
type AuthRequest struct {
	Ref                        string
	FIDOAuthenticationRequest  string
	FIDOAuthenticationResponse string
	Status                     AuthRequestStatus
	FIDOResponseCode           *int64
	FIDOResponseMsg            string
	User                       *ProviderUser
}

// TransactionAuthInput groups parameters for a transaction confirmation
// challenge.
type TransactionAuthInput struct {
	ExternalID  string
	ContentType string
	Content     string
	StepUp      bool
}

// IdentityProvider is the capability interface over the remote FIDO service.
// All operations may fail with a provider-communication error, which the
// core treats as fatal for the current request.
type IdentityProvider interface {
	// CreateRegistration finds or creates the provider user for the given
	// business identifier (email), ensures a registration exists, and issues
	// a fresh registration challenge. When externalID is non-empty the
	// provider user is resolved by identity instead of searched by email.
	CreateRegistration(ctx context.Context, email, externalID string) (*RegistrationResult, error)

	// SubmitRegistrationResponse answers an outstanding registration
	// challenge, creating an authenticator on success. The challenge must
	// belong to the given provider identity.
	SubmitRegistrationResponse(ctx context.Context, externalID, challengeRef, fidoResponse string) (*RegistrationChallenge, error)

	// CreateAuthRequest issues a plain authentication challenge.
	CreateAuthRequest(ctx context.Context) (*AuthRequest, error)

	// CreateTransactionAuthRequest issues a transaction confirmation
	// challenge, bound to the user when step-up is requested.
	CreateTransactionAuthRequest(ctx context.Context, in TransactionAuthInput) (*AuthRequest, error)

	// SubmitAuthResponse answers an outstanding authentication request and
	// returns it with a terminal status.
	SubmitAuthResponse(ctx context.Context, requestRef, fidoResponse string) (*AuthRequest, error)

	// ListAuthenticators returns the active FIDO authenticators for a
	// provider identity.
	ListAuthenticators(ctx context.Context, externalID string) ([]model.AuthenticatorInfo, error)

	// GetAuthenticator returns one authenticator, including its
	// deregistration request. It must belong to the given identity.
	GetAuthenticator(ctx context.Context, externalID, authenticatorID string) (*model.AuthenticatorInfo, error)

	// ArchiveAuthenticator deactivates one authenticator and returns its
	// FIDO deregistration request.
	ArchiveAuthenticator(ctx context.Context, externalID, authenticatorID string) (string, error)

	// DeactivateUser archives all of the identity's FIDO authenticators and
	// then the provider user, returning the deactivated authenticators with
	// their deregistration requests.
	DeactivateUser(ctx context.Context, externalID string) ([]model.AuthenticatorInfo, error)

	// Facets returns the application's trusted-facet document.
	Facets(ctx context.Context) (*model.Facets, error)

	// Policy returns the registration or authentication policy, by kind
	// ("reg" or "auth").
	Policy(ctx context.Context, kind string) (*model.PolicyInfo, error)
}

// ErrSessionNotFound is returned by SessionStore.Get when no record exists
// for the given ID.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists sessions keyed by opaque ID.
// Implementations must keep expired records distinguishable from absent ones
// for at least a retention window, and must support cascade removal by
// account for account deletion.
type SessionStore interface {
	Save(ctx context.Context, sess model.Session) error
	Get(ctx context.Context, id string) (model.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteByAccount(ctx context.Context, accountID string) error
	// FindByIDLike returns up to limit sessions whose ID matches the
	// pattern, in no particular order. "*" is the wildcard; an empty
	// pattern matches everything.
	FindByIDLike(ctx context.Context, pattern string, limit int) ([]model.Session, error)
}
