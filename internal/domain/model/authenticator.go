package model

import "time"

// AuthenticatorInfo is the abbreviated view of a provider-side authenticator
// returned to clients. Only the single-get and deactivation flows populate
// FIDODeregistrationRequest.
type AuthenticatorInfo struct {
	ID                        string     `json:"id"`
	Name                      string     `json:"name,omitempty"`
	Description               string     `json:"description,omitempty"`
	VendorName                string     `json:"vendorName,omitempty"`
	Icon                      string     `json:"icon,omitempty"`
	AAID                      string     `json:"aaid,omitempty"`
	Status                    string     `json:"status,omitempty"`
	Created                   *time.Time `json:"created,omitempty"`
	LastUsed                  *time.Time `json:"lastUsed,omitempty"`
	FIDODeregistrationRequest string     `json:"fidoDeregistrationRequest,omitempty"`
}

// CreateAuthRequestResponse returns a provider authentication challenge.
type CreateAuthRequestResponse struct {
	AuthenticationRequestID   string `json:"authenticationRequestId"`
	FIDOAuthenticationRequest string `json:"fidoAuthenticationRequest"`
}

// CreateRegRequestResponse returns a provider registration challenge.
type CreateRegRequestResponse struct {
	RegistrationRequestID   string `json:"registrationRequestId"`
	FIDORegistrationRequest string `json:"fidoRegistrationRequest"`
}

// CreateAuthenticatorRequest submits a FIDO registration response for an
// outstanding registration challenge.
type CreateAuthenticatorRequest struct {
	RegistrationChallengeID  string `json:"registrationChallengeId"`
	FIDORegistrationResponse string `json:"fidoRegistrationResponse"`
}

// CreateAuthenticatorResponse confirms a registration back to the FIDO client.
type CreateAuthenticatorResponse struct {
	FIDORegistrationConfirmation string `json:"fidoRegistrationConfirmation,omitempty"`
	FIDOResponseCode             *int64 `json:"fidoResponseCode,omitempty"`
	FIDOResponseMsg              string `json:"fidoResponseMsg,omitempty"`
}

// CreateTransactionAuthRequest asks the provider for a transaction
// confirmation challenge, optionally bound to the session's user (step-up).
type CreateTransactionAuthRequest struct {
	TransactionContentType string `json:"transactionContentType"`
	TransactionContent     string `json:"transactionContent"`
	StepUpAuth             bool   `json:"stepUpAuth"`
}

// ValidateTransactionAuthRequest submits the FIDO client's answer to a
// transaction confirmation challenge.
type ValidateTransactionAuthRequest struct {
	AuthenticationRequestID    string `json:"authenticationRequestId"`
	FIDOAuthenticationResponse string `json:"fidoAuthenticationResponse"`
}

// ValidateTransactionAuthResponse is the terminal provider result for a
// transaction confirmation.
type ValidateTransactionAuthResponse struct {
	FIDOAuthenticationResponse string `json:"fidoAuthenticationResponse,omitempty"`
	FIDOResponseCode           *int64 `json:"fidoResponseCode,omitempty"`
	FIDOResponseMsg            string `json:"fidoResponseMsg,omitempty"`
}

// ListAuthenticatorsResponse wraps the authenticators registered for the
// session's account.
type ListAuthenticatorsResponse struct {
	Authenticators []AuthenticatorInfo `json:"authenticators"`
}

// GetAuthenticatorResponse wraps a single authenticator.
type GetAuthenticatorResponse struct {
	Authenticator AuthenticatorInfo `json:"authenticator"`
}

// DeleteAuthenticatorResponse carries the deregistration message the client
// must deliver to the FIDO client so the local key is removed too.
type DeleteAuthenticatorResponse struct {
	FIDODeregistrationRequest string `json:"fidoDeregistrationRequest,omitempty"`
}

// PolicyInfo is the abbreviated view of a provider policy.
type PolicyInfo struct {
	ID     string `json:"id"`
	Type   string `json:"type,omitempty"`
	Policy string `json:"policy,omitempty"`
}

// Facets is the provider's trusted-facet document for the application,
// passed through to FIDO clients verbatim.
type Facets struct {
	TrustedFacets []TrustedFacets `json:"trustedFacets"`
}

// TrustedFacets is one version entry in the trusted-facet document.
type TrustedFacets struct {
	Version FacetVersion `json:"version"`
	IDs     []string     `json:"ids"`
}

// FacetVersion identifies the FIDO protocol version of a facet entry.
type FacetVersion struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
}
