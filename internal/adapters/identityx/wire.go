package identityx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	apperrors "github.com/authbridge/relying-party/internal/errors"
)

// Wire types mirror the tenant's JSON resources. Every resource carries its
// canonical href; sub-resources are linked by href and fetched on demand.

type wireRef struct {
	Href string `json:"href,omitempty"`
}

type wireApplication struct {
	ID            string          `json:"id,omitempty"`
	Href          string          `json:"href,omitempty"`
	ApplicationID string          `json:"applicationId,omitempty"`
	Policies      wireRef         `json:"policies,omitempty"`
	FIDOFacets    json.RawMessage `json:"fidoFacets,omitempty"`
}

type wirePolicy struct {
	ID         string          `json:"id,omitempty"`
	Href       string          `json:"href,omitempty"`
	PolicyID   string          `json:"policyId,omitempty"`
	Type       string          `json:"type,omitempty"`
	FIDOPolicy json.RawMessage `json:"fidoPolicy,omitempty"`
}

type wireUser struct {
	ID             string  `json:"id,omitempty"`
	Href           string  `json:"href,omitempty"`
	UserID         string  `json:"userId,omitempty"`
	Status         string  `json:"status,omitempty"`
	Registrations  wireRef `json:"registrations,omitempty"`
	Authenticators wireRef `json:"authenticators,omitempty"`
}

type wireRegistration struct {
	ID             string  `json:"id,omitempty"`
	Href           string  `json:"href,omitempty"`
	RegistrationID string  `json:"registrationId,omitempty"`
	User           wireRef `json:"user,omitempty"`
	Application    wireRef `json:"application,omitempty"`
}

type wireRegistrationChallenge struct {
	ID                       string  `json:"id,omitempty"`
	Href                     string  `json:"href,omitempty"`
	Registration             wireRef `json:"registration,omitempty"`
	Policy                   wireRef `json:"policy,omitempty"`
	FIDORegistrationRequest  string  `json:"fidoRegistrationRequest,omitempty"`
	FIDORegistrationResponse string  `json:"fidoRegistrationResponse,omitempty"`
	Status                   string  `json:"status,omitempty"`
	FIDOResponseCode         *int64  `json:"fidoResponseCode,omitempty"`
	FIDOResponseMsg          string  `json:"fidoResponseMsg,omitempty"`
}

type wireAuthRequest struct {
	ID                           string   `json:"id,omitempty"`
	Href                         string   `json:"href,omitempty"`
	AuthenticationRequestID      string   `json:"authenticationRequestId,omitempty"`
	Description                  string   `json:"description,omitempty"`
	Type                         string   `json:"type,omitempty"`
	Policy                       *wireRef `json:"policy,omitempty"`
	Application                  *wireRef `json:"application,omitempty"`
	User                         *wireRef `json:"user,omitempty"`
	Status                       string   `json:"status,omitempty"`
	FIDOAuthenticationRequest    string   `json:"fidoAuthenticationRequest,omitempty"`
	FIDOAuthenticationResponse   string   `json:"fidoAuthenticationResponse,omitempty"`
	FIDOResponseCode             *int64   `json:"fidoResponseCode,omitempty"`
	FIDOResponseMsg              string   `json:"fidoResponseMsg,omitempty"`
	SecureTransactionContentType string   `json:"secureTransactionContentType,omitempty"`
	SecureTransactionContent     string   `json:"secureTransactionContent,omitempty"`
}

type wireAuthenticator struct {
	ID                        string       `json:"id,omitempty"`
	Href                      string       `json:"href,omitempty"`
	Type                      string       `json:"type,omitempty"`
	Status                    string       `json:"status,omitempty"`
	Created                   *time.Time   `json:"created,omitempty"`
	Updated                   *time.Time   `json:"updated,omitempty"`
	User                      wireRef      `json:"user,omitempty"`
	AuthenticatorType         wireAuthType `json:"authenticatorType,omitempty"`
	FIDODeregistrationRequest string       `json:"fidoDeregistrationRequest,omitempty"`
}

type wireAuthType struct {
	Href        string `json:"href,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	VendorName  string `json:"vendorName,omitempty"`
	Icon        string `json:"icon,omitempty"`
	AAID        string `json:"aaid,omitempty"`
}

type collection[T any] struct {
	Items []T `json:"items"`
}

// --- resource lookups ---

func (c *Client) findApplication(ctx context.Context) (*wireApplication, error) {
	var col collection[wireApplication]
	q := url.Values{"applicationId": {c.applicationID}}
	if err := c.list(ctx, c.resource("/applications"), q, &col); err != nil {
		return nil, err
	}
	switch len(col.Items) {
	case 0:
		return nil, apperrors.Dependency(fmt.Sprintf("identityx: application %q not found", c.applicationID), nil)
	case 1:
		return &col.Items[0], nil
	default:
		return nil, apperrors.Dependency(fmt.Sprintf("identityx: multiple applications match %q", c.applicationID), nil)
	}
}

func (c *Client) findPolicy(ctx context.Context, policyID string) (*wirePolicy, error) {
	var col collection[wirePolicy]
	q := url.Values{"policyId": {policyID}}
	if err := c.list(ctx, c.application.Policies.Href, q, &col); err != nil {
		return nil, err
	}
	switch len(col.Items) {
	case 0:
		return nil, apperrors.Dependency(fmt.Sprintf("identityx: policy %q not found", policyID), nil)
	case 1:
		return &col.Items[0], nil
	default:
		return nil, apperrors.Dependency(fmt.Sprintf("identityx: multiple policies match %q", policyID), nil)
	}
}

// findUser searches by business identifier. A missing user returns nil, nil.
func (c *Client) findUser(ctx context.Context, userID string) (*wireUser, error) {
	var col collection[wireUser]
	q := url.Values{"userId": {userID}}
	if err := c.list(ctx, c.resource("/users"), q, &col); err != nil {
		return nil, err
	}
	switch len(col.Items) {
	case 0:
		return nil, nil
	case 1:
		return &col.Items[0], nil
	default:
		return nil, apperrors.Dependency(fmt.Sprintf("identityx: multiple users match %q", userID), nil)
	}
}

// getUser fetches a user by provider identity. A missing user returns nil, nil.
func (c *Client) getUser(ctx context.Context, id string) (*wireUser, error) {
	var user wireUser
	if err := c.get(ctx, c.resource("/users/"+id), &user); err != nil {
		if errors.Is(err, errRemoteNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (c *Client) addUser(ctx context.Context, userID string) (*wireUser, error) {
	var user wireUser
	if err := c.post(ctx, c.resource("/users"), wireUser{UserID: userID}, &user); err != nil {
		return nil, err
	}
	c.logger.Debug("created provider user", "user_id", userID, "id", user.ID)
	return &user, nil
}

// findRegistration looks up the user's registration for this application.
// A missing registration returns nil, nil.
func (c *Client) findRegistration(ctx context.Context, user *wireUser, registrationID string) (*wireRegistration, error) {
	var col collection[wireRegistration]
	q := url.Values{"registrationId": {registrationID}}
	if err := c.list(ctx, user.Registrations.Href, q, &col); err != nil {
		return nil, err
	}
	if len(col.Items) == 0 {
		return nil, nil
	}
	return &col.Items[0], nil
}

func (c *Client) addRegistration(ctx context.Context, user *wireUser, registrationID string) (*wireRegistration, error) {
	body := wireRegistration{
		RegistrationID: registrationID,
		User:           wireRef{Href: user.Href},
		Application:    wireRef{Href: c.application.Href},
	}
	var reg wireRegistration
	if err := c.post(ctx, c.resource("/registrations"), body, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

func (c *Client) addRegistrationChallenge(ctx context.Context, reg *wireRegistration) (*wireRegistrationChallenge, error) {
	body := wireRegistrationChallenge{
		Registration: wireRef{Href: reg.Href},
		Policy:       wireRef{Href: c.regPolicyHref},
	}
	var challenge wireRegistrationChallenge
	if err := c.post(ctx, c.resource("/registrationChallenges"), body, &challenge); err != nil {
		return nil, err
	}
	c.logger.Debug("created registration challenge", "registration_id", reg.RegistrationID, "challenge_id", challenge.ID)
	return &challenge, nil
}
