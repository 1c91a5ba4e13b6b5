package identityx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/authbridge/relying-party/internal/errors"

	"github.com/authbridge/relying-party/internal/domain/model"
	"github.com/authbridge/relying-party/internal/ports"
)

// fidoType marks FIDO authentication requests and authenticators at the
// tenant; other types (SMS OTP etc.) are filtered out.
const fidoType = "FI"

const (
	statusArchived = "ARCHIVED"

	authTypeCachePrefix = "idx:authtype:"
	authTypeCacheTTL    = 12 * time.Hour
)

var _ ports.IdentityProvider = (*Client)(nil)

// CreateRegistration resolves or creates the provider user, ensures a
// registration exists for the application, and issues a fresh challenge.
func (c *Client) CreateRegistration(ctx context.Context, email, externalID string) (*ports.RegistrationResult, error) {
	var (
		user *wireUser
		err  error
	)
	if externalID != "" {
		user, err = c.getUser(ctx, externalID)
	} else {
		user, err = c.findUser(ctx, email)
	}
	if err != nil {
		return nil, err
	}
	if user == nil {
		if user, err = c.addUser(ctx, email); err != nil {
			return nil, err
		}
	}

	reg, err := c.findRegistration(ctx, user, email)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		if reg, err = c.addRegistration(ctx, user, email); err != nil {
			return nil, err
		}
	}

	challenge, err := c.addRegistrationChallenge(ctx, reg)
	if err != nil {
		return nil, err
	}
	return &ports.RegistrationResult{
		ExternalID: user.ID,
		Challenge:  registrationChallengeFromWire(challenge),
	}, nil
}

// SubmitRegistrationResponse answers an outstanding registration challenge.
// A challenge belonging to another provider identity is a consistency fault.
func (c *Client) SubmitRegistrationResponse(ctx context.Context, externalID, challengeRef, fidoResponse string) (*ports.RegistrationChallenge, error) {
	var challenge wireRegistrationChallenge
	if err := c.get(ctx, c.resource("/registrationChallenges/"+challengeRef), &challenge); err != nil {
		if errors.Is(err, errRemoteNotFound) {
			return nil, apperrors.NotFoundf("registration challenge %s not found", challengeRef)
		}
		return nil, err
	}

	var reg wireRegistration
	if err := c.get(ctx, challenge.Registration.Href, &reg); err != nil {
		return nil, err
	}
	if owner := idFromHref(reg.User.Href); owner != externalID {
		return nil, apperrors.Consistency(
			fmt.Sprintf("registration challenge %s belongs to provider user %s, not %s", challengeRef, owner, externalID),
		)
	}

	challenge.FIDORegistrationResponse = fidoResponse
	var updated wireRegistrationChallenge
	if err := c.put(ctx, challenge.Href, challenge, &updated); err != nil {
		return nil, err
	}
	out := registrationChallengeFromWire(&updated)
	return &out, nil
}

// CreateAuthRequest issues a plain FIDO authentication challenge.
func (c *Client) CreateAuthRequest(ctx context.Context) (*ports.AuthRequest, error) {
	body := wireAuthRequest{
		Policy:      &wireRef{Href: c.authPolicyHref},
		Application: &wireRef{Href: c.application.Href},
		Type:        fidoType,
	}
	var created wireAuthRequest
	if err := c.post(ctx, c.resource("/authenticationRequests"), body, &created); err != nil {
		return nil, err
	}
	c.logger.Debug("created authentication request", "request_id", created.ID)
	return authRequestFromWire(&created), nil
}

// CreateTransactionAuthRequest issues a transaction confirmation challenge.
// With step-up the request is bound to the provider user, forcing a fresh
// FIDO authentication by that user specifically.
func (c *Client) CreateTransactionAuthRequest(ctx context.Context, in ports.TransactionAuthInput) (*ports.AuthRequest, error) {
	user, err := c.getUser(ctx, in.ExternalID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.Consistency(fmt.Sprintf("provider user %s not found", in.ExternalID))
	}
	body := wireAuthRequest{
		Policy:                       &wireRef{Href: c.authPolicyHref},
		Application:                  &wireRef{Href: c.application.Href},
		Type:                         fidoType,
		SecureTransactionContentType: in.ContentType,
		SecureTransactionContent:     in.Content,
	}
	if in.StepUp {
		body.User = &wireRef{Href: user.Href}
	}
	var created wireAuthRequest
	if err := c.post(ctx, c.resource("/authenticationRequests"), body, &created); err != nil {
		return nil, err
	}
	return authRequestFromWire(&created), nil
}

// SubmitAuthResponse answers an outstanding authentication request and
// returns the terminal result. On success the bound user is expanded so the
// caller can correlate it with a local account.
func (c *Client) SubmitAuthResponse(ctx context.Context, requestRef, fidoResponse string) (*ports.AuthRequest, error) {
	var request wireAuthRequest
	if err := c.get(ctx, c.resource("/authenticationRequests/"+requestRef), &request); err != nil {
		if errors.Is(err, errRemoteNotFound) {
			return nil, apperrors.NotFoundf("authentication request %s not found", requestRef)
		}
		return nil, err
	}

	request.FIDOAuthenticationResponse = fidoResponse
	var updated wireAuthRequest
	if err := c.put(ctx, request.Href, request, &updated); err != nil {
		return nil, err
	}

	out := authRequestFromWire(&updated)
	if out.Status == ports.StatusCompletedSuccessful && updated.User != nil && updated.User.Href != "" {
		user, err := c.getUser(ctx, idFromHref(updated.User.Href))
		if err != nil {
			return nil, err
		}
		if user != nil {
			out.User = &ports.ProviderUser{ID: user.ID, UserID: user.UserID}
		}
	}
	return out, nil
}

// ListAuthenticators returns the user's FIDO authenticators. The listing
// omits deregistration requests; GetAuthenticator includes them.
func (c *Client) ListAuthenticators(ctx context.Context, externalID string) ([]model.AuthenticatorInfo, error) {
	user, err := c.getUser(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.Consistency(fmt.Sprintf("provider user %s not found", externalID))
	}

	auths, err := c.getAuthenticators(ctx, user.Authenticators.Href)
	if err != nil {
		return nil, err
	}

	infos := make([]model.AuthenticatorInfo, 0, len(auths))
	for i := range auths {
		if auths[i].Type != fidoType {
			continue
		}
		infos = append(infos, c.toAuthenticatorInfo(&auths[i]))
	}
	return infos, nil
}

// GetAuthenticator returns the full detail of one authenticator, including
// its FIDO deregistration request. An authenticator belonging to another
// user is rejected.
func (c *Client) GetAuthenticator(ctx context.Context, externalID, authenticatorID string) (*model.AuthenticatorInfo, error) {
	auth, err := c.getAuthenticatorOwned(ctx, externalID, authenticatorID)
	if err != nil {
		return nil, err
	}
	if err := c.expandAuthenticatorType(ctx, auth); err != nil {
		return nil, err
	}
	info := c.toAuthenticatorInfo(auth)
	return &info, nil
}

// ArchiveAuthenticator deactivates one authenticator and returns its FIDO
// deregistration request.
func (c *Client) ArchiveAuthenticator(ctx context.Context, externalID, authenticatorID string) (string, error) {
	auth, err := c.getAuthenticatorOwned(ctx, externalID, authenticatorID)
	if err != nil {
		return "", err
	}
	archived, err := c.archiveAuthenticator(ctx, auth)
	if err != nil {
		return "", err
	}
	return archived.FIDODeregistrationRequest, nil
}

// DeactivateUser archives all active FIDO authenticators and then the user
// itself. Returns the deactivated authenticators with their deregistration
// requests so clients can clean up local key material.
func (c *Client) DeactivateUser(ctx context.Context, externalID string) ([]model.AuthenticatorInfo, error) {
	user, err := c.getUser(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.Consistency(fmt.Sprintf("provider user %s not found", externalID))
	}

	auths, err := c.getAuthenticators(ctx, user.Authenticators.Href)
	if err != nil {
		return nil, err
	}

	infos := make([]model.AuthenticatorInfo, 0, len(auths))
	for i := range auths {
		if auths[i].Type != fidoType || auths[i].Status == statusArchived {
			continue
		}
		archived, archiveErr := c.archiveAuthenticator(ctx, &auths[i])
		if archiveErr != nil {
			return nil, archiveErr
		}
		if expandErr := c.expandAuthenticatorType(ctx, archived); expandErr != nil {
			return nil, expandErr
		}
		infos = append(infos, c.toAuthenticatorInfo(archived))
	}

	if err := c.post(ctx, user.Href+"/archived", nil, nil); err != nil {
		return nil, err
	}
	c.logger.Info("deactivated provider user", "external_id", externalID, "authenticators", len(infos))
	return infos, nil
}

// Facets returns the application's trusted-facet document.
func (c *Client) Facets(ctx context.Context) (*model.Facets, error) {
	app, err := c.findApplication(ctx)
	if err != nil {
		return nil, err
	}
	var facets model.Facets
	if len(app.FIDOFacets) > 0 {
		if err := json.Unmarshal(app.FIDOFacets, &facets); err != nil {
			return nil, apperrors.Dependency("identityx: decode facets", err)
		}
	}
	return &facets, nil
}

// Policy returns the registration ("reg") or authentication ("auth") policy.
// The list operation omits the FIDO policy body, so the resolved href is
// fetched directly.
func (c *Client) Policy(ctx context.Context, kind string) (*model.PolicyInfo, error) {
	var href string
	switch kind {
	case "reg":
		href = c.regPolicyHref
	case "auth":
		href = c.authPolicyHref
	default:
		return nil, apperrors.NotFoundf("unknown policy %q", kind)
	}

	var policy wirePolicy
	if err := c.get(ctx, href, &policy); err != nil {
		return nil, err
	}
	info := &model.PolicyInfo{ID: policy.ID, Type: policy.Type}
	if len(policy.FIDOPolicy) > 0 {
		info.Policy = string(policy.FIDOPolicy)
	}
	return info, nil
}

// --- helpers ---

// getAuthenticatorOwned fetches an authenticator and verifies it belongs to
// the given provider identity.
func (c *Client) getAuthenticatorOwned(ctx context.Context, externalID, authenticatorID string) (*wireAuthenticator, error) {
	var auth wireAuthenticator
	if err := c.get(ctx, c.resource("/authenticators/"+authenticatorID), &auth); err != nil {
		if errors.Is(err, errRemoteNotFound) {
			return nil, apperrors.NotFoundf("authenticator %s not found", authenticatorID)
		}
		return nil, err
	}
	if owner := idFromHref(auth.User.Href); owner != externalID {
		return nil, apperrors.Consistency(
			fmt.Sprintf("authenticator %s belongs to provider user %s, not %s", authenticatorID, owner, externalID),
		)
	}
	return &auth, nil
}

func (c *Client) archiveAuthenticator(ctx context.Context, auth *wireAuthenticator) (*wireAuthenticator, error) {
	var archived wireAuthenticator
	if err := c.post(ctx, auth.Href+"/archived", nil, &archived); err != nil {
		return nil, err
	}
	return &archived, nil
}

// getAuthenticators lists a user's authenticators with their type metadata
// expanded.
func (c *Client) getAuthenticators(ctx context.Context, href string) ([]wireAuthenticator, error) {
	var col collection[wireAuthenticator]
	if err := c.list(ctx, href, nil, &col); err != nil {
		return nil, err
	}
	for i := range col.Items {
		if err := c.expandAuthenticatorType(ctx, &col.Items[i]); err != nil {
			return nil, err
		}
	}
	return col.Items, nil
}

// expandAuthenticatorType fills in the full authenticator-type metadata,
// going through the injected cache first. Type records are immutable at the
// tenant, so a long TTL is safe; cache failures fall through to a fetch.
func (c *Client) expandAuthenticatorType(ctx context.Context, auth *wireAuthenticator) error {
	if auth.AuthenticatorType.AAID != "" || auth.AuthenticatorType.Href == "" {
		return nil
	}

	key := authTypeCachePrefix + auth.AuthenticatorType.Href
	if data, err := c.cache.Get(ctx, key); err == nil && data != nil {
		var cached wireAuthType
		if err := json.Unmarshal(data, &cached); err == nil {
			auth.AuthenticatorType = cached
			return nil
		}
	}

	var full wireAuthType
	if err := c.get(ctx, auth.AuthenticatorType.Href, &full); err != nil {
		return err
	}
	auth.AuthenticatorType = full

	if data, err := json.Marshal(full); err == nil {
		if err := c.cache.Set(ctx, key, data, authTypeCacheTTL); err != nil {
			c.logger.Warn("authenticator type cache write failed", "error", err)
		}
	}
	return nil
}

func (c *Client) toAuthenticatorInfo(auth *wireAuthenticator) model.AuthenticatorInfo {
	return model.AuthenticatorInfo{
		ID:                        auth.ID,
		Name:                      auth.AuthenticatorType.Name,
		Description:               auth.AuthenticatorType.Description,
		VendorName:                auth.AuthenticatorType.VendorName,
		Icon:                      auth.AuthenticatorType.Icon,
		AAID:                      auth.AuthenticatorType.AAID,
		Status:                    auth.Status,
		Created:                   auth.Created,
		LastUsed:                  auth.Updated,
		FIDODeregistrationRequest: auth.FIDODeregistrationRequest,
	}
}

func registrationChallengeFromWire(ch *wireRegistrationChallenge) ports.RegistrationChallenge {
	return ports.RegistrationChallenge{
		Ref:                      ch.ID,
		FIDORegistrationRequest:  ch.FIDORegistrationRequest,
		FIDORegistrationResponse: ch.FIDORegistrationResponse,
		FIDOResponseCode:         ch.FIDOResponseCode,
		FIDOResponseMsg:          ch.FIDOResponseMsg,
	}
}

func authRequestFromWire(req *wireAuthRequest) *ports.AuthRequest {
	return &ports.AuthRequest{
		Ref:                        req.ID,
		FIDOAuthenticationRequest:  req.FIDOAuthenticationRequest,
		FIDOAuthenticationResponse: req.FIDOAuthenticationResponse,
		Status:                     ports.AuthRequestStatus(req.Status),
		FIDOResponseCode:           req.FIDOResponseCode,
		FIDOResponseMsg:            req.FIDOResponseMsg,
	}
}
