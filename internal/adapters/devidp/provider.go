package devidp

// Package devidp is an in-process stand-in for the FIDO provider, used in
// local development when no tenant is reachable. Challenges are accepted
// unconditionally; a response equal to "fail" produces a failed
// authentication so error paths can be exercised by hand.

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/authbridge/relying-party/internal/errors"

	"github.com/authbridge/relying-party/internal/domain/model"
	"github.com/authbridge/relying-party/internal/ports"
)

const failResponse = "fail"

var _ ports.IdentityProvider = (*Provider)(nil)

type devUser struct {
	id             string
	userID         string
	authenticators []model.AuthenticatorInfo
}

type devAuthRequest struct {
	ref    string
	userID string // bound user for step-up, empty otherwise
}

// Provider implements ports.IdentityProvider in memory.
type Provider struct {
	mu         sync.Mutex
	users      map[string]*devUser // by provider identity
	byUserID   map[string]string   // business identifier -> provider identity
	challenges map[string]string   // registration challenge ref -> provider identity
	requests   map[string]devAuthRequest
}

// New creates an empty dev provider.
func New() *Provider {
	return &Provider{
		users:      make(map[string]*devUser),
		byUserID:   make(map[string]string),
		challenges: make(map[string]string),
		requests:   make(map[string]devAuthRequest),
	}
}

func (p *Provider) CreateRegistration(_ context.Context, email, externalID string) (*ports.RegistrationResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var user *devUser
	if externalID != "" {
		user = p.users[externalID]
	} else if id, ok := p.byUserID[email]; ok {
		user = p.users[id]
	}
	if user == nil {
		user = &devUser{id: uuid.NewString(), userID: email}
		p.users[user.id] = user
		p.byUserID[email] = user.id
	}

	ref := uuid.NewString()
	p.challenges[ref] = user.id
	return &ports.RegistrationResult{
		ExternalID: user.id,
		Challenge: ports.RegistrationChallenge{
			Ref:                     ref,
			FIDORegistrationRequest: fmt.Sprintf(`{"devRegistrationChallenge":%q}`, ref),
		},
	}, nil
}

func (p *Provider) SubmitRegistrationResponse(_ context.Context, externalID, challengeRef, fidoResponse string) (*ports.RegistrationChallenge, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	owner, ok := p.challenges[challengeRef]
	if !ok {
		return nil, apperrors.NotFoundf("registration challenge %s not found", challengeRef)
	}
	if owner != externalID {
		return nil, apperrors.Consistency(
			fmt.Sprintf("registration challenge %s belongs to provider user %s, not %s", challengeRef, owner, externalID),
		)
	}
	delete(p.challenges, challengeRef)

	now := time.Now()
	user := p.users[owner]
	user.authenticators = append(user.authenticators, model.AuthenticatorInfo{
		ID:      uuid.NewString(),
		Name:    "Dev Authenticator",
		AAID:    "DEV0#0001",
		Status:  "ACTIVE",
		Created: &now,
	})
	return &ports.RegistrationChallenge{
		Ref:                      challengeRef,
		FIDORegistrationResponse: fidoResponse,
	}, nil
}

func (p *Provider) CreateAuthRequest(_ context.Context) (*ports.AuthRequest, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ref := uuid.NewString()
	p.requests[ref] = devAuthRequest{ref: ref}
	return &ports.AuthRequest{
		Ref:                       ref,
		FIDOAuthenticationRequest: fmt.Sprintf(`{"devAuthenticationChallenge":%q}`, ref),
		Status:                    ports.StatusPending,
	}, nil
}

func (p *Provider) CreateTransactionAuthRequest(_ context.Context, in ports.TransactionAuthInput) (*ports.AuthRequest, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.users[in.ExternalID]; !ok {
		return nil, apperrors.Consistency(fmt.Sprintf("provider user %s not found", in.ExternalID))
	}
	req := devAuthRequest{ref: uuid.NewString()}
	if in.StepUp {
		req.userID = in.ExternalID
	}
	p.requests[req.ref] = req
	return &ports.AuthRequest{
		Ref:                       req.ref,
		FIDOAuthenticationRequest: fmt.Sprintf(`{"devTransactionChallenge":%q,"content":%q}`, req.ref, in.Content),
		Status:                    ports.StatusPending,
	}, nil
}

// SubmitAuthResponse treats the response as the email of the user signing in.
// The literal "fail" yields a generic failure.
func (p *Provider) SubmitAuthResponse(_ context.Context, requestRef, fidoResponse string) (*ports.AuthRequest, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	req, ok := p.requests[requestRef]
	if !ok {
		return nil, apperrors.NotFoundf("authentication request %s not found", requestRef)
	}
	delete(p.requests, requestRef)

	if fidoResponse == failResponse {
		code := int64(1480)
		return &ports.AuthRequest{
			Ref:              requestRef,
			Status:           ports.StatusCompletedFailure,
			FIDOResponseCode: &code,
			FIDOResponseMsg:  "dev provider rejected the response",
		}, nil
	}

	out := &ports.AuthRequest{
		Ref:                        requestRef,
		Status:                     ports.StatusCompletedSuccessful,
		FIDOAuthenticationResponse: fmt.Sprintf(`{"devAuthenticationResult":%q}`, requestRef),
	}
	userID := req.userID
	if userID == "" {
		if id, found := p.byUserID[fidoResponse]; found {
			userID = id
		}
	}
	if user, found := p.users[userID]; found {
		out.User = &ports.ProviderUser{ID: user.id, UserID: user.userID}
	}
	return out, nil
}

func (p *Provider) ListAuthenticators(_ context.Context, externalID string) ([]model.AuthenticatorInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	user, ok := p.users[externalID]
	if !ok {
		return nil, apperrors.Consistency(fmt.Sprintf("provider user %s not found", externalID))
	}
	out := make([]model.AuthenticatorInfo, len(user.authenticators))
	copy(out, user.authenticators)
	return out, nil
}

func (p *Provider) GetAuthenticator(_ context.Context, externalID, authenticatorID string) (*model.AuthenticatorInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	user, ok := p.users[externalID]
	if !ok {
		return nil, apperrors.Consistency(fmt.Sprintf("provider user %s not found", externalID))
	}
	for i := range user.authenticators {
		if user.authenticators[i].ID == authenticatorID {
			info := user.authenticators[i]
			info.FIDODeregistrationRequest = fmt.Sprintf(`{"devDeregistration":%q}`, authenticatorID)
			return &info, nil
		}
	}
	return nil, apperrors.NotFoundf("authenticator %s not found", authenticatorID)
}

func (p *Provider) ArchiveAuthenticator(_ context.Context, externalID, authenticatorID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	user, ok := p.users[externalID]
	if !ok {
		return "", apperrors.Consistency(fmt.Sprintf("provider user %s not found", externalID))
	}
	for i := range user.authenticators {
		if user.authenticators[i].ID == authenticatorID {
			user.authenticators[i].Status = "ARCHIVED"
			return fmt.Sprintf(`{"devDeregistration":%q}`, authenticatorID), nil
		}
	}
	return "", apperrors.NotFoundf("authenticator %s not found", authenticatorID)
}

func (p *Provider) DeactivateUser(_ context.Context, externalID string) ([]model.AuthenticatorInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	user, ok := p.users[externalID]
	if !ok {
		return nil, apperrors.Consistency(fmt.Sprintf("provider user %s not found", externalID))
	}
	out := make([]model.AuthenticatorInfo, 0, len(user.authenticators))
	for i := range user.authenticators {
		if user.authenticators[i].Status == "ARCHIVED" {
			continue
		}
		user.authenticators[i].Status = "ARCHIVED"
		info := user.authenticators[i]
		info.FIDODeregistrationRequest = fmt.Sprintf(`{"devDeregistration":%q}`, info.ID)
		out = append(out, info)
	}
	delete(p.byUserID, user.userID)
	delete(p.users, externalID)
	return out, nil
}

func (p *Provider) Facets(_ context.Context) (*model.Facets, error) {
	return &model.Facets{
		TrustedFacets: []model.TrustedFacets{{
			Version: model.FacetVersion{Major: 1, Minor: 0},
			IDs:     []string{"https://localhost"},
		}},
	}, nil
}

func (p *Provider) Policy(_ context.Context, kind string) (*model.PolicyInfo, error) {
	switch kind {
	case "reg", "auth":
		return &model.PolicyInfo{ID: "dev-" + kind + "-policy", Type: kind, Policy: "{}"}, nil
	default:
		return nil, apperrors.NotFoundf("unknown policy %q", kind)
	}
}
