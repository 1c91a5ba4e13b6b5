package service

import (
	"context"
	"log/slog"
	"strings"

	apperrors "github.com/authbridge/relying-party/internal/errors"

	"github.com/authbridge/relying-party/internal/core"
	"github.com/authbridge/relying-party/internal/domain/model"
	"github.com/authbridge/relying-party/internal/ports"
)

// AuthenticatorServiceOptions groups dependencies for AuthenticatorService.
type AuthenticatorServiceOptions struct {
	Accounts   core.AccountRepository
	Provider   ports.IdentityProvider
	Auditor    *Auditor
	SessionSvc *SessionService
	Logger     *slog.Logger
}

// AuthenticatorService fronts the provider-backed FIDO operations:
// challenges, authenticator management, transaction confirmation, facets,
// and policies.
type AuthenticatorService struct {
	accounts   core.AccountRepository
	provider   ports.IdentityProvider
	auditor    *Auditor
	sessionSvc *SessionService
	logger     *slog.Logger
}

// NewAuthenticatorService constructs a new AuthenticatorService.
func NewAuthenticatorService(opts AuthenticatorServiceOptions) *AuthenticatorService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthenticatorService{
		accounts:   opts.Accounts,
		provider:   opts.Provider,
		auditor:    opts.Auditor,
		sessionSvc: opts.SessionSvc,
		logger:     logger,
	}
}

// CreateAuthRequest issues an anonymous FIDO authentication challenge. No
// session is required; the challenge is how a FIDO login starts.
func (s *AuthenticatorService) CreateAuthRequest(ctx context.Context) (resp *model.CreateAuthRequestResponse, err error) {
	span := s.auditor.Begin(model.AuditCreateAuthRequest)
	defer func() { span.End(ctx) }()

	request, err := s.provider.CreateAuthRequest(ctx)
	if err != nil {
		return nil, err
	}
	return &model.CreateAuthRequestResponse{
		AuthenticationRequestID:   request.Ref,
		FIDOAuthenticationRequest: request.FIDOAuthenticationRequest,
	}, nil
}

// CreateRegRequest issues a registration challenge for the session's
// account. The first registration binds the provider identity to the
// account; on later calls a provider identity that no longer matches the
// stored binding is fatal.
func (s *AuthenticatorService) CreateRegRequest(ctx context.Context, sessionID string) (resp *model.CreateRegRequestResponse, err error) {
	span := s.auditor.Begin(model.AuditCreateRegRequest)
	defer func() { span.End(ctx) }()

	account, err := s.resolveAccount(ctx, span, sessionID)
	if err != nil {
		return nil, err
	}

	externalID := ""
	if account.ExternalID != nil {
		externalID = *account.ExternalID
	}
	reg, err := s.provider.CreateRegistration(ctx, account.Email, externalID)
	if err != nil {
		return nil, err
	}

	if account.ExternalID == nil {
		if err := s.accounts.SetExternalID(ctx, account.ID, reg.ExternalID); err != nil {
			return nil, err
		}
	} else if *account.ExternalID != reg.ExternalID {
		return nil, apperrors.Consistency(
			"provider identity for account " + account.ID + " does not match the stored binding",
		)
	}

	return &model.CreateRegRequestResponse{
		RegistrationRequestID:   reg.Challenge.Ref,
		FIDORegistrationRequest: reg.Challenge.FIDORegistrationRequest,
	}, nil
}

// CreateAuthenticator submits the FIDO client's registration response,
// completing an outstanding registration challenge for the session's account.
func (s *AuthenticatorService) CreateAuthenticator(ctx context.Context, sessionID string, req model.CreateAuthenticatorRequest) (resp *model.CreateAuthenticatorResponse, err error) {
	span := s.auditor.Begin(model.AuditCreateAuthenticator)
	defer func() { span.End(ctx) }()

	account, err := s.resolveAccount(ctx, span, sessionID)
	if err != nil {
		return nil, err
	}
	if req.RegistrationChallengeID == "" {
		return nil, apperrors.MissingField("registration challenge ID", apperrors.ReasonAuthRequestIDNotProvided)
	}
	externalID, err := requireEnrollment(account)
	if err != nil {
		return nil, err
	}

	challenge, err := s.provider.SubmitRegistrationResponse(ctx, externalID, req.RegistrationChallengeID, req.FIDORegistrationResponse)
	if err != nil {
		return nil, err
	}

	s.logger.Info("authenticator created", "account_id", account.ID)
	return &model.CreateAuthenticatorResponse{
		FIDORegistrationConfirmation: challenge.FIDORegistrationResponse,
		FIDOResponseCode:             challenge.FIDOResponseCode,
		FIDOResponseMsg:              challenge.FIDOResponseMsg,
	}, nil
}

// ListAuthenticators returns the FIDO authenticators registered for the
// session's account. Deregistration requests are omitted from listings.
func (s *AuthenticatorService) ListAuthenticators(ctx context.Context, sessionID string) (resp *model.ListAuthenticatorsResponse, err error) {
	span := s.auditor.Begin(model.AuditListAuthenticators)
	defer func() { span.End(ctx) }()

	account, err := s.resolveAccount(ctx, span, sessionID)
	if err != nil {
		return nil, err
	}

	if account.ExternalID == nil {
		return &model.ListAuthenticatorsResponse{Authenticators: []model.AuthenticatorInfo{}}, nil
	}
	infos, err := s.provider.ListAuthenticators(ctx, *account.ExternalID)
	if err != nil {
		return nil, err
	}
	for i := range infos {
		infos[i].FIDODeregistrationRequest = ""
	}
	return &model.ListAuthenticatorsResponse{Authenticators: infos}, nil
}

// GetAuthenticator returns the full detail of one authenticator, including
// its deregistration request.
func (s *AuthenticatorService) GetAuthenticator(ctx context.Context, sessionID, authenticatorID string) (resp *model.GetAuthenticatorResponse, err error) {
	span := s.auditor.Begin(model.AuditGetAuthenticator)
	defer func() { span.End(ctx) }()

	account, err := s.resolveAccount(ctx, span, sessionID)
	if err != nil {
		return nil, err
	}
	externalID, err := requireEnrollment(account)
	if err != nil {
		return nil, err
	}

	info, err := s.provider.GetAuthenticator(ctx, externalID, authenticatorID)
	if err != nil {
		return nil, err
	}
	return &model.GetAuthenticatorResponse{Authenticator: *info}, nil
}

// DeleteAuthenticator deactivates one authenticator and returns its FIDO
// deregistration request for the client to process.
func (s *AuthenticatorService) DeleteAuthenticator(ctx context.Context, sessionID, authenticatorID string) (deregistration string, err error) {
	span := s.auditor.Begin(model.AuditDeleteAuthenticator)
	defer func() { span.End(ctx) }()

	account, err := s.resolveAccount(ctx, span, sessionID)
	if err != nil {
		return "", err
	}
	externalID, err := requireEnrollment(account)
	if err != nil {
		return "", err
	}

	dereg, err := s.provider.ArchiveAuthenticator(ctx, externalID, authenticatorID)
	if err != nil {
		return "", err
	}
	s.logger.Info("authenticator deleted", "account_id", account.ID, "authenticator_id", authenticatorID)
	return dereg, nil
}

// CreateTransactionAuthRequest issues a transaction confirmation challenge
// for the session's account. Content is required; the content type defaults
// to plain text.
func (s *AuthenticatorService) CreateTransactionAuthRequest(ctx context.Context, sessionID string, req model.CreateTransactionAuthRequest) (resp *model.CreateAuthRequestResponse, err error) {
	span := s.auditor.Begin(model.AuditCreateTransactionAuth)
	defer func() { span.End(ctx) }()

	account, err := s.resolveAccount(ctx, span, sessionID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.TransactionContent) == "" {
		return nil, apperrors.MissingField("transaction content", apperrors.ReasonTransactionContentNotProvided)
	}
	externalID, err := requireEnrollment(account)
	if err != nil {
		return nil, err
	}

	contentType := req.TransactionContentType
	if contentType == "" {
		contentType = "text/plain"
	}
	request, err := s.provider.CreateTransactionAuthRequest(ctx, ports.TransactionAuthInput{
		ExternalID:  externalID,
		ContentType: contentType,
		Content:     req.TransactionContent,
		StepUp:      req.StepUpAuth,
	})
	if err != nil {
		return nil, err
	}
	return &model.CreateAuthRequestResponse{
		AuthenticationRequestID:   request.Ref,
		FIDOAuthenticationRequest: request.FIDOAuthenticationRequest,
	}, nil
}

// ValidateTransactionAuth submits the FIDO client's answer to a transaction
// confirmation challenge and reports the provider's terminal result. Unlike
// session creation no new session is minted.
func (s *AuthenticatorService) ValidateTransactionAuth(ctx context.Context, sessionID string, req model.ValidateTransactionAuthRequest) (resp *model.ValidateTransactionAuthResponse, err error) {
	span := s.auditor.Begin(model.AuditValidateTransactionAuth)
	defer func() { span.End(ctx) }()

	if _, err := s.resolveAccount(ctx, span, sessionID); err != nil {
		return nil, err
	}
	if req.AuthenticationRequestID == "" {
		return nil, apperrors.MissingField("authentication request ID", apperrors.ReasonAuthRequestIDNotProvided)
	}

	outcome, err := s.sessionSvc.ResolveAuthResponse(ctx, req.AuthenticationRequestID, req.FIDOAuthenticationResponse)
	if err != nil {
		return nil, err
	}
	if outcome.Err != nil {
		return nil, outcome.Err
	}

	artifacts := outcome.Artifacts
	if artifacts == nil {
		artifacts = outcome.Pending
	}
	resp = &model.ValidateTransactionAuthResponse{}
	if artifacts != nil {
		resp.FIDOAuthenticationResponse = artifacts.FIDOAuthenticationResponse
		resp.FIDOResponseCode = artifacts.FIDOResponseCode
		resp.FIDOResponseMsg = artifacts.FIDOResponseMsg
	}
	return resp, nil
}

// Facets returns the application's trusted-facet document. Anonymous.
func (s *AuthenticatorService) Facets(ctx context.Context) (resp *model.Facets, err error) {
	span := s.auditor.Begin(model.AuditGetFacets)
	defer func() { span.End(ctx) }()

	return s.provider.Facets(ctx)
}

// Policy returns the registration or authentication policy for the
// session's account.
func (s *AuthenticatorService) Policy(ctx context.Context, sessionID, kind string) (resp *model.PolicyInfo, err error) {
	span := s.auditor.Begin(model.AuditGetPolicy)
	defer func() { span.End(ctx) }()

	if _, err := s.resolveAccount(ctx, span, sessionID); err != nil {
		return nil, err
	}
	return s.provider.Policy(ctx, strings.ToLower(kind))
}

// resolveAccount validates the session (sliding its expiry) and loads the
// bound account, attaching both to the audit span.
func (s *AuthenticatorService) resolveAccount(ctx context.Context, span *Span, sessionID string) (model.Account, error) {
	session, err := s.sessionSvc.ValidateSession(ctx, sessionID)
	if err != nil {
		return model.Account{}, err
	}
	span.SetSessionID(session.ID)

	account, err := s.accounts.GetByID(ctx, session.AccountID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return model.Account{}, apperrors.Consistency("session refers to an account that no longer exists")
		}
		return model.Account{}, err
	}
	span.SetAccountID(account.ID)
	return account, nil
}

// requireEnrollment returns the account's provider identity or fails when
// the account never started a FIDO registration.
func requireEnrollment(account model.Account) (string, error) {
	if account.ExternalID == nil || *account.ExternalID == "" {
		return "", apperrors.FIDOAccountNotFound()
	}
	return *account.ExternalID, nil
}
