package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/authbridge/relying-party/internal/errors"

	"github.com/authbridge/relying-party/internal/core"
	"github.com/authbridge/relying-party/internal/data"
	"github.com/authbridge/relying-party/internal/data/cryptoutil"
	"github.com/authbridge/relying-party/internal/domain/model"
	"github.com/authbridge/relying-party/internal/ports"
)

// AccountServiceOptions groups dependencies for AccountService.
type AccountServiceOptions struct {
	Accounts   core.AccountRepository
	Sessions   ports.SessionStore
	Provider   ports.IdentityProvider
	Auditor    *Auditor
	SessionSvc *SessionService
	Salts      cryptoutil.SaltSource
	Time       data.TimeProvider
	Logger     *slog.Logger
}

// AccountService implements the account lifecycle: creation with password
// hashing and an initial session, and deletion with remote-first cleanup.
type AccountService struct {
	accounts   core.AccountRepository
	sessions   ports.SessionStore
	provider   ports.IdentityProvider
	auditor    *Auditor
	sessionSvc *SessionService
	salts      cryptoutil.SaltSource
	time       data.TimeProvider
	logger     *slog.Logger
}

// NewAccountService constructs a new AccountService.
func NewAccountService(opts AccountServiceOptions) *AccountService {
	salts := opts.Salts
	if salts == nil {
		salts = cryptoutil.RandomSaltSource{}
	}
	tp := opts.Time
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{
		accounts:   opts.Accounts,
		sessions:   opts.Sessions,
		provider:   opts.Provider,
		auditor:    opts.Auditor,
		sessionSvc: opts.SessionSvc,
		salts:      salts,
		time:       tp,
		logger:     logger,
	}
}

// CreateAccount validates the request, hashes the password with a fresh
// per-account salt, persists the account, and mints its initial session.
// When the caller requested FIDO registration, a registration challenge is
// also created and the provider identity bound to the account.
func (s *AccountService) CreateAccount(ctx context.Context, req model.CreateAccountRequest) (resp *model.CreateAccountResponse, err error) {
	span := s.auditor.Begin(model.AuditCreateAccount)
	defer func() { span.End(ctx) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	salt, err := s.salts.NewSalt()
	if err != nil {
		return nil, apperrors.Unexpected(err)
	}

	account := model.Account{
		ID:             uuid.NewString(),
		Email:          strings.TrimSpace(req.Email),
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		HashedPassword: cryptoutil.HashPassword(req.Password, salt, cryptoutil.DefaultIterations),
		Salt:           salt,
		Iterations:     cryptoutil.DefaultIterations,
	}

	account, err = s.accounts.Create(ctx, account)
	if err != nil {
		return nil, err
	}
	span.SetAccountID(account.ID)

	session, err := s.sessionSvc.Mint(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	span.SetSessionID(session.ID)

	resp = &model.CreateAccountResponse{SessionID: session.ID}
	if req.RegistrationRequested {
		reg, regErr := s.provider.CreateRegistration(ctx, account.Email, "")
		if regErr != nil {
			return nil, regErr
		}
		if bindErr := s.accounts.SetExternalID(ctx, account.ID, reg.ExternalID); bindErr != nil {
			return nil, bindErr
		}
		resp.RegistrationRequestID = reg.Challenge.Ref
		resp.FIDORegistrationRequest = reg.Challenge.FIDORegistrationRequest
	}

	s.logger.Info("account created",
		"account_id", account.ID,
		"registration_requested", req.RegistrationRequested,
	)
	return resp, nil
}

// DeleteAccount removes the account bound to the session. Remote cleanup
// runs first: when the account is enrolled with the provider, all of its
// authenticators and the provider user are deactivated before any local
// state is touched, and a remote failure aborts the delete. Afterwards the
// account row and every session for the account are removed.
func (s *AccountService) DeleteAccount(ctx context.Context, sessionID string) (resp *model.DeleteAccountResponse, err error) {
	span := s.auditor.Begin(model.AuditDeleteAccount)
	defer func() { span.End(ctx) }()

	session, err := s.sessionSvc.ValidateSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	span.SetSessionID(session.ID)

	account, err := s.accounts.GetByID(ctx, session.AccountID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.Consistency("session refers to an account that no longer exists")
		}
		return nil, err
	}
	span.SetAccountID(account.ID)

	resp = &model.DeleteAccountResponse{}
	if account.ExternalID != nil {
		deregs, remoteErr := s.provider.DeactivateUser(ctx, *account.ExternalID)
		if remoteErr != nil {
			// Local state stays intact so the operation can be retried.
			return nil, remoteErr
		}
		resp.FIDODeregistrationRequests = deregs
	}

	if err := s.accounts.Delete(ctx, account.ID); err != nil {
		return nil, err
	}
	if err := s.sessions.DeleteByAccount(ctx, account.ID); err != nil {
		return nil, apperrors.Dependency("delete account sessions", err)
	}

	s.logger.Info("account deleted",
		"account_id", account.ID,
		"deregistration_requests", len(resp.FIDODeregistrationRequests),
	)
	return resp, nil
}
