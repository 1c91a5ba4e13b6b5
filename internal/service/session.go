package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/authbridge/relying-party/internal/errors"

	"github.com/authbridge/relying-party/internal/core"
	"github.com/authbridge/relying-party/internal/data"
	"github.com/authbridge/relying-party/internal/data/cryptoutil"
	"github.com/authbridge/relying-party/internal/domain/auth"
	"github.com/authbridge/relying-party/internal/domain/model"
	"github.com/authbridge/relying-party/internal/ports"
)

// Provider response codes that map to their own client-facing errors. Any
// other failure code collapses into invalid credentials.
const (
	fidoCodeUnknownAuthenticator int64 = 1481
	fidoCodeRevokedAuthenticator int64 = 1493
)

// SessionServiceOptions groups dependencies for SessionService.
type SessionServiceOptions struct {
	Accounts core.AccountRepository
	Sessions ports.SessionStore
	Provider ports.IdentityProvider
	Auditor  *Auditor
	Time     data.TimeProvider
	Period   time.Duration
	Logger   *slog.Logger
}

// SessionService implements session issuance, validation with sliding
// expiry, and termination.
type SessionService struct {
	accounts core.AccountRepository
	sessions ports.SessionStore
	provider ports.IdentityProvider
	auditor  *Auditor
	time     data.TimeProvider
	period   time.Duration
	logger   *slog.Logger
}

// NewSessionService constructs a new SessionService.
func NewSessionService(opts SessionServiceOptions) *SessionService {
	period := opts.Period
	if period <= 0 {
		period = model.DefaultSessionPeriod
	}
	tp := opts.Time
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{
		accounts: opts.Accounts,
		sessions: opts.Sessions,
		provider: opts.Provider,
		auditor:  opts.Auditor,
		time:     tp,
		period:   period,
		logger:   logger,
	}
}

// CreateSession authenticates with either an email/password pair or a FIDO
// authentication response and mints a session. When both credential sets are
// present the password path wins; when neither is present the request is
// rejected with an insufficient-credentials error.
func (s *SessionService) CreateSession(ctx context.Context, req model.CreateSessionRequest) (resp *model.CreateSessionResponse, err error) {
	span := s.auditor.Begin(model.AuditCreateSession)
	defer func() { span.End(ctx) }()

	if req.Email != "" {
		resp, err = s.createWithPassword(ctx, span, req)
		return resp, err
	}
	if req.FIDOAuthenticationResponse != "" {
		resp, err = s.createWithFIDO(ctx, span, req)
		return resp, err
	}
	return nil, apperrors.InsufficientCredentials()
}

func (s *SessionService) createWithPassword(ctx context.Context, span *Span, req model.CreateSessionRequest) (*model.CreateSessionResponse, error) {
	if req.Password == "" {
		return nil, apperrors.MissingField("password", apperrors.ReasonPasswordNotProvided)
	}

	account, err := s.accounts.GetByEmail(ctx, req.Email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			s.logger.Info("password login rejected, no such account", "email", req.Email)
			return nil, apperrors.InvalidCredentials()
		}
		return nil, err
	}
	if !account.HasPasswordCredential() ||
		!cryptoutil.VerifyPassword(req.Password, account.Salt, account.Iterations, account.HashedPassword) {
		s.logger.Info("password login rejected, bad credentials", "account_id", account.ID)
		return nil, apperrors.InvalidCredentials()
	}
	span.SetAccountID(account.ID)

	outcome := auth.Success(&account, auth.MethodPassword, nil)
	return s.finishLogin(ctx, span, outcome)
}

func (s *SessionService) createWithFIDO(ctx context.Context, span *Span, req model.CreateSessionRequest) (*model.CreateSessionResponse, error) {
	if req.AuthenticationRequestID == "" {
		return nil, apperrors.MissingField("authentication request ID", apperrors.ReasonAuthRequestIDNotProvided)
	}

	outcome, err := s.ResolveAuthResponse(ctx, req.AuthenticationRequestID, req.FIDOAuthenticationResponse)
	if err != nil {
		return nil, err
	}
	if outcome.Err != nil {
		return nil, outcome.Err
	}
	if outcome.Account != nil {
		span.SetAccountID(outcome.Account.ID)
	}
	return s.finishLogin(ctx, span, outcome)
}

// ResolveAuthResponse submits a FIDO authentication response and classifies
// the terminal result: a correlated local account, pending artifacts when the
// provider completed without binding a user, or a reason-coded failure.
func (s *SessionService) ResolveAuthResponse(ctx context.Context, requestRef, fidoResponse string) (*auth.Outcome, error) {
	result, err := s.provider.SubmitAuthResponse(ctx, requestRef, fidoResponse)
	if err != nil {
		return nil, err
	}

	artifacts := &auth.ChallengeArtifacts{
		FIDOAuthenticationResponse: result.FIDOAuthenticationResponse,
		FIDOResponseCode:           result.FIDOResponseCode,
		FIDOResponseMsg:            result.FIDOResponseMsg,
	}

	switch result.Status {
	case ports.StatusCompletedSuccessful:
		if result.User == nil {
			// The provider confirmed the response without binding a user.
			// Pass the artifacts through so the client can continue its flow.
			return auth.Pending(artifacts), nil
		}
		account, lookupErr := s.accounts.GetByEmail(ctx, result.User.UserID)
		if lookupErr != nil {
			if apperrors.IsNotFound(lookupErr) {
				s.logger.Error("provider authenticated a user with no local account", "user_id", result.User.UserID)
				return nil, apperrors.FIDOAccountNotFound()
			}
			return nil, lookupErr
		}
		return auth.Success(&account, auth.MethodFIDO, artifacts), nil

	case ports.StatusCompletedFailure:
		return auth.Failure(mapFIDOFailure(result.FIDOResponseCode)), nil

	default:
		return nil, apperrors.Unexpected(
			errors.New("authentication request finished in non-terminal status " + string(result.Status)),
		)
	}
}

// mapFIDOFailure translates a provider failure code into the client-facing
// error, attaching the code and remediation text where the client can act.
func mapFIDOFailure(code *int64) *apperrors.AppError {
	if code == nil {
		return apperrors.InvalidCredentials()
	}
	switch *code {
	case fidoCodeUnknownAuthenticator:
		return apperrors.UnknownAuthenticator().
			WithFIDOResponse(fidoCodeUnknownAuthenticator, "This authenticator is not known - please delete it")
	case fidoCodeRevokedAuthenticator:
		return apperrors.RevokedAuthenticator().
			WithFIDOResponse(fidoCodeRevokedAuthenticator, "This authenticator is no longer valid - please delete it")
	default:
		return apperrors.InvalidCredentials()
	}
}

// finishLogin mints the session for a resolved outcome and assembles the
// response. Pending outcomes pass the provider artifacts through without a
// session.
func (s *SessionService) finishLogin(ctx context.Context, span *Span, outcome *auth.Outcome) (*model.CreateSessionResponse, error) {
	if outcome.Pending != nil {
		return &model.CreateSessionResponse{
			FIDOAuthenticationResponse: outcome.Pending.FIDOAuthenticationResponse,
			FIDOResponseCode:           outcome.Pending.FIDOResponseCode,
			FIDOResponseMsg:            outcome.Pending.FIDOResponseMsg,
		}, nil
	}

	account := outcome.Account
	session, err := s.mint(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	span.SetSessionID(session.ID)

	resp := &model.CreateSessionResponse{
		SessionID:    session.ID,
		LoggedInWith: string(outcome.Method),
		Email:        account.Email,
		FirstName:    account.FirstName,
		LastName:     account.LastName,
		// The previous login time, not this one.
		LastLoggedIn: account.LastLoggedInAt,
	}
	if outcome.Artifacts != nil {
		resp.FIDOAuthenticationResponse = outcome.Artifacts.FIDOAuthenticationResponse
		resp.FIDOResponseCode = outcome.Artifacts.FIDOResponseCode
		resp.FIDOResponseMsg = outcome.Artifacts.FIDOResponseMsg
	}

	if err := s.accounts.SetLastLoggedIn(ctx, account.ID, s.time.Now()); err != nil {
		return nil, err
	}
	s.logger.Info("session created",
		"account_id", account.ID,
		"method", string(outcome.Method),
	)
	return resp, nil
}

// Mint creates and persists a session for an already-authenticated account.
// Account creation uses this for the initial session.
func (s *SessionService) Mint(ctx context.Context, accountID string) (model.Session, error) {
	return s.mint(ctx, accountID)
}

func (s *SessionService) mint(ctx context.Context, accountID string) (model.Session, error) {
	now := s.time.Now()
	session := model.Session{
		ID:        uuid.NewString(),
		AccountID: accountID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.period),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return model.Session{}, apperrors.Dependency("save session", err)
	}
	return session, nil
}

// ValidateSession checks a session and, when valid, slides its expiry
// deadline one full period from now. Missing and expired sessions fail with
// distinct reason codes.
func (s *SessionService) ValidateSession(ctx context.Context, sessionID string) (model.Session, error) {
	if sessionID == "" {
		return model.Session{}, apperrors.UnknownSession()
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ports.ErrSessionNotFound) {
			s.logger.Info("session validation failed, unknown id", "session_id", sessionID)
			return model.Session{}, apperrors.UnknownSession()
		}
		return model.Session{}, apperrors.Dependency("get session", err)
	}

	now := s.time.Now()
	if session.ExpiredAt(now) {
		s.logger.Info("session validation failed, expired", "session_id", sessionID)
		return model.Session{}, apperrors.ExpiredSession()
	}

	session.ExpiresAt = now.Add(s.period)
	if err := s.sessions.Save(ctx, session); err != nil {
		return model.Session{}, apperrors.Dependency("renew session", err)
	}
	return session, nil
}

// DeleteSession is logout: the session must be valid, then it is removed.
func (s *SessionService) DeleteSession(ctx context.Context, sessionID string) (err error) {
	span := s.auditor.Begin(model.AuditDeleteSession)
	defer func() { span.End(ctx) }()

	session, err := s.ValidateSession(ctx, sessionID)
	if err != nil {
		return err
	}
	span.SetAccountID(session.AccountID)
	span.SetSessionID(session.ID)

	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		return apperrors.Dependency("delete session", err)
	}
	s.logger.Info("session deleted", "session_id", session.ID)
	return nil
}
