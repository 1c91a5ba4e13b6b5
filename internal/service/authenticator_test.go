package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authbridge/relying-party/internal/data"
	"github.com/authbridge/relying-party/internal/domain/model"
	apperrors "github.com/authbridge/relying-party/internal/errors"
	"github.com/authbridge/relying-party/internal/mocks/idp"
	"github.com/authbridge/relying-party/internal/ports"
)

type authenticatorFixture struct {
	accounts   *idp.MemoryAccountRepo
	store      *idp.MemorySessionStore
	provider   *idp.MockProvider
	audits     *idp.MemoryAuditRepo
	clock      *data.FixedTimeProvider
	sessionSvc *SessionService
	accountSvc *AccountService
	svc        *AuthenticatorService
}

func newAuthenticatorFixture(t *testing.T) *authenticatorFixture {
	t.Helper()

	f := &authenticatorFixture{
		accounts: idp.NewMemoryAccountRepo(),
		store:    idp.NewMemorySessionStore(),
		provider: &idp.MockProvider{},
		audits:   idp.NewMemoryAuditRepo(),
		clock:    data.NewFixedTimeProvider(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	}
	auditor := NewAuditor(AuditorOptions{Repo: f.audits, Time: f.clock})
	f.sessionSvc = NewSessionService(SessionServiceOptions{
		Accounts: f.accounts,
		Sessions: f.store,
		Provider: f.provider,
		Auditor:  auditor,
		Time:     f.clock,
		Period:   15 * time.Minute,
	})
	f.accountSvc = NewAccountService(AccountServiceOptions{
		Accounts:   f.accounts,
		Sessions:   f.store,
		Provider:   f.provider,
		Auditor:    auditor,
		SessionSvc: f.sessionSvc,
		Time:       f.clock,
	})
	f.svc = NewAuthenticatorService(AuthenticatorServiceOptions{
		Accounts:   f.accounts,
		Provider:   f.provider,
		Auditor:    auditor,
		SessionSvc: f.sessionSvc,
	})
	return f
}

// seedAccount creates an account and returns its session ID. Enrolled
// accounts additionally carry the provider identity binding.
func (f *authenticatorFixture) seedAccount(t *testing.T, enrolled bool) string {
	t.Helper()

	req := validCreateAccountRequest()
	req.RegistrationRequested = enrolled
	created, err := f.accountSvc.CreateAccount(context.Background(), req)
	require.NoError(t, err)
	return created.SessionID
}

func TestCreateAuthRequest_Anonymous(t *testing.T) {
	f := newAuthenticatorFixture(t)
	f.provider.CreateAuthRequestFunc = func(context.Context) (*ports.AuthRequest, error) {
		return &ports.AuthRequest{
			Ref:                       "auth-1",
			FIDOAuthenticationRequest: "challenge-payload",
		}, nil
	}

	resp, err := f.svc.CreateAuthRequest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "auth-1", resp.AuthenticationRequestID)
	assert.Equal(t, "challenge-payload", resp.FIDOAuthenticationRequest)
}

func TestCreateRegRequest_BindsExternalID(t *testing.T) {
	f := newAuthenticatorFixture(t)
	sessionID := f.seedAccount(t, false)
	ctx := context.Background()

	resp, err := f.svc.CreateRegRequest(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, "reg-challenge-1", resp.RegistrationRequestID)
	assert.Equal(t, "{}", resp.FIDORegistrationRequest)

	account, err := f.accounts.GetByEmail(ctx, "pat@example.com")
	require.NoError(t, err)
	require.NotNil(t, account.ExternalID)
	assert.Equal(t, "ext-pat@example.com", *account.ExternalID)
}

func TestCreateRegRequest_ReusesExistingBinding(t *testing.T) {
	f := newAuthenticatorFixture(t)
	sessionID := f.seedAccount(t, true)

	var gotExternalID string
	f.provider.CreateRegistrationFunc = func(_ context.Context, email, externalID string) (*ports.RegistrationResult, error) {
		gotExternalID = externalID
		return &ports.RegistrationResult{
			ExternalID: externalID,
			Challenge:  ports.RegistrationChallenge{Ref: "reg-challenge-2"},
		}, nil
	}

	resp, err := f.svc.CreateRegRequest(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, "ext-pat@example.com", gotExternalID)
	assert.Equal(t, "reg-challenge-2", resp.RegistrationRequestID)
}

func TestCreateRegRequest_DivergedBindingIsFatal(t *testing.T) {
	f := newAuthenticatorFixture(t)
	sessionID := f.seedAccount(t, true)

	f.provider.CreateRegistrationFunc = func(context.Context, string, string) (*ports.RegistrationResult, error) {
		return &ports.RegistrationResult{ExternalID: "ext-someone-else"}, nil
	}

	_, err := f.svc.CreateRegRequest(context.Background(), sessionID)
	require.Error(t, err)
	assert.True(t, apperrors.IsConsistency(err))
}

func TestCreateAuthenticator(t *testing.T) {
	f := newAuthenticatorFixture(t)
	sessionID := f.seedAccount(t, true)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		f.provider.SubmitRegistrationResponseFunc = func(_ context.Context, externalID, challengeRef, fidoResponse string) (*ports.RegistrationChallenge, error) {
			assert.Equal(t, "ext-pat@example.com", externalID)
			assert.Equal(t, "reg-challenge-1", challengeRef)
			return &ports.RegistrationChallenge{
				Ref:                      challengeRef,
				FIDORegistrationResponse: "confirmation-payload",
			}, nil
		}

		resp, err := f.svc.CreateAuthenticator(ctx, sessionID, model.CreateAuthenticatorRequest{
			RegistrationChallengeID:  "reg-challenge-1",
			FIDORegistrationResponse: "{}",
		})
		require.NoError(t, err)
		assert.Equal(t, "confirmation-payload", resp.FIDORegistrationConfirmation)
	})

	t.Run("missing challenge ID", func(t *testing.T) {
		_, err := f.svc.CreateAuthenticator(ctx, sessionID, model.CreateAuthenticatorRequest{
			FIDORegistrationResponse: "{}",
		})
		require.Error(t, err)
		assert.Equal(t, apperrors.ReasonAuthRequestIDNotProvided, apperrors.GetReason(err))
	})
}

func TestCreateAuthenticator_RequiresEnrollment(t *testing.T) {
	f := newAuthenticatorFixture(t)
	sessionID := f.seedAccount(t, false)

	_, err := f.svc.CreateAuthenticator(context.Background(), sessionID, model.CreateAuthenticatorRequest{
		RegistrationChallengeID:  "reg-challenge-1",
		FIDORegistrationResponse: "{}",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ReasonFIDOAccountNotFound, apperrors.GetReason(err))
}

func TestListAuthenticators(t *testing.T) {
	f := newAuthenticatorFixture(t)
	ctx := context.Background()

	t.Run("unenrolled account lists empty without a provider call", func(t *testing.T) {
		sessionID := f.seedAccount(t, false)
		f.provider.ListAuthenticatorsFunc = func(context.Context, string) ([]model.AuthenticatorInfo, error) {
			t.Fatal("provider must not be called for an account that never enrolled")
			return nil, nil
		}

		resp, err := f.svc.ListAuthenticators(ctx, sessionID)
		require.NoError(t, err)
		assert.Empty(t, resp.Authenticators)
	})

	t.Run("listings omit deregistration requests", func(t *testing.T) {
		f := newAuthenticatorFixture(t)
		sessionID := f.seedAccount(t, true)
		f.provider.ListAuthenticatorsFunc = func(context.Context, string) ([]model.AuthenticatorInfo, error) {
			return []model.AuthenticatorInfo{
				{ID: "authn-1", Name: "Phone", FIDODeregistrationRequest: "dereg-1"},
				{ID: "authn-2", Name: "Key"},
			}, nil
		}

		resp, err := f.svc.ListAuthenticators(ctx, sessionID)
		require.NoError(t, err)
		require.Len(t, resp.Authenticators, 2)
		assert.Equal(t, "authn-1", resp.Authenticators[0].ID)
		assert.Empty(t, resp.Authenticators[0].FIDODeregistrationRequest)
	})
}

func TestGetAuthenticator(t *testing.T) {
	f := newAuthenticatorFixture(t)
	sessionID := f.seedAccount(t, true)

	f.provider.GetAuthenticatorFunc = func(_ context.Context, externalID, authenticatorID string) (*model.AuthenticatorInfo, error) {
		assert.Equal(t, "ext-pat@example.com", externalID)
		return &model.AuthenticatorInfo{
			ID:                        authenticatorID,
			Name:                      "Phone",
			FIDODeregistrationRequest: "dereg-1",
		}, nil
	}

	resp, err := f.svc.GetAuthenticator(context.Background(), sessionID, "authn-1")
	require.NoError(t, err)
	assert.Equal(t, "authn-1", resp.Authenticator.ID)
	assert.Equal(t, "dereg-1", resp.Authenticator.FIDODeregistrationRequest)
}

func TestDeleteAuthenticator(t *testing.T) {
	f := newAuthenticatorFixture(t)
	sessionID := f.seedAccount(t, true)

	f.provider.ArchiveAuthenticatorFunc = func(_ context.Context, externalID, authenticatorID string) (string, error) {
		assert.Equal(t, "ext-pat@example.com", externalID)
		assert.Equal(t, "authn-1", authenticatorID)
		return "dereg-1", nil
	}

	dereg, err := f.svc.DeleteAuthenticator(context.Background(), sessionID, "authn-1")
	require.NoError(t, err)
	assert.Equal(t, "dereg-1", dereg)
}

func TestCreateTransactionAuthRequest(t *testing.T) {
	f := newAuthenticatorFixture(t)
	sessionID := f.seedAccount(t, true)
	ctx := context.Background()

	t.Run("content required", func(t *testing.T) {
		_, err := f.svc.CreateTransactionAuthRequest(ctx, sessionID, model.CreateTransactionAuthRequest{
			TransactionContent: "  ",
		})
		require.Error(t, err)
		assert.Equal(t, apperrors.ReasonTransactionContentNotProvided, apperrors.GetReason(err))
	})

	t.Run("content type defaults to plain text", func(t *testing.T) {
		var gotInput ports.TransactionAuthInput
		f.provider.CreateTransactionAuthRequestFunc = func(_ context.Context, in ports.TransactionAuthInput) (*ports.AuthRequest, error) {
			gotInput = in
			return &ports.AuthRequest{Ref: "txn-1", FIDOAuthenticationRequest: "challenge"}, nil
		}

		resp, err := f.svc.CreateTransactionAuthRequest(ctx, sessionID, model.CreateTransactionAuthRequest{
			TransactionContent: "Pay $50 to Alex",
			StepUpAuth:         true,
		})
		require.NoError(t, err)
		assert.Equal(t, "txn-1", resp.AuthenticationRequestID)
		assert.Equal(t, "text/plain", gotInput.ContentType)
		assert.Equal(t, "Pay $50 to Alex", gotInput.Content)
		assert.Equal(t, "ext-pat@example.com", gotInput.ExternalID)
		assert.True(t, gotInput.StepUp)
	})

	t.Run("explicit content type is preserved", func(t *testing.T) {
		var gotInput ports.TransactionAuthInput
		f.provider.CreateTransactionAuthRequestFunc = func(_ context.Context, in ports.TransactionAuthInput) (*ports.AuthRequest, error) {
			gotInput = in
			return &ports.AuthRequest{Ref: "txn-2"}, nil
		}

		_, err := f.svc.CreateTransactionAuthRequest(ctx, sessionID, model.CreateTransactionAuthRequest{
			TransactionContentType: "image/png",
			TransactionContent:     "base64-image",
		})
		require.NoError(t, err)
		assert.Equal(t, "image/png", gotInput.ContentType)
	})
}

func TestValidateTransactionAuth(t *testing.T) {
	f := newAuthenticatorFixture(t)
	sessionID := f.seedAccount(t, true)
	ctx := context.Background()

	t.Run("echoes provider artifacts without minting a session", func(t *testing.T) {
		sessionsBefore := f.store.Len()
		f.provider.SubmitAuthResponseFunc = func(context.Context, string, string) (*ports.AuthRequest, error) {
			return &ports.AuthRequest{
				Status:                     ports.StatusCompletedSuccessful,
				FIDOAuthenticationResponse: "confirmation",
				User:                       &ports.ProviderUser{ID: "idx-1", UserID: "pat@example.com"},
			}, nil
		}

		resp, err := f.svc.ValidateTransactionAuth(ctx, sessionID, model.ValidateTransactionAuthRequest{
			AuthenticationRequestID:    "txn-1",
			FIDOAuthenticationResponse: "{}",
		})
		require.NoError(t, err)
		assert.Equal(t, "confirmation", resp.FIDOAuthenticationResponse)
		assert.Equal(t, sessionsBefore, f.store.Len())
	})

	t.Run("request ID required", func(t *testing.T) {
		_, err := f.svc.ValidateTransactionAuth(ctx, sessionID, model.ValidateTransactionAuthRequest{
			FIDOAuthenticationResponse: "{}",
		})
		require.Error(t, err)
		assert.Equal(t, apperrors.ReasonAuthRequestIDNotProvided, apperrors.GetReason(err))
	})

	t.Run("provider failure is surfaced", func(t *testing.T) {
		code := int64(1481)
		f.provider.SubmitAuthResponseFunc = func(context.Context, string, string) (*ports.AuthRequest, error) {
			return &ports.AuthRequest{
				Status:           ports.StatusCompletedFailure,
				FIDOResponseCode: &code,
			}, nil
		}

		_, err := f.svc.ValidateTransactionAuth(ctx, sessionID, model.ValidateTransactionAuthRequest{
			AuthenticationRequestID:    "txn-1",
			FIDOAuthenticationResponse: "{}",
		})
		require.Error(t, err)
		assert.Equal(t, apperrors.ReasonUnknownAuthenticator, apperrors.GetReason(err))
	})
}

func TestFacets_Anonymous(t *testing.T) {
	f := newAuthenticatorFixture(t)
	f.provider.FacetsFunc = func(context.Context) (*model.Facets, error) {
		return &model.Facets{
			TrustedFacets: []model.TrustedFacets{
				{
					Version: model.FacetVersion{Major: 1, Minor: 0},
					IDs:     []string{"https://rp.example.com"},
				},
			},
		}, nil
	}

	facets, err := f.svc.Facets(context.Background())
	require.NoError(t, err)
	require.Len(t, facets.TrustedFacets, 1)
	assert.Equal(t, []string{"https://rp.example.com"}, facets.TrustedFacets[0].IDs)
}

func TestPolicy(t *testing.T) {
	f := newAuthenticatorFixture(t)
	sessionID := f.seedAccount(t, true)
	ctx := context.Background()

	var gotKind string
	f.provider.PolicyFunc = func(_ context.Context, kind string) (*model.PolicyInfo, error) {
		gotKind = kind
		return &model.PolicyInfo{ID: kind + "-policy-1", Type: kind}, nil
	}

	resp, err := f.svc.Policy(ctx, sessionID, "REG")
	require.NoError(t, err)
	assert.Equal(t, "reg", gotKind)
	assert.Equal(t, "reg-policy-1", resp.ID)

	_, err = f.svc.Policy(ctx, "no-such-session", "auth")
	assert.Equal(t, apperrors.ReasonUnknownSession, apperrors.GetReason(err))
}

func TestSessionSlidesOnAuthenticatedOperations(t *testing.T) {
	f := newAuthenticatorFixture(t)
	sessionID := f.seedAccount(t, true)
	ctx := context.Background()

	// Each authenticated call within the window renews the deadline, so the
	// session outlives its original expiry.
	for i := 0; i < 3; i++ {
		f.clock.AddTime(10 * time.Minute)
		_, err := f.svc.ListAuthenticators(ctx, sessionID)
		require.NoError(t, err)
	}
}
