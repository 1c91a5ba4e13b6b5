package devidp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/authbridge/relying-party/internal/errors"
	"github.com/authbridge/relying-party/internal/ports"
)

// enroll runs a full registration flow and returns the provider identity and
// authenticator ID.
func enroll(t *testing.T, p *Provider, email string) (string, string) {
	t.Helper()
	ctx := context.Background()

	reg, err := p.CreateRegistration(ctx, email, "")
	require.NoError(t, err)
	require.NotEmpty(t, reg.ExternalID)

	_, err = p.SubmitRegistrationResponse(ctx, reg.ExternalID, reg.Challenge.Ref, "{}")
	require.NoError(t, err)

	infos, err := p.ListAuthenticators(ctx, reg.ExternalID)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	return reg.ExternalID, infos[0].ID
}

func TestRegistrationFlow(t *testing.T) {
	p := New()
	ctx := context.Background()

	reg, err := p.CreateRegistration(ctx, "pat@example.com", "")
	require.NoError(t, err)
	assert.NotEmpty(t, reg.Challenge.Ref)
	assert.Contains(t, reg.Challenge.FIDORegistrationRequest, reg.Challenge.Ref)

	// The same email resolves to the same provider identity.
	again, err := p.CreateRegistration(ctx, "pat@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, reg.ExternalID, again.ExternalID)

	// Resolution by identity skips the email search.
	byID, err := p.CreateRegistration(ctx, "ignored@example.com", reg.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, reg.ExternalID, byID.ExternalID)
}

func TestSubmitRegistrationResponse_ChallengeOwnership(t *testing.T) {
	p := New()
	ctx := context.Background()

	reg, err := p.CreateRegistration(ctx, "pat@example.com", "")
	require.NoError(t, err)
	other, err := p.CreateRegistration(ctx, "alex@example.com", "")
	require.NoError(t, err)

	_, err = p.SubmitRegistrationResponse(ctx, other.ExternalID, reg.Challenge.Ref, "{}")
	assert.True(t, apperrors.IsConsistency(err))

	_, err = p.SubmitRegistrationResponse(ctx, reg.ExternalID, reg.Challenge.Ref, "{}")
	require.NoError(t, err)

	// A challenge is single use.
	_, err = p.SubmitRegistrationResponse(ctx, reg.ExternalID, reg.Challenge.Ref, "{}")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAuthenticationFlow(t *testing.T) {
	p := New()
	ctx := context.Background()
	enroll(t, p, "pat@example.com")

	req, err := p.CreateAuthRequest(ctx)
	require.NoError(t, err)
	assert.Equal(t, ports.StatusPending, req.Status)

	// The dev provider treats the response as the email signing in.
	result, err := p.SubmitAuthResponse(ctx, req.Ref, "pat@example.com")
	require.NoError(t, err)
	assert.Equal(t, ports.StatusCompletedSuccessful, result.Status)
	require.NotNil(t, result.User)
	assert.Equal(t, "pat@example.com", result.User.UserID)

	// Requests are single use.
	_, err = p.SubmitAuthResponse(ctx, req.Ref, "pat@example.com")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSubmitAuthResponse_FailLiteral(t *testing.T) {
	p := New()
	ctx := context.Background()

	req, err := p.CreateAuthRequest(ctx)
	require.NoError(t, err)

	result, err := p.SubmitAuthResponse(ctx, req.Ref, "fail")
	require.NoError(t, err)
	assert.Equal(t, ports.StatusCompletedFailure, result.Status)
	require.NotNil(t, result.FIDOResponseCode)
	assert.Equal(t, int64(1480), *result.FIDOResponseCode)
	assert.Nil(t, result.User)
}

func TestTransactionAuth_StepUpBindsUser(t *testing.T) {
	p := New()
	ctx := context.Background()
	externalID, _ := enroll(t, p, "pat@example.com")

	req, err := p.CreateTransactionAuthRequest(ctx, ports.TransactionAuthInput{
		ExternalID:  externalID,
		ContentType: "text/plain",
		Content:     "Pay $50 to Alex",
		StepUp:      true,
	})
	require.NoError(t, err)
	assert.Contains(t, req.FIDOAuthenticationRequest, "Pay $50 to Alex")

	// Step-up requests resolve the bound user regardless of the response.
	result, err := p.SubmitAuthResponse(ctx, req.Ref, "{}")
	require.NoError(t, err)
	require.NotNil(t, result.User)
	assert.Equal(t, externalID, result.User.ID)
}

func TestAuthenticatorLifecycle(t *testing.T) {
	p := New()
	ctx := context.Background()
	externalID, authnID := enroll(t, p, "pat@example.com")

	info, err := p.GetAuthenticator(ctx, externalID, authnID)
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", info.Status)
	assert.NotEmpty(t, info.FIDODeregistrationRequest)

	dereg, err := p.ArchiveAuthenticator(ctx, externalID, authnID)
	require.NoError(t, err)
	assert.Contains(t, dereg, authnID)

	archived, err := p.GetAuthenticator(ctx, externalID, authnID)
	require.NoError(t, err)
	assert.Equal(t, "ARCHIVED", archived.Status)

	_, err = p.GetAuthenticator(ctx, externalID, "no-such-authenticator")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDeactivateUser(t *testing.T) {
	p := New()
	ctx := context.Background()
	externalID, _ := enroll(t, p, "pat@example.com")

	deregs, err := p.DeactivateUser(ctx, externalID)
	require.NoError(t, err)
	require.Len(t, deregs, 1)
	assert.NotEmpty(t, deregs[0].FIDODeregistrationRequest)

	// The user is gone afterwards.
	_, err = p.ListAuthenticators(ctx, externalID)
	assert.True(t, apperrors.IsConsistency(err))

	// A fresh registration for the same email creates a new identity.
	reg, err := p.CreateRegistration(ctx, "pat@example.com", "")
	require.NoError(t, err)
	assert.NotEqual(t, externalID, reg.ExternalID)
}

func TestFacetsAndPolicies(t *testing.T) {
	p := New()
	ctx := context.Background()

	facets, err := p.Facets(ctx)
	require.NoError(t, err)
	require.Len(t, facets.TrustedFacets, 1)

	for _, kind := range []string{"reg", "auth"} {
		policy, err := p.Policy(ctx, kind)
		require.NoError(t, err)
		assert.Equal(t, "dev-"+kind+"-policy", policy.ID)
	}

	_, err = p.Policy(ctx, "bogus")
	assert.True(t, apperrors.IsNotFound(err))
}
