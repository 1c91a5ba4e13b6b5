package data

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authbridge/relying-party/internal/data/cryptoutil"
	"github.com/authbridge/relying-party/internal/domain/model"
	apperrors "github.com/authbridge/relying-party/internal/errors"
	"github.com/authbridge/relying-party/internal/testutil"
)

func newTestAccount(email string) model.Account {
	return model.Account{
		ID:             uuid.NewString(),
		Email:          email,
		FirstName:      "Pat",
		LastName:       "Doe",
		HashedPassword: []byte("digest"),
		Salt:           make([]byte, cryptoutil.SaltLength),
		Iterations:     cryptoutil.DefaultIterations,
	}
}

func TestAccountRepo_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewAccountRepo(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, newTestAccount("pat@example.com"))
	require.NoError(t, err)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Nil(t, created.LastLoggedInAt)
	assert.Nil(t, created.ExternalID)

	byID, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, byID.Email)
	assert.Equal(t, created.HashedPassword, byID.HashedPassword)
	assert.Equal(t, created.Salt, byID.Salt)
	assert.Equal(t, created.Iterations, byID.Iterations)

	// Lookup by email ignores case.
	byEmail, err := repo.GetByEmail(ctx, "PAT@Example.COM")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
}

func TestAccountRepo_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewAccountRepo(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, newTestAccount("pat@example.com"))
	require.NoError(t, err)

	// Uniqueness is case-insensitive.
	_, err = repo.Create(ctx, newTestAccount("PAT@example.com"))
	require.Error(t, err)
	assert.Equal(t, apperrors.ReasonAccountAlreadyExists, apperrors.GetReason(err))
}

func TestAccountRepo_GetAbsent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewAccountRepo(db)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, uuid.NewString())
	assert.True(t, apperrors.IsNotFound(err))

	_, err = repo.GetByEmail(ctx, "ghost@example.com")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAccountRepo_SetExternalID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewAccountRepo(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, newTestAccount("pat@example.com"))
	require.NoError(t, err)

	require.NoError(t, repo.SetExternalID(ctx, created.ID, "ext-1"))

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ExternalID)
	assert.Equal(t, "ext-1", *got.ExternalID)

	// Rebinding to the same identity is a no-op; a different identity is a
	// consistency violation.
	assert.NoError(t, repo.SetExternalID(ctx, created.ID, "ext-1"))
	err = repo.SetExternalID(ctx, created.ID, "ext-2")
	assert.True(t, apperrors.IsConsistency(err))
}

func TestAccountRepo_SetLastLoggedIn(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewAccountRepo(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, newTestAccount("pat@example.com"))
	require.NoError(t, err)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SetLastLoggedIn(ctx, created.ID, at))

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoggedInAt)
	assert.True(t, at.Equal(*got.LastLoggedInAt))
}

func TestAccountRepo_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewAccountRepo(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, newTestAccount("pat@example.com"))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, created.ID))
	_, err = repo.GetByID(ctx, created.ID)
	assert.True(t, apperrors.IsNotFound(err))

	err = repo.Delete(ctx, created.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAccountRepo_SearchByEmailLike(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewAccountRepo(db)
	ctx := context.Background()

	for _, email := range []string{"amy@corp.example", "ben@corp.example", "cal@other.example"} {
		_, err := repo.Create(ctx, newTestAccount(email))
		require.NoError(t, err)
	}

	// "*" is the wildcard.
	corp, err := repo.SearchByEmailLike(ctx, "*@corp.example", 0, 0)
	require.NoError(t, err)
	require.Len(t, corp, 2)
	assert.Equal(t, "amy@corp.example", corp[0].Email)
	assert.Equal(t, "ben@corp.example", corp[1].Email)

	exact, err := repo.SearchByEmailLike(ctx, "cal@other.example", 0, 0)
	require.NoError(t, err)
	require.Len(t, exact, 1)
	assert.Equal(t, "cal@other.example", exact[0].Email)

	// An empty pattern matches everything, ordered by email.
	all, err := repo.SearchByEmailLike(ctx, "", 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "amy@corp.example", all[0].Email)

	// Paging.
	page, err := repo.SearchByEmailLike(ctx, "", 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "cal@other.example", page[0].Email)

	// LIKE metacharacters in the input match literally, not as wildcards.
	escaped, err := repo.SearchByEmailLike(ctx, "%@corp.example", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, escaped)
}
