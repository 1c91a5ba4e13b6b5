package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authbridge/relying-party/internal/testutil"
)

func TestRedisCacheRepo_SetGetDelete(t *testing.T) {
	repo := NewRedisCacheRepo(testutil.SetupTestRedis(t))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "authenticator-types", []byte(`{"aaid":"1234#5678"}`), time.Minute))

	got, err := repo.Get(ctx, "authenticator-types")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"aaid":"1234#5678"}`), got)

	require.NoError(t, repo.Delete(ctx, "authenticator-types"))
	got, err = repo.Get(ctx, "authenticator-types")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisCacheRepo_MissingKeyIsNotAnError(t *testing.T) {
	repo := NewRedisCacheRepo(testutil.SetupTestRedis(t))

	got, err := repo.Get(context.Background(), "never-set")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisCacheRepo_TTLExpiresEntries(t *testing.T) {
	repo := NewRedisCacheRepo(testutil.SetupTestRedis(t))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "short-lived", []byte("v"), 50*time.Millisecond))
	time.Sleep(100 * time.Millisecond)

	got, err := repo.Get(ctx, "short-lived")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisCacheRepo_EmptyKeyRejected(t *testing.T) {
	repo := NewRedisCacheRepo(testutil.SetupTestRedis(t))
	ctx := context.Background()

	assert.Error(t, repo.Set(ctx, "", []byte("v"), time.Minute))
	_, err := repo.Get(ctx, "")
	assert.Error(t, err)
	assert.Error(t, repo.Delete(ctx, ""))
}

func TestRedisCacheRepo_Health(t *testing.T) {
	repo := NewRedisCacheRepo(testutil.SetupTestRedis(t))
	assert.NoError(t, repo.Health(context.Background()))
}
