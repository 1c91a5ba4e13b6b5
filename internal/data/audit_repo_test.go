package data

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authbridge/relying-party/internal/domain/model"
	"github.com/authbridge/relying-party/internal/testutil"
)

func TestAuditRepo_CreateAndList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewAuditRepo(db)
	ctx := context.Background()

	accountID := uuid.NewString()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	actions := []model.AuditAction{
		model.AuditCreateAccount,
		model.AuditCreateSession,
		model.AuditDeleteSession,
	}
	for i, action := range actions {
		rec := model.AuditRecord{
			ID:         uuid.NewString(),
			Action:     action,
			AccountID:  testutil.StringPtr(accountID),
			DurationMs: int64(i * 10),
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(ctx, rec))
	}

	records, err := repo.ListByAccount(ctx, accountID, 10)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Newest first.
	assert.Equal(t, model.AuditDeleteSession, records[0].Action)
	assert.Equal(t, model.AuditCreateAccount, records[2].Action)
	require.NotNil(t, records[0].AccountID)
	assert.Equal(t, accountID, *records[0].AccountID)
	assert.Nil(t, records[0].SessionID)
}

func TestAuditRepo_ListHonorsLimit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewAuditRepo(db)
	ctx := context.Background()

	accountID := uuid.NewString()
	for i := 0; i < 5; i++ {
		rec := model.AuditRecord{
			ID:        uuid.NewString(),
			Action:    model.AuditCreateSession,
			AccountID: testutil.StringPtr(accountID),
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, repo.Create(ctx, rec))
	}

	records, err := repo.ListByAccount(ctx, accountID, 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestAuditRepo_RecordsSurviveWithoutAccountRow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewAuditRepo(db)
	ctx := context.Background()

	// Account and session IDs are copied values, not foreign keys, so a
	// record referencing a never-created account still inserts.
	rec := model.AuditRecord{
		ID:        uuid.NewString(),
		Action:    model.AuditDeleteAccount,
		AccountID: testutil.StringPtr(uuid.NewString()),
		SessionID: testutil.StringPtr(uuid.NewString()),
		CreatedAt: time.Now(),
	}
	assert.NoError(t, repo.Create(ctx, rec))
}

func TestAuditRepo_ListEmpty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewAuditRepo(db)

	records, err := repo.ListByAccount(context.Background(), uuid.NewString(), 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestAuditRepo_ListCreatedBefore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewAuditRepo(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	actions := []model.AuditAction{
		model.AuditCreateAccount,
		model.AuditCreateSession,
		model.AuditListAuthenticators,
		model.AuditDeleteSession,
	}
	for i, action := range actions {
		require.NoError(t, repo.Create(ctx, model.AuditRecord{
			ID:        uuid.NewString(),
			Action:    action,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	// Only records strictly older than the cutoff, newest first.
	records, err := repo.ListCreatedBefore(ctx, base.Add(2*time.Hour), 10, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, model.AuditCreateSession, records[0].Action)
	assert.Equal(t, model.AuditCreateAccount, records[1].Action)

	// Paging.
	page, err := repo.ListCreatedBefore(ctx, base.Add(24*time.Hour), 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, model.AuditCreateSession, page[0].Action)

	// A zero cutoff means "now" and sees every historical record.
	all, err := repo.ListCreatedBefore(ctx, time.Time{}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}
