package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authbridge/relying-party/internal/data"
	"github.com/authbridge/relying-party/internal/domain/model"
	"github.com/authbridge/relying-party/internal/mocks/idp"
)

func TestAuditor_RecordsDurationAndIdentifiers(t *testing.T) {
	repo := idp.NewMemoryAuditRepo()
	clock := data.NewFixedTimeProvider(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	auditor := NewAuditor(AuditorOptions{Repo: repo, Time: clock})

	span := auditor.Begin(model.AuditCreateSession)
	span.SetAccountID("acct-1")
	span.SetSessionID("sess-1")
	clock.AddTime(250 * time.Millisecond)
	span.End(context.Background())

	records := repo.Records()
	require.Len(t, records, 1)
	rec := records[0]
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, model.AuditCreateSession, rec.Action)
	require.NotNil(t, rec.AccountID)
	assert.Equal(t, "acct-1", *rec.AccountID)
	require.NotNil(t, rec.SessionID)
	assert.Equal(t, "sess-1", *rec.SessionID)
	assert.Equal(t, int64(250), rec.DurationMs)
	assert.Equal(t, clock.Now(), rec.CreatedAt)
}

func TestAuditor_ClampsNegativeDuration(t *testing.T) {
	repo := idp.NewMemoryAuditRepo()
	clock := data.NewFixedTimeProvider(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	auditor := NewAuditor(AuditorOptions{Repo: repo, Time: clock})

	span := auditor.Begin(model.AuditGetFacets)
	// A clock adjustment during the operation must not yield a negative
	// duration.
	clock.SetTime(clock.Now().Add(-time.Minute))
	span.End(context.Background())

	records := repo.Records()
	require.Len(t, records, 1)
	assert.Equal(t, int64(0), records[0].DurationMs)
}

func TestAuditor_WriteFailureIsNotFatal(t *testing.T) {
	repo := idp.NewMemoryAuditRepo()
	repo.CreateErr = errors.New("audits table unavailable")
	auditor := NewAuditor(AuditorOptions{Repo: repo})

	// End must swallow the storage failure.
	span := auditor.Begin(model.AuditDeleteSession)
	span.End(context.Background())

	assert.Empty(t, repo.Records())
}
