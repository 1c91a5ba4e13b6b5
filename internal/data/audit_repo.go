package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/authbridge/relying-party/internal/errors"

	"github.com/authbridge/relying-party/internal/data/pgxutil"
	"github.com/authbridge/relying-party/internal/domain/model"
)

// AuditRepo provides database operations for audit records.
type AuditRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewAuditRepo creates a new AuditRepo with real time provider.
func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewAuditRepoWithTimeProvider creates a new AuditRepo with a custom time provider (useful for tests).
func NewAuditRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *AuditRepo {
	return &AuditRepo{DB: db, timeProvider: tp}
}

// Create inserts an audit record. Account and session references are kept as
// plain values, not foreign keys, so records survive account deletion.
func (r *AuditRepo) Create(ctx context.Context, rec model.AuditRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.timeProvider.Now()
	}
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `
			INSERT INTO audits (
				id, action, account_id, session_id, duration_ms, created_at
			) VALUES (
				$1, $2, $3, $4, $5, $6
			)`,
			rec.ID,
			rec.Action,
			rec.AccountID,
			rec.SessionID,
			rec.DurationMs,
			createdAt.UTC(),
		)
		return err
	})
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("create audit record: %w", err))
	}
	return nil
}

// ListCreatedBefore returns a page of audit records older than the given
// instant, newest first. A zero instant means "now".
func (r *AuditRepo) ListCreatedBefore(ctx context.Context, before time.Time, limit, offset int) ([]model.AuditRecord, error) {
	if before.IsZero() {
		before = r.timeProvider.Now()
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var out []model.AuditRecord
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT id, action, account_id, session_id, duration_ms, created_at
			FROM audits
			WHERE created_at < $1
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3`, before.UTC(), limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.AuditRecord])
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("list audit records before: %w", err))
	}
	return out, nil
}

// ListByAccount returns an account's audit trail, newest first.
func (r *AuditRepo) ListByAccount(ctx context.Context, accountID string, limit int) ([]model.AuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []model.AuditRecord
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT id, action, account_id, session_id, duration_ms, created_at
			FROM audits
			WHERE account_id = $1
			ORDER BY created_at DESC
			LIMIT $2`, accountID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.AuditRecord])
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("list audit records: %w", err))
	}
	return out, nil
}
