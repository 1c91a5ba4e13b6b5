package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/authbridge/relying-party/internal/errors"

	"github.com/authbridge/relying-party/internal/data/pgxutil"
	"github.com/authbridge/relying-party/internal/domain/model"
)

// AccountRepo provides database operations for accounts.
type AccountRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewAccountRepo creates a new AccountRepo with real time provider.
func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewAccountRepoWithTimeProvider creates a new AccountRepo with a custom time provider (useful for tests).
func NewAccountRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *AccountRepo {
	return &AccountRepo{DB: db, timeProvider: tp}
}

// SQL query constants for static queries.
const (
	accountColumns = `id, email, first_name, last_name, hashed_password, salt, iterations,
	       external_id, created_at, last_logged_in_at`

	accountGetByIDQuery = `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1`

	accountGetByEmailQuery = `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE LOWER(email) = LOWER($1)`
)

// Create inserts a new account. Email uniqueness is enforced case-insensitively
// by the database; a duplicate maps to an already-exists error.
func (r *AccountRepo) Create(ctx context.Context, a model.Account) (model.Account, error) {
	createdAt := r.timeProvider.Now().UTC()
	var out model.Account
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO accounts (
				id, email, first_name, last_name, hashed_password, salt, iterations, external_id, created_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9
			) RETURNING `+accountColumns,
			a.ID,
			strings.TrimSpace(a.Email),
			a.FirstName,
			a.LastName,
			a.HashedPassword,
			a.Salt,
			a.Iterations,
			a.ExternalID,
			createdAt,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Account])
		return err
	}); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return model.Account{}, apperrors.AccountAlreadyExists()
		}
		return model.Account{}, apperrors.MapDBError(fmt.Errorf("create account: %w", err))
	}
	return out, nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepo) GetByID(ctx context.Context, id string) (model.Account, error) {
	return r.getByQuery(ctx, accountGetByIDQuery, "get account by id", id)
}

// GetByEmail retrieves an account by email, case-insensitively.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	return r.getByQuery(ctx, accountGetByEmailQuery, "get account by email", strings.TrimSpace(email))
}

// SetExternalID binds the provider identity to an account. The binding is
// write-once: the update only applies when external_id is NULL or already
// holds the same value, and a zero-row result reports a consistency error.
func (r *AccountRepo) SetExternalID(ctx context.Context, id, externalID string) error {
	var rowsAffected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `
			UPDATE accounts SET external_id = $2
			WHERE id = $1 AND (external_id IS NULL OR external_id = $2)`,
			id, externalID,
		)
		if err != nil {
			return err
		}
		rowsAffected = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("set account external id: %w", err))
	}
	if rowsAffected == 0 {
		return apperrors.Consistency(fmt.Sprintf("account %s already bound to a different provider identity", id))
	}
	return nil
}

// SetLastLoggedIn records a successful authentication time.
func (r *AccountRepo) SetLastLoggedIn(ctx context.Context, id string, at time.Time) error {
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `UPDATE accounts SET last_logged_in_at = $2 WHERE id = $1`, id, at.UTC())
		return err
	})
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("set account last logged in: %w", err))
	}
	return nil
}

// Delete removes an account by ID.
func (r *AccountRepo) Delete(ctx context.Context, id string) error {
	var rowsAffected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
		if err != nil {
			return err
		}
		rowsAffected = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("delete account: %w", err))
	}
	if rowsAffected == 0 {
		return apperrors.NotFoundf("account %s not found", id)
	}
	return nil
}

// SearchByEmailLike returns a page of accounts whose email matches the
// pattern, ordered by email. "*" is the wildcard character; an empty pattern
// matches every account.
func (r *AccountRepo) SearchByEmailLike(ctx context.Context, pattern string, limit, offset int) ([]model.Account, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var out []model.Account
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+accountColumns+`
			FROM accounts
			WHERE email LIKE $1
			ORDER BY email
			LIMIT $2 OFFSET $3`,
			likePattern(pattern), limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Account])
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("search accounts by email: %w", err))
	}
	return out, nil
}

// likePattern converts the "*" wildcard syntax into a LIKE pattern, escaping
// LIKE metacharacters so they match literally.
func likePattern(pattern string) string {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return "%"
	}
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(pattern)
	return strings.ReplaceAll(escaped, "*", "%")
}

// getByQuery executes a query expected to return a single account.
func (r *AccountRepo) getByQuery(
	ctx context.Context,
	q string,
	op string,
	args ...any,
) (model.Account, error) {
	var account model.Account
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		account, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Account])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Account{}, apperrors.AccountNotFound()
		}
		return model.Account{}, apperrors.MapDBError(fmt.Errorf("%s: %w", op, err))
	}
	return account, nil
}
