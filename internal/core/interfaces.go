package core

// Package core declares the repository contracts the services depend on.
// Concrete implementations live in internal/data; memory doubles in
// internal/mocks.

import (
	"context"
	"time"

	"github.com/authbridge/relying-party/internal/domain/model"
)

// AccountRepository persists relying-party accounts.
type AccountRepository interface {
	Create(ctx context.Context, a model.Account) (model.Account, error)
	GetByID(ctx context.Context, id string) (model.Account, error)
	GetByEmail(ctx context.Context, email string) (model.Account, error)
	// SetExternalID binds the provider identity. The binding is immutable:
	// implementations only write when the column is NULL or already equal.
	SetExternalID(ctx context.Context, id, externalID string) error
	SetLastLoggedIn(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
	// SearchByEmailLike returns a page of accounts whose email matches the
	// pattern. "*" is the wildcard; an empty pattern matches everything.
	SearchByEmailLike(ctx context.Context, pattern string, limit, offset int) ([]model.Account, error)
}

// AuditRepository records one row per service operation.
type AuditRepository interface {
	Create(ctx context.Context, rec model.AuditRecord) error
	// ListCreatedBefore returns a page of records older than the given
	// instant, newest first. A zero instant means "now".
	ListCreatedBefore(ctx context.Context, before time.Time, limit, offset int) ([]model.AuditRecord, error)
}

// CacheRepository is a generic TTL cache used for provider metadata that is
// expensive to refetch (authenticator type descriptions).
type CacheRepository interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Health(ctx context.Context) error
}
