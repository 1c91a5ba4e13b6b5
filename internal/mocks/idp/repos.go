package idp

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/authbridge/relying-party/internal/core"
	"github.com/authbridge/relying-party/internal/domain/model"
	apperrors "github.com/authbridge/relying-party/internal/errors"
)

// Ensure compile-time conformance to core contracts.
var (
	_ core.AccountRepository = (*MemoryAccountRepo)(nil)
	_ core.AuditRepository   = (*MemoryAuditRepo)(nil)
	_ core.CacheRepository   = (*MemoryCache)(nil)
)

// MemoryAccountRepo is an in-memory account repository for tests. It applies
// the same uniqueness and immutability rules as the SQL implementation.
type MemoryAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]model.Account
}

// NewMemoryAccountRepo creates an empty in-memory account repository.
func NewMemoryAccountRepo() *MemoryAccountRepo {
	return &MemoryAccountRepo{accounts: make(map[string]model.Account)}
}

func (r *MemoryAccountRepo) Create(_ context.Context, a model.Account) (model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if strings.EqualFold(existing.Email, a.Email) {
			return model.Account{}, apperrors.AccountAlreadyExists()
		}
	}
	r.accounts[a.ID] = a
	return a, nil
}

func (r *MemoryAccountRepo) GetByID(_ context.Context, id string) (model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return model.Account{}, apperrors.AccountNotFound()
	}
	return a, nil
}

func (r *MemoryAccountRepo) GetByEmail(_ context.Context, email string) (model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if strings.EqualFold(a.Email, email) {
			return a, nil
		}
	}
	return model.Account{}, apperrors.AccountNotFound()
}

func (r *MemoryAccountRepo) SetExternalID(_ context.Context, id, externalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return apperrors.AccountNotFound()
	}
	if a.ExternalID != nil && *a.ExternalID != externalID {
		return apperrors.Consistency("account is already bound to a different provider identity")
	}
	a.ExternalID = &externalID
	r.accounts[id] = a
	return nil
}

func (r *MemoryAccountRepo) SetLastLoggedIn(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return apperrors.AccountNotFound()
	}
	a.LastLoggedInAt = &at
	r.accounts[id] = a
	return nil
}

func (r *MemoryAccountRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[id]; !ok {
		return apperrors.AccountNotFound()
	}
	delete(r.accounts, id)
	return nil
}

func (r *MemoryAccountRepo) SearchByEmailLike(_ context.Context, pattern string, limit, offset int) ([]model.Account, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []model.Account
	for _, a := range r.accounts {
		if matchWildcard(pattern, a.Email) {
			matched = append(matched, a)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Email < matched[j].Email })
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// Len reports the number of stored accounts.
func (r *MemoryAccountRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.accounts)
}

// matchWildcard matches a value against a pattern where "*" matches any run
// of characters. An empty pattern matches everything.
func matchWildcard(pattern, value string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return true
	}
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return value == pattern
	}
	if !strings.HasPrefix(value, parts[0]) {
		return false
	}
	value = value[len(parts[0]):]
	last := parts[len(parts)-1]
	for _, part := range parts[1 : len(parts)-1] {
		idx := strings.Index(value, part)
		if idx < 0 {
			return false
		}
		value = value[idx+len(part):]
	}
	return strings.HasSuffix(value, last)
}

// MemoryAuditRepo collects audit records for assertions.
type MemoryAuditRepo struct {
	mu      sync.Mutex
	records []model.AuditRecord

	// CreateErr, when set, is returned from Create to simulate storage
	// failures.
	CreateErr error
}

// NewMemoryAuditRepo creates an empty in-memory audit repository.
func NewMemoryAuditRepo() *MemoryAuditRepo {
	return &MemoryAuditRepo{}
}

func (r *MemoryAuditRepo) Create(_ context.Context, rec model.AuditRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		return r.CreateErr
	}
	r.records = append(r.records, rec)
	return nil
}

func (r *MemoryAuditRepo) ListCreatedBefore(_ context.Context, before time.Time, limit, offset int) ([]model.AuditRecord, error) {
	if before.IsZero() {
		before = time.Now()
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []model.AuditRecord
	for _, rec := range r.records {
		if rec.CreatedAt.Before(before) {
			matched = append(matched, rec)
		}
	}
	// Stable so records written at the same instant keep insertion order.
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// Records returns a copy of all collected audit records.
func (r *MemoryAuditRepo) Records() []model.AuditRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.AuditRecord, len(r.records))
	copy(out, r.records)
	return out
}

// MemoryCache is an in-memory TTL cache for tests. TTLs are honored lazily
// on Get.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]cacheEntry)}
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := cacheEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	c.entries[key] = entry
	return nil
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, nil
	}
	return entry.value, nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *MemoryCache) Health(_ context.Context) error {
	return nil
}
