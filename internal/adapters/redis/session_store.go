package redis

// Package redis provides the Redis-backed session store.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/authbridge/relying-party/internal/domain/model"
	"github.com/authbridge/relying-party/internal/ports"
)

// retentionWindow is how long an expired record stays readable before the
// Redis TTL removes it. Within the window an expired session is reported as
// expired rather than unknown.
const retentionWindow = 24 * time.Hour

// SessionStore is a Redis-based session store for production use.
//
// Each session is stored under prefix+ID with a TTL of its remaining life
// plus a retention window, so that recently expired sessions remain
// distinguishable from unknown ones. A per-account index set supports
// cascade removal when an account is deleted.
type SessionStore struct {
	client redis.UniversalClient
	prefix string
}

// NewSessionStore creates a new Redis-based session store.
func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return &SessionStore{
		client: client,
		prefix: "session:",
	}
}

// NewSessionStoreWithPrefix creates a Redis session store with a custom key prefix.
func NewSessionStoreWithPrefix(client redis.UniversalClient, prefix string) *SessionStore {
	return &SessionStore{
		client: client,
		prefix: prefix,
	}
}

// Save writes a session record and indexes it under its account. The write
// is rejected when the session is already past its expiry deadline.
func (s *SessionStore) Save(ctx context.Context, sess model.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	remaining := time.Until(sess.ExpiresAt)
	if remaining <= 0 {
		return errors.New("session is expired")
	}

	key := s.prefix + sess.ID
	idx := s.accountKey(sess.AccountID)
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, key, data, remaining+retentionWindow)
	pipe.SAdd(ctx, idx, sess.ID)
	pipe.Expire(ctx, idx, remaining+retentionWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}
	return nil
}

// Get returns the session record for id, expired or not. Absent records
// return ports.ErrSessionNotFound; the caller decides what an expired record
// means.
func (s *SessionStore) Get(ctx context.Context, id string) (model.Session, error) {
	if id == "" {
		return model.Session{}, ports.ErrSessionNotFound
	}

	data, err := s.client.Get(ctx, s.prefix+id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Session{}, ports.ErrSessionNotFound
		}
		return model.Session{}, fmt.Errorf("redis get: %w", err)
	}

	var sess model.Session
	if unmarshalErr := json.Unmarshal([]byte(data), &sess); unmarshalErr != nil {
		return model.Session{}, fmt.Errorf("unmarshal session: %w", unmarshalErr)
	}
	return sess, nil
}

// Delete removes one session record. Deleting an absent record is not an error.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}

	sess, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrSessionNotFound) {
			return nil
		}
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.prefix+id)
	pipe.SRem(ctx, s.accountKey(sess.AccountID), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

// DeleteByAccount removes every session indexed under the account. Used when
// the account itself is deleted.
func (s *SessionStore) DeleteByAccount(ctx context.Context, accountID string) error {
	if accountID == "" {
		return nil
	}

	idx := s.accountKey(accountID)
	ids, err := s.client.SMembers(ctx, idx).Result()
	if err != nil {
		return fmt.Errorf("redis list account sessions: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, s.prefix+id)
	}
	keys = append(keys, idx)
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete account sessions: %w", err)
	}
	return nil
}

// FindByIDLike scans for sessions whose ID matches the pattern and returns
// up to limit of them, expired-but-retained records included. "*" is the
// wildcard; an empty pattern matches everything. SCAN gives no ordering.
func (s *SessionStore) FindByIDLike(ctx context.Context, pattern string, limit int) ([]model.Session, error) {
	if limit <= 0 {
		limit = 50
	}

	accountPrefix := s.accountKey("")
	out := make([]model.Session, 0, limit)
	iter := s.client.Scan(ctx, 0, s.prefix+globPattern(pattern), int64(limit)).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		// The per-account index sets live under the same prefix.
		if strings.HasPrefix(key, accountPrefix) {
			continue
		}

		data, err := s.client.Get(ctx, key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("redis get session: %w", err)
		}
		var sess model.Session
		if unmarshalErr := json.Unmarshal([]byte(data), &sess); unmarshalErr != nil {
			return nil, fmt.Errorf("unmarshal session: %w", unmarshalErr)
		}
		out = append(out, sess)
		if len(out) == limit {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan sessions: %w", err)
	}
	return out, nil
}

// globPattern converts the "*" wildcard syntax into a Redis MATCH glob,
// escaping the other glob metacharacters so they match literally.
func globPattern(pattern string) string {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return "*"
	}
	return strings.NewReplacer(`\`, `\\`, `?`, `\?`, `[`, `\[`, `]`, `\]`).Replace(pattern)
}

func (s *SessionStore) accountKey(accountID string) string {
	return s.prefix + "account:" + accountID
}
