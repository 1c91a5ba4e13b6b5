// Package idp contains simple hand-written test doubles for the provider
// and session store ports. These are lightweight and suitable for unit tests
// without codegen.
package idp

import (
	"context"
	"sync"

	"github.com/authbridge/relying-party/internal/domain/model"
	"github.com/authbridge/relying-party/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProvider = (*MockProvider)(nil)
	_ ports.SessionStore     = (*MemorySessionStore)(nil)
)

// MockProvider simulates the FIDO provider for tests. Each method delegates
// to its function field when set and otherwise returns a benign default.
type MockProvider struct {
	CreateRegistrationFunc           func(ctx context.Context, email, externalID string) (*ports.RegistrationResult, error)
	SubmitRegistrationResponseFunc   func(ctx context.Context, externalID, challengeRef, fidoResponse string) (*ports.RegistrationChallenge, error)
	CreateAuthRequestFunc            func(ctx context.Context) (*ports.AuthRequest, error)
	CreateTransactionAuthRequestFunc func(ctx context.Context, in ports.TransactionAuthInput) (*ports.AuthRequest, error)
	SubmitAuthResponseFunc           func(ctx context.Context, requestRef, fidoResponse string) (*ports.AuthRequest, error)
	ListAuthenticatorsFunc           func(ctx context.Context, externalID string) ([]model.AuthenticatorInfo, error)
	GetAuthenticatorFunc             func(ctx context.Context, externalID, authenticatorID string) (*model.AuthenticatorInfo, error)
	ArchiveAuthenticatorFunc         func(ctx context.Context, externalID, authenticatorID string) (string, error)
	DeactivateUserFunc               func(ctx context.Context, externalID string) ([]model.AuthenticatorInfo, error)
	FacetsFunc                       func(ctx context.Context) (*model.Facets, error)
	PolicyFunc                       func(ctx context.Context, kind string) (*model.PolicyInfo, error)
}

func (m *MockProvider) CreateRegistration(ctx context.Context, email, externalID string) (*ports.RegistrationResult, error) {
	if m.CreateRegistrationFunc != nil {
		return m.CreateRegistrationFunc(ctx, email, externalID)
	}
	return &ports.RegistrationResult{
		ExternalID: "ext-" + email,
		Challenge: ports.RegistrationChallenge{
			Ref:                     "reg-challenge-1",
			FIDORegistrationRequest: "{}",
		},
	}, nil
}

func (m *MockProvider) SubmitRegistrationResponse(ctx context.Context, externalID, challengeRef, fidoResponse string) (*ports.RegistrationChallenge, error) {
	if m.SubmitRegistrationResponseFunc != nil {
		return m.SubmitRegistrationResponseFunc(ctx, externalID, challengeRef, fidoResponse)
	}
	return &ports.RegistrationChallenge{
		Ref:                      challengeRef,
		FIDORegistrationResponse: "{}",
	}, nil
}

func (m *MockProvider) CreateAuthRequest(ctx context.Context) (*ports.AuthRequest, error) {
	if m.CreateAuthRequestFunc != nil {
		return m.CreateAuthRequestFunc(ctx)
	}
	return &ports.AuthRequest{
		Ref:                       "auth-request-1",
		FIDOAuthenticationRequest: "{}",
		Status:                    ports.StatusPending,
	}, nil
}

func (m *MockProvider) CreateTransactionAuthRequest(ctx context.Context, in ports.TransactionAuthInput) (*ports.AuthRequest, error) {
	if m.CreateTransactionAuthRequestFunc != nil {
		return m.CreateTransactionAuthRequestFunc(ctx, in)
	}
	return &ports.AuthRequest{
		Ref:                       "txn-request-1",
		FIDOAuthenticationRequest: "{}",
		Status:                    ports.StatusPending,
	}, nil
}

func (m *MockProvider) SubmitAuthResponse(ctx context.Context, requestRef, fidoResponse string) (*ports.AuthRequest, error) {
	if m.SubmitAuthResponseFunc != nil {
		return m.SubmitAuthResponseFunc(ctx, requestRef, fidoResponse)
	}
	return &ports.AuthRequest{
		Ref:    requestRef,
		Status: ports.StatusCompletedSuccessful,
	}, nil
}

func (m *MockProvider) ListAuthenticators(ctx context.Context, externalID string) ([]model.AuthenticatorInfo, error) {
	if m.ListAuthenticatorsFunc != nil {
		return m.ListAuthenticatorsFunc(ctx, externalID)
	}
	return nil, nil
}

func (m *MockProvider) GetAuthenticator(ctx context.Context, externalID, authenticatorID string) (*model.AuthenticatorInfo, error) {
	if m.GetAuthenticatorFunc != nil {
		return m.GetAuthenticatorFunc(ctx, externalID, authenticatorID)
	}
	return &model.AuthenticatorInfo{ID: authenticatorID}, nil
}

func (m *MockProvider) ArchiveAuthenticator(ctx context.Context, externalID, authenticatorID string) (string, error) {
	if m.ArchiveAuthenticatorFunc != nil {
		return m.ArchiveAuthenticatorFunc(ctx, externalID, authenticatorID)
	}
	return "{}", nil
}

func (m *MockProvider) DeactivateUser(ctx context.Context, externalID string) ([]model.AuthenticatorInfo, error) {
	if m.DeactivateUserFunc != nil {
		return m.DeactivateUserFunc(ctx, externalID)
	}
	return nil, nil
}

func (m *MockProvider) Facets(ctx context.Context) (*model.Facets, error) {
	if m.FacetsFunc != nil {
		return m.FacetsFunc(ctx)
	}
	return &model.Facets{}, nil
}

func (m *MockProvider) Policy(ctx context.Context, kind string) (*model.PolicyInfo, error) {
	if m.PolicyFunc != nil {
		return m.PolicyFunc(ctx, kind)
	}
	return &model.PolicyInfo{ID: kind + "-policy"}, nil
}

// MemorySessionStore is an in-memory session store for tests. Unlike the
// Redis store it never drops expired records on its own, which keeps the
// expired-versus-unknown distinction observable in tests.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]model.Session
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]model.Session)}
}

func (s *MemorySessionStore) Save(_ context.Context, sess model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *MemorySessionStore) Get(_ context.Context, id string) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return model.Session{}, ports.ErrSessionNotFound
	}
	return sess, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *MemorySessionStore) DeleteByAccount(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.AccountID == accountID {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s *MemorySessionStore) FindByIDLike(_ context.Context, pattern string, limit int) ([]model.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []model.Session
	for _, sess := range s.sessions {
		if matchWildcard(pattern, sess.ID) {
			matched = append(matched, sess)
			if len(matched) == limit {
				break
			}
		}
	}
	return matched, nil
}

// Len reports the number of stored sessions.
func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
