package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/authbridge/relying-party/internal/core"
	"github.com/authbridge/relying-party/internal/domain/model"
	"github.com/authbridge/relying-party/internal/ports"
)

// InspectionServiceOptions groups dependencies for InspectionService.
type InspectionServiceOptions struct {
	Accounts core.AccountRepository
	Sessions ports.SessionStore
	Audits   core.AuditRepository
	Auditor  *Auditor
	Logger   *slog.Logger
}

// InspectionService exposes read-only lookups over the stored accounts,
// sessions, and audit trail. It exists for debugging against a dev
// deployment and is only mounted when the service runs in dev mode; none of
// its operations require a session.
type InspectionService struct {
	accounts core.AccountRepository
	sessions ports.SessionStore
	audits   core.AuditRepository
	auditor  *Auditor
	logger   *slog.Logger
}

// NewInspectionService constructs a new InspectionService.
func NewInspectionService(opts InspectionServiceOptions) *InspectionService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &InspectionService{
		accounts: opts.Accounts,
		sessions: opts.Sessions,
		audits:   opts.Audits,
		auditor:  opts.Auditor,
		logger:   logger,
	}
}

// GetAccount returns one account by ID.
func (s *InspectionService) GetAccount(ctx context.Context, id string) (acct model.Account, err error) {
	span := s.auditor.Begin(model.AuditGetAccount)
	span.SetAccountID(id)
	defer func() { span.End(ctx) }()

	return s.accounts.GetByID(ctx, id)
}

// SearchAccounts returns a page of accounts whose email matches the pattern.
// "*" is the wildcard; an empty pattern matches everything.
func (s *InspectionService) SearchAccounts(ctx context.Context, pattern string, limit, offset int) (accts []model.Account, err error) {
	span := s.auditor.Begin(model.AuditGetAccounts)
	defer func() { span.End(ctx) }()

	return s.accounts.SearchByEmailLike(ctx, pattern, limit, offset)
}

// SearchSessions returns up to limit sessions whose ID matches the pattern,
// expired-but-retained records included.
func (s *InspectionService) SearchSessions(ctx context.Context, pattern string, limit int) (sessions []model.Session, err error) {
	span := s.auditor.Begin(model.AuditGetSessions)
	defer func() { span.End(ctx) }()

	return s.sessions.FindByIDLike(ctx, pattern, limit)
}

// ListAudits returns a page of audit records older than the given instant,
// newest first. A zero instant means "now".
func (s *InspectionService) ListAudits(ctx context.Context, before time.Time, limit, offset int) (records []model.AuditRecord, err error) {
	span := s.auditor.Begin(model.AuditGetAudits)
	defer func() { span.End(ctx) }()

	return s.audits.ListCreatedBefore(ctx, before, limit, offset)
}
