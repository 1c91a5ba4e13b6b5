package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/authbridge/relying-party/internal/core"
	"github.com/authbridge/relying-party/internal/data"
	"github.com/authbridge/relying-party/internal/domain/model"
)

// AuditorOptions groups dependencies for Auditor.
type AuditorOptions struct {
	Repo   core.AuditRepository
	Time   data.TimeProvider
	Logger *slog.Logger
}

// Auditor writes exactly one audit record per service operation, whether the
// operation succeeded or failed. Writes are best effort: a storage failure is
// logged and never turns a successful operation into a failed one.
type Auditor struct {
	repo   core.AuditRepository
	time   data.TimeProvider
	logger *slog.Logger
}

// NewAuditor constructs a new Auditor.
func NewAuditor(opts AuditorOptions) *Auditor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tp := opts.Time
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}
	return &Auditor{
		repo:   opts.Repo,
		time:   tp,
		logger: logger,
	}
}

// Span is one in-flight audited operation. AccountID and SessionID are
// attached as they become known during the operation.
type Span struct {
	auditor   *Auditor
	action    model.AuditAction
	started   time.Time
	accountID *string
	sessionID *string
}

// Begin starts an audited operation. Callers must End the span exactly once,
// normally via defer.
func (a *Auditor) Begin(action model.AuditAction) *Span {
	return &Span{
		auditor: a,
		action:  action,
		started: a.time.Now(),
	}
}

// SetAccountID attaches the acting account once it has been resolved.
func (s *Span) SetAccountID(id string) {
	s.accountID = &id
}

// SetSessionID attaches the session the operation ran under.
func (s *Span) SetSessionID(id string) {
	s.sessionID = &id
}

// End writes the audit record. The duration never goes negative even if the
// clock was adjusted mid-operation.
func (s *Span) End(ctx context.Context) {
	now := s.auditor.time.Now()
	duration := now.Sub(s.started).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	rec := model.AuditRecord{
		ID:         uuid.NewString(),
		Action:     s.action,
		AccountID:  s.accountID,
		SessionID:  s.sessionID,
		DurationMs: duration,
		CreatedAt:  now,
	}
	if err := s.auditor.repo.Create(ctx, rec); err != nil {
		s.auditor.logger.Error("audit write failed",
			"action", string(s.action),
			"duration_ms", duration,
			"error", err,
		)
	}
}
