package model

import "time"

// AuditAction identifies the operation recorded by an audit record.
type AuditAction string

const (
	AuditCreateAccount           AuditAction = "CREATE_ACCOUNT"
	AuditDeleteAccount           AuditAction = "DELETE_ACCOUNT"
	AuditCreateSession           AuditAction = "CREATE_SESSION"
	AuditDeleteSession           AuditAction = "DELETE_SESSION"
	AuditCreateAuthRequest       AuditAction = "CREATE_AUTH_REQUEST"
	AuditCreateRegRequest        AuditAction = "CREATE_REG_REQUEST"
	AuditCreateAuthenticator     AuditAction = "CREATE_AUTHENTICATOR"
	AuditListAuthenticators      AuditAction = "LIST_AUTHENTICATORS"
	AuditGetAuthenticator        AuditAction = "GET_AUTHENTICATOR"
	AuditDeleteAuthenticator     AuditAction = "DELETE_AUTHENTICATOR"
	AuditCreateTransactionAuth   AuditAction = "CREATE_TRANSACTION_AUTH_REQUEST"
	AuditValidateTransactionAuth AuditAction = "VALIDATE_TRANSACTION_AUTH"
	AuditGetFacets               AuditAction = "GET_FACETS"
	AuditGetPolicy               AuditAction = "GET_POLICY"

	// Inspection actions cover the dev-only debugging surface.
	AuditGetAccount  AuditAction = "GET_ACCOUNT"
	AuditGetAccounts AuditAction = "GET_ACCOUNTS"
	AuditGetSessions AuditAction = "GET_SESSIONS"
	AuditGetAudits   AuditAction = "GET_AUDITS"
)

// AuditRecord is an immutable log of one operation invocation. It references
// accounts and sessions by copied identifier only, so it survives their
// deletion. Exactly one record is written per invocation regardless of
// outcome.
type AuditRecord struct {
	ID         string      `db:"id"          json:"id"`
	Action     AuditAction `db:"action"      json:"action"`
	AccountID  *string     `db:"account_id"  json:"accountId,omitempty"`
	SessionID  *string     `db:"session_id"  json:"sessionId,omitempty"`
	DurationMs int64       `db:"duration_ms" json:"durationMs"`
	CreatedAt  time.Time   `db:"created_at"  json:"createdAt"`
}
