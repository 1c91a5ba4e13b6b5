package model

import "time"

// DefaultSessionPeriod is the sliding-expiration window applied on every
// successful validation of an existing session.
const DefaultSessionPeriod = 900 * time.Second

// Session is the server-side proof of authenticated access, bound to exactly
// one account. ID is an opaque identifier used as a bearer token.
type Session struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExpiredAt reports whether the session is logically dead at the given
// instant. A session whose record still exists but whose deadline has passed
// must be treated as expired, not absent.
func (s *Session) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// CreateSessionRequest carries the credentials for session creation. Exactly
// one path is used per call: email/password, or a FIDO authentication
// response against an outstanding authentication request. When both are
// populated the password path takes precedence.
type CreateSessionRequest struct {
	Email                      string `json:"email,omitempty"`
	Password                   string `json:"password,omitempty"`
	AuthenticationRequestID    string `json:"authenticationRequestId,omitempty"`
	FIDOAuthenticationResponse string `json:"fidoAuthenticationResponse,omitempty"`
}

// CreateSessionResponse reports the minted session plus profile data and,
// for the FIDO path, the provider's response artifacts.
type CreateSessionResponse struct {
	SessionID                  string     `json:"sessionId,omitempty"`
	LoggedInWith               string     `json:"loggedInWith,omitempty"`
	Email                      string     `json:"email,omitempty"`
	FirstName                  string     `json:"firstName,omitempty"`
	LastName                   string     `json:"lastName,omitempty"`
	LastLoggedIn               *time.Time `json:"lastLoggedIn,omitempty"`
	FIDOAuthenticationResponse string     `json:"fidoAuthenticationResponse,omitempty"`
	FIDOResponseCode           *int64     `json:"fidoResponseCode,omitempty"`
	FIDOResponseMsg            string     `json:"fidoResponseMsg,omitempty"`
}
