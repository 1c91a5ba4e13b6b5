package config

import "time"

// SessionConfig contains session lifetime configuration.
type SessionConfig struct {
	// Period is how long an idle session stays valid. Each successful
	// validation restarts the clock.
	Period time.Duration `env:"SESSION_PERIOD" envDefault:"15m"`
}

// Sanitize applies guardrails to session configuration values.
func (s *SessionConfig) Sanitize() {
	if s.Period <= 0 {
		s.Period = 15 * time.Minute
	}
}
