package config

import "strings"

// Provider modes selectable via FIDO_PROVIDER.
const (
	ProviderModeIdentityX = "identityx"
	ProviderModeDev       = "dev"
)

// ProviderConfig contains FIDO provider configuration.
type ProviderConfig struct {
	// Mode selects the provider backend: "identityx" or "dev".
	// The dev provider is in-memory and suitable only for local development.
	Mode string `env:"PROVIDER" envDefault:"identityx"`

	// BaseURL is the root of the provider's REST API.
	BaseURL string `env:"BASE_URL" envDefault:""`

	// APIKey is sent as a bearer token on every provider request.
	APIKey string `env:"API_KEY" envDefault:""`

	// ApplicationID names the provider application this deployment serves.
	ApplicationID string `env:"APPLICATION_ID" envDefault:""`

	// RegPolicyID and AuthPolicyID name the registration and authentication
	// policies resolved at startup.
	RegPolicyID  string `env:"REG_POLICY_ID" envDefault:""`
	AuthPolicyID string `env:"AUTH_POLICY_ID" envDefault:""`
}

// Sanitize applies guardrails to provider configuration values.
func (p *ProviderConfig) Sanitize() {
	p.Mode = strings.ToLower(strings.TrimSpace(p.Mode))
	if p.Mode == "" {
		p.Mode = ProviderModeIdentityX
	}
}
