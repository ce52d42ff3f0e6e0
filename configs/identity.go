package configs

// IdentityConfig holds the connection settings for the external identity
// authority (the system of record for users and session credentials).
type IdentityConfig struct {
	BaseURL    string `yaml:"base_url"`    // Admin API base URL, e.g. https://id.example.com
	ServiceKey string `yaml:"service_key"` // Service-role key sent as a bearer token
	TimeoutSec int    `yaml:"timeout_sec"` // Per-request timeout, defaults to 10s when 0
}
