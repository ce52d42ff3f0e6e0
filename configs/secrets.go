package configs

type Secrets struct {
	SessionSecret string `yaml:"session_secret"`
	AdminToken    string `yaml:"admin_token"` // Bearer token required on /admin and QR issuance endpoints
}
