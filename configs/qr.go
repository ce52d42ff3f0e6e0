package configs

// QRConfig controls the QR token lifecycle and the redemption redirects.
type QRConfig struct {
	// TokenTtlMin is the lifetime of a newly issued QR token in minutes.
	// 0 means the token never expires and stays valid until rotated.
	TokenTtlMin int `yaml:"token_ttl_min"`

	// RedirectURL is the destination the identity authority sends the
	// browser to after the one-time login artifact is consumed.
	RedirectURL string `yaml:"redirect_url"`

	// ErrorRedirectURL receives failed GET redemptions with ?error=<message>.
	ErrorRedirectURL string `yaml:"error_redirect_url"`
}
