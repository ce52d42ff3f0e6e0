package auth

// Redis key prefixes
const (
	IdentityCachePrefix = "identity:email:" // email -> identity authority user id
	SessionKeyPrefix    = "session:"
)

// Error codes. token_invalid_or_expired deliberately covers "never
// existed", "deactivated" and "expired" alike so a caller probing tokens
// learns nothing from the failure class.
const (
	ErrConfigMissing      = "configuration_missing"
	ErrTokenMissing       = "token_missing"
	ErrTokenInvalid       = "token_invalid_or_expired"
	ErrUserNotFound       = "user_not_found"
	ErrExchangeFailed     = "exchange_failed"
	ErrStorage            = "storage_error"
	ErrEmailAlreadyExists = "email_already_exists"
)
