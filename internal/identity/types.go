package identity

// User is the minimal identity record this service consumes. The full
// record lives in the external identity authority.
type User struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"user_metadata,omitempty"`
}

// CreateUserParams is the payload of the thin create-user forwarding.
type CreateUserParams struct {
	Email        string         `json:"email"`
	Password     string         `json:"password"`
	EmailConfirm bool           `json:"email_confirm"`
	Metadata     map[string]any `json:"user_metadata,omitempty"`
}
