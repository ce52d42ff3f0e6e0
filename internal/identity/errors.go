package identity

import (
	"encoding/json"
	"strings"

	"qr-auth-server/internal/auth"
)

// apiError mirrors the loosely-typed error bodies the identity authority
// produces. Field names vary across versions of the authority, so every
// observed spelling is decoded and the first non-empty one wins.
type apiError struct {
	ErrorCode string `json:"error_code"`
	Msg       string `json:"msg"`
	Message   string `json:"message"`
	ErrorStr  string `json:"error"`
}

func (e *apiError) text() string {
	for _, s := range []string{e.Msg, e.Message, e.ErrorStr} {
		if s != "" {
			return s
		}
	}
	return ""
}

// classifyError turns an authority error body into a typed AuthError.
// Structured error codes are preferred; substring matching on the
// message is the documented last resort for authority versions that
// return free text only.
func classifyError(status int, body []byte) *auth.AuthError {
	var apiErr apiError
	_ = json.Unmarshal(body, &apiErr)

	msg := apiErr.text()
	if msg == "" {
		msg = "identity authority request failed"
	}

	switch apiErr.ErrorCode {
	case "user_not_found":
		return auth.NewAuthError(auth.ErrUserNotFound, msg)
	case "email_exists", "user_already_exists":
		return auth.NewAuthError(auth.ErrEmailAlreadyExists, msg)
	}

	if status == 404 {
		return auth.NewAuthError(auth.ErrUserNotFound, msg)
	}

	// Fallback heuristics for authorities without structured codes.
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "already registered") || strings.Contains(lower, "already exists") {
		return auth.NewAuthError(auth.ErrEmailAlreadyExists, msg)
	}
	if strings.Contains(lower, "not found") {
		return auth.NewAuthError(auth.ErrUserNotFound, msg)
	}

	return auth.NewAuthError(auth.ErrExchangeFailed, msg)
}
