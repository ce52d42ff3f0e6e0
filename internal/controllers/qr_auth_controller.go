package controllers

import (
	"errors"
	"net/http"
	"net/url"

	"qr-auth-server/configs"
	"qr-auth-server/internal/auth"
	"qr-auth-server/internal/logics"

	"github.com/labstack/echo/v4"
)

// GenerateQRRequest is the payload for QR issuance and rotation
type GenerateQRRequest struct {
	Email        string `json:"email" form:"email"`
	IncludeImage bool   `json:"include_image" form:"include_image"` // Also return the rendered PNG
}

// GenerateQRResponse carries the durable redemption URL and its token
type GenerateQRResponse struct {
	URL           string `json:"url"`
	Token         string `json:"token"`
	Reused        bool   `json:"reused"`
	QRImageBase64 string `json:"qr_image_base64,omitempty"`
	Message       string `json:"message"`
}

// RedeemQRRequest is the POST redemption payload
type RedeemQRRequest struct {
	Token string `json:"token" form:"token"`
}

// RedeemQRResponse is the JSON representation of a redemption outcome.
// Either the credential pair is present, or needs_activation is true and
// redirect_url carries the activation link.
type RedeemQRResponse struct {
	Success         bool        `json:"success"`
	AccessToken     string      `json:"access_token,omitempty"`
	RefreshToken    string      `json:"refresh_token,omitempty"`
	ExpiresAt       interface{} `json:"expires_at,omitempty"`
	User            interface{} `json:"user,omitempty"`
	RedirectURL     string      `json:"redirect_url,omitempty"`
	NeedsActivation bool        `json:"needs_activation,omitempty"`
	Error           string      `json:"error,omitempty"`
}

// GenerateQRHandler issues (or idempotently returns) the persistent QR
// token for a user
// POST /auth/qr/generate
func GenerateQRHandler(c echo.Context) error {
	return handleIssue(c, false)
}

// RotateQRHandler forces a fresh token, invalidating every QR code in
// circulation for the user
// POST /auth/qr/rotate
func RotateQRHandler(c echo.Context) error {
	return handleIssue(c, true)
}

func handleIssue(c echo.Context, rotate bool) error {
	req := new(GenerateQRRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if req.Email == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "email is required"})
	}

	ctx := c.Request().Context()
	var (
		result *logics.IssueResult
		err    error
	)
	if rotate {
		result, err = logics.QRTokenSvc.Rotate(ctx, req.Email)
	} else {
		result, err = logics.QRTokenSvc.IssueOrReuse(ctx, req.Email)
	}
	if err != nil {
		return c.JSON(statusForError(err), map[string]string{"error": publicMessage(err)})
	}

	resp := GenerateQRResponse{
		URL:    result.URL,
		Token:  result.Token,
		Reused: result.Reused,
	}
	if result.Reused {
		resp.Message = "Existing persistent QR token"
	} else {
		resp.Message = "New persistent QR token generated"
	}

	if req.IncludeImage {
		img, imgErr := logics.QRImageSvc.RenderBase64(result.URL, req.Email)
		if imgErr != nil {
			// The token is issued either way; report the URL without the image.
			return c.JSON(http.StatusOK, resp)
		}
		resp.QRImageBase64 = img
	}

	return c.JSON(http.StatusOK, resp)
}

// RedeemQRHandler redeems a token presented in the request body
// POST /auth/qr
func RedeemQRHandler(c echo.Context) error {
	req := new(RedeemQRRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, RedeemQRResponse{Success: false, Error: "Invalid request"})
	}

	result, err := logics.QRTokenSvc.Redeem(c.Request().Context(), req.Token)
	if err != nil {
		return c.JSON(statusForError(err), RedeemQRResponse{Success: false, Error: publicMessage(err)})
	}

	return c.JSON(http.StatusOK, RedeemQRResponse{
		Success:         true,
		AccessToken:     result.AccessToken,
		RefreshToken:    result.RefreshToken,
		ExpiresAt:       result.ExpiresAt,
		User:            result.User,
		RedirectURL:     result.RedirectURL,
		NeedsActivation: result.NeedsActivation,
	})
}

// RedeemQRRedirectHandler redeems a token presented as the trailing path
// segment and answers with a redirect, the shape a scanned QR code lands on
// GET /auth/qr/:token
func RedeemQRRedirectHandler(c echo.Context) error {
	token := c.Param("token")

	result, err := logics.QRTokenSvc.Redeem(c.Request().Context(), token)
	if err != nil {
		return c.Redirect(http.StatusFound, errorRedirect(publicMessage(err)))
	}

	if result.NeedsActivation {
		return c.Redirect(http.StatusFound, result.RedirectURL)
	}

	// Credentials were recovered directly; hand them to the client the
	// way the identity authority does, in the redirect fragment.
	target := configs.Configs.QR.RedirectURL +
		"#access_token=" + url.QueryEscape(result.AccessToken) +
		"&refresh_token=" + url.QueryEscape(result.RefreshToken)
	return c.Redirect(http.StatusFound, target)
}

func errorRedirect(message string) string {
	base := configs.Configs.QR.ErrorRedirectURL
	if base == "" {
		base = "/"
	}
	return base + "?error=" + url.QueryEscape(message)
}

// statusForError maps the error taxonomy onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case auth.IsAuthError(err, auth.ErrTokenMissing):
		return http.StatusBadRequest
	case auth.IsAuthError(err, auth.ErrTokenInvalid):
		return http.StatusUnauthorized
	case auth.IsAuthError(err, auth.ErrUserNotFound):
		return http.StatusNotFound
	case auth.IsAuthError(err, auth.ErrExchangeFailed):
		return http.StatusBadGateway
	case auth.IsAuthError(err, auth.ErrEmailAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage exposes the coarse classification only, never wrapped
// internal detail.
func publicMessage(err error) string {
	var authErr *auth.AuthError
	if errors.As(err, &authErr) {
		return authErr.Message
	}
	return "internal error"
}
