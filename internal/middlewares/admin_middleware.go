package middlewares

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"qr-auth-server/configs"

	"github.com/labstack/echo/v4"
)

// AdminMiddleware guards the issuance and admin endpoints with the
// configured service token. Callers present it as a bearer token; the
// comparison is constant-time.
func AdminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		expected := configs.Configs.Secrets.AdminToken
		if expected == "" {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "admin token is not configured"})
		}

		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing authorization header"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid authorization header format"})
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(expected)) != 1 {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "admin access required"})
		}

		return next(c)
	}
}
