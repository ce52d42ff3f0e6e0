package httpEngine

import (
	"net/http"
	"time"

	"qr-auth-server/internal/controllers"
	"qr-auth-server/internal/middlewares"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// RegisterRoutes sets up all the server routes
func RegisterRoutes(e *echo.Echo) {
	// Basic health check
	e.GET("/", func(c echo.Context) error {
		sess, err := session.Get("session", c)
		if err != nil {
			return err
		}
		if err := sess.Save(c.Request(), c.Response()); err != nil {
			return err
		}
		return c.String(http.StatusOK, "Hello, from QR Auth Server!")
	})

	// Rate limiter for the redemption endpoints, keyed on client IP so
	// one client cannot probe token values freely.
	redeemLimiter := middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      5,             // 5 requests
				Burst:     10,            // Burst of 10 requests
				ExpiresIn: 1 * time.Hour, // Per 1 hour
			},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(ctx echo.Context, err error) error {
			return ctx.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Too many requests. Please try again later.",
			})
		},
		DenyHandler: func(ctx echo.Context, identifier string, err error) error {
			return ctx.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Too many requests. Please try again later.",
			})
		},
	}

	// QR token endpoints
	qrGroup := e.Group("/auth/qr")
	{
		// Issuance and rotation are operator actions
		qrGroup.POST("/generate", controllers.GenerateQRHandler, middlewares.AdminMiddleware)
		qrGroup.POST("/rotate", controllers.RotateQRHandler, middlewares.AdminMiddleware)

		// Redemption: token in the POST body, or as the trailing path
		// segment for scanned codes
		qrGroup.POST("", controllers.RedeemQRHandler, middleware.RateLimiterWithConfig(redeemLimiter))
		qrGroup.GET("/:token", controllers.RedeemQRRedirectHandler, middleware.RateLimiterWithConfig(redeemLimiter))
	}

	// Thin forwarding to the identity authority
	adminGroup := e.Group("/admin")
	adminGroup.Use(middlewares.AdminMiddleware)
	{
		adminGroup.POST("/users", controllers.CreateUserHandler)
		adminGroup.POST("/users/:id/reset-password", controllers.ResetPasswordHandler)
		adminGroup.DELETE("/users/:id", controllers.DeleteUserHandler)
	}
}
