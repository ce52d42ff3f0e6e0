package controllers

import (
	"net/http"

	"qr-auth-server/internal/auth"
	"qr-auth-server/internal/identity"
	"qr-auth-server/internal/logics"
	"qr-auth-server/internal/models"

	"github.com/labstack/echo/v4"
)

// The admin surface is pure request-forwarding to the identity
// authority; no user data is kept here beyond the audit trail.

// CreateUserRequest is the payload for user creation
type CreateUserRequest struct {
	Email    string         `json:"email" form:"email"`
	Password string         `json:"password" form:"password"` // Optional; generated when empty
	Metadata map[string]any `json:"metadata"`
}

// CreateUserResponse reports the created user and the password in effect
type CreateUserResponse struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message"`
	User     *identity.User `json:"user,omitempty"`
	Password string         `json:"password,omitempty"`
}

// CreateUserHandler forwards user creation to the identity authority
// POST /admin/users
func CreateUserHandler(c echo.Context) error {
	req := new(CreateUserRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if req.Email == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "email is required"})
	}

	authority, err := identity.Get()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": publicMessage(err)})
	}

	password := req.Password
	if password == "" {
		password = auth.GenerateRandomString(12)
	}

	user, err := authority.CreateUser(c.Request().Context(), identity.CreateUserParams{
		Email:        req.Email,
		Password:     password,
		EmailConfirm: true,
		Metadata:     req.Metadata,
	})
	if err != nil {
		if auth.IsAuthError(err, auth.ErrEmailAlreadyExists) {
			// Matches the authority's admin tooling: an existing user is
			// reported, not treated as a failure.
			return c.JSON(http.StatusOK, CreateUserResponse{
				Success: true,
				Message: "A user with this email already exists",
			})
		}
		return c.JSON(statusForError(err), map[string]string{"error": publicMessage(err)})
	}

	content := map[string]interface{}{
		"email": req.Email,
		"ip":    c.RealIP(),
	}
	logics.AuditLogSvc.AddLog(models.AuditLogTypeUserCreated, content, &user.ID)

	return c.JSON(http.StatusOK, CreateUserResponse{
		Success:  true,
		Message:  "User created",
		User:     user,
		Password: password,
	})
}

// ResetPasswordResponse carries the newly generated password
type ResetPasswordResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Password string `json:"password,omitempty"`
}

// ResetPasswordHandler sets a freshly generated password for a user
// POST /admin/users/:id/reset-password
func ResetPasswordHandler(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user id is required"})
	}

	authority, err := identity.Get()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": publicMessage(err)})
	}

	password := auth.GenerateRandomString(12)
	if err := authority.UpdateUserPassword(c.Request().Context(), userID, password); err != nil {
		return c.JSON(statusForError(err), map[string]string{"error": publicMessage(err)})
	}

	content := map[string]interface{}{
		"ip": c.RealIP(),
	}
	logics.AuditLogSvc.AddLog(models.AuditLogTypePasswordReset, content, &userID)

	return c.JSON(http.StatusOK, ResetPasswordResponse{
		Success:  true,
		Message:  "Password reset",
		Password: password,
	})
}

// DeleteUserHandler forwards user deletion to the identity authority
// DELETE /admin/users/:id
func DeleteUserHandler(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user id is required"})
	}

	authority, err := identity.Get()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": publicMessage(err)})
	}

	if err := authority.DeleteUser(c.Request().Context(), userID); err != nil {
		return c.JSON(statusForError(err), map[string]string{"error": publicMessage(err)})
	}

	content := map[string]interface{}{
		"ip": c.RealIP(),
	}
	logics.AuditLogSvc.AddLog(models.AuditLogTypeUserDeleted, content, &userID)

	return c.JSON(http.StatusOK, map[string]string{"message": "User deleted"})
}
