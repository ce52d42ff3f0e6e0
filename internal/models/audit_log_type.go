package models

// AuditLogType defines the types of auditable events in the system
// Used for categorizing and filtering audit logs
type AuditLogType string

const (
	// QR token lifecycle audit log types
	AuditLogTypeQRTokenIssued   AuditLogType = "QR_TOKEN_ISSUED"   // New QR token issued for a user
	AuditLogTypeQRTokenReused   AuditLogType = "QR_TOKEN_REUSED"   // Existing active QR token returned unchanged
	AuditLogTypeQRTokenRotated  AuditLogType = "QR_TOKEN_ROTATED"  // QR token rotated, predecessor deactivated
	AuditLogTypeQRTokenRedeemed AuditLogType = "QR_TOKEN_REDEEMED" // QR token redeemed for session material
	AuditLogTypeQRRedeemFailed  AuditLogType = "QR_REDEEM_FAILED"  // Redemption attempt rejected

	// User management audit log types (thin forwarding to the identity authority)
	AuditLogTypeUserCreated   AuditLogType = "USER_CREATED"   // User created via the admin surface
	AuditLogTypeUserDeleted   AuditLogType = "USER_DELETED"   // User deleted via the admin surface
	AuditLogTypePasswordReset AuditLogType = "PASSWORD_RESET" // Password reset via the admin surface
)
