package models

import (
	"time"

	"gorm.io/gorm"
)

// QRToken represents a persistent QR login credential bound to one user.
// The token column is the opaque value embedded in the redemption URL;
// at most one row per user may be active at any instant, which the
// partial unique index below enforces at the storage layer.
type QRToken struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID   string `gorm:"size:64;not null;index:idx_qr_tokens_user_active,unique,where:is_active" json:"user_id"` // Identity authority user id, not owned here
	Token    string `gorm:"size:128;not null;uniqueIndex" json:"token"`                                            // 64 hex chars, 256 bits of randomness
	IsActive bool   `gorm:"not null;default:false;index" json:"is_active"`

	// ExpiresAt is nil for non-expiring tokens (the default policy).
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	// Standard metadata fields
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// Expired reports whether the token has an expiry in the past.
func (t *QRToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && now.After(*t.ExpiresAt)
}
