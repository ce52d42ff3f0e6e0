package repositories

import (
	"context"
	"errors"
	"time"

	"qr-auth-server/internal/auth"
	"qr-auth-server/internal/models"

	"gorm.io/gorm"
)

// QRTokenRepository is the token store contract: a durable mapping from
// opaque token strings to user identities with an activity flag. A nil
// row with a nil error means "no match"; errors are always storage
// failures, classified as auth.ErrStorage.
type QRTokenRepository interface {
	FindActiveByToken(ctx context.Context, token string) (*models.QRToken, error)
	FindActiveByUser(ctx context.Context, userID string) (*models.QRToken, error)
	DeactivateAllForUser(ctx context.Context, userID string) (int64, error)
	InsertActive(ctx context.Context, userID, token string, expiresAt *time.Time) (*models.QRToken, error)
	// RotateForUser runs DeactivateAllForUser and InsertActive as one
	// transaction so concurrent issuance for the same user cannot leave
	// two active rows (the partial unique index backs this up).
	RotateForUser(ctx context.Context, userID, token string, expiresAt *time.Time) (*models.QRToken, error)
}

// GormQRTokenRepository implements QRTokenRepository on GORM/Postgres.
type GormQRTokenRepository struct {
	db *gorm.DB
}

func NewGormQRTokenRepository(db *gorm.DB) *GormQRTokenRepository {
	return &GormQRTokenRepository{db: db}
}

func (r *GormQRTokenRepository) FindActiveByToken(ctx context.Context, token string) (*models.QRToken, error) {
	var row models.QRToken
	err := r.db.WithContext(ctx).
		Where("token = ? AND is_active = ?", token, true).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, auth.NewAuthErrorWithCause(auth.ErrStorage, "failed to look up QR token", err)
	}
	return &row, nil
}

func (r *GormQRTokenRepository) FindActiveByUser(ctx context.Context, userID string) (*models.QRToken, error) {
	var row models.QRToken
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, auth.NewAuthErrorWithCause(auth.ErrStorage, "failed to look up active QR token for user", err)
	}
	return &row, nil
}

func (r *GormQRTokenRepository) DeactivateAllForUser(ctx context.Context, userID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.QRToken{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Update("is_active", false)
	if result.Error != nil {
		return 0, auth.NewAuthErrorWithCause(auth.ErrStorage, "failed to deactivate QR tokens", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *GormQRTokenRepository) InsertActive(ctx context.Context, userID, token string, expiresAt *time.Time) (*models.QRToken, error) {
	row := models.QRToken{
		UserID:    userID,
		Token:     token,
		IsActive:  true,
		ExpiresAt: expiresAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, auth.NewAuthErrorWithCause(auth.ErrStorage, "failed to insert QR token", err)
	}
	return &row, nil
}

func (r *GormQRTokenRepository) RotateForUser(ctx context.Context, userID, token string, expiresAt *time.Time) (*models.QRToken, error) {
	var row *models.QRToken
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.QRToken{}).
			Where("user_id = ? AND is_active = ?", userID, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		created := models.QRToken{
			UserID:    userID,
			Token:     token,
			IsActive:  true,
			ExpiresAt: expiresAt,
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}
		row = &created
		return nil
	})
	if err != nil {
		return nil, auth.NewAuthErrorWithCause(auth.ErrStorage, "failed to rotate QR token", err)
	}
	return row, nil
}
