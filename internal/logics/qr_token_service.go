package logics

import (
	"context"
	"strings"
	"time"

	"qr-auth-server/internal/auth"
	"qr-auth-server/internal/identity"
	"qr-auth-server/internal/models"
	"qr-auth-server/internal/repositories"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// identityCacheTTL bounds how long an email -> user id mapping is served
// from Redis before the authority is consulted again.
const identityCacheTTL = 5 * time.Minute

// routeEchoValues are path segments that reach the redeemer when a
// client mistakes the route itself for a token.
var routeEchoValues = map[string]bool{
	"qr":               true,
	"auth-by-qr-token": true,
}

// IdentityDirectory is the slice of the identity authority the token
// service needs for resolving users.
type IdentityDirectory interface {
	FindUserByEmail(ctx context.Context, email string) (*identity.User, error)
	GetUser(ctx context.Context, id string) (*identity.User, error)
}

// SessionMinter mints session material for a resolved identity.
type SessionMinter interface {
	MintSession(ctx context.Context, user *identity.User) (*ExchangeOutcome, error)
}

// AuditSink records audit events. *AuditLogService satisfies it.
type AuditSink interface {
	AddLog(logType models.AuditLogType, content interface{}, userID *string) error
}

// IssueResult is the outcome of issuance: a durable redemption URL and
// the opaque token it embeds. Reused is true when an existing active
// token was returned unchanged.
type IssueResult struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Reused bool   `json:"reused"`
}

// RedemptionResult is the outcome of presenting a valid token: either a
// live credential pair, or an activation URL the caller must redirect to.
type RedemptionResult struct {
	User            *identity.User `json:"user,omitempty"`
	AccessToken     string         `json:"access_token,omitempty"`
	RefreshToken    string         `json:"refresh_token,omitempty"`
	ExpiresAt       *time.Time     `json:"expires_at,omitempty"`
	RedirectURL     string         `json:"redirect_url,omitempty"`
	NeedsActivation bool           `json:"needs_activation,omitempty"`
}

// QRTokenService owns the persistent QR token lifecycle: issuing a
// single active token per user, rotating it, and redeeming a presented
// token for session material. It holds no state between calls; all state
// lives in the token store and the identity authority.
type QRTokenService struct {
	store     repositories.QRTokenRepository
	directory IdentityDirectory
	exchange  SessionMinter
	audit     AuditSink
	cache     *redis.Client // optional; nil disables the identity cache
	logger    *zap.Logger

	publicBaseURL string
	tokenTTL      time.Duration
}

func NewQRTokenService(
	store repositories.QRTokenRepository,
	directory IdentityDirectory,
	exchange SessionMinter,
	audit AuditSink,
	cache *redis.Client,
	logger *zap.Logger,
	publicBaseURL string,
	tokenTTL time.Duration,
) *QRTokenService {
	return &QRTokenService{
		store:         store,
		directory:     directory,
		exchange:      exchange,
		audit:         audit,
		cache:         cache,
		logger:        logger,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		tokenTTL:      tokenTTL,
	}
}

// IssueOrReuse returns the user's active QR token, issuing a new one
// only when none exists. Issuance is idempotent so QR codes already
// printed or distributed stay valid.
func (s *QRTokenService) IssueOrReuse(ctx context.Context, email string) (*IssueResult, error) {
	userID, err := s.resolveUserID(ctx, email)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		_ = s.audit.AddLog(models.AuditLogTypeQRTokenReused, map[string]interface{}{
			"email": email,
		}, &userID)
		return &IssueResult{URL: s.redemptionURL(existing.Token), Token: existing.Token, Reused: true}, nil
	}

	row, err := s.issueNew(ctx, userID)
	if err != nil {
		return nil, err
	}

	_ = s.audit.AddLog(models.AuditLogTypeQRTokenIssued, map[string]interface{}{
		"email": email,
	}, &userID)
	s.logger.Info("QR token issued", zap.String("user_id", userID))

	return &IssueResult{URL: s.redemptionURL(row.Token), Token: row.Token}, nil
}

// Rotate issues a fresh token for the user and deactivates every
// predecessor, invalidating any QR code in circulation.
func (s *QRTokenService) Rotate(ctx context.Context, email string) (*IssueResult, error) {
	userID, err := s.resolveUserID(ctx, email)
	if err != nil {
		return nil, err
	}

	row, err := s.issueNew(ctx, userID)
	if err != nil {
		return nil, err
	}

	_ = s.audit.AddLog(models.AuditLogTypeQRTokenRotated, map[string]interface{}{
		"email": email,
	}, &userID)
	s.logger.Info("QR token rotated", zap.String("user_id", userID))

	return &IssueResult{URL: s.redemptionURL(row.Token), Token: row.Token}, nil
}

// Redeem validates a presented token and exchanges the bound identity
// for session material. The token store is never mutated here: a QR code
// stays valid for repeated use until the issuer rotates it.
func (s *QRTokenService) Redeem(ctx context.Context, presented string) (*RedemptionResult, error) {
	token := strings.TrimSpace(presented)
	if token == "" || routeEchoValues[token] {
		return nil, auth.NewAuthError(auth.ErrTokenMissing, "token is required")
	}

	row, err := s.store.FindActiveByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if row == nil {
		// A single failure class for unknown, deactivated and expired
		// tokens; nothing to learn for a caller probing values.
		_ = s.audit.AddLog(models.AuditLogTypeQRRedeemFailed, map[string]interface{}{
			"token_prefix": tokenPrefix(token),
			"reason":       "invalid_or_expired",
		}, nil)
		return nil, auth.NewAuthError(auth.ErrTokenInvalid, "invalid or expired QR token")
	}

	user, err := s.directory.GetUser(ctx, row.UserID)
	if err != nil {
		if auth.IsAuthError(err, auth.ErrUserNotFound) {
			// Data drift: the identity was deleted after issuance.
			s.logger.Error("QR token bound to a missing identity",
				zap.String("user_id", row.UserID), zap.String("token_prefix", tokenPrefix(token)))
			_ = s.audit.AddLog(models.AuditLogTypeQRRedeemFailed, map[string]interface{}{
				"token_prefix": tokenPrefix(token),
				"reason":       "identity_missing",
			}, &row.UserID)
		}
		return nil, err
	}

	outcome, err := s.exchange.MintSession(ctx, user)
	if err != nil {
		return nil, err
	}

	_ = s.audit.AddLog(models.AuditLogTypeQRTokenRedeemed, map[string]interface{}{
		"token_prefix":     tokenPrefix(token),
		"needs_activation": outcome.NeedsActivation,
	}, &user.ID)

	result := &RedemptionResult{User: user}
	if outcome.Credentials != nil {
		result.AccessToken = outcome.Credentials.AccessToken
		result.RefreshToken = outcome.Credentials.RefreshToken
		result.ExpiresAt = outcome.Credentials.ExpiresAt
		return result, nil
	}
	result.RedirectURL = outcome.ActivationURL
	result.NeedsActivation = true
	return result, nil
}

// issueNew generates a token and swaps it in transactionally.
func (s *QRTokenService) issueNew(ctx context.Context, userID string) (*models.QRToken, error) {
	token, err := auth.GenerateQRToken()
	if err != nil {
		return nil, auth.NewAuthErrorWithCause(auth.ErrStorage, "failed to generate token", err)
	}

	var expiresAt *time.Time
	if s.tokenTTL > 0 {
		t := time.Now().Add(s.tokenTTL)
		expiresAt = &t
	}

	return s.store.RotateForUser(ctx, userID, token, expiresAt)
}

// resolveUserID maps an email to the authority's user id, serving from
// the Redis cache when possible. Redemption never goes through this
// cache; its identity check must see deletions immediately.
func (s *QRTokenService) resolveUserID(ctx context.Context, email string) (string, error) {
	if email == "" {
		return "", auth.NewAuthError(auth.ErrUserNotFound, "email is required")
	}

	cacheKey := auth.IdentityCachePrefix + email
	if s.cache != nil {
		if id, err := s.cache.Get(ctx, cacheKey).Result(); err == nil && id != "" {
			return id, nil
		}
	}

	user, err := s.directory.FindUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, user.ID, identityCacheTTL).Err(); err != nil {
			s.logger.Warn("failed to cache identity lookup", zap.Error(err))
		}
	}
	return user.ID, nil
}

func (s *QRTokenService) redemptionURL(token string) string {
	return s.publicBaseURL + "/auth/qr/" + token
}

// tokenPrefix returns the first 8 characters for logs, never the full value.
func tokenPrefix(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8]
}
