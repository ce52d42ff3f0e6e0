package logics

import (
	"time"

	"qr-auth-server/configs"
	"qr-auth-server/internal/repositories"
)

// Package-level service instances used by the controllers.
var (
	AuditLogSvc = NewAuditLogService()
	QRImageSvc  = NewQRImageService()
	QRTokenSvc  *QRTokenService
)

// IdentityClient is every identity authority capability the logics layer
// consumes; the identity package's client satisfies it.
type IdentityClient interface {
	IdentityDirectory
	LinkGenerator
}

// Init wires the request-serving singletons. Called once from main after
// configs and repositories are initialized.
func Init(authority IdentityClient) {
	exchange := NewSessionExchangeService(authority, configs.Configs.QR.RedirectURL, configs.Logger)
	store := repositories.NewGormQRTokenRepository(repositories.DBS.Postgres)
	ttl := time.Duration(configs.Configs.QR.TokenTtlMin) * time.Minute

	QRTokenSvc = NewQRTokenService(
		store,
		authority,
		exchange,
		AuditLogSvc,
		repositories.DBS.Redis,
		configs.Logger,
		configs.Configs.Service.PublicBaseURL,
		ttl,
	)
}
