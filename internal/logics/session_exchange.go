package logics

import (
	"context"
	"net/url"
	"time"

	"qr-auth-server/internal/identity"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// LinkGenerator is the slice of the identity authority the exchange
// adapter needs: minting a one-time login artifact for an email.
type LinkGenerator interface {
	GenerateMagicLink(ctx context.Context, email, redirectTo string) (string, error)
}

// SessionCredentials is a live access/refresh pair recovered from a
// login artifact.
type SessionCredentials struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

// ExchangeOutcome is the normalized result of minting session material:
// either Credentials is set, or NeedsActivation is true and ActivationURL
// carries the artifact for the caller to redirect to.
type ExchangeOutcome struct {
	User            *identity.User
	Credentials     *SessionCredentials
	ActivationURL   string
	NeedsActivation bool
}

// credentialExtractor attempts to recover an access/refresh pair from a
// login artifact URL, returning nil when the pair is not present where
// this strategy looks.
type credentialExtractor func(u *url.URL) *SessionCredentials

// SessionExchangeService turns a resolved identity into session material
// by way of the authority's magic-link artifact. The artifact's link
// format is not stable across authority configurations, so extraction is
// an ordered chain of strategies with a redirect fallback.
type SessionExchangeService struct {
	links       LinkGenerator
	redirectURL string
	logger      *zap.Logger

	extractors []credentialExtractor
}

func NewSessionExchangeService(links LinkGenerator, redirectURL string, logger *zap.Logger) *SessionExchangeService {
	return &SessionExchangeService{
		links:       links,
		redirectURL: redirectURL,
		logger:      logger,
		extractors:  []credentialExtractor{extractFromQuery, extractFromFragment},
	}
}

// MintSession requests a one-time login artifact for the user and tries
// to recover embedded session credentials from it. When no strategy
// matches, the raw artifact is returned for client-side activation
// instead of failing.
func (s *SessionExchangeService) MintSession(ctx context.Context, user *identity.User) (*ExchangeOutcome, error) {
	link, err := s.links.GenerateMagicLink(ctx, user.Email, s.redirectURL)
	if err != nil {
		return nil, err
	}

	parsed, err := url.Parse(link)
	if err != nil {
		// An unparseable artifact can still be followed by a browser.
		s.logger.Warn("login artifact is not a parseable URL, falling back to activation",
			zap.String("user_id", user.ID), zap.Error(err))
		return &ExchangeOutcome{User: user, ActivationURL: link, NeedsActivation: true}, nil
	}

	for _, extract := range s.extractors {
		if creds := extract(parsed); creds != nil {
			s.logger.Info("session credentials extracted from login artifact",
				zap.String("user_id", user.ID))
			return &ExchangeOutcome{User: user, Credentials: creds}, nil
		}
	}

	s.logger.Info("no embedded credentials in login artifact, activation required",
		zap.String("user_id", user.ID))
	return &ExchangeOutcome{User: user, ActivationURL: link, NeedsActivation: true}, nil
}

// extractFromQuery reads the pair from ordinary query parameters.
func extractFromQuery(u *url.URL) *SessionCredentials {
	return credentialsFromValues(u.Query())
}

// extractFromFragment reads the pair from a fragment encoded in query
// form (#access_token=...&refresh_token=...), the shape some authority
// configurations redirect with.
func extractFromFragment(u *url.URL) *SessionCredentials {
	if u.Fragment == "" {
		return nil
	}
	values, err := url.ParseQuery(u.Fragment)
	if err != nil {
		return nil
	}
	return credentialsFromValues(values)
}

func credentialsFromValues(values url.Values) *SessionCredentials {
	access := values.Get("access_token")
	refresh := values.Get("refresh_token")
	if access == "" || refresh == "" {
		return nil
	}
	return &SessionCredentials{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    accessTokenExpiry(access),
	}
}

// accessTokenExpiry decodes the exp claim of the access token without
// verifying the signature; the authority signed it and this service only
// relays it to the caller.
func accessTokenExpiry(accessToken string) *time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	t := exp.Time
	return &t
}
