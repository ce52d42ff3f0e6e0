package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"qr-auth-server/configs"
	"qr-auth-server/internal/auth"
	"qr-auth-server/internal/identity"
	"qr-auth-server/internal/logics"
	"qr-auth-server/internal/models"
)

// Handler tests run against real service logic wired to in-memory
// collaborators, so they cover the full request path below the router.

type stubTokenStore struct {
	rows []*models.QRToken
}

func (f *stubTokenStore) FindActiveByToken(_ context.Context, token string) (*models.QRToken, error) {
	for _, r := range f.rows {
		if r.Token == token && r.IsActive {
			return r, nil
		}
	}
	return nil, nil
}

func (f *stubTokenStore) FindActiveByUser(_ context.Context, userID string) (*models.QRToken, error) {
	for _, r := range f.rows {
		if r.UserID == userID && r.IsActive {
			return r, nil
		}
	}
	return nil, nil
}

func (f *stubTokenStore) DeactivateAllForUser(_ context.Context, userID string) (int64, error) {
	var n int64
	for _, r := range f.rows {
		if r.UserID == userID && r.IsActive {
			r.IsActive = false
			n++
		}
	}
	return n, nil
}

func (f *stubTokenStore) InsertActive(_ context.Context, userID, token string, expiresAt *time.Time) (*models.QRToken, error) {
	row := &models.QRToken{UserID: userID, Token: token, IsActive: true, ExpiresAt: expiresAt}
	f.rows = append(f.rows, row)
	return row, nil
}

func (f *stubTokenStore) RotateForUser(ctx context.Context, userID, token string, expiresAt *time.Time) (*models.QRToken, error) {
	if _, err := f.DeactivateAllForUser(ctx, userID); err != nil {
		return nil, err
	}
	return f.InsertActive(ctx, userID, token, expiresAt)
}

type stubDirectory struct {
	users map[string]*identity.User // keyed by both id and email
}

func (d *stubDirectory) FindUserByEmail(_ context.Context, email string) (*identity.User, error) {
	if u, ok := d.users[email]; ok {
		return u, nil
	}
	return nil, auth.NewAuthError(auth.ErrUserNotFound, "user not found")
}

func (d *stubDirectory) GetUser(_ context.Context, id string) (*identity.User, error) {
	if u, ok := d.users[id]; ok {
		return u, nil
	}
	return nil, auth.NewAuthError(auth.ErrUserNotFound, "user not found")
}

type stubMinter struct {
	outcome *logics.ExchangeOutcome
	err     error
}

func (m *stubMinter) MintSession(_ context.Context, user *identity.User) (*logics.ExchangeOutcome, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := *m.outcome
	out.User = user
	return &out, nil
}

type discardAudit struct{}

func (discardAudit) AddLog(models.AuditLogType, interface{}, *string) error { return nil }

var testUser = &identity.User{ID: "user-1", Email: "employee@example.com"}

func setupHandlers(t *testing.T, minter *stubMinter) *stubTokenStore {
	t.Helper()

	store := &stubTokenStore{}
	dir := &stubDirectory{users: map[string]*identity.User{
		testUser.ID:    testUser,
		testUser.Email: testUser,
	}}

	prevToken, prevImage := logics.QRTokenSvc, logics.QRImageSvc
	prevQR := configs.Configs.QR
	t.Cleanup(func() {
		logics.QRTokenSvc, logics.QRImageSvc = prevToken, prevImage
		configs.Configs.QR = prevQR
	})

	logics.QRTokenSvc = logics.NewQRTokenService(
		store, dir, minter, discardAudit{}, nil, zap.NewNop(), "https://app.example.com", 0)
	logics.QRImageSvc = logics.NewQRImageService()
	configs.Configs.QR.RedirectURL = "https://app.example.com/welcome"
	configs.Configs.QR.ErrorRedirectURL = "https://app.example.com/login"

	return store
}

func jsonRequest(method, target, body string) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req, httptest.NewRecorder()
}

func TestGenerateQRHandler(t *testing.T) {
	e := echo.New()

	t.Run("issues and then reuses a token", func(t *testing.T) {
		setupHandlers(t, &stubMinter{outcome: &logics.ExchangeOutcome{}})

		req, rec := jsonRequest(http.MethodPost, "/auth/qr/generate", `{"email":"employee@example.com"}`)
		require.NoError(t, GenerateQRHandler(e.NewContext(req, rec)))
		require.Equal(t, http.StatusOK, rec.Code)

		var first GenerateQRResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
		assert.False(t, first.Reused)
		assert.Len(t, first.Token, 64)
		assert.Equal(t, "https://app.example.com/auth/qr/"+first.Token, first.URL)
		assert.Equal(t, "New persistent QR token generated", first.Message)

		req, rec = jsonRequest(http.MethodPost, "/auth/qr/generate", `{"email":"employee@example.com"}`)
		require.NoError(t, GenerateQRHandler(e.NewContext(req, rec)))

		var second GenerateQRResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
		assert.True(t, second.Reused)
		assert.Equal(t, first.Token, second.Token)
		assert.Equal(t, "Existing persistent QR token", second.Message)
	})

	t.Run("optionally includes the rendered image", func(t *testing.T) {
		setupHandlers(t, &stubMinter{outcome: &logics.ExchangeOutcome{}})

		req, rec := jsonRequest(http.MethodPost, "/auth/qr/generate",
			`{"email":"employee@example.com","include_image":true}`)
		require.NoError(t, GenerateQRHandler(e.NewContext(req, rec)))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp GenerateQRResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.QRImageBase64)
	})

	t.Run("requires an email", func(t *testing.T) {
		setupHandlers(t, &stubMinter{outcome: &logics.ExchangeOutcome{}})

		req, rec := jsonRequest(http.MethodPost, "/auth/qr/generate", `{}`)
		require.NoError(t, GenerateQRHandler(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("maps unknown emails to 404", func(t *testing.T) {
		setupHandlers(t, &stubMinter{outcome: &logics.ExchangeOutcome{}})

		req, rec := jsonRequest(http.MethodPost, "/auth/qr/generate", `{"email":"nobody@example.com"}`)
		require.NoError(t, GenerateQRHandler(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRotateQRHandler(t *testing.T) {
	e := echo.New()

	t.Run("invalidates the previous token", func(t *testing.T) {
		store := setupHandlers(t, &stubMinter{outcome: &logics.ExchangeOutcome{}})

		req, rec := jsonRequest(http.MethodPost, "/auth/qr/generate", `{"email":"employee@example.com"}`)
		require.NoError(t, GenerateQRHandler(e.NewContext(req, rec)))
		var first GenerateQRResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))

		req, rec = jsonRequest(http.MethodPost, "/auth/qr/rotate", `{"email":"employee@example.com"}`)
		require.NoError(t, RotateQRHandler(e.NewContext(req, rec)))
		require.Equal(t, http.StatusOK, rec.Code)

		var rotated GenerateQRResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rotated))
		assert.NotEqual(t, first.Token, rotated.Token)

		old, err := store.FindActiveByToken(context.Background(), first.Token)
		require.NoError(t, err)
		assert.Nil(t, old)
	})
}

func TestRedeemQRHandler(t *testing.T) {
	e := echo.New()
	creds := &logics.ExchangeOutcome{
		Credentials: &logics.SessionCredentials{AccessToken: "at", RefreshToken: "rt"},
	}

	issueToken := func(t *testing.T) string {
		t.Helper()
		req, rec := jsonRequest(http.MethodPost, "/auth/qr/generate", `{"email":"employee@example.com"}`)
		require.NoError(t, GenerateQRHandler(e.NewContext(req, rec)))
		var resp GenerateQRResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp.Token
	}

	t.Run("exchanges a valid token for credentials", func(t *testing.T) {
		setupHandlers(t, &stubMinter{outcome: creds})
		token := issueToken(t)

		req, rec := jsonRequest(http.MethodPost, "/auth/qr", `{"token":"`+token+`"}`)
		require.NoError(t, RedeemQRHandler(e.NewContext(req, rec)))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp RedeemQRResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "at", resp.AccessToken)
		assert.Equal(t, "rt", resp.RefreshToken)
		assert.False(t, resp.NeedsActivation)
	})

	t.Run("rejects a missing token with 400", func(t *testing.T) {
		setupHandlers(t, &stubMinter{outcome: creds})

		req, rec := jsonRequest(http.MethodPost, "/auth/qr", `{"token":""}`)
		require.NoError(t, RedeemQRHandler(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects an unknown token with 401", func(t *testing.T) {
		setupHandlers(t, &stubMinter{outcome: creds})

		req, rec := jsonRequest(http.MethodPost, "/auth/qr",
			`{"token":"`+strings.Repeat("ab", 32)+`"}`)
		require.NoError(t, RedeemQRHandler(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		var resp RedeemQRResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.NotEmpty(t, resp.Error)
	})
}

func TestRedeemQRRedirectHandler(t *testing.T) {
	e := echo.New()

	redeemViaGet := func(t *testing.T, token string) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, "/auth/qr/"+token, nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("token")
		c.SetParamValues(token)
		require.NoError(t, RedeemQRRedirectHandler(c))
		return rec
	}

	t.Run("redirects with credentials in the fragment", func(t *testing.T) {
		setupHandlers(t, &stubMinter{outcome: &logics.ExchangeOutcome{
			Credentials: &logics.SessionCredentials{AccessToken: "at", RefreshToken: "rt"},
		}})

		req, rec := jsonRequest(http.MethodPost, "/auth/qr/generate", `{"email":"employee@example.com"}`)
		require.NoError(t, GenerateQRHandler(e.NewContext(req, rec)))
		var issued GenerateQRResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &issued))

		got := redeemViaGet(t, issued.Token)
		assert.Equal(t, http.StatusFound, got.Code)
		assert.Equal(t,
			"https://app.example.com/welcome#access_token=at&refresh_token=rt",
			got.Header().Get(echo.HeaderLocation))
	})

	t.Run("redirects to the activation link when required", func(t *testing.T) {
		activation := "https://id.example.com/verify?token=one-time"
		setupHandlers(t, &stubMinter{outcome: &logics.ExchangeOutcome{
			ActivationURL:   activation,
			NeedsActivation: true,
		}})

		req, rec := jsonRequest(http.MethodPost, "/auth/qr/generate", `{"email":"employee@example.com"}`)
		require.NoError(t, GenerateQRHandler(e.NewContext(req, rec)))
		var issued GenerateQRResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &issued))

		got := redeemViaGet(t, issued.Token)
		assert.Equal(t, http.StatusFound, got.Code)
		assert.Equal(t, activation, got.Header().Get(echo.HeaderLocation))
	})

	t.Run("redirects failures to the error page", func(t *testing.T) {
		setupHandlers(t, &stubMinter{outcome: &logics.ExchangeOutcome{}})

		got := redeemViaGet(t, strings.Repeat("cd", 32))
		assert.Equal(t, http.StatusFound, got.Code)
		location := got.Header().Get(echo.HeaderLocation)
		assert.True(t, strings.HasPrefix(location, "https://app.example.com/login?error="))
	})
}
