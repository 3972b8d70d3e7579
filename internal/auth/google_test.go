package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/Kyz7/juna/internal/apperror"
	"github.com/Kyz7/juna/internal/config"
	"github.com/Kyz7/juna/internal/database"
	"github.com/Kyz7/juna/internal/logger"
	"github.com/Kyz7/juna/internal/models"
	"github.com/Kyz7/juna/internal/response"
	"github.com/Kyz7/juna/internal/utils"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

func newGoogleTestApp(t *testing.T, verified bool) (*fiber.App, *GoogleOAuth, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	mock := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			_ = r.ParseForm()
			if r.Form.Get("code") != "good-code" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"mock-access","token_type":"Bearer","expires_in":3600}`))
		case "/userinfo":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"email":          "Google.User@Example.com",
				"name":           "Google User",
				"verified_email": verified,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(mock.Close)

	jwtCfg := config.JWTConfig{
		AccessSecret:  "google-test-access-secret-0123456789",
		RefreshSecret: "google-test-refresh-secret-0123456789",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	}
	svc := NewService(db, utils.NewTokenManager(jwtCfg), 4, logger.Discard())
	g := NewGoogleOAuth(svc, config.GoogleConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost/auth/google/callback",
	})
	require.NotNil(t, g)
	g.config.Endpoint = oauth2.Endpoint{
		AuthURL:   mock.URL + "/auth",
		TokenURL:  mock.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	g.userInfoURL = mock.URL + "/userinfo"

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return response.Fail(c, err, false)
		},
	})
	app.Get("/auth/google/login", g.Login)
	app.Get("/auth/google/callback", g.Callback)
	return app, g, db
}

func decodeError(t *testing.T, resp *http.Response) string {
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Error.Code
}

func TestNewGoogleOAuthDisabled(t *testing.T) {
	g := NewGoogleOAuth(nil, config.GoogleConfig{})
	assert.Nil(t, g)
	assert.False(t, g.Enabled())
}

func TestGoogleLoginRedirect(t *testing.T) {
	app, g, _ := newGoogleTestApp(t, true)

	resp, err := app.Test(httptest.NewRequest("GET", "/auth/google/login", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTemporaryRedirect, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")
	assert.NotEmpty(t, state)

	g.mu.Lock()
	_, ok := g.states[state]
	g.mu.Unlock()
	assert.True(t, ok)
}

func TestGoogleCallback(t *testing.T) {
	t.Run("Success - Creates verified user", func(t *testing.T) {
		app, g, db := newGoogleTestApp(t, true)
		state, err := g.newState()
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/auth/google/callback?code=good-code&state="+url.QueryEscape(state), nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var user models.User
		require.NoError(t, db.First(&user, "email = ?", "google.user@example.com").Error)
		assert.Equal(t, "google", user.AuthProvider)
		assert.True(t, user.IsVerified)
		assert.Equal(t, models.RoleUser, user.Role)

		t.Run("Error - State is single use", func(t *testing.T) {
			req := httptest.NewRequest("GET", "/auth/google/callback?code=good-code&state="+url.QueryEscape(state), nil)
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, 400, resp.StatusCode)
			assert.Equal(t, "INVALID_OAUTH_STATE", decodeError(t, resp))
		})
	})

	t.Run("Error - Unknown state", func(t *testing.T) {
		app, _, _ := newGoogleTestApp(t, true)

		resp, err := app.Test(httptest.NewRequest("GET", "/auth/google/callback?code=good-code&state=forged", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode)
		assert.Equal(t, "INVALID_OAUTH_STATE", decodeError(t, resp))
	})

	t.Run("Error - Code exchange rejected", func(t *testing.T) {
		app, g, _ := newGoogleTestApp(t, true)
		state, err := g.newState()
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/auth/google/callback?code=bad-code&state="+url.QueryEscape(state), nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 401, resp.StatusCode)
		assert.Equal(t, "OAUTH_EXCHANGE_FAILED", decodeError(t, resp))
	})

	t.Run("Error - Unverified email", func(t *testing.T) {
		app, g, db := newGoogleTestApp(t, false)
		state, err := g.newState()
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/auth/google/callback?code=good-code&state="+url.QueryEscape(state), nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 401, resp.StatusCode)
		assert.Equal(t, "OAUTH_EMAIL_UNVERIFIED", decodeError(t, resp))

		var count int64
		db.Model(&models.User{}).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("Error - Disabled account", func(t *testing.T) {
		_, g, db := newGoogleTestApp(t, true)
		user := models.User{Name: "Off", Email: "off@example.com", Role: models.RoleUser, IsActive: true, AuthProvider: "google"}
		require.NoError(t, db.Create(&user).Error)
		require.NoError(t, db.Model(&user).Update("is_active", false).Error)

		_, err := g.svc.LoginExternal(t.Context(), "google", "OFF@example.com", "Off")
		require.Error(t, err)
		assert.Equal(t, "ACCOUNT_DISABLED", apperror.As(err).Code)
	})
}
