package auth_test

import (
	"testing"
	"time"

	"github.com/Kyz7/juna/internal/config"
	"github.com/Kyz7/juna/internal/models"
	"github.com/Kyz7/juna/internal/testutils"
	"github.com/Kyz7/juna/internal/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenPair struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int          `json:"expiresIn"`
	User         *models.User `json:"user"`
}

func TestRegisterHandler(t *testing.T) {
	app, db := testutils.SetupTestApp(t)

	t.Run("Success - Register new user", func(t *testing.T) {
		body := map[string]interface{}{
			"name":     "Siti Aminah",
			"email":    "Siti@Example.com",
			"phone":    "081234567890",
			"password": "password123",
		}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/register", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 201, resp.Code)

		var pair tokenPair
		result := testutils.ParseData(t, resp, &pair)
		assert.True(t, result.Success)
		assert.Equal(t, "Registration successful", result.Message)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
		assert.Equal(t, 900, pair.ExpiresIn)
		require.NotNil(t, pair.User)
		assert.Equal(t, "siti@example.com", pair.User.Email)
		assert.Equal(t, models.RoleUser, pair.User.Role)
	})

	t.Run("Error - Password not stored in plain text", func(t *testing.T) {
		var user models.User
		require.NoError(t, db.First(&user, "email = ?", "siti@example.com").Error)
		assert.NotEqual(t, "password123", user.Password)
		assert.True(t, utils.CheckPasswordHash("password123", user.Password))
	})

	t.Run("Error - Missing required fields", func(t *testing.T) {
		body := map[string]interface{}{
			"email": "test@example.com",
		}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/register", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 400, resp.Code)

		testutils.AssertError(t, resp, "VALIDATION_ERROR")
	})

	t.Run("Error - Short password", func(t *testing.T) {
		body := map[string]interface{}{
			"name":     "Budi",
			"email":    "budi@example.com",
			"password": "short",
		}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/register", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 400, resp.Code)
	})

	t.Run("Error - Duplicate email", func(t *testing.T) {
		body := map[string]interface{}{
			"name":     "Another Siti",
			"email":    "siti@example.com",
			"password": "password123",
		}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/register", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 409, resp.Code)

		testutils.AssertError(t, resp, "EMAIL_ALREADY_EXISTS")
	})

	t.Run("Error - Duplicate phone", func(t *testing.T) {
		body := map[string]interface{}{
			"name":     "Phone Clash",
			"email":    "clash@example.com",
			"phone":    "081234567890",
			"password": "password123",
		}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/register", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 409, resp.Code)

		testutils.AssertError(t, resp, "PHONE_ALREADY_EXISTS")
	})
}

func TestLoginHandler(t *testing.T) {
	app, db := testutils.SetupTestApp(t)
	testutils.CreateTestUser(t, db, "login@test.com", "password123", models.RoleUser)

	t.Run("Success - Valid credentials", func(t *testing.T) {
		body := map[string]interface{}{
			"email":    "login@test.com",
			"password": "password123",
		}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/login", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		var pair tokenPair
		testutils.ParseData(t, resp, &pair)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
	})

	t.Run("Error - Wrong password", func(t *testing.T) {
		body := map[string]interface{}{
			"email":    "login@test.com",
			"password": "wrongpassword",
		}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/login", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 401, resp.Code)

		testutils.AssertError(t, resp, "INVALID_CREDENTIALS")
	})

	t.Run("Error - Unknown email", func(t *testing.T) {
		body := map[string]interface{}{
			"email":    "nobody@test.com",
			"password": "password123",
		}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/login", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 401, resp.Code)

		testutils.AssertError(t, resp, "INVALID_CREDENTIALS")
	})

	t.Run("Error - Disabled account", func(t *testing.T) {
		user := testutils.CreateTestUser(t, db, "disabled@test.com", "password123", models.RoleUser)
		require.NoError(t, db.Model(user).Update("is_active", false).Error)

		body := map[string]interface{}{
			"email":    "disabled@test.com",
			"password": "password123",
		}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/login", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 403, resp.Code)

		testutils.AssertError(t, resp, "ACCOUNT_DISABLED")
	})
}

func TestRefreshHandler(t *testing.T) {
	app, db := testutils.SetupTestApp(t)
	testutils.CreateTestUser(t, db, "refresh@test.com", "password123", models.RoleUser)

	resp, err := testutils.MakeRequest(app, "POST", "/auth/login", map[string]interface{}{
		"email":    "refresh@test.com",
		"password": "password123",
	}, "")
	require.NoError(t, err)
	var pair tokenPair
	testutils.ParseData(t, resp, &pair)

	var rotated tokenPair
	t.Run("Success - Rotate refresh token", func(t *testing.T) {
		body := map[string]interface{}{"refreshToken": pair.RefreshToken}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/refresh", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		testutils.ParseData(t, resp, &rotated)
		assert.NotEmpty(t, rotated.AccessToken)
		assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)
	})

	t.Run("Error - Old refresh token is spent", func(t *testing.T) {
		body := map[string]interface{}{"refreshToken": pair.RefreshToken}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/refresh", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 401, resp.Code)

		testutils.AssertError(t, resp, "INVALID_REFRESH_TOKEN")
	})

	t.Run("Error - Access token is not a refresh token", func(t *testing.T) {
		body := map[string]interface{}{"refreshToken": rotated.AccessToken}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/refresh", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 401, resp.Code)
	})

	t.Run("Success - Logout revokes refresh token", func(t *testing.T) {
		body := map[string]interface{}{"refreshToken": rotated.RefreshToken}
		resp, err := testutils.MakeRequest(app, "POST", "/auth/logout", body, rotated.AccessToken)
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		resp, err = testutils.MakeRequest(app, "POST", "/auth/refresh", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 401, resp.Code)
	})
}

func TestChangePasswordHandler(t *testing.T) {
	app, db := testutils.SetupTestApp(t)
	user := testutils.CreateTestUser(t, db, "change@test.com", "password123", models.RoleUser)
	token := testutils.GetAuthToken(t, user)

	t.Run("Error - Wrong current password", func(t *testing.T) {
		body := map[string]interface{}{
			"currentPassword": "nottheone",
			"newPassword":     "newpassword123",
		}
		resp, err := testutils.MakeRequest(app, "PUT", "/auth/password", body, token)
		assert.NoError(t, err)
		assert.Equal(t, 401, resp.Code)
	})

	t.Run("Success - Password changed", func(t *testing.T) {
		body := map[string]interface{}{
			"currentPassword": "password123",
			"newPassword":     "newpassword123",
		}
		resp, err := testutils.MakeRequest(app, "PUT", "/auth/password", body, token)
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		resp, err = testutils.MakeRequest(app, "POST", "/auth/login", map[string]interface{}{
			"email":    "change@test.com",
			"password": "newpassword123",
		}, "")
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.Code)
	})
}

func TestAccessTokenGate(t *testing.T) {
	app, db := testutils.SetupTestApp(t)
	user := testutils.CreateTestUser(t, db, "gate@test.com", "password123", models.RoleUser)

	t.Run("Error - Missing token", func(t *testing.T) {
		resp, err := testutils.MakeRequest(app, "GET", "/users/me", nil, "")
		assert.NoError(t, err)
		assert.Equal(t, 401, resp.Code)

		testutils.AssertError(t, resp, "UNAUTHORIZED")
	})

	t.Run("Error - Garbage token", func(t *testing.T) {
		resp, err := testutils.MakeRequest(app, "GET", "/users/me", nil, "not-a-jwt")
		assert.NoError(t, err)
		assert.Equal(t, 401, resp.Code)

		testutils.AssertError(t, resp, "INVALID_TOKEN")
	})

	t.Run("Error - Expired token", func(t *testing.T) {
		cfg := testutils.TestConfig().JWT
		cfg.AccessTTL = -time.Minute
		token, err := utils.NewTokenManager(cfg).GenerateAccessToken(user.ID, user.Email, user.Role)
		require.NoError(t, err)

		resp, err := testutils.MakeRequest(app, "GET", "/users/me", nil, token)
		assert.NoError(t, err)
		assert.Equal(t, 401, resp.Code)

		testutils.AssertError(t, resp, "TOKEN_EXPIRED")
	})

	t.Run("Error - Token signed with another key", func(t *testing.T) {
		other := utils.NewTokenManager(config.JWTConfig{
			AccessSecret:  "a-completely-different-secret-of-32-chars",
			RefreshSecret: "another-completely-different-secret-32ch",
			AccessTTL:     time.Minute,
			RefreshTTL:    time.Hour,
		})
		token, err := other.GenerateAccessToken(user.ID, user.Email, user.Role)
		require.NoError(t, err)

		resp, err := testutils.MakeRequest(app, "GET", "/users/me", nil, token)
		assert.NoError(t, err)
		assert.Equal(t, 401, resp.Code)

		testutils.AssertError(t, resp, "INVALID_TOKEN")
	})

	t.Run("Error - Unsigned token rejected", func(t *testing.T) {
		claims := jwt.MapClaims{"sub": user.ID.String(), "role": "SUPER_ADMIN", "exp": time.Now().Add(time.Hour).Unix()}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		resp, err := testutils.MakeRequest(app, "GET", "/admin/dashboard", nil, token)
		assert.NoError(t, err)
		assert.Equal(t, 401, resp.Code)
	})

	t.Run("Error - Google sign-in not configured", func(t *testing.T) {
		resp, err := testutils.MakeRequest(app, "GET", "/auth/google/login", nil, "")
		assert.NoError(t, err)
		assert.Equal(t, 503, resp.Code)
	})
}
