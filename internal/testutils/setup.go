package testutils

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Kyz7/juna/internal/config"
	"github.com/Kyz7/juna/internal/database"
	"github.com/Kyz7/juna/internal/logger"
	"github.com/Kyz7/juna/internal/models"
	"github.com/Kyz7/juna/internal/server"
	"github.com/Kyz7/juna/internal/utils"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// TestConfig returns settings with test secrets and limits high enough
// that no test is throttled.
func TestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Addr:           ":0",
			Env:            "test",
			BodyLimit:      4 * 1024 * 1024,
			RequestTimeout: 10 * time.Second,
		},
		Redis: config.RedisConfig{CacheTTL: time.Minute},
		JWT: config.JWTConfig{
			AccessSecret:  "test-access-secret-that-is-long-enough-123",
			RefreshSecret: "test-refresh-secret-that-is-long-enough-456",
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    24 * time.Hour,
		},
		RateLimit: config.RateLimitConfig{
			Window:     time.Minute,
			General:    100000,
			Auth:       100000,
			Admin:      100000,
			ScanPerSec: 1000,
			ScanBurst:  1000,
		},
		CORSOrigins: "*",
		BcryptCost:  4,
	}
}

func TestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "Failed to create test database")

	// every connection to :memory: is a new database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db), "Failed to migrate test database")
	require.NoError(t, database.RunMigrations(db, logger.Discard()), "Failed to apply SQL migrations")

	return db
}

func SetupTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	db := TestDB(t)
	app := server.New(server.Deps{
		Config: TestConfig(),
		DB:     db,
		Log:    logger.Discard(),
	})
	return app, db
}

func CreateTestUser(t *testing.T, db *gorm.DB, email, password string, role models.Role) *models.User {
	hashedPassword, err := utils.HashPassword(password, 4)
	require.NoError(t, err)

	user := &models.User{
		Name:         "Test User",
		Email:        email,
		Password:     hashedPassword,
		Role:         role,
		IsActive:     true,
		AuthProvider: "local",
	}
	require.NoError(t, db.Create(user).Error, "Failed to create test user")
	return user
}

// CreateTestProvider registers a provider for user. APPROVED providers
// also promote the user to PROVIDER.
func CreateTestProvider(t *testing.T, db *gorm.DB, user *models.User, status models.ProviderStatus) *models.Provider {
	p := &models.Provider{
		UserID:          user.ID,
		BusinessName:    "Dapur " + user.Name,
		BusinessAddress: "Jl. Sudirman No. 1, Jakarta",
		Status:          status,
	}
	if status == models.ProviderApproved {
		now := time.Now()
		p.ApprovedAt = &now
	}
	require.NoError(t, db.Create(p).Error, "Failed to create test provider")

	if status == models.ProviderApproved && user.Role == models.RoleUser {
		require.NoError(t, db.Model(user).Update("role", models.RoleProvider).Error)
		user.Role = models.RoleProvider
	}
	return p
}

func GetAuthToken(t *testing.T, user *models.User) string {
	token, err := utils.NewTokenManager(TestConfig().JWT).GenerateAccessToken(user.ID, user.Email, user.Role)
	require.NoError(t, err, "Failed to generate test token")
	return token
}

func MakeRequest(app *fiber.App, method, url string, body interface{}, token string) (*httptest.ResponseRecorder, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(jsonBody)
	}

	req := httptest.NewRequest(method, url, bodyReader)
	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()

	resp, err := app.Test(req, -1)
	if err != nil {
		return rec, err
	}

	rec.Code = resp.StatusCode
	for k, v := range resp.Header {
		for _, val := range v {
			rec.Header().Add(k, val)
		}
	}

	io.Copy(rec.Body, resp.Body)
	resp.Body.Close()

	return rec, nil
}

func ParseResponse(t *testing.T, resp *httptest.ResponseRecorder, v interface{}) {
	if resp.Body.Len() == 0 {
		t.Log("Warning: Response body is empty")
		return
	}

	err := json.Unmarshal(resp.Body.Bytes(), v)
	if err != nil {
		t.Logf("Response body: %s", resp.Body.String())
		assert.NoError(t, err, "Failed to parse response")
	}
}

type StandardResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *ErrorDetail    `json:"error"`
	Meta    *Meta           `json:"meta"`
}

type ErrorDetail struct {
	Code    string      `json:"code"`
	Details interface{} `json:"details"`
}

type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

// ParseData decodes the envelope's data field into v.
func ParseData(t *testing.T, resp *httptest.ResponseRecorder, v interface{}) *StandardResponse {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	if len(result.Data) > 0 && v != nil {
		require.NoError(t, json.Unmarshal(result.Data, v), "Failed to parse data")
	}
	return &result
}

func AssertSuccess(t *testing.T, resp *httptest.ResponseRecorder) {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	assert.True(t, result.Success, "Expected success response")
	assert.Empty(t, result.Error, "Expected no error")
}

func AssertError(t *testing.T, resp *httptest.ResponseRecorder, expectedCode string) {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	assert.False(t, result.Success, "Expected error response")
	if assert.NotNil(t, result.Error, "Expected error object") {
		assert.Equal(t, expectedCode, result.Error.Code, "Error code mismatch")
	}
}
