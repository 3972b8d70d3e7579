package response_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/Kyz7/juna/internal/apperror"
	"github.com/Kyz7/juna/internal/response"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func call(t *testing.T, debug bool, err error) (int, response.StandardResponse) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return response.Fail(c, err, debug)
	})

	resp, testErr := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	require.NoError(t, testErr)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var out response.StandardResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return resp.StatusCode, out
}

func TestFail(t *testing.T) {
	t.Run("Success - Conflict keeps its code", func(t *testing.T) {
		status, out := call(t, false, apperror.Conflict("QR_CODE_ALREADY_USED", "This code has already been used"))
		assert.Equal(t, 409, status)
		assert.False(t, out.Success)
		assert.Equal(t, "QR_CODE_ALREADY_USED", out.Error.Code)
		assert.Equal(t, "This code has already been used", out.Message)
	})

	t.Run("Success - Internal hidden in production", func(t *testing.T) {
		status, out := call(t, false, errors.New("pq: relation does not exist"))
		assert.Equal(t, 500, status)
		assert.Equal(t, "INTERNAL_ERROR", out.Error.Code)
		assert.Equal(t, "Internal server error", out.Message)
		assert.Nil(t, out.Error.Details)
	})

	t.Run("Success - Internal cause shown in debug", func(t *testing.T) {
		_, out := call(t, true, apperror.Internal("Database operation failed", errors.New("boom")))
		details, ok := out.Error.Details.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "boom", details["cause"])
	})

	t.Run("Success - Fiber error mapped", func(t *testing.T) {
		status, out := call(t, false, fiber.ErrNotFound)
		assert.Equal(t, 404, status)
		assert.Equal(t, "NOT_FOUND", out.Error.Code)
	})
}

func TestCalculateMeta(t *testing.T) {
	meta := response.CalculateMeta(2, 20, 41)
	assert.Equal(t, int64(3), meta.TotalPages)
	assert.Equal(t, 2, meta.Page)
}
