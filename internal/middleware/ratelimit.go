package middleware

import (
	"time"

	"github.com/Kyz7/juna/internal/apperror"
	"github.com/Kyz7/juna/internal/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimit allows max requests per window for each client IP.
func RateLimit(max int, window time.Duration, message string) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return apperror.TooManyRequests(message)
		},
	})
}

// UserRateLimit keys on the authenticated user, falling back to the IP.
// It must run after the auth gate.
func UserRateLimit(max int, window time.Duration, message string) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			if id, ok := auth.IdentityFrom(c); ok {
				return "user:" + id.UserID.String()
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return apperror.TooManyRequests(message)
		},
	})
}
