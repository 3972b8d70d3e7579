package response

import (
	"github.com/Kyz7/juna/internal/apperror"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ParamUUID parses a uuid route parameter.
func ParamUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperror.Validation("", "Invalid "+name)
	}
	return id, nil
}

// QueryUUID parses an optional uuid query parameter.
func QueryUUID(c *fiber.Ctx, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperror.Validation("", "Invalid "+name)
	}
	return &id, nil
}
