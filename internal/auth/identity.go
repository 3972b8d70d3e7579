package auth

import (
	"github.com/Kyz7/juna/internal/apperror"
	"github.com/Kyz7/juna/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Identity is the resolved caller. Handlers read it once and pass it into
// service calls.
type Identity struct {
	UserID         uuid.UUID
	Email          string
	Role           models.Role
	ProviderID     *uuid.UUID
	ProviderStatus *models.ProviderStatus
}

func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role.IsAdmin()
}

// OwnsProvider reports whether the caller is the provider with the given id.
func (i *Identity) OwnsProvider(providerID uuid.UUID) bool {
	return i != nil && i.ProviderID != nil && *i.ProviderID == providerID
}

func (i *Identity) HasApprovedProvider() bool {
	return i != nil && i.ProviderID != nil && i.ProviderStatus != nil && *i.ProviderStatus == models.ProviderApproved
}

type identityKey struct{}

func setIdentity(c *fiber.Ctx, id *Identity) {
	c.Locals(identityKey{}, id)
}

// IdentityFrom returns the caller resolved by the gate, if any.
func IdentityFrom(c *fiber.Ctx) (*Identity, bool) {
	id, ok := c.Locals(identityKey{}).(*Identity)
	return id, ok && id != nil
}

// RequireIdentity is IdentityFrom for routes behind RequireAuth.
func RequireIdentity(c *fiber.Ctx) (*Identity, error) {
	id, ok := IdentityFrom(c)
	if !ok {
		return nil, apperror.Unauthorized("", "Authentication required")
	}
	return id, nil
}
