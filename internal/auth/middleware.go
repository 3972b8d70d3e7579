package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/Kyz7/juna/internal/apperror"
	"github.com/Kyz7/juna/internal/models"
	"github.com/Kyz7/juna/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Gate resolves bearer tokens into an Identity and enforces role predicates.
type Gate struct {
	db     *gorm.DB
	tokens *utils.TokenManager
}

func NewGate(db *gorm.DB, tokens *utils.TokenManager) *Gate {
	return &Gate{db: db, tokens: tokens}
}

// Resolve verifies the token and looks up the caller's provider affiliation.
func (g *Gate) Resolve(ctx context.Context, token string) (*Identity, error) {
	claims, err := g.tokens.ParseAccessToken(token)
	if errors.Is(err, utils.ErrTokenExpired) {
		return nil, apperror.Unauthorized("TOKEN_EXPIRED", "Token expired")
	}
	if err != nil {
		return nil, apperror.Unauthorized("INVALID_TOKEN", "Invalid token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperror.Unauthorized("INVALID_TOKEN", "Invalid token")
	}
	identity := &Identity{UserID: userID, Email: claims.Email, Role: claims.Role}

	var provider models.Provider
	err = g.db.WithContext(ctx).
		Select("id", "status").
		Where("user_id = ?", userID).
		Limit(1).
		Find(&provider).Error
	if err != nil {
		return nil, apperror.FromDB(err, "Provider")
	}
	if provider.ID != uuid.Nil {
		identity.ProviderID = &provider.ID
		identity.ProviderStatus = &provider.Status
	}

	return identity, nil
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	header := c.Get(fiber.HeaderAuthorization)
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// RequireAuth rejects requests without a valid access token.
func (g *Gate) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c)
		if !ok {
			return apperror.Unauthorized("", "Missing authorization token")
		}

		identity, err := g.Resolve(c.UserContext(), token)
		if err != nil {
			return err
		}

		setIdentity(c, identity)
		return c.Next()
	}
}

// OptionalAuth attaches an Identity when a valid token is present and
// silently continues otherwise.
func (g *Gate) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token, ok := bearerToken(c); ok {
			if identity, err := g.Resolve(c.UserContext(), token); err == nil {
				setIdentity(c, identity)
			}
		}
		return c.Next()
	}
}

// AllowRoles passes callers whose role is one of roles.
func AllowRoles(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := RequireIdentity(c)
		if err != nil {
			return err
		}
		for _, role := range roles {
			if identity.Role == role {
				return c.Next()
			}
		}
		return apperror.Forbidden("", "Insufficient permissions")
	}
}

// RequireRole passes callers at or above min in the role hierarchy.
func RequireRole(min models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := RequireIdentity(c)
		if err != nil {
			return err
		}
		if !identity.Role.AtLeast(min) {
			return apperror.Forbidden("", "Insufficient permissions")
		}
		return c.Next()
	}
}

// RequireApprovedProvider passes callers who own an APPROVED provider. The
// check reads the provider status resolved for this request, so approval
// takes effect without a new token.
func RequireApprovedProvider() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := RequireIdentity(c)
		if err != nil {
			return err
		}
		if identity.ProviderID == nil {
			return apperror.Forbidden("", "Provider account required")
		}
		if !identity.HasApprovedProvider() {
			return apperror.Forbidden("PROVIDER_NOT_APPROVED", "Provider account is not approved")
		}
		return c.Next()
	}
}
