package subscription

import (
	"github.com/Kyz7/juna/internal/apperror"
	"github.com/Kyz7/juna/internal/auth"
	"github.com/Kyz7/juna/internal/models"
	"github.com/Kyz7/juna/internal/response"
	"github.com/Kyz7/juna/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Create(c *fiber.Ctx) error {
	identity, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}

	var body CreateInput
	if err := validation.Parse(c, &body); err != nil {
		return err
	}

	sub, err := h.svc.Create(c.UserContext(), *identity.ProviderID, body)
	if err != nil {
		return err
	}
	return response.Created(c, sub, "Subscription created successfully")
}

func (h *Handler) ListMine(c *fiber.Ctx) error {
	identity, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}

	subs, err := h.svc.ListByProvider(c.UserContext(), *identity.ProviderID)
	if err != nil {
		return err
	}
	return response.Success(c, subs, "Subscriptions retrieved successfully")
}

func (h *Handler) Update(c *fiber.Ctx) error {
	identity, id, err := ownerTarget(c)
	if err != nil {
		return err
	}

	var body UpdateInput
	if err := validation.Parse(c, &body); err != nil {
		return err
	}

	sub, err := h.svc.Update(c.UserContext(), *identity.ProviderID, id, body)
	if err != nil {
		return err
	}
	return response.Success(c, sub, "Subscription updated successfully")
}

func (h *Handler) ToggleActive(c *fiber.Ctx) error {
	identity, id, err := ownerTarget(c)
	if err != nil {
		return err
	}

	sub, err := h.svc.ToggleActive(c.UserContext(), *identity.ProviderID, id)
	if err != nil {
		return err
	}
	return response.Success(c, sub, "Subscription status updated")
}

func (h *Handler) TogglePublic(c *fiber.Ctx) error {
	identity, id, err := ownerTarget(c)
	if err != nil {
		return err
	}

	sub, err := h.svc.TogglePublic(c.UserContext(), *identity.ProviderID, id)
	if err != nil {
		return err
	}
	return response.Success(c, sub, "Subscription visibility updated")
}

func (h *Handler) Delete(c *fiber.Ctx) error {
	identity, id, err := ownerTarget(c)
	if err != nil {
		return err
	}

	if err := h.svc.Delete(c.UserContext(), *identity.ProviderID, id); err != nil {
		return err
	}
	return response.Success(c, nil, "Subscription deleted successfully")
}

func (h *Handler) List(c *fiber.Ctx) error {
	page, limit := response.Pagination(c)
	filter := ListFilter{
		Type:     models.SubscriptionType(c.Query("type")),
		Category: models.SubscriptionCategory(c.Query("category")),
		Duration: models.SubscriptionDuration(c.Query("duration")),
		Search:   c.Query("search"),
		Page:     page,
		Limit:    limit,
	}

	var err error
	if filter.MinPrice, err = queryDecimal(c, "minPrice"); err != nil {
		return err
	}
	if filter.MaxPrice, err = queryDecimal(c, "maxPrice"); err != nil {
		return err
	}
	if filter.ProviderID, err = response.QueryUUID(c, "providerId"); err != nil {
		return err
	}

	result, err := h.svc.ListPublic(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return response.SuccessWithMeta(c, result.Items, response.CalculateMeta(page, limit, result.Total), "Subscriptions retrieved successfully")
}

func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	var viewer *uuid.UUID
	if identity, ok := auth.IdentityFrom(c); ok {
		viewer = identity.ProviderID
	}

	sub, err := h.svc.GetPublic(c.UserContext(), id, viewer)
	if err != nil {
		return err
	}
	return response.Success(c, sub, "Subscription retrieved successfully")
}

func ownerTarget(c *fiber.Ctx) (*auth.Identity, uuid.UUID, error) {
	identity, err := auth.RequireIdentity(c)
	if err != nil {
		return nil, uuid.Nil, err
	}
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		return nil, uuid.Nil, err
	}
	return identity, id, nil
}

func queryDecimal(c *fiber.Ctx, name string) (*decimal.Decimal, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return nil, apperror.Validation("", name+" must be a positive number")
	}
	return &d, nil
}
