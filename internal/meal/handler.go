package meal

import (
	"github.com/Kyz7/juna/internal/auth"
	"github.com/Kyz7/juna/internal/response"
	"github.com/Kyz7/juna/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handler serves the meal routes. Provider routes sit behind
// auth.RequireApprovedProvider, so the caller's provider id is always set.
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

	meal, err := h.svc.Create(c.UserContext(), *identity.ProviderID, body)
	if err != nil {
		return err
	}
	return response.Created(c, meal, "Meal created successfully")
}

func (h *Handler) ListMine(c *fiber.Ctx) error {
	identity, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}

	meals, err := h.svc.ListByProvider(c.UserContext(), *identity.ProviderID, false)
	if err != nil {
		return err
	}
	return response.Success(c, meals, "Meals retrieved successfully")
}

func (h *Handler) Update(c *fiber.Ctx) error {
	identity, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	var body UpdateInput
	if err := validation.Parse(c, &body); err != nil {
		return err
	}

	meal, err := h.svc.Update(c.UserContext(), *identity.ProviderID, id, body)
	if err != nil {
		return err
	}
	return response.Success(c, meal, "Meal updated successfully")
}

func (h *Handler) Toggle(c *fiber.Ctx) error {
	identity, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	meal, err := h.svc.ToggleActive(c.UserContext(), *identity.ProviderID, id)
	if err != nil {
		return err
	}
	return response.Success(c, meal, "Meal status updated")
}

func (h *Handler) Delete(c *fiber.Ctx) error {
	identity, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.svc.Delete(c.UserContext(), *identity.ProviderID, id); err != nil {
		return err
	}
	return response.Success(c, nil, "Meal deleted successfully")
}

func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	identity, _ := auth.IdentityFrom(c)
	var viewer *uuid.UUID
	if identity != nil {
		viewer = identity.ProviderID
	}

	meal, err := h.svc.GetPublic(c.UserContext(), id, viewer)
	if err != nil {
		return err
	}
	return response.Success(c, meal, "Meal retrieved successfully")
}

func (h *Handler) ListByProvider(c *fiber.Ctx) error {
	providerID, err := response.ParamUUID(c, "providerId")
	if err != nil {
		return err
	}

	meals, err := h.svc.ListByProvider(c.UserContext(), providerID, true)
	if err != nil {
		return err
	}
	return response.Success(c, meals, "Meals retrieved successfully")
}
