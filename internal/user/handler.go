package user

import (
	"strconv"

	"github.com/Kyz7/juna/internal/apperror"
	"github.com/Kyz7/juna/internal/auth"
	"github.com/Kyz7/juna/internal/models"
	"github.com/Kyz7/juna/internal/response"
	"github.com/Kyz7/juna/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) GetMe(c *fiber.Ctx) error {
	identity, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}

	user, err := h.svc.Get(c.UserContext(), identity.UserID)
	if err != nil {
		return err
	}
	return response.Success(c, user, "Profile retrieved successfully")
}

func (h *Handler) UpdateMe(c *fiber.Ctx) error {
	identity, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}

	var body UpdateInput
	if err := validation.Parse(c, &body); err != nil {
		return err
	}

	user, err := h.svc.Update(c.UserContext(), identity.UserID, body)
	if err != nil {
		return err
	}
	return response.Success(c, user, "Profile updated successfully")
}

func (h *Handler) DeleteMe(c *fiber.Ctx) error {
	identity, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}

	var body struct {
		Password string `json:"password"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return apperror.Validation("", "Invalid request body")
		}
	}

	if err := h.svc.Delete(c.UserContext(), identity.UserID, body.Password); err != nil {
		return err
	}
	return response.Success(c, nil, "Account deleted successfully")
}

func (h *Handler) List(c *fiber.Ctx) error {
	page, limit := response.Pagination(c)
	filter := ListFilter{
		Role:   models.Role(c.Query("role")),
		Search: c.Query("search"),
		Page:   page,
		Limit:  limit,
	}
	if filter.Role != "" && !filter.Role.Valid() {
		return apperror.Validation("", "Invalid role filter")
	}
	if raw := c.Query("isActive"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return apperror.Validation("", "isActive must be a boolean")
		}
		filter.IsActive = &active
	}

	users, total, err := h.svc.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return response.SuccessWithMeta(c, users, response.CalculateMeta(page, limit, total), "Users retrieved successfully")
}

func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	user, err := h.svc.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.Success(c, user, "User retrieved successfully")
}

func (h *Handler) Suspend(c *fiber.Ctx) error {
	return h.setActive(c, false, "User suspended successfully")
}

func (h *Handler) Activate(c *fiber.Ctx) error {
	return h.setActive(c, true, "User activated successfully")
}

func (h *Handler) setActive(c *fiber.Ctx, active bool, message string) error {
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	user, err := h.svc.SetActive(c.UserContext(), id, active)
	if err != nil {
		return err
	}
	return response.Success(c, user, message)
}
