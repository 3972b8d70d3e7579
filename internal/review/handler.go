package review

import (
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

func (h *Handler) Create(c *fiber.Ctx) error {
	identity, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}

	var body CreateInput
	if err := validation.Parse(c, &body); err != nil {
		return err
	}

	review, err := h.svc.Create(c.UserContext(), identity, body)
	if err != nil {
		return err
	}
	return response.Created(c, review, "Review submitted for moderation")
}

func (h *Handler) ListMine(c *fiber.Ctx) error {
	identity, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}

	reviews, err := h.svc.ListMine(c.UserContext(), identity.UserID)
	if err != nil {
		return err
	}
	return response.Success(c, reviews, "Reviews retrieved successfully")
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

	review, err := h.svc.Update(c.UserContext(), identity, id, body)
	if err != nil {
		return err
	}
	return response.Success(c, review, "Review updated successfully")
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

	if err := h.svc.Delete(c.UserContext(), identity, id); err != nil {
		return err
	}
	return response.Success(c, nil, "Review deleted successfully")
}

func (h *Handler) ListBySubscription(c *fiber.Ctx) error {
	id, err := response.ParamUUID(c, "subscriptionId")
	if err != nil {
		return err
	}

	page, limit := response.Pagination(c)
	reviews, total, err := h.svc.ListBySubscription(c.UserContext(), id, page, limit)
	if err != nil {
		return err
	}
	return response.SuccessWithMeta(c, reviews, response.CalculateMeta(page, limit, total), "Reviews retrieved successfully")
}

func (h *Handler) Stats(c *fiber.Ctx) error {
	id, err := response.ParamUUID(c, "subscriptionId")
	if err != nil {
		return err
	}

	stats, err := h.svc.Stats(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.Success(c, stats, "Review statistics retrieved successfully")
}

func (h *Handler) GetByOrder(c *fiber.Ctx) error {
	identity, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}
	orderID, err := response.ParamUUID(c, "orderId")
	if err != nil {
		return err
	}

	review, err := h.svc.GetByOrder(c.UserContext(), identity, orderID)
	if err != nil {
		return err
	}
	return response.Success(c, review, "Review retrieved successfully")
}

func (h *Handler) List(c *fiber.Ctx) error {
	page, limit := response.Pagination(c)
	filter := ListFilter{
		Status: models.ReviewStatus(c.Query("status")),
		Rating: c.QueryInt("rating"),
		Page:   page,
		Limit:  limit,
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return apperror.Validation("", "Invalid status filter")
	}

	var err error
	if filter.SubscriptionID, err = response.QueryUUID(c, "subscriptionId"); err != nil {
		return err
	}
	if filter.UserID, err = response.QueryUUID(c, "userId"); err != nil {
		return err
	}

	reviews, total, err := h.svc.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return response.SuccessWithMeta(c, reviews, response.CalculateMeta(page, limit, total), "Reviews retrieved successfully")
}

func (h *Handler) PendingCount(c *fiber.Ctx) error {
	count, err := h.svc.PendingCount(c.UserContext())
	if err != nil {
		return err
	}
	return response.Success(c, fiber.Map{"count": count}, "Pending reviews counted")
}

func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	review, err := h.svc.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.Success(c, review, "Review retrieved successfully")
}

func (h *Handler) Moderate(c *fiber.Ctx) error {
	identity, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	var body ModerateInput
	if err := validation.Parse(c, &body); err != nil {
		return err
	}

	review, err := h.svc.Moderate(c.UserContext(), identity, id, body)
	if err != nil {
		return err
	}
	return response.Success(c, review, "Review moderated successfully")
}
