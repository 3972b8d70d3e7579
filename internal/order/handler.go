package order

import (
	"github.com/Kyz7/juna/internal/apperror"
	"github.com/Kyz7/juna/internal/auth"
	"github.com/Kyz7/juna/internal/models"
	"github.com/Kyz7/juna/internal/response"
	"github.com/Kyz7/juna/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
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

	order, err := h.svc.Create(c.UserContext(), identity, body)
	if err != nil {
		return err
	}
	return response.Created(c, order, "Order created successfully")
}

func (h *Handler) ListMine(c *fiber.Ctx) error {
	identity, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}

	filter, err := listFilter(c)
	if err != nil {
		return err
	}
	filter.UserID = &identity.UserID
	return h.list(c, filter)
}

func (h *Handler) ListForProvider(c *fiber.Ctx) error {
	identity, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}

	filter, err := listFilter(c)
	if err != nil {
		return err
	}
	if identity.ProviderID == nil {
		return apperror.Forbidden("", "Provider account required")
	}
	filter.ProviderID = identity.ProviderID
	return h.list(c, filter)
}

func (h *Handler) ListAll(c *fiber.Ctx) error {
	filter, err := listFilter(c)
	if err != nil {
		return err
	}
	if filter.UserID, err = response.QueryUUID(c, "userId"); err != nil {
		return err
	}
	if filter.ProviderID, err = response.QueryUUID(c, "providerId"); err != nil {
		return err
	}
	return h.list(c, filter)
}

func (h *Handler) list(c *fiber.Ctx, filter ListFilter) error {
	orders, total, err := h.svc.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return response.SuccessWithMeta(c, orders, response.CalculateMeta(filter.Page, filter.Limit, total), "Orders retrieved successfully")
}

func listFilter(c *fiber.Ctx) (ListFilter, error) {
	page, limit := response.Pagination(c)
	filter := ListFilter{
		Status:         models.OrderStatus(c.Query("status")),
		DeliveryMethod: models.DeliveryMethod(c.Query("deliveryMethod")),
		Page:           page,
		Limit:          limit,
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return filter, apperror.Validation("", "Invalid status filter")
	}
	if filter.DeliveryMethod != "" &&
		filter.DeliveryMethod != models.DeliveryMethodDelivery &&
		filter.DeliveryMethod != models.DeliveryMethodPickup {
		return filter, apperror.Validation("", "Invalid deliveryMethod filter")
	}

	var err error
	filter.SubscriptionID, err = response.QueryUUID(c, "subscriptionId")
	return filter, err
}

func (h *Handler) PendingCount(c *fiber.Ctx) error {
	count, err := h.svc.PendingCount(c.UserContext())
	if err != nil {
		return err
	}
	return response.Success(c, fiber.Map{"count": count}, "Pending orders counted")
}

func (h *Handler) Get(c *fiber.Ctx) error {
	identity, id, err := orderTarget(c)
	if err != nil {
		return err
	}

	order, err := h.svc.Get(c.UserContext(), identity, id)
	if err != nil {
		return err
	}
	return response.Success(c, order, "Order retrieved successfully")
}

func (h *Handler) GetByNumber(c *fiber.Ctx) error {
	identity, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}

	order, err := h.svc.GetByNumber(c.UserContext(), identity, c.Params("orderNumber"))
	if err != nil {
		return err
	}
	return response.Success(c, order, "Order retrieved successfully")
}

func (h *Handler) History(c *fiber.Ctx) error {
	identity, id, err := orderTarget(c)
	if err != nil {
		return err
	}

	history, err := h.svc.History(c.UserContext(), identity, id)
	if err != nil {
		return err
	}
	return response.Success(c, history, "Order history retrieved successfully")
}

func (h *Handler) Confirm(c *fiber.Ctx) error {
	identity, id, err := orderTarget(c)
	if err != nil {
		return err
	}

	order, err := h.svc.Confirm(c.UserContext(), identity, id)
	if err != nil {
		return err
	}
	return response.Success(c, order, "Order confirmed")
}

func (h *Handler) MarkReady(c *fiber.Ctx) error {
	identity, id, err := orderTarget(c)
	if err != nil {
		return err
	}

	order, err := h.svc.MarkReady(c.UserContext(), identity, id)
	if err != nil {
		return err
	}
	return response.Success(c, order, "Order is ready")
}

func (h *Handler) RegenerateCode(c *fiber.Ctx) error {
	identity, id, err := orderTarget(c)
	if err != nil {
		return err
	}

	order, err := h.svc.RegenerateCode(c.UserContext(), identity, id)
	if err != nil {
		return err
	}
	return response.Success(c, order, "Redemption code regenerated")
}

func (h *Handler) Cancel(c *fiber.Ctx) error {
	identity, id, err := orderTarget(c)
	if err != nil {
		return err
	}

	order, err := h.svc.Cancel(c.UserContext(), identity, id)
	if err != nil {
		return err
	}
	return response.Success(c, order, "Order cancelled")
}

// Complete redeems with the code in the body.
func (h *Handler) Complete(c *fiber.Ctx) error {
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	var body struct {
		QRCode string `json:"qrCode" validate:"required"`
	}
	if err := validation.Parse(c, &body); err != nil {
		return err
	}
	return h.redeem(c, id, body.QRCode)
}

// Scan redeems with the code in the path, as encoded in the printed QR.
func (h *Handler) Scan(c *fiber.Ctx) error {
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		return err
	}
	return h.redeem(c, id, c.Params("qrCode"))
}

func (h *Handler) redeem(c *fiber.Ctx, id uuid.UUID, code string) error {
	order, err := h.svc.Redeem(c.UserContext(), id, code)
	if err != nil {
		return err
	}
	return response.Success(c, order, "Order completed")
}

func orderTarget(c *fiber.Ctx) (*auth.Identity, uuid.UUID, error) {
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
