package provider

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

func (h *Handler) Register(c *fiber.Ctx) error {
	identity, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}

	var body RegisterInput
	if err := validation.Parse(c, &body); err != nil {
		return err
	}

	provider, err := h.svc.Register(c.UserContext(), identity.UserID, body)
	if err != nil {
		return err
	}
	return response.Created(c, provider, "Provider application submitted")
}

func (h *Handler) GetMe(c *fiber.Ctx) error {
	identity, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}

	provider, err := h.svc.GetByUser(c.UserContext(), identity.UserID)
	if err != nil {
		return err
	}
	return response.Success(c, provider, "Provider profile retrieved successfully")
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

	provider, err := h.svc.UpdateMine(c.UserContext(), identity.UserID, body)
	if err != nil {
		return err
	}
	return response.Success(c, provider, "Provider profile updated successfully")
}

func (h *Handler) DocumentUpload(c *fiber.Ctx) error {
	identity, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}

	var body DocumentUploadInput
	if err := validation.Parse(c, &body); err != nil {
		return err
	}

	upload, err := h.svc.PresignDocument(c.UserContext(), identity.UserID, body)
	if err != nil {
		return err
	}
	return response.Success(c, upload, "Upload URL generated")
}

func (h *Handler) GetPublic(c *fiber.Ctx) error {
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	provider, err := h.svc.GetPublic(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.Success(c, provider, "Provider retrieved successfully")
}

func (h *Handler) List(c *fiber.Ctx) error {
	status := models.ProviderStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		return apperror.Validation("", "Invalid status filter")
	}
	return h.list(c, status)
}

func (h *Handler) ListPending(c *fiber.Ctx) error {
	return h.list(c, models.ProviderPending)
}

func (h *Handler) list(c *fiber.Ctx, status models.ProviderStatus) error {
	page, limit := response.Pagination(c)
	providers, total, err := h.svc.List(c.UserContext(), ListFilter{
		Status: status,
		Search: c.Query("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return err
	}
	return response.SuccessWithMeta(c, providers, response.CalculateMeta(page, limit, total), "Providers retrieved successfully")
}

func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	provider, err := h.svc.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.Success(c, provider, "Provider retrieved successfully")
}

func (h *Handler) Approve(c *fiber.Ctx) error {
	identity, id, err := adminTarget(c)
	if err != nil {
		return err
	}

	provider, err := h.svc.Approve(c.UserContext(), identity, id)
	if err != nil {
		return err
	}
	return response.Success(c, provider, "Provider approved successfully")
}

func (h *Handler) Reject(c *fiber.Ctx) error {
	identity, id, err := adminTarget(c)
	if err != nil {
		return err
	}

	var body struct {
		Reason string `json:"reason" validate:"required,min=10,max=1000"`
	}
	if err := validation.Parse(c, &body); err != nil {
		return err
	}

	provider, err := h.svc.Reject(c.UserContext(), identity, id, body.Reason)
	if err != nil {
		return err
	}
	return response.Success(c, provider, "Provider rejected")
}

func (h *Handler) Suspend(c *fiber.Ctx) error {
	identity, id, err := adminTarget(c)
	if err != nil {
		return err
	}

	var body struct {
		Reason string `json:"reason" validate:"max=1000"`
	}
	if len(c.Body()) > 0 {
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
	}

	provider, err := h.svc.Suspend(c.UserContext(), identity, id, body.Reason)
	if err != nil {
		return err
	}
	return response.Success(c, provider, "Provider suspended")
}

func adminTarget(c *fiber.Ctx) (*auth.Identity, uuid.UUID, error) {
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
