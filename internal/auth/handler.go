package auth

import (
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

func (h *Handler) Register(c *fiber.Ctx) error {
	var body RegisterInput
	if err := validation.Parse(c, &body); err != nil {
		return err
	}

	result, err := h.svc.Register(c.UserContext(), body)
	if err != nil {
		return err
	}
	return response.Created(c, result, "Registration successful")
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var body struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	if err := validation.Parse(c, &body); err != nil {
		return err
	}

	result, err := h.svc.Login(c.UserContext(), body.Email, body.Password)
	if err != nil {
		return err
	}
	return response.Success(c, result, "Login successful")
}

func (h *Handler) Refresh(c *fiber.Ctx) error {
	var body struct {
		RefreshToken string `json:"refreshToken" validate:"required"`
	}
	if err := validation.Parse(c, &body); err != nil {
		return err
	}

	result, err := h.svc.Refresh(c.UserContext(), body.RefreshToken)
	if err != nil {
		return err
	}
	return response.Success(c, result, "Token refreshed successfully")
}

func (h *Handler) Logout(c *fiber.Ctx) error {
	identity, err := RequireIdentity(c)
	if err != nil {
		return err
	}

	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if len(c.Body()) > 0 {
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
	}

	if err := h.svc.Logout(c.UserContext(), identity.UserID, body.RefreshToken); err != nil {
		return err
	}
	return response.Success(c, nil, "Logout successful")
}

func (h *Handler) ChangePassword(c *fiber.Ctx) error {
	identity, err := RequireIdentity(c)
	if err != nil {
		return err
	}

	var body ChangePasswordInput
	if err := validation.Parse(c, &body); err != nil {
		return err
	}

	if err := h.svc.ChangePassword(c.UserContext(), identity.UserID, body); err != nil {
		return err
	}
	return response.Success(c, nil, "Password changed successfully")
}
