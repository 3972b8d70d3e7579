package response

import (
	"errors"

	"github.com/Kyz7/juna/internal/apperror"
	"github.com/gofiber/fiber/v2"
)

type StandardResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    interface{}  `json:"data,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
	Meta    *Meta        `json:"meta,omitempty"`
}

type ErrorDetail struct {
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

func Success(c *fiber.Ctx, data interface{}, message string) error {
	return c.JSON(StandardResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func SuccessWithMeta(c *fiber.Ctx, data interface{}, meta *Meta, message string) error {
	return c.JSON(StandardResponse{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    meta,
	})
}

func Created(c *fiber.Ctx, data interface{}, message string) error {
	return c.Status(fiber.StatusCreated).JSON(StandardResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func Error(c *fiber.Ctx, statusCode int, errorCode string, message string, details interface{}) error {
	return c.Status(statusCode).JSON(StandardResponse{
		Success: false,
		Message: message,
		Error: &ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

// Fail serializes err into the error envelope. Internal and unavailable
// failures keep their cause out of the body unless debug is set.
func Fail(c *fiber.Ctx, err error, debug bool) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return Error(c, fe.Code, codeForStatus(fe.Code), fe.Message, nil)
	}

	appErr := apperror.As(err)
	message := appErr.Message
	details := appErr.Details

	if appErr.Kind == apperror.KindInternal || appErr.Kind == apperror.KindUnavailable {
		if debug && appErr.Err != nil {
			details = fiber.Map{"cause": appErr.Err.Error()}
		} else if !debug {
			message = genericMessage(appErr.Kind)
			details = nil
		}
	}

	return Error(c, appErr.Kind.Status(), appErr.Code, message, details)
}

func genericMessage(kind apperror.Kind) string {
	if kind == apperror.KindUnavailable {
		return "Service temporarily unavailable"
	}
	return "Internal server error"
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity, fiber.StatusRequestEntityTooLarge:
		return "VALIDATION_ERROR"
	case fiber.StatusUnauthorized:
		return "UNAUTHORIZED"
	case fiber.StatusForbidden:
		return "FORBIDDEN"
	case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
		return "NOT_FOUND"
	case fiber.StatusConflict:
		return "CONFLICT"
	case fiber.StatusTooManyRequests:
		return "TOO_MANY_REQUESTS"
	case fiber.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return "INTERNAL_ERROR"
	}
}

func CalculateMeta(page, limit int, total int64) *Meta {
	totalPages := total / int64(limit)
	if total%int64(limit) > 0 {
		totalPages++
	}

	return &Meta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}
