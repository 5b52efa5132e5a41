package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"resumematch/scanner-web/internal/services"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, services.ErrBusy):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrHistoryNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrAuth):
		return fiber.StatusUnauthorized
	case errors.Is(err, services.ErrTransport):
		return fiber.StatusBadGateway
	case errors.Is(err, services.ErrServer):
		if status := services.StatusOf(err); status >= 400 {
			return status
		}
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

// respondError writes err as {error, code}, plus the offending field for
// validation errors.
func respondError(c *fiber.Ctx, err error, fallback string) error {
	code := statusFor(err)
	body := fiber.Map{
		"error": services.Friendly(err, fallback),
		"code":  code,
	}

	var valErr *services.ValidationError
	if errors.As(err, &valErr) {
		body["field"] = valErr.Field
	}

	return c.Status(code).JSON(body)
}

// ErrorHandler is the app-wide fallback for errors returned by handlers.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
