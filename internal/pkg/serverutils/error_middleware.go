package serverutils

import (
	"errors"

	"research-assistant-be/internal/pkg/apperror"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware renders errors returned by handlers as the JSON
// envelope with a matching status code.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return WriteError(ctx, err)
	}
}

func WriteError(ctx *fiber.Ctx, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		if len(appErr.Details) > 0 {
			return ctx.Status(appErr.Status).JSON(ErrorResponseWithData(appErr.Status, appErr.Message, appErr.Details))
		}
		return ctx.Status(appErr.Status).JSON(ErrorResponse(appErr.Status, appErr.Message))
	}

	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		return ctx.Status(fiber.StatusBadRequest).JSON(
			ErrorResponseWithData(fiber.StatusBadRequest, "Validation failed", fieldErrors(vErrs)))
	}

	var fErr *fiber.Error
	if errors.As(err, &fErr) {
		return ctx.Status(fErr.Code).JSON(ErrorResponse(fErr.Code, fErr.Message))
	}

	return ctx.Status(fiber.StatusInternalServerError).JSON(
		ErrorResponse(fiber.StatusInternalServerError, err.Error()))
}
