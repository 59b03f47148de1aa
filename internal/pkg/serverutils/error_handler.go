package serverutils

import (
	"errors"

	"multimodal-rag-be/pkg/rag/errs"

	"github.com/gofiber/fiber/v2"
)

func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code, body := Classify(err)
		return ctx.Status(code).JSON(body)
	}
}

// Classify maps an error to its HTTP status and response body.
func Classify(err error) (int, Response) {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		resp := ErrorResponse(fiber.StatusBadRequest, "Invalid request")
		resp.Errors = validationErr.Fields
		return fiber.StatusBadRequest, resp
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, ErrorResponse(fiberErr.Code, fiberErr.Message)
	}

	if errs.IsNotFound(err) {
		return fiber.StatusNotFound, ErrorResponse(fiber.StatusNotFound, err.Error())
	}

	var upstreamErr *errs.UpstreamError
	if errors.As(err, &upstreamErr) {
		return fiber.StatusBadGateway, ErrorResponse(fiber.StatusBadGateway, upstreamErr.Service+" service unavailable")
	}

	return fiber.StatusInternalServerError, ErrorResponse(fiber.StatusInternalServerError, "Internal server error")
}
